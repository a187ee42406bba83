// Package export serializes analytics summaries for offline consumption.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/ecovalle/recolecta/analytics"
)

// WriteJSON writes the summary to w in JSON format.
func WriteJSON(w io.Writer, sum *analytics.Summary) error {
	enc := json.NewEncoder(w)
	return enc.Encode(sum)
}

// WriteCSV writes the per-material breakdown to w in CSV format.
func WriteCSV(w io.Writer, sum *analytics.Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"material", "solicitudes", "total_kg", "promedio_kg", "puntos"}); err != nil {
		return err
	}
	for _, m := range sum.Materiales {
		rec := []string{
			m.Material,
			strconv.Itoa(m.Solicitudes),
			strconv.FormatFloat(m.TotalKg, 'f', -1, 64),
			strconv.FormatFloat(m.MeanKg, 'f', -1, 64),
			strconv.FormatFloat(m.Puntos, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
