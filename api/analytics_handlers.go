package api

import (
	"fmt"
	"net/http"

	"github.com/ecovalle/recolecta/core/model"
	"github.com/ecovalle/recolecta/pkg/export"
)

func (h *handlers) resumen(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Analytics.Summary(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *handlers) exportResumen(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Analytics.Summary(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	format := r.URL.Query().Get("format")
	switch format {
	case "", "json":
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="resumen.json"`)
		if err := export.WriteJSON(w, sum); err != nil {
			h.Log.Errorf("export json: %v", err)
		}
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="resumen.csv"`)
		if err := export.WriteCSV(w, sum); err != nil {
			h.Log.Errorf("export csv: %v", err)
		}
	default:
		writeError(w, fmt.Errorf("%w: unsupported format %q", model.ErrValidation, format))
	}
}
