package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ecovalle/recolecta/analytics"
	"github.com/ecovalle/recolecta/config"
	"github.com/ecovalle/recolecta/pkg/export"
	"github.com/ecovalle/recolecta/store"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the analytics summary to stdout",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "output format: csv or json")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := store.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	sum, err := analytics.NewService(st, 10).Summary(context.Background())
	if err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	switch exportFormat {
	case "csv":
		return export.WriteCSV(os.Stdout, sum)
	case "json":
		return export.WriteJSON(os.Stdout, sum)
	}
	return fmt.Errorf("unsupported format %q", exportFormat)
}
