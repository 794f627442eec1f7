package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"crypto-bob-alerts/internal/app"
)

var (
	exportSince     time.Duration
	exportCSVPath   string
	exportPNGPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export historical samples as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportCSVPath == "" && exportPNGPath == "" {
			return errors.New("at least one of --csv or --png must be provided")
		}

		opts := app.ExportOptions{
			Since:     exportSince,
			CSVPath:   exportCSVPath,
			PNGPath:   exportPNGPath,
			MaxPoints: exportMaxPoints,
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().DurationVar(&exportSince, "since", 0, "Export window looking back from now (e.g. 72h)")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "CSV output path")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "PNG chart output path")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Override max exported data points")
}
