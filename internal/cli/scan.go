package cli

import (
	"github.com/spf13/cobra"

	"topflow/internal/app"
)

var (
	scanCSV string
	scanPNG string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one screening cycle and print the results without alerting",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ScanOptions{
			Out:     cmd.OutOrStdout(),
			CSVPath: scanCSV,
			PNGPath: scanPNG,
		}
		return getApp().Scan(cmd.Context(), opts)
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanCSV, "csv", "", "Write the cycle's snapshots to this CSV file")
	scanCmd.Flags().StringVar(&scanPNG, "png", "", "Render the cycle's flow scores as a PNG bar chart")
}
