package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"topflow/internal/app"
)

var (
	simulateTicker string
	simulatePrice  float64
	simulateChange float64
	simulateVolume float64
	simulateRVol   float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Deliver an alert for a synthetic top flow",
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker := strings.ToUpper(strings.TrimSpace(simulateTicker))
		if ticker == "" {
			return errors.New("--ticker is required")
		}
		if simulatePrice <= 0 {
			return errors.New("--price must be greater than 0")
		}
		if simulateRVol <= 0 {
			return errors.New("--rvol must be greater than 0")
		}

		return getApp().SimulateAlert(cmd.Context(), app.SimulateOptions{
			Ticker:         ticker,
			Price:          simulatePrice,
			PercentChange:  simulateChange,
			Volume:         simulateVolume,
			RelativeVolume: simulateRVol,
		})
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateTicker, "ticker", "NVDA", "Ticker symbol")
	simulateCmd.Flags().Float64Var(&simulatePrice, "price", 0, "Last price")
	simulateCmd.Flags().Float64Var(&simulateChange, "change", 0, "Percent change versus previous close")
	simulateCmd.Flags().Float64Var(&simulateVolume, "volume", 0, "Session volume")
	simulateCmd.Flags().Float64Var(&simulateRVol, "rvol", 1, "Relative volume")
}
