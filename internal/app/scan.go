package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"topflow/internal/flow"
	"topflow/internal/service"
)

// ScanOptions configure the scan command.
type ScanOptions struct {
	Out     io.Writer
	CSVPath string
	PNGPath string
}

// Scan runs a single cycle without delivering, prints every usable symbol and
// the winner, and optionally exports the cycle as CSV and/or PNG.
func (a *App) Scan(ctx context.Context, opts ScanOptions) error {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	svc := service.New(a.Config, nil, a.newFetcher(), nil, nil, a.Logger)
	report := svc.RunCycle(ctx)

	if err := printReport(out, report); err != nil {
		return err
	}

	if opts.CSVPath != "" {
		if err := writeSnapshotsCSV(opts.CSVPath, report); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if len(report.Snapshots) == 0 {
			return errors.New("no usable samples to chart")
		}
		if err := writeFlowPNG(opts.PNGPath, report.Snapshots); err != nil {
			return err
		}
	}

	return nil
}

func printReport(out io.Writer, report service.Report) error {
	if len(report.Snapshots) == 0 {
		fmt.Fprintln(out, "no usable samples")
	} else {
		writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(writer, "Symbol\tPrice\tVolume\tRVol\tChange%\tFlow")
		for _, s := range report.Snapshots {
			fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n",
				s.Ticker,
				formatDecimal(s.Price, 2),
				formatDecimal(s.Volume, 0),
				formatDecimal(s.RelativeVolume, 4),
				formatDecimal(s.PercentChange, 4),
				formatDecimal(s.FlowScore, 4),
			)
		}
		if err := writer.Flush(); err != nil {
			return err
		}
	}

	for _, skip := range report.Skipped {
		fmt.Fprintf(out, "skipped %s: %v\n", skip.Symbol, skip.Err)
	}

	if report.Top != nil {
		fmt.Fprintf(out, "\n%s\n", report.Message)
	}
	return nil
}

func writeSnapshotsCSV(path string, report service.Report) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"symbol", "price", "change_pct", "volume", "rvol", "flow", "winner"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, s := range report.Snapshots {
		winner := report.Top != nil && report.Top.Ticker == s.Ticker
		record := []string{
			s.Ticker,
			formatDecimal(s.Price, 2),
			formatDecimal(s.PercentChange, 4),
			formatDecimal(s.Volume, 0),
			formatDecimal(s.RelativeVolume, 4),
			formatDecimal(s.FlowScore, 4),
			strconv.FormatBool(winner),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeFlowPNG(path string, snapshots []flow.Snapshot) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	bars := make([]chart.Value, 0, len(snapshots))
	for _, s := range snapshots {
		bars = append(bars, chart.Value{Label: s.Ticker, Value: s.FlowScore})
	}

	graph := chart.BarChart{
		Title:        "Directional Flow",
		Width:        1024,
		Height:       512,
		BarWidth:     60,
		UseBaseValue: true,
		BaseValue:    0,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		Bars: bars,
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func formatDecimal(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', int(places), 64)
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}
