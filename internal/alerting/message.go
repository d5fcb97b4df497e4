package alerting

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"topflow/internal/flow"
)

const (
	// DefaultMaxMessageLength is the delivery body ceiling before envelope wrapping.
	DefaultMaxMessageLength = 1000
	// envelopeHeadroom is kept free below the ceiling for the envelope itself.
	envelopeHeadroom = 5
)

// RenderMessage formats the alert text for a cycle winner.
func RenderMessage(res flow.Result) string {
	builder := strings.Builder{}
	builder.WriteString(res.Direction.Label() + "\n")
	builder.WriteString(fmt.Sprintf("Ticker: %s\n", res.Ticker))
	builder.WriteString(fmt.Sprintf("Price: %s\n", fixed(res.Price, 2)))
	builder.WriteString(fmt.Sprintf("Change: %s%%\n", fixed(res.PercentChange, 4)))
	builder.WriteString(fmt.Sprintf("Volume: %s\n", fixed(res.Volume, 0)))
	builder.WriteString(fmt.Sprintf("RVol: %s\n", fixed(res.RelativeVolume, 4)))
	builder.WriteString(fmt.Sprintf("Directional Flow: %s", fixed(res.FlowScore, 4)))
	return builder.String()
}

func fixed(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', int(places), 64)
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

// TruncateForEnvelope cuts msg so that, once every newline is written as the
// two-character sequence `\n`, it stays within limit minus the envelope headroom.
// Truncation never splits a rune or an escape.
func TruncateForEnvelope(msg string, limit int) string {
	if limit <= 0 {
		limit = DefaultMaxMessageLength
	}
	budget := limit - envelopeHeadroom

	used := 0
	for i, r := range msg {
		cost := utf8.RuneLen(r)
		if r == '\n' {
			cost = 2
		}
		if used+cost > budget {
			return msg[:i]
		}
		used += cost
	}
	return msg
}
