package quote

import (
	"errors"
	"strings"
)

// Field keys as they appear, quoted, in the upstream payload. Quoting keeps
// "change" from matching inside "percent_change" and "volume" inside "average_volume".
const (
	FieldPreviousClose = `"previous_close"`
	FieldChange        = `"change"`
	FieldVolume        = `"volume"`
	FieldPercentChange = `"percent_change"`
	FieldAverageVolume = `"average_volume"`

	// ErrorMarker is the upstream's own error status flag.
	ErrorMarker = `"status":"error"`
)

var (
	// ErrUpstreamError marks a body carrying the upstream error status.
	ErrUpstreamError = errors.New("quote: upstream reported error status")
	// ErrNoAverageVolume marks a sample whose average volume is not positive.
	ErrNoAverageVolume = errors.New("quote: average volume not positive")
)

// Sample holds the raw metrics read from one quote response.
type Sample struct {
	PreviousClose float64
	Change        float64
	Volume        float64
	PercentChange float64
	AverageVolume float64
}

// ParseSample extracts a Sample from raw quote text. It fails when the body
// carries the upstream error marker or when the average volume cannot be used
// to compute relative volume.
func ParseSample(text string) (Sample, error) {
	if HasErrorMarker(text) {
		return Sample{}, ErrUpstreamError
	}

	sample := Sample{
		PreviousClose: Extract(text, FieldPreviousClose),
		Change:        Extract(text, FieldChange),
		Volume:        Extract(text, FieldVolume),
		PercentChange: Extract(text, FieldPercentChange),
		AverageVolume: Extract(text, FieldAverageVolume),
	}
	if sample.AverageVolume <= 0 {
		return sample, ErrNoAverageVolume
	}
	return sample, nil
}

// HasErrorMarker reports whether text carries the upstream error status.
func HasErrorMarker(text string) bool {
	return strings.Contains(text, ErrorMarker)
}

// Price is the previous close plus today's change; the source has no last-price field.
func (s Sample) Price() float64 {
	return s.PreviousClose + s.Change
}

// RelativeVolume is volume over average volume. Callers must reject samples
// with a non-positive average volume first.
func (s Sample) RelativeVolume() float64 {
	return s.Volume / s.AverageVolume
}

// FlowScore is percent change weighted by relative volume.
func (s Sample) FlowScore() float64 {
	return s.PercentChange * s.RelativeVolume()
}
