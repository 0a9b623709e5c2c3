/*
NAME
  diagnostics.go

DESCRIPTION
  diagnostics.go exposes read-only observability over a Context's recent
  motion ratio and per-audio-type envelope level history (spec.md Section
  3.1, added). None of this feeds back into VideoPush, AudioPush or Pack; it
  exists purely so a caller can watch a stream's fingerprint health.
*/

package fingerprint

import (
	"gonum.org/v1/gonum/stat"

	"github.com/videofingerprint/smpte2064/audio"
)

// Diagnostics is a snapshot of a Context's rolling health metrics.
type Diagnostics struct {
	// MotionMean and MotionVariance summarise the most recent (up to 64)
	// video motion ratios (above_threshold / WindowSamples).
	MotionMean     float64
	MotionVariance float64

	// EnvelopeMean summarises the most recent (up to 64) envelope detector
	// levels per resident audio type.
	EnvelopeMean map[audio.Type]float64
}

// Diagnostics computes the current rolling statistics. It is safe to call at
// any time after Alloc, including before the first push (all fields read as
// zero values in that case).
func (c *Context) Diagnostics() Diagnostics {
	d := Diagnostics{
		EnvelopeMean: make(map[audio.Type]float64, len(c.envelopeMeanHistory)),
	}
	if len(c.motionHistory) > 0 {
		d.MotionMean = stat.Mean(c.motionHistory, nil)
		if len(c.motionHistory) > 1 {
			d.MotionVariance = stat.Variance(c.motionHistory, nil)
		}
	}
	for typ, hist := range c.envelopeMeanHistory {
		if len(hist) == 0 {
			continue
		}
		d.EnvelopeMean[typ] = stat.Mean(hist, nil)
	}
	return d
}
