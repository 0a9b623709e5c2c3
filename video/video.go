/*
NAME
  video.go

DESCRIPTION
  video.go implements the video fingerprint pipeline: luma pre-filtering,
  windowed sub-sampling, and motion-based pixel counting to derive a single
  8-bit video fingerprint per pushed frame.

LICENSE
  Copyright (C) 2026 the videofingerprint project authors. All Rights
  Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the videofingerprint project authors.
*/

// Package video implements the per-frame video fingerprint pipeline:
// pre-filter, window sub-sample, and motion count.
package video

import (
	"github.com/pkg/errors"

	"github.com/videofingerprint/smpte2064/format"
)

// PerPixelMotionThreshold is the fixed 8-bit luma motion threshold (5.2.3.2).
// A pixel is counted as "changed" only when its difference strictly exceeds
// this value.
const PerPixelMotionThreshold = 32

// ErrNotProgressive is returned by New when given interlaced format rows;
// the motion stage is only defined for progressive
// frames (spec.md Non-goals).
var ErrNotProgressive = errors.New("video: motion stage requires a progressive format")

// Pipeline holds the rolling state for one video stream: the pre-filter
// scratch buffer, the three-frame sub-sample history ring, and the
// three-frame fingerprint history ring.
type Pipeline struct {
	t1 *format.T1
	t2 *format.T2

	width  int
	height int
	stride int

	scratch []byte // Pre-filtered luma, one frame, width*height (stride-aware).

	// wssF4 is the current sub-sample, wssF3 the previous, wssF2 two
	// frames prior. Motion always compares F4 against F2 (a tape delay),
	// never F3.
	wssF4, wssF3, wssF2 [format.WindowRows][format.WindowCols]uint8

	fpF4, fpF3, fpF2 uint8 // Video fingerprint history, aged in lockstep with wss.

	calculated uint64  // Monotone count of fingerprints computed.
	motion     float64 // Most recent above_threshold / WindowSamples ratio.
}

// New returns a Pipeline for a progressive stream of the given geometry. t1
// and t2 must be the format rows resolved for this geometry (format.LookupT1
// / format.LookupT2).
func New(t1 *format.T1, t2 *format.T2, width, height, stride int) (*Pipeline, error) {
	if !t1.Progressive || !t2.Progressive {
		return nil, ErrNotProgressive
	}
	if width <= 0 || height <= 0 || stride < width {
		return nil, errors.New("video: invalid geometry")
	}
	return &Pipeline{
		t1:      t1,
		t2:      t2,
		width:   width,
		height:  height,
		stride:  stride,
		scratch: make([]byte, stride*height),
	}, nil
}

// Push processes one luma frame through pre-filter, window sub-sampling and
// motion counting, returning the newly computed 8-bit video fingerprint.
func (p *Pipeline) Push(luma []byte) (uint8, error) {
	if len(luma) < p.stride*p.height {
		return 0, errors.New("video: luma buffer shorter than stride*height")
	}

	p.prefilter(luma)
	p.subsample()
	fp := p.computeMotion()
	return fp, nil
}

// prefilter averages, per output pixel, the in-bounds taps named by T1,
// dividing by the count of in-bounds taps (not t1.TapCount) so that pixels
// near the left/right edges are unbiased.
func (p *Pipeline) prefilter(luma []byte) {
	for y := 0; y < p.height; y++ {
		srcLine := luma[y*p.stride:]
		dstLine := p.scratch[y*p.stride:]

		if p.t1.TapCount == 0 {
			copy(dstLine[:p.width], srcLine[:p.width])
			continue
		}

		for x := 0; x < p.width; x++ {
			sum := 0
			samples := 0
			for i := 0; i < p.t1.TapCount; i++ {
				xx := x + p.t1.Taps[i]
				if xx >= 0 && xx < p.width {
					sum += int(srcLine[xx])
					samples++
				}
			}
			dstLine[x] = byte(sum / samples)
		}
	}
}

// subsample ages the sub-sample ring and then samples the pre-filtered luma
// on the T2 grid into the new current slot (F4).
func (p *Pipeline) subsample() {
	p.wssF2 = p.wssF3
	p.wssF3 = p.wssF4

	gridV := p.t2.VStartF1
	for r := 0; r < format.WindowRows; r++ {
		srcLine := p.scratch[gridV*p.stride:]
		gridH := p.t2.HStart
		for c := 0; c < format.WindowCols; c++ {
			p.wssF4[r][c] = srcLine[gridH]
			gridH += p.t2.HStep
		}
		gridV += p.t2.VStep
	}
}

// computeMotion counts sub-sample pixels whose magnitude of change between
// F4 and F2 strictly exceeds PerPixelMotionThreshold, ages the fingerprint
// ring, and returns the new 8-bit fingerprint (above_threshold / 4).
func (p *Pipeline) computeMotion() uint8 {
	above := 0
	for r := 0; r < format.WindowRows; r++ {
		for c := 0; c < format.WindowCols; c++ {
			diff := int(p.wssF4[r][c]) - int(p.wssF2[r][c])
			if diff < 0 {
				diff = -diff
			}
			if diff > PerPixelMotionThreshold {
				above++
			}
		}
	}
	p.calculated++
	p.motion = float64(above) / float64(format.WindowSamples)

	p.fpF2 = p.fpF3
	p.fpF3 = p.fpF4
	p.fpF4 = uint8(above / 4)
	return p.fpF4
}

// Fingerprint returns the three most recent video fingerprints, most recent
// first.
func (p *Pipeline) Fingerprint() (f4, f3, f2 uint8) {
	return p.fpF4, p.fpF3, p.fpF2
}

// Calculated returns the number of frames processed so far.
func (p *Pipeline) Calculated() uint64 {
	return p.calculated
}

// Motion returns the most recent motion ratio (above_threshold /
// WindowSamples), a side metric not used by the container packer.
func (p *Pipeline) Motion() float64 {
	return p.motion
}
