/*
NAME
  format.go

DESCRIPTION
  format.go provides the static, read-only format descriptor tables used to
  drive the video and audio fingerprint pipelines: the pre-filter taps (T1),
  the window sub-sampling geometry (T2), and the audio decimator/timebase
  table (T3). These tables are lookups only, keyed by stream geometry or
  frame rate, and never mutated after program start.

LICENSE
  Copyright (C) 2026 the videofingerprint project authors. All Rights
  Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the videofingerprint project authors.
*/

// Package format holds the static SMPTE ST 2064-1 format descriptor tables
// and their lookup functions.
package format

import "github.com/pkg/errors"

// ErrUnsupported names an unsupported geometry or rate. The Lookup functions
// do not return it: they report a miss through their bool result.
var ErrUnsupported = errors.New("format: unsupported geometry or rate")

// MaxPrefilterTaps bounds the prefilter offset list.
const MaxPrefilterTaps = 6

// T1 describes the per-format luma pre-filter: up to six signed horizontal
// sample offsets that are averaged (over the in-bounds taps only) to produce
// each pre-filtered output pixel.
type T1 struct {
	Progressive bool
	Width       int
	Height      int
	TapCount    int
	Taps        [MaxPrefilterTaps]int
}

// T2 describes the 16x60 window sub-sampling grid for a format: horizontal
// start/step/stop and vertical start/step/stop (progressive uses VStartF1;
// interlaced fields would use VStartF2, unused by this core).
type T2 struct {
	Progressive bool
	Width       int
	Height      int
	HStart      int
	HStep       int
	HStop       int
	VStartF1    int
	VStartF2    int
	VStep       int
	VStopF1     int
	VStopF2     int
}

// T3 describes the audio decimator table for a given nominal video frame
// rate: the decimator factor (50 or 52), the timebase pair that identifies
// the rate on the wire, and the nominal fingerprint bitrate.
type T3 struct {
	FrameRate       float64
	DecimatorFactor int
	TimebaseNum     uint32
	TimebaseDen     uint32
	BitsPerSecond   int
}

// WindowRows and WindowCols are the fixed dimensions of the sub-sample grid
// (5.2.2): 16 rows of 60 samples, 960 samples total.
const (
	WindowRows    = 16
	WindowCols    = 60
	WindowSamples = WindowRows * WindowCols
)

var t1Table = []T1{
	{true, 4096, 2160, 6, [MaxPrefilterTaps]int{-3, -2, -1, 0, 1, 2}},
	{true, 3840, 2160, 6, [MaxPrefilterTaps]int{-3, -2, -1, 0, 1, 2}},
	{true, 2048, 1080, 3, [MaxPrefilterTaps]int{-1, 0, 1, 0, 0, 0}},
	{false, 1920, 1080, 3, [MaxPrefilterTaps]int{-1, 0, 1, 0, 0, 0}},
	{true, 1920, 1080, 3, [MaxPrefilterTaps]int{-1, 0, 1, 0, 0, 0}},
	{true, 1280, 720, 2, [MaxPrefilterTaps]int{-1, 0, 0, 0, 0, 0}},
	{false, 720, 485, 0, [MaxPrefilterTaps]int{}},
	{true, 720, 576, 0, [MaxPrefilterTaps]int{}},
}

var t2Table = []T2{
	{false, 720, 485, 123, 8, 595, 60, 323, 10, 210, 473},
	{false, 720, 576, 123, 8, 595, 68, 381, 12, 248, 561},
	{true, 1280, 720, 256, 13, 1023, 117, -1, 32, 597, -1},
	{false, 1920, 1080, 399, 19, 1520, 89, 652, 24, 449, 1012},
	{true, 1920, 1080, 399, 19, 1520, 178, -1, 48, 898, -1},
	{true, 3840, 2160, 798, 38, 3040, 412, -1, 92, 1792, -1},
	{true, 2048, 1080, 463, 19, 1584, 206, -1, 46, 896, -1},
	{true, 4096, 2160, 926, 38, 3168, 412, -1, 92, 1792, -1},
}

// t3Table enumerates the supported rates. Note that 47.95 and 48/1.001 are
// intentionally absent (spec.md Section 4.1).
var t3Table = []T3{
	{23.976, 52, 77, 16, 923},
	{29.97, 52, 77, 20, 923},
	{59.94, 52, 77, 40, 923},
	{24, 50, 80, 16, 960},
	{25, 50, 96, 20, 960},
	{30, 50, 80, 20, 960},
	{50, 50, 96, 40, 960},
	{60, 50, 80, 40, 960},
}

// pictureRateCodes maps a T3 frame rate to the 4-bit SMPTE S253 Picture_Rate
// code carried in the fingerprint container header.
var pictureRateCodes = map[float64]uint8{
	23.976: 0x1,
	24:     0x2,
	25:     0x3,
	29.97:  0x4,
	30:     0x5,
	50:     0x6,
	59.94:  0x7,
	60:     0x8,
}

// PictureRateUnknown is the S253 code for "unknown or not specified".
const PictureRateUnknown uint8 = 0x0

// LookupT1 returns the pre-filter descriptor for the given geometry.
func LookupT1(progressive bool, width, height int) (*T1, bool) {
	for i := range t1Table {
		t := &t1Table[i]
		if t.Progressive == progressive && t.Width == width && t.Height == height {
			return t, true
		}
	}
	return nil, false
}

// LookupT2 returns the window sub-sampling descriptor for the given geometry.
func LookupT2(progressive bool, width, height int) (*T2, bool) {
	for i := range t2Table {
		t := &t2Table[i]
		if t.Progressive == progressive && t.Width == width && t.Height == height {
			return t, true
		}
	}
	return nil, false
}

// LookupT3Rate returns the audio decimator descriptor for an exact nominal
// frame rate. Comparison is exact on the tabulated value, no tolerance.
func LookupT3Rate(rate float64) (*T3, bool) {
	for i := range t3Table {
		if t3Table[i].FrameRate == rate {
			return &t3Table[i], true
		}
	}
	return nil, false
}

// LookupT3Timebase returns the audio decimator descriptor whose stored
// (TimebaseNum, TimebaseDen) pair equals (num, den) exactly, e.g. (77, 40)
// for 59.94. The stored pairs are the table's own values, not reduced
// frame-rate timebases: a pair such as (1001, 60000) does not resolve.
func LookupT3Timebase(num, den uint32) (*T3, bool) {
	for i := range t3Table {
		if t3Table[i].TimebaseNum == num && t3Table[i].TimebaseDen == den {
			return &t3Table[i], true
		}
	}
	return nil, false
}

// PictureRateCode resolves a T3 row's frame rate to its SMPTE S253 4-bit
// Picture_Rate code. It returns (PictureRateUnknown, false) when the rate
// has no assigned code.
func PictureRateCode(rate float64) (uint8, bool) {
	c, ok := pictureRateCodes[rate]
	if !ok {
		return PictureRateUnknown, false
	}
	return c, true
}
