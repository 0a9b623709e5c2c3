/*
NAME
  v210.go

DESCRIPTION
  v210.go unpacks packed 10-bit 4:2:2 (V210) luma into planar 8-bit luma,
  discarding chroma. This is a pure function with no package-level state:
  it is the one colour-space conversion this core performs itself, everything
  else (e.g. 10-bit -> 8-bit luma for other colour spaces, full chroma
  handling) is left to the caller.

LICENSE
  Copyright (C) 2026 the videofingerprint project authors. All Rights
  Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the videofingerprint project authors.
*/

// Package colorspace converts packed 10-bit 4:2:2 (V210) video into planar
// 8-bit luma.
package colorspace

import "github.com/pkg/errors"

// samplesPerGroup is the number of luma samples recovered from one group of
// 4 packed 32-bit words (16 bytes): the V210 ordering is
// (U,Y,V)(Y,U,Y)(V,Y,U)(Y,V,Y), yielding 6 luma samples per 4 words.
const (
	wordsPerGroup   = 4
	samplesPerGroup = 6
)

// ErrBufferTooSmall is returned when a supplied buffer cannot hold the
// geometry requested.
var ErrBufferTooSmall = errors.New("colorspace: buffer too small for requested geometry")

// UnpackV210 converts width x height (or a sparse subset of rows) of packed
// 10-bit 4:2:2 V210 luma in src into planar 8-bit luma in dst. src is a
// little-endian stream of 32-bit words, srcStride giving the stride of one
// row in bytes; dst is written with dstStride bytes per row.
//
// Each luma sample is taken as (word >> (shift + 2)) & 0xFF, shift cycling
// through {10, 0, 20, 10, 0, 20} across a group of four words, matching the
// published V210 bit layout: the result is the high 8 bits of each 10-bit
// sample, its low two bits discarded.
//
// If rows is non-nil, only the given row indices are unpacked (the sparse
// mode used to convert just the 16 rows required by the window
// sub-sampling table); rows == nil unpacks every row in [0, height).
//
// A row whose width is not a multiple of 6 has its final (width mod 6)
// columns left unwritten (zero in a fresh buffer), matching the reference
// implementation's behaviour -- the window sub-sample grid never reaches
// those trailing columns in any supported format.
func UnpackV210(dst []byte, dstStride int, src []byte, srcStride int, width, height int, rows []int) error {
	if width <= 0 || height <= 0 || dstStride < width || srcStride < (width/samplesPerGroup)*wordsPerGroup*4 {
		return errors.Wrap(ErrBufferTooSmall, "invalid geometry")
	}
	if len(dst) < dstStride*height {
		return errors.Wrap(ErrBufferTooSmall, "dst")
	}
	if len(src) < srcStride*height {
		return errors.Wrap(ErrBufferTooSmall, "src")
	}

	if rows == nil {
		for r := 0; r < height; r++ {
			unpackRow(dst[r*dstStride:], src[r*srcStride:], width)
		}
		return nil
	}

	for _, r := range rows {
		if r < 0 || r >= height {
			return errors.Wrapf(ErrBufferTooSmall, "row index %d out of range", r)
		}
		unpackRow(dst[r*dstStride:], src[r*srcStride:], width)
	}
	return nil
}

// unpackRow unpacks a single row of width luma samples from src (packed
// 32-bit little-endian words) into dst.
func unpackRow(dst, src []byte, width int) {
	groups := width / samplesPerGroup
	for g := 0; g < groups; g++ {
		off := g * wordsPerGroup * 4
		w0 := readLE32(src[off:])
		w1 := readLE32(src[off+4:])
		w2 := readLE32(src[off+8:])
		w3 := readLE32(src[off+12:])

		do := g * samplesPerGroup
		dst[do+0] = byte((w0 >> (10 + 2)) & 0xFF)
		dst[do+1] = byte((w1 >> (0 + 2)) & 0xFF)
		dst[do+2] = byte((w1 >> (20 + 2)) & 0xFF)
		dst[do+3] = byte((w2 >> (10 + 2)) & 0xFF)
		dst[do+4] = byte((w3 >> (0 + 2)) & 0xFF)
		dst[do+5] = byte((w3 >> (20 + 2)) & 0xFF)
	}
}

func readLE32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
