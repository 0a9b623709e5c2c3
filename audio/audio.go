/*
NAME
  audio.go

DESCRIPTION
  audio.go implements the audio fingerprint pipeline: downmix to mono,
  pseudo-absolute value, envelope/local-mean detection, comparator and
  decimator, yielding one bit per D samples (D = 50 or 52), at most D bits,
  per audio type per push.

LICENSE
  Copyright (C) 2026 the videofingerprint project authors. All Rights
  Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the videofingerprint project authors.
*/

// Package audio implements the per-type audio fingerprint pipeline: downmix,
// pseudo-absolute value, envelope/local-mean detection, comparator and
// decimator.
package audio

import (
	"math"

	"github.com/pkg/errors"

	"github.com/videofingerprint/smpte2064/format"
)

// Type enumerates the supported audio input shapes (spec.md Section 6).
type Type uint8

const (
	// StereoS16P is two planes of signed 16-bit PCM, one sample per slot.
	StereoS16P Type = 1
	// StereoS32CH16Decklink is one plane of 32-bit words, 16-channel
	// interleave; channels 0 and 1 carry the stereo pair in their high 16 bits.
	StereoS32CH16Decklink Type = 2
	// SMPTE312S32CH16Decklink is the same wire shape as StereoS32CH16Decklink
	// but identifies a discrete 5.1-style capture; it downmixes identically
	// (channels 0+1 as L/R) and differs only in the container's AudioMixType.
	SMPTE312S32CH16Decklink Type = 3
	// TypeMax bounds iteration over the audio type enum.
	TypeMax = 4
)

// mixCode returns the container's AudioMixType value for this audio type (3
// bits, spec.md Section 4.6): 2 for both stereo shapes, 5 for the discrete
// 5.1 input, 0 reserved for future use.
func (t Type) mixCode() uint8 {
	switch t {
	case StereoS16P, StereoS32CH16Decklink:
		return 2
	case SMPTE312S32CH16Decklink:
		return 5
	default:
		return 0
	}
}

// MixCode exports mixCode for the container packer.
func (t Type) MixCode() uint8 { return t.mixCode() }

func (t Type) valid() bool { return t >= StereoS16P && t < TypeMax }

// Fixed-coefficient detector constants (spec.md Section 4.4, the shipped
// redesign of the published non-normalised IIR form; see reference.go for
// the original behind the klreference build tag).
const (
	envelopeAlpha   = 0.25
	localMeanBeta   = 0.005
	comparatorDelta = 0.015
)

// ErrInvalidArgument is returned for mismatched plane lengths, unknown
// channel counts, or a zero sample count.
var ErrInvalidArgument = errors.New("audio: invalid argument")

// Pipeline holds one audio type's rolling scratch state. A Pipeline is not
// safe for concurrent use.
type Pipeline struct {
	typ Type
	t3  *format.T3

	buf     []float64 // Mono pseudo-absolute signal.
	es      []float64 // Envelope detector output.
	ms      []float64 // Local mean detector output.
	compBit []byte    // Comparator output, one byte (0/1) per sample.

	result  []byte // Decimated fingerprint, packed MSB-first, ceil(bits/8) bytes.
	resultN int    // Number of valid decimated bits currently in result.

	envelopeMean float64 // Mean of the envelope detector output for the most recent push, a diagnostics-only side value.
}

// New returns a Pipeline for the given audio type and T3 decimator row. t3 is
// typically resolved once via format.LookupT3Rate / LookupT3Timebase and
// shared across all audio types pushed for a stream.
func New(typ Type, t3 *format.T3) (*Pipeline, error) {
	if !typ.valid() {
		return nil, errors.Wrapf(ErrInvalidArgument, "unknown audio type %d", typ)
	}
	if t3 == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "nil T3 row")
	}
	return &Pipeline{typ: typ, t3: t3}, nil
}

// ensureCapacity grows the scratch buffers to hold at least n samples. The
// buffers are reallocated whenever n exceeds their capacity and never shrink.
func (p *Pipeline) ensureCapacity(n int) {
	if cap(p.buf) >= n {
		p.buf = p.buf[:n]
		p.es = p.es[:n]
		p.ms = p.ms[:n]
		p.compBit = p.compBit[:n]
		return
	}
	p.buf = make([]float64, n)
	p.es = make([]float64, n)
	p.ms = make([]float64, n)
	p.compBit = make([]byte, n)
}

// pcm16ToFloat converts one signed 16-bit PCM sample to float, using /32767
// for non-negative samples and /32768 for negative ones (spec.md Section
// 4.4).
func pcm16ToFloat(s int16) float64 {
	if s >= 0 {
		return float64(s) / 32767
	}
	return float64(s) / 32768
}

// PushStereoS16P downmixes two planes of signed 16-bit PCM (equal length)
// and runs the rest of the pipeline, returning the decimated fingerprint
// bytes.
func (p *Pipeline) PushStereoS16P(left, right []int16) ([]byte, error) {
	if p.typ != StereoS16P {
		return nil, errors.Wrap(ErrInvalidArgument, "pipeline is not configured for StereoS16P")
	}
	if len(left) == 0 || len(left) != len(right) {
		return nil, errors.Wrap(ErrInvalidArgument, "mismatched or empty stereo planes")
	}

	n := len(left)
	p.ensureCapacity(n)
	for i := 0; i < n; i++ {
		ls := pcm16ToFloat(left[i])
		rs := pcm16ToFloat(right[i])
		m := ((ls * 0.7071) + (rs * 0.7071)) / 2
		p.buf[i] = math.Abs(m)
	}
	return p.process(n)
}

// PushDecklink32 downmixes one plane of 32-bit words with channels-many
// interleaved channels, using channels 0 and 1 as the stereo pair (the
// StereoS32CH16Decklink and SMPTE312S32CH16Decklink shapes).
func (p *Pipeline) PushDecklink32(interleaved []int32, channels int) ([]byte, error) {
	if p.typ != StereoS32CH16Decklink && p.typ != SMPTE312S32CH16Decklink {
		return nil, errors.Wrap(ErrInvalidArgument, "pipeline is not configured for a Decklink shape")
	}
	if channels < 2 || len(interleaved)%channels != 0 || len(interleaved) == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "invalid channel count or frame length")
	}

	n := len(interleaved) / channels
	p.ensureCapacity(n)
	for i := 0; i < n; i++ {
		l32 := interleaved[i*channels+0]
		r32 := interleaved[i*channels+1]
		ls := pcm16ToFloat(int16(l32 >> 16))
		rs := pcm16ToFloat(int16(r32 >> 16))
		m := ((ls * 0.7071) + (rs * 0.7071)) / 2
		p.buf[i] = math.Abs(m)
	}
	return p.process(n)
}

// process runs the pseudo-absolute value (already folded into the downmix
// step above via math.Abs), envelope detector, local mean detector,
// comparator and decimator over the first n samples of buf, and returns the
// decimated fingerprint bytes.
func (p *Pipeline) process(n int) ([]byte, error) {
	if n == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "zero sample count")
	}

	p.es[0] = p.buf[0]
	p.ms[0] = p.buf[0]
	for i := 1; i < n; i++ {
		p.es[i] = envelopeAlpha*p.buf[i] + (1-envelopeAlpha)*p.es[i-1]
		p.ms[i] = localMeanBeta*p.buf[i] + (1-localMeanBeta)*p.ms[i-1]
	}

	for i := 0; i < n; i++ {
		if p.ms[i]+comparatorDelta < p.es[i] {
			p.compBit[i] = 1
		} else {
			p.compBit[i] = 0
		}
	}

	d := p.t3.DecimatorFactor
	bits := (n + d - 1) / d
	if bits > d {
		bits = d // A fingerprint never exceeds D bits, the decimator's own width.
	}

	byteCount := (bits + 7) / 8
	if cap(p.result) < byteCount {
		p.result = make([]byte, byteCount)
	} else {
		p.result = p.result[:byteCount]
		for i := range p.result {
			p.result[i] = 0
		}
	}

	for i := 0; i < bits; i++ {
		if p.compBit[i*d] != 0 {
			p.result[i/8] |= 1 << uint(7-i%8)
		}
	}
	p.resultN = bits

	sum := 0.0
	for _, v := range p.es[:n] {
		sum += v
	}
	p.envelopeMean = sum / float64(n)

	return p.result, nil
}

// BitCount returns the number of valid fingerprint bits produced by the most
// recent push (0 until the first successful push).
func (p *Pipeline) BitCount() int { return p.resultN }

// Type returns the audio type this Pipeline was constructed for.
func (p *Pipeline) Type() Type { return p.typ }

// EnvelopeMean returns the mean envelope detector level for the most recent
// push, a diagnostics-only side value (see fingerprint.Context.Diagnostics).
func (p *Pipeline) EnvelopeMean() float64 { return p.envelopeMean }
