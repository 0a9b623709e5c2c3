/*
NAME
  writer.go

DESCRIPTION
  writer.go implements the append-only, MSB-first bit writer used by the
  container packer, wrapping github.com/icza/bitio over a length-bounded
  buffer so that writing past the caller-supplied limit is an error rather
  than a panic or silent truncation.

LICENSE
  Copyright (C) 2026 the videofingerprint project authors. All Rights
  Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the videofingerprint project authors.
*/

// Package bitstream implements a small append-only MSB-first bit writer over
// a caller-supplied byte buffer.
package bitstream

import (
	"github.com/icza/bitio"
	"github.com/pkg/errors"
)

// ErrBufferFull is returned once a write would exceed the buffer passed to
// Reset.
var ErrBufferFull = errors.New("bitstream: buffer full")

// ErrBitWidth is returned by WriteBits for n outside [1, 32].
var ErrBitWidth = errors.New("bitstream: bit width must be in [1, 32]")

// boundedBuffer is an io.Writer over a fixed-capacity byte slice that errors
// instead of growing once full.
type boundedBuffer struct {
	buf []byte
	n   int
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	if b.n+len(p) > len(b.buf) {
		return 0, ErrBufferFull
	}
	copy(b.buf[b.n:], p)
	b.n += len(p)
	return len(p), nil
}

func (b *boundedBuffer) WriteByte(c byte) error {
	if b.n+1 > len(b.buf) {
		return ErrBufferFull
	}
	b.buf[b.n] = c
	b.n++
	return nil
}

// Writer accumulates bit fields MSB-first into a bounded byte buffer. A
// Writer is not safe for concurrent use; call Reset before each container to
// rebind it to a fresh buffer.
type Writer struct {
	bb *boundedBuffer
	w  *bitio.Writer
}

// New returns an unbound Writer; call Reset before writing.
func New() *Writer {
	return &Writer{}
}

// Reset rebinds the Writer to buf, discarding any unflushed state from a
// previous use.
func (w *Writer) Reset(buf []byte) {
	w.bb = &boundedBuffer{buf: buf}
	w.w = bitio.NewWriter(w.bb)
}

// WriteBits writes the low n bits of value, most-significant-bit first. n
// must be in [1, 32].
func (w *Writer) WriteBits(value uint64, n int) error {
	if n < 1 || n > 32 {
		return ErrBitWidth
	}
	if err := w.w.WriteBits(value, uint8(n)); err != nil {
		return errors.Wrap(err, "bitstream: write bits")
	}
	return nil
}

// WriteBit writes a single bit: 1 if b is nonzero, else 0.
func (w *Writer) WriteBit(b byte) error {
	if err := w.w.WriteBool(b != 0); err != nil {
		return errors.Wrap(err, "bitstream: write bit")
	}
	return nil
}

// Complete pads any partial trailing byte with zero bits (left-aligned, i.e.
// the accumulated high bits stay in place) and flushes it to the buffer. It
// must be called exactly once, after the last field of a container.
func (w *Writer) Complete() error {
	if err := w.w.Close(); err != nil {
		return errors.Wrap(err, "bitstream: complete")
	}
	return nil
}

// ByteCount returns the number of bytes written so far, rounded up to
// include a flushed partial byte once Complete has been called.
func (w *Writer) ByteCount() int {
	return w.bb.n
}
