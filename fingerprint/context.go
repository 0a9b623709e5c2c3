/*
NAME
  context.go

DESCRIPTION
  context.go implements the top-level fingerprint Context, the per-stream
  lifecycle object that owns the video pipeline, one audio pipeline per
  resident audio type, and drives the container packer.

LICENSE
  Copyright (C) 2026 the videofingerprint project authors. All Rights
  Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the videofingerprint project authors.
*/

// Package fingerprint implements the per-stream content fingerprint Context:
// allocation, video and audio pushes, and container packing.
package fingerprint

import (
	"fmt"
	"io"

	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"

	"github.com/videofingerprint/smpte2064/audio"
	"github.com/videofingerprint/smpte2064/container"
	"github.com/videofingerprint/smpte2064/format"
	"github.com/videofingerprint/smpte2064/video"
)

// Error taxonomy (spec.md Section 7).
var (
	ErrInvalidArgument   = errors.New("fingerprint: invalid argument")
	ErrOutOfMemory       = errors.New("fingerprint: out of memory")
	ErrNoData            = errors.New("fingerprint: no data yet")
	ErrFormatUnsupported = errors.New("fingerprint: format unsupported")
	ErrClosed            = errors.New("fingerprint: context is closed")
)

// minFramesBeforePack is the number of video pushes required before Pack
// will emit a container (spec.md Section 4.6: "refuses with no data until
// the third frame has been processed").
const minFramesBeforePack = 3

// motionHistoryCap bounds the Diagnostics rolling history (spec.md Section
// 3.1: "last 64 values").
const motionHistoryCap = 64

// Config configures Alloc. It mirrors klsmpte2064_context_alloc's flat
// argument list (spec.md Section 4.7); there is no separate config file
// format inside the core.
type Config struct {
	Colorspace     string // Descriptive only, e.g. "yuv422p10" or "yuv420p"; used for logging.
	Progressive    bool
	Width          int
	Height         int
	Stride         int
	BitDepth       int     // Must be 8 or 10.
	VideoFrameRate float64 // Resolves Picture_Rate at Alloc; if unset or unknown, the first AudioPush rate is used.

	// LogWriter receives diagnostic output; a nil LogWriter is replaced with
	// io.Discard so the Context never dereferences a nil interface.
	LogWriter   io.Writer
	LogSuppress bool
	Logger      logging.Logger // If set, used as-is until SetVerbose, which replaces it with a logger on LogWriter/LogSuppress.
}

// Context is the per-stream fingerprint state machine. It is not safe for
// concurrent use (spec.md Section 5): callers needing parallel streams
// allocate one Context per stream.
type Context struct {
	cfg Config
	log logging.Logger

	// logWriter and logSuppress are retained from Alloc so SetVerbose can
	// rebuild the logger at a new level without losing the original
	// destination (e.g. a lumberjack file sink).
	logWriter   io.Writer
	logSuppress bool

	video *video.Pipeline

	audioPipelines  map[audio.Type]*audio.Pipeline
	audioResidents  map[audio.Type]container.AudioFingerprint
	t3              *format.T3
	pictureRateCode uint8

	sequenceCounter uint8
	closed          bool

	motionHistory       []float64
	envelopeMeanHistory map[audio.Type][]float64
}

// Alloc validates cfg, resolves the T1/T2 format rows, and returns a ready
// Context. It fails with ErrInvalidArgument on an interlaced stream, invalid
// geometry or bit depth, and with ErrFormatUnsupported when no T1/T2 row matches the
// requested geometry.
func Alloc(cfg Config) (*Context, error) {
	if !cfg.Progressive {
		return nil, errors.Wrap(ErrInvalidArgument, "interlaced streams are not supported")
	}
	if cfg.BitDepth != 8 && cfg.BitDepth != 10 {
		return nil, errors.Wrapf(ErrInvalidArgument, "bit depth %d, want 8 or 10", cfg.BitDepth)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Stride < cfg.Width {
		return nil, errors.Wrap(ErrInvalidArgument, "invalid geometry")
	}

	logWriter := cfg.LogWriter
	if logWriter == nil {
		logWriter = io.Discard
	}
	log := cfg.Logger
	if log == nil {
		log = logging.New(logging.Error, logWriter, cfg.LogSuppress)
	}

	t1, ok := format.LookupT1(cfg.Progressive, cfg.Width, cfg.Height)
	if !ok {
		return nil, errors.Wrapf(ErrFormatUnsupported, "no T1 row for %dx%d progressive=%v", cfg.Width, cfg.Height, cfg.Progressive)
	}
	t2, ok := format.LookupT2(cfg.Progressive, cfg.Width, cfg.Height)
	if !ok {
		return nil, errors.Wrapf(ErrFormatUnsupported, "no T2 row for %dx%d progressive=%v", cfg.Width, cfg.Height, cfg.Progressive)
	}

	vp, err := newVideoPipeline(t1, t2, cfg)
	if err != nil {
		return nil, errors.Wrap(ErrOutOfMemory, err.Error())
	}

	var pictureRateCode uint8
	if cfg.VideoFrameRate > 0 {
		pictureRateCode, _ = format.PictureRateCode(cfg.VideoFrameRate) // Unknown rates fall back to 0x0 below.
	}

	c := &Context{
		cfg:                 cfg,
		log:                 log,
		logWriter:           logWriter,
		logSuppress:         cfg.LogSuppress,
		video:               vp,
		audioPipelines:      make(map[audio.Type]*audio.Pipeline),
		audioResidents:      make(map[audio.Type]container.AudioFingerprint),
		pictureRateCode:     pictureRateCode,
		envelopeMeanHistory: make(map[audio.Type][]float64),
	}
	log.Debug("fingerprint context allocated", "width", cfg.Width, "height", cfg.Height, "colorspace", cfg.Colorspace)
	return c, nil
}

// newVideoPipeline recovers from the one theoretically possible allocation
// panic (pathological width*height overflow on 32-bit platforms) and turns
// it into a plain error, so Alloc never exits the process the way the
// reference context_alloc did on malloc failure.
func newVideoPipeline(t1 *format.T1, t2 *format.T2, cfg Config) (vp *video.Pipeline, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic allocating video pipeline: %v", r)
		}
	}()
	return video.New(t1, t2, cfg.Width, cfg.Height, cfg.Stride)
}

// SetVerbose reassigns the Context's logging level (spec.md's
// context_set_verbose), preserving whatever writer and suppress setting
// Alloc originally resolved rather than rerouting future output to
// io.Discard.
func (c *Context) SetVerbose(level int8) {
	c.log = logging.New(level, c.logWriter, c.logSuppress)
}

// Free marks the Context closed so further pushes and packs return
// ErrClosed. Go's garbage collector reclaims the scratch slices; Free
// exists for API parity with the reference lifecycle and with this
// codebase's own Start/Stop-style device types.
func (c *Context) Free() {
	c.closed = true
}

// VideoPush runs one luma frame through the video pipeline, recording the
// resulting fingerprint and motion ratio for Pack and Diagnostics.
func (c *Context) VideoPush(luma []byte) error {
	if c.closed {
		return ErrClosed
	}
	if _, err := c.video.Push(luma); err != nil {
		return errors.Wrap(err, "fingerprint: video push")
	}
	c.recordMotion(c.video.Motion())
	return nil
}

// AudioPush runs one window of StereoS16P audio (left/right) through the audio
// pipeline for typ, resolving the stream's T3 decimator row (and, if not
// already set, the container Picture_Rate) from rate on first call.
func (c *Context) AudioPush(typ audio.Type, rate float64, left, right []int16) error {
	if c.closed {
		return ErrClosed
	}
	p, err := c.audioPipeline(typ, rate)
	if err != nil {
		return err
	}
	fp, err := p.PushStereoS16P(left, right)
	if err != nil {
		return errors.Wrap(err, "fingerprint: audio push")
	}
	c.recordAudioResult(typ, p, fp)
	return nil
}

// AudioPushDecklink runs one window of 32-bit interleaved Decklink
// audio (channels many channels per frame) through the audio pipeline for
// typ (StereoS32CH16Decklink or SMPTE312S32CH16Decklink).
func (c *Context) AudioPushDecklink(typ audio.Type, rate float64, interleaved []int32, channels int) error {
	if c.closed {
		return ErrClosed
	}
	p, err := c.audioPipeline(typ, rate)
	if err != nil {
		return err
	}
	fp, err := p.PushDecklink32(interleaved, channels)
	if err != nil {
		return errors.Wrap(err, "fingerprint: audio push")
	}
	c.recordAudioResult(typ, p, fp)
	return nil
}

// audioPipeline returns (creating if necessary) the Pipeline for typ,
// resolving the stream-wide T3 row on first use.
func (c *Context) audioPipeline(typ audio.Type, rate float64) (*audio.Pipeline, error) {
	if c.t3 == nil {
		t3, ok := format.LookupT3Rate(rate)
		if !ok {
			return nil, errors.Wrapf(ErrFormatUnsupported, "no T3 row for frame rate %v", rate)
		}
		c.t3 = t3
		if c.pictureRateCode == 0 {
			if code, ok := format.PictureRateCode(rate); ok {
				c.pictureRateCode = code
			}
		}
	}

	p, ok := c.audioPipelines[typ]
	if ok {
		return p, nil
	}
	p, err := audio.New(typ, c.t3)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidArgument, err.Error())
	}
	c.audioPipelines[typ] = p
	return p, nil
}

func (c *Context) recordAudioResult(typ audio.Type, p *audio.Pipeline, fp []byte) {
	c.audioResidents[typ] = container.AudioFingerprint{
		Type: typ,
		Bits: p.BitCount(),
		Data: append([]byte(nil), fp...), // Pack reads this later; never alias the pipeline's scratch.
	}
	hist := c.envelopeMeanHistory[typ]
	hist = append(hist, p.EnvelopeMean())
	if len(hist) > motionHistoryCap {
		hist = hist[len(hist)-motionHistoryCap:]
	}
	c.envelopeMeanHistory[typ] = hist
}

func (c *Context) recordMotion(ratio float64) {
	c.motionHistory = append(c.motionHistory, ratio)
	if len(c.motionHistory) > motionHistoryCap {
		c.motionHistory = c.motionHistory[len(c.motionHistory)-motionHistoryCap:]
	}
}

// Pack emits one fingerprint container into buf. It refuses with ErrNoData
// until the third video frame has been processed (spec.md Section 4.6). The
// packer emits whatever audio fingerprints are currently resident; a
// missing audio type is simply absent from the container.
func (c *Context) Pack(buf []byte) (int, error) {
	if c.closed {
		return 0, ErrClosed
	}
	if c.video.Calculated() < minFramesBeforePack {
		return 0, ErrNoData
	}

	f4, _, _ := c.video.Fingerprint()

	s := container.Snapshot{
		SequenceCounter:  c.sequenceCounter,
		PictureRateCode:  c.pictureRateCode,
		VideoFingerprint: f4,
	}
	for typ := audio.StereoS16P; typ < audio.TypeMax; typ++ {
		if fp, ok := c.audioResidents[typ]; ok {
			s.AudioFingerprints = append(s.AudioFingerprints, fp)
		}
	}

	used, err := container.Pack(s, buf, c.log)
	if err != nil {
		return 0, errors.Wrap(err, "fingerprint: pack")
	}
	c.sequenceCounter++ // Wraps naturally at uint8 overflow.
	return used, nil
}
