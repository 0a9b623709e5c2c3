/*
DESCRIPTION
  fpgen is a thin demonstration driver for the fingerprint core: it
  synthesizes progressive luma frames and stereo PCM, pushes them through a
  fingerprint.Context once per tick, and hex-dumps each emitted container.

LICENSE
  Copyright (C) 2026 the videofingerprint project authors. All Rights
  Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the videofingerprint project authors.
*/

// Package main is the fpgen demonstration driver.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/ausocean/utils/logging"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/videofingerprint/smpte2064/audio"
	"github.com/videofingerprint/smpte2064/fingerprint"
)

// Logging related constants, in the style of cmd/looper.
const (
	logPath      = "fpgen.log"
	logMaxSize   = 50 // MB
	logMaxBackup = 5
	logMaxAge    = 7 // days
	logVerbosity = logging.Debug
	logSuppress  = true
)

func main() {
	widthPtr := flag.Int("width", 1280, "Luma frame width.")
	heightPtr := flag.Int("height", 720, "Luma frame height.")
	ratePtr := flag.Float64("rate", 59.94, "Nominal video frame rate.")
	ticksPtr := flag.Int("ticks", 10, "Number of frame ticks to generate.")
	flag.Parse()

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	l := logging.New(logVerbosity, io.MultiWriter(fileLog, os.Stderr), logSuppress)

	width, height, rate, ticks := *widthPtr, *heightPtr, *ratePtr, *ticksPtr

	ctx, err := fingerprint.Alloc(fingerprint.Config{
		Colorspace:     "yuv420p",
		Progressive:    true,
		Width:          width,
		Height:         height,
		Stride:         width,
		BitDepth:       8,
		VideoFrameRate: rate,
		LogWriter:      io.MultiWriter(fileLog, os.Stderr),
		LogSuppress:    logSuppress,
		Logger:         l,
	})
	if err != nil {
		l.Fatal("could not allocate fingerprint context", "error", err)
	}
	defer ctx.Free()

	sampleCount := int(48000 / rate)
	buf := make([]byte, 512)

	for tick := 0; tick < ticks; tick++ {
		luma := syntheticLuma(width, height, tick)
		if err := ctx.VideoPush(luma); err != nil {
			l.Error("video push failed", "tick", tick, "error", err)
			continue
		}

		left, right := syntheticStereo(sampleCount, tick)
		if err := ctx.AudioPush(audio.StereoS16P, rate, left, right); err != nil {
			l.Error("audio push failed", "tick", tick, "error", err)
			continue
		}

		used, err := ctx.Pack(buf)
		if err != nil {
			l.Debug("pack not yet available", "tick", tick, "error", err)
			continue
		}
		fmt.Println(hex.EncodeToString(buf[:used]))
	}
}

// syntheticLuma produces a frame of 8-bit planar luma that drifts slightly
// from tick to tick so the video pipeline reports nonzero motion.
func syntheticLuma(width, height, tick int) []byte {
	luma := make([]byte, width*height)
	base := byte(64 + (tick%4)*32)
	for i := range luma {
		luma[i] = base
	}
	return luma
}

// syntheticStereo produces a short sine-wave burst in both channels,
// loud enough to exercise the envelope/local-mean comparator.
func syntheticStereo(n, tick int) (left, right []int16) {
	left = make([]int16, n)
	right = make([]int16, n)
	freq := 220.0 * (1 + float64(tick%3))
	for i := 0; i < n; i++ {
		v := int16(20000 * math.Sin(2*math.Pi*freq*float64(i)/48000))
		left[i] = v
		right[i] = v
	}
	return left, right
}
