/*
NAME
  container.go

DESCRIPTION
  container.go implements the binary fingerprint container packer: a
  self-describing, checksummed byte container holding an ID sub-container,
  a video fingerprint sub-container and zero or more audio
  fingerprint sub-containers.

LICENSE
  Copyright (C) 2026 the videofingerprint project authors. All Rights
  Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the videofingerprint project authors.
*/

// Package container packs fingerprint.Context state into the SMPTE
// ST 2064-1 style binary container format.
package container

import (
	"io"

	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"

	"github.com/videofingerprint/smpte2064/audio"
	"github.com/videofingerprint/smpte2064/bitstream"
)

// MinBufferLen is the smallest buffer Pack accepts (spec.md Section 4.6).
const MinBufferLen = 256

// protocolVersion is the fixed FP_protocol_version field value.
const protocolVersion = 0

// Sub-container SCType codes.
const (
	scTypeID    = 0
	scTypeVideo = 1
	scTypeAudio = 2
)

// ErrBufferTooSmall is returned when buf is shorter than MinBufferLen.
var ErrBufferTooSmall = errors.New("container: buffer shorter than MinBufferLen")

// ErrTooManyAudioFingerprints is returned when more than audio.TypeMax-1
// fingerprints are supplied (AF_count is a 5-bit field but the type space is
// bounded by the audio package's enum).
var ErrTooManyAudioFingerprints = errors.New("container: too many audio fingerprints")

// AudioFingerprint is one resident audio fingerprint: its type (which
// determines the container's AudioMixType), the number of valid bits, and
// the packed bytes themselves (as returned by audio.Pipeline's
// PushStereoS16P or PushDecklink32).
type AudioFingerprint struct {
	Type audio.Type
	Bits int
	Data []byte
}

// Snapshot is the narrow, read-only view of fingerprint state that Pack
// consumes: just enough to emit one container, nothing about how it was
// computed. fingerprint.Context builds one of these per Pack call.
type Snapshot struct {
	SequenceCounter   uint8
	PictureRateCode   uint8 // SMPTE S253 code, or format.PictureRateUnknown.
	VideoFingerprint  uint8 // f4, the most recent video fingerprint.
	AudioFingerprints []AudioFingerprint
}

// Pack emits one fingerprint container into buf, returning the number of
// bytes used. log receives a warning if the emitted container's checksum
// verification fails; a nil log is replaced with one that discards output,
// matching the package's ambient logging convention. The container is still
// emitted even when the (unreachable in practice) checksum self-check fails.
func Pack(s Snapshot, buf []byte, log logging.Logger) (int, error) {
	if log == nil {
		log = logging.New(logging.Error, io.Discard, true)
	}
	if len(buf) < MinBufferLen {
		return 0, errors.Wrapf(ErrBufferTooSmall, "got %d bytes, need at least %d", len(buf), MinBufferLen)
	}
	if len(s.AudioFingerprints) >= int(audio.TypeMax) {
		return 0, errors.Wrapf(ErrTooManyAudioFingerprints, "got %d, max %d", len(s.AudioFingerprints), audio.TypeMax-1)
	}

	w := bitstream.New()
	w.Reset(buf)

	if err := writeHeader(w, s); err != nil {
		return 0, errors.Wrap(err, "container: header")
	}
	if err := writeIDSubcontainer(w); err != nil {
		return 0, errors.Wrap(err, "container: ID sub-container")
	}
	if err := writeVideoSubcontainer(w, s.VideoFingerprint); err != nil {
		return 0, errors.Wrap(err, "container: video sub-container")
	}
	if len(s.AudioFingerprints) > 0 {
		if err := writeAudioSubcontainer(w, s.AudioFingerprints); err != nil {
			return 0, errors.Wrap(err, "container: audio sub-container")
		}
	}

	if err := w.Complete(); err != nil {
		return 0, errors.Wrap(err, "container: complete")
	}

	bodyLen := w.ByteCount()
	total := bodyLen + 1 // + checksum byte.
	if total > len(buf) {
		return 0, errors.Wrap(ErrBufferTooSmall, "no room for checksum byte")
	}

	// Length is byte 2 exactly: FP_protocol_version(8) + Sequence_Counter(8)
	// end on a byte boundary, so the field can be patched directly rather
	// than re-emitted through the bit writer.
	buf[2] = byte(total)

	buf[bodyLen] = checksumByte(buf[:bodyLen])

	if sum := sumBytes(buf[:total]) % 256; sum != 0 {
		log.Warning("container: checksum verification failed, emitting anyway", "sum", sum)
	}

	return total, nil
}

func writeHeader(w *bitstream.Writer, s Snapshot) error {
	if err := w.WriteBits(protocolVersion, 8); err != nil {
		return err
	}
	if err := w.WriteBits(uint64(s.SequenceCounter), 8); err != nil {
		return err
	}
	if err := w.WriteBits(0, 8); err != nil { // Length placeholder, patched after Complete.
		return err
	}
	if err := w.WriteBits(uint64(s.PictureRateCode), 4); err != nil {
		return err
	}
	if err := w.WriteBits(1, 1); err != nil { // Reserved.
		return err
	}
	if err := w.WriteBits(1, 1); err != nil { // ID_present.
		return err
	}
	if err := w.WriteBits(1, 1); err != nil { // VFP_present.
		return err
	}
	afp := uint64(0)
	if len(s.AudioFingerprints) > 0 {
		afp = 1
	}
	return w.WriteBits(afp, 1)
}

func writeIDSubcontainer(w *bitstream.Writer) error {
	if err := w.WriteBits(1, 5); err != nil { // Reserved.
		return err
	}
	if err := w.WriteBits(scTypeID, 3); err != nil {
		return err
	}
	if err := w.WriteBits(1, 3); err != nil { // Reserved.
		return err
	}
	if err := w.WriteBits(2, 5); err != nil { // Length: 2 payload bytes ('K','L').
		return err
	}
	if err := w.WriteBits('K', 8); err != nil {
		return err
	}
	return w.WriteBits('L', 8)
}

func writeVideoSubcontainer(w *bitstream.Writer, f4 uint8) error {
	if err := w.WriteBits(1, 3); err != nil { // Reserved.
		return err
	}
	if err := w.WriteBits(1, 2); err != nil { // VF_Data_Count: progressive always emits one byte.
		return err
	}
	if err := w.WriteBits(scTypeVideo, 3); err != nil {
		return err
	}
	return w.WriteBits(uint64(f4), 8)
}

func writeAudioSubcontainer(w *bitstream.Writer, fps []AudioFingerprint) error {
	if err := w.WriteBits(uint64(len(fps)), 5); err != nil { // AF_count.
		return err
	}
	if err := w.WriteBits(scTypeAudio, 3); err != nil {
		return err
	}
	for i, fp := range fps {
		if err := w.WriteBits(uint64(i), 5); err != nil { // audio_fingerprint_id.
			return err
		}
		if err := w.WriteBits(uint64(fp.Type.MixCode()), 3); err != nil {
			return err
		}
		if err := w.WriteBits(uint64(len(fp.Data)), 5); err != nil { // AFDataCount.
			return err
		}
		if err := w.WriteBits(1, 3); err != nil { // Reserved.
			return err
		}
		for _, b := range fp.Data {
			if err := w.WriteBits(uint64(b), 8); err != nil {
				return err
			}
		}
	}
	return nil
}

func sumBytes(b []byte) int {
	sum := 0
	for _, v := range b {
		sum += int(v)
	}
	return sum
}

// checksumByte returns the value that, appended to b, makes the byte sum of
// b plus that value congruent to 0 mod 256.
func checksumByte(b []byte) byte {
	sum := sumBytes(b) % 256
	return byte((256 - sum) % 256)
}
