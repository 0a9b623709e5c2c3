package fingerprint

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ausocean/utils/logging"

	"github.com/videofingerprint/smpte2064/audio"
)

func validConfig() Config {
	return Config{
		Colorspace:  "yuv420p",
		Progressive: true,
		Width:       1280,
		Height:      720,
		Stride:      1280,
		BitDepth:    8,
	}
}

func TestAllocRejectsInterlaced(t *testing.T) {
	cfg := validConfig()
	cfg.Progressive = false
	if _, err := Alloc(cfg); err == nil {
		t.Fatal("expected error for interlaced config")
	}
}

func TestAllocRejectsBadBitDepth(t *testing.T) {
	cfg := validConfig()
	cfg.BitDepth = 12
	if _, err := Alloc(cfg); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestAllocRejectsUnknownGeometry(t *testing.T) {
	cfg := validConfig()
	cfg.Width, cfg.Height = 640, 480
	if _, err := Alloc(cfg); !errors.Is(err, ErrFormatUnsupported) {
		t.Fatalf("expected ErrFormatUnsupported, got %v", err)
	}
}

func constLuma(v byte) []byte {
	b := make([]byte, 1280*720)
	for i := range b {
		b[i] = v
	}
	return b
}

func TestPackRefusesBeforeThirdFrame(t *testing.T) {
	ctx, err := Alloc(validConfig())
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 256)

	for i := 0; i < 2; i++ {
		if err := ctx.VideoPush(constLuma(128)); err != nil {
			t.Fatal(err)
		}
		if _, err := ctx.Pack(buf); !errors.Is(err, ErrNoData) {
			t.Fatalf("push %d: expected ErrNoData, got %v", i, err)
		}
	}

	if err := ctx.VideoPush(constLuma(128)); err != nil {
		t.Fatal(err)
	}
	if _, err := ctx.Pack(buf); err != nil {
		t.Fatalf("expected successful pack on third frame, got %v", err)
	}
}

func TestSequenceCounterIncrementsAndWraps(t *testing.T) {
	ctx, err := Alloc(validConfig())
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 256)
	for i := 0; i < 3; i++ {
		if err := ctx.VideoPush(constLuma(128)); err != nil {
			t.Fatal(err)
		}
	}

	ctx.sequenceCounter = 255
	if _, err := ctx.Pack(buf); err != nil {
		t.Fatal(err)
	}
	if ctx.sequenceCounter != 0 {
		t.Errorf("sequenceCounter = %d, want 0 (wrapped)", ctx.sequenceCounter)
	}
}

func TestFreeClosesContext(t *testing.T) {
	ctx, err := Alloc(validConfig())
	if err != nil {
		t.Fatal(err)
	}
	ctx.Free()

	if err := ctx.VideoPush(constLuma(128)); !errors.Is(err, ErrClosed) {
		t.Errorf("VideoPush after Free: got %v, want ErrClosed", err)
	}
	if _, err := ctx.Pack(make([]byte, 256)); !errors.Is(err, ErrClosed) {
		t.Errorf("Pack after Free: got %v, want ErrClosed", err)
	}
}

func TestAudioPushResolvesT3AndPictureRate(t *testing.T) {
	ctx, err := Alloc(validConfig())
	if err != nil {
		t.Fatal(err)
	}
	left := make([]int16, 200)
	right := make([]int16, 200)
	if err := ctx.AudioPush(audio.StereoS16P, 59.94, left, right); err != nil {
		t.Fatal(err)
	}
	if ctx.t3 == nil || ctx.t3.DecimatorFactor != 52 {
		t.Fatalf("expected T3 row with DecimatorFactor 52, got %+v", ctx.t3)
	}
	if ctx.pictureRateCode != 0x7 {
		t.Errorf("pictureRateCode = 0x%x, want 0x7", ctx.pictureRateCode)
	}
}

func TestAudioPushRejectsUnknownRate(t *testing.T) {
	ctx, err := Alloc(validConfig())
	if err != nil {
		t.Fatal(err)
	}
	left := make([]int16, 200)
	right := make([]int16, 200)
	if err := ctx.AudioPush(audio.StereoS16P, 15, left, right); !errors.Is(err, ErrFormatUnsupported) {
		t.Fatalf("expected ErrFormatUnsupported, got %v", err)
	}
}

// TestDiagnosticsMotionMean checks that Diagnostics().MotionMean equals the
// arithmetic mean of the observed per-push motion ratios, computed
// independently of gonum/stat inside the test.
func TestDiagnosticsMotionMean(t *testing.T) {
	ctx, err := Alloc(validConfig())
	if err != nil {
		t.Fatal(err)
	}

	values := []byte{0, 0, 255, 0, 255, 255}
	var observed []float64
	for _, v := range values {
		if err := ctx.VideoPush(constLuma(v)); err != nil {
			t.Fatal(err)
		}
		observed = append(observed, ctx.video.Motion())
	}

	var sum float64
	for _, v := range observed {
		sum += v
	}
	wantMean := sum / float64(len(observed))

	got := ctx.Diagnostics().MotionMean
	if got != wantMean {
		t.Errorf("Diagnostics().MotionMean = %v, want %v", got, wantMean)
	}
}

// TestSetVerbosePreservesLogWriter checks that changing verbosity keeps
// logging to the same writer instead of rerouting output to io.Discard.
func TestSetVerbosePreservesLogWriter(t *testing.T) {
	var buf bytes.Buffer
	cfg := validConfig()
	cfg.LogWriter = &buf
	cfg.Logger = nil

	ctx, err := Alloc(cfg)
	if err != nil {
		t.Fatal(err)
	}

	ctx.SetVerbose(logging.Info)
	ctx.log.Info("marker after SetVerbose")

	if !bytes.Contains(buf.Bytes(), []byte("marker after SetVerbose")) {
		t.Errorf("expected log output to reach the configured writer after SetVerbose, got %q", buf.String())
	}
}

func TestDiagnosticsEmptyBeforeAnyPush(t *testing.T) {
	ctx, err := Alloc(validConfig())
	if err != nil {
		t.Fatal(err)
	}
	d := ctx.Diagnostics()
	if d.MotionMean != 0 || d.MotionVariance != 0 {
		t.Errorf("expected zero-value diagnostics before any push, got %+v", d)
	}
}
