package container

import (
	"testing"

	"github.com/videofingerprint/smpte2064/audio"
)

func TestPackRejectsSmallBuffer(t *testing.T) {
	buf := make([]byte, MinBufferLen-1)
	if _, err := Pack(Snapshot{}, buf, nil); err == nil {
		t.Fatal("expected error for undersized buffer")
	}
}

func TestPackNoAudioStructure(t *testing.T) {
	buf := make([]byte, MinBufferLen)
	s := Snapshot{
		SequenceCounter:  5,
		PictureRateCode:  0x7,
		VideoFingerprint: 123,
	}

	used, err := Pack(s, buf, nil)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	want := []byte{
		0x00,       // FP_protocol_version
		0x05,       // Sequence_Counter
		byte(used), // Length
		0x7E,       // Picture_Rate(0x7) Reserved(1) ID_present(1) VFP_present(1) AFP_present(0)
		0x08,       // ID: Reserved(5)=1 SCType(3)=0
		0x22,       // ID: Reserved(3)=1 Length(5)=2
		'K',
		'L',
		0x29, // Video: Reserved(3)=1 VF_Data_Count(2)=1 SCType(3)=1
		123,  // video_fingerprint_data_f4
	}
	if used != len(want)+1 { // +1 for the checksum byte.
		t.Fatalf("used = %d, want %d", used, len(want)+1)
	}
	for i, b := range want {
		if buf[i] != b {
			t.Errorf("buf[%d] = 0x%02x, want 0x%02x", i, buf[i], b)
		}
	}

	sum := 0
	for _, b := range buf[:used] {
		sum += int(b)
	}
	if sum%256 != 0 {
		t.Errorf("checksum closure failed: sum mod 256 = %d", sum%256)
	}
}

func TestPackWithAudioFingerprints(t *testing.T) {
	buf := make([]byte, MinBufferLen)
	s := Snapshot{
		SequenceCounter:  1,
		PictureRateCode:  0x8,
		VideoFingerprint: 10,
		AudioFingerprints: []AudioFingerprint{
			{Type: audio.StereoS16P, Bits: 50, Data: make([]byte, 7)},
			{Type: audio.SMPTE312S32CH16Decklink, Bits: 52, Data: make([]byte, 7)},
		},
	}
	s.AudioFingerprints[0].Data[0] = 0xFF
	s.AudioFingerprints[1].Data[6] = 0x80

	used, err := Pack(s, buf, nil)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	if int(buf[2]) != used {
		t.Errorf("Length byte = %d, want %d", buf[2], used)
	}

	sum := 0
	for _, b := range buf[:used] {
		sum += int(b)
	}
	if sum%256 != 0 {
		t.Errorf("checksum closure failed: sum mod 256 = %d", sum%256)
	}

	// byte 3's low bit (AFP_present) must be set.
	if buf[3]&0x01 == 0 {
		t.Error("AFP_present bit not set despite resident audio fingerprints")
	}
}

func TestPackRejectsTooManyAudioFingerprints(t *testing.T) {
	buf := make([]byte, MinBufferLen)
	fps := make([]AudioFingerprint, audio.TypeMax)
	for i := range fps {
		fps[i] = AudioFingerprint{Type: audio.StereoS16P, Data: make([]byte, 7)}
	}
	s := Snapshot{AudioFingerprints: fps}
	if _, err := Pack(s, buf, nil); err == nil {
		t.Fatal("expected error for too many audio fingerprints")
	}
}

func TestPackLengthByteEqualsUsed(t *testing.T) {
	buf := make([]byte, MinBufferLen)
	used, err := Pack(Snapshot{SequenceCounter: 200}, buf, nil)
	if err != nil {
		t.Fatal(err)
	}
	if int(buf[2]) != used {
		t.Errorf("Length byte = %d, want %d (used)", buf[2], used)
	}
}
