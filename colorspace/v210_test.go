package colorspace

import (
	"encoding/binary"
	"testing"
)

// packWord builds a little-endian V210 32-bit word from three 10-bit values
// occupying bits [0:10), [10:20), [20:30).
func packWord(a, b, c uint32) []byte {
	v := (a & 0x3FF) | ((b & 0x3FF) << 10) | ((c & 0x3FF) << 20)
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return buf
}

func TestUnpackV210SingleGroup(t *testing.T) {
	// One row of 6 luma samples packed into 4 words, following the
	// (U,Y,V)(Y,U,Y)(V,Y,U)(Y,V,Y) ordering.
	var src []byte
	src = append(src, packWord(0x111, 0x2AA, 0x333)...) // U0 Y0 V0
	src = append(src, packWord(0x044, 0x055, 0x066)...) // Y1 U1 Y2
	src = append(src, packWord(0x077, 0x088, 0x099)...) // V1 Y3 U2
	src = append(src, packWord(0x0AA, 0x0BB, 0x0CC)...) // Y4 V2 Y5

	dst := make([]byte, 6)
	if err := UnpackV210(dst, 6, src, 16, 6, 1, nil); err != nil {
		t.Fatalf("UnpackV210: %v", err)
	}

	want := []byte{0xAA, 0x11, 0x19, 0x22, 0x2A, 0x33} // High 8 bits of each 10-bit Y.
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = 0x%02x, want 0x%02x", i, dst[i], want[i])
		}
	}
}

func TestUnpackV210Sparse(t *testing.T) {
	const width, height = 6, 4
	const srcStride = 16
	const dstStride = 6

	row := func(seed uint32) []byte {
		var r []byte
		r = append(r, packWord(seed, seed+1, seed+2)...)
		r = append(r, packWord(seed+3, seed+4, seed+5)...)
		r = append(r, packWord(seed+6, seed+7, seed+8)...)
		r = append(r, packWord(seed+9, seed+10, seed+11)...)
		return r
	}

	src := make([]byte, 0, srcStride*height)
	for r := 0; r < height; r++ {
		src = append(src, row(uint32(r*100))...)
	}

	dstFull := make([]byte, dstStride*height)
	if err := UnpackV210(dstFull, dstStride, src, srcStride, width, height, nil); err != nil {
		t.Fatalf("full unpack: %v", err)
	}

	dstSparse := make([]byte, dstStride*height)
	if err := UnpackV210(dstSparse, dstStride, src, srcStride, width, height, []int{1, 3}); err != nil {
		t.Fatalf("sparse unpack: %v", err)
	}

	for _, r := range []int{1, 3} {
		got := dstSparse[r*dstStride : (r+1)*dstStride]
		want := dstFull[r*dstStride : (r+1)*dstStride]
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("row %d: got[%d] = 0x%02x, want 0x%02x", r, i, got[i], want[i])
			}
		}
	}

	// Rows not requested must remain untouched (zero).
	for i := range dstSparse[0:dstStride] {
		if dstSparse[i] != 0 {
			t.Errorf("row 0 should be untouched, got dst[%d] = 0x%02x", i, dstSparse[i])
		}
	}
}

func TestUnpackV210RejectsShortBuffers(t *testing.T) {
	src := make([]byte, 4)
	dst := make([]byte, 6)
	if err := UnpackV210(dst, 6, src, 16, 6, 1, nil); err == nil {
		t.Fatal("expected error for undersized src buffer")
	}
}
