package utils

import (
	"testing"
)

// crc24qBitwise is the textbook shift-and-xor CRC-24Q, used to check that
// the table-driven library gives the same answer.
func crc24qBitwise(buf []byte) uint32 {
	const poly = 0x1864cfb
	var crc uint32
	for _, b := range buf {
		crc ^= uint32(b) << 16
		for i := 0; i < 8; i++ {
			crc <<= 1
			if crc&0x1000000 != 0 {
				crc ^= poly
			}
			crc &= 0xffffff
		}
	}
	return crc
}

// TestCRC24Q checks CRC24Q against the bitwise algorithm over various
// ranges of a buffer.
func TestCRC24Q(t *testing.T) {
	buf := []byte{
		0xd3, 0x00, 0x13, 0x3e, 0xd7, 0xd3, 0x02, 0x02, 0x98, 0x0e,
		0xde, 0xef, 0x34, 0xb4, 0xbd, 0x62, 0xac, 0x09, 0x41, 0x98,
		0x6f, 0x33,
	}

	var testData = []struct {
		offset int
		length int
	}{
		{0, len(buf)},
		{0, 1},
		{3, 10},
		{5, 0},
		{10, 12},
	}
	for _, td := range testData {
		want := crc24qBitwise(buf[td.offset : td.offset+td.length])
		got := CRC24Q(buf, td.offset, td.length)
		if got != want {
			t.Errorf("offset %d length %d: want 0x%06x got 0x%06x", td.offset, td.length, want, got)
		}
		if got > 0xffffff {
			t.Errorf("CRC 0x%x is wider than 24 bits", got)
		}
	}
}

// TestCRCOfEmptyRange checks the initial value.
func TestCRCOfEmptyRange(t *testing.T) {
	if got := CRC24Q([]byte{1, 2, 3}, 1, 0); got != 0 {
		t.Errorf("want 0 got 0x%x", got)
	}
}

// TestBuildFrame checks that a built frame carries its own CRC.
func TestBuildFrame(t *testing.T) {
	payload := []byte{0x3e, 0xd0, 0x01, 0x02}
	frame := BuildFrame(payload)

	if len(frame) != LeaderLengthBytes+len(payload)+CRCLengthBytes {
		t.Fatalf("want length %d got %d", LeaderLengthBytes+len(payload)+CRCLengthBytes, len(frame))
	}
	if frame[0] != StartOfMessageFrame || frame[1] != 0 || frame[2] != 4 {
		t.Errorf("bad leader % x", frame[:3])
	}

	want := CRC24Q(frame, 0, len(frame)-CRCLengthBytes)
	got := CRCFromTrailer(frame)
	if got != want {
		t.Errorf("want 0x%06x got 0x%06x", want, got)
	}
}
