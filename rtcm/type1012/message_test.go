package type1012

import (
	"testing"

	"github.com/kylelemons/godebug/diff"

	"github.com/goblimey/go-ntrip-analyser/rtcm/testdata"
)

// payload returns a type 1012 message declaring satelliteCount satellites
// and containing blocks for the given IDs.
func payload(satelliteCount uint64, ids ...uint64) []byte {
	b := testdata.NewBitBuilder().
		Unsigned(1012, 12).
		Unsigned(9, 12).
		Unsigned(86400000-1, 27).
		Bool(false).
		Unsigned(satelliteCount, 5).
		Bool(true).
		Unsigned(5, 3)
	for _, id := range ids {
		b.Unsigned(id, 6).
			Unsigned(1, 1).
			Signed(-7, 5).
			Unsigned(23456789, 25).
			Signed(1234, 20).
			Unsigned(127, 7).
			Unsigned(70, 7).
			Unsigned(200, 8).
			Unsigned(3, 2).
			Signed(8191, 14).
			Signed(-524288, 20).
			Unsigned(1, 7).
			Unsigned(150, 8)
	}
	return b.Bytes()
}

func TestGetMessage(t *testing.T) {
	// 61 + 130 = 191 bits, padded to 192.
	const want = `stationID 9, epoch time 86399999, asynchronous, smoothing true, smoothing interval 5
1 satellites
Sat ID Channel L1 {code, pseudorange, phase-pseudorange, lock, modulus, CNR} L2 {code, pseudorange diff, phase-pseudorange, lock, CNR}
24  -7 L1 {1, 23456789, 1234, 127, 70, 200} L2 {3, 8191, -524288, 1, 150}
1 bits remaining
`
	got, err := GetMessage(payload(1, 24))
	if err != nil {
		t.Fatal(err)
	}
	if got.Type() != 1012 {
		t.Errorf("want 1012 got %d", got.Type())
	}
	if want != got.String() {
		t.Error(diff.Diff(want, got.String()))
	}
}

// TestTruncated checks that a satellite count larger than the message
// holds gives truncated rows, each with the bits remaining.
func TestTruncated(t *testing.T) {
	got, err := GetMessage(payload(3, 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Satellites) != 3 {
		t.Fatalf("want 3 satellites got %d", len(got.Satellites))
	}
	if got.Satellites[0].Truncated {
		t.Error("satellite 0 should be complete")
	}
	for i := 1; i < 3; i++ {
		s := got.Satellites[i]
		if !s.Truncated || s.Index != i || s.BitsRemaining != 1 {
			t.Errorf("want index %d truncated with 1 bit got %s", i, s.String())
		}
	}
}

func TestShortHeader(t *testing.T) {
	const want = "overrun - expected 61 bits in a message type 1012 header, got 48"
	_, err := GetMessage(payload(0)[:6])
	if err == nil {
		t.Fatal("expected an error")
	}
	if err.Error() != want {
		t.Errorf("want %s got %s", want, err.Error())
	}
}
