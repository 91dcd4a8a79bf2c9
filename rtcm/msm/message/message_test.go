package message

import (
	"encoding/json"
	"testing"

	"github.com/kylelemons/godebug/diff"

	"github.com/goblimey/go-ntrip-analyser/rtcm/testdata"
	"github.com/goblimey/go-ntrip-analyser/rtcm/utils"
)

// Satellite 3 is bit 61 of the satellite mask, signal 2 is bit 30 of the
// signal mask.
const satellite3 = uint64(1) << 61
const signal2 = uint32(1) << 30

// TestOneCellEachType checks every MSM type with one satellite and one
// signal:  the masks give a single active cell and the bits consumed match
// the field widths of the type.
func TestOneCellEachType(t *testing.T) {
	var testData = []struct {
		messageType  int
		satelliteLen uint
		signalLen    uint
	}{
		{1071, 10, 15},
		{1082, 10, 22 + 4 + 1},
		{1093, 10, 15 + 22 + 4 + 1},
		{1074, 8 + 10, 15 + 22 + 4 + 1 + 6},
		{1125, 8 + 4 + 10 + 14, 15 + 22 + 4 + 1 + 6 + 15},
		{1116, 8 + 10, 20 + 24 + 10 + 1 + 10},
		{1137, 8 + 4 + 10 + 14, 20 + 24 + 10 + 1 + 10 + 15},
	}
	for _, td := range testData {
		b := testdata.NewBitBuilder().MSMHeader(td.messageType, satellite3, signal2, true)
		headerLen := b.Len()
		// Fill the satellite and signal data with ones.
		for i := uint(0); i < td.satelliteLen+td.signalLen; i++ {
			b.Bool(true)
		}
		totalLen := b.Len()
		payload := b.Bytes()

		got, err := GetMessage(payload)
		if err != nil {
			t.Errorf("%d: %v", td.messageType, err)
			continue
		}

		if got.Type() != td.messageType {
			t.Errorf("%d: got type %d", td.messageType, got.Type())
		}
		if !utils.SlicesEqual([]uint{3}, got.Header.Satellites) {
			t.Errorf("%d: want satellites [3] got %v", td.messageType, got.Header.Satellites)
		}
		if !utils.SlicesEqual([]uint{2}, got.Header.Signals) {
			t.Errorf("%d: want signals [2] got %v", td.messageType, got.Header.Signals)
		}
		if len(got.Signals) != 1 {
			t.Errorf("%d: want 1 signal cell got %d", td.messageType, len(got.Signals))
			continue
		}
		if got.Signals[0].SatelliteID != 3 || got.Signals[0].SignalID != 2 {
			t.Errorf("%d: want cell (3,2) got (%d,%d)", td.messageType,
				got.Signals[0].SatelliteID, got.Signals[0].SignalID)
		}

		wantRemaining := uint(len(payload)*8) - totalLen
		if got.BitsRemaining != wantRemaining {
			t.Errorf("%d: header %d bits: want %d bits remaining got %d",
				td.messageType, headerLen, wantRemaining, got.BitsRemaining)
		}
	}
}

// TestMSM4 checks the values decoded from an MSM4 with two satellites and
// two signals, three cells active.
func TestMSM4(t *testing.T) {
	// Satellites 1 and 2, signals 1 and 2, cell mask 11 10.
	const satelliteMask = uint64(3) << 62
	const signalMask = uint32(3) << 30

	payload := testdata.NewBitBuilder().
		MSMHeader(1074, satelliteMask, signalMask, true, true, true, false).
		// whole millis
		Unsigned(70, 8).Unsigned(80, 8).
		// fractional millis
		Unsigned(100, 10).Unsigned(200, 10).
		// range delta
		Signed(-1, 15).Signed(2, 15).Signed(-3, 15).
		// phase range delta
		Signed(4, 22).Signed(-5, 22).Signed(6, 22).
		// lock time
		Unsigned(7, 4).Unsigned(8, 4).Unsigned(9, 4).
		// half cycle
		Bool(true).Bool(false).Bool(true).
		// CNR
		Unsigned(40, 6).Unsigned(41, 6).Unsigned(42, 6).
		Bytes()

	got, err := GetMessage(payload)
	if err != nil {
		t.Fatal(err)
	}

	const want = `2 Satellites
Satellite ID {range ms, extended info, range mod 1ms, phase range rate}
 1 {70, -, 100, -}
 2 {80, -, 200, -}
3 Signals
Sat ID Sig ID {range delta, phase range delta, lock time ind, half cycle ambiguity, Carrier Noise Ratio, phase range rate delta}
 1  1 {-1, 4, 7, true, 40, -}
 1  2 {2, -5, 8, false, 41, -}
 2  1 {-3, 6, 9, true, 42, -}
`
	gotDisplay := got.DisplaySatelliteCells() + got.DisplaySignalCells()
	if want != gotDisplay {
		t.Error(diff.Diff(want, gotDisplay))
	}
}

// TestTruncated checks that a message that stops part way through the
// signal data still decodes.
func TestTruncated(t *testing.T) {
	// Satellites 1-4, signal 1, all cells active.
	const satelliteMask = uint64(0xf) << 60
	const signalMask = uint32(1) << 31

	payload := testdata.NewBitBuilder().
		MSMHeader(1077, satelliteMask, signalMask, true, true, true, true).
		Unsigned(1, 8).Unsigned(2, 8).Unsigned(3, 8).Unsigned(4, 8).
		Bytes()

	got, err := GetMessage(payload)
	if err != nil {
		t.Fatal(err)
	}

	if len(got.Satellites) != 4 {
		t.Fatalf("want 4 satellites got %d", len(got.Satellites))
	}
	if got.Satellites[3].RangeWholeMillis == nil || *got.Satellites[3].RangeWholeMillis != 4 {
		t.Errorf("want 4 got %s", utils.FormatUint(got.Satellites[3].RangeWholeMillis))
	}
	// Only 3 bits of padding are left after the whole millis.
	for i := range got.Satellites {
		if got.Satellites[i].ExtendedInfo != nil {
			t.Errorf("satellite %d: want nil extended info", i)
		}
	}
	if len(got.Signals) != 4 {
		t.Fatalf("want 4 signals got %d", len(got.Signals))
	}
	for i := range got.Signals {
		if got.Signals[i].RangeDelta != nil {
			t.Errorf("signal %d: want nil range delta", i)
		}
	}
}

// TestLargeCellMaskPartial checks that an MSM4 whose masks give more cells
// than the data can hold is decoded as far as the bits go.
func TestLargeCellMaskPartial(t *testing.T) {
	// 9 satellites and 8 signals, all 72 cells active.
	const satelliteMask = uint64(0x1ff) << 55
	const signalMask = uint32(0xff) << 24

	b := testdata.NewBitBuilder().MSMHeader(1074, satelliteMask, signalMask)
	for i := 0; i < 72; i++ {
		b.Bool(true)
	}
	// 200 bits of data, padded to 207.  The satellite data takes 9 x (8 +
	// 10) = 162 bits, leaving 45 for three 15-bit fine pseudoranges.
	for i := 0; i < 200; i++ {
		b.Bool(true)
	}

	got, err := GetMessage(b.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("want a partial message got nil")
	}

	if len(got.Satellites) != 9 {
		t.Fatalf("want 9 satellites got %d", len(got.Satellites))
	}
	for i := range got.Satellites {
		if got.Satellites[i].RangeWholeMillis == nil || got.Satellites[i].RangeFractionalMillis == nil {
			t.Errorf("satellite %d: want range values", i)
		}
	}

	if len(got.Signals) != 72 {
		t.Fatalf("want 72 signals got %d", len(got.Signals))
	}
	for i := range got.Signals {
		present := got.Signals[i].RangeDelta != nil
		if present != (i < 3) {
			t.Errorf("signal %d: want range delta present %v got %v", i, i < 3, present)
		}
	}

	if got.BitsRemaining != 0 {
		t.Errorf("want 0 bits remaining got %d", got.BitsRemaining)
	}
}

// TestHeaderError checks that a message too short for its header fails.
func TestHeaderError(t *testing.T) {
	_, err := GetMessage([]byte{0x43, 0x20})
	if err == nil {
		t.Fatal("expected an error")
	}
}

// TestJSON checks that absent values come out as JSON nulls.
func TestJSON(t *testing.T) {
	payload := testdata.NewBitBuilder().
		MSMHeader(1071, satellite3, signal2, true).
		Unsigned(9, 10).
		Signed(-2, 15).
		Bytes()

	got, err := GetMessage(payload)
	if err != nil {
		t.Fatal(err)
	}

	j, err := json.Marshal(got.Signals[0])
	if err != nil {
		t.Fatal(err)
	}
	const want = `{"satellite_id":3,"signal_id":2,"range_delta":-2,"phase_range_delta":null,"lock_time_indicator":null,"half_cycle_ambiguity":null,"cnr":null,"phase_range_rate_delta":null}`
	if want != string(j) {
		t.Error(diff.Diff(want, string(j)))
	}
}
