package satellite

import (
	"testing"

	"github.com/kylelemons/godebug/diff"

	"github.com/goblimey/go-ntrip-analyser/rtcm/testdata"
	"github.com/goblimey/go-ntrip-analyser/rtcm/utils"
)

// TestGetWidths checks the field widths for each MSM type.
func TestGetWidths(t *testing.T) {
	var testData = []struct {
		msmType int
		want    Widths
	}{
		{0, Widths{0, 0, 0, 0}},
		{1, Widths{0, 0, 10, 0}},
		{2, Widths{0, 0, 10, 0}},
		{3, Widths{0, 0, 10, 0}},
		{4, Widths{8, 0, 10, 0}},
		{5, Widths{8, 4, 10, 14}},
		{6, Widths{8, 0, 10, 0}},
		{7, Widths{8, 4, 10, 14}},
		{8, Widths{0, 0, 0, 0}},
	}
	for _, td := range testData {
		got := GetWidths(td.msmType)
		if got != td.want {
			t.Errorf("MSM%d: want %v got %v", td.msmType, td.want, got)
		}
	}
}

// TestGetSatelliteCellsMSM7 checks that the lists are read one after the
// other and gathered into cells.
func TestGetSatelliteCellsMSM7(t *testing.T) {
	bitStream := testdata.NewBitBuilder().
		// whole millis
		Unsigned(81, 8).Unsigned(InvalidRange, 8).
		// extended info
		Unsigned(1, 4).Unsigned(2, 4).
		// fractional millis
		Unsigned(435, 10).Unsigned(1023, 10).
		// phase range rate
		Signed(-501, 14).Signed(InvalidPhaseRangeRate, 14).
		Bytes()

	r := utils.NewBitReader(bitStream)
	got := GetSatelliteCells(r, 7, []uint{4, 9})

	if len(got) != 2 {
		t.Fatalf("want 2 cells got %d", len(got))
	}

	const want = " 4 {81, 1, 435, -501}\n 9 {invalid, 2, 1023, invalid}\n"
	gotDisplay := got[0].String() + "\n" + got[1].String() + "\n"
	if want != gotDisplay {
		t.Error(diff.Diff(want, gotDisplay))
	}
	if r.Position() != 72 {
		t.Errorf("want position 72 got %d", r.Position())
	}
}

// TestGetSatelliteCellsMSM1 checks that absent fields are nil for every
// satellite.
func TestGetSatelliteCellsMSM1(t *testing.T) {
	bitStream := testdata.NewBitBuilder().Unsigned(5, 10).Unsigned(6, 10).Bytes()

	got := GetSatelliteCells(utils.NewBitReader(bitStream), 1, []uint{1, 2})

	for i, cell := range got {
		if cell.RangeWholeMillis != nil || cell.ExtendedInfo != nil || cell.PhaseRangeRate != nil {
			t.Errorf("cell %d: want absent fields to be nil: %s", i, cell.String())
		}
		if cell.RangeFractionalMillis == nil {
			t.Fatalf("cell %d: want range modulo", i)
		}
	}
	if *got[0].RangeFractionalMillis != 5 || *got[1].RangeFractionalMillis != 6 {
		t.Errorf("want 5 and 6 got %s", got[0].String()+got[1].String())
	}
}

// TestGetSatelliteCellsShort checks that a message which runs out part way
// through a list gives nil values and doesn't fail.
func TestGetSatelliteCellsShort(t *testing.T) {
	// Three MSM4 satellites need 3*8 bits of whole millis then 3*10 bits of
	// fractional millis.  Supply the whole millis and one fraction.
	bitStream := testdata.NewBitBuilder().
		Unsigned(1, 8).Unsigned(2, 8).Unsigned(3, 8).
		Unsigned(100, 10).
		Bytes()

	got := GetSatelliteCells(utils.NewBitReader(bitStream), 4, []uint{1, 2, 3})

	const want = " 1 {1, -, 100, -}\n 2 {2, -, -, -}\n 3 {3, -, -, -}\n"
	gotDisplay := ""
	for i := range got {
		gotDisplay += got[i].String() + "\n"
	}
	if want != gotDisplay {
		t.Error(diff.Diff(want, gotDisplay))
	}
}
