package type1005

import (
	"errors"
	"testing"

	"github.com/kylelemons/godebug/diff"

	"github.com/goblimey/go-ntrip-analyser/rtcm/testdata"
	"github.com/goblimey/go-ntrip-analyser/rtcm/utils"
)

// payload returns a complete type 1005 message.
func payload(messageType int) []byte {
	return testdata.NewBitBuilder().
		Unsigned(uint64(messageType), 12).
		Unsigned(2, 12).
		Unsigned(3, 6).
		Bool(true).Bool(false).Bool(true).Bool(false).
		Signed(123456, 38).
		Bool(true).
		Unsigned(0, 1).
		Signed(-234567, 38).
		Unsigned(2, 2).
		Signed(345678, 38).
		Bytes()
}

func TestGetMessage(t *testing.T) {

	want := Message{
		MessageType:               1005,
		StationID:                 2,
		ITRFRealisationYear:       3,
		GPSIndicator:              true,
		GalileoIndicator:          true,
		AntennaRefX:               123456,
		SingleReceiverOscillator:  true,
		AntennaRefY:               -234567,
		QuarterCycleIndicator:     2,
		AntennaRefZ:               345678,
		ReferenceStationIndicator: false,
	}

	got, err := GetMessage(payload(1005))
	if err != nil {
		t.Fatal(err)
	}
	if want != *got {
		t.Errorf("want: %v\n got: %v\n", want, *got)
	}
	if got.Type() != 1005 {
		t.Errorf("want 1005 got %d", got.Type())
	}
}

func TestString(t *testing.T) {

	const want = `stationID 2, ITRF realisation year 3,
GPS true, GLONASS false, Galileo true, reference station false,
single receiver oscillator true, quarter cycle indicator 10,
x 123456, y -234567, z 345678,
ECEF coords in metres (12.3456, -23.4567, 34.5678)
`
	message, err := GetMessage(payload(1005))
	if err != nil {
		t.Fatal(err)
	}

	got := message.String()
	if want != got {
		t.Error(diff.Diff(want, got))
	}
}

// TestErrors checks a short message, the wrong message type and an empty
// message.
func TestErrors(t *testing.T) {
	const wantShort = "overrun - expected 152 bits in a message type 1005, got 80"
	partial, err := GetMessage(payload(1005)[:10])
	if err == nil {
		t.Fatal("expected an error")
	}
	if err.Error() != wantShort {
		t.Errorf("want %s got %s", wantShort, err.Error())
	}
	// The fields that were there are returned.
	if partial == nil {
		t.Fatal("expected a partial message")
	}
	if partial.StationID != 2 || partial.ITRFRealisationYear != 3 {
		t.Errorf("want station 2 year 3 got %d %d", partial.StationID, partial.ITRFRealisationYear)
	}

	const wantType = "expected message type 1005 got 1006"
	message, err := GetMessage(payload(1006))
	if err == nil {
		t.Fatal("expected an error")
	}
	if err.Error() != wantType {
		t.Errorf("want %s got %s", wantType, err.Error())
	}
	if message != nil {
		t.Error("expected the message to be nil")
	}

	_, err = GetMessage(nil)
	if !errors.Is(err, utils.ErrOutOfRange) {
		t.Errorf("want ErrOutOfRange got %v", err)
	}
}
