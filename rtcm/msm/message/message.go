// The message package decodes Multiple Signal Messages (MSM).  The handler
// sends it types 1071-1077 (GPS), 1081-1087 (GLONASS), 1091-1097 (Galileo)
// and 1121-1127 (BeiDou).  The other constellation blocks have the same
// layout:  a header with satellite, signal and cell masks,
// then the satellite data, then the signal data.  The last digit of the
// message type (the MSM type, 1-7) decides which fields are present and how
// wide they are.
//
// Decoding is best effort.  Once the header has been read, a message that
// is too short gives nil values in the satellite and signal cells rather
// than an error.
package message

import (
	"fmt"

	"github.com/goblimey/go-ntrip-analyser/rtcm/header"
	"github.com/goblimey/go-ntrip-analyser/rtcm/msm/satellite"
	"github.com/goblimey/go-ntrip-analyser/rtcm/msm/signal"
	"github.com/goblimey/go-ntrip-analyser/rtcm/utils"
)

// Message is a broken-out version of an MSM.
type Message struct {
	// Header is the MSM Header
	Header *header.Header `json:"header"`

	// Satellites is a list of the satellites for which signals
	// were observed.
	Satellites []satellite.Cell `json:"satellites"`

	// Signals holds one cell per bit set in the cell mask, satellite by
	// satellite.
	Signals []signal.Cell `json:"signals"`

	// BitsRemaining is the number of bits left over after the signal data,
	// usually padding to a byte boundary.
	BitsRemaining uint `json:"bits_remaining"`
}

// Type returns the message type.
func (message *Message) Type() int {
	if message.Header == nil {
		return 0
	}
	return message.Header.MessageType
}

// String return a text version of the message.
func (message *Message) String() string {
	if message.Header == nil {
		return "no MSM header\n"
	}
	return message.Header.String() +
		message.DisplaySatelliteCells() +
		message.DisplaySignalCells() +
		fmt.Sprintf("%d bits remaining\n", message.BitsRemaining)
}

// DisplaySatelliteCells returns a text version of the satellite cells.
func (message *Message) DisplaySatelliteCells() string {

	if len(message.Satellites) < 1 {
		return "No Satellites\n"
	}

	heading := fmt.Sprintf("%d Satellites\nSatellite ID {range ms, extended info, range mod 1ms, phase range rate}\n",
		len(message.Satellites))

	body := ""
	for i := range message.Satellites {
		body += message.Satellites[i].String() + "\n"
	}

	return heading + body
}

// DisplaySignalCells returns a text version of the signal cells.
func (message *Message) DisplaySignalCells() string {

	if len(message.Signals) < 1 {
		return "No Signals\n"
	}

	heading := fmt.Sprintf(
		"%d Signals\nSat ID Sig ID {range delta, phase range delta, lock time ind, half cycle ambiguity, Carrier Noise Ratio, phase range rate delta}\n",
		len(message.Signals))

	body := ""
	for i := range message.Signals {
		body += message.Signals[i].String() + "\n"
	}

	return heading + body
}

// GetMessage decodes the embedded message of an MSM frame (the payload
// without the leader and CRC).  It only fails if the message is too short
// to hold the header.
func GetMessage(payload []byte) (*Message, error) {

	r := utils.NewFieldReader(payload)

	h, headerError := header.GetMSMHeader(r)
	if headerError != nil {
		return nil, headerError
	}

	satellites := satellite.GetSatelliteCells(r.BitReader, h.MSMType, h.Satellites)
	signals := signal.GetSignalCells(r.BitReader, h.MSMType, h.ActiveCells)

	message := Message{
		Header:        h,
		Satellites:    satellites,
		Signals:       signals,
		BitsRemaining: r.BitsRemaining(),
	}

	return &message, nil
}
