// The type1033 package handles messages of type 1033, Receiver and Antenna
// Descriptors.  The message holds a series of strings, each an 8-bit
// character count followed by that many 8-bit characters.
package type1033

import (
	"errors"
	"fmt"

	"github.com/goblimey/go-ntrip-analyser/rtcm/utils"
)

const lenStationID = 12
const lenCount = 8
const lenChar = 8
const lenSetupID = 8

// Message is a broken out type 1033 message.
type Message struct {
	// MessageType - uint12 - always 1033.
	MessageType int `json:"message_type"`

	// StationID - uint12.
	StationID uint `json:"station_id"`

	// AntennaDescriptor is the antenna model, usually an IGS name.
	AntennaDescriptor string `json:"antenna_descriptor"`

	// AntennaSetupID - uint8.
	AntennaSetupID uint `json:"antenna_setup_id"`

	// AntennaSerialNumber is the antenna's serial number.
	AntennaSerialNumber string `json:"antenna_serial_number"`

	// ReceiverType, FirmwareVersion and ReceiverSerialNumber follow the
	// antenna fields.  They are empty if the message stops early.
	ReceiverType         string `json:"receiver_type"`
	FirmwareVersion      string `json:"firmware_version"`
	ReceiverSerialNumber string `json:"receiver_serial_number"`

	// BitsRemaining is the number of bits left over.
	BitsRemaining uint `json:"bits_remaining"`
}

// Type returns the message type.
func (message *Message) Type() int {
	return message.MessageType
}

// String returns a text version of the message.
func (message *Message) String() string {
	display := fmt.Sprintf("stationID %d, antenna descriptor %q, setup ID %d, antenna serial number %q\n",
		message.StationID, message.AntennaDescriptor, message.AntennaSetupID,
		message.AntennaSerialNumber)
	display += fmt.Sprintf("receiver type %q, firmware version %q, receiver serial number %q\n",
		message.ReceiverType, message.FirmwareVersion, message.ReceiverSerialNumber)
	return display
}

// GetMessage decodes the embedded message of a type 1033 frame.  If the
// antenna fields are cut short, it returns what it could read plus an
// error.
func GetMessage(payload []byte) (*Message, error) {

	r := utils.NewFieldReader(payload)

	messageType := int(r.Uint(utils.LenMessageType))
	if r.Err() != nil {
		return nil, r.Err()
	}

	if messageType != utils.MessageType1033 {
		em := fmt.Sprintf("expected message type %d got %d",
			utils.MessageType1033, messageType)
		return nil, errors.New(em)
	}

	message := Message{MessageType: messageType}
	message.StationID = uint(r.Uint(lenStationID))
	message.AntennaDescriptor = readString(r)
	message.AntennaSetupID = uint(r.Uint(lenSetupID))
	message.AntennaSerialNumber = readString(r)

	if r.Err() != nil {
		em := fmt.Sprintf("overrun - message type %d too short for the antenna descriptors: %v",
			messageType, r.Err())
		return &message, errors.New(em)
	}

	// The receiver descriptors are optional.  Each needs at least its count.
	optional := []*string{
		&message.ReceiverType, &message.FirmwareVersion, &message.ReceiverSerialNumber,
	}
	for _, field := range optional {
		if r.BitsRemaining() < lenCount {
			break
		}
		s := readString(r)
		if r.Err() != nil {
			break
		}
		*field = s
	}

	message.BitsRemaining = r.BitsRemaining()

	return &message, nil
}

// readString reads a character count and then that many characters.  It
// doesn't read past the end of the message:  if the characters aren't all
// there, it reads none of them and r records the error.
func readString(r *utils.FieldReader) string {
	count := uint(r.Uint(lenCount))
	if r.Err() != nil {
		return ""
	}
	if count*lenChar > r.BitsRemaining() {
		r.Ignore(count * lenChar)
		return ""
	}
	chars := make([]byte, count)
	for i := range chars {
		chars[i] = byte(r.Uint(lenChar))
	}
	return string(chars)
}
