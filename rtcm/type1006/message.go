// type1006 handles messages of type 1006 - Stationary RTK Reference Station
// ARP with Antenna Height (base position and height).
package type1006

import (
	"errors"
	"fmt"

	"github.com/goblimey/go-ntrip-analyser/rtcm/type1005"
	"github.com/goblimey/go-ntrip-analyser/rtcm/utils"
)

const lenAntennaHeight = 16

// LengthOfMessageInBits is the length of a complete message.
const LengthOfMessageInBits = type1005.LengthOfMessageInBits + lenAntennaHeight

// Message contains a message of type 1006 - antenna position and height.
// The fields are the same as type 1005 plus the height.
type Message struct {
	type1005.Message

	// AntennaHeight is the height of the antenna above the marker - uint16,
	// in units of 1/10,000 of a metre.
	AntennaHeight uint `json:"antenna_height"`
}

// String returns a text version of a message type 1006
func (message *Message) String() string {
	display := message.Message.String()
	display += fmt.Sprintf("Antenna height %.4f\n", float64(message.AntennaHeight)*0.0001)
	return display
}

// GetMessage decodes the embedded message of a type 1006 frame.  If the
// message is too short, it returns the fields that it could read plus an
// error.
func GetMessage(payload []byte) (*Message, error) {

	r := utils.NewFieldReader(payload)

	messageType := int(r.Uint(utils.LenMessageType))
	if r.Err() != nil {
		return nil, r.Err()
	}

	// Sanity check.
	if messageType != utils.MessageType1006 {
		em := fmt.Sprintf("expected message type %d got %d",
			utils.MessageType1006, messageType)
		return nil, errors.New(em)
	}

	var message Message
	message.MessageType = messageType
	type1005.ReadBody(r, &message.Message)
	message.AntennaHeight = uint(r.Uint(lenAntennaHeight))

	if r.Err() != nil {
		em := fmt.Sprintf("overrun - expected %d bits in a message type %d, got %d",
			LengthOfMessageInBits, messageType, r.Len())
		return &message, errors.New(em)
	}

	return &message, nil
}
