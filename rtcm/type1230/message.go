// The type1230 package handles messages of type 1230, GLONASS L1 and L2
// Code-Phase Biases.
package type1230

import (
	"errors"
	"fmt"

	"github.com/goblimey/go-ntrip-analyser/rtcm/utils"
)

const lenStationID = 12
const lenReserved = 3
const lenFDMASignalMask = 4
const lenBias = 16

// InvalidBias is the invalid value for a bias, int16 1000 0000 0000 0000.
const InvalidBias = -32768

// signalNames gives the signal for each bit of the FDMA signal mask, most
// significant bit first.
var signalNames = []string{"L1 C/A", "L1 P", "L2 C/A", "L2 P"}

// Bias is the code-phase bias for one signal, in units of 0.02m.
type Bias struct {
	Signal string `json:"signal"`
	Value  int64  `json:"value"`
}

// Message is a broken out type 1230 message.
type Message struct {
	// MessageType - uint12 - always 1230.
	MessageType int `json:"message_type"`

	// StationID - uint12.
	StationID uint `json:"station_id"`

	// CodePhaseBiasIndicator - bit(1) - true if the receiver's pseudoranges
	// and phase ranges are already aligned.
	CodePhaseBiasIndicator bool `json:"code_phase_bias_indicator"`

	// Reserved - uint3.
	Reserved uint `json:"reserved"`

	// FDMASignalMask - uint4 - one bit per signal with a bias value.
	FDMASignalMask uint `json:"fdma_signal_mask"`

	// Biases has one entry for each bit set in the mask, as long as the
	// message is long enough.
	Biases []Bias `json:"biases"`

	// BitsRemaining is the number of bits left over.
	BitsRemaining uint `json:"bits_remaining"`
}

// Type returns the message type.
func (message *Message) Type() int {
	return message.MessageType
}

// String returns a text version of the message.
func (message *Message) String() string {
	display := fmt.Sprintf("stationID %d, aligned %v, signal mask %04b\n",
		message.StationID, message.CodePhaseBiasIndicator, message.FDMASignalMask)
	for _, b := range message.Biases {
		if b.Value == InvalidBias {
			display += fmt.Sprintf("%s invalid\n", b.Signal)
			continue
		}
		display += fmt.Sprintf("%s %d\n", b.Signal, b.Value)
	}
	return display
}

// GetMessage decodes the embedded message of a type 1230 frame.  If the
// message is too short for the fixed fields, it returns what it could read
// plus an error.  Biases that don't fit are left out.
func GetMessage(payload []byte) (*Message, error) {

	r := utils.NewFieldReader(payload)

	messageType := int(r.Uint(utils.LenMessageType))
	if r.Err() != nil {
		return nil, r.Err()
	}

	if messageType != utils.MessageTypeGCPB {
		em := fmt.Sprintf("expected message type %d got %d",
			utils.MessageTypeGCPB, messageType)
		return nil, errors.New(em)
	}

	message := Message{MessageType: messageType}
	message.StationID = uint(r.Uint(lenStationID))
	message.CodePhaseBiasIndicator = r.Bool()
	message.Reserved = uint(r.Uint(lenReserved))
	message.FDMASignalMask = uint(r.Uint(lenFDMASignalMask))

	if r.Err() != nil {
		em := fmt.Sprintf("overrun - message type %d too short: %v", messageType, r.Err())
		return &message, errors.New(em)
	}

	message.Biases = make([]Bias, 0)
	for i, name := range signalNames {
		bit := uint(len(signalNames) - 1 - i)
		if (message.FDMASignalMask>>bit)&1 == 0 {
			continue
		}
		if r.BitsRemaining() < lenBias {
			break
		}
		message.Biases = append(message.Biases, Bias{Signal: name, Value: r.Int(lenBias)})
	}

	message.BitsRemaining = r.BitsRemaining()

	return &message, nil
}
