// The type1012 package handles messages of type 1012, Extended L1&L2
// GLONASS RTK Observables.  The layout is like type 1004 but the epoch time
// is 27 bits and each satellite block is 130 bits, including the satellite's
// frequency channel number.
package type1012

import (
	"errors"
	"fmt"

	"github.com/goblimey/go-ntrip-analyser/rtcm/utils"
)

// Lengths of the header fields.
const lenStationID = 12
const lenEpochTime = 27
const lenSatelliteCount = 5
const lenSmoothingInterval = 3

// Lengths of the satellite fields.
const lenSatelliteID = 6
const lenL1Code = 1
const lenFrequencyChannel = 5
const lenL1Pseudorange = 25
const lenPhaseMinusPseudorange = 20
const lenLockTimeIndicator = 7
const lenPseudorangeModulus = 7
const lenCNR = 8
const lenL2Code = 2
const lenL2MinusL1Pseudorange = 14

// LenHeader is the length of the header including the message type.
const LenHeader = utils.LenMessageType + lenStationID + lenEpochTime + 1 +
	lenSatelliteCount + 1 + lenSmoothingInterval

// LenSatellite is the length of the block for one satellite.
const LenSatellite = lenSatelliteID + lenL1Code + lenFrequencyChannel +
	lenL1Pseudorange + lenPhaseMinusPseudorange + lenLockTimeIndicator +
	lenPseudorangeModulus + lenCNR + lenL2Code + lenL2MinusL1Pseudorange +
	lenPhaseMinusPseudorange + lenLockTimeIndicator + lenCNR

// Satellite holds the observations of one GLONASS satellite.  If the
// message ran out before the satellite's block, Truncated is set and only
// Index and BitsRemaining are meaningful.
type Satellite struct {
	Index         int  `json:"index"`
	Truncated     bool `json:"truncated,omitempty"`
	BitsRemaining uint `json:"bits_remaining,omitempty"`

	SatelliteID uint `json:"satellite_id"`

	// L1Code - bit(1).
	L1Code uint `json:"l1_code"`

	// FrequencyChannel - 5 bits.  The standard sends this as an unsigned
	// value offset by 7.  It's read here as a signed 5-bit value and not
	// converted.
	FrequencyChannel int64 `json:"frequency_channel"`

	// L1Pseudorange - uint25.
	L1Pseudorange uint64 `json:"l1_pseudorange"`

	// L1PhaseRangeMinusPseudorange - int20.
	L1PhaseRangeMinusPseudorange int64 `json:"l1_phase_range_minus_pseudorange"`

	// L1LockTimeIndicator - uint7.
	L1LockTimeIndicator uint `json:"l1_lock_time_indicator"`

	// L1PseudorangeModulus - uint7.
	L1PseudorangeModulus uint `json:"l1_pseudorange_modulus"`

	// L1CNR - uint8.
	L1CNR uint `json:"l1_cnr"`

	// L2Code - uint2.
	L2Code uint `json:"l2_code"`

	// L2MinusL1Pseudorange - int14.
	L2MinusL1Pseudorange int64 `json:"l2_minus_l1_pseudorange"`

	// L2PhaseRangeMinusL1Pseudorange - int20.
	L2PhaseRangeMinusL1Pseudorange int64 `json:"l2_phase_range_minus_l1_pseudorange"`

	// L2LockTimeIndicator - uint7.
	L2LockTimeIndicator uint `json:"l2_lock_time_indicator"`

	// L2CNR - uint8.
	L2CNR uint `json:"l2_cnr"`
}

// String returns a readable version of the satellite's observations.
func (s *Satellite) String() string {
	if s.Truncated {
		return fmt.Sprintf("%2d truncated, %d bits remaining", s.Index, s.BitsRemaining)
	}
	return fmt.Sprintf("%2d %3d L1 {%d, %d, %d, %d, %d, %d} L2 {%d, %d, %d, %d, %d}",
		s.SatelliteID, s.FrequencyChannel,
		s.L1Code, s.L1Pseudorange, s.L1PhaseRangeMinusPseudorange,
		s.L1LockTimeIndicator, s.L1PseudorangeModulus, s.L1CNR,
		s.L2Code, s.L2MinusL1Pseudorange, s.L2PhaseRangeMinusL1Pseudorange,
		s.L2LockTimeIndicator, s.L2CNR)
}

// Message is a broken out type 1012 message.
type Message struct {
	// MessageType - uint12 - always 1012.
	MessageType int `json:"message_type"`

	// StationID - uint12.
	StationID uint `json:"station_id"`

	// EpochTime - uint27 - milliseconds from the start of the GLONASS day.
	EpochTime uint `json:"epoch_time"`

	// Synchronous - bit(1).
	Synchronous bool `json:"synchronous"`

	// SatelliteCount - uint5.
	SatelliteCount uint `json:"satellite_count"`

	// SmoothingIndicator - bit(1).
	SmoothingIndicator bool `json:"smoothing_indicator"`

	// SmoothingInterval - uint3.
	SmoothingInterval uint `json:"smoothing_interval"`

	Satellites []Satellite `json:"satellites"`

	BitsRemaining uint `json:"bits_remaining"`
}

// Type returns the message type.
func (message *Message) Type() int {
	return message.MessageType
}

// String returns a text version of the message.
func (message *Message) String() string {
	mode := "asynchronous"
	if message.Synchronous {
		mode = "synchronous"
	}
	display := fmt.Sprintf("stationID %d, epoch time %d, %s, smoothing %v, smoothing interval %d\n",
		message.StationID, message.EpochTime, mode,
		message.SmoothingIndicator, message.SmoothingInterval)
	display += fmt.Sprintf("%d satellites\n", message.SatelliteCount)
	if len(message.Satellites) > 0 {
		display += "Sat ID Channel L1 {code, pseudorange, phase-pseudorange, lock, modulus, CNR} L2 {code, pseudorange diff, phase-pseudorange, lock, CNR}\n"
	}
	for i := range message.Satellites {
		display += message.Satellites[i].String() + "\n"
	}
	display += fmt.Sprintf("%d bits remaining\n", message.BitsRemaining)
	return display
}

// GetMessage decodes the embedded message of a type 1012 frame.  If the
// message is too short for the header, it returns what it could read and
// an error.  Satellites that don't fit are marked as truncated.
func GetMessage(payload []byte) (*Message, error) {

	r := utils.NewFieldReader(payload)

	messageType := int(r.Uint(utils.LenMessageType))
	if r.Err() != nil {
		return nil, r.Err()
	}

	if messageType != utils.MessageType1012 {
		em := fmt.Sprintf("expected message type %d got %d",
			utils.MessageType1012, messageType)
		return nil, errors.New(em)
	}

	message := Message{MessageType: messageType}
	message.StationID = uint(r.Uint(lenStationID))
	message.EpochTime = uint(r.Uint(lenEpochTime))
	message.Synchronous = r.Bool()
	message.SatelliteCount = uint(r.Uint(lenSatelliteCount))
	message.SmoothingIndicator = r.Bool()
	message.SmoothingInterval = uint(r.Uint(lenSmoothingInterval))

	if r.Err() != nil {
		em := fmt.Sprintf("overrun - expected %d bits in a message type %d header, got %d",
			LenHeader, messageType, r.Len())
		return &message, errors.New(em)
	}

	message.Satellites = make([]Satellite, 0, message.SatelliteCount)
	for i := 0; i < int(message.SatelliteCount); i++ {
		if r.BitsRemaining() < LenSatellite {
			message.Satellites = append(message.Satellites,
				Satellite{Index: i, Truncated: true, BitsRemaining: r.BitsRemaining()})
			continue
		}

		s := Satellite{Index: i}
		s.SatelliteID = uint(r.Uint(lenSatelliteID))
		s.L1Code = uint(r.Uint(lenL1Code))
		s.FrequencyChannel = r.Int(lenFrequencyChannel)
		s.L1Pseudorange = r.Uint(lenL1Pseudorange)
		s.L1PhaseRangeMinusPseudorange = r.Int(lenPhaseMinusPseudorange)
		s.L1LockTimeIndicator = uint(r.Uint(lenLockTimeIndicator))
		s.L1PseudorangeModulus = uint(r.Uint(lenPseudorangeModulus))
		s.L1CNR = uint(r.Uint(lenCNR))
		s.L2Code = uint(r.Uint(lenL2Code))
		s.L2MinusL1Pseudorange = r.Int(lenL2MinusL1Pseudorange)
		s.L2PhaseRangeMinusL1Pseudorange = r.Int(lenPhaseMinusPseudorange)
		s.L2LockTimeIndicator = uint(r.Uint(lenLockTimeIndicator))
		s.L2CNR = uint(r.Uint(lenCNR))
		message.Satellites = append(message.Satellites, s)
	}

	message.BitsRemaining = r.BitsRemaining()

	return &message, nil
}
