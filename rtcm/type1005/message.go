// The type1005 package handles messages of type 1005, Stationary RTK
// Reference Station Antenna Reference Point (ARP), which gives the position
// of the base station.
package type1005

import (
	"errors"
	"fmt"

	"github.com/goblimey/go-ntrip-analyser/rtcm/utils"
)

// Lengths of the fields in the bit stream.
const lenStationID = 12
const lenITRFRealisationYear = 6
const lenIndicator = 1
const lenAntennaRef = 38
const lenQuarterCycleIndicator = 2

// LengthOfMessageInBits is the length of a complete message.
const LengthOfMessageInBits = utils.LenMessageType + lenStationID +
	lenITRFRealisationYear + 4*lenIndicator + lenAntennaRef +
	2*lenIndicator + lenAntennaRef + lenQuarterCycleIndicator + lenAntennaRef

// Message contains a message of type 1005 - antenna position.
type Message struct {
	// MessageType - uint12 - always 1005.
	MessageType int `json:"message_type"`

	// StationID - uint12.
	StationID uint `json:"station_id"`

	// ITRFRealisationYear - uint6.  Reserved for the ITRF realisation year.
	ITRFRealisationYear uint `json:"itrf_realisation_year"`

	// GPSIndicator - bit(1) - the station observes GPS.
	GPSIndicator bool `json:"gps_indicator"`

	// GlonassIndicator - bit(1) - the station observes GLONASS.
	GlonassIndicator bool `json:"glonass_indicator"`

	// GalileoIndicator - bit(1) - reserved for Galileo.
	GalileoIndicator bool `json:"galileo_indicator"`

	// ReferenceStationIndicator - bit(1) - false for a real, physical
	// reference station, true for a non-physical or computed one.
	ReferenceStationIndicator bool `json:"reference_station_indicator"`

	// AntennaRefX is the antenna Reference Point coordinate X in ECEF - int38.
	// Scaled integer in 0.0001 m units (tenth mm).
	AntennaRefX int64 `json:"antenna_ref_x"`

	// SingleReceiverOscillator - bit(1).
	SingleReceiverOscillator bool `json:"single_receiver_oscillator"`

	// Reserved - bit(1).
	Reserved uint `json:"reserved"`

	// AntennaRefY is the antenna Reference Point coordinate Y in ECEF - int38.
	AntennaRefY int64 `json:"antenna_ref_y"`

	// QuarterCycleIndicator - uint2.
	QuarterCycleIndicator uint `json:"quarter_cycle_indicator"`

	// AntennaRefZ is the antenna Reference Point coordinate Z in ECEF - int38.
	AntennaRefZ int64 `json:"antenna_ref_z"`
}

// Type returns the message type.
func (message *Message) Type() int {
	return message.MessageType
}

// String returns a text version of a message type 1005
func (message *Message) String() string {

	display := fmt.Sprintf("stationID %d, ITRF realisation year %d,\n",
		message.StationID, message.ITRFRealisationYear)
	display += fmt.Sprintf("GPS %v, GLONASS %v, Galileo %v, reference station %v,\n",
		message.GPSIndicator, message.GlonassIndicator, message.GalileoIndicator,
		message.ReferenceStationIndicator)
	display += fmt.Sprintf("single receiver oscillator %v, quarter cycle indicator %02b,\n",
		message.SingleReceiverOscillator, message.QuarterCycleIndicator)
	display += fmt.Sprintf("x %d, y %d, z %d,\n",
		message.AntennaRefX, message.AntennaRefY, message.AntennaRefZ)
	display += ECEFInMetres(message.AntennaRefX, message.AntennaRefY, message.AntennaRefZ)

	return display
}

// ECEFInMetres displays the antenna reference point.  The coordinates are
// in units of 1/10,000 of a metre.
func ECEFInMetres(x, y, z int64) string {
	const scaleFactor = 0.0001
	return fmt.Sprintf("ECEF coords in metres (%.4f, %.4f, %.4f)\n",
		float64(x)*scaleFactor, float64(y)*scaleFactor, float64(z)*scaleFactor)
}

// GetMessage decodes the embedded message of a type 1005 frame (the payload
// without the leader and the CRC).  If the message is too short, it returns
// the fields that it could read plus an error.
func GetMessage(payload []byte) (*Message, error) {

	r := utils.NewFieldReader(payload)

	messageType := int(r.Uint(utils.LenMessageType))
	if r.Err() != nil {
		return nil, r.Err()
	}

	// Sanity check.
	if messageType != utils.MessageType1005 {
		em := fmt.Sprintf("expected message type %d got %d",
			utils.MessageType1005, messageType)
		return nil, errors.New(em)
	}

	message := Message{MessageType: messageType}
	ReadBody(r, &message)

	if r.Err() != nil {
		em := fmt.Sprintf("overrun - expected %d bits in a message type %d, got %d",
			LengthOfMessageInBits, messageType, r.Len())
		return &message, errors.New(em)
	}

	return &message, nil
}

// ReadBody reads the fields after the message type.  Type 1006 has the same
// fields plus the antenna height.  The caller checks r.Err.
func ReadBody(r *utils.FieldReader, message *Message) {
	message.StationID = uint(r.Uint(lenStationID))
	message.ITRFRealisationYear = uint(r.Uint(lenITRFRealisationYear))
	message.GPSIndicator = r.Bool()
	message.GlonassIndicator = r.Bool()
	message.GalileoIndicator = r.Bool()
	message.ReferenceStationIndicator = r.Bool()
	message.AntennaRefX = r.Int(lenAntennaRef)
	message.SingleReceiverOscillator = r.Bool()
	message.Reserved = uint(r.Uint(lenIndicator))
	message.AntennaRefY = r.Int(lenAntennaRef)
	message.QuarterCycleIndicator = uint(r.Uint(lenQuarterCycleIndicator))
	message.AntennaRefZ = r.Int(lenAntennaRef)
}
