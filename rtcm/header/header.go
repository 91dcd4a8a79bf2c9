// The header package handles a Multiple Signal Message (MSM) header.
package header

import (
	"errors"
	"fmt"

	"github.com/goblimey/go-ntrip-analyser/rtcm/utils"
)

// Field lengths in bits.
const lenStationID = 12
const lenEpochTime = 30
const lenMultipleMessageFlag = 1
const lenIssueOfDataStation = 3
const lenSessionTransmissionTime = 7
const lenClockSteeringIndicator = 2
const lenExternalClockIndicator = 2
const lenGNSSDivergenceFreeSmoothingIndicator = 1
const lenGNSSSmoothingInterval = 3
const lenSatelliteMask = 64
const lenSignalMask = 32

// MinBitsInHeader is the length of an MSM header with an empty cell mask.
const MinBitsInHeader = utils.LenMessageType + lenStationID +
	lenEpochTime + lenMultipleMessageFlag + lenIssueOfDataStation +
	lenSessionTransmissionTime + lenClockSteeringIndicator +
	lenExternalClockIndicator + lenGNSSDivergenceFreeSmoothingIndicator +
	lenGNSSSmoothingInterval + lenSatelliteMask + lenSignalMask

// CellID identifies one active cell: a signal observed from a satellite.
type CellID struct {
	SatelliteID uint `json:"satellite_id"`
	SignalID    uint `json:"signal_id"`
}

// Header is the header of a Multiple Signal Message (types 1071-1077,
// 1081-1087 and so on).
type Header struct {
	// MessageType - uint12 - one of 1074, 1077 etc.
	MessageType int `json:"message_type"`

	// MSMType is the subtype, 1-7, the last digit of the message type.  It
	// controls which fields are present in the satellite and signal data.
	MSMType int `json:"msm_type"`

	// Constellation - one of "GPS, "BeiDou" etc.
	Constellation string `json:"constellation"`

	// StationID - uint12.
	StationID uint `json:"station_id"`

	// EpochTime - uint30.
	// The structure of the 30 bits varies with the constellation.  For GPS
	// and Galileo it's the number of milliseconds from the start of the
	// current GPS week.  For GLONASS the top three bits are the day of the
	// week (0 is Sunday) and the rest are milliseconds from the start of the
	// day in the Moscow time zone.  The value is not converted.
	EpochTime uint `json:"epoch_time"`

	// MultipleMessage - bit(1) - true if more MSMs follow for this
	// constellation, station and epoch time.
	MultipleMessage bool `json:"multiple_message"`

	// IssueOfDataStation - uint3.
	IssueOfDataStation uint `json:"issue_of_data_station"`

	// SessionTransmissionTime - uint7.  Reserved in current versions of
	// the standard.
	SessionTransmissionTime uint `json:"session_transmission_time"`

	// ClockSteeringIndicator - uint2.
	ClockSteeringIndicator uint `json:"clock_steering_indicator"`

	// ExternalClockIndicator - uint2.
	ExternalClockIndicator uint `json:"external_clock_indicator"`

	// GNSSDivergenceFreeSmoothingIndicator - bit(1).
	GNSSDivergenceFreeSmoothingIndicator bool `json:"divergence_free_smoothing"`

	// GNSSSmoothingInterval - uint3.
	GNSSSmoothingInterval uint `json:"smoothing_interval"`

	// SatelliteMask - bit(64).  The top bit stands for satellite 1.
	SatelliteMask uint64 `json:"satellite_mask"`

	// SignalMask - bit(32).  The top bit stands for signal 1.
	SignalMask uint32 `json:"signal_mask"`

	// Satellites lists the satellite numbers set in the mask, for example
	// {1, 3}.
	Satellites []uint `json:"satellites"`

	// Signals lists the signal numbers set in the mask.
	Signals []uint `json:"signals"`

	// Cells is the cell mask, a table of len(Satellites) rows by
	// len(Signals) columns.  For example, if signals 1, 2, 3 and 5 were
	// observed from satellites 1 and 3, the Cells might be {{t,f,t,t},
	// {t,t,f,f}}, meaning that signals 1, 3 and 5 were observed from
	// satellite 1 and signals 1 and 2 from satellite 3.
	Cells [][]bool `json:"cells"`

	// ActiveCells lists the cells that are set in the cell mask, satellite
	// by satellite, in the order that the signal data appears in the
	// message.
	ActiveCells []CellID `json:"active_cells"`
}

// New creates a Header from the values in the bit stream.
func New(
	messageType int,
	stationID uint,
	epochTime uint,
	multipleMessage bool,
	issueOfDataStation uint,
	sessionTransmissionTime uint,
	clockSteeringIndicator uint,
	externalClockIndicator uint,
	gnssDivergenceFreeSmoothingIndicator bool,
	gnssSmoothingInterval uint,
	satelliteMask uint64,
	signalMask uint32,
	cells [][]bool,
) *Header {

	satellites := getSatellites(satelliteMask)
	signals := getSignals(signalMask)

	header := Header{
		MessageType:                          messageType,
		MSMType:                              utils.MSMType(messageType),
		Constellation:                        utils.GetConstellation(messageType),
		StationID:                            stationID,
		EpochTime:                            epochTime,
		MultipleMessage:                      multipleMessage,
		IssueOfDataStation:                   issueOfDataStation,
		SessionTransmissionTime:              sessionTransmissionTime,
		ClockSteeringIndicator:               clockSteeringIndicator,
		ExternalClockIndicator:               externalClockIndicator,
		GNSSDivergenceFreeSmoothingIndicator: gnssDivergenceFreeSmoothingIndicator,
		GNSSSmoothingInterval:                gnssSmoothingInterval,
		SatelliteMask:                        satelliteMask,
		SignalMask:                           signalMask,
		Satellites:                           satellites,
		Signals:                              signals,
		Cells:                                cells,
		ActiveCells:                          getActiveCells(satellites, signals, cells),
	}

	return &header
}

// String returns the header as a few lines of text.
func (header *Header) String() string {

	title := utils.GetTitleAndComment(header.MessageType).Title

	line := fmt.Sprintf("type %d %s\n", header.MessageType, title)

	line += fmt.Sprintf("epoch time %d\n", header.EpochTime)
	mode := "single"
	if header.MultipleMessage {
		mode = "multiple"
	}
	line += fmt.Sprintf("stationID %d, %s message, sequence number %d, session transmit time %d\n",
		header.StationID, mode, header.IssueOfDataStation, header.SessionTransmissionTime)
	line += fmt.Sprintf("clock steering %d, external clock %d\n",
		header.ClockSteeringIndicator, header.ExternalClockIndicator)
	line += fmt.Sprintf("divergence free smoothing %v, smoothing interval %d\n",
		header.GNSSDivergenceFreeSmoothingIndicator, header.GNSSSmoothingInterval)
	line += fmt.Sprintf("%d satellites, %d signal types, %d signals\n",
		len(header.Satellites), len(header.Signals), len(header.ActiveCells))

	return line
}

// GetMSMHeader reads an MSM header from the start of an embedded message.
// On success the reader is left at the start of the satellite data.  If the
// message is too short to hold the header, an error is returned.
func GetMSMHeader(r *utils.FieldReader) (*Header, error) {

	// The fixed fields are followed by the satellite and signal masks and
	// then the cell mask, one bit for each satellite and signal pair.  A
	// set bit means that the signal was observed from that satellite and
	// that the message carries signal data for it.

	if r.BitsRemaining() < MinBitsInHeader {
		em := fmt.Sprintf("bitstream is too short for an MSM header - got %d bits, expected at least %d",
			r.BitsRemaining(), MinBitsInHeader)
		return nil, errors.New(em)
	}

	messageType := int(r.Uint(utils.LenMessageType))
	if !utils.MSM(messageType) {
		em := fmt.Sprintf("message type %d is not a Multiple Signal Message", messageType)
		return nil, errors.New(em)
	}

	stationID := uint(r.Uint(lenStationID))
	epochTime := uint(r.Uint(lenEpochTime))
	multipleMessage := r.Bool()
	issueOfDataStation := uint(r.Uint(lenIssueOfDataStation))
	sessionTransmissionTime := uint(r.Uint(lenSessionTransmissionTime))
	clockSteeringIndicator := uint(r.Uint(lenClockSteeringIndicator))
	externalClockIndicator := uint(r.Uint(lenExternalClockIndicator))
	smoothing := r.Bool()
	smoothingInterval := uint(r.Uint(lenGNSSSmoothingInterval))
	satelliteMask := r.Uint(lenSatelliteMask)
	signalMask := uint32(r.Uint(lenSignalMask))

	// The last component of the header is the cell mask.  Its length depends
	// on the other two masks.
	numSatellites := countBits(satelliteMask)
	numSignals := countBits(uint64(signalMask))
	lenCellMask := uint(numSatellites * numSignals)

	if r.BitsRemaining() < lenCellMask {
		em := fmt.Sprintf("bitstream is too short for an MSM header with %d cell mask bits - %d bits left",
			lenCellMask, r.BitsRemaining())
		return nil, errors.New(em)
	}

	cells := make([][]bool, numSatellites)
	for i := range cells {
		cells[i] = make([]bool, numSignals)
		for j := range cells[i] {
			cells[i][j] = r.Bool()
		}
	}

	if r.Err() != nil {
		return nil, r.Err()
	}

	header := New(messageType, stationID, epochTime, multipleMessage,
		issueOfDataStation, sessionTransmissionTime, clockSteeringIndicator,
		externalClockIndicator, smoothing, smoothingInterval,
		satelliteMask, signalMask, cells)

	return header, nil
}

// countBits returns the number of bits set in the mask.
func countBits(mask uint64) int {
	n := 0
	for ; mask != 0; mask &= mask - 1 {
		n++
	}
	return n
}

// getSatellites lists the satellites in the mask.  The top bit is
// satellite 1 and bit 0 is satellite 64.
func getSatellites(satelliteMask uint64) []uint {
	satellites := make([]uint, 0)
	for satNum := 1; satNum <= lenSatelliteMask; satNum++ {
		bitPosition := lenSatelliteMask - satNum
		if (satelliteMask>>bitPosition)&1 == 1 {
			satellites = append(satellites, uint(satNum))
		}
	}

	return satellites
}

// getSignals lists the signals in the mask, 1 to 32.
func getSignals(signalMask uint32) []uint {
	signals := make([]uint, 0)
	for sigNum := 1; sigNum <= lenSignalMask; sigNum++ {
		bitPosition := lenSignalMask - sigNum
		if (signalMask>>bitPosition)&1 == 1 {
			signals = append(signals, uint(sigNum))
		}
	}

	return signals
}

// getActiveCells walks the cell mask row by row and returns the satellite
// and signal of each cell that is set.
func getActiveCells(satellites, signals []uint, cells [][]bool) []CellID {
	active := make([]CellID, 0)
	for i := range cells {
		if i >= len(satellites) {
			break
		}
		for j := range cells[i] {
			if j >= len(signals) {
				break
			}
			if cells[i][j] {
				active = append(active, CellID{SatelliteID: satellites[i], SignalID: signals[j]})
			}
		}
	}
	return active
}
