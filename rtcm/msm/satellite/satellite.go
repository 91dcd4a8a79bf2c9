// The satellite package handles the satellite data of a Multiple Signal
// Message.  The satellite data follows the header.  There is one entry per
// satellite in the header's satellite mask, holding the approximate (rough)
// range, the extended satellite information and the rough phase range rate.
// The rough range is the transit time of the signals from the satellite to
// the receiver in whole and fractional milliseconds.  Each signal cell
// contains a small delta which refines it.
//
// Which fields are present depends on the MSM type, 1 to 7.  The fields are
// not interleaved:  the message holds all of the rough range values, then
// all of the extended info values and so on.
package satellite

import (
	"fmt"

	"github.com/goblimey/go-ntrip-analyser/rtcm/utils"
)

// InvalidRange is the invalid value for the whole millis range.
const InvalidRange = 0xff

// InvalidPhaseRangeRate is the invalid value for the phase range rate.
// 14 bit two's complement 10 0000 0000 0000
const InvalidPhaseRangeRate = -8192

// Widths gives the length in bits of each satellite field for one MSM type.
// A zero length means that the field is not present.
type Widths struct {
	RangeWholeMillis      uint
	ExtendedInfo          uint
	RangeFractionalMillis uint
	PhaseRangeRate        uint
}

// GetWidths returns the field widths for the MSM type.
func GetWidths(msmType int) Widths {
	var w Widths
	if msmType >= 4 && msmType <= 7 {
		w.RangeWholeMillis = 8
	}
	if msmType == 5 || msmType == 7 {
		w.ExtendedInfo = 4
		w.PhaseRangeRate = 14
	}
	if msmType >= 1 && msmType <= 7 {
		w.RangeFractionalMillis = 10
	}
	return w
}

// Cell holds the data about one satellite.  A nil field was either not
// present in this MSM type or was cut off by the end of the message.
type Cell struct {
	// The field names, types and sizes and invalid values are shown in comments
	// in rtklib rtcm3.c - see the function decode_msm7().

	// SatelliteID is the satellite ID, 1-64.
	SatelliteID uint `json:"satellite_id"`

	// RangeWholeMillis - uint8 - the number of integer milliseconds in the
	// GNSS Satellite range (ie the transit time of the signals).  0xff
	// indicates an invalid value.
	RangeWholeMillis *uint64 `json:"range_whole_millis"`

	// ExtendedInfo - uint4.  Extended Satellite Information.
	ExtendedInfo *uint64 `json:"extended_info"`

	// RangeFractionalMillis - uint10.  The fractional part of the range
	// in 1/1024 milliseconds, the range modulo 1 millisecond.
	RangeFractionalMillis *uint64 `json:"range_fractional_millis"`

	// PhaseRangeRate - int14.  The approximate phase range rate for all
	// signals from this satellite.  Invalid if the top bit is set and all
	// the others are zero (InvalidPhaseRangeRate).
	PhaseRangeRate *int64 `json:"phase_range_rate"`
}

// String returns a readable version of the cell.
func (cell *Cell) String() string {
	wholeMillis := utils.FormatUint(cell.RangeWholeMillis)
	if cell.RangeWholeMillis != nil && *cell.RangeWholeMillis == InvalidRange {
		wholeMillis = "invalid"
	}
	rate := utils.FormatInt(cell.PhaseRangeRate)
	if cell.PhaseRangeRate != nil && *cell.PhaseRangeRate == InvalidPhaseRangeRate {
		rate = "invalid"
	}
	return fmt.Sprintf("%2d {%s, %s, %s, %s}",
		cell.SatelliteID, wholeMillis, utils.FormatUint(cell.ExtendedInfo),
		utils.FormatUint(cell.RangeFractionalMillis), rate)
}

// GetSatelliteCells reads the satellite data for the given satellites from
// the reader, which must be positioned at the end of the MSM header.  It
// never fails:  any value that the message is too short to hold is nil.
func GetSatelliteCells(r *utils.BitReader, msmType int, satellites []uint) []Cell {

	w := GetWidths(msmType)
	n := len(satellites)

	wholeMillis := r.ReadUnsignedList(n, w.RangeWholeMillis)
	extendedInfo := r.ReadUnsignedList(n, w.ExtendedInfo)
	fractionalMillis := r.ReadUnsignedList(n, w.RangeFractionalMillis)
	phaseRangeRate := r.ReadSignedList(n, w.PhaseRangeRate)

	cells := make([]Cell, 0, n)
	for i, id := range satellites {
		cells = append(cells, Cell{
			SatelliteID:           id,
			RangeWholeMillis:      wholeMillis[i],
			ExtendedInfo:          extendedInfo[i],
			RangeFractionalMillis: fractionalMillis[i],
			PhaseRangeRate:        phaseRangeRate[i],
		})
	}

	return cells
}
