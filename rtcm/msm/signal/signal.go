// The signal package handles the signal data of a Multiple Signal Message,
// which follows the satellite data.  There is one signal cell for each bit
// set in the header's cell mask, in the same order.  Like the satellite
// data, the fields are not interleaved:  the message holds all of the
// pseudorange deltas, then all of the phase range deltas and so on.
package signal

import (
	"fmt"

	"github.com/goblimey/go-ntrip-analyser/rtcm/header"
	"github.com/goblimey/go-ntrip-analyser/rtcm/utils"
)

// Widths gives the length in bits of each signal field for one MSM type.
// A zero length means that the field is not present.
type Widths struct {
	RangeDelta          uint
	PhaseRangeDelta     uint
	LockTimeIndicator   uint
	HalfCycleAmbiguity  uint
	CarrierToNoiseRatio uint
	PhaseRangeRateDelta uint
}

// GetWidths returns the field widths for the MSM type.
func GetWidths(msmType int) Widths {
	var w Widths

	switch msmType {
	case 1, 3, 4, 5:
		w.RangeDelta = 15
	case 6, 7:
		w.RangeDelta = 20
	}

	switch msmType {
	case 2, 3, 4, 5:
		w.PhaseRangeDelta = 22
		w.LockTimeIndicator = 4
	case 6, 7:
		w.PhaseRangeDelta = 24
		w.LockTimeIndicator = 10
	}

	if msmType >= 2 && msmType <= 7 {
		w.HalfCycleAmbiguity = 1
	}

	switch msmType {
	case 4, 5:
		w.CarrierToNoiseRatio = 6
	case 6, 7:
		w.CarrierToNoiseRatio = 10
	}

	if msmType == 5 || msmType == 7 {
		w.PhaseRangeRateDelta = 15
	}

	return w
}

// Cell holds the data for one signal from one satellite.  A nil field was
// either not present in this MSM type or was cut off by the end of the
// message.
type Cell struct {
	// SatelliteID is the satellite ID, 1-64.
	SatelliteID uint `json:"satellite_id"`

	// SignalID is the ID of the signal, 1-32.
	SignalID uint `json:"signal_id"`

	// RangeDelta - int15 or int20.  The fine pseudorange, a small signed
	// delta to be added to the rough range in the satellite data.
	RangeDelta *int64 `json:"range_delta"`

	// PhaseRangeDelta - int22 or int24.  The fine phase range.
	PhaseRangeDelta *int64 `json:"phase_range_delta"`

	// LockTimeIndicator - uint4 or uint10.
	LockTimeIndicator *uint64 `json:"lock_time_indicator"`

	// HalfCycleAmbiguity - bit(1).
	HalfCycleAmbiguity *bool `json:"half_cycle_ambiguity"`

	// CarrierToNoiseRatio - uint6 or uint10.
	CarrierToNoiseRatio *uint64 `json:"cnr"`

	// PhaseRangeRateDelta - int15.  The fine phase range rate.
	PhaseRangeRateDelta *int64 `json:"phase_range_rate_delta"`
}

// String returns a readable version of a signal cell.
func (cell *Cell) String() string {
	halfCycle := "-"
	if cell.HalfCycleAmbiguity != nil {
		halfCycle = fmt.Sprintf("%v", *cell.HalfCycleAmbiguity)
	}
	return fmt.Sprintf("%2d %2d {%s, %s, %s, %s, %s, %s}",
		cell.SatelliteID, cell.SignalID,
		utils.FormatInt(cell.RangeDelta), utils.FormatInt(cell.PhaseRangeDelta),
		utils.FormatUint(cell.LockTimeIndicator), halfCycle,
		utils.FormatUint(cell.CarrierToNoiseRatio), utils.FormatInt(cell.PhaseRangeRateDelta))
}

// GetSignalCells reads the signal data for the active cells from the
// reader, which must be positioned at the end of the satellite data.  It
// never fails:  any value that the message is too short to hold is nil.
func GetSignalCells(r *utils.BitReader, msmType int, activeCells []header.CellID) []Cell {

	w := GetWidths(msmType)
	n := len(activeCells)

	rangeDelta := r.ReadSignedList(n, w.RangeDelta)
	phaseRangeDelta := r.ReadSignedList(n, w.PhaseRangeDelta)
	lockTime := r.ReadUnsignedList(n, w.LockTimeIndicator)
	halfCycle := r.ReadUnsignedList(n, w.HalfCycleAmbiguity)
	cnr := r.ReadUnsignedList(n, w.CarrierToNoiseRatio)
	phaseRangeRateDelta := r.ReadSignedList(n, w.PhaseRangeRateDelta)

	cells := make([]Cell, 0, n)
	for i, id := range activeCells {
		var halfCycleAmbiguity *bool
		if halfCycle[i] != nil {
			b := *halfCycle[i] == 1
			halfCycleAmbiguity = &b
		}
		cells = append(cells, Cell{
			SatelliteID:         id.SatelliteID,
			SignalID:            id.SignalID,
			RangeDelta:          rangeDelta[i],
			PhaseRangeDelta:     phaseRangeDelta[i],
			LockTimeIndicator:   lockTime[i],
			HalfCycleAmbiguity:  halfCycleAmbiguity,
			CarrierToNoiseRatio: cnr[i],
			PhaseRangeRateDelta: phaseRangeRateDelta[i],
		})
	}

	return cells
}
