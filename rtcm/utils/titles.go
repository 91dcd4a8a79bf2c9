package utils

import (
	"fmt"
)

// TitleAndComment is used to derive a title and comment from a message type.
// See GetTitleAndComment.  The data are taken mostly from
// https://www.use-snip.com/kb/knowledge-base/rtcm-3-message-list/
type TitleAndComment struct {
	// Title is the title of the message.
	Title string
	// Comment is a comment about the message type.
	Comment string
}

var titleComment = map[int]TitleAndComment{
	1001: {"L1-Only GPS RTK Observables",
		"This GPS message type is not generally used or supported; type 1004 is to be preferred."},
	1002: {"Extended L1-Only GPS RTK Observables",
		"Used when only L1 data is present and bandwidth is very tight."},
	1003: {"L1&L2 GPS RTK Observables",
		"This GPS message type is not generally used or supported; type 1004 is to be preferred."},
	1004: {"Extended L1&L2 GPS RTK Observables",
		"The most common legacy GPS observation message, with L1/L2/SNR content."},
	1005: {"Stationary RTK Reference Station Antenna Reference Point (ARP)",
		"The ECEF location of the antenna reference point and the quarter phase alignment details."},
	1006: {"Stationary RTK Reference Station ARP with Antenna Height",
		"As 1005 plus the height of the antenna above the ARP."},
	1007: {"Antenna Descriptor", "A textual model number for the antenna."},
	1008: {"Antenna Descriptor and Serial Number", "As 1007 plus the antenna serial number."},
	1009: {"L1-Only GLONASS RTK Observables",
		"This GLONASS message type is not generally used or supported; type 1012 is to be preferred."},
	1010: {"Extended L1-Only GLONASS RTK Observables",
		"Used when only L1 data is present and bandwidth is very tight."},
	1011: {"L1&L2 GLONASS RTK Observables",
		"This GLONASS message type is not generally used or supported; type 1012 is to be preferred."},
	1012: {"Extended L1&L2 GLONASS RTK Observables",
		"The most common legacy GLONASS observation message, with L1/L2/SNR content."},
	1013: {"System Parameters", "A table of the message types sent and their rates."},
	1019: {"GPS Ephemerides", "Broadcast orbits for GPS in a Kepler format, one message per SV."},
	1020: {"GLONASS Ephemerides", "Broadcast orbits for GLONASS, one message per SV."},
	1029: {"Unicode Text String", "Short UTF-8 text, about 128 characters."},
	1032: {"Physical Reference Station Position", "The ECEF location of the physical antenna."},
	1033: {"Receiver and Antenna Descriptors",
		"Text describing the receiver and the antenna, often sent with 1007 or 1008."},
	1042: {"BDS Satellite Ephemeris Data", "Broadcast orbits for BeiDou, one message per SV."},
	1044: {"QZSS Ephemerides", "Broadcast orbits for QZSS, one message per SV."},
	1045: {"Galileo F/NAV Satellite Ephemeris Data", "Galileo F/NAV orbital data, one message per SV."},
	1046: {"Galileo I/NAV Satellite Ephemeris Data", "Galileo I/NAV orbital data, one message per SV."},
	1230: {"GLONASS L1 and L2 Code-Phase Biases",
		"Corrections for the inter-frequency bias caused by the different FDMA frequencies."},
}

// msmTitles holds the title of each MSM subtype.
var msmTitles = map[int]string{
	1: "MSM1 (compact pseudoranges)",
	2: "MSM2 (compact phaseranges)",
	3: "MSM3 (compact pseudoranges and phaseranges)",
	4: "Full Pseudoranges and PhaseRanges plus Carrier to Noise Ratio",
	5: "MSM5 (full pseudoranges, phaseranges, phaserange rate and CNR)",
	6: "Full Pseudoranges and PhaseRanges plus Carrier to Noise Ratio (high resolution)",
	7: "Full Pseudoranges, PhaseRanges, PhaseRangeRate and CNR (high resolution)",
}

// GetTitleAndComment returns the title and a comment for the message type.
func GetTitleAndComment(messageType int) *TitleAndComment {

	if msmType := MSMType(messageType); msmType != 0 {
		constellation := GetConstellation(messageType)
		result := TitleAndComment{
			Title: constellation + " " + msmTitles[msmType],
			Comment: fmt.Sprintf("The type %d Multiple Signal Message format for %s.",
				msmType, constellation),
		}
		return &result
	}

	if messageType >= 4001 && messageType <= MaxMessageType {
		result := TitleAndComment{"Proprietary message",
			"The content and format of this message is defined by its owner."}
		return &result
	}

	tc, ok := titleComment[messageType]
	if !ok {
		title := fmt.Sprintf("message type %d is not known", messageType)
		result := TitleAndComment{title, ""}
		return &result
	}

	return &tc
}
