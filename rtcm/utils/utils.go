// the utils package contains general-purpose functions for the RTCM software:
// message type constants, bit extraction, the BitReader and the CRC-24Q.
package utils

import (
	"fmt"
)

// StartOfMessageFrame is the value of the byte that starts an RTCM3 message frame.
const StartOfMessageFrame byte = 0xd3

// The message type is 12 bits unsigned.
const MaxMessageType = 4095

// MaxPayloadLength is the largest payload that the 10-bit length field
// in the frame leader can describe.
const MaxPayloadLength = 1023

// LeaderLengthBytes is the length of the message frame leader in bytes.
const LeaderLengthBytes = 3

// LeaderLengthBits is the length of the message frame leader in bits.
const LeaderLengthBits = LeaderLengthBytes * 8

// CRCLengthBytes is the length of the Cyclic Redundancy check value in bytes.
const CRCLengthBytes = 3

// CRCLengthBits is the length of the Cyclic Redundancy check value in bits.
const CRCLengthBits = CRCLengthBytes * 8

// LenMessageType is the length in bits of the message type at the start of
// every RTCM3 message.
const LenMessageType = 12

// RTCM3 Message types handled by the decoders.
const MessageType1004 = 1004 // GPS extended L1/L2 observables.
const MessageType1005 = 1005 // Base position.
const MessageType1006 = 1006 // Base position and height.
const MessageType1012 = 1012 // GLONASS extended L1/L2 observables.
const MessageType1033 = 1033 // Receiver and antenna descriptors.
const MessageTypeGCPB = 1230 // Glonass code/phase bias.

// Multiple Signal Messages come in blocks of ten, one block per
// constellation.  Within a block, type (base + n) is MSMn for n 1..7.
const MSMBaseGPS = 1070
const MSMBaseGlonass = 1080
const MSMBaseGalileo = 1090
const MSMBaseSBAS = 1100
const MSMBaseQZSS = 1110
const MSMBaseBeidou = 1120
const MSMBaseNavicIrnss = 1130

// msmBases lists the MSM blocks in order of message type.
var msmBases = []int{
	MSMBaseGPS, MSMBaseGlonass, MSMBaseGalileo, MSMBaseSBAS,
	MSMBaseQZSS, MSMBaseBeidou, MSMBaseNavicIrnss,
}

// MSMType returns the MSM subtype (1-7) of the message type, or 0 if the
// message type is not a Multiple Signal Message.
func MSMType(messageType int) int {
	for _, base := range msmBases {
		n := messageType - base
		if n >= 1 && n <= 7 {
			return n
		}
	}
	return 0
}

// MSM is true if the message type is a Multiple Signal Message of any subtype.
func MSM(messageType int) bool {
	return MSMType(messageType) != 0
}

// decodedMSMBases are the constellations whose MSMs are decoded:  GPS,
// GLONASS, Galileo and BeiDou.  The SBAS, QZSS and NavIC blocks are named
// in the titles but handled as unsupported messages.
var decodedMSMBases = map[int]bool{
	MSMBaseGPS:     true,
	MSMBaseGlonass: true,
	MSMBaseGalileo: true,
	MSMBaseBeidou:  true,
}

// DecodedMSM is true if the message type is an MSM from one of the four
// constellations that the handler decodes.
func DecodedMSM(messageType int) bool {
	msmType := MSMType(messageType)
	return msmType != 0 && decodedMSMBases[messageType-msmType]
}

// MSM4 is true if the message type is an MSM4.
func MSM4(messageType int) bool {
	return MSMType(messageType) == 4
}

// MSM7 is true if the message type is an MSM7.
func MSM7(messageType int) bool {
	return MSMType(messageType) == 7
}

// GetConstellation returns the constellation given a message type.
func GetConstellation(messageType int) string {

	if !MSM(messageType) {
		return "unknown constellation"
	}

	switch messageType - MSMType(messageType) {
	case MSMBaseGPS:
		return "GPS"
	case MSMBaseGlonass:
		return "GLONASS"
	case MSMBaseGalileo:
		return "Galileo"
	case MSMBaseSBAS:
		return "SBAS"
	case MSMBaseQZSS:
		return "QZSS"
	case MSMBaseBeidou:
		return "BeiDou"
	default:
		return "NavIC/IRNSS"
	}
}

// GetBitsAsUint64 extracts len bits from a slice of  bytes, starting
// at bit position pos and returns them as a uint.  See RTKLIB's getbitu.
// The caller must make sure that the slice holds pos+len bits.
func GetBitsAsUint64(buff []byte, pos uint, len uint) uint64 {
	// The C version in RTKLIB is:
	//
	// extern unsigned int getbitu(const unsigned char *buff, int pos, int len)
	// {
	//     unsigned int bits=0;
	//     int i;
	//     for (i=pos;i<pos+len;i++) bits=(bits<<1)+((buff[i/8]>>(7-i%8))&1u);
	//     return bits;
	// }
	//
	var result uint64 = 0
	for i := pos; i < pos+len; i++ {
		bit := (uint64(buff[i/8]) >> (7 - i%8)) & 1
		result = (result << 1) | bit
	}
	return result
}

// GetBitsAsInt64 extracts len bits from a slice of bytes, starting at bit
// position pos, interprets the bits as a twos-complement integer and returns
// the resulting as a 64-bit signed int.  See RTKLIB's getbits() function.
func GetBitsAsInt64(buff []byte, pos uint, len uint) int64 {
	return SignExtend(GetBitsAsUint64(buff, pos, len), len)
}

// SignExtend interprets the bottom len bits of uval as a two's complement
// number.  If the value is at least 2 to the power (len-1) it represents
// (value - 2 to the power len).
func SignExtend(uval uint64, len uint) int64 {
	if len == 0 || len >= 64 {
		return int64(uval)
	}
	signBit := uint64(1) << (len - 1)
	if uval&signBit == 0 {
		return int64(uval)
	}
	return int64(uval) - int64(uint64(1)<<len)
}

// SlicesEqual returns true if uint slices a and b are the same length and
// contain the same elements.  A nil argument is equivalent to an empty slice.
func SlicesEqual(a, b []uint) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if v != b[i] {
			return false
		}
	}
	return true
}

// HexString returns the bytes as upper case hex with no separators, the
// format used for raw payloads of messages that can't be decoded.
func HexString(buf []byte) string {
	return fmt.Sprintf("%X", buf)
}

// FormatUint renders an optional unsigned value, "-" if it's absent.
func FormatUint(p *uint64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *p)
}

// FormatInt renders an optional signed value, "-" if it's absent.
func FormatInt(p *int64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *p)
}
