package utils

import (
	"github.com/goblimey/go-crc24q/crc24q"
)

// CRC24Q calculates the Qualcomm 24-bit CRC (polynomial 0x1864CFB, initial
// value 0) over length bytes of buf starting at offset.  In an RTCM3 frame
// the CRC covers the 3-byte leader and the embedded message.
func CRC24Q(buf []byte, offset, length int) uint32 {
	return crc24q.Hash(buf[offset : offset+length])
}

// CRCFromTrailer returns the 24-bit CRC stored big-endian in the last three
// bytes of a message frame.  The frame must be at least three bytes long.
func CRCFromTrailer(frame []byte) uint32 {
	start := len(frame) - CRCLengthBytes
	return uint32(frame[start])<<16 | uint32(frame[start+1])<<8 | uint32(frame[start+2])
}

// AppendCRC calculates the CRC of a leader and message and returns the
// complete frame.  It's used to build test data and by tools that forge
// frames.
func AppendCRC(leaderAndMessage []byte) []byte {
	crc := crc24q.Hash(leaderAndMessage)
	frame := make([]byte, 0, len(leaderAndMessage)+CRCLengthBytes)
	frame = append(frame, leaderAndMessage...)
	frame = append(frame, crc24q.HiByte(crc), crc24q.MiByte(crc), crc24q.LoByte(crc))
	return frame
}

// BuildFrame wraps a payload in a leader and a CRC.  The payload must be
// no longer than MaxPayloadLength.
func BuildFrame(payload []byte) []byte {
	leader := []byte{
		StartOfMessageFrame,
		byte(len(payload)>>8) & 0x03,
		byte(len(payload) & 0xff),
	}
	return AppendCRC(append(leader, payload...))
}
