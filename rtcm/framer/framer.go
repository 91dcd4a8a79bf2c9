// The framer package turns an unbounded stream of byte chunks into RTCM3
// message frames.
//
// A valid RTCM3 message frame is a leader containing the start of message
// byte 0xd3 and two bytes containing a 10-bit message length, zero padded
// to the left, for example 0xd3, 0x00, 0x8a.  The variable-length message
// comes next and always starts with a 12-bit message type.  The frame
// ends with a 3-byte Cyclic Redundancy Check value.
//
// Data arrives from the network in chunks which bear no relation to the
// frame boundaries, so the Framer accumulates bytes across calls of Push:
//
//	f := framer.New()
//	for {
//	    n, err := conn.Read(buffer)
//	    ...
//	    for _, frame := range f.Push(buffer[:n]) {
//	        ...
//	    }
//	}
//
// Anything before a start of message byte is thrown away.  A frame whose
// CRC doesn't match is still returned, with CRCValid false, so that the
// caller can count the failure and still look at the contents.
package framer

import (
	"bytes"

	"github.com/goblimey/go-ntrip-analyser/rtcm/utils"
)

// compactThreshold is the size of the consumed prefix above which the
// accumulator is shifted down to the start of its backing array.
const compactThreshold = 8192

// Frame is a complete, length-delimited message frame.
type Frame struct {
	// RawData is the whole frame including the leader and the CRC.
	RawData []byte

	// Payload is the embedded message, without the leader and the CRC.
	Payload []byte

	// CRCValid is true if the CRC in the trailer matches the one
	// calculated from the leader and the payload.
	CRCValid bool
}

// MessageType returns the 12-bit message type at the start of the payload,
// or 0 if the payload is too short to hold one.
func (f *Frame) MessageType() int {
	if len(f.Payload) < 2 {
		return 0
	}
	return int(utils.GetBitsAsUint64(f.Payload, 0, utils.LenMessageType))
}

// Framer accumulates bytes and extracts frames from them.  It's not safe
// for concurrent use.  A stream reader should create one per connection.
type Framer struct {
	// buf holds the accumulated data.  The bytes before start have been
	// consumed.
	buf   []byte
	start int

	// discarded counts the bytes thrown away while looking for the start
	// of a frame.
	discarded uint64
}

// New creates a Framer.
func New() *Framer {
	return &Framer{buf: make([]byte, 0, 2*compactThreshold)}
}

// Push adds a chunk of data to the accumulator and returns any complete
// frames that are now available, in the order they arrived.
func (f *Framer) Push(chunk []byte) []Frame {

	f.buf = append(f.buf, chunk...)

	frames := make([]Frame, 0)

	for {
		window := f.buf[f.start:]

		// Phase 1: find the start of message frame byte.  If there isn't
		// one, nothing in the buffer can be part of a frame.
		preamble := bytes.IndexByte(window, utils.StartOfMessageFrame)
		if preamble < 0 {
			f.discarded += uint64(len(window))
			f.reset()
			break
		}
		if preamble > 0 {
			f.discarded += uint64(preamble)
			f.start += preamble
			window = window[preamble:]
		}

		// Phase 2: the leader gives the length of the embedded message.
		if len(window) < utils.LeaderLengthBytes {
			break
		}
		payloadLength := int(window[1]&0x03)<<8 | int(window[2])
		frameLength := utils.LeaderLengthBytes + payloadLength + utils.CRCLengthBytes
		if len(window) < frameLength {
			break
		}

		// Phase 3: we have a whole frame.  Take a copy so that the frame
		// doesn't share storage with the accumulator.
		raw := make([]byte, frameLength)
		copy(raw, window[:frameLength])
		f.start += frameLength

		crcLength := utils.LeaderLengthBytes + payloadLength
		computed := utils.CRC24Q(raw, 0, crcLength)
		given := utils.CRCFromTrailer(raw)

		frames = append(frames, Frame{
			RawData:  raw,
			Payload:  raw[utils.LeaderLengthBytes:crcLength],
			CRCValid: computed == given,
		})
	}

	f.compact()

	return frames
}

// Buffered returns the number of bytes held waiting for the rest of a frame.
func (f *Framer) Buffered() int {
	return len(f.buf) - f.start
}

// Discarded returns the number of bytes thrown away so far while looking
// for the start of a frame.
func (f *Framer) Discarded() uint64 {
	return f.discarded
}

// reset empties the accumulator, keeping its storage.
func (f *Framer) reset() {
	f.buf = f.buf[:0]
	f.start = 0
}

// compact moves the unconsumed bytes to the start of the backing array once
// the consumed prefix is large or is most of the buffer.
func (f *Framer) compact() {
	if f.start == 0 {
		return
	}
	if f.start == len(f.buf) {
		f.reset()
		return
	}
	if f.start < compactThreshold && f.start < len(f.buf)/2 {
		return
	}
	n := copy(f.buf, f.buf[f.start:])
	f.buf = f.buf[:n]
	f.start = 0
}
