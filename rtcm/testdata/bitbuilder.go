// testdata contains helpers that build RTCM3 bit streams for the tests.
package testdata

import (
	"github.com/goblimey/go-ntrip-analyser/rtcm/utils"
)

// BitBuilder assembles a bit stream field by field, most significant bit
// first, the way an RTCM3 encoder packs a message.
type BitBuilder struct {
	buf   []byte
	nbits uint
}

// NewBitBuilder creates an empty BitBuilder.
func NewBitBuilder() *BitBuilder {
	return &BitBuilder{}
}

// Unsigned appends the bottom width bits of value.
func (b *BitBuilder) Unsigned(value uint64, width uint) *BitBuilder {
	for i := int(width) - 1; i >= 0; i-- {
		bit := (value >> uint(i)) & 1
		if b.nbits%8 == 0 {
			b.buf = append(b.buf, 0)
		}
		if bit == 1 {
			b.buf[len(b.buf)-1] |= 0x80 >> (b.nbits % 8)
		}
		b.nbits++
	}
	return b
}

// Signed appends value as a width-bit two's complement number.
func (b *BitBuilder) Signed(value int64, width uint) *BitBuilder {
	return b.Unsigned(uint64(value), width)
}

// Bool appends a one-bit flag.
func (b *BitBuilder) Bool(flag bool) *BitBuilder {
	if flag {
		return b.Unsigned(1, 1)
	}
	return b.Unsigned(0, 1)
}

// String appends an 8-bit length followed by the bytes of s.
func (b *BitBuilder) String(s string) *BitBuilder {
	b.Unsigned(uint64(len(s)), 8)
	for i := 0; i < len(s); i++ {
		b.Unsigned(uint64(s[i]), 8)
	}
	return b
}

// Len returns the number of bits appended so far.
func (b *BitBuilder) Len() uint {
	return b.nbits
}

// Bytes returns the bit stream zero-padded to a whole number of bytes.
func (b *BitBuilder) Bytes() []byte {
	result := make([]byte, len(b.buf))
	copy(result, b.buf)
	return result
}

// Frame returns the bit stream wrapped in a leader and CRC.
func (b *BitBuilder) Frame() []byte {
	return utils.BuildFrame(b.Bytes())
}

// MSMHeader appends an MSM header for the given message type with the
// given masks and these values:  station ID 1, epoch time 2000, single
// message, IODS 3, session transmission time 0, clock steering 1, external
// clock 2, smoothing true, smoothing interval 4.  cells holds the cell mask
// bits, satellite by satellite.
func (b *BitBuilder) MSMHeader(messageType int, satelliteMask uint64, signalMask uint32, cells ...bool) *BitBuilder {
	b.Unsigned(uint64(messageType), 12).
		Unsigned(1, 12).
		Unsigned(2000, 30).
		Bool(false).
		Unsigned(3, 3).
		Unsigned(0, 7).
		Unsigned(1, 2).
		Unsigned(2, 2).
		Bool(true).
		Unsigned(4, 3).
		Unsigned(satelliteMask, 64).
		Unsigned(uint64(signalMask), 32)
	for _, c := range cells {
		b.Bool(c)
	}
	return b
}
