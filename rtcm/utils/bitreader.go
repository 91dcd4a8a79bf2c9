package utils

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned (wrapped) when a read would consume more bits
// than remain in the buffer.
var ErrOutOfRange = errors.New("bit read out of range")

// BitReader reads bit fields of arbitrary width from a byte slice, most
// significant bit first, crossing byte boundaries as necessary.  This is
// how RTCM3 packs its fields:  a 12-bit message type, a 12-bit station ID,
// a 30-bit timestamp and so on, one after the other with no padding.
//
// The reader never modifies the slice.  A failed read leaves the cursor
// where it was.
type BitReader struct {
	buf []byte
	pos uint
}

// NewBitReader creates a BitReader positioned at the first bit of buf.
func NewBitReader(buf []byte) *BitReader {
	return &BitReader{buf: buf}
}

// Len returns the total number of bits in the buffer.
func (r *BitReader) Len() uint {
	return uint(len(r.buf)) * 8
}

// Position returns the number of bits consumed so far.
func (r *BitReader) Position() uint {
	return r.pos
}

// BitsRemaining returns the number of bits not yet consumed.
func (r *BitReader) BitsRemaining() uint {
	return r.Len() - r.pos
}

// ReadUnsigned reads the next n bits (1 to 64) as an unsigned value.
func (r *BitReader) ReadUnsigned(n uint) (uint64, error) {
	if n < 1 || n > 64 {
		em := fmt.Sprintf("bit field width %d is outside the range 1-64", n)
		return 0, errors.New(em)
	}
	if n > r.BitsRemaining() {
		return 0, fmt.Errorf("%w: want %d bits, %d remaining at position %d",
			ErrOutOfRange, n, r.BitsRemaining(), r.pos)
	}

	result := GetBitsAsUint64(r.buf, r.pos, n)
	r.pos += n
	return result, nil
}

// ReadSigned reads the next n bits (1 to 64) as a two's complement value.
func (r *BitReader) ReadSigned(n uint) (int64, error) {
	uval, err := r.ReadUnsigned(n)
	if err != nil {
		return 0, err
	}
	return SignExtend(uval, n), nil
}

// ReadBool reads a one-bit flag.
func (r *BitReader) ReadBool() (bool, error) {
	bit, err := r.ReadUnsigned(1)
	if err != nil {
		return false, err
	}
	return bit == 1, nil
}

// Skip advances the cursor by n bits without returning them.
func (r *BitReader) Skip(n uint) error {
	if n > r.BitsRemaining() {
		return fmt.Errorf("%w: cannot skip %d bits, %d remaining at position %d",
			ErrOutOfRange, n, r.BitsRemaining(), r.pos)
	}
	r.pos += n
	return nil
}

// FieldReader wraps a BitReader and remembers the first error.  Once a read
// has failed, every later read returns zero, so a decoder can read a run of
// fixed fields and check Err once at the end.
type FieldReader struct {
	*BitReader
	err error
}

// NewFieldReader creates a FieldReader positioned at the first bit of buf.
func NewFieldReader(buf []byte) *FieldReader {
	return &FieldReader{BitReader: NewBitReader(buf)}
}

// Uint reads an unsigned field of n bits.
func (f *FieldReader) Uint(n uint) uint64 {
	if f.err != nil {
		return 0
	}
	v, err := f.ReadUnsigned(n)
	if err != nil {
		f.err = err
	}
	return v
}

// Int reads a two's complement field of n bits.
func (f *FieldReader) Int(n uint) int64 {
	if f.err != nil {
		return 0
	}
	v, err := f.ReadSigned(n)
	if err != nil {
		f.err = err
	}
	return v
}

// Bool reads a one-bit flag.
func (f *FieldReader) Bool() bool {
	return f.Uint(1) == 1
}

// Ignore skips n bits.
func (f *FieldReader) Ignore(n uint) {
	if f.err != nil {
		return
	}
	f.err = f.Skip(n)
}

// Err returns the first error, or nil.
func (f *FieldReader) Err() error {
	return f.err
}

// ReadUnsignedList reads count fields of width bits each.  A width of 0
// means the field is absent, so every element is nil.  Once the bits run
// out, that element and the ones after it are nil.
func (r *BitReader) ReadUnsignedList(count int, width uint) []*uint64 {
	list := make([]*uint64, count)
	if width == 0 {
		return list
	}
	for i := range list {
		if r.BitsRemaining() < width {
			break
		}
		v, _ := r.ReadUnsigned(width)
		list[i] = &v
	}
	return list
}

// ReadSignedList is ReadUnsignedList for two's complement fields.
func (r *BitReader) ReadSignedList(count int, width uint) []*int64 {
	list := make([]*int64, count)
	if width == 0 {
		return list
	}
	for i := range list {
		if r.BitsRemaining() < width {
			break
		}
		v, _ := r.ReadSigned(width)
		list[i] = &v
	}
	return list
}
