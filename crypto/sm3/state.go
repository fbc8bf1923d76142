package sm3

import (
	"encoding/binary"
)

const (
	magic256      = "sm3\x03"
	marshaledSize = len(magic256) + 8*4 + chunk + 8
)

// MarshalBinary saves the running state. A finalized Digest has none left
// and returns ErrFinalized.
func (d *Digest) MarshalBinary() ([]byte, error) {
	if d.done {
		return nil, ErrFinalized
	}
	b := make([]byte, 0, marshaledSize)
	b = append(b, magic256...)
	for _, v := range d.h {
		b = binary.BigEndian.AppendUint32(b, v)
	}
	b = append(b, d.x[:d.nx]...)
	b = b[:len(b)+len(d.x)-d.nx] // already zero
	b = binary.BigEndian.AppendUint64(b, d.len)
	return b, nil
}

// UnmarshalBinary restores a state produced by MarshalBinary. The trace
// logger, if any, is kept. On error d is left untouched.
func (d *Digest) UnmarshalBinary(b []byte) error {
	if len(b) < len(magic256) || (string(b[:len(magic256)]) != magic256) {
		return ErrInvalidState
	}
	if len(b) != marshaledSize {
		return ErrInvalidStateSize
	}
	b = b[len(magic256):]
	var h [8]uint32
	for i := range h {
		b, h[i] = consumeUint32(b)
	}
	var x [chunk]byte
	b = b[copy(x[:], b):]
	_, l := consumeUint64(b)
	if l > maxLen {
		return ErrTooLarge
	}
	d.h = h
	d.x = x
	d.len = l
	d.nx = int(l % chunk)
	d.n = l / chunk
	d.done = false
	d.sum = [Size]byte{}
	d.err = nil
	return nil
}

func consumeUint64(b []byte) ([]byte, uint64) {
	return b[8:], binary.BigEndian.Uint64(b)
}

func consumeUint32(b []byte) ([]byte, uint32) {
	return b[4:], binary.BigEndian.Uint32(b)
}
