// Package sm3 implements the ShangMi SM3 hash algorithm.
package sm3

// [GM/T] SM3 GB/T 32905-2016

import (
	"encoding/binary"
	"errors"
	"hash"
	"log/slog"
)

// Size the size of a SM3 checksum in bytes.
const Size = 32

// BlockSize the blocksize of SM3 in bytes.
const BlockSize = 64

const (
	chunk = 64
	init0 = 0x7380166f
	init1 = 0x4914b2b9
	init2 = 0x172442d7
	init3 = 0xda8a0600
	init4 = 0xa96f30bc
	init5 = 0x163138aa
	init6 = 0xe38dee4d
	init7 = 0xb0fb0e4e

	// the length field is 64 bits wide, so at most 2^64-1 bits may be absorbed
	maxLen = 1<<61 - 1
)

var (
	// ErrTooLarge reports an input longer than the 64-bit length field can encode.
	ErrTooLarge         = errors.New("sm3: message longer than 2^64-1 bits")
	// ErrFinalized reports use of a Digest consumed by Finalize.
	ErrFinalized        = errors.New("sm3: digest already finalized")
	// ErrInvalidState and ErrInvalidStateSize reject malformed marshaled states.
	ErrInvalidState     = errors.New("sm3: invalid hash state identifier")
	ErrInvalidStateSize = errors.New("sm3: invalid hash state size")
)

// Digest holds the running state of one SM3 computation.
// A Digest must not be used from several goroutines at once.
//
// Unlike the hash.Hash contract, Write may fail: with ErrFinalized after
// Finalize and with ErrTooLarge past 2^64-1 bits. io.Copy(d, r) surfaces
// both.
type Digest struct {
	h    [8]uint32
	x    [chunk]byte
	nx   int
	len  uint64
	n    uint64 // compressed blocks, for tracing
	done bool
	sum  [Size]byte // set by Finalize
	err  error

	trace *slog.Logger
}

var _ hash.Hash = (*Digest)(nil)

// Option configures a Digest created by New.
type Option func(*Digest)

// WithTrace logs every compressed block and the resulting registers at debug level.
func WithTrace(l *slog.Logger) Option {
	return func(d *Digest) {
		d.trace = l
	}
}

// New returns a Digest in its initial state. The Digest also implements
// encoding.BinaryMarshaler and encoding.BinaryUnmarshaler to marshal and
// unmarshal the internal state of the hash.
func New(opts ...Option) *Digest {
	d := new(Digest)
	for _, v := range opts {
		v(d)
	}
	d.Reset()
	return d
}

// Reset resets the Digest to its initial state.
func (d *Digest) Reset() {
	d.h[0] = init0
	d.h[1] = init1
	d.h[2] = init2
	d.h[3] = init3
	d.h[4] = init4
	d.h[5] = init5
	d.h[6] = init6
	d.h[7] = init7
	d.x = [chunk]byte{}
	d.nx = 0
	d.len = 0
	d.n = 0
	d.done = false
	d.sum = [Size]byte{}
	d.err = nil
}

// Size returns the digest length, 32 bytes.
func (d *Digest) Size() int { return Size }

// BlockSize returns the block length, 64 bytes.
func (d *Digest) BlockSize() int { return BlockSize }

// Len returns the number of bytes absorbed so far.
func (d *Digest) Len() uint64 { return d.len }

// Write absorbs p. Chunk boundaries never affect the digest.
// It fails only after Finalize or once the input exceeds 2^64-1 bits.
func (d *Digest) Write(p []byte) (nn int, e error) {
	if d.done {
		return 0, ErrFinalized
	}
	if d.err != nil {
		return 0, d.err
	}
	if uint64(len(p)) > maxLen-d.len {
		d.err = ErrTooLarge
		return 0, d.err
	}
	nn = len(p)
	d.len += uint64(nn)
	if d.nx > 0 {
		n := copy(d.x[d.nx:], p)
		d.nx += n
		if d.nx == chunk {
			d.block(d.x[:])
			d.nx = 0
		}
		p = p[n:]
	}
	for len(p) >= chunk {
		d.block(p[:chunk])
		p = p[chunk:]
	}
	if len(p) > 0 {
		d.nx = copy(d.x[:], p)
	}
	return
}

// Sum appends the current hash to in and returns the resulting slice.
// It does not change the underlying hash state. After Finalize it appends
// the digest Finalize returned.
func (d *Digest) Sum(in []byte) []byte {
	if d.done {
		return append(in, d.sum[:]...)
	}
	// Make a copy of d so that caller can keep writing and summing.
	d0 := *d
	d0.trace = nil
	hash := d0.checkSum()
	return append(in, hash[:]...)
}

// Finalize pads the message, runs the last compression and returns the
// digest. The Digest is consumed: Write and Finalize fail with ErrFinalized
// until Reset is called.
func (d *Digest) Finalize() (sum [Size]byte, e error) {
	if d.done {
		return sum, ErrFinalized
	}
	if d.err != nil {
		return sum, d.err
	}
	sum = d.checkSum()
	d.sum = sum
	d.done = true
	return
}

func (d *Digest) checkSum() (digest [Size]byte) {
	// Length in bits.
	l := d.len << 3

	d.x[d.nx] = 0x80
	d.nx++
	if d.nx > 56 {
		clear(d.x[d.nx:])
		d.block(d.x[:])
		d.nx = 0
	}
	clear(d.x[d.nx:56])
	binary.BigEndian.PutUint64(d.x[56:], l)
	d.block(d.x[:])
	d.nx = 0

	binary.BigEndian.PutUint32(digest[0:], d.h[0])
	binary.BigEndian.PutUint32(digest[4:], d.h[1])
	binary.BigEndian.PutUint32(digest[8:], d.h[2])
	binary.BigEndian.PutUint32(digest[12:], d.h[3])
	binary.BigEndian.PutUint32(digest[16:], d.h[4])
	binary.BigEndian.PutUint32(digest[20:], d.h[5])
	binary.BigEndian.PutUint32(digest[24:], d.h[6])
	binary.BigEndian.PutUint32(digest[28:], d.h[7])
	return
}

func (d *Digest) block(p []byte) {
	compress(&d.h, p)
	d.n++
	if d.trace != nil {
		d.trace.Debug("sm3 block", slog.Uint64("index", d.n-1), slog.Any("registers", d.h))
	}
}

// Sum returns the SM3 checksum of the data.
func Sum(data []byte) [Size]byte {
	var d Digest
	d.Reset()
	d.Write(data)
	return d.checkSum()
}

// SumBytes is Sum returning a slice.
func SumBytes(data []byte) []byte {
	sum := Sum(data)
	return sum[:]
}
