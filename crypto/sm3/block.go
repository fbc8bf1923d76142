package sm3

import (
	"encoding/binary"
	"math/bits"
)

const (
	t0 = 0x79cc4519
	t1 = 0x7a879d8a
)

func p0(x uint32) uint32 {
	return x ^ bits.RotateLeft32(x, 9) ^ bits.RotateLeft32(x, 17)
}

func p1(x uint32) uint32 {
	return x ^ bits.RotateLeft32(x, 15) ^ bits.RotateLeft32(x, 23)
}

// expand derives the two word schedules W (68 words) and W' (64 words)
// from one 64-byte block.
func expand(p []byte) (w [68]uint32, w1 [64]uint32) {
	_ = p[chunk-1]
	for j := 0; j < 16; j++ {
		w[j] = binary.BigEndian.Uint32(p[j*4:])
	}
	for j := 16; j < 68; j++ {
		w[j] = p1(w[j-16]^w[j-9]^bits.RotateLeft32(w[j-3], 15)) ^ bits.RotateLeft32(w[j-13], 7) ^ w[j-6]
	}
	for j := 0; j < 64; j++ {
		w1[j] = w[j] ^ w[j+4]
	}
	return
}

// compress runs the 64 rounds over one block and folds the result back
// into h.
func compress(h *[8]uint32, p []byte) {
	w, w1 := expand(p)

	a, b, c, d, e, f, g, hh := h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7]

	for j := 0; j < 64; j++ {
		a12 := bits.RotateLeft32(a, 12)
		ss1 := bits.RotateLeft32(a12+e+_K[j], 7)
		ss2 := ss1 ^ a12

		var ff, gg uint32
		if j < 16 {
			ff = a ^ b ^ c
			gg = e ^ f ^ g
		} else {
			ff = (a & b) | (a & c) | (b & c)
			gg = (e & f) | (^e & g)
		}
		tt1 := ff + d + ss2 + w1[j]
		tt2 := gg + hh + ss1 + w[j]

		d = c
		c = bits.RotateLeft32(b, 9)
		b = a
		a = tt1
		hh = g
		g = bits.RotateLeft32(f, 19)
		f = e
		e = p0(tt2)
	}

	h[0] ^= a
	h[1] ^= b
	h[2] ^= c
	h[3] ^= d
	h[4] ^= e
	h[5] ^= f
	h[6] ^= g
	h[7] ^= hh
}

// _K holds Tj <<< j for every round.
var _K = roundConstants()

// roundConstants rotates the previous constant by one each round and
// restarts from T1 <<< 16 at round 16.
func roundConstants() (k [64]uint32) {
	t := uint32(t0)
	for j := range k {
		if j == 16 {
			t = bits.RotateLeft32(t1, 16)
		} else if j > 0 {
			t = bits.RotateLeft32(t, 1)
		}
		k[j] = t
	}
	return
}
