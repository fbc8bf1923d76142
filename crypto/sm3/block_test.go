package sm3

import (
	"encoding/binary"
	"encoding/hex"
	"math/bits"
	"testing"

	"github.com/stretchr/testify/require"
)

// "abc" after padding, the worked example of GB/T 32905-2016 appendix A.
func abcBlock() []byte {
	var b [chunk]byte
	copy(b[:], "abc")
	b[3] = 0x80
	binary.BigEndian.PutUint64(b[56:], 24)
	return b[:]
}

func TestExpand(t *testing.T) {
	w, w1 := expand(abcBlock())

	require.Equal(t, uint32(0x61626380), w[0])
	require.Equal(t, uint32(0x00000018), w[15])
	require.Equal(t, []uint32{
		0x9092e200, 0x00000000, 0x000c0606, 0x719c70ed, 0x00000000, 0x8001801f, 0x939f7da9, 0x00000000,
		0x2c6fa1f9, 0xadaaef14, 0x00000000, 0x0001801e, 0x9a965f89, 0x49710048, 0x23ce86a1, 0xb2d12f1b,
	}, w[16:32])
	require.Equal(t, []uint32{0x325c8f78, 0xaccb8011, 0xe11db9dd, 0xb99c0545}, w[64:68])

	for j := range w1 {
		require.Equal(t, w[j]^w[j+4], w1[j], "W'[%d]", j)
	}
}

func TestCompressABC(t *testing.T) {
	h := [8]uint32{init0, init1, init2, init3, init4, init5, init6, init7}
	compress(&h, abcBlock())

	var out [Size]byte
	for i, v := range h {
		binary.BigEndian.PutUint32(out[i*4:], v)
	}
	require.Equal(t, "66c7f0f462eeedd9d1f2d46bdc10e4e24167c4875cf2f7a2297da02b8f4ba8e0", hex.EncodeToString(out[:]))
}

func TestRoundConstants(t *testing.T) {
	for j, k := range _K {
		base := uint32(t0)
		if j >= 16 {
			base = t1
		}
		require.Equal(t, bits.RotateLeft32(base, j%32), k, "round %d", j)
	}

	require.Equal(t, uint32(0x79cc4519), _K[0])
	require.Equal(t, uint32(0x228cbce6), _K[15])
	require.Equal(t, uint32(0x9d8a7a87), _K[16])
	require.Equal(t, uint32(0x7a879d8a), _K[32])
	require.Equal(t, uint32(0x3d43cec5), _K[63])
}

func TestP0P1(t *testing.T) {
	require.Equal(t, uint32(0), p0(0))
	require.Equal(t, uint32(0), p1(0))
	require.Equal(t, uint32(1|1<<9|1<<17), p0(1))
	require.Equal(t, uint32(1|1<<15|1<<23), p1(1))
}
