package scale_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/beefy-relayer/scale"
)

func TestCompactRoundTrip(t *testing.T) {
	values := []uint64{
		0, 1, 42, 63,
		64, 16383,
		16384, 1<<30 - 1,
		1 << 30, 1 << 32, 1<<64 - 1,
	}
	for _, v := range values {
		w := scale.NewWriter()
		w.WriteCompact(v)

		r := scale.NewReader(w.Bytes())
		got, err := r.ReadCompact()
		require.NoError(t, err, "value %d", v)
		assert.Equal(t, v, got)
		assert.NoError(t, r.Close())
	}
}

func TestCompactEncodingWidth(t *testing.T) {
	cases := []struct {
		value uint64
		width int
	}{
		{0, 1},
		{63, 1},
		{64, 2},
		{16383, 2},
		{16384, 4},
		{1<<30 - 1, 4},
		{1 << 30, 5},
		{1<<40 - 1, 6},
		{1<<64 - 1, 9},
	}
	for _, c := range cases {
		w := scale.NewWriter()
		w.WriteCompact(c.value)
		assert.Len(t, w.Bytes(), c.width, "value %d", c.value)
	}
}

func TestFixedWidthIntegers(t *testing.T) {
	w := scale.NewWriter()
	w.WriteUint32(0xdeadbeef)
	w.WriteUint64(0x0123456789abcdef)

	// little-endian layout is contractual
	assert.Equal(t, []byte{0xef, 0xbe, 0xad, 0xde}, w.Bytes()[:4])

	r := scale.NewReader(w.Bytes())
	v32, err := r.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), v32)
	v64, err := r.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0123456789abcdef), v64)
	assert.NoError(t, r.Close())
}

func TestByteSliceAndOption(t *testing.T) {
	w := scale.NewWriter()
	w.WriteByteSlice([]byte("mmr-root"))
	w.WriteOptionString("channel-0", true)
	w.WriteOptionString("", false)

	r := scale.NewReader(w.Bytes())
	bz, err := r.ReadByteSlice()
	require.NoError(t, err)
	assert.Equal(t, []byte("mmr-root"), bz)

	s, ok, err := r.ReadOptionString()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "channel-0", s)

	s, ok, err = r.ReadOptionString()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "", s)
	assert.NoError(t, r.Close())
}

func TestReadCount(t *testing.T) {
	// two 33-byte elements fit exactly
	w := scale.NewWriter()
	w.WriteCompact(2)
	w.WriteBytes(make([]byte, 66))
	n, err := scale.NewReader(w.Bytes()).ReadCount(33)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	// a count the remaining input cannot hold is rejected before any allocation
	w = scale.NewWriter()
	w.WriteCompact(1 << 60)
	_, err = scale.NewReader(w.Bytes()).ReadCount(33)
	assert.ErrorIs(t, err, scale.ErrUnexpectedEOF)

	// off by one: three elements claimed, two present
	w = scale.NewWriter()
	w.WriteCompact(3)
	w.WriteBytes(make([]byte, 66))
	_, err = scale.NewReader(w.Bytes()).ReadCount(33)
	assert.ErrorIs(t, err, scale.ErrUnexpectedEOF)
}

func TestReadErrors(t *testing.T) {
	_, err := scale.NewReader(nil).ReadUint32()
	assert.ErrorIs(t, err, scale.ErrUnexpectedEOF)

	_, err = scale.NewReader([]byte{0x05}).ReadByteSlice() // length 1, no payload
	assert.ErrorIs(t, err, scale.ErrUnexpectedEOF)

	_, err = scale.NewReader([]byte{0x02}).ReadOption()
	assert.ErrorIs(t, err, scale.ErrInvalidOption)

	// big-integer mode wider than 8 bytes
	_, err = scale.NewReader([]byte{0x17, 0, 0, 0, 0, 0, 0, 0, 0, 0}).ReadCompact()
	assert.ErrorIs(t, err, scale.ErrCompactTooLarge)

	r := scale.NewReader([]byte{0x00, 0xff})
	_, err = r.ReadByte()
	require.NoError(t, err)
	assert.ErrorIs(t, r.Close(), scale.ErrTrailingBytes)
}
