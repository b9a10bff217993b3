package codec

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegers(t *testing.T) {
	assert.Equal(t, uint16(0x0201), U16LE([]byte{1, 2}))
	assert.Equal(t, uint16(0x0102), U16BE([]byte{1, 2}))
	assert.Equal(t, uint32(0x04030201), U32LE([]byte{1, 2, 3, 4}))
	assert.Equal(t, uint32(0x01020304), U32BE([]byte{1, 2, 3, 4}))
	assert.Equal(t, uint64(0x0807060504030201), U64LE([]byte{1, 2, 3, 4, 5, 6, 7, 8}))

	assert.Equal(t, []byte{0xfe, 0xff, 0xff, 0xff}, LE32(0xfffffffe))
	assert.Equal(t, []byte{0x3e, 0x00}, LE16(0x3e))
	assert.Equal(t, []byte{0x00, 0x3e}, BE16(0x3e))
	assert.Equal(t, []byte{0, 0, 0x10, 0}, BE32(0x1000))
	assert.Equal(t, uint64(42), U64LE(LE64(42)))

	assert.Zero(t, U32LE([]byte{1, 2}), "short buffers decode to zero")
	assert.Zero(t, U16LE(nil))
}

func TestCLSID(t *testing.T) {
	raw := []byte{
		0x03, 0x02, 0x01, 0x00, 0x05, 0x04, 0x07, 0x06,
		0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f,
	}
	u := DecodeCLSID(raw)
	assert.Equal(t, uuid.MustParse("00010203-0405-0607-0809-0a0b0c0d0e0f"), u)
	assert.Equal(t, raw, EncodeCLSID(u))
	assert.Equal(t, uuid.Nil, DecodeCLSID(make([]byte, 16)))
}

func TestNames(t *testing.T) {
	encoded, err := EncodeName("Root Entry")
	require.NoError(t, err)
	assert.Len(t, encoded, 20)
	assert.Equal(t, []byte{'R', 0, 'o', 0}, encoded[:4])

	field := make([]byte, 64)
	copy(field, encoded)
	decoded, err := DecodeName(field)
	require.NoError(t, err)
	assert.Equal(t, "Root Entry", decoded)

	decoded, err = DecodeName([]byte{0x1f, 0x04, 0x40, 0x04, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, "Пр", decoded)

	decoded, err = DecodeName(make([]byte, 64))
	require.NoError(t, err)
	assert.Empty(t, decoded)

	decoded, err = DecodeName([]byte{0x3d, 0xd8, 0x00, 0xde, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, "\U0001F600", decoded)

	_, err = DecodeName([]byte{'a', 0, 0x3d, 0xd8, 0, 0})
	assert.Error(t, err, "high surrogate without a low one")
	_, err = DecodeName([]byte{0x00, 0xde, 'a', 0})
	assert.Error(t, err, "lone low surrogate")
}

func TestTrimTrailingZeros(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{name: "empty", in: []byte{}, want: []byte{}},
		{name: "no zeros", in: []byte{'a', 0, 'b', 0}, want: []byte{'a', 0, 'b', 0}},
		{name: "terminator", in: []byte{'a', 0, 0, 0, 0, 0}, want: []byte{'a', 0}},
		{name: "odd length", in: []byte{'a', 0, 0}, want: []byte{'a', 0}},
		{name: "only zeros", in: []byte{0, 0, 0, 0}, want: []byte{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TrimTrailingZeros(tt.in))
		})
	}
}

func TestFiletime(t *testing.T) {
	assert.True(t, FiletimeToTime(0).IsZero())
	assert.Zero(t, TimeToFiletime(time.Time{}))

	// 2000-01-01T00:00:00Z
	const y2k = 125911584000000000
	assert.Equal(t, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), FiletimeToTime(y2k))
	assert.Equal(t, uint64(y2k), TimeToFiletime(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)))

	now := time.Now().UTC().Truncate(100 * time.Nanosecond)
	assert.True(t, now.Equal(FiletimeToTime(TimeToFiletime(now))))
}

func TestDump(t *testing.T) {
	assert.Contains(t, Dump([]byte("CFB")), "43 46 42")
}
