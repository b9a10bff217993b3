package mscfb

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataViewAllocate(t *testing.T) {
	view := NewDataView()
	assert.Equal(t, 0, view.Size())

	first, err := view.Allocate(16)
	require.NoError(t, err)
	assert.Equal(t, 16, first.Size())

	second, err := view.Allocate(8)
	require.NoError(t, err)
	assert.Equal(t, 8, second.Size())
	assert.Equal(t, 24, view.Size())

	_, err = first.Allocate(4)
	assert.ErrorIs(t, err, ErrorUnsupported)

	_, err = view.Allocate(-1)
	assert.ErrorIs(t, err, ErrorOutOfRange)
}

func TestDataViewSubView(t *testing.T) {
	view := DataViewFrom([]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})

	sub, err := view.SubView(2, 6)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 3, 4, 5}, sub.Data())

	nested, err := sub.SubView(1, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 4}, nested.Data())

	tail, err := view.SubViewFrom(7)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 8, 9}, tail.Data())

	for _, r := range [][2]int{{-1, 3}, {0, 11}, {5, 4}} {
		_, err := view.SubView(r[0], r[1])
		assert.ErrorIs(t, err, ErrorOutOfRange, "range %v", r)
	}
	_, err = sub.SubView(0, 5)
	assert.ErrorIs(t, err, ErrorOutOfRange)
}

func TestDataViewWriteStaysInBounds(t *testing.T) {
	view := DataViewFrom(make([]byte, 8))
	sub, err := view.SubView(2, 4)
	require.NoError(t, err)

	require.NoError(t, sub.WriteAt(0, []byte{0xaa, 0xbb}))
	assert.Equal(t, []byte{0, 0, 0xaa, 0xbb, 0, 0, 0, 0}, view.Data())

	assert.ErrorIs(t, sub.WriteAt(1, []byte{1, 2}), ErrorOutOfRange)
	assert.ErrorIs(t, sub.WriteAt(-1, []byte{1}), ErrorOutOfRange)
	assert.Equal(t, []byte{0, 0, 0xaa, 0xbb, 0, 0, 0, 0}, view.Data())

	_, err = sub.ReadAt(1, 2)
	assert.ErrorIs(t, err, ErrorOutOfRange)
}

func TestDataViewSurvivesGrowth(t *testing.T) {
	view := NewDataView()
	first, err := view.Allocate(4)
	require.NoError(t, err)

	for i := 0; i < 64; i++ {
		_, err := view.Allocate(512)
		require.NoError(t, err)
	}

	require.NoError(t, first.WriteAt(0, []byte{1, 2, 3, 4}))
	assert.Equal(t, []byte{1, 2, 3, 4}, view.Bytes()[:4])

	got, err := first.ReadAt(1, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 3}, got)
}

func TestDataViewFill(t *testing.T) {
	view := DataViewFrom(make([]byte, 8))
	require.NoError(t, view.Fill([]byte{0xfe, 0xff}))
	assert.Equal(t, bytes.Repeat([]byte{0xfe, 0xff}, 4), view.Data())

	assert.ErrorIs(t, view.Fill([]byte{1, 2, 3}), ErrorOutOfRange)
	assert.ErrorIs(t, view.Fill(nil), ErrorOutOfRange)
}

func TestDataViewIntegers(t *testing.T) {
	view := DataViewFrom(make([]byte, 16))
	require.NoError(t, view.putUint16(0, 0xfffe))
	require.NoError(t, view.putUint32(2, 0xdeadbeef))
	require.NoError(t, view.putUint64(8, 0x0102030405060708))

	v16, err := view.uint16At(0)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xfffe), v16)

	v32, err := view.uint32At(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), v32)

	v64, err := view.uint64At(8)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), v64)
	assert.Equal(t, byte(0x08), view.Bytes()[8])

	_, err = view.uint32At(14)
	assert.ErrorIs(t, err, ErrorOutOfRange)
}

func TestDataViewWriteTo(t *testing.T) {
	view := DataViewFrom([]byte("hello world"))
	sub, err := view.SubView(6, 11)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := sub.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, "world", buf.String())
}
