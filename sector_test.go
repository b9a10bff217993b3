package mscfb

import (
	"bytes"
	"testing"

	"github.com/asalih/go-cfbf/internal/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSectors(t *testing.T) *Sectors {
	t.Helper()
	view := NewDataView()
	_, err := view.Allocate(HEADER_LEN)
	require.NoError(t, err)
	return NewSectors(V3, view, zap.NewNop())
}

func TestSectorsAllocate(t *testing.T) {
	sectors := newTestSectors(t)
	assert.Zero(t, sectors.NumSectors())

	for i := uint32(0); i < 3; i++ {
		sector, err := sectors.Allocate(SectorInitZero)
		require.NoError(t, err)
		assert.Equal(t, i, sector.Position)
		assert.Equal(t, 512, sector.Size())
	}
	assert.Equal(t, uint32(3), sectors.NumSectors())

	_, err := sectors.Sector(3)
	assert.ErrorIs(t, err, ErrorOutOfRange)

	first, err := sectors.Sector(0)
	require.NoError(t, err)
	require.NoError(t, first.WriteAt(0, []byte{9}))
	assert.Equal(t, byte(9), sectors.view.Bytes()[HEADER_LEN])
}

func TestSectorInit(t *testing.T) {
	sectors := newTestSectors(t)

	zero, err := sectors.Allocate(SectorInitZero)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 512), zero.Data())

	fat, err := sectors.Allocate(SectorInitFat)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xff}, 512), fat.Data())

	difat, err := sectors.Allocate(SectorInitDifat)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xff}, 508), difat.Data()[:508])
	assert.Equal(t, END_OF_CHAIN, codec.U32LE(difat.Data()[508:]))

	dir, err := sectors.Allocate(SectorInitDir)
	require.NoError(t, err)
	for off := 0; off < 512; off += DIR_ENTRY_LEN {
		b := dir.Data()[off : off+DIR_ENTRY_LEN]
		assert.Equal(t, NO_STREAM, codec.U32LE(b[offLeftSibling:]))
		assert.Equal(t, NO_STREAM, codec.U32LE(b[offRightSibling:]))
		assert.Equal(t, NO_STREAM, codec.U32LE(b[offChild:]))
		assert.Zero(t, b[offObjectType])
		assert.Zero(t, codec.U16LE(b[offEntryNameLen:]))
	}

	_, err = sectors.Allocate(SectorInit(99))
	assert.ErrorIs(t, err, ErrorUnsupported)
}

func TestOptions(t *testing.T) {
	c := defaultCfg()
	assert.Equal(t, ValidationPermissive, c.validation)
	require.NotNil(t, c.log)

	WithLogger(nil)(c)
	require.NotNil(t, c.log)

	log := zap.NewExample()
	WithLogger(log)(c)
	WithValidation(ValidationStrict)(c)
	assert.Same(t, log, c.log)
	assert.True(t, c.validation.IsStrict())
	assert.Equal(t, "strict", c.validation.String())
}
