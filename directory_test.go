package mscfb

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryGrows(t *testing.T) {
	file := newTestFile(t)
	root, err := file.RootStorage()
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, err := root.AddStream(fmt.Sprintf("stream%d", i), []byte{byte(i)})
		require.NoError(t, err)
	}
	assert.Equal(t, uint32(11), file.directory.Len())
	assert.Equal(t, uint32(12), file.directory.NumEntries())

	dirChain, err := file.fat.BuildChain(file.header.FirstDirSector())
	require.NoError(t, err)
	assert.Len(t, dirChain, 3)

	unused, err := file.directory.EntryByID(11)
	require.NoError(t, err)
	assert.Equal(t, ObjUnknown, unused.ObjectType())
	assert.Equal(t, NO_STREAM, unused.LeftSiblingID())

	_, err = file.directory.EntryByID(12)
	assert.ErrorIs(t, err, ErrorOutOfRange)

	reloaded := reload(t, file, ValidationStrict)
	assert.Equal(t, uint32(11), reloaded.directory.Len())
	for i := 0; i < 10; i++ {
		assert.Equal(t, []byte{byte(i)}, mustStreamData(t, reloaded, fmt.Sprintf("/stream%d", i)))
	}
}

func TestDirectoryRejectsCycle(t *testing.T) {
	file := newTestFile(t)
	root, err := file.RootStorage()
	require.NoError(t, err)
	for _, name := range []string{"a", "ab", "b"} {
		_, err := root.AddStream(name, []byte(name))
		require.NoError(t, err)
	}

	a, err := file.directory.EntryByID(1)
	require.NoError(t, err)
	require.Equal(t, "a", a.Name())
	top, err := root.Child()
	require.NoError(t, err)
	a.setLeftSiblingID(top.ID)

	_, err = FromBytes(file.Bytes())
	assert.ErrorIs(t, err, ErrorInvalidCFB)
}

func TestDirectoryRejectsBadPointers(t *testing.T) {
	file := newTestFile(t)
	root, err := file.RootStorage()
	require.NoError(t, err)
	stream, err := root.AddStream("s", []byte("x"))
	require.NoError(t, err)

	stream.setRightSiblingID(40)
	_, err = FromBytes(file.Bytes())
	assert.ErrorIs(t, err, ErrorInvalidCFB)

	stream.setRightSiblingID(NO_STREAM)
	stream.setChildID(0)
	_, err = FromBytes(file.Bytes())
	assert.ErrorIs(t, err, ErrorInvalidCFB, "a stream cannot have children")

	stream.setChildID(NO_STREAM)
	root.setLeftSiblingID(stream.ID)
	_, err = FromBytes(file.Bytes())
	assert.ErrorIs(t, err, ErrorInvalidCFB, "the root entry has no siblings")
}

func TestDirectoryRejectsCorruptName(t *testing.T) {
	file := newTestFile(t)
	root, err := file.RootStorage()
	require.NoError(t, err)
	stream, err := root.AddStream("s", []byte("x"))
	require.NoError(t, err)

	// A lone high surrogate in place of 's'.
	copy(stream.b()[offEntryName:], []byte{0x00, 0xd8})

	for _, validation := range []Validation{ValidationPermissive, ValidationStrict} {
		_, err = FromBytes(file.Bytes(), WithValidation(validation))
		assert.ErrorIs(t, err, ErrorInvalidCFB, validation.String())
	}
}

func TestDirectoryOrderingIsStrictOnly(t *testing.T) {
	file := newTestFile(t)
	root, err := file.RootStorage()
	require.NoError(t, err)
	for _, name := range []string{"a", "ab", "b"} {
		_, err := root.AddStream(name, []byte(name))
		require.NoError(t, err)
	}

	a, err := file.directory.EntryByID(1)
	require.NoError(t, err)
	require.NoError(t, a.SetName("zz"))
	data := file.Bytes()

	_, err = FromBytes(data, WithValidation(ValidationStrict))
	assert.ErrorIs(t, err, ErrorInvalidCFB)

	_, err = FromBytes(data, WithValidation(ValidationPermissive))
	require.NoError(t, err)
}

func TestDirectoryRejectsMissingRoot(t *testing.T) {
	file := newTestFile(t)
	root, err := file.RootStorage()
	require.NoError(t, err)
	root.setObjectType(ObjStorage)

	_, err = FromBytes(file.Bytes())
	assert.ErrorIs(t, err, ErrorInvalidCFB)
}

func TestCreateRootStorageTwice(t *testing.T) {
	file := newTestFile(t)
	_, err := file.directory.CreateRootStorage()
	assert.ErrorIs(t, err, ErrorAlreadyExists)
}

func TestStreamIDForNameChain(t *testing.T) {
	file := newTestFile(t)
	root, err := file.RootStorage()
	require.NoError(t, err)
	outer, err := root.AddStorage("Outer")
	require.NoError(t, err)
	inner, err := outer.AddStorage("Inner")
	require.NoError(t, err)
	leaf, err := inner.AddStream("Leaf", []byte("leaf"))
	require.NoError(t, err)

	id, err := file.directory.StreamIDForNameChain([]string{"outer", "INNER", "leaf"})
	require.NoError(t, err)
	assert.Equal(t, leaf.ID, id)

	id, err = file.directory.StreamIDForNameChain(nil)
	require.NoError(t, err)
	assert.Equal(t, ROOT_STREAM_ID, id)

	_, err = file.directory.StreamIDForNameChain([]string{"Outer", "Leaf"})
	assert.ErrorIs(t, err, ErrorNotFound)
}
