package mscfb

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func newTestFile(t *testing.T) *CompoundFile {
	t.Helper()
	file, err := New(WithLogger(zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))))
	require.NoError(t, err)
	return file
}

// patterned returns n bytes that differ between neighbouring sectors.
func patterned(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + i/512)
	}
	return b
}

func reload(t *testing.T, file *CompoundFile, validation Validation) *CompoundFile {
	t.Helper()
	var buf bytes.Buffer
	_, err := file.WriteTo(&buf)
	require.NoError(t, err)

	reloaded, err := Open(&buf, WithValidation(validation))
	require.NoError(t, err)
	return reloaded
}

func mustStreamData(t *testing.T, file *CompoundFile, path string) []byte {
	t.Helper()
	stream, err := file.StreamEntry(path)
	require.NoError(t, err)
	data, err := stream.Data()
	require.NoError(t, err)
	return data
}

func TestNewFile(t *testing.T) {
	file := newTestFile(t)

	root, err := file.RootStorage()
	require.NoError(t, err)
	assert.Equal(t, ROOT_DIR_NAME, root.Name())
	assert.Equal(t, ObjRoot, root.ObjectType())
	assert.Equal(t, Black, root.Color())
	assert.Equal(t, uint32(0), root.ID)

	info := file.Info()
	assert.Equal(t, V3, info.Version)
	assert.Equal(t, uint32(2), info.NumSectors)
	assert.Equal(t, uint32(1), info.NumFatSectors)
	assert.Equal(t, uint32(1), info.NumDirEntries)
	assert.Zero(t, info.MiniStreamLen)
	assert.Len(t, file.Bytes(), HEADER_LEN+2*512)

	reloaded := reload(t, file, ValidationStrict)
	assert.Equal(t, file.Bytes(), reloaded.Bytes())
}

func TestSaveAndReload(t *testing.T) {
	file := newTestFile(t)
	root, err := file.RootStorage()
	require.NoError(t, err)

	docs, err := root.AddStorage("Docs")
	require.NoError(t, err)
	_, err = docs.AddStream("small", []byte("tiny payload"))
	require.NoError(t, err)
	_, err = docs.AddStream("large", patterned(10000))
	require.NoError(t, err)
	_, err = root.AddStream("empty", nil)
	require.NoError(t, err)

	for _, validation := range []Validation{ValidationPermissive, ValidationStrict} {
		t.Run(validation.String(), func(t *testing.T) {
			reloaded := reload(t, file, validation)
			assert.Equal(t, []byte("tiny payload"), mustStreamData(t, reloaded, "/Docs/small"))
			assert.Equal(t, patterned(10000), mustStreamData(t, reloaded, "Docs/large"))

			empty, err := reloaded.StreamEntry("/empty")
			require.NoError(t, err)
			assert.Zero(t, empty.Size())
			assert.Equal(t, file.Info(), reloaded.Info())
		})
	}
}

func TestEntryLookup(t *testing.T) {
	file := newTestFile(t)
	root, err := file.RootStorage()
	require.NoError(t, err)
	sub, err := root.AddStorage("Sub")
	require.NoError(t, err)
	_, err = sub.AddStream("Data", []byte{1, 2, 3})
	require.NoError(t, err)

	entry, err := file.Entry("/Sub/../Sub/data")
	require.NoError(t, err)
	assert.Equal(t, "Data", entry.Name)
	assert.Equal(t, "/Sub/data", entry.Path)
	assert.True(t, entry.IsStream())
	assert.Equal(t, uint64(3), entry.StreamLen)

	rootEntry, err := file.RootEntry()
	require.NoError(t, err)
	assert.True(t, rootEntry.IsRoot())
	assert.True(t, rootEntry.IsStorage())
	assert.Equal(t, "/", rootEntry.Path)

	_, err = file.Entry("/Sub/Missing")
	assert.ErrorIs(t, err, ErrorNotFound)

	_, err = file.OpenStream("/Sub")
	assert.ErrorIs(t, err, ErrorUnsupported)

	_, err = file.Storage("/Sub/Data")
	assert.ErrorIs(t, err, ErrorUnsupported)
}

func TestWalk(t *testing.T) {
	file := newTestFile(t)
	root, err := file.RootStorage()
	require.NoError(t, err)
	a, err := root.AddStorage("a")
	require.NoError(t, err)
	_, err = a.AddStream("x", []byte("x"))
	require.NoError(t, err)
	_, err = root.AddStream("b", []byte("b"))
	require.NoError(t, err)

	var paths []string
	require.NoError(t, file.Walk(func(e *Entry) error {
		paths = append(paths, e.Path)
		return nil
	}))
	assert.Equal(t, []string{"/", "/a", "/a/x", "/b"}, paths)

	stop := errors.New("stop")
	count := 0
	err = file.Walk(func(e *Entry) error {
		count++
		if count == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, count)
}

func TestCopy(t *testing.T) {
	file := newTestFile(t)
	root, err := file.RootStorage()
	require.NoError(t, err)

	clsid := uuid.MustParse("00020906-0000-0000-c000-000000000046")
	root.SetCLSID(clsid)
	stamp := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)

	names := []string{"WordDocument", "1Table", "Data", "ObjectPool", "\x05SummaryInformation"}
	for i, name := range names {
		stream, err := root.AddStream(name, patterned(i*3000))
		require.NoError(t, err)
		stream.SetModifiedTime(stamp)
	}

	storage, err := root.AddStorage("Objects")
	require.NoError(t, err)
	storage.SetStateBits(0x5)
	storage.SetCreationTime(stamp)
	nested, err := storage.AddStorage("Nested")
	require.NoError(t, err)
	_, err = nested.AddStream("payload", patterned(5000))
	require.NoError(t, err)

	copied, err := file.Copy()
	require.NoError(t, err)

	type shape struct {
		Path     string
		Type     ObjectType
		Len      uint64
		CLSID    uuid.UUID
		State    uint32
		Created  time.Time
		Modified time.Time
	}
	collect := func(f *CompoundFile) []shape {
		var out []shape
		require.NoError(t, f.Walk(func(e *Entry) error {
			out = append(out, shape{e.Path, e.ObjType, e.StreamLen, e.CLSID, e.StateBits, e.CreationTime, e.ModifiedTime})
			return nil
		}))
		return out
	}
	assert.Equal(t, collect(file), collect(copied))

	require.NoError(t, file.Walk(func(e *Entry) error {
		if !e.IsStream() || e.StreamLen == 0 {
			return nil
		}
		assert.Equal(t, mustStreamData(t, file, e.Path), mustStreamData(t, copied, e.Path), e.Path)
		return nil
	}))

	reload(t, copied, ValidationStrict)
}

func TestCopyKeepsSiblingTrees(t *testing.T) {
	file := newTestFile(t)
	root, err := file.RootStorage()
	require.NoError(t, err)

	for i := 0; i < 24; i++ {
		_, err := root.AddStream(fmt.Sprintf("s%02d", (i*7)%24), []byte{byte(i)})
		require.NoError(t, err)
	}
	storage, err := root.AddStorage("dir")
	require.NoError(t, err)
	for _, name := range []string{"m", "c", "x", "a", "e", "d"} {
		_, err := storage.AddStorage(name)
		require.NoError(t, err)
	}

	type node struct {
		Name  string
		Color Color
	}
	shape := func(f *CompoundFile) []node {
		r, err := f.RootStorage()
		require.NoError(t, err)
		var out []node
		require.NoError(t, r.Traverse(func(e *DirEntry) error {
			out = append(out, node{e.Name(), e.Color()})
			return nil
		}))
		return out
	}

	copied, err := file.Copy()
	require.NoError(t, err)
	assert.Equal(t, shape(file), shape(copied))

	reloaded := reload(t, copied, ValidationStrict)
	assert.Equal(t, shape(file), shape(reloaded))
	assert.Equal(t, []byte{3}, mustStreamData(t, reloaded, "/s21"))
}

func TestFromBytesPadsPartialSector(t *testing.T) {
	file := newTestFile(t)
	root, err := file.RootStorage()
	require.NoError(t, err)
	_, err = root.AddStream("tail", patterned(5000))
	require.NoError(t, err)

	data := file.Bytes()
	truncated := data[:len(data)-100]

	loaded, err := FromBytes(truncated, WithValidation(ValidationStrict))
	require.NoError(t, err)
	assert.Equal(t, data, loaded.Bytes())
	assert.Equal(t, patterned(5000), mustStreamData(t, loaded, "/tail"))
}

func TestFromBytesCopiesInput(t *testing.T) {
	file := newTestFile(t)
	data := file.Bytes()

	loaded, err := FromBytes(data)
	require.NoError(t, err)
	root, err := loaded.RootStorage()
	require.NoError(t, err)
	_, err = root.AddStream("s", []byte("abc"))
	require.NoError(t, err)

	assert.Equal(t, file.Bytes(), data)
}

func TestFromBytesRejects(t *testing.T) {
	_, err := FromBytes(make([]byte, 100))
	assert.ErrorIs(t, err, ErrorInvalidCFB)

	_, err = FromBytes(make([]byte, 1024))
	assert.ErrorIs(t, err, ErrorInvalidCFB)

	file := newTestFile(t)
	data := file.Bytes()
	// point the directory chain past the end of the file
	copy(data[48:], []byte{0x40, 0, 0, 0})
	_, err = FromBytes(data)
	assert.ErrorIs(t, err, ErrorInvalidCFB)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWriteToWrapsErrors(t *testing.T) {
	file := newTestFile(t)
	_, err := file.WriteTo(failingWriter{})
	assert.ErrorIs(t, err, ErrorSave)
}
