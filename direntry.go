package mscfb

import (
	"fmt"
	"time"

	"github.com/asalih/go-cfbf/internal/codec"
	"github.com/google/uuid"
)

// Byte offsets of the directory entry fields.
const (
	offEntryName       = 0
	offEntryNameLen    = 64
	offObjectType      = 66
	offColorFlag       = 67
	offLeftSibling     = 68
	offRightSibling    = 72
	offChild           = 76
	offEntryCLSID      = 80
	offStateBits       = 96
	offCreationTime    = 100
	offModifiedTime    = 108
	offStartingSector  = 116
	offStreamSize      = 120
	maxNameFieldLength = 64
)

// DirEntry is one 128-byte directory record. Relations to other entries
// are positions in the directory, resolved through it on every access.
type DirEntry struct {
	ID uint32

	dir  *Directory
	view *DataView
}

func newDirEntry(dir *Directory, id uint32, view *DataView) (*DirEntry, error) {
	if view.Size() != DIR_ENTRY_LEN {
		return nil, fmt.Errorf("directory entry is %v bytes, expected %v: %w", view.Size(), DIR_ENTRY_LEN, ErrorOutOfRange)
	}
	e := &DirEntry{ID: id, dir: dir, view: view}

	nameLen := e.NameLen()
	if nameLen > maxNameFieldLength || nameLen%2 != 0 {
		return nil, fmt.Errorf("directory entry %v has name length %v: %w", id, nameLen, ErrorInvalidCFB)
	}
	if _, err := codec.DecodeName(e.b()[offEntryName : offEntryName+nameLen]); err != nil {
		return nil, fmt.Errorf("directory entry %v name: %v: %w", id, err, ErrorInvalidCFB)
	}
	if _, err := parseObjectType(e.b()[offObjectType]); err != nil {
		return nil, fmt.Errorf("directory entry %v: %w", id, err)
	}
	if _, err := parseColor(e.b()[offColorFlag]); err != nil {
		return nil, fmt.Errorf("directory entry %v: %w", id, err)
	}
	return e, nil
}

// initDirEntry writes an unallocated entry into view.
func initDirEntry(view *DataView) {
	b := view.Bytes()
	for i := range b {
		b[i] = 0
	}
	copy(b[offLeftSibling:], codec.LE32(NO_STREAM))
	copy(b[offRightSibling:], codec.LE32(NO_STREAM))
	copy(b[offChild:], codec.LE32(NO_STREAM))
}

func (e *DirEntry) b() []byte {
	return e.view.Bytes()
}

func (e *DirEntry) get(off int) uint32 {
	return codec.U32LE(e.b()[off:])
}

func (e *DirEntry) set(off int, v uint32) {
	copy(e.b()[off:], codec.LE32(v))
}

func (e *DirEntry) NameLen() int {
	return int(codec.U16LE(e.b()[offEntryNameLen:]))
}

// Name returns the entry name without its terminator. Names are checked when
// the entry is resolved, so decoding does not fail here.
func (e *DirEntry) Name() string {
	name, err := codec.DecodeName(e.b()[offEntryName : offEntryName+e.NameLen()])
	if err != nil {
		return ""
	}
	return name
}

// SetName stores name as UTF-16 with a terminating zero.
func (e *DirEntry) SetName(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	encoded, err := codec.EncodeName(name)
	if err != nil {
		return fmt.Errorf("%v: %w", err, ErrorInvalidName)
	}
	field := make([]byte, maxNameFieldLength)
	copy(field, encoded)
	copy(e.b()[offEntryName:], field)
	copy(e.b()[offEntryNameLen:], codec.LE16(uint16(len(encoded)+2)))
	return nil
}

func (e *DirEntry) ObjectType() ObjectType {
	return ObjectType(e.b()[offObjectType])
}

func (e *DirEntry) setObjectType(t ObjectType) {
	e.b()[offObjectType] = byte(t)
}

func (e *DirEntry) Color() Color {
	return Color(e.b()[offColorFlag])
}

func (e *DirEntry) SetColor(c Color) {
	e.b()[offColorFlag] = byte(c)
}

func (e *DirEntry) LeftSiblingID() uint32  { return e.get(offLeftSibling) }
func (e *DirEntry) RightSiblingID() uint32 { return e.get(offRightSibling) }
func (e *DirEntry) ChildID() uint32        { return e.get(offChild) }

func (e *DirEntry) setLeftSiblingID(id uint32)  { e.set(offLeftSibling, id) }
func (e *DirEntry) setRightSiblingID(id uint32) { e.set(offRightSibling, id) }
func (e *DirEntry) setChildID(id uint32)        { e.set(offChild, id) }

func (e *DirEntry) resolve(id uint32) (*DirEntry, error) {
	if isFreeOrNoStream(id) {
		return nil, nil
	}
	return e.dir.EntryByID(id)
}

// LeftSibling returns the left sibling, or nil when there is none.
func (e *DirEntry) LeftSibling() (*DirEntry, error) {
	return e.resolve(e.LeftSiblingID())
}

// RightSibling returns the right sibling, or nil when there is none.
func (e *DirEntry) RightSibling() (*DirEntry, error) {
	return e.resolve(e.RightSiblingID())
}

// Child returns the root of the entry's child tree, or nil when there is none.
func (e *DirEntry) Child() (*DirEntry, error) {
	return e.resolve(e.ChildID())
}

func (e *DirEntry) CLSID() uuid.UUID {
	return codec.DecodeCLSID(e.b()[offEntryCLSID:])
}

func (e *DirEntry) SetCLSID(id uuid.UUID) {
	copy(e.b()[offEntryCLSID:], codec.EncodeCLSID(id))
}

func (e *DirEntry) StateBits() uint32 {
	return e.get(offStateBits)
}

func (e *DirEntry) SetStateBits(v uint32) {
	e.set(offStateBits, v)
}

func (e *DirEntry) CreationTime() time.Time {
	return codec.FiletimeToTime(codec.U64LE(e.b()[offCreationTime:]))
}

func (e *DirEntry) SetCreationTime(t time.Time) {
	copy(e.b()[offCreationTime:], codec.LE64(codec.TimeToFiletime(t)))
}

func (e *DirEntry) ModifiedTime() time.Time {
	return codec.FiletimeToTime(codec.U64LE(e.b()[offModifiedTime:]))
}

func (e *DirEntry) SetModifiedTime(t time.Time) {
	copy(e.b()[offModifiedTime:], codec.LE64(codec.TimeToFiletime(t)))
}

func (e *DirEntry) StartingSector() uint32 {
	return e.get(offStartingSector)
}

func (e *DirEntry) setStartingSector(s uint32) {
	e.set(offStartingSector, s)
}

// StreamSize returns the payload length. Version 3 only uses the low 32 bits.
func (e *DirEntry) StreamSize() uint64 {
	return codec.U64LE(e.b()[offStreamSize:]) & V3.StreamLenMask()
}

func (e *DirEntry) setStreamSize(n uint64) {
	copy(e.b()[offStreamSize:], codec.LE64(n&V3.StreamLenMask()))
}

// HasStreamData reports whether the entry is a stream with allocated storage.
func (e *DirEntry) HasStreamData() bool {
	return e.ObjectType() == ObjStream && e.StartingSector() != END_OF_CHAIN
}

// Traverse visits the entry, then its left sibling tree, then its right
// sibling tree, then its child tree.
func (e *DirEntry) Traverse(fn func(*DirEntry) error) error {
	return e.traverse(fn, true)
}

func (e *DirEntry) traverse(fn func(*DirEntry) error, descend bool) error {
	if err := fn(e); err != nil {
		return err
	}
	next := []func() (*DirEntry, error){e.LeftSibling, e.RightSibling}
	if descend {
		next = append(next, e.Child)
	}
	for _, get := range next {
		n, err := get()
		if err != nil {
			return err
		}
		if n == nil {
			continue
		}
		if err := n.traverse(fn, descend); err != nil {
			return err
		}
	}
	return nil
}

// AsStorage narrows the entry to a storage. The root entry is a storage too.
func (e *DirEntry) AsStorage() (*Storage, error) {
	switch e.ObjectType() {
	case ObjStorage, ObjRoot:
		return &Storage{DirEntry: e}, nil
	default:
		return nil, fmt.Errorf("entry %q is a %v, not a storage: %w", e.Name(), e.ObjectType(), ErrorUnsupported)
	}
}

// AsStream narrows the entry to a stream.
func (e *DirEntry) AsStream() (*StreamEntry, error) {
	if e.ObjectType() != ObjStream {
		return nil, fmt.Errorf("entry %q is a %v, not a stream: %w", e.Name(), e.ObjectType(), ErrorUnsupported)
	}
	return &StreamEntry{DirEntry: e}, nil
}

func (e *DirEntry) String() string {
	return fmt.Sprintf("%v %q (id %v)", e.ObjectType(), e.Name(), e.ID)
}
