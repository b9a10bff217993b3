package mscfb

import (
	"fmt"
	"io"
)

// rootRecorder keeps the mini stream extent in the starting sector and
// stream size fields of the root entry. It reads the first directory sector
// directly since the mini stream is opened before the directory.
type rootRecorder struct {
	sectors *Sectors
	header  *Header
}

func (r *rootRecorder) rootView() (*DataView, error) {
	first := r.header.FirstDirSector()
	if first == END_OF_CHAIN {
		return nil, nil
	}
	sector, err := r.sectors.Sector(first)
	if err != nil {
		return nil, fmt.Errorf("root entry sector %v: %v: %w", first, err, ErrorInvalidCFB)
	}
	return sector.SubView(0, DIR_ENTRY_LEN)
}

func (r *rootRecorder) MiniStream() (uint32, uint32, error) {
	view, err := r.rootView()
	if err != nil || view == nil {
		return END_OF_CHAIN, 0, err
	}
	first, err := view.uint32At(offStartingSector)
	if err != nil {
		return 0, 0, err
	}
	length, err := view.uint32At(offStreamSize)
	if err != nil {
		return 0, 0, err
	}
	if length == 0 {
		return END_OF_CHAIN, 0, nil
	}
	return first, length, nil
}

func (r *rootRecorder) RecordMiniStream(first, length uint32) error {
	view, err := r.rootView()
	if err != nil {
		return err
	}
	if view == nil {
		return fmt.Errorf("mini stream written before the root entry: %w", ErrorInvalidCFB)
	}
	if err := view.putUint32(offStartingSector, first); err != nil {
		return err
	}
	return view.putUint64(offStreamSize, uint64(length))
}

// Copy rebuilds the whole tree in a fresh container with the same options.
// Names, kinds, payloads, CLSIDs, state bits and timestamps are preserved, and
// every sibling tree keeps its shape and colors, so both containers traverse
// in the same order.
func (c *CompoundFile) Copy() (*CompoundFile, error) {
	opts := []Option{WithLogger(c.cfg.log), WithValidation(c.cfg.validation)}
	dst, err := New(opts...)
	if err != nil {
		return nil, err
	}

	srcRoot, err := c.RootStorage()
	if err != nil {
		return nil, err
	}
	dstRoot, err := dst.RootStorage()
	if err != nil {
		return nil, err
	}

	ids := map[uint32]uint32{srcRoot.ID: dstRoot.ID}
	pairs := [][2]*DirEntry{{srcRoot.DirEntry, dstRoot.DirEntry}}
	err = srcRoot.Traverse(func(e *DirEntry) error {
		if e.ID == srcRoot.ID {
			return nil
		}
		created, err := dst.directory.copyEntry(e)
		if err != nil {
			return err
		}
		ids[e.ID] = created.ID
		pairs = append(pairs, [2]*DirEntry{e, created})
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, pair := range pairs {
		if err := relink(pair[0], pair[1], ids); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// copyEntry creates an unlinked entry mirroring src's name, kind and payload.
func (d *Directory) copyEntry(src *DirEntry) (*DirEntry, error) {
	switch src.ObjectType() {
	case ObjStorage:
		return d.createStorage(src.Name())
	case ObjStream:
		data := []byte{}
		if src.HasStreamData() {
			stream, err := src.AsStream()
			if err != nil {
				return nil, err
			}
			if data, err = stream.Data(); err != nil {
				return nil, err
			}
		}
		return d.createStream(src.Name(), data)
	default:
		return nil, fmt.Errorf("entry %v has object type %v: %w", src.ID, src.ObjectType(), ErrorInvalidCFB)
	}
}

// relink points dst's siblings and child at the copies of src's, and copies
// its color and metadata.
func relink(src, dst *DirEntry, ids map[uint32]uint32) error {
	mapped := func(id uint32) (uint32, error) {
		if isFreeOrNoStream(id) {
			return NO_STREAM, nil
		}
		to, ok := ids[id]
		if !ok {
			return 0, fmt.Errorf("entry %v links to unvisited entry %v: %w", src.ID, id, ErrorInvalidCFB)
		}
		return to, nil
	}

	left, err := mapped(src.LeftSiblingID())
	if err != nil {
		return err
	}
	right, err := mapped(src.RightSiblingID())
	if err != nil {
		return err
	}
	child, err := mapped(src.ChildID())
	if err != nil {
		return err
	}
	dst.setLeftSiblingID(left)
	dst.setRightSiblingID(right)
	dst.setChildID(child)
	dst.SetColor(src.Color())

	dst.SetCLSID(src.CLSID())
	dst.SetStateBits(src.StateBits())
	dst.SetCreationTime(src.CreationTime())
	dst.SetModifiedTime(src.ModifiedTime())
	return nil
}

// WriteTo writes the container bytes to w.
func (c *CompoundFile) WriteTo(w io.Writer) (int64, error) {
	n, err := c.view.WriteTo(w)
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrorSave, err)
	}
	return n, nil
}

// Bytes returns a copy of the container bytes.
func (c *CompoundFile) Bytes() []byte {
	return c.view.Data()
}
