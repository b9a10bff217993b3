package mscfb

import (
	"fmt"

	"go.uber.org/zap"
)

// Directory is the chain of directory sectors, four entries per sector.
// Entries are appended and never removed.
type Directory struct {
	sectors *Sectors
	fat     *FAT
	header  *Header
	streams *StreamHolder
	log     *zap.Logger

	dirSectors []uint32
	next       uint32
}

func NewDirectory(sectors *Sectors, fat *FAT, header *Header, streams *StreamHolder, validation Validation, log *zap.Logger) (*Directory, error) {
	chain, err := fat.BuildChain(header.FirstDirSector())
	if err != nil {
		return nil, fmt.Errorf("directory chain: %w", err)
	}

	d := &Directory{
		sectors:    sectors,
		fat:        fat,
		header:     header,
		streams:    streams,
		log:        log,
		dirSectors: chain,
	}
	if len(chain) == 0 {
		return d, nil
	}

	for id := uint32(0); id < d.NumEntries(); id++ {
		entry, err := d.EntryByID(id)
		if err != nil {
			return nil, err
		}
		if entry.ObjectType() != ObjUnknown {
			d.next = id + 1
		}
	}

	if err := d.Validate(validation); err != nil {
		return nil, err
	}
	return d, nil
}

// NumEntries returns the number of entry slots in the directory sectors.
func (d *Directory) NumEntries() uint32 {
	return uint32(len(d.dirSectors) * d.header.Version.DirEntriesPerSector())
}

// Len returns the number of slots in use.
func (d *Directory) Len() uint32 {
	return d.next
}

// EntryByID returns the entry at position id of the directory stream.
func (d *Directory) EntryByID(id uint32) (*DirEntry, error) {
	if id >= d.NumEntries() {
		return nil, fmt.Errorf("directory entry %v, but directory entry count is %v: %w", id, d.NumEntries(), ErrorOutOfRange)
	}
	perSector := uint32(d.header.Version.DirEntriesPerSector())
	sector, err := d.sectors.Sector(d.dirSectors[id/perSector])
	if err != nil {
		return nil, err
	}
	offset := int(id%perSector) * DIR_ENTRY_LEN
	view, err := sector.SubView(offset, offset+DIR_ENTRY_LEN)
	if err != nil {
		return nil, err
	}
	return newDirEntry(d, id, view)
}

func (d *Directory) RootDirEntry() (*DirEntry, error) {
	return d.EntryByID(ROOT_STREAM_ID)
}

// RootStorage returns the root entry.
func (d *Directory) RootStorage() (*RootStorage, error) {
	if d.next == 0 {
		return nil, fmt.Errorf("directory has no root entry: %w", ErrorInvalidCFB)
	}
	entry, err := d.RootDirEntry()
	if err != nil {
		return nil, err
	}
	if entry.ObjectType() != ObjRoot {
		return nil, fmt.Errorf("root entry has object type: %v: %w", entry.ObjectType(), ErrorInvalidCFB)
	}
	return &RootStorage{Storage: &Storage{DirEntry: entry}}, nil
}

// newEntry hands out the next unused slot, adding a directory sector when
// all slots are taken.
func (d *Directory) newEntry() (*DirEntry, error) {
	if d.next > MAX_REGULAR_STREAM_ID {
		return nil, fmt.Errorf("directory is full: %w", ErrorOutOfRange)
	}
	if d.next >= d.NumEntries() {
		prev := END_OF_CHAIN
		if len(d.dirSectors) > 0 {
			prev = d.dirSectors[len(d.dirSectors)-1]
		}
		sector, err := d.fat.Allocate(SectorInitDir, prev)
		if err != nil {
			return nil, err
		}
		d.dirSectors = append(d.dirSectors, sector.Position)
		if len(d.dirSectors) == 1 {
			d.header.SetFirstDirSector(sector.Position)
		}
		d.log.Debug("allocated directory sector",
			zap.Uint32("position", sector.Position),
			zap.Int("directory_sectors", len(d.dirSectors)))
	}

	entry, err := d.EntryByID(d.next)
	if err != nil {
		return nil, err
	}
	initDirEntry(entry.view)
	d.next++
	return entry, nil
}

func (d *Directory) newNamedEntry(name string, objType ObjectType) (*DirEntry, error) {
	entry, err := d.newEntry()
	if err != nil {
		return nil, err
	}
	if err := entry.SetName(name); err != nil {
		return nil, err
	}
	entry.setObjectType(objType)
	entry.SetColor(Black)
	entry.setStartingSector(END_OF_CHAIN)
	entry.setStreamSize(0)
	return entry, nil
}

// CreateRootStorage creates the root entry of an empty directory.
func (d *Directory) CreateRootStorage() (*RootStorage, error) {
	if d.next != 0 {
		return nil, fmt.Errorf("directory already has a root entry: %w", ErrorAlreadyExists)
	}
	if _, err := d.newNamedEntry(ROOT_DIR_NAME, ObjRoot); err != nil {
		return nil, err
	}
	return d.RootStorage()
}

func (d *Directory) createStorage(name string) (*DirEntry, error) {
	entry, err := d.newNamedEntry(name, ObjStorage)
	if err != nil {
		return nil, err
	}
	entry.setStartingSector(0)
	return entry, nil
}

func (d *Directory) createStream(name string, data []byte) (*DirEntry, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	start, err := d.streams.Write(data)
	if err != nil {
		return nil, err
	}
	entry, err := d.newNamedEntry(name, ObjStream)
	if err != nil {
		return nil, err
	}
	entry.setStartingSector(start)
	entry.setStreamSize(uint64(len(data)))
	return entry, nil
}

// Validate checks the root entry, entry kinds, pointer ranges and that the
// tree has no cycles. Strict validation also checks sibling name order.
func (d *Directory) Validate(validation Validation) error {
	rootDirEntry, err := d.RootDirEntry()
	if err != nil {
		return fmt.Errorf("directory has no root entry: %w", ErrorInvalidCFB)
	}
	if rootDirEntry.ObjectType() != ObjRoot {
		return fmt.Errorf("root entry has object type: %v: %w", rootDirEntry.ObjectType(), ErrorInvalidCFB)
	}
	if validation.IsStrict() && rootDirEntry.StreamSize()%uint64(MINI_SECTOR_LEN) != 0 {
		return fmt.Errorf("root stream len is %v, but should be multiple of %v: %w",
			rootDirEntry.StreamSize(), MINI_SECTOR_LEN, ErrorInvalidCFB)
	}

	visited := make(map[uint32]bool)
	stack := []uint32{ROOT_STREAM_ID}

	for len(stack) > 0 {
		dirEntryId := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[dirEntryId] {
			return fmt.Errorf("directory has a cycle: %w", ErrorInvalidCFB)
		}
		visited[dirEntryId] = true

		dirEntry, err := d.EntryByID(dirEntryId)
		if err != nil {
			return err
		}

		if dirEntryId != ROOT_STREAM_ID && dirEntry.ObjectType() != ObjStorage && dirEntry.ObjectType() != ObjStream {
			return fmt.Errorf("non-root entry %v with object type: %v: %w", dirEntryId, dirEntry.ObjectType(), ErrorInvalidCFB)
		}

		if leftSibling := dirEntry.LeftSiblingID(); leftSibling != NO_STREAM {
			if dirEntryId == ROOT_STREAM_ID {
				return fmt.Errorf("root entry has a left sibling: %w", ErrorInvalidCFB)
			}
			if err := d.checkSibling(dirEntry, leftSibling, OrderLess, validation); err != nil {
				return err
			}
			stack = append(stack, leftSibling)
		}

		if rightSibling := dirEntry.RightSiblingID(); rightSibling != NO_STREAM {
			if dirEntryId == ROOT_STREAM_ID {
				return fmt.Errorf("root entry has a right sibling: %w", ErrorInvalidCFB)
			}
			if err := d.checkSibling(dirEntry, rightSibling, OrderGreater, validation); err != nil {
				return err
			}
			stack = append(stack, rightSibling)
		}

		if child := dirEntry.ChildID(); child != NO_STREAM {
			if dirEntry.ObjectType() == ObjStream {
				return fmt.Errorf("stream entry %v has a child: %w", dirEntryId, ErrorInvalidCFB)
			}
			if child >= d.NumEntries() {
				return fmt.Errorf("child index is %v, but directory entry count is %v: %w",
					child, d.NumEntries(), ErrorInvalidCFB)
			}
			stack = append(stack, child)
		}
	}

	return nil
}

func (d *Directory) checkSibling(dirEntry *DirEntry, siblingID uint32, want Ordering, validation Validation) error {
	if siblingID >= d.NumEntries() {
		return fmt.Errorf("sibling index is %v, but directory entry count is %v: %w",
			siblingID, d.NumEntries(), ErrorInvalidCFB)
	}
	if !validation.IsStrict() {
		return nil
	}
	sibling, err := d.EntryByID(siblingID)
	if err != nil {
		return err
	}
	if CompareNames(sibling.Name(), dirEntry.Name()) != want {
		return fmt.Errorf("name ordering, %v vs %v: %w", sibling.Name(), dirEntry.Name(), ErrorInvalidCFB)
	}
	return nil
}

// StreamIDForNameChain resolves a chain of names, starting at the root.
func (d *Directory) StreamIDForNameChain(names []string) (uint32, error) {
	streamId := ROOT_STREAM_ID

	for _, name := range names {
		entry, err := d.EntryByID(streamId)
		if err != nil {
			return 0, err
		}
		streamId = entry.ChildID()
		for {
			if streamId == NO_STREAM {
				return 0, fmt.Errorf("stream not found: %v: %w", name, ErrorNotFound)
			}
			dirEntry, err := d.EntryByID(streamId)
			if err != nil {
				return 0, err
			}
			order := CompareNames(name, dirEntry.Name())
			if order == OrderEqual {
				break
			}

			switch order {
			case OrderLess:
				streamId = dirEntry.LeftSiblingID()
			case OrderGreater:
				streamId = dirEntry.RightSiblingID()
			}
		}
	}

	return streamId, nil
}
