package mscfb

import (
	"fmt"
	"io"

	"go.uber.org/zap"
)

// CompoundFile is an in-memory compound file. Every structure is a view
// over one byte arena, so the container can be written out at any time.
type CompoundFile struct {
	cfg *cfg

	view      *DataView
	header    *Header
	sectors   *Sectors
	difat     *DIFAT
	fat       *FAT
	miniFat   *MiniFAT
	mini      *MiniStreamRW
	streams   *StreamHolder
	directory *Directory
}

// New creates an empty container holding only the root storage.
func New(opts ...Option) (*CompoundFile, error) {
	c := defaultCfg()
	for _, opt := range opts {
		opt(c)
	}

	view := NewDataView()
	headerView, err := view.Allocate(HEADER_LEN)
	if err != nil {
		return nil, err
	}
	if _, err := NewEmptyHeader(headerView); err != nil {
		return nil, err
	}

	compoundFile, err := load(view, c)
	if err != nil {
		return nil, err
	}
	if _, err := compoundFile.directory.CreateRootStorage(); err != nil {
		return nil, err
	}
	return compoundFile, nil
}

// Open reads a whole container from reader.
func Open(reader io.Reader, opts ...Option) (*CompoundFile, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	return FromBytes(data, opts...)
}

// FromBytes loads a container from a copy of data. A trailing partial sector
// is zero padded.
func FromBytes(data []byte, opts ...Option) (*CompoundFile, error) {
	c := defaultCfg()
	for _, opt := range opts {
		opt(c)
	}

	if len(data) < HEADER_LEN {
		return nil, fmt.Errorf("file is too small (%v bytes): %w", len(data), ErrorInvalidCFB)
	}

	size := len(data)
	if rest := (size - HEADER_LEN) % V3.SectorLen(); rest != 0 {
		size += V3.SectorLen() - rest
	}
	buf := make([]byte, size)
	copy(buf, data)

	return load(DataViewFrom(buf), c)
}

func load(view *DataView, c *cfg) (*CompoundFile, error) {
	headerView, err := view.SubView(0, HEADER_LEN)
	if err != nil {
		return nil, err
	}
	header, err := ParseHeader(headerView, c.validation)
	if err != nil {
		return nil, err
	}

	sectors := NewSectors(header.Version, view, c.log)

	link := &fatToDifat{}
	difat, err := NewDIFAT(sectors, header, link, c.validation, c.log)
	if err != nil {
		return nil, err
	}
	link.difat = difat

	fatSectors, err := difat.FatSectorChain()
	if err != nil {
		return nil, err
	}
	if header.NumFatSectors() != uint32(len(fatSectors)) {
		if c.validation.IsStrict() {
			return nil, fmt.Errorf("incorrect number of FAT sectors (header says %v, DIFAT says %v): %w",
				header.NumFatSectors(), len(fatSectors), ErrorInvalidCFB)
		}
		c.log.Warn("FAT sector count mismatch",
			zap.Uint32("header", header.NumFatSectors()),
			zap.Int("difat", len(fatSectors)))
	}
	for _, sectorId := range fatSectors {
		if sectorId >= sectors.NumSectors() {
			return nil, fmt.Errorf("invalid FAT sector index %v: %w", sectorId, ErrorInvalidCFB)
		}
	}

	fat := NewFAT(sectors, header, fatSectors, link, c.log)
	link.fat = fat
	if err := fat.Validate(difat.DifatSectors(), c.validation); err != nil {
		return nil, err
	}

	miniFat, err := NewMiniFAT(sectors, header, fat, c.validation, c.log)
	if err != nil {
		return nil, err
	}
	mini, err := NewMiniStreamRW(miniFat, fat, sectors, &rootRecorder{sectors: sectors, header: header}, c.log)
	if err != nil {
		return nil, err
	}
	regular := NewRegularStreamRW(fat, sectors)
	streams := NewStreamHolder(regular, mini, header.MiniStreamCutoff(), c.log)

	directory, err := NewDirectory(sectors, fat, header, streams, c.validation, c.log)
	if err != nil {
		return nil, err
	}
	if err := miniFat.Validate(mini.NumMiniSectors()); err != nil {
		return nil, err
	}

	c.log.Info("compound file loaded",
		zap.Uint32("sectors", sectors.NumSectors()),
		zap.Int("fat_sectors", len(fatSectors)),
		zap.Int("difat_sectors", len(difat.DifatSectors())),
		zap.Uint32("directory_entries", directory.Len()),
		zap.Uint32("mini_stream_len", mini.Length()),
		zap.Stringer("validation", c.validation))

	return &CompoundFile{
		cfg:       c,
		view:      view,
		header:    header,
		sectors:   sectors,
		difat:     difat,
		fat:       fat,
		miniFat:   miniFat,
		mini:      mini,
		streams:   streams,
		directory: directory,
	}, nil
}

// RootStorage returns the root of the storage tree.
func (c *CompoundFile) RootStorage() (*RootStorage, error) {
	return c.directory.RootStorage()
}

func (c *CompoundFile) RootEntry() (*Entry, error) {
	root, err := c.directory.RootDirEntry()
	if err != nil {
		return nil, err
	}
	return NewEntry(root, "/"), nil
}

func (c *CompoundFile) dirEntry(path string) (*DirEntry, string, error) {
	names := NameChainFromPath(path)
	path = PathFromNameChain(names)
	streamId, err := c.directory.StreamIDForNameChain(names)
	if err != nil {
		return nil, path, err
	}
	entry, err := c.directory.EntryByID(streamId)
	if err != nil {
		return nil, path, err
	}
	return entry, path, nil
}

// Entry returns metadata for the entry at path.
func (c *CompoundFile) Entry(path string) (*Entry, error) {
	entry, path, err := c.dirEntry(path)
	if err != nil {
		return nil, err
	}
	return NewEntry(entry, path), nil
}

// Storage returns the storage at path.
func (c *CompoundFile) Storage(path string) (*Storage, error) {
	entry, _, err := c.dirEntry(path)
	if err != nil {
		return nil, err
	}
	return entry.AsStorage()
}

// StreamEntry returns the stream at path.
func (c *CompoundFile) StreamEntry(path string) (*StreamEntry, error) {
	entry, path, err := c.dirEntry(path)
	if err != nil {
		return nil, err
	}
	stream, err := entry.AsStream()
	if err != nil {
		return nil, fmt.Errorf("not a stream: %s: %w", path, err)
	}
	return stream, nil
}

// OpenStream returns a reader over the stream at path.
func (c *CompoundFile) OpenStream(path string) (*Stream, error) {
	stream, err := c.StreamEntry(path)
	if err != nil {
		return nil, err
	}
	return stream.Open(), nil
}

// Walk calls fn for every entry, parents before children. Children are
// visited in sibling tree order.
func (c *CompoundFile) Walk(fn func(*Entry) error) error {
	root, err := c.directory.RootDirEntry()
	if err != nil {
		return err
	}
	return c.walk(root, nil, fn)
}

func (c *CompoundFile) walk(entry *DirEntry, names []string, fn func(*Entry) error) error {
	if err := fn(NewEntry(entry, PathFromNameChain(names))); err != nil {
		return err
	}
	storage, err := entry.AsStorage()
	if err != nil {
		return nil
	}
	return storage.EachChild(func(child *DirEntry) error {
		childNames := append(names[:len(names):len(names)], child.Name())
		return c.walk(child, childNames, fn)
	})
}

// Info summarizes the container layout.
type Info struct {
	Version           Version
	CLSID             string
	NumSectors        uint32
	NumFatSectors     uint32
	NumDifatSectors   uint32
	NumMinifatSectors uint32
	NumDirEntries     uint32
	MiniStreamLen     uint32
	MiniStreamCutoff  uint32
}

func (c *CompoundFile) Info() Info {
	return Info{
		Version:           c.header.Version,
		CLSID:             c.header.CLSID().String(),
		NumSectors:        c.sectors.NumSectors(),
		NumFatSectors:     c.header.NumFatSectors(),
		NumDifatSectors:   c.header.NumDifatSectors(),
		NumMinifatSectors: c.header.NumMinifatSectors(),
		NumDirEntries:     c.directory.Len(),
		MiniStreamLen:     c.mini.Length(),
		MiniStreamCutoff:  c.header.MiniStreamCutoff(),
	}
}

// SectorData returns a copy of the sector at position.
func (c *CompoundFile) SectorData(position uint32) ([]byte, error) {
	sector, err := c.sectors.Sector(position)
	if err != nil {
		return nil, err
	}
	return sector.Data(), nil
}
