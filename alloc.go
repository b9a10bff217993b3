package mscfb

import (
	"fmt"

	"go.uber.org/zap"
)

// allocTable is the chain engine shared by the FAT and the MiniFAT. Entry
// pos is the 4-byte little-endian value at byte pos*4 of the concatenated
// sectors listed in chain.
type allocTable struct {
	sectors *Sectors
	chain   []uint32

	// bound returns the number of addressable units the table governs.
	bound func() uint32
	// grow appends one sector to chain.
	grow func() (*Sector, error)
}

func (t *allocTable) entriesPerSector() uint32 {
	return uint32(t.sectors.Version.EntriesPerSector())
}

// NumEntries returns how many entries the table sectors can hold.
func (t *allocTable) NumEntries() uint32 {
	return uint32(len(t.chain)) * t.entriesPerSector()
}

// SectorChain returns the positions of the sectors holding the table.
func (t *allocTable) SectorChain() []uint32 {
	out := make([]uint32, len(t.chain))
	copy(out, t.chain)
	return out
}

func (t *allocTable) entrySector(pos uint32) (*Sector, int, error) {
	sectorNumber := int(pos / t.entriesPerSector())
	offset := int(pos%t.entriesPerSector()) * 4
	if sectorNumber >= len(t.chain) {
		return nil, 0, fmt.Errorf("entry %v is beyond the %v table sectors: %w", pos, len(t.chain), ErrorOutOfRange)
	}
	sector, err := t.sectors.Sector(t.chain[sectorNumber])
	if err != nil {
		return nil, 0, err
	}
	return sector, offset, nil
}

// Value returns the entry stored for pos.
func (t *allocTable) Value(pos uint32) (uint32, error) {
	sector, offset, err := t.entrySector(pos)
	if err != nil {
		return 0, err
	}
	return sector.uint32At(offset)
}

func (t *allocTable) setValue(pos, value uint32) error {
	for pos >= t.NumEntries() {
		if t.grow == nil {
			return fmt.Errorf("entry %v is beyond a fixed table: %w", pos, ErrorOutOfRange)
		}
		if _, err := t.grow(); err != nil {
			return err
		}
	}
	sector, offset, err := t.entrySector(pos)
	if err != nil {
		return err
	}
	return sector.putUint32(offset, value)
}

// BuildChain follows next pointers from head until END_OF_CHAIN. A head of
// END_OF_CHAIN yields an empty chain.
func (t *allocTable) BuildChain(head uint32) ([]uint32, error) {
	chain := make([]uint32, 0)
	if head == END_OF_CHAIN {
		return chain, nil
	}

	limit := t.NumEntries()
	if t.bound != nil && t.bound() < limit {
		limit = t.bound()
	}

	current := head
	for {
		if current > MAX_REGULAR_SECTOR || current >= limit {
			return nil, fmt.Errorf("chain from %v refers to invalid position %v: %w", head, current, ErrorInvalidCFB)
		}
		if uint32(len(chain)) >= limit {
			return nil, fmt.Errorf("chain from %v contains a cycle: %w", head, ErrorInvalidCFB)
		}
		chain = append(chain, current)

		next, err := t.Value(current)
		if err != nil {
			return nil, err
		}
		if next == END_OF_CHAIN {
			return chain, nil
		}
		current = next
	}
}

// RegisterSector makes pos the new tail of a chain. When prev is not
// END_OF_CHAIN it is linked to pos.
func (t *allocTable) RegisterSector(pos, prev uint32) error {
	if err := t.setValue(pos, END_OF_CHAIN); err != nil {
		return err
	}
	if prev == END_OF_CHAIN {
		return nil
	}
	return t.setValue(prev, pos)
}

// difatRegistrar is the part of the DIFAT the FAT needs.
type difatRegistrar interface {
	RegisterFatSector(position uint32) error
}

// FAT is the primary allocation table. Its own sectors are marked
// FAT_SECTOR, DIFAT sectors are marked DIFAT_SECTOR.
type FAT struct {
	*allocTable

	header *Header
	difat  difatRegistrar
	log    *zap.Logger
}

func NewFAT(sectors *Sectors, header *Header, fatSectors []uint32, difat difatRegistrar, log *zap.Logger) *FAT {
	f := &FAT{
		header: header,
		difat:  difat,
		log:    log,
	}
	f.allocTable = &allocTable{
		sectors: sectors,
		chain:   fatSectors,
		bound:   sectors.NumSectors,
		grow:    f.allocateNewSector,
	}
	return f
}

// allocateNewSector appends a FAT sector. A FAT sector can describe itself,
// so the FAT_SECTOR mark may land in the sector being added.
func (f *FAT) allocateNewSector() (*Sector, error) {
	sector, err := f.sectors.Allocate(SectorInitFat)
	if err != nil {
		return nil, err
	}
	f.chain = append(f.chain, sector.Position)

	if err := f.difat.RegisterFatSector(sector.Position); err != nil {
		return nil, err
	}
	if err := f.setValue(sector.Position, FAT_SECTOR); err != nil {
		return nil, err
	}
	f.header.SetNumFatSectors(uint32(len(f.chain)))

	f.log.Debug("allocated FAT sector",
		zap.Uint32("position", sector.Position),
		zap.Int("fat_sectors", len(f.chain)))
	return sector, nil
}

// RegisterDifatSector marks position as holding DIFAT entries.
func (f *FAT) RegisterDifatSector(position uint32) error {
	return f.setValue(position, DIFAT_SECTOR)
}

// Allocate appends a sector to the container and makes it the tail of the
// chain ending at prev (END_OF_CHAIN starts a new chain).
func (f *FAT) Allocate(init SectorInit, prev uint32) (*Sector, error) {
	sector, err := f.sectors.Allocate(init)
	if err != nil {
		return nil, err
	}
	if err := f.RegisterSector(sector.Position, prev); err != nil {
		return nil, err
	}
	return sector, nil
}

// Validate cross-checks the FAT against the sectors the DIFAT says hold
// FAT and DIFAT data. In permissive mode missing marks are repaired.
func (f *FAT) Validate(difatSectors []uint32, validation Validation) error {
	numSectors := f.sectors.NumSectors()

	check := func(position, mark uint32, what string) error {
		if position >= numSectors {
			return fmt.Errorf("%v sector %v is beyond the %v sectors of the file: %w",
				what, position, numSectors, ErrorInvalidCFB)
		}
		v, err := f.Value(position)
		if err != nil {
			return fmt.Errorf("%v sector %v: %w", what, position, ErrorInvalidCFB)
		}
		if v == mark {
			return nil
		}
		if validation.IsStrict() {
			return fmt.Errorf("invalid %v sector %v is not marked as such in the FAT: %w", what, position, ErrorInvalidCFB)
		}
		f.log.Warn("repairing FAT mark", zap.String("kind", what), zap.Uint32("position", position))
		return f.setValue(position, mark)
	}

	for _, s := range difatSectors {
		if err := check(s, DIFAT_SECTOR, "DIFAT"); err != nil {
			return err
		}
	}
	for _, s := range f.chain {
		if err := check(s, FAT_SECTOR, "FAT"); err != nil {
			return err
		}
	}

	pointees := make(map[uint32]bool)
	for idx := uint32(0); idx < f.NumEntries(); idx++ {
		v, err := f.Value(idx)
		if err != nil {
			return err
		}
		if idx >= numSectors {
			if v != FREE_SECTOR && validation.IsStrict() {
				return fmt.Errorf("FAT entry %v describes a sector beyond the end of the file: %w", idx, ErrorInvalidCFB)
			}
			continue
		}
		switch {
		case v <= MAX_REGULAR_SECTOR:
			if v >= numSectors {
				return fmt.Errorf("invalid FAT entry %v points to sector %v, but file has only %v sectors: %w",
					idx, v, numSectors, ErrorInvalidCFB)
			}
			if pointees[v] {
				return fmt.Errorf("invalid FAT entry %v points to sector %v, which is already pointed to by another FAT entry: %w",
					idx, v, ErrorInvalidCFB)
			}
			pointees[v] = true
		case v == INVALID_SECTOR:
			return fmt.Errorf("invalid FAT entry %v points to sector %v, which is an invalid sector: %w", idx, v, ErrorInvalidCFB)
		}
	}

	return nil
}
