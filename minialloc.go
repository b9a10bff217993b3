package mscfb

import (
	"fmt"

	"go.uber.org/zap"
)

// MiniFAT is the allocation table for 64-byte mini sectors. Its own sectors
// are a regular FAT chain starting at the header's first MiniFAT sector.
type MiniFAT struct {
	*allocTable

	header *Header
	fat    *FAT
	log    *zap.Logger
}

func NewMiniFAT(sectors *Sectors, header *Header, fat *FAT, validation Validation, log *zap.Logger) (*MiniFAT, error) {
	chain, err := fat.BuildChain(header.FirstMinifatSector())
	if err != nil {
		return nil, fmt.Errorf("MiniFAT chain: %w", err)
	}

	if header.NumMinifatSectors() != uint32(len(chain)) {
		if validation.IsStrict() {
			return nil, fmt.Errorf("incorrect number of MiniFAT sectors (header says %v, FAT says %v): %w",
				header.NumMinifatSectors(), len(chain), ErrorInvalidCFB)
		}
		log.Warn("MiniFAT sector count mismatch",
			zap.Uint32("header", header.NumMinifatSectors()),
			zap.Int("actual", len(chain)))
	}

	m := &MiniFAT{
		header: header,
		fat:    fat,
		log:    log,
	}
	m.allocTable = &allocTable{
		sectors: sectors,
		chain:   chain,
		grow:    m.allocateNewSector,
	}
	return m, nil
}

// SetBound limits chains to the mini sectors actually present in the mini
// stream.
func (m *MiniFAT) SetBound(bound func() uint32) {
	m.bound = bound
}

// allocateNewSector extends the MiniFAT by one regular sector, which is
// linked into the MiniFAT's own FAT chain.
func (m *MiniFAT) allocateNewSector() (*Sector, error) {
	prev := END_OF_CHAIN
	if len(m.chain) > 0 {
		prev = m.chain[len(m.chain)-1]
	}

	sector, err := m.fat.Allocate(SectorInitFat, prev)
	if err != nil {
		return nil, err
	}
	m.chain = append(m.chain, sector.Position)

	m.header.SetNumMinifatSectors(uint32(len(m.chain)))
	if len(m.chain) == 1 {
		m.header.SetFirstMinifatSector(sector.Position)
	}

	m.log.Debug("allocated MiniFAT sector",
		zap.Uint32("position", sector.Position),
		zap.Int("minifat_sectors", len(m.chain)))
	return sector, nil
}

// Validate checks that every MiniFAT entry in use points at an existing mini
// sector and that no mini sector is pointed to twice.
func (m *MiniFAT) Validate(numMiniSectors uint32) error {
	pointees := make(map[uint32]bool)
	for idx := uint32(0); idx < m.NumEntries() && idx < numMiniSectors; idx++ {
		v, err := m.Value(idx)
		if err != nil {
			return err
		}
		if v > MAX_REGULAR_SECTOR {
			continue
		}
		if v >= numMiniSectors {
			return fmt.Errorf("miniFAT[%v] points to mini sector %v, but there are only %v mini sectors: %w",
				idx, v, numMiniSectors, ErrorInvalidCFB)
		}
		if pointees[v] {
			return fmt.Errorf("mini sector %v pointed to twice: %w", v, ErrorInvalidCFB)
		}
		pointees[v] = true
	}
	return nil
}
