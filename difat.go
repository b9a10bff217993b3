package mscfb

import (
	"fmt"

	"go.uber.org/zap"
)

// difatMarker is the part of the FAT the DIFAT needs.
type difatMarker interface {
	RegisterDifatSector(position uint32) error
}

// DIFAT locates the FAT sectors: the first 109 live in the header, the rest
// in a chain of DIFAT sectors, each ending with the position of the next.
type DIFAT struct {
	sectors *Sectors
	header  *Header
	fat     difatMarker
	log     *zap.Logger

	difatSectors []uint32
	// number of FAT positions stored in DIFAT sectors, not counting the header
	stored int
}

func NewDIFAT(sectors *Sectors, header *Header, fat difatMarker, validation Validation, log *zap.Logger) (*DIFAT, error) {
	d := &DIFAT{
		sectors: sectors,
		header:  header,
		fat:     fat,
		log:     log,
	}

	seenSectorIds := make(map[uint32]bool)
	currentDifatSector := header.FirstDifatSector()
	for currentDifatSector != END_OF_CHAIN {
		if currentDifatSector > MAX_REGULAR_SECTOR {
			return nil, fmt.Errorf("invalid DIFAT chain: %w", ErrorInvalidCFB)
		} else if currentDifatSector >= sectors.NumSectors() {
			return nil, fmt.Errorf("invalid DIFAT chain includes sector index %v: %w", currentDifatSector, ErrorInvalidCFB)
		}

		if seenSectorIds[currentDifatSector] {
			return nil, fmt.Errorf("DIFAT chain includes duplicate sector index %v: %w", currentDifatSector, ErrorInvalidCFB)
		}
		seenSectorIds[currentDifatSector] = true
		d.difatSectors = append(d.difatSectors, currentDifatSector)

		sector, err := sectors.Sector(currentDifatSector)
		if err != nil {
			return nil, err
		}
		currentDifatSector, err = sector.uint32At(sector.Size() - 4)
		if err != nil {
			return nil, err
		}
		// Some writers leave FREE_SECTOR as the final link.
		if currentDifatSector == FREE_SECTOR {
			currentDifatSector = END_OF_CHAIN
		}
	}

	if header.NumDifatSectors() != uint32(len(d.difatSectors)) {
		if validation.IsStrict() {
			return nil, fmt.Errorf("incorrect DIFAT chain length (header says %v, actual is %v): %w",
				header.NumDifatSectors(), len(d.difatSectors), ErrorInvalidCFB)
		}
		log.Warn("DIFAT sector count mismatch",
			zap.Uint32("header", header.NumDifatSectors()),
			zap.Int("actual", len(d.difatSectors)))
	}

	if _, err := d.FatSectorChain(); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *DIFAT) slotsPerSector() int {
	return d.sectors.SectorLen()/4 - 1
}

// DifatSectors returns the positions of the DIFAT sectors.
func (d *DIFAT) DifatSectors() []uint32 {
	out := make([]uint32, len(d.difatSectors))
	copy(out, d.difatSectors)
	return out
}

// FatSectorChain returns the FAT sector positions in table order.
func (d *DIFAT) FatSectorChain() ([]uint32, error) {
	fat := d.header.DifatEntries()
	d.stored = 0
	if len(fat) < NUM_DIFAT_ENTRIES_IN_HEADER {
		return fat, nil
	}

	numSectors := d.sectors.NumSectors()
	for _, position := range d.difatSectors {
		sector, err := d.sectors.Sector(position)
		if err != nil {
			return nil, err
		}
		for i := 0; i < d.slotsPerSector(); i++ {
			next, err := sector.uint32At(i * 4)
			if err != nil {
				return nil, err
			}
			if next == FREE_SECTOR {
				return fat, nil
			}
			if next > MAX_REGULAR_SECTOR || next >= numSectors {
				return nil, fmt.Errorf("invalid DIFAT refers to invalid sector index %v: %w", next, ErrorInvalidCFB)
			}
			fat = append(fat, next)
			d.stored++
		}
	}

	return fat, nil
}

// RegisterFatSector records a newly allocated FAT sector, first in the
// header slots and then in DIFAT sectors, which are added as needed.
func (d *DIFAT) RegisterFatSector(position uint32) error {
	if len(d.header.DifatEntries()) < NUM_DIFAT_ENTRIES_IN_HEADER {
		return d.header.RegisterFatSector(position)
	}

	sectorIndex := d.stored / d.slotsPerSector()
	slot := d.stored % d.slotsPerSector()

	var added *Sector
	if sectorIndex >= len(d.difatSectors) {
		sector, err := d.sectors.Allocate(SectorInitDifat)
		if err != nil {
			return err
		}
		if len(d.difatSectors) == 0 {
			d.header.SetFirstDifatSector(sector.Position)
		} else {
			prev, err := d.sectors.Sector(d.difatSectors[len(d.difatSectors)-1])
			if err != nil {
				return err
			}
			if err := prev.putUint32(prev.Size()-4, sector.Position); err != nil {
				return err
			}
		}
		d.difatSectors = append(d.difatSectors, sector.Position)
		d.header.SetNumDifatSectors(uint32(len(d.difatSectors)))
		added = sector

		d.log.Debug("allocated DIFAT sector",
			zap.Uint32("position", sector.Position),
			zap.Int("difat_sectors", len(d.difatSectors)))
	}

	sector, err := d.sectors.Sector(d.difatSectors[sectorIndex])
	if err != nil {
		return err
	}
	if err := sector.putUint32(slot*4, position); err != nil {
		return err
	}
	d.stored++

	// Marking the new DIFAT sector may grow the FAT, which registers another
	// FAT sector here; the slot for position is already taken by then.
	if added != nil {
		return d.fat.RegisterDifatSector(added.Position)
	}
	return nil
}

// fatToDifat lets the FAT and the DIFAT register sectors with each other
// without holding references to one another.
type fatToDifat struct {
	fat   *FAT
	difat *DIFAT
}

func (l *fatToDifat) RegisterFatSector(position uint32) error {
	return l.difat.RegisterFatSector(position)
}

func (l *fatToDifat) RegisterDifatSector(position uint32) error {
	return l.fat.RegisterDifatSector(position)
}
