package mscfb

import (
	"fmt"

	"github.com/asalih/go-cfbf/internal/codec"
	"go.uber.org/zap"
)

type SectorInit int

const (
	SectorInitZero SectorInit = iota
	SectorInitFat
	SectorInitDifat
	SectorInitDir
)

// Initialize fills a freshly allocated sector with the pattern its owner
// expects to find in unused slots.
func (s SectorInit) Initialize(sector *Sector) error {
	switch s {
	case SectorInitZero:
		return nil
	case SectorInitFat:
		return sector.Fill(codec.LE32(FREE_SECTOR))
	case SectorInitDifat:
		if err := sector.Fill(codec.LE32(FREE_SECTOR)); err != nil {
			return err
		}
		return sector.putUint32(sector.Size()-4, END_OF_CHAIN)
	case SectorInitDir:
		for off := 0; off+DIR_ENTRY_LEN <= sector.Size(); off += DIR_ENTRY_LEN {
			view, err := sector.SubView(off, off+DIR_ENTRY_LEN)
			if err != nil {
				return err
			}
			initDirEntry(view)
		}
		return nil
	default:
		return fmt.Errorf("unknown sector init %v: %w", int(s), ErrorUnsupported)
	}
}

// Sectors views the bytes following the header as a sequence of fixed-size
// sectors.
type Sectors struct {
	Version Version

	view *DataView
	log  *zap.Logger
}

// Sector is one sector-sized view tagged with its position.
type Sector struct {
	*DataView
	Position uint32
}

func NewSectors(v Version, view *DataView, log *zap.Logger) *Sectors {
	return &Sectors{
		Version: v,
		view:    view,
		log:     log,
	}
}

func (s *Sectors) SectorLen() int {
	return s.Version.SectorLen()
}

func (s *Sectors) NumSectors() uint32 {
	n := (s.view.Size() - HEADER_LEN) / s.SectorLen()
	if n < 0 {
		return 0
	}
	return uint32(n)
}

func (s *Sectors) offset(position uint32) int {
	return HEADER_LEN + int(position)*s.SectorLen()
}

// Sector returns the sector at position.
func (s *Sectors) Sector(position uint32) (*Sector, error) {
	if position >= s.NumSectors() {
		return nil, fmt.Errorf("tried to access sector %v, but sector count is only %v: %w",
			position, s.NumSectors(), ErrorOutOfRange)
	}

	start := s.offset(position)
	view, err := s.view.SubView(start, start+s.SectorLen())
	if err != nil {
		return nil, err
	}

	return &Sector{DataView: view, Position: position}, nil
}

// Allocate appends one sector to the container. Positions are handed out in
// increasing order and never reused.
func (s *Sectors) Allocate(init SectorInit) (*Sector, error) {
	position := s.NumSectors()
	if position > MAX_REGULAR_SECTOR {
		return nil, fmt.Errorf("sector space exhausted: %w", ErrorOutOfRange)
	}

	view, err := s.view.Allocate(s.SectorLen())
	if err != nil {
		return nil, err
	}

	sector := &Sector{DataView: view, Position: position}
	if err := init.Initialize(sector); err != nil {
		return nil, err
	}

	s.log.Debug("allocated sector", zap.Uint32("position", position), zap.Int("init", int(init)))
	return sector, nil
}
