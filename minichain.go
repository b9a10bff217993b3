package mscfb

import (
	"fmt"

	"go.uber.org/zap"
)

// miniStreamRecorder persists the extent of the mini stream. The root
// directory entry is the only on-disk record of it.
type miniStreamRecorder interface {
	MiniStream() (first uint32, length uint32, err error)
	RecordMiniStream(first uint32, length uint32) error
}

// MiniStreamRW stores payloads in chains of 64-byte mini sectors. The mini
// sectors live inside the mini stream, itself a regular FAT chain.
type MiniStreamRW struct {
	chainRW

	miniFat  *MiniFAT
	fat      *FAT
	sectors  *Sectors
	recorder miniStreamRecorder
	log      *zap.Logger

	streamSectors []uint32
	firstSector   uint32
	length        uint32
}

func NewMiniStreamRW(miniFat *MiniFAT, fat *FAT, sectors *Sectors, recorder miniStreamRecorder, log *zap.Logger) (*MiniStreamRW, error) {
	first, length, err := recorder.MiniStream()
	if err != nil {
		return nil, err
	}

	streamSectors, err := fat.BuildChain(first)
	if err != nil {
		return nil, fmt.Errorf("mini stream chain: %w", err)
	}
	if int(length) > len(streamSectors)*sectors.SectorLen() {
		return nil, fmt.Errorf("mini stream is %v bytes, but its chain holds %v: %w",
			length, len(streamSectors)*sectors.SectorLen(), ErrorInvalidCFB)
	}

	rw := &MiniStreamRW{
		miniFat:       miniFat,
		fat:           fat,
		sectors:       sectors,
		recorder:      recorder,
		log:           log,
		streamSectors: streamSectors,
		firstSector:   first,
		length:        length,
	}
	rw.chainRW = chainRW{units: rw}
	miniFat.SetBound(rw.NumMiniSectors)
	return rw, nil
}

// FirstSector returns the first regular sector of the mini stream.
func (rw *MiniStreamRW) FirstSector() uint32 {
	return rw.firstSector
}

// Length returns the mini stream length in bytes.
func (rw *MiniStreamRW) Length() uint32 {
	return rw.length
}

func (rw *MiniStreamRW) NumMiniSectors() uint32 {
	return rw.length / uint32(MINI_SECTOR_LEN)
}

func (rw *MiniStreamRW) Write(data []byte) (uint32, error) {
	first, err := rw.chainRW.Write(data)
	if err != nil {
		return 0, err
	}
	return first, rw.record()
}

func (rw *MiniStreamRW) Append(startingSector uint32, currentSize int, data []byte) (uint32, error) {
	first, err := rw.chainRW.Append(startingSector, currentSize, data)
	if err != nil {
		return 0, err
	}
	return first, rw.record()
}

func (rw *MiniStreamRW) record() error {
	return rw.recorder.RecordMiniStream(rw.firstSector, rw.length)
}

func (rw *MiniStreamRW) unitLen() int {
	return MINI_SECTOR_LEN
}

func (rw *MiniStreamRW) buildChain(head uint32) ([]uint32, error) {
	return rw.miniFat.BuildChain(head)
}

func (rw *MiniStreamRW) unit(position uint32) (*DataView, error) {
	if position >= rw.NumMiniSectors() {
		return nil, fmt.Errorf("mini sector %v is beyond the %v mini sectors: %w", position, rw.NumMiniSectors(), ErrorOutOfRange)
	}
	offset := int(position) * MINI_SECTOR_LEN
	sectorLen := rw.sectors.SectorLen()
	sector, err := rw.sectors.Sector(rw.streamSectors[offset/sectorLen])
	if err != nil {
		return nil, err
	}
	return sector.SubView(offset%sectorLen, offset%sectorLen+MINI_SECTOR_LEN)
}

// allocate appends a mini sector to the mini stream, growing the mini
// stream by a regular sector when it is full.
func (rw *MiniStreamRW) allocate(prev uint32) (uint32, error) {
	position := rw.NumMiniSectors()
	if int(rw.length)+MINI_SECTOR_LEN > len(rw.streamSectors)*rw.sectors.SectorLen() {
		last := END_OF_CHAIN
		if len(rw.streamSectors) > 0 {
			last = rw.streamSectors[len(rw.streamSectors)-1]
		}
		sector, err := rw.fat.Allocate(SectorInitZero, last)
		if err != nil {
			return 0, err
		}
		rw.streamSectors = append(rw.streamSectors, sector.Position)
		if rw.firstSector == END_OF_CHAIN {
			rw.firstSector = sector.Position
		}
		rw.log.Debug("grew mini stream",
			zap.Uint32("sector", sector.Position),
			zap.Int("mini_stream_sectors", len(rw.streamSectors)))
	}
	rw.length += uint32(MINI_SECTOR_LEN)

	if err := rw.miniFat.RegisterSector(position, prev); err != nil {
		return 0, err
	}
	return position, nil
}
