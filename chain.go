package mscfb

import (
	"fmt"
	"io"
)

// StreamRW reads and writes stream payloads addressed by their first sector.
type StreamRW interface {
	Read(startingSector uint32, length int) ([]byte, error)
	ReadRange(startingSector uint32, from, to int) ([]byte, error)
	Write(data []byte) (uint32, error)
	WriteAt(startingSector uint32, position int, data []byte) error
	Append(startingSector uint32, currentSize int, data []byte) (uint32, error)
	CopyTo(startingSector uint32, length int, w io.Writer) error
}

// unitStore abstracts the granularity a chain is made of: regular sectors
// addressed through the FAT or mini sectors addressed through the MiniFAT.
type unitStore interface {
	unitLen() int
	buildChain(head uint32) ([]uint32, error)
	unit(position uint32) (*DataView, error)
	allocate(prev uint32) (uint32, error)
}

// chainRW implements StreamRW on top of a unitStore.
type chainRW struct {
	units unitStore
}

func (c *chainRW) Read(startingSector uint32, length int) ([]byte, error) {
	return c.ReadRange(startingSector, 0, length)
}

func (c *chainRW) ReadRange(startingSector uint32, from, to int) ([]byte, error) {
	if from < 0 || to < from {
		return nil, fmt.Errorf("read range [%v, %v): %w", from, to, ErrorOutOfRange)
	}
	out := make([]byte, 0, to-from)
	if to == from {
		return out, nil
	}

	chain, err := c.units.buildChain(startingSector)
	if err != nil {
		return nil, err
	}
	unitLen := c.units.unitLen()
	if to > len(chain)*unitLen {
		return nil, fmt.Errorf("read up to %v bytes from a chain of %v bytes: %w", to, len(chain)*unitLen, ErrorOutOfRange)
	}

	for i := from / unitLen; i*unitLen < to; i++ {
		view, err := c.units.unit(chain[i])
		if err != nil {
			return nil, err
		}
		lo := from - i*unitLen
		if lo < 0 {
			lo = 0
		}
		hi := to - i*unitLen
		if hi > unitLen {
			hi = unitLen
		}
		out = append(out, view.Bytes()[lo:hi]...)
	}
	return out, nil
}

// Write stores data in a new chain and returns its first position, or
// END_OF_CHAIN for empty data.
func (c *chainRW) Write(data []byte) (uint32, error) {
	return c.extend(END_OF_CHAIN, END_OF_CHAIN, data)
}

// extend appends units holding data after prev and returns the first
// position of the resulting chain.
func (c *chainRW) extend(first, prev uint32, data []byte) (uint32, error) {
	unitLen := c.units.unitLen()
	for i := 0; i < len(data); i += unitLen {
		position, err := c.units.allocate(prev)
		if err != nil {
			return 0, err
		}
		view, err := c.units.unit(position)
		if err != nil {
			return 0, err
		}
		end := i + unitLen
		if end > len(data) {
			end = len(data)
		}
		if err := view.WriteAt(0, data[i:end]); err != nil {
			return 0, err
		}
		if first == END_OF_CHAIN {
			first = position
		}
		prev = position
	}
	return first, nil
}

func (c *chainRW) writeAt(chain []uint32, position int, data []byte) error {
	unitLen := c.units.unitLen()
	if position < 0 || position+len(data) > len(chain)*unitLen {
		return fmt.Errorf("write [%v, %v) into a chain of %v bytes: %w",
			position, position+len(data), len(chain)*unitLen, ErrorOutOfRange)
	}
	for written := 0; written < len(data); {
		at := position + written
		view, err := c.units.unit(chain[at/unitLen])
		if err != nil {
			return err
		}
		n := unitLen - at%unitLen
		if n > len(data)-written {
			n = len(data) - written
		}
		if err := view.WriteAt(at%unitLen, data[written:written+n]); err != nil {
			return err
		}
		written += n
	}
	return nil
}

// WriteAt overwrites bytes of an existing chain. It never grows the chain.
func (c *chainRW) WriteAt(startingSector uint32, position int, data []byte) error {
	chain, err := c.units.buildChain(startingSector)
	if err != nil {
		return err
	}
	return c.writeAt(chain, position, data)
}

// Append adds data after the first currentSize bytes of the chain, filling
// the tail unit before allocating new ones. It returns the first position of
// the chain, which only changes when the chain was empty.
func (c *chainRW) Append(startingSector uint32, currentSize int, data []byte) (uint32, error) {
	if startingSector == END_OF_CHAIN {
		return c.Write(data)
	}
	chain, err := c.units.buildChain(startingSector)
	if err != nil {
		return 0, err
	}
	capacity := len(chain) * c.units.unitLen()
	if currentSize < 0 || currentSize > capacity {
		return 0, fmt.Errorf("stream of %v bytes does not fit its chain of %v bytes: %w", currentSize, capacity, ErrorInvalidCFB)
	}

	n := capacity - currentSize
	if n > len(data) {
		n = len(data)
	}
	if err := c.writeAt(chain, currentSize, data[:n]); err != nil {
		return 0, err
	}
	return c.extend(startingSector, chain[len(chain)-1], data[n:])
}

func (c *chainRW) CopyTo(startingSector uint32, length int, w io.Writer) error {
	data, err := c.Read(startingSector, length)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// RegularStreamRW stores payloads in chains of regular sectors.
type RegularStreamRW struct {
	chainRW

	fat     *FAT
	sectors *Sectors
}

func NewRegularStreamRW(fat *FAT, sectors *Sectors) *RegularStreamRW {
	rw := &RegularStreamRW{
		fat:     fat,
		sectors: sectors,
	}
	rw.chainRW = chainRW{units: rw}
	return rw
}

func (rw *RegularStreamRW) unitLen() int {
	return rw.sectors.SectorLen()
}

func (rw *RegularStreamRW) buildChain(head uint32) ([]uint32, error) {
	return rw.fat.BuildChain(head)
}

func (rw *RegularStreamRW) unit(position uint32) (*DataView, error) {
	sector, err := rw.sectors.Sector(position)
	if err != nil {
		return nil, err
	}
	return sector.DataView, nil
}

func (rw *RegularStreamRW) allocate(prev uint32) (uint32, error) {
	sector, err := rw.fat.Allocate(SectorInitZero, prev)
	if err != nil {
		return 0, err
	}
	return sector.Position, nil
}
