package mscfb

import (
	"bytes"
	"fmt"

	"github.com/asalih/go-cfbf/internal/codec"
	"github.com/google/uuid"
)

// Byte offsets of the header fields.
const (
	offSignature        = 0
	offCLSID            = 8
	offMinorVersion     = 24
	offMajorVersion     = 26
	offByteOrder        = 28
	offSectorShift      = 30
	offMiniSectorShift  = 32
	offReserved         = 34
	offNumDirSectors    = 40
	offNumFatSectors    = 44
	offFirstDirSector   = 48
	offTransactionSign  = 52
	offMiniStreamCutoff = 56
	offFirstMinifat     = 60
	offNumMinifat       = 64
	offFirstDifat       = 68
	offNumDifat         = 72
	offDifatEntries     = 76

	reservedAfterMiniShift = 6
)

// Header is the 512-byte record at offset 0. Every setter writes straight
// through to the underlying view.
type Header struct {
	Version Version

	view *DataView
}

// ParseHeader validates the header stored in view. Only the version 3
// profile (512-byte sectors, 64-byte mini sectors, 4096-byte cutoff) is
// accepted.
func ParseHeader(view *DataView, validation Validation) (*Header, error) {
	if view.Size() != HEADER_LEN {
		return nil, fmt.Errorf("header is %v bytes, expected %v: %w", view.Size(), HEADER_LEN, ErrorOutOfRange)
	}
	b := view.Bytes()

	if !bytes.Equal(b[offSignature:offSignature+len(MAGIC_NUMBER)], MAGIC_NUMBER) {
		return nil, fmt.Errorf("invalid CFB signature: %w", ErrorInvalidCFB)
	}

	byteOrderMark := codec.U16LE(b[offByteOrder:])
	if byteOrderMark != BYTE_ORDER_MARK {
		return nil, fmt.Errorf("invalid CFB byte order mark (expected 0x%04X, found 0x%04X): %w",
			BYTE_ORDER_MARK, byteOrderMark, ErrorInvalidCFB)
	}

	version, err := VersionNumber(codec.U16LE(b[offMajorVersion:]))
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrorInvalidCFB)
	}
	if version != V3 {
		return nil, fmt.Errorf("unsupported CFB version %v: %w", version, ErrorInvalidCFB)
	}

	sectorShift := codec.U16LE(b[offSectorShift:])
	if sectorShift != version.SectorShift() {
		return nil, fmt.Errorf("incorrect sector shift for CFB version %v (expected %v, found %v): %w",
			version, version.SectorShift(), sectorShift, ErrorInvalidCFB)
	}

	miniSectorShift := codec.U16LE(b[offMiniSectorShift:])
	if miniSectorShift != MINI_SECTOR_SHIFT {
		return nil, fmt.Errorf("incorrect mini sector shift (expected %v, found %v): %w",
			MINI_SECTOR_SHIFT, miniSectorShift, ErrorInvalidCFB)
	}

	for _, r := range b[offReserved : offReserved+reservedAfterMiniShift] {
		if r != 0 {
			return nil, fmt.Errorf("reserved header bytes are not zero: %w", ErrorInvalidCFB)
		}
	}

	// Version 3 has no directory sector count.
	if numDirSectors := codec.U32LE(b[offNumDirSectors:]); numDirSectors != 0 {
		return nil, fmt.Errorf("number of directory sectors must be zero for version 3, found %v: %w",
			numDirSectors, ErrorInvalidCFB)
	}

	miniStreamCutoff := codec.U32LE(b[offMiniStreamCutoff:])
	if miniStreamCutoff != MINI_STREAM_CUTOFF {
		return nil, fmt.Errorf("incorrect mini stream cutoff (expected %v, found %v): %w",
			MINI_STREAM_CUTOFF, miniStreamCutoff, ErrorInvalidCFB)
	}

	h := &Header{Version: version, view: view}

	// Some CFB implementations use FREE_SECTOR to indicate END_OF_CHAIN.
	if h.FirstDifatSector() == FREE_SECTOR {
		if validation.IsStrict() {
			return nil, fmt.Errorf("first DIFAT sector is FREE_SECTOR: %w", ErrorInvalidCFB)
		}
		h.SetFirstDifatSector(END_OF_CHAIN)
	}

	return h, nil
}

// NewEmptyHeader writes a fresh version 3 header into view: every chain head
// is END_OF_CHAIN, every counter is zero and all inline DIFAT slots are free.
func NewEmptyHeader(view *DataView) (*Header, error) {
	if view.Size() != HEADER_LEN {
		return nil, fmt.Errorf("header is %v bytes, expected %v: %w", view.Size(), HEADER_LEN, ErrorOutOfRange)
	}
	b := view.Bytes()
	for i := range b {
		b[i] = 0
	}
	copy(b[offSignature:], MAGIC_NUMBER)
	copy(b[offMinorVersion:], codec.LE16(MINOR_VERSION))
	copy(b[offMajorVersion:], codec.LE16(uint16(V3)))
	copy(b[offByteOrder:], codec.LE16(BYTE_ORDER_MARK))
	copy(b[offSectorShift:], codec.LE16(V3.SectorShift()))
	copy(b[offMiniSectorShift:], codec.LE16(MINI_SECTOR_SHIFT))
	copy(b[offMiniStreamCutoff:], codec.LE32(MINI_STREAM_CUTOFF))
	for i := offDifatEntries; i < HEADER_LEN; i++ {
		b[i] = 0xff
	}

	h := &Header{Version: V3, view: view}
	h.SetFirstDirSector(END_OF_CHAIN)
	h.SetFirstMinifatSector(END_OF_CHAIN)
	h.SetFirstDifatSector(END_OF_CHAIN)
	return h, nil
}

func (h *Header) get(off int) uint32 {
	return codec.U32LE(h.view.Bytes()[off:])
}

func (h *Header) set(off int, v uint32) {
	copy(h.view.Bytes()[off:], codec.LE32(v))
}

func (h *Header) CLSID() uuid.UUID {
	return codec.DecodeCLSID(h.view.Bytes()[offCLSID:])
}

func (h *Header) MinorVersion() uint16 {
	return codec.U16LE(h.view.Bytes()[offMinorVersion:])
}

func (h *Header) SectorLen() int {
	return h.Version.SectorLen()
}

func (h *Header) MiniSectorLen() int {
	return 1 << codec.U16LE(h.view.Bytes()[offMiniSectorShift:])
}

func (h *Header) MiniStreamCutoff() uint32 {
	return h.get(offMiniStreamCutoff)
}

func (h *Header) TransactionSignature() uint32 {
	return h.get(offTransactionSign)
}

func (h *Header) NumFatSectors() uint32 {
	return h.get(offNumFatSectors)
}

func (h *Header) SetNumFatSectors(n uint32) {
	h.set(offNumFatSectors, n)
}

func (h *Header) FirstDirSector() uint32 {
	return h.get(offFirstDirSector)
}

func (h *Header) SetFirstDirSector(s uint32) {
	h.set(offFirstDirSector, s)
}

func (h *Header) FirstMinifatSector() uint32 {
	return h.get(offFirstMinifat)
}

func (h *Header) SetFirstMinifatSector(s uint32) {
	h.set(offFirstMinifat, s)
}

func (h *Header) NumMinifatSectors() uint32 {
	return h.get(offNumMinifat)
}

func (h *Header) SetNumMinifatSectors(n uint32) {
	h.set(offNumMinifat, n)
}

func (h *Header) FirstDifatSector() uint32 {
	return h.get(offFirstDifat)
}

func (h *Header) SetFirstDifatSector(s uint32) {
	h.set(offFirstDifat, s)
}

func (h *Header) NumDifatSectors() uint32 {
	return h.get(offNumDifat)
}

func (h *Header) SetNumDifatSectors(n uint32) {
	h.set(offNumDifat, n)
}

// DifatEntries returns the FAT sector positions held in the inline DIFAT
// slots, up to the first free slot.
func (h *Header) DifatEntries() []uint32 {
	entries := make([]uint32, 0, NUM_DIFAT_ENTRIES_IN_HEADER)
	for i := 0; i < NUM_DIFAT_ENTRIES_IN_HEADER; i++ {
		v := h.get(offDifatEntries + i*4)
		if v == FREE_SECTOR {
			break
		}
		entries = append(entries, v)
	}
	return entries
}

// RegisterFatSector stores position in the first free inline DIFAT slot.
func (h *Header) RegisterFatSector(position uint32) error {
	n := len(h.DifatEntries())
	if n >= NUM_DIFAT_ENTRIES_IN_HEADER {
		return fmt.Errorf("all %v header DIFAT slots are used: %w", NUM_DIFAT_ENTRIES_IN_HEADER, ErrorOutOfRange)
	}
	h.set(offDifatEntries+n*4, position)
	return nil
}
