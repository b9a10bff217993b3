package mscfb

import "fmt"

// Version is the major version of a compound file. It fixes the sector size.
type Version int

const (
	V3 Version = 3 // 512-byte sectors
	V4 Version = 4 // 4096-byte sectors, not supported for loading
)

func VersionNumber(v uint16) (Version, error) {
	switch Version(v) {
	case V3, V4:
		return Version(v), nil
	}
	return 0, fmt.Errorf("invalid version number: %v", v)
}

func (v Version) SectorShift() uint16 {
	if v == V4 {
		return 12
	}
	return 9
}

func (v Version) SectorLen() int {
	return 1 << v.SectorShift()
}

// StreamLenMask masks the stream size field; version 3 writers may leave
// garbage in the high 32 bits.
func (v Version) StreamLenMask() uint64 {
	if v == V4 {
		return 0xffffffffffffffff
	}
	return 0xffffffff
}

func (v Version) DirEntriesPerSector() int {
	return v.SectorLen() / DIR_ENTRY_LEN
}

// EntriesPerSector is the number of 4-byte allocation table entries per
// sector.
func (v Version) EntriesPerSector() int {
	return v.SectorLen() / 4
}
