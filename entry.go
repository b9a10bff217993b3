package mscfb

import (
	"time"

	"github.com/google/uuid"
)

// Entry is a detached snapshot of a directory entry's metadata.
type Entry struct {
	Name         string
	Path         string
	ObjType      ObjectType
	CLSID        uuid.UUID
	StateBits    uint32
	CreationTime time.Time
	ModifiedTime time.Time
	StreamLen    uint64
}

func NewEntry(dirEntry *DirEntry, path string) *Entry {
	entry := Entry{
		Name:         dirEntry.Name(),
		Path:         path,
		ObjType:      dirEntry.ObjectType(),
		CLSID:        dirEntry.CLSID(),
		StateBits:    dirEntry.StateBits(),
		CreationTime: dirEntry.CreationTime(),
		ModifiedTime: dirEntry.ModifiedTime(),
		StreamLen:    dirEntry.StreamSize(),
	}

	return &entry
}

func (e *Entry) IsStream() bool {
	return e.ObjType == ObjStream
}

func (e *Entry) IsStorage() bool {
	return e.ObjType == ObjStorage || e.ObjType == ObjRoot
}

func (e *Entry) IsRoot() bool {
	return e.ObjType == ObjRoot
}
