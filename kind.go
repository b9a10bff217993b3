package mscfb

import "fmt"

// ObjectType is the raw object type byte of a directory entry.
type ObjectType uint8

const (
	ObjUnknown = ObjectType(OBJ_TYPE_UNALLOCATED)
	ObjStorage = ObjectType(OBJ_TYPE_STORAGE)
	ObjStream  = ObjectType(OBJ_TYPE_STREAM)
	ObjRoot    = ObjectType(OBJ_TYPE_ROOT)
)

func parseObjectType(b byte) (ObjectType, error) {
	switch t := ObjectType(b); t {
	case ObjUnknown, ObjStorage, ObjStream, ObjRoot:
		return t, nil
	}
	return ObjUnknown, fmt.Errorf("unknown object type 0x%02x: %w", b, ErrorInvalidCFB)
}

func (o ObjectType) String() string {
	switch o {
	case ObjStorage:
		return "storage"
	case ObjStream:
		return "stream"
	case ObjRoot:
		return "root"
	}
	return "unknown"
}

// Color is the red-black flag of a directory entry.
type Color uint8

const (
	Red   = Color(COLOR_RED)
	Black = Color(COLOR_BLACK)
)

func parseColor(b byte) (Color, error) {
	if c := Color(b); c == Red || c == Black {
		return c, nil
	}
	return Red, fmt.Errorf("unknown color flag 0x%02x: %w", b, ErrorInvalidCFB)
}

func (c Color) String() string {
	if c == Black {
		return "black"
	}
	return "red"
}
