package mscfb

import "errors"

var (
	// ErrorInvalidCFB is returned when the container violates the supported
	// format profile or its tables are corrupt.
	ErrorInvalidCFB = errors.New("invalid cfb file")
	// ErrorOutOfRange is returned when a view or sector access falls outside
	// the bytes it was granted.
	ErrorOutOfRange = errors.New("out of range")
	// ErrorUnsupported is returned for operations the target does not support.
	ErrorUnsupported = errors.New("unsupported operation")
	// ErrorInvalidName is returned for names that cannot be stored in a
	// directory entry.
	ErrorInvalidName = errors.New("invalid name")
	// ErrorAlreadyExists is returned when a storage already holds a child
	// with the same name.
	ErrorAlreadyExists = errors.New("entry already exists")
	// ErrorNotFound is returned when a path does not resolve.
	ErrorNotFound = errors.New("entry not found")
	// ErrorSave wraps I/O failures while writing the container out.
	ErrorSave = errors.New("unable to save compound file")
)
