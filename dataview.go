package mscfb

import (
	"fmt"
	"io"
	"math"

	"github.com/asalih/go-cfbf/internal/codec"
)

type arena struct {
	buf []byte
}

// DataView is a half-open window [start, end) over a growable byte arena.
// Views share the arena: a write through any view is visible through every
// other view covering the same bytes. Only the root view can grow.
type DataView struct {
	arena *arena
	start int
	end   int
	root  bool
}

// NewDataView returns an empty, growable root view.
func NewDataView() *DataView {
	return &DataView{arena: &arena{}, root: true}
}

// DataViewFrom returns a growable root view that takes ownership of data.
func DataViewFrom(data []byte) *DataView {
	return &DataView{arena: &arena{buf: data}, end: len(data), root: true}
}

func (v *DataView) limit() int {
	if v.root {
		return len(v.arena.buf)
	}
	return v.end
}

// Size returns the number of bytes granted to the view.
func (v *DataView) Size() int {
	return v.limit() - v.start
}

// Allocate appends length zero bytes to the arena and returns a view over
// the new region.
func (v *DataView) Allocate(length int) (*DataView, error) {
	if !v.root {
		return nil, fmt.Errorf("allocate on a sub view: %w", ErrorUnsupported)
	}
	if length < 0 {
		return nil, fmt.Errorf("allocate %v bytes: %w", length, ErrorOutOfRange)
	}
	start := len(v.arena.buf)
	v.arena.buf = append(v.arena.buf, make([]byte, length)...)
	return &DataView{arena: v.arena, start: start, end: start + length}, nil
}

// SubView returns a view over [start, end) relative to v.
func (v *DataView) SubView(start, end int) (*DataView, error) {
	if start < 0 || end > v.Size() || start > end {
		return nil, fmt.Errorf("sub view [%v, %v) of %v bytes: %w", start, end, v.Size(), ErrorOutOfRange)
	}
	return &DataView{arena: v.arena, start: v.start + start, end: v.start + end}, nil
}

// SubViewFrom returns a view over [start, Size()) relative to v.
func (v *DataView) SubViewFrom(start int) (*DataView, error) {
	return v.SubView(start, v.Size())
}

func (v *DataView) checkRange(offset, length int) error {
	if offset < 0 || length < 0 || offset > math.MaxInt-length || offset+length > v.Size() {
		return fmt.Errorf("range [%v, %v) of %v bytes: %w", offset, offset+length, v.Size(), ErrorOutOfRange)
	}
	return nil
}

// WriteAt copies b into the view at offset. It never writes past the bytes
// granted to the view.
func (v *DataView) WriteAt(offset int, b []byte) error {
	if err := v.checkRange(offset, len(b)); err != nil {
		return err
	}
	copy(v.arena.buf[v.start+offset:], b)
	return nil
}

// ReadAt returns a copy of length bytes starting at offset.
func (v *DataView) ReadAt(offset, length int) ([]byte, error) {
	if err := v.checkRange(offset, length); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, v.arena.buf[v.start+offset:])
	return out, nil
}

// Bytes returns the view's bytes, aliasing the arena. The slice is only
// valid until the next Allocate on the root view.
func (v *DataView) Bytes() []byte {
	return v.arena.buf[v.start:v.limit():v.limit()]
}

// Data returns a copy of the view's bytes.
func (v *DataView) Data() []byte {
	out := make([]byte, v.Size())
	copy(out, v.Bytes())
	return out
}

// Fill repeats filler over the whole view. The view size must be a multiple
// of the filler length.
func (v *DataView) Fill(filler []byte) error {
	if len(filler) == 0 || v.Size()%len(filler) != 0 {
		return fmt.Errorf("fill %v bytes with %v byte pattern: %w", v.Size(), len(filler), ErrorOutOfRange)
	}
	b := v.Bytes()
	for i := 0; i < len(b); i += len(filler) {
		copy(b[i:], filler)
	}
	return nil
}

// WriteTo writes the view's bytes to w.
func (v *DataView) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(v.Bytes())
	return int64(n), err
}

func (v *DataView) uint16At(offset int) (uint16, error) {
	if err := v.checkRange(offset, 2); err != nil {
		return 0, err
	}
	return codec.U16LE(v.arena.buf[v.start+offset:]), nil
}

func (v *DataView) uint32At(offset int) (uint32, error) {
	if err := v.checkRange(offset, 4); err != nil {
		return 0, err
	}
	return codec.U32LE(v.arena.buf[v.start+offset:]), nil
}

func (v *DataView) uint64At(offset int) (uint64, error) {
	if err := v.checkRange(offset, 8); err != nil {
		return 0, err
	}
	return codec.U64LE(v.arena.buf[v.start+offset:]), nil
}

func (v *DataView) putUint16(offset int, value uint16) error {
	return v.WriteAt(offset, codec.LE16(value))
}

func (v *DataView) putUint32(offset int, value uint32) error {
	return v.WriteAt(offset, codec.LE32(value))
}

func (v *DataView) putUint64(offset int, value uint64) error {
	return v.WriteAt(offset, codec.LE64(value))
}
