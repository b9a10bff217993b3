package mscfb

import (
	"io"

	"go.uber.org/zap"
)

// StreamHolder picks the backend of a stream from its size: streams shorter
// than the cutoff live in the mini stream, the rest in regular sectors.
type StreamHolder struct {
	regular StreamRW
	mini    StreamRW
	cutoff  int
	log     *zap.Logger
}

func NewStreamHolder(regular, mini StreamRW, cutoff uint32, log *zap.Logger) *StreamHolder {
	return &StreamHolder{
		regular: regular,
		mini:    mini,
		cutoff:  int(cutoff),
		log:     log,
	}
}

func (h *StreamHolder) backend(size int) StreamRW {
	if size < h.cutoff {
		return h.mini
	}
	return h.regular
}

// IsMini reports whether a stream of size bytes is stored in the mini stream.
func (h *StreamHolder) IsMini(size int) bool {
	return size < h.cutoff
}

func (h *StreamHolder) Read(startingSector uint32, size int) ([]byte, error) {
	return h.backend(size).Read(startingSector, size)
}

func (h *StreamHolder) ReadRange(startingSector uint32, size int, from, to int) ([]byte, error) {
	return h.backend(size).ReadRange(startingSector, from, to)
}

func (h *StreamHolder) Write(data []byte) (uint32, error) {
	return h.backend(len(data)).Write(data)
}

func (h *StreamHolder) WriteAt(startingSector uint32, size int, position int, data []byte) error {
	return h.backend(size).WriteAt(startingSector, position, data)
}

// Append grows a stream of size bytes by data. A stream crossing the cutoff
// is rewritten into regular sectors; the mini sectors it occupied are not
// reclaimed.
func (h *StreamHolder) Append(startingSector uint32, size int, data []byte) (uint32, error) {
	if !h.IsMini(size) || h.IsMini(size+len(data)) {
		return h.backend(size).Append(startingSector, size, data)
	}

	current, err := h.mini.Read(startingSector, size)
	if err != nil {
		return 0, err
	}
	h.log.Debug("moving stream out of the mini stream",
		zap.Int("size", size),
		zap.Int("new_size", size+len(data)))
	return h.regular.Write(append(current, data...))
}

func (h *StreamHolder) CopyTo(startingSector uint32, size int, w io.Writer) error {
	return h.backend(size).CopyTo(startingSector, size, w)
}
