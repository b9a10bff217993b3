package mscfb

import (
	"errors"
	"fmt"
	"io"
)

const BUFFER_SIZE int = 8192

var errNegativePosition = errors.New("negative position")

// Stream reads a stream entry's payload through a fixed size buffer. It is
// an io.ReadSeeker, io.ReaderAt and io.WriterTo.
type Stream struct {
	entry *StreamEntry

	totalLen        int
	buffer          []byte
	position        int
	cap             int
	offsetFromStart int
}

func newStream(entry *StreamEntry) *Stream {
	return &Stream{
		entry:    entry,
		totalLen: entry.Size(),
		buffer:   make([]byte, BUFFER_SIZE),
	}
}

// Len returns the payload length in bytes.
func (s *Stream) Len() int {
	return s.totalLen
}

func (s *Stream) currentPosition() int {
	return s.offsetFromStart + s.position
}

func (s *Stream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if s.position >= s.cap {
		if s.currentPosition() >= s.totalLen {
			return 0, io.EOF
		}
		s.offsetFromStart += s.position
		s.position = 0

		n, err := s.fill()
		if err != nil {
			return 0, err
		}
		s.cap = n
	}

	numBytes := copy(p, s.buffer[s.position:s.cap])
	s.position += numBytes

	return numBytes, nil
}

func (s *Stream) fill() (int, error) {
	numBytes := min(len(s.buffer), s.totalLen-s.offsetFromStart)
	if numBytes <= 0 {
		return 0, nil
	}
	data, err := s.entry.ReadRange(s.offsetFromStart, s.offsetFromStart+numBytes)
	if err != nil {
		return 0, err
	}
	return copy(s.buffer, data), nil
}

func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = int64(s.currentPosition()) + offset
	case io.SeekEnd:
		pos = int64(s.totalLen) + offset
	default:
		return 0, fmt.Errorf("invalid whence %v: %w", whence, ErrorUnsupported)
	}
	if pos < 0 {
		return 0, errNegativePosition
	}
	if pos > int64(s.totalLen) {
		pos = int64(s.totalLen)
	}

	if pos < int64(s.offsetFromStart) || pos > int64(s.offsetFromStart+s.cap) {
		s.offsetFromStart = int(pos)
		s.position = 0
		s.cap = 0
	} else {
		s.position = int(pos) - s.offsetFromStart
	}

	return pos, nil
}

// ReadAt reads independently of the current position.
func (s *Stream) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errNegativePosition
	}
	if off >= int64(s.totalLen) {
		return 0, io.EOF
	}
	end := min(int(off)+len(p), s.totalLen)
	data, err := s.entry.ReadRange(int(off), end)
	if err != nil {
		return 0, err
	}
	n := copy(p, data)
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteTo copies the rest of the payload to w.
func (s *Stream) WriteTo(w io.Writer) (int64, error) {
	var written int64
	for {
		if s.position >= s.cap && s.currentPosition() >= s.totalLen {
			return written, nil
		}
		if s.position >= s.cap {
			s.offsetFromStart += s.position
			s.position = 0
			n, err := s.fill()
			if err != nil {
				return written, err
			}
			s.cap = n
		}
		n, err := w.Write(s.buffer[s.position:s.cap])
		written += int64(n)
		s.position += n
		if err != nil {
			return written, err
		}
		if n == 0 {
			return written, io.ErrShortWrite
		}
	}
}
