package mscfb

import (
	"errors"
	"fmt"
	"io"
	"iter"
)

// errStop ends a sibling walk early.
var errStop = errors.New("stop")

// Storage is a directory entry that holds a tree of children.
type Storage struct {
	*DirEntry
}

// RootStorage is the storage at directory position 0.
type RootStorage struct {
	*Storage
}

// AddStorage creates an empty storage named name under s.
func (s *Storage) AddStorage(name string) (*Storage, error) {
	if err := s.checkNewChild(name); err != nil {
		return nil, err
	}
	entry, err := s.dir.createStorage(name)
	if err != nil {
		return nil, err
	}
	if err := s.insert(entry); err != nil {
		return nil, err
	}
	return &Storage{DirEntry: entry}, nil
}

// AddStream creates a stream named name under s holding data.
func (s *Storage) AddStream(name string, data []byte) (*StreamEntry, error) {
	if err := s.checkNewChild(name); err != nil {
		return nil, err
	}
	entry, err := s.dir.createStream(name, data)
	if err != nil {
		return nil, err
	}
	if err := s.insert(entry); err != nil {
		return nil, err
	}
	return &StreamEntry{DirEntry: entry}, nil
}

func (s *Storage) checkNewChild(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	existing, err := s.ChildByName(name)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%q under %q: %w", name, s.Name(), ErrorAlreadyExists)
	}
	return nil
}

// ChildByName finds a direct child by binary search over the sibling tree.
// It returns nil when there is no such child.
func (s *Storage) ChildByName(name string) (*DirEntry, error) {
	current, err := s.Child()
	if err != nil {
		return nil, err
	}
	for current != nil {
		switch CompareNames(name, current.Name()) {
		case OrderEqual:
			return current, nil
		case OrderLess:
			current, err = current.LeftSibling()
		default:
			current, err = current.RightSibling()
		}
		if err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// insert links n into the sibling tree of s, keeping it a red-black tree
// ordered by CompareNames.
func (s *Storage) insert(n *DirEntry) error {
	root, err := s.Child()
	if err != nil {
		return err
	}
	if root == nil {
		s.setChildID(n.ID)
		n.SetColor(Black)
		return nil
	}

	path := make([]*DirEntry, 0, 8)
	current := root
	for current != nil {
		path = append(path, current)
		switch CompareNames(n.Name(), current.Name()) {
		case OrderEqual:
			return fmt.Errorf("%q under %q: %w", n.Name(), s.Name(), ErrorAlreadyExists)
		case OrderLess:
			current, err = current.LeftSibling()
		default:
			current, err = current.RightSibling()
		}
		if err != nil {
			return err
		}
	}

	parent := path[len(path)-1]
	if CompareNames(n.Name(), parent.Name()) == OrderLess {
		parent.setLeftSiblingID(n.ID)
	} else {
		parent.setRightSiblingID(n.ID)
	}
	n.SetColor(Red)
	path = append(path, n)

	if err := s.rebalance(path); err != nil {
		return err
	}

	top, err := s.Child()
	if err != nil {
		return err
	}
	top.SetColor(Black)
	return nil
}

// rebalance restores the red-black properties after the last entry of path
// was inserted as a red leaf. path[0] is the sibling tree root.
func (s *Storage) rebalance(path []*DirEntry) error {
	i := len(path) - 1
	for i >= 2 && path[i-1].Color() == Red {
		x, p, g := path[i], path[i-1], path[i-2]
		var gg *DirEntry
		if i >= 3 {
			gg = path[i-3]
		}

		parentIsLeft := g.LeftSiblingID() == p.ID
		uncleID := g.LeftSiblingID()
		if parentIsLeft {
			uncleID = g.RightSiblingID()
		}
		uncle, err := g.resolve(uncleID)
		if err != nil {
			return err
		}

		if uncle != nil && uncle.Color() == Red {
			p.SetColor(Black)
			uncle.SetColor(Black)
			g.SetColor(Red)
			i -= 2
			continue
		}

		if parentIsLeft {
			if p.RightSiblingID() == x.ID {
				if _, err := s.rotateLeft(p, g); err != nil {
					return err
				}
				p = x
			}
			if _, err := s.rotateRight(g, gg); err != nil {
				return err
			}
		} else {
			if p.LeftSiblingID() == x.ID {
				if _, err := s.rotateRight(p, g); err != nil {
					return err
				}
				p = x
			}
			if _, err := s.rotateLeft(g, gg); err != nil {
				return err
			}
		}
		p.SetColor(Black)
		g.SetColor(Red)
		return nil
	}
	return nil
}

// replaceLink points whatever referenced old (parent's sibling slot, or the
// storage's child slot when parent is nil) at replacement.
func (s *Storage) replaceLink(parent *DirEntry, old, replacement uint32) {
	switch {
	case parent == nil:
		s.setChildID(replacement)
	case parent.LeftSiblingID() == old:
		parent.setLeftSiblingID(replacement)
	default:
		parent.setRightSiblingID(replacement)
	}
}

func (s *Storage) rotateLeft(n, parent *DirEntry) (*DirEntry, error) {
	top, err := n.RightSibling()
	if err != nil {
		return nil, err
	}
	if top == nil {
		return nil, fmt.Errorf("rotate left at %q without right sibling: %w", n.Name(), ErrorInvalidCFB)
	}
	n.setRightSiblingID(top.LeftSiblingID())
	top.setLeftSiblingID(n.ID)
	s.replaceLink(parent, n.ID, top.ID)
	return top, nil
}

func (s *Storage) rotateRight(n, parent *DirEntry) (*DirEntry, error) {
	top, err := n.LeftSibling()
	if err != nil {
		return nil, err
	}
	if top == nil {
		return nil, fmt.Errorf("rotate right at %q without left sibling: %w", n.Name(), ErrorInvalidCFB)
	}
	n.setLeftSiblingID(top.RightSiblingID())
	top.setRightSiblingID(n.ID)
	s.replaceLink(parent, n.ID, top.ID)
	return top, nil
}

// EachChild calls fn for every direct child, in pre-order over the sibling
// tree (entry, left subtree, right subtree).
func (s *Storage) EachChild(fn func(*DirEntry) error) error {
	child, err := s.Child()
	if err != nil || child == nil {
		return err
	}
	return child.traverse(fn, false)
}

// Children returns a single-pass sequence over the direct children.
func (s *Storage) Children() iter.Seq2[*DirEntry, error] {
	return s.filtered(func(*DirEntry) bool { return true })
}

// Storages returns a single-pass sequence over the direct child storages.
func (s *Storage) Storages() iter.Seq2[*DirEntry, error] {
	return s.filtered(func(e *DirEntry) bool { return e.ObjectType() == ObjStorage })
}

// Streams returns a single-pass sequence over the direct child streams.
func (s *Storage) Streams() iter.Seq2[*DirEntry, error] {
	return s.filtered(func(e *DirEntry) bool { return e.ObjectType() == ObjStream })
}

func (s *Storage) filtered(keep func(*DirEntry) bool) iter.Seq2[*DirEntry, error] {
	return func(yield func(*DirEntry, error) bool) {
		err := s.EachChild(func(e *DirEntry) error {
			if !keep(e) {
				return nil
			}
			if !yield(e, nil) {
				return errStop
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStop) {
			yield(nil, err)
		}
	}
}

// FindChild returns the first direct child matching pred, or nil.
func (s *Storage) FindChild(pred func(*DirEntry) bool) (*DirEntry, error) {
	var found *DirEntry
	err := s.EachChild(func(e *DirEntry) error {
		if pred(e) {
			found = e
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	return found, nil
}

// FindChildren returns every direct child matching pred.
func (s *Storage) FindChildren(pred func(*DirEntry) bool) ([]*DirEntry, error) {
	found := make([]*DirEntry, 0)
	err := s.EachChild(func(e *DirEntry) error {
		if pred(e) {
			found = append(found, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// StreamEntry is a directory entry that owns a byte payload.
type StreamEntry struct {
	*DirEntry
}

func (s *StreamEntry) Size() int {
	return int(s.StreamSize())
}

func (s *StreamEntry) checkData() error {
	if !s.HasStreamData() {
		return fmt.Errorf("stream %q has no data: %w", s.Name(), ErrorUnsupported)
	}
	return nil
}

// Data returns the whole payload.
func (s *StreamEntry) Data() ([]byte, error) {
	if err := s.checkData(); err != nil {
		return nil, err
	}
	return s.dir.streams.Read(s.StartingSector(), s.Size())
}

// ReadRange returns payload bytes [from, to).
func (s *StreamEntry) ReadRange(from, to int) ([]byte, error) {
	if to > s.Size() {
		return nil, fmt.Errorf("read up to %v of a %v byte stream: %w", to, s.Size(), ErrorOutOfRange)
	}
	if to == from {
		return []byte{}, nil
	}
	if err := s.checkData(); err != nil {
		return nil, err
	}
	return s.dir.streams.ReadRange(s.StartingSector(), s.Size(), from, to)
}

// WriteAt overwrites payload bytes starting at position. The payload is not
// grown; use Append for that.
func (s *StreamEntry) WriteAt(position int, data []byte) error {
	if position < 0 || position+len(data) > s.Size() {
		return fmt.Errorf("write [%v, %v) into a %v byte stream: %w", position, position+len(data), s.Size(), ErrorOutOfRange)
	}
	if len(data) == 0 {
		return nil
	}
	return s.dir.streams.WriteAt(s.StartingSector(), s.Size(), position, data)
}

// Append grows the payload by data.
func (s *StreamEntry) Append(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	start, err := s.dir.streams.Append(s.StartingSector(), s.Size(), data)
	if err != nil {
		return err
	}
	s.setStartingSector(start)
	s.setStreamSize(uint64(s.Size() + len(data)))
	return nil
}

// CopyTo writes the payload to w.
func (s *StreamEntry) CopyTo(w io.Writer) error {
	if err := s.checkData(); err != nil {
		return err
	}
	return s.dir.streams.CopyTo(s.StartingSector(), s.Size(), w)
}

// Open returns a reader over the payload.
func (s *StreamEntry) Open() *Stream {
	return newStream(s)
}
