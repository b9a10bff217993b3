package mscfb

import (
	"fmt"
	"path"
	"strings"
	"unicode"
	"unicode/utf16"
)

// MAX_NAME_LEN is the longest entry name, in UTF-16 code units, not
// counting the terminator.
const MAX_NAME_LEN int = 31

type Ordering int

const (
	OrderLess Ordering = iota
	OrderEqual
	OrderGreater
)

func (o Ordering) String() string {
	switch o {
	case OrderLess:
		return "less"
	case OrderEqual:
		return "equal"
	default:
		return "greater"
	}
}

func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("empty name: %w", ErrorInvalidName)
	}
	if strings.ContainsAny(name, "/\\:!") {
		return fmt.Errorf("name contains one of /\\:! characters: %v: %w", name, ErrorInvalidName)
	}
	if n := len(utf16.Encode([]rune(name))); n > MAX_NAME_LEN {
		return fmt.Errorf("name has %v UTF-16 code units, max is %v: %v: %w", n, MAX_NAME_LEN, name, ErrorInvalidName)
	}
	return nil
}

// CompareNames orders sibling names: shorter names first, then by the
// upper-cased UTF-16 code units.
func CompareNames(nameLeft, nameRight string) Ordering {
	left := utf16.Encode([]rune(nameLeft))
	right := utf16.Encode([]rune(nameRight))

	if len(left) != len(right) {
		if len(left) < len(right) {
			return OrderLess
		}
		return OrderGreater
	}

	left = upperUnits(nameLeft)
	right = upperUnits(nameRight)
	for i := 0; i < len(left) && i < len(right); i++ {
		switch {
		case left[i] < right[i]:
			return OrderLess
		case left[i] > right[i]:
			return OrderGreater
		}
	}
	switch {
	case len(left) < len(right):
		return OrderLess
	case len(left) > len(right):
		return OrderGreater
	}
	return OrderEqual
}

// upperUnits upper-cases rune by rune so the name keeps its shape.
func upperUnits(name string) []uint16 {
	runes := []rune(name)
	for i, r := range runes {
		runes[i] = unicode.ToUpper(r)
	}
	return utf16.Encode(runes)
}

// NameChainFromPath splits a slash separated path into entry names. The
// root is the empty chain; paths escaping the root also give the empty chain.
func NameChainFromPath(s string) []string {
	s = strings.TrimPrefix(path.Clean(s), "/")
	if s == "" || s == "." || s == ".." || strings.HasPrefix(s, "../") {
		return []string{}
	}
	return strings.Split(s, "/")
}

func PathFromNameChain(names []string) string {
	return "/" + strings.Join(names, "/")
}
