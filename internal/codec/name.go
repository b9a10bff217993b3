package codec

import (
	"fmt"
	"unicode/utf16"

	"golang.org/x/text/encoding/unicode"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// DecodeName converts an UTF-16LE name field into a Go string. Trailing
// zero code units are dropped. Unpaired surrogates are an error.
func DecodeName(b []byte) (string, error) {
	b = TrimTrailingZeros(b)
	if err := checkSurrogates(b); err != nil {
		return "", err
	}
	decoded, err := utf16le.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decode utf-16 name: %w", err)
	}
	return string(decoded), nil
}

// EncodeName converts s into UTF-16LE code units, without a terminator.
func EncodeName(s string) ([]byte, error) {
	encoded, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encode utf-16 name: %w", err)
	}
	return encoded, nil
}

// TrimTrailingZeros drops trailing 0x0000 code units from an UTF-16 buffer.
// An odd trailing byte is dropped as well.
func TrimTrailingZeros(b []byte) []byte {
	n := len(b) &^ 1
	for n >= 2 && b[n-1] == 0 && b[n-2] == 0 {
		n -= 2
	}
	return b[:n]
}

func checkSurrogates(b []byte) error {
	for i := 0; i+1 < len(b); i += 2 {
		u := rune(U16LE(b[i:]))
		if !utf16.IsSurrogate(u) {
			continue
		}
		if u < 0xdc00 && i+3 < len(b) {
			if next := rune(U16LE(b[i+2:])); next >= 0xdc00 && next <= 0xdfff {
				i += 2
				continue
			}
		}
		return fmt.Errorf("unpaired surrogate 0x%04x at code unit %v", u, i/2)
	}
	return nil
}
