package codec

import "encoding/hex"

// Dump returns a canonical hex+ASCII listing of b.
func Dump(b []byte) string {
	return hex.Dump(b)
}
