package codec

import "github.com/google/uuid"

// CLSIDLen is the on-disk length of a class identifier.
const CLSIDLen = 16

// DecodeCLSID converts the mixed-endian on-disk GUID layout (first three
// groups little-endian, last two as-is) into a uuid.UUID.
func DecodeCLSID(b []byte) uuid.UUID {
	var u uuid.UUID
	if len(b) < CLSIDLen {
		return u
	}
	u[0], u[1], u[2], u[3] = b[3], b[2], b[1], b[0]
	u[4], u[5] = b[5], b[4]
	u[6], u[7] = b[7], b[6]
	copy(u[8:], b[8:16])
	return u
}

// EncodeCLSID is the inverse of DecodeCLSID.
func EncodeCLSID(u uuid.UUID) []byte {
	b := make([]byte, CLSIDLen)
	b[0], b[1], b[2], b[3] = u[3], u[2], u[1], u[0]
	b[4], b[5] = u[5], u[4]
	b[6], b[7] = u[7], u[6]
	copy(b[8:], u[8:16])
	return b
}
