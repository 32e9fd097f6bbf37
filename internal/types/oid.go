package types

import (
	"strings"

	lerrors "github.com/lcgerke/lattice/internal/errors"
)

// Oid is a lowercased hexadecimal object id, either SHA-1 (40 hex digits)
// or SHA-256 (64 hex digits).
type Oid struct {
	hex string
}

// ZeroOid is the all-zeros SHA-1 object id, used as a sentinel "absent".
var ZeroOid = Oid{hex: strings.Repeat("0", 40)}

// NewOid validates and lowercases raw, accepting 40- or 64-hex-digit forms.
func NewOid(raw string) (Oid, error) {
	if len(raw) != 40 && len(raw) != 64 {
		return Oid{}, lerrors.InvalidOid(raw)
	}
	lowered := strings.ToLower(raw)
	for _, r := range lowered {
		if !isHexDigit(r) {
			return Oid{}, lerrors.InvalidOid(raw)
		}
	}
	return Oid{hex: lowered}, nil
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
}

func (o Oid) String() string { return o.hex }

func (o Oid) IsZero() bool { return o.hex == "" || o == ZeroOid }

func (o Oid) Equal(other Oid) bool { return o.hex == other.hex }

// Abbreviate returns the first n hex digits (clamped to the full length).
func (o Oid) Abbreviate(n int) string {
	if n >= len(o.hex) {
		return o.hex
	}
	return o.hex[:n]
}
