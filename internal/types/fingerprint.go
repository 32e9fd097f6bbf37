package types

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	lerrors "github.com/lcgerke/lattice/internal/errors"
)

// RefOidPair is one (ref name, oid) sample contributing to a Fingerprint.
type RefOidPair struct {
	Ref RefName
	Oid Oid
}

// Fingerprint is a SHA-256 digest over a canonical, order-independent
// serialization of a set of (ref name, oid) pairs.
type Fingerprint struct {
	digest string
}

// NewFingerprint computes the fingerprint of pairs. Input order does not
// matter: pairs are sorted by ref name before hashing.
func NewFingerprint(pairs []RefOidPair) Fingerprint {
	sorted := make([]RefOidPair, len(pairs))
	copy(sorted, pairs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Ref.String() < sorted[j].Ref.String()
	})

	h := sha256.New()
	for _, p := range sorted {
		h.Write([]byte(p.Ref.String()))
		h.Write([]byte{0})
		h.Write([]byte(p.Oid.String()))
		h.Write([]byte{'\n'})
	}
	return Fingerprint{digest: hex.EncodeToString(h.Sum(nil))}
}

func (f Fingerprint) String() string { return f.digest }

func (f Fingerprint) Equal(other Fingerprint) bool { return f.digest == other.digest }

func (f Fingerprint) IsZero() bool { return f.digest == "" }

// ParseFingerprint reconstructs a Fingerprint from its persisted hex
// digest (as stored in a ledger Committed record), validating it is a
// well-formed SHA-256 digest.
func ParseFingerprint(hexDigest string) (Fingerprint, error) {
	if len(hexDigest) != sha256.Size*2 {
		return Fingerprint{}, lerrors.New(lerrors.KindParseError, "fingerprint must be a 64-character hex digest")
	}
	if _, err := hex.DecodeString(hexDigest); err != nil {
		return Fingerprint{}, lerrors.ParseError("fingerprint hex digest", err)
	}
	return Fingerprint{digest: hexDigest}, nil
}
