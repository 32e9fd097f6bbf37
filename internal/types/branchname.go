// Package types implements Lattice's validated primitive values: branch
// names, object ids, ref names, timestamps, and fingerprints. Every value
// here is immutable once constructed and rejects anything the underlying
// DVCS would reject, so downstream packages never re-validate.
package types

import (
	"strings"

	lerrors "github.com/lcgerke/lattice/internal/errors"
)

// BranchName is a non-empty string accepted by git's ref-name rules for the
// final component of refs/heads/<name>.
type BranchName struct {
	name string
}

// NewBranchName validates and constructs a BranchName.
func NewBranchName(raw string) (BranchName, error) {
	if err := validateRefComponent(raw); err != nil {
		return BranchName{}, err
	}
	return BranchName{name: raw}, nil
}

// MustBranchName panics on invalid input; reserved for literals in tests
// and defaults that are known-valid at compile time.
func MustBranchName(raw string) BranchName {
	b, err := NewBranchName(raw)
	if err != nil {
		panic(err)
	}
	return b
}

func (b BranchName) String() string { return b.name }

// IsZero reports whether this is the unconstructed zero value.
func (b BranchName) IsZero() bool { return b.name == "" }

func (b BranchName) Equal(other BranchName) bool { return b.name == other.name }

func validateRefComponent(raw string) error {
	if raw == "" {
		return lerrors.New(lerrors.KindParseError, "branch name must not be empty")
	}
	if raw == "@" {
		return lerrors.New(lerrors.KindParseError, "branch name must not be the reserved name \"@\"")
	}
	if strings.Contains(raw, "..") {
		return lerrors.New(lerrors.KindParseError, "branch name must not contain \"..\"")
	}
	if strings.Contains(raw, "@{") {
		return lerrors.New(lerrors.KindParseError, "branch name must not contain \"@{\"")
	}
	if strings.Contains(raw, "//") {
		return lerrors.New(lerrors.KindParseError, "branch name must not contain \"//\"")
	}
	if strings.HasSuffix(raw, "/") {
		return lerrors.New(lerrors.KindParseError, "branch name must not end with \"/\"")
	}
	if strings.HasSuffix(raw, ".lock") {
		return lerrors.New(lerrors.KindParseError, "branch name must not end with \".lock\"")
	}
	if strings.HasSuffix(raw, ".") {
		return lerrors.New(lerrors.KindParseError, "branch name must not end with \".\"")
	}
	if strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, ".") || strings.HasPrefix(raw, "-") {
		return lerrors.New(lerrors.KindParseError, "branch name must not start with \"/\", \".\", or \"-\"")
	}
	for _, seg := range strings.Split(raw, "/") {
		if seg == "" {
			return lerrors.New(lerrors.KindParseError, "branch name must not contain empty path components")
		}
		if strings.HasPrefix(seg, ".") {
			return lerrors.New(lerrors.KindParseError, "branch name path components must not start with \".\"")
		}
		if strings.HasSuffix(seg, ".lock") {
			return lerrors.New(lerrors.KindParseError, "branch name path components must not end with \".lock\"")
		}
	}
	for _, r := range raw {
		switch {
		case r < 0x20 || r == 0x7f:
			return lerrors.New(lerrors.KindParseError, "branch name must not contain control characters")
		case strings.ContainsRune("~^:?*[\\", r):
			return lerrors.New(lerrors.KindParseError, "branch name must not contain any of ~^:?*[\\")
		case r == ' ':
			return lerrors.New(lerrors.KindParseError, "branch name must not contain spaces")
		}
	}
	return nil
}
