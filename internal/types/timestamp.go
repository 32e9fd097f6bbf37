package types

import (
	"time"

	lerrors "github.com/lcgerke/lattice/internal/errors"
)

// UtcTimestamp is a timestamp rendered in RFC 3339 with a "Z" UTC offset,
// so two equal instants always serialize identically.
type UtcTimestamp struct {
	t time.Time
}

// Now returns the current instant as a UtcTimestamp.
func Now() UtcTimestamp {
	return UtcTimestamp{t: time.Now().UTC()}
}

// FromTime converts an arbitrary time.Time, normalizing to UTC.
func FromTime(t time.Time) UtcTimestamp {
	return UtcTimestamp{t: t.UTC()}
}

// ParseUtcTimestamp parses an RFC 3339 string.
func ParseUtcTimestamp(raw string) (UtcTimestamp, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return UtcTimestamp{}, lerrors.ParseError("timestamp", err)
	}
	return UtcTimestamp{t: t.UTC()}, nil
}

func (u UtcTimestamp) String() string { return u.t.Format(time.RFC3339) }

func (u UtcTimestamp) Time() time.Time { return u.t }

func (u UtcTimestamp) Before(other UtcTimestamp) bool { return u.t.Before(other.t) }

func (u UtcTimestamp) After(other UtcTimestamp) bool { return u.t.After(other.t) }

// MarshalJSON renders the RFC 3339 string form.
func (u UtcTimestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + u.String() + `"`), nil
}

// UnmarshalJSON parses the RFC 3339 string form.
func (u *UtcTimestamp) UnmarshalJSON(data []byte) error {
	if len(data) < 2 {
		return lerrors.New(lerrors.KindParseError, "timestamp must be a quoted string")
	}
	parsed, err := ParseUtcTimestamp(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
