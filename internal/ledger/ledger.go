// Package ledger implements Lattice's append-only event log. Chosen
// realization: a JSON-lines file in the per-repo state directory rather
// than a ref-chained log — both satisfy the required append-only
// atomicity contract; the flat-file form mirrors Lattice's other
// atomic-write state files more closely than inventing a new git-object
// writer would.
package ledger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"

	lerrors "github.com/lcgerke/lattice/internal/errors"
)

// RecordKind discriminates the four ledger record shapes.
type RecordKind string

const (
	KindPlanned   RecordKind = "planned"
	KindApplied   RecordKind = "applied"
	KindCommitted RecordKind = "committed"
	KindAborted   RecordKind = "aborted"
)

// Record is the closed sum of ledger entries, serialized with an explicit
// "kind" discriminator.
type Record struct {
	Kind RecordKind `json:"kind"`

	OpID string `json:"op_id"`

	// Planned
	FingerprintBefore string `json:"fingerprint_before,omitempty"`

	// Applied
	StepIndex int    `json:"step_index,omitempty"`
	StepDigest string `json:"step_digest,omitempty"`

	// Committed
	FingerprintAfter string `json:"fingerprint_after,omitempty"`

	// Aborted
	Reason      string   `json:"reason,omitempty"`
	RolledBack  bool     `json:"rolled_back,omitempty"`
	FailedRefs  []string `json:"failed_refs,omitempty"`
}

// Ledger appends to and reads a single JSONL file.
type Ledger struct {
	path string
}

// Open returns a Ledger backed by path (created on first Append).
func Open(path string) *Ledger {
	return &Ledger{path: path}
}

// Append writes one record as an atomic append (open-append-write-close;
// the OS guarantees a single write() of a line under PIPE_BUF is atomic,
// and each record is serialized as one line).
func (l *Ledger) Append(r Record) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return lerrors.AccessError("create ledger directory", err)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return lerrors.Wrap(lerrors.KindInternal, "failed to marshal ledger record", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return lerrors.AccessError("open ledger file", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return lerrors.AccessError("append to ledger file", err)
	}
	return nil
}

// All reads every record in file order.
func (l *Ledger) All() ([]Record, error) {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, lerrors.AccessError("read ledger file", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, lerrors.ParseError("ledger record", err)
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, lerrors.AccessError("scan ledger file", err)
	}
	return records, nil
}

// LastCommitted returns the most recent Committed record, which is the
// authoritative divergence baseline.
func (l *Ledger) LastCommitted() (Record, bool, error) {
	records, err := l.All()
	if err != nil {
		return Record{}, false, err
	}
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Kind == KindCommitted {
			return records[i], true, nil
		}
	}
	return Record{}, false, nil
}

// LastOp returns the most recent record for any op, used by the doctor's
// "last successful op" queries.
func (l *Ledger) LastOp() (Record, bool, error) {
	records, err := l.All()
	if err != nil {
		return Record{}, false, err
	}
	if len(records) == 0 {
		return Record{}, false, nil
	}
	return records[len(records)-1], true, nil
}
