// Package opstate persists the marker for an in-progress Lattice
// operation: written before the first mutating plan step, removed after
// successful commit. Uses the same atomic load/save idiom as the rest of
// Lattice's on-disk state, narrowed to a single marker file instead of a
// keyed repository map.
package opstate

import (
	"encoding/json"
	"os"
	"path/filepath"

	lerrors "github.com/lcgerke/lattice/internal/errors"
	"github.com/lcgerke/lattice/internal/types"
)

const fileName = "op_state.json"

// OpState is the in-progress-operation marker.
type OpState struct {
	OpID               string             `json:"op_id"`
	Command            string             `json:"command"`
	StartedAt          types.UtcTimestamp `json:"started_at"`
	PlanIndexCompleted int                `json:"plan_index_completed"`

	// RunGitPreState records, for a run_git plan step, each affected ref's
	// tip immediately before the DVCS command ran. Written before the
	// command executes so a crash mid-command still leaves an abort
	// recipe behind; never cleared until the whole operation clears.
	RunGitPreState map[string]string `json:"run_git_pre_state,omitempty"`
}

// Store reads and writes the marker file under a directory, normally
// <git-common-dir>/lattice.
type Store struct {
	dir string
}

func NewStore(gitCommonDir string) *Store {
	return &Store{dir: filepath.Join(gitCommonDir, "lattice")}
}

func (s *Store) path() string { return filepath.Join(s.dir, fileName) }

// Read returns the current marker, if any. ok=false iff no operation is
// in progress.
func (s *Store) Read() (OpState, bool, error) {
	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return OpState{}, false, nil
	}
	if err != nil {
		return OpState{}, false, lerrors.AccessError("read op state marker", err)
	}
	var st OpState
	if err := json.Unmarshal(data, &st); err != nil {
		return OpState{}, false, lerrors.ParseError("op state marker", err)
	}
	return st, true, nil
}

// Write persists the marker, creating the directory if needed.
func (s *Store) Write(st OpState) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return lerrors.AccessError("create lattice state directory", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return lerrors.Wrap(lerrors.KindInternal, "failed to marshal op state marker", err)
	}
	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return lerrors.AccessError("write op state marker", err)
	}
	if err := os.Rename(tmp, s.path()); err != nil {
		return lerrors.AccessError("rename op state marker into place", err)
	}
	return nil
}

// Clear removes the marker, if present.
func (s *Store) Clear() error {
	err := os.Remove(s.path())
	if err != nil && !os.IsNotExist(err) {
		return lerrors.AccessError("remove op state marker", err)
	}
	return nil
}
