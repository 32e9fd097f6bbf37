// Package planstore persists the one in-flight plan.Plan alongside
// internal/opstate's marker. opstate records an op id, a command name, a
// start time, a completed-step index and run_git pre-command ref tips, but
// not the plan itself — enough for the executor to resume
// from a fixed plan value held in memory, but a CLI invocation ends and
// restarts between "restack" suspending and "lattice continue" resuming,
// so the plan itself has to survive on disk too. Grounded on the same
// atomic tmp-file-then-rename idiom opstate.Store and config.Manager use.
package planstore

import (
	"encoding/json"
	"os"
	"path/filepath"

	lerrors "github.com/lcgerke/lattice/internal/errors"
	"github.com/lcgerke/lattice/internal/plan"
)

const fileName = "plan_state.json"

// Store reads and writes the suspended plan under a directory, normally
// <git-common-dir>/lattice.
type Store struct {
	dir string
}

func NewStore(gitCommonDir string) *Store {
	return &Store{dir: filepath.Join(gitCommonDir, "lattice")}
}

func (s *Store) path() string { return filepath.Join(s.dir, fileName) }

// Write persists pl, creating the directory if needed.
func (s *Store) Write(pl plan.Plan) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return lerrors.AccessError("create lattice state directory", err)
	}
	data, err := json.MarshalIndent(pl, "", "  ")
	if err != nil {
		return lerrors.Wrap(lerrors.KindInternal, "failed to marshal suspended plan", err)
	}
	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return lerrors.AccessError("write suspended plan", err)
	}
	if err := os.Rename(tmp, s.path()); err != nil {
		return lerrors.AccessError("rename suspended plan into place", err)
	}
	return nil
}

// Read returns the persisted plan, if any. ok=false iff none is stored.
func (s *Store) Read() (plan.Plan, bool, error) {
	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return plan.Plan{}, false, nil
	}
	if err != nil {
		return plan.Plan{}, false, lerrors.AccessError("read suspended plan", err)
	}
	var pl plan.Plan
	if err := json.Unmarshal(data, &pl); err != nil {
		return plan.Plan{}, false, lerrors.ParseError("suspended plan", err)
	}
	return pl, true, nil
}

// Clear removes the persisted plan, if present.
func (s *Store) Clear() error {
	err := os.Remove(s.path())
	if err != nil && !os.IsNotExist(err) {
		return lerrors.AccessError("remove suspended plan", err)
	}
	return nil
}
