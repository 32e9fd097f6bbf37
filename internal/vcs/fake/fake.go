// Package fake is an in-memory vcs.Repository double used by unit tests for
// the scanner, planner, and executor, so those packages can be exercised
// without spawning real git processes.
package fake

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"
	"sync"

	lerrors "github.com/lcgerke/lattice/internal/errors"
	"github.com/lcgerke/lattice/internal/vcs"
)

// Repo is an in-memory stand-in for a real repository.
type Repo struct {
	mu sync.Mutex

	Ctx       vcs.RepoContext
	GitDir    string
	CommonDir string
	WorkDir   string

	GitState vcs.GitState
	Worktree vcs.WorktreeStatus
	Current  string
	Detached bool

	branches map[string]string // refs/heads/<b> -> oid
	refs     map[string]string // arbitrary full ref -> oid (incl. branch-metadata)
	blobs    map[string][]byte
	parents  map[string][]string // commit oid -> parent oids, for ancestry
	worktrees []vcs.Worktree
}

func New() *Repo {
	return &Repo{
		Ctx:       vcs.ContextNormal,
		GitDir:    "/repo/.git",
		CommonDir: "/repo/.git",
		WorkDir:   "/repo",
		GitState:  vcs.GitState{Kind: vcs.GitStateClean},
		Worktree:  vcs.WorktreeStatus{Kind: vcs.WorktreeClean},
		branches:  map[string]string{},
		refs:      map[string]string{},
		blobs:     map[string][]byte{},
		parents:   map[string][]string{},
	}
}

var _ vcs.Repository = (*Repo)(nil)

func fakeOid(seed string) string {
	h := sha1.Sum([]byte(seed))
	return hex.EncodeToString(h[:])
}

// AddCommit registers a synthetic commit with the given parents, returning
// its oid (deterministic hash of the label, for reproducible test fixtures).
func (r *Repo) AddCommit(label string, parentLabels ...string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	oid := fakeOid(label)
	var parentOids []string
	for _, p := range parentLabels {
		parentOids = append(parentOids, fakeOid(p))
	}
	r.parents[oid] = parentOids
	return oid
}

// SetBranch points refs/heads/<name> at oid.
func (r *Repo) SetBranch(name, oid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.branches["refs/heads/"+name] = oid
}

// SetRef sets an arbitrary ref (e.g. refs/branch-metadata/<branch>).
func (r *Repo) SetRef(name, oid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs[name] = oid
}

func (r *Repo) Info(ctx context.Context) (vcs.Info, error) {
	return vcs.Info{GitDir: r.GitDir, CommonDir: r.CommonDir, WorkDir: r.WorkDir, Context: r.Ctx}, nil
}

func (r *Repo) State(ctx context.Context) (vcs.GitState, error) { return r.GitState, nil }

func (r *Repo) WorktreeStatus(ctx context.Context) (vcs.WorktreeStatus, error) {
	return r.Worktree, nil
}

func (r *Repo) ResolveRef(ctx context.Context, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if oid, ok := r.branches[name]; ok {
		return oid, nil
	}
	if oid, ok := r.branches["refs/heads/"+name]; ok {
		return oid, nil
	}
	if oid, ok := r.refs[name]; ok {
		return oid, nil
	}
	return "", lerrors.RefNotFound(name)
}

func (r *Repo) TryResolveRefToObject(ctx context.Context, name string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if oid, ok := r.refs[name]; ok {
		return oid, true, nil
	}
	if oid, ok := r.branches[name]; ok {
		return oid, true, nil
	}
	return "", false, nil
}

func (r *Repo) UpdateRefCas(ctx context.Context, name string, newOid string, expectedOld vcs.CasPrecondition, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	store := r.storeFor(name)
	current, exists := store[name]
	if expectedOld.Present {
		if !exists || current != expectedOld.Oid {
			return lerrors.CasFailed(name, expectedOld.Oid, absentLabel(current, exists))
		}
	} else if exists {
		return lerrors.CasFailed(name, "<absent>", current)
	}
	store[name] = newOid
	return nil
}

func (r *Repo) DeleteRefCas(ctx context.Context, name string, expectedOld string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	store := r.storeFor(name)
	current, exists := store[name]
	if !exists || current != expectedOld {
		return lerrors.CasFailed(name, expectedOld, absentLabel(current, exists))
	}
	delete(store, name)
	return nil
}

func absentLabel(v string, exists bool) string {
	if !exists {
		return "<absent>"
	}
	return v
}

func (r *Repo) storeFor(name string) map[string]string {
	if strings.HasPrefix(name, "refs/heads/") {
		return r.branches
	}
	return r.refs
}

func (r *Repo) ListRefsInNamespace(ctx context.Context, namespace string) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]string{}
	for k, v := range r.refs {
		if strings.HasPrefix(k, namespace) {
			out[k] = v
		}
	}
	return out, nil
}

func (r *Repo) ListLocalBranches(ctx context.Context) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]string{}
	for k, v := range r.branches {
		out[strings.TrimPrefix(k, "refs/heads/")] = v
	}
	return out, nil
}

func (r *Repo) CurrentBranch(ctx context.Context) (string, bool, error) {
	if r.Detached {
		return "", false, nil
	}
	return r.Current, true, nil
}

func (r *Repo) MergeBase(ctx context.Context, a, b string) (string, error) {
	ancestorsA := r.ancestorSet(a)
	r.mu.Lock()
	defer r.mu.Unlock()
	queue := []string{b}
	seen := map[string]bool{}
	for len(queue) > 0 {
		o := queue[0]
		queue = queue[1:]
		if seen[o] {
			continue
		}
		seen[o] = true
		if ancestorsA[o] {
			return o, nil
		}
		queue = append(queue, r.parents[o]...)
	}
	return "", lerrors.RefNotFound("merge-base(" + a + "," + b + ")")
}

func (r *Repo) ancestorSet(oid string) map[string]bool {
	set := map[string]bool{}
	for _, a := range r.walkAncestry(oid) {
		set[a] = true
	}
	return set
}

func (r *Repo) walkAncestry(oid string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var order []string
	seen := map[string]bool{}
	var visit func(string)
	visit = func(o string) {
		if seen[o] {
			return
		}
		seen[o] = true
		order = append(order, o)
		for _, p := range r.parents[o] {
			visit(p)
		}
	}
	visit(oid)
	sort.Strings(order) // deterministic for tests; semantics unaffected
	return order
}

func (r *Repo) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	return r.ancestorSet(descendant)[ancestor], nil
}

func (r *Repo) CommitCount(ctx context.Context, base, tip string) (int, error) {
	baseSet := r.ancestorSet(base)
	count := 0
	for _, a := range r.walkAncestry(tip) {
		if !baseSet[a] {
			count++
		}
	}
	return count, nil
}

func (r *Repo) WriteBlob(ctx context.Context, data []byte) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	oid := fakeOid(string(data))
	r.blobs[oid] = append([]byte(nil), data...)
	return oid, nil
}

func (r *Repo) ReadBlob(ctx context.Context, oid string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.blobs[oid]
	if !ok {
		return nil, lerrors.ObjectNotFound(oid)
	}
	return data, nil
}

func (r *Repo) ListWorktrees(ctx context.Context) ([]vcs.Worktree, error) {
	return r.worktrees, nil
}

func (r *Repo) RunGit(ctx context.Context, args ...string) (string, error) {
	return "", nil
}
