// Package vcs defines the single doorway onto the underlying DVCS that the
// rest of Lattice is built against. Production code always wires the one
// concrete implementation (internal/vcs/gitcli); the interface exists so
// scanner/planner/executor unit tests can run against an in-memory fake
// without a real git process.
package vcs

import "context"

// RepoContext classifies how the working copy relates to its git dir.
type RepoContext string

const (
	ContextNormal   RepoContext = "normal"
	ContextBare     RepoContext = "bare"
	ContextWorktree RepoContext = "worktree"
)

// Info describes the shape of the repository Lattice is operating on.
type Info struct {
	GitDir    string
	CommonDir string
	WorkDir   string // empty iff no working directory is available
	Context   RepoContext
}

// GitStateKind is the closed set of in-progress DVCS operations.
type GitStateKind string

const (
	GitStateClean        GitStateKind = "clean"
	GitStateRebase       GitStateKind = "rebase"
	GitStateMerge        GitStateKind = "merge"
	GitStateCherryPick   GitStateKind = "cherry_pick"
	GitStateRevert       GitStateKind = "revert"
	GitStateBisect       GitStateKind = "bisect"
	GitStateApplyMailbox GitStateKind = "apply_mailbox"
)

// GitState is the DVCS's in-progress indicator, with rebase progress when known.
type GitState struct {
	Kind    GitStateKind
	Current int // rebase only; 0 if unknown
	Total   int // rebase only; 0 if unknown
}

func (s GitState) Clean() bool { return s.Kind == GitStateClean }

// WorktreeStatusKind is the closed set of working-copy cleanliness states.
type WorktreeStatusKind string

const (
	WorktreeClean       WorktreeStatusKind = "clean"
	WorktreeDirty       WorktreeStatusKind = "dirty"
	WorktreeUnavailable WorktreeStatusKind = "unavailable"
)

// WorktreeStatus reports the working copy's cleanliness. Untracked files
// are never counted (spec: "Untracked files are never counted").
type WorktreeStatus struct {
	Kind      WorktreeStatusKind
	Staged    int
	Unstaged  int
	Conflicts int
	Reason    string // Unavailable only
}

func (s WorktreeStatus) IsClean() bool { return s.Kind == WorktreeClean }

// Worktree describes one entry from `git worktree list`.
type Worktree struct {
	Path   string
	Branch string // empty if detached
	Head   string
}

// CasPrecondition expresses "the ref must currently be at this value" or,
// when Present is false, "the ref must not exist".
type CasPrecondition struct {
	Oid     string
	Present bool
}

// Repository is the single doorway onto the DVCS. Every method maps
// underlying errors into Lattice's closed error taxonomy; no raw
// subprocess/library error escapes.
type Repository interface {
	Info(ctx context.Context) (Info, error)
	State(ctx context.Context) (GitState, error)
	WorktreeStatus(ctx context.Context) (WorktreeStatus, error)

	ResolveRef(ctx context.Context, name string) (string, error)
	TryResolveRefToObject(ctx context.Context, name string) (string, bool, error)

	UpdateRefCas(ctx context.Context, name string, newOid string, expectedOld CasPrecondition, reason string) error
	DeleteRefCas(ctx context.Context, name string, expectedOld string) error

	ListRefsInNamespace(ctx context.Context, namespace string) (map[string]string, error)
	ListLocalBranches(ctx context.Context) (map[string]string, error)
	CurrentBranch(ctx context.Context) (string, bool, error) // ok=false iff detached

	MergeBase(ctx context.Context, a, b string) (string, error)
	IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error)
	CommitCount(ctx context.Context, base, tip string) (int, error)

	WriteBlob(ctx context.Context, data []byte) (string, error)
	ReadBlob(ctx context.Context, oid string) ([]byte, error)

	ListWorktrees(ctx context.Context) ([]Worktree, error)

	RunGit(ctx context.Context, args ...string) (string, error)
}
