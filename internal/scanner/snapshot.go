// Package scanner produces an immutable RepoSnapshot from a single DVCS
// doorway call, in the fixed deterministic order the rest of the kernel
// depends on, following a fixed pre-flight/accumulate-issues shape.
package scanner

import (
	"github.com/lcgerke/lattice/internal/capabilities"
	"github.com/lcgerke/lattice/internal/config"
	"github.com/lcgerke/lattice/internal/graph"
	"github.com/lcgerke/lattice/internal/metadata"
	"github.com/lcgerke/lattice/internal/types"
	"github.com/lcgerke/lattice/internal/vcs"
)

// DivergenceInfo reports that the ledger's last committed fingerprint no
// longer matches the live repository state — not an error, informational
// input to per-command policy (see internal/ledger).
type DivergenceInfo struct {
	LastCommittedFingerprint types.Fingerprint
	CurrentFingerprint       types.Fingerprint
}

// RemoteKind classifies the probed origin remote.
type RemoteKind string

const (
	RemoteNone      RemoteKind = "none"
	RemoteGitHub    RemoteKind = "github"
	RemoteNonGitHub RemoteKind = "non_github"
)

// RemoteInfo is the scanner's best-effort read of the origin remote.
// Owner and Repo are only populated when Kind is RemoteGitHub.
type RemoteInfo struct {
	Kind  RemoteKind
	URL   string
	Owner string
	Repo  string
}

// TrackedEntry pairs a tracked branch's observed metadata-ref oid with
// its parsed metadata.
type TrackedEntry struct {
	RefOid   string
	Metadata metadata.BranchMetadata
}

// RepoSnapshot is the immutable result of one scan.
type RepoSnapshot struct {
	Info vcs.Info

	GitState       vcs.GitState
	WorktreeStatus vcs.WorktreeStatus

	CurrentBranch types.BranchName
	HasCurrent    bool // false iff detached

	Branches map[string]types.Oid // BranchName.String() -> tip oid

	Tracked map[string]TrackedEntry // BranchName.String() -> entry

	Trunk      types.BranchName
	HasTrunk   bool
	Config     config.RepoConfig
	Migrated   bool

	Remote RemoteInfo

	Graph       *graph.StackGraph
	HasCycle    bool
	Cycle       []string
	Fingerprint types.Fingerprint

	Health *capabilities.Health

	Divergence    DivergenceInfo
	HasDivergence bool
}

// Edges builds the child->parent name map the graph is constructed from.
func (s RepoSnapshot) Edges() map[string]string {
	edges := make(map[string]string, len(s.Tracked))
	for name, entry := range s.Tracked {
		edges[name] = entry.Metadata.Parent.Name
	}
	return edges
}
