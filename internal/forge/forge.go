// Package forge is the trait consumed by submit/sync/pr commands and by
// the scanner's best-effort open-PR bootstrap, generalized from the
// teacher's internal/remote.Platform (repository/branch-protection
// endpoints) to pull-request endpoints. internal/vcs.Repository is the
// system's doorway onto the DVCS; forge.Client is its counterpart for the
// code-review host, and stays the only other runtime-polymorphic interface
// in the tree for the same reason: production always wires one concrete
// client, but submit/sync tests need a double that never makes a network
// call.
package forge

import "context"

// PRState mirrors the forge's lifecycle for a pull request.
type PRState string

const (
	PRStateOpen   PRState = "open"
	PRStateClosed PRState = "closed"
	PRStateMerged PRState = "merged"
)

// PR is the forge-agnostic view of a pull request, reduced to the fields
// internal/metadata.LastKnownPr caches and submit/sync need to reason
// about.
type PR struct {
	Number  uint64
	URL     string
	Head    string
	Base    string
	Title   string
	Body    string
	State   PRState
	IsDraft bool
}

// CreatePRRequest describes a new pull request.
type CreatePRRequest struct {
	Head  string
	Base  string
	Title string
	Body  string
	Draft bool
}

// UpdatePRRequest patches an existing pull request; nil fields are left
// unchanged.
type UpdatePRRequest struct {
	Number uint64
	Title  *string
	Body   *string
	Base   *string
}

// Client is the forge trait: get/find/create/update over pull requests.
// Callers needing create-or-update idempotency must call FindPRByHead
// first and branch on the result themselves — the trait does not hide
// that behind an upsert, mirroring the at-least-once semantics the core
// assumes of every remote call.
type Client interface {
	GetPR(ctx context.Context, number uint64) (PR, error)
	FindPRByHead(ctx context.Context, head string) (PR, bool, error)
	CreatePR(ctx context.Context, req CreatePRRequest) (PR, error)
	UpdatePR(ctx context.Context, req UpdatePRRequest) (PR, error)
}
