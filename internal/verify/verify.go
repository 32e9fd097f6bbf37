// Package verify implements the post-execution invariant checks the
// executor runs before emitting a Committed ledger record, using
// IsAncestor-based fast-forward validation generalized from a single
// reset precondition to the stack's full ancestor invariants.
package verify

import (
	"context"

	lerrors "github.com/lcgerke/lattice/internal/errors"
	"github.com/lcgerke/lattice/internal/metadata"
	"github.com/lcgerke/lattice/internal/scanner"
	"github.com/lcgerke/lattice/internal/types"
	"github.com/lcgerke/lattice/internal/vcs"
)

// FastVerify runs the four required invariant checks against a
// freshly-taken snapshot. A non-nil error means the just-applied plan
// left the repository in an inconsistent state and must be rolled back.
func FastVerify(ctx context.Context, repo vcs.Repository, snap scanner.RepoSnapshot) error {
	if snap.HasCycle {
		return lerrors.New(lerrors.KindInternal, "post-execution graph is not acyclic")
	}

	for name, entry := range snap.Tracked {
		if _, ok := snap.Branches[name]; !ok {
			return lerrors.New(lerrors.KindInternal, "tracked branch "+name+" has no corresponding ref")
		}

		tip := snap.Branches[name]
		base, err := types.NewOid(entry.Metadata.Base.Oid)
		if err != nil {
			return err
		}

		baseIsAncestorOfTip, err := repo.IsAncestor(ctx, base.String(), tip.String())
		if err != nil {
			return err
		}
		if !baseIsAncestorOfTip {
			return lerrors.New(lerrors.KindInternal, "base of "+name+" is not an ancestor of its tip")
		}

		parentTip, ok := resolveParentTip(snap, entry.Metadata.Parent)
		if !ok {
			continue // parent-missing is a doctor-surfaced issue, not a verifier failure
		}
		baseIsAncestorOfParentTip, err := repo.IsAncestor(ctx, base.String(), parentTip.String())
		if err != nil {
			return err
		}
		if !baseIsAncestorOfParentTip {
			return lerrors.New(lerrors.KindInternal, "base of "+name+" is not reachable from its parent's tip")
		}

		if !wellFormedFreeze(entry.Metadata.Freeze) {
			return lerrors.New(lerrors.KindInternal, "freeze state for "+name+" is not well-formed")
		}
	}
	return nil
}

func resolveParentTip(snap scanner.RepoSnapshot, parent metadata.ParentInfo) (types.Oid, bool) {
	oid, ok := snap.Branches[parent.Name]
	return oid, ok
}

func wellFormedFreeze(f metadata.FreezeState) bool {
	switch f.State {
	case metadata.FreezeUnfrozen:
		return true
	case metadata.FreezeFrozen:
		return f.Scope == metadata.ScopeSingle || f.Scope == metadata.ScopeDownstackInclusive
	default:
		return false
	}
}
