// Package planner builds the plan.Plan for every ordinary mutating
// command (track, untrack, restack, fold, freeze, unfreeze, submit) plus
// the pure navigation lookups (up, down, top, bottom). Every function here
// is a pure function of an already-taken scanner.RepoSnapshot: it never
// calls the DVCS itself and never starts a mutation, so a caller can
// inspect, log, or discard a built plan before ever invoking the
// executor. The one exception to "no DVCS knowledge" is RestackOne's
// RunGit step, which the executor itself runs — the planner only
// describes it.
//
// Branch/parent/tip lookups read entirely from the snapshot's
// already-sampled Branches/Tracked maps rather than issuing their own
// git-CLI calls.
package planner

import (
	"fmt"

	lerrors "github.com/lcgerke/lattice/internal/errors"
	"github.com/lcgerke/lattice/internal/graph"
	"github.com/lcgerke/lattice/internal/metadata"
	"github.com/lcgerke/lattice/internal/plan"
	"github.com/lcgerke/lattice/internal/scanner"
	"github.com/lcgerke/lattice/internal/types"
)

// Track builds the plan for tracking an existing branch. parentName empty
// or equal to the trunk name resolves to Parent{Trunk}; any other value
// must already have a known tip.
func Track(snap scanner.RepoSnapshot, branch, parentName, baseOid string) (plan.Plan, error) {
	if _, err := types.NewBranchName(branch); err != nil {
		return plan.Plan{}, err
	}
	if _, already := snap.Tracked[branch]; already {
		return plan.Plan{}, fmt.Errorf("branch %q is already tracked", branch)
	}
	if _, ok := snap.Branches[branch]; !ok {
		return plan.Plan{}, lerrors.RefNotFound("refs/heads/" + branch)
	}

	var parent metadata.ParentInfo
	if parentName == "" || parentName == snap.Trunk.String() {
		if !snap.HasTrunk {
			return plan.Plan{}, fmt.Errorf("trunk is not configured")
		}
		parent = metadata.ParentInfo{Kind: metadata.ParentTrunk, Name: snap.Trunk.String()}
	} else {
		if _, ok := snap.Branches[parentName]; !ok {
			return plan.Plan{}, lerrors.RefNotFound("refs/heads/" + parentName)
		}
		parent = metadata.ParentInfo{Kind: metadata.ParentBranch, Name: parentName}
	}

	base, err := types.NewOid(baseOid)
	if err != nil {
		return plan.Plan{}, err
	}

	now := types.Now()
	m := metadata.BranchMetadata{
		Branch:     metadata.BranchRef{Name: branch},
		Parent:     parent,
		Base:       metadata.BaseRef{Oid: base.String()},
		Freeze:     metadata.Unfrozen(),
		Pr:         metadata.NoPr(),
		Timestamps: metadata.Timestamps{CreatedAt: now, UpdatedAt: now},
	}

	pl := plan.New("track")
	pl.Append(plan.Checkpoint("start"))
	pl.Append(plan.WriteMetadataCas(branch, nil, m))
	pl.Append(plan.Checkpoint("complete"))
	return pl, nil
}

// Untrack builds the plan for removing a branch's metadata. The branch's
// head ref itself is untouched; untrack only disowns it.
func Untrack(snap scanner.RepoSnapshot, branch string) (plan.Plan, error) {
	entry, ok := snap.Tracked[branch]
	if !ok {
		return plan.Plan{}, fmt.Errorf("branch %q is not tracked", branch)
	}

	pl := plan.New("untrack")
	pl.Append(plan.Checkpoint("start"))
	pl.Append(plan.DeleteMetadataCas(branch, entry.RefOid))
	pl.Append(plan.Checkpoint("complete"))
	return pl, nil
}

// CheckFrozenPolicy computes freeze_scope(target, trunk, includeDescendants)
// and fails if any branch in that scope is frozen. This is a user-intentional
// block, not a doctor-repairable issue, so it is surfaced as a plain error
// rather than a capabilities.Issue.
func CheckFrozenPolicy(snap scanner.RepoSnapshot, target string, includeDescendants bool) error {
	if !snap.HasTrunk {
		return nil
	}
	for _, b := range snap.Graph.FreezeScope(target, snap.Trunk.String(), includeDescendants) {
		entry, ok := snap.Tracked[b]
		if !ok {
			continue
		}
		if entry.Metadata.Freeze.IsFrozen() {
			return fmt.Errorf("branch %q is frozen; run 'lattice unfreeze %s' first", b, b)
		}
	}
	return nil
}

// Freeze builds the plan marking target (and, for ScopeDownstackInclusive,
// its downstack ancestors up to trunk) as frozen.
func Freeze(snap scanner.RepoSnapshot, target string, scope metadata.FreezeScope, reason string) (plan.Plan, error) {
	if _, ok := snap.Tracked[target]; !ok {
		return plan.Plan{}, fmt.Errorf("branch %q is not tracked", target)
	}
	if scope != metadata.ScopeSingle && scope != metadata.ScopeDownstackInclusive {
		return plan.Plan{}, fmt.Errorf("unknown freeze scope %q", scope)
	}

	targets := []string{target}
	if scope == metadata.ScopeDownstackInclusive {
		if !snap.HasTrunk {
			return plan.Plan{}, fmt.Errorf("trunk is not configured")
		}
		targets = snap.Graph.FreezeScope(target, snap.Trunk.String(), false)
	}

	now := types.Now()
	pl := plan.New("freeze")
	pl.Append(plan.Checkpoint("start"))
	for _, b := range topologicalSubset(snap.Graph, targets) {
		entry, ok := snap.Tracked[b]
		if !ok {
			return plan.Plan{}, fmt.Errorf("branch %q in freeze scope is not tracked", b)
		}
		frozenAt := now
		m := entry.Metadata
		m.Freeze = metadata.FreezeState{State: metadata.FreezeFrozen, Scope: scope, Reason: reason, FrozenAt: &frozenAt}
		m.Timestamps.UpdatedAt = now
		oldOid := entry.RefOid
		pl.Append(plan.WriteMetadataCas(b, &oldOid, m))
	}
	pl.Append(plan.Checkpoint("complete"))
	return pl, nil
}

// Unfreeze builds the plan clearing target's frozen state. When cascade is
// set it also clears any currently-frozen downstack ancestor, mirroring
// the scope a DownstackInclusive Freeze would have covered; branches that
// are not currently frozen are left untouched (no-op writes are skipped,
// so re-running Unfreeze is idempotent).
func Unfreeze(snap scanner.RepoSnapshot, target string, cascade bool) (plan.Plan, error) {
	if _, ok := snap.Tracked[target]; !ok {
		return plan.Plan{}, fmt.Errorf("branch %q is not tracked", target)
	}

	targets := []string{target}
	if cascade {
		if !snap.HasTrunk {
			return plan.Plan{}, fmt.Errorf("trunk is not configured")
		}
		targets = snap.Graph.FreezeScope(target, snap.Trunk.String(), false)
	}

	now := types.Now()
	pl := plan.New("unfreeze")
	pl.Append(plan.Checkpoint("start"))
	for _, b := range topologicalSubset(snap.Graph, targets) {
		entry, ok := snap.Tracked[b]
		if !ok || !entry.Metadata.Freeze.IsFrozen() {
			continue
		}
		m := entry.Metadata
		m.Freeze = metadata.Unfrozen()
		m.Timestamps.UpdatedAt = now
		oldOid := entry.RefOid
		pl.Append(plan.WriteMetadataCas(b, &oldOid, m))
	}
	pl.Append(plan.Checkpoint("complete"))
	return pl, nil
}

// RestackOne builds the plan re-establishing branch's base-ancestry
// invariant against its parent's current tip. It handles exactly one
// branch: a multi-branch restack is the caller's responsibility, looping
// RestackOne and rescanning between calls, since a later branch's new
// parent tip is only observable once the earlier branch's rebase has
// actually run.
func RestackOne(snap scanner.RepoSnapshot, branch string) (plan.Plan, error) {
	entry, ok := snap.Tracked[branch]
	if !ok {
		return plan.Plan{}, fmt.Errorf("branch %q is not tracked", branch)
	}
	if err := CheckFrozenPolicy(snap, branch, false); err != nil {
		return plan.Plan{}, err
	}

	parentName := entry.Metadata.Parent.Name
	parentTip, ok := snap.Branches[parentName]
	if !ok {
		return plan.Plan{}, lerrors.RefNotFound("refs/heads/" + parentName)
	}
	if _, ok := snap.Branches[branch]; !ok {
		return plan.Plan{}, lerrors.RefNotFound("refs/heads/" + branch)
	}
	baseOid, err := types.NewOid(entry.Metadata.Base.Oid)
	if err != nil {
		return plan.Plan{}, err
	}

	pl := plan.New("restack")
	pl.Append(plan.Checkpoint("start"))

	if baseOid.String() == parentTip.String() {
		// already based on the parent's current tip, nothing to do
		pl.Append(plan.Checkpoint("complete"))
		return pl, nil
	}

	pl.Append(plan.RunGit(
		[]string{"rebase", "--onto", parentTip.String(), baseOid.String(), "refs/heads/" + branch},
		fmt.Sprintf("rebase %s onto %s", branch, parentName),
		[]plan.ExpectedEffect{{Ref: "refs/heads/" + branch, DescendsFrom: parentTip.String()}},
	))

	m := entry.Metadata
	m.Base = metadata.BaseRef{Oid: parentTip.String()}
	m.Timestamps.UpdatedAt = types.Now()
	oldOid := entry.RefOid
	pl.Append(plan.WriteMetadataCas(branch, &oldOid, m))

	pl.Append(plan.Checkpoint("complete"))
	return pl, nil
}

// Fold builds the plan merging branch into its parent: the parent ref
// fast-forwards to branch's tip, branch's children are reparented onto
// branch's former parent (their base stays valid since it already
// anchors to the oid the parent ref now holds), and branch itself is
// untracked and deleted. Folding requires branch to already be restacked
// onto its parent (base == parent's tip); otherwise the fast-forward
// would silently drop commits the parent hasn't seen yet.
func Fold(snap scanner.RepoSnapshot, branch string) (plan.Plan, error) {
	entry, ok := snap.Tracked[branch]
	if !ok {
		return plan.Plan{}, fmt.Errorf("branch %q is not tracked", branch)
	}
	if err := CheckFrozenPolicy(snap, branch, true); err != nil {
		return plan.Plan{}, err
	}

	parentName := entry.Metadata.Parent.Name
	parentTip, ok := snap.Branches[parentName]
	if !ok {
		return plan.Plan{}, lerrors.RefNotFound("refs/heads/" + parentName)
	}
	branchTip, ok := snap.Branches[branch]
	if !ok {
		return plan.Plan{}, lerrors.RefNotFound("refs/heads/" + branch)
	}
	if entry.Metadata.Base.Oid != parentTip.String() {
		return plan.Plan{}, fmt.Errorf("branch %q must be restacked onto %q before folding", branch, parentName)
	}

	now := types.Now()
	pl := plan.New("fold")
	pl.Append(plan.Checkpoint("start"))

	parentOld := parentTip.String()
	pl.Append(plan.UpdateRefCas("refs/heads/"+parentName, &parentOld, branchTip.String(), "lattice: fold "+branch+" into "+parentName))

	for _, child := range snap.Graph.Children(branch) {
		childEntry, ok := snap.Tracked[child]
		if !ok {
			continue
		}
		m := childEntry.Metadata
		m.Parent = entry.Metadata.Parent
		m.Timestamps.UpdatedAt = now
		oldOid := childEntry.RefOid
		pl.Append(plan.WriteMetadataCas(child, &oldOid, m))
	}

	pl.Append(plan.DeleteMetadataCas(branch, entry.RefOid))
	pl.Append(plan.DeleteRefCas("refs/heads/"+branch, branchTip.String(), "lattice: fold removes "+branch))

	pl.Append(plan.Checkpoint("complete"))
	return pl, nil
}

// RecordPr builds the plan linking a forge pull request to branch's
// metadata, the final step of submit after the CLI itself has already
// made the network call (the forge is the one suspension point this
// package never touches).
func RecordPr(snap scanner.RepoSnapshot, branch, forgeName string, number uint64, url, lastState string, isDraft bool) (plan.Plan, error) {
	entry, ok := snap.Tracked[branch]
	if !ok {
		return plan.Plan{}, fmt.Errorf("branch %q is not tracked", branch)
	}

	m := entry.Metadata
	m.Pr = metadata.PrState{
		State:     metadata.PrLinked,
		Forge:     forgeName,
		Number:    number,
		URL:       url,
		LastKnown: &metadata.LastKnownPr{State: lastState, IsDraft: isDraft},
	}
	m.Timestamps.UpdatedAt = types.Now()
	oldOid := entry.RefOid

	pl := plan.New("submit")
	pl.Append(plan.Checkpoint("start"))
	pl.Append(plan.WriteMetadataCas(branch, &oldOid, m))
	pl.Append(plan.Checkpoint("complete"))
	return pl, nil
}

// Up returns the single child of current. Ambiguous (more than one
// child) and terminal (no children) cases are both reported as errors;
// the caller decides whether to prompt.
func Up(snap scanner.RepoSnapshot, current string) (string, error) {
	children := snap.Graph.Children(current)
	switch len(children) {
	case 0:
		return "", fmt.Errorf("branch %q has no children; already at the top of the stack", current)
	case 1:
		return children[0], nil
	default:
		return "", fmt.Errorf("branch %q has multiple children %v; specify one", current, children)
	}
}

// Down returns current's parent name, which may be trunk.
func Down(snap scanner.RepoSnapshot, current string) (string, error) {
	parentName, ok := snap.Graph.Parent(current)
	if !ok {
		return "", fmt.Errorf("branch %q is not tracked; nothing below it", current)
	}
	return parentName, nil
}

// Top walks single-child chains upward from current until it reaches a
// branch with zero or more than one child.
func Top(snap scanner.RepoSnapshot, current string) (string, error) {
	if _, ok := snap.Tracked[current]; !ok {
		return "", fmt.Errorf("branch %q is not tracked", current)
	}
	cur := current
	for {
		children := snap.Graph.Children(cur)
		switch len(children) {
		case 0:
			return cur, nil
		case 1:
			cur = children[0]
		default:
			return "", fmt.Errorf("branch %q has multiple children %v; top is ambiguous", cur, children)
		}
	}
}

// Bottom walks the parent chain down from current until reaching the
// branch whose parent is untracked (ordinarily trunk) — the base of the
// stack, not trunk itself.
func Bottom(snap scanner.RepoSnapshot, current string) (string, error) {
	if _, ok := snap.Tracked[current]; !ok {
		return "", fmt.Errorf("branch %q is not tracked", current)
	}
	cur := current
	for {
		parentName, ok := snap.Graph.Parent(cur)
		if !ok {
			return cur, nil
		}
		if _, parentTracked := snap.Tracked[parentName]; !parentTracked {
			return cur, nil
		}
		cur = parentName
	}
}

// topologicalSubset filters g's topological order down to names, so
// multi-branch metadata writes (freeze/unfreeze scopes) are always
// appended parent-before-child.
func topologicalSubset(g *graph.StackGraph, names []string) []string {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []string
	for _, n := range g.TopologicalOrder() {
		if want[n] {
			out = append(out, n)
		}
	}
	return out
}
