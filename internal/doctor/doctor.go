// Package doctor is the repair broker: it turns the issues a scan surfaced
// into user-confirmed fix plans, using a check-table/dry-run-fix shape
// generalized into the diagnose/plan/apply pipeline the metadata-ref-based
// workflow needs. Doctor is not a privileged mutation path: every ref-level
// fix it offers still runs through the standard executor, and
// non-interactive selection never auto-picks a fix for the caller.
package doctor

import (
	"context"
	"fmt"

	"github.com/lcgerke/lattice/internal/capabilities"
	"github.com/lcgerke/lattice/internal/config"
	"github.com/lcgerke/lattice/internal/executor"
	"github.com/lcgerke/lattice/internal/ledger"
	"github.com/lcgerke/lattice/internal/metadata"
	"github.com/lcgerke/lattice/internal/opstate"
	"github.com/lcgerke/lattice/internal/plan"
	"github.com/lcgerke/lattice/internal/scanner"
	"github.com/lcgerke/lattice/internal/types"
	"github.com/lcgerke/lattice/internal/vcs"
)

// Preview previews the effect of a fix before it is applied.
type Preview struct {
	RefChanges      []string
	MetadataChanges []string
	ConfigChanges   []string
}

// FixOption is one way to resolve an issue. Advisory fixes (continue/abort a
// suspended lattice operation, or the equivalent for an in-progress DVCS
// operation) carry no Steps: they name a command the user must run
// themselves, since doctor only holds the snapshot, not the original plan.
type FixOption struct {
	ID          string
	IssueID     string
	Description string

	Preconditions []capabilities.Capability
	Preview       Preview

	Steps       []plan.PlanStep  // ref/metadata-level fix, applied via the executor
	ConfigPatch *config.RepoConfig // config-only fix, applied directly via config.Manager
	Advisory    bool              // no mechanical fix; Description names the command to run
}

// DiagnosisReport is the result of diagnose(snapshot).
type DiagnosisReport struct {
	Issues  []capabilities.Issue
	Fixes   []FixOption
	Summary string
}

// Diagnose runs the type-indexed fix generators over every issue the scan
// surfaced (blocking or warning) and returns a report. Generators are pure
// functions of the issue and the already-sampled snapshot, except for
// metadata-parse-error (needs the observed-but-unparseable ref oid, read
// directly since the snapshot only retains parsed entries) and
// base-not-ancestor (needs MergeBase to propose a corrected base).
func Diagnose(ctx context.Context, repo vcs.Repository, snap scanner.RepoSnapshot) (DiagnosisReport, error) {
	report := DiagnosisReport{Issues: snap.Health.Issues}

	for _, issue := range snap.Health.Issues {
		kind, arg := splitIssueID(issue.ID)
		var fixes []FixOption
		var err error

		switch kind {
		case "trunk-not-configured":
			fixes = genTrunkNotConfigured(snap)
		case "metadata-parse-error":
			fixes, err = genMetadataParseError(ctx, repo, snap, arg)
		case "parent-missing":
			fixes = genParentMissing(snap, arg)
		case "graph-cycle":
			fixes = genGraphCycle(snap, issue)
		case "base-not-ancestor":
			fixes, err = genBaseNotAncestor(ctx, repo, snap, arg)
		case "orphaned-metadata":
			fixes = genOrphanedMetadata(snap, arg)
		case "lattice-op-in-progress":
			fixes = genLatticeOpInProgress()
		case "git-op-in-progress":
			fixes = genGitOpInProgress(snap)
		case "config-migration":
			fixes = genConfigMigration(snap)
		case "no-remote":
			fixes = genNoRemote()
		case "non-github-remote":
			fixes = genNonGithubRemote()
		case "no-forge-credentials":
			fixes = genNoForgeCredentials()
		}
		if err != nil {
			return DiagnosisReport{}, err
		}
		report.Fixes = append(report.Fixes, fixes...)
	}

	report.Summary = fmt.Sprintf("%d issue(s), %d fix option(s)", len(report.Issues), len(report.Fixes))
	return report, nil
}

// splitIssueID splits "kind:arg" issue ids (per-branch issues) from bare
// kind-only ids (trunk-not-configured, graph-cycle, lattice-op-in-progress,
// git-op-in-progress, config-migration).
func splitIssueID(id string) (kind, arg string) {
	for i := 0; i < len(id); i++ {
		if id[i] == ':' {
			return id[:i], id[i+1:]
		}
	}
	return id, ""
}

func genTrunkNotConfigured(snap scanner.RepoSnapshot) []FixOption {
	var fixes []FixOption
	for _, candidate := range []string{"main", "master", "develop", "trunk"} {
		if _, ok := snap.Branches[candidate]; !ok {
			continue
		}
		cfg := snap.Config
		cfg.Trunk = candidate
		fixes = append(fixes, FixOption{
			ID:          "set-trunk-" + candidate,
			IssueID:     "trunk-not-configured",
			Description: "set trunk to " + candidate,
			Preview:     Preview{ConfigChanges: []string{"trunk = " + candidate}},
			ConfigPatch: &cfg,
		})
	}
	if len(fixes) == 0 && snap.HasCurrent {
		cur := snap.CurrentBranch.String()
		cfg := snap.Config
		cfg.Trunk = cur
		fixes = append(fixes, FixOption{
			ID:          "set-trunk-current",
			IssueID:     "trunk-not-configured",
			Description: "set trunk to the current branch (" + cur + ")",
			Preview:     Preview{ConfigChanges: []string{"trunk = " + cur}},
			ConfigPatch: &cfg,
		})
	}
	return fixes
}

func genMetadataParseError(ctx context.Context, repo vcs.Repository, snap scanner.RepoSnapshot, branch string) ([]FixOption, error) {
	ref := types.BranchMetadataNamespace + branch
	oid, ok, err := repo.TryResolveRefToObject(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var fixes []FixOption
	fixes = append(fixes, FixOption{
		ID:            "delete-metadata:" + branch,
		IssueID:       "metadata-parse-error:" + branch,
		Description:   "delete the invalid metadata ref for " + branch,
		Preconditions: []capabilities.Capability{capabilities.RepoOpen},
		Preview:       Preview{MetadataChanges: []string{"delete refs/branch-metadata/" + branch}},
		Steps:         []plan.PlanStep{plan.DeleteMetadataCas(branch, oid)},
	})

	if snap.HasTrunk {
		if trunkOid, ok := snap.Branches[snap.Trunk.String()]; ok {
			fixes = append(fixes, FixOption{
				ID:            "reinit-metadata:" + branch,
				IssueID:       "metadata-parse-error:" + branch,
				Description:   "re-initialize metadata for " + branch + " with parent=" + snap.Trunk.String(),
				Preconditions: []capabilities.Capability{capabilities.TrunkKnown},
				Preview:       Preview{MetadataChanges: []string{"reinitialize refs/branch-metadata/" + branch}},
				Steps: []plan.PlanStep{plan.WriteMetadataCas(branch, &oid, defaultMetadata(branch, snap.Trunk.String(), trunkOid.String()))},
			})
		}
	}
	return fixes, nil
}

func genParentMissing(snap scanner.RepoSnapshot, branch string) []FixOption {
	entry, ok := snap.Tracked[branch]
	if !ok {
		return nil
	}
	var fixes []FixOption
	if snap.HasTrunk {
		m := entry.Metadata
		m.Parent = metadata.ParentInfo{Kind: metadata.ParentTrunk, Name: snap.Trunk.String()}
		m.Timestamps.UpdatedAt = types.Now()
		oldOid := entry.RefOid
		fixes = append(fixes, FixOption{
			ID:            "reparent-to-trunk:" + branch,
			IssueID:       "parent-missing:" + branch,
			Description:   "reparent " + branch + " to trunk (" + snap.Trunk.String() + ")",
			Preconditions: []capabilities.Capability{capabilities.TrunkKnown},
			Preview:       Preview{MetadataChanges: []string{branch + ".parent = " + snap.Trunk.String()}},
			Steps:         []plan.PlanStep{plan.WriteMetadataCas(branch, &oldOid, m)},
		})
	}
	fixes = append(fixes, untrackFix(branch, entry.RefOid, "parent-missing:"+branch))
	return fixes
}

func genGraphCycle(snap scanner.RepoSnapshot, issue capabilities.Issue) []FixOption {
	var fixes []FixOption
	for _, branch := range issue.Evidence {
		entry, ok := snap.Tracked[branch]
		if !ok {
			continue
		}
		if snap.HasTrunk {
			m := entry.Metadata
			m.Parent = metadata.ParentInfo{Kind: metadata.ParentTrunk, Name: snap.Trunk.String()}
			m.Timestamps.UpdatedAt = types.Now()
			oldOid := entry.RefOid
			fixes = append(fixes, FixOption{
				ID:            "reparent-to-trunk:" + branch,
				IssueID:       issue.ID,
				Description:   "reparent " + branch + " to trunk (" + snap.Trunk.String() + "), breaking the cycle",
				Preconditions: []capabilities.Capability{capabilities.TrunkKnown},
				Preview:       Preview{MetadataChanges: []string{branch + ".parent = " + snap.Trunk.String()}},
				Steps:         []plan.PlanStep{plan.WriteMetadataCas(branch, &oldOid, m)},
			})
		}
		fix := untrackFix(branch, entry.RefOid, issue.ID)
		fix.Description = "untrack " + branch + ", breaking the cycle"
		fixes = append(fixes, fix)
	}
	return fixes
}

func genBaseNotAncestor(ctx context.Context, repo vcs.Repository, snap scanner.RepoSnapshot, branch string) ([]FixOption, error) {
	entry, ok := snap.Tracked[branch]
	if !ok {
		return nil, nil
	}
	parentTip, ok := resolveParentTip(snap, entry.Metadata.Parent)
	if !ok {
		return nil, nil
	}
	tip, ok := snap.Branches[branch]
	if !ok {
		return nil, nil
	}
	newBase, err := repo.MergeBase(ctx, parentTip.String(), tip.String())
	if err != nil {
		return nil, nil // no common ancestor found; doctor offers nothing rather than guessing
	}

	m := entry.Metadata
	m.Base = metadata.BaseRef{Oid: newBase}
	m.Timestamps.UpdatedAt = types.Now()
	oldOid := entry.RefOid
	return []FixOption{{
		ID:            "recompute-base:" + branch,
		IssueID:       "base-not-ancestor:" + branch,
		Description:   "recompute base for " + branch + " from its parent; run restack afterward",
		Preconditions: []capabilities.Capability{capabilities.MetadataReadable},
		Preview:       Preview{MetadataChanges: []string{branch + ".base = " + newBase}},
		Steps:         []plan.PlanStep{plan.WriteMetadataCas(branch, &oldOid, m)},
	}}, nil
}

func genOrphanedMetadata(snap scanner.RepoSnapshot, branch string) []FixOption {
	entry, ok := snap.Tracked[branch]
	if !ok {
		return nil
	}
	return []FixOption{untrackFix(branch, entry.RefOid, "orphaned-metadata:"+branch)}
}

func genLatticeOpInProgress() []FixOption {
	return []FixOption{
		{ID: "continue", IssueID: "lattice-op-in-progress", Description: "run `lattice continue` to resume the suspended operation", Advisory: true},
		{ID: "abort", IssueID: "lattice-op-in-progress", Description: "run `lattice abort` to roll back the suspended operation", Advisory: true},
	}
}

func genGitOpInProgress(snap scanner.RepoSnapshot) []FixOption {
	op := string(snap.GitState.Kind)
	return []FixOption{
		{ID: "dvcs-continue", IssueID: "git-op-in-progress", Description: "run `git " + op + " --continue`", Advisory: true},
		{ID: "dvcs-abort", IssueID: "git-op-in-progress", Description: "run `git " + op + " --abort`", Advisory: true},
	}
}

func genNoRemote() []FixOption {
	return []FixOption{
		{ID: "add-remote", IssueID: "no-remote", Description: "run `git remote add origin <url>` to configure a GitHub remote", Advisory: true},
	}
}

func genNonGithubRemote() []FixOption {
	return []FixOption{
		{ID: "repoint-remote", IssueID: "non-github-remote", Description: "run `git remote set-url origin <github-url>` to point origin at a GitHub remote", Advisory: true},
	}
}

func genNoForgeCredentials() []FixOption {
	return []FixOption{
		{ID: "configure-pat", IssueID: "no-forge-credentials", Description: "add a personal access token to the secrets file (see 'lattice help submit')", Advisory: true},
	}
}

func genConfigMigration(snap scanner.RepoSnapshot) []FixOption {
	cfg := snap.Config
	return []FixOption{{
		ID:          "migrate-config",
		IssueID:     "config-migration",
		Description: "migrate the legacy state.yaml configuration to config.toml",
		Preview:     Preview{ConfigChanges: []string{"write config.toml"}},
		ConfigPatch: &cfg,
	}}
}

func untrackFix(branch, refOid, issueID string) FixOption {
	return FixOption{
		ID:          "untrack:" + branch,
		IssueID:     issueID,
		Description: "untrack " + branch,
		Preview:     Preview{MetadataChanges: []string{"delete refs/branch-metadata/" + branch}},
		Steps:       []plan.PlanStep{plan.DeleteMetadataCas(branch, refOid)},
	}
}

func defaultMetadata(branch, parentName, baseOid string) metadata.BranchMetadata {
	now := types.Now()
	return metadata.BranchMetadata{
		Branch:     metadata.BranchRef{Name: branch},
		Parent:     metadata.ParentInfo{Kind: metadata.ParentTrunk, Name: parentName},
		Base:       metadata.BaseRef{Oid: baseOid},
		Freeze:     metadata.Unfrozen(),
		Pr:         metadata.NoPr(),
		Timestamps: metadata.Timestamps{CreatedAt: now, UpdatedAt: now},
	}
}

func resolveParentTip(snap scanner.RepoSnapshot, parent metadata.ParentInfo) (types.Oid, bool) {
	oid, ok := snap.Branches[parent.Name]
	return oid, ok
}

// Apply validates every selected fix's preconditions against snap (defense
// in depth: a fix with unmet preconditions is rejected here even though
// Diagnose should never have offered it), then applies config-only fixes
// directly and composes every ref/metadata fix into a single Plan run
// through the standard executor. Advisory fixes are no-ops: they exist only
// to be displayed.
func Apply(ctx context.Context, repo vcs.Repository, cfgMgr *config.Manager, opStore *opstate.Store, led *ledger.Ledger, snap scanner.RepoSnapshot, rescan executor.Rescanner, selected []FixOption) (executor.Result, error) {
	var steps []plan.PlanStep
	for _, fix := range selected {
		if fix.Advisory {
			continue
		}
		missing := snap.Health.Missing(fix.Preconditions)
		if len(missing) > 0 {
			return executor.Result{}, fmt.Errorf("fix %s has unmet preconditions: %v", fix.ID, missing)
		}
		if fix.ConfigPatch != nil {
			if err := cfgMgr.Save(*fix.ConfigPatch); err != nil {
				return executor.Result{}, err
			}
			continue
		}
		steps = append(steps, fix.Steps...)
	}

	if len(steps) == 0 {
		return executor.Result{Outcome: executor.OutcomeCommitted, FingerprintAfter: snap.Fingerprint}, nil
	}

	pl := plan.New("doctor")
	pl.Append(plan.Checkpoint("start"))
	pl.Append(steps...)
	pl.Append(plan.Checkpoint("complete"))

	return executor.Execute(ctx, repo, opStore, led, pl, snap.Fingerprint, rescan), nil
}
