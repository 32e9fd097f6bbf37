package scanner

import (
	"context"
	"strings"

	"github.com/lcgerke/lattice/internal/capabilities"
	"github.com/lcgerke/lattice/internal/config"
	"github.com/lcgerke/lattice/internal/forge/github"
	"github.com/lcgerke/lattice/internal/graph"
	"github.com/lcgerke/lattice/internal/ledger"
	"github.com/lcgerke/lattice/internal/metadata"
	"github.com/lcgerke/lattice/internal/opstate"
	"github.com/lcgerke/lattice/internal/secrets"
	"github.com/lcgerke/lattice/internal/types"
	"github.com/lcgerke/lattice/internal/vcs"
)

// Scan runs the fixed 12-step scan order against repo and returns the
// resulting RepoSnapshot. cfgMgr, opStore, and led are all keyed off the
// repository's common dir, supplied by the caller (typically cmd/lattice's
// root command, after resolving repo.Info()). secretsProvider is nil-safe:
// a nil provider skips the forge-authorization probe and AuthAvailable /
// RepoAuthorized are left ungranted.
func Scan(ctx context.Context, repo vcs.Repository, cfgMgr *config.Manager, opStore *opstate.Store, led *ledger.Ledger, secretsProvider secrets.Provider) (RepoSnapshot, error) {
	health := capabilities.NewHealth()
	snap := RepoSnapshot{
		Branches: make(map[string]types.Oid),
		Tracked:  make(map[string]TrackedEntry),
		Health:   health,
	}

	// 1. Open info.
	info, err := repo.Info(ctx)
	if err != nil {
		return RepoSnapshot{}, err
	}
	snap.Info = info
	health.Grant(capabilities.RepoOpen)

	// 2. DVCS in-progress state.
	gitState, err := repo.State(ctx)
	if err != nil {
		return RepoSnapshot{}, err
	}
	snap.GitState = gitState
	if gitState.Clean() {
		health.Grant(capabilities.NoExternalGitOpInProgress)
	} else {
		health.AddIssue(capabilities.Issue{
			ID:                  "git-op-in-progress",
			Severity:            capabilities.SeverityBlocking,
			Message:             "a " + string(gitState.Kind) + " is in progress in the underlying DVCS",
			BlockedCapabilities: []capabilities.Capability{capabilities.NoExternalGitOpInProgress},
		})
	}

	// 3. Persistent OpState marker.
	if opStore != nil {
		op, inProgress, err := opStore.Read()
		if err != nil {
			return RepoSnapshot{}, err
		}
		if inProgress {
			health.AddIssue(capabilities.Issue{
				ID:                  "lattice-op-in-progress",
				Severity:            capabilities.SeverityBlocking,
				Message:             "lattice operation " + op.OpID + " (" + op.Command + ") is in progress",
				Evidence:            []string{op.OpID},
				BlockedCapabilities: []capabilities.Capability{capabilities.NoLatticeOpInProgress},
			})
		} else {
			health.Grant(capabilities.NoLatticeOpInProgress)
		}
	} else {
		health.Grant(capabilities.NoLatticeOpInProgress)
	}

	// 4. Worktree status.
	wt, err := repo.WorktreeStatus(ctx)
	if err != nil {
		return RepoSnapshot{}, err
	}
	snap.WorktreeStatus = wt
	health.Grant(capabilities.WorkingCopyStateKnown)
	if info.WorkDir != "" {
		health.Grant(capabilities.WorkingDirectoryAvailable)
	} else {
		health.AddIssue(capabilities.Issue{
			ID:                  "no-working-directory",
			Severity:            capabilities.SeverityBlocking,
			Message:             "no working directory is available (bare repository or detached worktree)",
			BlockedCapabilities: []capabilities.Capability{capabilities.WorkingDirectoryAvailable},
		})
	}

	// current branch
	cur, ok, err := repo.CurrentBranch(ctx)
	if err != nil {
		return RepoSnapshot{}, err
	}
	if ok {
		b, err := types.NewBranchName(cur)
		if err == nil {
			snap.CurrentBranch = b
			snap.HasCurrent = true
		}
	}

	// 5. Repo configuration.
	if cfgMgr != nil {
		cfg, migrated, err := cfgMgr.Load()
		if err != nil {
			return RepoSnapshot{}, err
		}
		snap.Config = cfg
		snap.Migrated = migrated
		if cfg.Trunk != "" {
			if b, err := types.NewBranchName(cfg.Trunk); err == nil {
				snap.Trunk = b
				snap.HasTrunk = true
				health.Grant(capabilities.TrunkKnown)
			}
		}
		if !snap.HasTrunk {
			health.AddIssue(capabilities.Issue{
				ID:       "trunk-not-configured",
				Severity: capabilities.SeverityBlocking,
				Message:  "no trunk branch is configured",
				BlockedCapabilities: []capabilities.Capability{capabilities.TrunkKnown},
			})
		}
		if migrated {
			health.AddIssue(capabilities.Issue{
				ID:       "config-migration",
				Severity: capabilities.SeverityWarning,
				Message:  "configuration was read from a legacy state.yaml and has not been migrated to config.toml",
			})
		}
	}

	// 6. Enumerate local branches.
	localBranches, err := repo.ListLocalBranches(ctx)
	if err != nil {
		return RepoSnapshot{}, err
	}
	for name, oid := range localBranches {
		b, err := types.NewBranchName(name)
		if err != nil {
			continue
		}
		o, err := types.NewOid(oid)
		if err != nil {
			continue
		}
		snap.Branches[b.String()] = o
	}

	// 7. Enumerate refs/branch-metadata/*.
	store := metadata.NewStore(repo)
	pairs, err := store.ListWithOids(ctx)
	if err != nil {
		return RepoSnapshot{}, err
	}
	allParsed := true
	for _, pair := range pairs {
		entry, ok, err := store.Read(ctx, pair.Branch)
		if err != nil || !ok {
			allParsed = false
			health.AddIssue(capabilities.Issue{
				ID:       "metadata-parse-error:" + pair.Branch.String(),
				Severity: capabilities.SeverityBlocking,
				Message:  "branch metadata for " + pair.Branch.String() + " failed to parse",
				Evidence: []string{pair.Branch.String()},
				BlockedCapabilities: []capabilities.Capability{capabilities.MetadataReadable},
			})
			continue
		}
		snap.Tracked[pair.Branch.String()] = TrackedEntry{RefOid: entry.RefOid, Metadata: entry.Metadata}
	}
	if allParsed {
		health.Grant(capabilities.MetadataReadable)
	}

	// 8. Build graph; run cycle detection.
	g := graph.New(snap.Edges())
	snap.Graph = g
	if cycle := g.FindCycle(); cycle != nil {
		snap.HasCycle = true
		snap.Cycle = cycle
		health.AddIssue(capabilities.Issue{
			ID:                  "graph-cycle",
			Severity:            capabilities.SeverityBlocking,
			Message:             "the tracked-branch graph contains a cycle",
			Evidence:            cycle,
			BlockedCapabilities: []capabilities.Capability{capabilities.GraphValid},
		})
	} else if allParsed {
		health.Grant(capabilities.GraphValid)
	}

	// Non-blocking consistency warnings surfaced for doctor: parent-missing,
	// orphaned-metadata, base-not-ancestor. None of these withhold a
	// capability on their own (graph-cycle and metadata-parse-error already
	// cover the blocking cases above); they exist so the doctor's diagnose
	// pass has a single source of truth instead of re-deriving them.
	for name, entry := range snap.Tracked {
		if _, ok := snap.Branches[name]; !ok {
			health.AddIssue(capabilities.Issue{
				ID:       "orphaned-metadata:" + name,
				Severity: capabilities.SeverityWarning,
				Message:  "branch metadata for " + name + " has no corresponding branch ref",
				Evidence: []string{name},
			})
			continue
		}
		if entry.Metadata.Parent.Kind == metadata.ParentBranch {
			if _, ok := snap.Branches[entry.Metadata.Parent.Name]; !ok {
				health.AddIssue(capabilities.Issue{
					ID:       "parent-missing:" + name,
					Severity: capabilities.SeverityWarning,
					Message:  "parent branch " + entry.Metadata.Parent.Name + " of " + name + " does not exist",
					Evidence: []string{name, entry.Metadata.Parent.Name},
				})
				continue
			}
		}
		tip := snap.Branches[name]
		base, err := types.NewOid(entry.Metadata.Base.Oid)
		if err == nil {
			isAncestor, err := repo.IsAncestor(ctx, base.String(), tip.String())
			if err == nil && !isAncestor {
				health.AddIssue(capabilities.Issue{
					ID:       "base-not-ancestor:" + name,
					Severity: capabilities.SeverityWarning,
					Message:  "recorded base of " + name + " is not an ancestor of its tip",
					Evidence: []string{name},
				})
			}
		}
	}

	// 9. Compute fingerprint from trunk ref (if any) + all branch refs + all metadata refs.
	var pairsFp []types.RefOidPair
	if snap.HasTrunk {
		if oid, ok := snap.Branches[snap.Trunk.String()]; ok {
			pairsFp = append(pairsFp, types.RefOidPair{Ref: types.HeadsRef(snap.Trunk), Oid: oid})
		}
	}
	for name, oid := range snap.Branches {
		b := types.MustBranchName(name)
		pairsFp = append(pairsFp, types.RefOidPair{Ref: types.HeadsRef(b), Oid: oid})
	}
	for name, entry := range snap.Tracked {
		b := types.MustBranchName(name)
		if o, err := types.NewOid(entry.RefOid); err == nil {
			pairsFp = append(pairsFp, types.RefOidPair{Ref: types.BranchMetadataRef(b), Oid: o})
		}
	}
	snap.Fingerprint = types.NewFingerprint(pairsFp)

	// 10. Probe remote origin: resolve it to a forge owner/repo and, when a
	// secrets provider is available, check whether credentials for it
	// resolve. Missing or non-GitHub remotes are Warnings, not Blocking:
	// read-only and navigation commands don't need a remote at all.
	snap.Remote = probeRemote(ctx, repo, secretsProvider, health)

	// 11. Always add FrozenPolicySatisfied; gates/commands refine per-operation.
	health.Grant(capabilities.FrozenPolicySatisfied)

	// 12. Compare fingerprint against the ledger's last Committed event.
	if led != nil {
		rec, found, err := led.LastCommitted()
		if err != nil {
			return RepoSnapshot{}, err
		}
		if found && rec.FingerprintAfter != snap.Fingerprint.String() {
			snap.HasDivergence = true
			snap.Divergence = DivergenceInfo{
				LastCommittedFingerprint: mustFingerprint(rec.FingerprintAfter),
				CurrentFingerprint:       snap.Fingerprint,
			}
		}
	}

	return snap, nil
}

func probeRemote(ctx context.Context, repo vcs.Repository, secretsProvider secrets.Provider, health *capabilities.Health) RemoteInfo {
	out, err := repo.RunGit(ctx, "config", "--get", "remote.origin.url")
	url := strings.TrimSpace(out)
	if err != nil || url == "" {
		health.AddIssue(capabilities.Issue{
			ID:       "no-remote",
			Severity: capabilities.SeverityWarning,
			Message:  "no origin remote is configured; submit and sync are unavailable",
		})
		return RemoteInfo{Kind: RemoteNone}
	}

	owner, repoName, parseErr := github.ParseURL(url)
	if parseErr != nil {
		health.AddIssue(capabilities.Issue{
			ID:       "non-github-remote",
			Severity: capabilities.SeverityWarning,
			Message:  "origin remote " + url + " is not a GitHub remote; submit and sync are unavailable",
			Evidence: []string{url},
		})
		return RemoteInfo{Kind: RemoteNonGitHub, URL: url}
	}
	health.Grant(capabilities.RemoteResolved)

	if secretsProvider == nil {
		return RemoteInfo{Kind: RemoteGitHub, URL: url, Owner: owner, Repo: repoName}
	}
	if _, err := secretsProvider.GetPAT(ctx, url); err != nil {
		health.AddIssue(capabilities.Issue{
			ID:       "no-forge-credentials",
			Severity: capabilities.SeverityWarning,
			Message:  "no stored credentials for " + owner + "/" + repoName + "; submit will fail until a PAT is configured",
			Evidence: []string{url},
		})
		return RemoteInfo{Kind: RemoteGitHub, URL: url, Owner: owner, Repo: repoName}
	}
	health.Grant(capabilities.AuthAvailable)
	health.Grant(capabilities.RepoAuthorized)

	return RemoteInfo{Kind: RemoteGitHub, URL: url, Owner: owner, Repo: repoName}
}

// mustFingerprint parses a persisted fingerprint hex digest; a corrupt
// ledger record is treated as "no baseline" rather than failing the scan.
func mustFingerprint(hex string) types.Fingerprint {
	fp, err := types.ParseFingerprint(hex)
	if err != nil {
		return types.Fingerprint{}
	}
	return fp
}
