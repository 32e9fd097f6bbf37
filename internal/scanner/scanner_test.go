package scanner

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lcgerke/lattice/internal/capabilities"
	"github.com/lcgerke/lattice/internal/config"
	"github.com/lcgerke/lattice/internal/metadata"
	"github.com/lcgerke/lattice/internal/opstate"
	"github.com/lcgerke/lattice/internal/types"
	"github.com/lcgerke/lattice/internal/vcs/fake"
)

func newTestEnv(t *testing.T) (*fake.Repo, *config.Manager, *opstate.Store) {
	t.Helper()
	dir := t.TempDir()
	repo := fake.New()
	repo.CommonDir = filepath.Join(dir, ".git")
	return repo, config.NewManager(repo.CommonDir), opstate.NewStore(repo.CommonDir)
}

func writeMetadata(t *testing.T, repo *fake.Repo, branch, parent, baseOid string) {
	t.Helper()
	m := metadata.BranchMetadata{
		Branch: metadata.BranchRef{Name: branch},
		Parent: metadata.ParentInfo{Kind: metadata.ParentBranch, Name: parent},
		Base:   metadata.BaseRef{Oid: baseOid},
		Freeze: metadata.Unfrozen(),
		Pr:     metadata.NoPr(),
		Timestamps: metadata.Timestamps{
			CreatedAt: types.FromTime(time.Now()),
			UpdatedAt: types.FromTime(time.Now()),
		},
	}
	data, err := metadata.Serialize(m)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	oid, err := repo.WriteBlob(context.Background(), data)
	if err != nil {
		t.Fatalf("WriteBlob() error = %v", err)
	}
	repo.SetRef("refs/branch-metadata/"+branch, oid)
}

func TestScan_CleanRepo(t *testing.T) {
	repo, cfgMgr, opStore := newTestEnv(t)
	ctx := context.Background()

	main := repo.AddCommit("main")
	feature := repo.AddCommit("feature", "main")
	repo.SetBranch("main", main)
	repo.SetBranch("feature", feature)
	repo.Current = "feature"

	if err := cfgMgr.Save(config.RepoConfig{Trunk: "main", Remote: "origin"}); err != nil {
		t.Fatal(err)
	}
	writeMetadata(t, repo, "feature", "main", main)

	snap, err := Scan(ctx, repo, cfgMgr, opStore, nil, nil)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if !snap.Health.Has(capabilities.RepoOpen) {
		t.Error("expected RepoOpen")
	}
	if !snap.Health.Has(capabilities.TrunkKnown) {
		t.Error("expected TrunkKnown")
	}
	if !snap.Health.Has(capabilities.MetadataReadable) {
		t.Error("expected MetadataReadable")
	}
	if !snap.Health.Has(capabilities.GraphValid) {
		t.Error("expected GraphValid")
	}
	if !snap.Health.Has(capabilities.NoLatticeOpInProgress) {
		t.Error("expected NoLatticeOpInProgress")
	}
	if !snap.Health.Has(capabilities.WorkingDirectoryAvailable) {
		t.Error("expected WorkingDirectoryAvailable")
	}
	if snap.HasCycle {
		t.Error("expected no cycle")
	}
	if len(snap.Branches) != 2 {
		t.Errorf("len(Branches) = %d, want 2", len(snap.Branches))
	}
	if _, ok := snap.Tracked["feature"]; !ok {
		t.Error("expected feature to be tracked")
	}
	if snap.Fingerprint.IsZero() {
		t.Error("expected a non-zero fingerprint")
	}
}

func TestScan_RebaseInProgressBlocksCapability(t *testing.T) {
	repo, cfgMgr, opStore := newTestEnv(t)
	repo.GitState.Kind = "rebase"

	snap, err := Scan(context.Background(), repo, cfgMgr, opStore, nil, nil)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if snap.Health.Has(capabilities.NoExternalGitOpInProgress) {
		t.Error("expected NoExternalGitOpInProgress to be withheld during a rebase")
	}
	blocking := snap.Health.BlockingIssuesFor([]capabilities.Capability{capabilities.NoExternalGitOpInProgress})
	if len(blocking) != 1 || blocking[0].ID != "git-op-in-progress" {
		t.Errorf("blocking issues = %+v, want [git-op-in-progress]", blocking)
	}
}

func TestScan_OpStateInProgressBlocksCapability(t *testing.T) {
	repo, cfgMgr, opStore := newTestEnv(t)
	if err := opStore.Write(opstate.OpState{OpID: "op-1", Command: "restack", StartedAt: types.Now()}); err != nil {
		t.Fatal(err)
	}

	snap, err := Scan(context.Background(), repo, cfgMgr, opStore, nil, nil)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if snap.Health.Has(capabilities.NoLatticeOpInProgress) {
		t.Error("expected NoLatticeOpInProgress to be withheld while an op is in progress")
	}
}

func TestScan_CycleBlocksGraphValid(t *testing.T) {
	repo, cfgMgr, opStore := newTestEnv(t)
	a := repo.AddCommit("a")
	b := repo.AddCommit("b")
	repo.SetBranch("a", a)
	repo.SetBranch("b", b)
	writeMetadata(t, repo, "a", "b", a)
	writeMetadata(t, repo, "b", "a", b)

	snap, err := Scan(context.Background(), repo, cfgMgr, opStore, nil, nil)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if !snap.HasCycle {
		t.Error("expected a cycle to be detected")
	}
	if snap.Health.Has(capabilities.GraphValid) {
		t.Error("expected GraphValid to be withheld when a cycle exists")
	}
}

func TestScan_MissingTrunkEmitsIssue(t *testing.T) {
	repo, cfgMgr, opStore := newTestEnv(t)

	snap, err := Scan(context.Background(), repo, cfgMgr, opStore, nil, nil)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if snap.Health.Has(capabilities.TrunkKnown) {
		t.Error("expected TrunkKnown to be withheld when no trunk is configured")
	}
	blocking := snap.Health.BlockingIssuesFor([]capabilities.Capability{capabilities.TrunkKnown})
	if len(blocking) != 1 || blocking[0].ID != "trunk-not-configured" {
		t.Errorf("blocking issues = %+v, want [trunk-not-configured]", blocking)
	}
}
