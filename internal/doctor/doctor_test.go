package doctor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lcgerke/lattice/internal/capabilities"
	"github.com/lcgerke/lattice/internal/config"
	"github.com/lcgerke/lattice/internal/ledger"
	"github.com/lcgerke/lattice/internal/metadata"
	"github.com/lcgerke/lattice/internal/opstate"
	"github.com/lcgerke/lattice/internal/scanner"
	"github.com/lcgerke/lattice/internal/types"
	"github.com/lcgerke/lattice/internal/vcs/fake"
)

type testEnv struct {
	repo    *fake.Repo
	cfgMgr  *config.Manager
	opStore *opstate.Store
	led     *ledger.Ledger
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	repo := fake.New()
	repo.CommonDir = filepath.Join(dir, ".git")
	return testEnv{
		repo:    repo,
		cfgMgr:  config.NewManager(repo.CommonDir),
		opStore: opstate.NewStore(repo.CommonDir),
		led:     ledger.Open(filepath.Join(repo.CommonDir, "lattice", "ledger.jsonl")),
	}
}

func writeMetadata(t *testing.T, repo *fake.Repo, branch, parent, baseOid string) string {
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
	return oid
}

func newRescan(env testEnv) func(ctx context.Context) (scanner.RepoSnapshot, error) {
	return func(ctx context.Context) (scanner.RepoSnapshot, error) {
		return scanner.Scan(ctx, env.repo, env.cfgMgr, env.opStore, env.led, nil)
	}
}

func fixByID(t *testing.T, report DiagnosisReport, id string) FixOption {
	t.Helper()
	for _, f := range report.Fixes {
		if f.ID == id {
			return f
		}
	}
	t.Fatalf("no fix with id %q among %+v", id, report.Fixes)
	return FixOption{}
}

func TestDiagnose_TrunkNotConfiguredOffersKnownCandidate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	mainOid := env.repo.AddCommit("main")
	env.repo.SetBranch("main", mainOid)

	snap, err := scanner.Scan(ctx, env.repo, env.cfgMgr, env.opStore, env.led, nil)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	report, err := Diagnose(ctx, env.repo, snap)
	if err != nil {
		t.Fatalf("Diagnose() error = %v", err)
	}

	fix := fixByID(t, report, "set-trunk-main")
	if fix.ConfigPatch == nil || fix.ConfigPatch.Trunk != "main" {
		t.Fatalf("set-trunk-main fix = %+v, want ConfigPatch.Trunk = main", fix)
	}
}

func TestDiagnose_ParentMissingOffersReparentAndUntrack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	mainOid := env.repo.AddCommit("main")
	featureOid := env.repo.AddCommit("feature", "main")
	env.repo.SetBranch("main", mainOid)
	env.repo.SetBranch("feature", featureOid)

	if err := env.cfgMgr.Save(config.RepoConfig{Trunk: "main", Remote: "origin"}); err != nil {
		t.Fatal(err)
	}
	writeMetadata(t, env.repo, "feature", "gone", mainOid)

	snap, err := scanner.Scan(ctx, env.repo, env.cfgMgr, env.opStore, env.led, nil)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	report, err := Diagnose(ctx, env.repo, snap)
	if err != nil {
		t.Fatalf("Diagnose() error = %v", err)
	}

	reparent := fixByID(t, report, "reparent-to-trunk:feature")
	if len(reparent.Steps) != 1 {
		t.Fatalf("reparent-to-trunk:feature Steps = %+v, want 1 step", reparent.Steps)
	}
	if reparent.Steps[0].Metadata.Parent.Name != "main" {
		t.Errorf("reparented parent = %q, want main", reparent.Steps[0].Metadata.Parent.Name)
	}

	untrack := fixByID(t, report, "untrack:feature")
	if len(untrack.Steps) != 1 {
		t.Fatalf("untrack:feature Steps = %+v, want 1 step", untrack.Steps)
	}
}

func TestDiagnose_OrphanedMetadataOffersDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	mainOid := env.repo.AddCommit("main")
	env.repo.SetBranch("main", mainOid)
	if err := env.cfgMgr.Save(config.RepoConfig{Trunk: "main", Remote: "origin"}); err != nil {
		t.Fatal(err)
	}
	writeMetadata(t, env.repo, "deleted-branch", "main", mainOid)

	snap, err := scanner.Scan(ctx, env.repo, env.cfgMgr, env.opStore, env.led, nil)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	report, err := Diagnose(ctx, env.repo, snap)
	if err != nil {
		t.Fatalf("Diagnose() error = %v", err)
	}
	fixByID(t, report, "untrack:deleted-branch")
}

func TestDiagnose_ConfigMigrationOffersMigrate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	mainOid := env.repo.AddCommit("main")
	env.repo.SetBranch("main", mainOid)

	if err := env.cfgMgr.Save(config.RepoConfig{Trunk: "main", Remote: "origin"}); err != nil {
		t.Fatal(err)
	}
	snap, err := scanner.Scan(ctx, env.repo, env.cfgMgr, env.opStore, env.led, nil)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	// Simulate what the scanner emits when config.Manager.Load reports a
	// legacy state.yaml migration, without standing up a real legacy file.
	snap.Migrated = true
	snap.Health.AddIssue(capabilities.Issue{
		ID:       "config-migration",
		Severity: capabilities.SeverityWarning,
		Message:  "configuration was read from a legacy state.yaml and has not been migrated to config.toml",
	})

	report, err := Diagnose(ctx, env.repo, snap)
	if err != nil {
		t.Fatalf("Diagnose() error = %v", err)
	}
	fix := fixByID(t, report, "migrate-config")
	if fix.ConfigPatch == nil {
		t.Fatal("migrate-config fix should carry a ConfigPatch")
	}
}

func TestApply_ConfigOnlyFixPersistsWithoutExecutor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	mainOid := env.repo.AddCommit("main")
	env.repo.SetBranch("main", mainOid)

	snap, err := scanner.Scan(ctx, env.repo, env.cfgMgr, env.opStore, env.led, nil)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	report, err := Diagnose(ctx, env.repo, snap)
	if err != nil {
		t.Fatalf("Diagnose() error = %v", err)
	}
	fix := fixByID(t, report, "set-trunk-main")

	result, err := Apply(ctx, env.repo, env.cfgMgr, env.opStore, env.led, snap, newRescan(env), []FixOption{fix})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if result.Outcome != "committed" {
		t.Fatalf("Outcome = %v, want committed", result.Outcome)
	}

	cfg, _, err := env.cfgMgr.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Trunk != "main" {
		t.Errorf("Trunk = %q, want main after applying set-trunk-main", cfg.Trunk)
	}
}

func TestApply_RefFixRunsThroughExecutor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	mainOid := env.repo.AddCommit("main")
	featureOid := env.repo.AddCommit("feature", "main")
	env.repo.SetBranch("main", mainOid)
	env.repo.SetBranch("feature", featureOid)
	if err := env.cfgMgr.Save(config.RepoConfig{Trunk: "main", Remote: "origin"}); err != nil {
		t.Fatal(err)
	}
	writeMetadata(t, env.repo, "feature", "gone", mainOid)

	snap, err := scanner.Scan(ctx, env.repo, env.cfgMgr, env.opStore, env.led, nil)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	report, err := Diagnose(ctx, env.repo, snap)
	if err != nil {
		t.Fatalf("Diagnose() error = %v", err)
	}
	fix := fixByID(t, report, "reparent-to-trunk:feature")

	result, err := Apply(ctx, env.repo, env.cfgMgr, env.opStore, env.led, snap, newRescan(env), []FixOption{fix})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if result.Outcome != "committed" {
		t.Fatalf("Outcome = %v, want committed (err: %v)", result.Outcome, result.Err)
	}

	after, err := scanner.Scan(ctx, env.repo, env.cfgMgr, env.opStore, env.led, nil)
	if err != nil {
		t.Fatal(err)
	}
	if after.Tracked["feature"].Metadata.Parent.Name != "main" {
		t.Errorf("feature's parent = %q, want main", after.Tracked["feature"].Metadata.Parent.Name)
	}
}

func TestApply_RejectsFixWithUnmetPreconditions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	mainOid := env.repo.AddCommit("main")
	env.repo.SetBranch("main", mainOid)

	snap, err := scanner.Scan(ctx, env.repo, env.cfgMgr, env.opStore, env.led, nil)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	badFix := FixOption{
		ID:            "impossible",
		Preconditions: []capabilities.Capability{capabilities.RepoAuthorized},
	}
	if _, err := Apply(ctx, env.repo, env.cfgMgr, env.opStore, env.led, snap, newRescan(env), []FixOption{badFix}); err == nil {
		t.Error("expected Apply() to reject a fix with an unmet precondition")
	}
}
