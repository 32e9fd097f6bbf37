package planner

import (
	"context"
	"testing"
	"time"

	"github.com/lcgerke/lattice/internal/config"
	"github.com/lcgerke/lattice/internal/ledger"
	"github.com/lcgerke/lattice/internal/metadata"
	"github.com/lcgerke/lattice/internal/opstate"
	"github.com/lcgerke/lattice/internal/plan"
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
	repo := fake.New()
	return testEnv{
		repo:    repo,
		cfgMgr:  config.NewManager(repo.CommonDir),
		opStore: opstate.NewStore(repo.CommonDir),
		led:     ledger.Open(repo.CommonDir + "/lattice/ledger.jsonl"),
	}
}

func writeMetadata(t *testing.T, repo *fake.Repo, branch, parentName string, parentKind metadata.ParentKind, baseOid string) string {
	t.Helper()
	m := metadata.BranchMetadata{
		Branch: metadata.BranchRef{Name: branch},
		Parent: metadata.ParentInfo{Kind: parentKind, Name: parentName},
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

func scan(t *testing.T, env testEnv) scanner.RepoSnapshot {
	t.Helper()
	snap, err := scanner.Scan(context.Background(), env.repo, env.cfgMgr, env.opStore, env.led, nil)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	return snap
}

func TestTrack_NewBranchOffTrunk(t *testing.T) {
	env := newTestEnv(t)
	mainOid := env.repo.AddCommit("main")
	featureOid := env.repo.AddCommit("feature", "main")
	env.repo.SetBranch("main", mainOid)
	env.repo.SetBranch("feature", featureOid)
	if err := env.cfgMgr.Save(config.RepoConfig{Trunk: "main", Remote: "origin"}); err != nil {
		t.Fatal(err)
	}
	snap := scan(t, env)

	pl, err := Track(snap, "feature", "", mainOid)
	if err != nil {
		t.Fatalf("Track() error = %v", err)
	}
	if pl.CommandName != "track" {
		t.Errorf("CommandName = %q, want track", pl.CommandName)
	}
	if len(pl.Steps) != 3 {
		t.Fatalf("Steps = %+v, want [checkpoint, write_metadata_cas, checkpoint]", pl.Steps)
	}
	write := pl.Steps[1]
	if write.Kind != plan.StepWriteMetadataCas {
		t.Fatalf("Steps[1].Kind = %v, want write_metadata_cas", write.Kind)
	}
	if write.HasOldRefOid {
		t.Error("HasOldRefOid = true, want false for a create")
	}
	if write.Metadata.Parent.Kind != metadata.ParentTrunk || write.Metadata.Parent.Name != "main" {
		t.Errorf("Parent = %+v, want Trunk{main}", write.Metadata.Parent)
	}
	if write.Metadata.Base.Oid != mainOid {
		t.Errorf("Base.Oid = %q, want %q", write.Metadata.Base.Oid, mainOid)
	}
}

func TestTrack_RejectsAlreadyTracked(t *testing.T) {
	env := newTestEnv(t)
	mainOid := env.repo.AddCommit("main")
	featureOid := env.repo.AddCommit("feature", "main")
	env.repo.SetBranch("main", mainOid)
	env.repo.SetBranch("feature", featureOid)
	if err := env.cfgMgr.Save(config.RepoConfig{Trunk: "main", Remote: "origin"}); err != nil {
		t.Fatal(err)
	}
	writeMetadata(t, env.repo, "feature", "main", metadata.ParentTrunk, mainOid)
	snap := scan(t, env)

	if _, err := Track(snap, "feature", "", mainOid); err == nil {
		t.Error("expected error tracking an already-tracked branch")
	}
}

func TestUntrack_DeletesMetadata(t *testing.T) {
	env := newTestEnv(t)
	mainOid := env.repo.AddCommit("main")
	featureOid := env.repo.AddCommit("feature", "main")
	env.repo.SetBranch("main", mainOid)
	env.repo.SetBranch("feature", featureOid)
	if err := env.cfgMgr.Save(config.RepoConfig{Trunk: "main", Remote: "origin"}); err != nil {
		t.Fatal(err)
	}
	writeMetadata(t, env.repo, "feature", "main", metadata.ParentTrunk, mainOid)
	snap := scan(t, env)

	pl, err := Untrack(snap, "feature")
	if err != nil {
		t.Fatalf("Untrack() error = %v", err)
	}
	if len(pl.Steps) != 3 || pl.Steps[1].Kind != plan.StepDeleteMetadataCas {
		t.Fatalf("Steps = %+v, want [checkpoint, delete_metadata_cas, checkpoint]", pl.Steps)
	}
}

func TestFreeze_SingleScope(t *testing.T) {
	env := newTestEnv(t)
	mainOid := env.repo.AddCommit("main")
	featureOid := env.repo.AddCommit("feature", "main")
	env.repo.SetBranch("main", mainOid)
	env.repo.SetBranch("feature", featureOid)
	if err := env.cfgMgr.Save(config.RepoConfig{Trunk: "main", Remote: "origin"}); err != nil {
		t.Fatal(err)
	}
	writeMetadata(t, env.repo, "feature", "main", metadata.ParentTrunk, mainOid)
	snap := scan(t, env)

	pl, err := Freeze(snap, "feature", metadata.ScopeSingle, "blocked on review")
	if err != nil {
		t.Fatalf("Freeze() error = %v", err)
	}
	writes := stepsOfKind(pl, plan.StepWriteMetadataCas)
	if len(writes) != 1 {
		t.Fatalf("write steps = %d, want 1", len(writes))
	}
	if writes[0].Metadata.Freeze.State != metadata.FreezeFrozen || writes[0].Metadata.Freeze.Scope != metadata.ScopeSingle {
		t.Errorf("Freeze state = %+v, want Frozen{Single}", writes[0].Metadata.Freeze)
	}
}

func TestFreeze_DownstackInclusiveCoversAncestors(t *testing.T) {
	env := newTestEnv(t)
	mainOid := env.repo.AddCommit("main")
	aOid := env.repo.AddCommit("a", "main")
	bOid := env.repo.AddCommit("b", "a")
	env.repo.SetBranch("main", mainOid)
	env.repo.SetBranch("a", aOid)
	env.repo.SetBranch("b", bOid)
	if err := env.cfgMgr.Save(config.RepoConfig{Trunk: "main", Remote: "origin"}); err != nil {
		t.Fatal(err)
	}
	writeMetadata(t, env.repo, "a", "main", metadata.ParentTrunk, mainOid)
	writeMetadata(t, env.repo, "b", "a", metadata.ParentBranch, aOid)
	snap := scan(t, env)

	pl, err := Freeze(snap, "b", metadata.ScopeDownstackInclusive, "release freeze")
	if err != nil {
		t.Fatalf("Freeze() error = %v", err)
	}
	writes := stepsOfKind(pl, plan.StepWriteMetadataCas)
	if len(writes) != 2 {
		t.Fatalf("write steps = %d, want 2 (a and b)", len(writes))
	}
	// parent-before-child: a must be written before b
	if writes[0].Branch != "a" || writes[1].Branch != "b" {
		t.Errorf("write order = [%s, %s], want [a, b]", writes[0].Branch, writes[1].Branch)
	}
}

func TestCheckFrozenPolicy_BlocksOnFrozenAncestor(t *testing.T) {
	env := newTestEnv(t)
	mainOid := env.repo.AddCommit("main")
	aOid := env.repo.AddCommit("a", "main")
	bOid := env.repo.AddCommit("b", "a")
	env.repo.SetBranch("main", mainOid)
	env.repo.SetBranch("a", aOid)
	env.repo.SetBranch("b", bOid)
	if err := env.cfgMgr.Save(config.RepoConfig{Trunk: "main", Remote: "origin"}); err != nil {
		t.Fatal(err)
	}
	writeMetadata(t, env.repo, "a", "main", metadata.ParentTrunk, mainOid)
	writeMetadata(t, env.repo, "b", "a", metadata.ParentBranch, aOid)
	snap := scan(t, env)

	frozen, err := Freeze(snap, "a", metadata.ScopeSingle, "")
	if err != nil {
		t.Fatal(err)
	}
	applyWritesToFake(t, env, frozen)
	snap2 := scan(t, env)

	if err := CheckFrozenPolicy(snap2, "b", false); err == nil {
		t.Error("expected CheckFrozenPolicy to fail when a downstack ancestor is frozen")
	}
}

func TestRestackOne_NoOpWhenAlreadyOnParentTip(t *testing.T) {
	env := newTestEnv(t)
	mainOid := env.repo.AddCommit("main")
	featureOid := env.repo.AddCommit("feature", "main")
	env.repo.SetBranch("main", mainOid)
	env.repo.SetBranch("feature", featureOid)
	if err := env.cfgMgr.Save(config.RepoConfig{Trunk: "main", Remote: "origin"}); err != nil {
		t.Fatal(err)
	}
	writeMetadata(t, env.repo, "feature", "main", metadata.ParentTrunk, mainOid)
	snap := scan(t, env)

	pl, err := RestackOne(snap, "feature")
	if err != nil {
		t.Fatalf("RestackOne() error = %v", err)
	}
	if len(stepsOfKind(pl, plan.StepRunGit)) != 0 {
		t.Error("expected no RunGit step when base already matches parent tip")
	}
}

func TestRestackOne_RebasesWhenParentMoved(t *testing.T) {
	env := newTestEnv(t)
	mainOid := env.repo.AddCommit("main")
	featureOid := env.repo.AddCommit("feature", "main")
	env.repo.SetBranch("main", mainOid)
	env.repo.SetBranch("feature", featureOid)
	if err := env.cfgMgr.Save(config.RepoConfig{Trunk: "main", Remote: "origin"}); err != nil {
		t.Fatal(err)
	}
	writeMetadata(t, env.repo, "feature", "main", metadata.ParentTrunk, mainOid)
	snap := scan(t, env)

	newMainOid := env.repo.AddCommit("main2", "main")
	env.repo.SetBranch("main", newMainOid)
	snap2 := scan(t, env)

	pl, err := RestackOne(snap2, "feature")
	if err != nil {
		t.Fatalf("RestackOne() error = %v", err)
	}
	runGit := stepsOfKind(pl, plan.StepRunGit)
	if len(runGit) != 1 {
		t.Fatalf("RunGit steps = %d, want 1", len(runGit))
	}
	writes := stepsOfKind(pl, plan.StepWriteMetadataCas)
	if len(writes) != 1 || writes[0].Metadata.Base.Oid != newMainOid {
		t.Errorf("metadata write = %+v, want Base.Oid = %q", writes, newMainOid)
	}
}

func TestRestackOne_BlockedWhenFrozen(t *testing.T) {
	env := newTestEnv(t)
	mainOid := env.repo.AddCommit("main")
	featureOid := env.repo.AddCommit("feature", "main")
	env.repo.SetBranch("main", mainOid)
	env.repo.SetBranch("feature", featureOid)
	if err := env.cfgMgr.Save(config.RepoConfig{Trunk: "main", Remote: "origin"}); err != nil {
		t.Fatal(err)
	}
	writeMetadata(t, env.repo, "feature", "main", metadata.ParentTrunk, mainOid)
	snap := scan(t, env)
	frozen, err := Freeze(snap, "feature", metadata.ScopeSingle, "")
	if err != nil {
		t.Fatal(err)
	}
	applyWritesToFake(t, env, frozen)
	snap2 := scan(t, env)

	if _, err := RestackOne(snap2, "feature"); err == nil {
		t.Error("expected RestackOne to fail on a frozen branch")
	}
}

func TestFold_MovesParentAndReparentsChildren(t *testing.T) {
	env := newTestEnv(t)
	mainOid := env.repo.AddCommit("main")
	aOid := env.repo.AddCommit("a", "main")
	bOid := env.repo.AddCommit("b", "a")
	env.repo.SetBranch("main", mainOid)
	env.repo.SetBranch("a", aOid)
	env.repo.SetBranch("b", bOid)
	if err := env.cfgMgr.Save(config.RepoConfig{Trunk: "main", Remote: "origin"}); err != nil {
		t.Fatal(err)
	}
	writeMetadata(t, env.repo, "a", "main", metadata.ParentTrunk, mainOid)
	writeMetadata(t, env.repo, "b", "a", metadata.ParentBranch, aOid)
	snap := scan(t, env)

	pl, err := Fold(snap, "a")
	if err != nil {
		t.Fatalf("Fold() error = %v", err)
	}

	refUpdates := stepsOfKind(pl, plan.StepUpdateRefCas)
	if len(refUpdates) != 1 || refUpdates[0].RefName != "refs/heads/main" || refUpdates[0].NewOid != aOid {
		t.Fatalf("ref update = %+v, want refs/heads/main -> %q", refUpdates, aOid)
	}

	writes := stepsOfKind(pl, plan.StepWriteMetadataCas)
	if len(writes) != 1 || writes[0].Branch != "b" || writes[0].Metadata.Parent.Name != "main" {
		t.Fatalf("child reparent write = %+v, want b reparented to main", writes)
	}

	deletes := stepsOfKind(pl, plan.StepDeleteMetadataCas)
	if len(deletes) != 1 || deletes[0].Branch != "a" {
		t.Fatalf("metadata delete = %+v, want a", deletes)
	}
	refDeletes := stepsOfKind(pl, plan.StepDeleteRefCas)
	if len(refDeletes) != 1 || refDeletes[0].RefName != "refs/heads/a" {
		t.Fatalf("ref delete = %+v, want refs/heads/a", refDeletes)
	}
}

func TestFold_RejectsUnrestackedBranch(t *testing.T) {
	env := newTestEnv(t)
	mainOid := env.repo.AddCommit("main")
	aOid := env.repo.AddCommit("a", "main")
	env.repo.SetBranch("main", mainOid)
	env.repo.SetBranch("a", aOid)
	if err := env.cfgMgr.Save(config.RepoConfig{Trunk: "main", Remote: "origin"}); err != nil {
		t.Fatal(err)
	}
	// base is an unrelated commit rather than main's current tip,
	// simulating a branch that hasn't been restacked.
	staleBase := env.repo.AddCommit("stale-base")
	writeMetadata(t, env.repo, "a", "main", metadata.ParentTrunk, staleBase)
	snap := scan(t, env)

	if _, err := Fold(snap, "a"); err == nil {
		t.Error("expected Fold to reject a branch whose base is not the parent's current tip")
	}
}

func TestRecordPr_LinksBranch(t *testing.T) {
	env := newTestEnv(t)
	mainOid := env.repo.AddCommit("main")
	featureOid := env.repo.AddCommit("feature", "main")
	env.repo.SetBranch("main", mainOid)
	env.repo.SetBranch("feature", featureOid)
	if err := env.cfgMgr.Save(config.RepoConfig{Trunk: "main", Remote: "origin"}); err != nil {
		t.Fatal(err)
	}
	writeMetadata(t, env.repo, "feature", "main", metadata.ParentTrunk, mainOid)
	snap := scan(t, env)

	pl, err := RecordPr(snap, "feature", "github", 42, "https://example.invalid/pr/42", "open", false)
	if err != nil {
		t.Fatalf("RecordPr() error = %v", err)
	}
	writes := stepsOfKind(pl, plan.StepWriteMetadataCas)
	if len(writes) != 1 || writes[0].Metadata.Pr.State != metadata.PrLinked || writes[0].Metadata.Pr.Number != 42 {
		t.Fatalf("Pr state = %+v, want Linked{number=42}", writes)
	}
}

func TestNavigation_UpDownTopBottom(t *testing.T) {
	env := newTestEnv(t)
	mainOid := env.repo.AddCommit("main")
	aOid := env.repo.AddCommit("a", "main")
	bOid := env.repo.AddCommit("b", "a")
	env.repo.SetBranch("main", mainOid)
	env.repo.SetBranch("a", aOid)
	env.repo.SetBranch("b", bOid)
	if err := env.cfgMgr.Save(config.RepoConfig{Trunk: "main", Remote: "origin"}); err != nil {
		t.Fatal(err)
	}
	writeMetadata(t, env.repo, "a", "main", metadata.ParentTrunk, mainOid)
	writeMetadata(t, env.repo, "b", "a", metadata.ParentBranch, aOid)
	snap := scan(t, env)

	if got, err := Up(snap, "a"); err != nil || got != "b" {
		t.Errorf("Up(a) = (%q, %v), want (b, nil)", got, err)
	}
	if _, err := Up(snap, "b"); err == nil {
		t.Error("Up(b) should fail: no children")
	}
	if got, err := Down(snap, "b"); err != nil || got != "a" {
		t.Errorf("Down(b) = (%q, %v), want (a, nil)", got, err)
	}
	if got, err := Down(snap, "a"); err != nil || got != "main" {
		t.Errorf("Down(a) = (%q, %v), want (main, nil)", got, err)
	}
	if got, err := Top(snap, "a"); err != nil || got != "b" {
		t.Errorf("Top(a) = (%q, %v), want (b, nil)", got, err)
	}
	if got, err := Bottom(snap, "b"); err != nil || got != "a" {
		t.Errorf("Bottom(b) = (%q, %v), want (a, nil)", got, err)
	}
}

func stepsOfKind(pl plan.Plan, kind plan.StepKind) []plan.PlanStep {
	var out []plan.PlanStep
	for _, s := range pl.Steps {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// applyWritesToFake commits a plan's write_metadata_cas steps directly to
// the fake repo's metadata refs, bypassing the executor — enough for
// tests that need a frozen precondition already in place for the next
// Scan.
func applyWritesToFake(t *testing.T, env testEnv, pl plan.Plan) {
	t.Helper()
	for _, step := range pl.Steps {
		if step.Kind != plan.StepWriteMetadataCas {
			continue
		}
		data, err := metadata.Serialize(step.Metadata)
		if err != nil {
			t.Fatal(err)
		}
		oid, err := env.repo.WriteBlob(context.Background(), data)
		if err != nil {
			t.Fatal(err)
		}
		env.repo.SetRef("refs/branch-metadata/"+step.Branch, oid)
	}
}
