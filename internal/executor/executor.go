// Package executor is the sole mutator: it applies a Plan transactionally
// against the DVCS, with CAS preconditions, OpState checkpointing, an
// append-only ledger, and rollback on failure, following a
// validate-then-execute-then-rollback-on-failure shape over the full
// Plan/PlanStep vocabulary.
package executor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	lerrors "github.com/lcgerke/lattice/internal/errors"
	"github.com/lcgerke/lattice/internal/ledger"
	"github.com/lcgerke/lattice/internal/metadata"
	"github.com/lcgerke/lattice/internal/opstate"
	"github.com/lcgerke/lattice/internal/plan"
	"github.com/lcgerke/lattice/internal/scanner"
	"github.com/lcgerke/lattice/internal/types"
	"github.com/lcgerke/lattice/internal/vcs"
	"github.com/lcgerke/lattice/internal/verify"
)

// Outcome discriminates the executor's four terminal results.
type Outcome string

const (
	OutcomeCommitted       Outcome = "committed"
	OutcomeAborted         Outcome = "aborted"
	OutcomeSuspended       Outcome = "suspended"
	OutcomePartialRollback Outcome = "partial_rollback_failure"
)

// Result summarizes how an Execute call ended.
type Result struct {
	Outcome           Outcome
	FingerprintAfter  types.Fingerprint
	FailedRefs        []string
	Err               error
}

// Rescanner is the narrow slice of scanner.Scan's dependencies the
// executor needs to take a fresh snapshot for post-execution verification
// and divergence bookkeeping.
type Rescanner func(ctx context.Context) (scanner.RepoSnapshot, error)

// undoRecord reverses exactly one applied step.
type undoRecord struct {
	kind     plan.StepKind
	ref      string
	restore  vcs.CasPrecondition // precondition to use when restoring
	restoreTo string             // oid to restore the ref to; empty means delete
}

// Execute applies pl against repo, returning once the operation reaches a
// terminal outcome. opStore and led are keyed off the repository's common
// dir. rescan is called once after all steps apply, to verify the
// resulting state and compute the post-commit fingerprint.
func Execute(ctx context.Context, repo vcs.Repository, opStore *opstate.Store, led *ledger.Ledger, pl plan.Plan, fingerprintBefore types.Fingerprint, rescan Rescanner) Result {
	st := opstate.OpState{OpID: pl.OpID, Command: pl.CommandName, StartedAt: types.Now()}
	if err := opStore.Write(st); err != nil {
		return Result{Outcome: OutcomeAborted, Err: err}
	}
	if err := led.Append(ledger.Record{Kind: ledger.KindPlanned, OpID: pl.OpID, FingerprintBefore: fingerprintBefore.String()}); err != nil {
		return Result{Outcome: OutcomeAborted, Err: err}
	}

	store := metadata.NewStore(repo)
	var undo []undoRecord

	for idx, step := range pl.Steps {
		if step.Kind == plan.StepRunGit {
			preState, err := capturePreState(ctx, repo, step)
			if err != nil {
				return rollbackAndAbort(ctx, repo, opStore, led, pl, undo, err)
			}
			st.RunGitPreState = preState
			if err := opStore.Write(st); err != nil {
				return rollbackAndAbort(ctx, repo, opStore, led, pl, undo, err)
			}
		}

		rec, applyErr := applyStep(ctx, repo, store, step, st.RunGitPreState)
		if rec != nil {
			undo = append(undo, *rec)
		}
		if applyErr != nil {
			return rollbackAndAbort(ctx, repo, opStore, led, pl, undo, applyErr)
		}

		st.PlanIndexCompleted = idx + 1
		if err := opStore.Write(st); err != nil {
			return rollbackAndAbort(ctx, repo, opStore, led, pl, undo, err)
		}
		if err := led.Append(ledger.Record{Kind: ledger.KindApplied, OpID: pl.OpID, StepIndex: idx, StepDigest: digest(step)}); err != nil {
			return rollbackAndAbort(ctx, repo, opStore, led, pl, undo, err)
		}
	}

	snap, err := rescan(ctx)
	if err != nil {
		return rollbackAndAbort(ctx, repo, opStore, led, pl, undo, err)
	}
	if err := verify.FastVerify(ctx, repo, snap); err != nil {
		return rollbackAndAbort(ctx, repo, opStore, led, pl, undo, err)
	}

	if err := led.Append(ledger.Record{Kind: ledger.KindCommitted, OpID: pl.OpID, FingerprintAfter: snap.Fingerprint.String()}); err != nil {
		return Result{Outcome: OutcomeAborted, Err: err}
	}
	if err := opStore.Clear(); err != nil {
		return Result{Outcome: OutcomeAborted, Err: err}
	}
	return Result{Outcome: OutcomeCommitted, FingerprintAfter: snap.Fingerprint}
}

// Continue resumes an in-progress operation from OpState.PlanIndexCompleted.
func Continue(ctx context.Context, repo vcs.Repository, opStore *opstate.Store, led *ledger.Ledger, pl plan.Plan, fingerprintBefore types.Fingerprint, rescan Rescanner) Result {
	st, inProgress, err := opStore.Read()
	if err != nil {
		return Result{Outcome: OutcomeAborted, Err: err}
	}
	if !inProgress || st.OpID != pl.OpID {
		return Result{Outcome: OutcomeAborted, Err: lerrors.New(lerrors.KindInternal, "no matching in-progress operation to continue")}
	}

	store := metadata.NewStore(repo)
	var undo []undoRecord
	for idx := 0; idx < st.PlanIndexCompleted; idx++ {
		rec, err := undoFromCurrentState(ctx, repo, pl.Steps[idx], st.RunGitPreState)
		if err != nil {
			return Result{Outcome: OutcomeAborted, Err: err}
		}
		if rec != nil {
			undo = append(undo, *rec)
		}
	}

	for idx := st.PlanIndexCompleted; idx < len(pl.Steps); idx++ {
		step := pl.Steps[idx]
		if step.Kind == plan.StepRunGit {
			preState, err := capturePreState(ctx, repo, step)
			if err != nil {
				return rollbackAndAbort(ctx, repo, opStore, led, pl, undo, err)
			}
			st.RunGitPreState = preState
			if err := opStore.Write(st); err != nil {
				return rollbackAndAbort(ctx, repo, opStore, led, pl, undo, err)
			}
		}

		rec, applyErr := applyStep(ctx, repo, store, step, st.RunGitPreState)
		if rec != nil {
			undo = append(undo, *rec)
		}
		if applyErr != nil {
			return rollbackAndAbort(ctx, repo, opStore, led, pl, undo, applyErr)
		}
		st.PlanIndexCompleted = idx + 1
		if err := opStore.Write(st); err != nil {
			return rollbackAndAbort(ctx, repo, opStore, led, pl, undo, err)
		}
		if err := led.Append(ledger.Record{Kind: ledger.KindApplied, OpID: pl.OpID, StepIndex: idx, StepDigest: digest(step)}); err != nil {
			return rollbackAndAbort(ctx, repo, opStore, led, pl, undo, err)
		}
	}

	snap, err := rescan(ctx)
	if err != nil {
		return rollbackAndAbort(ctx, repo, opStore, led, pl, undo, err)
	}
	if err := verify.FastVerify(ctx, repo, snap); err != nil {
		return rollbackAndAbort(ctx, repo, opStore, led, pl, undo, err)
	}
	if err := led.Append(ledger.Record{Kind: ledger.KindCommitted, OpID: pl.OpID, FingerprintAfter: snap.Fingerprint.String()}); err != nil {
		return Result{Outcome: OutcomeAborted, Err: err}
	}
	if err := opStore.Clear(); err != nil {
		return Result{Outcome: OutcomeAborted, Err: err}
	}
	return Result{Outcome: OutcomeCommitted, FingerprintAfter: snap.Fingerprint}
}

// Abort rolls back an in-progress operation using its recorded undo
// stack. Lattice does not persist the undo stack itself (it is rebuilt
// from the plan's completed prefix and OpState.RunGitPreState), so Abort
// takes the same plan and stops replaying undo at PlanIndexCompleted.
func Abort(ctx context.Context, repo vcs.Repository, opStore *opstate.Store, led *ledger.Ledger, pl plan.Plan) Result {
	st, inProgress, err := opStore.Read()
	if err != nil {
		return Result{Outcome: OutcomeAborted, Err: err}
	}
	if !inProgress || st.OpID != pl.OpID {
		return Result{Outcome: OutcomeAborted, Err: lerrors.New(lerrors.KindInternal, "no matching in-progress operation to abort")}
	}

	var undo []undoRecord
	for idx := 0; idx < st.PlanIndexCompleted; idx++ {
		rec, err := undoFromCurrentState(ctx, repo, pl.Steps[idx], st.RunGitPreState)
		if err != nil {
			return Result{Outcome: OutcomeAborted, Err: err}
		}
		if rec != nil {
			undo = append(undo, *rec)
		}
	}
	return rollbackAndAbort(ctx, repo, opStore, led, pl, undo, lerrors.New(lerrors.KindOperationInProgress, "aborted by user"))
}

func rollbackAndAbort(ctx context.Context, repo vcs.Repository, opStore *opstate.Store, led *ledger.Ledger, pl plan.Plan, undo []undoRecord, cause error) Result {
	var failedRefs []string
	for i := len(undo) - 1; i >= 0; i-- {
		u := undo[i]
		var rollbackErr error
		if u.restoreTo == "" {
			rollbackErr = repo.DeleteRefCas(ctx, u.ref, u.restore.Oid)
		} else {
			rollbackErr = repo.UpdateRefCas(ctx, u.ref, u.restoreTo, u.restore, "lattice: rollback "+pl.OpID)
		}
		if rollbackErr != nil {
			failedRefs = append(failedRefs, u.ref)
		}
	}

	rolledBack := len(failedRefs) == 0
	_ = led.Append(ledger.Record{
		Kind:       ledger.KindAborted,
		OpID:       pl.OpID,
		Reason:     cause.Error(),
		RolledBack: rolledBack,
		FailedRefs: failedRefs,
	})

	if !rolledBack {
		return Result{Outcome: OutcomePartialRollback, FailedRefs: failedRefs, Err: cause}
	}
	// A fully rolled-back operation still leaves OpState in place: the
	// recovery requirement set (continue/abort) reasons about it.
	// Commands wishing to clear it outright call opStore.Clear()
	// themselves after reporting Aborted.
	_ = opStore
	return Result{Outcome: OutcomeAborted, Err: cause}
}

func digest(step plan.PlanStep) string {
	data, _ := json.Marshal(step)
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// capturePreState snapshots each of a run_git step's declared-effect refs
// immediately before the command runs, so the step can still be undone (or
// its abort recipe reconstructed after a crash) even though the underlying
// DVCS has no transactional rollback of its own.
func capturePreState(ctx context.Context, repo vcs.Repository, step plan.PlanStep) (map[string]string, error) {
	pre := make(map[string]string, len(step.ExpectedEffects))
	for _, eff := range step.ExpectedEffects {
		oid, present, err := repo.TryResolveRefToObject(ctx, eff.Ref)
		if err != nil {
			return nil, err
		}
		if present {
			pre[eff.Ref] = oid
		}
	}
	return pre, nil
}

func applyStep(ctx context.Context, repo vcs.Repository, store *metadata.Store, step plan.PlanStep, runGitPreState map[string]string) (*undoRecord, error) {
	switch step.Kind {
	case plan.StepCheckpoint:
		return nil, nil

	case plan.StepUpdateRefCas:
		pre := vcs.CasPrecondition{}
		if step.HasOldOid {
			pre = vcs.CasPrecondition{Present: true, Oid: step.OldOid}
		}
		if err := repo.UpdateRefCas(ctx, step.RefName, step.NewOid, pre, step.Reason); err != nil {
			return nil, err
		}
		u := undoFor(step)
		return u, nil

	case plan.StepDeleteRefCas:
		if err := repo.DeleteRefCas(ctx, step.RefName, step.OldOid); err != nil {
			return nil, err
		}
		return undoFor(step), nil

	case plan.StepWriteMetadataCas:
		branch, err := types.NewBranchName(step.Branch)
		if err != nil {
			return nil, err
		}
		var oldOid *string
		if step.HasOldRefOid {
			oldOid = &step.OldRefOid
		}
		newOid, err := store.WriteCas(ctx, branch, oldOid, step.Metadata)
		if err != nil {
			return nil, err
		}
		ref := types.BranchMetadataRef(branch).String()
		if step.HasOldRefOid {
			return &undoRecord{kind: step.Kind, ref: ref, restore: vcs.CasPrecondition{Present: true, Oid: newOid}, restoreTo: step.OldRefOid}, nil
		}
		return &undoRecord{kind: step.Kind, ref: ref, restore: vcs.CasPrecondition{Present: true, Oid: newOid}, restoreTo: ""}, nil

	case plan.StepDeleteMetadataCas:
		branch, err := types.NewBranchName(step.Branch)
		if err != nil {
			return nil, err
		}
		if err := store.DeleteCas(ctx, branch, step.OldRefOid); err != nil {
			return nil, err
		}
		ref := types.BranchMetadataRef(branch).String()
		return &undoRecord{kind: step.Kind, ref: ref, restore: vcs.CasPrecondition{Present: false}, restoreTo: step.OldRefOid}, nil

	case plan.StepRunGit:
		if _, err := repo.RunGit(ctx, step.Args...); err != nil {
			return nil, err
		}

		// A run_git step moves a ref outside the CAS ref-store, so its
		// undo record has to be built from an observed before/after pair
		// rather than from fields baked into the step. Only the single
		// affected-ref shape RestackOne emits is handled; a step declaring
		// more than one expected effect produces no undo record.
		var rec *undoRecord
		if len(step.ExpectedEffects) == 1 {
			eff := step.ExpectedEffects[0]
			if postOid, present, err := repo.TryResolveRefToObject(ctx, eff.Ref); err != nil {
				return nil, err
			} else if present {
				u := undoRecord{kind: step.Kind, ref: eff.Ref, restore: vcs.CasPrecondition{Present: true, Oid: postOid}}
				if preOid, ok := runGitPreState[eff.Ref]; ok {
					u.restoreTo = preOid
				}
				rec = &u
			}
		}

		for _, eff := range step.ExpectedEffects {
			tip, present, err := repo.TryResolveRefToObject(ctx, eff.Ref)
			if err != nil {
				return rec, err
			}
			if !present {
				return rec, lerrors.New(lerrors.KindInternal, "run_git left "+eff.Ref+" missing")
			}
			descends, err := repo.IsAncestor(ctx, eff.DescendsFrom, tip)
			if err != nil {
				return rec, err
			}
			if !descends {
				return rec, lerrors.New(lerrors.KindInternal, eff.Ref+" does not descend from "+eff.DescendsFrom+" after run_git")
			}
		}
		return rec, nil

	default:
		return nil, lerrors.New(lerrors.KindInternal, fmt.Sprintf("unknown plan step kind %q", step.Kind))
	}
}

// undoFor derives the undo record for a successfully-applied ref-cas step,
// for the common case where the apply just happened and the new oid is
// already known from the step itself. Metadata steps construct their undo
// record inline in applyStep instead, since the new blob oid only becomes
// known from the store's return value.
func undoFor(step plan.PlanStep) *undoRecord {
	switch step.Kind {
	case plan.StepUpdateRefCas:
		if step.HasOldOid {
			return &undoRecord{kind: step.Kind, ref: step.RefName, restore: vcs.CasPrecondition{Present: true, Oid: step.NewOid}, restoreTo: step.OldOid}
		}
		return &undoRecord{kind: step.Kind, ref: step.RefName, restore: vcs.CasPrecondition{Present: true, Oid: step.NewOid}, restoreTo: ""}
	case plan.StepDeleteRefCas:
		return &undoRecord{kind: step.Kind, ref: step.RefName, restore: vcs.CasPrecondition{Present: false}, restoreTo: step.OldOid}
	default:
		return nil
	}
}

// undoFromCurrentState reconstructs the undo record for a step from a
// previously-completed plan prefix, used by Abort when the undo stack from
// the original apply is no longer available (it belongs to a prior process
// invocation). It reads the target ref's live value from repo rather than
// trusting any oid baked into the step, since that is the only value a
// correct CAS rollback precondition can use regardless of when the step
// was originally applied.
func undoFromCurrentState(ctx context.Context, repo vcs.Repository, step plan.PlanStep, runGitPreState map[string]string) (*undoRecord, error) {
	var ref string
	var restoreTo string

	switch step.Kind {
	case plan.StepCheckpoint:
		return nil, nil

	case plan.StepRunGit:
		if len(step.ExpectedEffects) != 1 {
			return nil, nil
		}
		eff := step.ExpectedEffects[0]
		preOid, ok := runGitPreState[eff.Ref]
		if !ok {
			return nil, nil // no recorded pre-state for this ref; nothing to roll back to
		}
		postOid, present, err := repo.TryResolveRefToObject(ctx, eff.Ref)
		if err != nil {
			return nil, err
		}
		if !present {
			return nil, nil
		}
		return &undoRecord{kind: step.Kind, ref: eff.Ref, restore: vcs.CasPrecondition{Present: true, Oid: postOid}, restoreTo: preOid}, nil

	case plan.StepUpdateRefCas:
		ref = step.RefName
		restoreTo = step.OldOid

	case plan.StepDeleteRefCas:
		ref = step.RefName
		restoreTo = step.OldOid

	case plan.StepWriteMetadataCas:
		branch, err := types.NewBranchName(step.Branch)
		if err != nil {
			return nil, err
		}
		ref = types.BranchMetadataRef(branch).String()
		if step.HasOldRefOid {
			restoreTo = step.OldRefOid
		}

	case plan.StepDeleteMetadataCas:
		branch, err := types.NewBranchName(step.Branch)
		if err != nil {
			return nil, err
		}
		ref = types.BranchMetadataRef(branch).String()
		restoreTo = step.OldRefOid

	default:
		return nil, lerrors.New(lerrors.KindInternal, fmt.Sprintf("unknown plan step kind %q", step.Kind))
	}

	oid, present, err := repo.TryResolveRefToObject(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &undoRecord{
		kind:      step.Kind,
		ref:       ref,
		restore:   vcs.CasPrecondition{Present: present, Oid: oid},
		restoreTo: restoreTo,
	}, nil
}
