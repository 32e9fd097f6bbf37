package main

import (
	"context"
	"fmt"
	"os"

	"github.com/lcgerke/lattice/internal/capabilities"
	"github.com/lcgerke/lattice/internal/config"
	"github.com/lcgerke/lattice/internal/executor"
	"github.com/lcgerke/lattice/internal/ledger"
	"github.com/lcgerke/lattice/internal/opstate"
	"github.com/lcgerke/lattice/internal/plan"
	"github.com/lcgerke/lattice/internal/planstore"
	"github.com/lcgerke/lattice/internal/scanner"
	"github.com/lcgerke/lattice/internal/secrets"
	"github.com/lcgerke/lattice/internal/ui"
	"github.com/lcgerke/lattice/internal/vcs"
	"github.com/lcgerke/lattice/internal/vcs/gitcli"
)

// app bundles the pieces every command needs: a live DVCS doorway rooted
// at the current directory, and the four stores keyed off its common
// dir. Built fresh for every invocation rather than sharing a global.
type app struct {
	repo      vcs.Repository
	cfgMgr    *config.Manager
	opStore   *opstate.Store
	planStore *planstore.Store
	led       *ledger.Ledger
	secrets   secrets.Provider
	out       *ui.Output
}

func newApp(ctx context.Context) (*app, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}

	client := gitcli.New(wd)
	info, err := client.Info(ctx)
	if err != nil {
		return nil, err
	}

	out := ui.NewOutput(os.Stdout)
	if format != "" {
		out.SetFormat(ui.OutputFormat(format))
	}
	if noColor {
		out.SetColorEnabled(false)
	}

	return &app{
		repo:      client,
		cfgMgr:    config.NewManager(info.CommonDir),
		opStore:   opstate.NewStore(info.CommonDir),
		planStore: planstore.NewStore(info.CommonDir),
		led:       ledger.Open(info.CommonDir + "/lattice/ledger.jsonl"),
		secrets:   secrets.NewFileProvider(secrets.DefaultPath()),
		out:       out,
	}, nil
}

func (a *app) scan(ctx context.Context) (scanner.RepoSnapshot, error) {
	return scanner.Scan(ctx, a.repo, a.cfgMgr, a.opStore, a.led, a.secrets)
}

// rescanner adapts app.scan to executor.Rescanner.
func (a *app) rescanner() executor.Rescanner {
	return func(ctx context.Context) (scanner.RepoSnapshot, error) {
		return a.scan(ctx)
	}
}

// runPlan executes pl, persisting it to planStore first so a suspension
// can be resumed by a later `lattice continue`/`lattice abort` process.
func (a *app) runPlan(ctx context.Context, snap scanner.RepoSnapshot, pl plan.Plan) (executor.Result, error) {
	if err := a.planStore.Write(pl); err != nil {
		return executor.Result{}, err
	}
	result := executor.Execute(ctx, a.repo, a.opStore, a.led, pl, snap.Fingerprint, a.rescanner())
	a.reportResult(result)
	if result.Outcome == executor.OutcomeCommitted {
		if err := a.planStore.Clear(); err != nil {
			return result, err
		}
	}
	if result.Err != nil {
		return result, result.Err
	}
	return result, nil
}

// requireReady gates a command's RequirementSet against the snapshot's
// health, reporting the blocking issues and pointing at 'lattice doctor'
// when something is missing rather than letting the command fail deep
// inside plan construction.
func (a *app) requireReady(snap scanner.RepoSnapshot, reqs capabilities.RequirementSet) error {
	result := capabilities.Gate(snap.Health, reqs)
	if result.Outcome == capabilities.OutcomeReady {
		return nil
	}
	for _, issue := range result.Repair.BlockingIssues {
		a.out.Errorf("%s", issue.Message)
	}
	return fmt.Errorf("repository is not ready for this command; run 'lattice doctor' to see and fix the issues")
}

// resolveTarget picks args[0] if given, otherwise the checked-out branch.
func resolveTarget(snap scanner.RepoSnapshot, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if !snap.HasCurrent {
		return "", fmt.Errorf("HEAD is detached; specify a branch explicitly")
	}
	return snap.CurrentBranch.String(), nil
}

func (a *app) reportResult(result executor.Result) {
	switch result.Outcome {
	case executor.OutcomeCommitted:
		a.out.Success("done")
	case executor.OutcomeSuspended:
		a.out.Warning("operation suspended; resolve the conflict and run 'lattice continue', or 'lattice abort'")
	case executor.OutcomePartialRollback:
		a.out.Errorf("rollback incomplete for refs: %v; repository may need manual repair", result.FailedRefs)
	case executor.OutcomeAborted:
		if result.Err != nil {
			a.out.Errorf("%v", result.Err)
			a.out.Info("if a step partially applied, run 'lattice continue' to retry it or 'lattice abort' to roll back")
		}
	}
}
