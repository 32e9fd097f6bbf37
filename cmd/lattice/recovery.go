package main

import (
	"fmt"

	"github.com/lcgerke/lattice/internal/executor"
	"github.com/spf13/cobra"
)

var continueCmd = &cobra.Command{
	Use:   "continue",
	Short: "Resume a suspended operation",
	Args:  cobra.NoArgs,
	RunE:  runContinue,
}

var abortCmd = &cobra.Command{
	Use:   "abort",
	Short: "Roll back a suspended operation",
	Args:  cobra.NoArgs,
	RunE:  runAbort,
}

func runContinue(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	pl, ok, err := a.planStore.Read()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no operation is in progress")
	}
	snap, err := a.scan(ctx)
	if err != nil {
		return err
	}

	result := executor.Continue(ctx, a.repo, a.opStore, a.led, pl, snap.Fingerprint, a.rescanner())
	a.reportResult(result)
	if result.Outcome == executor.OutcomeCommitted {
		if err := a.planStore.Clear(); err != nil {
			return err
		}
	}
	return result.Err
}

func runAbort(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	pl, ok, err := a.planStore.Read()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no operation is in progress")
	}

	result := executor.Abort(ctx, a.repo, a.opStore, a.led, pl)
	switch result.Outcome {
	case executor.OutcomeAborted:
		if err := a.opStore.Clear(); err != nil {
			return err
		}
		if err := a.planStore.Clear(); err != nil {
			return err
		}
		a.out.Success("operation rolled back")
		return nil
	case executor.OutcomePartialRollback:
		a.out.Errorf("rollback incomplete for refs: %v; repository may need manual repair", result.FailedRefs)
		return result.Err
	default:
		return result.Err
	}
}
