package main

import (
	"github.com/lcgerke/lattice/internal/capabilities"
	"github.com/lcgerke/lattice/internal/planner"
	"github.com/spf13/cobra"
)

var untrackCmd = &cobra.Command{
	Use:   "untrack <branch>",
	Short: "Stop tracking a branch, leaving its ref untouched",
	Args:  cobra.ExactArgs(1),
	RunE:  runUntrack,
}

func runUntrack(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	branch := args[0]

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	snap, err := a.scan(ctx)
	if err != nil {
		return err
	}
	if err := a.requireReady(snap, capabilities.MutatingMetadataOnly); err != nil {
		return err
	}

	pl, err := planner.Untrack(snap, branch)
	if err != nil {
		return err
	}

	_, err = a.runPlan(ctx, snap, pl)
	return err
}
