package main

import (
	"github.com/lcgerke/lattice/internal/capabilities"
	"github.com/lcgerke/lattice/internal/planner"
	"github.com/spf13/cobra"
)

var foldCmd = &cobra.Command{
	Use:   "fold [branch]",
	Short: "Merge a branch into its parent and reparent its children",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFold,
}

func runFold(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	snap, err := a.scan(ctx)
	if err != nil {
		return err
	}
	if err := a.requireReady(snap, capabilities.Mutating); err != nil {
		return err
	}

	target, err := resolveTarget(snap, args)
	if err != nil {
		return err
	}

	pl, err := planner.Fold(snap, target)
	if err != nil {
		return err
	}

	_, err = a.runPlan(ctx, snap, pl)
	return err
}
