package main

import (
	"github.com/lcgerke/lattice/internal/capabilities"
	"github.com/lcgerke/lattice/internal/metadata"
	"github.com/lcgerke/lattice/internal/planner"
	"github.com/spf13/cobra"
)

var (
	freezeDownstack   bool
	freezeReason      string
	unfreezeCascade bool
)

var freezeCmd = &cobra.Command{
	Use:   "freeze <branch>",
	Short: "Mark a branch (and optionally its downstack ancestors) frozen",
	Args:  cobra.ExactArgs(1),
	RunE:  runFreeze,
}

var unfreezeCmd = &cobra.Command{
	Use:   "unfreeze <branch>",
	Short: "Clear a branch's frozen state",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnfreeze,
}

func init() {
	freezeCmd.Flags().BoolVar(&freezeDownstack, "downstack", false, "Also freeze branches below this one, up to trunk")
	freezeCmd.Flags().StringVar(&freezeReason, "reason", "", "Why this branch is frozen")
	unfreezeCmd.Flags().BoolVar(&unfreezeCascade, "cascade", false, "Also unfreeze branches below this one, up to trunk")
}

func runFreeze(cmd *cobra.Command, args []string) error {
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

	scope := metadata.ScopeSingle
	if freezeDownstack {
		scope = metadata.ScopeDownstackInclusive
	}

	pl, err := planner.Freeze(snap, branch, scope, freezeReason)
	if err != nil {
		return err
	}

	_, err = a.runPlan(ctx, snap, pl)
	return err
}

func runUnfreeze(cmd *cobra.Command, args []string) error {
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

	pl, err := planner.Unfreeze(snap, branch, unfreezeCascade)
	if err != nil {
		return err
	}

	_, err = a.runPlan(ctx, snap, pl)
	return err
}
