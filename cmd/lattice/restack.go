package main

import (
	"context"
	"fmt"

	"github.com/lcgerke/lattice/internal/capabilities"
	"github.com/lcgerke/lattice/internal/planner"
	"github.com/lcgerke/lattice/internal/scanner"
	"github.com/spf13/cobra"
)

var restackStack bool

var restackCmd = &cobra.Command{
	Use:   "restack [branch]",
	Short: "Re-establish a branch's base-ancestry invariant against its parent",
	Long: `Restack rebases a tracked branch onto its parent's current tip and
records the new base. With --stack, every branch from the target up to
the top of the stack is restacked in turn, rescanning between each one
since a child's new parent tip is only known once its parent's rebase
has actually run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestack,
}

func init() {
	restackCmd.Flags().BoolVar(&restackStack, "stack", false, "Restack the target and every branch above it")
}

func runRestack(cmd *cobra.Command, args []string) error {
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

	if !restackStack {
		return restackOneAndReport(ctx, a, snap, target)
	}

	chain := append([]string{target}, snap.Graph.Descendants(target)...)
	for _, branch := range chain {
		if err := restackOneAndReport(ctx, a, snap, branch); err != nil {
			return err
		}
		snap, err = a.scan(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

func restackOneAndReport(ctx context.Context, a *app, snap scanner.RepoSnapshot, branch string) error {
	pl, err := planner.RestackOne(snap, branch)
	if err != nil {
		return fmt.Errorf("restacking %q: %w", branch, err)
	}
	if len(pl.Steps) <= 2 {
		a.out.Infof("%s already restacked", branch)
		return nil
	}
	_, err = a.runPlan(ctx, snap, pl)
	return err
}
