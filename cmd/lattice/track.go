package main

import (
	"fmt"

	"github.com/lcgerke/lattice/internal/capabilities"
	"github.com/lcgerke/lattice/internal/planner"
	"github.com/spf13/cobra"
)

var (
	trackParent string
	trackBase   string
)

var trackCmd = &cobra.Command{
	Use:   "track <branch>",
	Short: "Start tracking an existing branch in the stack",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrack,
}

func init() {
	trackCmd.Flags().StringVar(&trackParent, "parent", "", "Parent branch (defaults to trunk)")
	trackCmd.Flags().StringVar(&trackBase, "base", "", "Base commit (defaults to the parent's current tip)")
}

func runTrack(cmd *cobra.Command, args []string) error {
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

	base := trackBase
	if base == "" {
		parent := trackParent
		if parent == "" {
			parent = snap.Trunk.String()
		}
		tip, ok := snap.Branches[parent]
		if !ok {
			return fmt.Errorf("parent branch %q has no known tip", parent)
		}
		base = tip.String()
	}

	pl, err := planner.Track(snap, branch, trackParent, base)
	if err != nil {
		return err
	}

	_, err = a.runPlan(ctx, snap, pl)
	return err
}
