package main

import (
	"fmt"

	"github.com/lcgerke/lattice/internal/capabilities"
	"github.com/lcgerke/lattice/internal/metadata"
	"github.com/lcgerke/lattice/internal/scanner"
	"github.com/lcgerke/lattice/internal/ui"
	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the tracked branch stack as a tree",
	Args:  cobra.NoArgs,
	RunE:  runLog,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current branch's place in the stack",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runLog(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	snap, err := a.scan(ctx)
	if err != nil {
		return err
	}
	if err := a.requireReady(snap, capabilities.ReadOnly); err != nil {
		return err
	}

	var lines []ui.StackLine
	trunkName := snap.Trunk.String()
	if snap.HasTrunk {
		lines = append(lines, ui.StackLine{
			Depth:   0,
			Branch:  trunkName,
			Current: snap.HasCurrent && snap.CurrentBranch.String() == trunkName,
		})
	}
	for _, name := range snap.Graph.TopologicalOrder() {
		entry := snap.Tracked[name]
		lines = append(lines, ui.StackLine{
			Depth:      len(snap.Graph.Ancestors(name)),
			Branch:     name,
			Current:    snap.HasCurrent && snap.CurrentBranch.String() == name,
			Annotation: annotate(entry),
		})
	}

	a.out.Tree(lines)
	if snap.HasDivergence {
		a.out.Warning("repository state has diverged since the last committed operation")
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	snap, err := a.scan(ctx)
	if err != nil {
		return err
	}
	if err := a.requireReady(snap, capabilities.ReadOnly); err != nil {
		return err
	}

	if !snap.HasCurrent {
		a.out.Info("HEAD is detached")
		return nil
	}
	name := snap.CurrentBranch.String()
	entry, tracked := snap.Tracked[name]
	if !tracked {
		a.out.Infof("%s is not tracked", name)
		return nil
	}

	a.out.Infof("%s -> %s", name, entry.Metadata.Parent.Name)
	a.out.Infof("base: %s", entry.Metadata.Base.Oid)
	if entry.Metadata.Freeze.IsFrozen() {
		a.out.Warningf("frozen (%s): %s", entry.Metadata.Freeze.Scope, entry.Metadata.Freeze.Reason)
	}
	if entry.Metadata.Pr.State == metadata.PrLinked {
		a.out.Infof("pr: %s #%d", entry.Metadata.Pr.Forge, entry.Metadata.Pr.Number)
	}
	return nil
}

func annotate(entry scanner.TrackedEntry) string {
	var annotation string
	if entry.Metadata.Freeze.IsFrozen() {
		annotation = "frozen"
	}
	if entry.Metadata.Pr.State == metadata.PrLinked {
		if annotation != "" {
			annotation += " "
		}
		annotation += fmt.Sprintf("#%d", entry.Metadata.Pr.Number)
	}
	return annotation
}
