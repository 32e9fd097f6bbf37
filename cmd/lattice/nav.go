package main

import (
	"fmt"

	"github.com/lcgerke/lattice/internal/capabilities"
	"github.com/lcgerke/lattice/internal/planner"
	"github.com/lcgerke/lattice/internal/scanner"
	"github.com/spf13/cobra"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Check out the current branch's child",
	Args:  cobra.NoArgs,
	RunE:  navRunner(planner.Up),
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Check out the current branch's parent",
	Args:  cobra.NoArgs,
	RunE:  navRunner(planner.Down),
}

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Check out the top of the current stack",
	Args:  cobra.NoArgs,
	RunE:  navRunner(planner.Top),
}

var bottomCmd = &cobra.Command{
	Use:   "bottom",
	Short: "Check out the bottom of the current stack",
	Args:  cobra.NoArgs,
	RunE:  navRunner(planner.Bottom),
}

func navRunner(lookup func(scanner.RepoSnapshot, string) (string, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		snap, err := a.scan(ctx)
		if err != nil {
			return err
		}
		if err := a.requireReady(snap, capabilities.Navigation); err != nil {
			return err
		}
		if !snap.HasCurrent {
			return fmt.Errorf("HEAD is detached; navigation needs a checked-out branch")
		}

		dest, err := lookup(snap, snap.CurrentBranch.String())
		if err != nil {
			return err
		}

		if _, err := a.repo.RunGit(ctx, "checkout", dest); err != nil {
			return err
		}
		a.out.Successf("switched to %s", dest)
		return nil
	}
}
