package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var hookCheckPushCmd = &cobra.Command{
	Use:    "hook-check-push",
	Short:  "Exit non-zero if a Lattice operation is in progress",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE:   runHookCheckPush,
}

func runHookCheckPush(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	_, inProgress, err := a.opStore.Read()
	if err != nil {
		return err
	}
	if inProgress {
		return fmt.Errorf("an operation is in progress")
	}
	return nil
}
