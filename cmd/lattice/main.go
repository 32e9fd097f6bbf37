package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	format  string
	noColor bool
	quiet   bool
	verbose bool

	rootCmd = &cobra.Command{
		Use:   "lattice",
		Short: "Stacked-branch workflow for git",
		Long: `Lattice tracks a DAG of branches rooted at a trunk, keeps each
branch restacked onto its parent, and drives submit against a code
review forge. State lives in branch-metadata refs alongside the
branches themselves and in the repository's git directory; forge
credentials are read from a secrets file in the user's config directory.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&format, "format", "", "Output format (human|json)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Minimal output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(untrackCmd)
	rootCmd.AddCommand(restackCmd)
	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(topCmd)
	rootCmd.AddCommand(bottomCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(foldCmd)
	rootCmd.AddCommand(freezeCmd)
	rootCmd.AddCommand(unfreezeCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(continueCmd)
	rootCmd.AddCommand(abortCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(hookCheckPushCmd)
}

func main() {
	ctx := context.Background()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
