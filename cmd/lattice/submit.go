package main

import (
	"context"
	"fmt"

	"github.com/lcgerke/lattice/internal/capabilities"
	lerrors "github.com/lcgerke/lattice/internal/errors"
	"github.com/lcgerke/lattice/internal/forge"
	"github.com/lcgerke/lattice/internal/forge/github"
	"github.com/lcgerke/lattice/internal/planner"
	"github.com/lcgerke/lattice/internal/scanner"
	"github.com/spf13/cobra"
)

var (
	submitNoRestack bool
	submitDraft     bool
)

var submitCmd = &cobra.Command{
	Use:   "submit [branch]",
	Short: "Open or update a pull request for a branch",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSubmit,
}

func init() {
	submitCmd.Flags().BoolVar(&submitNoRestack, "no-restack", false, "Submit without first restacking")
	submitCmd.Flags().BoolVar(&submitDraft, "draft", false, "Open the pull request as a draft")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	snap, err := a.scan(ctx)
	if err != nil {
		return err
	}

	reqs := capabilities.Remote
	if submitNoRestack {
		reqs = capabilities.RemoteBareAllowed
	} else if !snap.Health.Has(capabilities.WorkingDirectoryAvailable) {
		return lerrors.BareRepoRequiresFlag("submit", "--no-restack")
	}
	if err := a.requireReady(snap, reqs); err != nil {
		return err
	}

	target, err := resolveTarget(snap, args)
	if err != nil {
		return err
	}

	if !submitNoRestack {
		if err := restackOneAndReport(ctx, a, snap, target); err != nil {
			return err
		}
		snap, err = a.scan(ctx)
		if err != nil {
			return err
		}
	}

	entry, tracked := snap.Tracked[target]
	if !tracked {
		return fmt.Errorf("branch %q is not tracked", target)
	}

	client, err := newForgeClient(ctx, a, snap)
	if err != nil {
		return err
	}

	existing, found, err := client.FindPRByHead(ctx, target)
	if err != nil {
		return err
	}

	var pr forge.PR
	if found {
		pr, err = client.UpdatePR(ctx, forge.UpdatePRRequest{Number: existing.Number})
		if err != nil {
			return err
		}
	} else {
		pr, err = client.CreatePR(ctx, forge.CreatePRRequest{
			Head:  target,
			Base:  entry.Metadata.Parent.Name,
			Title: target,
			Draft: submitDraft,
		})
		if err != nil {
			return err
		}
	}

	pl, err := planner.RecordPr(snap, target, "github", pr.Number, pr.URL, string(pr.State), pr.IsDraft)
	if err != nil {
		return err
	}
	if _, err := a.runPlan(ctx, snap, pl); err != nil {
		return err
	}
	a.out.Successf("pr: %s", pr.URL)
	return nil
}

// newForgeClient builds a forge.Client from the scanned remote URL and a
// PAT resolved through the app's secrets provider, the same one the
// scanner used to grant RepoAuthorized.
func newForgeClient(ctx context.Context, a *app, snap scanner.RepoSnapshot) (forge.Client, error) {
	token, err := a.secrets.GetPAT(ctx, snap.Remote.URL)
	if err != nil {
		return nil, err
	}
	return github.NewClient(snap.Remote.URL, token)
}
