package gitcli

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lcgerke/lattice/internal/vcs"
)

// State reads on-disk state files to classify the DVCS's in-progress
// operation directly, rather than parsing `git status` prose.
func (c *Client) State(ctx context.Context) (vcs.GitState, error) {
	info, err := c.Info(ctx)
	if err != nil {
		return vcs.GitState{}, err
	}
	gitDir := info.GitDir

	if exists(filepath.Join(gitDir, "rebase-merge")) {
		return rebaseProgress(filepath.Join(gitDir, "rebase-merge")), nil
	}
	if exists(filepath.Join(gitDir, "rebase-apply")) {
		return rebaseProgress(filepath.Join(gitDir, "rebase-apply")), nil
	}
	if exists(filepath.Join(gitDir, "MERGE_HEAD")) {
		return vcs.GitState{Kind: vcs.GitStateMerge}, nil
	}
	if exists(filepath.Join(gitDir, "CHERRY_PICK_HEAD")) {
		return vcs.GitState{Kind: vcs.GitStateCherryPick}, nil
	}
	if exists(filepath.Join(gitDir, "REVERT_HEAD")) {
		return vcs.GitState{Kind: vcs.GitStateRevert}, nil
	}
	if exists(filepath.Join(gitDir, "BISECT_LOG")) {
		return vcs.GitState{Kind: vcs.GitStateBisect}, nil
	}
	if exists(filepath.Join(gitDir, "rebase-apply", "mbox")) {
		return vcs.GitState{Kind: vcs.GitStateApplyMailbox}, nil
	}
	return vcs.GitState{Kind: vcs.GitStateClean}, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func rebaseProgress(dir string) vcs.GitState {
	state := vcs.GitState{Kind: vcs.GitStateRebase}
	if b, err := os.ReadFile(filepath.Join(dir, "msgnum")); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(string(b))); err == nil {
			state.Current = n
		}
	}
	if b, err := os.ReadFile(filepath.Join(dir, "end")); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(string(b))); err == nil {
			state.Total = n
		}
	}
	return state
}

// WorktreeStatus returns Clean / Dirty / Unavailable. Untracked files are
// never counted, per spec.
func (c *Client) WorktreeStatus(ctx context.Context) (vcs.WorktreeStatus, error) {
	info, err := c.Info(ctx)
	if err != nil {
		return vcs.WorktreeStatus{}, err
	}
	if info.WorkDir == "" {
		return vcs.WorktreeStatus{Kind: vcs.WorktreeUnavailable, Reason: "no working directory (bare repository or missing worktree)"}, nil
	}

	out, err := c.run(ctx, "status", "--porcelain=v1")
	if err != nil {
		return vcs.WorktreeStatus{}, err
	}

	var staged, unstaged, conflicts int
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 2 {
			continue
		}
		x, y := line[0], line[1]
		switch {
		case x == 'U' || y == 'U' || (x == 'A' && y == 'A') || (x == 'D' && y == 'D'):
			conflicts++
		case x == '?' && y == '?':
			// untracked: never counted
		default:
			if x != ' ' {
				staged++
			}
			if y != ' ' {
				unstaged++
			}
		}
	}

	if staged == 0 && unstaged == 0 && conflicts == 0 {
		return vcs.WorktreeStatus{Kind: vcs.WorktreeClean}, nil
	}
	return vcs.WorktreeStatus{Kind: vcs.WorktreeDirty, Staged: staged, Unstaged: unstaged, Conflicts: conflicts}, nil
}

// CurrentBranch returns the checked-out branch name, or ok=false if detached.
func (c *Client) CurrentBranch(ctx context.Context) (string, bool, error) {
	out, err := c.run(ctx, "symbolic-ref", "--quiet", "--short", "HEAD")
	if err != nil {
		// symbolic-ref exits non-zero on detached HEAD; treat as detached
		// rather than propagating the error.
		return "", false, nil
	}
	return out, true, nil
}
