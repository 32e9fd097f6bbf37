package gitcli

import (
	"context"
	"strings"

	"github.com/lcgerke/lattice/internal/vcs"
)

// ListWorktrees parses `git worktree list --porcelain`.
func (c *Client) ListWorktrees(ctx context.Context) ([]vcs.Worktree, error) {
	out, err := c.run(ctx, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}

	var worktrees []vcs.Worktree
	var cur vcs.Worktree
	flush := func() {
		if cur.Path != "" {
			worktrees = append(worktrees, cur)
		}
		cur = vcs.Worktree{}
	}

	for _, line := range strings.Split(out, "\n") {
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "worktree "):
			flush()
			cur.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "HEAD "):
			cur.Head = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			ref := strings.TrimPrefix(line, "branch ")
			cur.Branch = strings.TrimPrefix(ref, "refs/heads/")
		case line == "detached":
			cur.Branch = ""
		}
	}
	flush()

	return worktrees, nil
}

// BranchCheckedOutElsewhere reports whether branch is checked out in a
// worktree other than the current one — a gating input for operations that
// rewrite branch refs.
func (c *Client) BranchCheckedOutElsewhere(ctx context.Context, branch string) (bool, error) {
	info, err := c.Info(ctx)
	if err != nil {
		return false, err
	}
	worktrees, err := c.ListWorktrees(ctx)
	if err != nil {
		return false, err
	}
	for _, wt := range worktrees {
		if wt.Branch == branch && wt.Path != info.WorkDir {
			return true, nil
		}
	}
	return false, nil
}
