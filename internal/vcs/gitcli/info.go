package gitcli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/lcgerke/lattice/internal/vcs"
)

// Info returns git_dir, common_dir, optional work_dir, and the repo context.
func (c *Client) Info(ctx context.Context) (vcs.Info, error) {
	gitDir, err := c.run(ctx, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return vcs.Info{}, err
	}
	commonDir, err := c.run(ctx, "rev-parse", "--git-common-dir")
	if err != nil {
		return vcs.Info{}, err
	}
	if !filepath.IsAbs(commonDir) {
		commonDir = filepath.Join(gitDir, commonDir)
	}
	commonDir = filepath.Clean(commonDir)

	isBareOut, err := c.run(ctx, "rev-parse", "--is-bare-repository")
	if err != nil {
		return vcs.Info{}, err
	}
	isBare := strings.TrimSpace(isBareOut) == "true"

	info := vcs.Info{GitDir: gitDir, CommonDir: commonDir}

	switch {
	case isBare:
		info.Context = vcs.ContextBare
	case gitDir != commonDir:
		info.Context = vcs.ContextWorktree
	default:
		info.Context = vcs.ContextNormal
	}

	if !isBare {
		if topLevel, err := c.run(ctx, "rev-parse", "--show-toplevel"); err == nil {
			if _, statErr := os.Stat(topLevel); statErr == nil {
				info.WorkDir = topLevel
			}
		}
	}

	return info, nil
}
