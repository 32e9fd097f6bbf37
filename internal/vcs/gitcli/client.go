// Package gitcli is Lattice's DVCS doorway implementation: it shells out
// to the git CLI, serialized through a mutex, with a hardened
// environment. A prior spike evaluated go-git as a library alternative
// and found its RemoteConfig has no separate push-URL field, which this
// tool's CAS-based ref model depends on having full control over; that
// spike is kept at spike/ as the recorded rationale for the CLI-wrapper
// approach used here.
package gitcli

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"sync"

	lerrors "github.com/lcgerke/lattice/internal/errors"
	"github.com/lcgerke/lattice/internal/vcs"
)

// Client wraps git CLI operations with a directory and a serializing mutex.
type Client struct {
	workdir string
	mu      sync.Mutex
}

var _ vcs.Repository = (*Client)(nil)

// New creates a DVCS client rooted at workdir.
func New(workdir string) *Client {
	return &Client{workdir: workdir}
}

// run executes a git subcommand, serialized and with a hardened environment.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cmd := exec.CommandContext(ctx, "git", args...)
	if c.workdir != "" {
		cmd.Dir = c.workdir
	}
	cmd.Env = append(os.Environ(),
		"GIT_TERMINAL_PROMPT=0",
		"LC_ALL=C",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return "", translateGitError(args, stderr.String(), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// runRaw is like run but returns untrimmed bytes, for blob reads.
func (c *Client) runRaw(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cmd := exec.CommandContext(ctx, "git", args...)
	if c.workdir != "" {
		cmd.Dir = c.workdir
	}
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "LC_ALL=C")
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, translateGitError(args, stderr.String(), err)
	}
	return stdout.Bytes(), nil
}

func translateGitError(args []string, stderr string, err error) error {
	low := strings.ToLower(stderr)
	switch {
	case strings.Contains(low, "not a git repository"):
		return lerrors.New(lerrors.KindNotARepo, "not a git repository")
	case strings.Contains(low, "unknown revision") || strings.Contains(low, "bad revision") || strings.Contains(low, "bad object") || strings.Contains(low, "not a valid object name"):
		return lerrors.RefNotFound(strings.Join(args, " "))
	default:
		return lerrors.Wrap(lerrors.KindAccessError, "git "+strings.Join(args, " ")+" failed", err)
	}
}

// RunGit exposes an arbitrary git invocation for PlanStep{RunGit} execution.
func (c *Client) RunGit(ctx context.Context, args ...string) (string, error) {
	return c.run(ctx, args...)
}
