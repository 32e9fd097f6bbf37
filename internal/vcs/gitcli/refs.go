package gitcli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	lerrors "github.com/lcgerke/lattice/internal/errors"
	"github.com/lcgerke/lattice/internal/vcs"
)

// ResolveRef peels name to its commit, for ancestry checks.
func (c *Client) ResolveRef(ctx context.Context, name string) (string, error) {
	out, err := c.run(ctx, "rev-parse", "--verify", "--quiet", name+"^{commit}")
	if err != nil {
		return "", lerrors.RefNotFound(name)
	}
	return out, nil
}

// TryResolveRefToObject resolves name without peeling, for blob-valued refs
// like refs/branch-metadata/<branch>. ok=false iff the ref does not exist.
func (c *Client) TryResolveRefToObject(ctx context.Context, name string) (string, bool, error) {
	out, err := c.run(ctx, "rev-parse", "--verify", "--quiet", name)
	if err != nil {
		return "", false, nil
	}
	return out, true, nil
}

// UpdateRefCas atomically verifies the precondition and updates name via
// `git update-ref --stdin`, git's own compare-and-swap transaction.
func (c *Client) UpdateRefCas(ctx context.Context, name string, newOid string, expectedOld vcs.CasPrecondition, reason string) error {
	var line string
	if expectedOld.Present {
		line = fmt.Sprintf("update %s %s %s\n", name, newOid, expectedOld.Oid)
	} else {
		line = fmt.Sprintf("create %s %s\n", name, newOid)
	}

	_, err := c.runRaw(ctx, []byte(line), "update-ref", "--stdin", "-m", reason)
	if err != nil {
		actual, _, _ := c.TryResolveRefToObject(ctx, name)
		return lerrors.CasFailed(name, casExpectedLabel(expectedOld), casActualLabel(actual))
	}
	return nil
}

// DeleteRefCas atomically verifies expectedOld and deletes name.
func (c *Client) DeleteRefCas(ctx context.Context, name string, expectedOld string) error {
	line := fmt.Sprintf("delete %s %s\n", name, expectedOld)
	_, err := c.runRaw(ctx, []byte(line), "update-ref", "--stdin")
	if err != nil {
		actual, _, _ := c.TryResolveRefToObject(ctx, name)
		return lerrors.CasFailed(name, expectedOld, casActualLabel(actual))
	}
	return nil
}

func casExpectedLabel(p vcs.CasPrecondition) string {
	if !p.Present {
		return "<absent>"
	}
	return p.Oid
}

func casActualLabel(oid string) string {
	if oid == "" {
		return "<absent>"
	}
	return oid
}

// ListRefsInNamespace enumerates refs under a namespace prefix, e.g.
// "refs/branch-metadata/", returning ref name (full) -> oid (not peeled).
func (c *Client) ListRefsInNamespace(ctx context.Context, namespace string) (map[string]string, error) {
	out, err := c.run(ctx, "for-each-ref", "--format=%(refname) %(objectname)", namespace)
	if err != nil {
		return nil, err
	}
	result := map[string]string{}
	if out == "" {
		return result, nil
	}
	for _, line := range strings.Split(out, "\n") {
		parts := strings.Fields(line)
		if len(parts) != 2 {
			continue
		}
		result[parts[0]] = parts[1]
	}
	return result, nil
}

// ListLocalBranches returns branch name (short) -> commit oid for every
// refs/heads/* ref.
func (c *Client) ListLocalBranches(ctx context.Context) (map[string]string, error) {
	out, err := c.run(ctx, "for-each-ref", "--format=%(refname:short) %(objectname)", "refs/heads/")
	if err != nil {
		return nil, err
	}
	result := map[string]string{}
	if out == "" {
		return result, nil
	}
	for _, line := range strings.Split(out, "\n") {
		parts := strings.Fields(line)
		if len(parts) != 2 {
			continue
		}
		result[parts[0]] = parts[1]
	}
	return result, nil
}

// MergeBase returns the merge base of a and b.
func (c *Client) MergeBase(ctx context.Context, a, b string) (string, error) {
	return c.run(ctx, "merge-base", a, b)
}

// IsAncestor reports whether ancestor is an ancestor of (or equal to) descendant.
func (c *Client) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	c.mu.Lock()
	workdir := c.workdir
	c.mu.Unlock()
	_ = workdir

	_, err := c.run(ctx, "merge-base", "--is-ancestor", ancestor, descendant)
	if err == nil {
		return true, nil
	}
	if lerrors.Is(err, lerrors.KindRefNotFound) {
		return false, err
	}
	// merge-base --is-ancestor exits 1 (mapped to a generic access error by
	// translateGitError when stderr is empty) when the answer is simply "no".
	return false, nil
}

// CommitCount counts commits reachable from tip but not from base.
func (c *Client) CommitCount(ctx context.Context, base, tip string) (int, error) {
	out, err := c.run(ctx, "rev-list", "--count", tip, "^"+base)
	if err != nil {
		return 0, err
	}
	n, convErr := strconv.Atoi(out)
	if convErr != nil {
		return 0, lerrors.Wrap(lerrors.KindAccessError, "unexpected rev-list --count output", convErr)
	}
	return n, nil
}
