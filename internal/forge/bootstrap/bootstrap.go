// Package bootstrap is a read-only GitHub helper that lists open PRs and
// keeps those whose head is one of a given set of branches, using a
// go-github v56 + oauth2 static-token construction. The scanner does not
// call it; pr.last_known is written when submit links a PR. Kept as a distinct client from
// internal/forge/github because its v56 dependency and read-only scope
// are a different maintenance lane from the v58 mutating forge.Client.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/google/go-github/v56/github"
	"golang.org/x/oauth2"

	"github.com/lcgerke/lattice/internal/forge"
)

// Client lists open pull requests for a repository.
type Client struct {
	client *github.Client
	owner  string
	repo   string
}

func NewClient(owner, repo, token string) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)
	return &Client{client: github.NewClient(tc), owner: owner, repo: repo}
}

// FindOpenPRs returns the open PR, if any, for each of heads. A branch
// absent from the result simply has no open PR (or the lookup was
// inconclusive); callers must never treat absence as authoritative, per
// the cache's "never used to justify structural changes" contract.
func (c *Client) FindOpenPRs(ctx context.Context, heads []string) (map[string]forge.PR, error) {
	wanted := make(map[string]bool, len(heads))
	for _, h := range heads {
		wanted[h] = true
	}

	out := make(map[string]forge.PR)
	opts := &github.PullRequestListOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		prs, resp, err := c.client.PullRequests.List(ctx, c.owner, c.repo, opts)
		if err != nil {
			return out, fmt.Errorf("list open pull requests: %w", err)
		}
		for _, pr := range prs {
			head := pr.GetHead().GetRef()
			if !wanted[head] {
				continue
			}
			out[head] = forge.PR{
				Number:  uint64(pr.GetNumber()),
				URL:     pr.GetHTMLURL(),
				Head:    head,
				Base:    pr.GetBase().GetRef(),
				Title:   pr.GetTitle(),
				Body:    pr.GetBody(),
				IsDraft: pr.GetDraft(),
				State:   forge.PRStateOpen,
			}
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}
