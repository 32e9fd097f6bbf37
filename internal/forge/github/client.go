// Package github implements forge.Client against the GitHub REST API,
// using a go-github v58 + oauth2 static-token client construction and
// owner/repo URL parsing, talking to the PullRequests service rather than
// repository/branch-protection endpoints.
package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v58/github"
	"golang.org/x/oauth2"

	"github.com/lcgerke/lattice/internal/forge"
)

// Client implements forge.Client over go-github/v58.
type Client struct {
	client *github.Client
	owner  string
	repo   string
}

// NewClient builds a Client from a remote URL (https or ssh form) and a
// PAT. Token resolution itself lives in internal/secrets; this constructor
// takes an already-resolved token so the forge package stays free of any
// particular secrets backend.
func NewClient(remoteURL, token string) (*Client, error) {
	owner, repo, err := ParseURL(remoteURL)
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub URL: %w", err)
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)

	return &Client{client: github.NewClient(tc), owner: owner, repo: repo}, nil
}

// ParseURL extracts owner and repo from https or ssh GitHub remote URLs.
// Exposed so the scanner can resolve a remote's owner/repo without
// constructing a full Client (and without network access).
func ParseURL(remoteURL string) (owner, repo string, err error) {
	if strings.HasPrefix(remoteURL, "git@github.com:") {
		parts := strings.TrimSuffix(strings.TrimPrefix(remoteURL, "git@github.com:"), ".git")
		split := strings.Split(parts, "/")
		if len(split) != 2 {
			return "", "", fmt.Errorf("invalid SSH URL format")
		}
		return split[0], split[1], nil
	}

	u, err := url.Parse(remoteURL)
	if err != nil {
		return "", "", err
	}
	if u.Host != "github.com" {
		return "", "", fmt.Errorf("not a GitHub URL: %s", u.Host)
	}
	path := strings.TrimSuffix(strings.TrimPrefix(u.Path, "/"), ".git")
	parts := strings.Split(path, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid GitHub path: %s", path)
	}
	return parts[0], parts[1], nil
}

func (c *Client) GetPR(ctx context.Context, number uint64) (forge.PR, error) {
	pr, _, err := c.client.PullRequests.Get(ctx, c.owner, c.repo, int(number))
	if err != nil {
		return forge.PR{}, fmt.Errorf("get pull request #%d: %w", number, err)
	}
	return fromGitHubPR(pr), nil
}

// FindPRByHead looks up an open PR whose head matches branch, in
// owner:branch form as the API requires.
func (c *Client) FindPRByHead(ctx context.Context, head string) (forge.PR, bool, error) {
	opts := &github.PullRequestListOptions{
		Head:        c.owner + ":" + head,
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 1},
	}
	prs, _, err := c.client.PullRequests.List(ctx, c.owner, c.repo, opts)
	if err != nil {
		return forge.PR{}, false, fmt.Errorf("list pull requests for head %q: %w", head, err)
	}
	if len(prs) == 0 {
		return forge.PR{}, false, nil
	}
	return fromGitHubPR(prs[0]), true, nil
}

func (c *Client) CreatePR(ctx context.Context, req forge.CreatePRRequest) (forge.PR, error) {
	pr, _, err := c.client.PullRequests.Create(ctx, c.owner, c.repo, &github.NewPullRequest{
		Title: github.String(req.Title),
		Head:  github.String(req.Head),
		Base:  github.String(req.Base),
		Body:  github.String(req.Body),
		Draft: github.Bool(req.Draft),
	})
	if err != nil {
		return forge.PR{}, fmt.Errorf("create pull request %s -> %s: %w", req.Head, req.Base, err)
	}
	return fromGitHubPR(pr), nil
}

func (c *Client) UpdatePR(ctx context.Context, req forge.UpdatePRRequest) (forge.PR, error) {
	patch := &github.PullRequest{}
	if req.Title != nil {
		patch.Title = req.Title
	}
	if req.Body != nil {
		patch.Body = req.Body
	}
	if req.Base != nil {
		patch.Base = &github.PullRequestBranch{Ref: req.Base}
	}

	pr, _, err := c.client.PullRequests.Edit(ctx, c.owner, c.repo, int(req.Number), patch)
	if err != nil {
		return forge.PR{}, fmt.Errorf("update pull request #%d: %w", req.Number, err)
	}
	return fromGitHubPR(pr), nil
}

func fromGitHubPR(pr *github.PullRequest) forge.PR {
	out := forge.PR{
		Number:  uint64(pr.GetNumber()),
		URL:     pr.GetHTMLURL(),
		Head:    pr.GetHead().GetRef(),
		Base:    pr.GetBase().GetRef(),
		Title:   pr.GetTitle(),
		Body:    pr.GetBody(),
		IsDraft: pr.GetDraft(),
		State:   forge.PRStateOpen,
	}
	switch {
	case pr.GetMerged():
		out.State = forge.PRStateMerged
	case pr.GetState() == "closed":
		out.State = forge.PRStateClosed
	}
	return out
}
