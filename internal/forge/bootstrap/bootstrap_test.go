package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v56/github"
)

func newMockClient(t *testing.T, mux *http.ServeMux) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(mux)
	client := &Client{
		client: github.NewClient(nil),
		owner:  "testowner",
		repo:   "testrepo",
	}
	baseURL, err := url.Parse(server.URL + "/")
	if err != nil {
		t.Fatalf("url.Parse() error = %v", err)
	}
	client.client.BaseURL = baseURL
	return client, server
}

func TestFindOpenPRs_FiltersToRequestedHeads(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testowner/testrepo/pulls", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]*github.PullRequest{
			{
				Number: github.Int(1),
				Head:   &github.PullRequestBranch{Ref: github.String("feature-a")},
				Base:   &github.PullRequestBranch{Ref: github.String("main")},
			},
			{
				Number: github.Int(2),
				Head:   &github.PullRequestBranch{Ref: github.String("feature-b")},
				Base:   &github.PullRequestBranch{Ref: github.String("main")},
			},
		})
	})
	client, server := newMockClient(t, mux)
	defer server.Close()

	got, err := client.FindOpenPRs(context.Background(), []string{"feature-a", "feature-c"})
	if err != nil {
		t.Fatalf("FindOpenPRs() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("FindOpenPRs() returned %d entries, want 1: %+v", len(got), got)
	}
	pr, ok := got["feature-a"]
	if !ok {
		t.Fatal("FindOpenPRs() missing feature-a")
	}
	if pr.Number != 1 {
		t.Errorf("feature-a Number = %d, want 1", pr.Number)
	}
	if _, ok := got["feature-b"]; ok {
		t.Error("FindOpenPRs() should not return feature-b, it wasn't requested")
	}
}

func TestFindOpenPRs_NoMatches(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testowner/testrepo/pulls", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]*github.PullRequest{})
	})
	client, server := newMockClient(t, mux)
	defer server.Close()

	got, err := client.FindOpenPRs(context.Background(), []string{"feature-a"})
	if err != nil {
		t.Fatalf("FindOpenPRs() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("FindOpenPRs() = %+v, want empty", got)
	}
}
