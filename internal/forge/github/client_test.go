package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v58/github"

	"github.com/lcgerke/lattice/internal/forge"
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

func TestParseGitHubURL(t *testing.T) {
	tests := []struct {
		name      string
		remote    string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{name: "https", remote: "https://github.com/lcgerke/lattice.git", wantOwner: "lcgerke", wantRepo: "lattice"},
		{name: "https no suffix", remote: "https://github.com/lcgerke/lattice", wantOwner: "lcgerke", wantRepo: "lattice"},
		{name: "ssh", remote: "git@github.com:lcgerke/lattice.git", wantOwner: "lcgerke", wantRepo: "lattice"},
		{name: "non-github host", remote: "https://gitlab.com/lcgerke/lattice.git", wantErr: true},
		{name: "malformed ssh", remote: "git@github.com:lattice.git", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, err := parseGitHubURL(tt.remote)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseGitHubURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if owner != tt.wantOwner || repo != tt.wantRepo {
				t.Errorf("parseGitHubURL() = (%q, %q), want (%q, %q)", owner, repo, tt.wantOwner, tt.wantRepo)
			}
		})
	}
}

func TestGetPR_Mock(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testowner/testrepo/pulls/42", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(&github.PullRequest{
			Number: github.Int(42),
			Title:  github.String("add widget"),
			State:  github.String("open"),
			Head:   &github.PullRequestBranch{Ref: github.String("feature")},
			Base:   &github.PullRequestBranch{Ref: github.String("main")},
		})
	})
	client, server := newMockClient(t, mux)
	defer server.Close()

	pr, err := client.GetPR(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetPR() error = %v", err)
	}
	if pr.Number != 42 || pr.Head != "feature" || pr.Base != "main" || pr.State != forge.PRStateOpen {
		t.Errorf("GetPR() = %+v, unexpected fields", pr)
	}
}

func TestFindPRByHead_Mock(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testowner/testrepo/pulls", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("head"); got != "testowner:feature" {
			t.Errorf("head query = %q, want testowner:feature", got)
		}
		json.NewEncoder(w).Encode([]*github.PullRequest{
			{
				Number: github.Int(7),
				State:  github.String("open"),
				Head:   &github.PullRequestBranch{Ref: github.String("feature")},
				Base:   &github.PullRequestBranch{Ref: github.String("main")},
			},
		})
	})
	client, server := newMockClient(t, mux)
	defer server.Close()

	pr, found, err := client.FindPRByHead(context.Background(), "feature")
	if err != nil {
		t.Fatalf("FindPRByHead() error = %v", err)
	}
	if !found {
		t.Fatal("FindPRByHead() found = false, want true")
	}
	if pr.Number != 7 {
		t.Errorf("FindPRByHead() Number = %d, want 7", pr.Number)
	}
}

func TestFindPRByHead_NoneOpen(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testowner/testrepo/pulls", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]*github.PullRequest{})
	})
	client, server := newMockClient(t, mux)
	defer server.Close()

	_, found, err := client.FindPRByHead(context.Background(), "feature")
	if err != nil {
		t.Fatalf("FindPRByHead() error = %v", err)
	}
	if found {
		t.Error("FindPRByHead() found = true, want false")
	}
}

func TestCreatePR_Mock(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testowner/testrepo/pulls", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var body github.NewPullRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.GetHead() != "feature" || body.GetBase() != "main" {
			t.Errorf("request body = %+v, unexpected head/base", body)
		}
		json.NewEncoder(w).Encode(&github.PullRequest{
			Number: github.Int(9),
			State:  github.String("open"),
			Head:   &github.PullRequestBranch{Ref: github.String("feature")},
			Base:   &github.PullRequestBranch{Ref: github.String("main")},
		})
	})
	client, server := newMockClient(t, mux)
	defer server.Close()

	pr, err := client.CreatePR(context.Background(), forge.CreatePRRequest{
		Head: "feature", Base: "main", Title: "add widget",
	})
	if err != nil {
		t.Fatalf("CreatePR() error = %v", err)
	}
	if pr.Number != 9 {
		t.Errorf("CreatePR() Number = %d, want 9", pr.Number)
	}
}

func TestUpdatePR_Mock(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testowner/testrepo/pulls/9", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s, want PATCH", r.Method)
		}
		var body github.PullRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.GetTitle() != "retitled" {
			t.Errorf("request title = %q, want retitled", body.GetTitle())
		}
		json.NewEncoder(w).Encode(&github.PullRequest{
			Number: github.Int(9),
			Title:  github.String("retitled"),
			State:  github.String("open"),
			Head:   &github.PullRequestBranch{Ref: github.String("feature")},
			Base:   &github.PullRequestBranch{Ref: github.String("main")},
		})
	})
	client, server := newMockClient(t, mux)
	defer server.Close()

	title := "retitled"
	pr, err := client.UpdatePR(context.Background(), forge.UpdatePRRequest{Number: 9, Title: &title})
	if err != nil {
		t.Fatalf("UpdatePR() error = %v", err)
	}
	if pr.Title != "retitled" {
		t.Errorf("UpdatePR() Title = %q, want retitled", pr.Title)
	}
}

func TestFromGitHubPR_State(t *testing.T) {
	tests := []struct {
		name   string
		pr     *github.PullRequest
		wantSt forge.PRState
	}{
		{name: "open", pr: &github.PullRequest{State: github.String("open")}, wantSt: forge.PRStateOpen},
		{name: "closed", pr: &github.PullRequest{State: github.String("closed")}, wantSt: forge.PRStateClosed},
		{name: "merged", pr: &github.PullRequest{State: github.String("closed"), Merged: github.Bool(true)}, wantSt: forge.PRStateMerged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fromGitHubPR(tt.pr).State; got != tt.wantSt {
				t.Errorf("fromGitHubPR().State = %v, want %v", got, tt.wantSt)
			}
		})
	}
}
