package selector

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dikkadev/relwatch/pkg/github"
)

var errRateLimited = errors.New("API rate limit exceeded")

// mockGitHubClient implements github.Client for testing
type mockGitHubClient struct {
	searchResults map[string]*github.SearchResult
	queries       []string
	err           error
}

func (m *mockGitHubClient) GetLatestRelease(ctx context.Context, owner, repo string) (*github.Release, error) {
	return nil, nil
}

func (m *mockGitHubClient) SearchRepositories(ctx context.Context, query string) (*github.SearchResult, error) {
	m.queries = append(m.queries, query)
	if m.err != nil {
		return nil, m.err
	}
	if result, ok := m.searchResults[query]; ok {
		return result, nil
	}
	return &github.SearchResult{}, nil
}

func (m *mockGitHubClient) SearchRepositoriesByName(ctx context.Context, name string) (*github.SearchResult, error) {
	return m.SearchRepositories(ctx, "in:name "+name+" sort:stars-desc")
}

func (m *mockGitHubClient) SearchRepositoriesByUser(ctx context.Context, user string) (*github.SearchResult, error) {
	return m.SearchRepositories(ctx, "user:"+user+" sort:stars-desc")
}

func result(names ...string) *github.SearchResult {
	r := &github.SearchResult{TotalCount: len(names)}
	for i, name := range names {
		owner, repo, _ := strings.Cut(name, "/")
		r.Items = append(r.Items, github.Repository{FullName: name, Owner: owner, Name: repo, Stars: 1000 - i})
	}
	return r
}

func TestRepoItemMethods(t *testing.T) {
	item := RepoItem{repo: github.Repository{
		FullName:    "LMH01/simple_update_checker",
		Name:        "simple_update_checker",
		Owner:       "LMH01",
		Description: "Update checker",
		Stars:       100,
		UpdatedAt:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}}

	if got := item.Title(); got != "LMH01/simple_update_checker" {
		t.Errorf("Title() = %v", got)
	}
	if got := item.FilterValue(); got != "LMH01/simple_update_checker" {
		t.Errorf("FilterValue() = %v", got)
	}
	if got, want := item.Description(), "⭐ 100 | updated 2025-03-01 | Update checker"; got != want {
		t.Errorf("Description() = %q, want %q", got, want)
	}

	long := RepoItem{repo: github.Repository{Description: strings.Repeat("x", 200), Stars: 5}}
	desc := long.Description()
	if len(desc) > 100 || !strings.HasSuffix(desc, "...") {
		t.Errorf("Long description not truncated: %q", desc)
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name        string
		input       string
		interactive bool
		mockData    map[string]*github.SearchResult
		mockError   error
		want        string
		wantErr     error
		wantAnyErr  bool
	}{
		{
			name:     "Exact match",
			input:    "alacritty/alacritty",
			mockData: map[string]*github.SearchResult{"repo:alacritty/alacritty": result("alacritty/alacritty")},
			want:     "alacritty/alacritty",
		},
		{
			name:     "Single hit by name",
			input:    "zellij",
			mockData: map[string]*github.SearchResult{"in:name zellij sort:stars-desc": result("zellij-org/zellij")},
			want:     "zellij-org/zellij",
		},
		{
			name:     "Falls back to user search",
			input:    "LMH01",
			mockData: map[string]*github.SearchResult{"user:LMH01 sort:stars-desc": result("LMH01/simple_update_checker")},
			want:     "LMH01/simple_update_checker",
		},
		{
			name:  "Case insensitive full name among many",
			input: "Helix-Editor/helix",
			mockData: map[string]*github.SearchResult{
				"user:Helix-Editor helix in:name": result("helix-editor/helix-vscode", "helix-editor/helix"),
			},
			want: "helix-editor/helix",
		},
		{
			name:     "Ambiguous without a terminal",
			input:    "cli",
			mockData: map[string]*github.SearchResult{"in:name cli sort:stars-desc": result("cli/cli", "urfave/cli", "spf13/cobra-cli")},
			wantErr:  ErrAmbiguous,
		},
		{
			name:       "No results",
			input:      "nonexistent/repo",
			wantAnyErr: true,
		},
		{
			name:      "API error",
			input:     "owner/repo",
			mockError: errRateLimited,
			wantErr:   errRateLimited,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := &mockGitHubClient{searchResults: tc.mockData, err: tc.mockError}

			repo, err := Resolve(ctx, client, tc.input, tc.interactive)
			if tc.wantErr != nil || tc.wantAnyErr {
				if err == nil {
					t.Fatalf("Resolve() returned %v, want error", repo)
				}
				if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
					t.Errorf("Resolve() error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() returned error: %v", err)
			}
			if repo.FullName != tc.want {
				t.Errorf("Resolve() = %s, want %s", repo.FullName, tc.want)
			}
		})
	}
}

func TestResolveAmbiguousListsCandidates(t *testing.T) {
	client := &mockGitHubClient{searchResults: map[string]*github.SearchResult{
		"in:name cli sort:stars-desc": result("a/cli", "b/cli", "c/cli", "d/cli", "e/cli", "f/cli"),
	}}

	_, err := Resolve(context.Background(), client, "cli", false)
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "a/cli, b/cli") || strings.Contains(err.Error(), "f/cli") {
		t.Errorf("Unexpected candidate list: %v", err)
	}
}

func TestModelSelect(t *testing.T) {
	m := newModel(result("a/cli", "b/cli"))

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	next, cmd := next.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Error("Expected quit command after selection")
	}

	final := next.(model)
	if final.selected == nil || final.selected.FullName != "b/cli" {
		t.Errorf("Expected b/cli to be selected, got %+v", final.selected)
	}
}

func TestModelQuit(t *testing.T) {
	m := newModel(result("a/cli", "b/cli"))

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Error("Expected quit command")
	}
	final := next.(model)
	if final.selected != nil || !final.quitting {
		t.Errorf("Unexpected model state %+v", final)
	}
	if final.View() != "" {
		t.Error("Expected empty view after quitting")
	}
}
