package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	gh "github.com/google/go-github/v57/github"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	serverURL, _ := url.Parse(server.URL + "/")
	testClient := gh.NewClient(&http.Client{})
	testClient.BaseURL = serverURL

	return &client{ghClient: testClient}
}

func TestGetLatestRelease(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/owner/repo/releases/latest" {
			t.Errorf("Expected request to '/repos/owner/repo/releases/latest', got: %s", r.URL.Path)
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}

		release := &gh.RepositoryRelease{
			TagName: gh.String("v1.0.0"),
			Name:    gh.String("Release 1.0.0"),
			HTMLURL: gh.String("https://github.com/owner/repo/releases/tag/v1.0.0"),
			PublishedAt: &gh.Timestamp{
				Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			},
		}

		json.NewEncoder(w).Encode(release)
	})

	release, err := c.GetLatestRelease(context.Background(), "owner", "repo")
	if err != nil {
		t.Fatalf("GetLatestRelease returned error: %v", err)
	}

	if release.TagName != "v1.0.0" {
		t.Errorf("Expected tag name 'v1.0.0', got %s", release.TagName)
	}
	if !release.PublishedAt.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected published date %v", release.PublishedAt)
	}
}

func TestGetLatestReleaseMissingTag(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"nameless"}`))
	})

	_, err := c.GetLatestRelease(context.Background(), "owner", "repo")
	if !errors.Is(err, ErrNoTagName) {
		t.Fatalf("Expected ErrNoTagName, got %v", err)
	}
}

func TestGetLatestReleaseNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})

	if _, err := c.GetLatestRelease(context.Background(), "owner", "repo"); err == nil {
		t.Fatal("Expected error for missing release")
	}
}

func TestSearchRepositories(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/repositories" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "user:owner sort:stars-desc" {
			t.Errorf("Unexpected query %q", got)
		}
		w.Write([]byte(`{"total_count":1,"items":[{"full_name":"owner/repo","name":"repo","owner":{"login":"owner"},"description":"desc","stargazers_count":42}]}`))
	})

	result, err := c.SearchRepositoriesByUser(context.Background(), "owner")
	if err != nil {
		t.Fatalf("SearchRepositoriesByUser returned error: %v", err)
	}

	if result.TotalCount != 1 || len(result.Items) != 1 {
		t.Fatalf("Expected 1 result, got total=%d items=%d", result.TotalCount, len(result.Items))
	}
	item := result.Items[0]
	if item.FullName != "owner/repo" || item.Owner != "owner" || item.Stars != 42 {
		t.Errorf("Unexpected item %+v", item)
	}
}

func TestSplitRepository(t *testing.T) {
	tests := []struct {
		input   string
		owner   string
		repo    string
		wantErr bool
	}{
		{"owner/repo", "owner", "repo", false},
		{"owner", "", "", true},
		{"owner/", "", "", true},
		{"a/b/c", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			owner, repo, err := SplitRepository(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SplitRepository(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if owner != tt.owner || repo != tt.repo {
				t.Errorf("SplitRepository(%q) = %q, %q", tt.input, owner, repo)
			}
		})
	}
}
