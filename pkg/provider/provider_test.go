package provider

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/dikkadev/relwatch/pkg/github"
)

type stubProvider struct {
	version        string
	err            error
	lastCredential string
	calls          int
}

func (s *stubProvider) LatestVersion(ctx context.Context, cfg Config, credential string) (string, error) {
	s.calls++
	s.lastCredential = credential
	return s.version, s.err
}

func TestRegistryDispatch(t *testing.T) {
	stub := &stubProvider{version: "v1.2.3"}
	r := NewRegistry()
	r.Register(KindGitHub, stub)
	r.SetCredential(KindGitHub, "secret")

	version, err := r.LatestVersion(context.Background(), GitHub("owner/repo"))
	if err != nil {
		t.Fatalf("LatestVersion returned error: %v", err)
	}
	if version != "v1.2.3" {
		t.Errorf("Expected v1.2.3, got %s", version)
	}
	if stub.lastCredential != "secret" {
		t.Errorf("Expected credential to be passed, got %q", stub.lastCredential)
	}
}

func TestRegistryErrors(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegistry()
	r.Register(KindGitHub, &stubProvider{err: boom})

	if _, err := r.LatestVersion(context.Background(), GitHub("owner/repo")); !errors.Is(err, boom) {
		t.Errorf("Expected provider error to be wrapped, got %v", err)
	}

	_, err := r.LatestVersion(context.Background(), Git("https://example.com/repo.git"))
	if err == nil || !strings.Contains(err.Error(), "registered: [github]") {
		t.Errorf("Expected unregistered kind error listing the registered kinds, got %v", err)
	}

	if _, err := r.LatestVersion(context.Background(), Config{Kind: "svn"}); err == nil {
		t.Error("Expected error for unknown kind")
	}
}

func TestRegistryKinds(t *testing.T) {
	r := NewDefaultRegistry("")
	kinds := r.Kinds()
	if len(kinds) != 2 || kinds[0] != KindGit || kinds[1] != KindGitHub {
		t.Errorf("Expected [git github], got %v", kinds)
	}

	if kinds := NewRegistry().Kinds(); len(kinds) != 0 {
		t.Errorf("Expected no kinds, got %v", kinds)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"github", GitHub("owner/repo"), false},
		{"github without repository", Config{Kind: KindGitHub}, true},
		{"git", Git("https://example.com/repo.git"), false},
		{"git without url", Config{Kind: KindGit}, true},
		{"unknown", Config{Kind: "ftp"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if got := GitHub("owner/repo").String(); got != "github:owner/repo" {
		t.Errorf("Unexpected String() %q", got)
	}
}

type fakeGitHubClient struct {
	tag   string
	owner string
	repo  string
}

func (f *fakeGitHubClient) GetLatestRelease(ctx context.Context, owner, repo string) (*github.Release, error) {
	f.owner, f.repo = owner, repo
	return &github.Release{TagName: f.tag}, nil
}

func (f *fakeGitHubClient) SearchRepositories(ctx context.Context, query string) (*github.SearchResult, error) {
	return &github.SearchResult{}, nil
}

func (f *fakeGitHubClient) SearchRepositoriesByName(ctx context.Context, name string) (*github.SearchResult, error) {
	return &github.SearchResult{}, nil
}

func (f *fakeGitHubClient) SearchRepositoriesByUser(ctx context.Context, user string) (*github.SearchResult, error) {
	return &github.SearchResult{}, nil
}

func TestGitHubProvider(t *testing.T) {
	fake := &fakeGitHubClient{tag: "v2.0.0"}
	var tokens []string
	p := NewGitHubProvider(func(token string) github.Client {
		tokens = append(tokens, token)
		return fake
	})

	for i := 0; i < 2; i++ {
		version, err := p.LatestVersion(context.Background(), GitHub("LMH01/simple_update_checker"), "tok")
		if err != nil {
			t.Fatalf("LatestVersion returned error: %v", err)
		}
		if version != "v2.0.0" {
			t.Errorf("Expected v2.0.0, got %s", version)
		}
	}

	if fake.owner != "LMH01" || fake.repo != "simple_update_checker" {
		t.Errorf("Unexpected repository %s/%s", fake.owner, fake.repo)
	}
	if len(tokens) != 1 || tokens[0] != "tok" {
		t.Errorf("Expected one client for token, got %v", tokens)
	}

	if _, err := p.LatestVersion(context.Background(), GitHub("invalid"), ""); err == nil {
		t.Error("Expected error for invalid repository")
	}
}

func TestGitProvider(t *testing.T) {
	var gotAuth transport.AuthMethod
	p := &GitProvider{listTags: func(ctx context.Context, url string, auth transport.AuthMethod) ([]string, error) {
		gotAuth = auth
		return []string{"v1.0.0", "v1.10.0", "v1.9.0"}, nil
	}}

	version, err := p.LatestVersion(context.Background(), Git("https://example.com/repo.git"), "pat")
	if err != nil {
		t.Fatalf("LatestVersion returned error: %v", err)
	}
	if version != "v1.10.0" {
		t.Errorf("Expected v1.10.0, got %s", version)
	}
	basic, ok := gotAuth.(*http.BasicAuth)
	if !ok || basic.Password != "pat" {
		t.Errorf("Expected basic auth with credential, got %#v", gotAuth)
	}

	empty := &GitProvider{listTags: func(ctx context.Context, url string, auth transport.AuthMethod) ([]string, error) {
		return nil, nil
	}}
	if _, err := empty.LatestVersion(context.Background(), Git("https://example.com/repo.git"), ""); err == nil || !strings.Contains(err.Error(), "no tags") {
		t.Errorf("Expected no tags error, got %v", err)
	}
}

func TestLatestTag(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want string
		ok   bool
	}{
		{"empty", nil, "", false},
		{"semver ordering", []string{"v0.9.0", "v0.10.0", "v0.2.0"}, "v0.10.0", true},
		{"without v prefix", []string{"1.2.0", "1.11.0"}, "1.11.0", true},
		{"release beats prerelease", []string{"v2.0.0-rc.1", "v1.5.0"}, "v1.5.0", true},
		{"only prereleases", []string{"v2.0.0-rc.1", "v2.0.0-rc.2"}, "v2.0.0-rc.2", true},
		{"non semver falls back to lexical", []string{"release-a", "release-c", "release-b"}, "release-c", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := latestTag(tt.tags)
			if got != tt.want || ok != tt.ok {
				t.Errorf("latestTag(%v) = %q, %v; want %q, %v", tt.tags, got, ok, tt.want, tt.ok)
			}
		})
	}
}
