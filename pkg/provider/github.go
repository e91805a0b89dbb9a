package provider

import (
	"context"
	"sync"

	"github.com/dikkadev/relwatch/pkg/github"
)

// GitHubProvider resolves the tag of the latest GitHub release
type GitHubProvider struct {
	newClient func(token string) github.Client

	mu      sync.Mutex
	clients map[string]github.Client
}

// NewGitHubProvider creates a provider. newClient builds a client for a token and
// defaults to github.NewClient.
func NewGitHubProvider(newClient func(token string) github.Client) *GitHubProvider {
	if newClient == nil {
		newClient = github.NewClient
	}
	return &GitHubProvider{
		newClient: newClient,
		clients:   make(map[string]github.Client),
	}
}

// LatestVersion returns the tag name of the repository's latest release
func (p *GitHubProvider) LatestVersion(ctx context.Context, cfg Config, token string) (string, error) {
	owner, repo, err := github.SplitRepository(cfg.Repository)
	if err != nil {
		return "", err
	}

	release, err := p.client(token).GetLatestRelease(ctx, owner, repo)
	if err != nil {
		return "", err
	}
	return release.TagName, nil
}

func (p *GitHubProvider) client(token string) github.Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.clients[token]
	if !ok {
		c = p.newClient(token)
		p.clients[token] = c
	}
	return c
}
