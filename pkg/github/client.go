package github

import (
	"context"
	"time"
)

// Release represents a GitHub release
type Release struct {
	TagName     string    // Tag name (e.g., "v1.0.0")
	Name        string    // Release name
	HTMLURL     string    // Release page
	PublishedAt time.Time // When the release was published
}

// Repository is a search hit
type Repository struct {
	FullName    string
	Name        string
	Owner       string
	Description string
	Stars       int
	UpdatedAt   time.Time
}

// SearchResult holds the repositories returned by a search
type SearchResult struct {
	TotalCount int
	Items      []Repository
}

// Client defines the interface for GitHub API operations
type Client interface {
	// GetLatestRelease gets the latest release for a repository
	GetLatestRelease(ctx context.Context, owner, repo string) (*Release, error)

	// SearchRepositories searches for repositories using the GitHub search API
	SearchRepositories(ctx context.Context, query string) (*SearchResult, error)

	// SearchRepositoriesByName searches for repositories with a specific name
	SearchRepositoriesByName(ctx context.Context, name string) (*SearchResult, error)

	// SearchRepositoriesByUser searches for repositories owned by a specific user
	SearchRepositoriesByUser(ctx context.Context, user string) (*SearchResult, error)
}
