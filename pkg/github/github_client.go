package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gh "github.com/google/go-github/v57/github"
)

// maxSearchPages bounds repository search pagination (100 results per page)
const maxSearchPages = 3

// ErrNoTagName is returned when a release response carries no tag name
var ErrNoTagName = errors.New("response was success but did not contain tag_name")

// client implements the Client interface
type client struct {
	ghClient *gh.Client
}

// NewClient creates a new GitHub client. The token is optional; without one the
// unauthenticated rate limit applies.
func NewClient(token string) Client {
	ghClient := gh.NewClient(&http.Client{
		Timeout: 30 * time.Second,
	})
	if token != "" {
		ghClient = ghClient.WithAuthToken(token)
	}
	return &client{ghClient: ghClient}
}

// SplitRepository splits "owner/repo" into its parts
func SplitRepository(repository string) (string, string, error) {
	parts := strings.Split(repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository: %s (expected format: owner/repo)", repository)
	}
	return parts[0], parts[1], nil
}

// GetLatestRelease gets the latest release for a repository
func (c *client) GetLatestRelease(ctx context.Context, owner, repo string) (*Release, error) {
	rel, resp, err := c.ghClient.Repositories.GetLatestRelease(ctx, owner, repo)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("no release found for %s/%s", owner, repo)
		}
		return nil, fmt.Errorf("failed to get latest release: %w", err)
	}

	if rel.GetTagName() == "" {
		return nil, ErrNoTagName
	}

	return &Release{
		TagName:     rel.GetTagName(),
		Name:        rel.GetName(),
		HTMLURL:     rel.GetHTMLURL(),
		PublishedAt: rel.GetPublishedAt().Time,
	}, nil
}

// SearchRepositories searches for repositories using the GitHub search API
func (c *client) SearchRepositories(ctx context.Context, query string) (*SearchResult, error) {
	var allResults SearchResult
	opts := &gh.SearchOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	for page := 0; page < maxSearchPages; page++ {
		result, resp, err := c.ghClient.Search.Repositories(ctx, query, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to search repositories: %w", err)
		}

		allResults.TotalCount = result.GetTotal()
		for _, r := range result.Repositories {
			allResults.Items = append(allResults.Items, Repository{
				FullName:    r.GetFullName(),
				Name:        r.GetName(),
				Owner:       r.GetOwner().GetLogin(),
				Description: r.GetDescription(),
				Stars:       r.GetStargazersCount(),
				UpdatedAt:   r.GetUpdatedAt().Time,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return &allResults, nil
}

// SearchRepositoriesByName searches for repositories with a specific name
func (c *client) SearchRepositoriesByName(ctx context.Context, name string) (*SearchResult, error) {
	query := fmt.Sprintf("in:name %s sort:stars-desc", name)
	return c.SearchRepositories(ctx, query)
}

// SearchRepositoriesByUser searches for repositories owned by a specific user
func (c *client) SearchRepositoriesByUser(ctx context.Context, user string) (*SearchResult, error) {
	query := fmt.Sprintf("user:%s sort:stars-desc", user)
	return c.SearchRepositories(ctx, query)
}
