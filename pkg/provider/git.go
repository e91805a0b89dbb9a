package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
	"golang.org/x/mod/semver"
)

// GitProvider treats the newest tag of a git remote as the latest version.
// Tags are listed without cloning.
type GitProvider struct {
	listTags func(ctx context.Context, url string, auth transport.AuthMethod) ([]string, error)
}

// NewGitProvider creates a provider that talks to remotes with go-git
func NewGitProvider() *GitProvider {
	return &GitProvider{listTags: listRemoteTags}
}

// LatestVersion returns the newest tag of the remote
func (p *GitProvider) LatestVersion(ctx context.Context, cfg Config, credential string) (string, error) {
	var auth transport.AuthMethod
	if credential != "" {
		auth = &http.BasicAuth{Username: "relwatch", Password: credential}
	}

	tags, err := p.listTags(ctx, cfg.URL, auth)
	if err != nil {
		return "", err
	}

	tag, ok := latestTag(tags)
	if !ok {
		return "", fmt.Errorf("no tags found for %s", cfg.URL)
	}
	return tag, nil
}

func listRemoteTags(ctx context.Context, url string, auth transport.AuthMethod) ([]string, error) {
	remote := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: "origin",
		URLs: []string{url},
	})

	refs, err := remote.ListContext(ctx, &git.ListOptions{Auth: auth})
	if err != nil {
		return nil, fmt.Errorf("failed to list remote %s: %w", url, err)
	}

	var tags []string
	for _, ref := range refs {
		if !ref.Name().IsTag() {
			continue
		}
		name := ref.Name().Short()
		if strings.HasSuffix(name, "^{}") {
			continue
		}
		tags = append(tags, name)
	}
	return tags, nil
}

// latestTag picks the highest semver release tag. Pre-releases only win when
// there is no release, and when no tag is semver the lexically last one is used.
func latestTag(tags []string) (string, bool) {
	if len(tags) == 0 {
		return "", false
	}

	var best, bestPre string
	for _, tag := range tags {
		v := canonical(tag)
		if !semver.IsValid(v) {
			continue
		}
		if semver.Prerelease(v) != "" {
			if bestPre == "" || semver.Compare(v, canonical(bestPre)) > 0 {
				bestPre = tag
			}
			continue
		}
		if best == "" || semver.Compare(v, canonical(best)) > 0 {
			best = tag
		}
	}
	if best != "" {
		return best, true
	}
	if bestPre != "" {
		return bestPre, true
	}

	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)
	return sorted[len(sorted)-1], true
}

func canonical(tag string) string {
	if strings.HasPrefix(tag, "v") {
		return tag
	}
	return "v" + tag
}
