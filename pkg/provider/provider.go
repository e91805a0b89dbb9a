package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Kind identifies where version information for a program comes from
type Kind string

const (
	KindGitHub Kind = "github"
	KindGit    Kind = "git"
)

// Config is the provider-specific part of a tracked program. Only the fields
// belonging to Kind are meaningful.
type Config struct {
	Kind       Kind
	Repository string // KindGitHub: owner/repo
	URL        string // KindGit: remote URL
}

// GitHub returns the config for a program released on GitHub
func GitHub(repository string) Config {
	return Config{Kind: KindGitHub, Repository: repository}
}

// Git returns the config for a program whose versions are the tags of a git remote
func Git(url string) Config {
	return Config{Kind: KindGit, URL: url}
}

// Source returns the kind-specific location (repository or url)
func (c Config) Source() string {
	switch c.Kind {
	case KindGitHub:
		return c.Repository
	case KindGit:
		return c.URL
	default:
		return ""
	}
}

func (c Config) String() string {
	return fmt.Sprintf("%s:%s", c.Kind, c.Source())
}

// Validate checks that the fields required by the kind are set
func (c Config) Validate() error {
	switch c.Kind {
	case KindGitHub:
		if c.Repository == "" {
			return fmt.Errorf("github provider requires a repository")
		}
	case KindGit:
		if c.URL == "" {
			return fmt.Errorf("git provider requires a url")
		}
	default:
		return fmt.Errorf("unknown provider type: %q", c.Kind)
	}
	return nil
}

// Provider looks up the latest published version of a program
type Provider interface {
	// LatestVersion returns the latest version string. credential is optional
	// and its meaning depends on the provider.
	LatestVersion(ctx context.Context, cfg Config, credential string) (string, error)
}

// Registry dispatches lookups to the provider registered for a config's kind
type Registry struct {
	mu          sync.RWMutex
	providers   map[Kind]Provider
	credentials map[Kind]string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		providers:   make(map[Kind]Provider),
		credentials: make(map[Kind]string),
	}
}

// NewDefaultRegistry registers the built-in providers. githubToken may be empty.
func NewDefaultRegistry(githubToken string) *Registry {
	r := NewRegistry()
	r.Register(KindGitHub, NewGitHubProvider(nil))
	r.Register(KindGit, NewGitProvider())
	r.SetCredential(KindGitHub, githubToken)
	return r
}

// Register adds or replaces the provider for kind
func (r *Registry) Register(kind Kind, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[kind] = p
}

// SetCredential sets the credential passed to the provider for kind
func (r *Registry) SetCredential(kind Kind, credential string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.credentials[kind] = credential
}

// Kinds returns the registered kinds in sorted order
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]Kind, 0, len(r.providers))
	for k := range r.providers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// LatestVersion validates cfg and asks the matching provider for the latest version
func (r *Registry) LatestVersion(ctx context.Context, cfg Config) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	r.mu.RLock()
	p, ok := r.providers[cfg.Kind]
	credential := r.credentials[cfg.Kind]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("no provider registered for %q (registered: %v)", cfg.Kind, r.Kinds())
	}

	version, err := p.LatestVersion(ctx, cfg, credential)
	if err != nil {
		return "", fmt.Errorf("failed to check %s: %w", cfg, err)
	}
	return version, nil
}
