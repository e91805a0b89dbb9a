package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/dikkadev/relwatch/pkg/checker"
	"github.com/dikkadev/relwatch/pkg/config"
	"github.com/dikkadev/relwatch/pkg/github"
	"github.com/dikkadev/relwatch/pkg/notify"
	"github.com/dikkadev/relwatch/pkg/programs"
	"github.com/dikkadev/relwatch/pkg/provider"
	"github.com/dikkadev/relwatch/pkg/storage"
)

// flagKeys maps configuration keys to the flags that may override them
var flagKeys = []struct {
	key  string
	flag string
}{
	{config.KeyDBPath, "db-path"},
	{config.KeyGitHubToken, "github-token"},
	{config.KeyNtfyTopic, "ntfy-topic"},
	{config.KeyNtfyServer, "ntfy-server"},
	{config.KeyScheduleInterval, "check-interval"},
	{config.KeyScheduleCron, "cron"},
	{config.KeySchedulePassTimeout, "pass-timeout"},
}

// app holds what the commands share. Dependencies left nil are built from
// the configuration on first use.
type app struct {
	configPath string
	verbose    bool

	cfg      *config.Config
	store    storage.Storage
	registry *provider.Registry
	github   github.Client
	channel  notify.Channel
	stderr   io.Writer
	isTerm   func() bool
}

// setup loads the configuration with the flags of the command being run
func (a *app) setup(cmd *cobra.Command) error {
	if a.stderr == nil {
		a.stderr = os.Stderr
	}

	loader := config.NewLoader(a.configPath)
	for _, fk := range flagKeys {
		if f := cmd.Flags().Lookup(fk.flag); f != nil {
			if err := loader.BindFlag(fk.key, f); err != nil {
				return err
			}
		}
	}

	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg
	return nil
}

func (a *app) logger(component string) *log.Logger {
	return log.New(a.stderr, "["+component+"] ", log.LstdFlags)
}

func (a *app) debugLogger(component string) *log.Logger {
	if !a.verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(a.stderr, "["+component+"] debug: ", log.LstdFlags)
}

func (a *app) storage(ctx context.Context) (storage.Storage, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := storage.Open(ctx, "file:"+a.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", a.cfg.DBPath, err)
	}
	a.store = store
	return store, nil
}

func (a *app) providers() *provider.Registry {
	if a.registry == nil {
		a.registry = provider.NewDefaultRegistry(a.cfg.GitHubToken)
	}
	return a.registry
}

func (a *app) githubClient() github.Client {
	if a.github == nil {
		a.github = github.NewClient(a.cfg.GitHubToken)
	}
	return a.github
}

func (a *app) checker(ctx context.Context) (*checker.Checker, error) {
	store, err := a.storage(ctx)
	if err != nil {
		return nil, err
	}
	return checker.New(store, a.providers(),
		checker.WithLogger(a.logger("checker")),
		checker.WithDebug(a.debugLogger("checker")),
	), nil
}

// dispatcher needs a notification channel; without a configured ntfy topic
// it is an error
func (a *app) dispatcher(ctx context.Context) (*notify.Dispatcher, error) {
	store, err := a.storage(ctx)
	if err != nil {
		return nil, err
	}

	if a.cfg.Ntfy.Topic == "" {
		return nil, fmt.Errorf("no ntfy topic configured (set %s or use --ntfy-topic)", config.KeyNtfyTopic)
	}
	channel := a.channel
	if channel == nil {
		channel = notify.NewNtfy(a.cfg.Ntfy.Server, a.cfg.Ntfy.Topic, a.cfg.Ntfy.Token)
	}

	return notify.NewDispatcher(store, channel,
		notify.WithLogger(a.logger("notify")),
		notify.WithDebug(a.debugLogger("notify")),
	), nil
}

func (a *app) manager(ctx context.Context, out io.Writer) (*programs.Manager, error) {
	store, err := a.storage(ctx)
	if err != nil {
		return nil, err
	}
	m := programs.NewManager(store, a.providers())
	m.SetOutput(out)
	return m, nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}
