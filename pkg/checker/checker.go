// Package checker decides which tracked programs have a newer release than
// the one recorded and keeps the stored version and notification state in step.
package checker

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dikkadev/relwatch/pkg/provider"
	"github.com/dikkadev/relwatch/pkg/storage"
)

// Mode is the invocation mode of a check pass
type Mode = storage.CheckKind

const (
	Manual = storage.CheckManual
	Timed  = storage.CheckTimed
)

// Options controls how a manual check treats the updates it finds
type Options struct {
	// SetCurrentVersion promotes the current version as soon as a new
	// version is found. Manual checks only.
	SetCurrentVersion bool
	// AllowNotification keeps updates found by a manual check eligible for
	// the next scheduled notification.
	AllowNotification bool
}

// VersionSource returns the latest published version for a provider config
type VersionSource interface {
	LatestVersion(ctx context.Context, cfg provider.Config) (string, error)
}

// Checker runs update check passes against a store
type Checker struct {
	store  storage.Storage
	source VersionSource
	logger *log.Logger
	debug  *log.Logger
	now    func() time.Time
}

// Option configures a Checker
type Option func(*Checker)

// WithLogger sets the logger used for progress output
func WithLogger(l *log.Logger) Option {
	return func(c *Checker) { c.logger = l }
}

// WithDebug enables per-program debug output on the given logger
func WithDebug(l *log.Logger) Option {
	return func(c *Checker) { c.debug = l }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Checker) { c.now = now }
}

// New creates a Checker
func New(store storage.Storage, source VersionSource, opts ...Option) *Checker {
	c := &Checker{
		store:  store,
		source: source,
		logger: log.New(os.Stderr, "[checker] ", log.LstdFlags),
		debug:  log.New(io.Discard, "", 0),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckForUpdates checks every tracked program once, in name order, and
// returns the programs whose latest version differs from the current one.
//
// A provider failure aborts the pass: versions already persisted for earlier
// programs stay, but no history entry is written.
func (c *Checker) CheckForUpdates(ctx context.Context, mode Mode, opts Options) ([]*storage.Program, error) {
	if mode == Timed && opts.SetCurrentVersion {
		return nil, ErrSetCurrentTimed
	}

	programs, err := c.store.ListPrograms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list programs: %w", err)
	}
	sort.Slice(programs, func(i, j int) bool { return programs[i].Name < programs[j].Name })

	c.logger.Printf("Checking %d programs for updates...", len(programs))

	var updated []*storage.Program
	for _, program := range programs {
		fetched, err := c.source.LatestVersion(ctx, program.Provider)
		if err != nil {
			return nil, &ProviderError{Program: program.Name, Err: err}
		}

		visible, err := c.apply(ctx, program, fetched, mode, opts)
		if err != nil {
			return nil, err
		}
		if visible {
			updated = append(updated, program)
		}
	}

	names := make([]string, 0, len(updated))
	for _, p := range updated {
		names = append(names, p.Name)
	}
	entry := &storage.UpdateCheckHistoryEntry{
		Date:             c.now(),
		Kind:             mode,
		UpdatesAvailable: len(updated),
		Programs:         strings.Join(names, ","),
	}
	if err := c.store.InsertUpdateCheck(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record update check: %w", err)
	}

	c.logger.Printf("Found %d updates", len(updated))
	return updated, nil
}

// apply compares the fetched version against the stored state of program,
// persists the resulting changes and reports whether an update is visible.
// program is updated in place to mirror what was persisted.
//
//	fetched != latest              new version: reset notification, store latest
//	fetched == latest != current   known update, not yet applied
//	fetched == latest == current   up to date
//
// Visible updates found by a manual check without AllowNotification are
// marked as notified so the scheduler does not alert about them again.
func (c *Checker) apply(ctx context.Context, program *storage.Program, fetched string, mode Mode, opts Options) (bool, error) {
	newVersion := fetched != program.LatestVersion
	if !newVersion && fetched == program.CurrentVersion {
		c.debug.Printf("%s is up to date (%s)", program.Name, fetched)
		return false, nil
	}

	if newVersion {
		c.debug.Printf("%s: new version %s (recorded %s)", program.Name, fetched, program.LatestVersion)
		now := c.now()

		if err := c.store.SetNotificationSent(ctx, program.Name, false); err != nil {
			return false, fmt.Errorf("failed to reset notification for %s: %w", program.Name, err)
		}
		if err := c.store.SetNotificationSentOn(ctx, program.Name, nil); err != nil {
			return false, fmt.Errorf("failed to reset notification for %s: %w", program.Name, err)
		}
		program.NotificationSent = false
		program.NotificationSentOn = nil

		if err := c.store.UpdateLatestVersion(ctx, program.Name, fetched, now); err != nil {
			return false, fmt.Errorf("failed to store latest version of %s: %w", program.Name, err)
		}
		program.LatestVersion = fetched
		program.LatestVersionLastUpdated = now

		if opts.SetCurrentVersion {
			if err := c.store.UpdateCurrentVersion(ctx, program.Name, fetched, now); err != nil {
				return false, fmt.Errorf("failed to store current version of %s: %w", program.Name, err)
			}
			program.CurrentVersion = fetched
			program.CurrentVersionLastUpdated = now
		}
	} else {
		c.debug.Printf("%s: update to %s not applied yet (current %s)", program.Name, fetched, program.CurrentVersion)
	}

	if mode == Manual && !opts.AllowNotification {
		if err := c.store.SetNotificationSent(ctx, program.Name, true); err != nil {
			return false, fmt.Errorf("failed to mark %s as notified: %w", program.Name, err)
		}
		program.NotificationSent = true
	}

	return true, nil
}
