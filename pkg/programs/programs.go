package programs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dikkadev/relwatch/pkg/checker"
	"github.com/dikkadev/relwatch/pkg/provider"
	"github.com/dikkadev/relwatch/pkg/storage"
)

var (
	// ErrExists is returned when adding a program whose name is taken
	ErrExists = errors.New("program already exists")
	// ErrUpToDate is returned when applying an update to a program without one
	ErrUpToDate = errors.New("program is already up to date")
)

// Options represents options shared by the program actions
type Options struct {
	DryRun bool
}

// Manager performs the user actions on tracked programs
type Manager struct {
	store  storage.Storage
	source checker.VersionSource
	out    io.Writer
	now    func() time.Time
}

// NewManager creates a Manager that reports to stdout
func NewManager(store storage.Storage, source checker.VersionSource) *Manager {
	return &Manager{
		store:  store,
		source: source,
		out:    os.Stdout,
		now:    time.Now,
	}
}

// SetOutput redirects progress messages
func (m *Manager) SetOutput(w io.Writer) {
	m.out = w
}

// Add registers a program. Its current and latest versions are both set to the
// version published right now, and it starts out as notified.
func (m *Manager) Add(ctx context.Context, name string, cfg provider.Config, opts Options) (*storage.Program, error) {
	if name == "" {
		return nil, fmt.Errorf("program name required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	existing, err := m.store.GetProgram(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing program: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, name)
	}

	version, err := m.source.LatestVersion(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest version: %w", err)
	}

	now := m.now()
	program := &storage.Program{
		Name:                      name,
		CurrentVersion:            version,
		CurrentVersionLastUpdated: now,
		LatestVersion:             version,
		LatestVersionLastUpdated:  now,
		Provider:                  cfg,
		NotificationSent:          true,
	}

	if opts.DryRun {
		fmt.Fprintf(m.out, "Would add %s (%s) at version %s\n", name, cfg, version)
		return program, nil
	}

	if err := m.store.AddProgram(ctx, program); err != nil {
		return nil, fmt.Errorf("failed to add program to database: %w", err)
	}

	fmt.Fprintf(m.out, "Program %s successfully added to database!\n", name)
	return program, nil
}

// Remove stops tracking a program
func (m *Manager) Remove(ctx context.Context, name string, opts Options) error {
	program, err := m.store.GetProgram(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to get program: %w", err)
	}
	if program == nil {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, name)
	}

	if opts.DryRun {
		fmt.Fprintf(m.out, "Would remove %s (%s)\n", name, program.Provider)
		return nil
	}

	if err := m.store.RemoveProgram(ctx, name); err != nil {
		return fmt.Errorf("failed to remove program from database: %w", err)
	}

	fmt.Fprintf(m.out, "Program %s has been removed from the database.\n", name)
	return nil
}

// ApplyUpdate marks the latest version of a program as the one in use and
// records the change in the update history
func (m *Manager) ApplyUpdate(ctx context.Context, name string, opts Options) (*storage.UpdateHistoryEntry, error) {
	program, err := m.store.GetProgram(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get program: %w", err)
	}
	if program == nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, name)
	}
	if !program.UpdateAvailable() {
		return nil, fmt.Errorf("%w: %s (%s)", ErrUpToDate, name, program.CurrentVersion)
	}

	entry := &storage.UpdateHistoryEntry{
		Date:       m.now(),
		Name:       name,
		OldVersion: program.CurrentVersion,
		UpdatedTo:  program.LatestVersion,
	}

	if opts.DryRun {
		fmt.Fprintf(m.out, "Would update %s from %s to %s\n", name, entry.OldVersion, entry.UpdatedTo)
		return entry, nil
	}

	if err := m.store.ApplyUpdate(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record update: %w", err)
	}

	fmt.Fprintf(m.out, "Updated %s from %s to %s\n", name, entry.OldVersion, entry.UpdatedTo)
	return entry, nil
}

// ApplyAll applies every pending update
func (m *Manager) ApplyAll(ctx context.Context, opts Options) ([]*storage.UpdateHistoryEntry, error) {
	programs, err := m.store.ListPrograms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list programs: %w", err)
	}

	var entries []*storage.UpdateHistoryEntry
	for _, program := range programs {
		if !program.UpdateAvailable() {
			continue
		}
		entry, err := m.ApplyUpdate(ctx, program.Name, opts)
		if err != nil {
			return entries, err
		}
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		fmt.Fprintln(m.out, "All programs are up to date")
	}
	return entries, nil
}

// List returns all tracked programs ordered by name
func (m *Manager) List(ctx context.Context) ([]*storage.Program, error) {
	programs, err := m.store.ListPrograms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list programs: %w", err)
	}
	return programs, nil
}
