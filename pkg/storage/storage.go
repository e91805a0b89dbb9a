package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dikkadev/relwatch/pkg/provider"
)

// ErrNotFound is returned when a program does not exist
var ErrNotFound = errors.New("program not found")

// Program represents a tracked program
type Program struct {
	Name                      string          // Unique display name
	CurrentVersion            string          // Version considered in use
	CurrentVersionLastUpdated time.Time       // When CurrentVersion last changed
	LatestVersion             string          // Most recently observed published version
	LatestVersionLastUpdated  time.Time       // When LatestVersion last changed
	Provider                  provider.Config // Where version information comes from
	NotificationSent          bool            // Whether the latest version was already surfaced
	NotificationSentOn        *time.Time      // When the notification was sent; nil for manual checks
}

// UpdateAvailable reports whether the latest version differs from the one in use
func (p *Program) UpdateAvailable() bool {
	return p.CurrentVersion != p.LatestVersion
}

// NotificationInfo is the notification state of a program
type NotificationInfo struct {
	Sent   bool
	SentOn *time.Time
}

// CheckKind distinguishes user triggered checks from scheduled ones
type CheckKind string

const (
	CheckManual CheckKind = "manual"
	CheckTimed  CheckKind = "timed"
)

// ParseCheckKind parses the persisted form of a CheckKind
func ParseCheckKind(s string) (CheckKind, error) {
	switch CheckKind(s) {
	case CheckManual, CheckTimed:
		return CheckKind(s), nil
	}
	return "", fmt.Errorf("invalid update check type: %q", s)
}

// UpdateCheckHistoryEntry records one completed check pass
type UpdateCheckHistoryEntry struct {
	Date             time.Time
	Kind             CheckKind
	UpdatesAvailable int
	Programs         string // Comma separated names of programs with updates
}

// UpdateHistoryEntry records one applied update
type UpdateHistoryEntry struct {
	Date       time.Time
	Name       string
	OldVersion string
	UpdatedTo  string
}

// DefaultHistoryLimit is used when a history listing is requested without a limit
const DefaultHistoryLimit = 100

// Storage defines the interface for program storage
type Storage interface {
	// Initialize initializes the storage (e.g., creates tables)
	Initialize(ctx context.Context) error

	// AddProgram adds a new program together with its provider details
	AddProgram(ctx context.Context, program *Program) error

	// GetProgram gets a program by name, nil if it does not exist
	GetProgram(ctx context.Context, name string) (*Program, error)

	// ListPrograms lists all programs ordered by name
	ListPrograms(ctx context.Context) ([]*Program, error)

	// RemoveProgram removes a program and its provider details
	RemoveProgram(ctx context.Context, name string) error

	// UpdateLatestVersion sets the latest version and its timestamp
	UpdateLatestVersion(ctx context.Context, name, version string, at time.Time) error

	// UpdateCurrentVersion sets the current version and its timestamp
	UpdateCurrentVersion(ctx context.Context, name, version string, at time.Time) error

	// SetNotificationSent sets the notification flag
	SetNotificationSent(ctx context.Context, name string, sent bool) error

	// SetNotificationSentOn sets or clears the notification timestamp
	SetNotificationSentOn(ctx context.Context, name string, sentOn *time.Time) error

	// GetNotificationInfo gets the notification state, nil if the program does not exist
	GetNotificationInfo(ctx context.Context, name string) (*NotificationInfo, error)

	// InsertUpdateCheck appends to the update check history
	InsertUpdateCheck(ctx context.Context, entry *UpdateCheckHistoryEntry) error

	// LatestUpdateCheck gets the most recent update check, nil if there is none
	LatestUpdateCheck(ctx context.Context) (*UpdateCheckHistoryEntry, error)

	// ListUpdateChecks lists update checks, newest first
	ListUpdateChecks(ctx context.Context, max int) ([]*UpdateCheckHistoryEntry, error)

	// InsertPerformedUpdate appends to the update history
	InsertPerformedUpdate(ctx context.Context, entry *UpdateHistoryEntry) error

	// ApplyUpdate promotes the program's current version to entry.UpdatedTo
	// and appends entry to the update history in one step
	ApplyUpdate(ctx context.Context, entry *UpdateHistoryEntry) error

	// ListPerformedUpdates lists applied updates, newest first
	ListPerformedUpdates(ctx context.Context, max int) ([]*UpdateHistoryEntry, error)

	// Close closes the storage
	Close() error
}
