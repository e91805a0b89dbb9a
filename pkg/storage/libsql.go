package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"

	"github.com/dikkadev/relwatch/pkg/provider"
)

// LibSQL implements the Storage interface using libsql
type LibSQL struct {
	db *sql.DB
}

// NewLibSQL creates a new LibSQL storage. Local databases use "file:" URLs.
func NewLibSQL(url string) (*LibSQL, error) {
	db, err := sql.Open("libsql", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &LibSQL{db: db}, nil
}

// Open opens the database at url and creates the schema
func Open(ctx context.Context, url string) (*LibSQL, error) {
	store, err := NewLibSQL(url)
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

var schema = []struct {
	table string
	ddl   string
}{
	{"programs", `
		CREATE TABLE IF NOT EXISTS programs (
			name TEXT NOT NULL PRIMARY KEY,
			current_version TEXT NOT NULL,
			current_version_last_updated DATETIME NOT NULL,
			latest_version TEXT NOT NULL,
			latest_version_last_updated DATETIME NOT NULL,
			provider TEXT NOT NULL,
			notification_sent BOOLEAN NOT NULL DEFAULT 1,
			notification_sent_on DATETIME
		)
	`},
	{"github_programs", `
		CREATE TABLE IF NOT EXISTS github_programs (
			name TEXT NOT NULL PRIMARY KEY,
			repository TEXT NOT NULL
		)
	`},
	{"git_programs", `
		CREATE TABLE IF NOT EXISTS git_programs (
			name TEXT NOT NULL PRIMARY KEY,
			url TEXT NOT NULL
		)
	`},
	{"update_check_history", `
		CREATE TABLE IF NOT EXISTS update_check_history (
			date DATETIME NOT NULL,
			type TEXT NOT NULL,
			updates_available INTEGER NOT NULL,
			programs TEXT NOT NULL
		)
	`},
	{"update_history", `
		CREATE TABLE IF NOT EXISTS update_history (
			date DATETIME NOT NULL,
			name TEXT NOT NULL,
			old_version TEXT NOT NULL,
			updated_to TEXT NOT NULL
		)
	`},
}

// Initialize creates the database schema
func (s *LibSQL) Initialize(ctx context.Context) error {
	for _, t := range schema {
		if _, err := s.db.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.table, err)
		}
	}
	return nil
}

// extensionTable returns the provider specific table and its column
func extensionTable(kind provider.Kind) (string, string, error) {
	switch kind {
	case provider.KindGitHub:
		return "github_programs", "repository", nil
	case provider.KindGit:
		return "git_programs", "url", nil
	default:
		return "", "", fmt.Errorf("unknown provider type: %s", kind)
	}
}

// AddProgram adds a new program
func (s *LibSQL) AddProgram(ctx context.Context, program *Program) error {
	table, column, err := extensionTable(program.Provider.Kind)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO programs (
			name, current_version, current_version_last_updated,
			latest_version, latest_version_last_updated, provider,
			notification_sent, notification_sent_on
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		program.Name, program.CurrentVersion, program.CurrentVersionLastUpdated.UTC(),
		program.LatestVersion, program.LatestVersionLastUpdated.UTC(), string(program.Provider.Kind),
		program.NotificationSent, nullTime(program.NotificationSentOn),
	)
	if err != nil {
		return fmt.Errorf("failed to insert program: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (name, %s) VALUES (?, ?)`, table, column),
		program.Name, program.Provider.Source(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit program: %w", err)
	}
	return nil
}

const selectPrograms = `
	SELECT p.name, p.current_version, p.current_version_last_updated,
		   p.latest_version, p.latest_version_last_updated, p.provider,
		   p.notification_sent, p.notification_sent_on,
		   gh.repository, g.url
	FROM programs p
	LEFT JOIN github_programs gh ON gh.name = p.name
	LEFT JOIN git_programs g ON g.name = p.name
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgram(row rowScanner) (*Program, error) {
	var (
		p          Program
		kind       string
		sentOn     sql.NullTime
		repository sql.NullString
		url        sql.NullString
	)
	err := row.Scan(
		&p.Name, &p.CurrentVersion, &p.CurrentVersionLastUpdated,
		&p.LatestVersion, &p.LatestVersionLastUpdated, &kind,
		&p.NotificationSent, &sentOn,
		&repository, &url,
	)
	if err != nil {
		return nil, err
	}

	if sentOn.Valid {
		t := sentOn.Time
		p.NotificationSentOn = &t
	}

	switch provider.Kind(kind) {
	case provider.KindGitHub:
		if !repository.Valid {
			return nil, fmt.Errorf("github repository entry missing for program: %s", p.Name)
		}
		p.Provider = provider.GitHub(repository.String)
	case provider.KindGit:
		if !url.Valid {
			return nil, fmt.Errorf("git url entry missing for program: %s", p.Name)
		}
		p.Provider = provider.Git(url.String)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", kind)
	}

	return &p, nil
}

// GetProgram gets a program by name
func (s *LibSQL) GetProgram(ctx context.Context, name string) (*Program, error) {
	row := s.db.QueryRowContext(ctx, selectPrograms+` WHERE p.name = ?`, name)
	program, err := scanProgram(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get program: %w", err)
	}

	return program, nil
}

// ListPrograms lists all programs
func (s *LibSQL) ListPrograms(ctx context.Context) ([]*Program, error) {
	rows, err := s.db.QueryContext(ctx, selectPrograms+` ORDER BY p.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list programs: %w", err)
	}
	defer rows.Close()

	var programs []*Program
	for rows.Next() {
		program, err := scanProgram(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan program: %w", err)
		}
		programs = append(programs, program)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate programs: %w", err)
	}

	return programs, nil
}

// RemoveProgram deletes a program
func (s *LibSQL) RemoveProgram(ctx context.Context, name string) error {
	program, err := s.GetProgram(ctx, name)
	if err != nil {
		return err
	}
	if program == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	table, _, err := extensionTable(program.Provider.Kind)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE name = ?`, table), name); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM programs WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete program: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit removal: %w", err)
	}
	return nil
}

// updateProgram runs a single row update and reports missing programs
func (s *LibSQL) updateProgram(ctx context.Context, name, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, append(args, name)...)
	if err != nil {
		return fmt.Errorf("failed to update program: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// UpdateLatestVersion sets the latest version
func (s *LibSQL) UpdateLatestVersion(ctx context.Context, name, version string, at time.Time) error {
	return s.updateProgram(ctx, name,
		`UPDATE programs SET latest_version = ?, latest_version_last_updated = ? WHERE name = ?`,
		version, at.UTC())
}

// UpdateCurrentVersion sets the current version
func (s *LibSQL) UpdateCurrentVersion(ctx context.Context, name, version string, at time.Time) error {
	return s.updateProgram(ctx, name,
		`UPDATE programs SET current_version = ?, current_version_last_updated = ? WHERE name = ?`,
		version, at.UTC())
}

// SetNotificationSent sets the notification flag
func (s *LibSQL) SetNotificationSent(ctx context.Context, name string, sent bool) error {
	return s.updateProgram(ctx, name,
		`UPDATE programs SET notification_sent = ? WHERE name = ?`, sent)
}

// SetNotificationSentOn sets or clears the notification timestamp
func (s *LibSQL) SetNotificationSentOn(ctx context.Context, name string, sentOn *time.Time) error {
	return s.updateProgram(ctx, name,
		`UPDATE programs SET notification_sent_on = ? WHERE name = ?`, nullTime(sentOn))
}

// GetNotificationInfo gets the notification state of a program
func (s *LibSQL) GetNotificationInfo(ctx context.Context, name string) (*NotificationInfo, error) {
	var (
		info   NotificationInfo
		sentOn sql.NullTime
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT notification_sent, notification_sent_on FROM programs WHERE name = ?`, name,
	).Scan(&info.Sent, &sentOn)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification info: %w", err)
	}

	if sentOn.Valid {
		t := sentOn.Time
		info.SentOn = &t
	}
	return &info, nil
}

// InsertUpdateCheck appends an update check
func (s *LibSQL) InsertUpdateCheck(ctx context.Context, entry *UpdateCheckHistoryEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO update_check_history (date, type, updates_available, programs)
		VALUES (?, ?, ?, ?)
	`, entry.Date.UTC(), string(entry.Kind), entry.UpdatesAvailable, entry.Programs)
	if err != nil {
		return fmt.Errorf("failed to insert update check: %w", err)
	}
	return nil
}

const selectUpdateChecks = `
	SELECT date, type, updates_available, programs
	FROM update_check_history
	ORDER BY date DESC, rowid DESC
	LIMIT ?
`

// LatestUpdateCheck gets the most recent update check
func (s *LibSQL) LatestUpdateCheck(ctx context.Context) (*UpdateCheckHistoryEntry, error) {
	entries, err := s.ListUpdateChecks(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[0], nil
}

// ListUpdateChecks lists update checks, newest first
func (s *LibSQL) ListUpdateChecks(ctx context.Context, max int) ([]*UpdateCheckHistoryEntry, error) {
	if max <= 0 {
		max = DefaultHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx, selectUpdateChecks, max)
	if err != nil {
		return nil, fmt.Errorf("failed to list update checks: %w", err)
	}
	defer rows.Close()

	var entries []*UpdateCheckHistoryEntry
	for rows.Next() {
		var (
			entry UpdateCheckHistoryEntry
			kind  string
		)
		if err := rows.Scan(&entry.Date, &kind, &entry.UpdatesAvailable, &entry.Programs); err != nil {
			return nil, fmt.Errorf("failed to scan update check: %w", err)
		}
		if entry.Kind, err = ParseCheckKind(kind); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate update checks: %w", err)
	}
	return entries, nil
}

// InsertPerformedUpdate appends an applied update
func (s *LibSQL) InsertPerformedUpdate(ctx context.Context, entry *UpdateHistoryEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO update_history (date, name, old_version, updated_to)
		VALUES (?, ?, ?, ?)
	`, entry.Date.UTC(), entry.Name, entry.OldVersion, entry.UpdatedTo)
	if err != nil {
		return fmt.Errorf("failed to insert performed update: %w", err)
	}
	return nil
}

// ApplyUpdate sets the current version and records the update in one transaction
func (s *LibSQL) ApplyUpdate(ctx context.Context, entry *UpdateHistoryEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE programs SET current_version = ?, current_version_last_updated = ? WHERE name = ?`,
		entry.UpdatedTo, entry.Date.UTC(), entry.Name)
	if err != nil {
		return fmt.Errorf("failed to update program: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, entry.Name)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO update_history (date, name, old_version, updated_to)
		VALUES (?, ?, ?, ?)
	`, entry.Date.UTC(), entry.Name, entry.OldVersion, entry.UpdatedTo)
	if err != nil {
		return fmt.Errorf("failed to insert performed update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit update: %w", err)
	}
	return nil
}

// ListPerformedUpdates lists applied updates, newest first
func (s *LibSQL) ListPerformedUpdates(ctx context.Context, max int) ([]*UpdateHistoryEntry, error) {
	if max <= 0 {
		max = DefaultHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, name, old_version, updated_to
		FROM update_history
		ORDER BY date DESC, rowid DESC
		LIMIT ?
	`, max)
	if err != nil {
		return nil, fmt.Errorf("failed to list performed updates: %w", err)
	}
	defer rows.Close()

	var entries []*UpdateHistoryEntry
	for rows.Next() {
		var entry UpdateHistoryEntry
		if err := rows.Scan(&entry.Date, &entry.Name, &entry.OldVersion, &entry.UpdatedTo); err != nil {
			return nil, fmt.Errorf("failed to scan performed update: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate performed updates: %w", err)
	}
	return entries, nil
}

// Close closes the database connection
func (s *LibSQL) Close() error {
	return s.db.Close()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
