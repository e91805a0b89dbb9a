package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Memory implements the Storage interface in memory. Returned programs are
// copies, so callers observe the same isolation they get from a database.
type Memory struct {
	mu       sync.Mutex
	programs map[string]Program
	checks   []UpdateCheckHistoryEntry
	updates  []UpdateHistoryEntry
}

// NewMemory creates an empty in-memory storage
func NewMemory() *Memory {
	return &Memory{programs: make(map[string]Program)}
}

func (m *Memory) Initialize(ctx context.Context) error {
	return nil
}

func (m *Memory) AddProgram(ctx context.Context, program *Program) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.programs[program.Name]; ok {
		return fmt.Errorf("failed to insert program: %s already exists", program.Name)
	}
	m.programs[program.Name] = copyProgram(*program)
	return nil
}

func (m *Memory) GetProgram(ctx context.Context, name string) (*Program, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.programs[name]
	if !ok {
		return nil, nil
	}
	c := copyProgram(p)
	return &c, nil
}

func (m *Memory) ListPrograms(ctx context.Context) ([]*Program, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	programs := make([]*Program, 0, len(m.programs))
	for _, p := range m.programs {
		c := copyProgram(p)
		programs = append(programs, &c)
	}
	sort.Slice(programs, func(i, j int) bool { return programs[i].Name < programs[j].Name })
	return programs, nil
}

func (m *Memory) RemoveProgram(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.programs[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(m.programs, name)
	return nil
}

func (m *Memory) modify(name string, fn func(p *Program)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.programs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	fn(&p)
	m.programs[name] = p
	return nil
}

func (m *Memory) UpdateLatestVersion(ctx context.Context, name, version string, at time.Time) error {
	return m.modify(name, func(p *Program) {
		p.LatestVersion = version
		p.LatestVersionLastUpdated = at
	})
}

func (m *Memory) UpdateCurrentVersion(ctx context.Context, name, version string, at time.Time) error {
	return m.modify(name, func(p *Program) {
		p.CurrentVersion = version
		p.CurrentVersionLastUpdated = at
	})
}

func (m *Memory) SetNotificationSent(ctx context.Context, name string, sent bool) error {
	return m.modify(name, func(p *Program) {
		p.NotificationSent = sent
	})
}

func (m *Memory) SetNotificationSentOn(ctx context.Context, name string, sentOn *time.Time) error {
	return m.modify(name, func(p *Program) {
		p.NotificationSentOn = copyTime(sentOn)
	})
}

func (m *Memory) GetNotificationInfo(ctx context.Context, name string) (*NotificationInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.programs[name]
	if !ok {
		return nil, nil
	}
	return &NotificationInfo{Sent: p.NotificationSent, SentOn: copyTime(p.NotificationSentOn)}, nil
}

func (m *Memory) InsertUpdateCheck(ctx context.Context, entry *UpdateCheckHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks = append(m.checks, *entry)
	return nil
}

func (m *Memory) LatestUpdateCheck(ctx context.Context) (*UpdateCheckHistoryEntry, error) {
	entries, _ := m.ListUpdateChecks(ctx, 1)
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[0], nil
}

func (m *Memory) ListUpdateChecks(ctx context.Context, max int) ([]*UpdateCheckHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if max <= 0 {
		max = DefaultHistoryLimit
	}
	var entries []*UpdateCheckHistoryEntry
	for i := len(m.checks) - 1; i >= 0 && len(entries) < max; i-- {
		e := m.checks[i]
		entries = append(entries, &e)
	}
	return entries, nil
}

func (m *Memory) InsertPerformedUpdate(ctx context.Context, entry *UpdateHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, *entry)
	return nil
}

func (m *Memory) ApplyUpdate(ctx context.Context, entry *UpdateHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.programs[entry.Name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, entry.Name)
	}
	p.CurrentVersion = entry.UpdatedTo
	p.CurrentVersionLastUpdated = entry.Date
	m.programs[entry.Name] = p
	m.updates = append(m.updates, *entry)
	return nil
}

func (m *Memory) ListPerformedUpdates(ctx context.Context, max int) ([]*UpdateHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if max <= 0 {
		max = DefaultHistoryLimit
	}
	var entries []*UpdateHistoryEntry
	for i := len(m.updates) - 1; i >= 0 && len(entries) < max; i-- {
		e := m.updates[i]
		entries = append(entries, &e)
	}
	return entries, nil
}

func (m *Memory) Close() error {
	return nil
}

func copyProgram(p Program) Program {
	p.NotificationSentOn = copyTime(p.NotificationSentOn)
	return p
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
