package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dikkadev/relwatch/pkg/provider"
)

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	sentOn := time.Date(2025, 3, 12, 8, 0, 0, 0, time.UTC)

	if err := m.AddProgram(ctx, &Program{Name: "prog", CurrentVersion: "1.0", LatestVersion: "1.0", Provider: provider.GitHub("owner/prog"), NotificationSentOn: &sentOn}); err != nil {
		t.Fatalf("AddProgram returned error: %v", err)
	}

	p, _ := m.GetProgram(ctx, "prog")
	p.LatestVersion = "2.0"
	*p.NotificationSentOn = time.Time{}

	again, _ := m.GetProgram(ctx, "prog")
	if again.LatestVersion != "1.0" || !again.NotificationSentOn.Equal(sentOn) {
		t.Errorf("Stored program was modified through a returned copy: %+v", again)
	}
}

func TestMemoryMissingProgram(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if p, err := m.GetProgram(ctx, "missing"); p != nil || err != nil {
		t.Errorf("GetProgram = %v, %v; want nil, nil", p, err)
	}
	if info, err := m.GetNotificationInfo(ctx, "missing"); info != nil || err != nil {
		t.Errorf("GetNotificationInfo = %v, %v; want nil, nil", info, err)
	}
	if err := m.UpdateLatestVersion(ctx, "missing", "1.0", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := m.RemoveProgram(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := m.ApplyUpdate(ctx, &UpdateHistoryEntry{Name: "missing", UpdatedTo: "1.0"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if updates, _ := m.ListPerformedUpdates(ctx, 0); len(updates) != 0 {
		t.Errorf("Failed ApplyUpdate left history %+v", updates)
	}
}
