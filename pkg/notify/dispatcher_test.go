package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/dikkadev/relwatch/pkg/provider"
	"github.com/dikkadev/relwatch/pkg/storage"
)

// fakeChannel records sent messages and fails while err is set
type fakeChannel struct {
	sent []Message
	err  error
}

func (f *fakeChannel) Send(ctx context.Context, msg Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

var sentAt = time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)

func addProgram(t *testing.T, store storage.Storage, name, current, latest string, sent bool, sentOn *time.Time) *storage.Program {
	t.Helper()
	p := &storage.Program{
		Name:               name,
		CurrentVersion:     current,
		LatestVersion:      latest,
		Provider:           provider.GitHub("owner/" + name),
		NotificationSent:   sent,
		NotificationSentOn: sentOn,
	}
	if err := store.AddProgram(context.Background(), p); err != nil {
		t.Fatalf("Failed to add program: %v", err)
	}
	return p
}

func newTestDispatcher(store storage.Storage, channel Channel) *Dispatcher {
	quiet := log.New(io.Discard, "", 0)
	return NewDispatcher(store, channel, WithLogger(quiet), WithClock(func() time.Time { return sentAt }))
}

func TestNotifyUpdates(t *testing.T) {
	store := storage.NewMemory()
	earlier := sentAt.Add(-24 * time.Hour)
	programs := []*storage.Program{
		addProgram(t, store, "alacritty", "0.13.0", "0.14.0", false, nil),
		addProgram(t, store, "helix", "24.03", "25.01", true, &earlier),
		addProgram(t, store, "manual", "1.0.0", "1.1.0", true, nil),
		addProgram(t, store, "zellij", "0.40.0", "0.41.0", false, nil),
	}
	channel := &fakeChannel{}

	if err := newTestDispatcher(store, channel).NotifyUpdates(context.Background(), programs); err != nil {
		t.Fatalf("NotifyUpdates returned error: %v", err)
	}

	if len(channel.sent) != 1 {
		t.Fatalf("Expected exactly one message, got %d", len(channel.sent))
	}
	msg := channel.sent[0]
	want := "alacritty: 0.13.0 -> 0.14.0\nzellij: 0.40.0 -> 0.41.0\n"
	if msg.Body != want {
		t.Errorf("Got body %q, want %q", msg.Body, want)
	}
	if msg.Title != "Updates available" || msg.Tags != "arrow_up" {
		t.Errorf("Unexpected title/tags %q/%q", msg.Title, msg.Tags)
	}

	for _, name := range []string{"alacritty", "zellij"} {
		info, _ := store.GetNotificationInfo(context.Background(), name)
		if !info.Sent || info.SentOn == nil || !info.SentOn.Equal(sentAt) {
			t.Errorf("%s not marked as notified: %+v", name, info)
		}
	}

	// already notified programs keep their state
	info, _ := store.GetNotificationInfo(context.Background(), "helix")
	if info.SentOn == nil || !info.SentOn.Equal(earlier) {
		t.Errorf("helix was re-flagged: %+v", info)
	}
	info, _ = store.GetNotificationInfo(context.Background(), "manual")
	if info.SentOn != nil {
		t.Errorf("manual was re-flagged: %+v", info)
	}
}

func TestNotifyUpdatesNothingPending(t *testing.T) {
	store := storage.NewMemory()
	programs := []*storage.Program{
		addProgram(t, store, "manual", "1.0.0", "1.1.0", true, nil),
	}
	channel := &fakeChannel{}

	if err := newTestDispatcher(store, channel).NotifyUpdates(context.Background(), programs); err != nil {
		t.Fatalf("NotifyUpdates returned error: %v", err)
	}
	if len(channel.sent) != 0 {
		t.Errorf("Expected no message, got %d", len(channel.sent))
	}

	if err := newTestDispatcher(store, channel).NotifyUpdates(context.Background(), nil); err != nil {
		t.Fatalf("NotifyUpdates with no programs returned error: %v", err)
	}
	if len(channel.sent) != 0 {
		t.Errorf("Expected no message for empty input, got %d", len(channel.sent))
	}
}

func TestNotifyUpdatesRetryAfterFailure(t *testing.T) {
	store := storage.NewMemory()
	programs := []*storage.Program{
		addProgram(t, store, "alacritty", "0.13.0", "0.14.0", false, nil),
		addProgram(t, store, "zellij", "0.40.0", "0.41.0", false, nil),
	}
	boom := errors.New("connection refused")
	channel := &fakeChannel{err: boom}
	dispatcher := newTestDispatcher(store, channel)

	err := dispatcher.NotifyUpdates(context.Background(), programs)
	var nerr *NotificationError
	if !errors.As(err, &nerr) || !errors.Is(err, boom) {
		t.Fatalf("Expected NotificationError, got %v", err)
	}

	for _, p := range programs {
		info, _ := store.GetNotificationInfo(context.Background(), p.Name)
		if info.Sent || info.SentOn != nil {
			t.Errorf("%s flagged despite failure: %+v", p.Name, info)
		}
	}

	channel.err = nil
	if err := dispatcher.NotifyUpdates(context.Background(), programs); err != nil {
		t.Fatalf("Retry returned error: %v", err)
	}
	if len(channel.sent) != 1 || strings.Count(channel.sent[0].Body, "\n") != 2 {
		t.Errorf("Retry did not include all programs: %+v", channel.sent)
	}
}

func TestNotifyUpdatesMissingProgram(t *testing.T) {
	store := storage.NewMemory()
	ghost := &storage.Program{Name: "ghost", CurrentVersion: "1.0.0", LatestVersion: "1.1.0"}
	channel := &fakeChannel{}

	err := newTestDispatcher(store, channel).NotifyUpdates(context.Background(), []*storage.Program{ghost})
	var cerr *ConsistencyError
	if !errors.As(err, &cerr) || cerr.Program != "ghost" {
		t.Fatalf("Expected ConsistencyError, got %v", err)
	}
	if len(channel.sent) != 0 {
		t.Errorf("Expected no message, got %d", len(channel.sent))
	}
}

func TestNotifyError(t *testing.T) {
	var logs bytes.Buffer
	channel := &fakeChannel{}
	d := NewDispatcher(storage.NewMemory(), channel, WithLogger(log.New(&logs, "", 0)))

	d.NotifyError(context.Background(), "failed to check prog for updates")
	if len(channel.sent) != 1 {
		t.Fatalf("Expected one message, got %d", len(channel.sent))
	}
	if channel.sent[0].Title != "Error while checking for updates" || channel.sent[0].Tags != "x" {
		t.Errorf("Unexpected message %+v", channel.sent[0])
	}

	channel.err = errors.New("unreachable")
	d.NotifyError(context.Background(), "again")
	if !strings.Contains(logs.String(), "unreachable") {
		t.Errorf("Expected failure to be logged, got %q", logs.String())
	}
}
