package notify

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dikkadev/relwatch/pkg/storage"
)

// DateFormat is used when logging notification timestamps
const DateFormat = "2006-01-02 15:04:05"

// Dispatcher sends update notifications and records which programs were notified
type Dispatcher struct {
	store   storage.Storage
	channel Channel
	logger  *log.Logger
	debug   *log.Logger
	now     func() time.Time
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithDebug enables debug output on the given logger
func WithDebug(l *log.Logger) Option {
	return func(d *Dispatcher) { d.debug = l }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a Dispatcher
func NewDispatcher(store storage.Storage, channel Channel, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:   store,
		channel: channel,
		logger:  log.New(os.Stderr, "[notify] ", log.LstdFlags),
		debug:   log.New(io.Discard, "", 0),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NotifyUpdates sends one message listing every program that has not been
// notified about yet. Programs are marked as notified only after the channel
// confirmed delivery; on failure nothing is changed so the next call retries.
func (d *Dispatcher) NotifyUpdates(ctx context.Context, programs []*storage.Program) error {
	var (
		message strings.Builder
		pending []*storage.Program
	)
	for _, program := range programs {
		info, err := d.store.GetNotificationInfo(ctx, program.Name)
		if err != nil {
			return fmt.Errorf("failed to get notification info for %s: %w", program.Name, err)
		}
		if info == nil {
			return &ConsistencyError{Program: program.Name}
		}

		if info.Sent {
			if info.SentOn != nil {
				d.debug.Printf("Not adding %s to notification as notification was already sent on %s",
					program.Name, info.SentOn.Local().Format(DateFormat))
			} else {
				d.debug.Printf("Not adding %s to notification as program was manually checked for updates", program.Name)
			}
			continue
		}

		fmt.Fprintf(&message, "%s: %s -> %s\n", program.Name, program.CurrentVersion, program.LatestVersion)
		pending = append(pending, program)
	}

	if len(pending) == 0 {
		d.debug.Printf("Not sending push notification as no updates are available for which notifications were not already sent")
		return nil
	}

	d.logger.Printf("Sending push notification for %d programs", len(pending))
	if err := d.channel.Send(ctx, updateMessage(message.String())); err != nil {
		return &NotificationError{Err: err}
	}

	sentOn := d.now()
	for _, program := range pending {
		if err := d.store.SetNotificationSent(ctx, program.Name, true); err != nil {
			return fmt.Errorf("failed to mark %s as notified: %w", program.Name, err)
		}
		if err := d.store.SetNotificationSentOn(ctx, program.Name, &sentOn); err != nil {
			return fmt.Errorf("failed to mark %s as notified: %w", program.Name, err)
		}
	}
	return nil
}

// NotifyError reports a failed check pass. Delivery problems are logged only.
func (d *Dispatcher) NotifyError(ctx context.Context, message string) {
	if err := d.channel.Send(ctx, errorMessage(message)); err != nil {
		d.logger.Printf("Error while sending notification: %v", err)
	}
}
