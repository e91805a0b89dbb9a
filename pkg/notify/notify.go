package notify

import (
	"context"
	"fmt"
)

// Message is one push notification
type Message struct {
	Title string
	Tags  string // Comma separated emoji short codes
	Body  string
}

// Channel delivers messages to an external notification service
type Channel interface {
	Send(ctx context.Context, msg Message) error
}

// ConsistencyError means a program that was just reported as updated does not
// exist in the store anymore
type ConsistencyError struct {
	Program string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("unable to find program %s in database", e.Program)
}

// NotificationError means the channel failed to deliver a message. No
// notification state was changed.
type NotificationError struct {
	Err error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("failed to send notification: %v", e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

func updateMessage(body string) Message {
	return Message{Title: "Updates available", Tags: "arrow_up", Body: body}
}

func errorMessage(body string) Message {
	return Message{Title: "Error while checking for updates", Tags: "x", Body: body}
}
