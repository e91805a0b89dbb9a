package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultNtfyServer is the public ntfy instance
const DefaultNtfyServer = "https://ntfy.sh"

// Ntfy publishes messages to a topic of an ntfy server
type Ntfy struct {
	Server     string // Base URL, defaults to DefaultNtfyServer
	Topic      string
	Token      string // Optional access token
	HTTPClient *http.Client
}

// NewNtfy creates an ntfy channel for topic on server
func NewNtfy(server, topic, token string) *Ntfy {
	if server == "" {
		server = DefaultNtfyServer
	}
	return &Ntfy{
		Server: strings.TrimSuffix(server, "/"),
		Topic:  topic,
		Token:  token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// URL returns the publish URL of the topic
func (n *Ntfy) URL() string {
	return n.Server + "/" + n.Topic
}

// Send posts the message body with title and tags headers
func (n *Ntfy) Send(ctx context.Context, msg Message) error {
	if n.Topic == "" {
		return fmt.Errorf("no ntfy topic configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL(), strings.NewReader(msg.Body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Title", msg.Title)
	if msg.Tags != "" {
		req.Header.Set("Tags", msg.Tags)
	}
	if n.Token != "" {
		req.Header.Set("Authorization", "Bearer "+n.Token)
	}

	resp, err := n.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", n.URL(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("failed to publish to %s: %s - %s", n.URL(), resp.Status, strings.TrimSpace(string(body)))
	}

	return nil
}
