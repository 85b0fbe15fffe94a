package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"gymaccess/internal/access"
)

// Reminder kinds.
const (
	ReminderSubscription = "subscription"
	ReminderCertificate  = "certificate"
)

// Reminder asks the mail service to warn a member about an upcoming expiry.
type Reminder struct {
	Kind      string          `json:"kind"`
	Snapshot  access.Snapshot `json:"snapshot"`
	ExpiresOn time.Time       `json:"expires_on"`
}

// DispatchResult is what the card/email service reports back.
type DispatchResult struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Client calls the external card rendering and email dispatch service.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client with a bounded timeout.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 30 * time.Second, // card rendering can take a while
		},
	}
}

// SendCard asks the service to render and email a member's card.
func (c *Client) SendCard(ctx context.Context, snap access.Snapshot) (*DispatchResult, error) {
	if c.Skip {
		return &DispatchResult{ID: "skipped-" + snap.Token, Status: "skipped"}, nil
	}
	if snap.Token == "" {
		return nil, fmt.Errorf("member token required")
	}
	return c.post(ctx, "/cards", snap)
}

// SendReminder asks the service to email an expiry reminder.
func (c *Client) SendReminder(ctx context.Context, r Reminder) (*DispatchResult, error) {
	if c.Skip {
		return &DispatchResult{ID: "skipped-" + r.Snapshot.Token, Status: "skipped"}, nil
	}
	return c.post(ctx, "/reminders", r)
}

// Health checks if the service is available.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("notifier unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notifier unhealthy: %s", resp.Status)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*DispatchResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notifier request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("notifier error %s: %s", resp.Status, string(bodyBytes))
	}

	var out DispatchResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}
