package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/user/validator-service/internal/entity"
)

// WebhookSink posts progress snapshots as JSON to a configured endpoint.
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink creates a sink posting to the given URL.
func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookEvent struct {
	Event    string                `json:"event"` // opened, progress, closed
	CycleID  string                `json:"cycle_id"`
	Progress *entity.CycleProgress `json:"progress,omitempty"`
}

func (s *WebhookSink) post(ctx context.Context, event webhookEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("progress webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("progress webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Open announces the cycle and returns its ID as the handle.
func (s *WebhookSink) Open(ctx context.Context, cycleID string) (string, error) {
	if err := s.post(ctx, webhookEvent{Event: "opened", CycleID: cycleID}); err != nil {
		return "", err
	}
	return cycleID, nil
}

// Update publishes a progress snapshot.
func (s *WebhookSink) Update(ctx context.Context, handle string, progress entity.CycleProgress) error {
	return s.post(ctx, webhookEvent{Event: "progress", CycleID: handle, Progress: &progress})
}

// Close publishes the final snapshot.
func (s *WebhookSink) Close(ctx context.Context, handle string, progress entity.CycleProgress) error {
	return s.post(ctx, webhookEvent{Event: "closed", CycleID: handle, Progress: &progress})
}
