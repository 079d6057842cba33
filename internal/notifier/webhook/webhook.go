// Package webhook implements an HTTP webhook notifier
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/archivist/internal/core"
	"github.com/newthinker/archivist/internal/notifier"
)

// Webhook implements the Notifier interface for HTTP webhooks
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// New creates a new Webhook notifier
func New(url string, headers map[string]string) (*Webhook, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook: url is required")
	}
	return &Webhook{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Send(ctx context.Context, summary *core.RunSummary) error {
	return w.post(ctx, summaryToPayload(summary))
}

func summaryToPayload(s *core.RunSummary) map[string]any {
	failures := make([]map[string]string, 0, len(s.Failures))
	for _, f := range s.Failures {
		failures = append(failures, map[string]string{
			"path":  f.Path,
			"error": f.Error,
		})
	}

	return map[string]any{
		"type":             "run_summary",
		"text":             notifier.Headline(s),
		"status":           notifier.Status(s),
		"phase":            s.Phase,
		"run_id":           s.RunID,
		"started_at":       s.Started.Format(time.RFC3339),
		"finished_at":      s.Finished.Format(time.RFC3339),
		"duration_seconds": s.Duration().Seconds(),
		"processed":        s.Processed,
		"succeeded":        s.Succeeded,
		"skipped":          s.Skipped,
		"failed":           s.Failed,
		"bytes":            s.Bytes,
		"failures":         failures,
	}
}

func (w *Webhook) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: server returned %d", resp.StatusCode)
	}

	return nil
}
