package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/archivist/internal/core"
	"github.com/newthinker/archivist/internal/notifier"
)

const (
	defaultAPIBase = "https://api.telegram.org"

	// maxListedFailures bounds the message so it stays under the Bot API limit
	maxListedFailures = 10
)

// Telegram implements the Notifier interface for Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) (*Telegram, error) {
	if botToken == "" {
		return nil, fmt.Errorf("telegram: bot_token is required")
	}
	if chatID == "" {
		return nil, fmt.Errorf("telegram: chat_id is required")
	}
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Send(ctx context.Context, summary *core.RunSummary) error {
	return t.sendMessage(ctx, formatSummary(summary))
}

// formatSummary renders plain text; paths routinely contain characters
// that Markdown mode would interpret.
func formatSummary(s *core.RunSummary) string {
	var sb strings.Builder

	icon := "✅"
	if s.Failed > 0 {
		icon = "⚠️"
	}
	sb.WriteString(fmt.Sprintf("%s archivist %s\n", icon, notifier.Headline(s)))

	for i, f := range s.Failures {
		if i == maxListedFailures {
			sb.WriteString(fmt.Sprintf("… and %d more\n", len(s.Failures)-maxListedFailures))
			break
		}
		sb.WriteString(fmt.Sprintf("• %s: %s\n", f.Path, f.Error))
	}

	return strings.TrimRight(sb.String(), "\n")
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)

	payload := map[string]any{
		"chat_id": t.chatID,
		"text":    text,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("telegram: API error (status %d): %v", resp.StatusCode, result)
	}

	return nil
}
