// Package notify delivers rendered messages. The Sender interface keeps the
// transport swappable; the only implementation today is a Telegram bot.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Sender pushes one message and reports whether delivery was accepted.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// TelegramSender sends Markdown messages to a single chat via the Bot API.
type TelegramSender struct {
	token      string
	chatID     string
	baseURL    string
	httpClient *http.Client
}

// NewTelegramSender creates a sender. baseURL is overridable for tests;
// empty means the public Bot API.
func NewTelegramSender(token, chatID, baseURL string) *TelegramSender {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &TelegramSender{
		token:      token,
		chatID:     chatID,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Validate checks the credentials are present before a cycle starts.
func (s *TelegramSender) Validate() error {
	if s.token == "" || s.chatID == "" {
		return errors.New("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are required")
	}
	return nil
}

// Send posts one message. A failure here is the caller's to handle: the
// cycle logs it and moves on to the remaining messages.
func (s *TelegramSender) Send(ctx context.Context, text string) error {
	payload := map[string]string{
		"chat_id":    s.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("telegram returned %s: %s", resp.Status, detail)
	}
	return nil
}
