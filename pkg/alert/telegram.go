package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// telegramAPI is the default Telegram Bot API endpoint.
const telegramAPI = "https://api.telegram.org"

// Telegram delivers notifications through the Telegram Bot API
// sendMessage method, formatted as MarkdownV2.
type Telegram struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
}

// TelegramOption configures a Telegram notifier.
type TelegramOption func(*Telegram)

// WithBaseURL overrides the API endpoint (for tests and proxies).
func WithBaseURL(url string) TelegramOption {
	return func(t *Telegram) { t.baseURL = strings.TrimSuffix(url, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) TelegramOption {
	return func(t *Telegram) { t.client = c }
}

// NewTelegram creates a Telegram notifier for the given bot token and
// chat id.
func NewTelegram(token, chatID string, opts ...TelegramOption) *Telegram {
	t := &Telegram{
		token:   token,
		chatID:  chatID,
		baseURL: telegramAPI,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// sendMessageRequest is the JSON body for the sendMessage call.
type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// sendMessageResponse is the subset of the API response we inspect.
type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Notify implements Notifier. The text is escaped for MarkdownV2
// before sending.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:    t.chatID,
		Text:      EscapeMarkdownV2(text),
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		return fmt.Errorf("alert: marshal sendMessage: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("alert: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("alert: telegram request: %w", err)
	}
	defer resp.Body.Close()

	var out sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("alert: decode telegram response: %w", err)
	}
	if !out.OK {
		return fmt.Errorf("alert: telegram refused message: %s", out.Description)
	}
	return nil
}

// markdownV2Special lists the characters the Telegram MarkdownV2
// parser requires to be backslash-escaped in message text.
const markdownV2Special = "_*[]()~`>#+-=|{}.!"

// EscapeMarkdownV2 escapes text for Telegram MarkdownV2 parse mode.
func EscapeMarkdownV2(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(markdownV2Special, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
