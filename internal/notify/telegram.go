package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTelegramAPIURL = "https://api.telegram.org"

// TelegramNotifier implements Notifier via the Bot API sendMessage method.
type TelegramNotifier struct {
	token  string
	chatID string
	apiURL string
	client *http.Client
}

// TelegramOption configures a TelegramNotifier.
type TelegramOption func(*TelegramNotifier)

// WithTelegramAPIURL overrides the Bot API root.
func WithTelegramAPIURL(u string) TelegramOption {
	return func(n *TelegramNotifier) {
		if u != "" {
			n.apiURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTelegramHTTPClient sets a custom HTTP client.
func WithTelegramHTTPClient(c *http.Client) TelegramOption {
	return func(n *TelegramNotifier) {
		n.client = c
	}
}

// NewTelegramNotifier creates a notifier posting to chatID with the bot token.
func NewTelegramNotifier(token, chatID string, opts ...TelegramOption) *TelegramNotifier {
	n := &TelegramNotifier{
		token:  token,
		chatID: chatID,
		apiURL: defaultTelegramAPIURL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type telegramSendMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts msg.Text as an HTML formatted message. Any 2xx response is a
// success.
func (n *TelegramNotifier) Send(ctx context.Context, msg Message) error {
	if n.token == "" || n.chatID == "" {
		return fmt.Errorf("telegram token or chat_id missing")
	}

	body, err := json.Marshal(telegramSendMessage{
		ChatID:                n.chatID,
		Text:                  msg.Text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("marshaling telegram payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		n.apiURL+"/bot"+n.token+"/sendMessage",
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("creating telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		// The request URL embeds the bot token; keep it out of logs.
		return fmt.Errorf("sending telegram message: %w", redactToken(err, n.token))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var tr telegramResponse
		if json.Unmarshal(raw, &tr) == nil && tr.Description != "" {
			return fmt.Errorf("telegram returned %d: %s", resp.StatusCode, tr.Description)
		}
		return fmt.Errorf("telegram returned %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	return nil
}

func redactToken(err error, token string) error {
	var ue *url.Error
	if token != "" && errors.As(err, &ue) {
		ue.URL = strings.ReplaceAll(ue.URL, token, "<redacted>")
	}
	return err
}
