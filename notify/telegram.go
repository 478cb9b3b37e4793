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

	"github.com/rs/zerolog"
)

const (
	// BaseURL is the telegram bot api base url.
	BaseURL = "https://api.telegram.org"
)

// TelegramConfig represents the configuration for the telegram client.
type TelegramConfig struct {
	// BaseURL is the bot api base url.
	BaseURL string
	// BotToken is the telegram bot token.
	BotToken string
	// ChatID is the destination chat id.
	ChatID string
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// TelegramClient delivers messages via the telegram bot api.
type TelegramClient struct {
	cfg   *TelegramConfig
	httpc http.Client
}

// Ensure the telegram client implements the Messenger interface.
var _ Messenger = (*TelegramClient)(nil)

// NewTelegramClient initializes a new telegram client.
func NewTelegramClient(cfg *TelegramConfig) (*TelegramClient, error) {
	var errs error

	if cfg.BaseURL == "" {
		errs = errors.Join(errs, fmt.Errorf("telegram base url cannot be an empty string"))
	}
	if cfg.BotToken == "" {
		errs = errors.Join(errs, fmt.Errorf("telegram bot token cannot be an empty string"))
	}
	if cfg.ChatID == "" {
		errs = errors.Join(errs, fmt.Errorf("telegram chat id cannot be an empty string"))
	}
	if errs != nil {
		return nil, errs
	}

	return &TelegramClient{
		cfg:   cfg,
		httpc: http.Client{Timeout: time.Second * 10},
	}, nil
}

// Send delivers the provided message to the configured chat, html formatted.
func (c *TelegramClient) Send(ctx context.Context, message string) error {
	apiURL := fmt.Sprintf("%s/bot%s/sendMessage", c.cfg.BaseURL, c.cfg.BotToken)
	payload := map[string]string{
		"chat_id":    c.cfg.ChatID,
		"text":       message,
		"parse_mode": "HTML",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling message payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating send message request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sending message: status %d, body %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// SendWithRetry delivers the provided message, retrying with exponential
// backoff on failure.
func (c *TelegramClient) SendWithRetry(ctx context.Context, message string, maxRetries int) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := c.Send(ctx, message)
		if err == nil {
			return nil
		}

		lastErr = err
		backoff := time.Duration(1<<uint(attempt)) * time.Second
		c.cfg.Logger.Warn().Msgf("telegram send failed (attempt %d/%d): %v, retrying in %v",
			attempt+1, maxRetries+1, err, backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("all %d send attempts exhausted: %w", maxRetries+1, lastErr)
}
