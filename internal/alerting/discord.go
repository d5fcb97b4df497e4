package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DiscordNotifier posts alerts to a Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	username   string
	maxLen     int
	client     *http.Client
	logger     zerolog.Logger
}

// NewDiscordNotifier constructs a webhook notifier. maxLen bounds the message
// body; zero selects DefaultMaxMessageLength.
func NewDiscordNotifier(webhookURL, username string, maxLen int, timeout time.Duration, logger zerolog.Logger) *DiscordNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxMessageLength
	}

	return &DiscordNotifier{
		webhookURL: webhookURL,
		username:   username,
		maxLen:     maxLen,
		client:     &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "alert_discord").Logger(),
	}
}

type discordPayload struct {
	Content  string `json:"content"`
	Username string `json:"username,omitempty"`
}

// Notify posts the message as the webhook content. The JSON envelope is a single
// line: newlines in the message travel as `\n` escapes.
func (n *DiscordNotifier) Notify(ctx context.Context, note Notification) error {
	payload := discordPayload{
		Content:  TruncateForEnvelope(note.Message, n.maxLen),
		Username: n.username,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send discord request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord webhook status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	n.logger.Info().
		Str("ticker", note.Result.Ticker).
		Str("direction", note.Result.Direction.String()).
		Msg("alert sent (Discord)")
	return nil
}

var _ Notifier = (*DiscordNotifier)(nil)
