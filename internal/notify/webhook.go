package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// AssignmentPayload is the structure POSTed to the notification webhook when
// accounts are assigned to a calendar event.
type AssignmentPayload struct {
	Event       string     `json:"event"` // always "calendar.event_assigned"
	EventID     uint       `json:"eventId"`
	Title       string     `json:"title"`
	StartDate   time.Time  `json:"startDate"`
	EndDate     time.Time  `json:"endDate"`
	AssigneeIDs []uint     `json:"assigneeIds"`
	AssignedAt  *time.Time `json:"assignedAt,omitempty"`
}

// WebhookSender delivers assignment notifications via HTTP POST.
type WebhookSender struct {
	url        string
	httpClient *http.Client
	log        zerolog.Logger
	maxRetries int
	retryDelay time.Duration
}

// NewWebhookSender creates a sender targeting the given URL. An empty URL
// disables delivery, Send becomes a no-op.
func NewWebhookSender(url string, timeout time.Duration, log zerolog.Logger) *WebhookSender {
	return &WebhookSender{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log:        log.With().Str("component", "notify-webhook").Logger(),
		maxRetries: 3,
		retryDelay: 2 * time.Second,
	}
}

// Send posts the payload, retrying transient failures.
func (s *WebhookSender) Send(ctx context.Context, payload AssignmentPayload) error {
	if s.url == "" {
		s.log.Debug().Uint("event_id", payload.EventID).Msg("no webhook URL configured, skipping notification")
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create notification request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "qr-order-server/1.0")
		req.Header.Set("X-QrOrder-Event", payload.Event)

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("send notification (attempt %d/%d): %w", attempt, s.maxRetries, err)
			s.log.Warn().Err(err).Int("attempt", attempt).Msg("notification delivery failed")

			if attempt < s.maxRetries {
				time.Sleep(s.retryDelay)
				continue
			}
			break
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			s.log.Info().Uint("event_id", payload.EventID).Int("status", resp.StatusCode).Msg("notification delivered")
			return nil
		}

		lastErr = fmt.Errorf("notification webhook returned status %d (attempt %d/%d)", resp.StatusCode, attempt, s.maxRetries)
		s.log.Warn().Int("status", resp.StatusCode).Int("attempt", attempt).Msg("notification delivery failed")

		if attempt < s.maxRetries {
			time.Sleep(s.retryDelay)
		}
	}

	return lastErr
}
