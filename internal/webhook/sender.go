package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"philcali.me/notifications/internal/exceptions"
	"philcali.me/notifications/internal/notifications"
)

const UserAgent = "notifications-webhook/1.0"

var (
	ErrUnexpectedStatus = errors.New("unexpected webhook status")
	ErrTimeout          = errors.New("webhook request timeout")
)

// Sender POSTs notifications to HTTP subscribers. It makes a single attempt and
// leaves retries to whoever calls it.
type Sender struct {
	client *http.Client
}

func NewSender() *Sender {
	return &Sender{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func NewSenderWithClient(client *http.Client) *Sender {
	if client == nil {
		return NewSender()
	}
	return &Sender{client: client}
}

func (s *Sender) Deliver(ctx context.Context, subscriber notifications.Subscriber, notification notifications.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return exceptions.DeliveryFailed(subscriber.URL, fmt.Errorf("failed to marshal notification: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, subscriber.URL, bytes.NewReader(payload))
	if err != nil {
		return exceptions.DeliveryFailed(subscriber.URL, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("X-Notification-Id", notification.Id)

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return exceptions.DeliveryFailed(subscriber.URL, fmt.Errorf("%w: %w", ErrTimeout, err))
		}
		return exceptions.DeliveryFailed(subscriber.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := fmt.Sprintf("%s %d", ErrUnexpectedStatus, resp.StatusCode)
		if excerpt := strings.TrimSpace(strings.ReplaceAll(string(body), "\n", " ")); excerpt != "" {
			if len(excerpt) > 200 {
				excerpt = excerpt[:200] + "..."
			}
			message += ": " + excerpt
		}
		return exceptions.DeliveryFailed(subscriber.URL, &statusError{code: resp.StatusCode, message: message})
	}
	return nil
}

type statusError struct {
	code    int
	message string
}

func (se *statusError) Error() string {
	return se.message
}

func (se *statusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}
