package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	domain "github.com/oshokin/proximity-alarm/internal/domain/alarm"
)

// maxErrorBody caps how much of an error response is kept for logs.
const maxErrorBody = 512

// PushoverSender posts messages to the Pushover messages API.
type PushoverSender struct {
	// endpoint is the messages API URL.
	endpoint string
	// token is the application token.
	token string
	// user is the recipient user or group key.
	user string
	// client performs the requests, its timeout bounds every delivery.
	client *http.Client
}

// NewPushoverSender creates a sender for the given credentials.
func NewPushoverSender(endpoint, token, user string, timeout time.Duration) *PushoverSender {
	return &PushoverSender{
		endpoint: endpoint,
		token:    token,
		user:     user,
		client:   &http.Client{Timeout: timeout},
	}
}

// Send delivers message. Every failure wraps domain.ErrSend.
func (s *PushoverSender) Send(ctx context.Context, message string) error {
	form := url.Values{
		"token":   {s.token},
		"user":    {s.user},
		"message": {message},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: build request: %w", domain.ErrSend, err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSend, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return fmt.Errorf("%w: status %d: %s", domain.ErrSend, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}
