// Package webhook delivers alert notifications as JSON POSTs. Delivery is
// best effort; the engine records the verdict and retries on the next
// reminder boundary, so the sender itself never retries.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ec2keeper/ec2keeper/internal/logic/alerting"
)

const (
	requestTimeout    = 10 * time.Second
	maxResponseBytes  = 2048
	userAgentHeader   = "ec2keeper"
	contentTypeHeader = "application/json"
)

type sender struct {
	logger     *slog.Logger
	client     *http.Client
	defaultURL string
}

// New creates a webhook notifier. defaultURL receives payloads whose alert
// config carries no destination override.
func New(logger *slog.Logger, defaultURL string) alerting.Notifier {
	return &sender{
		logger:     logger,
		client:     &http.Client{Timeout: requestTimeout},
		defaultURL: defaultURL,
	}
}

var _ alerting.Notifier = (*sender)(nil)

func (s *sender) DeliverCommand(ctx context.Context, payload alerting.Payload) error {
	url := payload.Destination
	if url == "" {
		url = s.defaultURL
	}

	if url == "" {
		return fmt.Errorf("no webhook destination configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", contentTypeHeader)
	req.Header.Set("User-Agent", userAgentHeader)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}

	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode, string(respBody))
	}

	s.logger.DebugContext(ctx, "alert delivered",
		"alert", payload.AlertName,
		"instance", payload.InstanceID,
		"status", resp.StatusCode,
	)

	return nil
}
