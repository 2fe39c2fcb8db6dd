package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alba-hq/conciergerie-platform/pkg/logger"
	"github.com/alba-hq/conciergerie-platform/pkg/metrics"
)

// Config holds HTTP relay connection settings.
type Config struct {
	BaseURL string
	APIKey  string
	From    string
	Timeout time.Duration
}

// HTTPRelay delivers replies through the mail-relay service's HTTP API.
type HTTPRelay struct {
	cfg    Config
	client *http.Client
	log    *logger.Logger
}

// NewHTTPRelay creates an HTTP relay client.
func NewHTTPRelay(cfg Config, log *logger.Logger) (*HTTPRelay, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("relay base URL is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPRelay{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}, nil
}

type sendPayload struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	ThreadID string `json:"thread_id,omitempty"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
	ThreadID  string `json:"thread_id"`
}

// SendReply posts the reply to the relay and returns its delivery identifier.
func (r *HTTPRelay) SendReply(ctx context.Context, req SendReplyRequest) (*SendResult, error) {
	payload, err := json.Marshal(sendPayload{
		From:     r.cfg.From,
		To:       req.To,
		Subject:  ReplySubject(req.Subject),
		Body:     req.Body,
		ThreadID: req.ThreadID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal relay payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build relay request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		metrics.RelaySendsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		metrics.RelaySendsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("relay returned %d: %s", resp.StatusCode, string(body))
	}

	var result sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		metrics.RelaySendsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to decode relay response: %w", err)
	}

	metrics.RelaySendsTotal.WithLabelValues("sent").Inc()
	return &SendResult{MessageID: result.MessageID, ThreadID: result.ThreadID}, nil
}
