package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
)

const (
	// DefaultImageTimeout bounds image workflows
	DefaultImageTimeout = 120 * time.Second
	// DefaultVideoTimeout bounds video workflows
	DefaultVideoTimeout = 180 * time.Second

	maxResponseBytes = 4 << 20
)

// Endpoint is one webhook and its timeout
type Endpoint struct {
	URL     string
	Timeout time.Duration
}

// Client is the n8n webhook Backend. It never retries: a retried
// generation could be billed upstream twice.
type Client struct {
	endpoints  map[Mode]Endpoint
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a client for the given per-mode endpoints
func NewClient(endpoints map[Mode]Endpoint, log zerolog.Logger) *Client {
	return &Client{
		endpoints: endpoints,
		// per-call deadlines come from the endpoint timeout
		httpClient: &http.Client{},
		log:        log.With().Str("component", "workflow").Logger(),
	}
}

// Submit posts the payload to the mode's webhook and parses the answer
func (c *Client) Submit(ctx context.Context, mode Mode, payload Payload) (*Result, error) {
	ep, ok := c.endpoints[mode]
	if !ok || ep.URL == "" {
		c.log.Error().Str("mode", string(mode)).Msg("no webhook configured")
		return nil, fmt.Errorf("%w: no webhook configured for %s", ErrUnavailable, mode)
	}

	timeout := ep.Timeout
	if timeout <= 0 {
		timeout = DefaultImageTimeout
		if mode.Kind() == models.MediaVideo {
			timeout = DefaultVideoTimeout
		}
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload.Mode = mode
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.classifyTransportError(ctx, mode, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.classifyTransportError(ctx, mode, err)
	}

	log := c.log.With().
		Str("mode", string(mode)).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Logger()

	if resp.StatusCode == http.StatusNotFound {
		log.Warn().Msg("webhook not found")
		return nil, fmt.Errorf("%w: webhook returned 404", ErrUnavailable)
	}
	if resp.StatusCode >= 400 {
		msg := errorMessage(respBody)
		log.Warn().Str("message", msg).Msg("workflow failed")
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: msg}
	}

	doc, err := decodeBody(respBody)
	if err != nil {
		log.Warn().Err(err).Msg("unusable workflow response")
		return nil, err
	}

	result := &Result{URL: extractResultURL(doc), Raw: doc}
	if result.URL == "" {
		log.Warn().Msg("workflow succeeded but no result URL was found")
	} else {
		log.Info().Msg("workflow completed")
	}

	return result, nil
}

func (c *Client) classifyTransportError(ctx context.Context, mode Mode, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		c.log.Warn().Err(err).Str("mode", string(mode)).Msg("workflow timed out")
		return ErrTimeout
	case errors.Is(err, syscall.ECONNREFUSED), isDialError(err):
		c.log.Warn().Err(err).Str("mode", string(mode)).Msg("workflow unreachable")
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	case errors.Is(err, context.Canceled):
		return err
	}

	c.log.Warn().Err(err).Str("mode", string(mode)).Msg("workflow request failed")
	return &UpstreamError{StatusCode: http.StatusBadGateway, Message: "Generation service request failed"}
}

func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// errorMessage pulls a readable message out of an error body
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if s, ok := payload.Error.(string); ok && s != "" {
			return s
		}
	}

	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
