// Package webhook posts run failure alerts to plain JSON webhooks (Discord, Teams, chat bridges).
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

	jmespath "github.com/jmespath-community/go-jmespath"
	"github.com/narrativewatch/triage/internal/observability/notify"
)

// Config configures one webhook endpoint.
type Config struct {
	URL string
	// BodyJMESPath reshapes notify.RunFailurePayload.Document() before it is posted.
	// Empty posts the document unchanged.
	BodyJMESPath string
	Timeout      time.Duration
	RetryLimit   int
	Client       *http.Client
}

// Client posts alerts to a single webhook URL.
type Client struct {
	url        string
	expr       string
	retryLimit int
	client     *http.Client
}

// NewClient validates the URL and compiles the body expression.
func NewClient(cfg Config) (*Client, error) {
	u := strings.TrimSpace(cfg.URL)
	if u == "" {
		return nil, errors.New("webhook url is required")
	}

	expr := strings.TrimSpace(cfg.BodyJMESPath)
	if expr != "" {
		if _, err := jmespath.Compile(expr); err != nil {
			return nil, fmt.Errorf("compile webhook body expression: %w", err)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		url:        u,
		expr:       expr,
		retryLimit: max(cfg.RetryLimit, 0),
		client:     hc,
	}, nil
}

// SendRunFailure implements notify.Sink.
func (c *Client) SendRunFailure(ctx context.Context, payload notify.RunFailurePayload) error {
	body, err := c.buildBody(payload)
	if err != nil {
		return err
	}

	attempts := c.retryLimit + 1
	var lastErr error
	for attempt := range attempts {
		if err = c.post(ctx, body); err == nil {
			return nil
		}
		lastErr = err
		if attempt < attempts-1 {
			timer := time.NewTimer(time.Duration(attempt+1) * 200 * time.Millisecond)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return lastErr
}

func (c *Client) buildBody(payload notify.RunFailurePayload) ([]byte, error) {
	var doc any = payload.Document()
	if c.expr != "" {
		// Round-trip through JSON so the expression sees plain maps and slices.
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encode webhook document: %w", err)
		}
		var generic any
		if err = json.Unmarshal(raw, &generic); err != nil {
			return nil, fmt.Errorf("decode webhook document: %w", err)
		}
		shaped, err := jmespath.Search(c.expr, generic)
		if err != nil {
			return nil, fmt.Errorf("evaluate webhook body expression: %w", err)
		}
		doc = shaped
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode webhook body: %w", err)
	}
	return body, nil
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("webhook %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
