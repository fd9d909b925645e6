// Package classifier calls the external classification service, one POST per post and stage.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/narrativewatch/triage/internal/core"
	"github.com/narrativewatch/triage/internal/domain/model"
	"golang.org/x/time/rate"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 64 << 10

// StatusError is returned when the classification service answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if body == "" {
		body = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("classifier returned %d: %s", e.StatusCode, body)
}

// ErrorClass groups status errors by status family for metric tags.
func (e *StatusError) ErrorClass() string {
	return fmt.Sprintf("classifier_http_%dxx", e.StatusCode/100)
}

// AsStatusError unwraps err into a *StatusError.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Config configures the classification client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// Paths maps each stage onto its endpoint path. Missing stages use "/" + Stage.Endpoint().
	Paths map[model.Stage]string
	// RateLimit caps requests per second; zero disables pacing.
	RateLimit float64
	Client    *http.Client
	Logger    *slog.Logger
}

// Client implements core.ClassificationClient over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	paths   map[model.Stage]string
	limiter *rate.Limiter
	client  *http.Client
	logger  *slog.Logger
}

var _ core.ClassificationClient = (*Client)(nil)

// NewClient builds a classification client.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("classifier base url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	paths := make(map[model.Stage]string, len(model.Stages()))
	for _, stage := range model.Stages() {
		p := strings.TrimSpace(cfg.Paths[stage])
		if p == "" {
			p = "/" + stage.Endpoint()
		}
		paths[stage] = p
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		paths:   paths,
		limiter: limiter,
		client:  hc,
		logger:  logger.With("component", "classifier_client"),
	}, nil
}

type classifyBody struct {
	PostID         string     `json:"post_id"`
	DeepAnalyzedAt *time.Time `json:"deep_analyzed_at,omitempty"`
}

type classifyResponse struct {
	Model string           `json:"model"`
	Usage model.TokenUsage `json:"usage"`
}

// Classify asks the service to run one stage for one post. The service writes its
// results to the store itself; only model and token usage are read back.
func (c *Client) Classify(ctx context.Context, req core.ClassifyRequest) (*core.ClassifyResult, error) {
	if !req.Stage.Valid() {
		return nil, fmt.Errorf("unknown stage %q", req.Stage)
	}
	if strings.TrimSpace(req.PostID) == "" {
		return nil, errors.New("post id is required")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("classifier rate limit wait: %w", err)
		}
	}

	body := classifyBody{PostID: req.PostID}
	if req.Stage == model.StageDeepest {
		body.DeepAnalyzedAt = req.DeepAnalyzedAt
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode classify request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.paths[req.Stage], bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create classify request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("classify %s %s: %w", req.Stage, req.PostID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	latency := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &core.ClassifyResult{Latency: latency}, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	if readErr != nil {
		return nil, fmt.Errorf("read classify response: %w", readErr)
	}

	result := &core.ClassifyResult{Latency: latency}
	if len(bytes.TrimSpace(raw)) == 0 {
		return result, nil
	}
	var parsed classifyResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		// Success is decided by status; an unreadable body only loses usage data.
		c.logger.WarnContext(ctx, "classify response not JSON", "stage", req.Stage, "post_id", req.PostID)
		return result, nil
	}
	result.Model = parsed.Model
	result.Usage = parsed.Usage
	return result, nil
}
