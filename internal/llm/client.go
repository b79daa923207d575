package llm

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tulugarseguro/agentes/internal/shared/config"
	"github.com/tulugarseguro/agentes/internal/shared/errors"
	"github.com/tulugarseguro/agentes/internal/shared/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultMaxTokens = 4096

// Client calls the Anthropic Messages API.
type Client struct {
	http         *resty.Client
	model        string
	retries      int
	retryWait    time.Duration
	retryMaxWait time.Duration
	limiter      *rate.Limiter
	log          *zap.Logger
}

// New returns a Client, or an Unavailable completer when no API key is
// configured.
func New(cfg config.LLMConfig, log *zap.Logger) Completer {
	if !cfg.Configured() {
		return Unavailable{}
	}
	return NewClient(cfg, log)
}

func NewClient(cfg config.LLMConfig, log *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("x-api-key", cfg.APIKey).
		SetHeader("anthropic-version", cfg.APIVersion).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	retries := cfg.RetryAttempts
	if retries < 0 {
		retries = 0
	}

	return &Client{
		http:         httpClient,
		model:        cfg.Model,
		retries:      retries,
		retryWait:    cfg.RetryWait,
		retryMaxWait: cfg.RetryMaxWait,
		limiter:      rate.NewLimiter(limit, 1),
		log:          log,
	}
}

// Complete sends one prompt. Transport failures, 408, 429, 5xx and 529 are
// retried with capped exponential backoff; every other status fails at once,
// as does a 2xx body that does not decode. A caller deadline or cancellation
// surfaces as a Timeout error.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := c.complete(ctx, req)
	metrics.ObserveLLMCall(req.Operation, err, time.Since(start))
	if err != nil {
		c.log.Warn("model call failed",
			zap.String("operation", req.Operation),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}

	c.log.Debug("model call completed",
		zap.String("operation", req.Operation),
		zap.String("model", resp.Model),
		zap.Int("input_tokens", resp.InputTokens),
		zap.Int("output_tokens", resp.OutputTokens),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

func (c *Client) complete(ctx context.Context, req Request) (*Response, error) {
	body := c.buildRequest(req)

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, errors.Timeout(ctx.Err())
			case <-time.After(c.backoff(attempt)):
			}
		}

		// Wait only fails when ctx ends or its deadline is too close.
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Timeout(err)
		}

		var result messagesResponse
		var apiErr errorResponse
		httpResp, err := c.http.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(&result).
			SetError(&apiErr).
			Post("/v1/messages")

		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Timeout(ctx.Err())
			}
			if httpResp != nil && httpResp.IsSuccess() {
				return nil, errors.Upstream("model", fmt.Errorf("decode response: %w", err))
			}
			lastErr = err
			continue
		}

		if httpResp.IsError() {
			lastErr = statusError(httpResp.StatusCode(), apiErr)
			if retryableStatus(httpResp.StatusCode()) {
				continue
			}
			return nil, errors.Upstream("model", lastErr)
		}

		return toResponse(&result), nil
	}

	return nil, errors.Upstream("model", fmt.Errorf("max retries exceeded: %w", lastErr))
}

func (c *Client) buildRequest(req Request) messagesRequest {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	var content []contentBlock
	if req.Image != nil {
		content = append(content, contentBlock{
			Type: "image",
			Source: &imageSource{
				Type:      "base64",
				MediaType: req.Image.ContentType,
				Data:      base64.StdEncoding.EncodeToString(req.Image.Data),
			},
		})
	}
	content = append(content, contentBlock{Type: "text", Text: req.Prompt})

	return messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages:  []message{{Role: "user", Content: content}},
	}
}

// backoff doubles retryWait per attempt up to retryMaxWait.
func (c *Client) backoff(attempt int) time.Duration {
	wait := c.retryWait
	for i := 1; i < attempt && wait < c.retryMaxWait; i++ {
		wait *= 2
	}
	if c.retryMaxWait > 0 && wait > c.retryMaxWait {
		wait = c.retryMaxWait
	}
	return wait
}

func retryableStatus(code int) bool {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	case code >= 500:
		// 529 is the service's overloaded status.
		return true
	}
	return false
}

func statusError(code int, apiErr errorResponse) error {
	if apiErr.Error.Message != "" {
		return fmt.Errorf("status %d: %s: %s", code, apiErr.Error.Type, apiErr.Error.Message)
	}
	return fmt.Errorf("status %d", code)
}

func toResponse(r *messagesResponse) *Response {
	var text strings.Builder
	for _, block := range r.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return &Response{
		Text:         text.String(),
		Model:        r.Model,
		StopReason:   r.StopReason,
		InputTokens:  r.Usage.InputTokens,
		OutputTokens: r.Usage.OutputTokens,
	}
}

// Unavailable stands in when no API key is configured.
type Unavailable struct{}

func (Unavailable) Complete(ctx context.Context, req Request) (*Response, error) {
	return nil, errors.Configuration("ANTHROPIC_API_KEY not configured")
}

// IsCancelled reports whether err came from the caller's context ending.
func IsCancelled(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}
