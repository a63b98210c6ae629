package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bimmerbailey/tokenoptimizer/internal/apperr"
	"github.com/bimmerbailey/tokenoptimizer/internal/config"
	"github.com/rs/zerolog"
)

const (
	maxResponseBytes = 10 << 20
	maxErrorDetail   = 200
)

// Config holds client settings.
type Config struct {
	// URL is the compression endpoint. Defaults to config.DefaultAPIURL.
	URL string

	// Model is the server-side model name. Defaults to config.DefaultModel.
	Model string

	// UserAgent is sent with every request.
	UserAgent string

	// HTTPClient is used for the call. Its own Timeout should be zero; the
	// per-request deadline comes from Request.Timeout.
	HTTPClient *http.Client
}

// Client talks to the compression service over HTTPS.
// It is safe for concurrent use.
type Client struct {
	cfg    Config
	http   *http.Client
	logger zerolog.Logger
}

var _ Optimizer = (*Client)(nil)

// New creates a Client, filling unset fields with defaults.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.URL == "" {
		cfg.URL = config.DefaultAPIURL
	}
	if err := config.ValidateAPIURL(cfg.URL); err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = config.DefaultModel
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "tokenoptimizer"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		cfg:    cfg,
		http:   httpClient,
		logger: logger,
	}, nil
}

type wireRequest struct {
	Model    string       `json:"model"`
	Input    string       `json:"input"`
	Settings wireSettings `json:"compression_settings"`
}

type wireSettings struct {
	Aggressiveness  float64 `json:"aggressiveness"`
	MaxOutputTokens *int    `json:"max_output_tokens"`
	MinOutputTokens *int    `json:"min_output_tokens"`
}

type wireResponse struct {
	Output              *string  `json:"output"`
	OutputTokens        *int     `json:"output_tokens"`
	OriginalInputTokens *int     `json:"original_input_tokens"`
	CompressionTime     *float64 `json:"compression_time"`
}

// Submit sends one compression request. Every returned error is an
// *apperr.Error carrying one of the remote kinds (or Canceled).
func (c *Client) Submit(ctx context.Context, req Request, apiKey string) (*Result, error) {
	if req.Timeout <= 0 {
		return nil, apperr.New(apperr.InvalidTimeout, "timeout must be positive, got %s", req.Timeout)
	}

	body, err := json.Marshal(wireRequest{
		Model: c.cfg.Model,
		Input: req.Text,
		Settings: wireSettings{
			Aggressiveness:  req.Aggressiveness,
			MaxOutputTokens: req.MaxTokens,
			MinOutputTokens: req.MinTokens,
		},
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to encode request")
	}

	callCtx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("User-Agent", c.cfg.UserAgent)

	c.logger.Debug().
		Str("url", c.cfg.URL).
		Str("model", c.cfg.Model).
		Int("input_bytes", len(req.Text)).
		Float64("aggressiveness", req.Aggressiveness).
		Dur("timeout", req.Timeout).
		Msg("sending optimization request")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, c.transportError(ctx, callCtx, err, req.Timeout)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, c.transportError(ctx, callCtx, err, req.Timeout)
	}

	c.logger.Debug().
		Int("status", resp.StatusCode).
		Int("response_bytes", len(data)).
		Dur("elapsed", time.Since(start)).
		Msg("received optimization response")

	if err := statusError(resp, data); err != nil {
		c.logger.Debug().Err(err).Int("status", resp.StatusCode).Msg("optimization request rejected")
		return nil, err
	}

	if len(data) > maxResponseBytes {
		return nil, apperr.New(apperr.MalformedResponse, "response exceeds %d bytes", maxResponseBytes)
	}

	return decodeResult(data)
}

// transportError classifies a failure to complete the HTTP exchange.
// A canceled parent (interrupt) is reported as Canceled; an expired deadline
// as Timeout; anything else as ConnectionFailed.
func (c *Client) transportError(parent, call context.Context, err error, timeout time.Duration) error {
	c.logger.Debug().Err(err).Msg("optimization request failed")

	if errors.Is(parent.Err(), context.Canceled) {
		return apperr.Wrap(apperr.Canceled, err, "request canceled")
	}

	if errors.Is(call.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.New(apperr.Timeout, "request timed out after %s", formatSeconds(timeout))
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperr.New(apperr.Timeout, "request timed out after %s", formatSeconds(timeout))
	}

	return apperr.Wrap(apperr.ConnectionFailed, err, "failed to connect to %s", c.cfg.URL)
}

func statusError(resp *http.Response, body []byte) error {
	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return nil
	}

	detail := errorDetail(body)
	withDetail := func(msg string) string {
		if detail == "" {
			return msg
		}
		return msg + ": " + detail
	}

	switch {
	case code == http.StatusUnauthorized:
		return apperr.New(apperr.AuthRejected, "%s", withDetail("authentication failed (401): invalid API key"))
	case code == http.StatusForbidden:
		return apperr.New(apperr.AuthRejected, "%s", withDetail("authentication failed (403): API key does not have access to this resource"))
	case code == http.StatusTooManyRequests:
		msg := "rate limited (429)"
		if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
			msg += ", retry after " + ra
		}
		return apperr.New(apperr.RateLimited, "%s", withDetail(msg))
	case code >= 500:
		return apperr.New(apperr.ServerError, "%s", withDetail("server error ("+strconv.Itoa(code)+")"))
	default:
		return apperr.New(apperr.RequestRejected, "%s", withDetail("API error ("+strconv.Itoa(code)+")"))
	}
}

// errorDetail extracts a message from an error body of the form
// {"error":{"message":"..."}}, {"error":"..."}, {"message":"..."} or
// {"detail":"..."}. Non-JSON bodies are returned as-is, truncated.
func errorDetail(body []byte) string {
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
		Detail  string          `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return truncate(string(body))
	}

	var nested struct {
		Message string `json:"message"`
	}
	var flat string
	switch {
	case json.Unmarshal(payload.Error, &nested) == nil && nested.Message != "":
		return truncate(nested.Message)
	case json.Unmarshal(payload.Error, &flat) == nil && flat != "":
		return truncate(flat)
	case payload.Message != "":
		return truncate(payload.Message)
	default:
		return truncate(payload.Detail)
	}
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxErrorDetail {
		cut := maxErrorDetail - 3
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		return s[:cut] + "..."
	}
	return s
}

func decodeResult(data []byte) (*Result, error) {
	var wr wireResponse
	if err := json.Unmarshal(data, &wr); err != nil {
		return nil, apperr.Wrap(apperr.MalformedResponse, err, "invalid JSON response from API")
	}

	switch {
	case wr.Output == nil:
		return nil, apperr.New(apperr.MalformedResponse, "response missing %q", "output")
	case wr.OutputTokens == nil:
		return nil, apperr.New(apperr.MalformedResponse, "response missing %q", "output_tokens")
	case wr.OriginalInputTokens == nil:
		return nil, apperr.New(apperr.MalformedResponse, "response missing %q", "original_input_tokens")
	case *wr.OutputTokens < 0 || *wr.OriginalInputTokens < 0:
		return nil, apperr.New(apperr.MalformedResponse, "response has negative token counts (%d, %d)",
			*wr.OriginalInputTokens, *wr.OutputTokens)
	}

	res := &Result{
		OptimizedText:       *wr.Output,
		OriginalTokenCount:  *wr.OriginalInputTokens,
		OptimizedTokenCount: *wr.OutputTokens,
	}
	if wr.CompressionTime != nil && *wr.CompressionTime > 0 {
		res.CompressionTime = time.Duration(*wr.CompressionTime * float64(time.Second))
	}
	return res, nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + "s"
}
