// Package api is the client for the remote prompt compression service.
//
// The package defines an Optimizer interface so callers can swap the HTTP
// client for a fake without changing consuming code.
//
// Example usage:
//
//	client, err := api.New(api.Config{URL: cfg.APIURL, Model: cfg.Model}, logger)
//	if err != nil {
//	    return err
//	}
//
//	result, err := client.Submit(ctx, req, cred.Key)
//	if err != nil {
//	    return err // always an *apperr.Error
//	}
//	fmt.Println(result.OptimizedText)
//
// Submit issues exactly one request and never retries. Callers wrapping the
// CLI in a script own retry and backoff; apperr kinds tell them which
// failures are worth retrying.
package api

import (
	"context"
	"time"
)

// Optimizer submits a single optimization request.
type Optimizer interface {
	// Submit sends req authenticated with apiKey. It returns either a
	// complete Result or an error, never both.
	Submit(ctx context.Context, req Request, apiKey string) (*Result, error)
}

// Request is a validated optimization request.
type Request struct {
	// Text is sent as-is; it is known to be non-empty after trimming.
	Text string

	// Aggressiveness is in [0.0, 1.0].
	Aggressiveness float64

	// MaxTokens and MinTokens are optional positive bounds on the output.
	MaxTokens *int
	MinTokens *int

	// Timeout bounds the whole call, including reading the response body.
	Timeout time.Duration
}

// Result is a successful optimization.
type Result struct {
	OptimizedText       string
	OriginalTokenCount  int
	OptimizedTokenCount int

	// CompressionTime is the server-reported processing time.
	CompressionTime time.Duration
}

// TokensSaved is the difference between the original and optimized counts.
func (r *Result) TokensSaved() int {
	return r.OriginalTokenCount - r.OptimizedTokenCount
}

// ReductionRatio is (original - optimized) / original, or 0 when the
// original count is 0.
func (r *Result) ReductionRatio() float64 {
	if r.OriginalTokenCount == 0 {
		return 0
	}
	return float64(r.TokensSaved()) / float64(r.OriginalTokenCount)
}
