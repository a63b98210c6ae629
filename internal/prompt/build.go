package prompt

import (
	"errors"
	"io"
	"io/fs"
	"math"
	"os"
	"strings"
	"time"

	"github.com/bimmerbailey/tokenoptimizer/internal/api"
	"github.com/bimmerbailey/tokenoptimizer/internal/apperr"
)

// MaxTimeoutSeconds caps --timeout at one day.
const MaxTimeoutSeconds = 86400

// Build validates opts, reads the prompt from src and returns the request.
//
// Every error is an apperr validation kind: InvalidAggressiveness,
// InvalidTokenLimits, InvalidTimeout, FileReadError, NoInput or EmptyInput.
func Build(src Source, opts Options) (api.Request, error) {
	if err := validateOptions(opts); err != nil {
		return api.Request{}, err
	}

	text, err := readInput(src)
	if err != nil {
		return api.Request{}, err
	}

	if strings.TrimSpace(text) == "" {
		return api.Request{}, apperr.New(apperr.EmptyInput, "input text is empty")
	}

	return api.Request{
		Text:           text,
		Aggressiveness: opts.Aggressiveness,
		MaxTokens:      copyInt(opts.MaxTokens),
		MinTokens:      copyInt(opts.MinTokens),
		Timeout:        time.Duration(opts.TimeoutSeconds) * time.Second,
	}, nil
}

func validateOptions(opts Options) error {
	if err := ValidateAggressiveness(opts.Aggressiveness); err != nil {
		return err
	}
	if err := ValidateTokenLimits(opts.MaxTokens, opts.MinTokens); err != nil {
		return err
	}
	if opts.TimeoutSeconds <= 0 || opts.TimeoutSeconds > MaxTimeoutSeconds {
		return apperr.New(apperr.InvalidTimeout,
			"timeout must be between 1 and %d seconds, got %d", MaxTimeoutSeconds, opts.TimeoutSeconds)
	}
	return nil
}

// ValidateAggressiveness requires v to be within [0.0, 1.0].
func ValidateAggressiveness(v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return apperr.New(apperr.InvalidAggressiveness, "aggressiveness must be between 0.0 and 1.0, got %v", v)
	}
	return nil
}

// ValidateTokenLimits requires set limits to be positive and max >= min.
func ValidateTokenLimits(maxTokens, minTokens *int) error {
	if maxTokens != nil && *maxTokens <= 0 {
		return apperr.New(apperr.InvalidTokenLimits, "max tokens must be a positive integer, got %d", *maxTokens)
	}
	if minTokens != nil && *minTokens <= 0 {
		return apperr.New(apperr.InvalidTokenLimits, "min tokens must be a positive integer, got %d", *minTokens)
	}
	if maxTokens != nil && minTokens != nil && *maxTokens < *minTokens {
		return apperr.New(apperr.InvalidTokenLimits,
			"max tokens (%d) must be greater than or equal to min tokens (%d)", *maxTokens, *minTokens)
	}
	return nil
}

func readInput(src Source) (string, error) {
	switch {
	case len(src.Args) > 0:
		return strings.Join(src.Args, " "), nil

	case src.File != "":
		data, err := os.ReadFile(src.File)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", apperr.Wrap(apperr.FileReadError, err, "file not found: %s", src.File)
			}
			return "", apperr.Wrap(apperr.FileReadError, err, "failed to read file %s", src.File)
		}
		return string(data), nil

	case src.Stdin != nil && !src.StdinIsTerminal:
		data, err := io.ReadAll(src.Stdin)
		if err != nil {
			return "", apperr.Wrap(apperr.FileReadError, err, "failed to read stdin")
		}
		return string(data), nil

	default:
		return "", apperr.New(apperr.NoInput,
			"no input provided; pass the prompt as an argument, use --file, or pipe it via stdin")
	}
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
