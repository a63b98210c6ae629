// Package auth resolves the API key used for a single invocation.
//
// Sources are consulted in a fixed order and the first non-empty one wins:
//
//  1. an explicit key passed for this invocation (--api-key)
//  2. the TOKENOPTIMIZER_API_KEY environment variable
//  3. the record held by the config store
package auth

import (
	"os"
	"strings"

	"github.com/bimmerbailey/tokenoptimizer/internal/apperr"
	"github.com/bimmerbailey/tokenoptimizer/internal/config"
)

// Source identifies where an effective credential came from.
type Source int

const (
	SourceNone Source = iota
	SourceExplicit
	SourceEnvironment
	SourceConfigFile
)

// String returns a human-readable source name.
func (s Source) String() string {
	switch s {
	case SourceExplicit:
		return "flag"
	case SourceEnvironment:
		return "environment"
	case SourceConfigFile:
		return "config file"
	default:
		return "none"
	}
}

// RecordLoader is the part of config.Store the resolver needs.
type RecordLoader interface {
	Load() (*config.Record, error)
}

// Credential is the effective API key for one invocation.
type Credential struct {
	Key    string
	Source Source
}

// Resolver merges the credential sources.
type Resolver struct {
	Store  RecordLoader
	Getenv func(string) string
}

// NewResolver returns a Resolver over store. A nil getenv reads the process
// environment.
func NewResolver(store RecordLoader, getenv func(string) string) *Resolver {
	if getenv == nil {
		getenv = os.Getenv
	}
	return &Resolver{Store: store, Getenv: getenv}
}

// Resolve returns the highest-precedence non-empty credential. The store is
// only read when neither the explicit key nor the environment supplies one,
// so a corrupt config file cannot block an override.
func (r *Resolver) Resolve(explicit string) (Credential, error) {
	if key := strings.TrimSpace(explicit); key != "" {
		return Credential{Key: key, Source: SourceExplicit}, nil
	}

	if r.Getenv != nil {
		if key := strings.TrimSpace(r.Getenv(config.EnvAPIKey)); key != "" {
			return Credential{Key: key, Source: SourceEnvironment}, nil
		}
	}

	if r.Store != nil {
		rec, err := r.Store.Load()
		if err != nil {
			return Credential{}, err
		}
		if rec != nil {
			if key := strings.TrimSpace(rec.APIKey); key != "" {
				return Credential{Key: key, Source: SourceConfigFile}, nil
			}
		}
	}

	return Credential{}, apperr.New(apperr.NoCredential,
		"no API key configured; run 'tokenoptimizer auth set' or set %s", config.EnvAPIKey)
}

// Mask hides all but the first and last four characters of keys longer than
// eight characters; shorter keys are hidden entirely.
func Mask(key string) string {
	if len(key) > 8 {
		return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
	}
	return strings.Repeat("*", len(key))
}
