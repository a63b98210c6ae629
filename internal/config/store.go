package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bimmerbailey/tokenoptimizer/internal/apperr"
)

const (
	appDirName     = "tokenoptimizer"
	configFileName = "config"
)

// Record is the persisted credential.
type Record struct {
	APIKey string `toml:"api_key"`
}

// Store reads and writes the single credential record at a fixed path.
//
// Writes go to a temporary file in the same directory which is then renamed
// over the target, so a crash mid-write never leaves a torn file. Two
// concurrent Saves are not serialized; whichever rename lands last wins.
type Store struct {
	path string
}

// NewStore returns a Store rooted at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns $XDG_CONFIG_HOME/tokenoptimizer/config, falling back to
// ~/.config/tokenoptimizer/config. It only consults the environment.
func DefaultPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" && filepath.IsAbs(xdg) {
		return filepath.Join(xdg, appDirName, configFileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".config", appDirName, configFileName), nil
}

// Path returns the credential file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored record, or nil when no file exists.
func (s *Store) Load() (*Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.ConfigCorrupt, err, "cannot read config file %s", s.path)
	}

	var rec Record
	if _, err := toml.Decode(string(data), &rec); err != nil {
		if key, ok := bareKey(data); ok {
			return &Record{APIKey: key}, nil
		}
		return nil, apperr.Wrap(apperr.ConfigCorrupt, err,
			"config file %s is malformed (inspect or delete it with 'tokenoptimizer auth delete')", s.path)
	}

	rec.APIKey = strings.TrimSpace(rec.APIKey)
	if rec.APIKey == "" {
		return nil, apperr.New(apperr.ConfigCorrupt,
			"config file %s has no api_key (inspect or delete it with 'tokenoptimizer auth delete')", s.path)
	}

	return &rec, nil
}

// bareKey accepts the plain-text format of earlier releases: a single line
// holding only the key.
func bareKey(data []byte) (string, bool) {
	key := strings.TrimSpace(string(data))
	if key == "" || strings.ContainsAny(key, " \t\r\n=\"'[]#") {
		return "", false
	}
	return key, true
}

// Save atomically replaces the stored record. The file is readable only by
// the owning user.
func (s *Store) Save(rec Record) error {
	rec.APIKey = strings.TrimSpace(rec.APIKey)
	if rec.APIKey == "" {
		return apperr.New(apperr.Usage, "API key cannot be empty")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(rec); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+configFileName+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary config file: %w", err)
	}
	tmpPath := tmp.Name()

	// Write, chmod, sync, close. On any failure remove the temporary file
	// and report the first error.
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temporary config file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("restricting temporary config file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing temporary config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing config file: %w", err)
	}

	return nil
}

// Delete removes the stored record. It reports whether a file was removed;
// a missing file is not an error.
func (s *Store) Delete() (bool, error) {
	err := os.Remove(s.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("removing config file: %w", err)
}
