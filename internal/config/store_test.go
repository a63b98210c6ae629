package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/bimmerbailey/tokenoptimizer/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "tokenoptimizer", "config"))
}

func TestStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save(Record{APIKey: "X"}))

	rec, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "X", rec.APIKey)

	removed, err := s.Delete()
	require.NoError(t, err)
	assert.True(t, removed)

	rec, err = s.Load()
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestStoreLoadMissingIsAbsent(t *testing.T) {
	s := newTestStore(t)

	rec, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(Record{APIKey: "X"}))

	removed, err := s.Delete()
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Delete()
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestStoreSaveOverwrites(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(Record{APIKey: "first"}))
	require.NoError(t, s.Save(Record{APIKey: "  second\n"}))

	rec, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "second", rec.APIKey)
}

func TestStoreSaveFileModeAndNoLeftovers(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	s := newTestStore(t)
	require.NoError(t, s.Save(Record{APIKey: "secret-key"}))

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Dir(s.Path()))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
	assert.Equal(t, "config", entries[0].Name())
}

func TestStoreSaveWritesKeyValueFormat(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(Record{APIKey: "abc123"}))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, `api_key = "abc123"`, strings.TrimSpace(string(data)))
}

func TestStoreSaveRejectsEmptyKey(t *testing.T) {
	s := newTestStore(t)

	err := s.Save(Record{APIKey: "   "})
	require.Error(t, err)

	_, statErr := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(statErr), "nothing should be written for an empty key")
}

func TestStoreLoadPlainTextKey(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o700))
	require.NoError(t, os.WriteFile(s.Path(), []byte("sk-legacy-123\n"), 0o600))

	rec, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "sk-legacy-123", rec.APIKey)

	require.NoError(t, s.Save(*rec))
	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, `api_key = "sk-legacy-123"`, strings.TrimSpace(string(data)))
}

func TestStoreLoadCorrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not toml", "this is = = not toml"},
		{"unterminated string", `api_key = "abc`},
		{"missing key", `other = "value"`},
		{"empty key", `api_key = ""`},
		{"two bare lines", "first\nsecond"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o700))
			require.NoError(t, os.WriteFile(s.Path(), []byte(tt.content), 0o600))

			rec, err := s.Load()
			require.Error(t, err)
			assert.Nil(t, rec)
			assert.True(t, apperr.Is(err, apperr.ConfigCorrupt), "kind = %v", apperr.KindOf(err))
			assert.Contains(t, err.Error(), s.Path())
		})
	}
}

func TestStorePathIsPure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never", "created", "config")
	s := NewStore(path)

	assert.Equal(t, path, s.Path())
	_, err := os.Stat(filepath.Dir(path))
	assert.True(t, os.IsNotExist(err))
}

func TestDefaultPath(t *testing.T) {
	t.Run("xdg config home", func(t *testing.T) {
		xdg := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", xdg)

		path, err := DefaultPath()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(xdg, "tokenoptimizer", "config"), path)
	})

	t.Run("home fallback", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("HOME", home)
		t.Setenv("USERPROFILE", home)

		path, err := DefaultPath()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".config", "tokenoptimizer", "config"), path)
	})
}
