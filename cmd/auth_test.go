package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bimmerbailey/tokenoptimizer/internal/apperr"
	"github.com/bimmerbailey/tokenoptimizer/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthSet_WithKeyFlag(t *testing.T) {
	te := newTestEnv(t)

	require.NoError(t, te.run("auth", "set", "--key", "abc123"))

	rec, err := te.store.Load()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "abc123", rec.APIKey)
	assert.Contains(t, te.stderr.String(), "API key saved to "+te.store.Path())
	assert.NotContains(t, te.stderr.String(), "takes precedence")
}

func TestAuthSet_FromStdin(t *testing.T) {
	te := newTestEnv(t)
	te.pipe("  piped-key  \n")

	require.NoError(t, te.run("auth", "set"))

	rec, err := te.store.Load()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "piped-key", rec.APIKey)
	assert.Contains(t, te.stderr.String(), "Enter your API key: ")
}

func TestAuthSet_EmptyKey(t *testing.T) {
	te := newTestEnv(t)
	te.pipe("\n")

	err := te.run("auth", "set")
	require.Error(t, err)
	assert.Equal(t, apperr.Usage, apperr.KindOf(err))

	_, statErr := os.Stat(te.store.Path())
	assert.True(t, os.IsNotExist(statErr), "nothing should be written")
}

func TestAuthSet_WarnsWhenEnvironmentOverrides(t *testing.T) {
	te := newTestEnv(t)
	te.env[config.EnvAPIKey] = "from-env"

	require.NoError(t, te.run("auth", "set", "-k", "abc123"))
	assert.Contains(t, te.stderr.String(), config.EnvAPIKey+" is set and takes precedence")
}

func TestAuthShow(t *testing.T) {
	t.Run("nothing configured", func(t *testing.T) {
		te := newTestEnv(t)

		require.NoError(t, te.run("auth", "show"))
		assert.Contains(t, te.stdout.String(), "No API key configured")
	})

	t.Run("stored key is masked", func(t *testing.T) {
		te := newTestEnv(t)
		require.NoError(t, te.store.Save(config.Record{APIKey: "abcd1234efgh"}))

		require.NoError(t, te.run("auth", "show"))
		out := te.stdout.String()
		assert.Contains(t, out, "API key: abcd****efgh")
		assert.Contains(t, out, "Source: config file")
		assert.Contains(t, out, "Config file: "+te.store.Path())
		assert.NotContains(t, out, "abcd1234efgh")
	})

	t.Run("environment wins over stored key", func(t *testing.T) {
		te := newTestEnv(t)
		require.NoError(t, te.store.Save(config.Record{APIKey: "abcd1234efgh"}))
		te.env[config.EnvAPIKey] = "envkey"

		require.NoError(t, te.run("auth", "show"))
		assert.Contains(t, te.stdout.String(), "API key: ******")
		assert.Contains(t, te.stdout.String(), "Source: environment")
	})

	t.Run("corrupt config file", func(t *testing.T) {
		te := newTestEnv(t)
		require.NoError(t, os.MkdirAll(filepath.Dir(te.store.Path()), 0o700))
		require.NoError(t, os.WriteFile(te.store.Path(), []byte("api_key = [broken"), 0o600))

		err := te.run("auth", "show")
		require.Error(t, err)
		assert.Equal(t, apperr.ExitConfigCorrupt, apperr.ExitCode(err))
	})
}

func TestAuthDelete(t *testing.T) {
	te := newTestEnv(t)

	require.NoError(t, te.run("auth", "delete"))
	assert.Contains(t, te.stderr.String(), "No stored API key found")

	require.NoError(t, te.store.Save(config.Record{APIKey: "abc123"}))
	te.stderr.Reset()

	require.NoError(t, te.run("auth", "delete"))
	assert.Contains(t, te.stderr.String(), "API key deleted")

	rec, err := te.store.Load()
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestAuthPath(t *testing.T) {
	te := newTestEnv(t)

	require.NoError(t, te.run("auth", "path"))
	assert.Equal(t, te.store.Path()+"\n", te.stdout.String())
}

func TestAuth_BadAction(t *testing.T) {
	for _, args := range [][]string{{"auth"}, {"auth", "rotate"}} {
		te := newTestEnv(t)

		err := te.run(args...)
		require.Error(t, err)
		assert.Equal(t, apperr.Usage, apperr.KindOf(err))
	}
}

func TestAuthCommands_NeverCallTheService(t *testing.T) {
	te := newTestEnv(t)

	require.NoError(t, te.run("auth", "set", "-k", "abc123"))
	require.NoError(t, te.run("auth", "show"))
	require.NoError(t, te.run("auth", "delete"))
	assert.Zero(t, te.optimizer.calls)
}
