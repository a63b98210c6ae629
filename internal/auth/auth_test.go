package auth

import (
	"testing"

	"github.com/bimmerbailey/tokenoptimizer/internal/apperr"
	"github.com/bimmerbailey/tokenoptimizer/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	rec   *config.Record
	err   error
	loads int
}

func (f *fakeStore) Load() (*config.Record, error) {
	f.loads++
	return f.rec, f.err
}

func envWith(vals map[string]string) func(string) string {
	return func(k string) string { return vals[k] }
}

func TestResolvePrecedence(t *testing.T) {
	tests := []struct {
		name       string
		explicit   string
		env        string
		stored     string
		wantKey    string
		wantSource Source
		wantErr    bool
	}{
		{"explicit wins over all", "E", "V", "S", "E", SourceExplicit, false},
		{"env wins over stored", "", "V", "S", "V", SourceEnvironment, false},
		{"stored only", "", "", "S", "S", SourceConfigFile, false},
		{"explicit over stored", "E", "", "S", "E", SourceExplicit, false},
		{"whitespace explicit is empty", "   ", "V", "", "V", SourceEnvironment, false},
		{"whitespace env is empty", "", " \t", "S", "S", SourceConfigFile, false},
		{"values are trimmed", " E \n", "", "", "E", SourceExplicit, false},
		{"nothing set", "", "", "", "", SourceNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			if tt.stored != "" {
				store.rec = &config.Record{APIKey: tt.stored}
			}
			r := &Resolver{
				Store:  store,
				Getenv: envWith(map[string]string{config.EnvAPIKey: tt.env}),
			}

			cred, err := r.Resolve(tt.explicit)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperr.Is(err, apperr.NoCredential), "kind = %v", apperr.KindOf(err))
				assert.Contains(t, err.Error(), "tokenoptimizer auth set")
				assert.Contains(t, err.Error(), config.EnvAPIKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, cred.Key)
			assert.Equal(t, tt.wantSource, cred.Source)
		})
	}
}

func TestResolveSkipsStoreWhenOverridden(t *testing.T) {
	store := &fakeStore{err: apperr.New(apperr.ConfigCorrupt, "broken")}
	r := &Resolver{Store: store, Getenv: envWith(map[string]string{config.EnvAPIKey: "V"})}

	cred, err := r.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "V", cred.Key)
	assert.Equal(t, 0, store.loads)
}

func TestResolveSurfacesCorruptStore(t *testing.T) {
	store := &fakeStore{err: apperr.New(apperr.ConfigCorrupt, "config file /x is malformed")}
	r := &Resolver{Store: store, Getenv: envWith(nil)}

	_, err := r.Resolve("")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ConfigCorrupt))
}

func TestResolveWithRealStore(t *testing.T) {
	store := config.NewStore(t.TempDir() + "/config")
	require.NoError(t, store.Save(config.Record{APIKey: "S"}))

	r := &Resolver{Store: store, Getenv: envWith(nil)}
	cred, err := r.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "S", cred.Key)
	assert.Equal(t, SourceConfigFile, cred.Source)
}

func TestNewResolverReadsProcessEnvironment(t *testing.T) {
	t.Setenv(config.EnvAPIKey, "from-env")

	cred, err := NewResolver(&fakeStore{}, nil).Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cred.Key)
}

func TestMask(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", ""},
		{"abc", "***"},
		{"12345678", "********"},
		{"123456789", "1234*6789"},
		{"sk-abcdefghijkl", "sk-a*******ijkl"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Mask(tt.key), "Mask(%q)", tt.key)
	}
}

func TestSourceString(t *testing.T) {
	assert.Equal(t, "flag", SourceExplicit.String())
	assert.Equal(t, "environment", SourceEnvironment.String())
	assert.Equal(t, "config file", SourceConfigFile.String())
	assert.Equal(t, "none", SourceNone.String())
}

func TestNewResolverUsesInjectedEnvironment(t *testing.T) {
	t.Setenv(config.EnvAPIKey, "from-process")

	cred, err := NewResolver(&fakeStore{}, envWith(map[string]string{config.EnvAPIKey: "injected"})).Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "injected", cred.Key)
	assert.Equal(t, SourceEnvironment, cred.Source)
}
