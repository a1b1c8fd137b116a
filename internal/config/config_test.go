package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	return NewStore(afero.NewMemMapFs(), "/home/test/.config/sampic")
}

func TestStore_LoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := newTestStore().Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "https://s3.fr-par.scw.cloud", cfg.Endpoint)
	assert.Equal(t, "sampic-store", cfg.Bucket)
	assert.Equal(t, int64(50<<20), cfg.UploadLimit)
}

func TestStore_SetPersists(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.Set("bucket", "shots"))
	require.NoError(t, s.Set("API_KEY", "key-1"))
	require.NoError(t, s.Set("upload_limit", "1024"))

	exists, err := afero.Exists(s.fs, s.Path())
	require.NoError(t, err)
	assert.True(t, exists)

	cfg, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "shots", cfg.Bucket)
	assert.Equal(t, "key-1", cfg.APIKey)
	assert.Equal(t, int64(1024), cfg.UploadLimit)
	assert.Equal(t, "fr-par", cfg.Region)
}

func TestStore_SetWritesOnlyFileKeys(t *testing.T) {
	t.Setenv("SAMPIC_API_SECRET_KEY", "from-env-secret")
	s := newTestStore()
	require.NoError(t, s.Set("bucket", "shots"))
	require.NoError(t, s.Set("region", "nl-ams"))

	data, err := afero.ReadFile(s.fs, s.Path())
	require.NoError(t, err)
	written := string(data)
	assert.Contains(t, written, "region: nl-ams")
	assert.Contains(t, written, "bucket: shots")
	assert.NotContains(t, written, "from-env-secret")
	assert.NotContains(t, written, "api_secret_key")
	assert.NotContains(t, written, "upload_limit")
	assert.NotContains(t, written, "port")

	cfg, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env-secret", cfg.APISecretKey)
	assert.Equal(t, "nl-ams", cfg.Region)
	assert.Equal(t, "shots", cfg.Bucket)
}

func TestStore_SetUnknownKey(t *testing.T) {
	err := newTestStore().Set("colour", "blue")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestStore_List(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.Set("local_path", "/srv/shots"))

	out, err := s.List()
	require.NoError(t, err)
	assert.Contains(t, out, "api_key=\n")
	assert.Contains(t, out, "local_path=/srv/shots\n")
	assert.Contains(t, out, "sampic_endpoint=https://sampic.xyz/upload\n")

	entries, err := s.Entries()
	require.NoError(t, err)
	require.Len(t, entries, len(Keys))
	assert.Equal(t, "api_key", entries[0].Key)
}

func TestStore_EnvOverridesFile(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.Set("bucket", "from-file"))
	t.Setenv("SAMPIC_BUCKET", "from-env")

	cfg, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Bucket)
}

func TestConfig_RequireCredentials(t *testing.T) {
	cfg := Default()
	assert.ErrorIs(t, cfg.RequireCredentials(), ErrAPIKeyNotDefined)

	cfg.APIKey = "k"
	assert.ErrorIs(t, cfg.RequireCredentials(), ErrAPISecretKeyNotDefined)

	cfg.APISecretKey = "s"
	assert.NoError(t, cfg.RequireCredentials())
}

func TestConfig_IsProduction(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.IsProduction())
	cfg.AppEnv = "production"
	assert.True(t, cfg.IsProduction())
}
