package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 14, cfg.DueDays)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, int32(8), cfg.DatabaseMaxConns)
	assert.Empty(t, cfg.AdminEmails)
	assert.Empty(t, cfg.ConfigFile)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	file := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
storage: memory
loans:
  due_days: 7
auth:
  jwt_key: from-file
  admin_emails: [Boss@Library.io]
`), 0o600))

	t.Setenv("LIBRALOAN_AUTH_JWT_KEY", "from-env")
	t.Setenv("LIBRALOAN_HTTP_ADDR", ":9090")

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, 7, cfg.DueDays)
	assert.Equal(t, "from-env", cfg.JWTKey)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, []string{"boss@library.io"}, cfg.AdminEmails)
	assert.Equal(t, file, cfg.ConfigFile)
	require.NoError(t, cfg.Validate())
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(".env", []byte("LIBRALOAN_LOANS_DUE_DAYS=3\nLIBRALOAN_AUTH_ADMIN_EMAILS=a@x.io,b@x.io\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("LIBRALOAN_LOANS_DUE_DAYS")
		os.Unsetenv("LIBRALOAN_AUTH_ADMIN_EMAILS")
	})

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.DueDays)
	assert.Equal(t, []string{"a@x.io", "b@x.io"}, cfg.AdminEmails)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{JWTKey: "k", DueDays: 14, Storage: StorageMemory}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name string
		edit func(*Config)
	}{
		{"missing jwt key", func(c *Config) { c.JWTKey = "" }},
		{"zero due days", func(c *Config) { c.DueDays = 0 }},
		{"unknown storage", func(c *Config) { c.Storage = "mongo" }},
		{"postgres without dsn", func(c *Config) { c.Storage = StoragePostgres; c.DatabaseDSN = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.edit(&c)
			assert.Error(t, c.Validate())
		})
	}
}
