package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ODOO_URL", "https://odoo.example.com")
	t.Setenv("ODOO_DB", "prod")
	t.Setenv("ODOO_USERNAME", "admin")
	t.Setenv("ODOO_PASSWORD", "secret")
}

func TestFromEnv_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://odoo.example.com", cfg.Upstream.URL)
	assert.Equal(t, 120*time.Second, cfg.Upstream.Timeout())
	assert.Equal(t, "18.0", cfg.Upstream.Version)
	assert.Equal(t, "xmlrpc2", cfg.Upstream.EndpointMode())
	assert.Equal(t, 300, cfg.Cache.TTLSeconds)
	assert.Equal(t, 1000, cfg.Cache.MaxSize)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestFromEnv_MissingRequired(t *testing.T) {
	t.Setenv("ODOO_URL", "")
	t.Setenv("ODOO_DB", "")
	t.Setenv("ODOO_USERNAME", "")
	t.Setenv("ODOO_PASSWORD", "")
	t.Setenv("ODOO_API_KEY", "")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url is required")
	assert.Contains(t, err.Error(), "database is required")
	assert.Contains(t, err.Error(), "username is required")
	assert.Contains(t, err.Error(), "password or api_key")
}

func TestValidate_URLScheme(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ODOO_URL", "ftp://odoo.example.com")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http:// or https://")
}

func TestValidate_UnsupportedVersion(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ODOO_VERSION", "12.0")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported version")
}

func TestCredential_PrefersAPIKey(t *testing.T) {
	u := Upstream{Password: "pass", APIKey: "key"}
	assert.Equal(t, "key", u.Credential())

	u = Upstream{Password: "pass"}
	assert.Equal(t, "pass", u.Credential())
}

func TestFromYAML(t *testing.T) {
	t.Setenv("TEST_ODOO_SECRET", "from-env")

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
upstream:
  url: https://odoo.example.com
  database: prod
  username: admin
  password: ${TEST_ODOO_SECRET}
  version: "19.0"
cache:
  enabled: false
  ttl: 60
  flush_on_write: true
log:
  level: debug
`), 0o600))

	cfg, err := FromYAML(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Upstream.Password, "env references expand in YAML values")
	assert.Equal(t, "19.0", cfg.Upstream.Version)
	assert.Equal(t, "xmlrpc2", cfg.Upstream.EndpointMode())
	assert.Equal(t, 120, cfg.Upstream.TimeoutSeconds, "defaults apply to omitted fields")
	assert.Equal(t, "debug", cfg.Log.Level)

	policy := cfg.CachePolicy()
	assert.False(t, policy.Enabled)
	assert.Equal(t, time.Minute, policy.DefaultTTL)
	assert.True(t, policy.FlushOnWrite)
}

func TestLoad_ExplicitConfigFileMissing(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yml"))

	_, err := Load()
	require.Error(t, err, "a named config file that cannot be read must not fall back to env")
	assert.Contains(t, err.Error(), "CONFIG_FILE")
}

func TestLoad_ExplicitConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
upstream:
  url: https://odoo.example.com
  database: prod
  username: admin
  password: secret
`), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Upstream.Database)
}

func TestCachePolicy_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	policy := cfg.CachePolicy()
	assert.True(t, policy.Enabled, "caching is on unless explicitly disabled")
	assert.Equal(t, 5*time.Minute, policy.DefaultTTL)
	assert.Equal(t, 1000, policy.MaxSize)
}

func TestEndpoint_VerifySSLDefaultsOn(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Endpoint().VerifySSL)

	t.Setenv("ODOO_VERIFY_SSL", "false")
	cfg, err = FromEnv()
	require.NoError(t, err)
	assert.False(t, cfg.Endpoint().VerifySSL)
}
