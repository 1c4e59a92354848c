package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/erpgate/cache"
	"github.com/jonwraymond/erpgate/gateway"
)

// supportedVersions are the upstream versions the proxy knows how to
// address. Both currently map to the xmlrpc2 endpoint mode.
var supportedVersions = map[string]string{
	"18.0": "xmlrpc2",
	"19.0": "xmlrpc2",
}

// Upstream configures the connection to the remote system.
type Upstream struct {
	URL      string `yaml:"url"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	APIKey   string `yaml:"api_key"`
	// TimeoutSeconds bounds each upstream request. Defaults to 120.
	TimeoutSeconds int    `yaml:"timeout"`
	Version        string `yaml:"version"`
	VerifySSL      *bool  `yaml:"verify_ssl"`
}

// Credential returns the API key when set, otherwise the password.
func (u Upstream) Credential() string {
	if u.APIKey != "" {
		return u.APIKey
	}
	return u.Password
}

// Timeout returns the per-request timeout as a duration.
func (u Upstream) Timeout() time.Duration {
	return time.Duration(u.TimeoutSeconds) * time.Second
}

// EndpointMode returns the wire mode derived from the version.
func (u Upstream) EndpointMode() string {
	return supportedVersions[u.Version]
}

// CacheSettings configures the result cache.
type CacheSettings struct {
	Enabled      *bool `yaml:"enabled"`
	TTLSeconds   int   `yaml:"ttl"`
	MaxSize      int   `yaml:"max_size"`
	FlushOnWrite bool  `yaml:"flush_on_write"`
}

// Log configures the logging sink.
type Log struct {
	Level string `yaml:"level"`
}

// Config is the root configuration.
type Config struct {
	Upstream Upstream      `yaml:"upstream"`
	Cache    CacheSettings `yaml:"cache"`
	Log      Log           `yaml:"log"`
}

// Load reads configuration from the file named by CONFIG_FILE when it
// exists, falling back to environment variables. A .env file in the
// working directory is applied first, if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		// An explicitly named file that cannot be read is a startup
		// error, never a silent fallback to the environment.
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: CONFIG_FILE %s: %w", path, err)
		}
		return FromYAML(path)
	}
	if _, err := os.Stat("config.yml"); err == nil {
		return FromYAML("config.yml")
	}
	return FromEnv()
}

// FromEnv builds configuration from environment variables.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Upstream: Upstream{
			URL:            os.Getenv("ODOO_URL"),
			Database:       os.Getenv("ODOO_DB"),
			Username:       os.Getenv("ODOO_USERNAME"),
			Password:       os.Getenv("ODOO_PASSWORD"),
			APIKey:         os.Getenv("ODOO_API_KEY"),
			TimeoutSeconds: envInt("ODOO_TIMEOUT", 120),
			Version:        envDefault("ODOO_VERSION", "18.0"),
			VerifySSL:      envBoolPtr("ODOO_VERIFY_SSL"),
		},
		Cache: CacheSettings{
			Enabled:      envBoolPtr("CACHE_ENABLED"),
			TTLSeconds:   envInt("CACHE_TTL", 300),
			MaxSize:      envInt("CACHE_MAX_SIZE", 1000),
			FlushOnWrite: os.Getenv("CACHE_FLUSH_ON_WRITE") == "true",
		},
		Log: Log{
			Level: envDefault("LOG_LEVEL", "info"),
		},
	}
	return cfg, cfg.Validate()
}

// FromYAML builds configuration from a YAML file. ${VAR} references in
// values expand from the environment.
func FromYAML(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	expanded := os.Expand(string(raw), func(name string) string {
		return os.Getenv(name)
	})

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, cfg.Validate()
}

func (c *Config) applyDefaults() {
	if c.Upstream.TimeoutSeconds == 0 {
		c.Upstream.TimeoutSeconds = 120
	}
	if c.Upstream.Version == "" {
		c.Upstream.Version = "18.0"
	}
	if c.Cache.TTLSeconds == 0 {
		c.Cache.TTLSeconds = 300
	}
	if c.Cache.MaxSize == 0 {
		c.Cache.MaxSize = 1000
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	var errs []error

	u := c.Upstream
	switch {
	case u.URL == "":
		errs = append(errs, errors.New("config: upstream url is required"))
	case !strings.HasPrefix(u.URL, "http://") && !strings.HasPrefix(u.URL, "https://"):
		errs = append(errs, fmt.Errorf("config: upstream url %q must start with http:// or https://", u.URL))
	}
	if u.Database == "" {
		errs = append(errs, errors.New("config: upstream database is required"))
	}
	if u.Username == "" {
		errs = append(errs, errors.New("config: upstream username is required"))
	}
	if u.Password == "" && u.APIKey == "" {
		errs = append(errs, errors.New("config: either password or api_key is required"))
	}
	if u.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("config: timeout must be positive"))
	}
	if _, ok := supportedVersions[u.Version]; !ok {
		errs = append(errs, fmt.Errorf("config: unsupported version %q", u.Version))
	}
	if c.Cache.TTLSeconds < 0 {
		errs = append(errs, errors.New("config: cache ttl must be non-negative"))
	}
	if c.Cache.MaxSize < 0 {
		errs = append(errs, errors.New("config: cache max size must be non-negative"))
	}

	return errors.Join(errs...)
}

// CachePolicy converts the cache settings into a cache.Policy.
func (c *Config) CachePolicy() cache.Policy {
	p := cache.DefaultPolicy()
	if c.Cache.Enabled != nil {
		p.Enabled = *c.Cache.Enabled
	}
	p.DefaultTTL = time.Duration(c.Cache.TTLSeconds) * time.Second
	p.MaxSize = c.Cache.MaxSize
	p.FlushOnWrite = c.Cache.FlushOnWrite
	return p
}

// Endpoint converts the upstream settings into a gateway endpoint
// configuration.
func (c *Config) Endpoint() gateway.EndpointConfig {
	verify := true
	if c.Upstream.VerifySSL != nil {
		verify = *c.Upstream.VerifySSL
	}
	return gateway.EndpointConfig{
		URL:       strings.TrimRight(c.Upstream.URL, "/"),
		Timeout:   c.Upstream.Timeout(),
		VerifySSL: verify,
	}
}

// Gateway converts the upstream settings into a gateway session config.
func (c *Config) Gateway() gateway.Config {
	return gateway.Config{
		Database:   c.Upstream.Database,
		Username:   c.Upstream.Username,
		Credential: c.Upstream.Credential(),
	}
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBoolPtr(key string) *bool {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b := v == "true" || v == "1"
	return &b
}
