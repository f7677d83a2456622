package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultPollInterval   = 5 * time.Second
	DefaultTimeout        = 10 * time.Second
	DefaultHTTPPort       = 8080
	DefaultSnapshotTTL    = 5 * time.Minute
	DefaultStreamInterval = 5 * time.Second
	DefaultHistoryPath    = "pipewatch.db"
	DefaultRetention      = 30 * 24 * time.Hour
)

// Backend modes.
const (
	ModeLive    = "live"
	ModeFixture = "fixture"
)

// History backends.
const (
	HistorySynthetic = "synthetic"
	HistorySQLite    = "sqlite"
)

// Config is the top-level configuration of the dashboard service.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Server  ServerConfig  `yaml:"server"`
	History HistoryConfig `yaml:"history"`
	Alerts  AlertsConfig  `yaml:"alerts"`
}

// BackendConfig describes the ingestion backend being monitored.
type BackendConfig struct {
	// Endpoint is the base URL; /stats and /jobs are appended to it.
	Endpoint string `yaml:"endpoint"`

	// Mode is one of: live | fixture. Fixture never contacts the backend.
	Mode string `yaml:"mode"`

	// FallbackToFixture substitutes the built-in dataset when a live poll fails.
	// A pointer so an explicit false survives the defaulting step.
	FallbackToFixture *bool `yaml:"fallback_to_fixture"`

	// PollInterval controls how often the backend is polled.
	PollInterval time.Duration `yaml:"poll_interval"`

	// Timeout bounds one poll cycle (both requests).
	Timeout time.Duration `yaml:"timeout"`

	// Auth configures how requests to the backend are authenticated.
	Auth AuthConfig `yaml:"auth"`

	// TLS holds optional TLS dial options.
	TLS TLSConfig `yaml:"tls"`
}

// Fallback reports whether fixture fallback is enabled. Defaults to true.
func (b BackendConfig) Fallback() bool {
	return b.FallbackToFixture == nil || *b.FallbackToFixture
}

// AuthConfig specifies the authentication mode for the backend.
type AuthConfig struct {
	// Mode is one of: mtls | apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	// mTLS fields, used when Mode == "mtls".
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	// Header is the HTTP header the API key is sent in. Defaults to X-API-Key.
	Header string `yaml:"header"`
	// KeyEnv is the environment variable holding the API key.
	KeyEnv string `yaml:"key_env"`

	// TokenEnv is the environment variable holding the bearer token.
	TokenEnv string `yaml:"token_env"`

	// Username is the literal basic-auth user.
	Username string `yaml:"username"`
	// PasswordEnv is the environment variable holding the basic-auth password.
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string { return env(a.KeyEnv) }

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string { return env(a.TokenEnv) }

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string { return env(a.PasswordEnv) }

// TLSConfig holds TLS dial options for the backend.
type TLSConfig struct {
	// InsecureSkipVerify disables certificate verification. Development only.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// ServerConfig holds the dashboard's own HTTP listener settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, /metrics and the WebSocket hub share.
	HTTPPort int `yaml:"http_port"`

	// Auth protects /api/ and /ws/.
	Auth ServerAuthConfig `yaml:"auth"`

	// Snapshot controls when the held snapshot is reported stale.
	Snapshot SnapshotConfig `yaml:"snapshot"`

	// StreamInterval is how often WebSocket clients receive a snapshot.
	StreamInterval time.Duration `yaml:"stream_interval"`
}

// ServerAuthConfig configures API authentication for dashboard clients.
type ServerAuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the environment variable holding the expected API key.
	KeyEnv string `yaml:"key_env"`

	// Header is the request header carrying the key. Defaults to x-api-key.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a ServerAuthConfig) Key() string { return env(a.KeyEnv) }

// EffectiveHeader returns the configured header name, or "x-api-key".
func (a ServerAuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// SnapshotConfig controls snapshot freshness.
type SnapshotConfig struct {
	// TTL is how old the latest snapshot may get before the API flags it stale.
	TTL time.Duration `yaml:"ttl"`
}

// HistoryConfig selects where chart series come from.
type HistoryConfig struct {
	// Backend is one of: synthetic | sqlite.
	Backend string `yaml:"backend"`

	// Path is the SQLite database file. ":memory:" keeps it in process.
	Path string `yaml:"path"`

	// Retention is how long samples are kept before pruning.
	Retention time.Duration `yaml:"retention"`
}

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold condition evaluated per source.
type AlertRule struct {
	// Name is the alert identifier, used with the source id as the dedup key.
	Name string `yaml:"name"`

	// Condition is "field op value", e.g. "coverage_pct < 80" or "state == demo".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires after an alert fires. 15m when zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string { return env(w.URLEnv) }

func env(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Backend: BackendConfig{
			Mode:         ModeLive,
			PollInterval: DefaultPollInterval,
			Timeout:      DefaultTimeout,
		},
		Server: ServerConfig{
			HTTPPort:       DefaultHTTPPort,
			Snapshot:       SnapshotConfig{TTL: DefaultSnapshotTTL},
			StreamInterval: DefaultStreamInterval,
		},
		History: HistoryConfig{
			Backend:   HistorySynthetic,
			Path:      DefaultHistoryPath,
			Retention: DefaultRetention,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	b := cfg.Backend
	switch b.Mode {
	case ModeLive:
		if b.Endpoint == "" {
			return fmt.Errorf("backend.endpoint is required in live mode")
		}
		u, err := url.Parse(b.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("backend.endpoint %q must be an http(s) URL", b.Endpoint)
		}
	case ModeFixture:
	default:
		return fmt.Errorf("backend.mode %q unknown: want live|fixture", b.Mode)
	}
	if b.PollInterval <= 0 {
		return fmt.Errorf("backend.poll_interval must be positive")
	}
	if b.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive")
	}
	switch b.Auth.Mode {
	case "mtls", "apikey", "bearer", "basic", "none", "":
	default:
		return fmt.Errorf("backend.auth.mode %q unknown: want mtls|apikey|bearer|basic|none", b.Auth.Mode)
	}
	if b.Auth.Mode == "mtls" && (b.Auth.CertFile == "" || b.Auth.KeyFile == "") {
		return fmt.Errorf("backend.auth: mtls requires cert_file and key_file")
	}

	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch s.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", s.Auth.Mode)
	}
	if s.Snapshot.TTL < 0 {
		return fmt.Errorf("server.snapshot.ttl must not be negative")
	}
	if s.StreamInterval <= 0 {
		return fmt.Errorf("server.stream_interval must be positive")
	}

	switch cfg.History.Backend {
	case HistorySynthetic:
	case HistorySQLite:
		if cfg.History.Path == "" {
			return fmt.Errorf("history.path is required for the sqlite backend")
		}
		if cfg.History.Retention <= 0 {
			return fmt.Errorf("history.retention must be positive")
		}
	default:
		return fmt.Errorf("history.backend %q unknown: want synthetic|sqlite", cfg.History.Backend)
	}

	for i, r := range cfg.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("alerts.rules[%d]: name is required", i)
		}
		if r.Condition == "" {
			return fmt.Errorf("alerts.rules[%d] %q: condition is required", i, r.Name)
		}
		switch r.Severity {
		case "critical", "warning", "info", "":
		default:
			return fmt.Errorf("alerts.rules[%d] %q: unknown severity %q", i, r.Name, r.Severity)
		}
	}
	for i, w := range cfg.Alerts.Webhooks {
		switch w.Type {
		case "teams", "slack", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: unknown type %q", i, w.Type)
		}
	}
	return nil
}
