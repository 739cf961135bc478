// Package config loads and validates ingestion settings via Viper.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Run store backends accepted by RUN_STORE.
const (
	RunStorePostgres = "postgres"
	RunStoreMemory   = "memory"
)

// Settings is an immutable snapshot of process configuration. Each call to
// Load returns an independent value; nothing is cached between calls.
type Settings struct {
	DatabaseURL string `mapstructure:"database_url"`

	TypefullyAPIKey string `mapstructure:"typefully_api_key"`
	SemrushAPIKey   string `mapstructure:"semrush_api_key"`
	ApifyToken      string `mapstructure:"apify_token"`
	GA4JSONKeyB64   string `mapstructure:"ga4_json_key_b64"`
	GA4PropertyID   string `mapstructure:"ga4_property_id"`

	HTTPTimeoutSeconds int     `mapstructure:"http_timeout_seconds"`
	HTTPMaxRetries     int     `mapstructure:"http_max_retries"`
	BackoffBaseSeconds float64 `mapstructure:"backoff_base_seconds"`
	HTTPRateLimitRPS   float64 `mapstructure:"http_rate_limit_rps"`

	LogDevelopment bool   `mapstructure:"log_development"`
	LogLevel       string `mapstructure:"log_level"`

	RunStore        string `mapstructure:"run_store"`
	PubSubProjectID string `mapstructure:"pubsub_project_id"`
	PubSubTopic     string `mapstructure:"pubsub_topic"`
	PushgatewayURL  string `mapstructure:"pushgateway_url"`
}

// settingKeys lists every key recognised in the environment. Environment
// variable names match these case-insensitively.
var settingKeys = []string{
	"database_url",
	"typefully_api_key",
	"semrush_api_key",
	"apify_token",
	"ga4_json_key_b64",
	"ga4_property_id",
	"http_timeout_seconds",
	"http_max_retries",
	"backoff_base_seconds",
	"http_rate_limit_rps",
	"log_development",
	"log_level",
	"run_store",
	"pubsub_project_id",
	"pubsub_topic",
	"pushgateway_url",
}

// Load resolves Settings from the process environment and, when path is
// non-empty, a config file. Environment values take precedence over the file.
func Load(path string) (Settings, error) {
	return LoadFrom(os.Environ(), path)
}

// LoadFrom resolves Settings from an explicit environment in KEY=VALUE form.
func LoadFrom(environ []string, path string) (Settings, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, &ConfigurationError{Message: "read config file " + path, Cause: err}
		}
	}

	applyEnv(v, environ)

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, &ConfigurationError{Message: "parse settings", Cause: err}
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_timeout_seconds", 30)
	v.SetDefault("http_max_retries", 3)
	v.SetDefault("backoff_base_seconds", 1.0)
	v.SetDefault("http_rate_limit_rps", 0)
	v.SetDefault("log_development", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("run_store", RunStorePostgres)
}

// applyEnv overlays matching environment variables onto v. When the same key
// appears in several spellings, the all-upper-case one wins.
func applyEnv(v *viper.Viper, environ []string) {
	known := make(map[string]struct{}, len(settingKeys))
	for _, k := range settingKeys {
		known[k] = struct{}{}
	}

	canonical := make(map[string]bool)
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := known[key]; !ok {
			continue
		}
		upper := name == strings.ToUpper(name)
		if canonical[key] && !upper {
			continue
		}
		v.Set(key, value)
		if upper {
			canonical[key] = true
		}
	}
}

// Validate enforces required values and reasonable limits.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.DatabaseURL) == "" {
		return &ConfigurationError{Field: "database_url", Message: "is required"}
	}
	if s.HTTPTimeoutSeconds <= 0 {
		return &ConfigurationError{Field: "http_timeout_seconds", Message: "must be > 0"}
	}
	if s.HTTPMaxRetries < 0 {
		return &ConfigurationError{Field: "http_max_retries", Message: "must be >= 0"}
	}
	if s.BackoffBaseSeconds < 0 {
		return &ConfigurationError{Field: "backoff_base_seconds", Message: "must be >= 0"}
	}
	if s.HTTPRateLimitRPS < 0 {
		return &ConfigurationError{Field: "http_rate_limit_rps", Message: "must be >= 0"}
	}
	switch s.RunStore {
	case RunStorePostgres, RunStoreMemory:
	default:
		return &ConfigurationError{
			Field:   "run_store",
			Message: fmt.Sprintf("unknown backend %q (want %s or %s)", s.RunStore, RunStorePostgres, RunStoreMemory),
		}
	}
	if _, err := zapcore.ParseLevel(s.LogLevel); err != nil {
		return &ConfigurationError{Field: "log_level", Message: "unknown level", Cause: err}
	}
	if (s.PubSubProjectID == "") != (s.PubSubTopic == "") {
		return &ConfigurationError{Field: "pubsub_topic", Message: "pubsub_project_id and pubsub_topic must be set together"}
	}
	return nil
}

// HTTPTimeout converts the per-attempt HTTP timeout into a duration.
func (s Settings) HTTPTimeout() time.Duration {
	return time.Duration(s.HTTPTimeoutSeconds) * time.Second
}

// BackoffBase converts the backoff base delay into a duration.
func (s Settings) BackoffBase() time.Duration {
	return time.Duration(s.BackoffBaseSeconds * float64(time.Second))
}
