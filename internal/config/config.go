// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (/etc/askgov/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: generation model, guardrail model, embedder, answer mode
//   - Storage: PostgreSQL (knowledge base) and Redis (conversation store)
//   - Server: listen address defaults, allowed WebSocket origins
//
// Security: sensitive data (passwords) is never logged; MarshalJSON masks it.
// Validation: fail-fast range checks in validation.go with clear messages.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidAnswerMode indicates the answer mode is not a known mode.
	ErrInvalidAnswerMode = errors.New("invalid answer mode")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidRedisAddr indicates the Redis address is invalid.
	ErrInvalidRedisAddr = errors.New("invalid Redis address")

	// ErrInvalidRetentionDays indicates a retention period is out of range.
	ErrInvalidRetentionDays = errors.New("invalid retention days")
)

// Answer modes selectable via Config.AnswerMode.
const (
	// AnswerModeStreaming forwards generated text fragments to the client
	// as they arrive, followed by one terminal message event.
	AnswerModeStreaming = "streaming"

	// AnswerModeSingle returns the complete answer in the terminal message
	// event only.
	AnswerModeSingle = "single"
)

// Default model identifiers.
const (
	// DefaultModelName is the default Gemini generation model.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultGuardrailModel is the model used for content-policy verdicts.
	// A lighter model keeps moderation latency low.
	DefaultGuardrailModel = "gemini-2.5-flash-lite"

	// DefaultEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 supports truncation to 768 dimensions, which is
	// the width of the passages table vector column.
	DefaultEmbedderModel = "gemini-embedding-001"
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys), update MarshalJSON.
type Config struct {
	// AI configuration
	ModelName      string `mapstructure:"model_name" json:"model_name"`
	GuardrailModel string `mapstructure:"guardrail_model" json:"guardrail_model"`
	EmbedderModel  string `mapstructure:"embedder_model" json:"embedder_model"`
	AnswerMode     string `mapstructure:"answer_mode" json:"answer_mode"`

	// Knowledge base storage (PostgreSQL + pgvector)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Conversation store (Redis)
	RedisAddr     string `mapstructure:"redis_addr" json:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" json:"redis_password"` // SENSITIVE: masked in MarshalJSON
	RedisDB       int    `mapstructure:"redis_db" json:"redis_db"`

	// Retention for persisted records; expiry is enforced by Redis TTL,
	// never by application code.
	ConversationTTLDays int `mapstructure:"conversation_ttl_days" json:"conversation_ttl_days"`
	EscalationTTLDays   int `mapstructure:"escalation_ttl_days" json:"escalation_ttl_days"`

	// Server configuration
	AllowedOrigins []string `mapstructure:"allowed_origins" json:"allowed_origins"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/askgov")
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{"/etc/askgov", "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL / REDIS_URL override individual settings when set.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}
	if err := cfg.parseRedisURL(); err != nil {
		return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
	}

	// Fail fast on invalid configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults
	viper.SetDefault("model_name", DefaultModelName)
	viper.SetDefault("guardrail_model", DefaultGuardrailModel)
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("answer_mode", AnswerModeStreaming)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "askgov")
	viper.SetDefault("postgres_password", "askgov_dev_password")
	viper.SetDefault("postgres_db_name", "askgov")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Redis defaults
	viper.SetDefault("redis_addr", "localhost:6379")
	viper.SetDefault("redis_password", "")
	viper.SetDefault("redis_db", 0)

	// Retention defaults
	viper.SetDefault("conversation_ttl_days", 90)
	viper.SetDefault("escalation_ttl_days", 30)

	// WebSocket origin allowlist (empty = same-origin only)
	viper.SetDefault("allowed_origins", []string{})
}

// bindEnvVariables binds environment variables explicitly.
// GEMINI_API_KEY is read directly by Genkit, not via viper.
func bindEnvVariables() {
	// A bind of a hardcoded key can only fail on programmer error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("model_name", "ASKGOV_MODEL_NAME")
	mustBind("guardrail_model", "ASKGOV_GUARDRAIL_MODEL")
	mustBind("embedder_model", "ASKGOV_EMBEDDER_MODEL")
	mustBind("answer_mode", "ASKGOV_ANSWER_MODE")
	mustBind("redis_addr", "ASKGOV_REDIS_ADDR")
	mustBind("redis_password", "ASKGOV_REDIS_PASSWORD")
	mustBind("allowed_origins", "ASKGOV_ALLOWED_ORIGINS")
	mustBind("conversation_ttl_days", "ASKGOV_CONVERSATION_TTL_DAYS")
	mustBind("escalation_ttl_days", "ASKGOV_ESCALATION_TTL_DAYS")
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks avoid accidental substring matches against real secrets.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 characters or fewer are fully masked; longer secrets keep the
// first and last 2 characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	a.RedisPassword = maskSecret(a.RedisPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
