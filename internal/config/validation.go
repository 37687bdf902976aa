package config

import (
	"fmt"
	"net"
	"strings"
)

// validSSLModes are the PostgreSQL sslmode values accepted by pgx.
var validSSLModes = map[string]struct{}{
	"disable":     {},
	"allow":       {},
	"prefer":      {},
	"require":     {},
	"verify-ca":   {},
	"verify-full": {},
}

// Validate checks the configuration for correctness.
// Returns a wrapped sentinel error for the first problem found.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model_name must not be empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.GuardrailModel) == "" {
		return fmt.Errorf("%w: guardrail_model must not be empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder_model must not be empty", ErrInvalidEmbedderModel)
	}

	switch c.AnswerMode {
	case AnswerModeStreaming, AnswerModeSingle:
	default:
		return fmt.Errorf("%w: %q (must be %q or %q)",
			ErrInvalidAnswerMode, c.AnswerMode, AnswerModeStreaming, AnswerModeSingle)
	}

	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: postgres_host must not be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d (must be 1-65535)", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: postgres_db_name must not be empty", ErrInvalidPostgresDBName)
	}
	if _, ok := validSSLModes[c.PostgresSSLMode]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	if _, _, err := net.SplitHostPort(c.RedisAddr); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidRedisAddr, c.RedisAddr, err)
	}

	if c.ConversationTTLDays < 1 || c.ConversationTTLDays > 3650 {
		return fmt.Errorf("%w: conversation_ttl_days=%d (must be 1-3650)",
			ErrInvalidRetentionDays, c.ConversationTTLDays)
	}
	if c.EscalationTTLDays < 1 || c.EscalationTTLDays > 3650 {
		return fmt.Errorf("%w: escalation_ttl_days=%d (must be 1-3650)",
			ErrInvalidRetentionDays, c.EscalationTTLDays)
	}

	return nil
}
