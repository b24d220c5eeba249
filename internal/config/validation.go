package config

import (
	"fmt"
	"slices"
	"strings"
)

var supportedBackends = []string{StoreMemory, StorePostgres, StoreSQLite}

var supportedSSLModes = []string{
	"disable", "allow", "prefer", "require", "verify-ca", "verify-full",
}

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("%w: listen_addr cannot be empty", ErrInvalidListenAddr)
	}

	if !slices.Contains(supportedBackends, c.StoreBackend) {
		return fmt.Errorf("%w: %q (supported: %s)",
			ErrInvalidStoreBackend, c.StoreBackend, strings.Join(supportedBackends, ", "))
	}

	switch c.StoreBackend {
	case StorePostgres:
		if c.PostgresHost == "" {
			return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgres)
		}
		if c.PostgresPort < 1 || c.PostgresPort > 65535 {
			return fmt.Errorf("%w: port must be between 1 and 65535, got %d",
				ErrInvalidPostgres, c.PostgresPort)
		}
		if c.PostgresDBName == "" {
			return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgres)
		}
		if !slices.Contains(supportedSSLModes, c.PostgresSSLMode) {
			return fmt.Errorf("%w: unsupported sslmode %q", ErrInvalidPostgres, c.PostgresSSLMode)
		}
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("%w: sqlite_path cannot be empty", ErrInvalidSQLitePath)
		}
	}

	if strings.TrimSpace(c.CompletionEndpoint) == "" {
		return fmt.Errorf("%w: set completion_endpoint or NUBRA_COMPLETION_ENDPOINT",
			ErrMissingCompletionEndpoint)
	}

	if c.SummaryTriggerTurn < 1 {
		return fmt.Errorf("%w: summary_trigger_turn must be at least 1, got %d",
			ErrInvalidMemoryBounds, c.SummaryTriggerTurn)
	}
	if c.RecentWindow < 1 || c.RecentWindow > c.SummaryTriggerTurn {
		return fmt.Errorf("%w: recent_window must be between 1 and summary_trigger_turn (%d), got %d",
			ErrInvalidMemoryBounds, c.SummaryTriggerTurn, c.RecentWindow)
	}

	if c.RateLimitPerMinute < 1 {
		return fmt.Errorf("%w: rate_limit_per_minute must be at least 1, got %d",
			ErrInvalidLimit, c.RateLimitPerMinute)
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("%w: max_body_bytes must be at least 1024, got %d",
			ErrInvalidLimit, c.MaxBodyBytes)
	}
	if c.MaxPromptChars < 1 {
		return fmt.Errorf("%w: max_prompt_chars must be at least 1, got %d",
			ErrInvalidLimit, c.MaxPromptChars)
	}

	return nil
}
