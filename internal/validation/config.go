package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/talentreach/mailsync/internal/types"
)

// ValidateConfig performs validation on a single configuration
func ValidateConfig(cfg *types.Config) error {
	if err := validateMeta(cfg); err != nil {
		return fmt.Errorf("meta validation failed: %w", err)
	}

	if err := validateAccount(cfg); err != nil {
		return fmt.Errorf("account validation failed: %w", err)
	}

	if err := validateStore(cfg); err != nil {
		return fmt.Errorf("store validation failed: %w", err)
	}

	if err := validateLogging(cfg); err != nil {
		return fmt.Errorf("logging validation failed: %w", err)
	}

	if err := validateScheduling(cfg); err != nil {
		return fmt.Errorf("scheduling validation failed: %w", err)
	}

	return nil
}

func validateMeta(cfg *types.Config) error {
	if cfg.Meta.ID == "" {
		return fmt.Errorf("meta.id is required")
	}

	if !isValidID(cfg.Meta.ID) {
		return fmt.Errorf("meta.id contains invalid characters (use only alphanumeric, dash, underscore)")
	}

	if cfg.Meta.Name == "" {
		return fmt.Errorf("meta.name is required")
	}

	return nil
}

func validateAccount(cfg *types.Config) error {
	if cfg.Account.ID == "" {
		return fmt.Errorf("account.id is required")
	}

	for i, p := range cfg.Account.Providers {
		if p.Name == "" {
			return fmt.Errorf("account.providers[%d].name is required", i)
		}
		switch strings.ToLower(p.Protocol) {
		case "", "imap", "pop3":
		default:
			return fmt.Errorf("account.providers[%d].protocol must be imap or pop3", i)
		}
		if p.Host == "" {
			return fmt.Errorf("account.providers[%d].host is required", i)
		}
		if p.Port <= 0 || p.Port > 65535 {
			return fmt.Errorf("account.providers[%d].port must be between 1 and 65535", i)
		}
	}

	return nil
}

func validateStore(cfg *types.Config) error {
	if cfg.Store.Driver != "" && cfg.Store.Driver != "sqlite3" {
		return fmt.Errorf("store.driver %s is not supported", cfg.Store.Driver)
	}

	if cfg.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required")
	}

	return nil
}

func validateLogging(cfg *types.Config) error {
	switch cfg.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}

	switch cfg.Logging.Format {
	case "", "text", "json", "dev":
	default:
		return fmt.Errorf("logging.format must be one of text, json, dev")
	}

	return nil
}

func validateScheduling(cfg *types.Config) error {
	if !cfg.Scheduling.Enabled {
		return nil
	}

	switch cfg.Scheduling.FrequencyEvery {
	case "minute", "hour", "day", "week", "month":
	default:
		return fmt.Errorf("scheduling.frequency_every must be one of minute, hour, day, week, month")
	}

	if cfg.Scheduling.FrequencyAmount <= 0 {
		return fmt.Errorf("scheduling.frequency_amount must be positive")
	}

	if cfg.Scheduling.StartAt != "" {
		if _, err := time.Parse(time.RFC3339, cfg.Scheduling.StartAt); err != nil {
			return fmt.Errorf("scheduling.start_at must be RFC3339: %w", err)
		}
	}

	if cfg.Scheduling.StopAt != "" {
		if _, err := time.Parse(time.RFC3339, cfg.Scheduling.StopAt); err != nil {
			return fmt.Errorf("scheduling.stop_at must be RFC3339: %w", err)
		}
	}

	return nil
}

func isValidID(id string) bool {
	for _, r := range id {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_') {
			return false
		}
	}
	return len(id) > 0
}
