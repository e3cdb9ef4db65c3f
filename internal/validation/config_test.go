package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentreach/mailsync/internal/types"
)

func validConfig() *types.Config {
	cfg := &types.Config{}
	cfg.Meta.ID = "test-account"
	cfg.Meta.Name = "Test Account"
	cfg.Account.ID = "acct-1"
	cfg.Account.Providers = []types.Provider{{
		Name:     "gmail",
		Protocol: "imap",
		Host:     "imap.gmail.com",
		Port:     993,
		Username: "user@gmail.com",
		Password: "app-secret",
	}}
	cfg.Store.DSN = "mailsync.db"
	return cfg
}

func TestValidateConfigAccepts(t *testing.T) {
	require.NoError(t, ValidateConfig(validConfig()))
}

func TestValidateConfigRejects(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(cfg *types.Config)
		contains string
	}{
		{
			name:     "missing meta id",
			mutate:   func(cfg *types.Config) { cfg.Meta.ID = "" },
			contains: "meta.id",
		},
		{
			name:     "invalid meta id characters",
			mutate:   func(cfg *types.Config) { cfg.Meta.ID = "bad id!" },
			contains: "invalid characters",
		},
		{
			name:     "missing account id",
			mutate:   func(cfg *types.Config) { cfg.Account.ID = "" },
			contains: "account.id",
		},
		{
			name:     "unsupported protocol",
			mutate:   func(cfg *types.Config) { cfg.Account.Providers[0].Protocol = "exchange" },
			contains: "protocol",
		},
		{
			name:     "missing host",
			mutate:   func(cfg *types.Config) { cfg.Account.Providers[0].Host = "" },
			contains: "host",
		},
		{
			name:     "port out of range",
			mutate:   func(cfg *types.Config) { cfg.Account.Providers[0].Port = 70000 },
			contains: "port",
		},
		{
			name:     "unsupported store driver",
			mutate:   func(cfg *types.Config) { cfg.Store.Driver = "postgres" },
			contains: "store.driver",
		},
		{
			name:     "missing dsn",
			mutate:   func(cfg *types.Config) { cfg.Store.DSN = "" },
			contains: "store.dsn",
		},
		{
			name:     "unknown log format",
			mutate:   func(cfg *types.Config) { cfg.Logging.Format = "xml" },
			contains: "logging.format",
		},
		{
			name: "bad scheduling frequency",
			mutate: func(cfg *types.Config) {
				cfg.Scheduling.Enabled = true
				cfg.Scheduling.FrequencyEvery = "fortnight"
			},
			contains: "frequency_every",
		},
		{
			name: "bad start_at timestamp",
			mutate: func(cfg *types.Config) {
				cfg.Scheduling.Enabled = true
				cfg.Scheduling.FrequencyEvery = "hour"
				cfg.Scheduling.FrequencyAmount = 1
				cfg.Scheduling.StartAt = "tomorrow"
			},
			contains: "start_at",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestValidateConfigSchedulingDisabledSkipsChecks(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduling.Enabled = false
	cfg.Scheduling.FrequencyEvery = "fortnight"
	assert.NoError(t, ValidateConfig(cfg))
}
