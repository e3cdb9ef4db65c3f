// Package app wires configuration, persistence, scheduling and the
// ingestion pipeline together. It is also the library surface the
// surrounding CRM calls: RunIngestion for account X, Progress for
// account X.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/talentreach/mailsync/internal/config"
	"github.com/talentreach/mailsync/internal/ingest"
	"github.com/talentreach/mailsync/internal/mailbox"
	"github.com/talentreach/mailsync/internal/progress"
	"github.com/talentreach/mailsync/internal/scheduler"
	"github.com/talentreach/mailsync/internal/store"
	"github.com/talentreach/mailsync/internal/types"
)

// App represents the main application
type App struct {
	logger    *slog.Logger
	scheduler *scheduler.Scheduler
	progress  *progress.Store
	configs   []*types.Config
	configID  string
	watcher   *config.ConfigWatcher
	configDir string

	cancelJanitor context.CancelFunc
	wg            sync.WaitGroup
}

// New creates a new application instance
func New(logger *slog.Logger, configDir string, configID string) (*App, error) {
	app := &App{
		logger:    logger,
		configID:  configID,
		configDir: configDir,
		progress:  progress.NewStore(),
	}

	// Load initial configurations
	if err := config.LoadConfigs(configDir); err != nil {
		return nil, fmt.Errorf("failed to load configs: %w", err)
	}

	// Get configurations based on configID
	if configID != "" {
		cfg, err := config.GetConfig(configID)
		if err != nil {
			return nil, fmt.Errorf("failed to get config %s: %w", configID, err)
		}
		app.configs = []*types.Config{cfg}
	} else {
		app.configs = config.GetEnabledConfigs()
	}

	app.scheduler = scheduler.NewScheduler(logger)

	return app, nil
}

// Start starts all application services
func (a *App) Start() error {
	// Start configuration watcher
	watcher, err := config.StartWatcher(a.configDir, a.logger)
	if err != nil {
		return fmt.Errorf("failed to start config watcher: %w", err)
	}
	a.watcher = watcher

	// Evict finished progress entries so the store does not grow forever.
	janitorCtx, cancel := context.WithCancel(context.Background())
	a.cancelJanitor = cancel
	a.progress.StartJanitor(janitorCtx, time.Minute, a.progressTTL())

	// Start scheduler
	a.scheduler.Start()

	// Start services for initial configurations
	for _, cfg := range a.configs {
		if err := a.startServices(cfg); err != nil {
			return err
		}
	}

	// Watch for configuration changes
	a.wg.Add(1)
	go a.watchConfigs()

	return nil
}

// Stop gracefully stops all application services
func (a *App) Stop() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.cancelJanitor != nil {
		a.cancelJanitor()
	}
	a.wg.Wait()
}

// Progress returns the latest ingestion progress for an account.
func (a *App) Progress(accountID string) (progress.Snapshot, bool) {
	return a.progress.Get(accountID)
}

// RunIngestion executes one ingestion run for a configuration.
func (a *App) RunIngestion(ctx context.Context, cfg *types.Config) (*ingest.Result, error) {
	gateway, err := store.NewSQLite(cfg.Store.DSN, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer gateway.Close()

	contacts, err := gateway.FindRoster(ctx, cfg.Account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	providers := make([]ingest.Provider, 0, len(cfg.Account.Providers))
	for _, p := range cfg.Account.Providers {
		providers = append(providers, ingest.Provider{
			Name:     p.Name,
			Protocol: p.Protocol,
			Credentials: mailbox.Credentials{
				Host:          p.Host,
				Port:          p.Port,
				Username:      p.Username,
				Secret:        p.Password,
				TLSServerName: p.TLSServerName,
			},
		})
	}

	orchestrator := ingest.New(gateway, a.progress, a.logger)
	return orchestrator.Run(ctx, cfg.Account.ID, providers, contacts, ingest.Options{
		SaveUnmatched: cfg.Ingest.SaveUnmatched,
		FetchTimeout:  time.Duration(cfg.Ingest.FetchTimeout) * time.Minute,
		ProgressEvery: cfg.Ingest.ProgressEvery,
	})
}

func (a *App) startServices(cfg *types.Config) error {
	task := func(cfg *types.Config) {
		result, err := a.RunIngestion(context.Background(), cfg)
		if err != nil {
			a.logger.Error("ingestion run failed",
				"config_id", cfg.Meta.ID,
				"account_id", cfg.Account.ID,
				"error", err,
			)
			return
		}
		a.logger.Info("ingestion run finished",
			"config_id", cfg.Meta.ID,
			"account_id", cfg.Account.ID,
			"fetched", result.Fetched,
			"saved", result.Saved,
			"errors", len(result.Errors),
		)
	}

	if err := a.scheduler.UpdateJob(cfg, task); err != nil {
		a.logger.Error("failed to update scheduler",
			"error", err,
			"id", cfg.Meta.ID,
		)
		return err
	}

	a.logger.Info("started services for configuration",
		"id", cfg.Meta.ID,
		"name", cfg.Meta.Name,
	)

	return nil
}

func (a *App) watchConfigs() {
	defer a.wg.Done()

	for range a.watcher.ReloadChan() {
		a.logger.Info("reloading services due to configuration change")

		// Get updated configurations
		var newConfigs []*types.Config
		if a.configID != "" {
			cfg, err := config.GetConfig(a.configID)
			if err != nil {
				a.logger.Error("failed to get updated config",
					"id", a.configID,
					"error", err,
				)
				continue
			}
			newConfigs = []*types.Config{cfg}
		} else {
			newConfigs = config.GetEnabledConfigs()
		}

		// Update services with new configurations
		for _, cfg := range newConfigs {
			if err := a.startServices(cfg); err != nil {
				a.logger.Error("failed to update services",
					"config_id", cfg.Meta.ID,
					"error", err,
				)
			}
		}
	}
}

// progressTTL is the longest configured retention across loaded configs,
// defaulting to an hour.
func (a *App) progressTTL() time.Duration {
	ttl := time.Hour
	for _, cfg := range a.configs {
		if cfg.Ingest.ProgressTTL > 0 {
			candidate := time.Duration(cfg.Ingest.ProgressTTL) * time.Minute
			if candidate > ttl {
				ttl = candidate
			}
		}
	}
	return ttl
}
