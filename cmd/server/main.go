package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/talentreach/mailsync/internal/app"
	"github.com/talentreach/mailsync/internal/config"
	"github.com/talentreach/mailsync/internal/logger"
	"github.com/talentreach/mailsync/internal/types"
)

var (
	cfgDir    string
	configID  string
	logLevel  string
	logFormat string
	log       *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mailsync",
	Short: "Mailbox ingestion service for the outreach CRM",
	Long: `A service that periodically opens configured mailboxes, parses every
message, deduplicates against previously ingested mail, matches senders and
recipients against the influencer roster and persists the qualifying subset.`,
	RunE: run,
}

func init() {
	// Setup default logger until we load config
	log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(log)

	cobra.OnInitialize(initConfig)

	// Command line flags
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config-dir", "", "config directory (default is ./config)")
	rootCmd.PersistentFlags().StringVar(&configID, "config-id", "", "specific config ID to use")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override logging format (text, json, dev)")

	// Bind flags to viper
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	configDir := "./config"
	if cfgDir != "" {
		configDir = cfgDir
	}

	config.InitLogger(log)
	if err := config.LoadConfigs(configDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configs: %v\n", err)
		os.Exit(1)
	}

	configs := config.ListConfigs()
	if len(configs) == 0 {
		fmt.Fprintf(os.Stderr, "No configurations found in %s\n", configDir)
		os.Exit(1)
	}

	log.Info("loaded configurations",
		"count", len(configs),
		"enabled", len(config.GetEnabledConfigs()),
	)

	for _, cfg := range configs {
		log.Info("configuration loaded",
			"id", cfg.Meta.ID,
			"name", cfg.Meta.Name,
			"account_id", cfg.Account.ID,
			"enabled", cfg.Meta.Enabled,
		)
	}

	// Rebuild the logger from the primary configuration, with command
	// line flags taking precedence.
	if primary := primaryConfig(configs); primary != nil {
		cfg := *primary
		if v := viper.GetString("logging.level"); v != "" {
			cfg.Logging.Level = v
		}
		if v := viper.GetString("logging.format"); v != "" {
			cfg.Logging.Format = v
		}
		log = logger.Setup(&cfg)
		slog.SetDefault(log)
		config.InitLogger(log)
	}
}

// primaryConfig picks the configuration whose logging section drives the
// process-wide logger.
func primaryConfig(configs []*types.Config) *types.Config {
	if configID != "" {
		for _, cfg := range configs {
			if cfg.Meta.ID == configID {
				return cfg
			}
		}
	}
	for _, cfg := range configs {
		if cfg.Meta.Enabled {
			return cfg
		}
	}
	return nil
}

func run(cmd *cobra.Command, args []string) error {
	configDir := "./config"
	if cfgDir != "" {
		configDir = cfgDir
	}

	application, err := app.New(log, configDir, configID)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer application.Stop()

	if err := application.Start(); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down application")
	return nil
}
