package main

import (
	"fmt"

	"github.com/hyperengineering/factsync"
	"github.com/hyperengineering/factsync/internal/remote"
	"github.com/hyperengineering/factsync/internal/store"
	"github.com/spf13/cobra"
)

var (
	cfgFile     string
	cfgBaseURL  string
	cfgDBPath   string
	cfgEnv      string
	cfgLogLevel string
	outputJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "factsync",
	Short: "factsync - cat fact cache CLI",
	Long: `factsync keeps a local, ordered cache of facts from a remote feed.

It pages through the feed, stores each page locally with a stable
newest-first ordering, and serves the cache to the terminal and to
coding agents over MCP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to YAML config file (default: ~/.factsync/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&cfgBaseURL, "base-url", "", "Base URL of the remote fact feed")
	rootCmd.PersistentFlags().StringVar(&cfgDBPath, "db-path", "", "Path to local fact database")
	rootCmd.PersistentFlags().StringVar(&cfgEnv, "env", "", "Environment name (selects the default database)")
	rootCmd.PersistentFlags().StringVar(&cfgLogLevel, "log-level", "", "Log level: debug, info, error, off")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output as JSON")
}

// loadConfig layers configuration: defaults < config file < environment < flags.
func loadConfig() (factsync.Config, error) {
	path := cfgFile
	if path == "" {
		path = store.DefaultConfigPath()
	}
	fileCfg, err := factsync.ConfigFromFile(path)
	if err != nil {
		return factsync.Config{}, err
	}

	envCfg, err := factsync.ConfigFromEnv()
	if err != nil {
		return factsync.Config{}, err
	}

	flagCfg := factsync.Config{
		BaseURL:     cfgBaseURL,
		Environment: cfgEnv,
		LocalPath:   cfgDBPath,
		LogLevel:    cfgLogLevel,
	}

	cfg := fileCfg.Merge(envCfg).Merge(flagCfg).WithDefaults()
	if err := cfg.Validate(); err != nil {
		return factsync.Config{}, err
	}
	return cfg, nil
}

// openClient builds a client from the layered configuration. The HTTP fact
// source is attached only when a base URL is configured.
func openClient() (*factsync.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	level, _ := factsync.ParseLogLevel(cfg.LogLevel)
	logger, err := factsync.NewLogger(level, cfg.LogPath)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	opts := []factsync.Option{factsync.WithLogger(logger)}
	if cfg.BaseURL != "" {
		opts = append(opts, factsync.WithSource(remote.NewHTTPClient(cfg.Timeout, logger.Channel("remote"))))
	}

	client, err := factsync.New(cfg, opts...)
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("initialize client: %w", err)
	}
	return client, nil
}

// closeClient closes the client and then the logger it was given.
func closeClient(client *factsync.Client) {
	logger := client.Logger()
	_ = client.Close()
	_ = logger.Close()
}
