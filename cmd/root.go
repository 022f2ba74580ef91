// Package cmd provides the assetpub command-line interface.
//
// Configuration is resolved from multiple sources with clear precedence:
//  1. Command-line flags (--config, --log-level, etc.) - highest priority
//  2. ASSETPUB_CONFIG_FILE environment variable - custom config file path
//  3. Individual environment variables (ASSETPUB_STORAGE_ROOT, etc.)
//  4. Configuration files (.assetpub.yml) - lowest priority
//
// Environment variables follow the ASSETPUB_<SECTION>_<OPTION> pattern,
// e.g. ASSETPUB_BUILDERS_CSS=tailwind or ASSETPUB_RECORD_PATH=/var/lib/assetpub.db.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/assetpub/internal/config"
	"github.com/conneroisu/assetpub/internal/content"
	"github.com/conneroisu/assetpub/internal/logging"
	"github.com/conneroisu/assetpub/internal/publish"
	"github.com/conneroisu/assetpub/internal/record"
	"github.com/conneroisu/assetpub/internal/storage"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "assetpub",
	Short: "Extract inline page CSS/JS into published static assets",
	Long: `Assetpub turns inline <style> and <script> tags in CMS page content
into hashed static asset files, and rewrites served pages to reference
them instead.

Pipeline:
  scan page content -> build css/js -> hash -> store -> record

Quick Start:
  assetpub rebuild --all          Build assets for every live page
  assetpub rebuild --pages 3,7    Build assets for specific pages
  assetpub watch                  Rebuild on content file changes
  assetpub serve                  Serve pages with rewriting applied

Configuration lives in .assetpub.yml or ASSETPUB_* environment variables.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .assetpub.yml, can also use ASSETPUB_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig wires viper's config sources before any subcommand runs.
// A missing config file is not an error: defaults plus environment
// variables are a complete configuration.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("ASSETPUB_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".assetpub")
	}

	viper.SetEnvPrefix("ASSETPUB")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// app bundles the long-lived objects a subcommand needs.
type app struct {
	cfg       *config.Config
	logger    logging.Logger
	source    *content.DirSource
	records   record.Store
	publisher *publish.Publisher
}

// newApp constructs the pipeline from configuration. The caller must
// Close it to release the record store.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
	})

	source := content.NewDirSource(afero.NewOsFs(), cfg.Content.Dir)

	records, err := openRecordStore(cfg)
	if err != nil {
		return nil, err
	}

	backend, err := storage.New(cfg.Storage.Backend, cfg, logger)
	if err != nil {
		_ = records.Close()
		return nil, err
	}

	publisher, err := publish.New(cfg, source, backend, records, logger)
	if err != nil {
		_ = records.Close()
		return nil, err
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		source:    source,
		records:   records,
		publisher: publisher,
	}, nil
}

func (a *app) Close() error {
	return a.records.Close()
}

func openRecordStore(cfg *config.Config) (record.Store, error) {
	switch cfg.Record.Backend {
	case "memory":
		return record.NewMemoryStore(), nil
	default:
		store, err := record.OpenSQLite(cfg.Record.Path)
		if err != nil {
			return nil, fmt.Errorf("open record store: %w", err)
		}
		return store, nil
	}
}
