// Package config provides configuration management for assetpub using
// Viper for flexible configuration loading from files, environment
// variables, and command-line flags.
//
// The configuration system supports YAML files and environment variable
// overrides with the ASSETPUB_ prefix. Load() produces a single Config
// struct that is constructed once at startup and passed explicitly into
// each component constructor; components never reach into global state.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration for the asset publishing pipeline.
type Config struct {
	LogLevel  string         `yaml:"log_level"`
	LogFormat string         `yaml:"log_format"`
	BaseDir   string         `yaml:"base_dir"`
	Builders  BuildersConfig `yaml:"builders"`
	Storage   StorageConfig  `yaml:"storage"`
	Prefixes  PrefixesConfig `yaml:"prefixes"`
	// HashLength is the number of hex characters of the content digest
	// used in generated filenames. Rewrite matching always compares the
	// full digest, never this prefix.
	HashLength int            `yaml:"hash_length"`
	Tailwind   TailwindConfig `yaml:"tailwind"`
	Optimize   OptimizeConfig `yaml:"optimize"`
	Content    ContentConfig  `yaml:"content"`
	Record     RecordConfig   `yaml:"record"`
}

// BuildersConfig selects the builder used per asset type. Values are
// names resolved through the builder registry ("raw", "tailwind", or a
// custom registered builder).
type BuildersConfig struct {
	CSS string `yaml:"css"`
	JS  string `yaml:"js"`
}

// StorageConfig selects and parameterizes the storage backend.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Root    string `yaml:"root"`
	BaseURL string `yaml:"base_url"`
}

// PrefixesConfig holds the storage path prefixes per asset type.
type PrefixesConfig struct {
	CSS string `yaml:"css"`
	JS  string `yaml:"js"`
}

// TailwindConfig parameterizes the Tailwind CLI builder.
type TailwindConfig struct {
	CLIPath string `yaml:"cli_path"`
	Config  string `yaml:"config"`
	BaseCSS string `yaml:"base_css"`
	CDNURL  string `yaml:"cdn_url"`
}

// OptimizeConfig toggles post-build and response-time optimization.
type OptimizeConfig struct {
	MinifyCSS     bool     `yaml:"minify_css"`
	ObfuscateJS   bool     `yaml:"obfuscate_js"`
	MinifyHTML    bool     `yaml:"minify_html"`
	TerserPath    string   `yaml:"terser_path"`
	TerserOptions []string `yaml:"terser_options"`
}

// ContentConfig locates the file-backed content source used by the CLI
// and the watcher when assetpub runs standalone.
type ContentConfig struct {
	Dir string `yaml:"dir"`
}

// RecordConfig locates the published asset record store.
type RecordConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// DefaultTailwindCDNURL is injected into preview responses when the CSS
// builder is Tailwind-flavored.
const DefaultTailwindCDNURL = "https://unpkg.com/@tailwindcss/browser@4"

// Load builds a Config from viper's merged sources (config file,
// environment, bound flags), applies defaults, and validates the result.
func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	applyDefaults(&config)

	// Handle values set via viper that Unmarshal misses when the key
	// uses a different casing or was bound from a flag.
	if viper.IsSet("builders.css") {
		config.Builders.CSS = viper.GetString("builders.css")
	}
	if viper.IsSet("builders.js") {
		config.Builders.JS = viper.GetString("builders.js")
	}
	if viper.IsSet("hash_length") {
		config.HashLength = viper.GetInt("hash_length")
	}
	if viper.IsSet("optimize.minify_css") {
		config.Optimize.MinifyCSS = viper.GetBool("optimize.minify_css")
	}
	if viper.IsSet("optimize.obfuscate_js") {
		config.Optimize.ObfuscateJS = viper.GetBool("optimize.obfuscate_js")
	}
	if viper.IsSet("optimize.minify_html") {
		config.Optimize.MinifyHTML = viper.GetBool("optimize.minify_html")
	}

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns a Config with every option at its default value.
// Tests and embedders that do not go through viper start from here.
func Default() *Config {
	var config Config
	applyDefaults(&config)
	return &config
}

func applyDefaults(config *Config) {
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "text"
	}
	if config.BaseDir == "" {
		config.BaseDir = "."
	}
	if config.Builders.CSS == "" {
		config.Builders.CSS = "raw"
	}
	if config.Builders.JS == "" {
		config.Builders.JS = "raw"
	}
	if config.Storage.Backend == "" {
		config.Storage.Backend = "fs"
	}
	if config.Storage.Root == "" {
		config.Storage.Root = "./public/assets"
	}
	if config.Storage.BaseURL == "" {
		config.Storage.BaseURL = "/static"
	}
	if config.Prefixes.CSS == "" {
		config.Prefixes.CSS = "page-assets/css/"
	}
	if config.Prefixes.JS == "" {
		config.Prefixes.JS = "page-assets/js/"
	}
	if config.HashLength == 0 {
		config.HashLength = 8
	}
	if config.Tailwind.CDNURL == "" {
		config.Tailwind.CDNURL = DefaultTailwindCDNURL
	}
	if !viper.IsSet("optimize.minify_css") && !config.Optimize.MinifyCSS {
		config.Optimize.MinifyCSS = true
	}
	if !viper.IsSet("optimize.minify_html") && !config.Optimize.MinifyHTML {
		config.Optimize.MinifyHTML = true
	}
	if len(config.Optimize.TerserOptions) == 0 {
		config.Optimize.TerserOptions = []string{"-c", "-m"}
	}
	if config.Content.Dir == "" {
		config.Content.Dir = "./content"
	}
	if config.Record.Backend == "" {
		config.Record.Backend = "sqlite"
	}
	if config.Record.Path == "" {
		config.Record.Path = "./assetpub.db"
	}
}

// Validate checks configuration values for correctness and safety.
func Validate(config *Config) error {
	if config.HashLength < 4 || config.HashLength > 64 {
		return fmt.Errorf("hash_length must be between 4 and 64, got %d", config.HashLength)
	}
	if config.Builders.CSS == "" || config.Builders.JS == "" {
		return fmt.Errorf("builders.css and builders.js must not be empty")
	}
	if config.Storage.Backend == "" {
		return fmt.Errorf("storage.backend must not be empty")
	}
	if err := validatePrefix("prefixes.css", config.Prefixes.CSS); err != nil {
		return err
	}
	if err := validatePrefix("prefixes.js", config.Prefixes.JS); err != nil {
		return err
	}
	switch config.Record.Backend {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("record.backend must be sqlite or memory, got %q", config.Record.Backend)
	}
	return nil
}

// validatePrefix rejects prefixes that would escape the storage root or
// produce absolute storage paths.
func validatePrefix(key, prefix string) error {
	if strings.HasPrefix(prefix, "/") {
		return fmt.Errorf("%s must be relative, got %q", key, prefix)
	}
	if strings.Contains(prefix, "..") {
		return fmt.Errorf("%s must not contain path traversal, got %q", key, prefix)
	}
	return nil
}
