package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "raw", cfg.Builders.CSS)
	assert.Equal(t, "raw", cfg.Builders.JS)
	assert.Equal(t, "fs", cfg.Storage.Backend)
	assert.Equal(t, "page-assets/css/", cfg.Prefixes.CSS)
	assert.Equal(t, "page-assets/js/", cfg.Prefixes.JS)
	assert.Equal(t, 8, cfg.HashLength)
	assert.Equal(t, DefaultTailwindCDNURL, cfg.Tailwind.CDNURL)
	assert.True(t, cfg.Optimize.MinifyCSS)
	assert.True(t, cfg.Optimize.MinifyHTML)
	assert.False(t, cfg.Optimize.ObfuscateJS)
	assert.Equal(t, []string{"-c", "-m"}, cfg.Optimize.TerserOptions)
	assert.Equal(t, "sqlite", cfg.Record.Backend)

	require.NoError(t, Validate(cfg))
}

func TestLoad_ViperOverrides(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("builders.css", "tailwind")
	viper.Set("hash_length", 12)
	viper.Set("optimize.minify_html", false)
	viper.Set("storage.base_url", "https://cdn.example.com/assets")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "tailwind", cfg.Builders.CSS)
	assert.Equal(t, "raw", cfg.Builders.JS)
	assert.Equal(t, 12, cfg.HashLength)
	assert.False(t, cfg.Optimize.MinifyHTML)
	assert.Equal(t, "https://cdn.example.com/assets", cfg.Storage.BaseURL)
}

func TestValidate_HashLength(t *testing.T) {
	cfg := Default()
	cfg.HashLength = 2
	assert.Error(t, Validate(cfg))

	cfg.HashLength = 65
	assert.Error(t, Validate(cfg))

	cfg.HashLength = 64
	assert.NoError(t, Validate(cfg))
}

func TestValidate_Prefixes(t *testing.T) {
	cfg := Default()
	cfg.Prefixes.CSS = "/absolute/"
	assert.Error(t, Validate(cfg))

	cfg = Default()
	cfg.Prefixes.JS = "page-assets/../../etc/"
	assert.Error(t, Validate(cfg))
}

func TestValidate_RecordBackend(t *testing.T) {
	cfg := Default()
	cfg.Record.Backend = "postgres"
	assert.Error(t, Validate(cfg))

	cfg.Record.Backend = "memory"
	assert.NoError(t, Validate(cfg))
}
