package publish

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"

	"github.com/conneroisu/assetpub/internal/extract"
)

// terserTimeout bounds a single terser invocation.
const terserTimeout = 30 * time.Second

// optimize applies the configured post-build optimization for the asset
// type. Every path is fail-open: on any optimizer error the unoptimized
// content is returned. Content hashes were computed before this step,
// so optimization never affects rewrite matching.
func (p *Publisher) optimize(ctx context.Context, assetType extract.AssetType, output string) string {
	switch assetType {
	case extract.CSS:
		if p.cfg.Optimize.MinifyCSS {
			return p.minifyCSS(ctx, output)
		}
	case extract.JS:
		if p.cfg.Optimize.ObfuscateJS {
			return p.optimizeJS(ctx, output)
		}
	}
	return output
}

func (p *Publisher) minifyCSS(ctx context.Context, content string) string {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)

	minified, err := m.String("text/css", content)
	if err != nil {
		p.logger.Warn(ctx, err, "css minification failed, keeping unminified output")
		return content
	}
	return minified
}

// optimizeJS prefers the terser CLI and falls back to the built-in JS
// minifier when terser is unavailable or errors.
func (p *Publisher) optimizeJS(ctx context.Context, content string) string {
	if terserPath := p.findTerser(); terserPath != "" {
		optimized, err := p.runTerser(ctx, terserPath, content)
		if err == nil {
			return optimized
		}
		p.logger.Warn(ctx, err, "terser failed, falling back to built-in js minifier")
	}

	m := minify.New()
	m.AddFunc("text/javascript", js.Minify)

	minified, err := m.String("text/javascript", content)
	if err != nil {
		p.logger.Warn(ctx, err, "js minification failed, keeping unoptimized output")
		return content
	}
	return minified
}

// findTerser resolves the terser binary: configured path, local
// node_modules/.bin, then PATH. Empty means not available.
func (p *Publisher) findTerser() string {
	if p.cfg.Optimize.TerserPath != "" {
		return p.cfg.Optimize.TerserPath
	}

	local := filepath.Join(p.cfg.BaseDir, "node_modules", ".bin", "terser")
	if exists, _ := afero.Exists(afero.NewOsFs(), local); exists {
		return local
	}

	if path, err := exec.LookPath("terser"); err == nil {
		return path
	}
	return ""
}

func (p *Publisher) runTerser(ctx context.Context, terserPath, content string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, terserTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, terserPath, p.cfg.Optimize.TerserOptions...)
	cmd.Stdin = strings.NewReader(content)

	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}
