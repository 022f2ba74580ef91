package builder

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/conneroisu/assetpub/internal/config"
	"github.com/conneroisu/assetpub/internal/extract"
	"github.com/conneroisu/assetpub/internal/logging"
)

// TailwindCLITimeout bounds a single Tailwind CLI invocation. A timeout
// is a build failure and degrades like any other CLI error.
const TailwindCLITimeout = 30 * time.Second

// DefaultTailwindInput is the input stylesheet used when no base CSS is
// configured.
const DefaultTailwindInput = "@import \"tailwindcss\";\n"

// TailwindBuilder generates CSS with the Tailwind CLI in JIT mode: the
// rendered page HTML is the scan content, and extracted inline CSS is
// appended to the input stylesheet.
//
// Every CLI failure (binary missing, non-zero exit, timeout) degrades
// to the raw builder's output for the same fragments and is logged at
// warning level; the publish flow never sees the error.
type TailwindBuilder struct {
	cfg    *config.Config
	logger logging.Logger
	fs     afero.Fs
}

// NewTailwindBuilder creates a Tailwind builder over the real filesystem.
func NewTailwindBuilder(cfg *config.Config, logger logging.Logger) *TailwindBuilder {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &TailwindBuilder{
		cfg:    cfg,
		logger: logger.WithComponent("tailwind"),
		fs:     afero.NewOsFs(),
	}
}

// Name returns "tailwind".
func (b *TailwindBuilder) Name() string { return "tailwind" }

// RequiresHTMLContent is true: the CLI scans rendered page HTML for
// utility classes.
func (b *TailwindBuilder) RequiresHTMLContent() bool { return true }

// Build runs the Tailwind CLI for CSS; for any other asset type it
// behaves exactly like the raw builder.
func (b *TailwindBuilder) Build(ctx context.Context, htmlContent string, fragments []string, assetType extract.AssetType) (string, error) {
	if assetType != extract.CSS {
		return Join(fragments), nil
	}

	customCSS := Join(fragments)
	if htmlContent == "" && customCSS == "" {
		return "", nil
	}

	output, err := b.runCLI(ctx, htmlContent, customCSS)
	if err != nil {
		b.logger.Warn(ctx, err, "tailwind build failed, degrading to raw output")
		return customCSS, nil
	}
	return output, nil
}

// resolveCLIPath finds the Tailwind CLI binary. Resolution order:
// configured path, node_modules/.bin under the base dir, system PATH.
func (b *TailwindBuilder) resolveCLIPath() (string, error) {
	if b.cfg.Tailwind.CLIPath != "" {
		return b.cfg.Tailwind.CLIPath, nil
	}

	local := filepath.Join(b.cfg.BaseDir, "node_modules", ".bin", "tailwindcss")
	if exists, _ := afero.Exists(b.fs, local); exists {
		return local, nil
	}

	path, err := exec.LookPath("tailwindcss")
	if err != nil {
		return "", fmt.Errorf("tailwindcss binary not found: %w", err)
	}
	return path, nil
}

// inputCSS combines the configured base stylesheet (or the default
// import) with the extracted inline CSS.
func (b *TailwindBuilder) inputCSS(customCSS string) (string, error) {
	input := DefaultTailwindInput
	if b.cfg.Tailwind.BaseCSS != "" {
		data, err := afero.ReadFile(b.fs, b.cfg.Tailwind.BaseCSS)
		if err != nil {
			return "", fmt.Errorf("read tailwind base css: %w", err)
		}
		input = string(data)
	}
	if customCSS != "" {
		input += "\n" + customCSS + "\n"
	}
	return input, nil
}

func (b *TailwindBuilder) runCLI(ctx context.Context, htmlContent, customCSS string) (string, error) {
	cliPath, err := b.resolveCLIPath()
	if err != nil {
		return "", err
	}

	tmpDir, err := os.MkdirTemp("", "assetpub-tailwind-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	contentFile := filepath.Join(tmpDir, "content.html")
	if err := os.WriteFile(contentFile, []byte(htmlContent), 0o644); err != nil {
		return "", fmt.Errorf("write scan content: %w", err)
	}

	input, err := b.inputCSS(customCSS)
	if err != nil {
		return "", err
	}
	inputFile := filepath.Join(tmpDir, "input.css")
	if err := os.WriteFile(inputFile, []byte(input), 0o644); err != nil {
		return "", fmt.Errorf("write input css: %w", err)
	}

	outputFile := filepath.Join(tmpDir, "output.css")

	args := []string{
		"--input", inputFile,
		"--output", outputFile,
		"--content", contentFile,
		"--minify",
	}
	if b.cfg.Tailwind.Config != "" {
		args = append(args, "--config", b.cfg.Tailwind.Config)
	}

	runCtx, cancel := context.WithTimeout(ctx, TailwindCLITimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, cliPath, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("tailwind cli: %w: %s", err, string(out))
	}

	result, err := os.ReadFile(outputFile)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read tailwind output: %w", err)
	}
	return strings.TrimSpace(string(result)), nil
}

func init() {
	Register("tailwind", func(cfg *config.Config, logger logging.Logger) (Builder, error) {
		return NewTailwindBuilder(cfg, logger), nil
	})
}
