// Package generator runs an icon job: it renders every target with the
// strategy chosen at startup, writes the files and optionally archives them.
package generator

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/kacebover/appicon/archive"
	"github.com/kacebover/appicon/config"
	"github.com/kacebover/appicon/pngasm"
	"github.com/kacebover/appicon/render"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// FileResult describes one written icon
type FileResult struct {
	Name  string
	Path  string
	Size  int
	Bytes int
}

// Result summarises a finished job
type Result struct {
	Job      config.Job
	Renderer string
	Files    []FileResult
	Archive  *archive.Result
	Duration time.Duration
}

// Generator runs one icon job
type Generator struct {
	config   *config.IconConfig
	renderer render.Renderer
	fonts    *render.FontChain
	logger   *zap.Logger
}

// Option configures a Generator
type Option func(*Generator)

// WithLogger sets the logger. nil keeps the no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithFontChain replaces the default font chain used by the renderer probe
func WithFontChain(fc *render.FontChain) Option {
	return func(g *Generator) { g.fonts = fc }
}

// WithRenderer skips the probe and uses r for every target
func WithRenderer(r render.Renderer) Option {
	return func(g *Generator) { g.renderer = r }
}

// New validates a copy of cfg and selects the renderer for the whole run.
func New(cfg *config.IconConfig, opts ...Option) (*Generator, error) {
	if cfg == nil {
		return nil, errors.New("nil icon config")
	}

	g := &Generator{
		config: cfg.Clone(),
		logger: zap.NewNop(),
	}
	g.config.ValidateConfig()
	for _, opt := range opts {
		opt(g)
	}

	if g.renderer == nil {
		r, err := render.Select(g.config, g.fonts, g.logger)
		if err != nil {
			return nil, errors.Wrap(err, "select renderer")
		}
		g.renderer = r
	}

	fields := []zap.Field{
		zap.String("job", string(g.config.Job)),
		zap.String("renderer", g.renderer.Name()),
	}
	if v, ok := g.renderer.(*render.Vector); ok && v.FontName() != "" {
		fields = append(fields, zap.String("font", v.FontName()))
	}
	g.logger.Info("Renderer selected", fields...)

	return g, nil
}

// Config returns the validated configuration in use
func (g *Generator) Config() *config.IconConfig {
	return g.config
}

// RendererName reports which strategy was selected
func (g *Generator) RendererName() string {
	return g.renderer.Name()
}

// Generate renders and writes every target, then writes the archive if one
// is configured. Cancellation is checked between targets.
func (g *Generator) Generate(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{
		Job:      g.config.Job,
		Renderer: g.renderer.Name(),
		Files:    make([]FileResult, 0, len(g.config.Targets)),
	}

	if err := os.MkdirAll(g.config.OutputDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "create output directory %s", g.config.OutputDir)
	}

	entries := make([]archive.Entry, 0, len(g.config.Targets))
	for _, target := range g.config.Targets {
		if err := ctx.Err(); err != nil {
			return result, errors.Wrap(err, "generation cancelled")
		}

		data, err := g.renderer.Render(target.Size, target.Size)
		if err != nil {
			if pngasm.IsAssemblyError(err) {
				g.logger.Error("PNG assembly failed", zap.String("target", target.Name), zap.Error(err))
			}
			return result, errors.Wrapf(err, "render %s", target.Name)
		}

		path := filepath.Join(g.config.OutputDir, target.Name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return result, errors.Wrapf(err, "create directory for %s", target.Name)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return result, errors.Wrapf(err, "write %s", path)
		}

		g.logger.Info("Icon written",
			zap.String("path", path),
			zap.Int("size", target.Size),
			zap.Int("bytes", len(data)),
		)
		result.Files = append(result.Files, FileResult{
			Name:  target.Name,
			Path:  path,
			Size:  target.Size,
			Bytes: len(data),
		})
		entries = append(entries, archive.Entry{Name: target.Name, Data: data})
	}

	if g.config.ArchivePath != "" {
		a, err := archive.NewArchiver(archive.Config{
			OutputPath: g.config.ArchivePath,
			Password:   g.config.ArchivePassword,
			OnProgress: func(done, total int, name string) {
				g.logger.Debug("Archived icon", zap.String("name", name), zap.Int("done", done), zap.Int("total", total))
			},
		})
		if err != nil {
			return result, errors.Wrap(err, "prepare archive")
		}
		ar, err := a.Write(ctx, entries)
		if err != nil {
			return result, errors.Wrap(err, "write archive")
		}
		result.Archive = ar
		g.logger.Info("Archive written",
			zap.String("path", ar.OutputPath),
			zap.Int("files", ar.FilesArchived),
			zap.Bool("encrypted", ar.Encrypted),
		)
	}

	result.Duration = time.Since(start)
	return result, nil
}
