package generator

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/kacebover/appicon/archive"
	"github.com/kacebover/appicon/config"
	"github.com/kacebover/appicon/pngasm"
	"github.com/kacebover/appicon/render"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// failingRenderer always fails with an assembly error
type failingRenderer struct{}

func (failingRenderer) Name() string { return "failing" }

func (failingRenderer) Render(width, height int) ([]byte, error) {
	return nil, &pngasm.AssemblyError{Op: "compress", Err: errors.New("out of memory")}
}

func tauriConfig(t *testing.T) *config.IconConfig {
	t.Helper()
	cfg := config.DefaultConfig(config.JobTauriIcons)
	cfg.OutputDir = filepath.Join(t.TempDir(), "icons")
	return cfg
}

func TestGenerate_TauriIconSet(t *testing.T) {
	cfg := tauriConfig(t)

	g, err := New(cfg, WithFontChain(render.NewFontChainFrom(nil, true)))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if g.RendererName() != config.RendererVector {
		t.Errorf("renderer = %s, expected vector", g.RendererName())
	}

	result, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(result.Files) != len(cfg.Targets) {
		t.Fatalf("wrote %d files, expected %d", len(result.Files), len(cfg.Targets))
	}

	for _, target := range cfg.Targets {
		path := filepath.Join(cfg.OutputDir, target.Name)
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("missing %s: %v", target.Name, err)
		}
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("%s is not a valid PNG: %v", target.Name, err)
		}
		if img.Bounds().Dx() != target.Size || img.Bounds().Dy() != target.Size {
			t.Errorf("%s size = %v, expected %d", target.Name, img.Bounds(), target.Size)
		}
	}
}

func TestGenerate_FallbackAppIcon(t *testing.T) {
	cfg := config.DefaultConfig(config.JobAppIcon)
	cfg.OutputDir = t.TempDir()
	cfg.Renderer = config.RendererFallback

	g, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Renderer != config.RendererFallback {
		t.Errorf("renderer = %s, expected fallback", result.Renderer)
	}

	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, "app-icon.png"))
	if err != nil {
		t.Fatalf("app-icon.png missing: %v", err)
	}
	want, err := pngasm.Assemble(1024, 1024)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if !bytes.Equal(data, want) {
		t.Error("fallback output should match the assembler byte for byte")
	}
}

func TestGenerate_FallbackIsLogged(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	cfg := config.DefaultConfig(config.JobAppIcon)
	cfg.OutputDir = t.TempDir()

	g, err := New(cfg,
		WithLogger(zap.New(core)),
		WithFontChain(render.NewFontChainFrom(nil, false)),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if g.RendererName() != config.RendererFallback {
		t.Fatalf("renderer = %s, expected fallback", g.RendererName())
	}

	if logs.FilterMessage("Rich rendering unavailable, using transparent fallback").Len() != 1 {
		t.Error("expected a fallback warning")
	}
	if logs.FilterMessage("Renderer selected").Len() != 1 {
		t.Error("expected the renderer selection to be logged")
	}

	if _, err := g.Generate(context.Background()); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if logs.FilterMessage("Icon written").Len() != 1 {
		t.Error("expected one Icon written entry")
	}
}

func TestGenerate_WithArchive(t *testing.T) {
	cfg := tauriConfig(t)
	cfg.ArchivePath = filepath.Join(t.TempDir(), "icons.zip")
	cfg.ArchivePassword = "hunter22"

	g, err := New(cfg, WithFontChain(render.NewFontChainFrom(nil, true)))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	result, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Archive == nil || !result.Archive.Encrypted {
		t.Fatalf("expected encrypted archive result, got %+v", result.Archive)
	}

	files, err := archive.ReadAll(cfg.ArchivePath, "hunter22")
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(files) != len(cfg.Targets) {
		t.Errorf("archive has %d entries, expected %d", len(files), len(cfg.Targets))
	}
}

func TestGenerate_RenderFailure(t *testing.T) {
	cfg := tauriConfig(t)

	g, err := New(cfg, WithRenderer(failingRenderer{}))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_, err = g.Generate(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !pngasm.IsAssemblyError(err) {
		t.Errorf("expected assembly error to propagate, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(cfg.OutputDir, "32x32.png")); !os.IsNotExist(statErr) {
		t.Error("no file should be written when rendering fails")
	}
}

func TestGenerate_Cancelled(t *testing.T) {
	cfg := tauriConfig(t)

	g, err := New(cfg, WithRenderer(render.NewFallback(-1)))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := g.Generate(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(result.Files) != 0 {
		t.Errorf("expected no files, got %d", len(result.Files))
	}
}

func TestNew_DoesNotMutateConfig(t *testing.T) {
	cfg := tauriConfig(t)
	cfg.Renderer = "bogus"

	g, err := New(cfg, WithRenderer(render.NewFallback(-1)))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if cfg.Renderer != "bogus" {
		t.Error("caller config should not be modified")
	}
	if g.Config().Renderer != config.RendererAuto {
		t.Errorf("validated renderer = %s, expected auto", g.Config().Renderer)
	}
}

func TestNew_VectorUnavailable(t *testing.T) {
	cfg := config.DefaultConfig(config.JobAppIcon)
	cfg.Renderer = config.RendererVector

	if _, err := New(cfg, WithFontChain(render.NewFontChainFrom(nil, false))); err == nil {
		t.Error("explicit vector mode without fonts should fail")
	}
}

func TestGenerate_StaysInOutputDir(t *testing.T) {
	root := t.TempDir()
	cfg := config.DefaultConfig(config.JobTauriIcons)
	cfg.OutputDir = filepath.Join(root, "a", "b")
	cfg.Targets = []config.Target{
		{Name: "../../escape.png", Size: 16},
		{Name: "inner/icon.png", Size: 16},
	}

	g, err := New(cfg, WithRenderer(render.NewFallback(-1)))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	result, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, "escape.png")); !os.IsNotExist(err) {
		t.Error("target name with .. must not be written outside the output directory")
	}
	if len(result.Files) != 1 || result.Files[0].Path != filepath.Join(cfg.OutputDir, "inner", "icon.png") {
		t.Errorf("unexpected files: %+v", result.Files)
	}
}
