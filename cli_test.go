package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kacebover/appicon/pngasm"
)

// isolateConfig keeps per-user config files out of the tests
func isolateConfig(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("APPDATA", dir)
	t.Setenv("HOME", dir)
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestCLI_Help(t *testing.T) {
	code, out, _ := runCLI(t, "help")
	if code != 0 {
		t.Errorf("help exit code = %d, expected 0", code)
	}
	if !strings.Contains(out, "tauri-icons") || !strings.Contains(out, "verify") {
		t.Errorf("help output missing commands:\n%s", out)
	}
}

func TestCLI_UnknownCommand(t *testing.T) {
	code, _, errOut := runCLI(t, "bake")
	if code != 2 {
		t.Errorf("exit code = %d, expected 2", code)
	}
	if !strings.Contains(errOut, "bake") {
		t.Errorf("stderr should name the unknown command:\n%s", errOut)
	}
}

func TestCLI_AppIconFallback(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()

	code, out, errOut := runCLI(t, "app-icon", "-out", dir, "-renderer", "fallback")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, errOut)
	}
	if !strings.Contains(out, "npx tauri icon") {
		t.Errorf("expected follow-up hint in output:\n%s", out)
	}

	data, err := os.ReadFile(filepath.Join(dir, "app-icon.png"))
	if err != nil {
		t.Fatalf("app-icon.png not written: %v", err)
	}
	if !bytes.HasPrefix(data, pngasm.Signature) {
		t.Error("app-icon.png does not start with PNG signature")
	}
}

func TestCLI_TauriIconsWithArchive(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "icons.zip")

	code, out, errOut := runCLI(t, "tauri-icons", "-out", dir, "-archive", zipPath, "-verbose")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, errOut)
	}
	for _, name := range []string{"32x32.png", "128x128.png", "128x128@2x.png", "256x256.png", "512x512.png", "icon.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
	if _, err := os.Stat(zipPath); err != nil {
		t.Errorf("archive not written: %v", err)
	}
	if !strings.Contains(out, "icons.zip") {
		t.Errorf("output should mention the archive:\n%s", out)
	}
	if !strings.Contains(errOut, "Renderer selected") {
		t.Errorf("verbose run should log renderer selection:\n%s", errOut)
	}
}

func TestCLI_SaveAndReuseConfig(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "job.json")

	code, _, errOut := runCLI(t, "app-icon", "-out", dir, "-renderer", "fallback", "-save-config", cfgPath)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, errOut)
	}

	code, out, errOut := runCLI(t, "app-icon", "-config", cfgPath)
	if code != 0 {
		t.Fatalf("exit code = %d with saved config, stderr:\n%s", code, errOut)
	}
	if !strings.Contains(out, "fallback") {
		t.Errorf("saved renderer mode should be reused:\n%s", out)
	}
}

func TestCLI_MissingConfig(t *testing.T) {
	isolateConfig(t)
	code, _, _ := runCLI(t, "app-icon", "-config", filepath.Join(t.TempDir(), "nope.json"))
	if code != 1 {
		t.Errorf("exit code = %d, expected 1", code)
	}
}

func TestCLI_Verify(t *testing.T) {
	dir := t.TempDir()

	good, err := pngasm.Assemble(8, 4)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	goodPath := filepath.Join(dir, "good.png")
	if err := os.WriteFile(goodPath, good, 0644); err != nil {
		t.Fatal(err)
	}

	bad := append([]byte(nil), good...)
	bad[len(bad)-1] ^= 0xFF
	badPath := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(badPath, bad, 0644); err != nil {
		t.Fatal(err)
	}

	code, out, _ := runCLI(t, "verify", goodPath)
	if code != 0 {
		t.Errorf("verify good exit code = %d, output:\n%s", code, out)
	}
	if !strings.Contains(out, "8x4") || !strings.Contains(out, "IHDR,IDAT,IEND") {
		t.Errorf("unexpected verify output:\n%s", out)
	}

	code, out, _ = runCLI(t, "verify", goodPath, badPath)
	if code != 1 {
		t.Errorf("verify with corrupted file exit code = %d, expected 1", code)
	}
	if !strings.Contains(out, "bad.png") {
		t.Errorf("corrupted file should be reported:\n%s", out)
	}

	if code, _, _ := runCLI(t, "verify"); code != 2 {
		t.Errorf("verify without files exit code = %d, expected 2", code)
	}
}

func TestNewLogger_Levels(t *testing.T) {
	var quiet bytes.Buffer
	logger := newLogger(&quiet, false)
	logger.Info("Icon written")
	logger.Warn("Rich rendering unavailable")
	_ = logger.Sync()

	if strings.Contains(quiet.String(), "Icon written") {
		t.Errorf("info entries should be hidden without -verbose:\n%s", quiet.String())
	}
	if !strings.Contains(quiet.String(), "Rich rendering unavailable") {
		t.Errorf("warnings should always be shown:\n%s", quiet.String())
	}

	var loud bytes.Buffer
	logger = newLogger(&loud, true)
	logger.Debug("Archived icon")
	_ = logger.Sync()

	if !strings.Contains(loud.String(), "Archived icon") {
		t.Errorf("debug entries should be shown with -verbose:\n%s", loud.String())
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{512, "512 Б"},
		{2048, "2.0 КБ"},
		{5 * 1024 * 1024, "5.0 МБ"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.input); got != tt.expected {
			t.Errorf("formatBytes(%d) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}
