// Package config holds the icon job description and its JSON persistence.
package config

import (
	"encoding/json"
	"image/color"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Job names a preset icon job
type Job string

const (
	// JobAppIcon is a single 1024px circle icon with a font-drawn letter
	JobAppIcon Job = "app-icon"
	// JobTauriIcons is the Tauri icon set drawn as rounded squares with a bar letter
	JobTauriIcons Job = "tauri-icons"
)

// Renderer modes
const (
	RendererAuto     = "auto"
	RendererVector   = "vector"
	RendererFallback = "fallback"
)

// Shapes
const (
	ShapeCircle      = "circle"
	ShapeRoundedRect = "rounded-rect"
)

// Glyph styles
const (
	GlyphFont = "font"
	GlyphBars = "bars"
)

// Size limits for a single target
const (
	MinIconSize = 1
	MaxIconSize = 4096
)

const (
	defaultBackground = "#4682B4" // steel blue (70,130,180)
	defaultForeground = "#FFFFFF"
	defaultLetter     = "H"
)

// Target is one output file of a job
type Target struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// IconConfig holds everything needed to run one icon job
type IconConfig struct {
	Job       Job      `json:"job"`
	OutputDir string   `json:"output_dir"`
	Targets   []Target `json:"targets"`

	// Drawing settings
	Renderer    string   `json:"renderer"` // "auto", "vector", "fallback"
	Shape       string   `json:"shape"`    // "circle", "rounded-rect"
	Glyph       string   `json:"glyph"`    // "font", "bars"
	Letter      string   `json:"letter"`
	Background  string   `json:"background"`
	Foreground  string   `json:"foreground"`
	MarginRatio float64  `json:"margin_ratio"`
	CornerRatio float64  `json:"corner_ratio"`
	LetterRatio float64  `json:"letter_ratio"`
	FontPaths   []string `json:"font_paths"`

	// Fallback PNG assembler zlib level (-1 default, 0-9)
	CompressionLevel int `json:"compression_level"`

	// Optional zip of the generated set
	ArchivePath     string `json:"archive_path"`
	ArchivePassword string `json:"-"`
}

// DefaultConfig returns the preset for a job. Unknown jobs get the app-icon preset.
func DefaultConfig(job Job) *IconConfig {
	if job == JobTauriIcons {
		return &IconConfig{
			Job:       JobTauriIcons,
			OutputDir: filepath.Join("src-tauri", "icons"),
			Targets: []Target{
				{Name: "32x32.png", Size: 32},
				{Name: "128x128.png", Size: 128},
				{Name: "128x128@2x.png", Size: 128},
				{Name: "256x256.png", Size: 256},
				{Name: "512x512.png", Size: 512},
				{Name: "icon.png", Size: 512},
			},
			Renderer:         RendererAuto,
			Shape:            ShapeRoundedRect,
			Glyph:            GlyphBars,
			Letter:           defaultLetter,
			Background:       defaultBackground,
			Foreground:       defaultForeground,
			MarginRatio:      0.125,
			CornerRatio:      0.125,
			LetterRatio:      0.5,
			CompressionLevel: -1,
		}
	}

	return &IconConfig{
		Job:              JobAppIcon,
		OutputDir:        ".",
		Targets:          []Target{{Name: "app-icon.png", Size: 1024}},
		Renderer:         RendererAuto,
		Shape:            ShapeCircle,
		Glyph:            GlyphFont,
		Letter:           defaultLetter,
		Background:       defaultBackground,
		Foreground:       defaultForeground,
		MarginRatio:      50.0 / 1024.0,
		CornerRatio:      0,
		LetterRatio:      1.0 / 3.0,
		CompressionLevel: -1,
	}
}

// ConfigDir returns the per-user configuration directory
func ConfigDir() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, "Library", "Application Support")
	default: // linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			homeDir, _ := os.UserHomeDir()
			configDir = filepath.Join(homeDir, ".config")
		}
	}

	return filepath.Join(configDir, "appicon")
}

// DefaultConfigPath returns the per-user config file for a job
func DefaultConfigPath(job Job) string {
	return filepath.Join(ConfigDir(), string(job)+".json")
}

// LoadConfig loads a job configuration. With an empty path the per-user file
// is used if present, and the preset otherwise. An explicit path must exist.
func LoadConfig(path string, job Job) (*IconConfig, error) {
	config := DefaultConfig(job)

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath(job)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return config, nil
		}
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	// The file's target list replaces the preset, never merges into it.
	config.Targets = nil
	if err := json.Unmarshal(data, config); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}

	config.ValidateConfig()
	return config, nil
}

// SaveConfig writes configuration to path, creating parent directories
func SaveConfig(path string, config *IconConfig) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode config")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "create config directory")
	}

	return errors.Wrapf(os.WriteFile(path, data, 0644), "write config %s", path)
}

// ValidateConfig validates and normalizes configuration values
func (c *IconConfig) ValidateConfig() {
	if c.Job != JobAppIcon && c.Job != JobTauriIcons {
		c.Job = JobAppIcon
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}

	targets := c.Targets[:0]
	for _, t := range c.Targets {
		name, ok := cleanTargetName(t.Name)
		if !ok || t.Size < MinIconSize {
			continue
		}
		t.Name = name
		if t.Size > MaxIconSize {
			t.Size = MaxIconSize
		}
		targets = append(targets, t)
	}
	c.Targets = targets
	if len(c.Targets) == 0 {
		c.Targets = DefaultConfig(c.Job).Targets
	}

	switch c.Renderer {
	case RendererAuto, RendererVector, RendererFallback:
	default:
		c.Renderer = RendererAuto
	}
	switch c.Shape {
	case ShapeCircle, ShapeRoundedRect:
	default:
		c.Shape = ShapeCircle
	}
	switch c.Glyph {
	case GlyphFont, GlyphBars:
	default:
		c.Glyph = GlyphFont
	}

	r, size := utf8.DecodeRuneInString(strings.TrimSpace(c.Letter))
	if size == 0 || r == utf8.RuneError {
		c.Letter = defaultLetter
	} else {
		c.Letter = string(r)
	}

	if _, err := ParseHexColor(c.Background); err != nil {
		c.Background = defaultBackground
	}
	if _, err := ParseHexColor(c.Foreground); err != nil {
		c.Foreground = defaultForeground
	}

	c.MarginRatio = clampRatio(c.MarginRatio, 0, 0.45)
	c.CornerRatio = clampRatio(c.CornerRatio, 0, 0.5)
	if c.LetterRatio <= 0 {
		c.LetterRatio = DefaultConfig(c.Job).LetterRatio
	}
	c.LetterRatio = clampRatio(c.LetterRatio, 0.05, 1)

	if c.CompressionLevel < -1 {
		c.CompressionLevel = -1
	}
	if c.CompressionLevel > 9 {
		c.CompressionLevel = 9
	}
}

// cleanTargetName returns name as a slash-separated path relative to the
// output directory. Absolute names and names with ".." are rejected.
func cleanTargetName(name string) (string, bool) {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	if name == "" || path.IsAbs(name) || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return "", false
		}
	}

	name = path.Clean(name)
	if name == "." {
		return "", false
	}
	return name, true
}

func clampRatio(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// BackgroundColor returns the parsed background colour
func (c *IconConfig) BackgroundColor() color.NRGBA {
	col, _ := ParseHexColor(c.Background)
	return col
}

// ForegroundColor returns the parsed foreground colour
func (c *IconConfig) ForegroundColor() color.NRGBA {
	col, _ := ParseHexColor(c.Foreground)
	return col
}

// Clone creates a deep copy of the config
func (c *IconConfig) Clone() *IconConfig {
	clone := *c

	if c.Targets != nil {
		clone.Targets = make([]Target, len(c.Targets))
		copy(clone.Targets, c.Targets)
	}
	if c.FontPaths != nil {
		clone.FontPaths = make([]string, len(c.FontPaths))
		copy(clone.FontPaths, c.FontPaths)
	}

	return &clone
}

// ParseHexColor parses "#RRGGBB" or "#RRGGBBAA" (the leading # is optional)
func ParseHexColor(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")

	if len(s) != 6 && len(s) != 8 {
		return color.NRGBA{}, errors.Errorf("invalid colour %q", s)
	}

	channels := [4]uint8{3: 255}
	for i := 0; i < len(s)/2; i++ {
		v, err := strconv.ParseUint(s[2*i:2*i+2], 16, 8)
		if err != nil {
			return color.NRGBA{}, errors.Wrapf(err, "invalid colour %q", s)
		}
		channels[i] = uint8(v)
	}

	return color.NRGBA{R: channels[0], G: channels[1], B: channels[2], A: channels[3]}, nil
}
