// Package config loads runtime settings for the cover binaries from the
// environment. Command-line flags are applied on top by the caller.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/thereceipt/cover-engine/internal/export"
	"github.com/thereceipt/cover-engine/internal/geometry"
	"github.com/thereceipt/cover-engine/internal/imageload"
	"github.com/thereceipt/cover-engine/internal/jobs"
)

// Environment variables read by Load.
const (
	EnvPort           = "COVER_PORT"
	EnvFontDir        = "COVER_FONT_DIR"
	EnvFontCatalog    = "COVER_FONT_CATALOG"
	EnvSpineTable     = "COVER_SPINE_TABLE"
	EnvDefaultDPI     = "COVER_DEFAULT_DPI"
	EnvMaxImageBytes  = "COVER_MAX_IMAGE_BYTES"
	EnvMaxImagePixels = "COVER_MAX_IMAGE_PIXELS"
	EnvFontTimeout    = "COVER_FONT_TIMEOUT"
	EnvJobRetries     = "COVER_JOB_RETRIES"
	EnvJobTTL         = "COVER_JOB_TTL"
)

const (
	DefaultPort        = "12212"
	DefaultDPI         = 300
	DefaultFontTimeout = 10 * time.Second
	DefaultJobRetries  = 3

	fontDirName     = "fonts"
	fontCatalogName = "font_catalog.json"
)

// Config holds every setting shared by the server and the CLI.
type Config struct {
	Port           string
	FontDir        string
	FontCatalog    string
	SpineTable     string
	DefaultDPI     float64
	MaxImageBytes  int64
	MaxImagePixels int64
	FontTimeout    time.Duration
	JobRetries     int
	JobTTL         time.Duration
}

// Default returns the built-in settings. Font files live in a "fonts"
// directory chosen by DataDir.
func Default() Config {
	dir := DataDir()
	return Config{
		Port:           DefaultPort,
		FontDir:        filepath.Join(dir, fontDirName),
		FontCatalog:    filepath.Join(dir, fontCatalogName),
		SpineTable:     geometry.KDP.Name,
		DefaultDPI:     DefaultDPI,
		MaxImageBytes:  imageload.DefaultMaxBytes,
		MaxImagePixels: imageload.DefaultMaxPixels,
		FontTimeout:    DefaultFontTimeout,
		JobRetries:     DefaultJobRetries,
		JobTTL:         jobs.DefaultMaxAge,
	}
}

// Load returns Default overridden by any COVER_* variables that are set.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Default()

	if v := getenv(EnvPort); v != "" {
		cfg.Port = v
	}
	if v := getenv(EnvFontDir); v != "" {
		cfg.FontDir = v
	}
	if v := getenv(EnvFontCatalog); v != "" {
		cfg.FontCatalog = v
	}
	if v := getenv(EnvSpineTable); v != "" {
		cfg.SpineTable = v
	}
	if v := getenv(EnvDefaultDPI); v != "" {
		dpi, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s: %w", EnvDefaultDPI, err)
		}
		cfg.DefaultDPI = dpi
	}
	if v := getenv(EnvMaxImageBytes); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s: %w", EnvMaxImageBytes, err)
		}
		cfg.MaxImageBytes = n
	}
	if v := getenv(EnvMaxImagePixels); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s: %w", EnvMaxImagePixels, err)
		}
		cfg.MaxImagePixels = n
	}
	if v := getenv(EnvFontTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s: %w", EnvFontTimeout, err)
		}
		cfg.FontTimeout = d
	}
	if v := getenv(EnvJobRetries); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s: %w", EnvJobRetries, err)
		}
		cfg.JobRetries = n
	}
	if v := getenv(EnvJobTTL); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s: %w", EnvJobTTL, err)
		}
		cfg.JobTTL = d
	}

	return cfg, cfg.Validate()
}

// Validate checks ranges and names.
func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid port: %s", c.Port)
	}
	if _, err := geometry.LookupTable(c.SpineTable); err != nil {
		return err
	}
	if c.DefaultDPI <= 0 {
		return fmt.Errorf("default DPI must be positive, got %v", c.DefaultDPI)
	}
	if err := export.CheckDPI(c.DefaultDPI); err != nil {
		return fmt.Errorf("default DPI: %w", err)
	}
	if c.MaxImageBytes <= 0 {
		return fmt.Errorf("max image bytes must be positive, got %d", c.MaxImageBytes)
	}
	if c.MaxImagePixels <= 0 {
		return fmt.Errorf("max image pixels must be positive, got %d", c.MaxImagePixels)
	}
	if c.FontTimeout <= 0 {
		return fmt.Errorf("font timeout must be positive, got %s", c.FontTimeout)
	}
	if c.JobRetries < 1 {
		return fmt.Errorf("job retries must be at least 1, got %d", c.JobRetries)
	}
	if c.JobTTL <= 0 {
		return fmt.Errorf("job TTL must be positive, got %s", c.JobTTL)
	}
	return nil
}

// Table returns the configured spine table.
func (c Config) Table() geometry.SpineTable {
	t, err := geometry.LookupTable(c.SpineTable)
	if err != nil {
		return geometry.KDP
	}
	return t
}

// DataDir picks the directory for font files and the font catalog. It
// prefers the executable's directory when writable, then the working
// directory, then the per-user config directory.
func DataDir() string {
	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		if writable(exeDir) {
			return exeDir
		}
	}

	if wd, err := os.Getwd(); err == nil && writable(wd) {
		return wd
	}

	var configDir string
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			configDir = filepath.Join(appData, "cover-engine")
		} else {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "cover-engine")
		}
	} else if home := os.Getenv("HOME"); home != "" {
		configDir = filepath.Join(home, ".config", "cover-engine")
	}

	if configDir != "" {
		os.MkdirAll(configDir, 0755)
		return configDir
	}
	return "."
}

func writable(dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	testFile := filepath.Join(dir, ".cover-engine-write-test")
	f, err := os.Create(testFile)
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(testFile)
	return true
}
