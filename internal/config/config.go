package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// ErrUnknownKey is returned by Set and Value for keys that do not exist.
var ErrUnknownKey = errors.New("unknown config key")

// envPrefix prefixes environment overrides, e.g. SEGCANVAS_TRACK_HEIGHT.
const envPrefix = "SEGCANVAS"

// Config represents the segcanvas configuration
type Config struct {
	// Canvas geometry
	PixelsPerSecond float64 `mapstructure:"pixels_per_second" json:"pixels_per_second"`
	TrackHeight     int     `mapstructure:"track_height" json:"track_height"`
	CellWidth       int     `mapstructure:"cell_width" json:"cell_width"`

	// Preview pipeline
	RedrawInterval   time.Duration `mapstructure:"redraw_interval" json:"redraw_interval"`
	CompletionBuffer int           `mapstructure:"completion_buffer" json:"completion_buffer"`
	WantMinima       bool          `mapstructure:"want_minima" json:"want_minima"`

	// Diagnostics
	LogLevel    string `mapstructure:"log_level" json:"log_level"`
	LogFile     string `mapstructure:"log_file" json:"log_file"`
	MetricsAddr string `mapstructure:"metrics_addr" json:"metrics_addr"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		PixelsPerSecond:  30,
		TrackHeight:      48,
		CellWidth:        4,
		RedrawInterval:   100 * time.Millisecond,
		CompletionBuffer: 64,
		WantMinima:       true,
		LogLevel:         "info",
		LogFile:          "",
		MetricsAddr:      "",
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.PixelsPerSecond <= 0:
		return fmt.Errorf("pixels_per_second must be positive, got %v", c.PixelsPerSecond)
	case c.TrackHeight < 3:
		return fmt.Errorf("track_height must be at least 3, got %d", c.TrackHeight)
	case c.CellWidth < 1:
		return fmt.Errorf("cell_width must be at least 1, got %d", c.CellWidth)
	case c.RedrawInterval <= 0:
		return fmt.Errorf("redraw_interval must be positive, got %v", c.RedrawInterval)
	case c.CompletionBuffer < 1:
		return fmt.Errorf("completion_buffer must be at least 1, got %d", c.CompletionBuffer)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// values is the config as strings, keyed like the JSON file.
func (c *Config) values() map[string]string {
	return map[string]string{
		"pixels_per_second": strconv.FormatFloat(c.PixelsPerSecond, 'g', -1, 64),
		"track_height":      strconv.Itoa(c.TrackHeight),
		"cell_width":        strconv.Itoa(c.CellWidth),
		"redraw_interval":   c.RedrawInterval.String(),
		"completion_buffer": strconv.Itoa(c.CompletionBuffer),
		"want_minima":       strconv.FormatBool(c.WantMinima),
		"log_level":         c.LogLevel,
		"log_file":          c.LogFile,
		"metrics_addr":      c.MetricsAddr,
	}
}

// Keys lists every config key in sorted order.
func Keys() []string {
	keys := make([]string, 0, 9)
	for k := range DefaultConfig().values() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Manager handles configuration loading and saving
type Manager struct {
	projectPath string
	configPath  string
	config      *Config
}

// NewManager creates a new configuration manager
func NewManager(projectPath string) *Manager {
	dir := filepath.Join(projectPath, ".segcanvas")
	return &Manager{
		projectPath: projectPath,
		configPath:  filepath.Join(dir, "config.json"),
		config:      DefaultConfig(),
	}
}

// Path returns the config file location.
func (m *Manager) Path() string {
	return m.configPath
}

// Load reads the configuration from disk, creating defaults if needed.
// SEGCANVAS_* environment variables override the file.
func (m *Manager) Load() error {
	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create .segcanvas directory: %w", err)
	}

	if err := m.ensureGitignore(); err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		if err := m.Save(); err != nil {
			return err
		}
	}

	v := viper.New()
	setupViper(v, m.configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	m.expandEnvVars(&cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", m.configPath, err)
	}

	m.config = &cfg
	return nil
}

// setupViper registers every key with its default so environment overrides
// apply even when the file omits the key.
func setupViper(v *viper.Viper, path string) {
	for key, value := range DefaultConfig().values() {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetConfigFile(path)
	v.SetConfigType("json")
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	// Durations are written as strings ("100ms") rather than nanoseconds.
	out := make(map[string]any)
	for k, s := range m.config.values() {
		out[k] = s
	}
	out["pixels_per_second"] = m.config.PixelsPerSecond
	out["track_height"] = m.config.TrackHeight
	out["cell_width"] = m.config.CellWidth
	out["completion_buffer"] = m.config.CompletionBuffer
	out["want_minima"] = m.config.WantMinima

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	return m.config
}

// Value returns one setting formatted as a string.
func (m *Manager) Value(key string) (string, error) {
	v, ok := m.config.values()[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return v, nil
}

// Set updates a configuration value and saves
func (m *Manager) Set(key, value string) error {
	next := *m.config

	var err error
	switch key {
	case "pixels_per_second":
		next.PixelsPerSecond, err = strconv.ParseFloat(value, 64)
	case "track_height":
		next.TrackHeight, err = strconv.Atoi(value)
	case "cell_width":
		next.CellWidth, err = strconv.Atoi(value)
	case "redraw_interval":
		next.RedrawInterval, err = time.ParseDuration(value)
	case "completion_buffer":
		next.CompletionBuffer, err = strconv.Atoi(value)
	case "want_minima":
		next.WantMinima, err = strconv.ParseBool(value)
	case "log_level":
		next.LogLevel = value
	case "log_file":
		next.LogFile = value
	case "metrics_addr":
		next.MetricsAddr = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}

	m.config = &next
	return m.Save()
}

// ensureGitignore creates a .gitignore in .segcanvas/ with smart defaults
func (m *Manager) ensureGitignore() error {
	gitignorePath := filepath.Join(filepath.Dir(m.configPath), ".gitignore")

	if _, err := os.Stat(gitignorePath); !os.IsNotExist(err) {
		return nil // Already exists
	}

	gitignoreContent := `# segcanvas data directory .gitignore
#
# Config is committed; logs are not.

*.log
*.tmp
.DS_Store
Thumbs.db

!config.json
!.gitignore
`

	return os.WriteFile(gitignorePath, []byte(gitignoreContent), 0o644)
}

// expandEnvVars expands environment variables in path-like config values
func (m *Manager) expandEnvVars(config *Config) {
	config.LogFile = m.expandString(config.LogFile)
	config.MetricsAddr = m.expandString(config.MetricsAddr)
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandString expands environment variables in a string
// Supports $VAR and ${VAR} syntax
func (m *Manager) expandString(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		// Return original if env var not found
		return match
	})
}
