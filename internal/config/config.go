// Package config loads imgwall settings from a config file, IMGWALL_*
// environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mmcdole/imgwall/internal/fetch"
	"github.com/mmcdole/imgwall/internal/imgmanager"
)

// ErrInvalid indicates a setting outside its allowed range
var ErrInvalid = errors.New("config: invalid setting")

// Config holds all application configuration
type Config struct {
	Images  ImagesConfig  `mapstructure:"images" toml:"images"`
	Fetch   FetchConfig   `mapstructure:"fetch" toml:"fetch"`
	UI      UIConfig      `mapstructure:"ui" toml:"ui"`
	Logging LoggingConfig `mapstructure:"logging" toml:"logging"`
}

// ImagesConfig holds the image manager defaults and rules
type ImagesConfig struct {
	MaxTries     int          `mapstructure:"max_tries" toml:"max_tries"`
	BatchSize    int          `mapstructure:"batch_size" toml:"batch_size"` // 0 starts every queued load at once
	Delay        int          `mapstructure:"delay" toml:"delay"`           // milliseconds
	LoadingSrc   string       `mapstructure:"loading_src" toml:"loading_src"`
	ErrorSrc     string       `mapstructure:"error_src" toml:"error_src"`
	LoadingClass string       `mapstructure:"loading_class" toml:"loading_class"`
	ErrorClass   string       `mapstructure:"error_class" toml:"error_class"`
	SuccessClass string       `mapstructure:"success_class" toml:"success_class"`
	LazyLoad     bool         `mapstructure:"lazy_load" toml:"lazy_load"`
	Rules        []RuleConfig `mapstructure:"rules" toml:"rules,omitempty"`
}

// RuleConfig overrides the image defaults for matching sources
type RuleConfig struct {
	Match      string `mapstructure:"match" toml:"match"`     // substring, "*" for all
	Pattern    string `mapstructure:"pattern" toml:"pattern"` // regular expression
	BatchSize  *int   `mapstructure:"batch_size" toml:"batch_size,omitempty"`
	MaxTries   *int   `mapstructure:"max_tries" toml:"max_tries,omitempty"`
	Delay      int    `mapstructure:"delay" toml:"delay"`
	LoadingSrc string `mapstructure:"loading_src" toml:"loading_src"`
	ErrorSrc   string `mapstructure:"error_src" toml:"error_src"`
}

// FetchConfig holds HTTP transport configuration
type FetchConfig struct {
	Timeout     time.Duration `mapstructure:"timeout" toml:"timeout"`
	UserAgent   string        `mapstructure:"user_agent" toml:"user_agent"`
	VerifyImage bool          `mapstructure:"verify_image" toml:"verify_image"`
	BaseURL     string        `mapstructure:"base_url" toml:"base_url"`
	MaxBytes    int64         `mapstructure:"max_bytes" toml:"max_bytes"`
}

// UIConfig holds wall view configuration
type UIConfig struct {
	GridColumns int `mapstructure:"grid_columns" toml:"grid_columns"`
	CellWidth   int `mapstructure:"cell_width" toml:"cell_width"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file" toml:"file"`
	Level string `mapstructure:"level" toml:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Images: ImagesConfig{
			MaxTries:     1,
			LoadingClass: "loading",
			ErrorClass:   "error",
			SuccessClass: "success",
			LazyLoad:     true,
		},
		Fetch: FetchConfig{
			Timeout:     30 * time.Second,
			UserAgent:   "imgwall/0.1",
			VerifyImage: true,
			MaxBytes:    32 << 20,
		},
		UI: UIConfig{
			GridColumns: 4,
			CellWidth:   28,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "imgwall", "imgwall.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "imgwall", "imgwall.log")
	}
}

// DefaultPath is where Save writes when no path is given.
func DefaultPath() string {
	return filepath.Join(defaultConfigPath(), "config.toml")
}

// Save writes cfg as TOML, creating directories as needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	bytes, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, bytes, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "imgwall")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "imgwall")
	}
}

// flagKeys maps command-line flag names to config keys
var flagKeys = map[string]string{
	"max-tries":    "images.max_tries",
	"batch-size":   "images.batch_size",
	"delay":        "images.delay",
	"lazy":         "images.lazy_load",
	"timeout":      "fetch.timeout",
	"verify-image": "fetch.verify_image",
	"base-url":     "fetch.base_url",
	"columns":      "ui.grid_columns",
	"log-file":     "logging.file",
	"log-level":    "logging.level",
}

// Load reads configuration. An empty path searches the default config
// directory and the working directory; a missing file is not an error.
// Flags present in flags override file and environment values.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	// Environment variable overrides, e.g. IMGWALL_IMAGES_MAX_TRIES
	v.SetEnvPrefix("IMGWALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("error binding flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so environment variables can reach it
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("images.max_tries", cfg.Images.MaxTries)
	v.SetDefault("images.batch_size", cfg.Images.BatchSize)
	v.SetDefault("images.delay", cfg.Images.Delay)
	v.SetDefault("images.loading_src", cfg.Images.LoadingSrc)
	v.SetDefault("images.error_src", cfg.Images.ErrorSrc)
	v.SetDefault("images.loading_class", cfg.Images.LoadingClass)
	v.SetDefault("images.error_class", cfg.Images.ErrorClass)
	v.SetDefault("images.success_class", cfg.Images.SuccessClass)
	v.SetDefault("images.lazy_load", cfg.Images.LazyLoad)

	v.SetDefault("fetch.timeout", cfg.Fetch.Timeout)
	v.SetDefault("fetch.user_agent", cfg.Fetch.UserAgent)
	v.SetDefault("fetch.verify_image", cfg.Fetch.VerifyImage)
	v.SetDefault("fetch.base_url", cfg.Fetch.BaseURL)
	v.SetDefault("fetch.max_bytes", cfg.Fetch.MaxBytes)

	v.SetDefault("ui.grid_columns", cfg.UI.GridColumns)
	v.SetDefault("ui.cell_width", cfg.UI.CellWidth)

	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
}

// Validate rejects negative counts and unusable rules
func (c *Config) Validate() error {
	img := c.Images
	if img.MaxTries < 0 || img.BatchSize < 0 || img.Delay < 0 {
		return fmt.Errorf("%w: images.max_tries, batch_size and delay must not be negative", ErrInvalid)
	}
	for i, r := range img.Rules {
		if r.Delay < 0 || (r.BatchSize != nil && *r.BatchSize < 0) || (r.MaxTries != nil && *r.MaxTries < 0) {
			return fmt.Errorf("%w: rule %d has a negative setting", ErrInvalid, i)
		}
	}
	if c.UI.GridColumns < 1 {
		return fmt.Errorf("%w: ui.grid_columns must be at least 1", ErrInvalid)
	}
	if c.Fetch.Timeout < 0 {
		return fmt.Errorf("%w: fetch.timeout must not be negative", ErrInvalid)
	}
	if c.Fetch.MaxBytes < 0 {
		return fmt.Errorf("%w: fetch.max_bytes must not be negative", ErrInvalid)
	}
	return nil
}

// ManagerOptions converts the image settings for imgmanager.New
func (c *Config) ManagerOptions() imgmanager.Options {
	img := c.Images
	opts := imgmanager.Options{
		MaxTries:     img.MaxTries,
		BatchSize:    img.BatchSize,
		Delay:        time.Duration(img.Delay) * time.Millisecond,
		LoadingSrc:   img.LoadingSrc,
		ErrorSrc:     img.ErrorSrc,
		LoadingClass: img.LoadingClass,
		ErrorClass:   img.ErrorClass,
		SuccessClass: img.SuccessClass,
		LazyLoad:     img.LazyLoad,
	}
	for _, r := range img.Rules {
		opts.Rules = append(opts.Rules, imgmanager.RuleConfig{
			Match:      r.Match,
			Pattern:    r.Pattern,
			BatchSize:  r.BatchSize,
			MaxTries:   r.MaxTries,
			Delay:      time.Duration(r.Delay) * time.Millisecond,
			LoadingSrc: r.LoadingSrc,
			ErrorSrc:   r.ErrorSrc,
		})
	}
	return opts
}

// FetchOptions converts the transport settings for fetch.NewHTTPTransport
func (c *Config) FetchOptions() fetch.Options {
	return fetch.Options{
		Timeout:     c.Fetch.Timeout,
		UserAgent:   c.Fetch.UserAgent,
		VerifyImage: c.Fetch.VerifyImage,
		BaseURL:     c.Fetch.BaseURL,
		MaxBytes:    c.Fetch.MaxBytes,
	}
}
