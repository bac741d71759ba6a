package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Normalizer choices
	NormalizerNone   = "none"
	NormalizerGemini = "gemini"

	// Default values
	DefaultFormURL            = "https://docs.google.com/forms/d/e/1FAIpQLScy9oI-x2tmtCuE1rb6iZFZnhoPW9qutQBiml0A-4MM2eOa0g/viewform"
	DefaultPort               = 8080
	DefaultHost               = "127.0.0.1"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "console"
	DefaultMaxFileSize        = 10 * 1024 * 1024 // 10MB
	DefaultNavigationTimeout  = 60 * time.Second
	DefaultElementTimeout     = 30 * time.Second
	DefaultProbeTimeout       = 5 * time.Second
	DefaultSettleDelay        = 2 * time.Second
	DefaultNavigationAttempts = 3

	// EnvPrefix prefixes every environment variable, e.g. QUOTE_BOT_FORM_URL.
	EnvPrefix = "QUOTE_BOT"

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the quote bot
type Config struct {
	// Form run configuration
	FormURL            string
	Headless           bool
	Interactive        bool
	NavigationTimeout  time.Duration
	ElementTimeout     time.Duration
	ProbeTimeout       time.Duration
	SettleDelay        time.Duration
	NavigationAttempts int
	ScreenshotDir      string
	PagesFile          string

	// Browser configuration
	BrowserBin  string
	DebuggerURL string
	ReplayDir   string

	// HTTP server configuration
	Host string
	Port int

	// Input configuration
	InputDir    string
	MaxFileSize int64

	// Normalizer configuration
	Normalizer   string
	GeminiAPIKey string
	GeminiModel  string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogFile   string

	// Application configuration
	Version    string
	ServerName string
}

// DefaultConfig returns a configuration with the production defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		FormURL:            DefaultFormURL,
		Headless:           false,
		Interactive:        true,
		NavigationTimeout:  DefaultNavigationTimeout,
		ElementTimeout:     DefaultElementTimeout,
		ProbeTimeout:       DefaultProbeTimeout,
		SettleDelay:        DefaultSettleDelay,
		NavigationAttempts: DefaultNavigationAttempts,
		Host:               DefaultHost,
		Port:               DefaultPort,
		InputDir:           currentDir,
		MaxFileSize:        DefaultMaxFileSize,
		Normalizer:         NormalizerNone,
		LogLevel:           DefaultLogLevel,
		LogFormat:          DefaultLogFormat,
		Version:            "1.0.0",
		ServerName:         "quote-bot",
	}
}

// New returns a viper instance with defaults and environment lookup set up.
func New() *viper.Viper {
	v := viper.New()
	setupViperEnvironment(v, DefaultConfig())
	return v
}

// BindFlags defines every configuration flag on fs and binds it to v.
func BindFlags(fs *pflag.FlagSet, v *viper.Viper) {
	defineCommandLineFlags(fs, DefaultConfig())
	bindFlagsToViper(fs, v)
}

// Load reads the configuration from v, expands paths and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	populateConfigFromViper(v, cfg)

	for _, p := range []*string{&cfg.InputDir, &cfg.ScreenshotDir, &cfg.ReplayDir, &cfg.PagesFile, &cfg.LogFile} {
		if *p == "" {
			continue
		}
		if expanded, err := filepath.Abs(*p); err == nil {
			*p = expanded
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFromArgs parses args on a fresh flag set and loads the result.
func LoadFromArgs(args []string) (*Config, error) {
	v := New()
	fs := pflag.NewFlagSet("quote-bot", pflag.ContinueOnError)
	BindFlags(fs, v)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return Load(v)
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(v *viper.Viper, cfg *Config) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("form-url", cfg.FormURL)
	v.SetDefault("headless", cfg.Headless)
	v.SetDefault("interactive", cfg.Interactive)
	v.SetDefault("navigation-timeout", cfg.NavigationTimeout)
	v.SetDefault("element-timeout", cfg.ElementTimeout)
	v.SetDefault("probe-timeout", cfg.ProbeTimeout)
	v.SetDefault("settle-delay", cfg.SettleDelay)
	v.SetDefault("navigation-attempts", cfg.NavigationAttempts)
	v.SetDefault("screenshot-dir", cfg.ScreenshotDir)
	v.SetDefault("pages-file", cfg.PagesFile)
	v.SetDefault("browser-bin", cfg.BrowserBin)
	v.SetDefault("debugger-url", cfg.DebuggerURL)
	v.SetDefault("replay-dir", cfg.ReplayDir)
	v.SetDefault("host", cfg.Host)
	v.SetDefault("port", cfg.Port)
	v.SetDefault("input-dir", cfg.InputDir)
	v.SetDefault("max-file-size", cfg.MaxFileSize)
	v.SetDefault("normalizer", cfg.Normalizer)
	v.SetDefault("gemini-api-key", cfg.GeminiAPIKey)
	v.SetDefault("gemini-model", cfg.GeminiModel)
	v.SetDefault("log-level", cfg.LogLevel)
	v.SetDefault("log-format", cfg.LogFormat)
	v.SetDefault("log-file", cfg.LogFile)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.String("form-url", cfg.FormURL, "URL of the quote request form")
	fs.Bool("headless", cfg.Headless, "Run the browser without a window")
	fs.Bool("interactive", cfg.Interactive, "Pause for confirmation after each page")
	fs.Duration("navigation-timeout", cfg.NavigationTimeout, "Timeout for loading the form")
	fs.Duration("element-timeout", cfg.ElementTimeout, "Timeout for page loads and button clicks")
	fs.Duration("probe-timeout", cfg.ProbeTimeout, "Timeout for each field lookup")
	fs.Duration("settle-delay", cfg.SettleDelay, "Pause after dropdown selections and page advances")
	fs.Int("navigation-attempts", cfg.NavigationAttempts, "Attempts to load the form before giving up")
	fs.String("screenshot-dir", cfg.ScreenshotDir, "Directory for page and error screenshots (disabled when empty)")
	fs.String("pages-file", cfg.PagesFile, "YAML page table replacing the built-in form layout")
	fs.String("browser-bin", cfg.BrowserBin, "Chrome or Chromium binary (downloaded when empty)")
	fs.String("debugger-url", cfg.DebuggerURL, "DevTools URL of an already running browser")
	fs.String("replay-dir", cfg.ReplayDir, "Directory of saved form pages to run against instead of a browser")
	fs.String("host", cfg.Host, "HTTP server host address")
	fs.Int("port", cfg.Port, "HTTP server port")
	fs.String("input-dir", cfg.InputDir, "Directory request files may be read from")
	fs.Int64("max-file-size", cfg.MaxFileSize, "Maximum request file size in bytes")
	fs.String("normalizer", cfg.Normalizer, "Text normalizer: none or gemini")
	fs.String("gemini-api-key", cfg.GeminiAPIKey, "Gemini API key for the gemini normalizer")
	fs.String("gemini-model", cfg.GeminiModel, "Gemini model name")
	fs.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.String("log-format", cfg.LogFormat, "Log format (console, json)")
	fs.String("log-file", cfg.LogFile, "Also write logs to this file")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper(fs *pflag.FlagSet, v *viper.Viper) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
	})
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(v *viper.Viper, cfg *Config) {
	cfg.FormURL = v.GetString("form-url")
	cfg.Headless = v.GetBool("headless")
	cfg.Interactive = v.GetBool("interactive")
	cfg.NavigationTimeout = v.GetDuration("navigation-timeout")
	cfg.ElementTimeout = v.GetDuration("element-timeout")
	cfg.ProbeTimeout = v.GetDuration("probe-timeout")
	cfg.SettleDelay = v.GetDuration("settle-delay")
	cfg.NavigationAttempts = v.GetInt("navigation-attempts")
	cfg.ScreenshotDir = v.GetString("screenshot-dir")
	cfg.PagesFile = v.GetString("pages-file")
	cfg.BrowserBin = v.GetString("browser-bin")
	cfg.DebuggerURL = v.GetString("debugger-url")
	cfg.ReplayDir = v.GetString("replay-dir")
	cfg.Host = v.GetString("host")
	cfg.Port = v.GetInt("port")
	cfg.InputDir = v.GetString("input-dir")
	cfg.MaxFileSize = v.GetInt64("max-file-size")
	cfg.Normalizer = strings.ToLower(v.GetString("normalizer"))
	cfg.GeminiAPIKey = v.GetString("gemini-api-key")
	cfg.GeminiModel = v.GetString("gemini-model")
	cfg.LogLevel = strings.ToLower(v.GetString("log-level"))
	cfg.LogFormat = strings.ToLower(v.GetString("log-format"))
	cfg.LogFile = v.GetString("log-file")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	u, err := url.Parse(c.FormURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("form URL must be an absolute http(s) URL: %q", c.FormURL)
	}

	if c.Port < 1 || c.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	if c.NavigationTimeout <= 0 || c.ElementTimeout <= 0 || c.ProbeTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.SettleDelay < 0 {
		return errors.New("settle delay cannot be negative")
	}
	if c.NavigationAttempts < 1 {
		return errors.New("navigation attempts must be at least 1")
	}

	if c.InputDir == "" {
		return errors.New("input directory cannot be empty")
	}
	if _, err := os.Stat(c.InputDir); os.IsNotExist(err) {
		if err := os.MkdirAll(c.InputDir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create input directory %s: %w", c.InputDir, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access input directory %s: %w", c.InputDir, err)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	switch c.Normalizer {
	case NormalizerNone, NormalizerGemini:
	default:
		return fmt.Errorf("invalid normalizer: %s (must be one of: none, gemini)", c.Normalizer)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format: %s (must be one of: console, json)", c.LogFormat)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration. The Gemini
// key is masked.
func (c *Config) String() string {
	key := ""
	if c.GeminiAPIKey != "" {
		key = "***"
	}
	return fmt.Sprintf("Config{FormURL: %s, Headless: %t, Interactive: %t, Host: %s, Port: %d, "+
		"InputDir: %s, Normalizer: %s, GeminiAPIKey: %s, LogLevel: %s, ReplayDir: %s}",
		c.FormURL, c.Headless, c.Interactive, c.Host, c.Port,
		c.InputDir, c.Normalizer, key, c.LogLevel, c.ReplayDir)
}
