package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Default values
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultDatabase    = "cnsextract.db"

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the extraction tool
type Config struct {
	// Input configuration
	InputDir  string
	Recursive bool

	// Storage configuration
	DatabasePath string

	// Application configuration
	Version     string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
	Workers     int   // Concurrent document workers
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	return &Config{
		InputDir:     currentDir,
		Recursive:    false,
		DatabasePath: DefaultDatabase,
		Version:      "1.0.0",
		LogLevel:     DefaultLogLevel,
		MaxFileSize:  DefaultMaxFileSize,
		Workers:      runtime.NumCPU(),
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	if cfg.InputDir != "" {
		if expandedPath, err := filepath.Abs(cfg.InputDir); err == nil {
			cfg.InputDir = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("CNSEXTRACT")
	viper.AutomaticEnv()

	viper.SetDefault("dir", cfg.InputDir)
	viper.SetDefault("recursive", cfg.Recursive)
	viper.SetDefault("db", cfg.DatabasePath)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("workers", cfg.Workers)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("dir", cfg.InputDir, "Directory containing report PDF files")
	pflag.Bool("recursive", cfg.Recursive, "Recurse into subdirectories when discovering PDFs")
	pflag.String("db", cfg.DatabasePath, "Path to the SQLite database")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	pflag.Int("workers", cfg.Workers, "Number of concurrent document workers")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	_ = viper.BindPFlag("dir", pflag.Lookup("dir"))
	_ = viper.BindPFlag("recursive", pflag.Lookup("recursive"))
	_ = viper.BindPFlag("db", pflag.Lookup("db"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
	_ = viper.BindPFlag("maxfilesize", pflag.Lookup("maxfilesize"))
	_ = viper.BindPFlag("workers", pflag.Lookup("workers"))
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\ncnsextract - Extract cognitive report data from PDF files into SQLite\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/reports                  # extract every PDF in a directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/reports --recursive      # include subdirectories\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --db=/var/lib/cnsextract/reports.db     # custom database location\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  CNSEXTRACT_DIR         Report directory\n")
		fmt.Fprintf(os.Stderr, "  CNSEXTRACT_RECURSIVE   Recurse into subdirectories\n")
		fmt.Fprintf(os.Stderr, "  CNSEXTRACT_DB          SQLite database path\n")
		fmt.Fprintf(os.Stderr, "  CNSEXTRACT_LOGLEVEL    Log level\n")
		fmt.Fprintf(os.Stderr, "  CNSEXTRACT_MAXFILESIZE Maximum file size\n")
		fmt.Fprintf(os.Stderr, "  CNSEXTRACT_WORKERS     Concurrent workers\n")
	}
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.InputDir = viper.GetString("dir")
	cfg.Recursive = viper.GetBool("recursive")
	cfg.DatabasePath = viper.GetString("db")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.Workers = viper.GetInt("workers")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return errors.New("input directory cannot be empty")
	}

	// Check if input directory exists, create if it doesn't
	if _, err := os.Stat(c.InputDir); os.IsNotExist(err) {
		if err := os.MkdirAll(c.InputDir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create input directory %s: %w", c.InputDir, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access input directory %s: %w", c.InputDir, err)
	}

	if c.DatabasePath == "" {
		return errors.New("database path cannot be empty")
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
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

	return nil
}

// SlogLevel maps the configured log level to its slog equivalent
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{InputDir: %s, DatabasePath: %s, LogLevel: %s, MaxFileSize: %d, Workers: %d}",
		c.InputDir, c.DatabasePath, c.LogLevel, c.MaxFileSize, c.Workers)
}
