package config

import (
	"os"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Helper function to reset pflag.CommandLine for testing
func resetFlags() {
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	viper.Reset()
}

// Helper function to set os.Args for testing
func setArgs(args []string) {
	os.Args = args
}

// Helper function to clear environment variables
func clearEnvVars() {
	os.Unsetenv("CNSEXTRACT_DIR")
	os.Unsetenv("CNSEXTRACT_RECURSIVE")
	os.Unsetenv("CNSEXTRACT_DB")
	os.Unsetenv("CNSEXTRACT_LOGLEVEL")
	os.Unsetenv("CNSEXTRACT_MAXFILESIZE")
	os.Unsetenv("CNSEXTRACT_WORKERS")
}

func TestLoadFromFlags_DefaultConfig(t *testing.T) {
	// Save original args and environment
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	// Set minimal args (just program name)
	setArgs([]string{"cnsextract"})
	resetFlags()
	clearEnvVars()

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("LoadFromFlags() LogLevel = %v, want %v", cfg.LogLevel, "info")
	}
	if cfg.MaxFileSize != 100*1024*1024 {
		t.Errorf("LoadFromFlags() MaxFileSize = %v, want %v", cfg.MaxFileSize, 100*1024*1024)
	}
	if cfg.DatabasePath != DefaultDatabase {
		t.Errorf("LoadFromFlags() DatabasePath = %v, want %v", cfg.DatabasePath, DefaultDatabase)
	}
	if cfg.Workers < 1 {
		t.Errorf("LoadFromFlags() Workers = %v, want at least 1", cfg.Workers)
	}
	// InputDir should be current working directory
	if cfg.InputDir == "" {
		t.Error("LoadFromFlags() InputDir should not be empty")
	}
}

func TestLoadFromFlags_ValidFlags(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	tempDir := t.TempDir()
	setArgs([]string{
		"cnsextract",
		"--dir=" + tempDir,
		"--recursive",
		"--db=" + tempDir + "/reports.db",
		"--loglevel=debug",
		"--maxfilesize=5000000",
		"--workers=2",
	})
	resetFlags()
	clearEnvVars()

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.InputDir != tempDir {
		t.Errorf("LoadFromFlags() InputDir = %v, want %v", cfg.InputDir, tempDir)
	}
	if !cfg.Recursive {
		t.Error("LoadFromFlags() Recursive = false, want true")
	}
	if cfg.DatabasePath != tempDir+"/reports.db" {
		t.Errorf("LoadFromFlags() DatabasePath = %v", cfg.DatabasePath)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LoadFromFlags() LogLevel = %v, want %v", cfg.LogLevel, "debug")
	}
	if cfg.MaxFileSize != 5000000 {
		t.Errorf("LoadFromFlags() MaxFileSize = %v, want %v", cfg.MaxFileSize, 5000000)
	}
	if cfg.Workers != 2 {
		t.Errorf("LoadFromFlags() Workers = %v, want %v", cfg.Workers, 2)
	}
}

func TestLoadFromFlags_EnvironmentVariables(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	tempDir := t.TempDir()

	os.Setenv("CNSEXTRACT_DIR", tempDir)
	os.Setenv("CNSEXTRACT_DB", tempDir+"/env.db")
	os.Setenv("CNSEXTRACT_LOGLEVEL", "warn")
	os.Setenv("CNSEXTRACT_MAXFILESIZE", "200000000")
	os.Setenv("CNSEXTRACT_WORKERS", "3")

	setArgs([]string{"cnsextract"})
	resetFlags()

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.InputDir != tempDir {
		t.Errorf("LoadFromFlags() InputDir = %v, want %v", cfg.InputDir, tempDir)
	}
	if cfg.DatabasePath != tempDir+"/env.db" {
		t.Errorf("LoadFromFlags() DatabasePath = %v", cfg.DatabasePath)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LoadFromFlags() LogLevel = %v, want %v", cfg.LogLevel, "warn")
	}
	if cfg.MaxFileSize != 200000000 {
		t.Errorf("LoadFromFlags() MaxFileSize = %v, want %v", cfg.MaxFileSize, 200000000)
	}
	if cfg.Workers != 3 {
		t.Errorf("LoadFromFlags() Workers = %v, want %v", cfg.Workers, 3)
	}
}

func TestLoadFromFlags_FlagOverridesEnvironment(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	tempDir := t.TempDir()

	os.Setenv("CNSEXTRACT_LOGLEVEL", "error")

	setArgs([]string{"cnsextract", "--dir=" + tempDir, "--loglevel=debug"})
	resetFlags()

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LoadFromFlags() LogLevel = %v, want flag value %v", cfg.LogLevel, "debug")
	}
}

func TestLoadFromFlags_InvalidLogLevel(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	setArgs([]string{"cnsextract", "--dir=" + t.TempDir(), "--loglevel=verbose"})
	resetFlags()
	clearEnvVars()

	if _, err := LoadFromFlags(); err == nil {
		t.Fatal("LoadFromFlags() expected error for invalid log level")
	}
}

func TestLoadFromFlags_InvalidWorkers(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	setArgs([]string{"cnsextract", "--dir=" + t.TempDir(), "--workers=0"})
	resetFlags()
	clearEnvVars()

	if _, err := LoadFromFlags(); err == nil {
		t.Fatal("LoadFromFlags() expected error for zero workers")
	}
}
