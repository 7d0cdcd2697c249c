// Package config loads slash settings from defaults, an optional config
// file, a .env file and SLASH_* environment variables, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	appName   = "slash"
	envPrefix = "SLASH"

	defaultLogLevel    = "warn"
	defaultCommandsDir = ".slash/commands"
	defaultPromptsDir  = ".slash/prompts"
	defaultHistoryFile = ".slash/history"
	maxRetries         = 10
)

// Config is the resolved configuration.
type Config struct {
	LogLevel      string        `mapstructure:"log_level"`
	LogPretty     bool          `mapstructure:"log_pretty"`
	CommandsDir   string        `mapstructure:"commands_dir"`
	PromptsDir    string        `mapstructure:"prompts_dir"`
	WorkspaceRoot string        `mapstructure:"workspace_root"`
	HistoryFile   string        `mapstructure:"history_file"`
	RunTimeout    time.Duration `mapstructure:"run_timeout"`
	Retries       uint64        `mapstructure:"retries"`
	Watch         bool          `mapstructure:"watch"`
	Language      string        `mapstructure:"language"`
}

// Load resolves the configuration for workDir. configFile may name an
// explicit file; otherwise slash.{yaml,json,toml} is looked up in workDir and
// $HOME/.config/slash, and a missing file is not an error. Relative paths in
// the result are resolved against workDir.
func Load(configFile, workDir string) (*Config, error) {
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("working directory: %w", err)
		}
		workDir = wd
	}
	if err := loadDotEnv(filepath.Join(workDir, ".env")); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v, workDir)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(appName)
		v.AddConfigPath(workDir)
		v.AddConfigPath(filepath.Join("$HOME", ".config", appName))
	}
	if err := readConfig(v.ReadInConfig()); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.resolvePaths(workDir)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, workDir string) {
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("log_pretty", false)
	v.SetDefault("commands_dir", defaultCommandsDir)
	v.SetDefault("prompts_dir", defaultPromptsDir)
	v.SetDefault("workspace_root", workDir)
	v.SetDefault("history_file", defaultHistoryFile)
	v.SetDefault("run_timeout", time.Duration(0))
	v.SetDefault("retries", 0)
	v.SetDefault("watch", false)
	v.SetDefault("language", "")
}

// readConfig handles the result of reading a configuration file.
func readConfig(err error) error {
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("failed to read config: %w", err)
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

func (c *Config) resolvePaths(workDir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(workDir, p)
	}
	c.WorkspaceRoot = abs(c.WorkspaceRoot)
	c.CommandsDir = abs(c.CommandsDir)
	c.PromptsDir = abs(c.PromptsDir)
	c.HistoryFile = abs(c.HistoryFile)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.RunTimeout < 0 {
		return fmt.Errorf("run_timeout must not be negative, got %s", c.RunTimeout)
	}
	if c.Retries > maxRetries {
		return fmt.Errorf("retries must be at most %d, got %d", maxRetries, c.Retries)
	}
	return nil
}
