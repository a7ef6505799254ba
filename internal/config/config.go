// Package config loads vita's settings from config file, environment,
// and flags, in that order of increasing precedence.
//
// The config file lives at ~/.vita/config.yaml by default. Every key
// can also be set through the environment with a VITA_ prefix, e.g.
// VITA_SERVER_URL.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Settings holds the resolved configuration.
type Settings struct {
	// ServerURL is the base URL of the remote wellness service.
	ServerURL string `mapstructure:"server_url"`

	// DBPath is the local SQLite database file.
	DBPath string `mapstructure:"db_path"`

	// PhotoDir is the drop directory watched for progress photos.
	PhotoDir string `mapstructure:"photo_dir"`

	// PushCooldown is the minimum interval between pushes of the
	// same day.
	PushCooldown time.Duration `mapstructure:"push_cooldown"`

	// PullCooldown is the minimum interval between pulls per feed.
	PullCooldown time.Duration `mapstructure:"pull_cooldown"`

	// PullWindowDays bounds how far back pulls reach.
	PullWindowDays int `mapstructure:"pull_window_days"`

	// PushInterval and PullInterval drive the daemon's periodic loops.
	PushInterval time.Duration `mapstructure:"push_interval"`
	PullInterval time.Duration `mapstructure:"pull_interval"`

	// DashboardPort is the local status server port.
	DashboardPort int `mapstructure:"dashboard_port"`

	// LogFile receives daemon logs. Empty means stderr.
	LogFile string `mapstructure:"log_file"`
}

// Dir returns vita's home directory, creating it if needed.
func Dir() (string, error) {
	if dir := os.Getenv("VITA_HOME"); dir != "" {
		return dir, os.MkdirAll(dir, 0755)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".vita")
	return dir, os.MkdirAll(dir, 0755)
}

// Load reads the config file (if present) and environment, applying
// defaults for everything unset.
func Load() (*Settings, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("vita")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server_url", "")
	v.SetDefault("db_path", filepath.Join(dir, "vita.db"))
	v.SetDefault("photo_dir", filepath.Join(dir, "photos"))
	v.SetDefault("push_cooldown", 15*time.Second)
	v.SetDefault("pull_cooldown", 30*time.Second)
	v.SetDefault("pull_window_days", 90)
	v.SetDefault("push_interval", 30*time.Second)
	v.SetDefault("pull_interval", 5*time.Minute)
	v.SetDefault("dashboard_port", 8723)
	v.SetDefault("log_file", "")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; everything else is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &s, nil
}

// NewLogger builds a logger for long-running processes. With a log
// file configured, output rotates via lumberjack; otherwise it goes to
// stderr.
func NewLogger(s *Settings, prefix string) *log.Logger {
	if s.LogFile == "" {
		return log.New(os.Stderr, prefix, log.LstdFlags)
	}
	return log.New(&lumberjack.Logger{
		Filename:   s.LogFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}, prefix, log.LstdFlags)
}
