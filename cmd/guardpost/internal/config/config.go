// Package config loads the coordinator's YAML configuration file.
//
// Every section is optional; an empty file (or no file at all) yields a
// working coordinator that records to ./audio and ./data with no
// recognizer, no Telegram channel and no archive.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// Config is the top-level coordinator configuration.
type Config struct {
	// Listen is the HTTP/WebSocket listen address.
	Listen string `yaml:"listen"`

	// AudioDir and DataDir are the artifact roots.
	AudioDir string `yaml:"audio_dir"`
	DataDir  string `yaml:"data_dir"`

	// StaticDir serves the dashboard at /. Empty disables it.
	StaticDir string `yaml:"static_dir"`

	// IndexDir is the BadgerDB directory for the session index.
	// Empty keeps the index in memory only.
	IndexDir string `yaml:"index_dir"`

	Recognizer Recognizer `yaml:"recognizer"`
	Alert      Alert      `yaml:"alert"`
	Telegram   Telegram   `yaml:"telegram"`
	Archive    Archive    `yaml:"archive"`
}

// Recognizer configures the speech recognition subprocess.
// An empty Command disables recognition.
type Recognizer struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Restart bool     `yaml:"restart"`
}

// Alert configures the keyword gate.
type Alert struct {
	// Keywords override the default emergency keyword list.
	Keywords []string `yaml:"keywords"`

	// Cooldown suppresses repeat alerts for the same keyword.
	// Zero re-fires on every matching line.
	Cooldown time.Duration `yaml:"cooldown"`
}

// Telegram configures the notification channel.
// An empty Token disables it.
type Telegram struct {
	Token  string `yaml:"token"`
	ChatID string `yaml:"chat_id"`
}

// Archive configures the optional S3 mirror for finished artifacts.
// An empty Bucket disables it.
type Archive struct {
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`

	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`

	// UsePathStyle is needed for most S3-compatible stores (MinIO, R2).
	UsePathStyle bool `yaml:"use_path_style"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:   ":8000",
		AudioDir: "audio",
		DataDir:  "data",
	}
}

// Load reads the YAML file at path over the defaults. A missing file is
// not an error; the defaults are returned as-is.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Listen == "" {
		cfg.Listen = ":8000"
	}
	if cfg.AudioDir == "" {
		cfg.AudioDir = "audio"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	return cfg, nil
}
