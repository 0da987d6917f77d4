package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GlobalConfig represents per-user settings stored in ~/.config/aebench/config.yml.
// They fill in values a repository config leaves unset.
type GlobalConfig struct {
	LogLevel       string `yaml:"log_level,omitempty"`
	SudoUser       string `yaml:"sudo_user,omitempty"`
	ProxyJump      string `yaml:"proxy_jump,omitempty"`
	ConnectTimeout int    `yaml:"connect_timeout,omitempty"`
	HistoryPath    string `yaml:"history_path,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "aebench"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/aebench/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	path := GlobalConfigPath()
	if path == "" {
		return &GlobalConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GlobalConfig{}, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing global config: %w", err)
	}

	if cfg.HistoryPath != "" {
		cfg.HistoryPath = ExpandPath(cfg.HistoryPath)
	}

	globalConfigCache = &cfg
	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// apply copies the global settings onto cfg before the repository file is
// read, so repository values win.
func (g *GlobalConfig) apply(cfg *Config) {
	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}
	if g.SudoUser != "" {
		cfg.Priority.User = g.SudoUser
	}
	if g.ProxyJump != "" {
		cfg.Remote.ProxyJump = g.ProxyJump
	}
	if g.ConnectTimeout > 0 {
		cfg.Remote.ConnectTimeout = g.ConnectTimeout
	}
	if g.HistoryPath != "" {
		cfg.History.Path = g.HistoryPath
	}
}
