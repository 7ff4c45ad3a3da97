package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	xdgAppName = "recur"
	configFile = "config.json"
	envPrefix  = "RECUR"
)

type Config struct {
	// Lists holds the titles of the task lists to reconcile. Empty means all.
	Lists           []string `json:"lists" mapstructure:"lists"`
	MaxRetries      int      `json:"max_retries" mapstructure:"max_retries"`
	StopOnListError bool     `json:"stop_on_list_error" mapstructure:"stop_on_list_error"`
	History         bool     `json:"history" mapstructure:"history"`
}

func Default() *Config {
	return &Config{
		MaxRetries: 3,
		History:    true,
	}
}

func GetConfigPath() (string, error) {
	xdgHome, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(xdgHome, ".config", xdgAppName, configFile), nil
}

// Load reads the config file, falling back to defaults when it does not
// exist. RECUR_* environment variables override file values.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

func LoadFrom(path string) (*Config, error) {
	def := Default()

	v := viper.New()
	v.SetDefault("lists", []string{})
	v.SetDefault("max_retries", def.MaxRetries)
	v.SetDefault("stop_on_list_error", def.StopOnListError)
	v.SetDefault("history", def.History)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &cfg, nil
}

func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

func SaveTo(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(cfg)
}
