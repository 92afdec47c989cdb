package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	LogLevel string `json:"log_level"`
	Backend  struct {
		BaseURL               string `json:"base_url"`
		RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
	} `json:"backend"`
	Timings struct {
		PollIntervalMS int `json:"poll_interval_ms"`
		SlowUploadMS   int `json:"slow_upload_ms"`
		RiddleDelayMS  int `json:"riddle_delay_ms"`
		ReplyDelayMS   int `json:"reply_delay_ms"`
	} `json:"timings"`
	HTTP struct {
		Enabled bool   `json:"enabled"`
		Listen  string `json:"listen"`
	} `json:"http"`
	Render struct {
		Width int `json:"width"`
	} `json:"render"`
}

// DefaultPath returns ~/.docchat/config.json.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".docchat", "config.json")
}

func Defaults() *Config {
	cfg := &Config{LogLevel: "info"}
	cfg.Backend.BaseURL = "http://127.0.0.1:8000"
	cfg.Backend.RequestTimeoutSeconds = 300
	cfg.Timings.PollIntervalMS = 3000
	cfg.Timings.SlowUploadMS = 20000
	cfg.Timings.RiddleDelayMS = 2000
	cfg.Timings.ReplyDelayMS = 500
	cfg.HTTP.Listen = "127.0.0.1:8090"
	cfg.Render.Width = 80
	return cfg
}

func Load(path string) (*Config, error) {
	cfg := Defaults()

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if baseURL := os.Getenv("DOCCHAT_BACKEND_URL"); baseURL != "" {
		cfg.Backend.BaseURL = baseURL
	}
	if level := os.Getenv("DOCCHAT_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	return cfg, nil
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Backend.RequestTimeoutSeconds) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Timings.PollIntervalMS) * time.Millisecond
}

func (c *Config) SlowUploadDelay() time.Duration {
	return time.Duration(c.Timings.SlowUploadMS) * time.Millisecond
}

func (c *Config) RiddleDelay() time.Duration {
	return time.Duration(c.Timings.RiddleDelayMS) * time.Millisecond
}

func (c *Config) ReplyDelay() time.Duration {
	return time.Duration(c.Timings.ReplyDelayMS) * time.Millisecond
}

// Save writes cfg to path atomically, creating the directory if needed.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeFile(path, data)
}

// ToMap converts cfg into the generic nested map form of its JSON encoding.
func ToMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return m, nil
}

// ListValues returns every setting keyed by its dot-separated path.
func ListValues(cfg *Config) (map[string]any, error) {
	m, err := ToMap(cfg)
	if err != nil {
		return nil, err
	}
	return Flatten(m), nil
}

// GetValue reads a single dot-separated key from the file at path. Keys the
// file holds but Config does not know about are returned as well.
func GetValue(path, key string) (any, error) {
	if _, err := Load(path); err != nil {
		return nil, err
	}
	raw, err := readRaw(path)
	if err != nil {
		return nil, err
	}
	v, ok := Flatten(raw)[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return v, nil
}

// SetValue stores value under a dot-separated key in the existing file at
// path. Values that parse as JSON (numbers, booleans) keep their type;
// anything else is stored as a string.
func SetValue(path, key, value string) error {
	raw, err := readRaw(path)
	if err != nil {
		return err
	}

	var parsed any
	if err := json.Unmarshal([]byte(value), &parsed); err != nil {
		parsed = value
	}

	flat := Flatten(raw)
	flat[key] = parsed

	data, err := json.MarshalIndent(Unflatten(flat), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeFile(path, data)
}

func readRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return raw, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}
