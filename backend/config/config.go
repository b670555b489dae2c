package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ParseSize converts a human-readable size string (e.g., "5GB", "500MB", "1024KB")
// to bytes. Supports B, KB, MB, GB, TB suffixes (case-insensitive).
// Also accepts plain numbers as bytes.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}

	re := regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*(B|KB|MB|GB|TB)?$`)
	matches := re.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("invalid size format: %s (use e.g., '5GB', '500MB', '1024KB')", s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number in size: %s", s)
	}

	unit := strings.ToUpper(matches[2])
	if unit == "" {
		unit = "B"
	}

	multipliers := map[string]float64{
		"B":  1,
		"KB": 1024,
		"MB": 1024 * 1024,
		"GB": 1024 * 1024 * 1024,
		"TB": 1024 * 1024 * 1024 * 1024,
	}

	return int64(value * multipliers[unit]), nil
}

type Config struct {
	Listen       string             `yaml:"listen"`
	PublicURL    string             `yaml:"public_url"`
	DatabasePath string             `yaml:"database_path"`
	Session      SessionConfig      `yaml:"session"`
	Logs         LogsConfig         `yaml:"logs"`
	Auth         AuthConfig         `yaml:"auth"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	TLS          TLSConfig          `yaml:"tls"`
}

type TLSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cert    string `yaml:"cert"`
	Key     string `yaml:"key"`
}

type SessionConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	Secret  string        `yaml:"secret"`
}

// LogsConfig covers both the remote collector and the local diagnostic table.
type LogsConfig struct {
	Endpoint     string        `yaml:"endpoint"`     // Remote collector URL
	Token        string        `yaml:"token"`        // Bearer credential for the collector
	Stack        string        `yaml:"stack"`        // Stack label sent with every record
	Timeout      time.Duration `yaml:"timeout"`      // Per-request timeout for the collector
	Retention    time.Duration `yaml:"retention"`    // How long local log rows are kept
	MaxDBSize    int64         `yaml:"-"`            // Parsed size in bytes (not directly from YAML)
	MaxDBSizeRaw string        `yaml:"max_db_size"` // Human-readable size (e.g., "5GB", "500MB")
}

// AuthConfig selects the credential backend and tunes the mock one.
type AuthConfig struct {
	Backend       string        `yaml:"backend"` // "mock" or "database"
	DemoEmail     string        `yaml:"demo_email"`
	DemoPassword  string        `yaml:"demo_password"`
	LoginDelay    time.Duration `yaml:"login_delay"`
	RegisterDelay time.Duration `yaml:"register_delay"`
	UpdateDelay   time.Duration `yaml:"update_delay"`
}

type ConnectivityConfig struct {
	ProbeURL string        `yaml:"probe_url"` // Empty disables the prober
	Interval time.Duration `yaml:"interval"`
}

var C Config

func defaults() Config {
	return Config{
		Listen:       ":8080",
		PublicURL:    "http://localhost:8080",
		DatabasePath: "app.db",
		Session: SessionConfig{
			Timeout: 24 * time.Hour,
		},
		Logs: LogsConfig{
			Endpoint:  "http://localhost:9000/evaluation-service/logs",
			Stack:     "frontend",
			Timeout:   5 * time.Second,
			Retention: 48 * time.Hour,
			MaxDBSize: 5 * 1024 * 1024 * 1024, // 5GB
		},
		Auth: AuthConfig{
			Backend:       "mock",
			DemoEmail:     "demo@example.com",
			DemoPassword:  "password123",
			LoginDelay:    time.Second,
			RegisterDelay: time.Second,
			UpdateDelay:   500 * time.Millisecond,
		},
		Connectivity: ConnectivityConfig{
			Interval: 10 * time.Second,
		},
	}
}

func Load() error {
	C = defaults()

	if data, err := os.ReadFile("config.yaml"); err == nil {
		if err := yaml.Unmarshal(data, &C); err != nil {
			return fmt.Errorf("parse config.yaml: %w", err)
		}
	}

	if C.Logs.MaxDBSizeRaw != "" {
		if size, err := ParseSize(C.Logs.MaxDBSizeRaw); err == nil {
			C.Logs.MaxDBSize = size
		}
	}

	// Environment overrides
	if v := os.Getenv("LISTEN"); v != "" {
		C.Listen = v
	}
	if v := os.Getenv("PUBLIC_URL"); v != "" {
		C.PublicURL = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		C.DatabasePath = v
	}
	if v := os.Getenv("SESSION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			C.Session.Timeout = d
		}
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		C.Session.Secret = v
	}
	if v := os.Getenv("LOG_ENDPOINT"); v != "" {
		C.Logs.Endpoint = v
	}
	if v := os.Getenv("LOG_TOKEN"); v != "" {
		C.Logs.Token = v
	}
	if v := os.Getenv("LOG_STACK"); v != "" {
		C.Logs.Stack = v
	}
	if v := os.Getenv("LOG_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			C.Logs.Timeout = d
		}
	}
	if v := os.Getenv("LOG_RETENTION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			C.Logs.Retention = d
		}
	}
	if v := os.Getenv("LOGS_MAX_DB_SIZE"); v != "" {
		if size, err := ParseSize(v); err == nil {
			C.Logs.MaxDBSize = size
		}
	}
	if v := os.Getenv("AUTH_BACKEND"); v != "" {
		C.Auth.Backend = v
	}
	if v := os.Getenv("AUTH_DEMO_EMAIL"); v != "" {
		C.Auth.DemoEmail = v
	}
	if v := os.Getenv("AUTH_DEMO_PASSWORD"); v != "" {
		C.Auth.DemoPassword = v
	}
	if v := os.Getenv("AUTH_LOGIN_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			C.Auth.LoginDelay = d
		}
	}
	if v := os.Getenv("AUTH_REGISTER_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			C.Auth.RegisterDelay = d
		}
	}
	if v := os.Getenv("AUTH_UPDATE_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			C.Auth.UpdateDelay = d
		}
	}
	if v := os.Getenv("CONNECTIVITY_PROBE_URL"); v != "" {
		C.Connectivity.ProbeURL = v
	}
	if v := os.Getenv("CONNECTIVITY_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			C.Connectivity.Interval = d
		}
	}
	if v := os.Getenv("TLS_ENABLED"); v == "true" {
		C.TLS.Enabled = true
	}
	if v := os.Getenv("TLS_CERT"); v != "" {
		C.TLS.Cert = v
	}
	if v := os.Getenv("TLS_KEY"); v != "" {
		C.TLS.Key = v
	}

	switch C.Auth.Backend {
	case "mock", "database":
	default:
		return fmt.Errorf("unknown auth backend %q (use 'mock' or 'database')", C.Auth.Backend)
	}
	if C.Connectivity.Interval <= 0 {
		return fmt.Errorf("connectivity interval must be positive, got %s", C.Connectivity.Interval)
	}

	return nil
}
