package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the lens engine.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Clients ClientsConfig `yaml:"clients"`
	Engine  EngineConfig  `yaml:"engine"`
	Rules   RulesConfig   `yaml:"rules"`
	History HistoryConfig `yaml:"history"`
	Logging LoggingConfig `yaml:"logging"`
	Cache   CacheConfig   `yaml:"cache"`
}

// ServerConfig controls the HTTP listeners.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// ClientsConfig groups outbound integrations.
type ClientsConfig struct {
	TraceLog TraceLogClientConfig `yaml:"tracelog"`
}

// TraceLogClientConfig configures access to the trace log retrieval service.
type TraceLogClientConfig struct {
	BaseURL  string        `yaml:"baseURL"`
	ListPath string        `yaml:"listPath"`
	Timeout  time.Duration `yaml:"timeout"`
}

// EngineConfig tunes correlation scoring. Zero values fall back to the
// selected profile's defaults; requests may override per call.
type EngineConfig struct {
	Profile    string        `yaml:"profile"`
	TimeWindow time.Duration `yaml:"timeWindow"`
	Threshold  float64       `yaml:"threshold"`
}

// RulesConfig points at an optional YAML rule pack layered over the builtin
// classification rules.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// HistoryConfig controls retention of analysis results.
type HistoryConfig struct {
	Enabled bool          `yaml:"enabled"`
	Limit   int           `yaml:"limit"`
	TTL     time.Duration `yaml:"ttl"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig controls the Valkey-backed cache used for fetched diagnostics
// and analysis history.
type CacheConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Addr           string        `yaml:"addr"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	DB             int           `yaml:"db"`
	DialTimeout    time.Duration `yaml:"dialTimeout"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`
	MaxRetries     int           `yaml:"maxRetries"`
	DiagnosticsTTL time.Duration `yaml:"diagnosticsTTL"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CHECKOUT_LENS_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8880",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Clients: ClientsConfig{
			TraceLog: TraceLogClientConfig{
				ListPath: "/api/v1/tracelogs/search",
				Timeout:  5 * time.Second,
			},
		},
		Engine: EngineConfig{Profile: "coarse"},
		Rules:  RulesConfig{Path: "configs/rulepacks/default.yaml"},
		History: HistoryConfig{
			Enabled: false,
			Limit:   100,
			TTL:     24 * time.Hour,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Cache: CacheConfig{
			Enabled:        false,
			DialTimeout:    2 * time.Second,
			ReadTimeout:    500 * time.Millisecond,
			WriteTimeout:   500 * time.Millisecond,
			MaxRetries:     2,
			DiagnosticsTTL: 2 * time.Minute,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CHECKOUT_LENS_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("CHECKOUT_LENS_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("CHECKOUT_LENS_TRACELOG_BASE_URL"); v != "" {
		cfg.Clients.TraceLog.BaseURL = v
	}
	if v := os.Getenv("CHECKOUT_LENS_TRACELOG_LIST_PATH"); v != "" {
		cfg.Clients.TraceLog.ListPath = v
	}
	if v := os.Getenv("CHECKOUT_LENS_TRACELOG_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Clients.TraceLog.Timeout = d
		}
	}
	if v := os.Getenv("CHECKOUT_LENS_PROFILE"); v != "" {
		cfg.Engine.Profile = v
	}
	if v := os.Getenv("CHECKOUT_LENS_TIME_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Engine.TimeWindow = d
		}
	}
	if v := os.Getenv("CHECKOUT_LENS_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Engine.Threshold = f
		}
	}
	if v := os.Getenv("CHECKOUT_LENS_RULES_PATH"); v != "" {
		cfg.Rules.Path = v
	}
	if v := os.Getenv("CHECKOUT_LENS_HISTORY_ENABLED"); v != "" {
		cfg.History.Enabled = isTruthy(v)
	}
	if v := os.Getenv("CHECKOUT_LENS_HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.History.Limit = n
		}
	}
	if v := os.Getenv("CHECKOUT_LENS_HISTORY_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.History.TTL = d
		}
	}
	if v := os.Getenv("CHECKOUT_LENS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CHECKOUT_LENS_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("CHECKOUT_LENS_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = isTruthy(v)
	}
	if v := os.Getenv("CHECKOUT_LENS_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("CHECKOUT_LENS_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("CHECKOUT_LENS_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("CHECKOUT_LENS_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("CHECKOUT_LENS_CACHE_DIAL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.DialTimeout = d
		}
	}
	if v := os.Getenv("CHECKOUT_LENS_CACHE_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.ReadTimeout = d
		}
	}
	if v := os.Getenv("CHECKOUT_LENS_CACHE_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.WriteTimeout = d
		}
	}
	if v := os.Getenv("CHECKOUT_LENS_CACHE_MAX_RETRIES"); v != "" {
		if retry, err := strconv.Atoi(v); err == nil {
			cfg.Cache.MaxRetries = retry
		}
	}
	if v := os.Getenv("CHECKOUT_LENS_CACHE_DIAGNOSTICS_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.DiagnosticsTTL = d
		}
	}
}

func isTruthy(v string) bool {
	return strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
}
