package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "cloutagent.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// CLIFlags holds command-line overrides. Nil fields were not supplied.
type CLIFlags struct {
	ConfigPath *string
	Port       *string
	LogLevel   *string
	NatsURL    *string
	CostsDir   *string
	HistoryDir *string
}

// ParseFlags parses command-line arguments into CLIFlags.
// Flags that were not supplied remain nil so they never clobber
// YAML or ENV values.
func ParseFlags(args []string) (CLIFlags, error) {
	fs := flag.NewFlagSet("cloutagent", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	configPath := fs.String("config", "", "path to YAML config file")
	fs.StringVar(configPath, "c", "", "path to YAML config file (shorthand)")
	port := fs.String("port", "", "HTTP listen port")
	fs.StringVar(port, "p", "", "HTTP listen port (shorthand)")
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error)")
	natsURL := fs.String("nats-url", "", "NATS server URL")
	costsDir := fs.String("costs-dir", "", "directory for project cost files")
	historyDir := fs.String("history-dir", "", "directory for execution history")

	if err := fs.Parse(args); err != nil {
		return CLIFlags{}, fmt.Errorf("parse flags: %w", err)
	}

	var flags CLIFlags
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "config", "c":
			flags.ConfigPath = configPath
		case "port", "p":
			flags.Port = port
		case "log-level":
			flags.LogLevel = logLevel
		case "nats-url":
			flags.NatsURL = natsURL
		case "costs-dir":
			flags.CostsDir = costsDir
		case "history-dir":
			flags.HistoryDir = historyDir
		}
	})

	return flags, nil
}

// LoadWithCLI loads configuration with the full hierarchy:
// defaults < YAML < ENV < CLI. Returns the config and the resolved
// YAML path so callers can set up reload.
func LoadWithCLI(flags CLIFlags) (*Config, string, error) {
	yamlPath := DefaultConfigFile
	if flags.ConfigPath != nil {
		yamlPath = *flags.ConfigPath
	}

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		return nil, "", err
	}

	applyCLI(cfg, flags)

	if err := validate(cfg); err != nil {
		return nil, "", fmt.Errorf("config validate: %w", err)
	}

	return cfg, yamlPath, nil
}

// applyCLI overlays non-nil CLI flags onto cfg.
func applyCLI(cfg *Config, flags CLIFlags) {
	if flags.Port != nil {
		cfg.Server.Port = *flags.Port
	}
	if flags.LogLevel != nil {
		cfg.Logging.Level = *flags.LogLevel
	}
	if flags.NatsURL != nil {
		cfg.NATS.URL = *flags.NatsURL
	}
	if flags.CostsDir != nil {
		cfg.Costs.Dir = *flags.CostsDir
	}
	if flags.HistoryDir != nil {
		cfg.History.Dir = *flags.HistoryDir
	}
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "CLOUTAGENT_PORT")
	setString(&cfg.Server.CORSOrigin, "CLOUTAGENT_CORS_ORIGIN")
	setString(&cfg.Anthropic.BaseURL, "ANTHROPIC_BASE_URL")
	setString(&cfg.Anthropic.PricingModel, "CLOUTAGENT_PRICING_MODEL")
	setDuration(&cfg.Execution.DefaultTimeout, "CLOUTAGENT_EXEC_TIMEOUT")
	setInt64(&cfg.Execution.MaxConcurrent, "CLOUTAGENT_EXEC_MAX_CONCURRENT")
	setString(&cfg.Costs.Dir, "CLOUTAGENT_COSTS_DIR")
	setString(&cfg.History.Dir, "CLOUTAGENT_HISTORY_DIR")
	setString(&cfg.NATS.URL, "NATS_URL")
	setInt64(&cfg.Cache.L1MaxSizeMB, "CLOUTAGENT_CACHE_L1_SIZE_MB")
	setString(&cfg.Logging.Level, "CLOUTAGENT_LOG_LEVEL")
	setString(&cfg.Logging.Service, "CLOUTAGENT_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "CLOUTAGENT_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "CLOUTAGENT_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "CLOUTAGENT_BREAKER_TIMEOUT")
	setFloat64(&cfg.Rate.RequestsPerSecond, "CLOUTAGENT_RATE_RPS")
	setInt(&cfg.Rate.Burst, "CLOUTAGENT_RATE_BURST")
	setString(&cfg.OTel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.MCP.Addr, "CLOUTAGENT_MCP_ADDR")
	setString(&cfg.MCP.APIKey, "CLOUTAGENT_MCP_API_KEY")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Costs.Dir == "" {
		return errors.New("costs.dir is required")
	}
	if cfg.History.Dir == "" {
		return errors.New("history.dir is required")
	}
	if cfg.Execution.MaxConcurrent < 1 {
		return errors.New("execution.max_concurrent must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	return nil
}

// Holder wraps a Config with safe concurrent access and reload support.
type Holder struct {
	mu       sync.RWMutex
	cfg      *Config
	yamlPath string
}

// NewHolder wraps cfg for concurrent access. yamlPath is re-read on Reload.
func NewHolder(cfg *Config, yamlPath string) *Holder {
	return &Holder{cfg: cfg, yamlPath: yamlPath}
}

// Get returns the current config snapshot.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// Reload re-runs the full load pipeline from the stored YAML path.
// On any error the previous config is preserved.
func (h *Holder) Reload() error {
	cfg, err := LoadFrom(h.yamlPath)
	if err != nil {
		return fmt.Errorf("config reload: %w", err)
	}

	h.mu.Lock()
	h.cfg = cfg
	h.mu.Unlock()
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
