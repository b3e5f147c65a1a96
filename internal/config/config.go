// Package config provides hierarchical configuration loading for CloutAgent.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the CloutAgent service.
type Config struct {
	Server    Server    `yaml:"server"`
	Anthropic Anthropic `yaml:"anthropic"`
	Execution Execution `yaml:"execution"`
	Costs     Costs     `yaml:"costs"`
	History   History   `yaml:"history"`
	NATS      NATS      `yaml:"nats"`
	Cache     Cache     `yaml:"cache"`
	Logging   Logging   `yaml:"logging"`
	Breaker   Breaker   `yaml:"breaker"`
	Rate      Rate      `yaml:"rate"`
	OTel      OTel      `yaml:"otel"`
	MCP       MCP       `yaml:"mcp"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Anthropic holds model provider configuration. The API key itself comes
// from the environment via the secret vault, never from YAML.
type Anthropic struct {
	BaseURL      string `yaml:"base_url"`
	PricingModel string `yaml:"pricing_model"`
}

// Execution holds execution engine configuration.
type Execution struct {
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	MaxConcurrent  int64         `yaml:"max_concurrent"`
}

// Costs holds cost persistence configuration.
type Costs struct {
	Dir string `yaml:"dir"`
}

// History holds execution history persistence configuration.
type History struct {
	Dir string `yaml:"dir"`
}

// NATS holds NATS JetStream configuration. An empty URL disables the relay.
type NATS struct {
	URL string `yaml:"url"`
}

// Cache holds in-process cache configuration.
type Cache struct {
	L1MaxSizeMB int64 `yaml:"l1_max_size_mb"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Breaker holds circuit breaker configuration for provider calls.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Rate holds rate limiter configuration.
type Rate struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// OTel holds OpenTelemetry export configuration. An empty endpoint disables
// telemetry export.
type OTel struct {
	Endpoint string `yaml:"endpoint"`
}

// MCP holds Model Context Protocol server configuration. An empty addr
// disables the MCP server.
type MCP struct {
	Addr   string `yaml:"addr"`
	APIKey string `yaml:"api_key"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8080",
			CORSOrigin: "http://localhost:3000",
		},
		Anthropic: Anthropic{
			BaseURL:      "https://api.anthropic.com",
			PricingModel: "",
		},
		Execution: Execution{
			DefaultTimeout: 120 * time.Second,
			MaxConcurrent:  16,
		},
		Costs: Costs{
			Dir: "data/costs",
		},
		History: History{
			Dir: "data/projects",
		},
		NATS: NATS{
			URL: "",
		},
		Cache: Cache{
			L1MaxSizeMB: 64,
		},
		Logging: Logging{
			Level:   "info",
			Service: "cloutagent",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Rate: Rate{
			RequestsPerSecond: 10,
			Burst:             100,
		},
		MCP: MCP{
			Addr: "",
		},
	}
}
