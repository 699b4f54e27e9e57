package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NER      NERConfig      `yaml:"ner"`
	LLM      LLMConfig      `yaml:"llm"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr       string        `yaml:"http_addr"`
	GRPCAddr       string        `yaml:"grpc_addr"`
	Workers        int           `yaml:"workers"`
	QueueSize      int           `yaml:"queue_size"`
	ProcessTimeout time.Duration `yaml:"process_timeout"`
	UploadDir      string        `yaml:"upload_dir"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
}

// DatabaseConfig holds the task store configuration. Driver is sqlite or postgres.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// NERConfig selects the entity tagger. Provider is pattern, http or none.
type NERConfig struct {
	Provider      string        `yaml:"provider"`
	Endpoint      string        `yaml:"endpoint"`
	Model         string        `yaml:"model"`
	Timeout       time.Duration `yaml:"timeout"`
	Names         []string      `yaml:"names"`
	Organizations []string      `yaml:"organizations"`
}

// LLMConfig holds restructuring client configuration. Provider is openai or ollama.
type LLMConfig struct {
	Provider          string        `yaml:"provider"`
	BaseURL           string        `yaml:"base_url"`
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"api_key"`
	Temperature       float32       `yaml:"temperature"`
	MaxTokens         int           `yaml:"max_tokens"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxAttempts       int           `yaml:"max_attempts"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// PipelineConfig holds per-document defaults.
type PipelineConfig struct {
	Anonymize   bool `yaml:"anonymize"`
	Restructure bool `yaml:"restructure"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:       ":8000",
			GRPCAddr:       ":8081",
			Workers:        2,
			QueueSize:      64,
			ProcessTimeout: 10 * time.Minute,
			UploadDir:      os.TempDir(),
			MaxUploadBytes: 50 << 20,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "./data/tasks.db",
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		NER: NERConfig{
			Provider: "pattern",
			Model:    "pattern-v1",
			Timeout:  10 * time.Second,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			BaseURL:     "http://localhost:1234/v1",
			Model:       "phi-3-mini-4k-instruct",
			Temperature: 0.1,
			MaxTokens:   4000,
			Timeout:     120 * time.Second,
			MaxAttempts: 3,
		},
		Pipeline: PipelineConfig{
			Anonymize:   true,
			Restructure: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig applies defaults, then the YAML file at path (if any), then environment variables.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "parse "+path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.Workers = getEnvAsInt("WORKERS", c.Server.Workers)
	c.Server.QueueSize = getEnvAsInt("QUEUE_SIZE", c.Server.QueueSize)
	c.Server.ProcessTimeout = getEnvAsDuration("PROCESS_TIMEOUT", c.Server.ProcessTimeout)
	c.Server.UploadDir = getEnv("UPLOAD_DIR", c.Server.UploadDir)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)

	c.NER.Provider = getEnv("NER_PROVIDER", c.NER.Provider)
	c.NER.Endpoint = getEnv("NER_ENDPOINT", c.NER.Endpoint)
	c.NER.Model = getEnv("NER_MODEL", c.NER.Model)
	c.NER.Timeout = getEnvAsDuration("NER_TIMEOUT", c.NER.Timeout)
	if names := getEnv("NER_NAMES", ""); names != "" {
		c.NER.Names = splitList(names)
	}

	c.LLM.Provider = getEnv("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.BaseURL = getEnv("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.Model = getEnv("LLM_MODEL", c.LLM.Model)
	c.LLM.APIKey = getEnv("LLM_API_KEY", c.LLM.APIKey)
	c.LLM.Temperature = getEnvAsFloat32("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.MaxTokens = getEnvAsInt("LLM_MAX_TOKENS", c.LLM.MaxTokens)
	c.LLM.Timeout = getEnvAsDuration("LLM_TIMEOUT", c.LLM.Timeout)
	c.LLM.MaxAttempts = getEnvAsInt("LLM_MAX_ATTEMPTS", c.LLM.MaxAttempts)
	c.LLM.RequestsPerSecond = float64(getEnvAsFloat32("LLM_REQUESTS_PER_SECOND", float32(c.LLM.RequestsPerSecond)))

	c.Pipeline.Anonymize = getEnvAsBool("PIPELINE_ANONYMIZE", c.Pipeline.Anonymize)
	c.Pipeline.Restructure = getEnvAsBool("PIPELINE_RESTRUCTURE", c.Pipeline.Restructure)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("LOG_FILE", c.Log.File)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("server.http_addr", c.Server.HTTPAddr, Required).
		Field("server.workers", c.Server.Workers, Positive).
		Field("database.driver", c.Database.Driver, OneOf("sqlite", "postgres")).
		Field("database.dsn", c.Database.DSN, Required).
		Field("ner.provider", c.NER.Provider, OneOf("pattern", "http", "none")).
		Field("llm.provider", c.LLM.Provider, OneOf("openai", "ollama", "langchain")).
		Field("llm.model", c.LLM.Model, Required).
		Field("llm.max_attempts", c.LLM.MaxAttempts, Positive).
		Field("llm.max_tokens", c.LLM.MaxTokens, Positive).
		Field("llm.requests_per_second", c.LLM.RequestsPerSecond, NonNegative)
	if c.NER.Provider == "http" {
		v.Field("ner.endpoint", c.NER.Endpoint, Required)
	}
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
