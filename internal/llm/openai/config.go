package openai

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// Config for the OpenAI-compatible client (OpenAI, LM Studio, vLLM, ...).
type Config struct {
	APIKey       string        // if empty, falls back to env LLM_API_KEY; optional for local servers
	BaseURL      string        // default http://localhost:1234/v1
	Timeout      time.Duration // completion timeout
	ProbeTimeout time.Duration // liveness probe timeout, default 5s
	JSONMode     bool          // send response_format json_object
}

type Client struct {
	cfg    Config
	http   *http.Client
	probe  *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("LLM_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:1234/v1"
	}
	cfg.BaseURL = strings.TrimSuffix(strings.TrimRight(cfg.BaseURL, "/"), "/chat/completions")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		probe:  &http.Client{Timeout: cfg.ProbeTimeout},
		logger: logger,
	}
}

func (c *Client) headers() map[string]string {
	if c.cfg.APIKey == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
}
