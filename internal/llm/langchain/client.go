// Package langchain adapts langchaingo chat models to llm.Completer.
package langchain

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/joseph-ayodele/vacation-distri/internal/httpclient"
	"github.com/joseph-ayodele/vacation-distri/internal/llm"
)

// Client completes through any llms.Model. HealthURL, when set, is the
// endpoint probed by Healthy.
type Client struct {
	model     llms.Model
	healthURL string
	probe     *http.Client
	logger    *slog.Logger
}

func New(model llms.Model, healthURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		model:     model,
		healthURL: healthURL,
		probe:     &http.Client{Timeout: 5 * time.Second},
		logger:    logger,
	}
}

// NewOllama talks to an Ollama server, e.g. http://localhost:11434.
func NewOllama(serverURL, model string, logger *slog.Logger) (*Client, error) {
	if serverURL == "" {
		serverURL = "http://localhost:11434"
	}
	serverURL = strings.TrimRight(serverURL, "/")
	m, err := ollama.New(
		ollama.WithModel(model),
		ollama.WithServerURL(serverURL),
	)
	if err != nil {
		return nil, fmt.Errorf("create ollama model: %w", err)
	}
	return New(m, serverURL+"/api/tags", logger), nil
}

// NewOpenAI uses the langchaingo OpenAI client against baseURL.
func NewOpenAI(baseURL, token, model string, logger *slog.Logger) (*Client, error) {
	opts := []openai.Option{openai.WithModel(model), openai.WithToken(token)}
	probe := ""
	if baseURL != "" {
		baseURL = strings.TrimRight(baseURL, "/")
		opts = append(opts, openai.WithBaseURL(baseURL))
		probe = baseURL + "/models"
	}
	m, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai model: %w", err)
	}
	return New(m, probe, logger), nil
}

func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.System),
		llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt),
	}
	opts := []llms.CallOption{llms.WithTemperature(float64(req.Temperature))}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.Model != "" {
		opts = append(opts, llms.WithModel(req.Model))
	}

	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	c.logger.Debug("llm.langchain.complete_ok",
		"model", req.Model,
		"content_len", len(resp.Choices[0].Content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return resp.Choices[0].Content, nil
}

// Healthy reports true without a HealthURL; otherwise the URL must answer 200.
func (c *Client) Healthy(ctx context.Context) bool {
	if c.healthURL == "" {
		return true
	}
	status, err := httpclient.Ping(ctx, c.probe, c.healthURL, nil)
	if err != nil || status != http.StatusOK {
		c.logger.Warn("llm.langchain.probe_failed", "url", c.healthURL, "status", status, "error", err)
		return false
	}
	return true
}
