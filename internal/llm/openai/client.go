package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/vacation-distri/internal/common"
	"github.com/joseph-ayodele/vacation-distri/internal/httpclient"
	"github.com/joseph-ayodele/vacation-distri/internal/llm"
)

// Complete posts to {base}/chat/completions and returns choices[0].message.content.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	start := time.Now()
	body := map[string]any{
		"model":       req.Model,
		"temperature": req.Temperature,
		"messages": []map[string]any{
			{"role": "system", "content": req.System},
			{"role": "user", "content": req.Prompt},
		},
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if c.cfg.JSONMode {
		body["response_format"] = map[string]any{"type": "json_object"}
	}

	raw, status, err := httpclient.SendJSON(ctx, c.http, c.cfg.BaseURL+"/chat/completions", body, c.headers(), c.logger)
	if err != nil {
		if status != 0 {
			return "", fmt.Errorf("completion status %d: %s", status, common.Truncate(strings.TrimSpace(string(raw)), 512))
		}
		return "", fmt.Errorf("completion http error: %w", err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.complete.decode_error", "error", err, "raw_bytes", len(raw))
		return "", fmt.Errorf("decode completion envelope: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}
	c.logger.Debug("llm.complete.ok",
		"model", req.Model,
		"content_len", len(cc.Choices[0].Message.Content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return cc.Choices[0].Message.Content, nil
}

// Healthy probes GET {base}/health and falls back to GET {base}/models,
// which OpenAI-compatible servers without a health route still answer.
func (c *Client) Healthy(ctx context.Context) bool {
	for _, path := range []string{"/health", "/models"} {
		status, err := httpclient.Ping(ctx, c.probe, c.cfg.BaseURL+path, c.headers())
		if err != nil {
			c.logger.Warn("llm.probe.failed", "url", c.cfg.BaseURL+path, "error", err)
			return false
		}
		if status == http.StatusOK {
			return true
		}
	}
	c.logger.Warn("llm.probe.unhealthy", "base_url", c.cfg.BaseURL)
	return false
}
