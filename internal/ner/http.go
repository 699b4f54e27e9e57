package ner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joseph-ayodele/vacation-distri/internal/common"
	"github.com/joseph-ayodele/vacation-distri/internal/httpclient"
)

// HTTPConfig configures HTTPTagger.
type HTTPConfig struct {
	Endpoint string        // base URL of the NER service
	Model    string        // model name forwarded to the service
	Timeout  time.Duration // http client timeout
}

// HTTPTagger calls an external NER service:
//
//	POST {endpoint}/ner  {"text": "...", "model": "..."}
//	-> {"entities": [{"start":0,"end":12,"text":"Anna Schmidt","label":"PER"}]}
//
// Offsets are character offsets. It stays unavailable until Probe succeeds.
type HTTPTagger struct {
	cfg       HTTPConfig
	http      *http.Client
	logger    *slog.Logger
	available atomic.Bool
}

func NewHTTPTagger(cfg HTTPConfig, logger *slog.Logger) *HTTPTagger {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	return &HTTPTagger{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, logger: logger}
}

func (t *HTTPTagger) Available() bool { return t.available.Load() }

func (t *HTTPTagger) Name() string {
	if t.cfg.Model != "" {
		return t.cfg.Model
	}
	return "http-ner"
}

// Probe checks GET {endpoint}/health and records the outcome as availability.
func (t *HTTPTagger) Probe(ctx context.Context) error {
	status, err := httpclient.Ping(ctx, t.http, t.cfg.Endpoint+"/health", nil)
	if err != nil {
		t.available.Store(false)
		t.logger.Warn("ner.http.probe_failed", "endpoint", t.cfg.Endpoint, "error", err)
		return err
	}
	if status/100 != 2 {
		t.available.Store(false)
		t.logger.Warn("ner.http.probe_failed", "endpoint", t.cfg.Endpoint, "status", status)
		return fmt.Errorf("ner health: non-2xx status: %d", status)
	}
	t.available.Store(true)
	t.logger.Info("ner.http.probe_ok", "endpoint", t.cfg.Endpoint, "model", t.Name())
	return nil
}

func (t *HTTPTagger) Tag(ctx context.Context, text string) ([]EntitySpan, error) {
	start := time.Now()
	body := map[string]any{"text": text, "model": t.cfg.Model}
	raw, status, err := httpclient.SendJSON(ctx, t.http, t.cfg.Endpoint+"/ner", body, nil, t.logger)
	if err != nil {
		if status != 0 {
			return nil, fmt.Errorf("ner status %d: %s", status, common.Truncate(strings.TrimSpace(string(raw)), 512))
		}
		return nil, fmt.Errorf("ner http error: %w", err)
	}

	var out struct {
		Entities []EntitySpan `json:"entities"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode ner response: %w", err)
	}
	t.logger.Debug("ner.http.tag_ok",
		"entities", len(out.Entities),
		"text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out.Entities, nil
}
