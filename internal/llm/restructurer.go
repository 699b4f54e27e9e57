package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/vacation-distri/internal/common"
	"github.com/joseph-ayodele/vacation-distri/internal/document"
)

// Config for the Restructurer.
type Config struct {
	Model             string  // forwarded to the completer and stamped on results
	Temperature       float32 // sent as is; 0 is valid
	MaxTokens         int     // default 4000
	MaxAttempts       int     // default 3
	RequestsPerSecond float64 // 0 disables pacing
}

// Restructurer asks a Completer to turn a record into restructured JSON.
type Restructurer struct {
	completer Completer
	cfg       Config
	limiter   *rate.Limiter
	logger    *slog.Logger
	now       func() time.Time
}

func NewRestructurer(completer Completer, cfg Config, logger *slog.Logger) *Restructurer {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4000
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Restructurer{
		completer: completer,
		cfg:       cfg,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger,
		now:       time.Now,
	}
}

func (r *Restructurer) Model() string { return r.cfg.Model }

// Available runs the completer's liveness probe.
func (r *Restructurer) Available(ctx context.Context) bool {
	return r.completer != nil && r.completer.Healthy(ctx)
}

// Validate checks the shape of a restructured record.
func (r *Restructurer) Validate(data map[string]any) error { return Validate(data) }

type attemptOutcome int

const (
	attemptOK attemptOutcome = iota
	attemptTransport
	attemptParse
)

type attemptResult struct {
	outcome attemptOutcome
	data    map[string]any
	err     error
}

// Restructure makes up to maxAttempts completion calls (the configured
// default when maxAttempts <= 0) and returns the first response that parses
// as a JSON object, stamped with restructuring_metadata. Failures are
// *RestructureError.
func (r *Restructurer) Restructure(ctx context.Context, rec *document.Record, maxAttempts int) (map[string]any, error) {
	if maxAttempts <= 0 {
		maxAttempts = r.cfg.MaxAttempts
	}
	if rec == nil {
		return nil, &RestructureError{Kind: common.ErrInvalidResponse, Cause: errors.New("nil record")}
	}
	if !r.Available(ctx) {
		r.logger.Warn("llm.restructure.unavailable", "file_path", rec.FilePath, "model", r.cfg.Model)
		return nil, unavailable(errors.New("liveness probe failed"))
	}

	prompt, err := BuildUserPrompt(rec, r.now())
	if err != nil {
		return nil, &RestructureError{Kind: common.ErrServiceFailure, Cause: fmt.Errorf("build prompt: %w", err)}
	}
	req := CompletionRequest{
		System:      SystemPrompt,
		Prompt:      prompt,
		Model:       r.cfg.Model,
		Temperature: r.cfg.Temperature,
		MaxTokens:   r.cfg.MaxTokens,
	}
	r.logger.Info("llm.restructure.start",
		"file_path", rec.FilePath,
		"kind", rec.Kind(),
		"model", r.cfg.Model,
		"prompt_chars", len(prompt),
		"prompt_tokens_est", EstimateTokens(prompt),
		"max_attempts", maxAttempts,
	)

	start := time.Now()
	for n := 1; ; n++ {
		res := r.attempt(ctx, req)
		if res.outcome == attemptOK {
			res.data["restructuring_metadata"] = map[string]any{
				"restructured_by":         "llm",
				"model_used":              r.cfg.Model,
				"restructuring_date":      r.now().Format(time.RFC3339),
				"original_file":           rec.FilePath,
				"anonymization_preserved": true,
				"attempts":                n,
			}
			r.logger.Info("llm.restructure.ok",
				"file_path", rec.FilePath,
				"attempt", n,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return res.data, nil
		}

		kind := common.ErrServiceFailure
		if res.outcome == attemptParse {
			kind = common.ErrInvalidResponse
		}
		r.logger.Warn("llm.restructure.attempt_failed",
			"file_path", rec.FilePath,
			"attempt", n,
			"max_attempts", maxAttempts,
			"kind", kind.Error(),
			"error", res.err,
		)
		if n >= maxAttempts {
			return nil, &RestructureError{Kind: kind, Attempts: n, Cause: res.err}
		}
	}
}

func (r *Restructurer) attempt(ctx context.Context, req CompletionRequest) attemptResult {
	if err := r.limiter.Wait(ctx); err != nil {
		return attemptResult{outcome: attemptTransport, err: fmt.Errorf("rate limiter: %w", err)}
	}
	content, err := r.completer.Complete(ctx, req)
	if err != nil {
		return attemptResult{outcome: attemptTransport, err: err}
	}
	data, err := ParseJSONObject(content)
	if err != nil {
		return attemptResult{outcome: attemptParse, err: err}
	}
	return attemptResult{outcome: attemptOK, data: data}
}
