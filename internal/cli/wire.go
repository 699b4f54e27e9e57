package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/vacation-distri/internal/anonymize"
	"github.com/joseph-ayodele/vacation-distri/internal/common"
	"github.com/joseph-ayodele/vacation-distri/internal/extract"
	"github.com/joseph-ayodele/vacation-distri/internal/llm"
	"github.com/joseph-ayodele/vacation-distri/internal/llm/langchain"
	"github.com/joseph-ayodele/vacation-distri/internal/llm/openai"
	"github.com/joseph-ayodele/vacation-distri/internal/ner"
	"github.com/joseph-ayodele/vacation-distri/internal/pipeline"
)

// components is the wired pipeline shared by every command.
type components struct {
	anonymizer *anonymize.Anonymizer
	processor  *pipeline.Processor
}

func buildComponents(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*components, error) {
	tagger := buildTagger(ctx, cfg.NER, logger)
	anonymizer := anonymize.New(anonymize.NewMapper(tagger, logger), logger)

	completer, err := buildCompleter(cfg.LLM, logger)
	if err != nil {
		return nil, err
	}
	restructurer := llm.NewRestructurer(completer, llm.Config{
		Model:             cfg.LLM.Model,
		Temperature:       cfg.LLM.Temperature,
		MaxTokens:         cfg.LLM.MaxTokens,
		MaxAttempts:       cfg.LLM.MaxAttempts,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
	}, logger)

	proc := pipeline.NewProcessor(logger, extract.NewDefaultService(logger), anonymizer, restructurer)
	return &components{anonymizer: anonymizer, processor: proc}, nil
}

// buildTagger returns nil for provider "none"; the mapper then passes text
// through unchanged and reports itself unavailable.
func buildTagger(ctx context.Context, cfg common.NERConfig, logger *slog.Logger) ner.Tagger {
	switch cfg.Provider {
	case "none":
		logger.Warn("ner.disabled")
		return nil
	case "http":
		t := ner.NewHTTPTagger(ner.HTTPConfig{Endpoint: cfg.Endpoint, Model: cfg.Model, Timeout: cfg.Timeout}, logger)
		// failure is logged by Probe; the tagger stays unavailable
		_ = t.Probe(ctx)
		return t
	default:
		return ner.NewPatternTagger(ner.PatternConfig{
			Model:         cfg.Model,
			Names:         cfg.Names,
			Organizations: cfg.Organizations,
		})
	}
}

func buildCompleter(cfg common.LLMConfig, logger *slog.Logger) (llm.Completer, error) {
	switch cfg.Provider {
	case "ollama":
		c, err := langchain.NewOllama(cfg.BaseURL, cfg.Model, logger)
		if err != nil {
			return nil, fmt.Errorf("init ollama: %w", err)
		}
		return c, nil
	case "langchain":
		c, err := langchain.NewOpenAI(cfg.BaseURL, cfg.APIKey, cfg.Model, logger)
		if err != nil {
			return nil, fmt.Errorf("init langchain openai: %w", err)
		}
		return c, nil
	default:
		return openai.NewClient(openai.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		}, logger), nil
	}
}

func pipelineOptions(cfg *common.Config) pipeline.Options {
	return pipeline.Options{
		Anonymize:   cfg.Pipeline.Anonymize,
		Restructure: cfg.Pipeline.Restructure,
		MaxAttempts: cfg.LLM.MaxAttempts,
	}
}
