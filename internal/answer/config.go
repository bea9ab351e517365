package answer

import (
	"context"
	"log/slog"

	"github.com/qvu3/bb-chatbot/internal/config"
)

// NewFromConfig selects the answerer for cfg. A generative strategy without a
// usable credential still answers, with NotConfiguredMessage.
func NewFromConfig(ctx context.Context, cfg config.AnswerConfig) Answerer {
	if cfg.Strategy != config.StrategyGenerative {
		slog.Info("Answer strategy selected", "strategy", config.StrategyExact)
		return Exact{}
	}

	if cfg.GeminiAPIKey == "" {
		slog.Warn("GEMINI_API_KEY not set, generative answers are unavailable")
		return NewGenerative(nil, cfg.GenerationTimeout)
	}
	backend, err := NewGeminiBackend(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		slog.Error("Failed to initialize generation backend", "error", err)
		return NewGenerative(nil, cfg.GenerationTimeout)
	}
	slog.Info("Answer strategy selected", "strategy", config.StrategyGenerative, "backend", backend.Name())
	return NewGenerative(backend, cfg.GenerationTimeout)
}
