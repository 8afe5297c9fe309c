package llm

import (
	"context"
	"fmt"

	"github.com/edufarma/edufarma/internal/logger"
	"github.com/edufarma/edufarma/internal/store"
)

// NewProvider creates a Provider from configuration. When events is non-nil
// the provider is wrapped with the logging decorator. No retry layer is
// added: a failed call is the caller's signal to fall back.
func NewProvider(ctx context.Context, cfg Config, events store.LLMEventWriter, log *logger.Logger) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case ProviderGroq:
		base, err = NewGroqProvider(cfg.Groq)
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case ProviderOpenRouter:
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case ProviderMock:
		base = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	if events == nil {
		return base, nil
	}
	return WithLogging(base, cfg.Provider, events, log), nil
}
