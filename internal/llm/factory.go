package llm

import (
	"context"
	"fmt"
)

// NewProvider creates a Provider from configuration, wrapped with retry and
// request logging middleware. rec may be nil to disable logging.
func NewProvider(ctx context.Context, cfg Config, rec Recorder) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown model provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	// caller → retry → timeout → logging → base
	// Each retry attempt gets its own call budget, and every attempt is
	// recorded including the ones that time out.
	logged := WithLogging(base, cfg.Provider, rec)
	timed := WithTimeout(logged, cfg.Timeout)
	return WithRetry(timed, cfg.Retry), nil
}

// NewProviderFromEnv builds a provider from MAIEUT_* env vars, falling back
// to discovery of standard API key vars.
func NewProviderFromEnv(ctx context.Context, rec Recorder) (Provider, error) {
	cfg := ConfigFromEnv()
	if err := cfg.Validate(); err != nil {
		discovered, ok := DiscoverConfig()
		if !ok {
			return nil, err
		}
		cfg = discovered
	}
	return NewProvider(ctx, cfg, rec)
}
