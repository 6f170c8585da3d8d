package textgen

import (
	"context"
	"fmt"
	"os"
)

// ProviderConfig selects and configures a Provider.
type ProviderConfig struct {
	// Provider is one of "gemini", "openai", "anthropic", "mock" or "none".
	Provider string
	APIKey   string
	Model    string
	Retry    RetryConfig
}

// NewProvider creates a Provider wrapped with retry. It returns nil for
// "none" or an empty provider, which puts the Service in fallback-only mode.
func NewProvider(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.APIKey, cfg.Model)
	case "openai":
		base, err = NewOpenAIProvider(cfg.APIKey, cfg.Model, os.Getenv("OPENAI_BASE_URL"))
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.APIKey, cfg.Model)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown text provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}
	return WithRetry(base, cfg.Retry), nil
}
