package scanning

import (
	"context"
	"errors"
	"fmt"
)

// ProviderConfig holds the optional credentials and settings of every provider.
// A provider without credentials is skipped.
type ProviderConfig struct {
	OpenAIKey   string
	OpenAIURL   string
	OpenAIModel string

	GeminiKey   string
	GeminiModel string

	OllamaURL   string
	OllamaModel string

	RekognitionRegion string
}

// NewProviders builds the provider chain in fallback order: OpenAI, Gemini, Ollama, Rekognition.
// Providers that fail to initialize are left out and reported in the returned error,
// alongside the providers that did initialize.
func NewProviders(ctx context.Context, cfg ProviderConfig) ([]Provider, error) {
	var (
		providers []Provider
		errs      []error
	)

	if cfg.OpenAIKey != "" {
		p, err := NewOpenAI(cfg.OpenAIKey, cfg.OpenAIURL, cfg.OpenAIModel)
		if err != nil {
			errs = append(errs, fmt.Errorf("initializing openai: %w", err))
		} else {
			providers = append(providers, p)
		}
	}

	if cfg.GeminiKey != "" {
		p, err := NewGemini(ctx, cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			errs = append(errs, fmt.Errorf("initializing gemini: %w", err))
		} else {
			providers = append(providers, p)
		}
	}

	if cfg.OllamaURL != "" {
		p, err := NewOllama(cfg.OllamaURL, cfg.OllamaModel)
		if err != nil {
			errs = append(errs, fmt.Errorf("initializing ollama: %w", err))
		} else {
			providers = append(providers, p)
		}
	}

	if cfg.RekognitionRegion != "" {
		p, err := NewRekognition(ctx, cfg.RekognitionRegion)
		if err != nil {
			errs = append(errs, fmt.Errorf("initializing rekognition: %w", err))
		} else {
			providers = append(providers, p)
		}
	}

	return providers, errors.Join(errs...)
}
