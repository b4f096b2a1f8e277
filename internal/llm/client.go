package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"jobsentry-engine/internal/config"
)

// Client is an abstraction over completion providers.
type Client interface {
	// Complete sends one prompt and returns the raw text of the first candidate.
	Complete(ctx context.Context, prompt string) (string, error)
	Close() error
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

var ErrNoAPIKey = errors.New("llm api key is required")

// NewClient creates a completion client for cfg.LLM.Provider.
func NewClient(ctx context.Context, cfg config.Config) (Client, error) {
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		return nil, ErrNoAPIKey
	}
	switch cfg.LLM.Provider {
	case ProviderOpenAI:
		return NewOpenAIClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model), nil
	case ProviderGemini, "":
		return NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

// Unavailable fails every completion with Err. It stands in when no
// provider could be configured so analyses degrade to the fallback result.
type Unavailable struct{ Err error }

func (u Unavailable) Complete(context.Context, string) (string, error) { return "", u.Err }

func (Unavailable) Close() error { return nil }

// CleanJSONBlock removes markdown code fence wrappers from a completion.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```JSON")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
