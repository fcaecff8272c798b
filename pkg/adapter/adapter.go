// Package adapter normalizes language-model providers behind a single chat
// interface so the planner is provider-agnostic. OpenAI gets native tool
// calls; Anthropic and Gemini answer in text and the planner parses the JSON
// itself.
package adapter

import (
	"context"
	"fmt"
)

// Adapter is the provider-neutral chat interface.
type Adapter interface {
	// Chat sends a completion request and returns the normalized reply.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Name returns the adapter's identifier.
	Name() string

	// Models returns the list of supported models.
	Models() []string
}

// Config selects and authenticates a provider.
type Config struct {
	Provider string // openai | anthropic | google | mock
	APIKey   string
	BaseURL  string // OpenAI-compatible runtimes only
}

// New builds the adapter named by cfg.Provider.
func New(cfg Config) (Adapter, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg.APIKey, cfg.BaseURL)
	case "anthropic":
		return NewAnthropic(cfg.APIKey)
	case "google":
		return NewGoogle(cfg.APIKey)
	case "mock":
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown adapter %q", cfg.Provider)
	}
}
