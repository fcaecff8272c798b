package adapter

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Google implements Adapter for Gemini models, text replies only.
type Google struct {
	client *genai.Client
}

// NewGoogle creates a Google Gemini adapter.
func NewGoogle(apiKey string) (*Google, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google API key is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}
	return &Google{client: client}, nil
}

// Name returns the adapter identifier.
func (a *Google) Name() string {
	return "google"
}

// Models returns the list of supported Gemini models.
func (a *Google) Models() []string {
	return []string{
		"gemini-2.0-pro",
		"gemini-2.0-flash",
	}
}

// Chat flattens the conversation into a single prompt; the Gemini text API
// has no separate system channel at this call site.
func (a *Google) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	var prompt strings.Builder
	for _, m := range req.Messages {
		if prompt.Len() > 0 {
			prompt.WriteString("\n\n")
		}
		prompt.WriteString(m.Content)
	}

	temp := float32(req.Temperature)
	cfg := &genai.GenerateContentConfig{Temperature: &temp}
	resp, err := a.client.Models.GenerateContent(ctx, req.Model, genai.Text(prompt.String()), cfg)
	if err != nil {
		return nil, fmt.Errorf("google API error: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("google returned no candidates")
	}

	var content string
	if resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				content += part.Text
			}
		}
	}
	return &ChatResponse{Content: content}, nil
}
