// Package textgen generates typing texts with a generative model and falls
// back to local sources when the model is unavailable.
package textgen

import "context"

// Provider generates plain text from a prompt.
type Provider interface {
	// Generate sends the prompt and returns the model's text.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes a single-turn generation.
type Request struct {
	// System is an optional system instruction.
	System string
	// Prompt is the user message.
	Prompt string
	// MaxTokens caps the response length. Zero leaves the provider default.
	MaxTokens int
	// Temperature controls randomness. Zero leaves the provider default.
	Temperature float64
}

// Response holds the model output.
type Response struct {
	Text  string
	Model string
	Usage Usage
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
}
