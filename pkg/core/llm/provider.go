// Package llm abstracts text-generation providers behind a single
// interface so the assistant can be tested with a fake.
package llm

import "context"

// Provider generates a completion for a prompt pair.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
}
