package ai

import "context"

// LLMProvider sends a system and user prompt to an LLM and returns the raw
// text response.
type LLMProvider interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}
