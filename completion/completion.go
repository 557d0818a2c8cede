// Package completion defines the text-generation collaborator used for
// answer synthesis. Failures here are expected and trigger the pipeline's
// extractive fallback.
package completion

import "context"

// Request carries one generation call.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// Response is the generated text plus token accounting when available.
type Response struct {
	Text       string
	TokensUsed int
}

// Service generates text from a prompt pair. Implementations must honor ctx
// cancellation; callers bound every call with a timeout.
type Service interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
