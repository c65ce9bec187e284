// Package llm defines the opaque LLM call surface used by the Query
// Analyzer (C6), Retrieval Orchestrator's decomposition step (C8), and the
// Answer Synthesizer (C11). The LLM provider itself is an external
// collaborator out of this module's scope; this package only fixes the
// interface shape and ships one thin HTTP-based implementation for
// completeness.
package llm

import "context"

// GenerateOptions bounds a single generation call.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// Provider is the opaque function surface every pipeline stage calls
// through. Implementations must never panic; on failure they return an
// error, and the caller degrades to its documented default instead of
// aborting the run.
type Provider interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// ProviderFunc adapts a plain function to Provider.
type ProviderFunc func(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

func (f ProviderFunc) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	return f(ctx, prompt, opts)
}
