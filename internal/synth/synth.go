// Package synth implements the Answer Synthesizer (C11): prompt
// assembly, the bounded main-LLM call, and the deterministic
// confidence formula. Grounded on pkg/context/reranking/reranker.go's
// buildRerankingPrompt for the prompt-assembly idiom, sanitizing
// user-controlled text via promptsafe before interpolation.
package synth

import (
	"context"
	"fmt"
	"strings"

	"github.com/ragpipe/ragpipe/internal/llm"
	"github.com/ragpipe/ragpipe/internal/promptsafe"
	"github.com/ragpipe/ragpipe/internal/ragtypes"
)

const (
	synthesisTemperature = 0.3
	synthesisMaxTokens   = 8000
)

// Synthesizer builds the final answer prompt and calls the main LLM.
type Synthesizer struct {
	MainLLM llm.Provider
}

// New constructs a Synthesizer over the main LLM.
func New(mainLLM llm.Provider) *Synthesizer {
	return &Synthesizer{MainLLM: mainLLM}
}

// Result is the outcome of one synthesis call.
type Result struct {
	Answer     string
	Confidence float64
}

// Synthesize builds the prompt from the query, Strategy-derived
// intent, concepts, retrieval counts, and compressed context, then
// calls the main LLM. An empty context short-circuits to the
// no-information sentinel with confidence 0 and no LLM call. Confidence is `min(100, 2*reranked)`, independent of answer
// content.
func (s *Synthesizer) Synthesize(ctx context.Context, q ragtypes.Query, context string, totalDocs, rerankedDocs int) Result {
	confidence := confidenceFor(rerankedDocs)

	if context == "" {
		return Result{Answer: ragtypes.NoInformationSentinel, Confidence: 0}
	}

	prompt := buildPrompt(q, context, totalDocs, rerankedDocs)
	answer, err := s.MainLLM.Generate(ctx, prompt, llm.GenerateOptions{
		Temperature: synthesisTemperature,
		MaxTokens:   synthesisMaxTokens,
	})
	if err != nil {
		return Result{Answer: fmt.Sprintf("Error generating answer: %v", err), Confidence: 0}
	}

	return Result{Answer: answer, Confidence: confidence}
}

// SynthesizeWithoutContext handles the mode=none fast path: no retrieval was attempted at all, so confidence is
// fixed at 50 on success rather than derived from a reranked count of
// zero.
func (s *Synthesizer) SynthesizeWithoutContext(ctx context.Context, q ragtypes.Query) Result {
	prompt := buildPrompt(q, "", 0, 0)
	answer, err := s.MainLLM.Generate(ctx, prompt, llm.GenerateOptions{
		Temperature: synthesisTemperature,
		MaxTokens:   synthesisMaxTokens,
	})
	if err != nil {
		return Result{Answer: fmt.Sprintf("Error generating answer: %v", err), Confidence: 0}
	}
	return Result{Answer: answer, Confidence: 50}
}

func confidenceFor(rerankedDocs int) float64 {
	c := 2.0 * float64(rerankedDocs)
	if c > 100 {
		c = 100
	}
	return c
}

func buildPrompt(q ragtypes.Query, context string, totalDocs, rerankedDocs int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", promptsafe.Clean(q.Raw))
	fmt.Fprintf(&b, "Intent: %s\n", q.Intent)
	if len(q.Concepts) > 0 {
		fmt.Fprintf(&b, "Concepts: %s\n", strings.Join(q.Concepts, ", "))
	}
	fmt.Fprintf(&b, "Retrieved %d documents, %d survived re-ranking.\n", totalDocs, rerankedDocs)
	if context != "" {
		fmt.Fprintf(&b, "\nContext:\n%s\n", context)
	}
	b.WriteString("\nReason about the evidence silently, then answer the question. " +
		"Cite sources inline as [Doc N]. If the context does not answer the question, say so.")
	return b.String()
}
