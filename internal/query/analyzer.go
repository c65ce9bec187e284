// Package query implements the Query Analyzer (C6): concept
// extraction, query expansion, temporal cue parsing, and intent
// classification. The four sub-extractors run concurrently via an
// errgroup, replacing "cooperative concurrency with ambient globals"
// with explicit task groups — here scoped to just the four independent
// sub-tasks rather than a whole agent runtime.
package query

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ragpipe/ragpipe/internal/llm"
	"github.com/ragpipe/ragpipe/internal/ragtypes"
)

const (
	maxConcepts   = 5
	maxExpansions = 3
)

// temporalKeywords maps a recency cue to its lookback window in days.
// The table is intentionally small and literal; English is the only
// language this module targets.
var temporalKeywords = []struct {
	keyword string
	days    int
}{
	{"today", 0},
	{"yesterday", 1},
	{"day before", 2},
	{"week", 7},
	{"month", 30},
	{"recent", 7},
	{"last", 3},
	{"new", 3},
	{"current", 1},
}

// intentKeywords is evaluated in order; the first matching intent wins.
var intentKeywords = []struct {
	intent   ragtypes.Intent
	keywords []string
}{
	{ragtypes.IntentCode, []string{"function", "method", "class", "struct", "code", "implementation", "bug", "error", "exception", "stack trace", "compile"}},
	{ragtypes.IntentConfig, []string{"config", "setting", "parameter", "flag", "environment variable", "yaml", "toml", "env var"}},
	{ragtypes.IntentExplain, []string{"explain", "why", "how does", "how do", "walk me through", "describe"}},
	{ragtypes.IntentStatus, []string{"status", "health", "running", "deployed", "uptime", "is it working"}},
}

// Analyzer runs the four sub-extractors against a fast LLM.
type Analyzer struct {
	FastLLM llm.Provider
}

// NewAnalyzer constructs an Analyzer. fastLLM may be nil, in which case
// the LLM-backed sub-extractors (concepts, expansions) always degrade
// to their empty defaults.
func NewAnalyzer(fastLLM llm.Provider) *Analyzer {
	return &Analyzer{FastLLM: fastLLM}
}

// Analyze runs concept extraction, query expansion, temporal parsing
// and intent classification concurrently and assembles the analyzed
// Query. No sub-extractor failure aborts the others.
func (a *Analyzer) Analyze(ctx context.Context, raw string) ragtypes.Query {
	var concepts, expansions []string
	var temporal ragtypes.Temporal
	var intent ragtypes.Intent

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		concepts = a.extractConcepts(gctx, raw)
		return nil
	})
	g.Go(func() error {
		expansions = a.expandQuery(gctx, raw)
		return nil
	})
	g.Go(func() error {
		temporal = ExtractTemporal(raw)
		return nil
	})
	g.Go(func() error {
		intent = ClassifyIntent(raw)
		return nil
	})

	// Sub-extractor goroutines never return an error (failures degrade
	// internally), so Wait cannot fail; ignore it defensively anyway.
	_ = g.Wait()

	return ragtypes.Query{
		Raw:        raw,
		Concepts:   concepts,
		Expansions: expansions,
		Temporal:   temporal,
		Intent:     intent,
	}
}

// extractConcepts calls the fast LLM to pull out up to maxConcepts
// short phrases. Any failure (nil LLM, error, empty response) degrades
// to an empty slice.
func (a *Analyzer) extractConcepts(ctx context.Context, raw string) []string {
	if a.FastLLM == nil {
		return nil
	}
	prompt := "Extract up to 5 short key concepts (noun phrases, 1-4 words each) from this question. " +
		"Reply with one concept per line, nothing else.\n\nQuestion: " + raw
	resp, err := a.FastLLM.Generate(ctx, prompt, llm.GenerateOptions{Temperature: 0, MaxTokens: 150})
	if err != nil {
		return nil
	}
	return parseLines(resp, maxConcepts)
}

// expandQuery calls the fast LLM to produce up to maxExpansions
// alternative phrasings.
func (a *Analyzer) expandQuery(ctx context.Context, raw string) []string {
	if a.FastLLM == nil {
		return nil
	}
	prompt := "Generate up to 3 alternative phrasings of this question that search for the same information " +
		"with different wording. Reply with one phrasing per line, nothing else.\n\nQuestion: " + raw
	resp, err := a.FastLLM.Generate(ctx, prompt, llm.GenerateOptions{Temperature: 0.5, MaxTokens: 200})
	if err != nil {
		return nil
	}
	return parseLines(resp, maxExpansions)
}

// ExtractTemporal parses recency cues from raw using the static
// keyword table. The first keyword found (table order) wins.
func ExtractTemporal(raw string) ragtypes.Temporal {
	lower := strings.ToLower(raw)
	for _, kw := range temporalKeywords {
		if strings.Contains(lower, kw.keyword) {
			return ragtypes.Temporal{Present: true, DaysBack: kw.days, Keyword: kw.keyword}
		}
	}
	return ragtypes.Temporal{Present: false}
}

// ClassifyIntent classifies raw into one of the fixed intent
// categories. First keyword-table match wins; otherwise "general".
func ClassifyIntent(raw string) ragtypes.Intent {
	lower := strings.ToLower(raw)
	for _, group := range intentKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.intent
			}
		}
	}
	return ragtypes.IntentGeneral
}

// parseLines splits an LLM response into non-empty, deduplicated lines,
// stripping common list markers, capped at max entries.
func parseLines(response string, max int) []string {
	var out []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		for _, prefix := range []string{"-", "*", "•", "1.", "2.", "3.", "4.", "5."} {
			line = strings.TrimPrefix(line, prefix)
		}
		line = strings.TrimSpace(strings.Trim(line, `"'`))
		if line == "" {
			continue
		}
		key := strings.ToLower(line)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, line)
		if len(out) >= max {
			break
		}
	}
	return out
}
