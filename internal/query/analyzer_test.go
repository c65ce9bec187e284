package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragpipe/ragpipe/internal/llm"
	"github.com/ragpipe/ragpipe/internal/ragtypes"
)

func TestClassifyIntentMatchesFirstKeywordGroup(t *testing.T) {
	assert.Equal(t, ragtypes.IntentCode, ClassifyIntent("why does this function throw an exception?"))
	assert.Equal(t, ragtypes.IntentConfig, ClassifyIntent("what yaml setting controls this?"))
	assert.Equal(t, ragtypes.IntentStatus, ClassifyIntent("is it running right now?"))
	assert.Equal(t, ragtypes.IntentGeneral, ClassifyIntent("tell me about the project"))
}

func TestClassifyIntentCodeBeatsExplainWhenBothPresent(t *testing.T) {
	// "code" keywords are checked before "explain" keywords, so a query
	// matching both resolves to code.
	assert.Equal(t, ragtypes.IntentCode, ClassifyIntent("explain how this function works"))
}

func TestExtractTemporalFindsKeyword(t *testing.T) {
	temporal := ExtractTemporal("what changed yesterday?")
	assert.True(t, temporal.Present)
	assert.Equal(t, 1, temporal.DaysBack)
	assert.Equal(t, "yesterday", temporal.Keyword)
}

func TestExtractTemporalAbsentWhenNoKeyword(t *testing.T) {
	temporal := ExtractTemporal("what is a widget?")
	assert.False(t, temporal.Present)
}

func TestAnalyzeWithNilLLMDegradesToEmptyConceptsAndExpansions(t *testing.T) {
	a := NewAnalyzer(nil)
	q := a.Analyze(context.Background(), "what changed last week?")
	assert.Equal(t, "what changed last week?", q.Raw)
	assert.Empty(t, q.Concepts)
	assert.Empty(t, q.Expansions)
	assert.True(t, q.Temporal.Present)
	assert.Equal(t, ragtypes.IntentGeneral, q.Intent)
}

func TestAnalyzeUsesFastLLMForConceptsAndExpansions(t *testing.T) {
	provider := llm.ProviderFunc(func(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
		if opts.Temperature == 0 {
			return "widget lifecycle\ncache invalidation", nil
		}
		return "how do widgets get invalidated?", nil
	})
	a := NewAnalyzer(provider)
	q := a.Analyze(context.Background(), "how does widget caching work?")
	require.Len(t, q.Concepts, 2)
	assert.Equal(t, "widget lifecycle", q.Concepts[0])
	require.Len(t, q.Expansions, 1)
}

func TestAnalyzeSubExtractorFailureDegradesWithoutAbortingOthers(t *testing.T) {
	provider := llm.ProviderFunc(func(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
		return "", errors.New("provider unavailable")
	})
	a := NewAnalyzer(provider)
	q := a.Analyze(context.Background(), "explain the widget module")
	assert.Empty(t, q.Concepts)
	assert.Empty(t, q.Expansions)
	assert.Equal(t, ragtypes.IntentExplain, q.Intent)
}

func TestParseLinesDedupesStripsMarkersAndCaps(t *testing.T) {
	out := parseLines("- alpha\n* Alpha\n1. beta\n\n\"gamma\"\ndelta\nepsilon", 3)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, out)
}
