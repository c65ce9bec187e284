package compress

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackEmptyInputYieldsEmptyString(t *testing.T) {
	assert.Equal(t, "", Pack(nil, DefaultMaxChars))
}

func TestPackIncludesFullContentForTopRanked(t *testing.T) {
	docs := []Doc{{Content: "short body", FinalScore: 0.5}}
	out := Pack(docs, DefaultMaxChars)
	assert.Contains(t, out, "[Doc 1] (Score: 0.50)")
	assert.Contains(t, out, "short body")
}

func TestPackUsesSummaryBelowRankThresholdAndScore(t *testing.T) {
	var docs []Doc
	for i := 0; i < 11; i++ {
		docs = append(docs, Doc{Content: strings.Repeat("x", 2000), FinalScore: 0.1})
	}
	out := Pack(docs, DefaultMaxChars)
	assert.Contains(t, out, "(Summary)")
}

func TestPackStopsWhenBudgetExhausted(t *testing.T) {
	docs := []Doc{
		{Content: strings.Repeat("a", 100), FinalScore: 0.9},
		{Content: strings.Repeat("b", 100), FinalScore: 0.9},
	}
	out := Pack(docs, 50)
	assert.NotContains(t, out, strings.Repeat("b", 100))
}

func TestPackTruncatesWhenPartialBudgetRemains(t *testing.T) {
	docs := []Doc{{Content: strings.Repeat("z", 1000), FinalScore: 0.9}}
	out := Pack(docs, 600)
	assert.Contains(t, out, "... [truncated]")
}
