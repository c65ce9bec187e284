package rerank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragpipe/ragpipe/internal/ragtypes"
)

func constantScorer(score float64) CrossEncoder {
	return func(ctx context.Context, query, content string) (float64, error) {
		return score, nil
	}
}

func TestRerankEmptyInputReturnsEmpty(t *testing.T) {
	r := New(constantScorer(1))
	docs, err := r.Rerank(context.Background(), nil, "q", 10)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestRerankReturnsAllWhenFewerThanTopK(t *testing.T) {
	r := New(constantScorer(0.5))
	docs, err := r.Rerank(context.Background(), []ragtypes.Document{{ID: "a", Content: "alpha"}}, "q", 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.NotNil(t, docs[0].FinalScore)
}

func TestRerankAppliesVerbatimMultiplier(t *testing.T) {
	r := New(constantScorer(1.0))
	docs, err := r.Rerank(context.Background(), []ragtypes.Document{
		{ID: "verbatim", Content: "contains exact phrase here"},
		{ID: "other", Content: "unrelated text"},
	}, "exact phrase", 10)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "verbatim", docs[0].ID)
	assert.InDelta(t, 1.2, *docs[0].FinalScore, 0.001)
}

func TestRerankStableOnEqualScores(t *testing.T) {
	r := New(constantScorer(1.0))
	docs, err := r.Rerank(context.Background(), []ragtypes.Document{
		{ID: "first", Content: "aaa"},
		{ID: "second", Content: "bbb"},
	}, "q", 10)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "first", docs[0].ID)
	assert.Equal(t, "second", docs[1].ID)
}

func TestFilterStage1RetainsAtLeast50OrTwiceTopK(t *testing.T) {
	var candidates []ragtypes.Document
	for i := 0; i < 100; i++ {
		score := float64(i)
		candidates = append(candidates, ragtypes.Document{ID: string(rune(i)), Score: &score})
	}
	r := New(constantScorer(1.0))
	kept := r.filterStage1(candidates, 5)
	assert.Len(t, kept, 50)

	kept = r.filterStage1(candidates, 40)
	assert.Len(t, kept, 80)
}
