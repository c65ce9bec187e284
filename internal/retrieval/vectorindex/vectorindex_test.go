package vectorindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragpipe/ragpipe/internal/ragtypes"
)

func TestSearchEmptyIndexReturnsEmptyNotError(t *testing.T) {
	idx := New("proj_knowledge", nil)
	docs, err := idx.Search(context.Background(), "how does auth work", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestUpsertThenSearchFindsDocument(t *testing.T) {
	idx := New("proj_knowledge", nil)
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, "doc1", "the retry backoff logic lives in internal/httpclient", map[string]string{"source": "vector"}))
	require.NoError(t, idx.Upsert(ctx, "doc2", "unrelated document about fruit baskets", nil))

	docs, err := idx.Search(ctx, "retry backoff httpclient", 5, nil)
	require.NoError(t, err)
	require.NotEmpty(t, docs)
	assert.Equal(t, "doc1", docs[0].ID)
	assert.Equal(t, ragtypes.SourceVector, docs[0].Source)
	require.NotNil(t, docs[0].Score)
	assert.GreaterOrEqual(t, *docs[0].Score, 0.0)
}

func TestHybridSearchBlendsKeywordAndVectorScores(t *testing.T) {
	idx := New("proj_knowledge", nil)
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, "doc1", "config parser reads yaml settings", nil))

	keywordDocs := []ragtypes.Document{
		{ID: "doc2", Content: "config parser reads yaml settings and env vars", Source: ragtypes.SourceKeyword},
	}

	docs, err := idx.HybridSearch(ctx, "config parser yaml", keywordDocs, 5, 0.5)
	require.NoError(t, err)
	assert.NotEmpty(t, docs)
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	assert.Contains(t, ids, "doc1")
	assert.Contains(t, ids, "doc2")
}
