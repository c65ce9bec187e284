package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragpipe/ragpipe/internal/cache"
	"github.com/ragpipe/ragpipe/internal/llm"
	"github.com/ragpipe/ragpipe/internal/orchestrator"
	"github.com/ragpipe/ragpipe/internal/query"
	"github.com/ragpipe/ragpipe/internal/ragerr"
	"github.com/ragpipe/ragpipe/internal/ragtypes"
	"github.com/ragpipe/ragpipe/internal/rerank"
	"github.com/ragpipe/ragpipe/internal/synth"
)

func ttlForIntent(intent string) int {
	switch intent {
	case "status":
		return 180
	case "code":
		return 90
	default:
		return 600
	}
}

func newController(t *testing.T, orch *orchestrator.Orchestrator, mainLLM llm.Provider) *Controller {
	t.Helper()
	analyzer := query.NewAnalyzer(nil)
	reranker := rerank.New(func(ctx context.Context, q, content string) (float64, error) { return 1.0, nil })
	synthesizer := synth.New(mainLLM)
	c := cache.New(t.TempDir(), false, 100)
	return New("proj", analyzer, orch, reranker, synthesizer, c, nil, nil, ttlForIntent, 1000)
}

func TestRunModeNoneSkipsAllRetrieval(t *testing.T) {
	fakeLLM := &llm.Fake{Responses: []string{"a definition answer"}}
	ctrl := newController(t, &orchestrator.Orchestrator{}, fakeLLM)

	record, err := ctrl.Run(context.Background(), "What is a cache?")
	require.NoError(t, err)

	assert.Equal(t, "a definition answer", record.Answer)
	assert.Equal(t, 50.0, record.Confidence)
	assert.Empty(t, record.Retrieved)
	assert.Empty(t, record.Reranked)
}

func TestRunRetrievedZeroYieldsSentinelAndCachesWithIntentTTL(t *testing.T) {
	fakeLLM := &llm.Fake{Responses: []string{"should not be used"}}
	orch := &orchestrator.Orchestrator{}
	ctrl := newController(t, orch, fakeLLM)

	record, err := ctrl.Run(context.Background(), "tell me about the deployment pipeline steps")
	require.NoError(t, err)

	assert.Equal(t, ragtypes.NoInformationSentinel, record.Answer)
	assert.Equal(t, 0.0, record.Confidence)
	assert.Greater(t, record.CacheTTL, 0)
}

func TestRunCachesThenServesFromCacheOnSecondCall(t *testing.T) {
	fakeLLM := &llm.Fake{Responses: []string{"answer one", "answer two"}}
	ctrl := newController(t, &orchestrator.Orchestrator{}, fakeLLM)

	first, err := ctrl.Run(context.Background(), "What is a widget?")
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.NotEmpty(t, first.RunID)

	second, err := ctrl.Run(context.Background(), "What is a widget?")
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Answer, second.Answer)
	assert.NotEmpty(t, second.RunID)
	assert.NotEqual(t, first.RunID, second.RunID, "each Run call gets its own correlation id even on a cache hit")
}

func TestRunBatchRunsAllQueriesAndPreservesOrder(t *testing.T) {
	fakeLLM := &llm.Fake{Responses: []string{"r1", "r2", "r3"}}
	ctrl := newController(t, &orchestrator.Orchestrator{}, fakeLLM)

	queries := []string{"What is a widget?", "What is a gadget?", "What is a doohickey?"}
	records, err := ctrl.RunBatch(context.Background(), queries)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, q := range queries {
		assert.Equal(t, q, records[i].Query)
	}
}

func TestUpdateHooksReturnNotImplemented(t *testing.T) {
	assert.ErrorIs(t, UpdateVectorStore(context.Background()), ragerr.ErrNotImplemented)
	assert.ErrorIs(t, UpdateLocalKnowledge(context.Background()), ragerr.ErrNotImplemented)
}
