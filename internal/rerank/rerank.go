// Package rerank implements the Re-ranker (C9): a two-stage ranking
// pipeline — a cheap score-sum filter, then a cross-encoder signal-
// fusion pass. The two-stage interface shape is grounded on
// pkg/context/reranking/reranker.go's Reranker interface and
// stage-1/stage-2 split, retargeted from an LLM-ranks-by-ID approach to
// a fused cross-encoder score, since the cross-encoder here is an
// opaque scoring function instead of a prompted LLM.
package rerank

import (
	"context"
	"sort"
	"strings"

	"github.com/ragpipe/ragpipe/internal/ragtypes"
)

const (
	stage1MinKeep      = 50
	crossEncoderWeight = 0.2
	verbatimMultiplier = 1.2
	maxPairContentLen  = 1000
)

// CrossEncoder scores a (query, content) pair. Real deployments wire in
// an actual cross-encoder model; this package only depends on the
// function's shape.
type CrossEncoder func(ctx context.Context, query, content string) (float64, error)

// Reranker performs the two-stage ranking: a cheap stage-1 filter then
// a fused stage-2 score.
type Reranker struct {
	Score CrossEncoder
}

// New constructs a Reranker over a cross-encoder scoring function.
func New(score CrossEncoder) *Reranker {
	return &Reranker{Score: score}
}

// Rerank runs stage 1 (cheap score+vector_score filter, top
// max(50, 2*top_k)) then stage 2 (cross-encoder signal fusion),
// returning the top-k Documents by final_score, stably sorted.
// Empty input returns empty output.
func (r *Reranker) Rerank(ctx context.Context, candidates []ragtypes.Document, query string, topK int) ([]ragtypes.Document, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	stage1 := r.filterStage1(candidates, topK)

	for i := range stage1 {
		final, err := r.scoreStage2(ctx, query, &stage1[i])
		if err != nil {
			return nil, err
		}
		stage1[i].FinalScore = &final
	}

	sort.SliceStable(stage1, func(i, j int) bool {
		return finalScoreOf(stage1[i]) > finalScoreOf(stage1[j])
	})

	if topK > 0 && len(stage1) > topK {
		stage1 = stage1[:topK]
	}
	return stage1, nil
}

// filterStage1 sorts by score+vector_score descending (missing treated
// as 0) and retains the top max(50, 2*top_k).
func (r *Reranker) filterStage1(candidates []ragtypes.Document, topK int) []ragtypes.Document {
	keep := 2 * topK
	if keep < stage1MinKeep {
		keep = stage1MinKeep
	}

	out := make([]ragtypes.Document, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool {
		return stage1ScoreOf(out[i]) > stage1ScoreOf(out[j])
	})
	if len(out) > keep {
		out = out[:keep]
	}
	return out
}

func stage1ScoreOf(d ragtypes.Document) float64 {
	var total float64
	if d.Score != nil {
		total += *d.Score
	}
	if d.VectorScore != nil {
		total += *d.VectorScore
	}
	return total
}

// scoreStage2 computes final_score fusion formula.
func (r *Reranker) scoreStage2(ctx context.Context, query string, d *ragtypes.Document) (float64, error) {
	content := d.Content
	if len(content) > maxPairContentLen {
		content = content[:maxPairContentLen]
	}

	ce, err := r.Score(ctx, query, content)
	if err != nil {
		return 0, err
	}

	final := ce
	if d.VectorScore != nil {
		final += crossEncoderWeight * (*d.VectorScore)
	}
	if d.TemporalBoost != nil {
		final *= *d.TemporalBoost
	}
	if strings.Contains(strings.ToLower(d.Content), strings.ToLower(query)) {
		final *= verbatimMultiplier
	}
	return final, nil
}

func finalScoreOf(d ragtypes.Document) float64 {
	if d.FinalScore == nil {
		return 0
	}
	return *d.FinalScore
}
