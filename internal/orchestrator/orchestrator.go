// Package orchestrator implements the Retrieval Orchestrator (C8): it
// fans out to the enabled retrievers concurrently, merges and
// deduplicates their output, applies the vector early-stopping rule,
// the temporal boost schedule, and query-decomposition for planning
// mode. Grounded on the bounded-worker-pool + errgroup fan-out idiom
// used throughout pkg/rag and pkg/memory, and on
// pkg/rag/multiquery.go's dedup-by-best-score merge logic (adapted here
// to first-seen-wins).
package orchestrator

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ragpipe/ragpipe/internal/llm"
	"github.com/ragpipe/ragpipe/internal/query"
	"github.com/ragpipe/ragpipe/internal/ragtypes"
)

const (
	// vectorEarlyStopDocs and vectorEarlyStopScore implement the vector
	// query-variant early-stopping rule: stop scanning
	// variants once this many documents score above this threshold.
	vectorEarlyStopDocs  = 30
	vectorEarlyStopScore = 0.8

	maxPlanningSubQueries = 3
	minWorkerPool         = 4

	backtestResultMultiplier = 1.3
)

// VectorRetriever is the subset of the Vector Index Client the
// orchestrator depends on.
type VectorRetriever interface {
	Search(ctx context.Context, query string, n int, filter map[string]string) ([]ragtypes.Document, error)
}

// MemoryRetriever is the subset of the Memory Search Client the
// orchestrator depends on.
type MemoryRetriever interface {
	Search(ctx context.Context, query string, limit int) []ragtypes.Document
}

// KeywordRetriever is the Keyword Scanner's search surface.
type KeywordRetriever interface {
	Search(query string, limit int) []ragtypes.Document
}

// CodeRetriever is the Code Symbol Index's search surface.
type CodeRetriever interface {
	Search(ctx context.Context, queries []string, limit int) ([]ragtypes.Document, error)
}

// GraphRetriever is the Entity Graph's search surface.
type GraphRetriever interface {
	Search(query string, limit int) []ragtypes.Document
}

// PlanningLLM decomposes a long or pipeline-shaped query into
// sub-questions.
type PlanningLLM interface {
	Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error)
}

// Orchestrator fans out to the enabled retrievers for a Strategy and
// merges their results.
type Orchestrator struct {
	Vector   VectorRetriever
	Memory   MemoryRetriever
	Keyword  KeywordRetriever
	Code     CodeRetriever
	Graph    GraphRetriever
	Planner  PlanningLLM
	Analyzer *query.Analyzer
}

// Run executes the orchestrator for one analyzed Query and Strategy,
// returning the deduplicated Retrieved Set.
func (o *Orchestrator) Run(ctx context.Context, q ragtypes.Query, s ragtypes.Strategy) []ragtypes.Document {
	queries := []ragtypes.Query{q}
	if s.UsePlanning && o.Planner != nil && o.Analyzer != nil {
		queries = append(queries, o.decompose(ctx, q)...)
	}

	var all []ragtypes.Document
	for _, sq := range queries {
		all = append(all, o.runRetrieversFor(ctx, sq, s)...)
	}

	return dedup(all)
}

// retriever merge slots, in the fixed order their output is concatenated
// before dedup, so the merged (and therefore deduplicated) set does not
// depend on goroutine completion order.
const (
	slotVector = iota
	slotMemory
	slotKeyword
	slotCode
	slotGraph
	slotTemporal
	numRetrieverSlots
)

// runRetrieversFor fans out the enabled retrievers for a single
// (sub-)query, each in its own goroutine via errgroup; any retriever
// failure is absorbed as an empty result and never aborts
// its peers. Each retriever writes to its own fixed slot rather than a
// shared mutex-guarded slice, so the concatenated output order is
// reproducible regardless of which goroutine finishes first.
func (o *Orchestrator) runRetrieversFor(ctx context.Context, q ragtypes.Query, s ragtypes.Strategy) []ragtypes.Document {
	// Worker pool width is the enabled-retriever count, floored at
	// minWorkerPool; each retriever below is its own
	// goroutine and there are at most 6, so no explicit semaphore is
	// needed to reach that floor.
	slots := make([][]ragtypes.Document, numRetrieverSlots)
	g, gctx := errgroup.WithContext(ctx)

	if s.UseVector && o.Vector != nil {
		g.Go(func() error {
			slots[slotVector] = o.vectorSearch(gctx, q, s)
			return nil
		})
	}
	if s.UseMemory && o.Memory != nil {
		g.Go(func() error {
			slots[slotMemory] = o.Memory.Search(gctx, q.Raw, s.MemoryLimit)
			return nil
		})
	}
	if s.UseKeywords && o.Keyword != nil {
		g.Go(func() error {
			slots[slotKeyword] = o.Keyword.Search(q.Raw, s.KeywordLimit)
			return nil
		})
	}
	if s.UseCode && o.Code != nil {
		g.Go(func() error {
			docs, err := o.Code.Search(gctx, append([]string{q.Raw}, q.Concepts...), s.CodeLimit)
			if err != nil {
				return nil
			}
			slots[slotCode] = docs
			return nil
		})
	}
	if s.UseGraph && o.Graph != nil {
		g.Go(func() error {
			slots[slotGraph] = o.Graph.Search(q.Raw, s.GraphLimit)
			return nil
		})
	}
	if s.UseRecent && o.Memory != nil {
		g.Go(func() error {
			docs := o.Memory.Search(gctx, q.Raw, s.MemoryLimit)
			applyTemporalBoost(docs, s.HalfLifeDays)
			for i := range docs {
				docs[i].Source = ragtypes.SourceTemporal
			}
			slots[slotTemporal] = docs
			return nil
		})
	}

	_ = g.Wait()

	out := make([]ragtypes.Document, 0, len(slots))
	for _, slot := range slots {
		out = append(out, slot...)
	}
	return out
}

// vectorSearch implements the query-variant early-stopping rule: scan [original] + concepts + expansions in order, stopping
// once ≥30 documents across variants score above 0.8.
func (o *Orchestrator) vectorSearch(ctx context.Context, q ragtypes.Query, s ragtypes.Strategy) []ragtypes.Document {
	variants := append([]string{q.Raw}, q.Concepts...)
	variants = append(variants, q.Expansions...)

	var all []ragtypes.Document
	highScoring := 0
	for _, v := range variants {
		docs, err := o.Vector.Search(ctx, v, s.VectorNResults, nil)
		if err != nil {
			continue
		}
		all = append(all, docs...)
		for _, d := range docs {
			if d.Score != nil && *d.Score > vectorEarlyStopScore {
				highScoring++
			}
		}
		if highScoring >= vectorEarlyStopDocs {
			break
		}
	}
	return all
}

// decompose breaks a long/pipeline-shaped query into up to 3
// sub-questions via a fast LLM call, re-running the Query Analyzer on
// each.
func (o *Orchestrator) decompose(ctx context.Context, q ragtypes.Query) []ragtypes.Query {
	prompt := "Break this question into at most 3 independent sub-questions needed to fully answer it. " +
		"Reply with one sub-question per line, nothing else.\n\nQuestion: " + q.Raw
	resp, err := o.Planner.Generate(ctx, prompt, llm.GenerateOptions{Temperature: 0, MaxTokens: 300})
	if err != nil || resp == "" {
		return nil
	}

	var subQueries []ragtypes.Query
	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		subQueries = append(subQueries, o.Analyzer.Analyze(ctx, line))
		if len(subQueries) >= maxPlanningSubQueries {
			break
		}
	}
	return subQueries
}

// dedup merges Documents by hash(content[:200]), keeping the first
// occurrence. A later duplicate carrying a temporal boost (the
// UseRecent pass re-searches memory for the same content) still applies
// its boost onto the kept copy, so the result does not depend on
// whether the plain or the temporal-tagged copy arrived first.
func dedup(docs []ragtypes.Document) []ragtypes.Document {
	seen := make(map[uint64]int, len(docs))
	out := make([]ragtypes.Document, 0, len(docs))
	for _, d := range docs {
		key := contentHash(d.Content)
		if idx, ok := seen[key]; ok {
			mergeTemporalBoost(&out[idx], d)
			continue
		}
		seen[key] = len(out)
		out = append(out, d)
	}
	return out
}

// mergeTemporalBoost copies a duplicate's temporal boost and source tag
// onto the document already kept, if the kept copy does not have one.
func mergeTemporalBoost(kept *ragtypes.Document, dup ragtypes.Document) {
	if kept.TemporalBoost == nil && dup.TemporalBoost != nil {
		kept.TemporalBoost = dup.TemporalBoost
		kept.Source = dup.Source
	}
}

func contentHash(content string) uint64 {
	s := content
	if len(s) > 200 {
		s = s[:200]
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// applyTemporalBoost sets TemporalBoost on each Document based on the
// age of its updatedAt/createdAt metadata timestamp. Documents tagged
// backtest_result receive an additional ×1.3 multiplier. A missing
// timestamp yields boost 1.0.
func applyTemporalBoost(docs []ragtypes.Document, halfLifeDays int) {
	now := time.Now()
	for i := range docs {
		boost := temporalBoostFor(docs[i], now, halfLifeDays)
		docs[i].TemporalBoost = &boost
	}
}

func temporalBoostFor(d ragtypes.Document, now time.Time, halfLifeDays int) float64 {
	ts := extractTimestamp(d.Metadata)
	if ts == nil {
		return 1.0
	}
	ageDays := now.Sub(*ts).Hours() / 24

	var boost float64
	switch {
	case ageDays <= 1:
		boost = 3.0
	case ageDays <= 3:
		boost = 2.0
	case ageDays <= 7:
		boost = 1.5
	default:
		hl := float64(halfLifeDays)
		if hl <= 0 {
			hl = 1
		}
		boost = 1 + math.Exp(-ageDays/hl)
	}

	if tagged, ok := d.Metadata["tag"]; ok {
		if s, ok := tagged.(string); ok && s == "backtest_result" {
			boost *= backtestResultMultiplier
		}
	}
	return boost
}

func extractTimestamp(meta map[string]any) *time.Time {
	if meta == nil {
		return nil
	}
	for _, key := range []string{"updatedAt", "createdAt"} {
		raw, ok := meta[key]
		if !ok {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			continue
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return &t
		}
	}
	return nil
}
