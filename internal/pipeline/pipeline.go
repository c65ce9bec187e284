// Package pipeline implements the Pipeline Controller (C14): the state
// machine that wires the Query Analyzer, Strategy Planner, Query
// Cache, Retrieval Orchestrator, Re-ranker, Context Compressor, and
// Answer Synthesizer into one query-in/answer-out call, with tracing
// and monitoring around every stage. Grounded on pkg/agent/services.go's
// stage decomposition (context search, prompt assembly, LLM call, tool
// execution as separate services composed by the caller), generalized
// from that single-call composition to the full analyze -> plan ->
// cache -> retrieve -> rerank -> compress -> synthesize -> persist
// state machine.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ragpipe/ragpipe/internal/cache"
	"github.com/ragpipe/ragpipe/internal/compress"
	"github.com/ragpipe/ragpipe/internal/orchestrator"
	"github.com/ragpipe/ragpipe/internal/query"
	"github.com/ragpipe/ragpipe/internal/ragerr"
	"github.com/ragpipe/ragpipe/internal/ragtypes"
	"github.com/ragpipe/ragpipe/internal/rerank"
	"github.com/ragpipe/ragpipe/internal/strategy"
	"github.com/ragpipe/ragpipe/internal/synth"
	"github.com/ragpipe/ragpipe/internal/trace"
)

// maxBatchWorkers bounds concurrent queries in RunBatch.
const maxBatchWorkers = 10

// InteractionRecorder is an auxiliary consumer of completed runs —
// e.g. writing back into the memory service so future queries can find
// this one. The default is a no-op; callers that want persistence
// supply their own.
type InteractionRecorder interface {
	RecordInteraction(ctx context.Context, record ragtypes.RunRecord) error
}

// NopRecorder implements InteractionRecorder by doing nothing.
type NopRecorder struct{}

// RecordInteraction implements InteractionRecorder.
func (NopRecorder) RecordInteraction(ctx context.Context, record ragtypes.RunRecord) error {
	return nil
}

// Controller runs the full query pipeline end to end.
type Controller struct {
	Project      string
	Analyzer     *query.Analyzer
	Orchestrator *orchestrator.Orchestrator
	Reranker     *rerank.Reranker
	Synthesizer  *synth.Synthesizer
	Cache        *cache.Cache
	Tracer       *trace.Tracer
	Monitor      *trace.Monitor
	Recorder     InteractionRecorder

	ContextMaxChars int
	TTLForIntent    func(intent string) int

	now func() time.Time
}

// New constructs a Controller. A nil Recorder is replaced with
// NopRecorder.
func New(project string, analyzer *query.Analyzer, orch *orchestrator.Orchestrator, reranker *rerank.Reranker, synthesizer *synth.Synthesizer, c *cache.Cache, tracer *trace.Tracer, monitor *trace.Monitor, ttlForIntent func(string) int, contextMaxChars int) *Controller {
	return &Controller{
		Project:         project,
		Analyzer:        analyzer,
		Orchestrator:    orch,
		Reranker:        reranker,
		Synthesizer:     synthesizer,
		Cache:           c,
		Tracer:          tracer,
		Monitor:         monitor,
		Recorder:        NopRecorder{},
		ContextMaxChars: contextMaxChars,
		TTLForIntent:    ttlForIntent,
		now:             time.Now,
	}
}

// Run executes the full state machine for one raw question:
// analyze -> plan -> cache_probe -> (serve cached | mode=none fast path
// | retrieve -> rerank -> compress -> synthesize) -> persist cache ->
// log. Every terminal transition records a RunRecord via the Monitor
// and closes the Tracer's span, even on the cache-hit and mode=none
// short-circuit paths.
func (c *Controller) Run(ctx context.Context, raw string) (ragtypes.RunRecord, error) {
	start := c.now()
	runID := uuid.NewString()
	ctx, endRunSpan := c.span(ctx, "pipeline.run", attribute.String("run_id", runID))
	var runErr error
	defer func() { endRunSpan(runErr) }()

	q := c.analyze(ctx, raw)
	s := strategy.Plan(q)

	key := cache.Key(cache.KeyInput{
		Project:         c.Project,
		NormalizedQuery: cache.NormalizeQuery(raw),
		Intent:          string(q.Intent),
		TopK:            s.TopK,
		ContextMaxChars: c.ContextMaxChars,
		UseVector:       s.UseVector,
		UseMemory:       s.UseMemory,
		UseRecent:       s.UseRecent,
	})

	if cached, ok := c.cacheGet(ctx, key); ok {
		cached.RunID = runID
		cached.FromCache = true
		cached.ElapsedSec = c.now().Sub(start).Seconds()
		c.record(ctx, cached)
		return cached, nil
	}

	var record ragtypes.RunRecord
	if s.Mode == ragtypes.ModeNone {
		record = c.runNoContext(ctx, q)
	} else {
		record = c.runHybrid(ctx, q, s)
	}

	record.RunID = runID
	record.Query = raw
	record.Intent = q.Intent
	record.Project = c.Project
	record.Timestamp = c.now()
	record.FromCache = false
	record.ElapsedSec = c.now().Sub(start).Seconds()
	record.CacheTTL = c.ttlFor(q.Intent)

	c.cacheSet(ctx, key, record)
	c.record(ctx, record)

	if err := c.Recorder.RecordInteraction(ctx, record); err != nil {
		// Interaction recording is best-effort; it never fails the run.
		_ = err
	}

	return record, nil
}

func (c *Controller) analyze(ctx context.Context, raw string) ragtypes.Query {
	ctx, end := c.span(ctx, "pipeline.analyze")
	defer end(nil)
	return c.Analyzer.Analyze(ctx, raw)
}

func (c *Controller) cacheGet(ctx context.Context, key string) (ragtypes.RunRecord, bool) {
	_, end := c.span(ctx, "pipeline.cache_probe")
	defer end(nil)
	if c.Cache == nil {
		return ragtypes.RunRecord{}, false
	}
	return c.Cache.Get(key)
}

func (c *Controller) cacheSet(ctx context.Context, key string, record ragtypes.RunRecord) {
	_, end := c.span(ctx, "pipeline.persist_cache")
	var err error
	defer func() { end(err) }()
	if c.Cache == nil {
		return
	}
	err = c.Cache.Set(key, record, record.CacheTTL)
}

// runNoContext handles the mode=none fast path: no retriever is
// invoked at all.
func (c *Controller) runNoContext(ctx context.Context, q ragtypes.Query) ragtypes.RunRecord {
	ctx, end := c.span(ctx, "pipeline.synthesize_nocontext")
	defer end(nil)

	result := c.Synthesizer.SynthesizeWithoutContext(ctx, q)
	return ragtypes.RunRecord{
		Answer:     result.Answer,
		Confidence: result.Confidence,
	}
}

// runHybrid executes retrieve -> rerank -> compress -> synthesize.
// A retrieved count of zero still produces a valid RunRecord: the
// sentinel answer with confidence 0, cached under the intent's normal
// TTL.
func (c *Controller) runHybrid(ctx context.Context, q ragtypes.Query, s ragtypes.Strategy) ragtypes.RunRecord {
	retrieved := c.retrieve(ctx, q, s)
	if len(retrieved) == 0 {
		result := c.synthesize(ctx, q, "", 0, 0)
		return ragtypes.RunRecord{
			Retrieved:  retrieved,
			Reranked:   nil,
			Answer:     result.Answer,
			Confidence: result.Confidence,
		}
	}

	reranked := c.rerank(ctx, retrieved, q, s)
	packed := c.compress(ctx, reranked)
	result := c.synthesize(ctx, q, packed, len(retrieved), len(reranked))

	return ragtypes.RunRecord{
		Retrieved:    retrieved,
		Reranked:     reranked,
		ContextChars: len(packed),
		Answer:       result.Answer,
		Confidence:   result.Confidence,
	}
}

func (c *Controller) retrieve(ctx context.Context, q ragtypes.Query, s ragtypes.Strategy) []ragtypes.Document {
	ctx, end := c.span(ctx, "pipeline.retrieve")
	defer end(nil)
	return c.Orchestrator.Run(ctx, q, s)
}

func (c *Controller) rerank(ctx context.Context, docs []ragtypes.Document, q ragtypes.Query, s ragtypes.Strategy) []ragtypes.Document {
	ctx, end := c.span(ctx, "pipeline.rerank")
	var err error
	defer func() { end(err) }()

	reranked, rerankErr := c.Reranker.Rerank(ctx, docs, q.Raw, s.TopK)
	err = rerankErr
	if rerankErr != nil {
		// A cross-encoder failure degrades to the pre-rerank order
		// truncated to top_k, never aborts the run.
		if len(docs) > s.TopK && s.TopK > 0 {
			return docs[:s.TopK]
		}
		return docs
	}
	return reranked
}

func (c *Controller) compress(ctx context.Context, docs []ragtypes.Document) string {
	_, end := c.span(ctx, "pipeline.compress")
	defer end(nil)

	packable := make([]compress.Doc, len(docs))
	for i, d := range docs {
		score := 0.0
		if d.FinalScore != nil {
			score = *d.FinalScore
		}
		packable[i] = compress.Doc{Content: d.Content, FinalScore: score}
	}
	maxChars := c.ContextMaxChars
	if maxChars <= 0 {
		maxChars = compress.DefaultMaxChars
	}
	return compress.Pack(packable, maxChars)
}

func (c *Controller) synthesize(ctx context.Context, q ragtypes.Query, packed string, totalDocs, rerankedDocs int) synth.Result {
	ctx, end := c.span(ctx, "pipeline.synthesize")
	defer end(nil)
	return c.Synthesizer.Synthesize(ctx, q, packed, totalDocs, rerankedDocs)
}

func (c *Controller) record(ctx context.Context, record ragtypes.RunRecord) {
	if c.Monitor == nil {
		return
	}
	_ = c.Monitor.Record(record)
}

func (c *Controller) ttlFor(intent ragtypes.Intent) int {
	if c.TTLForIntent == nil {
		return 0
	}
	return c.TTLForIntent(string(intent))
}

func (c *Controller) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	if c.Tracer == nil {
		return ctx, func(error) {}
	}
	return c.Tracer.Span(ctx, name, attrs...)
}

// RunBatch runs Run over a set of raw questions with bounded
// concurrency (at most maxBatchWorkers at once), returning results in
// input order. A single query's failure does not cancel its peers.
func (c *Controller) RunBatch(ctx context.Context, raws []string) ([]ragtypes.RunRecord, error) {
	records := make([]ragtypes.RunRecord, len(raws))

	var g errgroup.Group
	sem := make(chan struct{}, maxBatchWorkers)

	for i, raw := range raws {
		i, raw := i, raw
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			record, err := c.Run(ctx, raw)
			if err != nil {
				return err
			}
			records[i] = record
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return records, err
	}
	return records, nil
}

// UpdateVectorStore would (re)ingest project content into the Vector
// Index Client. Ingestion pipelines are out of this module's scope;
// this hook exists only so the CLI's `update` subcommand has a stable
// surface to call.
func UpdateVectorStore(ctx context.Context) error {
	return ragerr.ErrNotImplemented
}

// UpdateLocalKnowledge would refresh the Entity Graph and Code Symbol
// Index caches from the current project tree. Also out of scope; see UpdateVectorStore.
func UpdateLocalKnowledge(ctx context.Context) error {
	return ragerr.ErrNotImplemented
}
