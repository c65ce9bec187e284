// Package vectorindex implements the Vector Index Client (C1): semantic
// similarity search over a persistent embedding store. Backed by
// philippgille/chromem-go, an embedded vector database, grounded on
// pkg/vector/chromem.go. As in that file, embeddings are always
// precomputed by the caller and passed directly to chromem's
// QueryEmbedding/AddDocuments — chromem's own embeddingFunc hook is
// wired to an identity stub that errors if chromem ever tries to call
// it, since the embedding model is an out-of-scope external
// collaborator. EmbedFunc is the seam a real embedder plugs
// into; a deterministic bag-of-words stand-in is provided so the
// retriever is exercisable without one.
package vectorindex

import (
	"context"
	"crypto/sha256"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/ragpipe/ragpipe/internal/ragtypes"
)

// EmbedFunc computes an embedding for a piece of text. Real deployments
// wire in an actual embedding model; this module only depends on the
// function's shape.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// HashEmbed is a deterministic, dependency-free stand-in for a real
// embedding model: a fixed-width bag-of-words hash projection. It is
// good enough to exercise C1's search/dedup/score-shape semantics in
// tests but is not a quality embedding.
func HashEmbed(ctx context.Context, text string) ([]float32, error) {
	const dims = 64
	vec := make([]float32, dims)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		sum := sha256.Sum256([]byte(tok))
		idx := int(sum[0]) % dims
		vec[idx] += 1
	}
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec, nil
	}
	inv := 1 / sqrt32(norm)
	for i := range vec {
		vec[i] *= inv
	}
	return vec, nil
}

func sqrt32(x float32) float32 {
	z := x
	for i := 0; i < 20; i++ {
		if z == 0 {
			break
		}
		z -= (z*z - x) / (2 * z)
	}
	return z
}

func identityEmbed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("vectorindex: embedding function called but vectors should be precomputed")
}

// Index is the Vector Index Client. One Index serves one logical
// collection.
type Index struct {
	db         *chromem.DB
	collection string
	embed      EmbedFunc

	mu   sync.Mutex
	coll *chromem.Collection
}

// New creates an Index over an in-memory (non-persistent) chromem
// database, matching pkg/vector/chromem.go's NewChromemProvider
// fallback path when no persistence directory is configured.
func New(collection string, embed EmbedFunc) *Index {
	if embed == nil {
		embed = HashEmbed
	}
	return &Index{
		db:         chromem.NewDB(),
		collection: collection,
		embed:      embed,
	}
}

// NewPersistent creates an Index backed by an on-disk, gzip-compressible
// chromem database, matching pkg/vector/chromem.go's persistence path.
func NewPersistent(path string, compress bool, collection string, embed EmbedFunc) (*Index, error) {
	db, err := chromem.NewPersistentDB(path, compress)
	if err != nil {
		return nil, fmt.Errorf("vectorindex: opening persistent db at %q: %w", path, err)
	}
	if embed == nil {
		embed = HashEmbed
	}
	return &Index{db: db, collection: collection, embed: embed}, nil
}

func (idx *Index) getCollection(ctx context.Context) (*chromem.Collection, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.coll != nil {
		return idx.coll, nil
	}
	col, err := idx.db.GetOrCreateCollection(idx.collection, nil, chromem.EmbeddingFunc(identityEmbed))
	if err != nil {
		return nil, fmt.Errorf("vectorindex: creating collection %q: %w", idx.collection, err)
	}
	idx.coll = col
	return col, nil
}

func (idx *Index) count() int {
	idx.mu.Lock()
	col := idx.coll
	idx.mu.Unlock()
	if col == nil {
		return 0
	}
	return col.Count()
}

// Upsert embeds and indexes a document. Bulk ingestion is out of core
// scope (an external indexer owns it); exposed so the
// `update` CLI hook and tests have something to populate the index
// with.
func (idx *Index) Upsert(ctx context.Context, id, content string, metadata map[string]string) error {
	vec, err := idx.embed(ctx, content)
	if err != nil {
		return fmt.Errorf("vectorindex: embedding document %q: %w", id, err)
	}
	col, err := idx.getCollection(ctx)
	if err != nil {
		return err
	}
	doc := chromem.Document{ID: id, Content: content, Metadata: metadata, Embedding: vec}
	if err := col.AddDocuments(ctx, []chromem.Document{doc}, runtime.NumCPU()); err != nil {
		return fmt.Errorf("vectorindex: upserting document %q: %w", id, err)
	}
	return nil
}

// Search performs semantic similarity search, returning Documents
// tagged source=vector with Score in [0,1]. On an empty index, returns
// an empty list rather than failing.
func (idx *Index) Search(ctx context.Context, query string, n int, filter map[string]string) ([]ragtypes.Document, error) {
	if idx.count() == 0 {
		return nil, nil
	}
	vec, err := idx.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorindex: embedding query: %w", err)
	}
	col, err := idx.getCollection(ctx)
	if err != nil {
		return nil, err
	}
	if n > col.Count() {
		n = col.Count()
	}
	results, err := col.QueryEmbedding(ctx, vec, n, filter, nil)
	if err != nil {
		return nil, fmt.Errorf("vectorindex: search: %w", err)
	}

	docs := make([]ragtypes.Document, 0, len(results))
	for _, r := range results {
		score := float64(r.Similarity)
		meta := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			meta[k] = v
		}
		docs = append(docs, ragtypes.Document{
			ID:       r.ID,
			Content:  r.Content,
			Source:   ragtypes.SourceVector,
			Metadata: meta,
			Score:    &score,
		})
	}
	return docs, nil
}

// HybridSearch blends vector similarity with a keyword-match score from
// a parallel keyword retrieval pass. vectorWeight in [0,1]
// controls how much the vector score dominates the blend; the
// remainder goes to a simple term-overlap keyword score.
func (idx *Index) HybridSearch(ctx context.Context, query string, keywordDocs []ragtypes.Document, n int, vectorWeight float64) ([]ragtypes.Document, error) {
	vectorDocs, err := idx.Search(ctx, query, n, nil)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]ragtypes.Document, len(vectorDocs)+len(keywordDocs))
	order := make([]string, 0, len(vectorDocs)+len(keywordDocs))
	for _, d := range vectorDocs {
		byID[d.ID] = d
		order = append(order, d.ID)
	}

	queryTerms := strings.Fields(strings.ToLower(query))
	for _, kd := range keywordDocs {
		kwScore := termOverlapScore(queryTerms, kd.Content)
		existing, ok := byID[kd.ID]
		if !ok {
			s := kwScore
			kd.Score = &s
			byID[kd.ID] = kd
			order = append(order, kd.ID)
			continue
		}
		var vScore float64
		if existing.Score != nil {
			vScore = *existing.Score
		}
		blended := vectorWeight*vScore + (1-vectorWeight)*kwScore
		existing.Score = &blended
		byID[kd.ID] = existing
	}

	out := make([]ragtypes.Document, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return scoreOf(out[i]) > scoreOf(out[j])
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func termOverlapScore(queryTerms []string, content string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	matches := 0
	for _, t := range queryTerms {
		if strings.Contains(lower, t) {
			matches++
		}
	}
	return float64(matches) / float64(len(queryTerms))
}

func scoreOf(d ragtypes.Document) float64 {
	if d.Score == nil {
		return 0
	}
	return *d.Score
}
