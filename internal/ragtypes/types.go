// Package ragtypes holds the data types that flow through the query
// pipeline: Query, Document, Strategy, and the Run Record persisted by
// the cache and the monitor.
package ragtypes

import "time"

// Intent is the coarse classification of a query that drives routing and
// budget decisions.
type Intent string

const (
	IntentCode    Intent = "code"
	IntentConfig  Intent = "config"
	IntentExplain Intent = "explain"
	IntentStatus  Intent = "status"
	IntentGeneral Intent = "general"
)

// Temporal captures recency cues extracted from a query.
type Temporal struct {
	Present  bool   `json:"present"`
	DaysBack int    `json:"days_back"`
	Keyword  string `json:"keyword,omitempty"`
}

// Query is the immutable, analyzed form of a user's question.
type Query struct {
	Raw        string   `json:"raw"`
	Concepts   []string `json:"concepts"`
	Expansions []string `json:"expansions"`
	Temporal   Temporal `json:"temporal"`
	Intent     Intent   `json:"intent"`
}

// Source identifies which retriever produced a Document.
type Source string

const (
	SourceVector      Source = "vector"
	SourceMemory      Source = "memory"
	SourceKeyword     Source = "keyword"
	SourceCode        Source = "code"
	SourceCodeFallback Source = "code_fallback"
	SourceEntityGraph Source = "entity_graph"
	SourceTemporal    Source = "temporal"
)

// Document is a single piece of retrieved evidence. Fields are added as
// the document flows through the pipeline; existing fields are never
// destructively overwritten.
type Document struct {
	ID            string                 `json:"id"`
	Content       string                 `json:"content"`
	Source        Source                 `json:"source"`
	Metadata      map[string]any         `json:"metadata,omitempty"`
	Score         *float64               `json:"score,omitempty"`
	VectorScore   *float64               `json:"vector_score,omitempty"`
	TemporalBoost *float64               `json:"temporal_boost,omitempty"`
	FinalScore    *float64               `json:"final_score,omitempty"`
}

// Mode selects whether the orchestrator is invoked at all.
type Mode string

const (
	ModeHybrid Mode = "hybrid"
	ModeNone   Mode = "none"
)

// Strategy records retriever selection and per-retriever budgets for a
// single query, produced by the planner (C7) and consumed by the
// orchestrator (C8), reranker (C9) and compressor (C10).
type Strategy struct {
	Mode Mode `json:"mode"`

	UseVector   bool `json:"use_vector"`
	UseMemory   bool `json:"use_memory"`
	UseRecent   bool `json:"use_recent"`
	UseCode     bool `json:"use_code"`
	UseKeywords bool `json:"use_keywords"`
	UseGraph    bool `json:"use_graph"`
	UsePlanning bool `json:"use_planning"`

	TopK            int `json:"top_k"`
	VectorNResults  int `json:"vector_n_results"`
	MemoryLimit     int `json:"memory_limit"`
	MemoryConcepts  int `json:"memory_concepts"`
	KeywordLimit    int `json:"keyword_limit"`
	GraphLimit      int `json:"graph_limit"`
	CodeLimit       int `json:"code_limit"`

	HalfLifeDays int `json:"half_life_days"`
}

// RunRecord is the canonical output of one pipeline execution. It is
// persisted to the cache and written to the monitor log.
type RunRecord struct {
	RunID        string     `json:"run_id,omitempty"`
	Query        string     `json:"query"`
	Intent       Intent     `json:"intent"`
	Retrieved    []Document `json:"retrieved"`
	Reranked     []Document `json:"reranked"`
	ContextChars int        `json:"context_chars"`
	Confidence   float64    `json:"confidence"`
	ElapsedSec   float64    `json:"elapsed_sec"`
	FromCache    bool       `json:"from_cache"`
	Answer       string     `json:"answer"`
	Project      string     `json:"project"`
	Timestamp    time.Time  `json:"timestamp"`
	CacheTTL     int        `json:"cache_ttl"`
}

// NoInformationSentinel is the language-neutral answer produced when no
// documents survive retrieval.
const NoInformationSentinel = "No relevant information found."
