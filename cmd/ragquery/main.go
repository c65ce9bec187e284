// Command ragquery is the CLI for the query pipeline: ask a question,
// trigger ingestion hooks, inspect run statistics, score an evaluation
// suite, and tail the run log. Grounded on cmd/hector/main.go's
// kong.Parse + ctx.Run(&cli) + sub-command Run(cli *CLI) idiom.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ragpipe/ragpipe/internal/cache"
	"github.com/ragpipe/ragpipe/internal/config"
	"github.com/ragpipe/ragpipe/internal/llm"
	"github.com/ragpipe/ragpipe/internal/logger"
	"github.com/ragpipe/ragpipe/internal/orchestrator"
	"github.com/ragpipe/ragpipe/internal/pipeline"
	"github.com/ragpipe/ragpipe/internal/query"
	"github.com/ragpipe/ragpipe/internal/ragtypes"
	"github.com/ragpipe/ragpipe/internal/rerank"
	"github.com/ragpipe/ragpipe/internal/retrieval/codeindex"
	"github.com/ragpipe/ragpipe/internal/retrieval/entitygraph"
	"github.com/ragpipe/ragpipe/internal/retrieval/keyword"
	"github.com/ragpipe/ragpipe/internal/retrieval/memoryclient"
	"github.com/ragpipe/ragpipe/internal/retrieval/vectorindex"
	"github.com/ragpipe/ragpipe/internal/synth"
	"github.com/ragpipe/ragpipe/internal/trace"
)

// CLI defines the command-line interface.
type CLI struct {
	Ask    AskCmd    `cmd:"" help:"Ask a question against the project."`
	Update UpdateCmd `cmd:"" help:"Refresh the vector store and local knowledge caches."`
	Stats  StatsCmd  `cmd:"" help:"Print run/cache statistics."`
	Eval   EvalCmd   `cmd:"" help:"Score an evaluation suite against the pipeline."`
	Logs   LogsCmd   `cmd:"" help:"Tail the run log."`

	Project     string `help:"Project name, used to namespace the cache." default:"default"`
	ProjectRoot string `help:"Root directory of the project being queried." type:"path" default:"."`
	ConfigFile  string `name:"config" help:"Path to an optional YAML config file." type:"path"`

	ContextChars int `name:"context-chars" help:"Context budget in characters (0 = use config default)."`
	TopK         int `name:"top-k" help:"Sets top_k in the resolved config (0 = keep config value); the planner's per-query top_k is not overridden by it."`

	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFormat string `help:"Log format (simple or json)." default:"simple"`
}

// AskCmd runs one question through the full pipeline.
type AskCmd struct {
	Question string `arg:"" help:"The question to ask."`
}

func (c *AskCmd) Run(cli *CLI) error {
	ctrl, cfg, err := buildController(cli)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	record, err := ctrl.Run(ctx, c.Question)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	fmt.Println(record.Answer)
	fmt.Fprintf(os.Stderr, "\n[confidence %.0f%%, %d docs retrieved, %d reranked, %.2fs, cache=%s, project=%s]\n",
		record.Confidence, len(record.Retrieved), len(record.Reranked), record.ElapsedSec, cacheLabel(record.FromCache), cfg.Project)
	return nil
}

// UpdateCmd triggers the out-of-scope ingestion hooks. Both always
// return ragerr.ErrNotImplemented; the command exists so callers get a
// clear error rather than a missing subcommand.
type UpdateCmd struct {
	VectorStore    bool `name:"vector-store" help:"Refresh the vector store."`
	LocalKnowledge bool `name:"local-knowledge" help:"Refresh the entity graph and code symbol cache."`
}

func (c *UpdateCmd) Run(cli *CLI) error {
	ctx := context.Background()
	if c.VectorStore || !c.LocalKnowledge {
		if err := pipeline.UpdateVectorStore(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "update vector store: %v\n", err)
		}
	}
	if c.LocalKnowledge || !c.VectorStore {
		if err := pipeline.UpdateLocalKnowledge(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "update local knowledge: %v\n", err)
		}
	}
	return nil
}

// StatsCmd prints the monitor's aggregate counters.
type StatsCmd struct{}

func (c *StatsCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	monitor := trace.NewMonitor(cfg.DataDir, prometheus.DefaultRegisterer)
	agg := monitor.LoadAggregate()

	data, err := json.MarshalIndent(map[string]any{
		"total_runs":         agg.TotalRuns,
		"cache_hits":         agg.CacheHits,
		"cache_hit_rate":     agg.CacheHitRate(),
		"average_confidence": agg.AverageConfidence(),
		"average_elapsed_sec": agg.AverageElapsedSec(),
		"sum_context_chars":  agg.SumContextChars,
		"updated_at":         agg.UpdatedAt,
	}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// EvalCmd scores a JSON suite of {question, ideal_answer} pairs
// against live pipeline runs using the deterministic Quality Panel
// scorer.
type EvalCmd struct {
	Suite string `arg:"" help:"Path to a JSON eval suite file." type:"path"`
}

func (c *EvalCmd) Run(cli *CLI) error {
	data, err := os.ReadFile(c.Suite)
	if err != nil {
		return fmt.Errorf("reading eval suite %q: %w", c.Suite, err)
	}

	var suite struct {
		Tests []synth.TestCase `json:"tests"`
	}
	if err := json.Unmarshal(data, &suite); err != nil {
		return fmt.Errorf("parsing eval suite %q: %w", c.Suite, err)
	}

	ctrl, _, err := buildController(cli)
	if err != nil {
		return err
	}
	ctx := context.Background()

	var cases []synth.ScoredCase
	for _, tc := range suite.Tests {
		record, err := ctrl.Run(ctx, tc.Question)
		if err != nil {
			fmt.Fprintf(os.Stderr, "question %q failed: %v\n", tc.Question, err)
			continue
		}
		cases = append(cases, synth.ScoredCase{
			Question:     tc.Question,
			IdealAnswer:  tc.IdealAnswer,
			ActualAnswer: record.Answer,
			OverlapScore: synth.ScoreOverlap(record.Answer, tc.IdealAnswer),
		})
	}

	report := synth.BuildReport(cases)
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// LogsCmd tails the append-only run log.
type LogsCmd struct {
	N int `help:"Number of most recent lines to print." default:"20"`
}

func (c *LogsCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	monitor := trace.NewMonitor(cfg.DataDir, nil)

	data, err := os.ReadFile(monitor.RunLogPath)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(os.Stderr, "no runs logged yet")
			return nil
		}
		return err
	}

	lines := splitNonEmptyLines(data)
	if len(lines) > c.N {
		lines = lines[len(lines)-c.N:]
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}

func splitNonEmptyLines(data []byte) []string {
	var lines []string
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, string(data[start:i]))
			}
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, string(data[start:]))
	}
	return lines
}

func cacheLabel(fromCache bool) string {
	if fromCache {
		return "hit"
	}
	return "miss"
}

func loadConfig(cli *CLI) (*config.Config, error) {
	cfg, err := config.Load(cli.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cli.Project != "" {
		cfg.Project = cli.Project
	}
	if cli.ProjectRoot != "" && cli.ProjectRoot != "." {
		cfg.ProjectRoot = cli.ProjectRoot
	}
	if cli.ContextChars > 0 {
		cfg.ContextMaxChars = cli.ContextChars
	}
	if cli.TopK > 0 {
		cfg.TopK = cli.TopK
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// buildController wires every pipeline component from resolved
// configuration: the Query Analyzer, Retrieval
// Orchestrator over all five retrievers, Re-ranker, Answer
// Synthesizer, Query Cache, Tracer, and Monitor.
func buildController(cli *CLI) (*pipeline.Controller, *config.Config, error) {
	cfg, err := loadConfig(cli)
	if err != nil {
		return nil, nil, err
	}

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	fastModel := cfg.FastModel
	if fastModel == "" {
		fastModel = "claude-haiku-4-5"
	}
	mainModel := cfg.MainModel
	if mainModel == "" {
		mainModel = "claude-sonnet-4-5"
	}

	var fastLLM, mainLLM llm.Provider
	if apiKey != "" {
		fastLLM = llm.NewAnthropicProvider(apiKey, fastModel, "")
		mainLLM = llm.NewAnthropicProvider(apiKey, mainModel, "")
	} else {
		fastLLM = &llm.Fake{}
		mainLLM = &llm.Fake{Responses: []string{ragtypes.NoInformationSentinel}}
	}

	analyzer := query.NewAnalyzer(fastLLM)

	vecIndex, err := vectorindex.NewPersistent(cfg.DataDir+"/vectors", true, cfg.Project, vectorindex.HashEmbed)
	if err != nil {
		return nil, nil, fmt.Errorf("opening vector index: %w", err)
	}

	memClient := memoryclient.New(os.Getenv("RAG_MEMORY_SEARCH_CMD"), cfg.MemoryTimeout)
	keywordScanner := keyword.New(cfg.ProjectRoot)

	codeIdx, _ := codeindex.Open(cfg.DataDir+"/symbols.db", cfg.ProjectRoot)

	graph, err := entitygraph.Load(cfg.ProjectRoot + "/.ragpipe/entities.json")
	if err != nil {
		return nil, nil, fmt.Errorf("loading entity graph: %w", err)
	}

	orch := &orchestrator.Orchestrator{
		Vector:   vecIndex,
		Memory:   memClient,
		Keyword:  keywordScanner,
		Code:     codeIdx,
		Graph:    graph,
		Planner:  fastLLM,
		Analyzer: analyzer,
	}

	reranker := rerank.New(stubCrossEncoder)

	synthesizer := synth.New(mainLLM)

	cacheDir := cfg.DataDir + "/cache/" + cfg.Project
	queryCache := cache.New(cacheDir, cfg.CacheDisabled, cfg.CacheMaxEntries)

	tracer, err := trace.NewWithExporter(context.Background(), "ragpipe", cfg.DataDir+"/logs/traces", cfg.TraceExporter, cfg.TracingEnabled)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing tracer: %w", err)
	}
	monitor := trace.NewMonitor(cfg.DataDir, prometheus.DefaultRegisterer)

	maxChars := cli.ContextChars
	if maxChars <= 0 {
		maxChars = cfg.ContextMaxChars
	}

	ctrl := pipeline.New(cfg.Project, analyzer, orch, reranker, synthesizer, queryCache, tracer, monitor, cfg.TTLForIntent, maxChars)
	return ctrl, cfg, nil
}

// stubCrossEncoder is a deterministic, dependency-free stand-in for a
// real cross-encoder model: a plain
// term-overlap fraction between query and content.
func stubCrossEncoder(ctx context.Context, q, content string) (float64, error) {
	terms := strings.Fields(strings.ToLower(q))
	if len(terms) == 0 {
		return 0, nil
	}
	lower := strings.ToLower(content)
	matches := 0
	for _, t := range terms {
		if strings.Contains(lower, t) {
			matches++
		}
	}
	return float64(matches) / float64(len(terms)), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}

func main() {
	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("ragquery"),
		kong.Description("Query pipeline CLI: intent-adaptive retrieval, re-ranking, and cited synthesis."),
		kong.UsageOnError(),
	)

	logger.New(logger.Options{Level: logger.ParseLevel(cli.LogLevel), Format: cli.LogFormat})

	err := kctx.Run(&cli)
	kctx.FatalIfErrorf(err)
}
