package trace

import (
	"os"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragpipe/ragpipe/internal/ragtypes"
)

func TestRecordAppendsRunLogLine(t *testing.T) {
	m := NewMonitor(t.TempDir(), nil)
	require.NoError(t, m.Record(ragtypes.RunRecord{Query: "q1", Confidence: 80}))
	require.NoError(t, m.Record(ragtypes.RunRecord{Query: "q2", Confidence: 40}))

	data, err := os.ReadFile(m.RunLogPath)
	require.NoError(t, err)
	lines := strings.Count(strings.TrimRight(string(data), "\n"), "\n") + 1
	assert.Equal(t, 2, lines)
}

func TestRecordAccumulatesAggregateCounters(t *testing.T) {
	m := NewMonitor(t.TempDir(), nil)
	require.NoError(t, m.Record(ragtypes.RunRecord{Confidence: 80, ElapsedSec: 1.0, ContextChars: 100, FromCache: true}))
	require.NoError(t, m.Record(ragtypes.RunRecord{Confidence: 40, ElapsedSec: 3.0, ContextChars: 300, FromCache: false}))

	agg := m.LoadAggregate()
	assert.Equal(t, int64(2), agg.TotalRuns)
	assert.Equal(t, int64(1), agg.CacheHits)
	assert.Equal(t, 60.0, agg.AverageConfidence())
	assert.Equal(t, 2.0, agg.AverageElapsedSec())
	assert.Equal(t, 0.5, agg.CacheHitRate())
	assert.Equal(t, int64(400), agg.SumContextChars)
}

func TestLoadAggregateOnEmptyDirYieldsZeroValue(t *testing.T) {
	m := NewMonitor(t.TempDir(), nil)
	agg := m.LoadAggregate()
	assert.Equal(t, int64(0), agg.TotalRuns)
	assert.Equal(t, 0.0, agg.AverageConfidence())
	assert.Equal(t, 0.0, agg.CacheHitRate())
}

func TestNewMonitorWithRegistryRegistersPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMonitor(t.TempDir(), reg)
	require.NoError(t, m.Record(ragtypes.RunRecord{Confidence: 55, FromCache: true}))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	var sawRuns, sawHits, sawConfidence bool
	for _, f := range families {
		switch f.GetName() {
		case "ragpipe_runs_total":
			sawRuns = true
		case "ragpipe_cache_hits_total":
			sawHits = true
		case "ragpipe_last_confidence":
			sawConfidence = true
		}
	}
	assert.True(t, sawRuns)
	assert.True(t, sawHits)
	assert.True(t, sawConfidence)
}
