// Monitor: an append-only per-run log plus a lock-guarded,
// read-modify-write aggregate counters file, with optional Prometheus
// mirroring. Grounded on pkg/httpclient's file-based retry-state idiom
// for the atomic-write pattern and on prometheus/client_golang's
// counter/gauge registration style.
package trace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ragpipe/ragpipe/internal/ragtypes"
)

// Aggregate is the rolling metrics file's shape.
type Aggregate struct {
	TotalRuns      int64     `json:"total_runs"`
	CacheHits      int64     `json:"cache_hits"`
	SumConfidence  float64   `json:"sum_confidence"`
	SumElapsedSec  float64   `json:"sum_elapsed_sec"`
	SumContextChars int64    `json:"sum_context_chars"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AverageConfidence is the derived mean confidence across all runs.
func (a Aggregate) AverageConfidence() float64 {
	if a.TotalRuns == 0 {
		return 0
	}
	return a.SumConfidence / float64(a.TotalRuns)
}

// AverageElapsedSec is the derived mean elapsed time across all runs.
func (a Aggregate) AverageElapsedSec() float64 {
	if a.TotalRuns == 0 {
		return 0
	}
	return a.SumElapsedSec / float64(a.TotalRuns)
}

// CacheHitRate is the derived fraction of runs served from cache.
func (a Aggregate) CacheHitRate() float64 {
	if a.TotalRuns == 0 {
		return 0
	}
	return float64(a.CacheHits) / float64(a.TotalRuns)
}

// Monitor owns the run log and the aggregate metrics file.
type Monitor struct {
	RunLogPath   string
	AggregatePath string

	mu sync.Mutex

	runsCounter       prometheus.Counter
	cacheHitsCounter  prometheus.Counter
	confidenceGauge   prometheus.Gauge
}

// NewMonitor constructs a Monitor rooted at dataDir/logs. Prometheus
// metrics are registered against reg; a nil registry disables
// Prometheus mirroring without affecting the file-based log/aggregate.
func NewMonitor(dataDir string, reg prometheus.Registerer) *Monitor {
	m := &Monitor{
		RunLogPath:    filepath.Join(dataDir, "logs", "rag_runs.jsonl"),
		AggregatePath: filepath.Join(dataDir, "logs", "rag_metrics.json"),
	}
	if reg != nil {
		m.runsCounter = prometheus.NewCounter(prometheus.CounterOpts{Name: "ragpipe_runs_total", Help: "Total pipeline runs."})
		m.cacheHitsCounter = prometheus.NewCounter(prometheus.CounterOpts{Name: "ragpipe_cache_hits_total", Help: "Total cache hits."})
		m.confidenceGauge = prometheus.NewGauge(prometheus.GaugeOpts{Name: "ragpipe_last_confidence", Help: "Confidence of the most recent run."})
		reg.MustRegister(m.runsCounter, m.cacheHitsCounter, m.confidenceGauge)
	}
	return m
}

// Record appends the run to the run log and updates the aggregate
// counters file under a lock.
func (m *Monitor) Record(record ragtypes.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.appendRunLog(record); err != nil {
		return err
	}
	return m.updateAggregate(record)
}

func (m *Monitor) appendRunLog(record ragtypes.RunRecord) error {
	if err := os.MkdirAll(filepath.Dir(m.RunLogPath), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(m.RunLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}

func (m *Monitor) updateAggregate(record ragtypes.RunRecord) error {
	agg := m.loadAggregate()

	agg.TotalRuns++
	if record.FromCache {
		agg.CacheHits++
	}
	agg.SumConfidence += record.Confidence
	agg.SumElapsedSec += record.ElapsedSec
	agg.SumContextChars += int64(record.ContextChars)
	agg.UpdatedAt = time.Now()

	if m.runsCounter != nil {
		m.runsCounter.Inc()
		if record.FromCache {
			m.cacheHitsCounter.Inc()
		}
		m.confidenceGauge.Set(record.Confidence)
	}

	return m.writeAggregate(agg)
}

func (m *Monitor) loadAggregate() Aggregate {
	data, err := os.ReadFile(m.AggregatePath)
	if err != nil {
		return Aggregate{}
	}
	var agg Aggregate
	if err := json.Unmarshal(data, &agg); err != nil {
		return Aggregate{}
	}
	return agg
}

func (m *Monitor) writeAggregate(agg Aggregate) error {
	if err := os.MkdirAll(filepath.Dir(m.AggregatePath), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(agg)
	if err != nil {
		return err
	}
	tmp := m.AggregatePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, m.AggregatePath)
}

// LoadAggregate exposes the current aggregate for the `stats` CLI
// command.
func (m *Monitor) LoadAggregate() Aggregate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadAggregate()
}
