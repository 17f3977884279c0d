package coordinator

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/taskforge/orchestrator/internal/cache"
	"github.com/taskforge/orchestrator/internal/taxonomy"
)

// patternEMAAlpha is the smoothing factor for per-pattern rolling success
// rate and timing, per spec §4.6 step 9 ("EMA alpha = 0.1 for time/
// quality").
const patternEMAAlpha = 0.1

// Metrics accumulates rolling counters across requests (spec §4.6 step 9,
// §6 "metrics() snapshot"). Field updates are commutative and apply-last-
// writer per spec §5's ordering guarantees, using atomics for simple
// counters and a short-critical-section mutex for the per-key maps.
type Metrics struct {
	totalRequests      int64
	successfulRequests int64

	mu                 sync.Mutex
	patternSuccessRate map[taxonomy.Pattern]float64
	patternEMALatency  map[taxonomy.Pattern]time.Duration
	providerUsage      map[string]int64
	capabilityUsage    map[taxonomy.Capability]int64
}

func newMetrics() *Metrics {
	return &Metrics{
		patternSuccessRate: map[taxonomy.Pattern]float64{},
		patternEMALatency:  map[taxonomy.Pattern]time.Duration{},
		providerUsage:      map[string]int64{},
		capabilityUsage:    map[taxonomy.Capability]int64{},
	}
}

// RecordRequest folds one completed request's outcome into the rolling
// metrics (spec §4.6 step 9).
func (m *Metrics) RecordRequest(pattern taxonomy.Pattern, success bool, elapsed time.Duration, providers []string, caps []taxonomy.Capability) {
	atomic.AddInt64(&m.totalRequests, 1)
	if success {
		atomic.AddInt64(&m.successfulRequests, 1)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	outcome := 0.0
	if success {
		outcome = 1.0
	}
	if _, seen := m.patternSuccessRate[pattern]; !seen {
		m.patternSuccessRate[pattern] = outcome
		m.patternEMALatency[pattern] = elapsed
	} else {
		m.patternSuccessRate[pattern] = patternEMAAlpha*outcome + (1-patternEMAAlpha)*m.patternSuccessRate[pattern]
		prior := m.patternEMALatency[pattern]
		m.patternEMALatency[pattern] = time.Duration(patternEMAAlpha*float64(elapsed) + (1-patternEMAAlpha)*float64(prior))
	}

	for _, p := range providers {
		m.providerUsage[p]++
	}
	for _, c := range caps {
		m.capabilityUsage[c]++
	}
}

// PatternSuccessRate returns the current EMA success rate for pattern, or 0
// if it has never been recorded. Used by the strategy selector's
// historical-success-rate bonus (spec §4.3 "Scoring").
func (m *Metrics) PatternSuccessRate(pattern taxonomy.Pattern) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.patternSuccessRate[pattern]
}

// Snapshot is the plain in-memory struct returned by metrics() (spec §6),
// independent of any OTEL wiring (per SPEC_FULL.md §1.1).
type Snapshot struct {
	TotalRequests      int64
	SuccessfulRequests int64
	PatternSuccessRate map[taxonomy.Pattern]float64
	ProviderUsage      map[string]int64
	CapabilityUsage    map[taxonomy.Capability]int64
	AnalysisCache      cache.Stats
	StrategyCache      cache.Stats
}

func (m *Metrics) Snapshot(analysisStats, strategyStats cache.Stats) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	patternRates := make(map[taxonomy.Pattern]float64, len(m.patternSuccessRate))
	for k, v := range m.patternSuccessRate {
		patternRates[k] = v
	}
	providerUsage := make(map[string]int64, len(m.providerUsage))
	for k, v := range m.providerUsage {
		providerUsage[k] = v
	}
	capUsage := make(map[taxonomy.Capability]int64, len(m.capabilityUsage))
	for k, v := range m.capabilityUsage {
		capUsage[k] = v
	}

	return Snapshot{
		TotalRequests:      atomic.LoadInt64(&m.totalRequests),
		SuccessfulRequests: atomic.LoadInt64(&m.successfulRequests),
		PatternSuccessRate: patternRates,
		ProviderUsage:      providerUsage,
		CapabilityUsage:    capUsage,
		AnalysisCache:      analysisStats,
		StrategyCache:      strategyStats,
	}
}
