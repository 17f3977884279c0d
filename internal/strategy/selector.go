package strategy

import (
	"sort"

	"github.com/taskforge/orchestrator/internal/analyzer"
	"github.com/taskforge/orchestrator/internal/cache"
	"github.com/taskforge/orchestrator/internal/registry"
	"github.com/taskforge/orchestrator/internal/taxonomy"
)

// Recommendation is the immutable value type returned by Select (spec §3
// StrategyRecommendation).
type Recommendation struct {
	Pattern               taxonomy.Pattern
	Reasoning             string
	RequiredProviders     []string
	EstimatedExecutionSec int
	Confidence            float64
	FallbackPatterns      []taxonomy.Pattern
	ScoredPatterns        map[taxonomy.Pattern]float64

	CacheHit bool
}

// HistoricalSuccess reports, for a pattern, the EMA success rate maintained
// by the coordinator (spec §4.3 "+0.1 × historical success rate"). Selector
// callers that have no history yet should return 0 for every pattern.
type HistoricalSuccess func(p taxonomy.Pattern) float64

// baseTimeSeconds gives the nominal per-step time for a pattern before the
// complexity/step multiplier is applied (spec §4.3 "Time estimate").
var baseTimeSeconds = map[taxonomy.Pattern]int{
	taxonomy.Direct:             10,
	taxonomy.Parallel:           15,
	taxonomy.Router:             12,
	taxonomy.Swarm:              25,
	taxonomy.Orchestrator:       20,
	taxonomy.EvaluatorOptimizer: 18,
}

type cacheKey struct {
	text      string
	signature string
}

// Selector scores patterns against a TaskAnalysis and the current registry,
// caching results keyed on (normalized text, provider-set signature).
type Selector struct {
	cache *cache.LRU[cacheKey, Recommendation]
}

// New constructs a Selector with an LRU cache of the given capacity (spec
// §4.3 default 64; 0 disables caching).
func New(cacheCapacity int) *Selector {
	return &Selector{cache: cache.New[cacheKey, Recommendation](cacheCapacity)}
}

// Stats returns the selector's cache hit/miss statistics.
func (s *Selector) Stats() cache.Stats { return s.cache.Stats() }

// Select picks a Pattern for the given analysis against reg's current
// provider set. normalizedText must be the same normalization the analyzer
// used, so the two caches stay keyed consistently (spec §4.1, §4.3). Never
// fails: if no pattern scores above 0, falls back to Direct (spec §4.3
// "Failures").
func (s *Selector) Select(normalizedText string, a analyzer.TaskAnalysis, reg *registry.Registry, hist HistoricalSuccess) Recommendation {
	sig := reg.AllNamesSignature()
	key := cacheKey{text: normalizedText, signature: sig}
	if cached, ok := s.cache.Get(key); ok {
		cached.CacheHit = true
		return cached
	}

	if hist == nil {
		hist = func(taxonomy.Pattern) float64 { return 0 }
	}

	scores := map[taxonomy.Pattern]float64{}
	reasons := map[taxonomy.Pattern][]string{}
	for _, p := range taxonomy.Patterns {
		score, matched := scorePattern(p, a)
		score += 0.1 * hist(p)
		score += 0.1 * coverageFraction(a, reg)
		scores[p] = score
		reasons[p] = matched
	}

	winner := pickWinner(scores, hist)
	confidence := clamp01(scores[winner])
	fallbacks := rankedFallbacks(scores, winner)

	rec := Recommendation{
		Pattern:               winner,
		Reasoning:             reasoningFor(winner, a, reasons[winner]),
		RequiredProviders:     requiredProviders(a, reg),
		EstimatedExecutionSec: estimateTimeSeconds(winner, a),
		Confidence:            confidence,
		FallbackPatterns:      fallbacks,
		ScoredPatterns:        scores,
	}
	s.cache.Add(key, rec)
	return rec
}

// scorePattern accumulates a normalized-ish [−1,1]-ish score from the
// pattern's criteria table (spec §4.3 "Scoring").
func scorePattern(p taxonomy.Pattern, a analyzer.TaskAnalysis) (float64, []string) {
	criteria := criteriaByPattern[p]
	var score float64
	var matched []string
	for _, c := range criteria {
		if c.matches(a) {
			score += c.bonus
			matched = append(matched, c.label)
		} else {
			score += c.penalty
		}
	}
	return score, matched
}

// pickWinner implements argmax with the tiebreak order from spec §4.3:
// historical success rate, then canonical enum order (direct first).
func pickWinner(scores map[taxonomy.Pattern]float64, hist HistoricalSuccess) taxonomy.Pattern {
	best := taxonomy.Direct
	bestScore := scores[taxonomy.Direct]
	for _, p := range taxonomy.Patterns {
		s := scores[p]
		if s > bestScore {
			bestScore = s
			best = p
			continue
		}
		if s == bestScore {
			if hist(p) > hist(best) {
				best = p
			} else if hist(p) == hist(best) && p.CanonicalRank() < best.CanonicalRank() {
				best = p
			}
		}
	}
	if bestScore <= 0 {
		return taxonomy.Direct
	}
	return best
}

// rankedFallbacks returns up to two patterns other than winner with score
// >= 0.3, highest first (spec §4.3 "Fallbacks").
func rankedFallbacks(scores map[taxonomy.Pattern]float64, winner taxonomy.Pattern) []taxonomy.Pattern {
	type scored struct {
		p taxonomy.Pattern
		s float64
	}
	var candidates []scored
	for _, p := range taxonomy.Patterns {
		if p == winner {
			continue
		}
		if scores[p] >= 0.3 {
			candidates = append(candidates, scored{p, scores[p]})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].s != candidates[j].s {
			return candidates[i].s > candidates[j].s
		}
		return candidates[i].p.CanonicalRank() < candidates[j].p.CanonicalRank()
	})
	if len(candidates) > 2 {
		candidates = candidates[:2]
	}
	out := make([]taxonomy.Pattern, len(candidates))
	for i, c := range candidates {
		out[i] = c.p
	}
	return out
}

// requiredProviders picks, for each required capability, the first provider
// from the reverse index not already chosen, preserving insertion order and
// deduplicating (spec §4.3 "Required providers").
func requiredProviders(a analyzer.TaskAnalysis, reg *registry.Registry) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, c := range a.CapabilitySlice() {
		for _, p := range reg.ProvidersFor(c) {
			if _, ok := seen[p.Name]; ok {
				continue
			}
			seen[p.Name] = struct{}{}
			out = append(out, p.Name)
			break
		}
	}
	return out
}

// coverageFraction is matched-required-providers / total-required-capabilities
// using current registry coverage (spec §4.3).
func coverageFraction(a analyzer.TaskAnalysis, reg *registry.Registry) float64 {
	caps := a.CapabilitySlice()
	if len(caps) == 0 {
		return 1
	}
	covered := 0
	for _, c := range caps {
		if len(reg.ProvidersFor(c)) > 0 {
			covered++
		}
	}
	return float64(covered) / float64(len(caps))
}

// estimateTimeSeconds implements spec §4.3 "Time estimate": base_time ×
// complexity_level × max(1, estimated_steps/3).
func estimateTimeSeconds(p taxonomy.Pattern, a analyzer.TaskAnalysis) int {
	base := baseTimeSeconds[p]
	level := a.Complexity.Level() + 1 // level is 0-indexed; multiplier must be >=1
	stepFactor := float64(a.EstimatedSteps) / 3
	if stepFactor < 1 {
		stepFactor = 1
	}
	return int(float64(base*level) * stepFactor)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
