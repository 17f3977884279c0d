// Package analyzer implements the task analyzer (C4): a pure, deterministic
// classifier that turns a free-form request into a TaskAnalysis, backed by
// an LRU cache over normalized text (spec §4.1).
package analyzer

import (
	"strings"
	"time"

	"github.com/taskforge/orchestrator/internal/cache"
	"github.com/taskforge/orchestrator/internal/taxonomy"
)

// TaskAnalysis is the immutable value type produced by Analyze (spec §3).
// Two calls on the same normalized text must return structurally equal
// analyses except for the observational CacheHit/AnalysisTimeMS fields.
type TaskAnalysis struct {
	Description          string
	TaskType             taxonomy.TaskType
	Complexity           taxonomy.Complexity
	RequiredCapabilities map[taxonomy.Capability]struct{}
	EstimatedSteps       int
	Parallelizable       bool
	RequiresIteration    bool
	RequiresHumanInput   bool
	Confidence           float64
	Keywords             []string

	// Observational fields only; excluded from equality comparisons used by
	// the determinism property (spec §8 property 1).
	CacheHit      bool
	AnalysisTime  time.Duration
}

// Equal reports structural equality ignoring the observational fields.
func (a TaskAnalysis) Equal(b TaskAnalysis) bool {
	if a.Description != b.Description || a.TaskType != b.TaskType ||
		a.Complexity != b.Complexity || a.EstimatedSteps != b.EstimatedSteps ||
		a.Parallelizable != b.Parallelizable || a.RequiresIteration != b.RequiresIteration ||
		a.RequiresHumanInput != b.RequiresHumanInput || a.Confidence != b.Confidence {
		return false
	}
	if len(a.RequiredCapabilities) != len(b.RequiredCapabilities) {
		return false
	}
	for c := range a.RequiredCapabilities {
		if _, ok := b.RequiredCapabilities[c]; !ok {
			return false
		}
	}
	return true
}

// HasCapability reports whether c is among the required capabilities.
func (a TaskAnalysis) HasCapability(c taxonomy.Capability) bool {
	_, ok := a.RequiredCapabilities[c]
	return ok
}

// CapabilitySlice returns the required capabilities in taxonomy's canonical
// order, for deterministic iteration.
func (a TaskAnalysis) CapabilitySlice() []taxonomy.Capability {
	out := make([]taxonomy.Capability, 0, len(a.RequiredCapabilities))
	for _, c := range taxonomy.Capabilities {
		if _, ok := a.RequiredCapabilities[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Analyzer classifies request text into a TaskAnalysis, caching results by
// normalized text.
type Analyzer struct {
	cache *cache.LRU[string, TaskAnalysis]
}

// New constructs an Analyzer with an LRU cache of the given capacity
// (spec §4.1: default 128; 0 disables caching).
func New(cacheCapacity int) *Analyzer {
	return &Analyzer{cache: cache.New[string, TaskAnalysis](cacheCapacity)}
}

// Analyze classifies text into a TaskAnalysis. Empty input yields the
// minimal analysis (information-retrieval, simple, 1 step, confidence 0)
// per spec §4.1 "Failures". The analyzer never errors on well-formed input.
func (a *Analyzer) Analyze(text string) TaskAnalysis {
	start := time.Now()
	norm := Normalize(text)
	if norm == "" {
		return TaskAnalysis{
			Description:          text,
			TaskType:             taxonomy.InformationRetrieval,
			Complexity:           taxonomy.Simple,
			RequiredCapabilities: map[taxonomy.Capability]struct{}{},
			EstimatedSteps:       1,
			Confidence:           0,
			AnalysisTime:         time.Since(start),
		}
	}

	if cached, ok := a.cache.Get(norm); ok {
		cached.CacheHit = true
		cached.AnalysisTime = time.Since(start)
		return cached
	}

	result := classify(text, norm)
	result.AnalysisTime = time.Since(start)
	a.cache.Add(norm, result)
	return result
}

// Stats returns the analyzer's cache hit/miss statistics.
func (a *Analyzer) Stats() cache.Stats { return a.cache.Stats() }

// classify runs the scoring algorithm described in spec §4.1 steps 1-8.
func classify(original, norm string) TaskAnalysis {
	taskType, matchedTypeKeywords := classifyTaskType(norm)
	complexity := classifyComplexity(norm)
	caps, matchedCapKeywords := classifyCapabilities(norm, taskType)
	steps := estimateSteps(norm, complexity)
	parallel := countMatches(norm, taxonomy.ParallelKeywords) > countMatches(norm, taxonomy.SequentialKeywords)
	iterative := countMatches(norm, taxonomy.IterationKeywords) > 0
	humanInput := countMatches(norm, taxonomy.ApprovalKeywords) > 0
	confidence := estimateConfidence(norm)

	keywords := append(matchedTypeKeywords, matchedCapKeywords...)

	return TaskAnalysis{
		Description:          original,
		TaskType:             taskType,
		Complexity:           complexity,
		RequiredCapabilities: caps,
		EstimatedSteps:       steps,
		Parallelizable:       parallel,
		RequiresIteration:    iterative,
		RequiresHumanInput:   humanInput,
		Confidence:           confidence,
		Keywords:             keywords,
	}
}

func classifyTaskType(norm string) (taxonomy.TaskType, []string) {
	bestType := taxonomy.InformationRetrieval
	bestScore := 0
	var bestKeywords []string
	for _, t := range taxonomy.TaskTypes {
		score := 0
		var matched []string
		for _, kw := range taxonomy.TypeKeywords[t] {
			if strings.Contains(norm, kw) {
				score++
				matched = append(matched, kw)
			}
		}
		if score > bestScore {
			bestScore = score
			bestType = t
			bestKeywords = matched
		}
	}
	return bestType, bestKeywords
}

func classifyComplexity(norm string) taxonomy.Complexity {
	complexity := taxonomy.Simple
	for _, c := range []taxonomy.Complexity{taxonomy.Moderate, taxonomy.Complex, taxonomy.Advanced, taxonomy.Expert} {
		if countMatches(norm, taxonomy.ComplexityKeywords[c]) > 0 {
			complexity = complexity.Max(c)
		}
	}

	if strings.Contains(norm, " and ") || strings.Contains(norm, " then ") {
		complexity = complexity.Bump()
	}
	if len(strings.Fields(norm)) > 25 {
		complexity = complexity.Bump()
	}
	if countEnumeratedActions(norm) >= 2 {
		complexity = complexity.Bump()
	}
	return complexity
}

func classifyCapabilities(norm string, taskType taxonomy.TaskType) (map[taxonomy.Capability]struct{}, []string) {
	caps := map[taxonomy.Capability]struct{}{}
	var keywords []string
	for _, c := range taxonomy.Capabilities {
		for _, kw := range taxonomy.CapabilityKeywords[c] {
			if strings.Contains(norm, kw) {
				caps[c] = struct{}{}
				keywords = append(keywords, kw)
				break
			}
		}
	}
	for _, c := range taxonomy.BaseCapabilitiesByType[taskType] {
		caps[c] = struct{}{}
	}
	return caps, keywords
}

func estimateSteps(norm string, complexity taxonomy.Complexity) int {
	steps := taxonomy.BaseStepsByComplexity[complexity]
	steps += strings.Count(norm, ",")
	steps += countMatches(norm, []string{"and then", "then", "after that", "finally"})
	if steps < 1 {
		steps = 1
	}
	return steps
}

func estimateConfidence(norm string) float64 {
	confidence := 0.6
	words := strings.Fields(norm)
	if len(words) > 10 {
		confidence += 0.1
	}
	if len(words) > 20 {
		confidence += 0.1
	}
	actionHits := countMatches(norm, taxonomy.ActionVerbs)
	if actionHits > 0 {
		confidence += 0.05 * float64(min(actionHits, 3))
	}
	vagueHits := countMatches(norm, taxonomy.VagueWords)
	confidence -= 0.15 * float64(vagueHits)

	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}

// countEnumeratedActions counts distinct action verbs present, used as one
// of the complexity bump heuristics (spec §4.1 step 2c: "≥2 enumerated
// action words").
func countEnumeratedActions(norm string) int {
	return countMatches(norm, taxonomy.ActionVerbs)
}

func countMatches(norm string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(norm, kw) {
			n++
		}
	}
	return n
}
