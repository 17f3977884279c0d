// Package strategy implements the strategy selector (C5): given a task
// analysis and the current provider registry, score every execution
// pattern and return a recommendation with confidence and ranked fallbacks
// (spec §4.3).
package strategy

import (
	"fmt"
	"strings"

	"github.com/taskforge/orchestrator/internal/analyzer"
	"github.com/taskforge/orchestrator/internal/taxonomy"
)

// criterion is one scored dimension of a pattern's suitability. Match
// yields Bonus; a hard-range mismatch yields Penalty (spec §4.3 "mismatch
// with a hard-range criterion is a penalty... match is a bonus").
type criterion struct {
	label    string
	hardFail bool
	matches  func(a analyzer.TaskAnalysis) bool
	bonus    float64
	penalty  float64
}

// criteriaByPattern implements the per-pattern criteria table in spec §4.3.
// Each entry is package-level data, not an interpreter, per spec §9's
// guidance to replace dynamic duck-typed analyzers with closed enums and
// pure functions.
var criteriaByPattern = map[taxonomy.Pattern][]criterion{
	taxonomy.Direct: {
		{
			label:    "complexity at most moderate",
			hardFail: true,
			matches:  func(a analyzer.TaskAnalysis) bool { return a.Complexity.Level() <= taxonomy.Moderate.Level() },
			bonus:    1.0, penalty: -0.3,
		},
		{
			label:   "3 steps or fewer",
			matches: func(a analyzer.TaskAnalysis) bool { return a.EstimatedSteps <= 3 },
			bonus:   0.5, penalty: -0.2,
		},
		{
			label:   "single capability",
			matches: func(a analyzer.TaskAnalysis) bool { return len(a.RequiredCapabilities) <= 1 },
			bonus:   0.5, penalty: -0.1,
		},
		{
			label:   "not parallelizable",
			matches: func(a analyzer.TaskAnalysis) bool { return !a.Parallelizable },
			bonus:   0.3, penalty: -0.1,
		},
	},
	taxonomy.Parallel: {
		{
			label:    "at least moderate complexity",
			hardFail: true,
			matches:  func(a analyzer.TaskAnalysis) bool { return a.Complexity.Level() >= taxonomy.Moderate.Level() },
			bonus:    0.7, penalty: -0.3,
		},
		{
			label:   "multiple capabilities",
			matches: func(a analyzer.TaskAnalysis) bool { return len(a.RequiredCapabilities) >= 2 },
			bonus:   0.7, penalty: -0.3,
		},
		{
			label:   "parallelizable",
			matches: func(a analyzer.TaskAnalysis) bool { return a.Parallelizable },
			bonus:   1.0, penalty: -0.4,
		},
	},
	taxonomy.Router: {
		{
			label:   "at least two distinct capability categories",
			matches: func(a analyzer.TaskAnalysis) bool { return len(a.RequiredCapabilities) >= 2 },
			bonus:   0.8, penalty: -0.2,
		},
		{
			label:   "not parallelizable",
			matches: func(a analyzer.TaskAnalysis) bool { return !a.Parallelizable },
			bonus:   0.3, penalty: -0.1,
		},
	},
	taxonomy.Swarm: {
		{
			label:    "advanced complexity or higher",
			hardFail: true,
			matches:  func(a analyzer.TaskAnalysis) bool { return a.Complexity.Level() >= taxonomy.Advanced.Level() },
			bonus:    0.9, penalty: -0.5,
		},
		{
			label:   "more than two capability categories",
			matches: func(a analyzer.TaskAnalysis) bool { return len(a.RequiredCapabilities) > 2 },
			bonus:   0.6, penalty: -0.2,
		},
	},
	taxonomy.Orchestrator: {
		{
			label:    "complex or higher",
			hardFail: true,
			matches:  func(a analyzer.TaskAnalysis) bool { return a.Complexity.Level() >= taxonomy.Complex.Level() },
			bonus:    0.8, penalty: -0.4,
		},
		{
			label:   "at least 5 steps",
			matches: func(a analyzer.TaskAnalysis) bool { return a.EstimatedSteps >= 5 },
			bonus:   0.8, penalty: -0.3,
		},
	},
	taxonomy.EvaluatorOptimizer: {
		{
			label:   "requires iteration",
			matches: func(a analyzer.TaskAnalysis) bool { return a.RequiresIteration },
			bonus:   1.0, penalty: -0.2,
		},
		{
			label:   "quality-critical language detected",
			matches: func(a analyzer.TaskAnalysis) bool { return hasQualityLanguage(a.Description) },
			bonus:   0.6, penalty: 0,
		},
	},
}

func hasQualityLanguage(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range taxonomy.QualityKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// reasoningFor composes the deterministic, human-readable explanation for a
// pattern's score (spec §4.3 "Reasoning").
func reasoningFor(pattern taxonomy.Pattern, a analyzer.TaskAnalysis, matched []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s task (%d steps)", a.Complexity, a.EstimatedSteps)
	if len(a.RequiredCapabilities) > 1 {
		b.WriteString("; multiple capabilities")
	}
	if a.RequiresIteration {
		b.WriteString("; iteration required")
	} else {
		b.WriteString("; no iteration required")
	}
	for _, m := range matched {
		fmt.Fprintf(&b, "; %s", m)
	}
	return b.String()
}
