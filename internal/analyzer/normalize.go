package analyzer

import (
	"strings"

	"github.com/taskforge/orchestrator/internal/taxonomy"
)

// Normalize reduces text to the canonical form used for every cache key in
// the analyzer and strategy selector (spec §4.1: "the only similarity
// heuristic; identical post-normalization text must produce identical
// analyses and cache hits").
//
// Steps: lowercase, collapse whitespace, strip trailing sentence
// punctuation, then strip function words — but only when doing so would
// still leave at least two tokens, so short imperative requests are not
// gutted to a single word.
func Normalize(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	fields := strings.Fields(lower)
	if len(fields) == 0 {
		return ""
	}
	last := fields[len(fields)-1]
	fields[len(fields)-1] = strings.TrimRight(last, ".!?,;:")

	stripped := make([]string, 0, len(fields))
	for _, f := range fields {
		if !isFunctionWord(f) {
			stripped = append(stripped, f)
		}
	}
	if len(stripped) >= 2 {
		return strings.Join(stripped, " ")
	}
	return strings.Join(fields, " ")
}

func isFunctionWord(w string) bool {
	return taxonomy.FunctionWords[w]
}
