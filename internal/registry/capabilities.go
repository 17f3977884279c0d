package registry

import (
	"hash/fnv"
	"sort"
	"strings"

	"github.com/taskforge/orchestrator/internal/taxonomy"
)

// toolKeywords maps capability categories to substrings matched against a
// provider's tool/resource names, mirroring the task-analyzer's keyword
// tables but applied to advertised tool identifiers rather than request
// text (spec §4.2 "compute capabilities via the tool-name→capability
// substring table").
var toolKeywords = map[taxonomy.Capability][]string{
	taxonomy.File:           {"file", "read_file", "write_file", "fs_", "directory"},
	taxonomy.Web:            {"web", "http", "browser", "fetch_url", "page"},
	taxonomy.Search:         {"search", "query", "lookup"},
	taxonomy.Database:       {"sql", "db_", "database", "query_table"},
	taxonomy.Automation:     {"automate", "trigger", "workflow", "schedule"},
	taxonomy.Development:    {"git", "repo", "compile", "build", "code_"},
	taxonomy.Communication:  {"email", "slack", "message", "notify", "send_"},
	taxonomy.Analysis:       {"analyze", "summarize", "report"},
	taxonomy.Reasoning:      {"reason", "plan", "solve"},
	taxonomy.Cognitive:      {"classify", "infer", "interpret"},
	taxonomy.System:         {"shell", "process", "system", "exec"},
	taxonomy.Graphics:       {"chart", "plot", "diagram", "image"},
	taxonomy.DataProcessing: {"transform", "parse", "etl", "pipeline"},
}

// CapabilitiesFor derives a capability set from advertised tool and
// resource names, matching each against the substring table above.
func CapabilitiesFor(tools, resources []string) map[taxonomy.Capability]struct{} {
	caps := map[taxonomy.Capability]struct{}{}
	names := append(append([]string{}, tools...), resources...)
	for _, name := range names {
		lower := strings.ToLower(name)
		for category, keywords := range toolKeywords {
			for _, kw := range keywords {
				if strings.Contains(lower, kw) {
					caps[category] = struct{}{}
					break
				}
			}
		}
	}
	return caps
}

// toolsetHash returns a stable hash of the sorted union of tool and
// resource names, used as half of the CapabilityAnalysisCache key (spec
// §4.2 "keyed by (provider_name, hash(sorted(tool_names ⊕ resource_names)))").
func toolsetHash(tools, resources []string) string {
	combined := append(append([]string{}, tools...), resources...)
	sort.Strings(combined)
	h := fnv.New64a()
	h.Write([]byte(strings.Join(combined, "\x00")))
	return toolsetHashHex(h.Sum64())
}

func toolsetHashHex(v uint64) string {
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = hexDigits[v&0xf]
		v >>= 4
	}
	return string(buf)
}

// CapabilityAnalysisCache avoids rescoring a provider's capabilities when
// its advertised tools/resources have not changed since the last round
// (spec §4.2 "Capability analysis cache").
type CapabilityAnalysisCache struct {
	entries map[string]string // provider name -> last toolset hash
	results map[string]map[taxonomy.Capability]struct{}
}

// NewCapabilityAnalysisCache constructs an empty cache.
func NewCapabilityAnalysisCache() *CapabilityAnalysisCache {
	return &CapabilityAnalysisCache{
		entries: map[string]string{},
		results: map[string]map[taxonomy.Capability]struct{}{},
	}
}

// Get returns the cached capability set for name if its tools/resources
// hash unchanged, recomputing and caching otherwise.
func (c *CapabilityAnalysisCache) Get(name string, tools, resources []string) map[taxonomy.Capability]struct{} {
	h := toolsetHash(tools, resources)
	if prev, ok := c.entries[name]; ok && prev == h {
		return c.results[name]
	}
	result := CapabilitiesFor(tools, resources)
	c.entries[name] = h
	c.results[name] = result
	return result
}
