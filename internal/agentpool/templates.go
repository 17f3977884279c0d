// Package agentpool implements the agent factory and resource pool (C7):
// minting WorkerRoles from a static template catalog and reusing them under
// a bounded pool (spec §4.5).
package agentpool

import (
	"github.com/taskforge/orchestrator/internal/taxonomy"
)

// Template is one entry in the static role-template catalog (spec §4.5
// "Templates"). The catalog itself is package-level data, not loaded from a
// file, matching the teacher's static-hints style.
type Template struct {
	Name         string
	Instruction  string
	Capabilities map[taxonomy.Capability]struct{}
	Providers    []string
	Traits       []string
}

func caps(c ...taxonomy.Capability) map[taxonomy.Capability]struct{} {
	m := make(map[taxonomy.Capability]struct{}, len(c))
	for _, v := range c {
		m[v] = struct{}{}
	}
	return m
}

// templates is the static role catalog named in spec §4.5: researcher,
// analyst, creator, developer, automator, web-specialist, reasoner,
// coordinator, communicator, plus a generic fallback.
var templates = []Template{
	{
		Name:         "researcher",
		Instruction:  "Find and synthesize information from available sources.",
		Capabilities: caps(taxonomy.Search, taxonomy.Web, taxonomy.Reasoning),
		Traits:       []string{"thorough", "source-critical"},
	},
	{
		Name:         "analyst",
		Instruction:  "Analyze data and surface quantitative findings.",
		Capabilities: caps(taxonomy.DataProcessing, taxonomy.Analysis, taxonomy.Reasoning),
		Traits:       []string{"precise", "skeptical of unsupported claims"},
	},
	{
		Name:         "creator",
		Instruction:  "Produce polished written or visual content.",
		Capabilities: caps(taxonomy.Cognitive, taxonomy.Graphics),
		Traits:       []string{"clear", "audience-aware"},
	},
	{
		Name:         "developer",
		Instruction:  "Write, modify, and validate code changes.",
		Capabilities: caps(taxonomy.Development, taxonomy.File, taxonomy.System),
		Traits:       []string{"methodical", "test-driven"},
	},
	{
		Name:         "automator",
		Instruction:  "Drive multi-step automated workflows to completion.",
		Capabilities: caps(taxonomy.Automation, taxonomy.System),
		Traits:       []string{"persistent", "checks for side effects"},
	},
	{
		Name:         "web-specialist",
		Instruction:  "Navigate and extract information from web resources.",
		Capabilities: caps(taxonomy.Web, taxonomy.Automation),
		Traits:       []string{"deliberate", "resilient to flaky pages"},
	},
	{
		Name:         "reasoner",
		Instruction:  "Work through multi-step reasoning and decision problems.",
		Capabilities: caps(taxonomy.Reasoning, taxonomy.Cognitive),
		Traits:       []string{"rigorous", "states assumptions explicitly"},
	},
	{
		Name:         "coordinator",
		Instruction:  "Plan and sequence work across other specialized roles.",
		Capabilities: caps(taxonomy.Reasoning, taxonomy.Communication),
		Traits:       []string{"organized", "delegates clearly"},
	},
	{
		Name:         "communicator",
		Instruction:  "Draft and send messages through communication channels.",
		Capabilities: caps(taxonomy.Communication),
		Traits:       []string{"concise", "tone-aware"},
	},
	{
		Name:         "versatile",
		Instruction:  "Handle a general-purpose task using whatever providers are bound.",
		Capabilities: caps(),
		Traits:       []string{"adaptable"},
	},
}

// genericTemplateName is the fallback used when no template scores above
// the selection threshold (spec §4.5 "falling back to a generic 'versatile'
// template below 0.3").
const genericTemplateName = "versatile"

func templateByName(name string) (Template, bool) {
	for _, t := range templates {
		if t.Name == name {
			return t, true
		}
	}
	return Template{}, false
}

// sortedCapabilityCategories groups the given capability set by taxonomy's
// closed enum order, used by TeamFor (spec §8.1 supplemental feature 4:
// "stable iteration over internal/taxonomy's closed enum order, not map
// order").
func sortedCapabilityCategories(set map[taxonomy.Capability]struct{}) []taxonomy.Capability {
	out := make([]taxonomy.Capability, 0, len(set))
	for _, c := range taxonomy.Capabilities {
		if _, ok := set[c]; ok {
			out = append(out, c)
		}
	}
	return out
}
