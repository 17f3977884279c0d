package agentpool

import (
	"fmt"
	"strings"

	"github.com/taskforge/orchestrator/internal/registry"
	"github.com/taskforge/orchestrator/internal/taxonomy"
)

// Config identifies the desired shape of a role, independent of whether it
// is freshly minted or reused from the pool (spec §4.5, §3 WorkerRole).
type Config struct {
	Name        string
	Instruction string
	Providers   []string
}

// Factory selects a template for a required-capability set and composes a
// concrete Config from it (spec §4.5 "Templates").
type Factory struct {
	reg *registry.Registry
}

// New constructs a Factory bound to the registry used to resolve providers
// that cover capabilities a chosen template doesn't already list.
func New(reg *registry.Registry) *Factory {
	return &Factory{reg: reg}
}

// BuildForCapabilities scores every template against required, picks the
// best match (or falls back to "versatile" below the 0.3 threshold),
// extends its provider list to cover any required capability the template
// doesn't already name, and composes a deterministic instruction (spec
// §4.5 steps a-d).
func (f *Factory) BuildForCapabilities(required map[taxonomy.Capability]struct{}) Config {
	best, score := bestTemplate(required)
	if score < 0.3 {
		best, _ = templateByName(genericTemplateName)
	}

	providers := f.extendProviders(best.Providers, required)
	instruction := composeInstruction(best, required)

	return Config{Name: best.Name, Instruction: instruction, Providers: providers}
}

// TeamFor groups required capabilities by taxonomy category and mints one
// role per group, up to size roles total (spec §4.5 "Team assembly"; spec
// §8.1 supplemental feature 4, grounded on the source's team_for grouping
// order — stable iteration over the closed enum, never map order).
func (f *Factory) TeamFor(required map[taxonomy.Capability]struct{}, size int) []Config {
	categories := sortedCapabilityCategories(required)
	if size > 0 && len(categories) > size {
		categories = categories[:size]
	}

	configs := make([]Config, 0, len(categories))
	for _, c := range categories {
		single := map[taxonomy.Capability]struct{}{c: {}}
		configs = append(configs, f.BuildForCapabilities(single))
	}
	return configs
}

// bestTemplate implements spec §4.5 step a: 0.7×Jaccard + 0.3×exact-coverage,
// argmax over the static catalog.
func bestTemplate(required map[taxonomy.Capability]struct{}) (Template, float64) {
	best := templates[0]
	bestScore := -1.0
	for _, t := range templates {
		if t.Name == genericTemplateName {
			continue
		}
		score := 0.7*jaccard(t.Capabilities, required) + 0.3*exactCoverage(t.Capabilities, required)
		if score > bestScore {
			bestScore = score
			best = t
		}
	}
	return best, bestScore
}

func jaccard(a, b map[taxonomy.Capability]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for c := range a {
		if _, ok := b[c]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// exactCoverage is the fraction of required capabilities the template
// already lists.
func exactCoverage(templateCaps, required map[taxonomy.Capability]struct{}) float64 {
	if len(required) == 0 {
		return 0
	}
	covered := 0
	for c := range required {
		if _, ok := templateCaps[c]; ok {
			covered++
		}
	}
	return float64(covered) / float64(len(required))
}

// extendProviders appends providers (resolved from the registry, if bound)
// for any required capability the template's own provider list doesn't
// already cover (spec §4.5 step c).
func (f *Factory) extendProviders(base []string, required map[taxonomy.Capability]struct{}) []string {
	providers := append([]string(nil), base...)
	if f.reg == nil {
		return providers
	}
	seen := map[string]struct{}{}
	for _, p := range providers {
		seen[p] = struct{}{}
	}
	for _, c := range taxonomy.Capabilities {
		if _, need := required[c]; !need {
			continue
		}
		for _, p := range f.reg.ProvidersFor(c) {
			if _, ok := seen[p.Name]; ok {
				continue
			}
			seen[p.Name] = struct{}{}
			providers = append(providers, p.Name)
			break
		}
	}
	return providers
}

// composeInstruction appends capability descriptions and personality-trait
// phrases to the template's base instruction deterministically (spec §4.5
// step d).
func composeInstruction(t Template, required map[taxonomy.Capability]struct{}) string {
	var b strings.Builder
	b.WriteString(t.Instruction)

	capNames := make([]string, 0, len(required))
	for _, c := range taxonomy.Capabilities {
		if _, ok := required[c]; ok {
			capNames = append(capNames, string(c))
		}
	}
	if len(capNames) > 0 {
		fmt.Fprintf(&b, " Required capabilities: %s.", strings.Join(capNames, ", "))
	}
	if len(t.Traits) > 0 {
		fmt.Fprintf(&b, " Work in a %s manner.", strings.Join(t.Traits, ", "))
	}
	return b.String()
}
