package installer

import (
	"sort"

	"github.com/taskforge/orchestrator/internal/taxonomy"
)

// Candidate is one installable provider description (spec §4.4 "static
// capability→candidate-provider map").
type Candidate struct {
	Name         string
	Capabilities []taxonomy.Capability
	Methods      []Method
}

// Method is one opaque external command family an installer may try for a
// candidate, tried in order until one succeeds (spec §4.4 "retry once with
// the next method").
type Method struct {
	Name    string
	Command string
	Args    []string
}

// Well-known install method families, matching the opaque command families
// named in spec §4.4. Argument lists are illustrative placeholders; real
// package coordinates are supplied by the embedder's catalog override.
func uvxMethod(pkg string) Method  { return Method{Name: "generic-uvx", Command: "uvx", Args: []string{pkg}} }
func npxMethod(pkg string) Method  { return Method{Name: "generic-npx", Command: "npx", Args: []string{"-y", pkg}} }
func pipMethod(pkg string) Method  { return Method{Name: "generic-pip", Command: "pip", Args: []string{"install", pkg}} }
func gitMethod(url string) Method {
	return Method{Name: "git-clone+install", Command: "git", Args: []string{"clone", url}}
}

// DefaultCandidates is the static capability→candidate catalog consulted
// when the embedder supplies none of its own (spec §4.4 step 1). It is
// deliberately small and illustrative; production deployments are expected
// to override it via Options.Candidates.
var DefaultCandidates = []Candidate{
	{
		Name:         "mcp-server-fetch",
		Capabilities: []taxonomy.Capability{taxonomy.Web},
		Methods:      []Method{uvxMethod("mcp-server-fetch"), pipMethod("mcp-server-fetch")},
	},
	{
		Name:         "mcp-server-websearch",
		Capabilities: []taxonomy.Capability{taxonomy.Search, taxonomy.Web},
		Methods:      []Method{npxMethod("@modelcontextprotocol/server-websearch"), uvxMethod("mcp-server-websearch")},
	},
	{
		Name:         "mcp-server-filesystem",
		Capabilities: []taxonomy.Capability{taxonomy.File},
		Methods:      []Method{npxMethod("@modelcontextprotocol/server-filesystem")},
	},
	{
		Name:         "mcp-server-sqlite",
		Capabilities: []taxonomy.Capability{taxonomy.Database},
		Methods:      []Method{uvxMethod("mcp-server-sqlite")},
	},
	{
		Name:         "mcp-server-git",
		Capabilities: []taxonomy.Capability{taxonomy.Development, taxonomy.System},
		Methods:      []Method{gitMethod("https://github.com/modelcontextprotocol/servers"), pipMethod("mcp-server-git")},
	},
}

// RegistryQuery optionally supplements the static catalog with candidates
// from a remote registry (spec §4.4 step 2), the same interface shape as
// C3's well-known-provider leg.
type RegistryQuery func(capabilities []taxonomy.Capability) []Candidate

// rankCandidates implements spec §4.4 steps 1, 3, 4: filter by capability
// overlap, exclude permanently-failed names, then sort by count of required
// capabilities covered (desc), name asc as a stable tiebreak.
func rankCandidates(catalog []Candidate, required []taxonomy.Capability, failed map[string]struct{}) []Candidate {
	want := map[taxonomy.Capability]struct{}{}
	for _, c := range required {
		want[c] = struct{}{}
	}

	type scored struct {
		c     Candidate
		score int
	}
	var matched []scored
	seen := map[string]struct{}{}
	for _, cand := range catalog {
		if _, dup := seen[cand.Name]; dup {
			continue
		}
		if _, isFailed := failed[cand.Name]; isFailed {
			continue
		}
		score := 0
		for _, c := range cand.Capabilities {
			if _, ok := want[c]; ok {
				score++
			}
		}
		if score == 0 {
			continue
		}
		seen[cand.Name] = struct{}{}
		matched = append(matched, scored{cand, score})
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].score != matched[j].score {
			return matched[i].score > matched[j].score
		}
		return matched[i].c.Name < matched[j].c.Name
	})

	out := make([]Candidate, len(matched))
	for i, m := range matched {
		out[i] = m.c
	}
	return out
}
