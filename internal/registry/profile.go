// Package registry implements the provider registry (C2) and discovery
// engine (C3): an in-memory index of capability providers plus the parallel
// discovery/refresh logic that populates it (spec §4.2).
package registry

import (
	"sync"
	"time"

	"github.com/taskforge/orchestrator/internal/taxonomy"
)

// Performance tracks a provider's rolling call statistics. SuccessRate and
// Latency are maintained as exponential moving averages so recent behavior
// dominates without requiring an unbounded sample history (spec §8.1
// supplemental feature 2, grounded on the source's latency-decay discovery
// variant).
type Performance struct {
	CallCount   int64
	SuccessRate float64 // EMA in [0,1]
	EMALatency  time.Duration
}

// defaultEMAAlpha is the smoothing factor for Performance updates.
const defaultEMAAlpha = 0.2

// Record folds a single call outcome into the rolling statistics.
func (p *Performance) Record(success bool, latency time.Duration, alpha float64) {
	if alpha <= 0 {
		alpha = defaultEMAAlpha
	}
	p.CallCount++
	outcome := 0.0
	if success {
		outcome = 1.0
	}
	if p.CallCount == 1 {
		p.SuccessRate = outcome
		p.EMALatency = latency
		return
	}
	p.SuccessRate = alpha*outcome + (1-alpha)*p.SuccessRate
	p.EMALatency = time.Duration(alpha*float64(latency) + (1-alpha)*float64(p.EMALatency))
}

// Profile is a provider's entry in the registry (spec §3 ProviderProfile).
// Profiles are created on first sighting by the discoverer or installer and
// mutated only by those writers under the registry's exclusive lock; no
// back-pointer to the registry or coordinator is held (spec §9: "no
// back-pointers from profiles to the coordinator").
type Profile struct {
	Name         string
	Description  string
	Capabilities map[taxonomy.Capability]struct{}
	Tools        []string
	Resources    []string
	Status       taxonomy.ProviderStatus
	InstallCmd   string
	PriorityScore float64
	Performance  Performance
	LastDiscoveryLatency time.Duration

	// Tags are a supplemental discovery signal carried from
	// original_source/ (spec §3 "ProviderProfile.Tags"); never required for
	// correctness. Best-for-task scoring does not read them.
	Tags []string

	// ErrorCount/LastError surface discovery/install failures without
	// aborting the owning round (spec §3 supplemental fields).
	ErrorCount int
	LastError  string

	mu sync.Mutex
}

// HasCapability reports whether c is in the profile's capability set.
func (p *Profile) HasCapability(c taxonomy.Capability) bool {
	_, ok := p.Capabilities[c]
	return ok
}

// CapabilitySlice returns the profile's capabilities in canonical order.
func (p *Profile) CapabilitySlice() []taxonomy.Capability {
	out := make([]taxonomy.Capability, 0, len(p.Capabilities))
	for _, c := range taxonomy.Capabilities {
		if _, ok := p.Capabilities[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// RecordCall updates the profile's rolling performance stats. Safe for
// concurrent use independent of the owning registry's lock, since a
// profile's own performance counters are updated far more often than its
// identity fields.
func (p *Profile) RecordCall(success bool, latency time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Performance.Record(success, latency, defaultEMAAlpha)
}

// Clone returns a deep-enough copy of p suitable for returning to callers
// without risking mutation of the registry's internal state.
func (p *Profile) Clone() *Profile {
	p.mu.Lock()
	defer p.mu.Unlock()
	caps := make(map[taxonomy.Capability]struct{}, len(p.Capabilities))
	for c := range p.Capabilities {
		caps[c] = struct{}{}
	}
	return &Profile{
		Name:                 p.Name,
		Description:          p.Description,
		Capabilities:         caps,
		Tools:                append([]string(nil), p.Tools...),
		Resources:            append([]string(nil), p.Resources...),
		Status:               p.Status,
		InstallCmd:           p.InstallCmd,
		PriorityScore:        p.PriorityScore,
		Performance:          p.Performance,
		LastDiscoveryLatency: p.LastDiscoveryLatency,
		Tags:                 append([]string(nil), p.Tags...),
		ErrorCount:           p.ErrorCount,
		LastError:            p.LastError,
	}
}
