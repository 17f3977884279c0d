package registry

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/taskforge/orchestrator/internal/taxonomy"
)

// Registry is the in-memory provider index (C2). Writes are serialized by
// mu; the reverse index is rebuilt under the lock and then published via an
// atomic pointer swap so readers never block on a rebuild in progress
// (spec §5 "the capability reverse index is rebuilt atomically with respect
// to readers (publish-then-swap)").
type Registry struct {
	mu        sync.RWMutex
	profiles  map[string]*Profile
	reverse   atomic.Pointer[map[taxonomy.Capability][]string]

	// failedInstalls holds provider names recorded by MarkInstallFailed. The
	// coordinator's capabilities() reports the installer's own failed set,
	// not this one.
	failedInstalls map[string]struct{}
}

// New constructs an empty Registry.
func New() *Registry {
	r := &Registry{
		profiles:       map[string]*Profile{},
		failedInstalls: map[string]struct{}{},
	}
	empty := map[taxonomy.Capability][]string{}
	r.reverse.Store(&empty)
	return r
}

// Upsert inserts or replaces a provider profile and rebuilds the reverse
// index. Safe for concurrent use; at most one Upsert/Clear mutates the
// registry at a time (spec §5 "writes... are serialized").
func (r *Registry) Upsert(p *Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.Name] = p
	r.rebuildIndexLocked()
}

// Get returns the named profile, or nil if unknown.
func (r *Registry) Get(name string) *Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.profiles[name]; ok {
		return p
	}
	return nil
}

// All returns every profile currently registered, in name order.
func (r *Registry) All() []*Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Clear removes every profile and the permanent-failed install set.
// Destroys the registry's state; per spec §3 this is the only way profiles
// are destroyed.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles = map[string]*Profile{}
	r.failedInstalls = map[string]struct{}{}
	r.rebuildIndexLocked()
}

// MarkInstallFailed records a provider name in the registry's
// permanent-failed set (spec §4.4).
func (r *Registry) MarkInstallFailed(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failedInstalls[name] = struct{}{}
}

// FailedInstallCandidates returns the permanent-failed provider names, in
// name order (spec §8.1 supplemental feature 3).
func (r *Registry) FailedInstallCandidates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.failedInstalls))
	for name := range r.failedInstalls {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ProvidersFor returns profiles advertising capability c, via the reverse
// index (spec §4.2 "direct reverse-index lookup"). Lock-free: reads the
// atomically published index snapshot.
func (r *Registry) ProvidersFor(c taxonomy.Capability) []*Profile {
	idx := *r.reverse.Load()
	names := idx[c]
	if len(names) == 0 {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Profile, 0, len(names))
	for _, n := range names {
		if p, ok := r.profiles[n]; ok {
			out = append(out, p)
		}
	}
	return out
}

// rebuildIndexLocked must be called with mu held for writing.
func (r *Registry) rebuildIndexLocked() {
	idx := make(map[taxonomy.Capability][]string)
	for name, p := range r.profiles {
		for c := range p.Capabilities {
			idx[c] = append(idx[c], name)
		}
	}
	for c := range idx {
		sort.Strings(idx[c])
	}
	r.reverse.Store(&idx)
}

// Signature returns a short, stable hash of the given provider names' sorted
// names plus capability sets, used as the provider-set half of the strategy
// selector's cache key (spec §4.3, SPEC_FULL.md glossary "Signature").
func (r *Registry) Signature(names []string) string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	h := fnv.New64a()
	for _, n := range sorted {
		p := r.Get(n)
		h.Write([]byte(n))
		h.Write([]byte{0})
		if p != nil {
			caps := p.CapabilitySlice()
			parts := make([]string, len(caps))
			for i, c := range caps {
				parts[i] = string(c)
			}
			h.Write([]byte(strings.Join(parts, ",")))
		}
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum64())
}

// AllNamesSignature returns the signature over every currently registered
// provider, used when a caller wants a whole-registry cache key.
func (r *Registry) AllNamesSignature() string {
	r.mu.RLock()
	names := make([]string, 0, len(r.profiles))
	for n := range r.profiles {
		names = append(names, n)
	}
	r.mu.RUnlock()
	return r.Signature(names)
}
