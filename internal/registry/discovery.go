package registry

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/taskforge/orchestrator/internal/taxonomy"
	"github.com/taskforge/orchestrator/internal/telemetry"
)

// DiscoveryOptions configures a Discoverer.
type DiscoveryOptions struct {
	// Concurrency bounds the number of per-provider discovery operations in
	// flight at once (spec §5 "discovery operation semaphore, default 10").
	Concurrency int64
	// WellKnown is the static list of well-known providers consulted by the
	// registry discovery leg (spec §4.2 step 3).
	WellKnown []WellKnownProvider
	Logger    telemetry.Logger
}

// Discoverer populates a Registry in parallel from connected providers (via
// Session) and a static well-known list (spec §4.2).
type Discoverer struct {
	session   Session
	registry  *Registry
	sem       *semaphore.Weighted
	wellKnown []WellKnownProvider
	capCache  *CapabilityAnalysisCache
	logger    telemetry.Logger
}

// NewDiscoverer constructs a Discoverer bound to session and registry.
func NewDiscoverer(session Session, reg *Registry, opts DiscoveryOptions) *Discoverer {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NoopLogger{}
	}
	return &Discoverer{
		session:   session,
		registry:  reg,
		sem:       semaphore.NewWeighted(concurrency),
		wellKnown: opts.WellKnown,
		capCache:  NewCapabilityAnalysisCache(),
		logger:    logger,
	}
}

// Discover runs one full discovery round: the connected and registry legs
// run concurrently; the registry is updated as each leg completes rather
// than waiting on a combined barrier, but the reverse index rebuild at the
// end of Upsert always serializes correctly regardless of ordering (spec
// §4.2 steps 1-4).
func (d *Discoverer) Discover(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(2)

	var connectedErr error
	go func() {
		defer wg.Done()
		connectedErr = d.discoverConnected(ctx)
	}()
	go func() {
		defer wg.Done()
		d.discoverWellKnown()
	}()

	wg.Wait()
	return connectedErr
}

// discoverConnected implements spec §4.2 step 2: fetch connected names,
// then for each name acquire a semaphore slot and discover tools/resources
// in parallel. Individual failures are logged and counted; they do not
// abort the round.
func (d *Discoverer) discoverConnected(ctx context.Context) error {
	names, err := d.session.ListConnected(ctx)
	if err != nil {
		d.logger.Warn(ctx, "list connected providers failed", "error", err)
		return &DiscoveryError{Provider: "*", Cause: err}
	}

	var wg sync.WaitGroup
	for _, name := range names {
		name := name
		if err := d.sem.Acquire(ctx, 1); err != nil {
			// Context cancelled; stop launching new sub-tasks but let any
			// already in flight finish and release their own slots.
			break
		}
		wg.Add(1)
		go func() {
			defer d.sem.Release(1)
			defer wg.Done()
			d.discoverOne(ctx, name)
		}()
	}
	wg.Wait()
	return nil
}

func (d *Discoverer) discoverOne(ctx context.Context, name string) {
	start := time.Now()

	var tools, resources []string
	var toolsErr, resourcesErr error
	var inner sync.WaitGroup
	inner.Add(2)
	go func() {
		defer inner.Done()
		tools, toolsErr = d.session.ListTools(ctx, name)
	}()
	go func() {
		defer inner.Done()
		resources, resourcesErr = d.session.ListResources(ctx, name)
	}()
	inner.Wait()

	latency := time.Since(start)

	existing := d.registry.Get(name)
	profile := &Profile{Name: name, Status: taxonomy.StatusConnected, PriorityScore: 1.0}
	if existing != nil {
		profile = existing.Clone()
		profile.Status = taxonomy.StatusConnected
		profile.PriorityScore = 1.0
	}
	profile.LastDiscoveryLatency = latency

	if toolsErr != nil || resourcesErr != nil {
		profile.ErrorCount++
		if toolsErr != nil {
			profile.LastError = toolsErr.Error()
		} else {
			profile.LastError = resourcesErr.Error()
		}
		d.logger.Warn(ctx, "discover provider tools/resources failed",
			"provider", name, "tools_error", toolsErr, "resources_error", resourcesErr)
		d.registry.Upsert(profile)
		return
	}

	profile.Tools = tools
	profile.Resources = resources
	profile.Capabilities = d.capCache.Get(name, tools, resources)
	d.registry.Upsert(profile)
}

// discoverWellKnown implements spec §4.2 step 3: insert a profile for every
// well-known entry not already present, with status=available, priority 0.5.
func (d *Discoverer) discoverWellKnown() {
	for _, wk := range d.wellKnown {
		if d.registry.Get(wk.Name) != nil {
			continue
		}
		caps := map[taxonomy.Capability]struct{}{}
		for _, c := range wk.Capabilities {
			cc := taxonomy.Capability(c)
			if cc.Valid() {
				caps[cc] = struct{}{}
			}
		}
		d.registry.Upsert(&Profile{
			Name:          wk.Name,
			Description:   wk.Description,
			Capabilities:  caps,
			Status:        taxonomy.StatusAvailable,
			InstallCmd:    wk.InstallCmd,
			PriorityScore: 0.5,
			Tags:          wk.Tags,
		})
	}
}

// ValidateConnectivity runs connect + list_tools in parallel for each name,
// bounded by the same semaphore used for discovery (spec §4.2
// "Connectivity validation").
func (d *Discoverer) ValidateConnectivity(ctx context.Context, names []string) map[string]bool {
	results := make(map[string]bool, len(names))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, name := range names {
		name := name
		if err := d.sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			results[name] = false
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func() {
			defer d.sem.Release(1)
			defer wg.Done()
			ok := true
			if err := d.session.Connect(ctx, name); err != nil {
				ok = false
			}
			if ok {
				if _, err := d.session.ListTools(ctx, name); err != nil {
					ok = false
				}
			}
			mu.Lock()
			results[name] = ok
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

// BestForTask scores every profile against text and returns the top-k
// non-zero-scoring profiles (spec §4.2 "best_for_task").
func (d *Discoverer) BestForTask(text string, k int) []*Profile {
	return BestForTask(d.registry.All(), text, k)
}

// BestForTask is the package-level scoring function so both the Discoverer
// and the strategy selector (which needs the same ranking to pick required
// providers) can call it without needing a Discoverer instance.
func BestForTask(profiles []*Profile, text string, k int) []*Profile {
	lower := strings.ToLower(text)
	tokens := strings.Fields(lower)

	type scored struct {
		p     *Profile
		score float64
	}
	var candidates []scored
	for _, p := range profiles {
		score := overlapScore(tokens, strings.ToLower(p.Description))
		score += 0.5 * overlapScore(tokens, strings.ToLower(strings.Join(p.Tools, " ")))
		score += p.PriorityScore
		if p.Status == taxonomy.StatusConnected {
			score += 0.1
		}
		if p.LastDiscoveryLatency > 0 {
			score += 0.05 / (1 + p.LastDiscoveryLatency.Seconds())
		}
		if score > 0 {
			candidates = append(candidates, scored{p, score})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].p.Name < candidates[j].p.Name
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	out := make([]*Profile, k)
	for i := 0; i < k; i++ {
		out[i] = candidates[i].p
	}
	return out
}

func overlapScore(tokens []string, haystack string) float64 {
	if haystack == "" || len(tokens) == 0 {
		return 0
	}
	hits := 0
	for _, t := range tokens {
		if t != "" && strings.Contains(haystack, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(tokens))
}
