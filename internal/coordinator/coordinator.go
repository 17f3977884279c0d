// Package coordinator implements the meta-coordinator (C8): the end-to-end
// driver that runs the analyzer, ensures provider coverage, calls the
// strategy selector, checks out worker roles, dispatches to the selected
// pattern, and records metrics and history for every request (spec §4.6).
package coordinator

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/taskforge/orchestrator/internal/agentpool"
	"github.com/taskforge/orchestrator/internal/analyzer"
	"github.com/taskforge/orchestrator/internal/installer"
	"github.com/taskforge/orchestrator/internal/registry"
	"github.com/taskforge/orchestrator/internal/strategy"
	"github.com/taskforge/orchestrator/internal/taxonomy"
	"github.com/taskforge/orchestrator/internal/telemetry"
)

// LMFactory is the language-model invocation collaborator (spec §6
// "run(role, prompt) -> string"). The core never inspects its behavior.
type LMFactory interface {
	Run(ctx context.Context, role agentpool.Role, prompt string) (string, error)
}

// Dispatcher is the single injected function every pattern executor must
// satisfy (spec §4.6 "Dispatch contract"). The coordinator threads roles
// and the provider-exclusive lease through it but neither implements nor
// inspects pattern internals (spec §1 "Out of scope").
type Dispatcher func(ctx context.Context, pattern taxonomy.Pattern, roles []agentpool.Role, requestText string, lm LMFactory) (string, error)

// Prefs carries the optional per-request overrides named in spec §6
// ("optional map of {llm_provider, deadline_s, quality_floor}").
type Prefs struct {
	LLMProvider  string
	DeadlineS    int
	QualityFloor string
}

// Options configures a Coordinator. Every field except EnableInstaller has
// the spec §6 default when zero-valued; EnableInstaller is not read by the
// coordinator, which installs whenever it is given a non-nil installer.
type Options struct {
	RequestConcurrency int64
	RequestDeadline    time.Duration
	MemoryThresholdMiB int64
	CleanupInterval    time.Duration
	EnableInstaller    bool
	HistoryCapacity    int
	PoolSize           int
	Logger             telemetry.Logger
	MemorySampler      func() int64 // bytes; overridable for tests
}

// Coordinator is the C8 meta-coordinator. It owns the global request
// semaphore, metrics, bounded history, and cleanup cadence, and wires
// together every other component (spec §4.6).
type Coordinator struct {
	analyzer   *analyzer.Analyzer
	registry   *registry.Registry
	discoverer *registry.Discoverer
	selector   *strategy.Selector
	installer  *installer.Installer
	factory    *agentpool.Factory
	pool       *agentpool.Pool
	dispatcher Dispatcher
	lm         LMFactory
	logger     telemetry.Logger

	sem             *semaphore.Weighted
	requestDeadline time.Duration

	metrics *Metrics
	history *history

	memoryThreshold int64
	cleanupInterval time.Duration
	memorySampler   func() int64
	cleanupLimiter  *rate.Limiter
	refreshLimiter  *rate.Limiter

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopped  chan struct{}
}

// New constructs a Coordinator wiring every other component together.
// dispatcher and lm are supplied by the embedder; both may be nil only in
// tests that never reach the dispatch step.
func New(
	an *analyzer.Analyzer,
	reg *registry.Registry,
	disc *registry.Discoverer,
	sel *strategy.Selector,
	inst *installer.Installer,
	factory *agentpool.Factory,
	dispatcher Dispatcher,
	lm LMFactory,
	opts Options,
) *Coordinator {
	concurrency := opts.RequestConcurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	deadline := opts.RequestDeadline
	if deadline <= 0 {
		deadline = 300 * time.Second
	}
	memThreshold := opts.MemoryThresholdMiB
	if memThreshold <= 0 {
		memThreshold = 1024
	}
	cleanupInterval := opts.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = 60 * time.Second
	}
	poolSize := opts.PoolSize
	if poolSize <= 0 {
		poolSize = int(concurrency) * 2
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NoopLogger{}
	}
	sampler := opts.MemorySampler
	if sampler == nil {
		sampler = sampleHeapBytes
	}

	return &Coordinator{
		analyzer:        an,
		registry:        reg,
		discoverer:      disc,
		selector:        sel,
		installer:       inst,
		factory:         factory,
		pool:            agentpool.NewPool(poolSize),
		dispatcher:      dispatcher,
		lm:              lm,
		logger:          logger,
		sem:             semaphore.NewWeighted(concurrency),
		requestDeadline: deadline,
		metrics:         newMetrics(),
		history:         newHistory(opts.HistoryCapacity),
		memoryThreshold: memThreshold * 1024 * 1024,
		cleanupInterval: cleanupInterval,
		memorySampler:   sampler,
		cleanupLimiter:  rate.NewLimiter(rate.Every(cleanupInterval), 1),
		refreshLimiter:  rate.NewLimiter(rate.Every(5*time.Second), 1),
		stopped:         make(chan struct{}),
	}
}

// AnalyzeOnly runs C4 and C5 without touching the registry, installer, or
// pool (spec §6 "analyze_only(text) -> dry-run explanation").
func (c *Coordinator) AnalyzeOnly(text string) (analyzer.TaskAnalysis, strategy.Recommendation) {
	a := c.analyzer.Analyze(text)
	norm := analyzer.Normalize(text)
	rec := c.selector.Select(norm, a, c.registry, c.metrics.PatternSuccessRate)
	return a, rec
}

// CapabilitySummary is returned by Capabilities() (spec §6 "capabilities()
// -> summary").
type CapabilitySummary struct {
	ProviderCount           int
	ProviderNames           []string
	AvailableCapabilities   []taxonomy.Capability
	FailedInstallCandidates []string
}

// Capabilities reports the current registry coverage plus the
// process-lifetime permanent-failed install set (spec §8.1 supplemental
// feature 3).
func (c *Coordinator) Capabilities() CapabilitySummary {
	profiles := c.registry.All()
	names := make([]string, len(profiles))
	capSet := map[taxonomy.Capability]struct{}{}
	for i, p := range profiles {
		names[i] = p.Name
		for _, pc := range p.CapabilitySlice() {
			capSet[pc] = struct{}{}
		}
	}
	available := make([]taxonomy.Capability, 0, len(capSet))
	for _, category := range taxonomy.Capabilities {
		if _, ok := capSet[category]; ok {
			available = append(available, category)
		}
	}

	var failed []string
	if c.installer != nil {
		failed = c.installer.FailedInstallCandidates()
	}

	return CapabilitySummary{
		ProviderCount:           len(profiles),
		ProviderNames:           names,
		AvailableCapabilities:   available,
		FailedInstallCandidates: failed,
	}
}

// Metrics returns the current rolling metrics snapshot (spec §6
// "metrics() -> snapshot").
func (c *Coordinator) Metrics() Snapshot {
	return c.metrics.Snapshot(c.analyzer.Stats(), c.selector.Stats())
}

// Execute runs one request end to end (spec §4.6 "Per-request procedure").
// It never panics; every failure path returns an *ExecutionError and still
// appends a Record to history.
func (c *Coordinator) Execute(ctx context.Context, text string, prefs Prefs) (Record, error) {
	start := time.Now()
	record := Record{RequestText: text, StartTS: start, Status: taxonomy.StateInitializing}

	deadline := c.requestDeadline
	if prefs.DeadlineS > 0 {
		deadline = time.Duration(prefs.DeadlineS) * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	if err := c.sem.Acquire(reqCtx, 1); err != nil {
		return c.finishWithError(record, taxonomy.Pattern(""), start, classifyCtxErr(err), nil)
	}
	defer c.sem.Release(1)
	c.wg.Add(1)
	defer c.wg.Done()

	record.Status = taxonomy.StateAnalyzing
	analysis := c.analyzer.Analyze(text)
	record.Analysis = analysis
	normalized := analyzer.Normalize(text)

	requiredCaps := analysis.CapabilitySlice()
	if !c.coverageSatisfied(requiredCaps) {
		if c.installer != nil {
			outcomes, _ := c.installer.InstallForCapabilities(reqCtx, requiredCaps)
			anySucceeded := false
			for _, o := range outcomes {
				if o.Success {
					anySucceeded = true
				}
			}
			if anySucceeded && c.discoverer != nil {
				_ = c.discoverer.Discover(reqCtx)
			}
		}
		if !c.coverageSatisfied(requiredCaps) {
			return c.finishWithError(record, "", start, &ExecutionError{
				Kind: KindNoCapableProviders, Message: "no providers cover the required capabilities",
			}, nil)
		}
	}

	record.Status = taxonomy.StatePlanning
	rec := c.selector.Select(normalized, analysis, c.registry, c.metrics.PatternSuccessRate)
	record.Recommendation = rec

	pattern, confidence, ready := c.readyPattern(rec)
	if !ready {
		return c.finishWithError(record, rec.Pattern, start, &ExecutionError{
			Kind: KindNoCapableProviders, Message: "no fallback pattern has ready providers", Pattern: rec.Pattern,
		}, nil)
	}
	rec.Confidence = confidence
	record.Recommendation = rec
	record.ProvidersUsed = rec.RequiredProviders

	record.Status = taxonomy.StateExecuting
	roleConfigs := c.roleConfigsFor(pattern, analysis.RequiredCapabilities)
	roles := make([]*agentpool.Role, 0, len(roleConfigs))
	for _, cfg := range roleConfigs {
		roles = append(roles, c.pool.Checkout(cfg))
	}
	defer func() {
		for _, r := range roles {
			c.pool.Checkin(r)
		}
	}()

	roleNames := make([]string, len(roles))
	roleValues := make([]agentpool.Role, len(roles))
	for i, r := range roles {
		roleNames[i] = r.Name
		roleValues[i] = *r
	}
	record.RolesUsed = roleNames

	record.Status = taxonomy.StateCoordinating
	var result string
	var dispatchErr error
	if c.dispatcher != nil {
		result, dispatchErr = c.dispatcher(reqCtx, pattern, roleValues, text, c.lm)
	}

	elapsed := time.Since(start)
	success := dispatchErr == nil
	c.metrics.RecordRequest(pattern, success, elapsed, rec.RequiredProviders, requiredCaps)

	record.EndTS = time.Now()
	record.Result = result
	if dispatchErr != nil {
		record.Status = taxonomy.StateError
		record.Err = dispatchErr
		execErr := &ExecutionError{
			Kind: KindExecutorError, Message: dispatchErr.Error(),
			Pattern: pattern, ElapsedMS: elapsed.Milliseconds(), Cause: dispatchErr,
		}
		if reqCtx.Err() != nil {
			execErr.Kind = classifyCtxErr(reqCtx.Err()).Kind
		}
		c.history.Append(record)
		c.maybeCleanup()
		return record, execErr
	}

	record.Status = taxonomy.StateCompleted
	c.history.Append(record)
	c.maybeCleanup()
	return record, nil
}

// finishWithError appends a failed record to history and returns the
// structured error (spec §7 "a request that fails still records an
// ExecutionRecord in history").
func (c *Coordinator) finishWithError(record Record, pattern taxonomy.Pattern, start time.Time, execErr *ExecutionError, _ error) (Record, error) {
	record.Status = taxonomy.StateError
	record.EndTS = time.Now()
	execErr.ElapsedMS = time.Since(start).Milliseconds()
	if execErr.Pattern == "" {
		execErr.Pattern = pattern
	}
	record.Err = execErr
	c.metrics.RecordRequest(pattern, false, time.Since(start), nil, nil)
	c.history.Append(record)
	return record, execErr
}

func classifyCtxErr(err error) *ExecutionError {
	if err == context.DeadlineExceeded {
		return &ExecutionError{Kind: KindTimeout, Message: "request deadline exceeded"}
	}
	return &ExecutionError{Kind: KindCancelled, Message: "request cancelled"}
}

func (c *Coordinator) coverageSatisfied(caps []taxonomy.Capability) bool {
	if len(caps) == 0 {
		return true
	}
	for _, cp := range caps {
		if len(c.registry.ProvidersFor(cp)) == 0 {
			return false
		}
	}
	return true
}

// readyPattern implements spec §8.1 supplemental feature 5: try the
// primary pattern, then each fallback in rank order, degrading confidence
// by 0.1 per fallback rank actually dispatched. A pattern is "ready" when
// the resolved required_providers list is large enough to staff it:
// parallel/swarm/orchestrator need at least two distinct providers,
// router/evaluator-optimizer at least one, and direct needs none (a role
// may run on pure reasoning alone).
func (c *Coordinator) readyPattern(rec strategy.Recommendation) (taxonomy.Pattern, float64, bool) {
	candidates := append([]taxonomy.Pattern{rec.Pattern}, rec.FallbackPatterns...)
	for rank, p := range candidates {
		if patternStaffable(p, len(rec.RequiredProviders)) {
			return p, degradeConfidence(rec.Confidence, rank), true
		}
	}
	return "", 0, false
}

// patternStaffable reports whether providerCount is enough to run pattern
// at all (spec §4.6 dispatch descriptions: parallel/swarm/orchestrator
// fan out across multiple roles and need at least two providers,
// router/evaluator-optimizer run with a single provider, direct needs only
// the one role it mints regardless of provider count).
func patternStaffable(pattern taxonomy.Pattern, providerCount int) bool {
	switch pattern {
	case taxonomy.Direct:
		return true
	case taxonomy.Router, taxonomy.EvaluatorOptimizer:
		return providerCount >= 1
	default: // Parallel, Swarm, Orchestrator
		return providerCount >= 2
	}
}

// degradeConfidence lowers a recommendation's confidence by a fixed 0.1 per
// fallback rank when a fallback pattern is dispatched instead of the
// primary recommendation (spec §8.1 supplemental feature 5).
func degradeConfidence(confidence float64, rank int) float64 {
	degraded := confidence - 0.1*float64(rank)
	if degraded < 0 {
		return 0
	}
	return degraded
}

// roleConfigsFor decides how many roles a pattern needs and builds their
// configs (spec §4.6 step 6: "for each role specified by the pattern,
// check out a role from C7"). Direct dispatches a single role; every other
// pattern assembles a team grouped by capability category.
func (c *Coordinator) roleConfigsFor(pattern taxonomy.Pattern, required map[taxonomy.Capability]struct{}) []agentpool.Config {
	if pattern == taxonomy.Direct {
		return []agentpool.Config{c.factory.BuildForCapabilities(required)}
	}
	size := len(required)
	if size < 1 {
		size = 1
	}
	if size > 5 {
		size = 5
	}
	return c.factory.TeamFor(required, size)
}

// maybeCleanup runs on request completion: if memory exceeds the threshold
// or the cleanup interval has elapsed, it evicts pool slack. It does not
// clear the analysis or strategy caches and issues no GC hint. The rate
// limiter prevents many requests completing at once from all triggering a
// cleanup pass (SPEC_FULL.md's use of golang.org/x/time/rate).
func (c *Coordinator) maybeCleanup() {
	overMemory := c.memorySampler() > c.memoryThreshold
	if !overMemory && !c.cleanupLimiter.Allow() {
		return
	}
	active, inactive := c.pool.Len()
	target := active
	c.pool.EvictSlack(target)
	c.logger.Info(context.Background(), "resource cleanup ran", "pool_active", active, "pool_inactive_before", inactive)
}

// StartDiscoveryRefresh runs a periodic background discovery round until
// ctx is cancelled (spec §5 "sleep in the discovery refresh loop"). Calls
// beyond the rate limiter's allowance are simply skipped rather than
// queued, so a burst of external triggers cannot busy-loop discovery.
func (c *Coordinator) StartDiscoveryRefresh(ctx context.Context, interval time.Duration) {
	if c.discoverer == nil {
		return
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stopped:
				return
			case <-ticker.C:
				if c.refreshLimiter.Allow() {
					_ = c.discoverer.Discover(ctx)
				}
			}
		}
	}()
}

// Shutdown stops discovery refresh loops, waits up to 30s (or until ctx is
// done) for in-flight requests to finish, then drops the pool (spec §4.6
// "Shutdown"). Requests still running after the wait are not cancelled.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stopped) })

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	timeout := 30 * time.Second
	select {
	case <-done:
	case <-time.After(timeout):
	case <-ctx.Done():
	}
	c.pool.Cleanup()
	return nil
}

// History returns a snapshot of the bounded execution record history,
// oldest first.
func (c *Coordinator) History() []Record {
	return c.history.Snapshot()
}
