// Package orchestrator is the public embeddable API for the autonomous
// task orchestrator (spec §6). An embedder constructs an Orchestrator with
// New, supplying its own Session (transport to connected providers),
// Launcher (subprocess installer), Dispatcher (pattern executor), and
// LMFactory (language-model invocation), then drives requests through
// Execute/AnalyzeOnly/Capabilities/Metrics/Shutdown.
package orchestrator

import (
	"context"
	"time"

	"github.com/taskforge/orchestrator/internal/agentpool"
	"github.com/taskforge/orchestrator/internal/analyzer"
	"github.com/taskforge/orchestrator/internal/coordinator"
	"github.com/taskforge/orchestrator/internal/installer"
	"github.com/taskforge/orchestrator/internal/registry"
	"github.com/taskforge/orchestrator/internal/strategy"
	"github.com/taskforge/orchestrator/internal/telemetry"
)

// Re-exported types so embedders only need to import this package for the
// common path.
type (
	TaskAnalysis      = analyzer.TaskAnalysis
	Recommendation    = strategy.Recommendation
	Record            = coordinator.Record
	Snapshot          = coordinator.Snapshot
	CapabilitySummary = coordinator.CapabilitySummary
	Prefs             = coordinator.Prefs
	Dispatcher        = coordinator.Dispatcher
	LMFactory         = coordinator.LMFactory
	Session           = registry.Session
	Launcher          = installer.Launcher
	WellKnownProvider = registry.WellKnownProvider
)

// Config carries every spec §6 configuration option. Zero-valued fields take
// the defaults named in the spec.
type Config struct {
	requestConcurrency       int64
	discoveryConcurrency     int64
	installConcurrency       int64
	poolSize                 int
	requestDeadlineS         int
	memoryCleanupThresholdMB int64
	cleanupIntervalS         int
	analysisCacheSize        int
	strategyCacheSize        int
	enableInstaller          bool
	qualityFloor             string
	installTimeout           time.Duration
	installVerifyTimeout     time.Duration
	wellKnown                []WellKnownProvider
	logger                   telemetry.Logger
}

// Option configures a Config (functional-options pattern, matching the
// teacher's *Option idiom).
type Option func(*Config)

// WithRequestConcurrency sets the global request semaphore size (default 5).
func WithRequestConcurrency(n int64) Option {
	return func(c *Config) { c.requestConcurrency = n }
}

// WithDiscoveryConcurrency sets the discovery semaphore size (default 10).
func WithDiscoveryConcurrency(n int64) Option {
	return func(c *Config) { c.discoveryConcurrency = n }
}

// WithInstallConcurrency sets the installer semaphore size (default 3).
func WithInstallConcurrency(n int64) Option {
	return func(c *Config) { c.installConcurrency = n }
}

// WithPoolSize sets the worker-role pool's max inactive size (default
// 2 x request concurrency).
func WithPoolSize(n int) Option {
	return func(c *Config) { c.poolSize = n }
}

// WithRequestDeadline sets the per-request deadline in seconds (default 300).
func WithRequestDeadline(seconds int) Option {
	return func(c *Config) { c.requestDeadlineS = seconds }
}

// WithMemoryCleanupThresholdMiB sets the heap threshold past which cleanup
// triggers on every request completion (default 1024).
func WithMemoryCleanupThresholdMiB(mib int64) Option {
	return func(c *Config) { c.memoryCleanupThresholdMB = mib }
}

// WithCleanupInterval sets the minimum spacing between rate-limited cleanup
// passes in seconds (default 60).
func WithCleanupInterval(seconds int) Option {
	return func(c *Config) { c.cleanupIntervalS = seconds }
}

// WithAnalysisCacheSize sets C4's analysis cache capacity (default 128).
func WithAnalysisCacheSize(n int) Option {
	return func(c *Config) { c.analysisCacheSize = n }
}

// WithStrategyCacheSize sets C5's recommendation cache capacity (default 64).
func WithStrategyCacheSize(n int) Option {
	return func(c *Config) { c.strategyCacheSize = n }
}

// WithInstaller enables or disables C6 (default true).
func WithInstaller(enabled bool) Option {
	return func(c *Config) { c.enableInstaller = enabled }
}

// WithQualityFloor sets the default quality floor applied when a request
// does not override it (default "good").
func WithQualityFloor(floor string) Option {
	return func(c *Config) { c.qualityFloor = floor }
}

// WithInstallTimeout bounds a single install subprocess (default 5m).
func WithInstallTimeout(d time.Duration) Option {
	return func(c *Config) { c.installTimeout = d }
}

// WithInstallVerifyTimeout bounds the post-install verification call
// (default 10s).
func WithInstallVerifyTimeout(d time.Duration) Option {
	return func(c *Config) { c.installVerifyTimeout = d }
}

// WithWellKnownProviders seeds the discovery engine's static candidate list
// (spec §4.2 step 3).
func WithWellKnownProviders(providers ...WellKnownProvider) Option {
	return func(c *Config) { c.wellKnown = providers }
}

// WithLogger overrides the default no-op logger with one backed by the
// embedder's own logging stack (spec §1.1, typically a ClueLogger).
func WithLogger(logger telemetry.Logger) Option {
	return func(c *Config) { c.logger = logger }
}

func defaultConfig() Config {
	return Config{
		requestConcurrency:       5,
		discoveryConcurrency:     10,
		installConcurrency:       3,
		requestDeadlineS:         300,
		memoryCleanupThresholdMB: 1024,
		cleanupIntervalS:         60,
		analysisCacheSize:        128,
		strategyCacheSize:        64,
		enableInstaller:          true,
		qualityFloor:             "good",
		installTimeout:           5 * time.Minute,
		installVerifyTimeout:     10 * time.Second,
	}
}

// Orchestrator is the top-level embeddable handle wiring together every
// component (C1-C8) behind the operations named in spec §6.
type Orchestrator struct {
	coord *coordinator.Coordinator
	disc  *registry.Discoverer
}

// New constructs an Orchestrator. session drives provider discovery,
// launcher runs install subprocesses (ignored if the installer is
// disabled), dispatcher executes the chosen pattern, and lm invokes the
// language model a role was assigned. All four are embedder-supplied
// collaborators the core never implements (spec §1 "Out of scope").
func New(session Session, launcher Launcher, dispatcher Dispatcher, lm LMFactory, opts ...Option) *Orchestrator {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = telemetry.NoopLogger{}
	}

	reg := registry.New()
	disc := registry.NewDiscoverer(session, reg, registry.DiscoveryOptions{
		Concurrency: cfg.discoveryConcurrency,
		WellKnown:   cfg.wellKnown,
		Logger:      logger,
	})

	an := analyzer.New(cfg.analysisCacheSize)
	sel := strategy.New(cfg.strategyCacheSize)
	factory := agentpool.New(reg)

	var inst *installer.Installer
	if cfg.enableInstaller && launcher != nil {
		inst = installer.New(launcher, reg, session, installer.Options{
			Concurrency:   cfg.installConcurrency,
			Timeout:       cfg.installTimeout,
			VerifyTimeout: cfg.installVerifyTimeout,
			Candidates:    installer.DefaultCandidates,
			Logger:        logger,
		})
	}

	poolSize := cfg.poolSize
	if poolSize <= 0 {
		poolSize = int(cfg.requestConcurrency) * 2
	}

	coord := coordinator.New(an, reg, disc, sel, inst, factory, dispatcher, lm, coordinator.Options{
		RequestConcurrency: cfg.requestConcurrency,
		RequestDeadline:    time.Duration(cfg.requestDeadlineS) * time.Second,
		MemoryThresholdMiB: cfg.memoryCleanupThresholdMB,
		CleanupInterval:    time.Duration(cfg.cleanupIntervalS) * time.Second,
		EnableInstaller:    cfg.enableInstaller,
		PoolSize:           poolSize,
		Logger:             logger,
	})

	return &Orchestrator{coord: coord, disc: disc}
}

// Discover runs one blocking discovery round immediately, populating the
// registry before the first request arrives (spec §4.2). Embedders
// typically call this once at startup, then StartBackgroundDiscovery for
// ongoing refresh.
func (o *Orchestrator) Discover(ctx context.Context) error {
	return o.disc.Discover(ctx)
}

// StartBackgroundDiscovery runs periodic discovery rounds until ctx is
// cancelled or Shutdown is called (spec §5 "discovery refresh loop").
func (o *Orchestrator) StartBackgroundDiscovery(ctx context.Context, interval time.Duration) {
	o.coord.StartDiscoveryRefresh(ctx, interval)
}

// Execute runs one request end to end: analyze, ensure coverage, select a
// strategy, staff roles, dispatch, and record history (spec §6
// "execute(text, prefs?) -> ExecutionRecord").
func (o *Orchestrator) Execute(ctx context.Context, text string, prefs Prefs) (Record, error) {
	return o.coord.Execute(ctx, text, prefs)
}

// AnalyzeOnly runs the analyzer and strategy selector without touching the
// registry, installer, or pool (spec §6 "analyze_only(text) -> dry-run
// explanation").
func (o *Orchestrator) AnalyzeOnly(text string) (TaskAnalysis, Recommendation) {
	return o.coord.AnalyzeOnly(text)
}

// Capabilities reports current registry coverage (spec §6 "capabilities()
// -> summary").
func (o *Orchestrator) Capabilities() CapabilitySummary {
	return o.coord.Capabilities()
}

// Metrics returns the current rolling metrics snapshot (spec §6
// "metrics() -> snapshot").
func (o *Orchestrator) Metrics() Snapshot {
	return o.coord.Metrics()
}

// History returns the bounded execution record history, oldest first.
func (o *Orchestrator) History() []Record {
	return o.coord.History()
}

// Shutdown stops background discovery, waits for in-flight requests, and
// releases the worker-role pool (spec §4.6 "Shutdown").
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	return o.coord.Shutdown(ctx)
}
