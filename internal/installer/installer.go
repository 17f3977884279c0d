// Package installer implements the dynamic installer (C6): given a set of
// required capabilities uncovered by the registry, it finds candidates,
// launches an external install subprocess for each, and caches outcomes so
// repeated calls are idempotent (spec §4.4).
package installer

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/taskforge/orchestrator/internal/registry"
	"github.com/taskforge/orchestrator/internal/taxonomy"
	"github.com/taskforge/orchestrator/internal/telemetry"
)

// Outcome is the result of one provider's install attempt (spec §4.4
// "InstallationResult").
type Outcome struct {
	Provider string
	Success  bool
	Method   string
	Err      error
	Duration time.Duration
}

// Options configures an Installer.
type Options struct {
	// Concurrency bounds simultaneous install subprocesses (spec §4.4
	// "bound concurrency with a semaphore, default 3").
	Concurrency int64
	// Timeout bounds a single install subprocess (spec §4.4 "default 5
	// minutes").
	Timeout time.Duration
	// VerifyTimeout bounds the optional post-install verification
	// connect+list_tools call (spec §4.4 "short (10s) deadline").
	VerifyTimeout time.Duration
	Candidates    []Candidate
	RegistryQuery RegistryQuery
	Logger        telemetry.Logger
}

// Installer drives candidate generation, subprocess installation, and
// idempotent outcome caching against an injected Launcher.
type Installer struct {
	launcher  Launcher
	reg       *registry.Registry
	session   registry.Session
	sem       *semaphore.Weighted
	timeout   time.Duration
	verifyTTL time.Duration
	catalog   []Candidate
	query     RegistryQuery
	logger    telemetry.Logger

	mu       sync.Mutex
	outcomes map[string]Outcome
	failed   map[string]struct{}
	methodOK map[string]bool
}

// New constructs an Installer. session is used only for the optional
// verify() step; it may be nil if verification is never invoked.
func New(launcher Launcher, reg *registry.Registry, session registry.Session, opts Options) *Installer {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 3
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	verifyTTL := opts.VerifyTimeout
	if verifyTTL <= 0 {
		verifyTTL = 10 * time.Second
	}
	catalog := opts.Candidates
	if catalog == nil {
		catalog = DefaultCandidates
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NoopLogger{}
	}
	return &Installer{
		launcher:  launcher,
		reg:       reg,
		session:   session,
		sem:       semaphore.NewWeighted(concurrency),
		timeout:   timeout,
		verifyTTL: verifyTTL,
		catalog:   catalog,
		query:     opts.RegistryQuery,
		logger:    logger,
		outcomes:  map[string]Outcome{},
		failed:    map[string]struct{}{},
		methodOK:  map[string]bool{},
	}
}

// FailedInstallCandidates returns the permanent-failed-candidate set
// accumulated for the process lifetime (spec §8.1 supplemental feature 3).
func (in *Installer) FailedInstallCandidates() []string {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make([]string, 0, len(in.failed))
	for name := range in.failed {
		out = append(out, name)
	}
	return out
}

// InstallForCapabilities resolves candidates for the given capabilities and
// installs each, bounded by the install semaphore (spec §4.4 "Candidate
// generation" + "Concurrency"). Returns NoCandidates if the catalog (plus
// any RegistryQuery) yields nothing.
func (in *Installer) InstallForCapabilities(ctx context.Context, caps []taxonomy.Capability) ([]Outcome, error) {
	catalog := append([]Candidate{}, in.catalog...)
	if in.query != nil {
		catalog = append(catalog, in.query(caps)...)
	}

	in.mu.Lock()
	failedSnapshot := make(map[string]struct{}, len(in.failed))
	for k := range in.failed {
		failedSnapshot[k] = struct{}{}
	}
	in.mu.Unlock()

	ranked := rankCandidates(catalog, caps, failedSnapshot)
	if len(ranked) == 0 {
		names := make([]string, len(caps))
		for i, c := range caps {
			names[i] = string(c)
		}
		return nil, &NoCandidates{Capabilities: names}
	}

	results := make([]Outcome, len(ranked))
	var wg sync.WaitGroup
	for i, cand := range ranked {
		i, cand := i, cand
		if err := in.sem.Acquire(ctx, 1); err != nil {
			results[i] = Outcome{Provider: cand.Name, Success: false, Err: ctx.Err()}
			continue
		}
		wg.Add(1)
		go func() {
			defer in.sem.Release(1)
			defer wg.Done()
			results[i] = in.Install(ctx, cand)
		}()
	}
	wg.Wait()
	return results, nil
}

// Install installs a single candidate, trying each method in order until
// one succeeds (spec §4.4 "retry once with the next method"). A previously
// successful install is a no-op (spec §4.4 "Idempotence").
func (in *Installer) Install(ctx context.Context, cand Candidate) Outcome {
	in.mu.Lock()
	if prior, ok := in.outcomes[cand.Name]; ok && prior.Success {
		in.mu.Unlock()
		return prior
	}
	in.mu.Unlock()

	if len(cand.Methods) == 0 {
		in.recordFailure(cand.Name)
		return in.finish(Outcome{Provider: cand.Name, Success: false, Err: &InstallUnavailable{Provider: cand.Name}})
	}

	var lastErr error
	var lastMethod string
	var lastDuration time.Duration
	for _, m := range cand.Methods {
		if !in.methodAvailable(ctx, m) {
			continue
		}
		start := time.Now()
		res, err := in.launcher.Run(ctx, m.Command, m.Args, in.timeout)
		elapsed := time.Since(start)
		lastMethod = m.Name
		lastDuration = elapsed

		if err == context.DeadlineExceeded {
			lastErr = &InstallTimeout{Provider: cand.Name, Method: m.Name}
			in.logger.Warn(ctx, "install timed out", "provider", cand.Name, "method", m.Name)
			continue
		}
		if err != nil {
			lastErr = err
			continue
		}
		if res.ExitCode != 0 {
			lastErr = &InstallFailed{Provider: cand.Name, Method: m.Name, ExitCode: res.ExitCode, Stderr: string(res.Stderr)}
			in.logger.Warn(ctx, "install method failed", "provider", cand.Name, "method", m.Name, "exit_code", res.ExitCode)
			continue
		}

		in.markInstalled(cand)
		return in.finish(Outcome{Provider: cand.Name, Success: true, Method: m.Name, Duration: elapsed})
	}

	in.recordFailure(cand.Name)
	if lastErr == nil {
		lastErr = &InstallUnavailable{Provider: cand.Name}
	}
	return in.finish(Outcome{Provider: cand.Name, Success: false, Method: lastMethod, Err: lastErr, Duration: lastDuration})
}

// Verify attempts to connect and list tools for name with a short deadline,
// marking the provider error on failure without removing it from the
// registry (spec §4.4 "Verification (optional)").
func (in *Installer) Verify(ctx context.Context, name string) bool {
	if in.session == nil {
		return true
	}
	verifyCtx, cancel := context.WithTimeout(ctx, in.verifyTTL)
	defer cancel()

	if err := in.session.Connect(verifyCtx, name); err != nil {
		in.markError(name, err.Error())
		return false
	}
	if _, err := in.session.ListTools(verifyCtx, name); err != nil {
		in.markError(name, err.Error())
		return false
	}
	return true
}

func (in *Installer) markInstalled(cand Candidate) {
	if in.reg == nil {
		return
	}
	p := in.reg.Get(cand.Name)
	if p == nil {
		p = &registry.Profile{Name: cand.Name, Capabilities: map[taxonomy.Capability]struct{}{}}
		for _, c := range cand.Capabilities {
			p.Capabilities[c] = struct{}{}
		}
	} else {
		p = p.Clone()
	}
	p.Status = taxonomy.StatusInstalled
	in.reg.Upsert(p)
}

func (in *Installer) markError(name, reason string) {
	if in.reg == nil {
		return
	}
	p := in.reg.Get(name)
	if p == nil {
		return
	}
	clone := p.Clone()
	clone.Status = taxonomy.StatusError
	clone.LastError = reason
	clone.ErrorCount++
	in.reg.Upsert(clone)
}

func (in *Installer) recordFailure(name string) {
	in.mu.Lock()
	in.failed[name] = struct{}{}
	in.mu.Unlock()
}

func (in *Installer) finish(o Outcome) Outcome {
	in.mu.Lock()
	in.outcomes[o.Provider] = o
	in.mu.Unlock()
	return o
}

// methodAvailable probes a method's availability once and caches the
// result (spec §4.4 "Availability of each method is probed once (cache the
// result)"). A method with no command to probe is always considered
// available.
func (in *Installer) methodAvailable(ctx context.Context, m Method) bool {
	in.mu.Lock()
	if ok, cached := in.methodOK[m.Name]; cached {
		in.mu.Unlock()
		return ok
	}
	in.mu.Unlock()

	available := in.probe(ctx, m)

	in.mu.Lock()
	in.methodOK[m.Name] = available
	in.mu.Unlock()
	return available
}

// probe runs a trivial, fast invocation of the method's underlying command
// to check it exists on the host. Any non-crash response (including a
// non-zero exit from e.g. `--version`) is treated as "available" since the
// real install attempt is what ultimately decides success.
func (in *Installer) probe(ctx context.Context, m Method) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := in.launcher.Run(probeCtx, m.Command, []string{"--version"}, 5*time.Second)
	return err == nil || err == context.DeadlineExceeded
}
