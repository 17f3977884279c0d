package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/orchestrator/internal/agentpool"
	"github.com/taskforge/orchestrator/internal/installer"
	"github.com/taskforge/orchestrator/internal/taxonomy"
)

// stubSession is a minimal registry.Session backed by an in-memory provider
// catalog the test controls directly (scenarios S1-S5).
type stubSession struct {
	connected map[string][]string // name -> tools
	resources map[string][]string
}

func newStubSession() *stubSession {
	return &stubSession{connected: map[string][]string{}, resources: map[string][]string{}}
}

func (s *stubSession) ListConnected(context.Context) ([]string, error) {
	names := make([]string, 0, len(s.connected))
	for n := range s.connected {
		names = append(names, n)
	}
	return names, nil
}

func (s *stubSession) ListTools(_ context.Context, name string) ([]string, error) {
	return s.connected[name], nil
}

func (s *stubSession) ListResources(_ context.Context, name string) ([]string, error) {
	return s.resources[name], nil
}

func (s *stubSession) Connect(_ context.Context, name string) error {
	if _, ok := s.connected[name]; !ok {
		s.connected[name] = nil
	}
	return nil
}

// stubLauncher always succeeds, simulating S5's "stubbed successful
// install" — the installer itself registers the candidate's declared
// capabilities into the registry on success (installer.markInstalled), so
// the stub only needs to report a clean exit.
type stubLauncher struct{}

func (stubLauncher) Run(context.Context, string, []string, time.Duration) (installer.Result, error) {
	return installer.Result{ExitCode: 0}, nil
}

// recordingDispatcher simulates pattern execution without inspecting pattern
// internals, recording how many roles it was called with.
type recordingDispatcher struct {
	calls     int
	lastRoles []agentpool.Role
}

func (d *recordingDispatcher) dispatch(_ context.Context, _ taxonomy.Pattern, roles []agentpool.Role, text string, _ LMFactory) (string, error) {
	d.calls++
	d.lastRoles = roles
	return "done: " + text, nil
}

type stubLM struct{}

func (stubLM) Run(context.Context, agentpool.Role, string) (string, error) { return "ok", nil }

func TestS1SimpleFileReadUsesDirect(t *testing.T) {
	session := newStubSession()
	session.connected["fs"] = []string{"read_file", "write_file"}
	dispatcher := &recordingDispatcher{}

	o := New(session, nil, dispatcher.dispatch, stubLM{}, WithInstaller(false))
	require.NoError(t, o.Discover(context.Background()))

	record, err := o.Execute(context.Background(), "read the file notes.txt", Prefs{})

	require.NoError(t, err)
	assert.Equal(t, taxonomy.Direct, record.Recommendation.Pattern)
	assert.GreaterOrEqual(t, record.Recommendation.Confidence, 0.6)
	assert.Equal(t, 1, dispatcher.calls)
}

func TestS2IterativeContentCreationUsesEvaluatorOptimizer(t *testing.T) {
	session := newStubSession()
	session.connected["writer"] = []string{"write_file"}
	session.connected["notifier"] = []string{"send_notify"}
	dispatcher := &recordingDispatcher{}

	o := New(session, nil, dispatcher.dispatch, stubLM{}, WithInstaller(false))
	require.NoError(t, o.Discover(context.Background()))

	record, err := o.Execute(context.Background(),
		"write a polished, high-quality blog post about autonomous agents and notify the team; iterate until good", Prefs{})

	require.NoError(t, err)
	assert.Equal(t, taxonomy.EvaluatorOptimizer, record.Recommendation.Pattern)
	assert.Contains(t, record.Recommendation.FallbackPatterns, taxonomy.Direct)
	assert.Len(t, dispatcher.lastRoles, 2)
}

func TestS3ParallelResearchFansOut(t *testing.T) {
	session := newStubSession()
	session.connected["web"] = []string{"search_web", "fetch_url"}
	session.connected["db"] = []string{"query_database"}
	session.connected["analytics"] = []string{"analyze_data", "transform_pipeline"}
	dispatcher := &recordingDispatcher{}

	o := New(session, nil, dispatcher.dispatch, stubLM{}, WithInstaller(false))
	require.NoError(t, o.Discover(context.Background()))

	record, err := o.Execute(context.Background(),
		"simultaneously search the web and check our database for Q3 sales anomalies and summarize", Prefs{})

	require.NoError(t, err)
	assert.Equal(t, taxonomy.Parallel, record.Recommendation.Pattern)
	assert.GreaterOrEqual(t, len(dispatcher.lastRoles), 2)
}

func TestS4OrchestratedMultiStepUsesOrchestrator(t *testing.T) {
	session := newStubSession()
	session.connected["github"] = []string{"search_repos", "clone_repo"}
	session.connected["analyzer"] = []string{"analyze_code"}
	session.connected["charts"] = []string{"render_chart"}
	dispatcher := &recordingDispatcher{}

	o := New(session, nil, dispatcher.dispatch, stubLM{}, WithInstaller(false))
	require.NoError(t, o.Discover(context.Background()))

	record, err := o.Execute(context.Background(),
		"first search github for mcp servers, then clone the top 3, analyze their code, and produce a comparison report with charts", Prefs{})

	require.NoError(t, err)
	assert.Equal(t, taxonomy.Orchestrator, record.Recommendation.Pattern)
	assert.False(t, record.Analysis.RequiresIteration)
}

func TestS5MissingCapabilityTriggersInstall(t *testing.T) {
	session := newStubSession()
	session.connected["fs"] = []string{"read_file"}
	dispatcher := &recordingDispatcher{}

	o := New(session, stubLauncher{}, dispatcher.dispatch, stubLM{}, WithInstaller(true))
	require.NoError(t, o.Discover(context.Background()))

	before := o.Capabilities()
	assert.NotContains(t, before.AvailableCapabilities, taxonomy.Search)

	record, err := o.Execute(context.Background(), "search the web for 'mcp specification'", Prefs{})

	require.NoError(t, err)
	assert.Contains(t, []taxonomy.Pattern{taxonomy.Direct, taxonomy.Router}, record.Recommendation.Pattern)
	assert.NotEmpty(t, record.ProvidersUsed)

	after := o.Capabilities()
	assert.Contains(t, after.AvailableCapabilities, taxonomy.Search)
}

func TestS6NoProviderAvailableFailsWithNoCapableProviders(t *testing.T) {
	session := newStubSession() // empty registry
	dispatcher := &recordingDispatcher{}

	o := New(session, nil, dispatcher.dispatch, stubLM{}, WithInstaller(false))
	require.NoError(t, o.Discover(context.Background()))

	before := o.Metrics().TotalRequests
	record, err := o.Execute(context.Background(), "search the web for something obscure", Prefs{})

	require.Error(t, err)
	assert.Equal(t, taxonomy.StateError, record.Status)
	after := o.Metrics().TotalRequests
	assert.Equal(t, before+1, after)

	history := o.History()
	require.Len(t, history, 1)
	assert.Equal(t, taxonomy.StateError, history[0].Status)
}

func TestShutdownIsIdempotentAndReleasesPool(t *testing.T) {
	session := newStubSession()
	session.connected["fs"] = []string{"read_file"}
	dispatcher := &recordingDispatcher{}

	o := New(session, nil, dispatcher.dispatch, stubLM{}, WithInstaller(false))
	require.NoError(t, o.Discover(context.Background()))
	_, err := o.Execute(context.Background(), "read the file notes.txt", Prefs{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, o.Shutdown(ctx))
	require.NoError(t, o.Shutdown(ctx))
}
