package installer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/orchestrator/internal/registry"
	"github.com/taskforge/orchestrator/internal/taxonomy"
)

type stubLauncher struct {
	outcomes map[string]Result
	errs     map[string]error
	calls    int
}

func (s *stubLauncher) Run(_ context.Context, command string, _ []string, _ time.Duration) (Result, error) {
	s.calls++
	if err, ok := s.errs[command]; ok {
		return Result{}, err
	}
	if res, ok := s.outcomes[command]; ok {
		return res, nil
	}
	return Result{ExitCode: 0}, nil
}

func oneCandidate(name string, methods ...Method) []Candidate {
	return []Candidate{{Name: name, Capabilities: []taxonomy.Capability{taxonomy.Web}, Methods: methods}}
}

func TestInstallSucceedsOnFirstMethod(t *testing.T) {
	launcher := &stubLauncher{outcomes: map[string]Result{"uvx": {ExitCode: 0}}}
	reg := registry.New()
	in := New(launcher, reg, nil, Options{Candidates: oneCandidate("svc", uvxMethod("mcp-server-fetch"))})

	out := in.Install(context.Background(), in.catalog[0])

	assert.True(t, out.Success)
	assert.Equal(t, "generic-uvx", out.Method)
	p := reg.Get("svc")
	require.NotNil(t, p)
	assert.Equal(t, taxonomy.StatusInstalled, p.Status)
}

func TestInstallFallsBackToNextMethodOnFailure(t *testing.T) {
	launcher := &stubLauncher{outcomes: map[string]Result{
		"uvx": {ExitCode: 1, Stderr: []byte("boom")},
		"pip": {ExitCode: 0},
	}}
	reg := registry.New()
	cand := Candidate{
		Name:         "svc",
		Capabilities: []taxonomy.Capability{taxonomy.Web},
		Methods:      []Method{uvxMethod("x"), pipMethod("x")},
	}
	in := New(launcher, reg, nil, Options{})

	out := in.Install(context.Background(), cand)

	assert.True(t, out.Success)
	assert.Equal(t, "generic-pip", out.Method)
}

func TestInstallExhaustsMethodsAndMarksPermanentFailure(t *testing.T) {
	launcher := &stubLauncher{outcomes: map[string]Result{
		"uvx": {ExitCode: 1, Stderr: []byte("nope")},
		"pip": {ExitCode: 1, Stderr: []byte("nope")},
	}}
	reg := registry.New()
	cand := Candidate{
		Name:         "svc",
		Capabilities: []taxonomy.Capability{taxonomy.Web},
		Methods:      []Method{uvxMethod("x"), pipMethod("x")},
	}
	in := New(launcher, reg, nil, Options{})

	out := in.Install(context.Background(), cand)

	require.False(t, out.Success)
	var failed *InstallFailed
	assert.ErrorAs(t, out.Err, &failed)
	assert.Contains(t, in.FailedInstallCandidates(), "svc")
}

func TestInstallIsIdempotentOnSuccess(t *testing.T) {
	launcher := &stubLauncher{outcomes: map[string]Result{"uvx": {ExitCode: 0}}}
	reg := registry.New()
	cand := Candidate{Name: "svc", Capabilities: []taxonomy.Capability{taxonomy.Web}, Methods: []Method{uvxMethod("x")}}
	in := New(launcher, reg, nil, Options{})

	first := in.Install(context.Background(), cand)
	callsAfterFirst := launcher.calls
	second := in.Install(context.Background(), cand)

	assert.True(t, first.Success)
	assert.True(t, second.Success)
	assert.Equal(t, callsAfterFirst, launcher.calls, "second install of a succeeded provider must be a no-op")
}

func TestInstallForCapabilitiesReturnsNoCandidates(t *testing.T) {
	launcher := &stubLauncher{}
	reg := registry.New()
	in := New(launcher, reg, nil, Options{Candidates: []Candidate{}})

	_, err := in.InstallForCapabilities(context.Background(), []taxonomy.Capability{taxonomy.Graphics})

	var noCandidates *NoCandidates
	assert.ErrorAs(t, err, &noCandidates)
}

func TestInstallForCapabilitiesRanksAndInstallsAll(t *testing.T) {
	launcher := &stubLauncher{outcomes: map[string]Result{
		"uvx": {ExitCode: 0},
		"npx": {ExitCode: 0},
	}}
	reg := registry.New()
	in := New(launcher, reg, nil, Options{Candidates: DefaultCandidates})

	outcomes, err := in.InstallForCapabilities(context.Background(), []taxonomy.Capability{taxonomy.Search, taxonomy.Web})

	require.NoError(t, err)
	assert.NotEmpty(t, outcomes)
	for _, o := range outcomes {
		assert.True(t, o.Success)
	}
}

type stubSession struct {
	connectErr error
	toolsErr   error
}

func (s *stubSession) ListConnected(context.Context) ([]string, error) { return nil, nil }
func (s *stubSession) ListTools(context.Context, string) ([]string, error) {
	return []string{"t"}, s.toolsErr
}
func (s *stubSession) ListResources(context.Context, string) ([]string, error) { return nil, nil }
func (s *stubSession) Connect(context.Context, string) error                   { return s.connectErr }

func TestVerifyMarksErrorOnFailureButKeepsProfile(t *testing.T) {
	reg := registry.New()
	reg.Upsert(&registry.Profile{Name: "svc", Status: taxonomy.StatusInstalled})
	session := &stubSession{connectErr: context.DeadlineExceeded}
	in := New(&stubLauncher{}, reg, session, Options{})

	ok := in.Verify(context.Background(), "svc")

	assert.False(t, ok)
	p := reg.Get("svc")
	require.NotNil(t, p)
	assert.Equal(t, taxonomy.StatusError, p.Status)
}
