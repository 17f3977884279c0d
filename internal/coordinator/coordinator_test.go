package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/orchestrator/internal/agentpool"
	"github.com/taskforge/orchestrator/internal/analyzer"
	"github.com/taskforge/orchestrator/internal/registry"
	"github.com/taskforge/orchestrator/internal/strategy"
	"github.com/taskforge/orchestrator/internal/taxonomy"
)

type stubLM struct{}

func (stubLM) Run(context.Context, agentpool.Role, string) (string, error) { return "ok", nil }

func echoDispatcher(_ context.Context, _ taxonomy.Pattern, roles []agentpool.Role, text string, _ LMFactory) (string, error) {
	return "handled: " + text, nil
}

func failingDispatcher(context.Context, taxonomy.Pattern, []agentpool.Role, string, LMFactory) (string, error) {
	return "", errors.New("dispatch failed")
}

func newTestCoordinator(t *testing.T, dispatcher Dispatcher) (*Coordinator, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	reg.Upsert(&registry.Profile{Name: "fs", Capabilities: map[taxonomy.Capability]struct{}{taxonomy.File: {}}, Status: taxonomy.StatusConnected})

	an := analyzer.New(32)
	sel := strategy.New(32)
	factory := agentpool.New(reg)

	c := New(an, reg, nil, sel, nil, factory, dispatcher, stubLM{}, Options{
		RequestConcurrency: 2,
		MemorySampler:      func() int64 { return 0 },
	})
	return c, reg
}

func TestExecuteHappyPath(t *testing.T) {
	c, _ := newTestCoordinator(t, echoDispatcher)

	record, err := c.Execute(context.Background(), "read a file from disk", Prefs{})

	require.NoError(t, err)
	assert.Equal(t, taxonomy.StateCompleted, record.Status)
	assert.Contains(t, record.Result, "read a file from disk")
}

func TestExecuteNoCapableProvidersFails(t *testing.T) {
	reg := registry.New() // empty
	an := analyzer.New(32)
	sel := strategy.New(32)
	factory := agentpool.New(reg)
	c := New(an, reg, nil, sel, nil, factory, echoDispatcher, stubLM{}, Options{MemorySampler: func() int64 { return 0 }})

	record, err := c.Execute(context.Background(), "search the web for the mcp specification", Prefs{})

	require.Error(t, err)
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, KindNoCapableProviders, execErr.Kind)
	assert.Equal(t, taxonomy.StateError, record.Status)
}

func TestExecuteRecordsHistoryOnFailure(t *testing.T) {
	c, _ := newTestCoordinator(t, failingDispatcher)

	_, err := c.Execute(context.Background(), "read a file", Prefs{})
	require.Error(t, err)

	history := c.History()
	require.Len(t, history, 1)
	assert.Equal(t, taxonomy.StateError, history[0].Status)
}

func TestExecuteAlwaysChecksInRoles(t *testing.T) {
	c, _ := newTestCoordinator(t, echoDispatcher)

	_, err := c.Execute(context.Background(), "read a file", Prefs{})
	require.NoError(t, err)

	active, _ := c.pool.Len()
	assert.Equal(t, 0, active, "all checked-out roles must be checked back in")
}

func TestAnalyzeOnlyDoesNotTouchHistory(t *testing.T) {
	c, _ := newTestCoordinator(t, echoDispatcher)

	_, rec := c.AnalyzeOnly("read a file from disk")

	assert.NotEmpty(t, rec.Pattern)
	assert.Empty(t, c.History())
}

func TestCapabilitiesReportsRegistryCoverage(t *testing.T) {
	c, _ := newTestCoordinator(t, echoDispatcher)

	summary := c.Capabilities()

	assert.Equal(t, 1, summary.ProviderCount)
	assert.Contains(t, summary.ProviderNames, "fs")
	assert.Contains(t, summary.AvailableCapabilities, taxonomy.File)
}

func TestMetricsTrackTotalsAcrossRequests(t *testing.T) {
	c, _ := newTestCoordinator(t, echoDispatcher)

	_, err1 := c.Execute(context.Background(), "read a file", Prefs{})
	_, err2 := c.Execute(context.Background(), "read the file again", Prefs{})
	require.NoError(t, err1)
	require.NoError(t, err2)

	snap := c.Metrics()
	assert.Equal(t, int64(2), snap.TotalRequests)
	assert.Equal(t, int64(2), snap.SuccessfulRequests)
}

func TestShutdownWaitsForInFlightThenStops(t *testing.T) {
	c, _ := newTestCoordinator(t, echoDispatcher)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := c.Shutdown(ctx)
	assert.NoError(t, err)
}

func TestDegradeConfidenceReducesByTenthPerRank(t *testing.T) {
	assert.InDelta(t, 0.8, degradeConfidence(0.8, 0), 1e-9)
	assert.InDelta(t, 0.7, degradeConfidence(0.8, 1), 1e-9)
	assert.InDelta(t, 0.0, degradeConfidence(0.05, 1), 1e-9)
}

func TestPatternStaffable(t *testing.T) {
	assert.True(t, patternStaffable(taxonomy.Direct, 0))
	assert.False(t, patternStaffable(taxonomy.Parallel, 1))
	assert.True(t, patternStaffable(taxonomy.Parallel, 2))
	assert.True(t, patternStaffable(taxonomy.Router, 1))
}
