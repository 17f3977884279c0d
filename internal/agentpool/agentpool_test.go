package agentpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/orchestrator/internal/registry"
	"github.com/taskforge/orchestrator/internal/taxonomy"
)

func TestBuildForCapabilitiesPicksBestMatchingTemplate(t *testing.T) {
	f := New(registry.New())
	cfg := f.BuildForCapabilities(map[taxonomy.Capability]struct{}{taxonomy.Development: {}, taxonomy.File: {}})
	assert.Equal(t, "developer", cfg.Name)
}

func TestBuildForCapabilitiesFallsBackToVersatile(t *testing.T) {
	f := New(registry.New())
	cfg := f.BuildForCapabilities(map[taxonomy.Capability]struct{}{taxonomy.Database: {}})
	assert.Equal(t, "versatile", cfg.Name)
}

func TestBuildForCapabilitiesExtendsProvidersFromRegistry(t *testing.T) {
	reg := registry.New()
	reg.Upsert(&registry.Profile{Name: "fs-server", Capabilities: map[taxonomy.Capability]struct{}{taxonomy.File: {}}})
	f := New(reg)

	cfg := f.BuildForCapabilities(map[taxonomy.Capability]struct{}{taxonomy.File: {}, taxonomy.Development: {}})

	assert.Contains(t, cfg.Providers, "fs-server")
}

func TestTeamForGroupsByCategoryInCanonicalOrder(t *testing.T) {
	f := New(registry.New())
	required := map[taxonomy.Capability]struct{}{
		taxonomy.Web:         {},
		taxonomy.File:        {},
		taxonomy.Development: {},
	}

	team := f.TeamFor(required, 2)

	require.Len(t, team, 2)
	assert.Contains(t, team[0].Instruction, "Required capabilities: file.")
	assert.Contains(t, team[1].Instruction, "Required capabilities: web.")
}

func TestInstructionCompositionIsDeterministic(t *testing.T) {
	f := New(registry.New())
	required := map[taxonomy.Capability]struct{}{taxonomy.Development: {}}

	a := f.BuildForCapabilities(required)
	b := f.BuildForCapabilities(required)

	assert.Equal(t, a.Instruction, b.Instruction)
}

func TestPoolCheckoutReusesActiveRoleByIdentity(t *testing.T) {
	pool := NewPool(4)
	cfg := Config{Name: "researcher", Instruction: "go find things", Providers: []string{"search"}}

	r1 := pool.Checkout(cfg)
	r2 := pool.Checkout(cfg)

	assert.Same(t, r1, r2)
}

func TestPoolCheckinAndReuseFromInactive(t *testing.T) {
	pool := NewPool(4)
	cfg1 := Config{Name: "researcher", Instruction: "find", Providers: []string{"search"}}
	cfg2 := Config{Name: "analyst", Instruction: "analyze", Providers: []string{"db"}}

	r1 := pool.Checkout(cfg1)
	pool.Checkin(r1)

	active, inactive := pool.Len()
	assert.Equal(t, 0, active)
	assert.Equal(t, 1, inactive)

	r2 := pool.Checkout(cfg2)
	assert.Same(t, r1, r2, "checkout should rewrite the inactive role in place")
	assert.Equal(t, "analyst", r2.Name)
}

func TestPoolCheckinDiscardsOverCapacity(t *testing.T) {
	pool := NewPool(1)
	r1 := pool.Checkout(Config{Name: "a", Instruction: "x", Providers: nil})
	r2 := pool.Checkout(Config{Name: "b", Instruction: "y", Providers: nil})

	pool.Checkin(r1)
	pool.Checkin(r2)

	_, inactive := pool.Len()
	assert.Equal(t, 1, inactive)
}

func TestPoolCleanupEmptiesBothQueues(t *testing.T) {
	pool := NewPool(4)
	role := pool.Checkout(Config{Name: "a", Instruction: "x"})
	pool.Checkin(role)

	pool.Cleanup()

	active, inactive := pool.Len()
	assert.Equal(t, 0, active)
	assert.Equal(t, 0, inactive)
}
