package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/orchestrator/internal/taxonomy"
)

func TestAnalyzeDeterministic(t *testing.T) {
	a := New(128)
	text := "read the file notes.txt"

	first := a.Analyze(text)
	second := a.Analyze(text)

	require.True(t, second.CacheHit)
	assert.True(t, first.Equal(second))
}

func TestAnalyzeNormalizationEquivalence(t *testing.T) {
	a := New(128)

	first := a.Analyze("Read the file notes.txt")
	second := a.Analyze("read the file notes.txt.")

	assert.True(t, first.Equal(second))
}

func TestAnalyzeEmptyInput(t *testing.T) {
	a := New(128)
	result := a.Analyze("")

	assert.Equal(t, taxonomy.InformationRetrieval, result.TaskType)
	assert.Equal(t, taxonomy.Simple, result.Complexity)
	assert.Equal(t, 1, result.EstimatedSteps)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestAnalyzeSimpleFileRead(t *testing.T) {
	a := New(128)
	result := a.Analyze("read the file notes.txt")

	assert.Equal(t, taxonomy.FileOps, result.TaskType)
	assert.Equal(t, taxonomy.Simple, result.Complexity)
	assert.True(t, result.HasCapability(taxonomy.File))
	assert.Equal(t, 1, result.EstimatedSteps)
	assert.False(t, result.Parallelizable)
}

func TestAnalyzeIterativeContentCreation(t *testing.T) {
	a := New(128)
	result := a.Analyze("write a polished, high-quality blog post about autonomous agents; iterate until good")

	assert.True(t, result.RequiresIteration)
	assert.GreaterOrEqual(t, result.Complexity.Level(), taxonomy.Moderate.Level())
}

func TestAnalyzeParallelResearch(t *testing.T) {
	a := New(128)
	result := a.Analyze("simultaneously search the web and check our database for Q3 sales anomalies and summarize")

	assert.True(t, result.Parallelizable)
	assert.True(t, result.HasCapability(taxonomy.Search))
	assert.True(t, result.HasCapability(taxonomy.Database))
}

func TestAnalyzeOrchestratedMultiStep(t *testing.T) {
	a := New(128)
	result := a.Analyze("first search github for mcp servers, then clone the top 3, analyze their code, and produce a comparison report with charts")

	assert.GreaterOrEqual(t, result.Complexity.Level(), taxonomy.Complex.Level())
	assert.GreaterOrEqual(t, result.EstimatedSteps, 5)
	assert.False(t, result.RequiresIteration)
}

func TestAnalyzeCacheCapacityZeroDisablesCaching(t *testing.T) {
	a := New(0)
	text := "read the file notes.txt"

	first := a.Analyze(text)
	second := a.Analyze(text)

	assert.False(t, first.CacheHit)
	assert.False(t, second.CacheHit)
	assert.True(t, first.Equal(second))
}

func TestAnalyzeLRUEviction(t *testing.T) {
	a := New(1)
	a.Analyze("read the file notes.txt")
	a.Analyze("write an email to the team")

	result := a.Analyze("read the file notes.txt")
	assert.False(t, result.CacheHit, "first entry should have been evicted")
}
