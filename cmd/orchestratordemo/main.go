// Command orchestratordemo drives the orchestrator end to end with stub
// Session, Launcher, and Dispatcher implementations, for manual
// smoke-testing outside of the test suite.
package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/taskforge/orchestrator"
	"github.com/taskforge/orchestrator/internal/agentpool"
	"github.com/taskforge/orchestrator/internal/installer"
	"github.com/taskforge/orchestrator/internal/taxonomy"
)

// demoSession is a fixed, in-memory catalog of connected providers. A real
// embedder would back this with live MCP/A2A connections (spec §6).
type demoSession struct {
	tools map[string][]string
}

func (s *demoSession) ListConnected(context.Context) ([]string, error) {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	return names, nil
}

func (s *demoSession) ListTools(_ context.Context, name string) ([]string, error) {
	return s.tools[name], nil
}

func (s *demoSession) ListResources(context.Context, string) ([]string, error) {
	return nil, nil
}

func (s *demoSession) Connect(_ context.Context, name string) error {
	if _, ok := s.tools[name]; !ok {
		s.tools[name] = nil
	}
	return nil
}

// demoLauncher always succeeds immediately, simulating a well-behaved
// package manager install.
type demoLauncher struct{}

func (demoLauncher) Run(context.Context, string, []string, time.Duration) (installer.Result, error) {
	return installer.Result{ExitCode: 0}, nil
}

// demoLM stands in for a real language model: it just echoes the role it
// was asked to play.
type demoLM struct{}

func (demoLM) Run(_ context.Context, role agentpool.Role, prompt string) (string, error) {
	return fmt.Sprintf("[%s] handled: %s", role.Name, prompt), nil
}

// echoDispatcher simulates pattern execution by calling the LM once per
// staffed role and joining the results, standing in for a real executor
// that would actually run the chosen pattern.
func echoDispatcher(ctx context.Context, _ taxonomy.Pattern, roles []agentpool.Role, text string, lm orchestrator.LMFactory) (string, error) {
	parts := make([]string, 0, len(roles))
	for _, role := range roles {
		out, err := lm.Run(ctx, role, text)
		if err != nil {
			return "", err
		}
		parts = append(parts, out)
	}
	return strings.Join(parts, "; "), nil
}

func main() {
	ctx := context.Background()

	session := &demoSession{tools: map[string][]string{
		"fs":  {"read_file", "write_file"},
		"web": {"search_web", "fetch_url"},
	}}

	o := orchestrator.New(session, demoLauncher{}, echoDispatcher, demoLM{}, orchestrator.WithInstaller(true))

	if err := o.Discover(ctx); err != nil {
		log.Fatalf("discover: %v", err)
	}

	requests := []string{
		"read the file notes.txt",
		"search the web for the mcp specification",
		"first search github for mcp servers, then clone the top 3, analyze their code, and produce a comparison report",
	}

	for _, text := range requests {
		record, err := o.Execute(ctx, text, orchestrator.Prefs{})
		if err != nil {
			fmt.Printf("request %q failed: %v\n", text, err)
			continue
		}
		fmt.Printf("request %q -> pattern=%s providers=%v result=%q\n",
			text, record.Recommendation.Pattern, record.ProvidersUsed, record.Result)
	}

	summary := o.Capabilities()
	fmt.Printf("providers: %v\n", summary.ProviderNames)
	fmt.Printf("capabilities: %v\n", summary.AvailableCapabilities)

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := o.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}
