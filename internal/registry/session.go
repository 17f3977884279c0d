package registry

import "context"

// Session is the narrow interface through which the discovery engine
// reaches connected capability providers. It is supplied by the embedder;
// the core never defines the wire protocol used to implement it (spec §1,
// §6 "Boundaries with external collaborators").
type Session interface {
	// ListConnected returns the names of providers currently reachable.
	ListConnected(ctx context.Context) ([]string, error)
	// ListTools returns the tool names a connected provider advertises.
	ListTools(ctx context.Context, name string) ([]string, error)
	// ListResources returns the resource names a connected provider
	// advertises.
	ListResources(ctx context.Context, name string) ([]string, error)
	// Connect attempts to (re)establish a connection to a provider.
	Connect(ctx context.Context, name string) error
}

// WellKnownProvider describes a statically known provider candidate used by
// the registry discovery leg (spec §4.2 step 3) and shared with the
// installer's candidate generation (spec §4.4 step 1).
type WellKnownProvider struct {
	Name         string
	Description  string
	Capabilities []string // capability category strings, validated against taxonomy.Capabilities
	InstallCmd   string
	Tags         []string
}
