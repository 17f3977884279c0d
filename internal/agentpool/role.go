package agentpool

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Role is a minted WorkerRole (spec §3): a named instruction bound to a set
// of providers, checked out of the Pool for the duration of a single
// pattern-dispatch call.
type Role struct {
	ID          string
	Name        string
	Instruction string
	Providers   []string
	Active      bool
}

// identity returns the hash the pool uses to decide whether an existing
// active role already satisfies a checkout request (spec §4.5 "identity
// (name + instruction + provider-list) hashes equal to config").
func identity(name, instruction string, providers []string) string {
	sorted := append([]string(nil), providers...)
	sort.Strings(sorted)
	h := fnv.New64a()
	fmt.Fprintf(h, "%s\x00%s\x00%s", name, instruction, strings.Join(sorted, ","))
	return fmt.Sprintf("%x", h.Sum64())
}

func newRole(name, instruction string, providers []string) *Role {
	return &Role{
		ID:          uuid.NewString(),
		Name:        name,
		Instruction: instruction,
		Providers:   append([]string(nil), providers...),
		Active:      true,
	}
}

// rewrite reuses an inactive role's identity slot for a different config,
// used by Pool.Checkout when no matching active role exists but pool slack
// permits reuse instead of allocation (spec §4.5 "reuses an inactive role
// (rewriting its fields)").
func (r *Role) rewrite(name, instruction string, providers []string) {
	r.Name = name
	r.Instruction = instruction
	r.Providers = append([]string(nil), providers...)
	r.Active = true
}
