package agentpool

import "sync"

// Pool holds reusable Roles up to a bounded size (spec §4.5 "Pool
// discipline"). The default max size is 2x the request concurrency (spec
// §5 "Resource pool size (default 2x request semaphore)"), set by the
// caller at construction.
type Pool struct {
	mu       sync.Mutex
	maxSize  int
	active   map[string]*Role // identity -> role, for active-role reuse
	inactive []*Role
}

// NewPool constructs a Pool that holds up to maxSize inactive roles.
func NewPool(maxSize int) *Pool {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Pool{maxSize: maxSize, active: map[string]*Role{}}
}

// Checkout returns a Role satisfying cfg: an already-active role with the
// same identity if one exists, otherwise a rewritten inactive role if pool
// slack permits, otherwise a freshly constructed one (spec §4.5
// "checkout(config)").
func (p *Pool) Checkout(cfg Config) *Role {
	key := identity(cfg.Name, cfg.Instruction, cfg.Providers)

	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.active[key]; ok {
		return existing
	}

	if len(p.inactive) > 0 {
		role := p.inactive[len(p.inactive)-1]
		p.inactive = p.inactive[:len(p.inactive)-1]
		role.rewrite(cfg.Name, cfg.Instruction, cfg.Providers)
		p.active[key] = role
		return role
	}

	role := newRole(cfg.Name, cfg.Instruction, cfg.Providers)
	p.active[key] = role
	return role
}

// Checkin marks role inactive and returns it to the available queue; if
// the queue is already at capacity the role is discarded (spec §4.5
// "checkin(role)").
func (p *Pool) Checkin(role *Role) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := identity(role.Name, role.Instruction, role.Providers)
	delete(p.active, key)
	role.Active = false

	if len(p.inactive) >= p.maxSize {
		return
	}
	p.inactive = append(p.inactive, role)
}

// Cleanup empties both the active and inactive queues, releasing any
// provider bindings held by pooled roles (spec §4.5 "cleanup empties both
// queues and releases bound providers"; spec §4.6 "evicts excess pool
// slack" during resource cleanup).
func (p *Pool) Cleanup() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = map[string]*Role{}
	p.inactive = nil
}

// EvictSlack drops inactive roles down to target, used by the
// coordinator's periodic resource cleanup (spec §4.6) rather than a full
// Cleanup.
func (p *Pool) EvictSlack(target int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if target < 0 {
		target = 0
	}
	if len(p.inactive) > target {
		p.inactive = p.inactive[:target]
	}
}

// Len reports the number of active and inactive roles currently held.
func (p *Pool) Len() (active int, inactive int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active), len(p.inactive)
}
