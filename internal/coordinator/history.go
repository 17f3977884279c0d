package coordinator

import (
	"sync"
	"time"

	"github.com/taskforge/orchestrator/internal/analyzer"
	"github.com/taskforge/orchestrator/internal/strategy"
	"github.com/taskforge/orchestrator/internal/taxonomy"
)

// Record is one request's execution history entry (spec §3 ExecutionRecord).
type Record struct {
	RequestText    string
	Analysis       analyzer.TaskAnalysis
	Recommendation strategy.Recommendation
	ProvidersUsed  []string
	RolesUsed      []string
	Status         taxonomy.RequestStatus
	StartTS        time.Time
	EndTS          time.Time
	Result         string
	Err            error
}

// history is a bounded FIFO ring buffer retaining only the most recent N
// records (spec §3 "Bounded FIFO history... retains only the most recent
// N, e.g. 1000").
type history struct {
	mu       sync.Mutex
	buf      []Record
	capacity int
	next     int
	full     bool
}

func newHistory(capacity int) *history {
	if capacity <= 0 {
		capacity = 1000
	}
	return &history{buf: make([]Record, capacity), capacity: capacity}
}

func (h *history) Append(r Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf[h.next] = r
	h.next = (h.next + 1) % h.capacity
	if h.next == 0 {
		h.full = true
	}
}

// Snapshot returns records oldest-first.
func (h *history) Snapshot() []Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.full {
		out := make([]Record, h.next)
		copy(out, h.buf[:h.next])
		return out
	}
	out := make([]Record, h.capacity)
	copy(out, h.buf[h.next:])
	copy(out[h.capacity-h.next:], h.buf[:h.next])
	return out
}

func (h *history) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.full {
		return h.capacity
	}
	return h.next
}
