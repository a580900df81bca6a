package app

import (
	"sync"

	"github.com/fd1az/crossarb/business/arbitrage/domain"
)

// DefaultHistorySize is how many executions History keeps.
const DefaultHistorySize = 100

// History is a bounded ring of execution results. The oldest entry is
// evicted when full.
type History struct {
	mu    sync.Mutex
	buf   []*domain.ExecutionResult
	next  int
	count int
}

func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{buf: make([]*domain.ExecutionResult, size)}
}

func (h *History) Append(r *domain.ExecutionResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf[h.next] = r
	h.next = (h.next + 1) % len(h.buf)
	if h.count < len(h.buf) {
		h.count++
	}
}

// All returns the entries oldest first.
func (h *History) All() []*domain.ExecutionResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*domain.ExecutionResult, 0, h.count)
	start := (h.next - h.count + len(h.buf)) % len(h.buf)
	for i := 0; i < h.count; i++ {
		out = append(out, h.buf[(start+i)%len(h.buf)])
	}
	return out
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}
