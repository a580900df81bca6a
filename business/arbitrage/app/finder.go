package app

import (
	"github.com/fd1az/crossarb/business/arbitrage/domain"
	graphDomain "github.com/fd1az/crossarb/business/graph/domain"
)

// minCycleHops excludes buy-then-sell round trips on one market.
const minCycleHops = 3

// FinderConfig bounds the cycle search.
type FinderConfig struct {
	// MaxLength is the largest number of hops in a cycle.
	MaxLength int
	// MaxCycles caps the cycles collected per start node.
	MaxCycles int
}

// DefaultFinderConfig returns 5 hops and 100 cycles.
func DefaultFinderConfig() FinderConfig {
	return FinderConfig{MaxLength: 5, MaxCycles: 100}
}

// CycleFinder enumerates simple cycles through a snapshot. It does not
// score them.
type CycleFinder struct {
	cfg FinderConfig
}

func NewCycleFinder(cfg FinderConfig) *CycleFinder {
	if cfg.MaxLength < minCycleHops {
		cfg.MaxLength = minCycleHops
	}
	if cfg.MaxCycles <= 0 {
		cfg.MaxCycles = DefaultFinderConfig().MaxCycles
	}
	return &CycleFinder{cfg: cfg}
}

// Find returns the cycles starting at asset on every venue that lists it.
func (f *CycleFinder) Find(s *graphDomain.Snapshot, asset string) []domain.Cycle {
	var out []domain.Cycle
	for _, start := range s.NodesForAsset(asset) {
		out = append(out, f.FindFrom(s, start)...)
	}
	return out
}

// path is a persistent list: frames share prefixes and never mutate them.
type path struct {
	parent *path
	node   graphDomain.NodeID
	edge   graphDomain.EdgeKey
	hops   int
}

func (p *path) contains(n graphDomain.NodeID) bool {
	for ; p != nil; p = p.parent {
		if p.node == n {
			return true
		}
	}
	return false
}

// cycle materializes p closed by the edge back to start.
func (p *path) cycle(closing graphDomain.EdgeKey) domain.Cycle {
	hops := p.hops + 1
	c := domain.Cycle{
		Nodes: make([]graphDomain.NodeID, hops+1),
		Edges: make([]graphDomain.EdgeKey, hops),
	}
	c.Nodes[hops] = closing.To
	c.Edges[hops-1] = closing
	for q := p; q != nil; q = q.parent {
		c.Nodes[q.hops] = q.node
		if q.hops > 0 {
			c.Edges[q.hops-1] = q.edge
		}
	}
	return c
}

// FindFrom runs a depth-first search from start with an explicit stack.
// Edges are visited in snapshot order so equal snapshots yield equal
// results. Only traversable edges are followed and no node repeats except
// start at closure.
func (f *CycleFinder) FindFrom(s *graphDomain.Snapshot, start graphDomain.NodeID) []domain.Cycle {
	var cycles []domain.Cycle
	stack := []*path{{node: start}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		out := s.Out(p.node)
		// Push in reverse so the first edge is explored first.
		for i := len(out) - 1; i >= 0; i-- {
			e := out[i]
			if !e.Attrs.Traversable() {
				continue
			}
			next := e.Key.To
			if next == start {
				continue
			}
			if p.hops+1 < f.cfg.MaxLength && !p.contains(next) {
				stack = append(stack, &path{parent: p, node: next, edge: e.Key, hops: p.hops + 1})
			}
		}

		// Closures are recorded in edge order before descending further.
		for _, e := range out {
			if e.Key.To != start || !e.Attrs.Traversable() {
				continue
			}
			if hops := p.hops + 1; hops >= minCycleHops && hops <= f.cfg.MaxLength {
				cycles = append(cycles, p.cycle(e.Key))
				if len(cycles) >= f.cfg.MaxCycles {
					return cycles
				}
			}
		}
	}

	return cycles
}
