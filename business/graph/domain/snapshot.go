package domain

import (
	"sort"
	"time"
)

// Snapshot is an immutable copy of the graph used by one search.
type Snapshot struct {
	generation uint64
	takenAt    time.Time
	nodes      []NodeID
	out        map[NodeID][]EdgeView
	edges      map[EdgeKey]EdgeView
	byAsset    map[string][]NodeID
}

// NewSnapshot indexes edges. Adjacency lists and node lists are sorted so
// searches over equal snapshots visit edges in the same order.
func NewSnapshot(edges []EdgeView, generation uint64, takenAt time.Time) *Snapshot {
	s := &Snapshot{
		generation: generation,
		takenAt:    takenAt,
		out:        make(map[NodeID][]EdgeView),
		edges:      make(map[EdgeKey]EdgeView, len(edges)),
		byAsset:    make(map[string][]NodeID),
	}

	seen := make(map[NodeID]bool)
	addNode := func(n NodeID) {
		if !seen[n] {
			seen[n] = true
			s.nodes = append(s.nodes, n)
			s.byAsset[n.Asset] = append(s.byAsset[n.Asset], n)
		}
	}

	for _, e := range edges {
		s.edges[e.Key] = e
		s.out[e.Key.From] = append(s.out[e.Key.From], e)
		addNode(e.Key.From)
		addNode(e.Key.To)
	}

	for _, list := range s.out {
		sort.Slice(list, func(i, j int) bool { return list[i].Key.Less(list[j].Key) })
	}
	sort.Slice(s.nodes, func(i, j int) bool { return s.nodes[i].Less(s.nodes[j]) })
	for _, list := range s.byAsset {
		sort.Slice(list, func(i, j int) bool { return list[i].Less(list[j]) })
	}

	return s
}

func (s *Snapshot) Generation() uint64 { return s.generation }

func (s *Snapshot) TakenAt() time.Time { return s.takenAt }

// Nodes returns every node in order.
func (s *Snapshot) Nodes() []NodeID { return s.nodes }

// Out returns the edges leaving n.
func (s *Snapshot) Out(n NodeID) []EdgeView { return s.out[n] }

// Edge looks up an edge by key.
func (s *Snapshot) Edge(k EdgeKey) (EdgeView, bool) {
	e, ok := s.edges[k]
	return e, ok
}

// NodesForAsset returns asset's node at every venue listing it.
func (s *Snapshot) NodesForAsset(asset string) []NodeID { return s.byAsset[asset] }

// EdgeCount returns the number of edges.
func (s *Snapshot) EdgeCount() int { return len(s.edges) }
