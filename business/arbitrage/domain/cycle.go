// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"fmt"
	"strings"

	graphDomain "github.com/fd1az/crossarb/business/graph/domain"
	"github.com/fd1az/crossarb/internal/apperror"
)

// Cycle is a closed walk through the graph. Nodes has one more element than
// Edges and its first and last elements are equal.
type Cycle struct {
	Nodes []graphDomain.NodeID
	Edges []graphDomain.EdgeKey
}

// Hops returns the number of edges.
func (c Cycle) Hops() int {
	return len(c.Edges)
}

// Start returns the node the cycle begins and ends at.
func (c Cycle) Start() graphDomain.NodeID {
	if len(c.Nodes) == 0 {
		return graphDomain.NodeID{}
	}
	return c.Nodes[0]
}

// Key identifies the cycle. Equal cycles have equal keys and keys order
// cycles deterministically.
func (c Cycle) Key() string {
	parts := make([]string, len(c.Edges))
	for i, e := range c.Edges {
		parts[i] = e.String()
	}
	return strings.Join(parts, ",")
}

func (c Cycle) String() string {
	parts := make([]string, len(c.Nodes))
	for i, n := range c.Nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, " -> ")
}

// Validate checks the cycle closes and its edges connect its nodes.
func (c Cycle) Validate() error {
	if len(c.Edges) == 0 || len(c.Nodes) != len(c.Edges)+1 {
		return apperror.Validation(apperror.CodeInvalidOpportunity,
			fmt.Sprintf("cycle has %d nodes and %d edges", len(c.Nodes), len(c.Edges)))
	}
	if c.Nodes[0] != c.Nodes[len(c.Nodes)-1] {
		return apperror.Validation(apperror.CodeInvalidOpportunity, "cycle does not return to its start")
	}
	for i, e := range c.Edges {
		if e.From != c.Nodes[i] || e.To != c.Nodes[i+1] {
			return apperror.Validation(apperror.CodeInvalidOpportunity,
				fmt.Sprintf("edge %d (%s) does not join %s and %s", i, e, c.Nodes[i], c.Nodes[i+1]))
		}
	}
	return nil
}
