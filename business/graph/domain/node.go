// Package domain models the opportunity graph: asset-at-venue nodes joined by
// trade and transfer edges.
package domain

import (
	"fmt"

	venue "github.com/fd1az/crossarb/business/venue/domain"
)

// NodeID is an asset held at a venue.
type NodeID struct {
	Asset string
	Venue string
}

// Node builds a NodeID.
func Node(asset, venueID string) NodeID {
	return NodeID{Asset: asset, Venue: venueID}
}

func (n NodeID) String() string {
	return n.Asset + "@" + n.Venue
}

// Less orders nodes by asset, then venue.
func (n NodeID) Less(o NodeID) bool {
	if n.Asset != o.Asset {
		return n.Asset < o.Asset
	}
	return n.Venue < o.Venue
}

// ActionKind is what traversing an edge does.
type ActionKind string

const (
	ActionTrade    ActionKind = "trade"
	ActionTransfer ActionKind = "transfer"
)

// Side is the order side of a trade edge.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// EdgeKey identifies an edge. Pair separates parallel trade edges between
// the same two nodes and is empty for transfers.
type EdgeKey struct {
	From NodeID
	To   NodeID
	Pair venue.PairID
}

func (k EdgeKey) String() string {
	if k.Pair == "" {
		return fmt.Sprintf("%s->%s", k.From, k.To)
	}
	return fmt.Sprintf("%s->%s[%s]", k.From, k.To, k.Pair)
}

// Less gives a total order over keys.
func (k EdgeKey) Less(o EdgeKey) bool {
	if k.From != o.From {
		return k.From.Less(o.From)
	}
	if k.To != o.To {
		return k.To.Less(o.To)
	}
	return k.Pair < o.Pair
}
