package domain

import (
	"sync/atomic"
	"time"

	venue "github.com/fd1az/crossarb/business/venue/domain"
)

// Edge is a directed trade or transfer. Its topology is fixed; its
// attributes are swapped atomically so readers never see a partial update.
type Edge struct {
	Key  EdgeKey
	Kind ActionKind
	// Side and Pair are set for trades only.
	Side Side
	Pair venue.Pair

	attrs atomic.Pointer[EdgeAttrs]
}

// NewTradeEdge creates the buy (quote to base) or sell (base to quote) edge
// for pair on a venue. The rate is unknown until the first refresh.
func NewTradeEdge(venueID string, pair venue.Pair, side Side, fee, liquidity float64) *Edge {
	from, to := Node(pair.Quote, venueID), Node(pair.Base, venueID)
	if side == SideSell {
		from, to = to, from
	}

	e := &Edge{
		Key:  EdgeKey{From: from, To: to, Pair: pair.ID()},
		Kind: ActionTrade,
		Side: side,
		Pair: pair,
	}
	e.Store(NewEdgeAttrs(0, fee, liquidity, 0, time.Time{}))
	return e
}

// NewTransferEdge creates the edge moving asset between two venues.
func NewTransferEdge(asset, fromVenue, toVenue string, fee, liquidity float64, transferTime time.Duration, at time.Time) *Edge {
	e := &Edge{
		Key:  EdgeKey{From: Node(asset, fromVenue), To: Node(asset, toVenue)},
		Kind: ActionTransfer,
	}
	e.Store(NewEdgeAttrs(1, fee, liquidity, transferTime, at))
	return e
}

// Venue is the venue executing the edge: the trading venue, or the source of
// a transfer.
func (e *Edge) Venue() string {
	return e.Key.From.Venue
}

// Attrs returns the current attributes.
func (e *Edge) Attrs() EdgeAttrs {
	return *e.attrs.Load()
}

// Store replaces the attributes.
func (e *Edge) Store(a EdgeAttrs) {
	e.attrs.Store(&a)
}

// View captures the edge as an immutable value.
func (e *Edge) View() EdgeView {
	return EdgeView{
		Key:   e.Key,
		Kind:  e.Kind,
		Side:  e.Side,
		Pair:  e.Pair,
		Attrs: e.Attrs(),
	}
}

// EdgeView is an edge frozen at snapshot time.
type EdgeView struct {
	Key   EdgeKey
	Kind  ActionKind
	Side  Side
	Pair  venue.Pair
	Attrs EdgeAttrs
}

func (v EdgeView) Venue() string {
	return v.Key.From.Venue
}
