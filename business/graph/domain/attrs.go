package domain

import (
	"math"
	"time"
)

// EdgeAttrs is the mutable part of an edge, replaced as a whole value.
type EdgeAttrs struct {
	// Rate is destination units per source unit. Transfers use 1.
	Rate float64
	// Fee is proportional, 0 to 1.
	Fee       float64
	Liquidity float64
	// TransferTime is zero for trades.
	TransferTime time.Duration
	UpdatedAt    time.Time
	// Weight is -ln(Rate), or +Inf when Rate is unknown or not positive.
	Weight float64
}

// Weight converts a rate into a path weight.
func Weight(rate float64) float64 {
	if rate > 0 && !math.IsInf(rate, 0) && !math.IsNaN(rate) {
		return -math.Log(rate)
	}
	return math.Inf(1)
}

// NewEdgeAttrs builds attributes and derives Weight.
func NewEdgeAttrs(rate, fee, liquidity float64, transferTime time.Duration, at time.Time) EdgeAttrs {
	return EdgeAttrs{
		Rate:         rate,
		Fee:          fee,
		Liquidity:    liquidity,
		TransferTime: transferTime,
		UpdatedAt:    at,
		Weight:       Weight(rate),
	}
}

// WithQuote returns a copy carrying a fresh quote.
func (a EdgeAttrs) WithQuote(rate, fee, liquidity float64, at time.Time) EdgeAttrs {
	return NewEdgeAttrs(rate, fee, liquidity, a.TransferTime, at)
}

// Traversable reports whether the edge may appear in a cycle.
func (a EdgeAttrs) Traversable() bool {
	return !math.IsInf(a.Weight, 1)
}
