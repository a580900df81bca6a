package app

import (
	"time"

	graphDomain "github.com/fd1az/crossarb/business/graph/domain"
	venueDomain "github.com/fd1az/crossarb/business/venue/domain"
)

func trade(venueID, base, quote string, side graphDomain.Side, rate, fee, liquidity float64) graphDomain.EdgeView {
	e := graphDomain.NewTradeEdge(venueID, venueDomain.NewPair(base, quote), side, fee, liquidity)
	e.Store(e.Attrs().WithQuote(rate, fee, liquidity, time.Unix(0, 0)))
	return e.View()
}

func transfer(asset, from, to string, fee float64) graphDomain.EdgeView {
	return graphDomain.NewTransferEdge(asset, from, to, fee, 1000, time.Minute, time.Unix(0, 0)).View()
}

func snapshot(edges ...graphDomain.EdgeView) *graphDomain.Snapshot {
	return graphDomain.NewSnapshot(edges, 1, time.Unix(0, 0))
}

// triangle is USDT -> BTC -> ETH -> USDT on venue X.
func triangle() *graphDomain.Snapshot {
	return snapshot(
		trade("X", "BTC", "USDT", graphDomain.SideBuy, 0.00002, 0.001, 1000),
		trade("X", "ETH", "BTC", graphDomain.SideBuy, 15, 0.001, 1000),
		trade("X", "ETH", "USDT", graphDomain.SideSell, 3500, 0.001, 1000),
	)
}

// ring links asset across n venues v0 -> v1 -> ... -> v0 with transfers.
func ring(asset string, n int) []graphDomain.EdgeView {
	var edges []graphDomain.EdgeView
	for i := 0; i < n; i++ {
		edges = append(edges, transfer(asset, venueName(i), venueName((i+1)%n), 0))
	}
	return edges
}

func venueName(i int) string {
	return string(rune('a' + i))
}
