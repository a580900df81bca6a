package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fd1az/crossarb/business/graph/domain"
	venueDomain "github.com/fd1az/crossarb/business/venue/domain"
	"github.com/fd1az/crossarb/business/venue/infra/paper"
	"github.com/fd1az/crossarb/internal/logger"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newRefresher(t *testing.T, g *Graph) (*Refresher, *clock) {
	t.Helper()
	r, err := NewRefresher(g, RefreshConfig{Interval: time.Minute, Workers: 2, EdgeTimeout: time.Second}, logger.NewNop())
	if err != nil {
		t.Fatalf("NewRefresher: %v", err)
	}
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	r.now = c.now
	return r, c
}

var (
	btcUSDT = venueDomain.NewPair("BTC", "USDT")
	ethUSDT = venueDomain.NewPair("ETH", "USDT")

	buyBTC  = domain.EdgeKey{From: domain.Node("USDT", "x"), To: domain.Node("BTC", "x"), Pair: "BTC-USDT"}
	sellBTC = domain.EdgeKey{From: domain.Node("BTC", "x"), To: domain.Node("USDT", "x"), Pair: "BTC-USDT"}
)

func rate(t *testing.T, g *Graph, k domain.EdgeKey) float64 {
	t.Helper()
	e, ok := g.Edge(k)
	if !ok {
		t.Fatalf("missing edge %s", k)
	}
	return e.Attrs().Rate
}

func TestRefresher_UpdatesEdges(t *testing.T) {
	ctx := context.Background()
	g := newGraph()
	x := newVenue("x", nil, 0, btcUSDT)
	x.SetQuote(btcUSDT, 50000, 50010)
	if _, err := g.AddVenue(ctx, x); err != nil {
		t.Fatal(err)
	}

	r, _ := newRefresher(t, g)
	var notified int
	r.OnRefreshed(func() { notified++ })

	rep, err := r.RefreshNow(ctx)
	if err != nil {
		t.Fatalf("RefreshNow: %v", err)
	}
	if rep.Edges != 2 || rep.Updated != 2 || rep.Failed != 0 {
		t.Errorf("report = %+v", rep)
	}
	if got := rate(t, g, buyBTC); got != 1.0/50010 {
		t.Errorf("buy rate = %v, want 1/50010", got)
	}
	if got := rate(t, g, sellBTC); got != 50000 {
		t.Errorf("sell rate = %v, want 50000", got)
	}
	if notified != 1 {
		t.Errorf("notified %d times, want 1", notified)
	}
	if r.LastRefresh().IsZero() {
		t.Error("LastRefresh not recorded")
	}
}

func TestRefresher_FailedQuoteKeepsPreviousRate(t *testing.T) {
	ctx := context.Background()
	g := newGraph()

	x := newVenue("x", nil, 0, btcUSDT)
	x.SetQuote(btcUSDT, 50000, 50010)
	y := newVenue("y", nil, 0, ethUSDT)
	for _, v := range []*paper.Venue{x, y} {
		if _, err := g.AddVenue(ctx, v); err != nil {
			t.Fatal(err)
		}
	}

	r, _ := newRefresher(t, g)
	if _, err := r.RefreshNow(ctx); err != nil {
		t.Fatal(err)
	}

	x.SetQuote(btcUSDT, 51000, 51010)
	x.FailOn(paper.OpBuyPrice, errors.New("quote endpoint down"))

	var notified int
	r.OnRefreshed(func() { notified++ })

	rep, err := r.RefreshNow(ctx)
	if err != nil {
		t.Fatalf("pass should complete despite a failed edge: %v", err)
	}
	if rep.Failed != 1 || rep.Updated != 3 || rep.Abandoned {
		t.Errorf("report = %+v, want 1 failed and 3 updated", rep)
	}
	if got := rate(t, g, buyBTC); got != 1.0/50010 {
		t.Errorf("failed buy edge rate = %v, want previous 1/50010", got)
	}
	if got := rate(t, g, sellBTC); got != 51000 {
		t.Errorf("sell rate = %v, want 51000", got)
	}
	if notified != 1 {
		t.Errorf("notified %d times, want 1", notified)
	}
}

func TestRefresher_IntervalGate(t *testing.T) {
	ctx := context.Background()
	g := newGraph()
	x := newVenue("x", nil, 0, btcUSDT)
	if _, err := g.AddVenue(ctx, x); err != nil {
		t.Fatal(err)
	}

	r, clk := newRefresher(t, g)

	if rep, _ := r.Refresh(ctx); rep.Skipped {
		t.Fatal("first pass must run")
	}
	calls := x.Calls(paper.OpSellPrice)

	clk.t = clk.t.Add(30 * time.Second)
	if rep, _ := r.Refresh(ctx); !rep.Skipped {
		t.Error("pass inside the interval should be skipped")
	}
	if x.Calls(paper.OpSellPrice) != calls {
		t.Error("skipped pass queried the venue")
	}

	if rep, _ := r.RefreshNow(ctx); rep.Skipped {
		t.Error("RefreshNow must bypass the interval")
	}

	clk.t = clk.t.Add(61 * time.Second)
	if rep, _ := r.Refresh(ctx); rep.Skipped {
		t.Error("pass after the interval should run")
	}
}

func TestRefresher_CancelledPassIsAbandoned(t *testing.T) {
	g := newGraph()
	x := newVenue("x", nil, 0, btcUSDT)
	if _, err := g.AddVenue(context.Background(), x); err != nil {
		t.Fatal(err)
	}

	r, _ := newRefresher(t, g)
	var notified int
	r.OnRefreshed(func() { notified++ })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := r.RefreshNow(ctx)
	if err == nil || !rep.Abandoned {
		t.Fatalf("report = %+v err = %v, want abandoned", rep, err)
	}
	if !r.LastRefresh().IsZero() {
		t.Error("abandoned pass recorded a refresh time")
	}
	if notified != 0 {
		t.Error("abandoned pass notified subscribers")
	}
	if x.Calls(paper.OpBuyPrice) != 0 {
		t.Error("queries scheduled after cancellation")
	}
}
