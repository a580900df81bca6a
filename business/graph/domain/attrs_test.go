package domain

import (
	"math"
	"sync"
	"testing"
	"time"

	venue "github.com/fd1az/crossarb/business/venue/domain"
)

func TestWeight(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		want float64
	}{
		{"unit rate", 1, 0},
		{"gain", math.E, -1},
		{"loss", 0.5, math.Log(2)},
		{"tiny", 0.00002, -math.Log(0.00002)},
		{"zero", 0, math.Inf(1)},
		{"negative", -3, math.Inf(1)},
		{"nan", math.NaN(), math.Inf(1)},
		{"inf", math.Inf(1), math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Weight(tt.rate)
			if math.IsInf(tt.want, 1) {
				if !math.IsInf(got, 1) {
					t.Errorf("Weight(%v) = %v, want +Inf", tt.rate, got)
				}
				return
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Weight(%v) = %v, want %v", tt.rate, got, tt.want)
			}
		})
	}
}

func TestNewTradeEdge_Direction(t *testing.T) {
	pair := venue.NewPair("BTC", "USDT")

	buy := NewTradeEdge("x", pair, SideBuy, 0.001, 10)
	if buy.Key.From != Node("USDT", "x") || buy.Key.To != Node("BTC", "x") {
		t.Errorf("buy edge = %s, want USDT@x->BTC@x", buy.Key)
	}

	sell := NewTradeEdge("x", pair, SideSell, 0.001, 10)
	if sell.Key.From != Node("BTC", "x") || sell.Key.To != Node("USDT", "x") {
		t.Errorf("sell edge = %s, want BTC@x->USDT@x", sell.Key)
	}

	if buy.Attrs().Traversable() {
		t.Error("edge without a rate must not be traversable")
	}

	transfer := NewTransferEdge("BTC", "x", "y", 0.0005, 1, time.Minute, time.Now())
	if transfer.Attrs().Weight != 0 || !transfer.Attrs().Traversable() {
		t.Errorf("transfer weight = %v, want 0", transfer.Attrs().Weight)
	}
	if transfer.Venue() != "x" {
		t.Errorf("transfer venue = %s, want source x", transfer.Venue())
	}
}

func TestEdge_StoreIsAtomic(t *testing.T) {
	e := NewTradeEdge("x", venue.NewPair("ETH", "USDT"), SideSell, 0.001, 1)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			r := float64(i)
			e.Store(e.Attrs().WithQuote(r, r/1e6, r*10, time.Now()))
		}
	}()

	for i := 0; i < 10000; i++ {
		a := e.Attrs()
		if a.Rate == 0 {
			continue
		}
		if a.Liquidity != a.Rate*10 || a.Fee != a.Rate/1e6 {
			t.Fatalf("torn read: %+v", a)
		}
		if a.Weight != Weight(a.Rate) {
			t.Fatalf("weight %v does not match rate %v", a.Weight, a.Rate)
		}
	}
	close(stop)
	wg.Wait()
}
