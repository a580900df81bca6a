package paper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/crossarb/business/venue/domain"
	"github.com/fd1az/crossarb/internal/apperror"
	"github.com/fd1az/crossarb/internal/config"
)

func newTestVenue(balances map[string]decimal.Decimal) *Venue {
	return New(Config{
		Info: domain.Info{ID: "alpha", Kind: domain.KindCEX},
		Fee:  FeeRate(0.001),
		Markets: []Market{
			{Pair: domain.NewPair("BTC", "USDT"), Bid: 50000, Ask: 50000, Liquidity: 10},
			{Pair: domain.NewPair("ETH", "USDT"), Bid: 3500, Ask: 3500},
		},
		WithdrawalFees: map[string]float64{"USDT": 0.001},
		Balances:       balances,
	})
}

func TestVenue_Quotes(t *testing.T) {
	ctx := context.Background()
	v := newTestVenue(nil)

	buy, err := v.BuyPrice(ctx, "BTC-USDT")
	if err != nil || buy != 1.0/50000 {
		t.Errorf("BuyPrice = %v, %v", buy, err)
	}
	sell, err := v.SellPrice(ctx, "ETH-USDT")
	if err != nil || sell != 3500 {
		t.Errorf("SellPrice = %v, %v", sell, err)
	}

	if _, err := v.Liquidity(ctx, "ETH-USDT"); !apperror.HasCode(err, apperror.CodeUnsupported) {
		t.Errorf("Liquidity without config: err = %v, want unsupported", err)
	}
	if _, err := v.WithdrawalTime(ctx, "BTC", v); !apperror.HasCode(err, apperror.CodeUnsupported) {
		t.Errorf("WithdrawalTime without config: err = %v, want unsupported", err)
	}
	if _, err := v.BuyPrice(ctx, "SOL-USDT"); apperror.GetCode(err) != apperror.CodeInvalidPair {
		t.Errorf("unknown pair: err = %v", err)
	}

	assets, _ := v.Assets(ctx)
	if len(assets) != 3 || assets[0] != "BTC" || assets[2] != "USDT" {
		t.Errorf("Assets = %v", assets)
	}
}

func TestVenue_ExecuteBuySell(t *testing.T) {
	ctx := context.Background()
	v := newTestVenue(nil)

	tests := []struct {
		name       string
		exec       func() (domain.ExecutionReport, error)
		wantOK     bool
		wantAmount string
		wantAsset  string
	}{
		{
			name: "buy spends quote",
			exec: func() (domain.ExecutionReport, error) {
				return v.ExecuteBuy(ctx, "BTC-USDT", decimal.NewFromInt(50000), "USDT")
			},
			wantOK: true, wantAmount: "0.999", wantAsset: "BTC",
		},
		{
			name: "sell spends base",
			exec: func() (domain.ExecutionReport, error) {
				return v.ExecuteSell(ctx, "ETH-USDT", decimal.NewFromInt(2), "ETH")
			},
			wantOK: true, wantAmount: "6993", wantAsset: "USDT",
		},
		{
			name: "buy with wrong asset",
			exec: func() (domain.ExecutionReport, error) {
				return v.ExecuteBuy(ctx, "BTC-USDT", decimal.NewFromInt(1), "BTC")
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := tt.exec()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if report.Success != tt.wantOK {
				t.Fatalf("success = %v, want %v (%s)", report.Success, tt.wantOK, report.Error)
			}
			if !tt.wantOK {
				return
			}
			if !report.ExecutedAmount.Equal(decimal.RequireFromString(tt.wantAmount)) {
				t.Errorf("amount = %s, want %s", report.ExecutedAmount, tt.wantAmount)
			}
			if report.ResultingAsset != tt.wantAsset {
				t.Errorf("asset = %s, want %s", report.ResultingAsset, tt.wantAsset)
			}
		})
	}
}

func TestVenue_FaultInjection(t *testing.T) {
	ctx := context.Background()
	v := newTestVenue(nil)

	boom := errors.New("venue down")
	v.FailOn(OpBuyPrice, boom)
	if _, err := v.BuyPrice(ctx, "BTC-USDT"); !errors.Is(err, boom) {
		t.Errorf("err = %v, want injected fault", err)
	}
	v.FailOn(OpBuyPrice, nil)
	if _, err := v.BuyPrice(ctx, "BTC-USDT"); err != nil {
		t.Errorf("fault not cleared: %v", err)
	}
	if got := v.Calls(OpBuyPrice); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}

	v.RejectOn(OpExecuteSell, "market halted")
	report, err := v.ExecuteSell(ctx, "ETH-USDT", decimal.NewFromInt(1), "ETH")
	if err != nil || report.Success || report.Error != "market halted" {
		t.Errorf("report = %+v, err = %v", report, err)
	}
}

func TestVenue_WithdrawalCreditsDestination(t *testing.T) {
	ctx := context.Background()
	src := newTestVenue(map[string]decimal.Decimal{"USDT": decimal.NewFromInt(1000)})
	dst := New(Config{Info: domain.Info{ID: "beta"}, Balances: map[string]decimal.Decimal{"USDT": decimal.Zero}})

	report, err := src.ExecuteWithdrawal(ctx, "USDT", decimal.NewFromInt(1000), dst)
	if err != nil || !report.Success {
		t.Fatalf("withdrawal failed: %+v %v", report, err)
	}
	if !report.ExecutedAmount.Equal(decimal.NewFromInt(999)) {
		t.Errorf("received = %s, want 999", report.ExecutedAmount)
	}
	if !src.Balance("USDT").IsZero() {
		t.Errorf("source balance = %s, want 0", src.Balance("USDT"))
	}
	if !dst.Balance("USDT").Equal(decimal.NewFromInt(999)) {
		t.Errorf("destination balance = %s, want 999", dst.Balance("USDT"))
	}

	report, _ = src.ExecuteWithdrawal(ctx, "USDT", decimal.NewFromInt(1), dst)
	if report.Success {
		t.Error("expected insufficient balance failure")
	}
}

func TestFromConfig(t *testing.T) {
	cfg, err := FromConfig(config.VenueConfig{
		ID:             "gamma",
		Kind:           "dex",
		Network:        "ethereum",
		Markets:        []config.MarketConfig{{Pair: "ETH-USDC", Bid: 3500}},
		WithdrawalTime: 30 * time.Second,
		Balances:       map[string]float64{"USDC": 100},
	})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if cfg.Info.Kind != domain.KindDEX || cfg.Markets[0].Pair.Base != "ETH" {
		t.Errorf("cfg = %+v", cfg)
	}
	if !cfg.Balances["USDC"].Equal(decimal.NewFromInt(100)) {
		t.Errorf("balance = %s", cfg.Balances["USDC"])
	}

	_, err = FromConfig(config.VenueConfig{ID: "bad", Markets: []config.MarketConfig{{Pair: "ETHUSDC"}}})
	if err == nil {
		t.Error("expected error for malformed pair")
	}
}

func TestVenue_FeeReporting(t *testing.T) {
	ctx := context.Background()
	pair := domain.NewPair("BTC", "USDT")

	tests := []struct {
		name        string
		venueFee    *float64
		marketFee   *float64
		wantFee     float64
		unsupported bool
		wantBought  string
	}{
		{"unset", nil, nil, 0, true, "1"},
		{"zero venue fee", FeeRate(0), nil, 0, false, "1"},
		{"venue fee", FeeRate(0.01), nil, 0.01, false, "0.99"},
		{"zero market fee overrides venue", FeeRate(0.01), FeeRate(0), 0, false, "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(Config{
				Info:    domain.Info{ID: "alpha"},
				Fee:     tt.venueFee,
				Markets: []Market{{Pair: pair, Bid: 100, Ask: 100, Fee: tt.marketFee}},
			})

			fee, err := v.Fee(ctx, pair.ID())
			if tt.unsupported {
				if !apperror.HasCode(err, apperror.CodeUnsupported) {
					t.Errorf("Fee() err = %v, want unsupported", err)
				}
			} else if err != nil || fee != tt.wantFee {
				t.Errorf("Fee() = %v, %v, want %v", fee, err, tt.wantFee)
			}

			report, err := v.ExecuteBuy(ctx, pair.ID(), decimal.NewFromInt(100), "USDT")
			if err != nil || !report.Success {
				t.Fatalf("ExecuteBuy = %+v, %v", report, err)
			}
			if !report.ExecutedAmount.Equal(decimal.RequireFromString(tt.wantBought)) {
				t.Errorf("bought %s, want %s", report.ExecutedAmount, tt.wantBought)
			}
		})
	}
}
