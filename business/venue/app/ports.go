// Package app defines the venue connector port consumed by the engine.
package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/crossarb/business/venue/domain"
)

// Connector is the capability contract every venue adapter implements.
//
// Every method may fail. A capability the venue does not offer returns an
// error carrying apperror.CodeUnsupported; callers fall back to defaults.
type Connector interface {
	Info() domain.Info

	TradeablePairs(ctx context.Context) ([]domain.PairID, error)
	Assets(ctx context.Context) ([]string, error)

	// Fee is proportional, 0 to 1.
	Fee(ctx context.Context, pair domain.PairID) (float64, error)
	// Liquidity is a normalized capacity estimate in units of the amount
	// entering the market.
	Liquidity(ctx context.Context, pair domain.PairID) (float64, error)

	// BuyPrice is base received per unit of quote spent.
	BuyPrice(ctx context.Context, pair domain.PairID) (float64, error)
	// SellPrice is quote received per unit of base sold.
	SellPrice(ctx context.Context, pair domain.PairID) (float64, error)

	// WithdrawalFee is proportional, 0 to 1.
	WithdrawalFee(ctx context.Context, asset string, dest Connector) (float64, error)
	WithdrawalTime(ctx context.Context, asset string, dest Connector) (time.Duration, error)

	// ExecuteBuy spends amount of asset (the pair's quote).
	ExecuteBuy(ctx context.Context, pair domain.PairID, amount decimal.Decimal, asset string) (domain.ExecutionReport, error)
	// ExecuteSell spends amount of asset (the pair's base).
	ExecuteSell(ctx context.Context, pair domain.PairID, amount decimal.Decimal, asset string) (domain.ExecutionReport, error)
	ExecuteWithdrawal(ctx context.Context, asset string, amount decimal.Decimal, dest Connector) (domain.ExecutionReport, error)
}

// Depositor is implemented by venues that can be credited by a withdrawal
// from another in-process venue.
type Depositor interface {
	Deposit(asset string, amount decimal.Decimal)
}
