// Package guard decorates a Connector with a per-venue rate limiter and
// circuit breaker.
package guard

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"

	"github.com/fd1az/crossarb/business/venue/app"
	"github.com/fd1az/crossarb/business/venue/domain"
	"github.com/fd1az/crossarb/internal/apperror"
	"github.com/fd1az/crossarb/internal/circuitbreaker"
	"github.com/fd1az/crossarb/internal/logger"
	"github.com/fd1az/crossarb/internal/ratelimit"
)

// Config tunes the guard.
type Config struct {
	// RequestsPerMinute caps calls to the venue. Zero disables limiting.
	RequestsPerMinute   int
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// Connector is a guarded app.Connector.
type Connector struct {
	inner   app.Connector
	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[any]
}

var _ app.Connector = (*Connector)(nil)

// Wrap guards inner.
func Wrap(inner app.Connector, cfg Config, log logger.LoggerInterface) *Connector {
	name := "venue-" + inner.Info().ID

	cbCfg := circuitbreaker.DefaultConfig(name)
	if cfg.ConsecutiveFailures > 0 {
		cbCfg.ConsecutiveFailures = cfg.ConsecutiveFailures
	}
	if cfg.OpenTimeout > 0 {
		cbCfg.Timeout = cfg.OpenTimeout
	}
	// unsupported capabilities are answers, not outages
	cbCfg.IsSuccessful = func(err error) bool {
		return err == nil || apperror.HasCode(err, apperror.CodeUnsupported)
	}
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}

	return &Connector{
		inner:   inner,
		limiter: ratelimit.New(cfg.RequestsPerMinute),
		cb:      circuitbreaker.New[any](cbCfg),
	}
}

// Unwrap returns the guarded connector.
func (c *Connector) Unwrap() app.Connector {
	return c.inner
}

// State exposes the breaker state for health checks.
func (c *Connector) State() gobreaker.State {
	return c.cb.State()
}

func call[T any](ctx context.Context, c *Connector, fn func() (T, error)) (T, error) {
	var zero T
	if err := c.limiter.Wait(ctx); err != nil {
		return zero, err
	}

	res, err := c.cb.Execute(func() (any, error) {
		v, err := fn()
		return v, err
	})
	if err != nil {
		return zero, err
	}
	v, _ := res.(T)
	return v, nil
}

func (c *Connector) Info() domain.Info {
	return c.inner.Info()
}

func (c *Connector) TradeablePairs(ctx context.Context) ([]domain.PairID, error) {
	return call(ctx, c, func() ([]domain.PairID, error) { return c.inner.TradeablePairs(ctx) })
}

func (c *Connector) Assets(ctx context.Context) ([]string, error) {
	return call(ctx, c, func() ([]string, error) { return c.inner.Assets(ctx) })
}

func (c *Connector) Fee(ctx context.Context, pair domain.PairID) (float64, error) {
	return call(ctx, c, func() (float64, error) { return c.inner.Fee(ctx, pair) })
}

func (c *Connector) Liquidity(ctx context.Context, pair domain.PairID) (float64, error) {
	return call(ctx, c, func() (float64, error) { return c.inner.Liquidity(ctx, pair) })
}

func (c *Connector) BuyPrice(ctx context.Context, pair domain.PairID) (float64, error) {
	return call(ctx, c, func() (float64, error) { return c.inner.BuyPrice(ctx, pair) })
}

func (c *Connector) SellPrice(ctx context.Context, pair domain.PairID) (float64, error) {
	return call(ctx, c, func() (float64, error) { return c.inner.SellPrice(ctx, pair) })
}

func (c *Connector) WithdrawalFee(ctx context.Context, asset string, dest app.Connector) (float64, error) {
	return call(ctx, c, func() (float64, error) { return c.inner.WithdrawalFee(ctx, asset, dest) })
}

func (c *Connector) WithdrawalTime(ctx context.Context, asset string, dest app.Connector) (time.Duration, error) {
	return call(ctx, c, func() (time.Duration, error) { return c.inner.WithdrawalTime(ctx, asset, dest) })
}

func (c *Connector) ExecuteBuy(ctx context.Context, pair domain.PairID, amount decimal.Decimal, asset string) (domain.ExecutionReport, error) {
	return call(ctx, c, func() (domain.ExecutionReport, error) { return c.inner.ExecuteBuy(ctx, pair, amount, asset) })
}

func (c *Connector) ExecuteSell(ctx context.Context, pair domain.PairID, amount decimal.Decimal, asset string) (domain.ExecutionReport, error) {
	return call(ctx, c, func() (domain.ExecutionReport, error) { return c.inner.ExecuteSell(ctx, pair, amount, asset) })
}

func (c *Connector) ExecuteWithdrawal(ctx context.Context, asset string, amount decimal.Decimal, dest app.Connector) (domain.ExecutionReport, error) {
	return call(ctx, c, func() (domain.ExecutionReport, error) {
		return c.inner.ExecuteWithdrawal(ctx, asset, amount, dest)
	})
}

// Deposit forwards to the inner venue when it accepts deposits.
func (c *Connector) Deposit(asset string, amount decimal.Decimal) {
	if d, ok := c.inner.(app.Depositor); ok {
		d.Deposit(asset, amount)
	}
}
