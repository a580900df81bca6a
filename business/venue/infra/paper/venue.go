// Package paper implements an in-memory venue that fills orders against
// configured quotes. It backs dry runs and tests.
package paper

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/crossarb/business/venue/app"
	"github.com/fd1az/crossarb/business/venue/domain"
	"github.com/fd1az/crossarb/internal/apperror"
	"github.com/fd1az/crossarb/internal/config"
)

// Op names a Connector method for fault injection and call counting.
type Op string

const (
	OpTradeablePairs Op = "TradeablePairs"
	OpAssets         Op = "Assets"
	OpFee            Op = "Fee"
	OpLiquidity      Op = "Liquidity"
	OpBuyPrice       Op = "BuyPrice"
	OpSellPrice      Op = "SellPrice"
	OpWithdrawalFee  Op = "WithdrawalFee"
	OpWithdrawalTime Op = "WithdrawalTime"
	OpExecuteBuy     Op = "ExecuteBuy"
	OpExecuteSell    Op = "ExecuteSell"
	OpWithdraw       Op = "ExecuteWithdrawal"
)

// Market is one quoted pair. Bid and Ask are quote units per base unit.
// A nil Fee or zero Liquidity defers to the venue-wide value.
type Market struct {
	Pair      domain.Pair
	Bid       float64
	Ask       float64
	Fee       *float64
	Liquidity float64
}

// Config describes a paper venue.
type Config struct {
	Info domain.Info
	// Fee applies to markets without their own. Nil means the venue does not
	// report a fee and fills free of charge.
	Fee       *float64
	Liquidity float64
	Markets   []Market
	// Assets overrides the asset list derived from Markets.
	Assets         []string
	WithdrawalFees map[string]float64
	WithdrawalTime time.Duration
	// Balances enables balance checks when non-empty.
	Balances map[string]decimal.Decimal
}

// FeeRate returns a pointer to f for Config.Fee and Market.Fee.
func FeeRate(f float64) *float64 {
	return &f
}

// FromConfig converts a loaded venue section.
func FromConfig(vc config.VenueConfig) (Config, error) {
	cfg := Config{
		Info: domain.Info{
			ID:      vc.ID,
			Kind:    domain.Kind(vc.Kind),
			Network: vc.Network,
		},
		Fee:            vc.Fee,
		Liquidity:      vc.Liquidity,
		Assets:         vc.Assets,
		WithdrawalFees: vc.WithdrawalFees,
		WithdrawalTime: vc.WithdrawalTime,
		Balances:       make(map[string]decimal.Decimal, len(vc.Balances)),
	}

	for _, mc := range vc.Markets {
		pair, err := domain.ParsePair(domain.PairID(mc.Pair))
		if err != nil {
			return Config{}, apperror.Wrap(err, apperror.CodeConfigurationError, vc.ID)
		}
		cfg.Markets = append(cfg.Markets, Market{
			Pair:      pair,
			Bid:       mc.Bid,
			Ask:       mc.Ask,
			Fee:       mc.Fee,
			Liquidity: mc.Liquidity,
		})
	}

	for asset, amount := range vc.Balances {
		cfg.Balances[asset] = decimal.NewFromFloat(amount)
	}

	return cfg, nil
}

// Venue is a paper-trading Connector.
type Venue struct {
	info domain.Info

	mu             sync.Mutex
	fee            *float64
	liquidity      float64
	markets        map[domain.PairID]*Market
	order          []domain.PairID
	assets         []string
	withdrawalFees map[string]float64
	withdrawalTime time.Duration
	balances       map[string]decimal.Decimal
	trackBalances  bool
	failures       map[Op]error
	rejects        map[Op]string
	calls          map[Op]int
}

var _ app.Connector = (*Venue)(nil)

// New builds a Venue from cfg.
func New(cfg Config) *Venue {
	v := &Venue{
		info:           cfg.Info,
		fee:            cfg.Fee,
		liquidity:      cfg.Liquidity,
		markets:        make(map[domain.PairID]*Market, len(cfg.Markets)),
		withdrawalFees: make(map[string]float64, len(cfg.WithdrawalFees)),
		withdrawalTime: cfg.WithdrawalTime,
		balances:       make(map[string]decimal.Decimal, len(cfg.Balances)),
		trackBalances:  len(cfg.Balances) > 0,
		failures:       make(map[Op]error),
		rejects:        make(map[Op]string),
		calls:          make(map[Op]int),
	}

	seen := make(map[string]bool)
	for i := range cfg.Markets {
		m := cfg.Markets[i]
		id := m.Pair.ID()
		if _, dup := v.markets[id]; !dup {
			v.order = append(v.order, id)
		}
		v.markets[id] = &m
		for _, a := range []string{m.Pair.Base, m.Pair.Quote} {
			if !seen[a] {
				seen[a] = true
				v.assets = append(v.assets, a)
			}
		}
	}
	if len(cfg.Assets) > 0 {
		v.assets = append([]string(nil), cfg.Assets...)
	}
	sort.Strings(v.assets)

	for k, f := range cfg.WithdrawalFees {
		v.withdrawalFees[k] = f
	}
	for k, b := range cfg.Balances {
		v.balances[k] = b
	}

	return v
}

// SetQuote replaces a market's bid and ask, adding the market if needed.
func (v *Venue) SetQuote(pair domain.Pair, bid, ask float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	id := pair.ID()
	m, ok := v.markets[id]
	if !ok {
		m = &Market{Pair: pair}
		v.markets[id] = m
		v.order = append(v.order, id)
	}
	m.Bid, m.Ask = bid, ask
}

// FailOn makes op return err. A nil err clears the fault.
func (v *Venue) FailOn(op Op, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err == nil {
		delete(v.failures, op)
		return
	}
	v.failures[op] = err
}

// RejectOn makes an execute op report Success=false with reason.
func (v *Venue) RejectOn(op Op, reason string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if reason == "" {
		delete(v.rejects, op)
		return
	}
	v.rejects[op] = reason
}

// Calls returns how many times op was invoked.
func (v *Venue) Calls(op Op) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls[op]
}

// Balance returns the tracked balance of asset.
func (v *Venue) Balance(asset string) decimal.Decimal {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balances[asset]
}

// Deposit credits asset. It implements app.Depositor.
func (v *Venue) Deposit(asset string, amount decimal.Decimal) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.balances[asset] = v.balances[asset].Add(amount)
}

func (v *Venue) Info() domain.Info {
	return v.info
}

// enter counts the call and returns an injected fault. Caller holds mu.
func (v *Venue) enter(op Op) error {
	v.calls[op]++
	return v.failures[op]
}

func (v *Venue) TradeablePairs(ctx context.Context) ([]domain.PairID, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.enter(OpTradeablePairs); err != nil {
		return nil, err
	}
	return append([]domain.PairID(nil), v.order...), nil
}

func (v *Venue) Assets(ctx context.Context) ([]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.enter(OpAssets); err != nil {
		return nil, err
	}
	return append([]string(nil), v.assets...), nil
}

func (v *Venue) Fee(ctx context.Context, pair domain.PairID) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.enter(OpFee); err != nil {
		return 0, err
	}
	m, err := v.market(pair)
	if err != nil {
		return 0, err
	}
	fee, ok := v.feeFor(m)
	if !ok {
		return 0, apperror.Unsupported(v.info.ID, string(OpFee))
	}
	return fee, nil
}

func (v *Venue) Liquidity(ctx context.Context, pair domain.PairID) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.enter(OpLiquidity); err != nil {
		return 0, err
	}
	m, err := v.market(pair)
	if err != nil {
		return 0, err
	}
	liq := m.Liquidity
	if liq <= 0 {
		liq = v.liquidity
	}
	if liq <= 0 {
		return 0, apperror.Unsupported(v.info.ID, string(OpLiquidity))
	}
	return liq, nil
}

func (v *Venue) BuyPrice(ctx context.Context, pair domain.PairID) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.enter(OpBuyPrice); err != nil {
		return 0, err
	}
	m, err := v.market(pair)
	if err != nil {
		return 0, err
	}
	ask := m.ask()
	if ask <= 0 {
		return 0, nil
	}
	return 1 / ask, nil
}

func (v *Venue) SellPrice(ctx context.Context, pair domain.PairID) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.enter(OpSellPrice); err != nil {
		return 0, err
	}
	m, err := v.market(pair)
	if err != nil {
		return 0, err
	}
	return m.bid(), nil
}

func (v *Venue) WithdrawalFee(ctx context.Context, asset string, dest app.Connector) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.enter(OpWithdrawalFee); err != nil {
		return 0, err
	}
	fee, ok := v.withdrawalFees[asset]
	if !ok {
		return 0, apperror.Unsupported(v.info.ID, string(OpWithdrawalFee))
	}
	return fee, nil
}

func (v *Venue) WithdrawalTime(ctx context.Context, asset string, dest app.Connector) (time.Duration, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.enter(OpWithdrawalTime); err != nil {
		return 0, err
	}
	if v.withdrawalTime <= 0 {
		return 0, apperror.Unsupported(v.info.ID, string(OpWithdrawalTime))
	}
	return v.withdrawalTime, nil
}

func (v *Venue) ExecuteBuy(ctx context.Context, pair domain.PairID, amount decimal.Decimal, asset string) (domain.ExecutionReport, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.enter(OpExecuteBuy); err != nil {
		return domain.ExecutionReport{}, err
	}
	if reason, ok := v.rejects[OpExecuteBuy]; ok {
		return domain.Failed(reason), nil
	}

	m, err := v.market(pair)
	if err != nil {
		return domain.Failed(err.Error()), nil
	}
	if asset != m.Pair.Quote {
		return domain.Failed(fmt.Sprintf("buy %s spends %s, got %s", pair, m.Pair.Quote, asset)), nil
	}
	ask := m.ask()
	if ask <= 0 {
		return domain.Failed(fmt.Sprintf("no ask for %s", pair)), nil
	}

	rate, _ := v.feeFor(m)
	fee := decimal.NewFromFloat(rate)
	out := amount.Div(decimal.NewFromFloat(ask)).Mul(decimal.NewFromInt(1).Sub(fee))
	return v.settle(asset, amount, m.Pair.Base, out, ask, fee)
}

func (v *Venue) ExecuteSell(ctx context.Context, pair domain.PairID, amount decimal.Decimal, asset string) (domain.ExecutionReport, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.enter(OpExecuteSell); err != nil {
		return domain.ExecutionReport{}, err
	}
	if reason, ok := v.rejects[OpExecuteSell]; ok {
		return domain.Failed(reason), nil
	}

	m, err := v.market(pair)
	if err != nil {
		return domain.Failed(err.Error()), nil
	}
	if asset != m.Pair.Base {
		return domain.Failed(fmt.Sprintf("sell %s spends %s, got %s", pair, m.Pair.Base, asset)), nil
	}
	bid := m.bid()
	if bid <= 0 {
		return domain.Failed(fmt.Sprintf("no bid for %s", pair)), nil
	}

	rate, _ := v.feeFor(m)
	fee := decimal.NewFromFloat(rate)
	out := amount.Mul(decimal.NewFromFloat(bid)).Mul(decimal.NewFromInt(1).Sub(fee))
	return v.settle(asset, amount, m.Pair.Quote, out, bid, fee)
}

func (v *Venue) ExecuteWithdrawal(ctx context.Context, asset string, amount decimal.Decimal, dest app.Connector) (domain.ExecutionReport, error) {
	v.mu.Lock()
	if err := v.enter(OpWithdraw); err != nil {
		v.mu.Unlock()
		return domain.ExecutionReport{}, err
	}
	if reason, ok := v.rejects[OpWithdraw]; ok {
		v.mu.Unlock()
		return domain.Failed(reason), nil
	}
	if err := v.debit(asset, amount); err != nil {
		v.mu.Unlock()
		return domain.Failed(err.Error()), nil
	}

	fee := decimal.NewFromFloat(v.withdrawalFees[asset])
	out := amount.Mul(decimal.NewFromInt(1).Sub(fee))
	v.mu.Unlock()

	// credit outside our lock: dest may be another paper venue
	if d, ok := dest.(app.Depositor); ok {
		d.Deposit(asset, out)
	}

	report := domain.Filled(out, asset)
	report.Details["destination"] = dest.Info().ID
	report.Details["fee"] = fee.String()
	return report, nil
}

// settle moves balances for a fill. Caller holds mu.
func (v *Venue) settle(in string, amountIn decimal.Decimal, out string, amountOut decimal.Decimal, price float64, fee decimal.Decimal) (domain.ExecutionReport, error) {
	if err := v.debit(in, amountIn); err != nil {
		return domain.Failed(err.Error()), nil
	}
	if v.trackBalances {
		v.balances[out] = v.balances[out].Add(amountOut)
	}

	report := domain.Filled(amountOut, out)
	report.Details["price"] = decimal.NewFromFloat(price).String()
	report.Details["fee"] = fee.String()
	return report, nil
}

func (v *Venue) debit(asset string, amount decimal.Decimal) error {
	if !v.trackBalances {
		return nil
	}
	if v.balances[asset].LessThan(amount) {
		return apperror.New(apperror.CodeInsufficientBalance,
			apperror.WithContext(fmt.Sprintf("%s has %s %s, need %s", v.info.ID, v.balances[asset], asset, amount)))
	}
	v.balances[asset] = v.balances[asset].Sub(amount)
	return nil
}

func (v *Venue) market(pair domain.PairID) (*Market, error) {
	m, ok := v.markets[pair]
	if !ok {
		return nil, apperror.NotFound(apperror.CodeInvalidPair, fmt.Sprintf("%s on %s", pair, v.info.ID))
	}
	return m, nil
}

// feeFor returns the trading fee of m and whether one is configured.
// Fills without a configured fee are free.
func (v *Venue) feeFor(m *Market) (float64, bool) {
	switch {
	case m.Fee != nil:
		return *m.Fee, true
	case v.fee != nil:
		return *v.fee, true
	default:
		return 0, false
	}
}

func (m *Market) ask() float64 {
	if m.Ask > 0 {
		return m.Ask
	}
	return m.Bid
}

func (m *Market) bid() float64 {
	if m.Bid > 0 {
		return m.Bid
	}
	return m.Ask
}
