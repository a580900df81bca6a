package app

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fd1az/crossarb/business/arbitrage/domain"
	graphDomain "github.com/fd1az/crossarb/business/graph/domain"
	"github.com/fd1az/crossarb/internal/apperror"
)

const (
	// maxHopSlippagePct caps the slippage charged to one hop.
	maxHopSlippagePct = 5.0
	// slippageFactor converts the fraction of liquidity consumed into percent.
	slippageFactor = 0.5
)

// ProfitEstimator simulates value flow through cycles.
type ProfitEstimator struct {
	now func() time.Time
}

func NewProfitEstimator() *ProfitEstimator {
	return &ProfitEstimator{now: time.Now}
}

// HopSlippagePct is the slippage charged for pushing amount through an edge
// with the given liquidity.
func HopSlippagePct(amount, liquidity float64) float64 {
	if liquidity <= 0 {
		return maxHopSlippagePct
	}
	return math.Min(maxHopSlippagePct, amount/liquidity*slippageFactor)
}

// Estimate runs amount of the start asset through c using the rates in s.
func (p *ProfitEstimator) Estimate(s *graphDomain.Snapshot, c domain.Cycle, amount float64) (domain.EstimateDetails, error) {
	if err := c.Validate(); err != nil {
		return domain.EstimateDetails{}, err
	}
	if amount <= 0 {
		return domain.EstimateDetails{}, apperror.Validation(apperror.CodeInvalidTradeSize, fmt.Sprintf("amount %v", amount))
	}

	d := domain.EstimateDetails{
		Hops:        make([]domain.HopEstimate, 0, c.Hops()),
		FeesByAsset: make(map[string]float64),
		StartAmount: amount,
	}

	cur := amount
	for _, k := range c.Edges {
		e, ok := s.Edge(k)
		if !ok {
			return domain.EstimateDetails{}, apperror.New(apperror.CodeGraphInconsistency,
				apperror.WithContext(fmt.Sprintf("edge %s not in graph", k)))
		}
		a := e.Attrs
		if !a.Traversable() {
			return domain.EstimateDetails{}, apperror.New(apperror.CodeGraphInconsistency,
				apperror.WithContext(fmt.Sprintf("edge %s has no valid rate", k)))
		}

		h := domain.HopEstimate{
			Edge:        k,
			Kind:        e.Kind,
			Rate:        a.Rate,
			Fee:         a.Fee,
			Liquidity:   a.Liquidity,
			AmountIn:    cur,
			SlippagePct: HopSlippagePct(cur, a.Liquidity),
		}

		if e.Kind == graphDomain.ActionTransfer {
			h.AmountOut = cur * (1 - a.Fee)
			h.FeePaid = cur * a.Fee
			h.FeeAsset = k.From.Asset
			d.TransferTime += a.TransferTime
		} else {
			gross := cur * a.Rate
			h.AmountOut = gross * (1 - a.Fee)
			h.FeePaid = gross * a.Fee
			h.FeeAsset = k.To.Asset
		}

		d.FeesByAsset[h.FeeAsset] += h.FeePaid
		d.SlippagePct += h.SlippagePct
		d.Hops = append(d.Hops, h)
		cur = h.AmountOut
	}

	d.FinalAmount = cur
	d.RawProfitPct = (cur/amount - 1) * 100
	d.AdjustedProfitPct = d.RawProfitPct - d.SlippagePct
	return d, nil
}

// BuildSteps turns each cycle edge into the venue action that traverses it.
func (p *ProfitEstimator) BuildSteps(s *graphDomain.Snapshot, c domain.Cycle) ([]domain.ExecutionStep, error) {
	steps := make([]domain.ExecutionStep, 0, c.Hops())
	for _, k := range c.Edges {
		e, ok := s.Edge(k)
		if !ok {
			return nil, apperror.New(apperror.CodeGraphInconsistency,
				apperror.WithContext(fmt.Sprintf("edge %s not in graph", k)))
		}

		var step domain.ExecutionStep
		if e.Kind == graphDomain.ActionTransfer {
			step = domain.TransferStep(k.From.Asset, k.From.Venue, k.To.Venue)
		} else {
			step = domain.TradeStep(e.Venue(), e.Pair, e.Side)
		}
		step.Edge = k
		steps = append(steps, step)
	}
	return steps, nil
}

// Evaluate scores cycles with one unit of the start asset and returns those
// whose adjusted profit reaches minProfitPct, best first. Equal profits are
// ordered by cycle key. Cycles that cannot be scored are dropped.
func (p *ProfitEstimator) Evaluate(s *graphDomain.Snapshot, cycles []domain.Cycle, minProfitPct float64) []domain.Opportunity {
	var out []domain.Opportunity
	now := p.now()

	for _, c := range cycles {
		d, err := p.Estimate(s, c, 1)
		if err != nil || d.AdjustedProfitPct < minProfitPct {
			continue
		}
		steps, err := p.BuildSteps(s, c)
		if err != nil {
			continue
		}
		out = append(out, domain.Opportunity{
			ID:         uuid.NewString(),
			Cycle:      c,
			ProfitPct:  d.AdjustedProfitPct,
			Steps:      steps,
			Details:    d,
			DetectedAt: now,
		})
	}

	SortOpportunities(out)
	return out
}

// SortOpportunities orders by adjusted profit descending, then cycle key.
func SortOpportunities(opps []domain.Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		if opps[i].ProfitPct != opps[j].ProfitPct {
			return opps[i].ProfitPct > opps[j].ProfitPct
		}
		return opps[i].Cycle.Key() < opps[j].Cycle.Key()
	})
}
