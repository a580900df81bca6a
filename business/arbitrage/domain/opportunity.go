package domain

import (
	"fmt"
	"time"

	graphDomain "github.com/fd1az/crossarb/business/graph/domain"
	"github.com/fd1az/crossarb/internal/apperror"
)

// HopEstimate is the simulated value flow through one edge.
type HopEstimate struct {
	Edge      graphDomain.EdgeKey
	Kind      graphDomain.ActionKind
	Rate      float64
	Fee       float64
	Liquidity float64
	AmountIn  float64
	AmountOut float64
	// FeePaid is in units of FeeAsset.
	FeePaid     float64
	FeeAsset    string
	SlippagePct float64
}

// EstimateDetails is the breakdown behind an Opportunity's profit.
type EstimateDetails struct {
	Hops         []HopEstimate
	FeesByAsset  map[string]float64
	TransferTime time.Duration
	StartAmount  float64
	FinalAmount  float64
	RawProfitPct float64
	SlippagePct  float64
	// AdjustedProfitPct is RawProfitPct minus SlippagePct.
	AdjustedProfitPct float64
}

// Opportunity is a cycle scored for execution.
type Opportunity struct {
	ID    string
	Cycle Cycle
	// ProfitPct is the post-fee, post-slippage estimate.
	ProfitPct  float64
	Steps      []ExecutionStep
	Details    EstimateDetails
	DetectedAt time.Time
}

// StartAsset is the asset the opportunity starts and ends with.
func (o *Opportunity) StartAsset() string {
	if len(o.Cycle.Nodes) > 0 {
		return o.Cycle.Start().Asset
	}
	if len(o.Steps) > 0 {
		return o.Steps[0].InputAsset()
	}
	return ""
}

// Validate checks every step, that each step consumes what the previous one
// produced where the previous one left it, and that the last step returns
// the start asset to the start venue. When a cycle is present step i must
// traverse its edge i.
func (o *Opportunity) Validate() error {
	if o == nil {
		return apperror.Validation(apperror.CodeInvalidOpportunity, "no opportunity")
	}
	if len(o.Steps) == 0 {
		return apperror.Validation(apperror.CodeInvalidOpportunity, "opportunity has no steps")
	}

	for i, s := range o.Steps {
		if err := s.Validate(); err != nil {
			return apperror.New(apperror.CodeInvalidOpportunity,
				apperror.WithContext(fmt.Sprintf("step %d", i)), apperror.WithCause(err))
		}
		if i == 0 {
			continue
		}
		prev := o.Steps[i-1]
		if prev.OutputAsset() != s.InputAsset() {
			return apperror.Validation(apperror.CodeInvalidOpportunity,
				fmt.Sprintf("step %d spends %s but step %d produces %s", i, s.InputAsset(), i-1, prev.OutputAsset()))
		}
		if prev.DestinationVenue() != s.SourceVenue() {
			return apperror.Validation(apperror.CodeInvalidOpportunity,
				fmt.Sprintf("step %d starts on %s but funds are on %s", i, s.SourceVenue(), prev.DestinationVenue()))
		}
	}

	first, last := o.Steps[0], o.Steps[len(o.Steps)-1]
	if last.OutputAsset() != first.InputAsset() || last.DestinationVenue() != first.SourceVenue() {
		return apperror.Validation(apperror.CodeInvalidOpportunity,
			fmt.Sprintf("steps end with %s@%s, not %s@%s",
				last.OutputAsset(), last.DestinationVenue(), first.InputAsset(), first.SourceVenue()))
	}

	if len(o.Cycle.Nodes) > 0 {
		return o.matchCycle()
	}
	return nil
}

// matchCycle checks the steps walk the cycle edge by edge.
func (o *Opportunity) matchCycle() error {
	if err := o.Cycle.Validate(); err != nil {
		return err
	}
	if o.Cycle.Hops() != len(o.Steps) {
		return apperror.Validation(apperror.CodeInvalidOpportunity,
			fmt.Sprintf("cycle has %d hops but %d steps", o.Cycle.Hops(), len(o.Steps)))
	}

	for i, s := range o.Steps {
		from, to := o.Cycle.Nodes[i], o.Cycle.Nodes[i+1]
		if s.InputAsset() != from.Asset || s.SourceVenue() != from.Venue {
			return apperror.Validation(apperror.CodeInvalidOpportunity,
				fmt.Sprintf("step %d spends %s@%s but the cycle is at %s", i, s.InputAsset(), s.SourceVenue(), from))
		}
		if s.OutputAsset() != to.Asset || s.DestinationVenue() != to.Venue {
			return apperror.Validation(apperror.CodeInvalidOpportunity,
				fmt.Sprintf("step %d produces %s@%s but the cycle goes to %s", i, s.OutputAsset(), s.DestinationVenue(), to))
		}
		if s.Edge != o.Cycle.Edges[i] {
			return apperror.Validation(apperror.CodeInvalidOpportunity,
				fmt.Sprintf("step %d traverses %s but cycle edge %d is %s", i, s.Edge, i, o.Cycle.Edges[i]))
		}
	}
	return nil
}
