package app

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/crossarb/business/arbitrage/domain"
	graphDomain "github.com/fd1az/crossarb/business/graph/domain"
	venueApp "github.com/fd1az/crossarb/business/venue/app"
	venueDomain "github.com/fd1az/crossarb/business/venue/domain"
	"github.com/fd1az/crossarb/internal/apm"
	"github.com/fd1az/crossarb/internal/apperror"
	"github.com/fd1az/crossarb/internal/logger"
)

// VenueResolver looks up the venues and edges an execution depends on.
// *graph/app.Graph implements it.
type VenueResolver interface {
	Venue(id string) (venueApp.Connector, bool)
	HasEdge(k graphDomain.EdgeKey) bool
}

// Orchestrator executes opportunities step by step. Each step spends
// exactly what the previous step reported, so steps never run in parallel.
type Orchestrator struct {
	venues  VenueResolver
	history *History
	log     logger.LoggerInterface
	tracer  apm.Tracer
	metrics *engineMetrics
	now     func() time.Time
}

func NewOrchestrator(venues VenueResolver, history *History, log logger.LoggerInterface) (*Orchestrator, error) {
	m, err := newEngineMetrics()
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return &Orchestrator{
		venues:  venues,
		history: history,
		log:     log.With("component", "orchestrator"),
		tracer:  apm.NewTracer(tracerName),
		metrics: m,
		now:     time.Now,
	}, nil
}

// stepOutcome classifies how a step ended.
type stepOutcome int

const (
	stepOK stepOutcome = iota
	// stepFailed halts with partial_failure.
	stepFailed
	// stepFatal halts with error: the plan no longer matches the graph.
	stepFatal
)

// Execute runs opp with amount of its start asset. A malformed opportunity
// or non-positive amount is returned as an error and nothing is recorded.
// Otherwise the result, whatever its status, is appended to History.
//
// Once started an execution is not interrupted by ctx: abandoning between
// steps would strand funds mid-cycle.
func (o *Orchestrator) Execute(ctx context.Context, opp *domain.Opportunity, amount decimal.Decimal) (*domain.ExecutionResult, error) {
	if err := opp.Validate(); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, apperror.Validation(apperror.CodeInvalidOpportunity,
			fmt.Sprintf("amount must be positive, got %s", amount))
	}

	ctx, span := o.tracer.StartSpanFromContext(context.WithoutCancel(ctx), "arbitrage.execute")
	defer span.End()
	span.SetAttributes(
		attribute.String("opportunity_id", opp.ID),
		attribute.Int("steps", len(opp.Steps)),
	)

	start := opp.StartAsset()
	res := &domain.ExecutionResult{
		OpportunityID: opp.ID,
		StartAsset:    start,
		StartAmount:   amount,
		CurrentAmount: amount,
		CurrentAsset:  start,
		CurrentVenue:  opp.Steps[0].SourceVenue(),
		Status:        domain.StatusExecuting,
		StartTime:     o.now(),
	}

	log := o.log.With("opportunity_id", opp.ID)
	log.Info(ctx, "executing opportunity", "amount", amount.String(), "asset", start, "steps", len(opp.Steps))

	for i, step := range opp.Steps {
		sr, outcome := o.runStep(ctx, i, step, res)
		res.StepResults = append(res.StepResults, sr)

		if outcome != stepOK {
			failed := i
			res.FailedStep = &failed
			res.Error = fmt.Sprintf("step %d (%s) failed: %s", i, step, sr.Error)
			res.Status = domain.StatusPartialFailure
			if outcome == stepFatal {
				res.Status = domain.StatusError
			}
			log.Warn(ctx, "execution halted",
				"step", i,
				"status", res.Status,
				"reason", sr.Error,
				"stranded_amount", res.CurrentAmount.String(),
				"stranded_asset", res.CurrentAsset,
				"stranded_venue", res.CurrentVenue,
			)
			break
		}

		res.CurrentAmount = sr.OutputAmount
		res.CurrentAsset = sr.OutputAsset
		res.CurrentVenue = step.DestinationVenue()
		res.StepsExecuted = i + 1
	}

	if res.Status == domain.StatusExecuting {
		res.Status = domain.StatusCompleted
		if res.CurrentAsset == res.StartAsset {
			profit := res.CurrentAmount.Sub(res.StartAmount)
			pct := profit.Div(res.StartAmount).Mul(decimal.NewFromInt(100))
			res.Profit = &profit
			res.ProfitPct = &pct
		}
	}
	res.EndTime = o.now()

	o.history.Append(res)
	o.metrics.executions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(res.Status))))
	span.SetAttributes(
		attribute.String("status", string(res.Status)),
		attribute.Int("steps_executed", res.StepsExecuted),
	)
	if res.Status == domain.StatusCompleted {
		span.SetOK("completed")
	} else {
		span.NoticeError(apperror.New(apperror.CodeExecutionStepFailed, apperror.WithContext(res.Error)))
	}

	args := []any{"status", res.Status, "duration", res.Duration(), "amount", res.CurrentAmount.String(), "asset", res.CurrentAsset}
	if res.ProfitPct != nil {
		args = append(args, "profit_pct", res.ProfitPct.StringFixed(4))
	}
	log.Info(ctx, "execution finished", args...)

	return res, nil
}

// runStep executes one step against the funds described by res.
func (o *Orchestrator) runStep(ctx context.Context, i int, step domain.ExecutionStep, res *domain.ExecutionResult) (domain.StepResult, stepOutcome) {
	sr := domain.StepResult{
		Index:       i,
		Kind:        step.Kind,
		Action:      step.Action,
		Venue:       step.Venue,
		Pair:        step.Pair,
		FromVenue:   step.FromVenue,
		ToVenue:     step.ToVenue,
		InputAmount: res.CurrentAmount,
		InputAsset:  res.CurrentAsset,
	}

	fatal := func(err error) (domain.StepResult, stepOutcome) {
		sr.Error = err.Error()
		return sr, stepFatal
	}

	if step.Edge != (graphDomain.EdgeKey{}) && !o.venues.HasEdge(step.Edge) {
		return fatal(apperror.New(apperror.CodeGraphInconsistency,
			apperror.WithContext(fmt.Sprintf("edge %s no longer in graph", step.Edge))))
	}

	c, ok := o.venues.Venue(step.SourceVenue())
	if !ok {
		return fatal(apperror.NotFound(apperror.CodeVenueNotFound, step.SourceVenue()))
	}

	var (
		rep venueDomain.ExecutionReport
		err error
	)
	switch {
	case step.Kind == domain.StepTransfer:
		dest, ok := o.venues.Venue(step.ToVenue)
		if !ok {
			return fatal(apperror.NotFound(apperror.CodeVenueNotFound, step.ToVenue))
		}
		rep, err = c.ExecuteWithdrawal(ctx, res.CurrentAsset, res.CurrentAmount, dest)
	case step.Action == graphDomain.SideBuy:
		rep, err = c.ExecuteBuy(ctx, step.Pair, res.CurrentAmount, res.CurrentAsset)
	default:
		rep, err = c.ExecuteSell(ctx, step.Pair, res.CurrentAmount, res.CurrentAsset)
	}

	sr.Details = rep.Details
	if err != nil {
		sr.Error = err.Error()
		return sr, stepFailed
	}
	if !rep.Success {
		sr.Error = rep.Error
		if sr.Error == "" {
			sr.Error = "venue reported failure"
		}
		return sr, stepFailed
	}

	sr.Success = true
	sr.OutputAmount = rep.ExecutedAmount
	sr.OutputAsset = rep.ResultingAsset
	if sr.OutputAsset == "" {
		sr.OutputAsset = res.CurrentAsset
		if step.Kind == domain.StepTrade {
			sr.OutputAsset = step.OutputAsset()
		}
	}
	return sr, stepOK
}
