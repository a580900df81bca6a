package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/crossarb/business/arbitrage/domain"
)

// Reporter defines the interface for reporting opportunities and executions.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// ReportOpportunity publishes an opportunity that met the threshold.
	ReportOpportunity(ctx context.Context, opp *domain.Opportunity)

	// ReportExecution publishes the outcome of an execution.
	ReportExecution(ctx context.Context, res *domain.ExecutionResult)

	// Stop gracefully shuts down the reporter.
	Stop() error
}

// Allocator sizes trades. Capital policy lives outside the engine.
type Allocator interface {
	Allocate(ctx context.Context, opp *domain.Opportunity) (decimal.Decimal, error)
}
