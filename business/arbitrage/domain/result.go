package domain

import (
	"time"

	"github.com/shopspring/decimal"

	graphDomain "github.com/fd1az/crossarb/business/graph/domain"
	venueDomain "github.com/fd1az/crossarb/business/venue/domain"
)

// Status is the state of an execution.
type Status string

const (
	StatusExecuting      Status = "executing"
	StatusCompleted      Status = "completed"
	StatusPartialFailure Status = "partial_failure"
	StatusError          Status = "error"
)

// IsTerminal reports whether the execution has stopped.
func (s Status) IsTerminal() bool {
	return s != StatusExecuting
}

// StepResult records what one step did.
type StepResult struct {
	Index     int
	Kind      StepKind
	Action    graphDomain.Side
	Venue     string
	Pair      venueDomain.PairID
	FromVenue string
	ToVenue   string

	InputAmount  decimal.Decimal
	InputAsset   string
	OutputAmount decimal.Decimal
	OutputAsset  string

	Success bool
	Error   string
	Details map[string]string
}

// ExecutionResult tracks an opportunity's execution. On partial failure
// CurrentAmount and CurrentAsset locate the stranded funds.
type ExecutionResult struct {
	OpportunityID string
	StartAsset    string
	StartAmount   decimal.Decimal
	CurrentAmount decimal.Decimal
	CurrentAsset  string
	// CurrentVenue is where CurrentAmount is held.
	CurrentVenue  string
	StepsExecuted int
	StepResults   []StepResult
	Status        Status
	Error         string
	// FailedStep is the index of the step that halted execution.
	FailedStep *int
	// Profit and ProfitPct are set only when the cycle closed in StartAsset.
	Profit    *decimal.Decimal
	ProfitPct *decimal.Decimal
	StartTime time.Time
	EndTime   time.Time
}

// Duration is how long the execution ran.
func (r *ExecutionResult) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}
