package infra

import (
	"context"
	"errors"

	"github.com/fd1az/crossarb/business/arbitrage/app"
	"github.com/fd1az/crossarb/business/arbitrage/domain"
)

// MultiReporter fans reports out to several reporters in order.
type MultiReporter struct {
	reporters []app.Reporter
}

func NewMultiReporter(reporters ...app.Reporter) *MultiReporter {
	return &MultiReporter{reporters: reporters}
}

func (m *MultiReporter) Start(ctx context.Context) error {
	for _, r := range m.reporters {
		if err := r.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiReporter) ReportOpportunity(ctx context.Context, opp *domain.Opportunity) {
	for _, r := range m.reporters {
		r.ReportOpportunity(ctx, opp)
	}
}

func (m *MultiReporter) ReportExecution(ctx context.Context, res *domain.ExecutionResult) {
	for _, r := range m.reporters {
		r.ReportExecution(ctx, res)
	}
}

// Stop stops every reporter and joins their errors.
func (m *MultiReporter) Stop() error {
	var errs []error
	for _, r := range m.reporters {
		errs = append(errs, r.Stop())
	}
	return errors.Join(errs...)
}
