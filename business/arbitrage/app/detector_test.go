package app

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/crossarb/business/arbitrage/domain"
	"github.com/fd1az/crossarb/internal/apperror"
	"github.com/fd1az/crossarb/internal/logger"
)

type recordingReporter struct {
	opportunities chan *domain.Opportunity
	executions    chan *domain.ExecutionResult
	stopped       bool
}

func newRecordingReporter() *recordingReporter {
	return &recordingReporter{
		opportunities: make(chan *domain.Opportunity, 10),
		executions:    make(chan *domain.ExecutionResult, 10),
	}
}

func (r *recordingReporter) Start(ctx context.Context) error { return nil }

func (r *recordingReporter) ReportOpportunity(ctx context.Context, opp *domain.Opportunity) {
	r.opportunities <- opp
}

func (r *recordingReporter) ReportExecution(ctx context.Context, res *domain.ExecutionResult) {
	r.executions <- res
}

func (r *recordingReporter) Stop() error {
	r.stopped = true
	return nil
}

func TestDetector_ScansAfterRefresh(t *testing.T) {
	f := newFixture(t, true, triangleVenue("x"))
	rep := newRecordingReporter()

	d := NewDetector(f.engine, f.refresher, NewFixedAllocator(decimal.NewFromInt(100)), rep,
		DetectorConfig{StartAssets: []string{"USDT"}, MinProfitPct: 1, Execute: true}, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	f.refresh(t)

	select {
	case opp := <-rep.opportunities:
		if opp.StartAsset() != "USDT" || opp.ProfitPct < 1 {
			t.Errorf("reported %s at %.4f%%", opp.Cycle, opp.ProfitPct)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no opportunity reported")
	}

	select {
	case res := <-rep.executions:
		if res.Status != domain.StatusCompleted || !res.StartAmount.Equal(decimal.NewFromInt(100)) {
			t.Errorf("execution = %+v", res)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no execution reported")
	}

	cancel()
	if err := d.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !rep.stopped {
		t.Error("reporter not stopped")
	}
}

func TestDetector_ReportOnly(t *testing.T) {
	f := newFixture(t, true, triangleVenue("x"))
	f.refresh(t)
	rep := newRecordingReporter()

	d := NewDetector(f.engine, f.refresher, NewFixedAllocator(decimal.NewFromInt(100)), rep,
		DetectorConfig{StartAssets: []string{"USDT", "DOGE"}}, logger.NewNop())
	d.Scan(context.Background())

	if len(rep.opportunities) != 1 {
		t.Errorf("reported %d opportunities, want 1", len(rep.opportunities))
	}
	if len(rep.executions) != 0 || len(f.engine.History()) != 0 {
		t.Error("executed with execution disabled")
	}
}

func TestDetector_StopWithoutStart(t *testing.T) {
	f := newFixture(t, true, triangleVenue("x"))
	rep := newRecordingReporter()
	d := NewDetector(f.engine, f.refresher, NewFixedAllocator(decimal.NewFromInt(1)), rep, DetectorConfig{}, logger.NewNop())

	if err := d.Stop(); err != nil || !rep.stopped {
		t.Errorf("Stop() = %v, stopped %v", err, rep.stopped)
	}
}

func TestDetector_StopEndsLoopWithoutCancel(t *testing.T) {
	f := newFixture(t, true, triangleVenue("x"))
	rep := newRecordingReporter()
	d := NewDetector(f.engine, f.refresher, NewFixedAllocator(decimal.NewFromInt(1)), rep,
		DetectorConfig{StartAssets: []string{"USDT"}}, logger.NewNop())

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	stopped := make(chan error, 1)
	go func() { stopped <- d.Stop() }()

	select {
	case err := <-stopped:
		if err != nil || !rep.stopped {
			t.Errorf("Stop() = %v, stopped %v", err, rep.stopped)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Stop blocked on an uncancelled context")
	}

	if err := d.Stop(); err != nil {
		t.Errorf("second Stop() = %v", err)
	}
}

func TestFixedAllocator(t *testing.T) {
	amount, err := NewFixedAllocator(decimal.NewFromInt(250)).Allocate(context.Background(), &domain.Opportunity{})
	if err != nil || !amount.Equal(decimal.NewFromInt(250)) {
		t.Errorf("Allocate() = %s, %v", amount, err)
	}

	if _, err := NewFixedAllocator(decimal.Zero).Allocate(context.Background(), &domain.Opportunity{}); !apperror.HasCode(err, apperror.CodeInvalidTradeSize) {
		t.Errorf("zero allocation: %v", err)
	}
}
