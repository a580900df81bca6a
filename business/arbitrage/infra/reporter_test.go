package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/crossarb/business/arbitrage/domain"
	graphDomain "github.com/fd1az/crossarb/business/graph/domain"
	venueDomain "github.com/fd1az/crossarb/business/venue/domain"
	"github.com/fd1az/crossarb/internal/logger"
)

func sampleOpportunity() *domain.Opportunity {
	pair := venueDomain.NewPair("BTC", "USDT")
	usdt, btc := graphDomain.Node("USDT", "x"), graphDomain.Node("BTC", "x")
	return &domain.Opportunity{
		ID: "opp-1",
		Cycle: domain.Cycle{
			Nodes: []graphDomain.NodeID{usdt, btc, usdt},
			Edges: []graphDomain.EdgeKey{
				{From: usdt, To: btc, Pair: pair.ID()},
				{From: btc, To: usdt, Pair: pair.ID()},
			},
		},
		ProfitPct: 0.15,
		Steps: []domain.ExecutionStep{
			domain.TradeStep("x", pair, graphDomain.SideBuy),
			domain.TradeStep("x", pair, graphDomain.SideSell),
		},
		Details: domain.EstimateDetails{
			RawProfitPct: 0.2,
			SlippagePct:  0.05,
		},
		DetectedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func sampleResult() *domain.ExecutionResult {
	failed := 1
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return &domain.ExecutionResult{
		OpportunityID: "opp-1",
		StartAsset:    "USDT",
		StartAmount:   decimal.NewFromInt(100),
		CurrentAmount: decimal.RequireFromString("0.002"),
		CurrentAsset:  "BTC",
		CurrentVenue:  "x",
		StepsExecuted: 1,
		StepResults:   []domain.StepResult{{Index: 0, Success: true}, {Index: 1, Error: "market closed"}},
		Status:        domain.StatusPartialFailure,
		Error:         "step 1 failed: market closed",
		FailedStep:    &failed,
		StartTime:     start,
		EndTime:       start.Add(250 * time.Millisecond),
	}
}

func TestWebhookReporter_PostsEvents(t *testing.T) {
	var (
		mu     sync.Mutex
		events []WebhookEvent
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev WebhookEvent
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	r, err := NewWebhookReporter(srv.URL, time.Second, logger.NewNop())
	if err != nil {
		t.Fatalf("NewWebhookReporter: %v", err)
	}

	ctx := context.Background()
	r.ReportOpportunity(ctx, sampleOpportunity())
	r.ReportExecution(ctx, sampleResult())

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}

	opp := events[0]
	if opp.Type != "opportunity" || opp.Opportunity == nil || opp.Execution != nil {
		t.Fatalf("first event = %+v", opp)
	}
	if o := opp.Opportunity; o.ID != "opp-1" || o.StartAsset != "USDT" || len(o.Cycle) != 3 || len(o.Steps) != 2 || o.AdjustedProfitPct != 0.15 {
		t.Errorf("opportunity = %+v", o)
	}

	exec := events[1]
	if exec.Type != "execution" || exec.Execution == nil {
		t.Fatalf("second event = %+v", exec)
	}
	e := exec.Execution
	if e.Status != "partial_failure" || e.CurrentAsset != "BTC" || e.CurrentAmount != "0.002" || e.FailedStep == nil || *e.FailedStep != 1 {
		t.Errorf("execution = %+v", e)
	}
	if e.Profit != "" || e.DurationMs != 250 {
		t.Errorf("profit %q duration %v", e.Profit, e.DurationMs)
	}
}

func TestWebhookReporter_SurvivesRejection(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r, err := NewWebhookReporter(srv.URL, time.Second, logger.NewNop())
	if err != nil {
		t.Fatalf("NewWebhookReporter: %v", err)
	}
	r.ReportOpportunity(context.Background(), sampleOpportunity())
	if calls == 0 {
		t.Error("no delivery attempted")
	}
}

func TestConsoleReporter_Output(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporterTo(&buf)

	ctx := context.Background()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	r.ReportOpportunity(ctx, sampleOpportunity())
	r.ReportExecution(ctx, sampleResult())
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"opp-1",
		"USDT@x -> BTC@x -> USDT@x",
		"buy BTC-USDT on x",
		"partial_failure",
		"0.002 BTC on x",
		"market closed",
		"crossarb stopped",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

type stubReporter struct {
	opportunities int
	executions    int
	stopErr       error
}

func (s *stubReporter) Start(ctx context.Context) error { return nil }

func (s *stubReporter) ReportOpportunity(ctx context.Context, opp *domain.Opportunity) {
	s.opportunities++
}

func (s *stubReporter) ReportExecution(ctx context.Context, res *domain.ExecutionResult) {
	s.executions++
}

func (s *stubReporter) Stop() error { return s.stopErr }

func TestMultiReporter_FansOut(t *testing.T) {
	boom := errors.New("flush failed")
	a, b := &stubReporter{}, &stubReporter{stopErr: boom}
	m := NewMultiReporter(a, b)

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	m.ReportOpportunity(ctx, sampleOpportunity())
	m.ReportExecution(ctx, sampleResult())

	if a.opportunities != 1 || b.opportunities != 1 || a.executions != 1 || b.executions != 1 {
		t.Errorf("a=%+v b=%+v", a, b)
	}
	if err := m.Stop(); !errors.Is(err, boom) {
		t.Errorf("Stop() = %v", err)
	}
}
