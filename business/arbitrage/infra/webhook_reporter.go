package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/fd1az/crossarb/business/arbitrage/domain"
	"github.com/fd1az/crossarb/internal/httpclient"
	"github.com/fd1az/crossarb/internal/logger"
)

// WebhookEvent is the JSON document posted for every report.
type WebhookEvent struct {
	Type        string            `json:"type"`
	Timestamp   time.Time         `json:"timestamp"`
	Opportunity *OpportunityEvent `json:"opportunity,omitempty"`
	Execution   *ExecutionEvent   `json:"execution,omitempty"`
}

type OpportunityEvent struct {
	ID                string   `json:"id"`
	StartAsset        string   `json:"start_asset"`
	Cycle             []string `json:"cycle"`
	Steps             []string `json:"steps"`
	RawProfitPct      float64  `json:"raw_profit_pct"`
	SlippagePct       float64  `json:"slippage_pct"`
	AdjustedProfitPct float64  `json:"adjusted_profit_pct"`
	TransferSeconds   float64  `json:"transfer_seconds"`
}

type ExecutionEvent struct {
	OpportunityID string  `json:"opportunity_id"`
	Status        string  `json:"status"`
	StartAsset    string  `json:"start_asset"`
	StartAmount   string  `json:"start_amount"`
	CurrentAsset  string  `json:"current_asset"`
	CurrentAmount string  `json:"current_amount"`
	CurrentVenue  string  `json:"current_venue"`
	StepsExecuted int     `json:"steps_executed"`
	FailedStep    *int    `json:"failed_step,omitempty"`
	Error         string  `json:"error,omitempty"`
	Profit        string  `json:"profit,omitempty"`
	ProfitPct     string  `json:"profit_pct,omitempty"`
	DurationMs    float64 `json:"duration_ms"`
}

// WebhookReporter posts events to an HTTP endpoint. Delivery failures are
// logged and dropped.
type WebhookReporter struct {
	client httpclient.Client
	url    string
	log    logger.LoggerInterface
	now    func() time.Time
}

// NewWebhookReporter creates a reporter posting to url.
func NewWebhookReporter(url string, timeout time.Duration, log logger.LoggerInterface) (*WebhookReporter, error) {
	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("webhook"),
		httpclient.WithRequestTimeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("webhook client: %w", err)
	}
	return &WebhookReporter{
		client: client,
		url:    url,
		log:    log.With("component", "webhook_reporter"),
		now:    time.Now,
	}, nil
}

func (r *WebhookReporter) Start(ctx context.Context) error {
	r.log.Info(ctx, "webhook reporter started", "url", r.url)
	return nil
}

func (r *WebhookReporter) ReportOpportunity(ctx context.Context, opp *domain.Opportunity) {
	nodes := make([]string, len(opp.Cycle.Nodes))
	for i, n := range opp.Cycle.Nodes {
		nodes[i] = n.String()
	}
	steps := make([]string, len(opp.Steps))
	for i, s := range opp.Steps {
		steps[i] = s.String()
	}

	r.post(ctx, WebhookEvent{
		Type:      "opportunity",
		Timestamp: r.now(),
		Opportunity: &OpportunityEvent{
			ID:                opp.ID,
			StartAsset:        opp.StartAsset(),
			Cycle:             nodes,
			Steps:             steps,
			RawProfitPct:      opp.Details.RawProfitPct,
			SlippagePct:       opp.Details.SlippagePct,
			AdjustedProfitPct: opp.ProfitPct,
			TransferSeconds:   opp.Details.TransferTime.Seconds(),
		},
	})
}

func (r *WebhookReporter) ReportExecution(ctx context.Context, res *domain.ExecutionResult) {
	ev := &ExecutionEvent{
		OpportunityID: res.OpportunityID,
		Status:        string(res.Status),
		StartAsset:    res.StartAsset,
		StartAmount:   res.StartAmount.String(),
		CurrentAsset:  res.CurrentAsset,
		CurrentAmount: res.CurrentAmount.String(),
		CurrentVenue:  res.CurrentVenue,
		StepsExecuted: res.StepsExecuted,
		FailedStep:    res.FailedStep,
		Error:         res.Error,
		DurationMs:    float64(res.Duration().Microseconds()) / 1000,
	}
	if res.Profit != nil {
		ev.Profit = res.Profit.String()
	}
	if res.ProfitPct != nil {
		ev.ProfitPct = res.ProfitPct.StringFixed(6)
	}

	r.post(ctx, WebhookEvent{Type: "execution", Timestamp: r.now(), Execution: ev})
}

func (r *WebhookReporter) Stop() error {
	return nil
}

func (r *WebhookReporter) post(ctx context.Context, ev WebhookEvent) {
	resp, err := r.client.NewRequest().SetBody(ev).Post(ctx, r.url)
	if err != nil {
		r.log.Warn(ctx, "webhook delivery failed", "type", ev.Type, "error", err)
		return
	}
	if resp.IsError() {
		r.log.Warn(ctx, "webhook rejected event", "type", ev.Type, "status", resp.StatusCode)
	}
}
