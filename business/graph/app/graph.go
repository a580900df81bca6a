// Package app contains the opportunity graph and the rate refresher.
package app

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fd1az/crossarb/business/graph/domain"
	venueApp "github.com/fd1az/crossarb/business/venue/app"
	venueDomain "github.com/fd1az/crossarb/business/venue/domain"
	"github.com/fd1az/crossarb/internal/apperror"
	"github.com/fd1az/crossarb/internal/logger"
)

// Defaults fill trade edge attributes a venue cannot report.
type Defaults struct {
	TradeFee  float64
	Liquidity float64
}

// DefaultEdgeDefaults returns a 0.1% fee and unit liquidity.
func DefaultEdgeDefaults() Defaults {
	return Defaults{TradeFee: 0.001, Liquidity: 1.0}
}

// OnboardReport summarizes what AddVenue registered.
type OnboardReport struct {
	Venue         string
	Pairs         int
	TradeEdges    int
	TransferEdges int
	SkippedPairs  []venueDomain.PairID
	// Failures counts venue calls that errored and fell back to defaults.
	Failures int
}

// Graph is the directed multigraph of asset@venue nodes. Structure changes
// take the write lock; edge attributes are swapped atomically and never
// need it.
type Graph struct {
	policy   domain.TransferPolicy
	defaults Defaults
	log      logger.LoggerInterface
	now      func() time.Time

	// onboardMu serializes AddVenue so venue calls run outside mu.
	onboardMu sync.Mutex

	mu        sync.RWMutex
	venues    map[string]venueApp.Connector
	venueIDs  []string
	assets    map[string][]string
	edges     map[domain.EdgeKey]*domain.Edge
	order     []domain.EdgeKey
	nodes     map[domain.NodeID]struct{}
	listeners []func()

	generation atomic.Uint64
}

// New creates an empty graph.
func New(policy domain.TransferPolicy, defaults Defaults, log logger.LoggerInterface) *Graph {
	return &Graph{
		policy:   policy,
		defaults: defaults,
		log:      log,
		now:      time.Now,
		venues:   make(map[string]venueApp.Connector),
		assets:   make(map[string][]string),
		edges:    make(map[domain.EdgeKey]*domain.Edge),
		nodes:    make(map[domain.NodeID]struct{}),
	}
}

// OnTopologyChange registers fn to run after every AddVenue.
func (g *Graph) OnTopologyChange(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, fn)
}

// AddVenue registers c and its edges. Trade edges start without a rate and
// become traversable after the first refresh. Failed capability calls fall
// back to defaults and never block onboarding.
func (g *Graph) AddVenue(ctx context.Context, c venueApp.Connector) (OnboardReport, error) {
	g.onboardMu.Lock()
	defer g.onboardMu.Unlock()

	info := c.Info()
	if info.ID == "" {
		return OnboardReport{}, apperror.Validation(apperror.CodeRequiredField, "venue id")
	}

	g.mu.RLock()
	_, dup := g.venues[info.ID]
	others := make([]venueApp.Connector, 0, len(g.venueIDs))
	for _, id := range g.venueIDs {
		others = append(others, g.venues[id])
	}
	otherAssets := make(map[string][]string, len(g.assets))
	for id, a := range g.assets {
		otherAssets[id] = a
	}
	g.mu.RUnlock()

	if dup {
		return OnboardReport{}, apperror.Conflict(apperror.CodeVenueAlreadyRegistered, info.ID)
	}

	log := g.log.With("venue", info.ID)
	report := OnboardReport{Venue: info.ID}

	tradeEdges, pairAssets := g.tradeEdges(ctx, c, log, &report)

	assets, err := c.Assets(ctx)
	if err != nil {
		g.fallback(ctx, log, &report, "assets", err)
		assets = pairAssets
	}
	assets = normalizeAssets(assets)

	now := g.now()
	var transferEdges []*domain.Edge
	for _, other := range others {
		oid := other.Info().ID
		for _, asset := range intersect(assets, otherAssets[oid]) {
			transferEdges = append(transferEdges,
				g.transferEdge(ctx, log, &report, c, other, asset, now),
				g.transferEdge(ctx, log, &report, other, c, asset, now),
			)
		}
	}

	if err := ctx.Err(); err != nil {
		return report, apperror.Wrap(err, apperror.CodeServiceTimeout, "onboard "+info.ID)
	}

	g.mu.Lock()
	g.venues[info.ID] = c
	g.venueIDs = append(g.venueIDs, info.ID)
	sort.Strings(g.venueIDs)
	g.assets[info.ID] = assets
	for _, e := range tradeEdges {
		g.insert(e)
	}
	for _, e := range transferEdges {
		g.insert(e)
	}
	listeners := append([]func(){}, g.listeners...)
	g.mu.Unlock()

	g.generation.Add(1)

	report.TradeEdges = len(tradeEdges)
	report.TransferEdges = len(transferEdges)

	log.Info(ctx, "venue onboarded",
		"pairs", report.Pairs,
		"trade_edges", report.TradeEdges,
		"transfer_edges", report.TransferEdges,
		"skipped_pairs", len(report.SkippedPairs),
		"failures", report.Failures,
	)

	for _, fn := range listeners {
		fn()
	}

	return report, nil
}

// tradeEdges builds the buy and sell edge for every well-formed pair and
// returns the assets those pairs mention.
func (g *Graph) tradeEdges(ctx context.Context, c venueApp.Connector, log logger.LoggerInterface, report *OnboardReport) ([]*domain.Edge, []string) {
	pairs, err := c.TradeablePairs(ctx)
	if err != nil {
		g.fallback(ctx, log, report, "tradeable pairs", err)
		return nil, nil
	}

	id := c.Info().ID
	seen := make(map[venueDomain.PairID]bool, len(pairs))
	var (
		edges  []*domain.Edge
		assets []string
	)

	for _, raw := range pairs {
		pair, err := venueDomain.ParsePair(raw)
		if err != nil {
			log.Warn(ctx, "skipping malformed pair", "pair", raw, "error", err)
			report.SkippedPairs = append(report.SkippedPairs, raw)
			continue
		}
		if seen[pair.ID()] {
			continue
		}
		seen[pair.ID()] = true

		fee := g.defaults.TradeFee
		if f, err := c.Fee(ctx, pair.ID()); err != nil {
			g.fallback(ctx, log, report, "fee", err, "pair", pair.ID())
		} else if f < 0 || f >= 1 {
			log.Warn(ctx, "ignoring out of range fee", "pair", pair.ID(), "fee", f)
			report.Failures++
		} else {
			fee = f
		}

		liquidity := g.defaults.Liquidity
		if l, err := c.Liquidity(ctx, pair.ID()); err != nil {
			g.fallback(ctx, log, report, "liquidity", err, "pair", pair.ID())
		} else {
			liquidity = l
		}

		edges = append(edges,
			domain.NewTradeEdge(id, pair, domain.SideBuy, fee, liquidity),
			domain.NewTradeEdge(id, pair, domain.SideSell, fee, liquidity),
		)
		assets = append(assets, pair.Base, pair.Quote)
		report.Pairs++
	}

	return edges, assets
}

// transferEdge builds from -> to for asset, asking the source venue for its
// withdrawal terms before falling back to the policy.
func (g *Graph) transferEdge(ctx context.Context, log logger.LoggerInterface, report *OnboardReport, from, to venueApp.Connector, asset string, at time.Time) *domain.Edge {
	fi, ti := from.Info(), to.Info()

	fee := g.policy.Fee(asset)
	if f, err := from.WithdrawalFee(ctx, asset, to); err != nil {
		g.fallback(ctx, log, report, "withdrawal fee", err, "asset", asset, "from", fi.ID, "to", ti.ID)
	} else if f >= 0 && f < 1 {
		fee = f
	}

	tt := g.policy.Time(fi, ti)
	if d, err := from.WithdrawalTime(ctx, asset, to); err != nil {
		g.fallback(ctx, log, report, "withdrawal time", err, "asset", asset, "from", fi.ID, "to", ti.ID)
	} else if d > 0 {
		tt = d
	}

	return domain.NewTransferEdge(asset, fi.ID, ti.ID, fee, g.defaults.Liquidity, tt, at)
}

// fallback logs a failed optional call. Unsupported capabilities are
// expected and only logged at debug.
func (g *Graph) fallback(ctx context.Context, log logger.LoggerInterface, report *OnboardReport, what string, err error, args ...any) {
	args = append(args, "error", err)
	if apperror.HasCode(err, apperror.CodeUnsupported) {
		log.Debug(ctx, what+" unsupported, using default", args...)
		return
	}
	log.Warn(ctx, what+" failed, using default", args...)
	report.Failures++
}

// insert adds e. Caller holds mu.
func (g *Graph) insert(e *domain.Edge) {
	if _, ok := g.edges[e.Key]; ok {
		return
	}
	g.edges[e.Key] = e
	g.order = append(g.order, e.Key)
	g.nodes[e.Key.From] = struct{}{}
	g.nodes[e.Key.To] = struct{}{}
}

// Venue returns the connector registered under id.
func (g *Graph) Venue(id string) (venueApp.Connector, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.venues[id]
	return c, ok
}

// Venues returns the registered connectors ordered by id.
func (g *Graph) Venues() []venueApp.Connector {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]venueApp.Connector, 0, len(g.venueIDs))
	for _, id := range g.venueIDs {
		out = append(out, g.venues[id])
	}
	return out
}

// Snapshot freezes the current graph for one search.
func (g *Graph) Snapshot() *domain.Snapshot {
	g.mu.RLock()
	views := make([]domain.EdgeView, 0, len(g.order))
	for _, k := range g.order {
		views = append(views, g.edges[k].View())
	}
	g.mu.RUnlock()

	return domain.NewSnapshot(views, g.generation.Load(), g.now())
}

// Edge returns the live edge for k.
func (g *Graph) Edge(k domain.EdgeKey) (*domain.Edge, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.edges[k]
	return e, ok
}

// HasEdge reports whether k is still part of the graph.
func (g *Graph) HasEdge(k domain.EdgeKey) bool {
	_, ok := g.Edge(k)
	return ok
}

// TradeEdges returns every trade edge in insertion order.
func (g *Graph) TradeEdges() []*domain.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*domain.Edge, 0, len(g.order))
	for _, k := range g.order {
		if e := g.edges[k]; e.Kind == domain.ActionTrade {
			out = append(out, e)
		}
	}
	return out
}

func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// Generation increases on every topology change.
func (g *Graph) Generation() uint64 {
	return g.generation.Load()
}

func normalizeAssets(assets []string) []string {
	seen := make(map[string]bool, len(assets))
	out := make([]string, 0, len(assets))
	for _, a := range assets {
		a = strings.ToUpper(strings.TrimSpace(a))
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// intersect returns the common elements of two sorted slices.
func intersect(a, b []string) []string {
	var out []string
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}
