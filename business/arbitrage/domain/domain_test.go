package domain

import (
	"testing"

	graphDomain "github.com/fd1az/crossarb/business/graph/domain"
	venueDomain "github.com/fd1az/crossarb/business/venue/domain"
	"github.com/fd1az/crossarb/internal/apperror"
)

var (
	usdtX = graphDomain.Node("USDT", "x")
	btcX  = graphDomain.Node("BTC", "x")
	btcY  = graphDomain.Node("BTC", "y")
	usdtY = graphDomain.Node("USDT", "y")

	btcUSDT = venueDomain.NewPair("BTC", "USDT")
)

func edge(from, to graphDomain.NodeID, pair venueDomain.PairID) graphDomain.EdgeKey {
	return graphDomain.EdgeKey{From: from, To: to, Pair: pair}
}

// crossVenue is USDT@x -> BTC@x -> BTC@y -> USDT@y -> USDT@x.
func crossVenue() Cycle {
	return Cycle{
		Nodes: []graphDomain.NodeID{usdtX, btcX, btcY, usdtY, usdtX},
		Edges: []graphDomain.EdgeKey{
			edge(usdtX, btcX, btcUSDT.ID()),
			edge(btcX, btcY, ""),
			edge(btcY, usdtY, btcUSDT.ID()),
			edge(usdtY, usdtX, ""),
		},
	}
}

// crossVenueSteps walks crossVenue edge by edge.
func crossVenueSteps() []ExecutionStep {
	steps := []ExecutionStep{
		TradeStep("x", btcUSDT, graphDomain.SideBuy),
		TransferStep("BTC", "x", "y"),
		TradeStep("y", btcUSDT, graphDomain.SideSell),
		TransferStep("USDT", "y", "x"),
	}
	for i, e := range crossVenue().Edges {
		steps[i].Edge = e
	}
	return steps
}

func TestCycle_Validate(t *testing.T) {
	open := crossVenue()
	open.Nodes[4] = usdtY

	gap := crossVenue()
	gap.Edges[1] = edge(btcX, usdtY, "")

	short := crossVenue()
	short.Nodes = short.Nodes[:3]

	tests := []struct {
		name    string
		cycle   Cycle
		wantErr bool
	}{
		{"closed cycle", crossVenue(), false},
		{"does not close", open, true},
		{"edge skips a node", gap, true},
		{"node and edge counts differ", short, true},
		{"empty", Cycle{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cycle.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperror.HasCode(err, apperror.CodeInvalidOpportunity) {
				t.Errorf("code = %v", err)
			}
		})
	}
}

func TestCycle_KeyAndString(t *testing.T) {
	c := crossVenue()
	if c.Hops() != 4 || c.Start() != usdtX {
		t.Errorf("hops %d start %s", c.Hops(), c.Start())
	}
	if got, want := c.String(), "USDT@x -> BTC@x -> BTC@y -> USDT@y -> USDT@x"; got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}
	if c.Key() != crossVenue().Key() {
		t.Error("equal cycles have different keys")
	}

	other := crossVenue()
	other.Edges[0].Pair = "BTC-USDC"
	if c.Key() == other.Key() {
		t.Error("parallel edges share a key")
	}
}

func TestExecutionStep_Assets(t *testing.T) {
	tests := []struct {
		step    ExecutionStep
		in, out string
		src     string
		dst     string
	}{
		{TradeStep("x", btcUSDT, graphDomain.SideBuy), "USDT", "BTC", "x", "x"},
		{TradeStep("x", btcUSDT, graphDomain.SideSell), "BTC", "USDT", "x", "x"},
		{TransferStep("BTC", "x", "y"), "BTC", "BTC", "x", "y"},
	}

	for _, tt := range tests {
		t.Run(tt.step.String(), func(t *testing.T) {
			s := tt.step
			if s.InputAsset() != tt.in || s.OutputAsset() != tt.out {
				t.Errorf("assets %s -> %s", s.InputAsset(), s.OutputAsset())
			}
			if s.SourceVenue() != tt.src || s.DestinationVenue() != tt.dst {
				t.Errorf("venues %s -> %s", s.SourceVenue(), s.DestinationVenue())
			}
			if err := s.Validate(); err != nil {
				t.Errorf("Validate() = %v", err)
			}
		})
	}
}

func TestExecutionStep_Validate(t *testing.T) {
	mismatched := TradeStep("x", btcUSDT, graphDomain.SideBuy)
	mismatched.BaseAsset = "ETH"

	badPair := TradeStep("x", btcUSDT, graphDomain.SideBuy)
	badPair.Pair = "BTCUSDT"

	badSide := TradeStep("x", btcUSDT, graphDomain.SideBuy)
	badSide.Action = "hold"

	tests := []struct {
		name string
		step ExecutionStep
	}{
		{"trade without venue", TradeStep("", btcUSDT, graphDomain.SideBuy)},
		{"pair does not match assets", mismatched},
		{"malformed pair", badPair},
		{"unknown side", badSide},
		{"transfer to itself", TransferStep("BTC", "x", "x")},
		{"transfer without asset", TransferStep("", "x", "y")},
		{"unknown kind", ExecutionStep{Kind: "swap"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.step.Validate()
			if !apperror.HasCode(err, apperror.CodeInvalidOpportunity) {
				t.Errorf("Validate() = %v", err)
			}
		})
	}
}

func TestOpportunity_Validate(t *testing.T) {
	wrongAsset := crossVenueSteps()
	wrongAsset[1] = TransferStep("ETH", "x", "y")

	wrongVenue := crossVenueSteps()
	wrongVenue[2] = TradeStep("z", btcUSDT, graphDomain.SideSell)

	ethX := graphDomain.Node("ETH", "x")
	ethBTC := venueDomain.NewPair("ETH", "BTC")
	ethUSDT := venueDomain.NewPair("ETH", "USDT")
	triangle := Cycle{
		Nodes: []graphDomain.NodeID{usdtX, btcX, ethX, usdtX},
		Edges: []graphDomain.EdgeKey{
			edge(usdtX, btcX, btcUSDT.ID()),
			edge(btcX, ethX, ethBTC.ID()),
			edge(ethX, usdtX, ethUSDT.ID()),
		},
	}
	// Chains and closes on ETH@x but starts the triangle from the wrong node.
	rotated := []ExecutionStep{
		TradeStep("x", ethUSDT, graphDomain.SideSell),
		TradeStep("x", btcUSDT, graphDomain.SideBuy),
		TradeStep("x", ethBTC, graphDomain.SideBuy),
	}
	for i, e := range triangle.Edges {
		rotated[i].Edge = e
	}

	openChain := []ExecutionStep{
		TradeStep("x", btcUSDT, graphDomain.SideBuy),
		TradeStep("x", ethBTC, graphDomain.SideBuy),
	}

	endsElsewhere := crossVenueSteps()[:3]

	wrongEdge := crossVenueSteps()
	wrongEdge[0].Edge = edge(usdtX, btcX, "BTC-USD")

	noEdges := crossVenueSteps()
	for i := range noEdges {
		noEdges[i].Edge = graphDomain.EdgeKey{}
	}

	tests := []struct {
		name    string
		opp     *Opportunity
		wantErr bool
	}{
		{"cycle and steps agree", &Opportunity{Cycle: crossVenue(), Steps: crossVenueSteps()}, false},
		{"steps without cycle", &Opportunity{Steps: crossVenueSteps()}, false},
		{"nil", nil, true},
		{"no steps", &Opportunity{Cycle: crossVenue()}, true},
		{"fewer steps than hops", &Opportunity{Cycle: crossVenue(), Steps: crossVenueSteps()[:3]}, true},
		{"spends the wrong asset", &Opportunity{Steps: wrongAsset}, true},
		{"starts on the wrong venue", &Opportunity{Steps: wrongVenue}, true},
		{"steps start the cycle from another node", &Opportunity{Cycle: triangle, Steps: rotated}, true},
		{"open chain without cycle", &Opportunity{Steps: openChain}, true},
		{"ends on another venue", &Opportunity{Steps: endsElsewhere}, true},
		{"step traverses a parallel edge", &Opportunity{Cycle: crossVenue(), Steps: wrongEdge}, true},
		{"steps without edges against a cycle", &Opportunity{Cycle: crossVenue(), Steps: noEdges}, true},
		{"edgeless steps without cycle", &Opportunity{Steps: noEdges}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opp.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperror.HasCode(err, apperror.CodeInvalidOpportunity) {
				t.Errorf("code = %v", err)
			}
		})
	}
}

func TestOpportunity_StartAsset(t *testing.T) {
	if got := (&Opportunity{Cycle: crossVenue()}).StartAsset(); got != "USDT" {
		t.Errorf("from cycle = %s", got)
	}
	if got := (&Opportunity{Steps: crossVenueSteps()[1:]}).StartAsset(); got != "BTC" {
		t.Errorf("from steps = %s", got)
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	if StatusExecuting.IsTerminal() {
		t.Error("executing is terminal")
	}
	for _, s := range []Status{StatusCompleted, StatusPartialFailure, StatusError} {
		if !s.IsTerminal() {
			t.Errorf("%s is not terminal", s)
		}
	}
}
