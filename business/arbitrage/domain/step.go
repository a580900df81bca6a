package domain

import (
	"fmt"

	graphDomain "github.com/fd1az/crossarb/business/graph/domain"
	venueDomain "github.com/fd1az/crossarb/business/venue/domain"
	"github.com/fd1az/crossarb/internal/apperror"
)

// StepKind is what an execution step does.
type StepKind string

const (
	StepTrade    StepKind = "trade"
	StepTransfer StepKind = "transfer"
)

// ExecutionStep is one venue action derived from a cycle edge.
type ExecutionStep struct {
	Kind StepKind

	// Trade fields.
	Venue      string
	Pair       venueDomain.PairID
	Action     graphDomain.Side
	BaseAsset  string
	QuoteAsset string

	// Transfer fields.
	Asset     string
	FromVenue string
	ToVenue   string

	// Edge is the graph edge the step was built from, if any.
	Edge graphDomain.EdgeKey
}

// TradeStep builds the step for a trade edge.
func TradeStep(venueID string, pair venueDomain.Pair, side graphDomain.Side) ExecutionStep {
	return ExecutionStep{
		Kind:       StepTrade,
		Venue:      venueID,
		Pair:       pair.ID(),
		Action:     side,
		BaseAsset:  pair.Base,
		QuoteAsset: pair.Quote,
	}
}

// TransferStep builds the step moving asset between venues.
func TransferStep(asset, from, to string) ExecutionStep {
	return ExecutionStep{
		Kind:      StepTransfer,
		Asset:     asset,
		FromVenue: from,
		ToVenue:   to,
	}
}

// InputAsset is the asset the step spends.
func (s ExecutionStep) InputAsset() string {
	switch {
	case s.Kind == StepTransfer:
		return s.Asset
	case s.Action == graphDomain.SideBuy:
		return s.QuoteAsset
	default:
		return s.BaseAsset
	}
}

// OutputAsset is the asset the step produces.
func (s ExecutionStep) OutputAsset() string {
	switch {
	case s.Kind == StepTransfer:
		return s.Asset
	case s.Action == graphDomain.SideBuy:
		return s.BaseAsset
	default:
		return s.QuoteAsset
	}
}

// SourceVenue is where the step's input must be held.
func (s ExecutionStep) SourceVenue() string {
	if s.Kind == StepTransfer {
		return s.FromVenue
	}
	return s.Venue
}

// DestinationVenue is where the step's output ends up.
func (s ExecutionStep) DestinationVenue() string {
	if s.Kind == StepTransfer {
		return s.ToVenue
	}
	return s.Venue
}

func (s ExecutionStep) String() string {
	if s.Kind == StepTransfer {
		return fmt.Sprintf("transfer %s %s -> %s", s.Asset, s.FromVenue, s.ToVenue)
	}
	return fmt.Sprintf("%s %s on %s", s.Action, s.Pair, s.Venue)
}

// Validate checks the step is executable on its own.
func (s ExecutionStep) Validate() error {
	invalid := func(reason string) error {
		return apperror.Validation(apperror.CodeInvalidOpportunity, reason)
	}

	switch s.Kind {
	case StepTrade:
		if s.Venue == "" {
			return invalid("trade step has no venue")
		}
		pair, err := venueDomain.ParsePair(s.Pair)
		if err != nil {
			return apperror.New(apperror.CodeInvalidOpportunity,
				apperror.WithContext("trade step pair"), apperror.WithCause(err))
		}
		if pair.Base != s.BaseAsset || pair.Quote != s.QuoteAsset {
			return invalid(fmt.Sprintf("pair %s does not match %s/%s", s.Pair, s.BaseAsset, s.QuoteAsset))
		}
		if s.Action != graphDomain.SideBuy && s.Action != graphDomain.SideSell {
			return invalid(fmt.Sprintf("unknown trade action %q", s.Action))
		}
	case StepTransfer:
		if s.Asset == "" || s.FromVenue == "" || s.ToVenue == "" {
			return invalid("transfer step needs asset, source and destination")
		}
		if s.FromVenue == s.ToVenue {
			return invalid("transfer step source and destination are the same venue")
		}
	default:
		return invalid(fmt.Sprintf("unknown step kind %q", s.Kind))
	}
	return nil
}
