package domain

import (
	"github.com/shopspring/decimal"
)

// Kind distinguishes order-book exchanges from on-chain protocols.
type Kind string

const (
	KindCEX Kind = "cex"
	KindDEX Kind = "dex"
)

// Info describes a venue. Network is the settlement network, empty for
// custodial exchanges.
type Info struct {
	ID      string
	Kind    Kind
	Network string
}

// SameNetwork reports whether both venues settle on one non-empty network.
func (i Info) SameNetwork(o Info) bool {
	return i.Network != "" && i.Network == o.Network
}

// ExecutionReport is a venue's answer to a buy, sell or withdrawal.
// A failed report is data, not an error.
type ExecutionReport struct {
	Success        bool
	ExecutedAmount decimal.Decimal
	ResultingAsset string
	Error          string
	Details        map[string]string
}

// Failed builds an unsuccessful report.
func Failed(reason string) ExecutionReport {
	return ExecutionReport{Success: false, Error: reason}
}

// Filled builds a successful report.
func Filled(amount decimal.Decimal, asset string) ExecutionReport {
	return ExecutionReport{
		Success:        true,
		ExecutedAmount: amount,
		ResultingAsset: asset,
		Details:        map[string]string{},
	}
}
