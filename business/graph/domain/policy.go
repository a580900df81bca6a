package domain

import (
	"strings"
	"time"

	venue "github.com/fd1az/crossarb/business/venue/domain"
)

// TransferPolicy supplies transfer fees and times when a venue cannot.
type TransferPolicy struct {
	DefaultFee    float64
	StablecoinFee float64
	// Fees overrides the fee per asset.
	Fees        map[string]float64
	Stablecoins map[string]bool

	DefaultTime time.Duration
	// SameNetworkTime applies when both venues settle on one network.
	SameNetworkTime time.Duration
}

// DefaultTransferPolicy returns conservative defaults: majors are cheap,
// stablecoins cheaper than unknown assets, settlement takes ten minutes
// unless both venues share a network.
func DefaultTransferPolicy() TransferPolicy {
	return TransferPolicy{
		DefaultFee:    0.005,
		StablecoinFee: 0.001,
		Fees: map[string]float64{
			"BTC": 0.0005,
			"ETH": 0.0005,
		},
		Stablecoins: map[string]bool{
			"USDT": true, "USDC": true, "DAI": true, "BUSD": true, "TUSD": true,
		},
		DefaultTime:     10 * time.Minute,
		SameNetworkTime: 10 * time.Second,
	}
}

// Fee returns the default proportional fee for moving asset.
func (p TransferPolicy) Fee(asset string) float64 {
	if f, ok := p.Fees[asset]; ok {
		return f
	}
	if p.isStablecoin(asset) {
		return p.StablecoinFee
	}
	return p.DefaultFee
}

// isStablecoin matches listed symbols and bridged variants such as AXLUSDC.
func (p TransferPolicy) isStablecoin(asset string) bool {
	if p.Stablecoins[asset] {
		return true
	}
	for s := range p.Stablecoins {
		if strings.HasSuffix(asset, s) {
			return true
		}
	}
	return false
}

// Time returns the default settlement time between two venues.
func (p TransferPolicy) Time(from, to venue.Info) time.Duration {
	if from.SameNetwork(to) {
		return p.SameNetworkTime
	}
	return p.DefaultTime
}
