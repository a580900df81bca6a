// Package domain contains the venue vocabulary shared by every context.
package domain

import (
	"strings"

	"github.com/fd1az/crossarb/internal/apperror"
)

// PairID identifies a market as "BASE-QUOTE".
type PairID string

// Pair is a parsed PairID.
type Pair struct {
	Base  string
	Quote string
}

// ParsePair splits id into base and quote.
func ParsePair(id PairID) (Pair, error) {
	base, quote, ok := strings.Cut(string(id), "-")
	base = strings.ToUpper(strings.TrimSpace(base))
	quote = strings.ToUpper(strings.TrimSpace(quote))
	if !ok || base == "" || quote == "" || strings.Contains(quote, "-") || base == quote {
		return Pair{}, apperror.Validation(apperror.CodeInvalidPair, string(id))
	}
	return Pair{Base: base, Quote: quote}, nil
}

// NewPair builds a Pair from its assets.
func NewPair(base, quote string) Pair {
	return Pair{Base: strings.ToUpper(base), Quote: strings.ToUpper(quote)}
}

// ID returns the canonical identifier.
func (p Pair) ID() PairID {
	return PairID(p.Base + "-" + p.Quote)
}

func (p Pair) String() string {
	return string(p.ID())
}

// Has reports whether asset is one side of the pair.
func (p Pair) Has(asset string) bool {
	return p.Base == asset || p.Quote == asset
}
