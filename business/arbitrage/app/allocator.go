package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/crossarb/business/arbitrage/domain"
	"github.com/fd1az/crossarb/internal/apperror"
)

// FixedAllocator allocates the same amount to every opportunity.
type FixedAllocator struct {
	amount decimal.Decimal
}

func NewFixedAllocator(amount decimal.Decimal) *FixedAllocator {
	return &FixedAllocator{amount: amount}
}

func (a *FixedAllocator) Allocate(ctx context.Context, opp *domain.Opportunity) (decimal.Decimal, error) {
	if !a.amount.IsPositive() {
		return decimal.Zero, apperror.Validation(apperror.CodeInvalidTradeSize, "fixed allocation must be positive")
	}
	return a.amount, nil
}
