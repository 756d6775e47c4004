package finance

import (
	"fmt"

	"github.com/lucasmedeiros/credit_engine/internal/apperrors"
	"github.com/shopspring/decimal"
)

// resultScale is the number of fractional digits on every money result.
const resultScale = 2

var (
	twelve = decimal.NewFromInt(12)
)

// Amortization holds the result of a fixed-rate annuity computation. The
// totals are derived from the already-rounded installment, so
// TotalAmount == InstallmentAmount * Installments holds exactly.
type Amortization struct {
	InstallmentAmount decimal.Decimal
	TotalAmount       decimal.Decimal
	TotalFee          decimal.Decimal
}

// ComputeAmortization computes the fixed monthly installment for the given
// principal, installment count and annual fee rate using the Price formula:
//
//	installment = principal * r / (1 - (1+r)^-n), r = annualRate / 12
//
// The installment is rounded half-up to two fractional digits as the final
// step; total and fee come from the rounded value. A zero rate degenerates
// to principal / installments (the annuity formula is 0/0 there).
func ComputeAmortization(principal decimal.Decimal, installments int, annualRate decimal.Decimal) (Amortization, error) {
	if installments <= 0 {
		return Amortization{}, fmt.Errorf("%w: installments must be positive, got %d", apperrors.ErrValidation, installments)
	}
	if principal.LessThanOrEqual(decimal.Zero) {
		return Amortization{}, fmt.Errorf("%w: amount must be positive, got %s", apperrors.ErrValidation, principal)
	}
	if annualRate.IsNegative() {
		return Amortization{}, fmt.Errorf("%w: annual rate must not be negative, got %s", apperrors.ErrValidation, annualRate)
	}

	n := decimal.NewFromInt(int64(installments))

	var installment decimal.Decimal
	if annualRate.IsZero() {
		installment = principal.Div(n).Round(resultScale)
	} else {
		monthlyRate := annualRate.Div(twelve)
		// (1+r)^n is strictly > 1 for r > 0, so the denominator below is
		// strictly positive and the division cannot blow up.
		compound := decimal.NewFromInt(1).Add(monthlyRate).Pow(n)
		denominator := decimal.NewFromInt(1).Sub(decimal.NewFromInt(1).Div(compound))
		if denominator.IsZero() {
			return Amortization{}, fmt.Errorf("%w: annuity denominator vanished for rate=%s installments=%d", apperrors.ErrComputation, annualRate, installments)
		}
		installment = principal.Mul(monthlyRate).Div(denominator).Round(resultScale)
	}

	total := installment.Mul(n)
	return Amortization{
		InstallmentAmount: installment,
		TotalAmount:       total,
		TotalFee:          total.Sub(principal),
	}, nil
}
