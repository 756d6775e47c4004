package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lucasmedeiros/credit_engine/internal/apperrors"
	"github.com/lucasmedeiros/credit_engine/internal/core/domain"
	"github.com/lucasmedeiros/credit_engine/internal/middleware"
	"github.com/shopspring/decimal"
)

// Age bracket boundaries and their annual fee rates. The table is evaluated
// top-down; first match wins.
const (
	seniorAge     = 60
	middleAge     = 40
	youngAdultAge = 25
)

var (
	seniorFeeRate     = decimal.NewFromFloat(0.04)
	middleAgeFeeRate  = decimal.NewFromFloat(0.02)
	youngAdultFeeRate = decimal.NewFromFloat(0.03)
	youthFeeRate      = decimal.NewFromFloat(0.05)
)

// FeeService maps an applicant age to an annual fee rate.
type FeeService struct {
	now func() time.Time
}

// NewFeeService creates a FeeService using the system clock.
func NewFeeService() *FeeService {
	return &FeeService{now: time.Now}
}

// NewFeeServiceWithClock creates a FeeService with an explicit clock, used
// to pin the reference date in tests.
func NewFeeServiceWithClock(now func() time.Time) *FeeService {
	return &FeeService{now: now}
}

// CalculateFeeRate resolves the annual fee rate for the given birthdate
// (dd/MM/yyyy). It fails with apperrors.ErrValidation when the birthdate
// does not parse or lies in the future.
func (s *FeeService) CalculateFeeRate(ctx context.Context, birthdate string) (decimal.Decimal, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	birth, err := time.Parse(domain.BirthdateLayout, birthdate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: birthdate %q is not a valid dd/MM/yyyy date", apperrors.ErrValidation, birthdate)
	}

	now := s.now()
	if birth.After(now) {
		return decimal.Zero, fmt.Errorf("%w: birthdate %q is in the future", apperrors.ErrValidation, birthdate)
	}

	age := ageInYears(birth, now)

	var rate decimal.Decimal
	switch {
	case age > seniorAge:
		rate = seniorFeeRate
	case age > middleAge:
		rate = middleAgeFeeRate
	case age > youngAdultAge:
		rate = youngAdultFeeRate
	default:
		rate = youthFeeRate
	}

	logger.Debug("Calculated fee rate", slog.Int("age", age), slog.String("rate", rate.String()))
	return rate, nil
}

// ageInYears computes the age in whole years at the reference date, counting
// a year only once the birthday has occurred.
func ageInYears(birth, ref time.Time) int {
	years := ref.Year() - birth.Year()
	refAnniversary := time.Date(ref.Year(), birth.Month(), birth.Day(), 0, 0, 0, 0, time.UTC)
	refDay := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	if refDay.Before(refAnniversary) {
		years--
	}
	return years
}
