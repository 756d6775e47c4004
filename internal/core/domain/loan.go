package domain

import "github.com/shopspring/decimal"

// BirthdateLayout is the expected wire format for applicant birthdates.
const BirthdateLayout = "02/01/2006"

// LoanApplication is the immutable input to a simulation: the requested
// principal, the applicant's birthdate (dd/MM/yyyy) and the number of
// monthly installments.
type LoanApplication struct {
	Amount       decimal.Decimal `json:"amount"`
	Birthdate    string          `json:"birthdate"`
	Installments int             `json:"installments"`
}

// SimulationOutcome is the computed result of a simulation. All values carry
// exactly two fractional digits and are never mutated after creation.
type SimulationOutcome struct {
	MonthlyInstallmentAmount decimal.Decimal `json:"monthlyInstallmentAmount"`
	TotalAmountToBePaid      decimal.Decimal `json:"totalAmountToBePaid"`
	TotalFeePaid             decimal.Decimal `json:"totalFeePaid"`
}
