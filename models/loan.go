package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus is the lifecycle state of a loan
type LoanStatus string

const (
	LoanStatusPending   LoanStatus = "pending"
	LoanStatusFunded    LoanStatus = "funded"
	LoanStatusRepaid    LoanStatus = "repaid"
	LoanStatusDefaulted LoanStatus = "defaulted"
)

// Loan is a peer-to-peer credit loan
type Loan struct {
	ID             int64           `db:"id"`
	BorrowerID     int64           `db:"borrower_id"`
	LenderID       *int64          `db:"lender_id"`
	Amount         int64           `db:"amount"`
	InterestRate   decimal.Decimal `db:"interest_rate"` // percent
	TotalRepayment int64           `db:"total_repayment"`
	DueDate        time.Time       `db:"due_date"`
	Purpose        string          `db:"purpose"`
	Status         LoanStatus      `db:"status"`
	CreatedAt      time.Time       `db:"created_at"`
	FundedAt       *time.Time      `db:"funded_at"`
	RepaidAt       *time.Time      `db:"repaid_at"`
	DefaultedAt    *time.Time      `db:"defaulted_at"`
}

// IsOverdue reports whether a funded loan is past its due date at now
func (l *Loan) IsOverdue(now time.Time) bool {
	return l.Status == LoanStatusFunded && now.After(l.DueDate)
}

// CalculateTotalRepayment returns floor(amount × (1 + rate/100)).
// A result outside int64 fails with ErrAmountOverflow.
func CalculateTotalRepayment(amount int64, ratePercent decimal.Decimal) (int64, error) {
	factor := decimal.NewFromInt(1).Add(ratePercent.Div(decimal.NewFromInt(100)))
	return floorAmount(decimal.NewFromInt(amount).Mul(factor))
}
