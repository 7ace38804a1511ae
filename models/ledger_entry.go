package models

import (
	"fmt"
	"time"
)

// LedgerCategory tags why a balance changed
type LedgerCategory string

const (
	LedgerCategoryChallengeReward    LedgerCategory = "challenge_reward"
	LedgerCategoryBetPlaced          LedgerCategory = "bet_placed"
	LedgerCategoryBetCancelled       LedgerCategory = "bet_cancelled"
	LedgerCategoryBetWin             LedgerCategory = "bet_win"
	LedgerCategoryLoanFunded         LedgerCategory = "loan_funded"
	LedgerCategoryLoanReceived       LedgerCategory = "loan_received"
	LedgerCategoryLoanRepaid         LedgerCategory = "loan_repaid"
	LedgerCategoryLoanRepaidReceived LedgerCategory = "loan_repaid_received"
	LedgerCategoryWeeklyStipend      LedgerCategory = "weekly_stipend"
)

// AllLedgerCategories lists every category in a stable order
var AllLedgerCategories = []LedgerCategory{
	LedgerCategoryChallengeReward,
	LedgerCategoryBetPlaced,
	LedgerCategoryBetCancelled,
	LedgerCategoryBetWin,
	LedgerCategoryLoanFunded,
	LedgerCategoryLoanReceived,
	LedgerCategoryLoanRepaid,
	LedgerCategoryLoanRepaidReceived,
	LedgerCategoryWeeklyStipend,
}

// IsValid reports whether the category is one of the known tags
func (c LedgerCategory) IsValid() bool {
	for _, known := range AllLedgerCategories {
		if c == known {
			return true
		}
	}
	return false
}

// IsDebit reports whether entries of this category remove credits
func (c LedgerCategory) IsDebit() bool {
	switch c {
	case LedgerCategoryBetPlaced, LedgerCategoryLoanFunded, LedgerCategoryLoanRepaid:
		return true
	default:
		return false
	}
}

// ValidateAmount checks that the sign of amount matches the category direction
func (c LedgerCategory) ValidateAmount(amount int64) error {
	if amount == 0 {
		return fmt.Errorf("amount must be nonzero")
	}
	if c.IsDebit() && amount > 0 {
		return fmt.Errorf("category %s requires a negative amount, got %d", c, amount)
	}
	if !c.IsDebit() && amount < 0 {
		return fmt.Errorf("category %s requires a positive amount, got %d", c, amount)
	}
	return nil
}

// ReferenceType identifies what kind of entity reference_id points to
type ReferenceType string

const (
	ReferenceTypeSubmission ReferenceType = "challenge_submission"
	ReferenceTypeBet        ReferenceType = "bet"
	ReferenceTypeLoan       ReferenceType = "loan"
)

// LedgerEntry is an immutable record of one balance change.
// BalanceAfter is the owning player's balance immediately after Amount was applied.
type LedgerEntry struct {
	ID            int64          `db:"id"`
	PlayerID      int64          `db:"player_id"`
	Amount        int64          `db:"amount"`
	Category      LedgerCategory `db:"category"`
	ReferenceID   *int64         `db:"reference_id"`
	ReferenceType *ReferenceType `db:"reference_type"`
	Description   string         `db:"description"`
	BalanceAfter  int64          `db:"balance_after"`
	CreatedAt     time.Time      `db:"created_at"`
}

// BalanceBefore returns the balance the entry was applied to
func (e *LedgerEntry) BalanceBefore() int64 {
	return e.BalanceAfter - e.Amount
}

// ReconciliationReport is the result of auditing one player's ledger
type ReconciliationReport struct {
	PlayerID     int64
	Balance      int64
	EntrySum     int64
	EntryCount   int
	BrokenChains []int64 // IDs of entries whose balance_after does not follow the previous entry
}

// IsConsistent reports whether balance equals the entry sum and the snapshot chain is intact
func (r *ReconciliationReport) IsConsistent() bool {
	return r.Balance == r.EntrySum && len(r.BrokenChains) == 0
}

// ReconcileEntries audits entries (ordered oldest first) against balance
func ReconcileEntries(playerID, balance int64, entries []*LedgerEntry) *ReconciliationReport {
	report := &ReconciliationReport{
		PlayerID:   playerID,
		Balance:    balance,
		EntryCount: len(entries),
	}

	var running int64
	for _, entry := range entries {
		running += entry.Amount
		if entry.BalanceAfter != running {
			report.BrokenChains = append(report.BrokenChains, entry.ID)
		}
	}
	report.EntrySum = running

	return report
}
