package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gamecredits/events"
	"gamecredits/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const maxLoanPurposeLength = 500

var maxInterestRate = decimal.NewFromInt(1000)

// loanService implements the LoanService interface
type loanService struct {
	uowFactory  UnitOfWorkFactory
	maxLoanDays int
	now         clock
}

// NewLoanService creates a new loan service
func NewLoanService(uowFactory UnitOfWorkFactory, maxLoanDays int) LoanService {
	return &loanService{
		uowFactory:  uowFactory,
		maxLoanDays: maxLoanDays,
		now:         utcNow,
	}
}

// CreateLoan records a pending loan request. No credits move until it is funded.
func (s *loanService) CreateLoan(ctx context.Context, borrowerID, amount int64, rate decimal.Decimal, days int, purpose string) (*models.Loan, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: loan amount must be positive, got %d", ErrValidation, amount)
	}
	if rate.IsNegative() {
		return nil, fmt.Errorf("%w: interest rate must not be negative", ErrValidation)
	}
	if rate.GreaterThan(maxInterestRate) || !rate.Equal(rate.Round(2)) {
		return nil, fmt.Errorf("%w: interest rate %s is out of range", ErrValidation, rate.String())
	}
	if days <= 0 || days > s.maxLoanDays {
		return nil, fmt.Errorf("%w: loan term must be between 1 and %d days, got %d", ErrValidation, s.maxLoanDays, days)
	}
	purpose = strings.TrimSpace(purpose)
	if len(purpose) > maxLoanPurposeLength {
		return nil, fmt.Errorf("%w: purpose exceeds %d characters", ErrValidation, maxLoanPurposeLength)
	}

	totalRepayment, err := models.CalculateTotalRepayment(amount, rate)
	if err != nil {
		return nil, fmt.Errorf("%w: loan of %d at %s%% is too large: %v", ErrValidation, amount, rate.String(), err)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := requirePlayer(ctx, uow, borrowerID); err != nil {
		return nil, err
	}

	now := s.now()
	loan := &models.Loan{
		BorrowerID:     borrowerID,
		Amount:         amount,
		InterestRate:   rate,
		TotalRepayment: totalRepayment,
		DueDate:        now.AddDate(0, 0, days),
		Purpose:        purpose,
		Status:         models.LoanStatusPending,
	}
	if err := uow.LoanRepository().Create(ctx, loan); err != nil {
		return nil, fmt.Errorf("failed to create loan: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"loanID":         loan.ID,
		"borrowerID":     borrowerID,
		"amount":         amount,
		"rate":           rate.String(),
		"totalRepayment": loan.TotalRepayment,
		"dueDate":        loan.DueDate,
	}).Info("Created loan request")

	return loan, nil
}

// FundLoan commits a lender to a pending loan and moves the principal lender→borrower
func (s *loanService) FundLoan(ctx context.Context, loanID, lenderID int64) (*models.Loan, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	loan, err := s.lockLoan(ctx, uow, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != models.LoanStatusPending {
		return nil, fmt.Errorf("%w: loan %d is %s", ErrInvalidState, loanID, loan.Status)
	}
	if loan.BorrowerID == lenderID {
		return nil, fmt.Errorf("%w: borrower cannot fund their own loan", ErrValidation)
	}

	now := s.now()
	loan.Status = models.LoanStatusFunded
	loan.LenderID = &lenderID
	loan.FundedAt = &now
	if err := uow.LoanRepository().Update(ctx, loan); err != nil {
		return nil, fmt.Errorf("failed to update loan: %w", err)
	}

	refID, refType := reference(models.ReferenceTypeLoan, loan.ID)
	if _, _, err := NewLedger(uow).Transfer(ctx, TransferRequest{
		FromPlayerID:      lenderID,
		ToPlayerID:        loan.BorrowerID,
		Amount:            loan.Amount,
		DebitCategory:     models.LedgerCategoryLoanFunded,
		CreditCategory:    models.LedgerCategoryLoanReceived,
		DebitDescription:  fmt.Sprintf("Funded loan #%d", loan.ID),
		CreditDescription: fmt.Sprintf("Received loan #%d", loan.ID),
		ReferenceID:       refID,
		ReferenceType:     refType,
	}); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.LoanStateChangedEvent{
		LoanID:     loan.ID,
		BorrowerID: loan.BorrowerID,
		LenderID:   loan.LenderID,
		Amount:     loan.Amount,
		OldStatus:  models.LoanStatusPending,
		NewStatus:  models.LoanStatusFunded,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"loanID":     loan.ID,
		"lenderID":   lenderID,
		"borrowerID": loan.BorrowerID,
		"amount":     loan.Amount,
	}).Info("Funded loan")

	return loan, nil
}

// RepayLoan moves the total repayment borrower→lender and closes the loan
func (s *loanService) RepayLoan(ctx context.Context, loanID, playerID int64) (*models.Loan, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	loan, err := s.lockLoan(ctx, uow, loanID)
	if err != nil {
		return nil, err
	}
	if loan.BorrowerID != playerID {
		return nil, fmt.Errorf("%w: only the borrower can repay loan %d", ErrUnauthorized, loanID)
	}
	if loan.Status != models.LoanStatusFunded {
		return nil, fmt.Errorf("%w: loan %d is %s", ErrInvalidState, loanID, loan.Status)
	}
	if loan.LenderID == nil {
		return nil, fmt.Errorf("%w: funded loan %d has no lender", ErrInvalidState, loanID)
	}

	now := s.now()
	loan.Status = models.LoanStatusRepaid
	loan.RepaidAt = &now
	if err := uow.LoanRepository().Update(ctx, loan); err != nil {
		return nil, fmt.Errorf("failed to update loan: %w", err)
	}

	refID, refType := reference(models.ReferenceTypeLoan, loan.ID)
	if _, _, err := NewLedger(uow).Transfer(ctx, TransferRequest{
		FromPlayerID:      loan.BorrowerID,
		ToPlayerID:        *loan.LenderID,
		Amount:            loan.TotalRepayment,
		DebitCategory:     models.LedgerCategoryLoanRepaid,
		CreditCategory:    models.LedgerCategoryLoanRepaidReceived,
		DebitDescription:  fmt.Sprintf("Repaid loan #%d", loan.ID),
		CreditDescription: fmt.Sprintf("Repayment received for loan #%d", loan.ID),
		ReferenceID:       refID,
		ReferenceType:     refType,
	}); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.LoanStateChangedEvent{
		LoanID:     loan.ID,
		BorrowerID: loan.BorrowerID,
		LenderID:   loan.LenderID,
		Amount:     loan.TotalRepayment,
		OldStatus:  models.LoanStatusFunded,
		NewStatus:  models.LoanStatusRepaid,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"loanID":         loan.ID,
		"borrowerID":     loan.BorrowerID,
		"lenderID":       *loan.LenderID,
		"totalRepayment": loan.TotalRepayment,
	}).Info("Repaid loan")

	return loan, nil
}

// ListPendingLoans returns unfunded loan requests, newest first
func (s *loanService) ListPendingLoans(ctx context.Context, limit int) ([]*models.Loan, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrValidation)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	loans, err := uow.LoanRepository().ListPending(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending loans: %w", err)
	}

	return loans, nil
}

// ListUserLoans returns loans the player borrowed or lent
func (s *loanService) ListUserLoans(ctx context.Context, playerID int64) ([]*models.Loan, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	loans, err := uow.LoanRepository().ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}

	return loans, nil
}

// SweepDefaultedLoans marks every funded loan past its due date as defaulted.
// Defaulting moves no credits; the lender keeps the loss.
func (s *loanService) SweepDefaultedLoans(ctx context.Context, now time.Time) ([]*models.Loan, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	overdue, err := uow.LoanRepository().ListOverdueFundedForUpdate(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue loans: %w", err)
	}

	defaulted := make([]*models.Loan, 0, len(overdue))
	for _, loan := range overdue {
		if !loan.IsOverdue(now) {
			continue
		}

		defaultedAt := now
		loan.Status = models.LoanStatusDefaulted
		loan.DefaultedAt = &defaultedAt
		if err := uow.LoanRepository().Update(ctx, loan); err != nil {
			return nil, fmt.Errorf("failed to default loan %d: %w", loan.ID, err)
		}

		uow.EventBus().Publish(events.LoanStateChangedEvent{
			LoanID:     loan.ID,
			BorrowerID: loan.BorrowerID,
			LenderID:   loan.LenderID,
			Amount:     loan.TotalRepayment,
			OldStatus:  models.LoanStatusFunded,
			NewStatus:  models.LoanStatusDefaulted,
		})
		defaulted = append(defaulted, loan)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if len(defaulted) > 0 {
		log.WithFields(log.Fields{
			"count": len(defaulted),
			"asOf":  now,
		}).Warn("Marked overdue loans as defaulted")
	}

	return defaulted, nil
}

// lockLoan locks a loan row or returns ErrNotFound
func (s *loanService) lockLoan(ctx context.Context, uow UnitOfWork, loanID int64) (*models.Loan, error) {
	loan, err := uow.LoanRepository().GetByIDForUpdate(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock loan: %w", err)
	}
	if loan == nil {
		return nil, fmt.Errorf("%w: loan %d", ErrNotFound, loanID)
	}
	return loan, nil
}
