package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gamecredits/database"
	"gamecredits/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const loanColumns = `id, borrower_id, lender_id, amount, interest_rate::text, total_repayment, due_date, purpose, status, created_at, funded_at, repaid_at, defaulted_at`

// LoanRepository implements the LoanRepository interface
type LoanRepository struct {
	q queryable
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *database.DB) *LoanRepository {
	return &LoanRepository{q: db.Pool}
}

// newLoanRepositoryWithTx creates a new loan repository with a transaction
func newLoanRepositoryWithTx(tx queryable) *LoanRepository {
	return &LoanRepository{q: tx}
}

// Create inserts a loan and fills its id and creation time
func (r *LoanRepository) Create(ctx context.Context, loan *models.Loan) error {
	query := `
		INSERT INTO loans (borrower_id, amount, interest_rate, total_repayment, due_date, purpose, status)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.q.QueryRow(ctx, query,
		loan.BorrowerID,
		loan.Amount,
		loan.InterestRate.String(),
		loan.TotalRepayment,
		loan.DueDate,
		loan.Purpose,
		string(loan.Status),
	).Scan(&loan.ID, &loan.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create loan: %w", err)
	}

	return nil
}

// GetByID retrieves a loan by id
func (r *LoanRepository) GetByID(ctx context.Context, id int64) (*models.Loan, error) {
	loan, err := scanLoan(r.q.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get loan %d: %w", id, err)
	}
	return loan, nil
}

// GetByIDForUpdate retrieves a loan and locks its row
func (r *LoanRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Loan, error) {
	loan, err := scanLoan(r.q.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock loan %d: %w", id, err)
	}
	return loan, nil
}

// Update persists status, lender and lifecycle timestamps
func (r *LoanRepository) Update(ctx context.Context, loan *models.Loan) error {
	query := `
		UPDATE loans
		SET status = $2, lender_id = $3, funded_at = $4, repaid_at = $5, defaulted_at = $6
		WHERE id = $1`

	result, err := r.q.Exec(ctx, query,
		loan.ID,
		string(loan.Status),
		loan.LenderID,
		loan.FundedAt,
		loan.RepaidAt,
		loan.DefaultedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update loan %d: %w", loan.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("loan %d not found", loan.ID)
	}

	return nil
}

// ListPending returns unfunded loans, newest first
func (r *LoanRepository) ListPending(ctx context.Context, limit int) ([]*models.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE status = 'pending'
		ORDER BY created_at DESC, id DESC
		LIMIT $1`

	return r.list(ctx, query, limit)
}

// ListByPlayer returns loans where the player is borrower or lender, newest first
func (r *LoanRepository) ListByPlayer(ctx context.Context, playerID int64) ([]*models.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE borrower_id = $1 OR lender_id = $1
		ORDER BY created_at DESC, id DESC`

	return r.list(ctx, query, playerID)
}

// ListOverdueFundedForUpdate locks funded loans whose due date is before now
func (r *LoanRepository) ListOverdueFundedForUpdate(ctx context.Context, now time.Time) ([]*models.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE status = 'funded' AND due_date < $1
		ORDER BY id
		FOR UPDATE SKIP LOCKED`

	return r.list(ctx, query, now)
}

func (r *LoanRepository) list(ctx context.Context, query string, args ...any) ([]*models.Loan, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query loans: %w", err)
	}
	defer rows.Close()

	var loans []*models.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, loan)
	}

	return loans, rows.Err()
}

func scanLoan(row pgx.Row) (*models.Loan, error) {
	var (
		loan   models.Loan
		rate   string
		status string
	)
	err := row.Scan(
		&loan.ID,
		&loan.BorrowerID,
		&loan.LenderID,
		&loan.Amount,
		&rate,
		&loan.TotalRepayment,
		&loan.DueDate,
		&loan.Purpose,
		&status,
		&loan.CreatedAt,
		&loan.FundedAt,
		&loan.RepaidAt,
		&loan.DefaultedAt,
	)
	if err != nil {
		return nil, err
	}

	loan.InterestRate, err = decimal.NewFromString(rate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse interest rate %q: %w", rate, err)
	}
	loan.Status = models.LoanStatus(status)
	return &loan, nil
}
