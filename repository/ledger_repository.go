package repository

import (
	"context"
	"errors"
	"fmt"

	"gamecredits/database"
	"gamecredits/models"
	"gamecredits/service"

	"github.com/jackc/pgx/v5"
)

const ledgerEntryColumns = `id, player_id, amount, category, reference_id, reference_type, description, balance_after, created_at`

// ledgerWriter implements service.LedgerWriter. It exists only inside a unit of work.
type ledgerWriter struct {
	q queryable
}

func newLedgerWriterWithTx(tx queryable) *ledgerWriter {
	return &ledgerWriter{q: tx}
}

// Post updates the balance and appends the entry in a single statement. The
// UPDATE takes the player's row lock, so concurrent posts to one player
// serialize while posts to different players proceed independently.
func (w *ledgerWriter) Post(ctx context.Context, entry *models.LedgerEntry) error {
	query := `
		WITH updated AS (
			UPDATE players
			SET balance = balance + $2, updated_at = NOW()
			WHERE id = $1 AND balance + $2 >= 0
			RETURNING id, balance
		)
		INSERT INTO ledger_entries (player_id, amount, category, reference_id, reference_type, description, balance_after)
		SELECT id, $2, $3, $4, $5, $6, balance FROM updated
		RETURNING id, balance_after, created_at
	`

	err := w.q.QueryRow(ctx, query,
		entry.PlayerID,
		entry.Amount,
		string(entry.Category),
		entry.ReferenceID,
		referenceTypeParam(entry.ReferenceType),
		entry.Description,
	).Scan(&entry.ID, &entry.BalanceAfter, &entry.CreatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to post ledger entry for player %d: %w", entry.PlayerID, err)
	}

	// Nothing was updated: the player is missing or the debit would overdraw
	var balance int64
	err = w.q.QueryRow(ctx, `SELECT balance FROM players WHERE id = $1`, entry.PlayerID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: player %d", service.ErrNotFound, entry.PlayerID)
	}
	if err != nil {
		return fmt.Errorf("failed to check player %d: %w", entry.PlayerID, err)
	}

	return fmt.Errorf("%w: player %d has %d, needs %d", service.ErrInsufficientBalance, entry.PlayerID, balance, -entry.Amount)
}

// LedgerRepository implements the LedgerRepository interface
type LedgerRepository struct {
	q queryable
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{q: db.Pool}
}

// newLedgerRepositoryWithTx creates a new ledger repository with a transaction
func newLedgerRepositoryWithTx(tx queryable) *LedgerRepository {
	return &LedgerRepository{q: tx}
}

// ListByPlayer returns the player's newest entries first
func (r *LedgerRepository) ListByPlayer(ctx context.Context, playerID int64, limit int) ([]*models.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerEntryColumns + `
		FROM ledger_entries
		WHERE player_id = $1
		ORDER BY id DESC
		LIMIT $2`

	return r.list(ctx, query, playerID, limit)
}

// ListAllByPlayer returns every entry for the player, oldest first
func (r *LedgerRepository) ListAllByPlayer(ctx context.Context, playerID int64) ([]*models.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerEntryColumns + `
		FROM ledger_entries
		WHERE player_id = $1
		ORDER BY id`

	return r.list(ctx, query, playerID)
}

// ListByReference returns entries pointing at one entity, oldest first
func (r *LedgerRepository) ListByReference(ctx context.Context, referenceType models.ReferenceType, referenceID int64) ([]*models.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerEntryColumns + `
		FROM ledger_entries
		WHERE reference_type = $1 AND reference_id = $2
		ORDER BY id`

	return r.list(ctx, query, string(referenceType), referenceID)
}

func (r *LedgerRepository) list(ctx context.Context, query string, args ...any) ([]*models.LedgerEntry, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		var (
			entry         models.LedgerEntry
			category      string
			referenceType *string
		)
		err := rows.Scan(
			&entry.ID,
			&entry.PlayerID,
			&entry.Amount,
			&category,
			&entry.ReferenceID,
			&referenceType,
			&entry.Description,
			&entry.BalanceAfter,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entry.Category = models.LedgerCategory(category)
		if referenceType != nil {
			rt := models.ReferenceType(*referenceType)
			entry.ReferenceType = &rt
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

func referenceTypeParam(rt *models.ReferenceType) *string {
	if rt == nil {
		return nil
	}
	s := string(*rt)
	return &s
}
