package testutil

import (
	"context"
	"testing"
	"time"

	"gamecredits/database"
	"gamecredits/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// SeedPlayer inserts a player whose opening balance is backed by a single
// ledger entry, so balance and entry sum agree from the start
func SeedPlayer(t *testing.T, db *database.DB, username string, isAdmin bool, balance int64) *models.Player {
	t.Helper()
	ctx := context.Background()

	var player models.Player
	err := db.QueryRow(ctx, `
		INSERT INTO players (username, is_admin, balance)
		VALUES ($1, $2, $3)
		RETURNING id, username, balance, is_admin, last_stipend_at, created_at, updated_at`,
		username, isAdmin, balance,
	).Scan(&player.ID, &player.Username, &player.Balance, &player.IsAdmin, &player.LastStipendAt, &player.CreatedAt, &player.UpdatedAt)
	require.NoError(t, err)

	if balance != 0 {
		_, err = db.Exec(ctx, `
			INSERT INTO ledger_entries (player_id, amount, category, description, balance_after)
			VALUES ($1, $2, 'challenge_reward', 'Opening balance', $2)`,
			player.ID, balance,
		)
		require.NoError(t, err)
	}

	return &player
}

// SetLastStipend backdates a player's last stipend grant
func SetLastStipend(t *testing.T, db *database.DB, playerID int64, at time.Time) {
	t.Helper()
	_, err := db.Exec(context.Background(), `UPDATE players SET last_stipend_at = $2 WHERE id = $1`, playerID, at)
	require.NoError(t, err)
}

// CountLedgerEntries returns how many entries a player has in a category
func CountLedgerEntries(t *testing.T, db *database.DB, playerID int64, category models.LedgerCategory) int {
	t.Helper()
	var count int
	err := db.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM ledger_entries WHERE player_id = $1 AND category = $2`,
		playerID, string(category),
	).Scan(&count)
	require.NoError(t, err)
	return count
}

// GetBalance reads a player's stored balance directly
func GetBalance(t *testing.T, db *database.DB, playerID int64) int64 {
	t.Helper()
	var balance int64
	err := db.QueryRow(context.Background(), `SELECT balance FROM players WHERE id = $1`, playerID).Scan(&balance)
	require.NoError(t, err)
	return balance
}

// RequireLedgerConsistent asserts the balance equals the entry sum and every
// balance_after follows from the entry before it
func RequireLedgerConsistent(t *testing.T, db *database.DB, playerID int64) {
	t.Helper()
	ctx := context.Background()

	rows, err := db.Query(ctx, `SELECT id, amount, balance_after FROM ledger_entries WHERE player_id = $1 ORDER BY id`, playerID)
	require.NoError(t, err)
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		var entry models.LedgerEntry
		require.NoError(t, rows.Scan(&entry.ID, &entry.Amount, &entry.BalanceAfter))
		entries = append(entries, &entry)
	}
	require.NoError(t, rows.Err())

	report := models.ReconcileEntries(playerID, GetBalance(t, db, playerID), entries)
	require.True(t, report.IsConsistent(), "ledger inconsistent for player %d: %+v", playerID, report)
}

// NewTestPlayer builds an in-memory player for unit tests
func NewTestPlayer(id int64, username string, balance int64) *models.Player {
	now := time.Now().UTC()
	return &models.Player{
		ID:        id,
		Username:  username,
		Balance:   balance,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestAdmin builds an in-memory admin player for unit tests
func NewTestAdmin(id int64) *models.Player {
	admin := NewTestPlayer(id, "admin", 0)
	admin.IsAdmin = true
	return admin
}

// NewTestEvent builds an event with options at the given multipliers, ids starting at optionBaseID
func NewTestEvent(eventID, optionBaseID int64, status models.BettingEventStatus, multipliers ...string) *models.BettingEventDetail {
	detail := &models.BettingEventDetail{
		Event: &models.BettingEvent{
			ID:        eventID,
			Title:     "Test Event",
			Status:    status,
			CreatedAt: time.Now().UTC(),
		},
	}
	for i, multiplier := range multipliers {
		detail.Options = append(detail.Options, &models.BettingOption{
			ID:          optionBaseID + int64(i),
			EventID:     eventID,
			Label:       string(rune('A' + i)),
			Multiplier:  decimal.RequireFromString(multiplier),
			OptionOrder: int16(i + 1),
		})
	}
	return detail
}

// NewTestLoan builds a loan in the given status
func NewTestLoan(id, borrowerID int64, lenderID *int64, amount int64, rate string, status models.LoanStatus) *models.Loan {
	r := decimal.RequireFromString(rate)
	total, err := models.CalculateTotalRepayment(amount, r)
	if err != nil {
		panic(err)
	}
	now := time.Now().UTC()
	return &models.Loan{
		ID:             id,
		BorrowerID:     borrowerID,
		LenderID:       lenderID,
		Amount:         amount,
		InterestRate:   r,
		TotalRepayment: total,
		DueDate:        now.AddDate(0, 0, 7),
		Status:         status,
		CreatedAt:      now,
	}
}
