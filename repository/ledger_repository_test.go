package repository

import (
	"context"
	"testing"

	"gamecredits/models"
	"gamecredits/repository/testutil"
	"gamecredits/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerWriter_Post(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	writer := newLedgerWriterWithTx(testDB.DB.Pool)
	ledgerRepo := NewLedgerRepository(testDB.DB)

	player := testutil.SeedPlayer(t, testDB.DB, "writer", false, 100)

	t.Run("credit updates balance and records balance_after", func(t *testing.T) {
		entry := &models.LedgerEntry{
			PlayerID:    player.ID,
			Amount:      50,
			Category:    models.LedgerCategoryWeeklyStipend,
			Description: "Weekly stipend",
		}

		require.NoError(t, writer.Post(ctx, entry))

		assert.NotZero(t, entry.ID)
		assert.Equal(t, int64(150), entry.BalanceAfter)
		assert.False(t, entry.CreatedAt.IsZero())
		assert.Equal(t, int64(150), testutil.GetBalance(t, testDB.DB, player.ID))
	})

	t.Run("debit with reference", func(t *testing.T) {
		betID := int64(42)
		refType := models.ReferenceTypeBet
		entry := &models.LedgerEntry{
			PlayerID:      player.ID,
			Amount:        -150,
			Category:      models.LedgerCategoryBetPlaced,
			Description:   "Bet",
			ReferenceID:   &betID,
			ReferenceType: &refType,
		}

		require.NoError(t, writer.Post(ctx, entry))
		assert.Equal(t, int64(0), entry.BalanceAfter)

		byRef, err := ledgerRepo.ListByReference(ctx, models.ReferenceTypeBet, betID)
		require.NoError(t, err)
		require.Len(t, byRef, 1)
		assert.Equal(t, entry.ID, byRef[0].ID)
	})

	t.Run("overdraft is rejected without an entry", func(t *testing.T) {
		entry := &models.LedgerEntry{
			PlayerID:    player.ID,
			Amount:      -1,
			Category:    models.LedgerCategoryBetPlaced,
			Description: "Bet",
		}

		err := writer.Post(ctx, entry)

		assert.ErrorIs(t, err, service.ErrInsufficientBalance)
		assert.Equal(t, int64(0), testutil.GetBalance(t, testDB.DB, player.ID))
	})

	t.Run("unknown player", func(t *testing.T) {
		err := writer.Post(ctx, &models.LedgerEntry{
			PlayerID:    999999,
			Amount:      10,
			Category:    models.LedgerCategoryBetWin,
			Description: "Win",
		})

		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("history is newest first and reconciles", func(t *testing.T) {
		history, err := ledgerRepo.ListByPlayer(ctx, player.ID, 10)
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.Equal(t, models.LedgerCategoryBetPlaced, history[0].Category)

		all, err := ledgerRepo.ListAllByPlayer(ctx, player.ID)
		require.NoError(t, err)
		report := models.ReconcileEntries(player.ID, testutil.GetBalance(t, testDB.DB, player.ID), all)
		assert.True(t, report.IsConsistent())
	})

	t.Run("entries are append only", func(t *testing.T) {
		_, err := testDB.DB.Exec(ctx, `UPDATE ledger_entries SET amount = 1 WHERE player_id = $1`, player.ID)
		assert.Error(t, err)

		_, err = testDB.DB.Exec(ctx, `DELETE FROM ledger_entries WHERE player_id = $1`, player.ID)
		assert.Error(t, err)
	})
}
