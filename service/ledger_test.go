package service

import (
	"context"
	"errors"
	"testing"

	"gamecredits/events"
	"gamecredits/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLedger_Apply(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("posts entry and publishes event", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		m.ExpectPost(TestPlayer1ID, 250, models.LedgerCategoryWeeklyStipend, 100)
		m.Events.On("Publish", mock.MatchedBy(func(e events.LedgerEntryPostedEvent) bool {
			return e.PlayerID == TestPlayer1ID && e.BalanceBefore == 100 && e.BalanceAfter == 350
		})).Return().Once()

		entry, err := NewLedger(m.UoW).Apply(ctx, ApplyRequest{
			PlayerID:    TestPlayer1ID,
			Amount:      250,
			Category:    models.LedgerCategoryWeeklyStipend,
			Description: "Weekly stipend",
		})

		require.NoError(t, err)
		assert.Equal(t, int64(350), entry.BalanceAfter)
		m.AssertAllExpectations(t)
	})

	tests := []struct {
		name string
		req  ApplyRequest
	}{
		{
			name: "unknown category",
			req:  ApplyRequest{PlayerID: TestPlayer1ID, Amount: 10, Category: "mystery", Description: "x"},
		},
		{
			name: "zero amount",
			req:  ApplyRequest{PlayerID: TestPlayer1ID, Amount: 0, Category: models.LedgerCategoryBetWin, Description: "x"},
		},
		{
			name: "credit category with negative amount",
			req:  ApplyRequest{PlayerID: TestPlayer1ID, Amount: -10, Category: models.LedgerCategoryBetWin, Description: "x"},
		},
		{
			name: "debit category with positive amount",
			req:  ApplyRequest{PlayerID: TestPlayer1ID, Amount: 10, Category: models.LedgerCategoryBetPlaced, Description: "x"},
		},
		{
			name: "blank description",
			req:  ApplyRequest{PlayerID: TestPlayer1ID, Amount: 10, Category: models.LedgerCategoryBetWin, Description: "  "},
		},
		{
			name: "reference id without type",
			req: ApplyRequest{PlayerID: TestPlayer1ID, Amount: 10, Category: models.LedgerCategoryBetWin, Description: "x",
				ReferenceID: new(int64)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewTestMocks()

			_, err := NewLedger(m.UoW).Apply(ctx, tt.req)

			assert.ErrorIs(t, err, ErrValidation)
			m.Writer.AssertNotCalled(t, "Post", mock.Anything, mock.Anything)
		})
	}

	t.Run("insufficient balance is propagated", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		m.Writer.On("Post", mock.Anything, mock.Anything).Return(ErrInsufficientBalance)

		_, err := NewLedger(m.UoW).Apply(ctx, ApplyRequest{
			PlayerID:    TestPlayer1ID,
			Amount:      -500,
			Category:    models.LedgerCategoryBetPlaced,
			Description: "Bet",
		})

		assert.ErrorIs(t, err, ErrInsufficientBalance)
		m.Events.AssertNotCalled(t, "Publish", mock.Anything)
	})
}

func TestLedger_Transfer(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	req := TransferRequest{
		FromPlayerID:      TestPlayer2ID,
		ToPlayerID:        TestPlayer1ID,
		Amount:            300,
		DebitCategory:     models.LedgerCategoryLoanFunded,
		CreditCategory:    models.LedgerCategoryLoanReceived,
		DebitDescription:  "Funded loan",
		CreditDescription: "Received loan",
	}

	t.Run("locks both parties then posts debit and credit", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		m.AllowEvents()
		m.Players.On("LockForUpdate", mock.Anything, []int64{TestPlayer2ID, TestPlayer1ID}).Return(nil).Once()
		m.ExpectPost(TestPlayer2ID, -300, models.LedgerCategoryLoanFunded, 1000)
		m.ExpectPost(TestPlayer1ID, 300, models.LedgerCategoryLoanReceived, 0)

		debit, credit, err := NewLedger(m.UoW).Transfer(ctx, req)

		require.NoError(t, err)
		assert.Equal(t, int64(700), debit.BalanceAfter)
		assert.Equal(t, int64(300), credit.BalanceAfter)
		m.AssertAllExpectations(t)
	})

	t.Run("failing credit leg returns error after debit", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		m.AllowEvents()
		m.Players.On("LockForUpdate", mock.Anything, mock.Anything).Return(nil)
		m.ExpectPost(TestPlayer2ID, -300, models.LedgerCategoryLoanFunded, 1000)
		injected := errors.New("connection reset")
		m.Writer.On("Post", mock.Anything, mock.MatchedBy(func(e *models.LedgerEntry) bool {
			return e.PlayerID == TestPlayer1ID
		})).Return(injected).Once()

		_, _, err := NewLedger(m.UoW).Transfer(ctx, req)

		assert.ErrorIs(t, err, injected)
	})

	t.Run("rejects self transfer", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		self := req
		self.ToPlayerID = self.FromPlayerID

		_, _, err := NewLedger(m.UoW).Transfer(ctx, self)

		assert.ErrorIs(t, err, ErrValidation)
		m.Players.AssertNotCalled(t, "LockForUpdate", mock.Anything, mock.Anything)
	})
}

func TestLedgerService_Apply(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		m.AllowEvents()
		m.ExpectPost(TestPlayer1ID, 50, models.LedgerCategoryChallengeReward, 0)
		m.ExpectCommit()

		entry, err := NewLedgerService(m.Factory).Apply(ctx, ApplyRequest{
			PlayerID:    TestPlayer1ID,
			Amount:      50,
			Category:    models.LedgerCategoryChallengeReward,
			Description: "Manual reward",
		})

		require.NoError(t, err)
		assert.Equal(t, int64(50), entry.BalanceAfter)
		m.AssertAllExpectations(t)
	})

	t.Run("does not commit on overdraft", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		m.Writer.On("Post", mock.Anything, mock.Anything).Return(ErrInsufficientBalance)

		_, err := NewLedgerService(m.Factory).Apply(ctx, ApplyRequest{
			PlayerID:    TestPlayer1ID,
			Amount:      -50,
			Category:    models.LedgerCategoryBetPlaced,
			Description: "Bet",
		})

		assert.ErrorIs(t, err, ErrInsufficientBalance)
		m.UoW.AssertNotCalled(t, "Commit")
		m.UoW.AssertCalled(t, "Rollback")
	})
}

func TestLedgerService_Reconcile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("consistent ledger", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		m.Players.On("GetByIDForUpdate", mock.Anything, TestPlayer1ID).Return(newPlayer(TestPlayer1ID, 150), nil)
		m.Ledger.On("ListAllByPlayer", mock.Anything, TestPlayer1ID).Return([]*models.LedgerEntry{
			{ID: 1, Amount: 200, BalanceAfter: 200},
			{ID: 2, Amount: -50, BalanceAfter: 150},
		}, nil)

		report, err := NewLedgerService(m.Factory).Reconcile(ctx, TestPlayer1ID)

		require.NoError(t, err)
		assert.True(t, report.IsConsistent())
		assert.Equal(t, int64(150), report.EntrySum)
	})

	t.Run("drifted balance is reported", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		m.Players.On("GetByIDForUpdate", mock.Anything, TestPlayer1ID).Return(newPlayer(TestPlayer1ID, 999), nil)
		m.Ledger.On("ListAllByPlayer", mock.Anything, TestPlayer1ID).Return([]*models.LedgerEntry{
			{ID: 1, Amount: 200, BalanceAfter: 200},
		}, nil)

		report, err := NewLedgerService(m.Factory).Reconcile(ctx, TestPlayer1ID)

		require.NoError(t, err)
		assert.False(t, report.IsConsistent())
	})

	t.Run("unknown player", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		m.Players.On("GetByIDForUpdate", mock.Anything, TestPlayer1ID).Return(nil, nil)

		_, err := NewLedgerService(m.Factory).Reconcile(ctx, TestPlayer1ID)

		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLedgerService_GetHistory(t *testing.T) {
	t.Parallel()
	m := NewTestMocks()
	m.ExpectPlayer(newPlayer(TestPlayer1ID, 10))
	m.Ledger.On("ListByPlayer", mock.Anything, TestPlayer1ID, 5).Return([]*models.LedgerEntry{{ID: 3}}, nil)

	entries, err := NewLedgerService(m.Factory).GetHistory(context.Background(), TestPlayer1ID, 5)

	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = NewLedgerService(m.Factory).GetHistory(context.Background(), TestPlayer1ID, 0)
	assert.ErrorIs(t, err, ErrValidation)
}
