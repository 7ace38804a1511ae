package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gamecredits/events"
	"gamecredits/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testStipendAmount   = int64(200)
	testStipendInterval = 7 * 24 * time.Hour
)

var testRunID = uuid.MustParse("6f1c1b2e-4a7d-4d55-9a62-0c9f3d4b8e11")

func newTestStipendService(m *TestMocks) *stipendService {
	s := NewStipendService(m.Factory, testStipendAmount, testStipendInterval).(*stipendService)
	s.now = fixedClock
	s.newRunID = func() uuid.UUID { return testRunID }
	return s
}

func TestStipendService_GrantWeeklyStipends(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cutoff := testNow.Add(-testStipendInterval)

	t.Run("grants each eligible player in its own transaction", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		m.Events.On("Publish", mock.AnythingOfType("events.LedgerEntryPostedEvent")).Return()
		m.Events.On("Publish", mock.MatchedBy(func(e events.StipendRunCompletedEvent) bool {
			return e.RunID == testRunID.String() && e.GrantedCount == 2
		})).Return().Once()

		never := newPlayer(TestPlayer1ID, 0)
		lastWeek := newPlayer(TestPlayer2ID, 50)
		exactlyDue := testNow.Add(-testStipendInterval)
		lastWeek.LastStipendAt = &exactlyDue

		m.Players.On("ListStipendEligible", mock.Anything, cutoff).Return([]*models.Player{never, lastWeek}, nil)
		m.Players.On("GetByIDForUpdate", mock.Anything, TestPlayer1ID).Return(never, nil)
		m.Players.On("GetByIDForUpdate", mock.Anything, TestPlayer2ID).Return(lastWeek, nil)
		m.Players.On("MarkStipendGranted", mock.Anything, TestPlayer1ID, testNow).Return(nil)
		m.Players.On("MarkStipendGranted", mock.Anything, TestPlayer2ID, testNow).Return(nil)
		m.ExpectPost(TestPlayer1ID, testStipendAmount, models.LedgerCategoryWeeklyStipend, 0)
		m.ExpectPost(TestPlayer2ID, testStipendAmount, models.LedgerCategoryWeeklyStipend, 50)
		m.StipendRuns.On("Record", mock.Anything, mock.AnythingOfType("*models.StipendRun")).Return(nil)
		m.UoW.On("Commit").Return(nil).Times(3)

		run, err := newTestStipendService(m).GrantWeeklyStipends(ctx, testNow)

		require.NoError(t, err)
		assert.Equal(t, testRunID, run.ID)
		assert.Equal(t, 2, run.EligibleCount)
		assert.Equal(t, 2, run.GrantedCount)
		assert.Equal(t, 0, run.FailedCount)
		assert.Equal(t, int64(400), run.TotalGranted)
		m.AssertAllExpectations(t)
	})

	t.Run("nobody eligible records and announces nothing", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		m.Players.On("ListStipendEligible", mock.Anything, mock.AnythingOfType("time.Time")).Return([]*models.Player{}, nil)

		svc := newTestStipendService(m)
		for i := 0; i < 24; i++ {
			run, err := svc.GrantWeeklyStipends(ctx, testNow.Add(time.Duration(i)*time.Hour))
			require.NoError(t, err)
			assert.Equal(t, 0, run.EligibleCount)
			assert.Equal(t, 0, run.GrantedCount)
		}

		m.StipendRuns.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
		m.Events.AssertNotCalled(t, "Publish", mock.Anything)
		m.UoW.AssertNotCalled(t, "Commit")
	})

	t.Run("player granted since listing is skipped", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		m.AllowEvents()

		stale := newPlayer(TestPlayer1ID, 0)
		justGranted := testNow.Add(-time.Minute)
		locked := newPlayer(TestPlayer1ID, 200)
		locked.LastStipendAt = &justGranted

		m.Players.On("ListStipendEligible", mock.Anything, cutoff).Return([]*models.Player{stale}, nil)
		m.Players.On("GetByIDForUpdate", mock.Anything, TestPlayer1ID).Return(locked, nil)
		m.StipendRuns.On("Record", mock.Anything, mock.Anything).Return(nil)
		m.UoW.On("Commit").Return(nil).Once()

		run, err := newTestStipendService(m).GrantWeeklyStipends(ctx, testNow)

		require.NoError(t, err)
		assert.Equal(t, 0, run.GrantedCount)
		assert.Equal(t, 1, run.SkippedCount)
		m.Writer.AssertNotCalled(t, "Post", mock.Anything, mock.Anything)
		m.Players.AssertNotCalled(t, "MarkStipendGranted", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("one failure does not stop the batch", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		m.AllowEvents()

		first := newPlayer(TestPlayer1ID, 0)
		second := newPlayer(TestPlayer2ID, 0)
		m.Players.On("ListStipendEligible", mock.Anything, cutoff).Return([]*models.Player{first, second}, nil)
		m.Players.On("GetByIDForUpdate", mock.Anything, TestPlayer1ID).Return(nil, errors.New("lock timeout"))
		m.Players.On("GetByIDForUpdate", mock.Anything, TestPlayer2ID).Return(second, nil)
		m.Players.On("MarkStipendGranted", mock.Anything, TestPlayer2ID, testNow).Return(nil)
		m.ExpectPost(TestPlayer2ID, testStipendAmount, models.LedgerCategoryWeeklyStipend, 0)
		m.StipendRuns.On("Record", mock.Anything, mock.MatchedBy(func(r *models.StipendRun) bool {
			return r.FailedCount == 1 && r.ErrorSummary != ""
		})).Return(nil)
		m.UoW.On("Commit").Return(nil).Times(2)

		run, err := newTestStipendService(m).GrantWeeklyStipends(ctx, testNow)

		require.NoError(t, err)
		assert.Equal(t, 1, run.GrantedCount)
		assert.Equal(t, 1, run.FailedCount)
		assert.Contains(t, run.ErrorSummary, "lock timeout")
	})
}

func TestStipendService_GrantWeeklyStipendsAs(t *testing.T) {
	t.Parallel()
	m := NewTestMocks()
	m.ExpectPlayer(newPlayer(TestPlayer1ID, 0))

	_, err := newTestStipendService(m).GrantWeeklyStipendsAs(context.Background(), TestPlayer1ID, testNow)

	assert.ErrorIs(t, err, ErrUnauthorized)
	m.Players.AssertNotCalled(t, "ListStipendEligible", mock.Anything, mock.Anything)
}
