package service

import (
	"testing"
	"time"

	"gamecredits/models"

	"github.com/stretchr/testify/mock"
)

// Test IDs
const (
	TestAdminID   = int64(1)
	TestPlayer1ID = int64(101)
	TestPlayer2ID = int64(102)
	TestPlayer3ID = int64(103)
	TestEventID   = int64(10)
	TestOption1ID = int64(11)
	TestOption2ID = int64(12)
	TestLoanID    = int64(20)
)

var testNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// TestMocks holds a unit of work wired to mock repositories
type TestMocks struct {
	Factory     *MockUnitOfWorkFactory
	UoW         *MockUnitOfWork
	Players     *MockPlayerRepository
	Ledger      *MockLedgerRepository
	Writer      *MockLedgerWriter
	Challenges  *MockChallengeRepository
	Betting     *MockBettingRepository
	Loans       *MockLoanRepository
	StipendRuns *MockStipendRunRepository
	Stats       *MockStatsRepository
	Events      *MockEventPublisher
}

// NewTestMocks creates mocks where every Create() returns the same unit of work.
// Begin and Rollback are always allowed; Commit must be expected explicitly.
func NewTestMocks() *TestMocks {
	m := &TestMocks{
		Factory:     new(MockUnitOfWorkFactory),
		Players:     new(MockPlayerRepository),
		Ledger:      new(MockLedgerRepository),
		Writer:      new(MockLedgerWriter),
		Challenges:  new(MockChallengeRepository),
		Betting:     new(MockBettingRepository),
		Loans:       new(MockLoanRepository),
		StipendRuns: new(MockStipendRunRepository),
		Stats:       new(MockStatsRepository),
		Events:      new(MockEventPublisher),
	}
	m.UoW = &MockUnitOfWork{
		players:     m.Players,
		ledger:      m.Ledger,
		writer:      m.Writer,
		challenges:  m.Challenges,
		betting:     m.Betting,
		loans:       m.Loans,
		stipendRuns: m.StipendRuns,
		stats:       m.Stats,
		events:      m.Events,
	}
	m.Factory.On("Create").Return(m.UoW)
	m.UoW.On("Begin", mock.Anything).Return(nil)
	m.UoW.On("Rollback").Return(nil).Maybe()
	return m
}

// ExpectCommit expects the unit of work to commit successfully
func (m *TestMocks) ExpectCommit() {
	m.UoW.On("Commit").Return(nil)
}

// ExpectPlayer makes GetByID return the player
func (m *TestMocks) ExpectPlayer(player *models.Player) {
	m.Players.On("GetByID", mock.Anything, player.ID).Return(player, nil)
}

// ExpectPost expects one ledger post for the player and amount, filling the
// entry the way the database would from the given starting balance
func (m *TestMocks) ExpectPost(playerID, amount int64, category models.LedgerCategory, balanceBefore int64) *mock.Call {
	return m.Writer.On("Post", mock.Anything, mock.MatchedBy(func(e *models.LedgerEntry) bool {
		return e.PlayerID == playerID && e.Amount == amount && e.Category == category
	})).Run(func(args mock.Arguments) {
		entry := args.Get(1).(*models.LedgerEntry)
		entry.ID = playerID*1000 + amount
		entry.BalanceAfter = balanceBefore + amount
		entry.CreatedAt = testNow
	}).Return(nil).Once()
}

// AllowEvents accepts any published event
func (m *TestMocks) AllowEvents() {
	m.Events.On("Publish", mock.Anything).Return().Maybe()
}

// AssertAllExpectations asserts all mock expectations
func (m *TestMocks) AssertAllExpectations(t *testing.T) {
	m.Factory.AssertExpectations(t)
	m.UoW.AssertExpectations(t)
	m.Players.AssertExpectations(t)
	m.Ledger.AssertExpectations(t)
	m.Writer.AssertExpectations(t)
	m.Challenges.AssertExpectations(t)
	m.Betting.AssertExpectations(t)
	m.Loans.AssertExpectations(t)
	m.StipendRuns.AssertExpectations(t)
	m.Stats.AssertExpectations(t)
	m.Events.AssertExpectations(t)
}

func newPlayer(id, balance int64) *models.Player {
	return &models.Player{ID: id, Username: "player", Balance: balance}
}

func newAdmin() *models.Player {
	return &models.Player{ID: TestAdminID, Username: "admin", IsAdmin: true}
}
