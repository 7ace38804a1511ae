package service

import (
	"context"
	"time"

	"gamecredits/events"
	"gamecredits/models"

	"github.com/stretchr/testify/mock"
)

// MockPlayerRepository is a mock implementation of PlayerRepository
type MockPlayerRepository struct {
	mock.Mock
}

func (m *MockPlayerRepository) Create(ctx context.Context, username string, isAdmin bool) (*models.Player, error) {
	args := m.Called(ctx, username, isAdmin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Player), args.Error(1)
}

func (m *MockPlayerRepository) GetByID(ctx context.Context, id int64) (*models.Player, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Player), args.Error(1)
}

func (m *MockPlayerRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Player, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Player), args.Error(1)
}

func (m *MockPlayerRepository) LockForUpdate(ctx context.Context, ids ...int64) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockPlayerRepository) ListStipendEligible(ctx context.Context, cutoff time.Time) ([]*models.Player, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Player), args.Error(1)
}

func (m *MockPlayerRepository) MarkStipendGranted(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockPlayerRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockPlayerRepository) CountWithBalanceAbove(ctx context.Context, balance int64) (int, error) {
	args := m.Called(ctx, balance)
	return args.Int(0), args.Error(1)
}

// MockLedgerWriter is a mock implementation of LedgerWriter
type MockLedgerWriter struct {
	mock.Mock
}

func (m *MockLedgerWriter) Post(ctx context.Context, entry *models.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MockLedgerRepository is a mock implementation of LedgerRepository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) ListByPlayer(ctx context.Context, playerID int64, limit int) ([]*models.LedgerEntry, error) {
	args := m.Called(ctx, playerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) ListAllByPlayer(ctx context.Context, playerID int64) ([]*models.LedgerEntry, error) {
	args := m.Called(ctx, playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) ListByReference(ctx context.Context, referenceType models.ReferenceType, referenceID int64) ([]*models.LedgerEntry, error) {
	args := m.Called(ctx, referenceType, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LedgerEntry), args.Error(1)
}

// MockChallengeRepository is a mock implementation of ChallengeRepository
type MockChallengeRepository struct {
	mock.Mock
}

func (m *MockChallengeRepository) Create(ctx context.Context, challenge *models.Challenge) error {
	args := m.Called(ctx, challenge)
	return args.Error(0)
}

func (m *MockChallengeRepository) GetByID(ctx context.Context, id int64) (*models.Challenge, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Challenge), args.Error(1)
}

func (m *MockChallengeRepository) ListActive(ctx context.Context, now time.Time) ([]*models.Challenge, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Challenge), args.Error(1)
}

func (m *MockChallengeRepository) CreateSubmission(ctx context.Context, submission *models.ChallengeSubmission) error {
	args := m.Called(ctx, submission)
	return args.Error(0)
}

func (m *MockChallengeRepository) GetSubmissionForUpdate(ctx context.Context, id int64) (*models.ChallengeSubmission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChallengeSubmission), args.Error(1)
}

func (m *MockChallengeRepository) HasOpenSubmission(ctx context.Context, challengeID, playerID int64) (bool, error) {
	args := m.Called(ctx, challengeID, playerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockChallengeRepository) UpdateSubmissionReview(ctx context.Context, submission *models.ChallengeSubmission) error {
	args := m.Called(ctx, submission)
	return args.Error(0)
}

func (m *MockChallengeRepository) ListPendingSubmissions(ctx context.Context, limit int) ([]*models.PendingSubmission, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PendingSubmission), args.Error(1)
}

func (m *MockChallengeRepository) CountApprovedByPlayer(ctx context.Context, playerID int64) (int, error) {
	args := m.Called(ctx, playerID)
	return args.Int(0), args.Error(1)
}

// MockBettingRepository is a mock implementation of BettingRepository
type MockBettingRepository struct {
	mock.Mock
}

func (m *MockBettingRepository) CreateEvent(ctx context.Context, event *models.BettingEvent, options []*models.BettingOption) error {
	args := m.Called(ctx, event, options)
	return args.Error(0)
}

func (m *MockBettingRepository) GetEvent(ctx context.Context, id int64) (*models.BettingEventDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BettingEventDetail), args.Error(1)
}

func (m *MockBettingRepository) GetEventForUpdate(ctx context.Context, id int64) (*models.BettingEventDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BettingEventDetail), args.Error(1)
}

func (m *MockBettingRepository) GetEventForShare(ctx context.Context, id int64) (*models.BettingEventDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BettingEventDetail), args.Error(1)
}

func (m *MockBettingRepository) UpdateEvent(ctx context.Context, event *models.BettingEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockBettingRepository) ListEvents(ctx context.Context, status *models.BettingEventStatus) ([]*models.BettingEventDetail, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BettingEventDetail), args.Error(1)
}

func (m *MockBettingRepository) CreateBet(ctx context.Context, bet *models.Bet) error {
	args := m.Called(ctx, bet)
	return args.Error(0)
}

func (m *MockBettingRepository) GetBet(ctx context.Context, id int64) (*models.Bet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockBettingRepository) GetBetForUpdate(ctx context.Context, id int64) (*models.Bet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockBettingRepository) GetActiveBetsForUpdate(ctx context.Context, eventID int64) ([]*models.Bet, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *MockBettingRepository) UpdateBet(ctx context.Context, bet *models.Bet) error {
	args := m.Called(ctx, bet)
	return args.Error(0)
}

func (m *MockBettingRepository) ListBetsByPlayer(ctx context.Context, playerID int64, limit int) ([]*models.Bet, error) {
	args := m.Called(ctx, playerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

// MockLoanRepository is a mock implementation of LoanRepository
type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Create(ctx context.Context, loan *models.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByID(ctx context.Context, id int64) (*models.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Loan), args.Error(1)
}

func (m *MockLoanRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Loan), args.Error(1)
}

func (m *MockLoanRepository) Update(ctx context.Context, loan *models.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) ListPending(ctx context.Context, limit int) ([]*models.Loan, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Loan), args.Error(1)
}

func (m *MockLoanRepository) ListByPlayer(ctx context.Context, playerID int64) ([]*models.Loan, error) {
	args := m.Called(ctx, playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Loan), args.Error(1)
}

func (m *MockLoanRepository) ListOverdueFundedForUpdate(ctx context.Context, now time.Time) ([]*models.Loan, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Loan), args.Error(1)
}

// MockStipendRunRepository is a mock implementation of StipendRunRepository
type MockStipendRunRepository struct {
	mock.Mock
}

func (m *MockStipendRunRepository) Record(ctx context.Context, run *models.StipendRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockStipendRunRepository) GetLatest(ctx context.Context) (*models.StipendRun, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StipendRun), args.Error(1)
}

// MockStatsRepository is a mock implementation of StatsRepository
type MockStatsRepository struct {
	mock.Mock
}

func (m *MockStatsRepository) GetLeaderboard(ctx context.Context, limit int, since time.Time) ([]*models.LeaderboardEntry, error) {
	args := m.Called(ctx, limit, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LeaderboardEntry), args.Error(1)
}

func (m *MockStatsRepository) GetBetStats(ctx context.Context, playerID int64) (*models.BetStats, error) {
	args := m.Called(ctx, playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BetStats), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock UnitOfWork whose repositories are the mocks above
type MockUnitOfWork struct {
	mock.Mock

	players     *MockPlayerRepository
	ledger      *MockLedgerRepository
	writer      *MockLedgerWriter
	challenges  *MockChallengeRepository
	betting     *MockBettingRepository
	loans       *MockLoanRepository
	stipendRuns *MockStipendRunRepository
	stats       *MockStatsRepository
	events      *MockEventPublisher
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) PlayerRepository() PlayerRepository         { return m.players }
func (m *MockUnitOfWork) LedgerRepository() LedgerRepository         { return m.ledger }
func (m *MockUnitOfWork) LedgerWriter() LedgerWriter                 { return m.writer }
func (m *MockUnitOfWork) ChallengeRepository() ChallengeRepository   { return m.challenges }
func (m *MockUnitOfWork) BettingRepository() BettingRepository       { return m.betting }
func (m *MockUnitOfWork) LoanRepository() LoanRepository             { return m.loans }
func (m *MockUnitOfWork) StipendRunRepository() StipendRunRepository { return m.stipendRuns }
func (m *MockUnitOfWork) StatsRepository() StatsRepository           { return m.stats }
func (m *MockUnitOfWork) EventBus() EventPublisher                   { return m.events }

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
