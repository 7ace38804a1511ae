package service

import (
	"context"
	"time"

	"gamecredits/events"
	"gamecredits/models"

	"github.com/shopspring/decimal"
)

// PlayerRepository defines the interface for player data access.
// It deliberately has no way to write a balance; see LedgerWriter.
type PlayerRepository interface {
	// Create creates a new player with a zero balance
	Create(ctx context.Context, username string, isAdmin bool) (*models.Player, error)

	// GetByID retrieves a player, returning nil if absent
	GetByID(ctx context.Context, id int64) (*models.Player, error)

	// GetByIDForUpdate retrieves a player and locks its row until the transaction ends
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Player, error)

	// LockForUpdate locks the given player rows in ascending id order.
	// Returns ErrNotFound if any of them is absent.
	LockForUpdate(ctx context.Context, ids ...int64) error

	// ListStipendEligible returns players whose last stipend is null or at/before cutoff
	ListStipendEligible(ctx context.Context, cutoff time.Time) ([]*models.Player, error)

	// MarkStipendGranted sets last_stipend_at
	MarkStipendGranted(ctx context.Context, id int64, at time.Time) error

	// Count returns the number of players
	Count(ctx context.Context) (int, error)

	// CountWithBalanceAbove returns how many players hold strictly more than balance
	CountWithBalanceAbove(ctx context.Context, balance int64) (int, error)
}

// LedgerWriter is the only path that changes a balance. It is consumed
// exclusively by Ledger; settlement services never call it directly.
type LedgerWriter interface {
	// Post adds entry.Amount to the player's balance and appends the entry in one
	// statement, filling ID, BalanceAfter and CreatedAt. Returns ErrNotFound for an
	// unknown player and ErrInsufficientBalance when the result would be negative.
	Post(ctx context.Context, entry *models.LedgerEntry) error
}

// LedgerRepository defines read access to the append-only ledger
type LedgerRepository interface {
	// ListByPlayer returns the newest entries first
	ListByPlayer(ctx context.Context, playerID int64, limit int) ([]*models.LedgerEntry, error)

	// ListAllByPlayer returns every entry oldest first
	ListAllByPlayer(ctx context.Context, playerID int64) ([]*models.LedgerEntry, error)

	// ListByReference returns entries pointing at an entity, oldest first
	ListByReference(ctx context.Context, referenceType models.ReferenceType, referenceID int64) ([]*models.LedgerEntry, error)
}

// ChallengeRepository defines data access for challenges and submissions
type ChallengeRepository interface {
	Create(ctx context.Context, challenge *models.Challenge) error
	GetByID(ctx context.Context, id int64) (*models.Challenge, error)
	ListActive(ctx context.Context, now time.Time) ([]*models.Challenge, error)

	CreateSubmission(ctx context.Context, submission *models.ChallengeSubmission) error

	// GetSubmissionForUpdate locks the submission row for a review decision
	GetSubmissionForUpdate(ctx context.Context, id int64) (*models.ChallengeSubmission, error)

	// HasOpenSubmission reports a pending or approved submission by the player for the challenge
	HasOpenSubmission(ctx context.Context, challengeID, playerID int64) (bool, error)

	// UpdateSubmissionReview persists status, reviewer and review time
	UpdateSubmissionReview(ctx context.Context, submission *models.ChallengeSubmission) error

	ListPendingSubmissions(ctx context.Context, limit int) ([]*models.PendingSubmission, error)

	// CountApprovedByPlayer returns the number of completed challenges
	CountApprovedByPlayer(ctx context.Context, playerID int64) (int, error)
}

// BettingRepository defines data access for betting events, options and bets
type BettingRepository interface {
	// CreateEvent persists the event and its options, filling their ids
	CreateEvent(ctx context.Context, event *models.BettingEvent, options []*models.BettingOption) error

	GetEvent(ctx context.Context, id int64) (*models.BettingEventDetail, error)

	// GetEventForUpdate locks the event row exclusively (resolution, cancellation, closing)
	GetEventForUpdate(ctx context.Context, id int64) (*models.BettingEventDetail, error)

	// GetEventForShare locks the event row against concurrent status changes (bet placement)
	GetEventForShare(ctx context.Context, id int64) (*models.BettingEventDetail, error)

	// UpdateEvent persists status, winning option and resolution fields
	UpdateEvent(ctx context.Context, event *models.BettingEvent) error

	// ListEvents returns events newest first, optionally filtered by status
	ListEvents(ctx context.Context, status *models.BettingEventStatus) ([]*models.BettingEventDetail, error)

	CreateBet(ctx context.Context, bet *models.Bet) error

	GetBet(ctx context.Context, id int64) (*models.Bet, error)

	// GetBetForUpdate locks the bet row
	GetBetForUpdate(ctx context.Context, id int64) (*models.Bet, error)

	// GetActiveBetsForUpdate locks and returns every active bet on the event
	GetActiveBetsForUpdate(ctx context.Context, eventID int64) ([]*models.Bet, error)

	// UpdateBet persists status, payout and settlement time
	UpdateBet(ctx context.Context, bet *models.Bet) error

	ListBetsByPlayer(ctx context.Context, playerID int64, limit int) ([]*models.Bet, error)
}

// LoanRepository defines data access for loans
type LoanRepository interface {
	Create(ctx context.Context, loan *models.Loan) error
	GetByID(ctx context.Context, id int64) (*models.Loan, error)

	// GetByIDForUpdate locks the loan row
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Loan, error)

	// Update persists status, lender and lifecycle timestamps
	Update(ctx context.Context, loan *models.Loan) error

	ListPending(ctx context.Context, limit int) ([]*models.Loan, error)

	// ListByPlayer returns loans where the player is borrower or lender
	ListByPlayer(ctx context.Context, playerID int64) ([]*models.Loan, error)

	// ListOverdueFundedForUpdate locks and returns funded loans due before now
	ListOverdueFundedForUpdate(ctx context.Context, now time.Time) ([]*models.Loan, error)
}

// StipendRunRepository records stipend batch runs
type StipendRunRepository interface {
	Record(ctx context.Context, run *models.StipendRun) error
	GetLatest(ctx context.Context) (*models.StipendRun, error)
}

// StatsRepository runs the read-only aggregate queries
type StatsRepository interface {
	// GetLeaderboard returns players by balance descending with weekly change since the given time
	GetLeaderboard(ctx context.Context, limit int, since time.Time) ([]*models.LeaderboardEntry, error)

	GetBetStats(ctx context.Context, playerID int64) (*models.BetStats, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork manages one database transaction and the repositories bound to it
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	PlayerRepository() PlayerRepository
	LedgerRepository() LedgerRepository
	LedgerWriter() LedgerWriter
	ChallengeRepository() ChallengeRepository
	BettingRepository() BettingRepository
	LoanRepository() LoanRepository
	StipendRunRepository() StipendRunRepository
	StatsRepository() StatsRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates new UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// PlayerService defines player registration and lookup
type PlayerService interface {
	CreatePlayer(ctx context.Context, username string, isAdmin bool) (*models.Player, error)
	GetPlayer(ctx context.Context, playerID int64) (*models.Player, error)
}

// LedgerService is the boundary for direct ledger access
type LedgerService interface {
	// Apply posts a single signed entry for a player
	Apply(ctx context.Context, req ApplyRequest) (*models.LedgerEntry, error)

	GetBalance(ctx context.Context, playerID int64) (int64, error)

	// GetHistory returns the newest entries first
	GetHistory(ctx context.Context, playerID int64, limit int) ([]*models.LedgerEntry, error)

	// Reconcile audits the player's balance against the entry log
	Reconcile(ctx context.Context, playerID int64) (*models.ReconciliationReport, error)
}

// CreateChallengeParams are the inputs for a new challenge
type CreateChallengeParams struct {
	Title       string
	Description string
	Reward      int64
	Difficulty  models.ChallengeDifficulty
	ExpiresAt   *time.Time
}

// ChallengeService defines challenge submission and review
type ChallengeService interface {
	CreateChallenge(ctx context.Context, adminID int64, params CreateChallengeParams) (*models.Challenge, error)
	SubmitProof(ctx context.Context, challengeID, playerID int64, proof string, proofURL *string) (*models.ChallengeSubmission, error)
	ReviewSubmission(ctx context.Context, submissionID int64, decision models.SubmissionStatus, reviewerID int64) (*models.ChallengeSubmission, error)
	ListPendingSubmissions(ctx context.Context, adminID int64, limit int) ([]*models.PendingSubmission, error)
	ListActiveChallenges(ctx context.Context) ([]*models.Challenge, error)
}

// BettingOptionInput describes one option of a new betting event
type BettingOptionInput struct {
	Label      string
	Multiplier decimal.Decimal
}

// BettingService defines betting event management and settlement
type BettingService interface {
	CreateBettingEvent(ctx context.Context, adminID int64, title, description string, options []BettingOptionInput) (*models.BettingEventDetail, error)
	CloseBettingEvent(ctx context.Context, eventID, adminID int64) (*models.BettingEvent, error)
	CancelBettingEvent(ctx context.Context, eventID, adminID int64) (*models.BettingEvent, error)
	PlaceBet(ctx context.Context, eventID, optionID, playerID, amount int64) (*models.Bet, error)
	CancelBet(ctx context.Context, betID, playerID int64) (*models.Bet, error)
	ResolveBettingEvent(ctx context.Context, eventID, winningOptionID, adminID int64) (*models.BetResolution, error)
	ListUserBets(ctx context.Context, playerID int64, limit int) ([]*models.Bet, error)
	ListBettingEvents(ctx context.Context, status *models.BettingEventStatus) ([]*models.BettingEventDetail, error)
}

// LoanService defines peer lending
type LoanService interface {
	CreateLoan(ctx context.Context, borrowerID, amount int64, rate decimal.Decimal, days int, purpose string) (*models.Loan, error)
	FundLoan(ctx context.Context, loanID, lenderID int64) (*models.Loan, error)
	RepayLoan(ctx context.Context, loanID, playerID int64) (*models.Loan, error)
	ListPendingLoans(ctx context.Context, limit int) ([]*models.Loan, error)
	ListUserLoans(ctx context.Context, playerID int64) ([]*models.Loan, error)

	// SweepDefaultedLoans marks funded loans past due as defaulted
	SweepDefaultedLoans(ctx context.Context, now time.Time) ([]*models.Loan, error)
}

// StipendService defines the weekly stipend batch
type StipendService interface {
	GrantWeeklyStipends(ctx context.Context, now time.Time) (*models.StipendRun, error)

	// GrantWeeklyStipendsAs runs the batch on behalf of an admin
	GrantWeeklyStipendsAs(ctx context.Context, adminID int64, now time.Time) (*models.StipendRun, error)

	LastRun(ctx context.Context) (*models.StipendRun, error)
}

// StatsService defines read-only leaderboard and statistics
type StatsService interface {
	GetLeaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error)
	GetUserStats(ctx context.Context, playerID int64) (*models.UserStats, error)
}
