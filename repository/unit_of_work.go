package repository

import (
	"context"
	"errors"
	"fmt"

	"gamecredits/database"
	"gamecredits/events"
	"gamecredits/service"

	"github.com/jackc/pgx/v5"
)

const notStartedMessage = "unit of work not started - call Begin() first"

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	playerRepo       service.PlayerRepository
	ledgerRepo       service.LedgerRepository
	ledgerWriter     service.LedgerWriter
	challengeRepo    service.ChallengeRepository
	bettingRepo      service.BettingRepository
	loanRepo         service.LoanRepository
	stipendRunRepo   service.StipendRunRepository
	statsRepo        service.StatsRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories bound to the transaction
	u.playerRepo = newPlayerRepositoryWithTx(tx)
	u.ledgerRepo = newLedgerRepositoryWithTx(tx)
	u.ledgerWriter = newLedgerWriterWithTx(tx)
	u.challengeRepo = newChallengeRepositoryWithTx(tx)
	u.bettingRepo = newBettingRepositoryWithTx(tx)
	u.loanRepo = newLoanRepositoryWithTx(tx)
	u.stipendRunRepo = newStipendRunRepositoryWithTx(tx)
	u.statsRepo = newStatsRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction and then releases pending events
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	u.tx = nil
	if err != nil {
		u.transactionalBus.Discard()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return u.transactionalBus.Flush(u.ctx)
}

// Rollback rolls back the transaction and drops pending events
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	// The caller's context may already be cancelled; rollback must still reach the server
	err := u.tx.Rollback(context.WithoutCancel(u.ctx))
	u.tx = nil
	u.transactionalBus.Discard()

	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	return nil
}

// PlayerRepository returns the player repository for this unit of work
func (u *unitOfWork) PlayerRepository() service.PlayerRepository {
	if u.playerRepo == nil {
		panic(notStartedMessage)
	}
	return u.playerRepo
}

// LedgerRepository returns the read-only ledger repository for this unit of work
func (u *unitOfWork) LedgerRepository() service.LedgerRepository {
	if u.ledgerRepo == nil {
		panic(notStartedMessage)
	}
	return u.ledgerRepo
}

// LedgerWriter returns the balance writer for this unit of work
func (u *unitOfWork) LedgerWriter() service.LedgerWriter {
	if u.ledgerWriter == nil {
		panic(notStartedMessage)
	}
	return u.ledgerWriter
}

// ChallengeRepository returns the challenge repository for this unit of work
func (u *unitOfWork) ChallengeRepository() service.ChallengeRepository {
	if u.challengeRepo == nil {
		panic(notStartedMessage)
	}
	return u.challengeRepo
}

// BettingRepository returns the betting repository for this unit of work
func (u *unitOfWork) BettingRepository() service.BettingRepository {
	if u.bettingRepo == nil {
		panic(notStartedMessage)
	}
	return u.bettingRepo
}

// LoanRepository returns the loan repository for this unit of work
func (u *unitOfWork) LoanRepository() service.LoanRepository {
	if u.loanRepo == nil {
		panic(notStartedMessage)
	}
	return u.loanRepo
}

// StipendRunRepository returns the stipend run repository for this unit of work
func (u *unitOfWork) StipendRunRepository() service.StipendRunRepository {
	if u.stipendRunRepo == nil {
		panic(notStartedMessage)
	}
	return u.stipendRunRepo
}

// StatsRepository returns the stats repository for this unit of work
func (u *unitOfWork) StatsRepository() service.StatsRepository {
	if u.statsRepo == nil {
		panic(notStartedMessage)
	}
	return u.statsRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic(notStartedMessage)
	}
	return u.transactionalBus
}
