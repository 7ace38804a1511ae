package service

import (
	"context"
	"fmt"
	"strings"

	"gamecredits/events"
	"gamecredits/models"

	log "github.com/sirupsen/logrus"
)

// ApplyRequest describes one signed balance change
type ApplyRequest struct {
	PlayerID      int64
	Amount        int64
	Category      models.LedgerCategory
	Description   string
	ReferenceID   *int64
	ReferenceType *models.ReferenceType
}

// TransferRequest describes a coupled debit and credit between two players
type TransferRequest struct {
	FromPlayerID      int64
	ToPlayerID        int64
	Amount            int64
	DebitCategory     models.LedgerCategory
	CreditCategory    models.LedgerCategory
	DebitDescription  string
	CreditDescription string
	ReferenceID       *int64
	ReferenceType     *models.ReferenceType
}

// Ledger is the sole mutator of player balances. It is bound to a started
// unit of work; every entry it posts commits or rolls back with that transaction.
type Ledger struct {
	uow UnitOfWork
}

// NewLedger binds a ledger to a started unit of work
func NewLedger(uow UnitOfWork) *Ledger {
	return &Ledger{uow: uow}
}

// Apply adds req.Amount to the player's balance and appends the matching entry.
// A debit that would leave the balance negative fails with ErrInsufficientBalance.
func (l *Ledger) Apply(ctx context.Context, req ApplyRequest) (*models.LedgerEntry, error) {
	if err := validateApplyRequest(req); err != nil {
		return nil, err
	}

	entry := &models.LedgerEntry{
		PlayerID:      req.PlayerID,
		Amount:        req.Amount,
		Category:      req.Category,
		ReferenceID:   req.ReferenceID,
		ReferenceType: req.ReferenceType,
		Description:   req.Description,
	}

	if err := l.uow.LedgerWriter().Post(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to post %s entry for player %d: %w", req.Category, req.PlayerID, err)
	}

	l.uow.EventBus().Publish(events.LedgerEntryPostedEvent{
		EntryID:       entry.ID,
		PlayerID:      entry.PlayerID,
		Amount:        entry.Amount,
		Category:      entry.Category,
		BalanceBefore: entry.BalanceBefore(),
		BalanceAfter:  entry.BalanceAfter,
		ReferenceID:   entry.ReferenceID,
		ReferenceType: entry.ReferenceType,
		CreatedAt:     entry.CreatedAt,
	})

	log.WithFields(log.Fields{
		"entryID":      entry.ID,
		"playerID":     entry.PlayerID,
		"amount":       entry.Amount,
		"category":     entry.Category,
		"balanceAfter": entry.BalanceAfter,
	}).Debug("Posted ledger entry")

	return entry, nil
}

// Transfer moves req.Amount from one player to another as two coupled entries.
// Both player rows are locked in ascending id order before either entry is posted.
func (l *Ledger) Transfer(ctx context.Context, req TransferRequest) (debit, credit *models.LedgerEntry, err error) {
	if req.Amount <= 0 {
		return nil, nil, fmt.Errorf("%w: transfer amount must be positive, got %d", ErrValidation, req.Amount)
	}
	if req.FromPlayerID == req.ToPlayerID {
		return nil, nil, fmt.Errorf("%w: cannot transfer to the same player", ErrValidation)
	}

	if err := l.uow.PlayerRepository().LockForUpdate(ctx, req.FromPlayerID, req.ToPlayerID); err != nil {
		return nil, nil, fmt.Errorf("failed to lock transfer parties: %w", err)
	}

	debit, err = l.Apply(ctx, ApplyRequest{
		PlayerID:      req.FromPlayerID,
		Amount:        -req.Amount,
		Category:      req.DebitCategory,
		Description:   req.DebitDescription,
		ReferenceID:   req.ReferenceID,
		ReferenceType: req.ReferenceType,
	})
	if err != nil {
		return nil, nil, err
	}

	credit, err = l.Apply(ctx, ApplyRequest{
		PlayerID:      req.ToPlayerID,
		Amount:        req.Amount,
		Category:      req.CreditCategory,
		Description:   req.CreditDescription,
		ReferenceID:   req.ReferenceID,
		ReferenceType: req.ReferenceType,
	})
	if err != nil {
		return nil, nil, err
	}

	return debit, credit, nil
}

func validateApplyRequest(req ApplyRequest) error {
	if !req.Category.IsValid() {
		return fmt.Errorf("%w: unknown ledger category %q", ErrValidation, req.Category)
	}
	if err := req.Category.ValidateAmount(req.Amount); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if strings.TrimSpace(req.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrValidation)
	}
	if (req.ReferenceID == nil) != (req.ReferenceType == nil) {
		return fmt.Errorf("%w: reference id and type must be set together", ErrValidation)
	}
	return nil
}

// reference builds the optional reference pair for an entry
func reference(referenceType models.ReferenceType, id int64) (*int64, *models.ReferenceType) {
	return &id, &referenceType
}
