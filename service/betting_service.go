package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"gamecredits/events"
	"gamecredits/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var maxMultiplier = decimal.NewFromInt(100_000_000)

// bettingService implements the BettingService interface
type bettingService struct {
	uowFactory UnitOfWorkFactory
	now        clock
}

// NewBettingService creates a new betting service
func NewBettingService(uowFactory UnitOfWorkFactory) BettingService {
	return &bettingService{
		uowFactory: uowFactory,
		now:        utcNow,
	}
}

// CreateBettingEvent opens a new event with its options
func (s *bettingService) CreateBettingEvent(ctx context.Context, adminID int64, title, description string, options []BettingOptionInput) (*models.BettingEventDetail, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("%w: at least one option is required", ErrValidation)
	}

	eventOptions := make([]*models.BettingOption, 0, len(options))
	for i, input := range options {
		label := strings.TrimSpace(input.Label)
		if label == "" {
			return nil, fmt.Errorf("%w: option %d has no label", ErrValidation, i+1)
		}
		if input.Multiplier.IsNegative() {
			return nil, fmt.Errorf("%w: option %q multiplier must not be negative", ErrValidation, label)
		}
		if !input.Multiplier.Equal(input.Multiplier.Round(2)) {
			return nil, fmt.Errorf("%w: option %q multiplier allows at most two decimal places", ErrValidation, label)
		}
		if input.Multiplier.GreaterThanOrEqual(maxMultiplier) {
			return nil, fmt.Errorf("%w: option %q multiplier is too large", ErrValidation, label)
		}
		eventOptions = append(eventOptions, &models.BettingOption{
			Label:       label,
			Multiplier:  input.Multiplier,
			OptionOrder: int16(i + 1),
		})
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := requireAdmin(ctx, uow, adminID); err != nil {
		return nil, err
	}

	event := &models.BettingEvent{
		Title:       title,
		Description: description,
		Status:      models.BettingEventStatusOpen,
		CreatedBy:   adminID,
	}
	if err := uow.BettingRepository().CreateEvent(ctx, event, eventOptions); err != nil {
		return nil, fmt.Errorf("failed to create betting event: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"eventID":     event.ID,
		"title":       event.Title,
		"optionCount": len(eventOptions),
		"createdBy":   adminID,
	}).Info("Created betting event")

	return &models.BettingEventDetail{Event: event, Options: eventOptions}, nil
}

// CloseBettingEvent stops accepting bets; the event can still be resolved or cancelled
func (s *bettingService) CloseBettingEvent(ctx context.Context, eventID, adminID int64) (*models.BettingEvent, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := requireAdmin(ctx, uow, adminID); err != nil {
		return nil, err
	}

	detail, err := s.lockEvent(ctx, uow, eventID)
	if err != nil {
		return nil, err
	}
	event := detail.Event
	if !event.IsOpen() {
		return nil, fmt.Errorf("%w: betting event %d is %s", ErrInvalidState, eventID, event.Status)
	}

	event.Status = models.BettingEventStatusClosed
	if err := uow.BettingRepository().UpdateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to close betting event: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return event, nil
}

// CancelBettingEvent cancels an unresolved event and refunds every active bet
func (s *bettingService) CancelBettingEvent(ctx context.Context, eventID, adminID int64) (*models.BettingEvent, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := requireAdmin(ctx, uow, adminID); err != nil {
		return nil, err
	}

	detail, err := s.lockEvent(ctx, uow, eventID)
	if err != nil {
		return nil, err
	}
	event := detail.Event
	if event.Status.IsFinal() {
		return nil, fmt.Errorf("%w: betting event %d is already %s", ErrInvalidState, eventID, event.Status)
	}

	bets, err := uow.BettingRepository().GetActiveBetsForUpdate(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active bets: %w", err)
	}

	if err := uow.PlayerRepository().LockForUpdate(ctx, betPlayerIDs(bets)...); err != nil {
		return nil, fmt.Errorf("failed to lock bettors: %w", err)
	}

	now := s.now()
	ledger := NewLedger(uow)
	var totalRefunded int64
	for _, bet := range bets {
		bet.Status = models.BetStatusCancelled
		bet.SettledAt = &now
		if err := uow.BettingRepository().UpdateBet(ctx, bet); err != nil {
			return nil, fmt.Errorf("failed to cancel bet %d: %w", bet.ID, err)
		}

		refID, refType := reference(models.ReferenceTypeBet, bet.ID)
		if _, err := ledger.Apply(ctx, ApplyRequest{
			PlayerID:      bet.PlayerID,
			Amount:        bet.Amount,
			Category:      models.LedgerCategoryBetCancelled,
			Description:   fmt.Sprintf("Refund: %s was cancelled", event.Title),
			ReferenceID:   refID,
			ReferenceType: refType,
		}); err != nil {
			return nil, err
		}
		totalRefunded += bet.Amount
	}

	event.Status = models.BettingEventStatusCancelled
	if err := uow.BettingRepository().UpdateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to cancel betting event: %w", err)
	}

	uow.EventBus().Publish(events.BettingEventCancelledEvent{
		EventID:       event.ID,
		Title:         event.Title,
		RefundedBets:  len(bets),
		TotalRefunded: totalRefunded,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"eventID":       eventID,
		"refundedBets":  len(bets),
		"totalRefunded": totalRefunded,
		"cancelledBy":   adminID,
	}).Info("Cancelled betting event")

	return event, nil
}

// PlaceBet creates an active bet and debits the stake in the same transaction
func (s *bettingService) PlaceBet(ctx context.Context, eventID, optionID, playerID, amount int64) (*models.Bet, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: bet amount must be positive, got %d", ErrValidation, amount)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := requirePlayer(ctx, uow, playerID); err != nil {
		return nil, err
	}

	// Shared lock holds off a concurrent resolution until this bet commits
	detail, err := uow.BettingRepository().GetEventForShare(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get betting event: %w", err)
	}
	if detail == nil {
		return nil, fmt.Errorf("%w: betting event %d", ErrNotFound, eventID)
	}
	if !detail.Event.IsOpen() {
		return nil, fmt.Errorf("%w: betting event %d is %s", ErrInvalidState, eventID, detail.Event.Status)
	}

	option := detail.Option(optionID)
	if option == nil {
		return nil, fmt.Errorf("%w: option %d on betting event %d", ErrNotFound, optionID, eventID)
	}
	if _, err := option.CalculatePayout(amount); err != nil {
		return nil, fmt.Errorf("%w: bet of %d at %sx cannot be paid out: %v", ErrValidation, amount, option.Multiplier.StringFixed(2), err)
	}

	bet := &models.Bet{
		EventID:  eventID,
		OptionID: optionID,
		PlayerID: playerID,
		Amount:   amount,
		Status:   models.BetStatusActive,
	}
	if err := uow.BettingRepository().CreateBet(ctx, bet); err != nil {
		return nil, fmt.Errorf("failed to create bet: %w", err)
	}

	refID, refType := reference(models.ReferenceTypeBet, bet.ID)
	if _, err := NewLedger(uow).Apply(ctx, ApplyRequest{
		PlayerID:      playerID,
		Amount:        -amount,
		Category:      models.LedgerCategoryBetPlaced,
		Description:   fmt.Sprintf("Bet on %s: %s", detail.Event.Title, option.Label),
		ReferenceID:   refID,
		ReferenceType: refType,
	}); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"betID":    bet.ID,
		"eventID":  eventID,
		"optionID": optionID,
		"playerID": playerID,
		"amount":   amount,
	}).Info("Placed bet")

	return bet, nil
}

// CancelBet cancels the player's own active bet and refunds the stake
func (s *bettingService) CancelBet(ctx context.Context, betID, playerID int64) (*models.Bet, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	found, err := uow.BettingRepository().GetBet(ctx, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}
	if found == nil {
		return nil, fmt.Errorf("%w: bet %d", ErrNotFound, betID)
	}
	if found.PlayerID != playerID {
		return nil, fmt.Errorf("%w: bet %d belongs to another player", ErrUnauthorized, betID)
	}

	// Event before bet, the same order resolution takes its locks in
	detail, err := uow.BettingRepository().GetEventForShare(ctx, found.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get betting event: %w", err)
	}
	if detail == nil {
		return nil, fmt.Errorf("%w: betting event %d", ErrNotFound, found.EventID)
	}

	bet, err := uow.BettingRepository().GetBetForUpdate(ctx, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock bet: %w", err)
	}
	if bet == nil {
		return nil, fmt.Errorf("%w: bet %d", ErrNotFound, betID)
	}
	if bet.Status != models.BetStatusActive {
		return nil, fmt.Errorf("%w: bet %d is %s", ErrInvalidState, betID, bet.Status)
	}
	if !detail.Event.IsOpen() {
		return nil, fmt.Errorf("%w: betting event %d is %s", ErrInvalidState, bet.EventID, detail.Event.Status)
	}

	now := s.now()
	bet.Status = models.BetStatusCancelled
	bet.SettledAt = &now
	if err := uow.BettingRepository().UpdateBet(ctx, bet); err != nil {
		return nil, fmt.Errorf("failed to cancel bet: %w", err)
	}

	refID, refType := reference(models.ReferenceTypeBet, bet.ID)
	if _, err := NewLedger(uow).Apply(ctx, ApplyRequest{
		PlayerID:      playerID,
		Amount:        bet.Amount,
		Category:      models.LedgerCategoryBetCancelled,
		Description:   fmt.Sprintf("Cancelled bet on %s", detail.Event.Title),
		ReferenceID:   refID,
		ReferenceType: refType,
	}); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"betID":    betID,
		"playerID": playerID,
		"refund":   bet.Amount,
	}).Info("Cancelled bet")

	return bet, nil
}

// ResolveBettingEvent settles an event in one transaction: the event is marked
// resolved, winning bets are paid floor(amount × multiplier) and every other
// active bet is marked lost. An already resolved event is rejected before any payout.
func (s *bettingService) ResolveBettingEvent(ctx context.Context, eventID, winningOptionID, adminID int64) (*models.BetResolution, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := requireAdmin(ctx, uow, adminID); err != nil {
		return nil, err
	}

	detail, err := s.lockEvent(ctx, uow, eventID)
	if err != nil {
		return nil, err
	}
	event := detail.Event
	if event.Status.IsFinal() {
		return nil, fmt.Errorf("%w: betting event %d is already %s", ErrInvalidState, eventID, event.Status)
	}

	winningOption := detail.Option(winningOptionID)
	if winningOption == nil {
		return nil, fmt.Errorf("%w: option %d on betting event %d", ErrNotFound, winningOptionID, eventID)
	}

	bets, err := uow.BettingRepository().GetActiveBetsForUpdate(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active bets: %w", err)
	}

	resolution := &models.BetResolution{
		Event:         event,
		WinningOption: winningOption,
	}
	var winners []*models.Bet
	for _, bet := range bets {
		if bet.OptionID == winningOptionID {
			winners = append(winners, bet)
		}
	}

	if err := uow.PlayerRepository().LockForUpdate(ctx, betPlayerIDs(winners)...); err != nil {
		return nil, fmt.Errorf("failed to lock winners: %w", err)
	}

	now := s.now()
	event.Status = models.BettingEventStatusResolved
	event.WinningOptionID = &winningOptionID
	event.ResolvedBy = &adminID
	event.ResolvedAt = &now
	if err := uow.BettingRepository().UpdateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to resolve betting event: %w", err)
	}

	ledger := NewLedger(uow)
	for _, bet := range bets {
		bet.SettledAt = &now

		if bet.OptionID != winningOptionID {
			bet.Status = models.BetStatusLost
			if err := uow.BettingRepository().UpdateBet(ctx, bet); err != nil {
				return nil, fmt.Errorf("failed to settle losing bet %d: %w", bet.ID, err)
			}
			resolution.LosingBets = append(resolution.LosingBets, bet)
			resolution.TotalStakedLost += bet.Amount
			continue
		}

		payout, err := winningOption.CalculatePayout(bet.Amount)
		if err != nil || resolution.TotalPaidOut > math.MaxInt64-payout {
			return nil, fmt.Errorf("%w: payout for bet %d on betting event %d exceeds the supported range", ErrValidation, bet.ID, eventID)
		}
		bet.Status = models.BetStatusWon
		bet.Payout = &payout
		if err := uow.BettingRepository().UpdateBet(ctx, bet); err != nil {
			return nil, fmt.Errorf("failed to settle winning bet %d: %w", bet.ID, err)
		}

		// A 0x option wins nothing; the ledger holds no zero entries
		if payout > 0 {
			refID, refType := reference(models.ReferenceTypeBet, bet.ID)
			if _, err := ledger.Apply(ctx, ApplyRequest{
				PlayerID:      bet.PlayerID,
				Amount:        payout,
				Category:      models.LedgerCategoryBetWin,
				Description:   fmt.Sprintf("Won bet on %s: %s (%sx)", event.Title, winningOption.Label, winningOption.Multiplier.StringFixed(2)),
				ReferenceID:   refID,
				ReferenceType: refType,
			}); err != nil {
				return nil, err
			}
		}

		resolution.WinningBets = append(resolution.WinningBets, bet)
		resolution.TotalPaidOut += payout
	}

	uow.EventBus().Publish(events.BettingEventResolvedEvent{
		EventID:         event.ID,
		Title:           event.Title,
		WinningOptionID: winningOptionID,
		WinningLabel:    winningOption.Label,
		WinnerCount:     len(resolution.WinningBets),
		LoserCount:      len(resolution.LosingBets),
		TotalPaidOut:    resolution.TotalPaidOut,
		ResolvedBy:      adminID,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"eventID":         eventID,
		"winningOptionID": winningOptionID,
		"winners":         len(resolution.WinningBets),
		"losers":          len(resolution.LosingBets),
		"totalPaidOut":    resolution.TotalPaidOut,
		"resolvedBy":      adminID,
	}).Info("Resolved betting event")

	return resolution, nil
}

// ListUserBets returns the player's newest bets
func (s *bettingService) ListUserBets(ctx context.Context, playerID int64, limit int) ([]*models.Bet, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrValidation)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bets, err := uow.BettingRepository().ListBetsByPlayer(ctx, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets: %w", err)
	}

	return bets, nil
}

// ListBettingEvents returns events newest first, optionally filtered by status
func (s *bettingService) ListBettingEvents(ctx context.Context, status *models.BettingEventStatus) ([]*models.BettingEventDetail, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	details, err := uow.BettingRepository().ListEvents(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list betting events: %w", err)
	}

	return details, nil
}

// lockEvent takes the exclusive event lock used by every status transition
func (s *bettingService) lockEvent(ctx context.Context, uow UnitOfWork, eventID int64) (*models.BettingEventDetail, error) {
	detail, err := uow.BettingRepository().GetEventForUpdate(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock betting event: %w", err)
	}
	if detail == nil {
		return nil, fmt.Errorf("%w: betting event %d", ErrNotFound, eventID)
	}
	return detail, nil
}

// betPlayerIDs returns the distinct players behind the bets
func betPlayerIDs(bets []*models.Bet) []int64 {
	seen := make(map[int64]struct{}, len(bets))
	ids := make([]int64, 0, len(bets))
	for _, bet := range bets {
		if _, ok := seen[bet.PlayerID]; ok {
			continue
		}
		seen[bet.PlayerID] = struct{}{}
		ids = append(ids, bet.PlayerID)
	}
	return ids
}
