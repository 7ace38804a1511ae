package events

import (
	"context"
	"sync"
	"time"

	"gamecredits/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeLedgerEntryPosted     EventType = "ledger.entry_posted"
	EventTypePlayerCreated         EventType = "player.created"
	EventTypeSubmissionReviewed    EventType = "challenge.submission_reviewed"
	EventTypeBettingEventResolved  EventType = "betting.event_resolved"
	EventTypeBettingEventCancelled EventType = "betting.event_cancelled"
	EventTypeLoanStateChanged      EventType = "loan.state_changed"
	EventTypeStipendRunCompleted   EventType = "stipend.run_completed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// LedgerEntryPostedEvent is emitted for every committed ledger entry
type LedgerEntryPostedEvent struct {
	EntryID       int64                 `json:"entry_id"`
	PlayerID      int64                 `json:"player_id"`
	Amount        int64                 `json:"amount"`
	Category      models.LedgerCategory `json:"category"`
	BalanceBefore int64                 `json:"balance_before"`
	BalanceAfter  int64                 `json:"balance_after"`
	ReferenceID   *int64                `json:"reference_id,omitempty"`
	ReferenceType *models.ReferenceType `json:"reference_type,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

func (e LedgerEntryPostedEvent) Type() EventType {
	return EventTypeLedgerEntryPosted
}

// PlayerCreatedEvent represents a new player joining the economy
type PlayerCreatedEvent struct {
	PlayerID int64  `json:"player_id"`
	Username string `json:"username"`
}

func (e PlayerCreatedEvent) Type() EventType {
	return EventTypePlayerCreated
}

// SubmissionReviewedEvent represents a terminal review decision
type SubmissionReviewedEvent struct {
	SubmissionID int64                   `json:"submission_id"`
	ChallengeID  int64                   `json:"challenge_id"`
	PlayerID     int64                   `json:"player_id"`
	ReviewerID   int64                   `json:"reviewer_id"`
	Status       models.SubmissionStatus `json:"status"`
	Reward       int64                   `json:"reward"`
}

func (e SubmissionReviewedEvent) Type() EventType {
	return EventTypeSubmissionReviewed
}

// BettingEventResolvedEvent represents a settled betting event
type BettingEventResolvedEvent struct {
	EventID         int64  `json:"event_id"`
	Title           string `json:"title"`
	WinningOptionID int64  `json:"winning_option_id"`
	WinningLabel    string `json:"winning_label"`
	WinnerCount     int    `json:"winner_count"`
	LoserCount      int    `json:"loser_count"`
	TotalPaidOut    int64  `json:"total_paid_out"`
	ResolvedBy      int64  `json:"resolved_by"`
}

func (e BettingEventResolvedEvent) Type() EventType {
	return EventTypeBettingEventResolved
}

// BettingEventCancelledEvent represents an event cancelled with all stakes refunded
type BettingEventCancelledEvent struct {
	EventID       int64  `json:"event_id"`
	Title         string `json:"title"`
	RefundedBets  int    `json:"refunded_bets"`
	TotalRefunded int64  `json:"total_refunded"`
}

func (e BettingEventCancelledEvent) Type() EventType {
	return EventTypeBettingEventCancelled
}

// LoanStateChangedEvent represents a loan lifecycle transition
type LoanStateChangedEvent struct {
	LoanID     int64             `json:"loan_id"`
	BorrowerID int64             `json:"borrower_id"`
	LenderID   *int64            `json:"lender_id,omitempty"`
	Amount     int64             `json:"amount"`
	OldStatus  models.LoanStatus `json:"old_status"`
	NewStatus  models.LoanStatus `json:"new_status"`
}

func (e LoanStateChangedEvent) Type() EventType {
	return EventTypeLoanStateChanged
}

// StipendRunCompletedEvent summarizes a stipend batch
type StipendRunCompletedEvent struct {
	RunID        string `json:"run_id"`
	GrantedCount int    `json:"granted_count"`
	FailedCount  int    `json:"failed_count"`
	TotalGranted int64  `json:"total_granted"`
}

func (e StipendRunCompletedEvent) Type() EventType {
	return EventTypeStipendRunCompleted
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu          sync.RWMutex
	handlers    map[EventType][]Handler
	allHandlers []Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// SubscribeAll adds a handler that receives every event type
func (b *Bus) SubscribeAll(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.allHandlers = append(b.allHandlers, handler)
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[event.Type()])+len(b.allHandlers))
	handlers = append(handlers, b.handlers[event.Type()]...)
	handlers = append(handlers, b.allHandlers...)
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	// Handlers run asynchronously so a slow subscriber never holds up a settlement
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds events raised inside a unit of work.
// Events reach the underlying bus only after the transaction commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

// Publish stashes an event until Flush
func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Pending returns the number of events waiting for commit
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}

// Flush emits pending events; called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	log.WithFields(log.Fields{
		"pendingEventCount": len(b.pending),
	}).Debug("Flushing pending events to event bus")

	// Detached from the transaction context, which is typically done by now
	eventCtx := context.WithoutCancel(ctx)

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops pending events; called after rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
