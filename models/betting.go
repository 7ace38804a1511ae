package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BettingEventStatus is the lifecycle state of a betting event
type BettingEventStatus string

const (
	BettingEventStatusOpen      BettingEventStatus = "open"
	BettingEventStatusClosed    BettingEventStatus = "closed"
	BettingEventStatusResolved  BettingEventStatus = "resolved"
	BettingEventStatusCancelled BettingEventStatus = "cancelled"
)

// IsFinal reports whether no further transitions are possible
func (s BettingEventStatus) IsFinal() bool {
	return s == BettingEventStatusResolved || s == BettingEventStatusCancelled
}

// BettingEvent is an admin-run event players bet on
type BettingEvent struct {
	ID              int64              `db:"id"`
	Title           string             `db:"title"`
	Description     string             `db:"description"`
	Status          BettingEventStatus `db:"status"`
	CreatedBy       int64              `db:"created_by"`
	WinningOptionID *int64             `db:"winning_option_id"`
	ResolvedBy      *int64             `db:"resolved_by"`
	ResolvedAt      *time.Time         `db:"resolved_at"`
	CreatedAt       time.Time          `db:"created_at"`
}

// IsOpen reports whether the event accepts bets and cancellations
func (e *BettingEvent) IsOpen() bool {
	return e.Status == BettingEventStatusOpen
}

// BettingOption is one outcome of an event
type BettingOption struct {
	ID          int64           `db:"id"`
	EventID     int64           `db:"event_id"`
	Label       string          `db:"label"`
	Multiplier  decimal.Decimal `db:"multiplier"`
	OptionOrder int16           `db:"option_order"`
}

// CalculatePayout returns floor(amount × multiplier)
func (o *BettingOption) CalculatePayout(amount int64) (int64, error) {
	return CalculatePayout(amount, o.Multiplier)
}

// CalculatePayout returns floor(amount × multiplier) using exact decimal arithmetic.
// A result outside int64 fails with ErrAmountOverflow.
func CalculatePayout(amount int64, multiplier decimal.Decimal) (int64, error) {
	return floorAmount(decimal.NewFromInt(amount).Mul(multiplier))
}

// BettingEventDetail is an event with its options
type BettingEventDetail struct {
	Event   *BettingEvent
	Options []*BettingOption
}

// Option returns the option with the given id, or nil
func (d *BettingEventDetail) Option(optionID int64) *BettingOption {
	for _, option := range d.Options {
		if option.ID == optionID {
			return option
		}
	}
	return nil
}

// BetStatus is the lifecycle state of a bet
type BetStatus string

const (
	BetStatusActive    BetStatus = "active"
	BetStatusCancelled BetStatus = "cancelled"
	BetStatusWon       BetStatus = "won"
	BetStatusLost      BetStatus = "lost"
)

// Bet is a player's stake on one option of an event
type Bet struct {
	ID        int64      `db:"id"`
	EventID   int64      `db:"event_id"`
	OptionID  int64      `db:"option_id"`
	PlayerID  int64      `db:"player_id"`
	Amount    int64      `db:"amount"`
	Status    BetStatus  `db:"status"`
	Payout    *int64     `db:"payout"`
	CreatedAt time.Time  `db:"created_at"`
	SettledAt *time.Time `db:"settled_at"`
}

// BetResolution summarizes the outcome of resolving an event
type BetResolution struct {
	Event           *BettingEvent
	WinningOption   *BettingOption
	WinningBets     []*Bet
	LosingBets      []*Bet
	TotalPaidOut    int64
	TotalStakedLost int64
}
