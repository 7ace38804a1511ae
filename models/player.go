package models

import (
	"time"
)

// Player is a participant in the credit economy
type Player struct {
	ID            int64      `db:"id"`
	Username      string     `db:"username"`
	Balance       int64      `db:"balance"`
	IsAdmin       bool       `db:"is_admin"`
	LastStipendAt *time.Time `db:"last_stipend_at"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

// IsStipendEligible reports whether the player may receive a stipend at now.
// A player who never received one is always eligible.
func (p *Player) IsStipendEligible(now time.Time, interval time.Duration) bool {
	if p.LastStipendAt == nil {
		return true
	}
	return !p.LastStipendAt.After(now.Add(-interval))
}
