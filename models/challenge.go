package models

import (
	"time"
)

// ChallengeDifficulty is a descriptive tag on a challenge
type ChallengeDifficulty string

const (
	ChallengeDifficultyEasy   ChallengeDifficulty = "easy"
	ChallengeDifficultyMedium ChallengeDifficulty = "medium"
	ChallengeDifficultyHard   ChallengeDifficulty = "hard"
)

// IsValid reports whether the difficulty is known
func (d ChallengeDifficulty) IsValid() bool {
	switch d {
	case ChallengeDifficultyEasy, ChallengeDifficultyMedium, ChallengeDifficultyHard:
		return true
	default:
		return false
	}
}

// Challenge is a task players complete for a credit reward
type Challenge struct {
	ID          int64               `db:"id"`
	Title       string              `db:"title"`
	Description string              `db:"description"`
	Reward      int64               `db:"reward"`
	Difficulty  ChallengeDifficulty `db:"difficulty"`
	ExpiresAt   *time.Time          `db:"expires_at"`
	IsActive    bool                `db:"is_active"`
	CreatedBy   int64               `db:"created_by"`
	CreatedAt   time.Time           `db:"created_at"`
}

// AcceptsSubmissions reports whether proof can be submitted at now
func (c *Challenge) AcceptsSubmissions(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	return c.ExpiresAt == nil || now.Before(*c.ExpiresAt)
}

// SubmissionStatus is the review state of a submission
type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusApproved SubmissionStatus = "approved"
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

// IsDecision reports whether the status is a terminal review outcome
func (s SubmissionStatus) IsDecision() bool {
	return s == SubmissionStatusApproved || s == SubmissionStatusRejected
}

// ChallengeSubmission is a player's proof of completing a challenge
type ChallengeSubmission struct {
	ID          int64            `db:"id"`
	ChallengeID int64            `db:"challenge_id"`
	PlayerID    int64            `db:"player_id"`
	Proof       string           `db:"proof"`
	ProofURL    *string          `db:"proof_url"`
	Status      SubmissionStatus `db:"status"`
	ReviewedBy  *int64           `db:"reviewed_by"`
	ReviewedAt  *time.Time       `db:"reviewed_at"`
	CreatedAt   time.Time        `db:"created_at"`
}

// PendingSubmission pairs a pending submission with its challenge for review listings
type PendingSubmission struct {
	Submission *ChallengeSubmission
	Challenge  *Challenge
	Username   string
}
