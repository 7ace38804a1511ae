package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gamecredits/database"
	"gamecredits/models"

	"github.com/jackc/pgx/v5"
)

const (
	challengeColumns  = `id, title, description, reward, difficulty, expires_at, is_active, created_by, created_at`
	submissionColumns = `id, challenge_id, player_id, proof, proof_url, status, reviewed_by, reviewed_at, created_at`
)

// ChallengeRepository implements the ChallengeRepository interface
type ChallengeRepository struct {
	q queryable
}

// NewChallengeRepository creates a new challenge repository
func NewChallengeRepository(db *database.DB) *ChallengeRepository {
	return &ChallengeRepository{q: db.Pool}
}

// newChallengeRepositoryWithTx creates a new challenge repository with a transaction
func newChallengeRepositoryWithTx(tx queryable) *ChallengeRepository {
	return &ChallengeRepository{q: tx}
}

// Create inserts a challenge and fills its id and creation time
func (r *ChallengeRepository) Create(ctx context.Context, challenge *models.Challenge) error {
	query := `
		INSERT INTO challenges (title, description, reward, difficulty, expires_at, is_active, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.q.QueryRow(ctx, query,
		challenge.Title,
		challenge.Description,
		challenge.Reward,
		string(challenge.Difficulty),
		challenge.ExpiresAt,
		challenge.IsActive,
		challenge.CreatedBy,
	).Scan(&challenge.ID, &challenge.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}

	return nil
}

// GetByID retrieves a challenge by id
func (r *ChallengeRepository) GetByID(ctx context.Context, id int64) (*models.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE id = $1`

	challenge, err := scanChallenge(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge %d: %w", id, err)
	}

	return challenge, nil
}

// ListActive returns active, unexpired challenges, newest first
func (r *ChallengeRepository) ListActive(ctx context.Context, now time.Time) ([]*models.Challenge, error) {
	query := `
		SELECT ` + challengeColumns + `
		FROM challenges
		WHERE is_active AND (expires_at IS NULL OR expires_at > $1)
		ORDER BY created_at DESC, id DESC`

	rows, err := r.q.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query active challenges: %w", err)
	}
	defer rows.Close()

	var challenges []*models.Challenge
	for rows.Next() {
		challenge, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		challenges = append(challenges, challenge)
	}

	return challenges, rows.Err()
}

// CreateSubmission inserts a submission and fills its id and creation time
func (r *ChallengeRepository) CreateSubmission(ctx context.Context, submission *models.ChallengeSubmission) error {
	query := `
		INSERT INTO challenge_submissions (challenge_id, player_id, proof, proof_url, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.q.QueryRow(ctx, query,
		submission.ChallengeID,
		submission.PlayerID,
		submission.Proof,
		submission.ProofURL,
		string(submission.Status),
	).Scan(&submission.ID, &submission.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}

	return nil
}

// GetSubmissionForUpdate retrieves a submission and locks its row
func (r *ChallengeRepository) GetSubmissionForUpdate(ctx context.Context, id int64) (*models.ChallengeSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM challenge_submissions WHERE id = $1 FOR UPDATE`

	submission, err := scanSubmission(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock submission %d: %w", id, err)
	}

	return submission, nil
}

// HasOpenSubmission reports a pending or approved submission by the player for the challenge
func (r *ChallengeRepository) HasOpenSubmission(ctx context.Context, challengeID, playerID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM challenge_submissions
			WHERE challenge_id = $1 AND player_id = $2 AND status IN ('pending', 'approved')
		)`

	var exists bool
	if err := r.q.QueryRow(ctx, query, challengeID, playerID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check submissions: %w", err)
	}

	return exists, nil
}

// UpdateSubmissionReview persists a review decision; only pending rows are updated
func (r *ChallengeRepository) UpdateSubmissionReview(ctx context.Context, submission *models.ChallengeSubmission) error {
	query := `
		UPDATE challenge_submissions
		SET status = $2, reviewed_by = $3, reviewed_at = $4
		WHERE id = $1 AND status = 'pending'`

	result, err := r.q.Exec(ctx, query,
		submission.ID,
		string(submission.Status),
		submission.ReviewedBy,
		submission.ReviewedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update submission %d: %w", submission.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("submission %d is no longer pending", submission.ID)
	}

	return nil
}

// ListPendingSubmissions returns pending submissions with their challenge, oldest first
func (r *ChallengeRepository) ListPendingSubmissions(ctx context.Context, limit int) ([]*models.PendingSubmission, error) {
	query := `
		SELECT
			s.id, s.challenge_id, s.player_id, s.proof, s.proof_url, s.status, s.reviewed_by, s.reviewed_at, s.created_at,
			c.id, c.title, c.description, c.reward, c.difficulty, c.expires_at, c.is_active, c.created_by, c.created_at,
			p.username
		FROM challenge_submissions s
		JOIN challenges c ON c.id = s.challenge_id
		JOIN players p ON p.id = s.player_id
		WHERE s.status = 'pending'
		ORDER BY s.created_at, s.id
		LIMIT $1`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending submissions: %w", err)
	}
	defer rows.Close()

	var pending []*models.PendingSubmission
	for rows.Next() {
		var (
			s          models.ChallengeSubmission
			c          models.Challenge
			status     string
			difficulty string
			username   string
		)
		err := rows.Scan(
			&s.ID, &s.ChallengeID, &s.PlayerID, &s.Proof, &s.ProofURL, &status, &s.ReviewedBy, &s.ReviewedAt, &s.CreatedAt,
			&c.ID, &c.Title, &c.Description, &c.Reward, &difficulty, &c.ExpiresAt, &c.IsActive, &c.CreatedBy, &c.CreatedAt,
			&username,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending submission: %w", err)
		}
		s.Status = models.SubmissionStatus(status)
		c.Difficulty = models.ChallengeDifficulty(difficulty)
		pending = append(pending, &models.PendingSubmission{Submission: &s, Challenge: &c, Username: username})
	}

	return pending, rows.Err()
}

// CountApprovedByPlayer returns the number of approved submissions
func (r *ChallengeRepository) CountApprovedByPlayer(ctx context.Context, playerID int64) (int, error) {
	query := `SELECT COUNT(*) FROM challenge_submissions WHERE player_id = $1 AND status = 'approved'`

	var count int
	if err := r.q.QueryRow(ctx, query, playerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count approved submissions: %w", err)
	}
	return count, nil
}

func scanChallenge(row pgx.Row) (*models.Challenge, error) {
	var (
		challenge  models.Challenge
		difficulty string
	)
	err := row.Scan(
		&challenge.ID,
		&challenge.Title,
		&challenge.Description,
		&challenge.Reward,
		&difficulty,
		&challenge.ExpiresAt,
		&challenge.IsActive,
		&challenge.CreatedBy,
		&challenge.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	challenge.Difficulty = models.ChallengeDifficulty(difficulty)
	return &challenge, nil
}

func scanSubmission(row pgx.Row) (*models.ChallengeSubmission, error) {
	var (
		submission models.ChallengeSubmission
		status     string
	)
	err := row.Scan(
		&submission.ID,
		&submission.ChallengeID,
		&submission.PlayerID,
		&submission.Proof,
		&submission.ProofURL,
		&status,
		&submission.ReviewedBy,
		&submission.ReviewedAt,
		&submission.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	submission.Status = models.SubmissionStatus(status)
	return &submission, nil
}
