package service

import (
	"context"
	"fmt"
	"strings"

	"gamecredits/events"
	"gamecredits/models"

	log "github.com/sirupsen/logrus"
)

// challengeService implements the ChallengeService interface
type challengeService struct {
	uowFactory UnitOfWorkFactory
	now        clock
}

// NewChallengeService creates a new challenge service
func NewChallengeService(uowFactory UnitOfWorkFactory) ChallengeService {
	return &challengeService{
		uowFactory: uowFactory,
		now:        utcNow,
	}
}

// CreateChallenge creates an active challenge
func (s *challengeService) CreateChallenge(ctx context.Context, adminID int64, params CreateChallengeParams) (*models.Challenge, error) {
	params.Title = strings.TrimSpace(params.Title)
	if params.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if params.Reward <= 0 {
		return nil, fmt.Errorf("%w: reward must be positive, got %d", ErrValidation, params.Reward)
	}
	if !params.Difficulty.IsValid() {
		return nil, fmt.Errorf("%w: unknown difficulty %q", ErrValidation, params.Difficulty)
	}
	now := s.now()
	if params.ExpiresAt != nil && !params.ExpiresAt.After(now) {
		return nil, fmt.Errorf("%w: expiry must be in the future", ErrValidation)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := requireAdmin(ctx, uow, adminID); err != nil {
		return nil, err
	}

	challenge := &models.Challenge{
		Title:       params.Title,
		Description: params.Description,
		Reward:      params.Reward,
		Difficulty:  params.Difficulty,
		ExpiresAt:   params.ExpiresAt,
		IsActive:    true,
		CreatedBy:   adminID,
	}
	if err := uow.ChallengeRepository().Create(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"challengeID": challenge.ID,
		"reward":      challenge.Reward,
		"difficulty":  challenge.Difficulty,
		"createdBy":   adminID,
	}).Info("Created challenge")

	return challenge, nil
}

// SubmitProof records a pending submission for review
func (s *challengeService) SubmitProof(ctx context.Context, challengeID, playerID int64, proof string, proofURL *string) (*models.ChallengeSubmission, error) {
	proof = strings.TrimSpace(proof)
	if proof == "" {
		return nil, fmt.Errorf("%w: proof text is required", ErrValidation)
	}
	if proofURL != nil && strings.TrimSpace(*proofURL) == "" {
		proofURL = nil
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := requirePlayer(ctx, uow, playerID); err != nil {
		return nil, err
	}

	challenge, err := uow.ChallengeRepository().GetByID(ctx, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	if challenge == nil {
		return nil, fmt.Errorf("%w: challenge %d", ErrNotFound, challengeID)
	}
	if !challenge.AcceptsSubmissions(s.now()) {
		return nil, fmt.Errorf("%w: challenge %d is not accepting submissions", ErrInvalidState, challengeID)
	}

	open, err := uow.ChallengeRepository().HasOpenSubmission(ctx, challengeID, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing submissions: %w", err)
	}
	if open {
		return nil, fmt.Errorf("%w: player %d already has a pending or approved submission for challenge %d", ErrInvalidState, playerID, challengeID)
	}

	submission := &models.ChallengeSubmission{
		ChallengeID: challengeID,
		PlayerID:    playerID,
		Proof:       proof,
		ProofURL:    proofURL,
		Status:      models.SubmissionStatusPending,
	}
	if err := uow.ChallengeRepository().CreateSubmission(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return submission, nil
}

// ReviewSubmission approves or rejects a pending submission. Approval credits
// the challenge reward in the same transaction as the status change.
func (s *challengeService) ReviewSubmission(ctx context.Context, submissionID int64, decision models.SubmissionStatus, reviewerID int64) (*models.ChallengeSubmission, error) {
	if !decision.IsDecision() {
		return nil, fmt.Errorf("%w: decision must be approved or rejected, got %q", ErrValidation, decision)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := requireAdmin(ctx, uow, reviewerID); err != nil {
		return nil, err
	}

	submission, err := uow.ChallengeRepository().GetSubmissionForUpdate(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	if submission == nil {
		return nil, fmt.Errorf("%w: submission %d", ErrNotFound, submissionID)
	}
	if submission.Status != models.SubmissionStatusPending {
		return nil, fmt.Errorf("%w: submission %d is already %s", ErrInvalidState, submissionID, submission.Status)
	}

	challenge, err := uow.ChallengeRepository().GetByID(ctx, submission.ChallengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	if challenge == nil {
		return nil, fmt.Errorf("%w: challenge %d", ErrNotFound, submission.ChallengeID)
	}

	reviewedAt := s.now()
	submission.Status = decision
	submission.ReviewedBy = &reviewerID
	submission.ReviewedAt = &reviewedAt
	if err := uow.ChallengeRepository().UpdateSubmissionReview(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to update submission: %w", err)
	}

	var reward int64
	if decision == models.SubmissionStatusApproved {
		refID, refType := reference(models.ReferenceTypeSubmission, submission.ID)
		if _, err := NewLedger(uow).Apply(ctx, ApplyRequest{
			PlayerID:      submission.PlayerID,
			Amount:        challenge.Reward,
			Category:      models.LedgerCategoryChallengeReward,
			Description:   fmt.Sprintf("Challenge completed: %s", challenge.Title),
			ReferenceID:   refID,
			ReferenceType: refType,
		}); err != nil {
			return nil, err
		}
		reward = challenge.Reward
	}

	uow.EventBus().Publish(events.SubmissionReviewedEvent{
		SubmissionID: submission.ID,
		ChallengeID:  challenge.ID,
		PlayerID:     submission.PlayerID,
		ReviewerID:   reviewerID,
		Status:       decision,
		Reward:       reward,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"submissionID": submission.ID,
		"challengeID":  challenge.ID,
		"playerID":     submission.PlayerID,
		"reviewerID":   reviewerID,
		"decision":     decision,
		"reward":       reward,
	}).Info("Reviewed challenge submission")

	return submission, nil
}

// ListPendingSubmissions returns the review queue, oldest first
func (s *challengeService) ListPendingSubmissions(ctx context.Context, adminID int64, limit int) ([]*models.PendingSubmission, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrValidation)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := requireAdmin(ctx, uow, adminID); err != nil {
		return nil, err
	}

	pending, err := uow.ChallengeRepository().ListPendingSubmissions(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending submissions: %w", err)
	}

	return pending, nil
}

// ListActiveChallenges returns challenges currently accepting submissions
func (s *challengeService) ListActiveChallenges(ctx context.Context) ([]*models.Challenge, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	challenges, err := uow.ChallengeRepository().ListActive(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}

	return challenges, nil
}
