package service

import (
	"context"
	"testing"
	"time"

	"gamecredits/events"
	"gamecredits/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestChallengeService(m *TestMocks) *challengeService {
	s := NewChallengeService(m.Factory).(*challengeService)
	s.now = fixedClock
	return s
}

func TestChallengeService_CreateChallenge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("admin creates active challenge", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		m.ExpectPlayer(newAdmin())
		m.Challenges.On("Create", mock.Anything, mock.AnythingOfType("*models.Challenge")).
			Run(func(args mock.Arguments) { args.Get(1).(*models.Challenge).ID = 5 }).
			Return(nil)
		m.ExpectCommit()

		challenge, err := newTestChallengeService(m).CreateChallenge(ctx, TestAdminID, CreateChallengeParams{
			Title:      "  Win three games  ",
			Reward:     150,
			Difficulty: models.ChallengeDifficultyMedium,
		})

		require.NoError(t, err)
		assert.Equal(t, int64(5), challenge.ID)
		assert.Equal(t, "Win three games", challenge.Title)
		assert.True(t, challenge.IsActive)
		m.AssertAllExpectations(t)
	})

	t.Run("non admin is rejected", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		m.ExpectPlayer(newPlayer(TestPlayer1ID, 0))

		_, err := newTestChallengeService(m).CreateChallenge(ctx, TestPlayer1ID, CreateChallengeParams{
			Title:      "Win",
			Reward:     10,
			Difficulty: models.ChallengeDifficultyEasy,
		})

		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	past := testNow.Add(-time.Hour)
	invalid := []struct {
		name   string
		params CreateChallengeParams
	}{
		{"missing title", CreateChallengeParams{Reward: 10, Difficulty: models.ChallengeDifficultyEasy}},
		{"zero reward", CreateChallengeParams{Title: "x", Difficulty: models.ChallengeDifficultyEasy}},
		{"unknown difficulty", CreateChallengeParams{Title: "x", Reward: 10, Difficulty: "legendary"}},
		{"expiry in the past", CreateChallengeParams{Title: "x", Reward: 10, Difficulty: models.ChallengeDifficultyEasy, ExpiresAt: &past}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewTestMocks()

			_, err := newTestChallengeService(m).CreateChallenge(ctx, TestAdminID, tt.params)

			assert.ErrorIs(t, err, ErrValidation)
			m.Factory.AssertNotCalled(t, "Create")
		})
	}
}

func TestChallengeService_SubmitProof(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	active := &models.Challenge{ID: 5, Title: "Win", Reward: 100, IsActive: true}

	t.Run("creates pending submission", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		m.ExpectPlayer(newPlayer(TestPlayer1ID, 0))
		m.Challenges.On("GetByID", mock.Anything, int64(5)).Return(active, nil)
		m.Challenges.On("HasOpenSubmission", mock.Anything, int64(5), TestPlayer1ID).Return(false, nil)
		m.Challenges.On("CreateSubmission", mock.Anything, mock.MatchedBy(func(s *models.ChallengeSubmission) bool {
			return s.Status == models.SubmissionStatusPending && s.Proof == "screenshot" && s.ProofURL == nil
		})).Return(nil)
		m.ExpectCommit()

		blank := " "
		submission, err := newTestChallengeService(m).SubmitProof(ctx, 5, TestPlayer1ID, " screenshot ", &blank)

		require.NoError(t, err)
		assert.Equal(t, models.SubmissionStatusPending, submission.Status)
		m.AssertAllExpectations(t)
	})

	t.Run("duplicate open submission", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		m.ExpectPlayer(newPlayer(TestPlayer1ID, 0))
		m.Challenges.On("GetByID", mock.Anything, int64(5)).Return(active, nil)
		m.Challenges.On("HasOpenSubmission", mock.Anything, int64(5), TestPlayer1ID).Return(true, nil)

		_, err := newTestChallengeService(m).SubmitProof(ctx, 5, TestPlayer1ID, "proof", nil)

		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("expired challenge", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		expiredAt := testNow.Add(-time.Minute)
		expired := &models.Challenge{ID: 6, IsActive: true, ExpiresAt: &expiredAt}
		m.ExpectPlayer(newPlayer(TestPlayer1ID, 0))
		m.Challenges.On("GetByID", mock.Anything, int64(6)).Return(expired, nil)

		_, err := newTestChallengeService(m).SubmitProof(ctx, 6, TestPlayer1ID, "proof", nil)

		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("empty proof", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()

		_, err := newTestChallengeService(m).SubmitProof(ctx, 5, TestPlayer1ID, "   ", nil)

		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestChallengeService_ReviewSubmission(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	challenge := &models.Challenge{ID: 5, Title: "Win", Reward: 100, IsActive: true}

	pending := func() *models.ChallengeSubmission {
		return &models.ChallengeSubmission{ID: 9, ChallengeID: 5, PlayerID: TestPlayer1ID, Status: models.SubmissionStatusPending}
	}

	t.Run("approval credits reward once", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		m.ExpectPlayer(newAdmin())
		m.Challenges.On("GetSubmissionForUpdate", mock.Anything, int64(9)).Return(pending(), nil)
		m.Challenges.On("GetByID", mock.Anything, int64(5)).Return(challenge, nil)
		m.Challenges.On("UpdateSubmissionReview", mock.Anything, mock.MatchedBy(func(s *models.ChallengeSubmission) bool {
			return s.Status == models.SubmissionStatusApproved && s.ReviewedBy != nil && *s.ReviewedBy == TestAdminID
		})).Return(nil)
		m.ExpectPost(TestPlayer1ID, 100, models.LedgerCategoryChallengeReward, 0)
		m.Events.On("Publish", mock.AnythingOfType("events.LedgerEntryPostedEvent")).Return()
		m.Events.On("Publish", mock.MatchedBy(func(e events.SubmissionReviewedEvent) bool {
			return e.Reward == 100 && e.Status == models.SubmissionStatusApproved
		})).Return()
		m.ExpectCommit()

		submission, err := newTestChallengeService(m).ReviewSubmission(ctx, 9, models.SubmissionStatusApproved, TestAdminID)

		require.NoError(t, err)
		assert.Equal(t, models.SubmissionStatusApproved, submission.Status)
		assert.Equal(t, testNow, *submission.ReviewedAt)
		m.AssertAllExpectations(t)
	})

	t.Run("rejection posts nothing", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		m.ExpectPlayer(newAdmin())
		m.Challenges.On("GetSubmissionForUpdate", mock.Anything, int64(9)).Return(pending(), nil)
		m.Challenges.On("GetByID", mock.Anything, int64(5)).Return(challenge, nil)
		m.Challenges.On("UpdateSubmissionReview", mock.Anything, mock.Anything).Return(nil)
		m.AllowEvents()
		m.ExpectCommit()

		submission, err := newTestChallengeService(m).ReviewSubmission(ctx, 9, models.SubmissionStatusRejected, TestAdminID)

		require.NoError(t, err)
		assert.Equal(t, models.SubmissionStatusRejected, submission.Status)
		m.Writer.AssertNotCalled(t, "Post", mock.Anything, mock.Anything)
	})

	t.Run("already reviewed submission is rejected", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		reviewed := pending()
		reviewed.Status = models.SubmissionStatusApproved
		m.ExpectPlayer(newAdmin())
		m.Challenges.On("GetSubmissionForUpdate", mock.Anything, int64(9)).Return(reviewed, nil)

		_, err := newTestChallengeService(m).ReviewSubmission(ctx, 9, models.SubmissionStatusApproved, TestAdminID)

		assert.ErrorIs(t, err, ErrInvalidState)
		m.Writer.AssertNotCalled(t, "Post", mock.Anything, mock.Anything)
	})

	t.Run("non admin reviewer", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		m.ExpectPlayer(newPlayer(TestPlayer2ID, 0))

		_, err := newTestChallengeService(m).ReviewSubmission(ctx, 9, models.SubmissionStatusApproved, TestPlayer2ID)

		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("pending is not a decision", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()

		_, err := newTestChallengeService(m).ReviewSubmission(ctx, 9, models.SubmissionStatusPending, TestAdminID)

		assert.ErrorIs(t, err, ErrValidation)
	})
}
