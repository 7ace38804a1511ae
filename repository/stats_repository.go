package repository

import (
	"context"
	"fmt"
	"time"

	"gamecredits/database"
	"gamecredits/models"
)

// StatsRepository implements the StatsRepository interface
type StatsRepository struct {
	q queryable
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *database.DB) *StatsRepository {
	return &StatsRepository{q: db.Pool}
}

// newStatsRepositoryWithTx creates a new stats repository with a transaction
func newStatsRepositoryWithTx(tx queryable) *StatsRepository {
	return &StatsRepository{q: tx}
}

// GetLeaderboard returns players by balance with completed challenges and the
// sum of their ledger movement since the given time
func (r *StatsRepository) GetLeaderboard(ctx context.Context, limit int, since time.Time) ([]*models.LeaderboardEntry, error) {
	query := `
		SELECT
			p.id,
			p.username,
			p.balance,
			(SELECT COUNT(*) FROM challenge_submissions s
			 WHERE s.player_id = p.id AND s.status = 'approved') AS challenges_completed,
			COALESCE((SELECT SUM(e.amount) FROM ledger_entries e
			 WHERE e.player_id = p.id AND e.created_at > $2), 0)::bigint AS weekly_change
		FROM players p
		ORDER BY p.balance DESC, p.id
		LIMIT $1`

	rows, err := r.q.Query(ctx, query, limit, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*models.LeaderboardEntry
	for rows.Next() {
		var entry models.LeaderboardEntry
		if err := rows.Scan(&entry.PlayerID, &entry.Username, &entry.Balance, &entry.ChallengesCompleted, &entry.WeeklyChange); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// GetBetStats aggregates a player's bets
func (r *StatsRepository) GetBetStats(ctx context.Context, playerID int64) (*models.BetStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status <> 'cancelled'),
			COUNT(*) FILTER (WHERE status = 'won'),
			COUNT(*) FILTER (WHERE status = 'lost'),
			COUNT(*) FILTER (WHERE status = 'active'),
			COALESCE(SUM(amount) FILTER (WHERE status <> 'cancelled'), 0)::bigint,
			COALESCE(SUM(payout) FILTER (WHERE status = 'won'), 0)::bigint,
			COALESCE(SUM(amount) FILTER (WHERE status = 'active'), 0)::bigint
		FROM bets
		WHERE player_id = $1`

	var stats models.BetStats
	err := r.q.QueryRow(ctx, query, playerID).Scan(
		&stats.TotalBets,
		&stats.WonBets,
		&stats.LostBets,
		&stats.ActiveBets,
		&stats.TotalWagered,
		&stats.TotalWon,
		&stats.TotalStaked,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet stats for player %d: %w", playerID, err)
	}

	return &stats, nil
}
