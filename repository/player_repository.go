package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"gamecredits/database"
	"gamecredits/models"
	"gamecredits/service"

	"github.com/jackc/pgx/v5"
)

const playerColumns = `id, username, balance, is_admin, last_stipend_at, created_at, updated_at`

// PlayerRepository implements the PlayerRepository interface
type PlayerRepository struct {
	q queryable
}

// NewPlayerRepository creates a new player repository
func NewPlayerRepository(db *database.DB) *PlayerRepository {
	return &PlayerRepository{q: db.Pool}
}

// newPlayerRepositoryWithTx creates a new player repository with a transaction
func newPlayerRepositoryWithTx(tx queryable) *PlayerRepository {
	return &PlayerRepository{q: tx}
}

// Create creates a new player with a zero balance
func (r *PlayerRepository) Create(ctx context.Context, username string, isAdmin bool) (*models.Player, error) {
	query := `
		INSERT INTO players (username, is_admin)
		VALUES ($1, $2)
		RETURNING ` + playerColumns

	player, err := scanPlayer(r.q.QueryRow(ctx, query, username, isAdmin))
	if err != nil {
		return nil, fmt.Errorf("failed to create player %q: %w", username, err)
	}

	return player, nil
}

// GetByID retrieves a player by id
func (r *PlayerRepository) GetByID(ctx context.Context, id int64) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`

	player, err := scanPlayer(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player %d: %w", id, err)
	}

	return player, nil
}

// GetByIDForUpdate retrieves a player and locks its row
func (r *PlayerRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1 FOR UPDATE`

	player, err := scanPlayer(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock player %d: %w", id, err)
	}

	return player, nil
}

// LockForUpdate locks the player rows in ascending id order
func (r *PlayerRepository) LockForUpdate(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}

	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	query := `SELECT id FROM players WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	rows, err := r.q.Query(ctx, query, sorted)
	if err != nil {
		return fmt.Errorf("failed to lock players: %w", err)
	}
	locked, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return fmt.Errorf("failed to lock players: %w", err)
	}

	if len(locked) != len(sorted) {
		for _, id := range sorted {
			if !slices.Contains(locked, id) {
				return fmt.Errorf("%w: player %d", service.ErrNotFound, id)
			}
		}
	}

	return nil
}

// ListStipendEligible returns players who never got a stipend or got one at/before cutoff
func (r *PlayerRepository) ListStipendEligible(ctx context.Context, cutoff time.Time) ([]*models.Player, error) {
	query := `
		SELECT ` + playerColumns + `
		FROM players
		WHERE last_stipend_at IS NULL OR last_stipend_at <= $1
		ORDER BY id`

	rows, err := r.q.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query stipend-eligible players: %w", err)
	}
	defer rows.Close()

	var players []*models.Player
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, player)
	}

	return players, rows.Err()
}

// MarkStipendGranted sets last_stipend_at
func (r *PlayerRepository) MarkStipendGranted(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE players
		SET last_stipend_at = $2, updated_at = NOW()
		WHERE id = $1`

	result, err := r.q.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark stipend for player %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: player %d", service.ErrNotFound, id)
	}

	return nil
}

// Count returns the number of players
func (r *PlayerRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM players`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count players: %w", err)
	}
	return count, nil
}

// CountWithBalanceAbove returns how many players hold strictly more than balance
func (r *PlayerRepository) CountWithBalanceAbove(ctx context.Context, balance int64) (int, error) {
	var count int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM players WHERE balance > $1`, balance).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count players above %d: %w", balance, err)
	}
	return count, nil
}

func scanPlayer(row pgx.Row) (*models.Player, error) {
	var player models.Player
	err := row.Scan(
		&player.ID,
		&player.Username,
		&player.Balance,
		&player.IsAdmin,
		&player.LastStipendAt,
		&player.CreatedAt,
		&player.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &player, nil
}
