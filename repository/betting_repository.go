package repository

import (
	"context"
	"errors"
	"fmt"

	"gamecredits/database"
	"gamecredits/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const (
	bettingEventColumns = `id, title, description, status, created_by, winning_option_id, resolved_by, resolved_at, created_at`
	betColumns          = `id, event_id, option_id, player_id, amount, status, payout, created_at, settled_at`
)

// BettingRepository implements the BettingRepository interface
type BettingRepository struct {
	q queryable
}

// NewBettingRepository creates a new betting repository
func NewBettingRepository(db *database.DB) *BettingRepository {
	return &BettingRepository{q: db.Pool}
}

// newBettingRepositoryWithTx creates a new betting repository with a transaction
func newBettingRepositoryWithTx(tx queryable) *BettingRepository {
	return &BettingRepository{q: tx}
}

// CreateEvent inserts the event and its options
func (r *BettingRepository) CreateEvent(ctx context.Context, event *models.BettingEvent, options []*models.BettingOption) error {
	query := `
		INSERT INTO betting_events (title, description, status, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.q.QueryRow(ctx, query,
		event.Title,
		event.Description,
		string(event.Status),
		event.CreatedBy,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create betting event: %w", err)
	}

	optionQuery := `
		INSERT INTO betting_options (event_id, label, multiplier, option_order)
		VALUES ($1, $2, $3::numeric, $4)
		RETURNING id`

	for _, option := range options {
		option.EventID = event.ID
		err := r.q.QueryRow(ctx, optionQuery,
			event.ID,
			option.Label,
			option.Multiplier.String(),
			option.OptionOrder,
		).Scan(&option.ID)
		if err != nil {
			return fmt.Errorf("failed to create option %q: %w", option.Label, err)
		}
	}

	return nil
}

// GetEvent retrieves an event with its options
func (r *BettingRepository) GetEvent(ctx context.Context, id int64) (*models.BettingEventDetail, error) {
	return r.getEvent(ctx, `SELECT `+bettingEventColumns+` FROM betting_events WHERE id = $1`, id)
}

// GetEventForUpdate retrieves an event and locks its row exclusively
func (r *BettingRepository) GetEventForUpdate(ctx context.Context, id int64) (*models.BettingEventDetail, error) {
	return r.getEvent(ctx, `SELECT `+bettingEventColumns+` FROM betting_events WHERE id = $1 FOR UPDATE`, id)
}

// GetEventForShare retrieves an event and blocks concurrent status changes
func (r *BettingRepository) GetEventForShare(ctx context.Context, id int64) (*models.BettingEventDetail, error) {
	return r.getEvent(ctx, `SELECT `+bettingEventColumns+` FROM betting_events WHERE id = $1 FOR SHARE`, id)
}

func (r *BettingRepository) getEvent(ctx context.Context, query string, id int64) (*models.BettingEventDetail, error) {
	event, err := scanBettingEvent(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get betting event %d: %w", id, err)
	}

	options, err := r.getOptions(ctx, []int64{id})
	if err != nil {
		return nil, err
	}

	return &models.BettingEventDetail{Event: event, Options: options[id]}, nil
}

// UpdateEvent persists status and resolution fields
func (r *BettingRepository) UpdateEvent(ctx context.Context, event *models.BettingEvent) error {
	query := `
		UPDATE betting_events
		SET status = $2, winning_option_id = $3, resolved_by = $4, resolved_at = $5
		WHERE id = $1`

	result, err := r.q.Exec(ctx, query,
		event.ID,
		string(event.Status),
		event.WinningOptionID,
		event.ResolvedBy,
		event.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update betting event %d: %w", event.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("betting event %d not found", event.ID)
	}

	return nil
}

// ListEvents returns events newest first, optionally filtered by status
func (r *BettingRepository) ListEvents(ctx context.Context, status *models.BettingEventStatus) ([]*models.BettingEventDetail, error) {
	query := `
		SELECT ` + bettingEventColumns + `
		FROM betting_events
		WHERE $1::text IS NULL OR status = $1
		ORDER BY created_at DESC, id DESC`

	var statusParam *string
	if status != nil {
		s := string(*status)
		statusParam = &s
	}

	rows, err := r.q.Query(ctx, query, statusParam)
	if err != nil {
		return nil, fmt.Errorf("failed to query betting events: %w", err)
	}

	var details []*models.BettingEventDetail
	var ids []int64
	for rows.Next() {
		event, err := scanBettingEvent(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan betting event: %w", err)
		}
		details = append(details, &models.BettingEventDetail{Event: event})
		ids = append(ids, event.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate betting events: %w", err)
	}

	if len(ids) == 0 {
		return details, nil
	}

	options, err := r.getOptions(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, detail := range details {
		detail.Options = options[detail.Event.ID]
	}

	return details, nil
}

func (r *BettingRepository) getOptions(ctx context.Context, eventIDs []int64) (map[int64][]*models.BettingOption, error) {
	query := `
		SELECT id, event_id, label, multiplier::text, option_order
		FROM betting_options
		WHERE event_id = ANY($1)
		ORDER BY event_id, option_order`

	rows, err := r.q.Query(ctx, query, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query betting options: %w", err)
	}
	defer rows.Close()

	options := make(map[int64][]*models.BettingOption, len(eventIDs))
	for rows.Next() {
		var (
			option     models.BettingOption
			multiplier string
		)
		if err := rows.Scan(&option.ID, &option.EventID, &option.Label, &multiplier, &option.OptionOrder); err != nil {
			return nil, fmt.Errorf("failed to scan betting option: %w", err)
		}
		option.Multiplier, err = decimal.NewFromString(multiplier)
		if err != nil {
			return nil, fmt.Errorf("failed to parse multiplier %q: %w", multiplier, err)
		}
		options[option.EventID] = append(options[option.EventID], &option)
	}

	return options, rows.Err()
}

// CreateBet inserts a bet and fills its id and creation time
func (r *BettingRepository) CreateBet(ctx context.Context, bet *models.Bet) error {
	query := `
		INSERT INTO bets (event_id, option_id, player_id, amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.q.QueryRow(ctx, query,
		bet.EventID,
		bet.OptionID,
		bet.PlayerID,
		bet.Amount,
		string(bet.Status),
	).Scan(&bet.ID, &bet.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bet: %w", err)
	}

	return nil
}

// GetBet retrieves a bet without locking it
func (r *BettingRepository) GetBet(ctx context.Context, id int64) (*models.Bet, error) {
	bet, err := scanBet(r.q.QueryRow(ctx, `SELECT `+betColumns+` FROM bets WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bet %d: %w", id, err)
	}
	return bet, nil
}

// GetBetForUpdate retrieves a bet and locks its row
func (r *BettingRepository) GetBetForUpdate(ctx context.Context, id int64) (*models.Bet, error) {
	bet, err := scanBet(r.q.QueryRow(ctx, `SELECT `+betColumns+` FROM bets WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock bet %d: %w", id, err)
	}
	return bet, nil
}

// GetActiveBetsForUpdate locks and returns every active bet on the event in id order
func (r *BettingRepository) GetActiveBetsForUpdate(ctx context.Context, eventID int64) ([]*models.Bet, error) {
	query := `
		SELECT ` + betColumns + `
		FROM bets
		WHERE event_id = $1 AND status = 'active'
		ORDER BY id
		FOR UPDATE`

	return r.listBets(ctx, query, eventID)
}

// UpdateBet persists status, payout and settlement time
func (r *BettingRepository) UpdateBet(ctx context.Context, bet *models.Bet) error {
	query := `
		UPDATE bets
		SET status = $2, payout = $3, settled_at = $4
		WHERE id = $1`

	result, err := r.q.Exec(ctx, query, bet.ID, string(bet.Status), bet.Payout, bet.SettledAt)
	if err != nil {
		return fmt.Errorf("failed to update bet %d: %w", bet.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("bet %d not found", bet.ID)
	}

	return nil
}

// ListBetsByPlayer returns the player's newest bets
func (r *BettingRepository) ListBetsByPlayer(ctx context.Context, playerID int64, limit int) ([]*models.Bet, error) {
	query := `
		SELECT ` + betColumns + `
		FROM bets
		WHERE player_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	return r.listBets(ctx, query, playerID, limit)
}

func (r *BettingRepository) listBets(ctx context.Context, query string, args ...any) ([]*models.Bet, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bets: %w", err)
	}
	defer rows.Close()

	var bets []*models.Bet
	for rows.Next() {
		bet, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, bet)
	}

	return bets, rows.Err()
}

func scanBettingEvent(row pgx.Row) (*models.BettingEvent, error) {
	var (
		event  models.BettingEvent
		status string
	)
	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&status,
		&event.CreatedBy,
		&event.WinningOptionID,
		&event.ResolvedBy,
		&event.ResolvedAt,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	event.Status = models.BettingEventStatus(status)
	return &event, nil
}

func scanBet(row pgx.Row) (*models.Bet, error) {
	var (
		bet    models.Bet
		status string
	)
	err := row.Scan(
		&bet.ID,
		&bet.EventID,
		&bet.OptionID,
		&bet.PlayerID,
		&bet.Amount,
		&status,
		&bet.Payout,
		&bet.CreatedAt,
		&bet.SettledAt,
	)
	if err != nil {
		return nil, err
	}
	bet.Status = models.BetStatus(status)
	return &bet, nil
}
