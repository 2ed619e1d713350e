package repository

import (
	"context"
	"errors"
	"fmt"

	"blocklucky/database"
	"blocklucky/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
)

// LotteryRepository implements the LotteryRepository interface
type LotteryRepository struct {
	q queryable
}

// NewLotteryRepository creates a new lottery repository
func NewLotteryRepository(db *database.DB) *LotteryRepository {
	return &LotteryRepository{q: db.Pool}
}

// newLotteryRepositoryWithTx creates a new lottery repository with a transaction
func newLotteryRepositoryWithTx(tx queryable) *LotteryRepository {
	return &LotteryRepository{q: tx}
}

const lotteryColumns = `
	id, owner_address, ticket_price::text, min_participants, round,
	pot::text, forfeited::text, active, completed, winner_address, created_at, updated_at
`

// Create inserts a new lottery and its participants
func (r *LotteryRepository) Create(ctx context.Context, lottery *models.Lottery) error {
	query := `
		INSERT INTO lotteries
		(owner_address, ticket_price, min_participants, round, pot, forfeited, active, completed, winner_address)
		VALUES ($1, $2::text::numeric, $3, $4, $5::text::numeric, $6::text::numeric, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	minParticipants, err := minParticipantsParam(lottery)
	if err != nil {
		return err
	}

	err = r.q.QueryRow(ctx, query,
		lottery.Owner.Hex(),
		weiParam(lottery.TicketPrice),
		minParticipants,
		lottery.Round,
		weiParam(lottery.Pot),
		weiParam(lottery.Forfeited),
		lottery.Active,
		lottery.Completed,
		lottery.Winner.Hex(),
	).Scan(&lottery.ID, &lottery.CreatedAt, &lottery.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create lottery: %w", err)
	}

	return r.replaceEntries(ctx, lottery)
}

// GetByID retrieves a lottery with its participants
func (r *LotteryRepository) GetByID(ctx context.Context, id int64) (*models.Lottery, error) {
	return r.get(ctx, id, false)
}

// GetByIDForUpdate retrieves a lottery with a row-level lock
func (r *LotteryRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Lottery, error) {
	return r.get(ctx, id, true)
}

func (r *LotteryRepository) get(ctx context.Context, id int64, forUpdate bool) (*models.Lottery, error) {
	query := `SELECT ` + lotteryColumns + ` FROM lotteries WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	lottery, err := scanLottery(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lottery %d: %w", id, err)
	}

	if err := r.loadEntries(ctx, lottery); err != nil {
		return nil, err
	}
	return lottery, nil
}

// Save updates the lottery row and rewrites its participant list
func (r *LotteryRepository) Save(ctx context.Context, lottery *models.Lottery) error {
	query := `
		UPDATE lotteries
		SET min_participants = $1,
		    round = $2,
		    pot = $3::text::numeric,
		    forfeited = $4::text::numeric,
		    active = $5,
		    completed = $6,
		    winner_address = $7,
		    updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at
	`

	minParticipants, err := minParticipantsParam(lottery)
	if err != nil {
		return err
	}

	err = r.q.QueryRow(ctx, query,
		minParticipants,
		lottery.Round,
		weiParam(lottery.Pot),
		weiParam(lottery.Forfeited),
		lottery.Active,
		lottery.Completed,
		lottery.Winner.Hex(),
		lottery.ID,
	).Scan(&lottery.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %d", models.ErrLotteryNotFound, lottery.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to save lottery %d: %w", lottery.ID, err)
	}

	return r.replaceEntries(ctx, lottery)
}

// List returns all lotteries ordered by ID
func (r *LotteryRepository) List(ctx context.Context) ([]*models.Lottery, error) {
	query := `SELECT ` + lotteryColumns + ` FROM lotteries ORDER BY id`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list lotteries: %w", err)
	}
	defer rows.Close()

	var lotteries []*models.Lottery
	for rows.Next() {
		lottery, err := scanLottery(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lottery: %w", err)
		}
		lotteries = append(lotteries, lottery)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lotteries: %w", err)
	}

	for _, lottery := range lotteries {
		if err := r.loadEntries(ctx, lottery); err != nil {
			return nil, err
		}
	}
	return lotteries, nil
}

func (r *LotteryRepository) loadEntries(ctx context.Context, lottery *models.Lottery) error {
	query := `
		SELECT address, tickets
		FROM lottery_entries
		WHERE lottery_id = $1
		ORDER BY position
	`

	rows, err := r.q.Query(ctx, query, lottery.ID)
	if err != nil {
		return fmt.Errorf("failed to get entries for lottery %d: %w", lottery.ID, err)
	}
	defer rows.Close()

	lottery.Participants = []common.Address{}
	lottery.TicketsByAddress = make(map[common.Address]uint64)
	for rows.Next() {
		var address string
		var tickets int64
		if err := rows.Scan(&address, &tickets); err != nil {
			return fmt.Errorf("failed to scan lottery entry: %w", err)
		}
		addr := common.HexToAddress(address)
		lottery.Participants = append(lottery.Participants, addr)
		lottery.TicketsByAddress[addr] = uint64(tickets)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate lottery entries: %w", err)
	}
	return nil
}

func (r *LotteryRepository) replaceEntries(ctx context.Context, lottery *models.Lottery) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM lottery_entries WHERE lottery_id = $1`, lottery.ID); err != nil {
		return fmt.Errorf("failed to clear entries for lottery %d: %w", lottery.ID, err)
	}
	if len(lottery.Participants) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, addr := range lottery.Participants {
		batch.Queue(`
			INSERT INTO lottery_entries (lottery_id, address, position, tickets)
			VALUES ($1, $2, $3, $4)
		`, lottery.ID, addr.Hex(), i, int64(lottery.TicketsByAddress[addr]))
	}

	results := r.q.SendBatch(ctx, batch)
	for range lottery.Participants {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to write entries for lottery %d: %w", lottery.ID, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to write entries for lottery %d: %w", lottery.ID, err)
	}
	return nil
}

// minParticipantsParam guards the BIGINT column against uint64 values that
// would wrap negative
func minParticipantsParam(lottery *models.Lottery) (int64, error) {
	if lottery.MinParticipants == 0 || lottery.MinParticipants > models.MaxMinParticipants {
		return 0, fmt.Errorf("%w: %d participants", models.ErrInvalidConfiguration, lottery.MinParticipants)
	}
	return int64(lottery.MinParticipants), nil
}

func scanLottery(row pgx.Row) (*models.Lottery, error) {
	var (
		lottery               models.Lottery
		owner, winner         string
		price, pot, forfeited string
		minParticipants       int64
	)

	err := row.Scan(
		&lottery.ID,
		&owner,
		&price,
		&minParticipants,
		&lottery.Round,
		&pot,
		&forfeited,
		&lottery.Active,
		&lottery.Completed,
		&winner,
		&lottery.CreatedAt,
		&lottery.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	lottery.Owner = common.HexToAddress(owner)
	lottery.Winner = common.HexToAddress(winner)
	lottery.MinParticipants = uint64(minParticipants)
	if lottery.TicketPrice, err = parseWei(price); err != nil {
		return nil, err
	}
	if lottery.Pot, err = parseWei(pot); err != nil {
		return nil, err
	}
	if lottery.Forfeited, err = parseWei(forfeited); err != nil {
		return nil, err
	}
	lottery.Participants = []common.Address{}
	lottery.TicketsByAddress = make(map[common.Address]uint64)

	return &lottery, nil
}
