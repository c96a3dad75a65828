package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/meowbet/core/internal/domain"
	"github.com/meowbet/core/internal/infra"
)

// The pool is a single row keyed by id = 1, seeded by the migration.
type jackpotRepo struct{}

func (r jackpotRepo) get(ctx context.Context, db DBTX, lock bool) (*domain.JackpotPool, error) {
	query := `SELECT amount, last_winner_id, last_won_at, updated_at FROM jackpot WHERE id = 1`
	if lock {
		query += ` FOR UPDATE`
	}

	var p domain.JackpotPool
	var amount pgtype.Numeric
	if err := db.QueryRow(ctx, query).Scan(&amount, &p.LastWinnerID, &p.LastWonAt, &p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("load jackpot: %w", err)
	}
	v, err := infra.NumericToMinor(amount, domain.RewardScale)
	if err != nil {
		return nil, fmt.Errorf("convert jackpot amount: %w", err)
	}
	p.Amount = v
	return &p, nil
}

func (r jackpotRepo) Get(ctx context.Context, db DBTX) (*domain.JackpotPool, error) {
	return r.get(ctx, db, false)
}

func (r jackpotRepo) LockForUpdate(ctx context.Context, db DBTX) (*domain.JackpotPool, error) {
	return r.get(ctx, db, true)
}

func (r jackpotRepo) Save(ctx context.Context, db DBTX, p *domain.JackpotPool) error {
	_, err := db.Exec(ctx, `
		UPDATE jackpot
		SET amount = $1, last_winner_id = $2, last_won_at = $3, updated_at = $4
		WHERE id = 1`,
		infra.MinorToNumeric(p.Amount, domain.RewardScale),
		p.LastWinnerID,
		p.LastWonAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save jackpot: %w", err)
	}
	return nil
}
