package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/meowbet/core/internal/domain"
	"github.com/meowbet/core/internal/infra"
)

const roundColumns = `id, account_id, game, stake, win, reward_won,
	server_seed, server_seed_hash, client_seed, nonce, jackpot_nonce,
	params, result, created_at`

type roundRepo struct{}

func (r roundRepo) Insert(ctx context.Context, db DBTX, rec *domain.RoundRecord) error {
	_, err := db.Exec(ctx, `
		INSERT INTO rounds (`+roundColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rec.ID,
		rec.AccountID,
		string(rec.Game),
		infra.MinorToNumeric(rec.Stake, domain.PrimaryScale),
		infra.MinorToNumeric(rec.Win, domain.PrimaryScale),
		infra.MinorToNumeric(rec.RewardWon, domain.RewardScale),
		rec.ServerSeed,
		rec.ServerSeedHash,
		rec.ClientSeed,
		int64(rec.Nonce),
		int64(rec.JackpotNonce),
		ensureJSON(rec.Params),
		ensureJSON(rec.Result),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert round: %w", err)
	}
	return nil
}

func (r roundRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.RoundRecord, error) {
	row := db.QueryRow(ctx, `SELECT `+roundColumns+` FROM rounds WHERE id = $1`, id)
	rec, err := scanRound(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (r roundRepo) CountByAccount(ctx context.Context, db DBTX, accountID uuid.UUID) (int64, error) {
	var n int64
	if err := db.QueryRow(ctx, `SELECT count(*) FROM rounds WHERE account_id = $1`, accountID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rounds: %w", err)
	}
	return n, nil
}

func (r roundRepo) List(ctx context.Context, db DBTX, f RoundFilter) ([]domain.RoundRecord, error) {
	var where []string
	var args []interface{}
	add := func(clause string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if f.AccountID != nil {
		add("account_id = $%d", *f.AccountID)
	}
	if f.Game != "" {
		add("game = $%d", string(f.Game))
	}
	if f.Cursor != nil {
		add("(created_at, id) < (SELECT created_at, id FROM rounds WHERE id = $%d)", *f.Cursor)
	}

	query := `SELECT ` + roundColumns + ` FROM rounds`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, normalizeLimit(f.Limit))
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rounds: %w", err)
	}
	defer rows.Close()

	var out []domain.RoundRecord
	for rows.Next() {
		rec, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func scanRound(row pgx.Row) (*domain.RoundRecord, error) {
	var rec domain.RoundRecord
	var game string
	var stakeNum, winNum, rewardNum pgtype.Numeric
	var nonce, jackpotNonce int64
	err := row.Scan(
		&rec.ID, &rec.AccountID, &game, &stakeNum, &winNum, &rewardNum,
		&rec.ServerSeed, &rec.ServerSeedHash, &rec.ClientSeed, &nonce, &jackpotNonce,
		&rec.Params, &rec.Result, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan round: %w", err)
	}
	rec.Game = domain.GameType(game)
	rec.Nonce = uint64(nonce)
	rec.JackpotNonce = uint64(jackpotNonce)

	var convErr error
	if rec.Stake, convErr = infra.NumericToMinor(stakeNum, domain.PrimaryScale); convErr != nil {
		return nil, fmt.Errorf("convert stake: %w", convErr)
	}
	if rec.Win, convErr = infra.NumericToMinor(winNum, domain.PrimaryScale); convErr != nil {
		return nil, fmt.Errorf("convert win: %w", convErr)
	}
	if rec.RewardWon, convErr = infra.NumericToMinor(rewardNum, domain.RewardScale); convErr != nil {
		return nil, fmt.Errorf("convert reward_won: %w", convErr)
	}
	return &rec, nil
}
