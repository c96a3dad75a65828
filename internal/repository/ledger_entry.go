package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/meowbet/core/internal/domain"
	"github.com/meowbet/core/internal/infra"
)

const entryColumns = `id, account_id, type, balance_delta, reward_delta,
	balance_after, reward_balance_after, round_id, metadata, created_at`

type entryRepo struct{}

func (r entryRepo) Insert(ctx context.Context, db DBTX, params domain.PostEntryParams, after domain.Balances) (*domain.LedgerEntry, error) {
	row := db.QueryRow(ctx, `
		INSERT INTO ledger_entries
		  (id, account_id, type, balance_delta, reward_delta,
		   balance_after, reward_balance_after, round_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+entryColumns,
		uuid.New(),
		params.AccountID,
		string(params.Type),
		infra.MinorToNumeric(params.Update.Balance, domain.PrimaryScale),
		infra.MinorToNumeric(params.Update.RewardBalance, domain.RewardScale),
		infra.MinorToNumeric(after.Balance, domain.PrimaryScale),
		infra.MinorToNumeric(after.RewardBalance, domain.RewardScale),
		params.RoundID,
		ensureJSON(params.Metadata),
	)
	e, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("insert ledger entry: %w", err)
	}
	return e, nil
}

func (r entryRepo) ListByAccount(ctx context.Context, db DBTX, accountID uuid.UUID, cursor *uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	limit = normalizeLimit(limit)

	var rows pgx.Rows
	var err error
	if cursor != nil {
		rows, err = db.Query(ctx, `
			SELECT `+entryColumns+`
			FROM ledger_entries
			WHERE account_id = $1
			  AND (created_at, id) < (SELECT created_at, id FROM ledger_entries WHERE id = $2)
			ORDER BY created_at DESC, id DESC
			LIMIT $3`, accountID, *cursor, limit)
	} else {
		rows, err = db.Query(ctx, `
			SELECT `+entryColumns+`
			FROM ledger_entries
			WHERE account_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2`, accountID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var out []domain.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var typ string
	var balDelta, rewardDelta, balAfter, rewardAfter pgtype.Numeric
	err := row.Scan(
		&e.ID, &e.AccountID, &typ, &balDelta, &rewardDelta,
		&balAfter, &rewardAfter, &e.RoundID, &e.Metadata, &e.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}
	e.Type = domain.EntryType(typ)

	var convErr error
	if e.BalanceDelta, convErr = infra.NumericToMinor(balDelta, domain.PrimaryScale); convErr != nil {
		return nil, convErr
	}
	if e.RewardDelta, convErr = infra.NumericToMinor(rewardDelta, domain.RewardScale); convErr != nil {
		return nil, convErr
	}
	if e.BalanceAfter, convErr = infra.NumericToMinor(balAfter, domain.PrimaryScale); convErr != nil {
		return nil, convErr
	}
	if e.RewardBalanceAfter, convErr = infra.NumericToMinor(rewardAfter, domain.RewardScale); convErr != nil {
		return nil, convErr
	}
	return &e, nil
}

func ensureJSON(data json.RawMessage) json.RawMessage {
	if len(data) == 0 {
		return json.RawMessage(`{}`)
	}
	return data
}
