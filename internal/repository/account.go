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

const accountColumns = `id, balance, reward_balance, banned, created_at, updated_at`

type accountRepo struct{}

func (r accountRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Account, error) {
	row := db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (r accountRepo) LockForUpdate(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Account, error) {
	row := db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
	return scanAccount(row)
}

func (r accountRepo) Create(ctx context.Context, db DBTX, a *domain.Account) error {
	_, err := db.Exec(ctx, `
		INSERT INTO accounts (id, balance, reward_balance, banned, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID,
		infra.MinorToNumeric(a.Balance, domain.PrimaryScale),
		infra.MinorToNumeric(a.RewardBalance, domain.RewardScale),
		a.Banned,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// UpdateBalances uses server-side arithmetic with dynamic SET clauses.
func (r accountRepo) UpdateBalances(ctx context.Context, db DBTX, id uuid.UUID, delta domain.BalanceUpdate) (*domain.Account, error) {
	setClauses := []string{"updated_at = now()"}
	args := []interface{}{}
	argIdx := 1

	if delta.HasBalanceDelta() {
		setClauses = append(setClauses, fmt.Sprintf("balance = balance + $%d", argIdx))
		args = append(args, infra.MinorToNumeric(delta.Balance, domain.PrimaryScale))
		argIdx++
	}
	if delta.HasRewardDelta() {
		setClauses = append(setClauses, fmt.Sprintf("reward_balance = reward_balance + $%d", argIdx))
		args = append(args, infra.MinorToNumeric(delta.RewardBalance, domain.RewardScale))
		argIdx++
	}

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE accounts SET %s
		WHERE id = $%d
		RETURNING `+accountColumns,
		strings.Join(setClauses, ", "), argIdx)

	a, err := scanAccount(db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("update balances: %w", err)
	}
	if a == nil {
		return nil, domain.ErrAccountNotFound(id.String())
	}
	return a, nil
}

func (r accountRepo) SetBanned(ctx context.Context, db DBTX, id uuid.UUID, banned bool) (*domain.Account, error) {
	row := db.QueryRow(ctx, `
		UPDATE accounts SET banned = $1, updated_at = now()
		WHERE id = $2
		RETURNING `+accountColumns, banned, id)
	a, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("set banned: %w", err)
	}
	if a == nil {
		return nil, domain.ErrAccountNotFound(id.String())
	}
	return a, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	var balNum, rewardNum pgtype.Numeric
	err := row.Scan(&a.ID, &balNum, &rewardNum, &a.Banned, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	var convErr error
	a.Balance, convErr = infra.NumericToMinor(balNum, domain.PrimaryScale)
	if convErr != nil {
		return nil, fmt.Errorf("convert balance: %w", convErr)
	}
	a.RewardBalance, convErr = infra.NumericToMinor(rewardNum, domain.RewardScale)
	if convErr != nil {
		return nil, fmt.Errorf("convert reward_balance: %w", convErr)
	}
	return &a, nil
}
