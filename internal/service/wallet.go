package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/meowbet/core/internal/domain"
	"github.com/meowbet/core/internal/ledger"
	"github.com/meowbet/core/internal/projection"
	"github.com/meowbet/core/internal/repository"
)

// WalletService runs the non-round ledger commands, each in its own unit of
// work, and keeps the balance projection current.
type WalletService struct {
	store           repository.Store
	engine          *ledger.Engine
	projections     projection.Store
	startingBalance int64
	logger          *slog.Logger
}

// NewWalletService creates a WalletService. projections may be nil.
func NewWalletService(
	store repository.Store,
	engine *ledger.Engine,
	projections projection.Store,
	startingBalance int64,
	logger *slog.Logger,
) *WalletService {
	return &WalletService{
		store:           store,
		engine:          engine,
		projections:     projections,
		startingBalance: startingBalance,
		logger:          logger,
	}
}

// OpenAccount creates an account funded with the configured starting balance.
// A zero id lets the service pick one.
func (s *WalletService) OpenAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	res, err := s.run(ctx, "open account", func(ctx context.Context, tx repository.Tx) (*domain.CommandResult, error) {
		return s.engine.ExecuteOpenAccount(ctx, tx, ledger.OpenAccountParams{ID: id, StartingBalance: s.startingBalance})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("account opened", "account_id", res.Account.ID, "balance", domain.FormatPrimary(res.Account.Balance))
	return res.Account, nil
}

// Deposit credits an approved deposit.
func (s *WalletService) Deposit(ctx context.Context, params ledger.DepositParams) (*domain.CommandResult, error) {
	res, err := s.run(ctx, "deposit", func(ctx context.Context, tx repository.Tx) (*domain.CommandResult, error) {
		return s.engine.ExecuteDeposit(ctx, tx, params)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("deposit credited", "account_id", params.AccountID, "amount", domain.FormatPrimary(params.Amount))
	return res, nil
}

// Withdraw debits a withdrawal request.
func (s *WalletService) Withdraw(ctx context.Context, params ledger.WithdrawParams) (*domain.CommandResult, error) {
	return s.run(ctx, "withdraw", func(ctx context.Context, tx repository.Tx) (*domain.CommandResult, error) {
		return s.engine.ExecuteWithdraw(ctx, tx, params)
	})
}

// ConvertReward moves reward units into the primary balance.
func (s *WalletService) ConvertReward(ctx context.Context, params ledger.ConvertRewardParams) (*domain.CommandResult, error) {
	return s.run(ctx, "convert reward", func(ctx context.Context, tx repository.Tx) (*domain.CommandResult, error) {
		return s.engine.ExecuteConvertReward(ctx, tx, params)
	})
}

// SetBanned flips the ban flag.
func (s *WalletService) SetBanned(ctx context.Context, id uuid.UUID, banned bool) (*domain.Account, error) {
	var account *domain.Account
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		a, err := s.engine.SetBanned(ctx, tx, id, banned)
		account = a
		return err
	})
	if err != nil {
		return nil, toAppError(s.logger, "set banned", err)
	}
	s.cacheBalance(ctx, account)
	s.logger.Info("account ban updated", "account_id", id, "banned", banned)
	return account, nil
}

// Balance returns the account's balances, from the projection when cached.
func (s *WalletService) Balance(ctx context.Context, id uuid.UUID) (*projection.BalanceProjection, error) {
	if s.projections != nil {
		if p, err := projection.GetBalance(ctx, s.projections, id); err == nil {
			return p, nil
		}
	}
	account, err := s.store.FindAccount(ctx, id)
	if err != nil {
		return nil, toAppError(s.logger, "find account", err)
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound(id.String())
	}
	s.cacheBalance(ctx, account)
	p := projection.NewBalanceProjection(account)
	return &p, nil
}

func (s *WalletService) run(
	ctx context.Context,
	op string,
	fn func(ctx context.Context, tx repository.Tx) (*domain.CommandResult, error),
) (*domain.CommandResult, error) {
	var result *domain.CommandResult
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		res, err := fn(ctx, tx)
		result = res
		return err
	})
	if err != nil {
		return nil, toAppError(s.logger, op, err)
	}
	s.cacheBalance(ctx, result.Account)
	return result, nil
}

func (s *WalletService) cacheBalance(ctx context.Context, a *domain.Account) {
	if s.projections == nil || a == nil {
		return
	}
	if err := projection.UpdateBalance(ctx, s.projections, a); err != nil {
		s.logger.Warn("balance projection update failed", "account_id", a.ID, "error", err)
	}
}

// toAppError passes domain errors through and turns anything else into a
// persistence failure.
func toAppError(logger *slog.Logger, op string, err error) error {
	if appErr := domain.AsAppError(err); appErr != nil {
		return appErr
	}
	logger.Error("storage failure", "op", op, "error", err)
	return domain.ErrPersistence(err)
}
