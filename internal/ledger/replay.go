package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/meowbet/core/internal/domain"
	"github.com/meowbet/core/internal/repository"
)

// ReplayResult holds the outcome of a deterministic replay run.
type ReplayResult struct {
	AccountID     uuid.UUID
	EntryCount    int
	Rejected      int
	FinalBalances domain.Balances
	Invariants    []InvariantCheck
	AllPassed     bool
}

// InvariantCheck records a single invariant validation.
type InvariantCheck struct {
	Name   string
	Passed bool
	Detail string
}

// ReplayCommand is a single command in a replay sequence.
type ReplayCommand struct {
	Type   string // "deposit", "withdraw", "settle_round", "convert_reward"
	Params interface{}
}

// ReplayHarness executes a sequence of wallet commands against one account
// and validates the ledger invariants against the final state.
//
// Invariants:
//  1. Balance non-negativity: both balances >= 0
//  2. Ledger parity: newest entry's snapshot matches the account row
//  3. Ledger sum: the account's entry deltas add up to its balances
//  4. Entry count: one entry per accepted command (plus the opening entry)
type ReplayHarness struct {
	engine *Engine
	store  repository.Store
}

// NewReplayHarness creates a replay harness.
func NewReplayHarness(engine *Engine, store repository.Store) *ReplayHarness {
	return &ReplayHarness{engine: engine, store: store}
}

// Execute runs commands in order. Commands rejected with a domain error
// (insufficient funds, banned) are counted and skipped; any other error
// aborts the replay.
func (h *ReplayHarness) Execute(ctx context.Context, accountID uuid.UUID, commands []ReplayCommand) (*ReplayResult, error) {
	before, err := h.allEntries(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("replay fetch initial entries: %w", err)
	}

	var accepted, rejected int
	for i, cmd := range commands {
		err := h.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			return h.executeCommand(ctx, tx, accountID, cmd)
		})
		if err != nil {
			if domain.AsAppError(err) != nil {
				rejected++
				continue
			}
			return nil, fmt.Errorf("replay command %d (%s): %w", i, cmd.Type, err)
		}
		accepted++
	}

	account, err := h.store.FindAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("replay fetch final state: %w", err)
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound(accountID.String())
	}
	entries, err := h.allEntries(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("replay fetch entries: %w", err)
	}

	invariants := validateInvariants(account, entries, len(before)+accepted)
	allPassed := true
	for _, inv := range invariants {
		if !inv.Passed {
			allPassed = false
		}
	}

	return &ReplayResult{
		AccountID:     accountID,
		EntryCount:    len(entries),
		Rejected:      rejected,
		FinalBalances: account.Balances,
		Invariants:    invariants,
		AllPassed:     allPassed,
	}, nil
}

func (h *ReplayHarness) executeCommand(ctx context.Context, tx repository.Tx, accountID uuid.UUID, cmd ReplayCommand) error {
	var err error
	switch cmd.Type {
	case "deposit":
		p := cmd.Params.(DepositParams)
		p.AccountID = accountID
		_, err = h.engine.ExecuteDeposit(ctx, tx, p)
	case "withdraw":
		p := cmd.Params.(WithdrawParams)
		p.AccountID = accountID
		_, err = h.engine.ExecuteWithdraw(ctx, tx, p)
	case "settle_round":
		p := cmd.Params.(SettleRoundParams)
		p.AccountID = accountID
		if p.RoundID == uuid.Nil {
			p.RoundID = uuid.New()
		}
		_, err = h.engine.ExecuteSettleRound(ctx, tx, p)
	case "convert_reward":
		p := cmd.Params.(ConvertRewardParams)
		p.AccountID = accountID
		_, err = h.engine.ExecuteConvertReward(ctx, tx, p)
	default:
		return fmt.Errorf("unknown command type: %s", cmd.Type)
	}
	return err
}

// allEntries pages through the account's entries, newest first.
func (h *ReplayHarness) allEntries(ctx context.Context, accountID uuid.UUID) ([]domain.LedgerEntry, error) {
	var all []domain.LedgerEntry
	var cursor *uuid.UUID
	for {
		page, err := h.store.ListEntries(ctx, accountID, cursor, 100)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < 100 {
			return all, nil
		}
		last := page[len(page)-1].ID
		cursor = &last
	}
}

func validateInvariants(account *domain.Account, entries []domain.LedgerEntry, expectedEntries int) []InvariantCheck {
	checks := make([]InvariantCheck, 0, 4)

	checks = append(checks, InvariantCheck{
		Name:   "balance_non_negative",
		Passed: account.NonNegative(),
		Detail: fmt.Sprintf("balance=%d reward=%d", account.Balance, account.RewardBalance),
	})

	if len(entries) > 0 {
		last := entries[0]
		checks = append(checks, InvariantCheck{
			Name:   "ledger_parity",
			Passed: last.BalanceAfter == account.Balance && last.RewardBalanceAfter == account.RewardBalance,
			Detail: fmt.Sprintf("account=[%d,%d] last=[%d,%d]",
				account.Balance, account.RewardBalance, last.BalanceAfter, last.RewardBalanceAfter),
		})
	} else {
		checks = append(checks, InvariantCheck{
			Name:   "ledger_parity",
			Passed: true,
			Detail: "no entries (empty ledger)",
		})
	}

	var sum domain.Balances
	for _, e := range entries {
		sum = sum.Apply(domain.BalanceUpdate{Balance: e.BalanceDelta, RewardBalance: e.RewardDelta})
	}
	checks = append(checks, InvariantCheck{
		Name:   "ledger_sum",
		Passed: sum == account.Balances,
		Detail: fmt.Sprintf("sum=[%d,%d] account=[%d,%d]",
			sum.Balance, sum.RewardBalance, account.Balance, account.RewardBalance),
	})

	checks = append(checks, InvariantCheck{
		Name:   "entry_count",
		Passed: len(entries) == expectedEntries,
		Detail: fmt.Sprintf("expected=%d actual=%d", expectedEntries, len(entries)),
	})

	return checks
}
