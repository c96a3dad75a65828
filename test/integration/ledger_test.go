//go:build integration

package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meowbet/core/internal/domain"
	"github.com/meowbet/core/internal/ledger"
	"github.com/meowbet/core/test/integration/testutil"
)

func TestLedgerReplay_PostgresInvariants(t *testing.T) {
	env := testutil.NewTestEnv(t)
	_, accountID := env.OpenAccount()

	engine := ledger.NewEngine(ledger.DefaultConversionRate)
	harness := ledger.NewReplayHarness(engine, env.Store)

	res, err := harness.Execute(t.Context(), accountID, []ledger.ReplayCommand{
		{Type: "deposit", Params: ledger.DepositParams{Amount: 2_500, Reference: "r1"}},
		{Type: "withdraw", Params: ledger.WithdrawParams{Amount: 50_000}},
		{Type: "withdraw", Params: ledger.WithdrawParams{Amount: 60_000}}, // rejected
		{Type: "deposit", Params: ledger.DepositParams{Amount: 1}},
		{Type: "withdraw", Params: ledger.WithdrawParams{Amount: 52_501}},
	})
	require.NoError(t, err)

	for _, inv := range res.Invariants {
		assert.True(t, inv.Passed, "%s: %s", inv.Name, inv.Detail)
	}
	assert.True(t, res.AllPassed)
	assert.Equal(t, 1, res.Rejected)
	assert.Equal(t, 5, res.EntryCount)
	assert.Equal(t, int64(0), res.FinalBalances.Balance)

	testutil.AssertBalance(t, env, accountID, "0.00", "0.00000000")
}

func TestLedger_EntriesAreAppendOnly(t *testing.T) {
	env := testutil.NewTestEnv(t)
	_, accountID := env.OpenAccount()

	_, err := env.Pool.Exec(t.Context(), "UPDATE ledger_entries SET balance_delta = 0 WHERE account_id = $1", accountID)
	require.NoError(t, err)
	_, err = env.Pool.Exec(t.Context(), "DELETE FROM ledger_entries WHERE account_id = $1", accountID)
	require.NoError(t, err)

	entries, err := env.Store.ListEntries(t.Context(), accountID, nil, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.EntryAccountOpened, entries[0].Type)
	assert.Equal(t, int64(100_000), entries[0].BalanceDelta)
}
