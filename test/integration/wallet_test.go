//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meowbet/core/internal/auth"
	"github.com/meowbet/core/internal/domain"
	"github.com/meowbet/core/test/integration/testutil"
)

// ─── Balance Tests ─────────────────────────────────────────────────────────

func TestBalance_NewAccountStartingBalance(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token, accountID := env.OpenAccount()

	resp := env.AuthGET("/wallet/balance", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var bal struct {
		AccountID     string `json:"account_id"`
		Balance       string `json:"balance"`
		RewardBalance string `json:"reward_balance"`
		Banned        bool   `json:"banned"`
	}
	testutil.DecodeJSON(t, resp, &bal)
	assert.Equal(t, accountID.String(), bal.AccountID)
	assert.Equal(t, "1000.00", bal.Balance)
	assert.Equal(t, "0.00000000", bal.RewardBalance)
	assert.False(t, bal.Banned)

	testutil.AssertBalance(t, env, accountID, "1000.00", "0.00000000")
	assert.Equal(t, 1, testutil.CountEntries(t, env, accountID))
}

func TestBalance_RequiresAuth(t *testing.T) {
	env := testutil.NewTestEnv(t)
	resp := env.GET("/wallet/balance")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// ─── Ledger Command Tests ──────────────────────────────────────────────────

func TestDeposit_CreditsBalance(t *testing.T) {
	env := testutil.NewTestEnv(t)
	_, accountID := env.OpenAccount()
	admin := env.AdminToken(auth.RoleAdmin)

	resp := env.AuthPOST("/admin/accounts/"+accountID.String()+"/deposits",
		map[string]string{"amount": "30.00", "reference": "wire-1"}, admin)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.AuthPOST("/admin/accounts/"+accountID.String()+"/deposits",
		map[string]string{"amount": "20.00"}, admin)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	testutil.AssertBalance(t, env, accountID, "1050.00", "0.00000000")
	assert.Equal(t, 3, testutil.CountEntries(t, env, accountID))
}

func TestWithdraw_DebitsBalance(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token, accountID := env.OpenAccount()

	resp := env.AuthPOST("/wallet/withdraw", map[string]string{"amount": "100.25"}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Entry struct {
			Type         string `json:"type"`
			BalanceDelta string `json:"balance_delta"`
			BalanceAfter string `json:"balance_after"`
		} `json:"entry"`
		Balance string `json:"balance"`
	}
	testutil.DecodeJSON(t, resp, &out)
	assert.Equal(t, string(domain.EntryWithdrawal), out.Entry.Type)
	assert.Equal(t, "-100.25", out.Entry.BalanceDelta)
	assert.Equal(t, "899.75", out.Entry.BalanceAfter)
	assert.Equal(t, "899.75", out.Balance)

	testutil.AssertBalance(t, env, accountID, "899.75", "0.00000000")
}

func TestWithdraw_InsufficientFunds(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token, accountID := env.OpenAccount()

	resp := env.AuthPOST("/wallet/withdraw", map[string]string{"amount": "1000.01"}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	testutil.AssertErrorCode(t, resp, domain.CodeInsufficientFunds)

	testutil.AssertBalance(t, env, accountID, "1000.00", "0.00000000")
	assert.Equal(t, 1, testutil.CountEntries(t, env, accountID))
}

func TestWithdraw_InvalidAmount(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token, _ := env.OpenAccount()

	for _, amount := range []string{"0", "-5.00", "1.001", "abc"} {
		resp := env.AuthPOST("/wallet/withdraw", map[string]string{"amount": amount}, token)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, amount)
		testutil.AssertErrorCode(t, resp, domain.CodeInvalidRequest)
	}
}

func TestEntries_NewestFirstWithCursor(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token, _ := env.OpenAccount()

	for _, amount := range []string{"1.00", "2.00", "3.00"} {
		resp := env.AuthPOST("/wallet/withdraw", map[string]string{"amount": amount}, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	type page struct {
		Entries []struct {
			ID           string `json:"id"`
			Type         string `json:"type"`
			BalanceAfter string `json:"balance_after"`
		} `json:"entries"`
		NextCursor *string `json:"next_cursor"`
	}

	var first page
	testutil.DecodeJSON(t, env.AuthGET("/wallet/entries?limit=2", token), &first)
	require.Len(t, first.Entries, 2)
	require.NotNil(t, first.NextCursor)
	assert.Equal(t, "994.00", first.Entries[0].BalanceAfter)
	assert.Equal(t, "997.00", first.Entries[1].BalanceAfter)

	var second page
	testutil.DecodeJSON(t, env.AuthGET("/wallet/entries?limit=2&cursor="+*first.NextCursor, token), &second)
	require.Len(t, second.Entries, 2)
	assert.Nil(t, second.NextCursor)
	assert.Equal(t, string(domain.EntryAccountOpened), second.Entries[1].Type)
}

func TestConvert_NoRewardBalance(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token, _ := env.OpenAccount()

	resp := env.AuthPOST("/wallet/convert", map[string]string{"amount": "0.01000000"}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	testutil.AssertErrorCode(t, resp, domain.CodeInsufficientFunds)
}

func TestConvert_CreditsPrimary(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token, accountID := env.OpenAccount()

	// Grant reward units directly; rewards only arrive through jackpot wins.
	_, err := env.Pool.Exec(t.Context(),
		"UPDATE accounts SET reward_balance = 0.05000000 WHERE id = $1", accountID)
	require.NoError(t, err)

	resp := env.AuthPOST("/wallet/convert", map[string]string{"amount": "0.02000000"}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// 0.02 reward at 5000 per unit is 100.00.
	testutil.AssertBalance(t, env, accountID, "1100.00", "0.03000000")
}
