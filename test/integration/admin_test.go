//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meowbet/core/internal/auth"
	"github.com/meowbet/core/internal/domain"
	"github.com/meowbet/core/test/integration/testutil"
)

// ─── Admin Auth Tests ──────────────────────────────────────────────────────

func TestAdminAuth_NoToken(t *testing.T) {
	env := testutil.NewTestEnv(t)
	resp := env.GET("/admin/rounds")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminAuth_PlayerTokenRejected(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token, _ := env.OpenAccount()

	resp := env.AuthGET("/admin/rounds", token)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminAuth_Roles(t *testing.T) {
	env := testutil.NewTestEnv(t)

	tests := []struct {
		role       string
		readStatus int
		openStatus int
	}{
		{auth.RoleViewer, http.StatusOK, http.StatusForbidden},
		{auth.RoleAdmin, http.StatusOK, http.StatusCreated},
		{auth.RoleSuperAdmin, http.StatusOK, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			token := env.AdminToken(tt.role)

			resp := env.AuthGET("/admin/rounds", token)
			assert.Equal(t, tt.readStatus, resp.StatusCode)
			resp.Body.Close()

			resp = env.AuthPOST("/admin/accounts", map[string]string{}, token)
			assert.Equal(t, tt.openStatus, resp.StatusCode)
			resp.Body.Close()
		})
	}
}

// ─── Account Management Tests ──────────────────────────────────────────────

func TestAdminAccounts_OpenWithID(t *testing.T) {
	env := testutil.NewTestEnv(t)
	admin := env.AdminToken(auth.RoleAdmin)
	id := uuid.New()

	resp := env.AuthPOST("/admin/accounts", map[string]string{"id": id.String()}, admin)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var acct struct {
		ID      uuid.UUID `json:"id"`
		Balance string    `json:"balance"`
	}
	testutil.DecodeJSON(t, resp, &acct)
	assert.Equal(t, id, acct.ID)
	assert.Equal(t, "1000.00", acct.Balance)
	assert.Equal(t, 1, testutil.CountOutbox(t, env, string(domain.EventAccountOpened)))

	// The same ID cannot be opened twice.
	resp = env.AuthPOST("/admin/accounts", map[string]string{"id": id.String()}, admin)
	assert.NotEqual(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func TestAdminAccounts_BanBlocksBetsAndWithdrawals(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token, accountID := env.OpenAccount()
	admin := env.AdminToken(auth.RoleAdmin)

	resp := env.AuthPATCH("/admin/accounts/"+accountID.String()+"/ban", map[string]bool{"banned": true}, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 1, testutil.CountOutbox(t, env, string(domain.EventAccountBanned)))

	resp = env.AuthPOST("/rounds", diceOver(50, "1.00"), token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	testutil.AssertErrorCode(t, resp, domain.CodeAccountBanned)

	resp = env.AuthPOST("/wallet/withdraw", map[string]string{"amount": "1.00"}, token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	testutil.AssertErrorCode(t, resp, domain.CodeAccountBanned)

	// Deposits still land on banned accounts.
	resp = env.AuthPOST("/admin/accounts/"+accountID.String()+"/deposits", map[string]string{"amount": "5.00"}, admin)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	testutil.AssertBalance(t, env, accountID, "1005.00", "0.00000000")
	assert.Equal(t, 0, testutil.CountRounds(t, env, accountID))
}

func TestAdminAccounts_UnknownAccount(t *testing.T) {
	env := testutil.NewTestEnv(t)
	admin := env.AdminToken(auth.RoleAdmin)

	resp := env.AuthPOST("/admin/accounts/"+uuid.NewString()+"/deposits", map[string]string{"amount": "5.00"}, admin)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	testutil.AssertErrorCode(t, resp, domain.CodeAccountNotFound)

	resp = env.AuthPATCH("/admin/accounts/not-a-uuid/ban", map[string]bool{"banned": true}, admin)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAdminRounds_FilterByAccount(t *testing.T) {
	env := testutil.NewTestEnv(t)
	alice, aliceID := env.OpenAccount()
	bob, _ := env.OpenAccount()

	for _, token := range []string{alice, alice, bob} {
		resp := env.AuthPOST("/rounds", diceOver(50, "1.00"), token)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	viewer := env.AdminToken(auth.RoleViewer)

	var all struct {
		Rounds []domain.RoundView `json:"rounds"`
	}
	testutil.DecodeJSON(t, env.AuthGET("/admin/rounds", viewer), &all)
	assert.Len(t, all.Rounds, 3)

	var mine struct {
		Rounds []domain.RoundView `json:"rounds"`
	}
	testutil.DecodeJSON(t, env.AuthGET("/admin/rounds?account_id="+aliceID.String(), viewer), &mine)
	require.Len(t, mine.Rounds, 2)
	for _, r := range mine.Rounds {
		assert.Equal(t, aliceID, r.AccountID)
	}
}
