//go:build integration

package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
)

// DecodeJSON reads and decodes a JSON response body into dst.
func DecodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
}

// AssertStatus checks that the response has the expected HTTP status code.
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// AssertErrorCode checks that the response body contains the expected error code.
func AssertErrorCode(t *testing.T, resp *http.Response, expectedCode string) {
	t.Helper()
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	DecodeJSON(t, resp, &errResp)
	if errResp.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, errResp.Code, errResp.Message)
	}
}

// AssertBalance reads the accounts row and asserts both balances as decimal strings.
func AssertBalance(t *testing.T, env *TestEnv, accountID uuid.UUID, balance, rewardBalance string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var bal, reward string
	err := env.Pool.QueryRow(ctx,
		"SELECT balance::text, reward_balance::text FROM accounts WHERE id = $1",
		accountID).Scan(&bal, &reward)
	if err != nil {
		t.Fatalf("AssertBalance: query: %v", err)
	}
	if bal != balance {
		t.Errorf("balance: expected %s, got %s", balance, bal)
	}
	if reward != rewardBalance {
		t.Errorf("reward_balance: expected %s, got %s", rewardBalance, reward)
	}
}

// CountEntries returns the number of ledger entries for an account.
func CountEntries(t *testing.T, env *TestEnv, accountID uuid.UUID) int {
	t.Helper()
	return count(t, env, "SELECT COUNT(*) FROM ledger_entries WHERE account_id = $1", accountID)
}

// CountRounds returns the number of rounds for an account.
func CountRounds(t *testing.T, env *TestEnv, accountID uuid.UUID) int {
	t.Helper()
	return count(t, env, "SELECT COUNT(*) FROM rounds WHERE account_id = $1", accountID)
}

// CountOutbox returns the number of unpublished events of eventType.
func CountOutbox(t *testing.T, env *TestEnv, eventType string) int {
	t.Helper()
	return count(t, env, `SELECT COUNT(*) FROM event_outbox WHERE "eventType" = $1`, eventType)
}

// JackpotAmount returns the pool amount as a decimal string.
func JackpotAmount(t *testing.T, env *TestEnv) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var amount string
	if err := env.Pool.QueryRow(ctx, "SELECT amount::text FROM jackpot WHERE id = 1").Scan(&amount); err != nil {
		t.Fatalf("JackpotAmount: %v", err)
	}
	return amount
}

func count(t *testing.T, env *TestEnv, query string, args ...interface{}) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var n int
	if err := env.Pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
