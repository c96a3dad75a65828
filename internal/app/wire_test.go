package app

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meowbet/core/internal/auth"
	"github.com/meowbet/core/internal/domain"
	"github.com/meowbet/core/internal/guard"
	"github.com/meowbet/core/internal/ledger"
	"github.com/meowbet/core/internal/outcome"
	"github.com/meowbet/core/internal/projection"
	"github.com/meowbet/core/internal/repository"
)

type testEnv struct {
	router chi.Router
	store  *repository.MemoryStore
	jwt    *auth.JWTManager
	admin  string
	viewer string
}

func newTestEnv(t *testing.T, limiter guard.Limiter) *testEnv {
	t.Helper()
	return newTestEnvWith(t, func(d *RouterDeps) { d.Limiter = limiter })
}

// newTestEnvWith builds the router over a memory store; customize may swap
// guards or projections before the router is assembled.
func newTestEnvWith(t *testing.T, customize func(*RouterDeps)) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	jwtMgr := auth.NewJWTManager("test-secret-key-test-secret-key!", time.Hour, time.Hour)
	deps := RouterDeps{
		Store:           store,
		Projections:     projection.NewInMemoryStore(),
		JWTMgr:          jwtMgr,
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		Rules:           outcome.DefaultRules(),
		StartingBalance: ledger.DefaultStartingBalance,
	}
	if customize != nil {
		customize(&deps)
	}
	r, err := NewRouter(deps)
	require.NoError(t, err)

	admin, err := jwtMgr.GenerateToken(auth.RealmAdmin, uuid.New(), auth.RoleAdmin)
	require.NoError(t, err)
	viewer, err := jwtMgr.GenerateToken(auth.RealmAdmin, uuid.New(), auth.RoleViewer)
	require.NoError(t, err)
	return &testEnv{router: r, store: store, jwt: jwtMgr, admin: admin, viewer: viewer}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// openPlayer opens an account through the admin API and returns it with a player token.
func (e *testEnv) openPlayer(t *testing.T) (uuid.UUID, string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/admin/accounts", e.admin, map[string]string{})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var acct struct {
		ID      uuid.UUID `json:"id"`
		Balance string    `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &acct))
	assert.Equal(t, "1000.00", acct.Balance)

	token, err := e.jwt.GenerateToken(auth.RealmPlayer, acct.ID, "")
	require.NoError(t, err)
	return acct.ID, token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decode(t, rec, &body)
	return body["code"]
}

var diceBet = map[string]interface{}{
	"game":   "dice",
	"stake":  "10.00",
	"params": map[string]interface{}{"min": 1, "max": 100, "target": 51, "direction": "over"},
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	env.do(t, http.MethodGet, "/jackpot", "", nil)
	rec = env.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestPlaceBetFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	accountID, token := env.openPlayer(t)

	rec := env.do(t, http.MethodPost, "/rounds", token, diceBet)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res domain.RoundResult
	decode(t, rec, &res)
	assert.Equal(t, domain.GameDice, res.Game)
	assert.Equal(t, "10.00", res.Stake)
	assert.Equal(t, uint64(1), res.Nonce)
	assert.Equal(t, uint64(2), res.JackpotNonce)
	assert.NotEmpty(t, res.ServerSeed)
	assert.NotEmpty(t, res.ClientSeed)

	win, err := domain.ParsePrimary(res.WinAmount)
	require.NoError(t, err)
	assert.Equal(t, domain.FormatPrimary(100_000-1_000+win), res.NewBalance)

	// The balance endpoint agrees with the settlement.
	rec = env.do(t, http.MethodGet, "/wallet/balance", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bal projection.BalanceProjection
	decode(t, rec, &bal)
	assert.Equal(t, res.NewBalance, bal.Balance)

	// History and detail.
	rec = env.do(t, http.MethodGet, "/rounds", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Rounds []domain.RoundView `json:"rounds"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Rounds, 1)
	assert.Equal(t, res.RoundID, list.Rounds[0].ID)

	rec = env.do(t, http.MethodGet, "/rounds/"+res.RoundID.String(), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view domain.RoundView
	decode(t, rec, &view)
	assert.Equal(t, accountID, view.AccountID)
	assert.Equal(t, res.ServerSeedHash, view.ServerSeedHash)

	// Anyone can verify the disclosed round.
	verify := map[string]interface{}{
		"server_seed": view.ServerSeed,
		"client_seed": view.ClientSeed,
		"nonce":       view.Nonce,
		"game":        view.Game,
		"params":      view.Params,
		"result":      view.Result,
	}
	rec = env.do(t, http.MethodPost, "/fairness/verify", "", verify)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valid":true`)

	verify["nonce"] = view.Nonce + 1000
	verify["result"] = map[string]interface{}{"roll": 0, "win": false}
	rec = env.do(t, http.MethodPost, "/fairness/verify", "", verify)
	assert.Contains(t, rec.Body.String(), `"valid":false`)

	// Ledger: opening entry plus the settlement.
	rec = env.do(t, http.MethodGet, "/wallet/entries", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries struct {
		Entries []domain.EntryView `json:"entries"`
	}
	decode(t, rec, &entries)
	require.Len(t, entries.Entries, 2)
	assert.Equal(t, domain.EntryRoundSettlement, entries.Entries[0].Type)
}

func TestGetRound_OtherAccountIsNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	_, alice := env.openPlayer(t)
	_, bob := env.openPlayer(t)

	rec := env.do(t, http.MethodPost, "/rounds", alice, diceBet)
	require.Equal(t, http.StatusCreated, rec.Code)
	var res domain.RoundResult
	decode(t, rec, &res)

	rec = env.do(t, http.MethodGet, "/rounds/"+res.RoundID.String(), bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/rounds/not-a-uuid", bob, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaceBet_Rejections(t *testing.T) {
	env := newTestEnv(t, nil)
	_, token := env.openPlayer(t)

	tests := []struct {
		name   string
		body   interface{}
		status int
		code   string
	}{
		{"unknown game", map[string]interface{}{"game": "roulette", "stake": "1.00"}, 400, domain.CodeInvalidRequest},
		{"zero stake", map[string]interface{}{"game": "dice", "stake": "0.00", "params": diceBet["params"]}, 400, domain.CodeInvalidRequest},
		{"sub-cent stake", map[string]interface{}{"game": "dice", "stake": "1.001", "params": diceBet["params"]}, 400, domain.CodeInvalidRequest},
		{"bad params", map[string]interface{}{"game": "mines", "stake": "1.00", "params": map[string]int{"mines": 30, "picks": 1}}, 400, domain.CodeInvalidRequest},
		{"bad client seed", map[string]interface{}{"game": "dice", "stake": "1.00", "params": diceBet["params"], "client_seed": "has spaces"}, 400, domain.CodeInvalidRequest},
		{"insufficient funds", map[string]interface{}{"game": "dice", "stake": "1000.01", "params": diceBet["params"]}, 400, domain.CodeInsufficientFunds},
		{"unknown field", map[string]interface{}{"game": "dice", "stake": "1.00", "bogus": true}, 400, domain.CodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/rounds", token, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}

	rec := env.do(t, http.MethodGet, "/wallet/balance", token, nil)
	assert.Contains(t, rec.Body.String(), `"balance":"1000.00"`)
}

func TestPlaceBet_RequiresPlayerToken(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/rounds", "", diceBet)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/rounds", env.admin, diceBet)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A valid token for an account that was never opened.
	ghost, err := env.jwt.GenerateToken(auth.RealmPlayer, uuid.New(), "")
	require.NoError(t, err)
	rec = env.do(t, http.MethodPost, "/rounds", ghost, diceBet)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, domain.CodeAccountNotFound, errorCode(t, rec))
}

func TestPlaceBet_IdempotencyKey(t *testing.T) {
	env := newTestEnv(t, nil)
	_, token := env.openPlayer(t)

	rec := env.do(t, http.MethodPost, "/rounds", token, diceBet, "Idempotency-Key", "k1")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/rounds", token, diceBet, "Idempotency-Key", "k1")
	assert.Equal(t, http.StatusConflict, rec.Code)

	// A rejected round releases its key.
	broke := map[string]interface{}{"game": "dice", "stake": "5000.00", "params": diceBet["params"]}
	rec = env.do(t, http.MethodPost, "/rounds", token, broke, "Idempotency-Key", "k2")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodPost, "/rounds", token, diceBet, "Idempotency-Key", "k2")
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestPlaceBet_RedisGuards(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	env := newTestEnvWith(t, func(d *RouterDeps) {
		d.Limiter = guard.NewRedisRateLimiter(rdb, 100, time.Minute, logger)
		d.Deduper = guard.NewRedisIdempotencyGuard(rdb, time.Hour, logger)
	})
	_, token := env.openPlayer(t)

	rec := env.do(t, http.MethodPost, "/rounds", token, diceBet, "Idempotency-Key", "r1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = env.do(t, http.MethodPost, "/rounds", token, diceBet, "Idempotency-Key", "r1")
	assert.Equal(t, http.StatusConflict, rec.Code)

	broke := map[string]interface{}{"game": "dice", "stake": "5000.00", "params": diceBet["params"]}
	rec = env.do(t, http.MethodPost, "/rounds", token, broke, "Idempotency-Key", "r2")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodPost, "/rounds", token, diceBet, "Idempotency-Key", "r2")
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Redis gone: the limiter lets bets through, the idempotency guard does not.
	mr.Close()
	rec = env.do(t, http.MethodPost, "/rounds", token, diceBet, "Idempotency-Key", "r3")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, domain.CodePersistenceFailure, errorCode(t, rec))
	rec = env.do(t, http.MethodPost, "/rounds", token, diceBet)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestPlaceBet_RateLimited(t *testing.T) {
	env := newTestEnv(t, guard.NewRateLimiter(2, time.Minute))
	_, token := env.openPlayer(t)

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodPost, "/rounds", token, diceBet)
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec := env.do(t, http.MethodPost, "/rounds", token, diceBet)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, domain.CodeRateLimited, errorCode(t, rec))
}

func TestWalletWithdrawAndConvert(t *testing.T) {
	env := newTestEnv(t, nil)
	_, token := env.openPlayer(t)

	rec := env.do(t, http.MethodPost, "/wallet/withdraw", token, map[string]string{"amount": "250.50"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"balance":"749.50"`)

	rec = env.do(t, http.MethodPost, "/wallet/withdraw", token, map[string]string{"amount": "800.00"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.CodeInsufficientFunds, errorCode(t, rec))

	// No reward balance yet.
	rec = env.do(t, http.MethodPost, "/wallet/convert", token, map[string]string{"amount": "0.01000000"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.CodeInsufficientFunds, errorCode(t, rec))
}

func TestAdminAccounts(t *testing.T) {
	env := newTestEnv(t, nil)
	accountID, token := env.openPlayer(t)
	base := "/admin/accounts/" + accountID.String()

	rec := env.do(t, http.MethodPost, base+"/deposits", env.admin, map[string]string{"amount": "25.00", "reference": "wire-1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"balance":"1025.00"`)

	rec = env.do(t, http.MethodPatch, base+"/ban", env.admin, map[string]bool{"banned": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"banned":true`)

	rec = env.do(t, http.MethodPost, "/rounds", token, diceBet)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, domain.CodeAccountBanned, errorCode(t, rec))

	rec = env.do(t, http.MethodPatch, base+"/ban", env.admin, map[string]bool{"banned": false})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPost, "/rounds", token, diceBet)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPatch, base+"/ban", env.admin, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPatch, "/admin/accounts/"+uuid.NewString()+"/ban", env.admin, map[string]bool{"banned": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminRoles(t *testing.T) {
	env := newTestEnv(t, nil)
	accountID, token := env.openPlayer(t)

	rec := env.do(t, http.MethodPost, "/admin/accounts", env.viewer, map[string]string{})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/admin/accounts", token, map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/rounds", token, diceBet).Code)

	rec = env.do(t, http.MethodGet, "/admin/rounds?account_id="+accountID.String(), env.viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Rounds []domain.RoundView `json:"rounds"`
	}
	decode(t, rec, &list)
	assert.Len(t, list.Rounds, 1)

	rec = env.do(t, http.MethodGet, "/admin/rounds?game=poker", env.viewer, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoundPagination(t *testing.T) {
	env := newTestEnv(t, guard.NewRateLimiter(100, time.Minute))
	_, token := env.openPlayer(t)

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/rounds", token, diceBet).Code)
	}

	var page struct {
		Rounds     []domain.RoundView `json:"rounds"`
		NextCursor *uuid.UUID         `json:"next_cursor"`
	}
	decode(t, env.do(t, http.MethodGet, "/rounds?limit=3", token, nil), &page)
	require.Len(t, page.Rounds, 3)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, uint64(5), page.Rounds[0].Nonce)

	var rest struct {
		Rounds     []domain.RoundView `json:"rounds"`
		NextCursor *uuid.UUID         `json:"next_cursor"`
	}
	decode(t, env.do(t, http.MethodGet, "/rounds?limit=3&cursor="+page.NextCursor.String(), token, nil), &rest)
	require.Len(t, rest.Rounds, 2)
	assert.Nil(t, rest.NextCursor)
	assert.Equal(t, uint64(1), rest.Rounds[1].Nonce)
}

func TestFairnessSeedAndJackpot(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/fairness/seed", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var seed struct {
		ClientSeed  string   `json:"client_seed"`
		Games       []string `json:"games"`
		WheelTables []string `json:"wheel_tables"`
	}
	decode(t, rec, &seed)
	assert.NoError(t, domain.ValidateClientSeed(seed.ClientSeed))
	assert.Len(t, seed.Games, 5)
	assert.Equal(t, []string{"high", "low", "medium"}, seed.WheelTables)

	rec = env.do(t, http.MethodGet, "/jackpot", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"amount":"0.10000000"`)
}
