//go:build integration

package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/meowbet/core/internal/auth"
)

// AdminToken issues an admin-realm token for a fresh operator with role.
func (env *TestEnv) AdminToken(role string) string {
	env.t.Helper()
	token, err := env.JWTMgr.GenerateToken(auth.RealmAdmin, uuid.New(), role)
	if err != nil {
		env.t.Fatalf("AdminToken: %v", err)
	}
	return token
}

// PlayerToken issues a player-realm token for accountID.
func (env *TestEnv) PlayerToken(accountID uuid.UUID) string {
	env.t.Helper()
	token, err := env.JWTMgr.GenerateToken(auth.RealmPlayer, accountID, "")
	if err != nil {
		env.t.Fatalf("PlayerToken: %v", err)
	}
	return token
}

// OpenAccount opens an account through the admin API and returns a player
// token and the account ID.
func (env *TestEnv) OpenAccount() (token string, accountID uuid.UUID) {
	env.t.Helper()
	resp := env.AuthPOST("/admin/accounts", map[string]string{}, env.AdminToken(auth.RoleAdmin))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		env.t.Fatalf("OpenAccount: expected 201, got %d", resp.StatusCode)
	}
	var result struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		env.t.Fatalf("OpenAccount: decode: %v", err)
	}
	return env.PlayerToken(result.ID), result.ID
}

// GET performs an unauthenticated GET request.
func (env *TestEnv) GET(path string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodGet, path, nil, "", nil)
}

// POST performs a POST request with optional auth token.
func (env *TestEnv) POST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodPost, path, body, token, nil)
}

// AuthGET performs an authenticated GET request.
func (env *TestEnv) AuthGET(path, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodGet, path, nil, token, nil)
}

// AuthPOST performs an authenticated POST request.
func (env *TestEnv) AuthPOST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodPost, path, body, token, nil)
}

// AuthPOSTWithHeaders performs an authenticated POST with extra headers.
func (env *TestEnv) AuthPOSTWithHeaders(path string, body interface{}, token string, headers map[string]string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodPost, path, body, token, headers)
}

// AuthPATCH performs an authenticated PATCH request.
func (env *TestEnv) AuthPATCH(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodPatch, path, body, token, nil)
}

// OPTIONS performs an OPTIONS request.
func (env *TestEnv) OPTIONS(path string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodOptions, path, nil, "", nil)
}

func (env *TestEnv) do(method, path string, body interface{}, token string, headers map[string]string) *http.Response {
	env.t.Helper()
	var rd io.Reader = http.NoBody
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("%s %s: encode: %v", method, path, err)
		}
		rd = &buf
	}
	req, err := http.NewRequest(method, env.Server.URL+path, rd)
	if err != nil {
		env.t.Fatalf("%s %s: new request: %v", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}
