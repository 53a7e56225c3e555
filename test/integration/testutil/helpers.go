//go:build integration

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cyclelog/platform/internal/domain"
	"github.com/google/uuid"
)

// TokenFor generates a bearer token for userID without touching the database.
func (env *TestEnv) TokenFor(userID uuid.UUID, email string, plan domain.Plan) string {
	env.t.Helper()
	token, err := env.JWTMgr.GenerateToken(userID, email, plan, "UTC")
	if err != nil {
		env.t.Fatalf("TokenFor: %v", err)
	}
	return token
}

// SeedProfile inserts a bare profile row and returns its ID.
func (env *TestEnv) SeedProfile(email string, plan domain.Plan) uuid.UUID {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	userID := uuid.New()
	_, err := env.Pool.Exec(ctx, `
		INSERT INTO profiles (id, email, plan, timezone)
		VALUES ($1, $2, $3, 'UTC')`,
		userID, email, string(plan))
	if err != nil {
		env.t.Fatalf("SeedProfile: %v", err)
	}
	return userID
}

// SeedCycle inserts one cycle for userID on date (YYYY-MM-DD) and returns its ID.
// Profit is left NULL so readers derive it from the amounts.
func (env *TestEnv) SeedCycle(userID uuid.UUID, date string, deposit, withdrawal float64, platform string) uuid.UUID {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cycleID := uuid.New()
	_, err := env.Pool.Exec(ctx, `
		INSERT INTO cycles (id, user_id, date, deposit, withdrawal, platform)
		VALUES ($1, $2, $3::date, $4, $5, $6)`,
		cycleID, userID, date, deposit, withdrawal, platform)
	if err != nil {
		env.t.Fatalf("SeedCycle: %v", err)
	}
	return cycleID
}

// DeleteCycle soft-deletes a cycle.
func (env *TestEnv) DeleteCycle(cycleID uuid.UUID) {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := env.Pool.Exec(ctx, `UPDATE cycles SET deleted_at = now() WHERE id = $1`, cycleID); err != nil {
		env.t.Fatalf("DeleteCycle: %v", err)
	}
}

// GET performs an unauthenticated GET request.
func (env *TestEnv) GET(path string) *http.Response {
	env.t.Helper()
	resp, err := http.Get(env.Server.URL + path)
	if err != nil {
		env.t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// POST performs a POST request with optional auth token.
func (env *TestEnv) POST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("POST %s: encode: %v", path, err)
		}
	}
	req, err := http.NewRequest("POST", env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("POST %s: new request: %v", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

// AuthGET performs an authenticated GET request.
func (env *TestEnv) AuthGET(path, token string) *http.Response {
	env.t.Helper()
	req, err := http.NewRequest("GET", env.Server.URL+path, nil)
	if err != nil {
		env.t.Fatalf("AuthGET %s: new request: %v", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("AuthGET %s: %v", path, err)
	}
	return resp
}

// AuthPOST performs an authenticated POST request.
func (env *TestEnv) AuthPOST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.POST(path, body, token)
}

// OPTIONS performs an OPTIONS request.
func (env *TestEnv) OPTIONS(path string) *http.Response {
	env.t.Helper()
	req, err := http.NewRequest("OPTIONS", env.Server.URL+path, nil)
	if err != nil {
		env.t.Fatalf("OPTIONS %s: new request: %v", path, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("OPTIONS %s: %v", path, err)
	}
	return resp
}
