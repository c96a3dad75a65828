//go:build integration

package testutil

import (
	"context"
	"time"
)

// CleanAll truncates every table and re-seeds the jackpot at its floor.
// TRUNCATE bypasses the append-only rules on ledger_entries.
func (env *TestEnv) CleanAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := env.Pool.Exec(ctx,
		"TRUNCATE TABLE event_outbox, ledger_entries, rounds, jackpot, accounts RESTART IDENTITY CASCADE"); err != nil {
		env.t.Fatalf("CleanAll: truncate: %v", err)
	}
	if _, err := env.Pool.Exec(ctx,
		"INSERT INTO jackpot (id, amount) VALUES (1, 0.10000000)"); err != nil {
		env.t.Fatalf("CleanAll: seed jackpot: %v", err)
	}
}
