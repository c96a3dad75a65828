package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Money Tests ---

func TestParsePrimary(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int64
		wantErr bool
	}{
		{"whole", "10", 1000, false},
		{"two places", "10.00", 1000, false},
		{"one place", "0.5", 50, false},
		{"cents", "0.01", 1, false},
		{"trailing zeros beyond scale", "1.2300", 123, false},
		{"three places", "1.234", 0, true},
		{"negative", "-1.00", 0, true},
		{"empty", "", 0, true},
		{"garbage", "ten", 0, true},
		{"too large", "99999999999999999.00", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePrimary(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseReward(t *testing.T) {
	v, err := ParseReward("0.10000000")
	require.NoError(t, err)
	assert.Equal(t, int64(10_000_000), v)

	_, err = ParseReward("0.000000001")
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "110.00", FormatPrimary(11000))
	assert.Equal(t, "0.05", FormatPrimary(5))
	assert.Equal(t, "-10.00", FormatPrimary(-1000))
	assert.Equal(t, "0.10000000", FormatReward(10_000_000))
	assert.Equal(t, "1.00000000", FormatReward(100_000_000))
}

func TestApplyMultiplier(t *testing.T) {
	tests := []struct {
		name  string
		stake int64
		mult  string
		want  int64
	}{
		{"double", 1000, "2", 2000},
		// 0.33 × 1.5 = 0.495 -> 0.49
		{"floors fractional cents", 33, "1.5", 49},
		{"zero multiplier", 1000, "0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyMultiplier(tt.stake, decimal.RequireFromString(tt.mult))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("product beyond int64 cents is rejected", func(t *testing.T) {
		_, err := ApplyMultiplier(2_000_000_000_000, decimal.NewFromInt(5_148_297))
		assert.True(t, HasCode(err, CodeInvalidRequest))
	})
	t.Run("largest representable product is kept", func(t *testing.T) {
		got, err := ApplyMultiplier(math.MaxInt64, decimal.NewFromInt(1))
		require.NoError(t, err)
		assert.Equal(t, int64(math.MaxInt64), got)
	})
}

func TestPrimaryToReward(t *testing.T) {
	// 1% of 10.00 is 0.10 -> 10_000_000 reward units
	got, err := PrimaryToReward(1000, decimal.RequireFromString("0.01"))
	require.NoError(t, err)
	assert.Equal(t, int64(10_000_000), got)

	_, err = PrimaryToReward(math.MaxInt64, decimal.NewFromInt(1))
	assert.True(t, HasCode(err, CodeInvalidRequest))
}

func TestRewardToPrimary(t *testing.T) {
	// 0.5 reward at 5000 per unit = 2500.00
	got, err := RewardToPrimary(50_000_000, decimal.NewFromInt(5000))
	require.NoError(t, err)
	assert.Equal(t, int64(250_000), got)
}

func TestAddMinor(t *testing.T) {
	sum, ok := AddMinor(1, 2)
	assert.True(t, ok)
	assert.Equal(t, int64(3), sum)

	_, ok = AddMinor(math.MaxInt64, 1)
	assert.False(t, ok)
	_, ok = AddMinor(math.MinInt64, -1)
	assert.False(t, ok)

	sum, ok = AddMinor(math.MaxInt64, -1)
	assert.True(t, ok)
	assert.Equal(t, int64(math.MaxInt64-1), sum)
}

// --- Balance Tests ---

func TestBalancesApply(t *testing.T) {
	b := Balances{Balance: 10000, RewardBalance: 5}
	after := b.Apply(BalanceUpdate{Balance: -1000, RewardBalance: 10})
	assert.Equal(t, Balances{Balance: 9000, RewardBalance: 15}, after)
	assert.True(t, after.NonNegative())
	assert.False(t, b.Apply(BalanceUpdate{Balance: -10001}).NonNegative())
}

func TestBalanceUpdateDeltas(t *testing.T) {
	assert.True(t, BalanceUpdate{Balance: 1}.HasBalanceDelta())
	assert.False(t, BalanceUpdate{Balance: 1}.HasRewardDelta())
	assert.True(t, BalanceUpdate{RewardBalance: -1}.HasRewardDelta())
}

// --- Round Tests ---

func TestGameTypeValid(t *testing.T) {
	for _, g := range GameTypes {
		assert.True(t, g.Valid(), string(g))
	}
	assert.False(t, GameType("roulette").Valid())
	assert.False(t, GameType("").Valid())
}

func TestRoundRecordValidate(t *testing.T) {
	valid := func() *RoundRecord {
		return &RoundRecord{
			ID: uuid.New(), AccountID: uuid.New(), Game: GameDice,
			Stake: 1000, ServerSeed: "s", ClientSeed: "c", Nonce: 1,
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(r *RoundRecord)
	}{
		{"zero stake", func(r *RoundRecord) { r.Stake = 0 }},
		{"negative win", func(r *RoundRecord) { r.Win = -1 }},
		{"negative reward", func(r *RoundRecord) { r.RewardWon = -1 }},
		{"unknown game", func(r *RoundRecord) { r.Game = "poker" }},
		{"missing seed", func(r *RoundRecord) { r.ServerSeed = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(r)
			assert.Error(t, r.Validate())
		})
	}
}

func TestRoundRecordView(t *testing.T) {
	r := &RoundRecord{Stake: 1000, Win: 2000, RewardWon: 10_000_000}
	v := r.View()
	assert.Equal(t, "10.00", v.Stake)
	assert.Equal(t, "20.00", v.Win)
	assert.Equal(t, "0.10000000", v.RewardWon)
}

// --- Validator Tests ---

func TestValidateClientSeed(t *testing.T) {
	tests := []struct {
		seed    string
		wantErr bool
	}{
		{"abc123", false},
		{"lucky_seed-7", false},
		{"", true},
		{"has space", true},
		{"colon:sep", true},
		{string(make([]byte, 65)), true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.seed), func(t *testing.T) {
			err := ValidateClientSeed(tt.seed)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePositiveAmount(t *testing.T) {
	assert.NoError(t, ValidatePositiveAmount(1))
	assert.Error(t, ValidatePositiveAmount(0))
	assert.Error(t, ValidatePositiveAmount(-5))
}

// --- Error Tests ---

func TestAppError(t *testing.T) {
	t.Run("without cause", func(t *testing.T) {
		err := ErrInsufficientFunds()
		assert.Equal(t, "INSUFFICIENT_FUNDS: insufficient funds", err.Error())
		assert.Equal(t, 400, err.Status)
	})

	t.Run("with cause unwraps", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := ErrPersistence(cause)
		assert.Contains(t, err.Error(), "connection refused")
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, 503, err.Status)
	})

	t.Run("wrapped AppError is found", func(t *testing.T) {
		wrapped := fmt.Errorf("settle: %w", ErrAccountBanned())
		assert.True(t, HasCode(wrapped, CodeAccountBanned))
		assert.False(t, HasCode(wrapped, CodeAccountNotFound))
		assert.Nil(t, AsAppError(errors.New("plain")))
	})

	t.Run("taxonomy statuses", func(t *testing.T) {
		assert.Equal(t, 400, ErrInvalidRequest("x").Status)
		assert.Equal(t, 403, ErrAccountBanned().Status)
		assert.Equal(t, 404, ErrAccountNotFound("a").Status)
		assert.Equal(t, 500, ErrInvalidConfiguration("x").Status)
	})
}

// --- Event Tests ---

func TestNewRoundSettledEvent(t *testing.T) {
	r := &RoundRecord{ID: uuid.New(), AccountID: uuid.New(), Game: GameCrash, Stake: 500}
	evt := NewRoundSettledEvent(r)

	assert.Equal(t, AggregateRound, evt.AggregateType)
	assert.Equal(t, r.ID.String(), evt.AggregateID)
	assert.Equal(t, r.AccountID.String(), evt.PartitionKey)
	assert.Equal(t, "core.round.settled", evt.Topic())

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(evt.Payload, &payload))
	assert.Equal(t, "5.00", payload["stake"])
}

func TestNewJackpotWonEvent(t *testing.T) {
	winner := uuid.New()
	evt := NewJackpotWonEvent(winner, 12_345_678, uuid.New())

	var payload map[string]string
	require.NoError(t, json.Unmarshal(evt.Payload, &payload))
	assert.Equal(t, winner.String(), payload["winner_id"])
	assert.Equal(t, "0.12345678", payload["amount"])
}
