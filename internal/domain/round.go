package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GameType enumerates the supported game variants. The set is closed.
type GameType string

const (
	GameDice  GameType = "dice"
	GameHiLo  GameType = "hilo"
	GameWheel GameType = "wheel"
	GameMines GameType = "mines"
	GameCrash GameType = "crash"
)

// GameTypes lists every supported game in display order.
var GameTypes = []GameType{GameDice, GameHiLo, GameWheel, GameMines, GameCrash}

// Valid reports whether g is one of the supported games.
func (g GameType) Valid() bool {
	switch g {
	case GameDice, GameHiLo, GameWheel, GameMines, GameCrash:
		return true
	}
	return false
}

// RoundRecord is the immutable record of one settled round. Result must be
// re-derivable from (ServerSeed, ClientSeed, Nonce) and Params.
type RoundRecord struct {
	ID             uuid.UUID       `json:"id"`
	AccountID      uuid.UUID       `json:"account_id"`
	Game           GameType        `json:"game"`
	Stake          int64           `json:"stake"`
	Win            int64           `json:"win"`
	RewardWon      int64           `json:"reward_won"`
	ServerSeed     string          `json:"server_seed"`
	ServerSeedHash string          `json:"server_seed_hash"`
	ClientSeed     string          `json:"client_seed"`
	Nonce          uint64          `json:"nonce"`
	JackpotNonce   uint64          `json:"jackpot_nonce"`
	Params         json.RawMessage `json:"params"`
	Result         json.RawMessage `json:"result"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Validate checks the record invariants before it is persisted.
func (r *RoundRecord) Validate() error {
	if !r.Game.Valid() {
		return fmt.Errorf("unknown game type %q", r.Game)
	}
	if r.Stake <= 0 {
		return fmt.Errorf("stake must be positive, got %d", r.Stake)
	}
	if r.Win < 0 {
		return fmt.Errorf("win must not be negative, got %d", r.Win)
	}
	if r.RewardWon < 0 {
		return fmt.Errorf("reward won must not be negative, got %d", r.RewardWon)
	}
	if r.ServerSeed == "" || r.ClientSeed == "" {
		return fmt.Errorf("seed pair is required")
	}
	return nil
}

// RoundResult is returned to the caller of PlaceBet.
type RoundResult struct {
	RoundID          uuid.UUID       `json:"round_id"`
	Game             GameType        `json:"game"`
	Result           json.RawMessage `json:"result"`
	Stake            string          `json:"stake"`
	WinAmount        string          `json:"win_amount"`
	JackpotWon       bool            `json:"jackpot_won"`
	JackpotAmount    string          `json:"jackpot_amount"`
	NewBalance       string          `json:"new_balance"`
	NewRewardBalance string          `json:"new_reward_balance"`
	ServerSeed       string          `json:"server_seed"`
	ServerSeedHash   string          `json:"server_seed_hash"`
	ClientSeed       string          `json:"client_seed"`
	Nonce            uint64          `json:"nonce"`
	JackpotNonce     uint64          `json:"jackpot_nonce"`
}

// RoundView is the wire shape of a stored round.
type RoundView struct {
	ID             uuid.UUID       `json:"id"`
	AccountID      uuid.UUID       `json:"account_id"`
	Game           GameType        `json:"game"`
	Stake          string          `json:"stake"`
	Win            string          `json:"win"`
	RewardWon      string          `json:"reward_won"`
	ServerSeed     string          `json:"server_seed"`
	ServerSeedHash string          `json:"server_seed_hash"`
	ClientSeed     string          `json:"client_seed"`
	Nonce          uint64          `json:"nonce"`
	JackpotNonce   uint64          `json:"jackpot_nonce"`
	Params         json.RawMessage `json:"params"`
	Result         json.RawMessage `json:"result"`
	CreatedAt      time.Time       `json:"created_at"`
}

// View renders r with decimal-string money fields.
func (r *RoundRecord) View() RoundView {
	return RoundView{
		ID:             r.ID,
		AccountID:      r.AccountID,
		Game:           r.Game,
		Stake:          FormatPrimary(r.Stake),
		Win:            FormatPrimary(r.Win),
		RewardWon:      FormatReward(r.RewardWon),
		ServerSeed:     r.ServerSeed,
		ServerSeedHash: r.ServerSeedHash,
		ClientSeed:     r.ClientSeed,
		Nonce:          r.Nonce,
		JackpotNonce:   r.JackpotNonce,
		Params:         r.Params,
		Result:         r.Result,
		CreatedAt:      r.CreatedAt,
	}
}
