package settlement

import (
	"encoding/json"
	"reflect"

	"github.com/meowbet/core/internal/domain"
	"github.com/meowbet/core/internal/outcome"
)

// VerifyRequest is a disclosed round as published to the player.
type VerifyRequest struct {
	ServerSeed string          `json:"server_seed"`
	ClientSeed string          `json:"client_seed"`
	Nonce      uint64          `json:"nonce"`
	Game       domain.GameType `json:"game"`
	Params     json.RawMessage `json:"params"`
	Result     json.RawMessage `json:"result"`
}

// VerifyRound recomputes the game result from the disclosed seeds and reports
// whether it matches the claimed one. It never errors: malformed input is
// simply not verified.
func VerifyRound(rules outcome.Rules, req VerifyRequest) bool {
	return verifyWith(rules, FairStreams, req)
}

// VerifyRound checks a round against this orchestrator's rules and streams.
func (o *Orchestrator) VerifyRound(req VerifyRequest) bool {
	return verifyWith(o.rules, o.streams, req)
}

func verifyWith(rules outcome.Rules, streams StreamFactory, req VerifyRequest) bool {
	if req.ServerSeed == "" || req.ClientSeed == "" || len(req.Result) == 0 {
		return false
	}
	out, err := rules.Resolve(req.Game, req.Params, streams(req.ServerSeed, req.ClientSeed, req.Nonce))
	if err != nil {
		return false
	}
	return sameJSON(out.Result, req.Result)
}

// sameJSON compares two documents structurally, so key order and whitespace
// in the claim do not matter.
func sameJSON(a, b json.RawMessage) bool {
	var va, vb interface{}
	if err := json.Unmarshal(a, &va); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &vb); err != nil {
		return false
	}
	return reflect.DeepEqual(va, vb)
}
