package outcome

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/meowbet/core/internal/domain"
)

// TiePolicy decides what an equal card means in hi-lo.
type TiePolicy string

const (
	TiePush TiePolicy = "push"
	TieLose TiePolicy = "lose"
	TieWin  TiePolicy = "win"
)

// Valid reports whether p is a known tie policy.
func (p TiePolicy) Valid() bool {
	switch p {
	case TiePush, TieLose, TieWin:
		return true
	}
	return false
}

const (
	maxHiLoGuesses = 20
	// maxDiceBound limits |min| and |max| so range arithmetic stays exact.
	maxDiceBound = 1_000_000_000
)

// WheelTable is one risk level of the wheel: a weight and multiplier per segment.
type WheelTable struct {
	Weights     []float64
	Multipliers []decimal.Decimal
}

// Rules are the tunable payout parameters shared by every game.
type Rules struct {
	HouseEdge   decimal.Decimal
	TiePolicy   TiePolicy
	WheelTables map[string]WheelTable
	CrashMax    float64
}

// DefaultRules returns the production payout tables with a 1% house edge.
func DefaultRules() Rules {
	return Rules{
		HouseEdge: decimal.RequireFromString("0.01"),
		TiePolicy: TiePush,
		WheelTables: map[string]WheelTable{
			"low":    newTable([]float64{45, 40, 10, 5}, "0", "1.5", "2", "3"),
			"medium": newTable([]float64{66, 20, 9, 4, 1}, "0", "2", "3", "5", "10"),
			"high":   newTable([]float64{90, 6, 2, 1, 1}, "0", "5", "10", "20", "26"),
		},
		CrashMax: DefaultCrashMax,
	}
}

func newTable(weights []float64, multipliers ...string) WheelTable {
	t := WheelTable{Weights: weights}
	for _, m := range multipliers {
		t.Multipliers = append(t.Multipliers, decimal.RequireFromString(m))
	}
	return t
}

// Validate checks the rules once at startup so bad tables surface as a
// configuration fault rather than per-bet.
func (r Rules) Validate() error {
	if r.HouseEdge.IsNegative() || r.HouseEdge.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return domain.ErrInvalidConfiguration("house edge must be in [0, 1)")
	}
	if !r.TiePolicy.Valid() {
		return domain.ErrInvalidConfiguration(fmt.Sprintf("unknown hilo tie policy %q", r.TiePolicy))
	}
	if r.CrashMax <= CrashFloor {
		return domain.ErrInvalidConfiguration("crash max must exceed the crash floor")
	}
	if len(r.WheelTables) == 0 {
		return domain.ErrInvalidConfiguration("no wheel tables configured")
	}
	for name, t := range r.WheelTables {
		if len(t.Weights) != len(t.Multipliers) {
			return domain.ErrInvalidConfiguration(fmt.Sprintf("wheel table %q: %d weights, %d multipliers",
				name, len(t.Weights), len(t.Multipliers)))
		}
		if _, err := Wheel(0, t.Weights); err != nil {
			return fmt.Errorf("wheel table %q: %w", name, err)
		}
		for _, m := range t.Multipliers {
			if m.IsNegative() {
				return domain.ErrInvalidConfiguration(fmt.Sprintf("wheel table %q has a negative multiplier", name))
			}
		}
	}
	return nil
}

// WheelTableNames lists the configured tables in stable order.
func (r Rules) WheelTableNames() []string {
	names := make([]string, 0, len(r.WheelTables))
	for n := range r.WheelTables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r Rules) edgeFactor() decimal.Decimal {
	return decimal.NewFromInt(1).Sub(r.HouseEdge)
}

// --- Params and results ---

// DiceParams selects the roll range and the winning side of target.
type DiceParams struct {
	Min       int    `json:"min"`
	Max       int    `json:"max"`
	Target    int    `json:"target"`
	Direction string `json:"direction"`
}

type DiceResult struct {
	Roll int  `json:"roll"`
	Win  bool `json:"win"`
}

// HiLoParams is the sequence of guesses the player commits to up front.
type HiLoParams struct {
	Guesses []string `json:"guesses"`
}

type HiLoResult struct {
	Cards    []int    `json:"cards"`
	Outcomes []string `json:"outcomes"`
	Streak   int      `json:"streak"`
	Lost     bool     `json:"lost"`
}

type WheelParams struct {
	Table string `json:"table"`
}

type WheelResult struct {
	Segment    int             `json:"segment"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

type MinesParams struct {
	Mines int `json:"mines"`
	Picks int `json:"picks"`
}

type MinesResult struct {
	Revealed int  `json:"revealed"`
	HitAt    *int `json:"hit_at,omitempty"`
}

type CrashParams struct {
	Cashout decimal.Decimal `json:"cashout"`
}

type CrashResult struct {
	CrashPoint decimal.Decimal `json:"crash_point"`
	Cashout    decimal.Decimal `json:"cashout"`
	Win        bool            `json:"win"`
}

// Scalars yields successive fairness scalars for one round.
type Scalars interface {
	Next() float64
}

// Outcome is a resolved, priced round.
type Outcome struct {
	Result     json.RawMessage
	Multiplier decimal.Decimal
	// Draws is how many scalars the game consumed.
	Draws uint64
}

// Won reports whether the round pays anything back.
func (o *Outcome) Won() bool { return o.Multiplier.IsPositive() }

// WinAmount is floor(stake × multiplier) in cents. It fails when the payout
// does not fit in int64 cents.
func (o *Outcome) WinAmount(stake int64) (int64, error) {
	return domain.ApplyMultiplier(stake, o.Multiplier)
}

// Resolve validates params, draws the scalars the game needs and prices the
// result. Invalid params are rejected before any scalar is drawn.
func (r Rules) Resolve(game domain.GameType, params json.RawMessage, src Scalars) (*Outcome, error) {
	switch game {
	case domain.GameDice:
		return r.resolveDice(params, src)
	case domain.GameHiLo:
		return r.resolveHiLo(params, src)
	case domain.GameWheel:
		return r.resolveWheel(params, src)
	case domain.GameMines:
		return r.resolveMines(params, src)
	case domain.GameCrash:
		return r.resolveCrash(params, src)
	default:
		return nil, domain.ErrInvalidRequest(fmt.Sprintf("unknown game type %q", game))
	}
}

// ValidateParams runs the same checks Resolve does without drawing.
func (r Rules) ValidateParams(game domain.GameType, params json.RawMessage) error {
	_, err := r.Resolve(game, params, constScalars(0))
	return err
}

type constScalars float64

func (c constScalars) Next() float64 { return float64(c) }

func (r Rules) resolveDice(raw json.RawMessage, src Scalars) (*Outcome, error) {
	p := DiceParams{Min: 1, Max: 100, Direction: "over"}
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if p.Min < -maxDiceBound || p.Max > maxDiceBound {
		return nil, domain.ErrInvalidRequest(fmt.Sprintf("dice range must lie within ±%d", maxDiceBound))
	}
	if p.Max < p.Min {
		return nil, domain.ErrInvalidRequest("dice max below min")
	}
	if p.Target < p.Min || p.Target > p.Max {
		return nil, domain.ErrInvalidRequest("dice target outside range")
	}

	span := int64(p.Max - p.Min + 1)
	var winning int64
	switch p.Direction {
	case "over":
		winning = int64(p.Max - p.Target + 1)
	case "under":
		winning = int64(p.Target - p.Min + 1)
	default:
		return nil, domain.ErrInvalidRequest(`dice direction must be "over" or "under"`)
	}
	if winning >= span {
		return nil, domain.ErrInvalidRequest("dice bet cannot cover the whole range")
	}

	roll, err := Dice(src.Next(), p.Min, p.Max)
	if err != nil {
		return nil, err
	}
	win := (p.Direction == "over" && roll >= p.Target) || (p.Direction == "under" && roll <= p.Target)

	mult := decimal.Zero
	if win {
		mult = decimal.NewFromInt(span).Div(decimal.NewFromInt(winning)).Mul(r.edgeFactor()).Truncate(4)
	}
	return newOutcome(DiceResult{Roll: roll, Win: win}, mult, 1)
}

func (r Rules) resolveHiLo(raw json.RawMessage, src Scalars) (*Outcome, error) {
	var p HiLoParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if len(p.Guesses) == 0 || len(p.Guesses) > maxHiLoGuesses {
		return nil, domain.ErrInvalidRequest(fmt.Sprintf("hilo needs 1-%d guesses", maxHiLoGuesses))
	}
	for _, g := range p.Guesses {
		if g != "higher" && g != "lower" {
			return nil, domain.ErrInvalidRequest(`hilo guesses must be "higher" or "lower"`)
		}
	}

	// Every card is drawn up front so the draw count does not depend on the outcome.
	cards := make([]int, len(p.Guesses)+1)
	for i := range cards {
		cards[i] = HiLoCard(src.Next())
	}

	res := HiLoResult{Cards: cards}
	for i, guess := range p.Guesses {
		prev, next := cards[i], cards[i+1]
		var step string
		switch {
		case next == prev:
			step = r.tieStep()
		case (next > prev) == (guess == "higher"):
			step = "win"
		default:
			step = "loss"
		}
		res.Outcomes = append(res.Outcomes, step)
		if step == "loss" {
			res.Lost = true
			break
		}
		if step == "win" {
			res.Streak++
		}
	}

	mult := decimal.Zero
	switch {
	case res.Lost:
	case res.Streak == 0:
		mult = decimal.NewFromInt(1)
	default:
		mult = decimal.NewFromInt(1).
			Add(decimal.RequireFromString("0.5").Mul(decimal.NewFromInt(int64(res.Streak)))).
			Mul(r.edgeFactor()).Truncate(4)
	}
	return newOutcome(res, mult, uint64(len(cards)))
}

func (r Rules) tieStep() string {
	switch r.TiePolicy {
	case TieLose:
		return "loss"
	case TieWin:
		return "win"
	default:
		return "tie"
	}
}

func (r Rules) resolveWheel(raw json.RawMessage, src Scalars) (*Outcome, error) {
	p := WheelParams{Table: "medium"}
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	table, ok := r.WheelTables[p.Table]
	if !ok {
		return nil, domain.ErrInvalidRequest(fmt.Sprintf("unknown wheel table %q", p.Table))
	}
	if len(table.Weights) != len(table.Multipliers) {
		return nil, domain.ErrInvalidConfiguration(fmt.Sprintf("wheel table %q is malformed", p.Table))
	}
	idx, err := Wheel(src.Next(), table.Weights)
	if err != nil {
		return nil, err
	}
	mult := table.Multipliers[idx]
	return newOutcome(WheelResult{Segment: idx, Multiplier: mult}, mult, 1)
}

func (r Rules) resolveMines(raw json.RawMessage, src Scalars) (*Outcome, error) {
	var p MinesParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if p.Mines < 1 || p.Mines > MinesTiles-1 {
		return nil, domain.ErrInvalidRequest(fmt.Sprintf("mines must be 1-%d", MinesTiles-1))
	}
	if p.Picks < 1 || p.Picks > MinesTiles-p.Mines {
		return nil, domain.ErrInvalidRequest(fmt.Sprintf("picks must be 1-%d", MinesTiles-p.Mines))
	}

	var res MinesResult
	for i := 0; i < p.Picks; i++ {
		hit, err := MineHit(src.Next(), MinesTiles, p.Mines, i)
		if err != nil {
			return nil, err
		}
		if hit && res.HitAt == nil {
			at := i
			res.HitAt = &at
		}
		if res.HitAt == nil {
			res.Revealed++
		}
	}

	mult := decimal.Zero
	if res.HitAt == nil {
		mult = decimal.NewFromInt(1)
		for i := 0; i < p.Picks; i++ {
			remaining := int64(MinesTiles - i)
			safe := int64(MinesTiles - p.Mines - i)
			mult = mult.Mul(decimal.NewFromInt(remaining)).Div(decimal.NewFromInt(safe))
		}
		mult = mult.Mul(r.edgeFactor()).Truncate(4)
	}
	return newOutcome(res, mult, uint64(p.Picks))
}

func (r Rules) resolveCrash(raw json.RawMessage, src Scalars) (*Outcome, error) {
	var p CrashParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	floor := decimal.NewFromFloat(CrashFloor)
	if p.Cashout.LessThan(floor) {
		return nil, domain.ErrInvalidRequest("crash cashout must be at least 1.01")
	}
	if p.Cashout.GreaterThan(decimal.NewFromFloat(r.CrashMax)) {
		return nil, domain.ErrInvalidRequest("crash cashout above maximum multiplier")
	}
	if !p.Cashout.Equal(p.Cashout.Truncate(2)) {
		return nil, domain.ErrInvalidRequest("crash cashout has more than 2 decimal places")
	}

	point := decimal.NewFromFloat(Crash(src.Next(), r.CrashMax)).Truncate(2)
	win := p.Cashout.LessThanOrEqual(point)
	mult := decimal.Zero
	if win {
		mult = p.Cashout
	}
	return newOutcome(CrashResult{CrashPoint: point, Cashout: p.Cashout, Win: win}, mult, 1)
}

func decodeParams(raw json.RawMessage, v interface{}) error {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		raw = json.RawMessage(`{}`)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.ErrInvalidRequest(fmt.Sprintf("invalid game params: %v", err))
	}
	return nil
}

func newOutcome(result interface{}, mult decimal.Decimal, draws uint64) (*Outcome, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, domain.ErrInternal("encode game result", err)
	}
	return &Outcome{Result: data, Multiplier: mult, Draws: draws}, nil
}
