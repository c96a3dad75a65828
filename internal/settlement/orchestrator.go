package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meowbet/core/internal/domain"
	"github.com/meowbet/core/internal/fairness"
	"github.com/meowbet/core/internal/jackpot"
	"github.com/meowbet/core/internal/ledger"
	"github.com/meowbet/core/internal/metrics"
	"github.com/meowbet/core/internal/outcome"
	"github.com/meowbet/core/internal/projection"
	"github.com/meowbet/core/internal/repository"
)

// State is a step of a round's lifecycle.
type State string

const (
	StateReceived      State = "received"
	StateSeedCommitted State = "seed_committed"
	StateResolved      State = "resolved"
	StateSettled       State = "settled"
	StateRejected      State = "rejected"
)

// StreamFactory opens the scalar stream for a round starting at nonce.
type StreamFactory func(serverSeed, clientSeed string, nonce uint64) outcome.Scalars

// FairStreams derives scalars with fairness.DeriveScalar.
func FairStreams(serverSeed, clientSeed string, nonce uint64) outcome.Scalars {
	return fairness.NewStream(serverSeed, clientSeed, nonce)
}

// PlaceBetRequest is a bet intent from an authenticated account.
type PlaceBetRequest struct {
	AccountID  uuid.UUID
	Game       domain.GameType
	Stake      int64
	Params     json.RawMessage
	ClientSeed string // optional
}

// Deps wires an Orchestrator.
type Deps struct {
	Store       repository.Store
	Engine      *ledger.Engine
	Jackpot     *jackpot.Pool
	Rules       outcome.Rules
	Seeds       fairness.SeedSource
	Streams     StreamFactory
	Projections projection.Store
	Logger      *slog.Logger
	// OnTransition, if set, observes every state change of every round.
	OnTransition func(roundID uuid.UUID, to State)
}

// Orchestrator settles rounds: validate, commit seeds, resolve, then apply
// the jackpot and ledger effects in one unit of work.
type Orchestrator struct {
	store       repository.Store
	engine      *ledger.Engine
	pool        *jackpot.Pool
	rules       outcome.Rules
	seeds       fairness.SeedSource
	streams     StreamFactory
	projections projection.Store
	logger      *slog.Logger
	observe     func(uuid.UUID, State)
	now         func() time.Time
}

// NewOrchestrator validates the rules and builds the orchestrator. Missing
// optional deps fall back to production defaults.
func NewOrchestrator(d Deps) (*Orchestrator, error) {
	if err := d.Rules.Validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		store:       d.Store,
		engine:      d.Engine,
		pool:        d.Jackpot,
		rules:       d.Rules,
		seeds:       d.Seeds,
		streams:     d.Streams,
		projections: d.Projections,
		logger:      d.Logger,
		observe:     d.OnTransition,
		now:         time.Now,
	}
	if o.engine == nil {
		o.engine = ledger.NewEngine(ledger.DefaultConversionRate)
	}
	if o.pool == nil {
		o.pool = jackpot.NewDefaultPool()
	}
	if o.seeds == nil {
		o.seeds = fairness.CryptoSource{}
	}
	if o.streams == nil {
		o.streams = FairStreams
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.observe == nil {
		o.observe = func(uuid.UUID, State) {}
	}
	return o, nil
}

// Rules returns the payout rules in force.
func (o *Orchestrator) Rules() outcome.Rules { return o.rules }

// PlaceBet runs one round to Settled or Rejected. A rejected round leaves no
// trace in storage. Errors are *domain.AppError; storage faults surface as
// PERSISTENCE_FAILURE and are never retried here.
func (o *Orchestrator) PlaceBet(ctx context.Context, req PlaceBetRequest) (*domain.RoundResult, error) {
	started := o.now()
	roundID := uuid.New()
	o.observe(roundID, StateReceived)

	result, err := o.placeBet(ctx, roundID, req)
	if err != nil {
		appErr := o.classify(err, roundID, req)
		o.observe(roundID, StateRejected)
		metrics.RecordRejection(appErr.Code)
		metrics.RecordRound(string(req.Game), metrics.OutcomeRejected, started)
		return nil, appErr
	}

	o.observe(roundID, StateSettled)
	o.refreshProjections(ctx, req.AccountID)

	label := metrics.OutcomeLoss
	if result.WinAmount != domain.FormatPrimary(0) {
		label = metrics.OutcomeWin
	}
	metrics.RecordRound(string(req.Game), label, started)
	if result.JackpotWon {
		metrics.RecordJackpotAward()
		o.logger.Info("jackpot awarded",
			"round_id", roundID,
			"account_id", req.AccountID,
			"amount", result.JackpotAmount,
		)
	}
	return result, nil
}

func (o *Orchestrator) placeBet(ctx context.Context, roundID uuid.UUID, req PlaceBetRequest) (*domain.RoundResult, error) {
	// Received: shape checks before any seed or balance work.
	if err := o.validate(req); err != nil {
		return nil, err
	}
	account, err := o.store.FindAccount(ctx, req.AccountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound(req.AccountID.String())
	}
	if account.Banned {
		return nil, domain.ErrAccountBanned()
	}

	// SeedCommitted: the server seed exists before the client seed is read.
	serverSeed, err := o.seeds.ServerSeed()
	if err != nil {
		return nil, fmt.Errorf("generate server seed: %w", err)
	}
	clientSeed := req.ClientSeed
	if clientSeed == "" {
		if clientSeed, err = o.seeds.ClientSeed(); err != nil {
			return nil, fmt.Errorf("generate client seed: %w", err)
		}
	}
	o.observe(roundID, StateSeedCommitted)

	var result *domain.RoundResult
	err = o.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		// Lock order: account, then jackpot.
		locked, err := o.engine.LockAccountForUpdate(ctx, tx, req.AccountID)
		if err != nil {
			return err
		}
		if locked.Banned {
			return domain.ErrAccountBanned()
		}
		if locked.Balance < req.Stake {
			return domain.ErrInsufficientFunds()
		}

		betCount, err := tx.CountRounds(ctx, req.AccountID)
		if err != nil {
			return fmt.Errorf("count rounds: %w", err)
		}
		nonce := uint64(betCount) + 1

		// Resolved: the game consumes nonces n..n+k-1, the jackpot draw n+k.
		src := o.streams(serverSeed, clientSeed, nonce)
		out, err := o.rules.Resolve(req.Game, req.Params, src)
		if err != nil {
			return err
		}
		win, err := out.WinAmount(req.Stake)
		if err != nil {
			return err
		}
		jackpotNonce := nonce + out.Draws
		jackpotScalar := src.Next()
		o.observe(roundID, StateResolved)

		var award int64
		if jackpot.Eligible(jackpotScalar, betCount) {
			if award, err = o.pool.Award(ctx, tx, req.AccountID); err != nil {
				return err
			}
		}
		var accrued int64
		if win == 0 {
			if accrued, err = o.pool.Accrue(ctx, tx, req.Stake); err != nil {
				return err
			}
		}

		round := &domain.RoundRecord{
			ID:             roundID,
			AccountID:      req.AccountID,
			Game:           req.Game,
			Stake:          req.Stake,
			Win:            win,
			RewardWon:      award,
			ServerSeed:     serverSeed,
			ServerSeedHash: fairness.HashServerSeed(serverSeed),
			ClientSeed:     clientSeed,
			Nonce:          nonce,
			JackpotNonce:   jackpotNonce,
			Params:         normalizeParams(req.Params),
			Result:         out.Result,
			CreatedAt:      o.now(),
		}
		if err := tx.InsertRound(ctx, round); err != nil {
			return fmt.Errorf("insert round: %w", err)
		}

		settled, err := o.engine.ExecuteSettleRound(ctx, tx, ledger.SettleRoundParams{
			AccountID:    req.AccountID,
			RoundID:      roundID,
			Stake:        req.Stake,
			Win:          win,
			JackpotAward: award,
			Metadata:     json.RawMessage(fmt.Sprintf(`{"game":%q}`, req.Game)),
		})
		if err != nil {
			return err
		}

		if err := tx.InsertOutbox(ctx, domain.NewRoundSettledEvent(round)); err != nil {
			return fmt.Errorf("insert round event: %w", err)
		}
		if award > 0 {
			if err := tx.InsertOutbox(ctx, domain.NewJackpotWonEvent(req.AccountID, award, roundID)); err != nil {
				return fmt.Errorf("insert jackpot event: %w", err)
			}
		}
		if win == 0 {
			if err := tx.InsertOutbox(ctx, domain.NewJackpotAccruedEvent(accrued, roundID)); err != nil {
				return fmt.Errorf("insert accrual event: %w", err)
			}
		}

		result = &domain.RoundResult{
			RoundID:          roundID,
			Game:             req.Game,
			Result:           out.Result,
			Stake:            domain.FormatPrimary(req.Stake),
			WinAmount:        domain.FormatPrimary(win),
			JackpotWon:       award > 0,
			JackpotAmount:    domain.FormatReward(award),
			NewBalance:       domain.FormatPrimary(settled.Account.Balance),
			NewRewardBalance: domain.FormatReward(settled.Account.RewardBalance),
			ServerSeed:       serverSeed,
			ServerSeedHash:   round.ServerSeedHash,
			ClientSeed:       clientSeed,
			Nonce:            nonce,
			JackpotNonce:     jackpotNonce,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (o *Orchestrator) validate(req PlaceBetRequest) error {
	if req.AccountID == uuid.Nil {
		return domain.ErrInvalidRequest("account is required")
	}
	if !req.Game.Valid() {
		return domain.ErrInvalidRequest(fmt.Sprintf("unknown game type %q", req.Game))
	}
	if err := domain.ValidatePositiveAmount(req.Stake); err != nil {
		return domain.ErrInvalidRequest(err.Error())
	}
	if req.ClientSeed != "" {
		if err := domain.ValidateClientSeed(req.ClientSeed); err != nil {
			return domain.ErrInvalidRequest(err.Error())
		}
	}
	return o.rules.ValidateParams(req.Game, req.Params)
}

// classify converts err to the error surfaced to the caller. Anything that
// is not already a domain error is a storage or infrastructure fault.
func (o *Orchestrator) classify(err error, roundID uuid.UUID, req PlaceBetRequest) *domain.AppError {
	if appErr := domain.AsAppError(err); appErr != nil {
		switch appErr.Code {
		case domain.CodeInvalidConfiguration:
			o.logger.Error("game configuration fault",
				"round_id", roundID, "game", req.Game, "error", appErr)
		default:
			o.logger.Info("round rejected",
				"round_id", roundID, "account_id", req.AccountID, "code", appErr.Code)
		}
		return appErr
	}
	o.logger.Error("round aborted by storage failure",
		"round_id", roundID, "account_id", req.AccountID, "error", err)
	return domain.ErrPersistence(err)
}

func (o *Orchestrator) refreshProjections(ctx context.Context, accountID uuid.UUID) {
	if o.projections == nil {
		return
	}
	if err := projection.InvalidateJackpot(ctx, o.projections); err != nil {
		o.logger.Warn("jackpot projection invalidate failed", "error", err)
	}
	if err := projection.InvalidateBalance(ctx, o.projections, accountID); err != nil {
		o.logger.Warn("balance projection invalidate failed", "error", err)
	}
}

func normalizeParams(p json.RawMessage) json.RawMessage {
	if len(p) == 0 || string(p) == "null" {
		return json.RawMessage(`{}`)
	}
	return p
}
