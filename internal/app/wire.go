package app

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/meowbet/core/internal/auth"
	"github.com/meowbet/core/internal/domain"
	"github.com/meowbet/core/internal/fairness"
	"github.com/meowbet/core/internal/guard"
	"github.com/meowbet/core/internal/handler"
	adminhandler "github.com/meowbet/core/internal/handler/admin"
	"github.com/meowbet/core/internal/jackpot"
	"github.com/meowbet/core/internal/ledger"
	"github.com/meowbet/core/internal/outcome"
	"github.com/meowbet/core/internal/projection"
	"github.com/meowbet/core/internal/repository"
	"github.com/meowbet/core/internal/service"
	"github.com/meowbet/core/internal/settlement"
)

// jackpotAccrualRate is the share of a losing stake added to the pool.
var jackpotAccrualRate = decimal.RequireFromString("0.01")

// RouterDeps holds all dependencies needed by NewRouter. Projections, Limiter,
// Deduper and Seeds are optional; in-process defaults are used when nil. A zero
// JackpotFloor means domain.DefaultJackpotFloor.
type RouterDeps struct {
	Store           repository.Store
	Projections     projection.Store
	Limiter         guard.Limiter
	Deduper         guard.Deduper
	Seeds           fairness.SeedSource
	JWTMgr          *auth.JWTManager
	Logger          *slog.Logger
	Rules           outcome.Rules
	StartingBalance int64
	JackpotFloor    int64
	CORSOrigin      string
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps RouterDeps) (chi.Router, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	jwtMgr := deps.JWTMgr

	limiter := deps.Limiter
	if limiter == nil {
		limiter = guard.NewRateLimiter(10, time.Second)
	}
	deduper := deps.Deduper
	if deduper == nil {
		deduper = guard.NewIdempotencyGuard(24 * time.Hour)
	}
	seeds := deps.Seeds
	if seeds == nil {
		seeds = fairness.CryptoSource{}
	}

	// Core
	engine := ledger.NewEngine(ledger.DefaultConversionRate)
	floor := deps.JackpotFloor
	if floor <= 0 {
		floor = domain.DefaultJackpotFloor
	}
	pool := jackpot.NewPool(floor, jackpotAccrualRate)
	orchestrator, err := settlement.NewOrchestrator(settlement.Deps{
		Store:       deps.Store,
		Engine:      engine,
		Jackpot:     pool,
		Rules:       deps.Rules,
		Seeds:       seeds,
		Projections: deps.Projections,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	// Services
	walletSvc := service.NewWalletService(deps.Store, engine, deps.Projections, deps.StartingBalance, logger)
	querySvc := service.NewQueryService(deps.Store, deps.Projections, logger)

	// Handlers
	roundHandler := handler.NewRoundHandler(orchestrator, querySvc, limiter, deduper, logger)
	walletHandler := handler.NewWalletHandler(walletSvc, querySvc)
	fairnessHandler := handler.NewFairnessHandler(orchestrator, seeds)
	jackpotHandler := handler.NewJackpotHandler(querySvc)

	// Admin handlers
	accountAdmin := adminhandler.NewAccountAdminHandler(walletSvc, logger)
	roundAdmin := adminhandler.NewRoundAdminHandler(querySvc)

	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORSWithOrigins(deps.CORSOrigin))
	r.Use(handler.JSONContentType)

	// Public
	r.Get("/health", handler.HealthHandler(deps.Store))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/jackpot", jackpotHandler.Get)
	r.Route("/fairness", func(r chi.Router) {
		r.Post("/verify", fairnessHandler.Verify)
		r.Get("/seed", fairnessHandler.ClientSeed)
	})

	// Player-authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(auth.AuthenticatePlayer(jwtMgr))

		r.Route("/rounds", func(r chi.Router) {
			r.Post("/", roundHandler.PlaceBet)
			r.Get("/", roundHandler.ListRounds)
			r.Get("/{id}", roundHandler.GetRound)
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/balance", walletHandler.GetBalance)
			r.Get("/entries", walletHandler.GetEntries)
			r.Post("/withdraw", walletHandler.Withdraw)
			r.Post("/convert", walletHandler.Convert)
		})
	})

	// Admin-authenticated routes
	r.Route("/admin", func(r chi.Router) {
		r.Use(auth.AuthenticateAdmin(jwtMgr))

		r.Route("/accounts", func(r chi.Router) {
			r.Use(auth.RequireRole(auth.WriteRoles()...))
			r.Post("/", accountAdmin.OpenAccount)
			r.Patch("/{id}/ban", accountAdmin.SetBanned)
			r.Post("/{id}/deposits", accountAdmin.Deposit)
		})

		r.With(auth.RequireRole(auth.ReadRoles()...)).Get("/rounds", roundAdmin.ListRounds)
	})

	return r, nil
}
