package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/cyclelog/platform/internal/auth"
	"github.com/cyclelog/platform/internal/gamification"
	"github.com/cyclelog/platform/internal/guard"
	"github.com/cyclelog/platform/internal/handler"
	"github.com/cyclelog/platform/internal/infra"
	"github.com/cyclelog/platform/internal/metrics"
	"github.com/cyclelog/platform/internal/projection"
	"github.com/cyclelog/platform/internal/repository"
	"github.com/cyclelog/platform/internal/service"
	"github.com/go-chi/chi/v5"
)

// DB is what the router needs from *pgxpool.Pool.
type DB interface {
	repository.TxBeginner
	Ping(ctx context.Context) error
}

// RouterDeps holds all dependencies needed by NewRouter.
type RouterDeps struct {
	DB     DB
	JWTMgr *auth.JWTManager
	Logger *slog.Logger

	// Cache defaults to an in-memory store. CacheHealth is pinged by /health when set.
	Cache       projection.Store
	CacheHealth infra.Pinger

	Location           *time.Location
	SnapshotTTL        time.Duration
	RefreshLimit       int
	RefreshWindow      time.Duration
	CORSAllowedOrigins string
}

// NewGamificationService builds the service over the Postgres repositories.
func NewGamificationService(db repository.TxBeginner, cache projection.Store, snapshotTTL time.Duration, logger *slog.Logger) *service.GamificationService {
	cycles := repository.NewCycleReader(db, repository.NewCycleRepository())
	store := repository.NewPgStateStore(db,
		repository.NewPgProfileRepository(),
		repository.NewMissionRepository(),
		repository.NewAchievementRepository(),
		repository.NewOutboxRepository(),
	)
	engine := gamification.NewEngine(gamification.DefaultCatalog())
	return service.NewGamificationService(cycles, store, cache, engine, snapshotTTL, logger)
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps RouterDeps) chi.Router {
	logger := deps.Logger
	cache := deps.Cache
	if cache == nil {
		cache = projection.NewInMemoryStore()
	}
	origins := deps.CORSAllowedOrigins
	if origins == "" {
		origins = "*"
	}
	limit, window := deps.RefreshLimit, deps.RefreshWindow
	if limit <= 0 || window <= 0 {
		limit, window = 10, time.Minute
	}

	// Services
	gamificationSvc := NewGamificationService(deps.DB, cache, deps.SnapshotTTL, logger)

	// Handlers
	gamificationHandler := handler.NewGamificationHandler(gamificationSvc, guard.NewRefreshLimiter(limit, window))

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(metrics.InstrumentHandler)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORSWithOrigins(origins))

	// Health and metrics (no auth)
	r.With(handler.JSONContentType).Get("/health", handler.HealthHandler(deps.DB, deps.CacheHealth))
	r.Handle("/metrics", metrics.Handler())

	// User-authenticated routes
	r.Route("/gamification", func(r chi.Router) {
		r.Use(handler.JSONContentType)
		r.Use(auth.Authenticate(deps.JWTMgr, deps.Location))

		r.Get("/me", gamificationHandler.GetMe)
		r.Post("/refresh", gamificationHandler.Refresh)
		r.Get("/quests", gamificationHandler.ListQuests)
		r.Get("/achievements", gamificationHandler.ListAchievements)
		r.Get("/achievements/{id}", gamificationHandler.GetAchievement)
	})

	return r
}
