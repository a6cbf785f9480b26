// AngelaMos | 2026
// app.go

package devapi

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/templates/farm-backoffice/internal/config"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/core"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/health"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/middleware"
)

// App bundles the stand-in API: seeded users, token issuer, routes.
type App struct {
	JWT     *JWTManager
	Users   *Directory
	Health  *health.Handler
	handler *Handler
	limiter *middleware.RateLimiter
	cfg     *config.Config
	logger  *slog.Logger
}

// New builds the app. rdb may be nil, in which case login throttling stays
// in process.
func New(cfg *config.Config, rdb *redis.Client, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = core.DiscardLogger()
	}

	seeds := cfg.DevAPI.Users
	if len(seeds) == 0 {
		seeds = DefaultSeedUsers()
	}

	users, err := NewDirectory(seeds)
	if err != nil {
		return nil, fmt.Errorf("seed users: %w", err)
	}

	jwtManager, err := NewJWTManager(cfg.JWT)
	if err != nil {
		return nil, fmt.Errorf("jwt manager: %w", err)
	}

	checks := map[string]health.Checker{}
	if rdb != nil {
		checks["redis"] = health.CheckerFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	return &App{
		JWT:     jwtManager,
		Users:   users,
		Health:  health.NewHandler(checks),
		handler: NewHandler(NewService(users, jwtManager), users, logger),
		limiter: middleware.NewRateLimiter(rdb, middleware.RateLimitConfig{
			Limit: middleware.PerWindow(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
				cfg.RateLimit.Window,
			),
		}),
		cfg:    cfg,
		logger: logger,
	}, nil
}

func (a *App) Mount(router chi.Router) {
	router.Use(middleware.RequestID)
	router.Use(middleware.Tracing("farm-backoffice/devapi"))
	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.SecurityHeaders(a.cfg.IsProduction()))

	a.Health.RegisterRoutes(router)
	router.Get("/.well-known/jwks.json", a.JWT.JWKSHandler())

	a.handler.RegisterRoutes(
		router,
		middleware.Authenticator(a.JWT),
		a.limiter.Handler,
	)
}
