// AngelaMos | 2026
// serve.go

package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/carterperez-dev/templates/farm-backoffice/internal/dashboard"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/health"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/middleware"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/server"
)

const drainDelay = 2 * time.Second

func newServeCommand(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local dashboard shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port > 0 {
				a.cfg.Server.Port = port
			}
			return a.serve(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides server.port)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	healthHandler := health.NewHandler(map[string]health.Checker{
		"storage": a.storage,
		"api":     health.CheckerFunc(a.pingAPI),
	})

	srv := server.New(server.Config{
		ServerConfig:  a.cfg.Server,
		HealthHandler: healthHandler,
		Logger:        a.logger,
	})

	dashboard.New(dashboard.Config{
		Store:  a.store,
		API:    a.api,
		Health: healthHandler,
		LoginLimiter: middleware.NewLocalRateLimiter(middleware.RateLimitConfig{
			Limit: middleware.PerWindow(
				a.cfg.RateLimit.Requests,
				a.cfg.RateLimit.Burst,
				a.cfg.RateLimit.Window,
			),
		}),
		Logger:     a.logger,
		Production: a.cfg.IsProduction(),
	}).Mount(srv.Router())

	fmt.Fprintf(a.out, "Dashboard on http://%s\n", a.cfg.Server.Address())

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		a.cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	return srv.Shutdown(shutdownCtx, drainDelay)
}

// pingAPI treats any HTTP answer as reachable; only transport errors count.
func (a *app) pingAPI(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, a.cfg.API.BaseURL, nil)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: a.cfg.API.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("reach %s: %w", a.cfg.API.BaseURL, err)
	}
	return resp.Body.Close()
}
