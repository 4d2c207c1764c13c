package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/alchemy/internal/manager"
	"github.com/desertthunder/alchemy/internal/registry"
	"github.com/desertthunder/alchemy/internal/server"
	"github.com/desertthunder/alchemy/internal/shared"
	"github.com/desertthunder/alchemy/internal/tasks"
	"github.com/desertthunder/alchemy/internal/web"
)

// Serve runs the admin server until the context is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = cmd.Int("port")
	}

	handler, env, err := r.adminHandler()
	if err != nil {
		return err
	}
	defer env.Close()

	if r.config.Auth.JWTSecret == "" {
		r.logger.Warn("auth.jwt_secret is empty, admin endpoints are not protected")
	}

	srv := server.New(cfg, handler, r.logger)

	if cmd.Bool("open") {
		url := fmt.Sprintf("http://%s/api/engines", srv.Addr())
		if err := shared.OpenBrowser(url); err != nil {
			r.logger.Warn("failed to open browser", "url", url, "error", err)
		}
	}

	return srv.Run(ctx)
}

// adminHandler builds the admin API: engine routes, health and metrics behind the middleware stack.
func (r *Runner) adminHandler() (http.Handler, *environment, error) {
	var reg *registry.Registry
	metrics := server.NewMetrics(func() int {
		if reg == nil {
			return 0
		}
		return reg.Len()
	})

	env, err := r.open(registry.Options{
		OnOpen:  metrics.TrackHandle,
		OnClose: metrics.ReleaseHandle,
	})
	if err != nil {
		return nil, nil, err
	}
	reg = env.registry

	env.manager.Subscribe(func(e manager.Event) {
		metrics.CountEvent(string(e.Kind))
	})

	auth := server.NewAuthenticator(r.config.Auth)
	checker := env.checker(tasks.CheckOpts{}, r.logger)

	router := server.NewBasicRouter()
	router.Use(
		server.Recover(r.logger),
		server.Logging(r.logger),
		server.NewRateLimiter(r.config.Server.RateLimit, r.config.Server.RateBurst).Middleware(),
		metrics.Middleware(),
	)
	router.Handle(http.MethodGet, "/metrics", metrics.Handler())
	router.Handler(web.NewHandler(env.manager, auth, checker, r.logger))

	// Preflight requests match no route, so CORS wraps the router itself.
	return server.CORS(r.config.Server.CORSOrigins)(router), env, nil
}
