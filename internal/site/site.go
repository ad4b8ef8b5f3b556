// Package site is the application served by the feather binary: two
// scopes, a browser one with sessions and an API one behind keys.
package site

import (
	"strconv"

	"github.com/BolvicBolvicovic/feather/pkg/config"
	"github.com/BolvicBolvicovic/feather/pkg/metrics"
	"github.com/BolvicBolvicovic/feather/pkg/plug"
	"github.com/BolvicBolvicovic/feather/pkg/plugs"
	"github.com/BolvicBolvicovic/feather/pkg/router"
)

// Builder returns the route definitions without building them, so callers
// can inspect or extend them.
func Builder(cfg *config.Config, m *metrics.Metrics) router.Builder {
	queryLen := plug.Opts("length", strconv.FormatInt(cfg.Query.MaxLength.Int64(), 10))
	bodyLen := plug.Opts("length", strconv.FormatInt(cfg.Server.MaxBodySize.Int64(), 10))

	return router.NewBuilder().
		Pipeline("common",
			plug.Bind(plugs.RequestID, plug.Options{}),
			plug.Bind(plugs.Logger, plug.Options{}),
			plug.Bind(plugs.Metrics(m), plug.Options{}),
			plug.Bind(plugs.FetchQueryParams, queryLen),
		).
		Pipeline("browser",
			plug.Bind(plugs.FetchCookies, plug.Options{}),
			plug.Bind(plugs.FetchBodyParams, bodyLen),
			plug.Bind(plugs.SecureBrowserHeaders, plug.Options{}),
		).
		Pipeline("api",
			plug.Bind(plugs.CORS(cfg.Security.CORS.AllowedOrigins), plug.Options{}),
			plug.Bind(plugs.RequireAPIKey(plugs.APIKeys{
				Admin: cfg.Security.APIKeys.Admin,
				User:  cfg.Security.APIKeys.User,
			}), plug.Options{}),
			plug.Bind(plugs.RateLimit(plugs.RateLimitConfig{
				RPS:   cfg.Security.RateLimit.RPS,
				Burst: cfg.Security.RateLimit.Burst,
			}), plug.Options{}),
			plug.Bind(plugs.FetchBodyParams, bodyLen),
		).
		Pipeline("admin",
			plug.Bind(plugs.RequireAPIKey(plugs.APIKeys{
				Admin: cfg.Security.APIKeys.Admin,
				User:  cfg.Security.APIKeys.User,
			}), plug.Opts("role", "admin")),
		).
		Scope("/api/admin", func(s router.ScopeBuilder) router.ScopeBuilder {
			return s.PipeThrough("common", "api", "admin").
				Get("/api/admin/stats", Stats)
		}).
		Scope("/api", func(s router.ScopeBuilder) router.ScopeBuilder {
			return s.PipeThrough("common", "api").
				Get("/api/whoami", WhoAmI).
				Get("/api/posts/:id", ShowPost).
				Post("/api/echo", Echo)
		}).
		Scope("/", func(s router.ScopeBuilder) router.ScopeBuilder {
			return s.PipeThrough("common", "browser").
				Get("/", Index).
				Get("/hello/:name", Hello).
				Post("/login", Login).
				Post("/logout", Logout).
				Get("/old", MovedHome)
		})
}

// Router builds the application router.
func Router(cfg *config.Config, m *metrics.Metrics) (*router.Router, error) {
	return Builder(cfg, m).Build()
}
