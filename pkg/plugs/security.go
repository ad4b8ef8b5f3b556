package plugs

import (
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/BolvicBolvicovic/feather/pkg/logger"
	"github.com/BolvicBolvicovic/feather/pkg/plug"
)

// RateLimitConfig sizes the per-client token buckets.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type limiterPool struct {
	mu  sync.Mutex
	m   map[string]*rate.Limiter
	cfg RateLimitConfig
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.m == nil {
		p.m = make(map[string]*rate.Limiter)
	}
	if l, ok := p.m[key]; ok {
		return l
	}
	rps := p.cfg.RPS
	if rps <= 0 {
		rps = 5
	}
	burst := p.cfg.Burst
	if burst <= 0 {
		burst = 10
	}
	l := rate.NewLimiter(rate.Limit(rps), burst)
	p.m[key] = l
	return l
}

func (p *limiterPool) Allow(key string) bool {
	return p.get(key).Allow()
}

// RateLimit returns a plug that halts with 429 once a client exceeds its
// allowance. Clients are keyed by the api_key assign when present, otherwise
// by remote IP.
func RateLimit(cfg RateLimitConfig) plug.Plug {
	limiters := &limiterPool{cfg: cfg}
	return func(c plug.Conn, _ plug.Options) plug.Conn {
		key := c.RemoteIP()
		if k, ok := c.GetAssign("api_key"); ok {
			if s, ok := k.(string); ok && s != "" {
				key = "key:" + s
			}
		}
		if !limiters.Allow(key) {
			logger.Warn("rate_limited", "path", c.RequestPath(), "remote", c.RemoteIP())
			return Halt(c, 429, "rate limit exceeded")
		}
		return c
	}
}

// CORS returns a plug answering preflight requests and adding CORS headers
// for allowed origins. "*" allows any origin.
func CORS(allowed []string) plug.Plug {
	return func(c plug.Conn, _ plug.Options) plug.Conn {
		origins := c.GetReqHeader("origin")
		if len(origins) > 0 && originAllowed(origins[0], allowed) {
			next, err := c.MergeRespHeaders([]plug.Header{
				{Key: "access-control-allow-origin", Value: origins[0]},
				{Key: "vary", Value: "Origin"},
				{Key: "access-control-allow-methods", Value: "GET,POST,PUT,DELETE,OPTIONS"},
				{Key: "access-control-max-age", Value: "600"},
				{Key: "access-control-allow-headers", Value: "Authorization,Content-Type,X-API-Key,X-Request-ID"},
			})
			if err == nil {
				c = next
			}
		}
		if c.Method() == "options" {
			return c.Resp(204, "").Halt()
		}
		return c
	}
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

// Role is the caller class resolved from an API key.
type Role string

const (
	RoleUnauth Role = "unauth"
	RoleUser   Role = "user"
	RoleAdmin  Role = "admin"
)

// APIKeys lists the accepted keys per role.
type APIKeys struct {
	Admin []string
	User  []string
}

func (k APIKeys) resolve(key string) Role {
	for _, a := range k.Admin {
		if a == key {
			return RoleAdmin
		}
	}
	for _, u := range k.User {
		if u == key {
			return RoleUser
		}
	}
	return RoleUnauth
}

// RequireAPIKey returns a plug that halts with 401 unless the request
// carries a known key, as "authorization: bearer <key>" or "x-api-key".
// The "role" option set to "admin" also rejects user keys with 403.
// Accepted requests get the role and api_key assigns.
func RequireAPIKey(keys APIKeys) plug.Plug {
	return func(c plug.Conn, opts plug.Options) plug.Conn {
		key := ""
		if vs := c.GetReqHeader("authorization"); len(vs) > 0 && strings.HasPrefix(strings.ToLower(vs[0]), "bearer ") {
			key = strings.TrimSpace(vs[0][7:])
		}
		if key == "" {
			if vs := c.GetReqHeader("x-api-key"); len(vs) > 0 {
				key = strings.TrimSpace(vs[0])
			}
		}
		role := RoleUnauth
		if key != "" {
			role = keys.resolve(key)
		}
		if role == RoleUnauth {
			logger.Warn("request_unauthorized", "path", c.RequestPath(), "remote", c.RemoteIP())
			return Halt(c, 401, "unauthorized")
		}
		if want, ok := opts.Get("role"); ok && want == string(RoleAdmin) && role != RoleAdmin {
			logger.Warn("request_forbidden", "path", c.RequestPath(), "role", string(role))
			return Halt(c, 403, "forbidden")
		}
		return c.MergeAssigns(map[string]any{"role": role, "api_key": key})
	}
}
