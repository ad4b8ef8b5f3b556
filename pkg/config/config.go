package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Address = "0.0.0.0"
	cfg.Server.Port = 8080
	cfg.Server.Transport = "fasthttp"
	cfg.Server.ReadTimeout = Duration(10 * time.Second)
	cfg.Server.WriteTimeout = Duration(10 * time.Second)
	cfg.Server.IdleTimeout = Duration(30 * time.Second)
	cfg.Server.MaxBodySize = 8_000_000
	cfg.Logging.Level = "info"
	cfg.Security.RateLimit.RPS = 5
	cfg.Security.RateLimit.Burst = 10
	cfg.Sessions.CookieName = "id"
	cfg.Sessions.IdleTTL = Duration(24 * time.Hour)
	cfg.Sessions.SweepCron = "*/5 * * * *"
	cfg.Query.MaxLength = 1_000_000
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"
	return cfg
}

// Load reads the YAML file at path on top of Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOptional is Load that falls back to Default when path does not exist.
func LoadOptional(path string) (*Config, bool, error) {
	cfg, err := Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), false, nil
		}
		return nil, false, err
	}
	return cfg, true, nil
}

// LoadDotEnv loads a .env file when present. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return godotenv.Load(path)
}

// ResolveConfigPath returns the config path to use: an explicit flag wins,
// then FEATHER_CONFIG, then the default.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet && flagPath != "" {
		return flagPath
	}
	if p := strings.TrimSpace(os.Getenv("FEATHER_CONFIG")); p != "" {
		return p
	}
	if flagPath != "" {
		return flagPath
	}
	return "./config.yaml"
}

func parseList(v string) []string {
	if v == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

// ApplyEnv overrides cfg with FEATHER_* environment variables. It reports
// whether any variable was used.
func ApplyEnv(cfg *Config) (bool, error) {
	used := false
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
			used = true
		}
	}
	list := func(name string, dst *[]string) {
		if v, ok := os.LookupEnv(name); ok {
			*dst = parseList(v)
			used = true
		}
	}
	var errs []error

	str("FEATHER_ADDRESS", &cfg.Server.Address)
	str("FEATHER_TRANSPORT", &cfg.Server.Transport)
	str("FEATHER_SECRET_KEY_BASE", &cfg.Server.SecretKey)
	str("FEATHER_LOG_LEVEL", &cfg.Logging.Level)
	str("FEATHER_ACCESS_LOG", &cfg.Logging.AccessLog)
	str("FEATHER_SESSION_COOKIE", &cfg.Sessions.CookieName)
	str("FEATHER_SESSION_STORE", &cfg.Sessions.StorePath)
	str("FEATHER_SESSION_SWEEP_CRON", &cfg.Sessions.SweepCron)
	list("FEATHER_CORS_ORIGINS", &cfg.Security.CORS.AllowedOrigins)
	list("FEATHER_API_KEYS_ADMIN", &cfg.Security.APIKeys.Admin)
	list("FEATHER_API_KEYS_USER", &cfg.Security.APIKeys.User)

	if v := os.Getenv("FEATHER_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("FEATHER_PORT: %w", err))
		} else {
			cfg.Server.Port = p
			used = true
		}
	}
	if v := os.Getenv("FEATHER_MAX_BODY_SIZE"); v != "" {
		s, err := ParseSize(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("FEATHER_MAX_BODY_SIZE: %w", err))
		} else {
			cfg.Server.MaxBodySize = s
			used = true
		}
	}
	if v := os.Getenv("FEATHER_SESSION_IDLE_TTL"); v != "" {
		d, err := ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("FEATHER_SESSION_IDLE_TTL: %w", err))
		} else {
			cfg.Sessions.IdleTTL = d
			used = true
		}
	}
	if v := os.Getenv("FEATHER_RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("FEATHER_RATE_LIMIT_RPS: %w", err))
		} else {
			cfg.Security.RateLimit.RPS = f
			used = true
		}
	}
	if v := os.Getenv("FEATHER_METRICS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("FEATHER_METRICS: %w", err))
		} else {
			cfg.Metrics.Enabled = b
			used = true
		}
	}
	return used, errors.Join(errs...)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	host := c.Server.Address
	if host == "" {
		host = "0.0.0.0"
	}
	port := c.Server.Port
	if port == 0 {
		port = 8080
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Server.Transport {
	case "", "fasthttp", "nethttp":
	default:
		errs = append(errs, fmt.Errorf("server.transport %q must be fasthttp or nethttp", c.Server.Transport))
	}
	if c.Sessions.SweepCron != "" && !gronx.IsValid(c.Sessions.SweepCron) {
		errs = append(errs, fmt.Errorf("sessions.sweep_cron %q is not a valid cron expression", c.Sessions.SweepCron))
	}
	if c.Sessions.CookieName == "" {
		errs = append(errs, errors.New("sessions.cookie_name must not be empty"))
	}
	if c.Security.RateLimit.RPS < 0 || c.Security.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("security.rate_limit values must not be negative"))
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("metrics.path %q must start with /", c.Metrics.Path))
	}
	return errors.Join(errs...)
}
