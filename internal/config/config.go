// Package config loads service settings from ISSTRACKER_* environment
// variables. Invalid values are logged and replaced by their defaults.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/balhun/ISSTracker/internal/logging"
	"github.com/balhun/ISSTracker/internal/observability"
	"github.com/balhun/ISSTracker/internal/stream"
	"github.com/balhun/ISSTracker/internal/telemetry"
	"github.com/balhun/ISSTracker/internal/tle"
	"github.com/balhun/ISSTracker/internal/track"
)

const prefix = "ISSTRACKER_"

// Config is the complete service configuration.
type Config struct {
	HTTPAddr       string
	TelemetryURL   string
	PollInterval   time.Duration
	HTTPTimeout    time.Duration
	TLEURL         string
	Orbit          track.Config
	OrbitRefresh   time.Duration
	OrbitCacheSize int
	Stream         stream.Config
	Log            logging.Config
	Tracing        observability.TracingConfig
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		HTTPAddr:       ":8080",
		TelemetryURL:   telemetry.DefaultURL,
		PollInterval:   telemetry.DefaultInterval,
		HTTPTimeout:    10 * time.Second,
		TLEURL:         tle.DefaultSourceURL,
		Orbit:          track.DefaultConfig(),
		OrbitCacheSize: 32,
		Stream:         stream.DefaultConfig(),
		Log:            logging.DefaultConfig(),
		Tracing:        observability.DefaultTracingConfig(),
	}
}

// LoadEnvFile seeds the environment from a .env file. Variables already set
// in the environment take precedence.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// Load reads the environment on top of Default.
func Load(logger *slog.Logger) Config {
	cfg := Default()
	l := loader{logger: logger}

	cfg.HTTPAddr = l.str("HTTP_ADDR", cfg.HTTPAddr)
	cfg.TelemetryURL = l.str("TELEMETRY_URL", cfg.TelemetryURL)
	cfg.PollInterval = l.seconds("POLL_INTERVAL", cfg.PollInterval)
	cfg.HTTPTimeout = l.seconds("HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.TLEURL = l.str("TLE_URL", cfg.TLEURL)

	cfg.Orbit.Step = l.seconds("ORBIT_STEP", cfg.Orbit.Step)
	cfg.Orbit.Horizon = l.seconds("ORBIT_HORIZON", cfg.Orbit.Horizon)
	if cfg.Orbit.Horizon < cfg.Orbit.Step {
		logger.Warn("orbit horizon shorter than step, using defaults",
			"step_seconds", cfg.Orbit.Step.Seconds(),
			"horizon_seconds", cfg.Orbit.Horizon.Seconds(),
		)
		cfg.Orbit = track.DefaultConfig()
	}
	cfg.OrbitRefresh = l.secondsOrZero("ORBIT_REFRESH", cfg.OrbitRefresh)
	cfg.OrbitCacheSize = l.positiveInt("ORBIT_CACHE_SIZE", cfg.OrbitCacheSize)

	cfg.Stream.MaxConcurrentPerIP = l.positiveInt("STREAM_MAX_CONCURRENT", cfg.Stream.MaxConcurrentPerIP)
	cfg.Stream.KeepaliveInterval = l.seconds("STREAM_KEEPALIVE_INTERVAL", cfg.Stream.KeepaliveInterval)
	cfg.Stream.TrustProxy = l.boolean("TRUST_PROXY", cfg.Stream.TrustProxy)

	if v := os.Getenv(prefix + "LOG_LEVEL"); v != "" {
		if lvl, ok := logging.ParseLevel(v); ok {
			cfg.Log.Level = lvl
		} else {
			logger.Warn("invalid "+prefix+"LOG_LEVEL value, using default", "value", v, "default", "info")
		}
	}
	cfg.Log.File = l.str("LOG_FILE", cfg.Log.File)
	cfg.Log.MaxSizeMB = l.positiveInt("LOG_MAX_SIZE_MB", cfg.Log.MaxSizeMB)

	cfg.Tracing.Enabled = l.boolean("TRACING_ENABLED", cfg.Tracing.Enabled)
	if v := os.Getenv(prefix + "TRACING_SAMPLE_RATIO"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil || r < 0 || r > 1 {
			logger.Warn("invalid "+prefix+"TRACING_SAMPLE_RATIO value, using default", "value", v, "default", cfg.Tracing.SampleRatio)
		} else {
			cfg.Tracing.SampleRatio = r
		}
	}

	return cfg
}

// LogAttrs returns the effective settings for the startup log line.
func (c Config) LogAttrs() []any {
	return []any{
		"http_addr", c.HTTPAddr,
		"telemetry_url", c.TelemetryURL,
		"poll_interval_seconds", c.PollInterval.Seconds(),
		"tle_url", c.TLEURL,
		"orbit_step_seconds", c.Orbit.Step.Seconds(),
		"orbit_horizon_seconds", c.Orbit.Horizon.Seconds(),
		"orbit_refresh_seconds", c.OrbitRefresh.Seconds(),
		"stream_max_concurrent_per_ip", c.Stream.MaxConcurrentPerIP,
		"trust_proxy", c.Stream.TrustProxy,
		"tracing_enabled", c.Tracing.Enabled,
	}
}

type loader struct {
	logger *slog.Logger
}

func (l loader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(prefix + key)); v != "" {
		return v
	}
	return def
}

func (l loader) positiveInt(key string, def int) int {
	v := os.Getenv(prefix + key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		l.logger.Warn("invalid "+prefix+key+" value, using default", "value", v, "default", def)
		return def
	}
	return n
}

// seconds reads a whole number of seconds (> 0).
func (l loader) seconds(key string, def time.Duration) time.Duration {
	v := os.Getenv(prefix + key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		l.logger.Warn("invalid "+prefix+key+" value, using default", "value", v, "default", def.Seconds())
		return def
	}
	return time.Duration(n) * time.Second
}

// secondsOrZero is seconds but also accepts 0 (disabled).
func (l loader) secondsOrZero(key string, def time.Duration) time.Duration {
	if os.Getenv(prefix+key) == "0" {
		return 0
	}
	return l.seconds(key, def)
}

func (l loader) boolean(key string, def bool) bool {
	v := os.Getenv(prefix + key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		l.logger.Warn("invalid "+prefix+key+" value, using default", "value", v, "default", def)
		return def
	}
	return b
}
