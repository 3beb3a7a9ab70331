package config

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Config holds runtime configuration values for the QuickLink launcher.
type Config struct {
	DBPath         string
	ListenHost     string
	ServerPort     int
	LogLevel       string
	SentryDSN      string
	Environment    string
	ShutdownGrace  time.Duration
	RateLimit      RateLimitConfig
	MaxImageBytes  int64
	MaxConnections int
	AllowedHosts   []string
}

// RateLimitConfig configures the per-client token bucket of the web adapter.
type RateLimitConfig struct {
	Burst             int
	RequestsPerSecond float64
	ClientTTL         time.Duration
}

const (
	defaultDBPath         = "./data/quicklink.db"
	defaultListenHost     = "127.0.0.1"
	defaultServerPort     = 8787
	defaultLogLevel       = "info"
	defaultEnvironment    = "development"
	defaultShutdownGrace  = 10 * time.Second
	defaultRateBurst      = 60
	defaultRateRPS        = 20.0
	defaultRateTTL        = 5 * time.Minute
	defaultMaxImageBytes  = 5 << 20
	defaultMaxConnections = 16
)

// Addr returns the host:port the HTTP listener binds to.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.ListenHost, strconv.Itoa(c.ServerPort))
}

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:      getEnv("DB_PATH", defaultDBPath),
		ListenHost:  getEnv("LISTEN_HOST", defaultListenHost),
		LogLevel:    getEnv("LOG_LEVEL", defaultLogLevel),
		SentryDSN:   os.Getenv("SENTRY_DSN"),
		Environment: getEnv("ENV", defaultEnvironment),
	}

	var err error

	if cfg.ServerPort, err = intEnv("SERVER_PORT", defaultServerPort); err != nil {
		return nil, err
	}
	if cfg.ServerPort < 1 || cfg.ServerPort > 65535 {
		return nil, eris.Errorf("invalid SERVER_PORT value: %d is out of range", cfg.ServerPort)
	}

	if cfg.ShutdownGrace, err = durationEnv("SHUTDOWN_GRACE", defaultShutdownGrace); err != nil {
		return nil, err
	}

	if cfg.RateLimit.Burst, err = intEnv("RATE_LIMIT_BURST", defaultRateBurst); err != nil {
		return nil, err
	}
	if cfg.RateLimit.RequestsPerSecond, err = floatEnv("RATE_LIMIT_RPS", defaultRateRPS); err != nil {
		return nil, err
	}
	if cfg.RateLimit.ClientTTL, err = durationEnv("RATE_LIMIT_TTL", defaultRateTTL); err != nil {
		return nil, err
	}

	maxImage, err := intEnv("MAX_IMAGE_BYTES", defaultMaxImageBytes)
	if err != nil {
		return nil, err
	}
	if maxImage <= 0 {
		return nil, eris.Errorf("invalid MAX_IMAGE_BYTES value: %d must be positive", maxImage)
	}
	cfg.MaxImageBytes = int64(maxImage)

	if cfg.MaxConnections, err = intEnv("MAX_CONNECTIONS", defaultMaxConnections); err != nil {
		return nil, err
	}

	cfg.AllowedHosts = listEnv("ALLOWED_HOSTS")
	if ip := net.ParseIP(cfg.ListenHost); ip == nil || !ip.IsUnspecified() {
		cfg.AllowedHosts = append(cfg.AllowedHosts, cfg.ListenHost)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

// listEnv splits a comma separated variable, dropping blank entries.
func listEnv(key string) []string {
	var values []string
	for _, value := range strings.Split(os.Getenv(key), ",") {
		if value = strings.TrimSpace(value); value != "" {
			values = append(values, value)
		}
	}
	return values
}

func intEnv(key string, fallback int) (int, error) {
	raw := getEnv(key, strconv.Itoa(fallback))
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	raw := getEnv(key, strconv.FormatFloat(fallback, 'f', -1, 64))
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, fallback.String())
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}
