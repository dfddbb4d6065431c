package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	LogLevel      string
	LogFormat     string
	CookieSecure  bool
	JWTSigningKey string
	// LoginRatePerMinute bounds POST /login attempts per client IP.
	LoginRatePerMinute int

	Session  SessionConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	Upstream  UpstreamConfig
	Audit     AuditConfig
	Auth      AuthConfig
	Workspace WorkspaceConfig
}

// SessionConfig selects where workspace session records are persisted.
type SessionConfig struct {
	Backend string
	TTL     time.Duration
}

// RedisConfig configures the shared Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig configures the shared database handle.
type PostgresConfig struct {
	URL          string
	MaxOpenConns int
}

// UpstreamConfig points the transport client at the KYC REST API. An empty
// BaseURL means the built-in mock API is mounted and used.
type UpstreamConfig struct {
	BaseURL string
	Timeout time.Duration
}

// AuditConfig selects the audit sink.
type AuditConfig struct {
	Backend      string
	KafkaBrokers []string
	Topic        string
}

// AuthConfig selects the authenticator. "remote" calls the upstream auth
// endpoints; "mock" authenticates in process against the mock API seed.
type AuthConfig struct {
	Backend string
	// TokenTTL is the lifetime of mock access tokens.
	TokenTTL time.Duration
}

// WorkspaceConfig bounds how long an idle browser workspace stays in memory.
type WorkspaceConfig struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

const (
	AuthRemote = "remote"
	AuthMock   = "mock"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendKafka    = "kafka"
)

// FromEnv builds a Server config from environment variables so main stays lean.
// A .env file in the working directory is loaded first when present.
func FromEnv() Server {
	_ = godotenv.Load()

	return Server{
		Addr:               envString("KYC_PORTAL_ADDR", ":8080"),
		LogLevel:           envString("LOG_LEVEL", "info"),
		LogFormat:          envString("LOG_FORMAT", "json"),
		CookieSecure:       os.Getenv("COOKIE_SECURE") == "true",
		JWTSigningKey:      envString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		LoginRatePerMinute: envInt("LOGIN_RATE_PER_MINUTE", 10),
		Session: SessionConfig{
			Backend: envString("SESSION_BACKEND", BackendMemory),
			TTL:     envDuration("SESSION_TTL", 24*time.Hour),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 10),
		},
		Upstream: UpstreamConfig{
			BaseURL: strings.TrimRight(os.Getenv("UPSTREAM_BASE_URL"), "/"),
			Timeout: envDuration("UPSTREAM_TIMEOUT", 10*time.Second),
		},
		Audit: AuditConfig{
			Backend:      envString("AUDIT_BACKEND", BackendMemory),
			KafkaBrokers: envList("KAFKA_BROKERS"),
			Topic:        envString("AUDIT_TOPIC", "kyc-portal.audit"),
		},
		Auth: AuthConfig{
			Backend:  envString("AUTH_BACKEND", AuthRemote),
			TokenTTL: envDuration("MOCK_TOKEN_TTL", time.Hour),
		},
		Workspace: WorkspaceConfig{
			IdleTimeout:   envDuration("WORKSPACE_IDLE_TIMEOUT", 30*time.Minute),
			SweepInterval: envDuration("WORKSPACE_SWEEP_INTERVAL", time.Minute),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
