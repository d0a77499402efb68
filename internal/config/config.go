package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Tickets      TicketsConfig
	Scheduler    SchedulerConfig
	Admins       []AdminSeed
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Development bool
	Service     string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// NotificationConfig holds notification endpoints. An empty RedisChannel
// disables pub/sub fan-out.
type NotificationConfig struct {
	EmailFrom    string
	WebhookURL   string
	RedisChannel string
}

// TicketsConfig tunes the ticket engine.
type TicketsConfig struct {
	// Storage selects the ticket and admin backend: "memory" or "postgres".
	Storage string
	// Sequences selects the id counter backend: "memory", "redis" or "postgres".
	Sequences            string
	PageSize             int
	SLAPolicy            string
	SLAFixedHours        int
	IncidentSequenceBase int64
	ChangeSequenceBase   int64
	MaintenanceSeqBase   int64
	CatalogPath          string
	StrictCatalog        bool
	PersistenceTimeoutMS int
	RedisKeyPrefix       string
}

// SchedulerConfig controls background jobs.
type SchedulerConfig struct {
	Enabled                bool
	MaintenanceDueSpec     string
	MaintenanceDueWindowMn int
}

// AdminSeed describes a bootstrap admin account for the memory directory.
type AdminSeed struct {
	ID       string
	Name     string
	Email    string
	Password string
	Role     string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticketdesk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
			Service:     getEnv("APP_NAME", "ticketdesk"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			EmailFrom:    getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL:   getEnv("NOTIFY_WEBHOOK_URL", ""),
			RedisChannel: getEnv("NOTIFY_REDIS_CHANNEL", ""),
		},
		Tickets: TicketsConfig{
			Storage:              strings.ToLower(getEnv("TICKETS_STORAGE", "memory")),
			Sequences:            strings.ToLower(getEnv("TICKETS_SEQUENCES", "memory")),
			PageSize:             getEnvAsInt("TICKETS_PAGE_SIZE", 10),
			SLAPolicy:            strings.ToLower(getEnv("TICKETS_SLA_POLICY", "fixed")),
			SLAFixedHours:        getEnvAsInt("TICKETS_SLA_FIXED_HOURS", 24),
			IncidentSequenceBase: int64(getEnvAsInt("TICKETS_INCIDENT_SEQUENCE_BASE", 10000)),
			ChangeSequenceBase:   int64(getEnvAsInt("TICKETS_CHANGE_SEQUENCE_BASE", 10000)),
			MaintenanceSeqBase:   int64(getEnvAsInt("TICKETS_MAINTENANCE_SEQUENCE_BASE", 0)),
			CatalogPath:          os.Getenv("TICKETS_CATALOG_PATH"),
			StrictCatalog:        getEnvAsBool("TICKETS_STRICT_CATALOG", false),
			PersistenceTimeoutMS: getEnvAsInt("TICKETS_PERSISTENCE_TIMEOUT_MS", 2000),
			RedisKeyPrefix:       getEnv("TICKETS_REDIS_KEY_PREFIX", "ticketdesk"),
		},
		Scheduler: SchedulerConfig{
			Enabled:                getEnvAsBool("SCHEDULER_ENABLED", true),
			MaintenanceDueSpec:     getEnv("SCHEDULER_MAINTENANCE_DUE_SPEC", "*/15 * * * *"),
			MaintenanceDueWindowMn: getEnvAsInt("SCHEDULER_MAINTENANCE_DUE_WINDOW_MINUTES", 60),
		},
	}

	admins, err := parseAdminSeeds(os.Getenv("ADMIN_SEED"))
	if err != nil {
		return nil, err
	}
	cfg.Admins = admins

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects option values the service cannot run with.
func (c *Config) Validate() error {
	switch c.Tickets.Storage {
	case "memory", "postgres":
	default:
		return fmt.Errorf("invalid TICKETS_STORAGE %q", c.Tickets.Storage)
	}
	switch c.Tickets.Sequences {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("invalid TICKETS_SEQUENCES %q", c.Tickets.Sequences)
	}
	switch c.Tickets.SLAPolicy {
	case "fixed", "priority":
	default:
		return fmt.Errorf("invalid TICKETS_SLA_POLICY %q", c.Tickets.SLAPolicy)
	}
	if (c.Tickets.Storage == "postgres" || c.Tickets.Sequences == "postgres") && c.Postgres.DSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required for postgres storage")
	}
	if c.Tickets.PageSize <= 0 {
		return fmt.Errorf("TICKETS_PAGE_SIZE must be positive")
	}
	return nil
}

// PersistenceTimeout bounds every repository call.
func (t TicketsConfig) PersistenceTimeout() time.Duration {
	if t.PersistenceTimeoutMS <= 0 {
		return 0
	}
	return time.Duration(t.PersistenceTimeoutMS) * time.Millisecond
}

// MaintenanceDueWindow is how far ahead the scheduler looks for work starting soon.
func (s SchedulerConfig) MaintenanceDueWindow() time.Duration {
	return time.Duration(s.MaintenanceDueWindowMn) * time.Minute
}

// parseAdminSeeds reads "id:name:email:password:role" entries separated by ";".
func parseAdminSeeds(raw string) ([]AdminSeed, error) {
	var seeds []AdminSeed
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 5 {
			return nil, fmt.Errorf("invalid ADMIN_SEED entry %q", entry)
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		seeds = append(seeds, AdminSeed{
			ID:       parts[0],
			Name:     parts[1],
			Email:    parts[2],
			Password: parts[3],
			Role:     parts[4],
		})
	}
	return seeds, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
