package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Remote   RemoteConfig
	Database DatabaseConfig
	Firebase FirebaseConfig
	Redis    RedisConfig
	Snapshot SnapshotConfig
	Events   EventsConfig
	Sync     SyncConfig
	Log      LogConfig
	App      AppConfig
}

type ServerConfig struct {
	Port            string
	AllowedOrigins  []string
	AuthRatePerMin  int
	AuthBurst       int
	ShutdownTimeout time.Duration
}

// Remote backends.
const (
	RemoteMemory   = "memory"
	RemotePostgres = "postgres"
)

type RemoteConfig struct {
	// Backend selects where credentials and rows live: "memory" keeps
	// everything in process, "postgres" stores rows in PostgreSQL and
	// credentials in Firebase.
	Backend        string
	BreakerTimeout time.Duration
	CallTimeout    time.Duration
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN returns DATABASE_URL when set, otherwise a keyword/value connection
// string assembled from the individual settings.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
	APIKey          string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis server is configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// Snapshot backends.
const (
	SnapshotFile   = "file"
	SnapshotRedis  = "redis"
	SnapshotMemory = "memory"
)

type SnapshotConfig struct {
	Backend string
	Dir     string
	Prefix  string
	TTL     time.Duration
}

// Event hub backends.
const (
	EventsLocal = "local"
	EventsRedis = "redis"
)

type EventsConfig struct {
	Backend  string
	ClientID string
}

type SyncConfig struct {
	Enabled  bool
	Schedule string
}

type LogConfig struct {
	Level string
	Dev   bool
}

type AppConfig struct {
	Environment string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*Config, error) {
	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
			AuthRatePerMin:  getEnvAsInt("AUTH_RATE_PER_MIN", 20),
			AuthBurst:       getEnvAsInt("AUTH_RATE_BURST", 5),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Remote: RemoteConfig{
			Backend:        strings.ToLower(getEnv("REMOTE_BACKEND", RemoteMemory)),
			BreakerTimeout: getEnvAsDuration("REMOTE_BREAKER_TIMEOUT", 30*time.Second),
			CallTimeout:    getEnvAsDuration("REMOTE_CALL_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "research_hub"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 2),
		},
		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
			APIKey:          getEnv("FIREBASE_API_KEY", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Snapshot: SnapshotConfig{
			Backend: strings.ToLower(getEnv("SNAPSHOT_BACKEND", SnapshotFile)),
			Dir:     getEnv("RESEARCH_HUB_DATA_DIR", ""),
			Prefix:  getEnv("SNAPSHOT_REDIS_PREFIX", "research-hub:snapshot:"),
			TTL:     getEnvAsDuration("SNAPSHOT_TTL", 0),
		},
		Events: EventsConfig{
			Backend:  strings.ToLower(getEnv("EVENTS_BACKEND", EventsLocal)),
			ClientID: getEnv("EVENTS_CLIENT_ID", ""),
		},
		Sync: SyncConfig{
			Enabled:  getEnvAsBool("SYNC_ENABLED", true),
			Schedule: getEnv("SYNC_SCHEDULE", "@every 5m"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			Dev:   getEnvAsBool("LOG_DEV", env != "production"),
		},
		App: AppConfig{
			Environment: env,
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Server.Port)
	}
	if c.Server.AuthRatePerMin <= 0 || c.Server.AuthBurst <= 0 {
		return fmt.Errorf("AUTH_RATE_PER_MIN and AUTH_RATE_BURST must be positive")
	}

	switch c.Remote.Backend {
	case RemoteMemory:
	case RemotePostgres:
		if c.Database.URL == "" && c.Database.Host == "" {
			return fmt.Errorf("DB_HOST or DATABASE_URL is required for the postgres remote")
		}
		if c.Database.URL != "" {
			if _, err := url.Parse(c.Database.URL); err != nil {
				return fmt.Errorf("DATABASE_URL: %w", err)
			}
		}
		if c.Firebase.APIKey == "" {
			return fmt.Errorf("FIREBASE_API_KEY is required for the postgres remote")
		}
	default:
		return fmt.Errorf("REMOTE_BACKEND must be %q or %q, got %q", RemoteMemory, RemotePostgres, c.Remote.Backend)
	}

	switch c.Snapshot.Backend {
	case SnapshotFile, SnapshotMemory:
	case SnapshotRedis:
		if !c.Redis.Enabled() {
			return fmt.Errorf("REDIS_ADDR is required for redis snapshots")
		}
	default:
		return fmt.Errorf("SNAPSHOT_BACKEND must be one of file, redis, memory, got %q", c.Snapshot.Backend)
	}

	switch c.Events.Backend {
	case EventsLocal:
	case EventsRedis:
		if !c.Redis.Enabled() {
			return fmt.Errorf("REDIS_ADDR is required for redis events")
		}
	default:
		return fmt.Errorf("EVENTS_BACKEND must be %q or %q, got %q", EventsLocal, EventsRedis, c.Events.Backend)
	}

	if c.Sync.Enabled && c.Sync.Schedule == "" {
		return fmt.Errorf("SYNC_SCHEDULE is required when sync is enabled")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean for %s, using default: %t", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
