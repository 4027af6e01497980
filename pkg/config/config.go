package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// postgres caps a single statement at 65535 bound parameters.
const maxBindParameters = 65535

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Retry     RetryConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Analytics AnalyticsConfig
	Jobs      JobsConfig
	Backfill  BackfillConfig
	Ingest    IngestConfig
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	InsertChunkSize int
	QueryTimeout    time.Duration
}

// RetryConfig bounds the backoff applied to transient storage failures.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AnalyticsConfig governs read caching and read-side projections.
type AnalyticsConfig struct {
	CacheEnabled   bool
	CacheTTL       time.Duration
	VisibilityBins int
}

// JobsConfig sizes the background population worker pool.
type JobsConfig struct {
	Workers         int
	BufferSize      int
	MaxRetries      int
	RetryDelay      time.Duration
	PopulateOnStore bool
}

// BackfillConfig drives the periodic population of schedules missing analytics.
type BackfillConfig struct {
	Enabled   bool
	Cron      string
	BatchSize int
}

// IngestConfig points the drop-folder watcher at a directory.
type IngestConfig struct {
	WatchDir string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:            v.GetString("DB_HOST"),
		Port:            v.GetInt("DB_PORT"),
		User:            v.GetString("DB_USER"),
		Password:        v.GetString("DB_PASSWORD"),
		Name:            v.GetString("DB_NAME"),
		SSLMode:         v.GetString("DB_SSL_MODE"),
		MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		InsertChunkSize: v.GetInt("DB_INSERT_CHUNK_SIZE"),
		QueryTimeout:    parseDuration(v.GetString("DB_QUERY_TIMEOUT"), 30*time.Second),
	}

	cfg.Retry = RetryConfig{
		MaxAttempts: v.GetInt("RETRY_MAX_ATTEMPTS"),
		BaseDelay:   parseDuration(v.GetString("RETRY_BASE_DELAY"), 100*time.Millisecond),
		MaxDelay:    parseDuration(v.GetString("RETRY_MAX_DELAY"), 5*time.Second),
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = 3
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Issuer:     v.GetString("JWT_ISSUER"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Analytics = AnalyticsConfig{
		CacheEnabled:   v.GetBool("ENABLE_ANALYTICS_CACHE"),
		CacheTTL:       parseDuration(v.GetString("ANALYTICS_CACHE_TTL"), 10*time.Minute),
		VisibilityBins: v.GetInt("VISIBILITY_BINS"),
	}
	if cfg.Analytics.VisibilityBins <= 0 {
		cfg.Analytics.VisibilityBins = 10
	}

	cfg.Jobs = JobsConfig{
		Workers:         v.GetInt("JOBS_WORKERS"),
		BufferSize:      v.GetInt("JOBS_BUFFER_SIZE"),
		MaxRetries:      v.GetInt("JOBS_MAX_RETRIES"),
		RetryDelay:      parseDuration(v.GetString("JOBS_RETRY_DELAY"), 2*time.Second),
		PopulateOnStore: v.GetBool("JOBS_POPULATE_ON_STORE"),
	}

	cfg.Backfill = BackfillConfig{
		Enabled:   v.GetBool("ENABLE_BACKFILL"),
		Cron:      v.GetString("BACKFILL_CRON"),
		BatchSize: v.GetInt("BACKFILL_BATCH_SIZE"),
	}

	cfg.Ingest = IngestConfig{WatchDir: v.GetString("INGEST_WATCH_DIR")}

	return cfg, nil
}

// ChunkSize returns the number of rows per multi-row insert for a table with
// the given column count, never exceeding the bound parameter limit.
func (c DatabaseConfig) ChunkSize(columns int) int {
	size := c.InsertChunkSize
	if size <= 0 {
		size = 1000
	}
	if columns <= 0 {
		return size
	}
	if limit := maxBindParameters / columns; size > limit {
		size = limit
	}
	return size
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "tsi")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_INSERT_CHUNK_SIZE", 1000)
	v.SetDefault("DB_QUERY_TIMEOUT", "30s")

	v.SetDefault("RETRY_MAX_ATTEMPTS", 3)
	v.SetDefault("RETRY_BASE_DELAY", "100ms")
	v.SetDefault("RETRY_MAX_DELAY", "5s")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "tsi")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_ANALYTICS_CACHE", false)
	v.SetDefault("ANALYTICS_CACHE_TTL", "10m")
	v.SetDefault("VISIBILITY_BINS", 10)

	v.SetDefault("JOBS_WORKERS", 2)
	v.SetDefault("JOBS_BUFFER_SIZE", 32)
	v.SetDefault("JOBS_MAX_RETRIES", 3)
	v.SetDefault("JOBS_RETRY_DELAY", "2s")
	v.SetDefault("JOBS_POPULATE_ON_STORE", true)

	v.SetDefault("ENABLE_BACKFILL", false)
	v.SetDefault("BACKFILL_CRON", "*/15 * * * *")
	v.SetDefault("BACKFILL_BATCH_SIZE", 20)

	v.SetDefault("INGEST_WATCH_DIR", "")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
