package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Cache     CacheConfig
	Generator GeneratorConfig
	Export    ExportConfig
	Worker    WorkerConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig governs the run summary cache.
type CacheConfig struct {
	Enabled bool
	RunTTL  time.Duration
}

// GeneratorConfig holds the defaults of a generation run.
type GeneratorConfig struct {
	Seed               int64
	SchoolYear         string
	SimulationStart    time.Time
	SimulationDays     int
	AllocationAttempts int
	InputDir           string
}

// ExportConfig controls dataset serialisation and download links.
type ExportConfig struct {
	Dir             string
	Delimiter       rune
	SQLChunkSize    int
	SignedURLSecret string
	SignedURLTTL    time.Duration
	CleanupInterval time.Duration
}

// WorkerConfig sizes the asynchronous run queue.
type WorkerConfig struct {
	Concurrency int
	Retries     int
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
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		RunTTL:  parseDuration(v.GetString("RUN_CACHE_TTL"), time.Hour),
	}

	cfg.Generator = GeneratorConfig{
		Seed:               v.GetInt64("GENERATOR_SEED"),
		SchoolYear:         v.GetString("GENERATOR_SCHOOL_YEAR"),
		SimulationStart:    parseDate(v.GetString("GENERATOR_SIMULATION_START"), time.Date(2026, time.August, 3, 0, 0, 0, 0, time.UTC)),
		SimulationDays:     v.GetInt("GENERATOR_SIMULATION_DAYS"),
		AllocationAttempts: v.GetInt("GENERATOR_ALLOCATION_ATTEMPTS"),
		InputDir:           v.GetString("GENERATOR_INPUT_DIR"),
	}

	cfg.Export = ExportConfig{
		Dir:             v.GetString("EXPORT_DIR"),
		Delimiter:       parseDelimiter(v.GetString("EXPORT_DELIMITER"), ';'),
		SQLChunkSize:    v.GetInt("EXPORT_SQL_CHUNK_SIZE"),
		SignedURLSecret: v.GetString("EXPORT_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORT_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval: parseDuration(v.GetString("EXPORT_CLEANUP_INTERVAL"), time.Hour),
	}

	cfg.Worker = WorkerConfig{
		Concurrency: v.GetInt("WORKER_CONCURRENCY"),
		Retries:     v.GetInt("WORKER_RETRIES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "digitales_klassenbuch")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("RUN_CACHE_TTL", "1h")

	v.SetDefault("GENERATOR_SEED", 42)
	v.SetDefault("GENERATOR_SCHOOL_YEAR", "2026/27")
	v.SetDefault("GENERATOR_SIMULATION_START", "2026-08-03")
	v.SetDefault("GENERATOR_SIMULATION_DAYS", 26)
	v.SetDefault("GENERATOR_ALLOCATION_ATTEMPTS", 64)
	v.SetDefault("GENERATOR_INPUT_DIR", "")

	v.SetDefault("EXPORT_DIR", "./db_DigitalesKlassenbuch")
	v.SetDefault("EXPORT_DELIMITER", ";")
	v.SetDefault("EXPORT_SQL_CHUNK_SIZE", 1000)
	v.SetDefault("EXPORT_SIGNED_URL_SECRET", "dev_export_secret")
	v.SetDefault("EXPORT_SIGNED_URL_TTL", "24h")
	v.SetDefault("EXPORT_CLEANUP_INTERVAL", "1h")

	v.SetDefault("WORKER_CONCURRENCY", 1)
	v.SetDefault("WORKER_RETRIES", 1)
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

func parseDate(raw string, fallback time.Time) time.Time {
	if raw == "" {
		return fallback
	}

	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return fallback
	}

	return d
}

func parseDelimiter(raw string, fallback rune) rune {
	if raw == "" {
		return fallback
	}
	if raw == `\t` {
		return '\t'
	}
	return []rune(raw)[0]
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
