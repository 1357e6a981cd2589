package config

import (
	"errors"
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

	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	LMS      LMSConfig
	Pipeline PipelineConfig
	Auth     AuthConfig
	CORS     CORSConfig
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

type LogConfig struct {
	Level  string
	Format string
}

// LMSConfig points the extractor at a Moodle web-service endpoint.
type LMSConfig struct {
	BaseURL  string
	Token    string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// PipelineConfig tunes the per-run course fan-out and the course
// admission rules applied before and after indicator computation.
type PipelineConfig struct {
	Workers              int
	StartDate            string
	EndDate              string
	BlacklistKeywords    []string
	ExcludedDepartments  []string
	StrictQualityFilters bool
	ExportDir            string
}

// AuthConfig carries the service-account credentials guarding the
// pipeline trigger endpoints.
type AuthConfig struct {
	ClientID         string
	ClientSecretHash string
	JWTSecret        string
	TokenTTL         time.Duration
	Issuer           string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads configuration from the environment, honouring an optional
// .env file in the working directory.
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
		if !errors.As(err, &notFound) {
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

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.LMS = LMSConfig{
		BaseURL:  v.GetString("LMS_BASE_URL"),
		Token:    v.GetString("LMS_TOKEN"),
		Timeout:  parseDuration(v.GetString("LMS_TIMEOUT"), 5*time.Minute),
		CacheTTL: parseDuration(v.GetString("LMS_CACHE_TTL"), 30*time.Minute),
	}

	cfg.Pipeline = PipelineConfig{
		Workers:              v.GetInt("PIPELINE_WORKERS"),
		StartDate:            v.GetString("PIPELINE_START_DATE"),
		EndDate:              v.GetString("PIPELINE_END_DATE"),
		BlacklistKeywords:    splitAndTrim(v.GetString("PIPELINE_BLACKLIST_KEYWORDS")),
		ExcludedDepartments:  splitAndTrim(v.GetString("PIPELINE_EXCLUDED_DEPARTMENTS")),
		StrictQualityFilters: v.GetBool("PIPELINE_STRICT_QUALITY_FILTERS"),
		ExportDir:            v.GetString("PIPELINE_EXPORT_DIR"),
	}

	cfg.Auth = AuthConfig{
		ClientID:         v.GetString("AUTH_CLIENT_ID"),
		ClientSecretHash: v.GetString("AUTH_CLIENT_SECRET_HASH"),
		JWTSecret:        v.GetString("AUTH_JWT_SECRET"),
		TokenTTL:         parseDuration(v.GetString("AUTH_TOKEN_TTL"), time.Hour),
		Issuer:           v.GetString("AUTH_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

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
	v.SetDefault("DB_NAME", "lms_kpi")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("LMS_BASE_URL", "http://localhost/webservice/rest/server.php")
	v.SetDefault("LMS_TOKEN", "")
	v.SetDefault("LMS_TIMEOUT", "5m")
	v.SetDefault("LMS_CACHE_TTL", "30m")

	v.SetDefault("PIPELINE_WORKERS", 4)
	v.SetDefault("PIPELINE_START_DATE", "2023-01-01")
	v.SetDefault("PIPELINE_END_DATE", "2025-12-31")
	v.SetDefault("PIPELINE_BLACKLIST_KEYWORDS", "PRUEBA,COPIA,SANDPIT,COPIA DE SEGURIDAD")
	v.SetDefault("PIPELINE_EXCLUDED_DEPARTMENTS", "POSTG,DIDA,AE,U_V")
	v.SetDefault("PIPELINE_STRICT_QUALITY_FILTERS", true)
	v.SetDefault("PIPELINE_EXPORT_DIR", "./exports")

	v.SetDefault("AUTH_CLIENT_ID", "etl-admin")
	v.SetDefault("AUTH_CLIENT_SECRET_HASH", "")
	v.SetDefault("AUTH_JWT_SECRET", "dev_secret")
	v.SetDefault("AUTH_TOKEN_TTL", "1h")
	v.SetDefault("AUTH_ISSUER", "lms-kpi-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
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
