package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	CORSAllowOrigin    []string
	DatabaseURL        string
	MigrateOnStart     bool
	JWTSecret          string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	ObjectStoreType    string
	UploadDir          string
	MaxUploadBytes     int64
	AWSRegion          string
	S3Bucket           string
	S3Prefix           string
	SSEKMSKeyID        string
	IngestionURL       string
	IngestionTimeout   time.Duration
	RedisURL           string
	AuthRateLimitRPS   float64
	AuthRateLimitBurst int
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := databaseURL()
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL (or DB_HOST/DB_NAME) is required in production")
	}
	if env == "production" && secret == "" {
		log.Printf("JWT_SECRET is required in production")
	}

	return Config{
		Port:               getEnv("PORT", "3000"),
		Env:                env,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowOrigin:    splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		DatabaseURL:        dbURL,
		MigrateOnStart:     getBool("MIGRATE_ON_START", env != "production"),
		JWTSecret:          secret,
		AccessTokenTTL:     getDuration("JWT_ACCESS_TTL", 15*time.Minute),
		RefreshTokenTTL:    getDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
		ObjectStoreType:    normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		UploadDir:          getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadBytes:     getInt64("MAX_UPLOAD_BYTES", 5<<20),
		AWSRegion:          getEnv("AWS_REGION", ""),
		S3Bucket:           getEnv("S3_BUCKET", ""),
		S3Prefix:           getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:        getEnv("SSE_KMS_KEY_ID", ""),
		IngestionURL:       getEnv("INGESTION_URL", "http://python-backend-url/ingestion-start"),
		IngestionTimeout:   getDuration("INGESTION_TIMEOUT", 30*time.Second),
		RedisURL:           getEnv("REDIS_URL", ""),
		AuthRateLimitRPS:   getFloat("RATE_LIMIT_AUTH_RPS", 1),
		AuthRateLimitBurst: int(getInt64("RATE_LIMIT_AUTH_BURST", 10)),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      getEnv("UI_REDIRECT_URL", ""),
	}
}

// databaseURL prefers DATABASE_URL and otherwise assembles a DSN from the DB_* keys.
func databaseURL() string {
	if raw := strings.TrimSpace(os.Getenv("DATABASE_URL")); raw != "" {
		return raw
	}
	host := strings.TrimSpace(os.Getenv("DB_HOST"))
	name := strings.TrimSpace(os.Getenv("DB_NAME"))
	if host == "" || name == "" {
		return ""
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("DB_USER", "postgres"), os.Getenv("DB_PASSWORD")),
		Host:     fmt.Sprintf("%s:%s", host, getEnv("DB_PORT", "5432")),
		Path:     "/" + name,
		RawQuery: "sslmode=" + getEnv("DB_SSLMODE", "disable"),
	}
	return u.String()
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		log.Printf("config %s invalid duration %q, using %s", key, raw, def)
		return def
	}
	return val
}

func getInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || val <= 0 {
		log.Printf("config %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil || val < 0 {
		log.Printf("config %s invalid float %q, using %g", key, raw, def)
		return def
	}
	return val
}

func getBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "test":
		return "test"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

// IsDevLike reports whether env allows in-memory fallbacks and default secrets.
func IsDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}
