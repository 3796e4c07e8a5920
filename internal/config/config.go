package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Google Sign-In
	GoogleClientIDs []string
	GoogleJWKSURL   string

	// Role bootstrap
	OwnerEmails []string
	AdminEmails []string

	// Redis (optional: role cache + cross-instance fan-out)
	RedisAddr     string
	RedisPassword string
	RoleCacheTTL  time.Duration

	// Kafka (optional: domain events + notification ingest)
	KafkaBrokers           []string
	KafkaEventsTopic       string
	KafkaNotificationTopic string
	KafkaGroupID           string

	// Blob storage
	StorageDriver    string
	StorageDir       string
	StorageBaseURL   string
	S3Endpoint       string
	S3AccessKey      string
	S3SecretKey      string
	S3Bucket         string
	S3UseSSL         bool
	S3PresignExpiry  time.Duration
	MaxUploadBytes   int
	ExpenseTimezone  string
	LogRetentionDays int

	// Server
	Port        string
	CORSOrigins string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "stockdesk"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m"), 15*time.Minute),
		JWTRefreshExpiry: parseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h"), 168*time.Hour),

		GoogleClientIDs: parseCSV(getEnv("GOOGLE_CLIENT_IDS", "")),
		GoogleJWKSURL:   getEnv("GOOGLE_JWKS_URL", "https://www.googleapis.com/oauth2/v3/certs"),

		OwnerEmails: parseCSV(getEnv("OWNER_EMAILS", "")),
		AdminEmails: parseCSV(getEnv("ADMIN_EMAILS", "")),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RoleCacheTTL:  parseDuration(getEnv("ROLE_CACHE_TTL", "10m"), 10*time.Minute),

		KafkaBrokers:           parseCSV(getEnv("KAFKA_BROKERS", "")),
		KafkaEventsTopic:       getEnv("KAFKA_EVENTS_TOPIC", "stockdesk.events"),
		KafkaNotificationTopic: getEnv("KAFKA_NOTIFICATIONS_TOPIC", "stockdesk.notifications"),
		KafkaGroupID:           getEnv("KAFKA_GROUP_ID", "stockdesk-backend"),

		StorageDriver:   getEnv("STORAGE_DRIVER", "local"),
		StorageDir:      getEnv("STORAGE_DIR", "./uploads"),
		StorageBaseURL:  getEnv("STORAGE_BASE_URL", "/files"),
		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		S3AccessKey:     getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:     getEnv("S3_SECRET_KEY", ""),
		S3Bucket:        getEnv("S3_BUCKET", "stockdesk"),
		S3UseSSL:        getEnv("S3_USE_SSL", "true") == "true",
		S3PresignExpiry: parseDuration(getEnv("S3_PRESIGN_EXPIRY", "24h"), 24*time.Hour),
		MaxUploadBytes:  parseInt(getEnv("MAX_UPLOAD_BYTES", "8388608"), 8*1024*1024),
		ExpenseTimezone: getEnv("EXPENSE_TIMEZONE", "UTC"),

		LogRetentionDays: parseInt(getEnv("LOG_RETENTION_DAYS", "30"), 30),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// ExpenseLocation is the calendar used for monthly totals. Falls back to UTC.
func (c *Config) ExpenseLocation() *time.Location {
	loc, err := time.LoadLocation(c.ExpenseTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
