package config

import (
	"os"
	"strconv"
)

// DatabaseConfig holds PostgreSQL database connection settings.
// The relational backend adapter and the identity store share one pool.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for the file backend.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// BackendsConfig holds the endpoints of the remote vector and graph services.
// An empty base URL leaves that backend unconfigured; lifecycle operations then
// record it as skipped rather than failing.
type BackendsConfig struct {
	VectorBaseURL string
	GraphBaseURL  string
}

// LifecycleConfig tunes coordinator behavior.
type LifecycleConfig struct {
	// SourceSystem is recorded on every identity this instance creates.
	SourceSystem string
	// Actor is written to the identity audit trail for mutations made here.
	Actor string
	// DefaultDeleteStrategy is used when a delete request does not name one.
	// Valid values: "soft", "hard".
	DefaultDeleteStrategy string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost   string
	Port      string
	Database  DatabaseConfig
	MinIO     MinIOConfig
	Backends  BackendsConfig
	Lifecycle LifecycleConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"), // default only for non-sensitive value
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Backends: BackendsConfig{
			VectorBaseURL: getEnv("VECTOR_BACKEND_URL", ""),
			GraphBaseURL:  getEnv("GRAPH_BACKEND_URL", ""),
		},
		Lifecycle: LifecycleConfig{
			SourceSystem:          getEnv("LIFECYCLE_SOURCE_SYSTEM", "docsaga"),
			Actor:                 getEnv("LIFECYCLE_ACTOR", "lifecycle-coordinator"),
			DefaultDeleteStrategy: getEnv("LIFECYCLE_DELETE_STRATEGY", "soft"),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
