package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	// Save current env and restore later
	origHost := os.Getenv("DB_HOST")
	defer os.Setenv("DB_HOST", origHost)

	os.Setenv("DB_HOST", "test-host")
	os.Setenv("DB_MAX_OPEN_CONNS", "20")
	os.Setenv("MINIO_USE_SSL", "true")
	os.Setenv("VECTOR_BACKEND_URL", "http://vector:9000")
	defer os.Unsetenv("VECTOR_BACKEND_URL")

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, "http://vector:9000", cfg.Backends.VectorBaseURL)
}

func TestLoad_LifecycleDefaults(t *testing.T) {
	os.Unsetenv("LIFECYCLE_SOURCE_SYSTEM")
	os.Unsetenv("LIFECYCLE_ACTOR")
	os.Unsetenv("LIFECYCLE_DELETE_STRATEGY")

	cfg := Load()

	assert.Equal(t, "docsaga", cfg.Lifecycle.SourceSystem)
	assert.Equal(t, "lifecycle-coordinator", cfg.Lifecycle.Actor)
	assert.Equal(t, "soft", cfg.Lifecycle.DefaultDeleteStrategy)

	os.Setenv("LIFECYCLE_DELETE_STRATEGY", "hard")
	defer os.Unsetenv("LIFECYCLE_DELETE_STRATEGY")
	assert.Equal(t, "hard", Load().Lifecycle.DefaultDeleteStrategy)
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	os.Unsetenv(key)
	assert.Equal(t, 10, getEnvInt(key, 10))
}
