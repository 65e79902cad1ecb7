package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected time.Duration
	}{
		{"go syntax", "90m", 90 * time.Minute},
		{"days", "7d", 7 * 24 * time.Hour},
		{"bad days", "xd", time.Hour},
		{"garbage", "soon", time.Hour},
		{"negative", "-5s", time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseDuration(tt.value, time.Hour))
		})
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " http://a.test, ,http://b.test ")
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, getEnvList("CORS_ALLOWED_ORIGINS", nil))

	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	assert.Equal(t, []string{"*"}, getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}))
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("UPLOAD_CONCURRENCY", "2")
	t.Setenv("DRAFT_TTL", "30m")
	t.Setenv("MINIO_PUBLIC_URL", "https://cdn.example.com/")
	t.Setenv("MAX_UPLOAD_SIZE", "not-a-number")
	t.Setenv("JWT_SECRET_KEY", "secret")

	cfg := LoadConfig()

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, 2, cfg.Upload.Concurrency)
	assert.Equal(t, 30*time.Minute, cfg.Upload.DraftTTL)
	assert.Equal(t, "https://cdn.example.com", cfg.MinIO.PublicURL)
	assert.Equal(t, int64(10*1024*1024), cfg.Upload.MaxUploadSize)
	assert.Equal(t, "secret", cfg.JWTSecretKey)
	assert.Equal(t, "listings", cfg.Mongo.Collection)
}
