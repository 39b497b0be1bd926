package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-key", cfg.LLM.APIKey, "gemini key is reused for the gemini provider")
	assert.Equal(t, 3, cfg.LLM.MaxAttempts)
	assert.Equal(t, time.Second, cfg.LLM.RetryDelay)
	assert.Equal(t, 500, cfg.Generation.ChunkSize)
	assert.Equal(t, 3, cfg.Generation.ChunkAttempts)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, "quiz.events", cfg.RabbitMQ.Queue)
	assert.False(t, cfg.R2.Enabled())
	assert.False(t, cfg.Auth.Google.Enabled())
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "llm:\n  provider: openai\n  api_key: file-key\n  model: some-model\nserver:\n  port: \"9000\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "9100")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "file-key", cfg.LLM.APIKey)
	assert.Equal(t, "some-model", cfg.LLM.Model)
	assert.Equal(t, "9100", cfg.Server.Port, "environment wins over the file")
}

func TestValidate(t *testing.T) {
	valid := Config{
		LLM:        LLMConfig{Provider: "openai", APIKey: "k"},
		Auth:       AuthConfig{JWTSecret: "s"},
		Generation: GenerationConfig{ChunkSize: 1000},
	}
	assert.NoError(t, valid.Validate())

	noSecret := valid
	noSecret.Auth.JWTSecret = ""
	assert.Error(t, noSecret.Validate())

	badProvider := valid
	badProvider.LLM.Provider = "claude"
	assert.ErrorContains(t, badProvider.Validate(), "unknown LLM provider")

	noKey := valid
	noKey.LLM.APIKey = ""
	assert.Error(t, noKey.Validate())
}
