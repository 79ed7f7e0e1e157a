package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.WSPort)
	assert.Equal(t, 3001, cfg.HTTPPort)
	assert.Equal(t, "/voice-agent", cfg.WSPath)
	assert.Empty(t, cfg.DeepgramAPIKey)
	assert.Equal(t, 10*time.Second, cfg.LookupTimeout)
	assert.Equal(t, 30*time.Second, cfg.PingInterval)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "dg-secret")
	t.Setenv("WS_PORT", "4000")
	t.Setenv("LOOKUP_TIMEOUT", "2s")
	t.Setenv("OTEL_INSECURE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dg-secret", cfg.DeepgramAPIKey)
	assert.Equal(t, 4000, cfg.WSPort)
	assert.Equal(t, 2*time.Second, cfg.LookupTimeout)
	assert.True(t, cfg.OTELInsecure)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("HTTP_PORT", "abc")
	t.Setenv("LOOKUP_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3001, cfg.HTTPPort)
	assert.Equal(t, 10*time.Second, cfg.LookupTimeout)
}

func TestValidate(t *testing.T) {
	t.Setenv("WS_PORT", "3001")
	_, err := Load()
	assert.ErrorContains(t, err, "must differ")

	t.Setenv("WS_PORT", "3000")
	t.Setenv("WS_PATH", "voice-agent")
	_, err = Load()
	assert.ErrorContains(t, err, "WS_PATH")
}
