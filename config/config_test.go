package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/carematch/carematch/internal/constants"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("CAREMATCH_TEST_STR", "value")
	t.Setenv("CAREMATCH_TEST_INT", "42")
	t.Setenv("CAREMATCH_TEST_BAD_INT", "forty-two")
	t.Setenv("CAREMATCH_TEST_DUR", "2m")
	t.Setenv("CAREMATCH_TEST_NEG_DUR", "-5s")

	assert.Equal(t, "value", GetEnv("CAREMATCH_TEST_STR", "fallback"))
	assert.Equal(t, "fallback", GetEnv("CAREMATCH_TEST_MISSING", "fallback"))

	assert.Equal(t, 42, GetEnvInt("CAREMATCH_TEST_INT", 7))
	assert.Equal(t, 7, GetEnvInt("CAREMATCH_TEST_BAD_INT", 7))
	assert.Equal(t, 7, GetEnvInt("CAREMATCH_TEST_MISSING", 7))

	assert.Equal(t, 2*time.Minute, GetEnvDuration("CAREMATCH_TEST_DUR", time.Second))
	assert.Equal(t, time.Second, GetEnvDuration("CAREMATCH_TEST_NEG_DUR", time.Second))
}

func TestLoadServer(t *testing.T) {
	t.Setenv(constants.EnvListenAddr, ":9999")
	t.Setenv(constants.EnvJWTSecret, "secret")
	t.Setenv(constants.EnvConfirmWindow, "120s")
	t.Setenv(constants.EnvDBSSLMode, "require")

	cfg := LoadServer()
	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, "secret", cfg.JWTSecret)
	assert.Equal(t, 120*time.Second, cfg.ConfirmWindow)
	assert.Equal(t, DefaultExpirySweepInterval, cfg.ExpirySweepInterval)
	assert.True(t, cfg.DBSSL)
}
