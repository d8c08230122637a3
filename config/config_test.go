package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		JWTSecret:              "jwt",
		SessionSecret:          "session",
		CSRFSecret:             "csrf",
		CSRFEnabled:            true,
		WizardRedirectSettleMS: 1000,
		WizardTTLHours:         72,
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("accepts complete config", func(t *testing.T) {
		cfg := validConfig()
		require.NoError(t, cfg.Validate())
	})

	t.Run("requires jwt secret", func(t *testing.T) {
		cfg := validConfig()
		cfg.JWTSecret = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("requires csrf secret only when enabled", func(t *testing.T) {
		cfg := validConfig()
		cfg.CSRFSecret = ""
		assert.Error(t, cfg.Validate())

		cfg.CSRFEnabled = false
		assert.NoError(t, cfg.Validate())
	})

	t.Run("rejects negative settle delay", func(t *testing.T) {
		cfg := validConfig()
		cfg.WizardRedirectSettleMS = -1
		assert.Error(t, cfg.Validate())
	})
}

func TestConfig_Durations(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, 72*time.Hour, cfg.WizardTTL())
	assert.Equal(t, time.Second, cfg.RedirectSettleDelay())
}
