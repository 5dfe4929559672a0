package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
modules:
  otp:
    expiry_minutes: 10
    max_attempts: 0
    cooldown_seconds: 120
    purposes: "registration, password-reset,,email-verification"
    labels: "a:1,b:2,broken"
    seeds:
      - " admin, notifications, create "
      - ""
`

func TestViperFromBytes(t *testing.T) {
	cfg, err := NewViperFromBytes("yaml", []byte(sample))
	require.NoError(t, err)

	assert.Equal(t, 10*time.Minute, cfg.GetMinute("modules.otp.expiry_minutes"))
	assert.Equal(t, 120*time.Second, cfg.GetSecond("modules.otp.cooldown_seconds"))
	assert.Equal(t, []string{"registration", "password-reset", "email-verification"}, cfg.GetArray("modules.otp.purposes"))
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, cfg.GetMap("modules.otp.labels"))
	assert.Empty(t, cfg.GetArray("modules.otp.missing"))
	assert.Equal(t, []string{"admin, notifications, create"}, cfg.GetArray("modules.otp.seeds"))
	assert.NoError(t, cfg.Close())
}

func TestViperFromBytes_EmptyType(t *testing.T) {
	_, err := NewViperFromBytes(" ", []byte(sample))
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	cfg, err := NewViperFromBytes("yaml", []byte(sample))
	require.NoError(t, err)

	assert.Equal(t, 5, IntOr(cfg, "modules.otp.max_attempts", 5), "non-positive falls back")
	assert.Equal(t, 7, IntOr(cfg, "modules.otp.unknown", 7))
	assert.Equal(t, 10*time.Minute, DurationOr(cfg, "modules.otp.expiry_minutes", time.Minute, time.Hour))
	assert.Equal(t, time.Hour, DurationOr(cfg, "modules.otp.retention_minutes", time.Minute, time.Hour))
}

func TestEnvAlias(t *testing.T) {
	t.Setenv("MAX_OTP_ATTEMPTS", "3")

	cfg, err := NewViperFromBytes("yaml", []byte(sample), WithEnvAlias("modules.otp.max_attempts", "MAX_OTP_ATTEMPTS"))
	require.NoError(t, err)

	assert.Equal(t, 3, IntOr(cfg, "modules.otp.max_attempts", 5))
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("MODULES_OTP_COOLDOWN_SECONDS", "30")

	cfg, err := NewViperFromBytes("yaml", []byte(sample))
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.GetSecond("modules.otp.cooldown_seconds"))
}
