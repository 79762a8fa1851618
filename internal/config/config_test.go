package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db:5432/signupd")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "postgres://db:5432/signupd", cfg.DatabaseURL)
	assert.Equal(t, 12*time.Hour, cfg.OfferWindow)
	assert.Equal(t, 5*time.Second, cfg.ResignupDebounce)
	assert.Equal(t, 3, cfg.TxMaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.TxRetryBaseDelay)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, "signup.notifications.email", cfg.AMQPEmailQueue)
	assert.True(t, cfg.NotifyAsync)
	assert.Empty(t, cfg.RedisURL)
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("OFFER_WINDOW", "30m")
	t.Setenv("TIMEZONE", "Europe/Paris")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("NOTIFY_ASYNC", "false")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.OfferWindow)
	assert.Equal(t, "Europe/Paris", cfg.Timezone)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.False(t, cfg.NotifyAsync)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{name: "database url without host", key: "DATABASE_URL", value: "signupd", wantErr: "DATABASE_URL"},
		{name: "log level", key: "LOG_LEVEL", value: "loud", wantErr: "LOG_LEVEL"},
		{name: "log format", key: "LOG_FORMAT", value: "xml", wantErr: "LOG_FORMAT"},
		{name: "timezone", key: "TIMEZONE", value: "Nowhere/City", wantErr: "TIMEZONE"},
		{name: "offer window", key: "OFFER_WINDOW", value: "0s", wantErr: "OFFER_WINDOW"},
		{name: "attempts", key: "TX_MAX_ATTEMPTS", value: "0", wantErr: "TX_MAX_ATTEMPTS"},
		{name: "unparseable duration", key: "SWEEP_INTERVAL", value: "soon", wantErr: "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Parse()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
