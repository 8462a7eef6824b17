package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"APP_NAME", "APP_ENV", "PORT", "LOG_LEVEL", "CHALLENGE_LABEL",
	"DATABASE_URL", "REDIS_URL",
	shutdownSecondsEnvVar, shutdownDurationEnvVar,
	idemTTLSecondsEnvVar, idemTTLDurEnvVar,
	verifyLimitEnvVar, autoMigrateEnvVar,
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, "Bazaar Auth", cfg.AppName)
	require.Equal(t, "Bazaar", cfg.ChallengeLabel)
	require.Equal(t, ":8080", cfg.Address())
	require.Equal(t, 10*time.Second, cfg.ShutdownPeriod)
	require.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	require.Zero(t, cfg.VerifyAttemptsPerMinute)
	require.True(t, cfg.AutoMigrate)
	require.True(t, cfg.IsDevelopment())
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "Production")
	t.Setenv("PORT", ":9000")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("CHALLENGE_LABEL", "Acme")
	t.Setenv("DATABASE_URL", "postgres://localhost/auth")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv(shutdownDurationEnvVar, "3s")
	t.Setenv(idemTTLSecondsEnvVar, "60")
	t.Setenv(verifyLimitEnvVar, "5")
	t.Setenv(autoMigrateEnvVar, "false")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.False(t, cfg.IsDevelopment())
	require.Equal(t, ":9000", cfg.Address())
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "Acme", cfg.ChallengeLabel)
	require.Equal(t, 3*time.Second, cfg.ShutdownPeriod)
	require.Equal(t, time.Minute, cfg.IdempotencyTTL)
	require.Equal(t, 5, cfg.VerifyAttemptsPerMinute)
	require.False(t, cfg.AutoMigrate)
}

func TestFromEnvRequiresBackendsOutsideDevelopment(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")

	_, err := FromEnv()
	require.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://localhost/auth")
	_, err = FromEnv()
	require.ErrorContains(t, err, "REDIS_URL")
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	for key, value := range map[string]string{
		shutdownSecondsEnvVar: "soon",
		idemTTLDurEnvVar:      "forever",
		verifyLimitEnvVar:     "-1",
		autoMigrateEnvVar:     "maybe",
	} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := FromEnv()
			require.ErrorContains(t, err, key)
		})
	}
}
