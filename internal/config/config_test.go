package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	unsetEnv(t, "PORT", "GEMINI_API_KEY", "ANSWER_STRATEGY", "ESCALATION_POLICY", "BUSINESS_TIMEZONE",
		"DATABASE_URL", "SMTP_HOST", "SMTP_FROM", "SMTP_USERNAME", "SUPPORT_EMAIL", "NOTIFY_TIMEOUT")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, StrategyExact, cfg.Answer.Strategy)
	assert.Equal(t, PolicyCollectContact, cfg.Escalation.Policy)
	assert.Equal(t, "support@blackbeltprep.com", cfg.Escalation.SupportEmail)
	assert.Equal(t, 10*time.Second, cfg.Escalation.NotifyTimeout)
	assert.Empty(t, cfg.DatabaseURL)
	assert.False(t, cfg.SMTP.Enabled())
}

func TestLoadPicksGenerativeWhenKeyPresent(t *testing.T) {
	unsetEnv(t, "PORT", "ANSWER_STRATEGY", "ESCALATION_POLICY", "BUSINESS_TIMEZONE")
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StrategyGenerative, cfg.Answer.Strategy)
	assert.Equal(t, "test-key", cfg.Answer.GeminiAPIKey)
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	base := func() *Config {
		return &Config{
			Port:       "5000",
			Answer:     AnswerConfig{Strategy: StrategyExact},
			Escalation: EscalationConfig{Policy: PolicyAuto, TimeZone: "UTC", NotifyTimeout: time.Second, MaxInflight: 1},
			Transcript: TranscriptConfig{QueueSize: 1},
		}
	}

	require.NoError(t, base().Validate())

	cfg := base()
	cfg.Answer.Strategy = "fuzzy"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Escalation.Policy = "both"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Escalation.TimeZone = "Mars/Olympus_Mons"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Port = ""
	assert.Error(t, cfg.Validate())
}

func TestLocationLocal(t *testing.T) {
	cfg := &Config{Escalation: EscalationConfig{TimeZone: "Local"}}
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestEnvHelpersFallBackOnGarbage(t *testing.T) {
	t.Setenv("X_INT", "nope")
	t.Setenv("X_DUR", "soon")
	t.Setenv("X_BOOL", "maybe")

	assert.Equal(t, 7, getEnvInt("X_INT", 7))
	assert.Equal(t, time.Minute, getEnvDuration("X_DUR", time.Minute))
	assert.True(t, getEnvBool("X_BOOL", true))
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
}

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}
