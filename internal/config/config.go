// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // business-hours zones must resolve in minimal containers
)

// Answer strategies.
const (
	StrategyExact      = "exact"
	StrategyGenerative = "generative"
)

// Escalation policies.
const (
	PolicyCollectContact = "collect_contact"
	PolicyAuto           = "auto"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	LogLevel       slog.Level
	FAQPath        string
	AllowedOrigins []string

	Answer      AnswerConfig
	DatabaseURL string // empty disables email persistence
	SMTP        SMTPConfig
	Escalation  EscalationConfig
	Transcript  TranscriptConfig
}

// AnswerConfig selects and configures the answer generator.
type AnswerConfig struct {
	Strategy          string
	GeminiAPIKey      string
	GeminiModel       string
	GenerationTimeout time.Duration
}

// SMTPConfig configures the outbound email channel.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether enough is set to send mail.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.From != ""
}

// EscalationConfig controls how unanswered questions reach support.
type EscalationConfig struct {
	Policy        string
	SupportEmail  string
	WebhookURL    string
	TimeZone      string
	NotifyTimeout time.Duration
	MaxInflight   int
}

// TranscriptConfig controls per-session NDJSON transcripts.
type TranscriptConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	apiKey := getEnv("GEMINI_API_KEY", "")
	defaultStrategy := StrategyExact
	if apiKey != "" {
		defaultStrategy = StrategyGenerative
	}

	smtpUser := getEnv("SMTP_USERNAME", "")

	cfg := &Config{
		Port:           getEnv("PORT", "5000"),
		LogLevel:       parseLevel(getEnv("LOG_LEVEL", "info")),
		FAQPath:        getEnv("FAQ_FILE_PATH", "./faqs.json"),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		Answer: AnswerConfig{
			Strategy:          strings.ToLower(getEnv("ANSWER_STRATEGY", defaultStrategy)),
			GeminiAPIKey:      apiKey,
			GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			GenerationTimeout: getEnvDuration("GENERATION_TIMEOUT", 20*time.Second),
		},
		DatabaseURL: getEnv("DATABASE_URL", ""),
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: smtpUser,
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", smtpUser),
		},
		Escalation: EscalationConfig{
			Policy:        strings.ToLower(getEnv("ESCALATION_POLICY", PolicyCollectContact)),
			SupportEmail:  getEnv("SUPPORT_EMAIL", "support@blackbeltprep.com"),
			WebhookURL:    getEnv("SUPPORT_WEBHOOK_URL", ""),
			TimeZone:      getEnv("BUSINESS_TIMEZONE", "America/New_York"),
			NotifyTimeout: getEnvDuration("NOTIFY_TIMEOUT", 10*time.Second),
			MaxInflight:   getEnvInt("NOTIFY_MAX_INFLIGHT", 8),
		},
		Transcript: TranscriptConfig{
			Enabled:   getEnvBool("TRANSCRIPT_LOG_ENABLED", false),
			Dir:       getEnv("TRANSCRIPT_LOG_DIR", "./data/transcripts"),
			QueueSize: getEnvInt("TRANSCRIPT_LOG_QUEUE_SIZE", 1000),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.Answer.Strategy {
	case StrategyExact, StrategyGenerative:
	default:
		return fmt.Errorf("ANSWER_STRATEGY must be %q or %q, got %q", StrategyExact, StrategyGenerative, c.Answer.Strategy)
	}
	switch c.Escalation.Policy {
	case PolicyCollectContact, PolicyAuto:
	default:
		return fmt.Errorf("ESCALATION_POLICY must be %q or %q, got %q", PolicyCollectContact, PolicyAuto, c.Escalation.Policy)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("BUSINESS_TIMEZONE: %w", err)
	}
	if c.Escalation.NotifyTimeout <= 0 {
		return fmt.Errorf("NOTIFY_TIMEOUT must be > 0")
	}
	if c.Escalation.MaxInflight <= 0 {
		return fmt.Errorf("NOTIFY_MAX_INFLIGHT must be > 0")
	}
	if c.Transcript.Enabled && c.Transcript.Dir == "" {
		return fmt.Errorf("TRANSCRIPT_LOG_DIR cannot be empty")
	}
	if c.Transcript.QueueSize <= 0 {
		return fmt.Errorf("TRANSCRIPT_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// Location resolves the business-hours time zone. "Local" (or empty) means
// the process time zone.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Escalation.TimeZone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
