package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	BaseDir              string `env:"BILAN_BASE_DIR" envDefault:"."`
	Port                 int    `env:"PORT" envDefault:"5000"`
	LogLevel             string `env:"LOG_LEVEL" envDefault:"info"`
	QuestionnaireBaseURL string `env:"QUESTIONNAIRE_BASE_URL" envDefault:""`
	PollIntervalMs       int    `env:"POLL_INTERVAL_MS" envDefault:"1000"`
	RateLimitPerMin      int    `env:"RATE_LIMIT_PER_MIN" envDefault:"120"`
	AITimeoutSeconds     int    `env:"AI_TIMEOUT_SECONDS" envDefault:"60"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) PollInterval() time.Duration {
	if c.PollIntervalMs <= 0 {
		return DefaultPollInterval
	}
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AITimeoutSeconds) * time.Second
}

// Paths resolves every on-disk location from BaseDir.
func (c *Config) Paths() Paths {
	return NewPaths(c.BaseDir)
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseDir) == "" {
		return fmt.Errorf("BILAN_BASE_DIR must not be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.QuestionnaireBaseURL != "" && !strings.HasPrefix(c.QuestionnaireBaseURL, "http") {
		return fmt.Errorf("QUESTIONNAIRE_BASE_URL must be an http(s) URL")
	}
	if c.RateLimitPerMin <= 0 {
		log.Warn().Int("rateLimitPerMin", c.RateLimitPerMin).Msg("RATE_LIMIT_PER_MIN is not positive: using default")
		c.RateLimitPerMin = DefaultRateLimitPerMin
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

type Paths struct {
	Base             string
	ConfigDir        string
	SettingsFile     string
	LogoFile         string
	QuestionnaireDir string
	SecretFile       string
	PromptFile       string
	SessionsDir      string
}

func NewPaths(base string) Paths {
	configDir := filepath.Join(base, "config")
	return Paths{
		Base:             base,
		ConfigDir:        configDir,
		SettingsFile:     filepath.Join(configDir, "settings.json"),
		LogoFile:         filepath.Join(configDir, "img", "logo.png"),
		QuestionnaireDir: filepath.Join(configDir, "questionnaires"),
		SecretFile:       filepath.Join(configDir, "qr_secret.key"),
		PromptFile:       filepath.Join(configDir, "prompts", "promptvigilance.txt"),
		SessionsDir:      filepath.Join(base, "data", "sessions"),
	}
}
