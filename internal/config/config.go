package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Kre8ivTech/client-portal-sub002/internal/ai"
	"github.com/Kre8ivTech/client-portal-sub002/internal/service"
)

type Config struct {
	Env             string        `mapstructure:"ENV"`
	Port            string        `mapstructure:"PORT"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	AdminKey        string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed     string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	LogFile         string        `mapstructure:"LOG_FILE"`
	MaxUploadSizeMB int64         `mapstructure:"MAX_UPLOAD_MB"`
	Timezone        string        `mapstructure:"TIMEZONE"`

	AIProvider  string        `mapstructure:"AI_PROVIDER"`
	AIBaseURL   string        `mapstructure:"AI_BASE_URL"`
	AIModel     string        `mapstructure:"AI_MODEL"`
	AIAPIKey    string        `mapstructure:"AI_API_KEY"`
	AIMaxTokens int           `mapstructure:"AI_MAX_TOKENS"`
	AITimeout   time.Duration `mapstructure:"AI_TIMEOUT"`

	DefaultRateCents       int64  `mapstructure:"DEFAULT_RATE_CENTS"`
	LookaheadDays          int    `mapstructure:"LOOKAHEAD_DAYS"`
	AvailabilityWindowDays int    `mapstructure:"AVAILABILITY_WINDOW_DAYS"`
	HistoryMinSamples      int    `mapstructure:"HISTORY_MIN_SAMPLES"`
	RecomputeConcurrency   int    `mapstructure:"RECOMPUTE_CONCURRENCY"`
	ClassifierRulesPath    string `mapstructure:"CLASSIFIER_RULES_PATH"`
}

// Load reads .env next to the binary and in the working directory, then the
// process environment. Real environment variables win.
func Load() (Config, error) {
	if exe, err := os.Executable(); err == nil {
		_ = godotenv.Load(filepath.Join(filepath.Dir(exe), ".env"))
	}

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	defaults := service.DefaultConfig()
	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("MAX_UPLOAD_MB", 20)
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("AI_PROVIDER", "none")
	v.SetDefault("AI_BASE_URL", "")
	v.SetDefault("AI_MODEL", "")
	v.SetDefault("AI_API_KEY", "")
	v.SetDefault("AI_MAX_TOKENS", 512)
	v.SetDefault("AI_TIMEOUT", defaults.AITimeout.String())
	v.SetDefault("DEFAULT_RATE_CENTS", defaults.DefaultRateCents)
	v.SetDefault("LOOKAHEAD_DAYS", defaults.LookaheadDays)
	v.SetDefault("AVAILABILITY_WINDOW_DAYS", defaults.AvailabilityWindowDays)
	v.SetDefault("HISTORY_MIN_SAMPLES", defaults.HistoryMinSamples)
	v.SetDefault("RECOMPUTE_CONCURRENCY", defaults.RecomputeConcurrency)
	v.SetDefault("CLASSIFIER_RULES_PATH", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Location resolves TIMEZONE, falling back to UTC.
func (c Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) Estimation() service.Config {
	return service.Config{
		DefaultRateCents:       c.DefaultRateCents,
		LookaheadDays:          c.LookaheadDays,
		AvailabilityWindowDays: c.AvailabilityWindowDays,
		HistoryMinSamples:      c.HistoryMinSamples,
		RecomputeConcurrency:   c.RecomputeConcurrency,
		AITimeout:              c.AITimeout,
		Location:               c.Location(),
	}
}

func (c Config) AI() ai.Options {
	return ai.Options{
		Provider:  c.AIProvider,
		BaseURL:   c.AIBaseURL,
		Model:     c.AIModel,
		APIKey:    c.AIAPIKey,
		MaxTokens: c.AIMaxTokens,
	}
}
