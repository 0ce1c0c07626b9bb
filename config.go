package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	providerJService = "jservice"
	providerGemini   = "gemini"
)

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env     string        `mapstructure:"env"`  // local, dev, production
	Port    string        `mapstructure:"port"` // HTTP listen port
	Quiz    QuizConfig    `mapstructure:"quiz"`
	Board   BoardConfig   `mapstructure:"board"`
	Session SessionConfig `mapstructure:"session"`
	GCP     GCPConfig     `mapstructure:"gcp"`
}

// QuizConfig selects and tunes the category provider.
type QuizConfig struct {
	Provider string        `mapstructure:"provider"`  // jservice or gemini
	BaseURL  string        `mapstructure:"base_url"`  // jservice API root
	PoolSize int           `mapstructure:"pool_size"` // categories requested before sampling
	Timeout  time.Duration `mapstructure:"timeout"`   // per request
}

// BoardConfig sets the board dimensions and how it is dealt.
type BoardConfig struct {
	Categories      int    `mapstructure:"categories"`        // columns
	Clues           int    `mapstructure:"clues"`             // rows
	Concurrency     int    `mapstructure:"concurrency"`       // parallel category fetches, 1 is sequential
	OnCategoryError string `mapstructure:"on_category_error"` // abort or placeholder
}

// SessionConfig controls session lifetime and start throttling.
type SessionConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	SweepSchedule   string        `mapstructure:"sweep_schedule"`
	DealTimeout     time.Duration `mapstructure:"deal_timeout"`
	StartsPerMinute int           `mapstructure:"starts_per_minute"`
}

// GCPConfig configures the Gemini provider.
type GCPConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Region    string `mapstructure:"region"`
	Model     string `mapstructure:"model"`
}

// Load reads configuration from an optional .env file, an optional YAML
// config file and the environment. An empty path searches ./config.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
	}

	v.SetDefault("env", "local")
	v.SetDefault("port", "8080")
	v.SetDefault("quiz.provider", providerJService)
	v.SetDefault("quiz.base_url", defaultJServiceURL)
	v.SetDefault("quiz.pool_size", 30)
	v.SetDefault("quiz.timeout", "10s")
	v.SetDefault("board.categories", 6)
	v.SetDefault("board.clues", 5)
	v.SetDefault("board.concurrency", 1)
	v.SetDefault("board.on_category_error", PolicyAbort)
	v.SetDefault("session.ttl", "2h")
	v.SetDefault("session.sweep_schedule", "@every 5m")
	v.SetDefault("session.deal_timeout", "30s")
	v.SetDefault("session.starts_per_minute", 10)
	v.SetDefault("gcp.project_id", "")
	v.SetDefault("gcp.region", defaultRegion)
	v.SetDefault("gcp.model", defaultModel)

	// JEOPARDY_BOARD_CATEGORIES overrides board.categories, and so on.
	v.SetEnvPrefix("jeopardy")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("port", "PORT", "JEOPARDY_PORT")
	_ = v.BindEnv("env", "APP_ENV", "JEOPARDY_ENV")
	_ = v.BindEnv("gcp.project_id", "GCP_PROJECT_ID", "JEOPARDY_GCP_PROJECT_ID")
	_ = v.BindEnv("gcp.region", "GCP_REGION", "JEOPARDY_GCP_REGION")

	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Board.Categories < 1 || c.Board.Clues < 1:
		return fmt.Errorf("board must be at least 1x1, got %dx%d", c.Board.Categories, c.Board.Clues)
	case c.Quiz.PoolSize < c.Board.Categories:
		return fmt.Errorf("quiz.pool_size %d is smaller than board.categories %d", c.Quiz.PoolSize, c.Board.Categories)
	case c.Board.OnCategoryError != PolicyAbort && c.Board.OnCategoryError != PolicyPlaceholder:
		return fmt.Errorf("board.on_category_error must be %q or %q, got %q", PolicyAbort, PolicyPlaceholder, c.Board.OnCategoryError)
	case c.Quiz.Provider != providerJService && c.Quiz.Provider != providerGemini:
		return fmt.Errorf("unknown quiz provider %q", c.Quiz.Provider)
	case c.Quiz.Provider == providerGemini && c.GCP.ProjectID == "":
		return fmt.Errorf("quiz provider %q requires gcp.project_id (GCP_PROJECT_ID)", providerGemini)
	case c.Session.StartsPerMinute < 1:
		return fmt.Errorf("session.starts_per_minute must be positive")
	}
	return nil
}
