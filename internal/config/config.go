// Package config loads runtime configuration from an optional YAML file
// and STORYPRESS_-prefixed environment variables. Credentials and
// service keys are only ever supplied this way, never hardcoded.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	// BaseURL is the story application under automation.
	BaseURL string `mapstructure:"base_url"`
	// StoriesDir is the root holding one sub-directory per story.
	StoriesDir string `mapstructure:"stories_dir"`

	// Login credentials for the identity provider sub-flow.
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`

	Headless   bool   `mapstructure:"headless"`
	BrowserBin string `mapstructure:"browser_bin"`

	// ImplicitTag is applied by the app itself and never re-submitted.
	ImplicitTag string `mapstructure:"implicit_tag"`

	// HistoryDB is the SQLite file recording per-run summaries.
	HistoryDB string `mapstructure:"history_db"`
	// LogDir receives one JSON log file per run; empty disables file
	// logging.
	LogDir string `mapstructure:"log_dir"`

	Poll    Poll    `mapstructure:"poll"`
	Migrate Migrate `mapstructure:"migrate"`
}

// Poll overrides the readiness-wait budgets. Zero values keep the
// built-in defaults; intervals are milliseconds.
type Poll struct {
	SettleMs         int `mapstructure:"settle_ms"`
	ProbeIntervalMs  int `mapstructure:"probe_interval_ms"`
	ProbeAttempts    int `mapstructure:"probe_attempts"`
	StandardInterval int `mapstructure:"standard_interval_ms"`
	StandardAttempts int `mapstructure:"standard_attempts"`
	EditorIntervalMs int `mapstructure:"editor_interval_ms"`
	EditorAttempts   int `mapstructure:"editor_attempts"`
	LoginIntervalMs  int `mapstructure:"login_interval_ms"`
	LoginAttempts    int `mapstructure:"login_attempts"`
}

// Migrate configures the record copy between two backend environments.
type Migrate struct {
	SourceURL    string `mapstructure:"source_url"`
	SourceKey    string `mapstructure:"source_key"`
	TargetURL    string `mapstructure:"target_url"`
	TargetKey    string `mapstructure:"target_key"`
	TargetUserID string `mapstructure:"target_user_id"`
}

// Load reads configuration, lowest precedence first: defaults, then an
// optional config file (storypress.yaml or --config), then environment.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("base_url", "https://dev.icraftstories.com")
	v.SetDefault("stories_dir", "stories")
	v.SetDefault("email", "")
	v.SetDefault("password", "")
	v.SetDefault("headless", false)
	v.SetDefault("browser_bin", "")
	v.SetDefault("implicit_tag", "english")
	v.SetDefault("history_db", ".storypress/history.db")
	v.SetDefault("log_dir", ".storypress/logs")

	v.SetDefault("poll.settle_ms", 0)
	v.SetDefault("poll.probe_interval_ms", 0)
	v.SetDefault("poll.probe_attempts", 0)
	v.SetDefault("poll.standard_interval_ms", 0)
	v.SetDefault("poll.standard_attempts", 0)
	v.SetDefault("poll.editor_interval_ms", 0)
	v.SetDefault("poll.editor_attempts", 0)
	v.SetDefault("poll.login_interval_ms", 0)
	v.SetDefault("poll.login_attempts", 0)

	v.SetDefault("migrate.source_url", "")
	v.SetDefault("migrate.source_key", "")
	v.SetDefault("migrate.target_url", "")
	v.SetDefault("migrate.target_key", "")
	v.SetDefault("migrate.target_user_id", "")

	v.SetEnvPrefix("STORYPRESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("storypress")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.storypress")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// ValidateUpload checks everything the upload command needs up front so
// a misconfiguration fails before a browser is launched.
func (c *Config) ValidateUpload() error {
	var missing []string
	if c.BaseURL == "" {
		missing = append(missing, "base_url")
	}
	if c.StoriesDir == "" {
		missing = append(missing, "stories_dir")
	}
	if c.Email == "" {
		missing = append(missing, "email (STORYPRESS_EMAIL)")
	}
	if c.Password == "" {
		missing = append(missing, "password (STORYPRESS_PASSWORD)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ValidateMigrate checks the record-copy configuration.
func (c *Config) ValidateMigrate() error {
	m := c.Migrate
	var missing []string
	if m.SourceURL == "" {
		missing = append(missing, "migrate.source_url")
	}
	if m.SourceKey == "" {
		missing = append(missing, "migrate.source_key (STORYPRESS_MIGRATE_SOURCE_KEY)")
	}
	if m.TargetURL == "" {
		missing = append(missing, "migrate.target_url")
	}
	if m.TargetKey == "" {
		missing = append(missing, "migrate.target_key (STORYPRESS_MIGRATE_TARGET_KEY)")
	}
	if m.TargetUserID == "" {
		missing = append(missing, "migrate.target_user_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	return nil
}
