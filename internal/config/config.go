package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/modguard/modguard/internal/policy"
	"github.com/modguard/modguard/internal/window"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken              string           `yaml:"discord_token"`
	DatabasePath              string           `yaml:"database_path"`
	LogLevel                  string           `yaml:"log_level"`
	DefaultSecurityLogChannel string           `yaml:"default_security_log_channel"`
	RetentionDays             int              `yaml:"retention_days"`
	RulePreset                string           `yaml:"rule_preset"`
	Health                    HealthConfig     `yaml:"health"`
	Moderation                ModerationConfig `yaml:"moderation"`
	Windows                   WindowConfig     `yaml:"windows"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// ModerationConfig seeds the per-guild policy row for guilds that have never
// been configured. Guild settings stored in the database take precedence.
type ModerationConfig struct {
	AutoWarn       bool       `yaml:"auto_warn"`
	AutoEscalation bool       `yaml:"auto_escalation"`
	DeleteMessages bool       `yaml:"delete_messages"`
	MaxMentions    int        `yaml:"max_mentions"`
	TimeoutMinutes int        `yaml:"timeout_minutes"`
	WarningTTLDays int        `yaml:"warning_ttl_days"`
	Thresholds     Thresholds `yaml:"thresholds"`
}

type Thresholds struct {
	Warn    int `yaml:"warn"`
	Timeout int `yaml:"timeout"`
	Kick    int `yaml:"kick"`
	Ban     int `yaml:"ban"`
}

type WindowConfig struct {
	LinkWindowSeconds   int `yaml:"link_window_seconds"`
	MaxLinks            int `yaml:"max_links"`
	DupWindowSeconds    int `yaml:"dup_window_seconds"`
	DupChannelThreshold int `yaml:"dup_channel_threshold"`
	MaxEntries          int `yaml:"max_entries"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath:              "/data/modguard.db",
		LogLevel:                  "info",
		RetentionDays:             30,
		RulePreset:                "standard",
		DefaultSecurityLogChannel: "",
		Health:                    HealthConfig{Enabled: false, Addr: ":8080"},
		Moderation: ModerationConfig{
			AutoWarn:       true,
			AutoEscalation: true,
			DeleteMessages: true,
			MaxMentions:    8,
			TimeoutMinutes: 60,
			WarningTTLDays: 30,
			Thresholds:     Thresholds{Warn: 1, Timeout: 3, Kick: 5, Ban: 7},
		},
		Windows: WindowConfig{
			LinkWindowSeconds:   60,
			MaxLinks:            3,
			DupWindowSeconds:    300,
			DupChannelThreshold: 3,
			MaxEntries:          10000,
		},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}

	cfg.RulePreset = normalizePreset(cfg.RulePreset)
	applyPreset(&cfg)

	return cfg, nil
}

// PolicyDefaults returns the factory used for guilds with no stored settings.
func (c Config) PolicyDefaults() func(string) policy.Policy {
	return func(guildID string) policy.Policy {
		p := policy.Default(guildID)
		p.AutoWarn = c.Moderation.AutoWarn
		p.AutoEscalation = c.Moderation.AutoEscalation
		p.DeleteMessages = c.Moderation.DeleteMessages
		p.MaxMentions = c.Moderation.MaxMentions
		p.TimeoutMinutes = c.Moderation.TimeoutMinutes
		p.WarningTTL = time.Duration(c.Moderation.WarningTTLDays) * 24 * time.Hour
		p.Thresholds = policy.Thresholds{
			Warn:    c.Moderation.Thresholds.Warn,
			Timeout: c.Moderation.Thresholds.Timeout,
			Kick:    c.Moderation.Thresholds.Kick,
			Ban:     c.Moderation.Thresholds.Ban,
		}
		return p
	}
}

// TrackerConfig converts the yaml window knobs into a window.Config.
func (c Config) TrackerConfig() window.Config {
	wc := window.DefaultConfig()
	if c.Windows.LinkWindowSeconds > 0 {
		wc.Window = time.Duration(c.Windows.LinkWindowSeconds) * time.Second
	}
	if c.Windows.MaxLinks > 0 {
		wc.MaxLinks = c.Windows.MaxLinks
	}
	if c.Windows.DupWindowSeconds > 0 {
		wc.DupWindow = time.Duration(c.Windows.DupWindowSeconds) * time.Second
	}
	if c.Windows.DupChannelThreshold > 0 {
		wc.DupChannelThreshold = c.Windows.DupChannelThreshold
	}
	if c.Windows.MaxEntries > 0 {
		wc.MaxEntries = c.Windows.MaxEntries
	}
	return wc
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.DefaultSecurityLogChannel = envString("DEFAULT_SECURITY_LOG_CHANNEL", cfg.DefaultSecurityLogChannel)
	cfg.RetentionDays = envInt("RETENTION_DAYS", cfg.RetentionDays)
	cfg.RulePreset = envString("RULE_PRESET", cfg.RulePreset)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Moderation.AutoWarn = envBool("AUTO_WARN", cfg.Moderation.AutoWarn)
	cfg.Moderation.AutoEscalation = envBool("AUTO_ESCALATION", cfg.Moderation.AutoEscalation)
	cfg.Moderation.DeleteMessages = envBool("DELETE_MESSAGES", cfg.Moderation.DeleteMessages)
	cfg.Moderation.MaxMentions = envInt("MAX_MENTIONS", cfg.Moderation.MaxMentions)
	cfg.Moderation.TimeoutMinutes = envInt("TIMEOUT_MINUTES", cfg.Moderation.TimeoutMinutes)
	cfg.Moderation.WarningTTLDays = envInt("WARNING_TTL_DAYS", cfg.Moderation.WarningTTLDays)
	cfg.Windows.LinkWindowSeconds = envInt("LINK_WINDOW_SECONDS", cfg.Windows.LinkWindowSeconds)
	cfg.Windows.MaxLinks = envInt("MAX_LINKS", cfg.Windows.MaxLinks)
	cfg.Windows.DupWindowSeconds = envInt("DUP_WINDOW_SECONDS", cfg.Windows.DupWindowSeconds)
	cfg.Windows.DupChannelThreshold = envInt("DUP_CHANNEL_THRESHOLD", cfg.Windows.DupChannelThreshold)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}

func normalizePreset(value string) string {
	switch strings.ToLower(value) {
	case "lenient", "standard", "strict":
		return strings.ToLower(value)
	default:
		return "standard"
	}
}

// applyPreset replaces thresholds and limits with the preset values. The
// standard preset keeps whatever yaml and env resolved to.
func applyPreset(cfg *Config) {
	switch cfg.RulePreset {
	case "lenient":
		cfg.Moderation.Thresholds = Thresholds{Warn: 2, Timeout: 5, Kick: 8, Ban: 12}
		cfg.Windows.MaxLinks = 5
		cfg.Moderation.MaxMentions = 12
	case "strict":
		cfg.Moderation.Thresholds = Thresholds{Warn: 1, Timeout: 2, Kick: 4, Ban: 6}
		cfg.Windows.MaxLinks = 2
		cfg.Moderation.MaxMentions = 5
	}
}
