package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Engine    EngineConfig    `yaml:"engine" mapstructure:"engine"`
	Session   SessionConfig   `yaml:"session" mapstructure:"session"`
	Trace     TraceConfig     `yaml:"trace" mapstructure:"trace"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key           string  `yaml:"key" mapstructure:"key"`
	HaikuModel    string  `yaml:"haiku_model" mapstructure:"haiku_model"`
	SonnetModel   string  `yaml:"sonnet_model" mapstructure:"sonnet_model"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	RateBurst     int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// EngineConfig configures the refinement loop.
type EngineConfig struct {
	MaxIterations    int    `yaml:"max_iterations" mapstructure:"max_iterations"`
	QualityThreshold int    `yaml:"quality_threshold" mapstructure:"quality_threshold"`
	PerspectivesFile string `yaml:"perspectives_file" mapstructure:"perspectives_file"`
}

// SessionConfig configures session retention.
type SessionConfig struct {
	TTLMinutes int `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
}

// TraceConfig configures the decision audit trail.
type TraceConfig struct {
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
	QueueSize  int    `yaml:"queue_size" mapstructure:"queue_size"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RESUMEWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.haiku_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.sonnet_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.rate_per_second", 2.0)
	v.SetDefault("anthropic.rate_burst", 4)
	v.SetDefault("engine.max_iterations", 5)
	v.SetDefault("engine.quality_threshold", 90)
	v.SetDefault("session.ttl_minutes", 120)
	v.SetDefault("trace.queue_size", 256)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Validate checks that configuration required for the given mode is present.
// Modes: "refine" (one-shot CLI), "serve" (HTTP server), "sessions".
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	switch mode {
	case "refine", "serve":
		check(c.Anthropic.Key != "", "anthropic.key is required")
		check(c.Engine.MaxIterations >= 1 && c.Engine.MaxIterations <= 10,
			"engine.max_iterations must be between 1 and 10")
		check(c.Engine.QualityThreshold >= 1 && c.Engine.QualityThreshold <= 100,
			"engine.quality_threshold must be between 1 and 100")
		check(c.Anthropic.RatePerSecond > 0, "anthropic.rate_per_second must be > 0")
		if mode == "serve" {
			check(c.Server.Port > 0, "server.port must be > 0")
			check(c.Session.TTLMinutes > 0, "session.ttl_minutes must be > 0")
		}
	case "sessions":
		// Reads local state only; nothing to validate.
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}
