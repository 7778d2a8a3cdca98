package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mhollert/bret/internal/backtest"
	"github.com/mhollert/bret/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	Strategy    StrategyConfig `mapstructure:"strategy"`
	Data        DataConfig     `mapstructure:"data"`
	Instruments []string       `mapstructure:"instruments"`
	Archive     ArchiveConfig  `mapstructure:"archive"`
	Server      ServerConfig   `mapstructure:"server"`
	Metrics     MetricsConfig  `mapstructure:"metrics"`
	LLM         LLMConfig      `mapstructure:"llm"`
}

// StrategyConfig holds the breakout-and-retest rule parameters.
type StrategyConfig struct {
	Lookback        int     `mapstructure:"lookback"`
	RetestLookahead int     `mapstructure:"retest_lookahead"`
	InitialBalance  float64 `mapstructure:"initial_balance"`
	RiskPerTrade    float64 `mapstructure:"risk_per_trade"`
	RewardRisk      float64 `mapstructure:"reward_risk"`
}

// DataConfig holds the bar acquisition settings.
type DataConfig struct {
	Provider  string      `mapstructure:"provider"` // "binance" or "csv"
	Timeframe string      `mapstructure:"timeframe"`
	Bars      int         `mapstructure:"bars"`
	CSVDir    string      `mapstructure:"csv_dir"` // for the csv provider
	Cache     CacheConfig `mapstructure:"cache"`
}

// CacheConfig holds the local bar cache settings.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Path    string        `mapstructure:"path"`
	MaxAge  time.Duration `mapstructure:"max_age"`
}

// ArchiveConfig holds run artifact storage settings.
type ArchiveConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Type    string   `mapstructure:"type"` // "localfs" or "s3"
	Path    string   `mapstructure:"path"` // For localfs
	S3      S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	APIKey      string `mapstructure:"api_key"`
	JobTTLHours int    `mapstructure:"job_ttl_hours"`
	MaxJobs     int    `mapstructure:"max_jobs"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LLMConfig struct {
	Provider string       `mapstructure:"provider"`
	Claude   ClaudeConfig `mapstructure:"claude"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
	Ollama   OllamaConfig `mapstructure:"ollama"`
}

type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	// Best-effort .env load for local development
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Strategy: StrategyConfig{
			Lookback:        40,
			RetestLookahead: 20,
			InitialBalance:  10000,
			RiskPerTrade:    0.01,
			RewardRisk:      2.0,
		},
		Data: DataConfig{
			Provider:  "binance",
			Timeframe: "1h",
			Bars:      5000,
			Cache: CacheConfig{
				Path:   "bret-cache.db",
				MaxAge: 24 * time.Hour,
			},
		},
		Archive: ArchiveConfig{
			Type: "localfs",
			Path: "runs",
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			JobTTLHours: 1,
			MaxJobs:     100,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Params converts the strategy section into rule parameters.
func (c *Config) Params() backtest.Params {
	return backtest.Params{
		Lookback:        c.Strategy.Lookback,
		RetestLookahead: c.Strategy.RetestLookahead,
		InitialBalance:  c.Strategy.InitialBalance,
		RiskPerTrade:    c.Strategy.RiskPerTrade,
		RewardRisk:      c.Strategy.RewardRisk,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Strategy validation reuses the rule parameter ranges
	if err := c.Params().Validate(); err != nil {
		return err
	}

	// Data validation
	switch c.Data.Provider {
	case "binance", "csv":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown data provider %q", c.Data.Provider))
	}
	if c.Data.Provider == "csv" && c.Data.CSVDir == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("csv_dir required when provider is csv"))
	}
	if !core.Timeframe(c.Data.Timeframe).IsValid() {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown timeframe %q", c.Data.Timeframe))
	}
	if min := c.Params().MinBars(); c.Data.Bars < min {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("bars must be at least lookback+retest_lookahead+1 = %d, got %d", min, c.Data.Bars))
	}
	if c.Data.Cache.Enabled && c.Data.Cache.Path == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("cache path required when cache is enabled"))
	}

	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	// Archive validation
	if c.Archive.Enabled {
		switch c.Archive.Type {
		case "localfs":
			if c.Archive.Path == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("archive path required for localfs"))
			}
		case "s3":
			if c.Archive.S3.Bucket == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("s3 bucket required when archive type is s3"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown archive type %q", c.Archive.Type))
		}
	}

	// LLM validation - if provider set, check config exists
	if c.LLM.Provider != "" {
		switch c.LLM.Provider {
		case "claude":
			if c.LLM.Claude.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("claude api_key required when provider is claude"))
			}
		case "openai":
			if c.LLM.OpenAI.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("openai api_key required when provider is openai"))
			}
		case "ollama":
			if c.LLM.Ollama.Endpoint == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("ollama endpoint required when provider is ollama"))
			}
		}
	}

	return nil
}
