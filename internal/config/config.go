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
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Data    DataConfig    `yaml:"data" mapstructure:"data"`
	Export  ExportConfig  `yaml:"export" mapstructure:"export"`
	Chart   ChartConfig   `yaml:"chart" mapstructure:"chart"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Session SessionConfig `yaml:"session" mapstructure:"session"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the dashboard HTTP server.
type ServerConfig struct {
	Port            int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins  []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	MaxUploadBytes  int64    `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
	UploadRatePerS  float64  `yaml:"upload_rate_per_sec" mapstructure:"upload_rate_per_sec"`
	UploadBurst     int      `yaml:"upload_burst" mapstructure:"upload_burst"`
	ShutdownTimeout int      `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
}

// StoreConfig configures the activity-log backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// DataConfig names the columns the pipeline operates on.
type DataConfig struct {
	OutcomeColumn string `yaml:"outcome_column" mapstructure:"outcome_column"`
	AgeColumn     string `yaml:"age_column" mapstructure:"age_column"`
	JobColumn     string `yaml:"job_column" mapstructure:"job_column"`
	MaritalColumn string `yaml:"marital_column" mapstructure:"marital_column"`
}

// ExportConfig configures spreadsheet output.
type ExportConfig struct {
	SheetName        string `yaml:"sheet_name" mapstructure:"sheet_name"`
	DownloadFilename string `yaml:"download_filename" mapstructure:"download_filename"`
}

// ChartConfig sizes the rendered charts.
type ChartConfig struct {
	Width  int `yaml:"width" mapstructure:"width"`
	Height int `yaml:"height" mapstructure:"height"`
}

// CacheConfig bounds the memoization cache.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries" mapstructure:"max_entries"`
}

// SessionConfig configures session lifetime.
type SessionConfig struct {
	TTLMinutes int `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
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
	v.SetEnvPrefix("CAMPAIGNLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_bytes", 32<<20)
	v.SetDefault("server.upload_rate_per_sec", 1.0)
	v.SetDefault("server.upload_burst", 5)
	v.SetDefault("server.shutdown_timeout_secs", 10)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "campaignlens.db")
	v.SetDefault("data.outcome_column", "y")
	v.SetDefault("data.age_column", "age")
	v.SetDefault("data.job_column", "job")
	v.SetDefault("data.marital_column", "marital")
	v.SetDefault("export.sheet_name", "Sheet1")
	v.SetDefault("export.download_filename", "filtered_data.xlsx")
	v.SetDefault("chart.width", 600)
	v.SetDefault("chart.height", 400)
	v.SetDefault("cache.max_entries", 64)
	v.SetDefault("session.ttl_minutes", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the configuration for the given run mode.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Server.MaxUploadBytes <= 0 {
			problems = append(problems, "server.max_upload_bytes must be > 0")
		}
		if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" && c.Store.Driver != "none" {
			problems = append(problems, "store.driver must be sqlite, postgres, or none")
		}
		if c.Store.Driver != "none" && c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	case "report", "inspect":
		// File-to-file modes need only column names, checked below.
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Data.OutcomeColumn == "" {
		problems = append(problems, "data.outcome_column is required")
	}
	if c.Data.AgeColumn == "" {
		problems = append(problems, "data.age_column is required")
	}
	if c.Chart.Width <= 0 || c.Chart.Height <= 0 {
		problems = append(problems, "chart.width and chart.height must be > 0")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
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
