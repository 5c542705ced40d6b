package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/invoice-cli/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Processing ProcessingConfig `yaml:"processing" mapstructure:"processing"`
	Ingest     IngestConfig     `yaml:"ingest" mapstructure:"ingest"`
	Export     ExportConfig     `yaml:"export" mapstructure:"export"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings for the extraction call.
type AnthropicConfig struct {
	Key              string  `yaml:"key" mapstructure:"key"`
	Model            string  `yaml:"model" mapstructure:"model"`
	MaxTokens        int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature      float64 `yaml:"temperature" mapstructure:"temperature"`
	RequestsPerMin   int     `yaml:"requests_per_min" mapstructure:"requests_per_min"`
	MaxRetries       int     `yaml:"max_retries" mapstructure:"max_retries"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	ExtractionPrompt string  `yaml:"extraction_prompt" mapstructure:"extraction_prompt"`
}

// ProcessingConfig configures the extraction pipeline: which fields count
// toward the confidence score and which rules the validator applies.
// RulesFile, when set, replaces the built-in rule table.
type ProcessingConfig struct {
	Fields    model.FieldSets `yaml:"fields" mapstructure:"fields"`
	RulesFile string          `yaml:"rules_file" mapstructure:"rules_file"`
}

// IngestConfig configures input file acceptance.
type IngestConfig struct {
	MaxFileSizeMB int      `yaml:"max_file_size_mb" mapstructure:"max_file_size_mb"`
	Formats       []string `yaml:"formats" mapstructure:"formats"`
	FTPInboxURL   string   `yaml:"ftp_inbox_url" mapstructure:"ftp_inbox_url"`
}

// ExportConfig configures report generation.
type ExportConfig struct {
	Dir       string `yaml:"dir" mapstructure:"dir"`
	SheetName string `yaml:"sheet_name" mapstructure:"sheet_name"`
}

// BatchConfig configures batch processing. Failed documents are recorded
// under DeadLetterDir for later retry.
type BatchConfig struct {
	MaxConcurrentFiles int    `yaml:"max_concurrent_files" mapstructure:"max_concurrent_files"`
	DeadLetterDir      string `yaml:"dead_letter_dir" mapstructure:"dead_letter_dir"`
}

// ServerConfig configures the HTTP API.
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
	v.SetEnvPrefix("INVOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "invoices.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.max_concurrent_files", 5)
	v.SetDefault("batch.dead_letter_dir", "deadletter")
	v.SetDefault("anthropic.max_retries", 3)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.temperature", 0.1)
	v.SetDefault("anthropic.requests_per_min", 60)
	v.SetDefault("anthropic.timeout_secs", 300)
	v.SetDefault("ingest.max_file_size_mb", 50)
	v.SetDefault("ingest.formats", []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".pdf"})
	v.SetDefault("export.dir", "exports")
	v.SetDefault("export.sheet_name", "Invoice_Data")
	v.SetDefault("processing.fields.required", model.DefaultFieldSets().Required)
	v.SetDefault("processing.fields.optional", model.DefaultFieldSets().Optional)

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

// Rules returns the compiled validation rule set: the rules file when
// configured, the built-in table otherwise.
func (c *Config) Rules() (*model.RuleSet, error) {
	if c.Processing.RulesFile == "" {
		return model.NewRuleSet(model.DefaultRules()), nil
	}
	rules, err := LoadRules(c.Processing.RulesFile)
	if err != nil {
		return nil, err
	}
	return model.NewRuleSet(rules), nil
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
