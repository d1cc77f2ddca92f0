package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Log       LogConfig
	Vision    VisionConfig
	Batch     BatchConfig
	Normalize NormalizeConfig
	Export    ExportConfig
	CORS      CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// VisionConfig holds settings for the vision extraction model.
type VisionConfig struct {
	Provider         string  `mapstructure:"provider"`
	APIKey           string  `mapstructure:"api_key"`
	Model            string  `mapstructure:"model"`
	Temperature      float32 `mapstructure:"temperature"`
	TimeoutSecs      int     `mapstructure:"timeout_secs"`
	MaxRetries       int     `mapstructure:"max_retries"`
	BackoffBaseMS    int     `mapstructure:"backoff_base_ms"`
	InputPricePer1M  float64 `mapstructure:"input_price_per_1m"`
	OutputPricePer1M float64 `mapstructure:"output_price_per_1m"`
}

// BatchConfig holds batch orchestration settings.
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// NormalizeConfig holds field normalization settings.
type NormalizeConfig struct {
	// PreferMinguoOnConflict decides the calendar when a date string
	// carries both a Minguo era marker and a Gregorian-looking year.
	PreferMinguoOnConflict bool `mapstructure:"prefer_minguo_on_conflict"`
}

// ExportConfig holds export settings.
type ExportConfig struct {
	DefaultFormat string `mapstructure:"default_format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from environment variables with the OVERTIME_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("OVERTIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "overtime")
	v.SetDefault("db.password", "overtime_secret")
	v.SetDefault("db.name", "overtime_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// Vision defaults
	v.SetDefault("vision.provider", "openai")
	v.SetDefault("vision.api_key", "")
	v.SetDefault("vision.model", "gpt-5-mini")
	v.SetDefault("vision.temperature", 0.0)
	v.SetDefault("vision.timeout_secs", 120)
	v.SetDefault("vision.max_retries", 3)
	v.SetDefault("vision.backoff_base_ms", 1000)
	v.SetDefault("vision.input_price_per_1m", 0.25)
	v.SetDefault("vision.output_price_per_1m", 2.0)

	// Batch defaults: sequential scheduling bounds peak memory; callers
	// may raise concurrency to at most 3.
	v.SetDefault("batch.concurrency", 1)

	// Normalize defaults
	v.SetDefault("normalize.prefer_minguo_on_conflict", true)

	// Export defaults
	v.SetDefault("export.default_format", "csv")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                         "OVERTIME_SERVER_PORT",
		"server.read_timeout":                 "OVERTIME_SERVER_READ_TIMEOUT",
		"server.write_timeout":                "OVERTIME_SERVER_WRITE_TIMEOUT",
		"server.environment":                  "OVERTIME_SERVER_ENVIRONMENT",
		"db.host":                             "OVERTIME_DB_HOST",
		"db.port":                             "OVERTIME_DB_PORT",
		"db.user":                             "OVERTIME_DB_USER",
		"db.password":                         "OVERTIME_DB_PASSWORD",
		"db.name":                             "OVERTIME_DB_NAME",
		"db.sslmode":                          "OVERTIME_DB_SSLMODE",
		"db.max_open":                         "OVERTIME_DB_MAX_OPEN",
		"db.max_idle":                         "OVERTIME_DB_MAX_IDLE",
		"log.level":                           "OVERTIME_LOG_LEVEL",
		"log.format":                          "OVERTIME_LOG_FORMAT",
		"vision.provider":                     "OVERTIME_VISION_PROVIDER",
		"vision.api_key":                      "OVERTIME_VISION_API_KEY",
		"vision.model":                        "OVERTIME_VISION_MODEL",
		"vision.temperature":                  "OVERTIME_VISION_TEMPERATURE",
		"vision.timeout_secs":                 "OVERTIME_VISION_TIMEOUT_SECS",
		"vision.max_retries":                  "OVERTIME_VISION_MAX_RETRIES",
		"vision.backoff_base_ms":              "OVERTIME_VISION_BACKOFF_BASE_MS",
		"vision.input_price_per_1m":           "OVERTIME_VISION_INPUT_PRICE_PER_1M",
		"vision.output_price_per_1m":          "OVERTIME_VISION_OUTPUT_PRICE_PER_1M",
		"batch.concurrency":                   "OVERTIME_BATCH_CONCURRENCY",
		"normalize.prefer_minguo_on_conflict": "OVERTIME_NORMALIZE_PREFER_MINGUO_ON_CONFLICT",
		"export.default_format":               "OVERTIME_EXPORT_DEFAULT_FORMAT",
		"cors.allowed_origins":                "OVERTIME_CORS_ALLOWED_ORIGINS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if OVERTIME_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("OVERTIME_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Vision = VisionConfig{
		Provider:         v.GetString("vision.provider"),
		APIKey:           v.GetString("vision.api_key"),
		Model:            v.GetString("vision.model"),
		Temperature:      float32(v.GetFloat64("vision.temperature")),
		TimeoutSecs:      v.GetInt("vision.timeout_secs"),
		MaxRetries:       v.GetInt("vision.max_retries"),
		BackoffBaseMS:    v.GetInt("vision.backoff_base_ms"),
		InputPricePer1M:  v.GetFloat64("vision.input_price_per_1m"),
		OutputPricePer1M: v.GetFloat64("vision.output_price_per_1m"),
	}
	cfg.Batch = BatchConfig{
		Concurrency: v.GetInt("batch.concurrency"),
	}
	cfg.Normalize = NormalizeConfig{
		PreferMinguoOnConflict: v.GetBool("normalize.prefer_minguo_on_conflict"),
	}
	cfg.Export = ExportConfig{
		DefaultFormat: v.GetString("export.default_format"),
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: splitAndTrim(v.GetString("cors.allowed_origins")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration invariants up front so misconfiguration
// fails at startup rather than mid-batch.
func (c *Config) Validate() error {
	if c.Vision.MaxRetries < 0 {
		return fmt.Errorf("vision.max_retries must not be negative")
	}
	if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 3 {
		return fmt.Errorf("batch.concurrency must be between 1 and 3, got %d", c.Batch.Concurrency)
	}
	switch c.Export.DefaultFormat {
	case "csv", "xlsx":
	default:
		return fmt.Errorf("export.default_format must be csv or xlsx, got %q", c.Export.DefaultFormat)
	}
	return nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
