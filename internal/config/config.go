package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Export   ExportConfig   `mapstructure:"export"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// ExportConfig holds the export-engine knobs that are policy rather than
// code: the label stamped on artifacts, deductibility defaults, and the
// mileage rate table. Rates are keyed by tax year.
type ExportConfig struct {
	AppLabel             string             `mapstructure:"app_label"`
	Currency             string             `mapstructure:"currency"`
	Basis                string             `mapstructure:"basis"`
	DefaultMealsPercent  float64            `mapstructure:"default_meals_percent"`
	AssetReviewThreshold float64            `mapstructure:"asset_review_threshold"`
	NotesTruncateLen     int                `mapstructure:"notes_truncate_len"`
	MileageRates         map[string]float64 `mapstructure:"mileage_rates"`
	SchemaVersion        string             `mapstructure:"schema_version"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/gigledger.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	// Export defaults
	viper.SetDefault("export.app_label", "GigLedger")
	viper.SetDefault("export.currency", "USD")
	viper.SetDefault("export.basis", "cash")
	viper.SetDefault("export.default_meals_percent", 0.5)
	viper.SetDefault("export.asset_review_threshold", 2500.0)
	viper.SetDefault("export.notes_truncate_len", 60)
	viper.SetDefault("export.schema_version", "2024.1")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("database.path", "DATABASE_PATH")
	viper.BindEnv("logger.level", "LOG_LEVEL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Export.Currency != "USD" {
		return fmt.Errorf("export.currency must be USD, got %q", c.Export.Currency)
	}
	if c.Export.Basis != "cash" {
		return fmt.Errorf("export.basis must be cash, got %q", c.Export.Basis)
	}
	if c.Export.DefaultMealsPercent < 0 || c.Export.DefaultMealsPercent > 1 {
		return fmt.Errorf("export.default_meals_percent must be in [0, 1], got %v", c.Export.DefaultMealsPercent)
	}
	if c.Export.AssetReviewThreshold < 0 {
		return fmt.Errorf("export.asset_review_threshold must not be negative, got %v", c.Export.AssetReviewThreshold)
	}
	for year, rate := range c.Export.MileageRates {
		if rate <= 0 {
			return fmt.Errorf("export.mileage_rates[%s] must be positive, got %v", year, rate)
		}
	}
	return nil
}
