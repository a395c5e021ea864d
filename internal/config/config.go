package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Site     SiteConfig     `mapstructure:"site"`
	API      APIConfig      `mapstructure:"api"`
	Runtime  RuntimeConfig  `mapstructure:"runtime"`
	IO       IOConfig       `mapstructure:"io"`
	Output   OutputConfig   `mapstructure:"output"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SiteConfig describes the retailer's public site
type SiteConfig struct {
	WebBaseURL   string `mapstructure:"web_base_url"`
	MenuEndpoint string `mapstructure:"menu_endpoint"`
	NavTitle     string `mapstructure:"nav_title"`
	BrandName    string `mapstructure:"brand_name"`
}

// APIConfig holds endpoint templates and the fixed query parameters of the catalog API
type APIConfig struct {
	CategorySearchTemplate string `mapstructure:"category_search_template"`
	ProductModelTemplate   string `mapstructure:"product_model_template"`
	AvailabilityTemplate   string `mapstructure:"availability_template"`

	StoreID   string `mapstructure:"store_id"`
	CatalogID string `mapstructure:"catalog_id"`
	Currency  string `mapstructure:"currency"`
	LangID    string `mapstructure:"lang_id"`
	OrderBy   string `mapstructure:"order_by"`
	PageSize  int    `mapstructure:"page_size"`
}

// RuntimeConfig holds retry, concurrency and limit knobs
type RuntimeConfig struct {
	RequestRetries       int           `mapstructure:"request_retries"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout"`
	RetryDelay           time.Duration `mapstructure:"retry_delay"`
	MaxRequestsPerSecond int           `mapstructure:"max_requests_per_second"`
	Proxies              []string      `mapstructure:"proxies"`

	// Limit stops the run once this many records were collected. Zero disables it.
	Limit int `mapstructure:"limit"`

	MaxConsecutivePageFailures int    `mapstructure:"max_consecutive_page_failures"`
	FailedPagePolicy           string `mapstructure:"failed_page_policy"`
	AvailabilityWorkers        int    `mapstructure:"availability_workers"`
	AvailabilityBatchSize      int    `mapstructure:"availability_batch_size"`
}

// IOConfig names the input and output destinations
type IOConfig struct {
	MenuInputFile          string `mapstructure:"menu_input_file"`
	MenuLevel              int    `mapstructure:"menu_level"`
	MenuLevelsToExport     int    `mapstructure:"menu_levels_to_export"`
	OutputDir              string `mapstructure:"output_dir"`
	OutputFilenameTemplate string `mapstructure:"output_filename_template"`
	TimestampLayout        string `mapstructure:"timestamp_layout"`
	CrashSaveFilename      string `mapstructure:"crash_save_filename"`
}

// OutputConfig selects the sinks records are written to
type OutputConfig struct {
	Sinks []string `mapstructure:"sinks"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Table    string `mapstructure:"table"`
}

// DSN builds a libpq style connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name)
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	Database  int    `mapstructure:"database"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MetricsConfig controls the optional Prometheus listener
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig selects the logrus level and formatter
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from a YAML file with environment variable overrides.
// An empty path looks for config.yaml in the current directory.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("config.yaml file not found in current directory")
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects configurations the harvester cannot run with
func (c *Config) Validate() error {
	switch {
	case c.API.CategorySearchTemplate == "":
		return fmt.Errorf("api.category_search_template is required")
	case c.API.ProductModelTemplate == "":
		return fmt.Errorf("api.product_model_template is required")
	case c.API.AvailabilityTemplate == "":
		return fmt.Errorf("api.availability_template is required")
	case c.Runtime.RequestRetries <= 0:
		return fmt.Errorf("runtime.request_retries must be positive, got %d", c.Runtime.RequestRetries)
	case c.Runtime.RequestTimeout <= 0:
		return fmt.Errorf("runtime.request_timeout must be positive")
	case c.Runtime.MaxConsecutivePageFailures <= 0:
		return fmt.Errorf("runtime.max_consecutive_page_failures must be positive")
	case c.Runtime.AvailabilityWorkers <= 0:
		return fmt.Errorf("runtime.availability_workers must be positive")
	case c.Runtime.AvailabilityBatchSize <= 0:
		return fmt.Errorf("runtime.availability_batch_size must be positive")
	case c.Runtime.Limit < 0:
		return fmt.Errorf("runtime.limit must not be negative")
	case c.Runtime.FailedPagePolicy != "skip" && c.Runtime.FailedPagePolicy != "retry":
		return fmt.Errorf("runtime.failed_page_policy must be skip or retry, got %q", c.Runtime.FailedPagePolicy)
	}

	for _, sink := range c.Output.Sinks {
		switch sink {
		case "file", "postgres", "redis":
		default:
			return fmt.Errorf("unknown output sink %q", sink)
		}
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("site.web_base_url", "")
	v.SetDefault("site.nav_title", "")
	v.SetDefault("site.brand_name", "catalog")

	v.SetDefault("api.page_size", 100)
	v.SetDefault("api.order_by", "1")

	v.SetDefault("runtime.request_retries", 3)
	v.SetDefault("runtime.request_timeout", 10*time.Second)
	v.SetDefault("runtime.retry_delay", time.Second)
	v.SetDefault("runtime.max_requests_per_second", 0)
	v.SetDefault("runtime.limit", 0)
	v.SetDefault("runtime.max_consecutive_page_failures", 3)
	v.SetDefault("runtime.failed_page_policy", "skip")
	v.SetDefault("runtime.availability_workers", 12)
	v.SetDefault("runtime.availability_batch_size", 200)

	v.SetDefault("io.menu_input_file", "menu_categories.csv")
	v.SetDefault("io.menu_level", 3)
	v.SetDefault("io.menu_levels_to_export", 3)
	v.SetDefault("io.output_dir", ".")
	v.SetDefault("io.output_filename_template", "{brand_name}_products_{timestamp}.csv")
	v.SetDefault("io.timestamp_layout", "2006-01-02_15-04")
	v.SetDefault("io.crash_save_filename", "crash_save.csv")

	v.SetDefault("output.sinks", []string{"file"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "catalog")
	v.SetDefault("database.user", "catalog_user")
	v.SetDefault("database.password", "catalog_pass")
	v.SetDefault("database.table", "product_records")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.key_prefix", "catalog:records:")

	v.SetDefault("metrics.addr", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}
