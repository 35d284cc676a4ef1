package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const VERSION = "1.4"

type Config struct {
	Database    DatabaseConfig
	Refresh     RefreshConfig
	Fetch       FetchConfig
	Breaker     BreakerConfig
	Render      RenderConfig
	Widget      WidgetConfig
	Tracing     TracingConfig
	Environment string
	LogLevel    string
	Version     string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RefreshConfig drives the background template refresh job
type RefreshConfig struct {
	Enabled bool
	// Schedule is a cron spec, descriptors like "@every 1m" are accepted
	Schedule    string
	Concurrency int
}

type FetchConfig struct {
	Timeout   time.Duration
	UserAgent string
}

type BreakerConfig struct {
	FailureThreshold uint32
	FailureWindow    time.Duration
	ResetTimeout     time.Duration
	SuccessThreshold uint32
}

type RenderConfig struct {
	Timeout         time.Duration
	MaxTemplateSize int
}

type WidgetConfig struct {
	CacheTTL    time.Duration
	FeedTimeout time.Duration
}

type TracingConfig struct {
	Enabled             bool
	ServiceName         string
	SamplingProbability float64

	// Trace exporter configuration
	TraceExporter string // "jaeger", "stackdriver", "zipkin", "datadog", "xray", "none"

	JaegerEndpoint       string
	ZipkinEndpoint       string
	StackdriverProjectID string
	DatadogAgentAddress  string
	DatadogAPIKey        string
	XRayRegion           string

	// Metrics exporter configuration
	MetricsExporter string // "prometheus", "stackdriver", "datadog", "none" or comma-separated list
	PrometheusPort  int
}

// LoadOptions contains options for loading configuration
type LoadOptions struct {
	EnvFile string // Optional environment file to load (e.g., ".env", ".env.test")
}

// Load loads the configuration with default options
func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{EnvFile: ".env"})
}

// LoadWithOptions loads the configuration with the specified options
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	v := viper.New()

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "signage")
	v.SetDefault("DB_SSLMODE", "require")
	v.SetDefault("ENVIRONMENT", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("VERSION", VERSION)

	v.SetDefault("REFRESH_ENABLED", true)
	v.SetDefault("REFRESH_SCHEDULE", "@every 1m")
	v.SetDefault("REFRESH_CONCURRENCY", 1)

	v.SetDefault("FETCH_TIMEOUT", "10s")
	v.SetDefault("FETCH_USER_AGENT", "Vizora-Template/1.0")

	v.SetDefault("BREAKER_FAILURE_THRESHOLD", 3)
	v.SetDefault("BREAKER_FAILURE_WINDOW", "60s")
	v.SetDefault("BREAKER_RESET_TIMEOUT", "30s")
	v.SetDefault("BREAKER_SUCCESS_THRESHOLD", 2)

	v.SetDefault("RENDER_TIMEOUT", "5s")
	v.SetDefault("RENDER_MAX_TEMPLATE_SIZE", 100*1024)

	v.SetDefault("WIDGET_CACHE_TTL", "5m")
	v.SetDefault("WIDGET_FEED_TIMEOUT", "15s")

	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_SERVICE_NAME", "signage-worker")
	v.SetDefault("TRACING_SAMPLING_PROBABILITY", 0.1)
	v.SetDefault("TRACING_TRACE_EXPORTER", "none")
	v.SetDefault("TRACING_JAEGER_ENDPOINT", "http://localhost:14268/api/traces")
	v.SetDefault("TRACING_ZIPKIN_ENDPOINT", "http://localhost:9411/api/v2/spans")
	v.SetDefault("TRACING_STACKDRIVER_PROJECT_ID", "")
	v.SetDefault("TRACING_DATADOG_AGENT_ADDRESS", "localhost:8126")
	v.SetDefault("TRACING_DATADOG_API_KEY", "")
	v.SetDefault("TRACING_XRAY_REGION", "us-west-2")
	v.SetDefault("TRACING_METRICS_EXPORTER", "none")
	v.SetDefault("TRACING_PROMETHEUS_PORT", 9464)

	if opts.EnvFile != "" {
		v.SetConfigName(opts.EnvFile)
		v.SetConfigType("env")

		currentPath, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("error getting current directory: %w", err)
		}

		v.AddConfigPath(currentPath)

		if err := v.ReadInConfig(); err != nil {
			// It's okay if config file doesn't exist
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	config := &Config{
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Refresh: RefreshConfig{
			Enabled:     v.GetBool("REFRESH_ENABLED"),
			Schedule:    v.GetString("REFRESH_SCHEDULE"),
			Concurrency: v.GetInt("REFRESH_CONCURRENCY"),
		},
		Fetch: FetchConfig{
			Timeout:   v.GetDuration("FETCH_TIMEOUT"),
			UserAgent: v.GetString("FETCH_USER_AGENT"),
		},
		Breaker: BreakerConfig{
			FailureThreshold: v.GetUint32("BREAKER_FAILURE_THRESHOLD"),
			FailureWindow:    v.GetDuration("BREAKER_FAILURE_WINDOW"),
			ResetTimeout:     v.GetDuration("BREAKER_RESET_TIMEOUT"),
			SuccessThreshold: v.GetUint32("BREAKER_SUCCESS_THRESHOLD"),
		},
		Render: RenderConfig{
			Timeout:         v.GetDuration("RENDER_TIMEOUT"),
			MaxTemplateSize: v.GetInt("RENDER_MAX_TEMPLATE_SIZE"),
		},
		Widget: WidgetConfig{
			CacheTTL:    v.GetDuration("WIDGET_CACHE_TTL"),
			FeedTimeout: v.GetDuration("WIDGET_FEED_TIMEOUT"),
		},
		Tracing: TracingConfig{
			Enabled:              v.GetBool("TRACING_ENABLED"),
			ServiceName:          v.GetString("TRACING_SERVICE_NAME"),
			SamplingProbability:  v.GetFloat64("TRACING_SAMPLING_PROBABILITY"),
			TraceExporter:        v.GetString("TRACING_TRACE_EXPORTER"),
			JaegerEndpoint:       v.GetString("TRACING_JAEGER_ENDPOINT"),
			ZipkinEndpoint:       v.GetString("TRACING_ZIPKIN_ENDPOINT"),
			StackdriverProjectID: v.GetString("TRACING_STACKDRIVER_PROJECT_ID"),
			DatadogAgentAddress:  v.GetString("TRACING_DATADOG_AGENT_ADDRESS"),
			DatadogAPIKey:        v.GetString("TRACING_DATADOG_API_KEY"),
			XRayRegion:           v.GetString("TRACING_XRAY_REGION"),
			MetricsExporter:      v.GetString("TRACING_METRICS_EXPORTER"),
			PrometheusPort:       v.GetInt("TRACING_PROMETHEUS_PORT"),
		},
		Environment: v.GetString("ENVIRONMENT"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		Version:     v.GetString("VERSION"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects settings the worker cannot run with
func (c *Config) Validate() error {
	if c.Refresh.Concurrency < 1 {
		return fmt.Errorf("REFRESH_CONCURRENCY must be at least 1, got %d", c.Refresh.Concurrency)
	}
	if _, err := cron.ParseStandard(c.Refresh.Schedule); err != nil {
		return fmt.Errorf("invalid REFRESH_SCHEDULE %q: %w", c.Refresh.Schedule, err)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	if c.Breaker.FailureThreshold == 0 || c.Breaker.SuccessThreshold == 0 {
		return fmt.Errorf("breaker thresholds must be positive")
	}
	if c.Render.MaxTemplateSize <= 0 {
		return fmt.Errorf("RENDER_MAX_TEMPLATE_SIZE must be positive")
	}
	return nil
}

// IsDevelopment returns true if the environment is set to development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction gates the https-only policy for outbound template data
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
