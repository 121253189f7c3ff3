package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535

	// EnvBackendURL overrides backend.base_url
	EnvBackendURL = "PIXELDOJO_API_URL"
	// EnvLogLevel overrides logging.level
	EnvLogLevel = "STUDIO_LOG_LEVEL"
	// EnvRabbitMQPassword overrides events.password
	EnvRabbitMQPassword = "RABBITMQ_PASSWORD"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Backend   BackendConfig   `yaml:"backend"`
	Poll      PollConfig      `yaml:"poll"`
	Studio    StudioConfig    `yaml:"studio"`
	Events    EventsConfig    `yaml:"events"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
	App       AppConfig       `yaml:"app"`
}

// ServerConfig holds HTTP server configuration for the studio service
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
}

// BackendConfig holds the generation API location and timeouts
type BackendConfig struct {
	BaseURL         string        `yaml:"base_url"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`
}

// PollConfig controls job status polling. Zero bounds disable them.
type PollConfig struct {
	Interval               time.Duration `yaml:"interval"`
	MaxConsecutiveFailures int           `yaml:"max_consecutive_failures"`
	MaxDuration            time.Duration `yaml:"max_duration"`
}

// StudioConfig holds client defaults
type StudioConfig struct {
	SampleImagePath string `yaml:"sample_image_path"`
	OutputDir       string `yaml:"output_dir"`
	DefaultPrompt   string `yaml:"default_prompt"`
	DefaultDuration int    `yaml:"default_duration"`
}

// EventsConfig holds RabbitMQ lifecycle event publishing configuration
type EventsConfig struct {
	Enabled    bool             `yaml:"enabled"`
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	Timeout           time.Duration `yaml:"timeout"`
}

// TelemetryConfig holds tracing configuration
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	PrettyPrint bool   `yaml:"pretty_print"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
	NoColor      bool   `yaml:"no_color"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// Default returns the configuration used for keys missing from the file
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    15 * time.Minute,
			IdleTimeout:     2 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
			MaxUploadBytes:  20 << 20,
		},
		Backend: BackendConfig{
			BaseURL:         "http://localhost:8001",
			RequestTimeout:  30 * time.Second,
			DownloadTimeout: 10 * time.Minute,
		},
		Poll: PollConfig{
			Interval:               2 * time.Second,
			MaxConsecutiveFailures: 30,
			MaxDuration:            30 * time.Minute,
		},
		Studio: StudioConfig{
			SampleImagePath: "assets/test_image.png",
			OutputDir:       ".",
			DefaultPrompt:   "show them dancing",
			DefaultDuration: 5,
		},
		Events: EventsConfig{
			Host:  "localhost",
			Port:  5672,
			User:  "guest",
			VHost: "/",
			Exchange: ExchangeConfig{
				Name:    "pixeldojo.events",
				Type:    "topic",
				Durable: true,
			},
			Connection: ConnectionConfig{
				RetryAttempts:     3,
				RetryInterval:     2 * time.Second,
				Heartbeat:         10 * time.Second,
				ConnectionTimeout: 5 * time.Second,
			},
			Publish: PublishConfig{
				RetryAttempts:     3,
				RetryInterval:     100 * time.Millisecond,
				BackoffMultiplier: 2.0,
				Timeout:           5 * time.Second,
			},
		},
		Telemetry: TelemetryConfig{
			ServiceName: "pixeldojo-studio",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
		App: AppConfig{
			Name:        "pixeldojo-studio",
			Version:     "dev",
			Environment: "development",
		},
	}
}

// Load reads the configuration file over the defaults and applies environment overrides
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnv(os.LookupEnv)

	return config, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvBackendURL); ok && v != "" {
		c.Backend.BaseURL = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup(EnvRabbitMQPassword); ok && v != "" {
		c.Events.Password = v
	}
}

// ValidateServiceConfig checks the configuration used by the studio service
func (c *Config) ValidateServiceConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server shutdown_timeout must be greater than 0")
	}

	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server max_upload_bytes must be greater than 0")
	}

	return c.ValidateClientConfig()
}

// ValidateClientConfig checks the configuration shared by every front end
func (c *Config) ValidateClientConfig() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid backend base_url: %q", c.Backend.BaseURL)
	}

	if c.Backend.RequestTimeout <= 0 {
		return fmt.Errorf("backend request_timeout must be greater than 0")
	}

	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll interval must be greater than 0")
	}

	if c.Poll.MaxConsecutiveFailures < 0 {
		return fmt.Errorf("poll max_consecutive_failures must not be negative")
	}

	if c.Poll.MaxDuration < 0 {
		return fmt.Errorf("poll max_duration must not be negative")
	}

	if c.Studio.DefaultDuration < 5 || c.Studio.DefaultDuration > 60 {
		return fmt.Errorf("invalid studio default_duration: %d (must be between 5 and 60)", c.Studio.DefaultDuration)
	}

	if c.Events.Enabled {
		if c.Events.Host == "" {
			return fmt.Errorf("events host is required when events are enabled")
		}

		if c.Events.Port < MinPort || c.Events.Port > MaxPort {
			return fmt.Errorf("invalid events port: %d (must be between %d and %d)", c.Events.Port, MinPort, MaxPort)
		}

		if c.Events.Exchange.Name == "" {
			return fmt.Errorf("events exchange name is required")
		}
	}

	return nil
}
