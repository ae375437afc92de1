// Package config provides unified configuration loading for switchboard.
// Values are resolved in priority order: defaults, then a YAML file, then
// environment variable overrides.
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("SWITCHBOARD").
//	    Load()
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete switchboard configuration.
type Config struct {
	// Server holds the admin HTTP surface settings.
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Database holds the authoritative store settings.
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Redis holds the cache backend settings. The cache is advisory; the
	// service runs without it.
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Broker holds the operator-notification broker settings.
	Broker BrokerConfig `yaml:"broker" env:"BROKER"`

	// Gateway holds the agent-runtime and delivery collaborator endpoints.
	Gateway GatewayConfig `yaml:"gateway" env:"GATEWAY"`

	// Handover tunes the arbitration core.
	Handover HandoverConfig `yaml:"handover" env:"HANDOVER"`

	// Log holds logging settings.
	Log LogConfig `yaml:"log" env:"LOG"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	HTTPPort           int           `yaml:"http_port" env:"HTTP_PORT"`
	MetricsPort        int           `yaml:"metrics_port" env:"METRICS_PORT"`
	ReadTimeout        time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout       time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	RateLimitRPS       int           `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	RateLimitBurst     int           `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	// APIKeys guard the admin endpoints. Health and metrics are exempt.
	APIKeys          []string  `yaml:"api_keys" env:"API_KEYS"`
	AllowQueryAPIKey bool      `yaml:"allow_query_api_key" env:"ALLOW_QUERY_API_KEY"`
	JWT              JWTConfig `yaml:"jwt" env:"JWT"`
}

// JWTConfig holds JWT verification settings for the admin surface.
type JWTConfig struct {
	Secret   string `yaml:"secret" env:"SECRET"`
	Issuer   string `yaml:"issuer" env:"ISSUER"`
	Audience string `yaml:"audience" env:"AUDIENCE"`
}

// DatabaseConfig holds relational store settings.
type DatabaseConfig struct {
	// Driver is one of: postgres, mysql, sqlite.
	Driver          string        `yaml:"driver" env:"DRIVER"`
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	User            string        `yaml:"user" env:"USER"`
	Password        string        `yaml:"password" env:"PASSWORD"`
	Name            string        `yaml:"name" env:"NAME"`
	SSLMode         string        `yaml:"ssl_mode" env:"SSL_MODE"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// RedisConfig holds cache backend settings.
type RedisConfig struct {
	// Addr empty disables the cache entirely.
	Addr         string `yaml:"addr" env:"ADDR"`
	Password     string `yaml:"password" env:"PASSWORD"`
	DB           int    `yaml:"db" env:"DB"`
	PoolSize     int    `yaml:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int    `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
}

// BrokerConfig holds RabbitMQ settings for operator notifications.
type BrokerConfig struct {
	// URL empty disables broker notifications (a no-op notifier is used).
	URL           string        `yaml:"url" env:"URL"`
	Exchange      string        `yaml:"exchange" env:"EXCHANGE"`
	RetryAttempts int           `yaml:"retry_attempts" env:"RETRY_ATTEMPTS"`
	RetryDelay    time.Duration `yaml:"retry_delay" env:"RETRY_DELAY"`
}

// GatewayConfig holds the external collaborator endpoints. RuntimeURL empty
// disables the message intake endpoint.
type GatewayConfig struct {
	RuntimeURL  string        `yaml:"runtime_url" env:"RUNTIME_URL"`
	DeliveryURL string        `yaml:"delivery_url" env:"DELIVERY_URL"`
	APIKey      string        `yaml:"api_key" env:"API_KEY"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// HandoverConfig tunes the arbitration core.
type HandoverConfig struct {
	// ConfigCacheTTL bounds the staleness window for cached agent config.
	ConfigCacheTTL time.Duration `yaml:"config_cache_ttl" env:"CONFIG_CACHE_TTL"`
	// TransferConcurrency bounds the deactivation fan-out.
	TransferConcurrency int `yaml:"transfer_concurrency" env:"TRANSFER_CONCURRENCY"`
	// NotifyTimeout bounds each fire-and-forget notification publish.
	NotifyTimeout time.Duration `yaml:"notify_timeout" env:"NOTIFY_TIMEOUT"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is one of: debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format is one of: json, console.
	Format      string   `yaml:"format" env:"FORMAT"`
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
}

// Loader loads configuration using a builder pattern.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "SWITCHBOARD",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath sets the YAML configuration file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator adds a configuration validator.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load resolves the configuration: defaults, then file, then environment.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// time.Duration accepts "5s" style values
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// comma-separated string slices
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// MustLoad loads the configuration or panics.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		errs = append(errs, "invalid metrics port")
	}
	if c.Handover.ConfigCacheTTL < 0 {
		errs = append(errs, "config_cache_ttl must not be negative")
	}
	if c.Handover.ConfigCacheTTL > 30*time.Second {
		// Stale agent config is how deactivated agents keep talking.
		errs = append(errs, "config_cache_ttl must not exceed 30s")
	}
	if c.Handover.TransferConcurrency <= 0 {
		errs = append(errs, "transfer_concurrency must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// DSN returns the database connection string for the configured driver.
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}
