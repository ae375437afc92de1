package config

import "time"

// DefaultConfig returns a configuration suitable for local development. A
// production deployment overrides these through the YAML file or environment.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:           8080,
			MetricsPort:        9090,
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       15 * time.Second,
			ShutdownTimeout:    10 * time.Second,
			CORSAllowedOrigins: nil,
			RateLimitRPS:       100,
			RateLimitBurst:     200,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			Name:            "switchboard.db",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			DB:           0,
			PoolSize:     10,
			MinIdleConns: 2,
		},
		Broker: BrokerConfig{
			Exchange:      "switchboard.handover",
			RetryAttempts: 5,
			RetryDelay:    2 * time.Second,
		},
		Gateway: GatewayConfig{
			Timeout: 30 * time.Second,
		},
		Handover: HandoverConfig{
			ConfigCacheTTL:      5 * time.Second,
			TransferConcurrency: 8,
			NotifyTimeout:       3 * time.Second,
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stdout"},
		},
	}
}
