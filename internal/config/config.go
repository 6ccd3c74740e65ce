// Package config loads service settings from the environment through viper.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Store drivers accepted by DB_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds every setting the service reads at startup.
type Config struct {
	AppPort string

	DBDriver    string
	DatabaseDSN string

	// RedisAddr empty selects the in-process cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CachePrefix             string
	CacheTTL                time.Duration
	CacheInvalidateOnCreate bool

	// RabbitMQURL empty disables product events.
	RabbitMQURL   string
	RabbitMQQueue string

	LogLevel        string
	ShutdownTimeout time.Duration
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DB_DRIVER", DriverSQLite)
	v.SetDefault("DATABASE_DSN", "file:catalog.db?cache=shared")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_PREFIX", "catalog:")
	v.SetDefault("CACHE_TTL", "10m")
	v.SetDefault("CACHE_INVALIDATE_ON_CREATE", false)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_QUEUE", "product_events")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
}

// Load reads the configuration from v after applying defaults and binding the
// environment.
func Load(v *viper.Viper) Config {
	SetDefaults(v)
	v.AutomaticEnv() // Load environment variables

	return Config{
		AppPort:                 v.GetString("APP_PORT"),
		DBDriver:                v.GetString("DB_DRIVER"),
		DatabaseDSN:             v.GetString("DATABASE_DSN"),
		RedisAddr:               v.GetString("REDIS_ADDR"),
		RedisPassword:           v.GetString("REDIS_PASSWORD"),
		RedisDB:                 v.GetInt("REDIS_DB"),
		CachePrefix:             v.GetString("CACHE_PREFIX"),
		CacheTTL:                v.GetDuration("CACHE_TTL"),
		CacheInvalidateOnCreate: v.GetBool("CACHE_INVALIDATE_ON_CREATE"),
		RabbitMQURL:             v.GetString("RABBITMQ_URL"),
		RabbitMQQueue:           v.GetString("RABBITMQ_QUEUE"),
		LogLevel:                v.GetString("LOG_LEVEL"),
		ShutdownTimeout:         v.GetDuration("SHUTDOWN_TIMEOUT"),
	}
}
