package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Env      string
	LogLevel string
	Server   ServerConfig
	Places   PlacesConfig
	Redis    RedisConfig
	OTEL     OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// PlacesConfig holds the places API and search flow configuration
type PlacesConfig struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Language    string
	PlaceType   string
	BiasEnabled bool
	BiasLat     float64
	BiasLng     float64
	Radius      float64
	Placeholder string
	HTTPTimeout time.Duration
	Debounce    time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled     bool
	Host        string
	Port        int
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
	SampleRatio    float64
	ExportInterval time.Duration
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Places: PlacesConfig{
			Provider:    getEnv("PLACES_PROVIDER", "google"),
			APIKey:      getEnv("PLACES_API_KEY", ""),
			BaseURL:     getEnv("PLACES_BASE_URL", "https://maps.googleapis.com"),
			Language:    getEnv("PLACES_LANGUAGE", "en"),
			PlaceType:   getEnv("PLACES_TYPE", ""),
			BiasEnabled: os.Getenv("PLACES_BIAS_LAT") != "" && os.Getenv("PLACES_BIAS_LNG") != "",
			BiasLat:     getEnvAsFloat("PLACES_BIAS_LAT", 0),
			BiasLng:     getEnvAsFloat("PLACES_BIAS_LNG", 0),
			Radius:      getEnvAsFloat("PLACES_RADIUS", 0),
			Placeholder: getEnv("PLACES_PLACEHOLDER", "Enter Address"),
			HTTPTimeout: getEnvAsDuration("PLACES_HTTP_TIMEOUT", 8*time.Second),
			Debounce:    getEnvAsDuration("PLACES_DEBOUNCE", 0),
		},
		Redis: RedisConfig{
			Enabled:     getEnvAsBool("REDIS_ENABLED", true),
			Host:        getEnv("REDIS_HOST", "localhost"),
			Port:        getEnvAsInt("REDIS_PORT", 6379),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvAsInt("REDIS_DB", 0),
			PoolSize:    getEnvAsInt("REDIS_POOL_SIZE", 10),
			DialTimeout: getEnvAsDuration("REDIS_DIAL_TIMEOUT", 3*time.Second),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "placesearch"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
			SampleRatio:    getEnvAsFloat("OTEL_SAMPLE_RATIO", 1),
			ExportInterval: getEnvAsDuration("OTEL_EXPORT_INTERVAL", 30*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports configuration that would make every places request fail.
func (c *Config) Validate() error {
	if c.Places.Provider == "google" && strings.TrimSpace(c.Places.APIKey) == "" {
		return fmt.Errorf("PLACES_API_KEY is required for the google places provider")
	}
	if c.Places.Radius < 0 {
		return fmt.Errorf("PLACES_RADIUS must not be negative")
	}
	if c.Places.HTTPTimeout <= 0 {
		return fmt.Errorf("PLACES_HTTP_TIMEOUT must be positive")
	}
	if c.OTEL.Enabled && (c.OTEL.SampleRatio < 0 || c.OTEL.SampleRatio > 1) {
		return fmt.Errorf("OTEL_SAMPLE_RATIO must be between 0 and 1")
	}
	if c.Places.Debounce < 0 {
		return fmt.Errorf("PLACES_DEBOUNCE must not be negative")
	}
	return nil
}

// Addr returns the server listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
