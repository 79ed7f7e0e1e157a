// Package config provides configuration for the voice agent service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the voice agent configuration.
type Config struct {
	// Server settings
	WSPort   int    // Websocket port the call platform connects to
	HTTPPort int    // Internal HTTP port for /health and call records
	WSPath   string // Application path served on the websocket port

	// DeepgramAPIKey is the voice agent credential. Empty means every call
	// is hung up without configuring the agent.
	DeepgramAPIKey string

	// External lookups
	GeocodingURL  string
	WeatherURL    string
	LookupTimeout time.Duration

	// WebSocket settings
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64

	// Call records
	DatabaseURL string

	// OpenTelemetry
	OTELEndpoint string
	ServiceName  string
	OTELInsecure bool

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		WSPort:         getEnvInt("WS_PORT", 3000),
		HTTPPort:       getEnvInt("HTTP_PORT", 3001),
		WSPath:         getEnv("WS_PATH", "/voice-agent"),
		DeepgramAPIKey: os.Getenv("DEEPGRAM_API_KEY"),
		GeocodingURL:   getEnv("GEOCODING_URL", "https://geocoding-api.open-meteo.com"),
		WeatherURL:     getEnv("WEATHER_URL", "https://api.open-meteo.com"),
		LookupTimeout:  getEnvDuration("LOOKUP_TIMEOUT", 10*time.Second),
		PingInterval:   time.Duration(getEnvInt("WS_PING_INTERVAL_MS", 30000)) * time.Millisecond,
		WriteTimeout:   time.Duration(getEnvInt("WS_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		ReadTimeout:    time.Duration(getEnvInt("WS_READ_TIMEOUT_MS", 60000)) * time.Millisecond,
		MaxMessageSize: int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 65536)),
		DatabaseURL:    getEnv("DATABASE_URL", "file:voiceagent.db?cache=shared&mode=rwc"),
		OTELEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:    getEnv("OTEL_SERVICE_NAME", "voiceagent"),
		OTELInsecure:   getEnvBool("OTEL_INSECURE", false),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration can start a server. A missing
// DEEPGRAM_API_KEY is not a startup error; it is handled per call.
func (c *Config) Validate() error {
	if c.WSPort <= 0 || c.HTTPPort <= 0 {
		return fmt.Errorf("config: WS_PORT and HTTP_PORT must be positive")
	}
	if c.WSPort == c.HTTPPort {
		return fmt.Errorf("config: WS_PORT and HTTP_PORT must differ")
	}
	if !strings.HasPrefix(c.WSPath, "/") {
		return fmt.Errorf("config: WS_PATH must start with /")
	}
	if c.GeocodingURL == "" || c.WeatherURL == "" {
		return fmt.Errorf("config: GEOCODING_URL and WEATHER_URL are required")
	}
	if c.LookupTimeout <= 0 {
		return fmt.Errorf("config: LOOKUP_TIMEOUT must be positive")
	}
	if c.PingInterval <= 0 || c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		return fmt.Errorf("config: websocket ping interval and timeouts must be positive")
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("config: WS_MAX_MESSAGE_SIZE must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
