package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/models"
)

func InitConfig(configPath string) *models.Config {
	local := GetEnv("APP_ENV", "local")
	if local == "local" {
		// Load config from file
		err := godotenv.Load(configPath)
		if err != nil {
			log.Println("error loading config from file", err)
		}
	}
	// Create config from environment variables
	return loadConfigFromEnv()
}

func loadConfigFromEnv() *models.Config {
	configs := &models.Config{}

	// App config
	configs.App.Name = GetEnv("APP_NAME", "ccdelete-realtime")
	configs.App.Environment = GetEnv("APP_ENV", "local")
	configs.App.Debug = GetEnvAsBool("APP_DEBUG", true)
	configs.App.Version = GetEnv("APP_VERSION", "")

	// Server config (local simulator)
	configs.Server.Host = GetEnv("SERVER_HOST", "")
	configs.Server.Port = GetEnvAsInt("SERVER_PORT", 9990)
	configs.Server.ShutdownTimeout = GetEnvAsInt("SERVER_SHUTDOWN_TIMEOUT", 10)

	// Socket config
	configs.Socket.BaseURL = GetEnv("SOCKET_BASE_URL", "ws://localhost:9990")
	configs.Socket.TripRoute = GetEnv("SOCKET_TRIP_ROUTE", "/ws/trip")
	configs.Socket.ActiveRidesRoute = GetEnv("SOCKET_ACTIVE_RIDES_ROUTE", "/ws/active-rides")
	configs.Socket.ReconnectMaxAttempts = GetEnvAsInt("SOCKET_RECONNECT_MAX_ATTEMPTS", 5)
	configs.Socket.ReconnectIntervalMs = GetEnvAsInt("SOCKET_RECONNECT_INTERVAL_MS", 3000)
	configs.Socket.BackoffMultiplier = GetEnvAsFloat("SOCKET_BACKOFF_MULTIPLIER", 1.0)
	configs.Socket.BackoffMaxDelayMs = GetEnvAsInt("SOCKET_BACKOFF_MAX_DELAY_MS", 30000)
	configs.Socket.BackoffJitter = GetEnvAsBool("SOCKET_BACKOFF_JITTER", false)
	configs.Socket.HandshakeTimeoutMs = GetEnvAsInt("SOCKET_HANDSHAKE_TIMEOUT_MS", 10000)

	// Tracking config
	configs.Tracking.LocationThrottleMs = GetEnvAsInt("TRACKING_LOCATION_THROTTLE_MS", 30000)
	configs.Tracking.AutoConnect = GetEnvAsBool("TRACKING_AUTO_CONNECT", true)

	// JWT config
	configs.JWT.Secret = GetEnv("JWT_SECRET", "")
	configs.JWT.Expiration = GetEnvAsInt("JWT_EXPIRATION", 60)
	configs.JWT.Issuer = GetEnv("JWT_ISSUER", "")

	// Logger config
	configs.Logger.Level = GetEnv("LOG_LEVEL", "info")
	configs.Logger.FilePath = GetEnv("LOG_FILE_PATH", "")

	return configs
}

// Helper functions to get environment variables with different types
func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := GetEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func GetEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := GetEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float value for %s, using default: %f", key, defaultValue)
		return defaultValue
	}

	return value
}

func GetEnvAsBool(key string, defaultValue bool) bool {
	valueStr := GetEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}

	return value
}
