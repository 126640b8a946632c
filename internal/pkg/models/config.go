package models

// Config represents application configuration
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Socket   SocketConfig
	Tracking TrackingConfig
	JWT      JWTConfig
	Logger   LoggerConfig
}

// AppConfig contains application-specific configuration
type AppConfig struct {
	Name        string
	Environment string
	Debug       bool
	Version     string
}

// ServerConfig contains configuration for the local simulator server
type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout int // in seconds
}

// SocketConfig contains real-time transport configuration
type SocketConfig struct {
	BaseURL              string // ws:// or wss:// base, no trailing slash
	TripRoute            string
	ActiveRidesRoute     string
	ReconnectMaxAttempts int
	ReconnectIntervalMs  int
	BackoffMultiplier    float64 // 1.0 keeps the interval fixed
	BackoffMaxDelayMs    int
	BackoffJitter        bool
	HandshakeTimeoutMs   int
}

// TrackingConfig contains trip tracking configuration
type TrackingConfig struct {
	LocationThrottleMs int  // minimum spacing between outbound location pushes
	AutoConnect        bool // connect as soon as the tracker is created
}

// JWTConfig contains JWT authentication configuration
type JWTConfig struct {
	Secret     string
	Expiration int // in minutes
	Issuer     string
}

// LoggerConfig contains logger configuration
type LoggerConfig struct {
	Level    string
	FilePath string
}
