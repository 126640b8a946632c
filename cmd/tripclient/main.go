package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/config"
	jwtpkg "github.com/wellbornbaba/ccdelete-sub001/internal/pkg/jwt"
	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/logger"
	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/models"
	"github.com/wellbornbaba/ccdelete-sub001/services/rides"
	"github.com/wellbornbaba/ccdelete-sub001/services/trip"
)

// staticProvider stands in for the platform location services in the demo
type staticProvider struct {
	location models.GeoLocation
}

func (p staticProvider) CurrentLocation(ctx context.Context) (models.GeoLocation, error) {
	return p.location, nil
}

func main() {
	configPath := config.GetEnv("CONFIG_PATH", ".env")
	configs := config.InitConfig(configPath)

	zapLogger, err := logger.NewZapLogger(logger.Config{
		Level:    configs.Logger.Level,
		FilePath: configs.Logger.FilePath,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Close()
	logger.SetGlobalLogger(zapLogger)

	userID := config.GetEnv("TRIP_USER_ID", uuid.New().String())
	rideID := config.GetEnv("TRIP_RIDE_ID", "")
	role := config.GetEnv("TRIP_ROLE", "passenger")

	var token string
	if configs.JWT.Secret != "" {
		token, _, err = jwtpkg.GenerateToken(uuid.New(), role, configs)
		if err != nil {
			zapLogger.Fatal("Failed to generate token", logger.Err(err))
		}
	}

	logger.Info("Starting trip client",
		logger.String("user_id", userID),
		logger.String("ride_id", rideID),
		logger.String("role", role))

	provider := staticProvider{
		location: models.GeoLocation{
			Latitude:  config.GetEnvAsFloat("TRIP_LATITUDE", -6.2088),
			Longitude: config.GetEnvAsFloat("TRIP_LONGITUDE", 106.8456),
			Timestamp: time.Now(),
		},
	}

	ctx := context.Background()
	tracker, err := trip.NewTracker(ctx, configs, provider, trip.TrackerOptions{
		UserID:             userID,
		RideID:             rideID,
		Token:              token,
		DisableAutoConnect: !configs.Tracking.AutoConnect,
	})
	if err != nil {
		zapLogger.Fatal("Failed to create trip tracker", logger.Err(err))
	}
	defer tracker.Close()

	var watcher *rides.Watcher
	if role == "driver" {
		watcher = rides.NewWatcherFromConfig(configs.Socket, userID, token)
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("Failed to start ride watcher", logger.Err(err))
		}
		defer watcher.Stop()
	}

	interval := time.Duration(configs.Tracking.LocationThrottleMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			tracker.SendLocationUpdate()
			if watcher != nil {
				logger.Info("ride assignments so far",
					logger.Int64("count", watcher.Count()))
			}
		case <-quit:
			logger.Info("Shutting down trip client")
			return
		}
	}
}
