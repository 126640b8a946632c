package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/config"
	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/logger"
	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/models"
	"github.com/wellbornbaba/ccdelete-sub001/internal/simserver"
)

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

	server := simserver.New(configs)

	addr := fmt.Sprintf("%s:%d", configs.Server.Host, configs.Server.Port)
	logger.Info("Starting backend simulator",
		logger.String("addr", addr),
		logger.String("trip_route", configs.Socket.TripRoute),
		logger.String("active_rides_route", configs.Socket.ActiveRidesRoute))

	go func() {
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Server failed", logger.Err(err))
		}
	}()

	// Periodically hand a ride to every watching driver so the client side
	// has something to count.
	assignEvery := time.Duration(config.GetEnvAsInt("SIM_ASSIGN_INTERVAL_MS", 15000)) * time.Millisecond
	ticker := time.NewTicker(assignEvery)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			for _, driverID := range server.ConnectedDrivers() {
				assignment := models.RideAssignment{
					RideID:      uuid.New().String(),
					PassengerID: uuid.New().String(),
					Message:     "new ride request",
				}
				if err := server.AssignRide(driverID, assignment); err != nil {
					logger.Warn("Failed to assign ride",
						logger.String("driver_id", driverID),
						logger.Err(err))
				}
			}
		case <-quit:
			logger.Info("Shutting down simulator")
			shutdownCtx, cancel := context.WithTimeout(context.Background(),
				time.Duration(configs.Server.ShutdownTimeout)*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("Shutdown failed", logger.Err(err))
			}
			return
		}
	}
}
