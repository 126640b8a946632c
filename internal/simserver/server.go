// Package simserver is a local stand-in for the ride-sharing backend's
// real-time surface. It mirrors the wire contract only: the trip route
// echoes every domain envelope back wrapped as {type, data}, and the
// active-rides route pushes ride assignments to connected drivers. It is
// used by the demo binary and by integration-style tests.
package simserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/constants"
	jwtpkg "github.com/wellbornbaba/ccdelete-sub001/internal/pkg/jwt"
	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/logger"
	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/models"
)

// Server simulates the backend real-time endpoints
type Server struct {
	echo     *echo.Echo
	cfg      *models.Config
	upgrader websocket.Upgrader

	mu      sync.Mutex
	writeMu sync.Mutex
	drivers map[string]*websocket.Conn
}

// New creates a simulator bound to the configured routes
func New(cfg *models.Config) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo: e,
		cfg:  cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		drivers: make(map[string]*websocket.Conn),
	}

	e.GET(cfg.Socket.TripRoute, s.handleTrip)
	e.GET(cfg.Socket.ActiveRidesRoute, s.handleActiveRides)
	return s
}

// Echo exposes the underlying echo instance (used with httptest in tests)
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start serves on the given address until Shutdown
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// authenticate validates the query token. The client passes its bearer
// credential as a query parameter because the socket API cannot set headers.
// An empty configured secret disables auth for local runs.
func (s *Server) authenticate(c echo.Context) error {
	if s.cfg.JWT.Secret == "" {
		return nil
	}
	token := c.QueryParam(constants.ParamToken)
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "token is required")
	}
	if _, err := jwtpkg.ValidateToken(token, s.cfg.JWT.Secret); err != nil {
		logger.Warn("token validation failed",
			logger.Err(err))
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	return nil
}

// handleTrip echoes every inbound trip envelope back to the sender wrapped
// in the inbound {type, data} shape
func (s *Server) handleTrip(c echo.Context) error {
	if err := s.authenticate(c); err != nil {
		return err
	}

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	userID := c.QueryParam(constants.ParamUserID)
	logger.Info("trip client connected",
		logger.String("user_id", userID))

	var lastFix *models.GeoLocation
	for {
		_, frame, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("trip client read error",
					logger.String("user_id", userID),
					logger.Err(err))
			}
			return nil
		}

		var env models.TripEnvelope
		if err := json.Unmarshal(frame, &env); err != nil {
			if err := s.sendError(ws, constants.ErrorInvalidFormat, "invalid envelope"); err != nil {
				return nil
			}
			continue
		}

		if env.Type == constants.EventLocationUpdate && env.CurrentLocation != nil {
			fields := []logger.Field{
				logger.String("user_id", env.UserID),
				logger.String("geohash", env.CurrentLocation.Geohash()),
			}
			if lastFix != nil {
				fields = append(fields, logger.Float64("moved_km", lastFix.DistanceKm(*env.CurrentLocation)))
			}
			logger.Debug("location fix", fields...)
			lastFix = env.CurrentLocation
		}

		if err := s.sendMessage(ws, env.Type, env); err != nil {
			return nil
		}
	}
}

// handleActiveRides registers the driver's connection and keeps it open
// until the peer closes; assignments are pushed via AssignRide
func (s *Server) handleActiveRides(c echo.Context) error {
	if err := s.authenticate(c); err != nil {
		return err
	}

	driverID := c.QueryParam(constants.ParamDriverID)
	if driverID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "driverId is required")
	}

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	s.mu.Lock()
	s.drivers[driverID] = ws
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		if s.drivers[driverID] == ws {
			delete(s.drivers, driverID)
		}
		s.mu.Unlock()
	}()

	logger.Info("driver watching for rides",
		logger.String("driver_id", driverID))

	// Drain until the peer closes.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return nil
		}
	}
}

// AssignRide pushes an activeRideAssigned event to a connected driver
func (s *Server) AssignRide(driverID string, assignment models.RideAssignment) error {
	s.mu.Lock()
	ws, ok := s.drivers[driverID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("driver %s is not connected", driverID)
	}
	return s.sendMessage(ws, constants.EventActiveRideAssigned, assignment)
}

// ConnectedDrivers returns the ids of drivers currently watching
func (s *Server) ConnectedDrivers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.drivers))
	for id := range s.drivers {
		ids = append(ids, id)
	}
	return ids
}

func (s *Server) sendMessage(ws *websocket.Conn, event string, data interface{}) error {
	rawData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("error marshaling message data: %w", err)
	}

	response := models.WSMessage{
		Type: event,
		Data: rawData,
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return ws.WriteJSON(response)
}

func (s *Server) sendError(ws *websocket.Conn, code, message string) error {
	return s.sendMessage(ws, constants.EventError, models.WSErrorMessage{
		Code:    code,
		Message: message,
	})
}
