package simserver_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/constants"
	jwtpkg "github.com/wellbornbaba/ccdelete-sub001/internal/pkg/jwt"
	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/models"
	"github.com/wellbornbaba/ccdelete-sub001/internal/simserver"
	"github.com/wellbornbaba/ccdelete-sub001/services/rides"
	"github.com/wellbornbaba/ccdelete-sub001/services/trip"
)

func newTestEnv(t *testing.T, secret string) (*simserver.Server, *models.Config) {
	t.Helper()
	cfg := &models.Config{
		Socket: models.SocketConfig{
			TripRoute:            "/ws/trip",
			ActiveRidesRoute:     "/ws/active-rides",
			ReconnectMaxAttempts: 2,
			ReconnectIntervalMs:  50,
		},
		JWT: models.JWTConfig{
			Secret:     secret,
			Expiration: 60,
			Issuer:     "sim-test",
		},
	}

	server := simserver.New(cfg)
	httpSrv := httptest.NewServer(server.Echo())
	t.Cleanup(httpSrv.Close)

	cfg.Socket.BaseURL = "ws" + strings.TrimPrefix(httpSrv.URL, "http")
	return server, cfg
}

func testToken(t *testing.T, cfg *models.Config, role string) string {
	t.Helper()
	token, _, err := jwtpkg.GenerateToken(uuid.New(), role, cfg)
	require.NoError(t, err)
	return token
}

func TestSimServer_TripRoundTrip(t *testing.T) {
	_, cfg := newTestEnv(t, "sim-secret")
	token := testToken(t, cfg, "passenger")

	location := models.GeoLocation{Latitude: -6.2088, Longitude: 106.8456}
	proto := trip.NewProtocolFromConfig(cfg.Socket, token, &location)

	started := make(chan models.TripEnvelope, 1)
	proto.Events().On(constants.EventTripStarted, func(payload interface{}) {
		raw, ok := payload.(json.RawMessage)
		if !ok {
			return
		}
		var env models.TripEnvelope
		if err := json.Unmarshal(raw, &env); err == nil {
			started <- env
		}
	})

	require.NoError(t, proto.Connect(context.Background(), "u1", "r1"))
	defer proto.Disconnect()

	require.True(t, proto.SendStartTrip())

	select {
	case env := <-started:
		assert.Equal(t, constants.EventTripStarted, env.Type)
		assert.Equal(t, "u1", env.UserID)
		assert.Equal(t, "r1", env.RideID)
		require.NotNil(t, env.CurrentLocation)
		assert.Equal(t, location.Latitude, env.CurrentLocation.Latitude)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for echoed tripStarted")
	}
}

func TestSimServer_EchoesInitialLocationFix(t *testing.T) {
	_, cfg := newTestEnv(t, "")

	location := models.GeoLocation{Latitude: 1, Longitude: 2}
	proto := trip.NewProtocolFromConfig(cfg.Socket, "", &location)

	fixes := make(chan json.RawMessage, 1)
	proto.Events().On(constants.EventLocationUpdate, func(payload interface{}) {
		if raw, ok := payload.(json.RawMessage); ok {
			select {
			case fixes <- raw:
			default:
			}
		}
	})

	require.NoError(t, proto.Connect(context.Background(), "u1", "r1"))
	defer proto.Disconnect()

	select {
	case raw := <-fixes:
		var env models.TripEnvelope
		require.NoError(t, json.Unmarshal(raw, &env))
		assert.Equal(t, "u1", env.UserID)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for echoed starting fix")
	}
}

func TestSimServer_RejectsInvalidToken(t *testing.T) {
	_, cfg := newTestEnv(t, "sim-secret")

	location := models.GeoLocation{Latitude: 1, Longitude: 2}
	proto := trip.NewProtocolFromConfig(cfg.Socket, "garbage-token", &location)

	err := proto.Connect(context.Background(), "u1", "r1")
	assert.Error(t, err)
	assert.False(t, proto.IsConnected())
}

func TestSimServer_WatcherCountsAssignments(t *testing.T) {
	server, cfg := newTestEnv(t, "sim-secret")
	token := testToken(t, cfg, "driver")

	watcher := rides.NewWatcherFromConfig(cfg.Socket, "d1", token)
	require.NoError(t, watcher.Start(context.Background()))
	defer watcher.Stop()

	require.Eventually(t, func() bool {
		for _, id := range server.ConnectedDrivers() {
			if id == "d1" {
				return true
			}
		}
		return false
	}, 3*time.Second, 10*time.Millisecond)

	assert.Zero(t, watcher.Count())

	for i := 0; i < 3; i++ {
		require.NoError(t, server.AssignRide("d1", models.RideAssignment{
			RideID:  uuid.New().String(),
			Message: "new ride request",
		}))
	}

	require.Eventually(t, func() bool { return watcher.Count() == 3 },
		3*time.Second, 10*time.Millisecond)
}

func TestSimServer_AssignRideToUnknownDriver(t *testing.T) {
	server, _ := newTestEnv(t, "")

	err := server.AssignRide("ghost", models.RideAssignment{RideID: "r1"})
	assert.Error(t, err)
}
