package trip

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/constants"
	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/models"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestTracker(t *testing.T, conn *fakeConn, cfg models.TrackingConfig) (*Tracker, *fakeClock) {
	t.Helper()
	proto := NewProtocol(conn, "", testLocation())
	tracker := newTracker(proto, cfg)
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	tracker.now = clock.Now
	return tracker, clock
}

func TestTrackerThrottle_AtMostOneSendPerWindow(t *testing.T) {
	conn := newFakeConn()
	tracker, clock := newTestTracker(t, conn, models.TrackingConfig{LocationThrottleMs: 30000})
	require.NoError(t, tracker.Connect(context.Background(), "u1", "r1"))

	base := len(conn.envelopes()) // the connect-time starting fix

	assert.True(t, tracker.SendLocationUpdate())

	// Calls spaced closer than the window are dropped, not deferred.
	for i := 0; i < 10; i++ {
		clock.Advance(time.Second)
		assert.False(t, tracker.SendLocationUpdate())
	}
	assert.Len(t, conn.envelopes(), base+1)

	// Advancing to the 30s boundary lets the next push through.
	clock.Advance(20 * time.Second)
	assert.True(t, tracker.SendLocationUpdate())
	assert.Len(t, conn.envelopes(), base+2)
}

func TestTrackerThrottle_ConcurrentCallersShareOneWindow(t *testing.T) {
	conn := newFakeConn()
	tracker, _ := newTestTracker(t, conn, models.TrackingConfig{LocationThrottleMs: 30000})
	require.NoError(t, tracker.Connect(context.Background(), "u1", "r1"))
	base := len(conn.envelopes())

	var passed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tracker.SendLocationUpdate() {
				passed.Add(1)
			}
		}()
	}
	wg.Wait()

	// Exactly one caller claims the window; the rest are dropped.
	assert.Equal(t, int32(1), passed.Load())
	assert.Len(t, conn.envelopes(), base+1)
}

func TestTrackerThrottle_DefaultsToThirtySeconds(t *testing.T) {
	conn := newFakeConn()
	tracker, _ := newTestTracker(t, conn, models.TrackingConfig{})
	assert.Equal(t, 30*time.Second, tracker.window)
}

func TestTrackerThrottle_DoesNotStampDroppedSends(t *testing.T) {
	conn := newFakeConn()
	tracker, _ := newTestTracker(t, conn, models.TrackingConfig{LocationThrottleMs: 30000})
	// Session incomplete: nothing reaches the connector and the throttle
	// window must not start.
	require.NoError(t, tracker.Connect(context.Background(), "u1", ""))

	assert.False(t, tracker.SendLocationUpdate())
	assert.Empty(t, conn.envelopes())

	require.NoError(t, tracker.Connect(context.Background(), "u1", "r1"))
	assert.True(t, tracker.SendLocationUpdate())
}

func TestTrackerStateMirroring(t *testing.T) {
	conn := newFakeConn()
	tracker, _ := newTestTracker(t, conn, models.TrackingConfig{})

	assert.False(t, tracker.State().Connected)

	conn.bridge.Emit(constants.EventConnected, nil)
	assert.True(t, tracker.State().Connected)

	wireErr := errors.New("connection reset")
	conn.bridge.Emit(constants.EventError, wireErr)
	assert.Equal(t, wireErr, tracker.State().Err)

	payload := json.RawMessage(`{"type":"tripStarted","userid":"u1","rideid":"r1"}`)
	conn.bridge.Emit(constants.EventMessage, models.WSMessage{
		Type: constants.EventTripStarted,
		Data: payload,
	})
	state := tracker.State()
	assert.Equal(t, constants.EventTripStarted, state.LastEvent)
	assert.Equal(t, "u1", state.LastData.UserID)
	assert.Equal(t, "r1", state.LastData.RideID)

	conn.bridge.Emit(constants.EventDisconnected, nil)
	assert.False(t, tracker.State().Connected)
	// The last error stays visible; presentation is the caller's concern.
	assert.Equal(t, wireErr, tracker.State().Err)
}

func TestTrackerClose_UnregistersHandlersAndDisconnects(t *testing.T) {
	conn := newFakeConn()
	tracker, _ := newTestTracker(t, conn, models.TrackingConfig{})
	require.NoError(t, tracker.Connect(context.Background(), "u1", "r1"))

	tracker.Close()

	assert.Equal(t, 1, conn.disconnects)

	// Events arriving after teardown no longer touch tracker state.
	conn.bridge.Emit(constants.EventConnected, nil)
	conn.bridge.Emit(constants.EventMessage, models.WSMessage{Type: constants.EventTripEnded})
	state := tracker.State()
	assert.False(t, state.Connected)
	assert.NotEqual(t, constants.EventTripEnded, state.LastEvent)
}

type staticProvider struct {
	location models.GeoLocation
	err      error
}

func (p staticProvider) CurrentLocation(ctx context.Context) (models.GeoLocation, error) {
	return p.location, p.err
}

func TestNewTracker_LocationResolutionFailure(t *testing.T) {
	cfg := &models.Config{}
	provider := staticProvider{err: errors.New("gps unavailable")}

	tracker, err := NewTracker(context.Background(), cfg, provider, TrackerOptions{
		UserID:             "u1",
		DisableAutoConnect: true,
	})

	assert.Nil(t, tracker)
	assert.ErrorContains(t, err, "gps unavailable")
}

func TestNewTracker_AutoConnectFailureIsNonFatal(t *testing.T) {
	cfg := &models.Config{
		Socket: models.SocketConfig{
			BaseURL:              "ws://localhost:1",
			TripRoute:            "/ws/trip",
			ReconnectMaxAttempts: 1,
			ReconnectIntervalMs:  10,
		},
	}
	provider := staticProvider{location: models.GeoLocation{Latitude: 1, Longitude: 2}}

	tracker, err := NewTracker(context.Background(), cfg, provider, TrackerOptions{UserID: "u1"})

	require.NoError(t, err)
	require.NotNil(t, tracker)
	defer tracker.Close()

	assert.False(t, tracker.IsConnected())
	assert.Error(t, tracker.State().Err)
}
