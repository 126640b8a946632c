package trip

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/constants"
	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/logger"
	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/models"
	pkgws "github.com/wellbornbaba/ccdelete-sub001/internal/pkg/websocket"
)

// LocationProvider resolves the device's current location. It sits at the
// boundary to the platform's location services.
type LocationProvider interface {
	CurrentLocation(ctx context.Context) (models.GeoLocation, error)
}

// TrackerOptions configure one tracker instance
type TrackerOptions struct {
	UserID string
	RideID string
	Token  string
	// DisableAutoConnect leaves the tracker disconnected until Connect is
	// called explicitly.
	DisableAutoConnect bool
}

// State is the consumer-visible snapshot of the tracker
type State struct {
	Connected bool
	LastEvent string
	LastData  models.TripEnvelope
	Err       error
}

// Tracker owns one trip protocol instance for the lifetime of an active-ride
// context. It resolves the device location once before connecting, throttles
// outbound location pushes and mirrors connection state into a snapshot the
// rest of the application can poll.
type Tracker struct {
	proto  *Protocol
	window time.Duration
	now    func() time.Time

	mu         sync.Mutex
	lastSentAt time.Time
	state      State
	offs       []func()
}

// NewTracker resolves the device location, builds a protocol bound to the
// trip route and, unless disabled, connects with the supplied identity.
// A failed auto-connect is not fatal: the error lands in the tracker state
// the same way later connection errors do.
func NewTracker(ctx context.Context, cfg *models.Config, provider LocationProvider, opts TrackerOptions) (*Tracker, error) {
	location, err := provider.CurrentLocation(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve device location: %w", err)
	}
	logger.Info("device location resolved",
		logger.String("geohash", location.Geohash()))

	proto := NewProtocolFromConfig(cfg.Socket, opts.Token, &location)
	t := newTracker(proto, cfg.Tracking)

	if !opts.DisableAutoConnect {
		if err := t.Connect(ctx, opts.UserID, opts.RideID); err != nil {
			logger.Warn("trip tracker auto-connect failed",
				logger.Err(err))
		}
	}
	return t, nil
}

// newTracker wires handlers over an existing protocol
func newTracker(proto *Protocol, cfg models.TrackingConfig) *Tracker {
	window := 30 * time.Second
	if cfg.LocationThrottleMs > 0 {
		window = time.Duration(cfg.LocationThrottleMs) * time.Millisecond
	}

	t := &Tracker{
		proto:  proto,
		window: window,
		now:    time.Now,
	}
	t.register()
	return t
}

func (t *Tracker) register() {
	events := t.proto.Events()

	t.offs = append(t.offs,
		events.On(constants.EventConnected, func(interface{}) {
			t.mu.Lock()
			t.state.Connected = true
			t.mu.Unlock()
		}),
		events.On(constants.EventDisconnected, func(interface{}) {
			t.mu.Lock()
			t.state.Connected = false
			t.mu.Unlock()
		}),
		events.On(constants.EventError, func(payload interface{}) {
			err, ok := payload.(error)
			if !ok {
				err = fmt.Errorf("%v", payload)
			}
			t.mu.Lock()
			t.state.Err = err
			t.mu.Unlock()
		}),
	)

	for _, event := range []string{
		constants.EventLocationUpdate,
		constants.EventTripStarted,
		constants.EventTripEnded,
		constants.EventTripCancelled,
		constants.EventTripAllCancelled,
	} {
		event := event
		t.offs = append(t.offs, pkgws.OnTyped(events, event, func(env models.TripEnvelope) {
			t.mu.Lock()
			t.state.LastEvent = event
			t.state.LastData = env
			t.mu.Unlock()
		}))
	}
}

// Connect opens the trip connection with the given identity
func (t *Tracker) Connect(ctx context.Context, userID, rideID string) error {
	return t.proto.Connect(ctx, userID, rideID)
}

// State returns the current consumer-visible snapshot
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// IsConnected reports whether the trip connection is open
func (t *Tracker) IsConnected() bool {
	return t.proto.IsConnected()
}

// UpdateLocation replaces the last known device fix carried on outbound
// envelopes. It does not itself push an update.
func (t *Tracker) UpdateLocation(location models.GeoLocation) {
	t.proto.UpdateLocation(location)
}

// SendLocationUpdate pushes the current fix, subject to the throttle window:
// calls arriving faster than the window are dropped, never queued. It
// reports whether a frame was handed to the connector.
func (t *Tracker) SendLocationUpdate() bool {
	t.mu.Lock()
	now := t.now()
	if !t.lastSentAt.IsZero() && now.Sub(t.lastSentAt) < t.window {
		t.mu.Unlock()
		logger.Debug("location update throttled",
			logger.Duration("window", t.window))
		return false
	}
	// Claim the window before releasing the lock so concurrent callers
	// cannot both pass the check.
	prev := t.lastSentAt
	t.lastSentAt = now
	t.mu.Unlock()

	if t.proto.SendLocationUpdate() {
		return true
	}

	// The protocol dropped the push (incomplete session); release the claim
	// unless a later caller already re-stamped it.
	t.mu.Lock()
	if t.lastSentAt.Equal(now) {
		t.lastSentAt = prev
	}
	t.mu.Unlock()
	return false
}

// StartTrip announces trip start
func (t *Tracker) StartTrip() bool {
	return t.proto.SendStartTrip()
}

// EndTrip announces trip end for the given passenger
func (t *Tracker) EndTrip(passengerUserID, historyID string) bool {
	return t.proto.SendEndTrip(passengerUserID, historyID)
}

// CancelTrip cancels a single trip
func (t *Tracker) CancelTrip(historyID string) bool {
	return t.proto.SendCancelTrip(historyID)
}

// CancelAllTrips cancels every pending trip
func (t *Tracker) CancelAllTrips() bool {
	return t.proto.SendCancelAllTrips()
}

// Close unregisters all handlers and disconnects. No socket survives the
// owning context.
func (t *Tracker) Close() {
	t.mu.Lock()
	offs := t.offs
	t.offs = nil
	t.mu.Unlock()

	for _, off := range offs {
		off()
	}
	t.proto.Disconnect()
}
