package trip

import (
	"context"
	"sync"
	"time"

	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/constants"
	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/logger"
	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/models"
	pkgws "github.com/wellbornbaba/ccdelete-sub001/internal/pkg/websocket"
)

// Conn is the connector surface the protocol needs. *websocket.Connector
// satisfies it; tests substitute a fake.
type Conn interface {
	Connect(ctx context.Context, params map[string]string) error
	Disconnect(code int, reason string)
	Send(v interface{}) error
	Events() *pkgws.Bridge
	IsConnected() bool
}

// Session is the protocol's mutable identity state: who is connected, which
// ride they are joined to, and the last known device location. An incomplete
// session (missing user or ride id) makes every trip send a silent no-op.
type Session struct {
	UserID   string
	RideID   string
	Location *models.GeoLocation
}

// Complete reports whether both user and ride identity are present
func (s Session) Complete() bool {
	return s.UserID != "" && s.RideID != ""
}

// knownEvents is the closed set of inbound message types the protocol
// re-emits as named events. Anything else is logged and dropped, which keeps
// the client forward-compatible with future server events.
var knownEvents = map[string]bool{
	constants.EventConnected:        true,
	constants.EventDisconnected:     true,
	constants.EventError:            true,
	constants.EventLocationUpdate:   true,
	constants.EventTripStarted:      true,
	constants.EventTripEnded:        true,
	constants.EventTripCancelled:    true,
	constants.EventTripAllCancelled: true,
}

// Protocol translates between domain actions and wire envelopes. It owns
// exactly one connector and one session; it is torn down whenever the owning
// consumer disconnects.
type Protocol struct {
	conn  Conn
	token string

	mu   sync.Mutex
	sess Session
}

// NewProtocol creates a protocol over an existing connector. The token is
// passed to the backend as a query parameter at connect time; the location
// is the starting fix carried on outbound envelopes.
func NewProtocol(conn Conn, token string, location *models.GeoLocation) *Protocol {
	p := &Protocol{
		conn:  conn,
		token: token,
		sess:  Session{Location: location},
	}
	conn.Events().On(constants.EventMessage, p.dispatch)
	return p
}

// NewProtocolFromConfig creates a protocol with its own connector bound to
// the trip route.
func NewProtocolFromConfig(cfg models.SocketConfig, token string, location *models.GeoLocation) *Protocol {
	route := pkgws.RouteTarget{
		BaseURL: cfg.BaseURL,
		Path:    cfg.TripRoute,
	}
	var opts []pkgws.ConnectorOption
	if cfg.HandshakeTimeoutMs > 0 {
		opts = append(opts, pkgws.WithHandshakeTimeout(
			time.Duration(cfg.HandshakeTimeoutMs)*time.Millisecond))
	}
	conn := pkgws.NewConnector(route, pkgws.PolicyFromConfig(cfg), opts...)
	return NewProtocol(conn, token, location)
}

// Events returns the event bridge carrying both connection-level events and
// the named trip events demultiplexed from inbound envelopes.
func (p *Protocol) Events() *pkgws.Bridge {
	return p.conn.Events()
}

// IsConnected reports whether the underlying connection is open
func (p *Protocol) IsConnected() bool {
	return p.conn.IsConnected()
}

// Session returns a copy of the current session
func (p *Protocol) Session() Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sess
}

// UpdateLocation replaces the session's last known location
func (p *Protocol) UpdateLocation(location models.GeoLocation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sess.Location = &location
}

// Connect stores the session identity and opens the connection. When a ride
// id is already known one locationUpdate envelope is sent immediately so the
// backend has a starting fix.
func (p *Protocol) Connect(ctx context.Context, userID, rideID string) error {
	p.mu.Lock()
	p.sess.UserID = userID
	p.sess.RideID = rideID
	p.mu.Unlock()

	params := map[string]string{
		constants.ParamUserID: userID,
	}
	if rideID != "" {
		params[constants.ParamRideID] = rideID
	}
	if p.token != "" {
		params[constants.ParamToken] = p.token
	}

	if err := p.conn.Connect(ctx, params); err != nil {
		return err
	}

	if rideID != "" {
		p.SendLocationUpdate()
	}
	return nil
}

// Disconnect tears down the connection and clears the session. When the
// session is complete a disconnected envelope is sent first so the backend
// can mark the session as intentionally ended; delivery is best effort since
// the socket may close before the frame is flushed.
func (p *Protocol) Disconnect() {
	p.mu.Lock()
	sess := p.sess
	p.mu.Unlock()

	if sess.Complete() {
		_ = p.conn.Send(models.TripEnvelope{
			Type:            constants.EventDisconnected,
			UserID:          sess.UserID,
			RideID:          sess.RideID,
			CurrentLocation: sess.Location,
		})
	}

	p.conn.Disconnect(pkgws.CloseNormalClosure, "client disconnect")

	p.mu.Lock()
	p.sess = Session{}
	p.mu.Unlock()
}

// SendLocationUpdate pushes the session's current location.
// It reports whether a frame was handed to the connector.
func (p *Protocol) SendLocationUpdate() bool {
	return p.send(constants.EventLocationUpdate, nil)
}

// SendStartTrip announces that the trip has started
func (p *Protocol) SendStartTrip() bool {
	return p.send(constants.EventTripStarted, nil)
}

// SendEndTrip announces that the trip has ended for the given passenger
func (p *Protocol) SendEndTrip(passengerUserID, historyID string) bool {
	return p.send(constants.EventTripEnded, func(env *models.TripEnvelope) {
		env.PassengerID = passengerUserID
		env.HistoryID = historyID
	})
}

// SendCancelTrip cancels the trip identified by the given history id
func (p *Protocol) SendCancelTrip(historyID string) bool {
	return p.send(constants.EventTripCancelled, func(env *models.TripEnvelope) {
		env.HistoryID = historyID
	})
}

// SendCancelAllTrips cancels every pending trip for the session
func (p *Protocol) SendCancelAllTrips() bool {
	return p.send(constants.EventTripAllCancelled, nil)
}

func (p *Protocol) send(msgType string, mutate func(*models.TripEnvelope)) bool {
	p.mu.Lock()
	sess := p.sess
	p.mu.Unlock()

	if !sess.Complete() {
		logger.Debug("skipping send, session incomplete",
			logger.String("type", msgType))
		return false
	}

	env := models.TripEnvelope{
		Type:            msgType,
		UserID:          sess.UserID,
		RideID:          sess.RideID,
		CurrentLocation: sess.Location,
	}
	if mutate != nil {
		mutate(&env)
	}

	_ = p.conn.Send(env)
	return true
}

// dispatch re-emits every inbound envelope as a named event equal to its
// type field
func (p *Protocol) dispatch(payload interface{}) {
	msg, ok := payload.(models.WSMessage)
	if !ok {
		return
	}
	if !knownEvents[msg.Type] {
		logger.Warn("dropping unrecognized message type",
			logger.String("type", msg.Type))
		return
	}
	p.conn.Events().Emit(msg.Type, msg.Data)
}
