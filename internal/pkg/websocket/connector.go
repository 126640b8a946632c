package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/constants"
	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/logger"
	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/models"
)

// ConnState is the connection lifecycle state of a Connector
type ConnState int32

const (
	StateIdle ConnState = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
	// StateReconnecting is entered only from an unclean close.
	StateReconnecting
)

// String returns the state name
func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Close codes re-exported so callers do not need the transport package
const (
	CloseNormalClosure = websocket.CloseNormalClosure
	CloseGoingAway     = websocket.CloseGoingAway
)

var (
	// ErrConnectInFlight is returned when Connect is called while a previous
	// connect attempt has not finished.
	ErrConnectInFlight = errors.New("websocket: connect already in flight")
	// ErrAlreadyConnected is returned when Connect is called on an open connection.
	ErrAlreadyConnected = errors.New("websocket: connection already open")
	// ErrClosedByCaller is returned when Disconnect interrupts an in-flight connect.
	ErrClosedByCaller = errors.New("websocket: closed by caller")
)

// Connector owns one physical WebSocket connection to one logical route.
// It handles connect/disconnect, JSON framing, reconnection scheduling and
// exposes its event surface through a Bridge.
//
// A Connector is never shared across consumers; each consumer constructs
// and owns its own instance.
type Connector struct {
	route  RouteTarget
	policy ReconnectPolicy
	bridge *Bridge
	dialer *websocket.Dialer

	mu           sync.Mutex
	writeMu      sync.Mutex
	conn         *websocket.Conn
	state        ConnState
	attempts     int
	params       map[string]string
	callerClosed bool
	dialing      bool
	reconnect    *time.Timer
	gen          int
}

// ConnectorOption customizes a Connector
type ConnectorOption func(*Connector)

// WithHandshakeTimeout sets the dial handshake timeout
func WithHandshakeTimeout(d time.Duration) ConnectorOption {
	return func(c *Connector) {
		c.dialer.HandshakeTimeout = d
	}
}

// WithBridge attaches an externally owned event bridge
func WithBridge(b *Bridge) ConnectorOption {
	return func(c *Connector) {
		c.bridge = b
	}
}

// NewConnector creates a connector bound to one route target
func NewConnector(route RouteTarget, policy ReconnectPolicy, opts ...ConnectorOption) *Connector {
	c := &Connector{
		route:  route,
		policy: policy,
		bridge: NewBridge(),
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		state: StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Events returns the connector's event bridge
func (c *Connector) Events() *Bridge {
	return c.bridge
}

// On registers a handler on the connector's event bridge
func (c *Connector) On(event string, handler Handler) (off func()) {
	return c.bridge.On(event, handler)
}

// Off removes every handler for the given event
func (c *Connector) Off(event string) {
	c.bridge.Off(event)
}

// State returns the current connection state
func (c *Connector) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the connection is open
func (c *Connector) IsConnected() bool {
	return c.State() == StateOpen
}

// Attempts returns the current reconnect attempt counter
func (c *Connector) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Connect builds the URL from the route target plus params and opens one
// socket. It fails fast if a connect is already in flight or the connection
// is open. On success the attempt counter resets and a connected event is
// emitted. The params are retained and reused by automatic reconnects.
func (c *Connector) Connect(ctx context.Context, params map[string]string) error {
	c.mu.Lock()
	if c.state == StateConnecting || c.dialing {
		c.mu.Unlock()
		return ErrConnectInFlight
	}
	if c.state == StateOpen || c.state == StateClosing {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.state = StateConnecting
	c.callerClosed = false
	c.attempts = 0
	c.params = cloneParams(params)
	c.stopReconnectLocked()
	c.mu.Unlock()

	return c.dial(ctx, params)
}

func (c *Connector) dial(ctx context.Context, params map[string]string) error {
	c.mu.Lock()
	c.dialing = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.dialing = false
		c.mu.Unlock()
	}()

	target, err := c.route.URL(params)
	if err != nil {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
		return err
	}

	conn, _, err := c.dialer.DialContext(ctx, target, nil)
	if err != nil {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
		c.bridge.Emit(constants.EventError, err)
		return fmt.Errorf("websocket dial %s: %w", c.route.Path, err)
	}

	c.mu.Lock()
	if c.callerClosed {
		// Disconnect raced the handshake; honor the caller.
		c.state = StateClosed
		c.mu.Unlock()
		_ = conn.Close()
		return ErrClosedByCaller
	}
	c.conn = conn
	c.state = StateOpen
	c.attempts = 0
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	go c.readPump(conn, gen)

	logger.Info("websocket connected",
		logger.String("route", c.route.Path))
	c.bridge.Emit(constants.EventConnected, nil)
	return nil
}

// readPump reads frames until the connection drops. Malformed frames emit an
// error event and are dropped; parsed frames are re-emitted verbatim as a
// message event.
func (c *Connector) readPump(conn *websocket.Conn, gen int) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(gen, err)
			return
		}

		var msg models.WSMessage
		if err := json.Unmarshal(frame, &msg); err != nil {
			logger.Warn("dropping malformed frame",
				logger.String("route", c.route.Path),
				logger.Err(err))
			c.bridge.Emit(constants.EventError, fmt.Errorf("decode frame: %w", err))
			continue
		}
		c.bridge.Emit(constants.EventMessage, msg)
	}
}

func (c *Connector) handleClose(gen int, cause error) {
	c.mu.Lock()
	if gen != c.gen {
		// A newer connection already replaced this one.
		c.mu.Unlock()
		return
	}
	wasClean := c.callerClosed
	c.conn = nil
	c.state = StateClosed
	canRetry := !wasClean && c.attempts < c.policy.MaxAttempts
	if canRetry {
		c.state = StateReconnecting
	}
	c.mu.Unlock()

	logger.Info("websocket disconnected",
		logger.String("route", c.route.Path),
		logger.Bool("clean", wasClean))
	c.bridge.Emit(constants.EventDisconnected, cause)

	if canRetry {
		c.scheduleReconnect()
	}
}

func (c *Connector) scheduleReconnect() {
	c.mu.Lock()
	if c.callerClosed {
		c.state = StateClosed
		c.mu.Unlock()
		return
	}
	delay := c.policy.Delay(c.attempts)
	attempt := c.attempts + 1
	c.reconnect = time.AfterFunc(delay, c.tryReconnect)
	c.mu.Unlock()

	logger.Info("scheduling reconnect",
		logger.String("route", c.route.Path),
		logger.Int("attempt", attempt),
		logger.Duration("delay", delay))
}

func (c *Connector) tryReconnect() {
	c.mu.Lock()
	if c.callerClosed {
		c.state = StateClosed
		c.mu.Unlock()
		return
	}
	c.attempts++
	params := c.params
	c.mu.Unlock()

	if err := c.dial(context.Background(), params); err != nil {
		c.mu.Lock()
		exhausted := c.attempts >= c.policy.MaxAttempts
		callerClosed := c.callerClosed
		if !exhausted && !callerClosed {
			c.state = StateReconnecting
		}
		c.mu.Unlock()

		if callerClosed {
			return
		}
		if exhausted {
			// Terminal until the caller connects explicitly.
			logger.Warn("reconnect attempts exhausted",
				logger.String("route", c.route.Path),
				logger.Int("max_attempts", c.policy.MaxAttempts))
			return
		}
		c.scheduleReconnect()
	}
}

// Disconnect performs a caller-intentional close. It always suppresses
// reconnection regardless of close cleanliness and is idempotent when the
// connection is already closed.
func (c *Connector) Disconnect(code int, reason string) {
	c.mu.Lock()
	c.callerClosed = true
	c.stopReconnectLocked()
	conn := c.conn
	if conn == nil {
		// Idle, closed, or a connect still in flight; the dial path
		// observes callerClosed and finishes in Closed.
		c.state = StateClosed
		c.mu.Unlock()
		return
	}
	c.state = StateClosing
	c.mu.Unlock()

	deadline := time.Now().Add(time.Second)
	message := websocket.FormatCloseMessage(code, reason)
	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage, message, deadline)
	c.writeMu.Unlock()
	_ = conn.Close()
	// The read pump observes the close and completes the transition.
}

// Send JSON-encodes and writes the value only if the socket is currently
// open; otherwise the value is dropped with a logged warning. Sends are
// never queued or retried.
func (c *Connector) Send(v interface{}) error {
	c.mu.Lock()
	conn := c.conn
	open := c.state == StateOpen
	c.mu.Unlock()

	if !open || conn == nil {
		logger.Warn("send dropped, socket not open",
			logger.String("route", c.route.Path))
		return nil
	}

	c.writeMu.Lock()
	err := conn.WriteJSON(v)
	c.writeMu.Unlock()
	if err != nil {
		c.bridge.Emit(constants.EventError, err)
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

func (c *Connector) stopReconnectLocked() {
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
}

func cloneParams(params map[string]string) map[string]string {
	if params == nil {
		return nil
	}
	cloned := make(map[string]string, len(params))
	for key, value := range params {
		cloned[key] = value
	}
	return cloned
}
