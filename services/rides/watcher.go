package rides

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/constants"
	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/logger"
	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/models"
	pkgws "github.com/wellbornbaba/ccdelete-sub001/internal/pkg/websocket"
)

// Conn is the connector surface the watcher needs
type Conn interface {
	Connect(ctx context.Context, params map[string]string) error
	Disconnect(code int, reason string)
	Events() *pkgws.Bridge
	IsConnected() bool
}

// Watcher listens on the active-rides route and counts newly assigned rides.
// It is created only for authenticated drivers marked available and holds no
// session or location state of its own. The owner tears it down whenever the
// role, availability or token changes, so duplicate connections never
// survive a rebuild.
type Watcher struct {
	conn     Conn
	driverID string
	token    string
	count    atomic.Int64
	off      func()
}

// NewWatcher creates a watcher over an existing connector
func NewWatcher(conn Conn, driverID, token string) *Watcher {
	w := &Watcher{
		conn:     conn,
		driverID: driverID,
		token:    token,
	}
	w.off = conn.Events().On(constants.EventMessage, w.handleMessage)
	return w
}

// NewWatcherFromConfig creates a watcher with its own connector bound to the
// active-rides route
func NewWatcherFromConfig(cfg models.SocketConfig, driverID, token string) *Watcher {
	route := pkgws.RouteTarget{
		BaseURL: cfg.BaseURL,
		Path:    cfg.ActiveRidesRoute,
	}
	var opts []pkgws.ConnectorOption
	if cfg.HandshakeTimeoutMs > 0 {
		opts = append(opts, pkgws.WithHandshakeTimeout(
			time.Duration(cfg.HandshakeTimeoutMs)*time.Millisecond))
	}
	conn := pkgws.NewConnector(route, pkgws.PolicyFromConfig(cfg), opts...)
	return NewWatcher(conn, driverID, token)
}

// Start opens the connection for the watcher's driver identity
func (w *Watcher) Start(ctx context.Context) error {
	params := map[string]string{
		constants.ParamDriverID: w.driverID,
	}
	if w.token != "" {
		params[constants.ParamToken] = w.token
	}
	return w.conn.Connect(ctx, params)
}

// Count returns how many ride assignments have been announced since Start
func (w *Watcher) Count() int64 {
	return w.count.Load()
}

// IsConnected reports whether the watcher connection is open
func (w *Watcher) IsConnected() bool {
	return w.conn.IsConnected()
}

// Stop unregisters the handler and closes the connection
func (w *Watcher) Stop() {
	if w.off != nil {
		w.off()
		w.off = nil
	}
	w.conn.Disconnect(pkgws.CloseNormalClosure, "watcher stopped")
}

func (w *Watcher) handleMessage(payload interface{}) {
	msg, ok := payload.(models.WSMessage)
	if !ok {
		return
	}
	if msg.Type != constants.EventActiveRideAssigned {
		return
	}
	total := w.count.Add(1)
	logger.Info("ride assigned",
		logger.String("driver_id", w.driverID),
		logger.Int64("total", total))
}
