package constants

// Connection-level events emitted by the connector
const (
	EventConnected    = "connected"
	EventDisconnected = "disconnected"
	EventError        = "error"
	EventMessage      = "message"
)

// Trip protocol message types (client-originated; the server echoes the same
// set back as events)
const (
	EventLocationUpdate = "locationUpdate"
	EventTripStarted    = "tripStarted"
	EventTripEnded      = "tripEnded"
	EventTripCancelled  = "tripCancelled"
	// Spelling matches the server contract.
	EventTripAllCancelled = "tripAllCancalled"
)

// Ride request events (server-originated, active-rides route)
const (
	EventActiveRideAssigned = "activeRideAssigned"
)

// WebSocket routes
const (
	RouteTrip        = "/ws/trip"
	RouteActiveRides = "/ws/active-rides"
)

// Connection query parameters
const (
	ParamUserID   = "userid"
	ParamRideID   = "rideid"
	ParamDriverID = "driverId"
	ParamToken    = "token"
)

// WebSocket error codes
const (
	ErrorInvalidFormat = "invalid_format"
	ErrorUnauthorized  = "unauthorized"
	ErrorInternalError = "internal_error"
)
