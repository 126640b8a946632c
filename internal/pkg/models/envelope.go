package models

import "encoding/json"

// WSMessage represents an inbound WebSocket message. The type field is the
// sole dispatch key; the payload shape is determined by the type.
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// TripEnvelope represents an outbound trip protocol message. Outbound fields
// are flattened at the top level; field names match the server contract.
type TripEnvelope struct {
	Type            string       `json:"type"`
	UserID          string       `json:"userid"`
	RideID          string       `json:"rideid,omitempty"`
	PassengerID     string       `json:"passengerid,omitempty"`
	HistoryID       string       `json:"historyid,omitempty"`
	CurrentLocation *GeoLocation `json:"currentLocation,omitempty"`
}

// RideAssignment is the payload of an activeRideAssigned event
type RideAssignment struct {
	RideID      string `json:"rideid"`
	PassengerID string `json:"passengerid,omitempty"`
	Message     string `json:"message,omitempty"`
}

// WSErrorMessage represents an error payload sent over WebSocket
type WSErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
