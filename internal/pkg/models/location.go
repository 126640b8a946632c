package models

import (
	"math"
	"time"

	"github.com/mmcloughlin/geohash"
)

// GeohashPrecision is the cell size used when logging location fixes.
// Precision 7 is roughly a 150m x 150m cell.
const GeohashPrecision = 7

// GeoLocation represents a geographic location
type GeoLocation struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Address   string    `json:"address,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Geohash returns the geohash cell of the location
func (l GeoLocation) Geohash() string {
	return geohash.EncodeWithPrecision(l.Latitude, l.Longitude, GeohashPrecision)
}

// DistanceKm calculates the distance to another location in kilometers
// using the Haversine formula
func (l GeoLocation) DistanceKm(other GeoLocation) float64 {
	// Earth's radius in kilometers
	const earthRadius = 6371.0

	lat1 := l.Latitude * math.Pi / 180.0
	lon1 := l.Longitude * math.Pi / 180.0
	lat2 := other.Latitude * math.Pi / 180.0
	lon2 := other.Longitude * math.Pi / 180.0

	dLat := lat2 - lat1
	dLon := lon2 - lon1
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}
