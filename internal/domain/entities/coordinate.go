package entities

import (
	"encoding/json"
	"math"
	"strconv"
)

const (
	earthRadiusKm = 6371.0
	kmPerMile     = 1.60934
)

// Coordinate is a latitude/longitude pair. The zero value is invalid and is
// distinct from (0,0).
type Coordinate struct {
	Latitude  float64
	Longitude float64
	Valid     bool
}

// InvalidCoordinate represents "no coordinate".
var InvalidCoordinate = Coordinate{}

// NewCoordinate creates a valid coordinate. Out-of-range values produce
// InvalidCoordinate.
func NewCoordinate(lat, lng float64) Coordinate {
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return InvalidCoordinate
	}
	return Coordinate{Latitude: lat, Longitude: lng, Valid: true}
}

// String renders the coordinate as "<lat>,<lng>", or "" when invalid.
func (c Coordinate) String() string {
	if !c.Valid {
		return ""
	}
	return strconv.FormatFloat(c.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(c.Longitude, 'f', -1, 64)
}

// DistanceKm returns the great-circle distance to other using the haversine
// formula. ok is false when either coordinate is invalid.
func (c Coordinate) DistanceKm(other Coordinate) (km float64, ok bool) {
	if !c.Valid || !other.Valid {
		return 0, false
	}

	lat1Rad := toRadians(c.Latitude)
	lat2Rad := toRadians(other.Latitude)
	deltaLat := toRadians(other.Latitude - c.Latitude)
	deltaLon := toRadians(other.Longitude - c.Longitude)

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a)), true
}

// DistanceMiles is DistanceKm converted to statute miles.
func (c Coordinate) DistanceMiles(other Coordinate) (float64, bool) {
	km, ok := c.DistanceKm(other)
	if !ok {
		return 0, false
	}
	return km / kmPerMile, true
}

type coordinateJSON struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// MarshalJSON encodes an invalid coordinate as null.
func (c Coordinate) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(coordinateJSON{Latitude: c.Latitude, Longitude: c.Longitude})
}

// UnmarshalJSON decodes null as InvalidCoordinate.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = InvalidCoordinate
		return nil
	}
	var raw coordinateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = NewCoordinate(raw.Latitude, raw.Longitude)
	return nil
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
