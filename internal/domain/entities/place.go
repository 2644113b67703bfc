package entities

import (
	"fmt"
	"strings"
)

// PlaceType restricts autocomplete and search results to a category.
type PlaceType string

const (
	PlaceTypeAll           PlaceType = ""
	PlaceTypeGeocode       PlaceType = "geocode"
	PlaceTypeAddress       PlaceType = "address"
	PlaceTypeEstablishment PlaceType = "establishment"
	PlaceTypeRegions       PlaceType = "(regions)"
	PlaceTypeCities        PlaceType = "(cities)"
)

// ParsePlaceType accepts the wire value or its bare name ("cities").
func ParsePlaceType(s string) (PlaceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return PlaceTypeAll, nil
	case "geocode":
		return PlaceTypeGeocode, nil
	case "address":
		return PlaceTypeAddress, nil
	case "establishment":
		return PlaceTypeEstablishment, nil
	case "regions", "(regions)":
		return PlaceTypeRegions, nil
	case "cities", "(cities)":
		return PlaceTypeCities, nil
	default:
		return PlaceTypeAll, fmt.Errorf("unknown place type %q", s)
	}
}

// PlaceSummary is a single autocomplete prediction.
type PlaceSummary struct {
	ID               string `json:"id"`
	MainAddress      string `json:"main_address"`
	SecondaryAddress string `json:"secondary_address"`
}

func (p PlaceSummary) String() string {
	return p.MainAddress + ", " + p.SecondaryAddress
}

// SearchResult is a single text search entry. Location is InvalidCoordinate
// whenever Coordinate is.
type SearchResult struct {
	MainAddress      string     `json:"main_address"`
	SecondaryAddress string     `json:"secondary_address"`
	Coordinate       Coordinate `json:"coordinate"`
	Location         Coordinate `json:"location"`
}

func (r SearchResult) String() string {
	return r.MainAddress + ", " + r.SecondaryAddress
}

// PlaceDetails is the structured address of a single place. Optional fields
// stay nil when the matching address component is absent.
type PlaceDetails struct {
	FormattedAddress       string      `json:"formatted_address"`
	StreetNumber           *string     `json:"street_number,omitempty"`
	Route                  *string     `json:"route,omitempty"`
	PostalCode             *string     `json:"postal_code,omitempty"`
	Country                *string     `json:"country,omitempty"`
	CountryCode            *string     `json:"country_code,omitempty"`
	Locality               *string     `json:"locality,omitempty"`
	SubLocality            *string     `json:"sub_locality,omitempty"`
	AdministrativeArea     *string     `json:"administrative_area,omitempty"`
	AdministrativeAreaCode *string     `json:"administrative_area_code,omitempty"`
	SubAdministrativeArea  *string     `json:"sub_administrative_area,omitempty"`
	Coordinate             *Coordinate `json:"coordinate,omitempty"`
}

func (d PlaceDetails) String() string {
	if d.Coordinate == nil {
		return fmt.Sprintf("Address: %s", d.FormattedAddress)
	}
	return fmt.Sprintf("Address: %s coordinate: (%s)", d.FormattedAddress, d.Coordinate)
}

// Query holds the request parameters for a single search or autocomplete call.
type Query struct {
	Text      string
	APIKey    string
	Language  string
	PlaceType PlaceType
	Location  Coordinate
	Radius    float64
}

// HasRadius reports whether the radius should be sent. A radius without a
// location bias is meaningless to the API.
func (q Query) HasRadius() bool {
	return q.Radius > 0 && q.Location.Valid
}
