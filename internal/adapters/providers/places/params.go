package places

import (
	"net/url"
	"strconv"

	"github.com/zatekoja/placesearch/internal/domain/entities"
)

// BuildParams encodes a query for the text search and autocomplete
// endpoints. The text goes out as "query" for both.
func BuildParams(q entities.Query) url.Values {
	params := url.Values{}
	params.Set("query", q.Text)
	params.Set("key", q.APIKey)
	if q.Language != "" {
		params.Set("language", q.Language)
	}
	if q.PlaceType != entities.PlaceTypeAll {
		params.Set("types", string(q.PlaceType))
	}
	if q.Location.Valid {
		params.Set("location", q.Location.String())
		if q.HasRadius() {
			params.Set("radius", strconv.FormatFloat(q.Radius, 'f', -1, 64))
		}
	}
	return params
}

// BuildDetailsParams encodes a details lookup.
func BuildDetailsParams(placeID, apiKey string) url.Values {
	params := url.Values{}
	params.Set("placeid", placeID)
	params.Set("key", apiKey)
	return params
}
