package places

import (
	"slices"

	"github.com/zatekoja/placesearch/internal/domain/entities"
)

type componentForm int

const (
	shortName componentForm = iota
	longName
)

// ToPlaceSummary maps an autocomplete prediction. Missing fields become "".
func ToPlaceSummary(p Prediction) entities.PlaceSummary {
	summary := entities.PlaceSummary{ID: p.PlaceID.Value}
	if p.StructuredFormatting != nil {
		summary.MainAddress = p.StructuredFormatting.MainText.Value
		summary.SecondaryAddress = p.StructuredFormatting.SecondaryText.Value
	}
	return summary
}

// ToSearchResult maps a text search entry. Without a numeric location both
// Coordinate and Location are entities.InvalidCoordinate.
func ToSearchResult(e TextSearchEntry) entities.SearchResult {
	coordinate := coordinateOf(e.Geometry)
	return entities.SearchResult{
		MainAddress:      e.Name.Value,
		SecondaryAddress: e.FormattedAddress.Value,
		Coordinate:       coordinate,
		Location:         coordinate,
	}
}

// ToPlaceDetails maps a details response. ok is false when there is no result
// object or it has no formatted_address.
func ToPlaceDetails(resp DetailsResponse) (entities.PlaceDetails, bool) {
	if resp.Result == nil || !resp.Result.FormattedAddress.Set {
		return entities.PlaceDetails{}, false
	}

	result := resp.Result
	components := result.AddressComponents
	details := entities.PlaceDetails{
		FormattedAddress:       result.FormattedAddress.Value,
		StreetNumber:           component(components, "street_number", shortName),
		Route:                  component(components, "route", shortName),
		PostalCode:             component(components, "postal_code", longName),
		Country:                component(components, "country", longName),
		CountryCode:            component(components, "country", shortName),
		Locality:               component(components, "locality", longName),
		SubLocality:            component(components, "sublocality", longName),
		AdministrativeArea:     component(components, "administrative_area_level_1", longName),
		AdministrativeAreaCode: component(components, "administrative_area_level_1", shortName),
		SubAdministrativeArea:  component(components, "administrative_area_level_2", longName),
	}

	if c := coordinateOf(result.Geometry); c.Valid {
		details.Coordinate = &c
	}

	return details, true
}

// component returns the requested form of the first component tagged with
// target. Later matches are ignored.
func component(components []AddressComponent, target string, form componentForm) *string {
	idx := slices.IndexFunc(components, func(c AddressComponent) bool {
		return slices.Contains(c.Types, target)
	})
	if idx < 0 {
		return nil
	}
	if form == shortName {
		return components[idx].ShortName.Ptr()
	}
	return components[idx].LongName.Ptr()
}

func coordinateOf(g *Geometry) entities.Coordinate {
	if g == nil || g.Location == nil || !g.Location.Lat.Set || !g.Location.Lng.Set {
		return entities.InvalidCoordinate
	}
	return entities.NewCoordinate(g.Location.Lat.Value, g.Location.Lng.Value)
}
