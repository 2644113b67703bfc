package places

import (
	"encoding/json"
)

// envelope holds the top-level fields shared by every places response. None
// of them reach the mapper.
type envelope struct {
	HTMLAttributions []json.RawMessage `json:"html_attributions"`
	Status           string            `json:"status"`
	ErrorMessage     string            `json:"error_message,omitempty"`
	NextPageToken    string            `json:"next_page_token,omitempty"`
}

type autocompleteResponse struct {
	envelope
	Predictions []Prediction `json:"predictions"`
}

type textSearchResponse struct {
	envelope
	Results []TextSearchEntry `json:"results"`
}

// DetailsResponse is the decoded body of a place details request.
type DetailsResponse struct {
	envelope
	Result *DetailsResult `json:"result"`
}

// Prediction is a single autocomplete entry.
type Prediction struct {
	PlaceID              optionalString        `json:"place_id"`
	StructuredFormatting *StructuredFormatting `json:"structured_formatting"`
}

// StructuredFormatting splits a prediction into its main and secondary text.
type StructuredFormatting struct {
	MainText      optionalString `json:"main_text"`
	SecondaryText optionalString `json:"secondary_text"`
}

// TextSearchEntry is a single text search result.
type TextSearchEntry struct {
	Name             optionalString `json:"name"`
	FormattedAddress optionalString `json:"formatted_address"`
	Geometry         *Geometry      `json:"geometry"`
}

// DetailsResult is the "result" object of a details response.
type DetailsResult struct {
	FormattedAddress  optionalString     `json:"formatted_address"`
	AddressComponents []AddressComponent `json:"address_components"`
	Geometry          *Geometry          `json:"geometry"`
}

// AddressComponent is a tagged fragment of a geocoded address.
// Example: {"long_name": "90", "short_name": "90", "types": ["street_number"]}
type AddressComponent struct {
	LongName  optionalString `json:"long_name"`
	ShortName optionalString `json:"short_name"`
	Types     stringList     `json:"types"`
}

// Geometry wraps the location of a place.
type Geometry struct {
	Location *LatLng `json:"location"`
}

// LatLng holds the raw coordinate fields.
type LatLng struct {
	Lat optionalFloat `json:"lat"`
	Lng optionalFloat `json:"lng"`
}

// Scalar fields decode loosely: a value of the wrong JSON type leaves the
// field unset instead of failing the whole payload, and the mapper then
// substitutes its default. Containers of the wrong type are still errors.

// optionalFloat is set only when the JSON value is a number.
type optionalFloat struct {
	Value float64
	Set   bool
}

func (f *optionalFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = optionalFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		*f = optionalFloat{}
		return nil
	}
	*f = optionalFloat{Value: v, Set: true}
	return nil
}

func (f optionalFloat) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// optionalString is set only when the JSON value is a string.
type optionalString struct {
	Value string
	Set   bool
}

func (s *optionalString) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil || string(data) == "null" {
		*s = optionalString{}
		return nil
	}
	*s = optionalString{Value: v, Set: true}
	return nil
}

func (s optionalString) MarshalJSON() ([]byte, error) {
	if !s.Set {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// Ptr returns the value, or nil when unset.
func (s optionalString) Ptr() *string {
	if !s.Set {
		return nil
	}
	v := s.Value
	return &v
}

// stringList keeps the string members of a JSON array and drops the rest. A
// non-array decodes as empty.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*l = nil
		return nil
	}
	out := make(stringList, 0, len(raw))
	for _, item := range raw {
		var v string
		if err := json.Unmarshal(item, &v); err == nil {
			out = append(out, v)
		}
	}
	*l = out
	return nil
}
