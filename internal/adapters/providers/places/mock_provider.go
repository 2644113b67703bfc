package places

import (
	"context"
	"strings"

	"github.com/zatekoja/placesearch/internal/domain/entities"
	"github.com/zatekoja/placesearch/internal/domain/providers"
	apperrors "github.com/zatekoja/placesearch/pkg/errors"
)

type mockPlace struct {
	id        string
	name      string
	address   string
	lat, lng  float64
	locality  string
	country   string
	countryCC string
}

// mockPlaces is a fixed catalogue used when no API key is configured.
var mockPlaces = []mockPlace{
	{id: "mock-times-square", name: "Times Square", address: "Manhattan, NY 10036, USA", lat: 40.758, lng: -73.9855, locality: "New York", country: "United States", countryCC: "US"},
	{id: "mock-central-park", name: "Central Park", address: "New York, NY, USA", lat: 40.7829, lng: -73.9654, locality: "New York", country: "United States", countryCC: "US"},
	{id: "mock-red-square", name: "Red Square", address: "Moscow, Russia, 109012", lat: 55.7539, lng: 37.6208, locality: "Moscow", country: "Russia", countryCC: "RU"},
	{id: "mock-lagos-island", name: "Lagos Island", address: "Lagos, Nigeria", lat: 6.4549, lng: 3.4246, locality: "Lagos", country: "Nigeria", countryCC: "NG"},
	{id: "mock-sabarmati", name: "Sabarmati Ashram", address: "Ashram Rd, Ahmedabad, Gujarat 380027, India", lat: 23.0607, lng: 72.5809, locality: "Ahmedabad", country: "India", countryCC: "IN"},
}

// MockProvider implements a mock places provider for local development
type MockProvider struct{}

// NewMockProvider creates a new mock places provider
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Search matches the query text case-insensitively against names and addresses
func (m *MockProvider) Search(ctx context.Context, query entities.Query) providers.Outcome[[]entities.SearchResult] {
	if err := ctx.Err(); err != nil {
		return providers.Failure[[]entities.SearchResult](apperrors.NewTransportError("mock search cancelled", err))
	}
	var results []entities.SearchResult
	for _, p := range match(query.Text) {
		c := entities.NewCoordinate(p.lat, p.lng)
		results = append(results, entities.SearchResult{MainAddress: p.name, SecondaryAddress: p.address, Coordinate: c, Location: c})
	}
	if len(results) == 0 {
		return providers.Empty[[]entities.SearchResult]()
	}
	return providers.Success(results)
}

// Autocomplete matches like Search and returns summaries
func (m *MockProvider) Autocomplete(ctx context.Context, query entities.Query) providers.Outcome[[]entities.PlaceSummary] {
	if err := ctx.Err(); err != nil {
		return providers.Failure[[]entities.PlaceSummary](apperrors.NewTransportError("mock autocomplete cancelled", err))
	}
	var summaries []entities.PlaceSummary
	for _, p := range match(query.Text) {
		summaries = append(summaries, entities.PlaceSummary{ID: p.id, MainAddress: p.name, SecondaryAddress: p.address})
	}
	if len(summaries) == 0 {
		return providers.Empty[[]entities.PlaceSummary]()
	}
	return providers.Success(summaries)
}

// Details returns the catalogue entry with the given id
func (m *MockProvider) Details(ctx context.Context, placeID, apiKey string) providers.Outcome[entities.PlaceDetails] {
	for _, p := range mockPlaces {
		if p.id != placeID {
			continue
		}
		c := entities.NewCoordinate(p.lat, p.lng)
		locality, country, cc := p.locality, p.country, p.countryCC
		return providers.Success(entities.PlaceDetails{
			FormattedAddress: p.name + ", " + p.address,
			Locality:         &locality,
			Country:          &country,
			CountryCode:      &cc,
			Coordinate:       &c,
		})
	}
	return providers.Empty[entities.PlaceDetails]()
}

func match(text string) []mockPlace {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return nil
	}
	var out []mockPlace
	for _, p := range mockPlaces {
		if strings.Contains(strings.ToLower(p.name), needle) || strings.Contains(strings.ToLower(p.address), needle) {
			out = append(out, p)
		}
	}
	return out
}
