package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/zatekoja/placesearch/internal/application/services"
	"github.com/zatekoja/placesearch/internal/domain/entities"
	"github.com/zatekoja/placesearch/internal/domain/providers"
	apperrors "github.com/zatekoja/placesearch/pkg/errors"
)

// PlacesHandler exposes one-shot places lookups
type PlacesHandler struct {
	provider providers.PlacesProvider
	defaults services.FlowConfig
}

// NewPlacesHandler creates a new places handler. defaults supplies the key,
// language, place type and bias used when a request does not override them.
func NewPlacesHandler(provider providers.PlacesProvider, defaults services.FlowConfig) *PlacesHandler {
	return &PlacesHandler{
		provider: provider,
		defaults: defaults,
	}
}

// Search handles GET /api/places/search?query=&lat=&lng=&radius=&type=
func (h *PlacesHandler) Search(w http.ResponseWriter, r *http.Request) {
	query, err := h.parseQuery(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	outcome := h.provider.Search(r.Context(), query)
	if outcome.IsError() {
		respondWithAppError(w, r, outcome.Err)
		return
	}

	results := outcome.Data
	if results == nil {
		results = []entities.SearchResult{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query.Text,
		"status":  outcome.Kind,
		"results": results,
		"count":   len(results),
	})
}

// Autocomplete handles GET /api/places/autocomplete?query=&lat=&lng=&radius=&type=
func (h *PlacesHandler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	query, err := h.parseQuery(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	outcome := h.provider.Autocomplete(r.Context(), query)
	if outcome.IsError() {
		respondWithAppError(w, r, outcome.Err)
		return
	}

	predictions := outcome.Data
	if predictions == nil {
		predictions = []entities.PlaceSummary{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"query":       query.Text,
		"status":      outcome.Kind,
		"predictions": predictions,
		"count":       len(predictions),
	})
}

// Details handles GET /api/places/{id}
func (h *PlacesHandler) Details(w http.ResponseWriter, r *http.Request) {
	placeID := strings.TrimSpace(r.PathValue("id"))
	if placeID == "" {
		respondWithError(w, http.StatusBadRequest, "place ID is required")
		return
	}

	outcome := h.provider.Details(r.Context(), placeID, h.defaults.APIKey)
	switch {
	case outcome.IsError():
		respondWithAppError(w, r, outcome.Err)
	case outcome.IsEmpty():
		respondWithAppError(w, r, apperrors.NewNotFoundError("place not found"))
	default:
		respondWithJSON(w, http.StatusOK, outcome.Data)
	}
}

// placesParams are the query-string inputs shared by search and autocomplete
type placesParams struct {
	Query  string   `validate:"required,max=256"`
	Lat    *float64 `validate:"omitempty,gte=-90,lte=90"`
	Lng    *float64 `validate:"omitempty,gte=-180,lte=180"`
	Radius *float64 `validate:"omitempty,gt=0,lte=50000"`
}

func (h *PlacesHandler) parseQuery(r *http.Request) (entities.Query, error) {
	values := r.URL.Query()

	params := placesParams{Query: strings.TrimSpace(values.Get("query"))}
	var err error
	if params.Lat, err = optionalFloatParam(values.Get("lat"), "lat"); err != nil {
		return entities.Query{}, err
	}
	if params.Lng, err = optionalFloatParam(values.Get("lng"), "lng"); err != nil {
		return entities.Query{}, err
	}
	if params.Radius, err = optionalFloatParam(values.Get("radius"), "radius"); err != nil {
		return entities.Query{}, err
	}
	if err := validate.Struct(params); err != nil {
		return entities.Query{}, apperrors.NewValidationError(err.Error())
	}
	if (params.Lat == nil) != (params.Lng == nil) {
		return entities.Query{}, apperrors.NewValidationError("lat and lng must be given together")
	}

	query := entities.Query{
		Text:      params.Query,
		APIKey:    h.defaults.APIKey,
		Language:  h.defaults.Language,
		PlaceType: h.defaults.PlaceType,
		Location:  h.defaults.LocationBias,
		Radius:    h.defaults.Radius,
	}
	if raw := values.Get("type"); raw != "" {
		placeType, err := entities.ParsePlaceType(raw)
		if err != nil {
			return entities.Query{}, apperrors.NewValidationError(err.Error())
		}
		query.PlaceType = placeType
	}
	if params.Lat != nil && params.Lng != nil {
		query.Location = entities.NewCoordinate(*params.Lat, *params.Lng)
	}
	if params.Radius != nil {
		query.Radius = *params.Radius
	}
	return query, nil
}

func optionalFloatParam(raw, name string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid " + name + " parameter")
	}
	return &v, nil
}
