package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/zatekoja/placesearch/internal/domain/entities"
	"github.com/zatekoja/placesearch/internal/domain/providers"
	"github.com/zatekoja/placesearch/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/placesearch/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultBaseURL     = "https://maps.googleapis.com"
	autocompletePath   = "/maps/api/place/autocomplete/json"
	textSearchPath     = "/maps/api/place/textsearch/json"
	detailsPath        = "/maps/api/place/details/json"
	defaultHTTPTimeout = 8 * time.Second
	maxResponseBytes   = 4 << 20

	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
	statusNotFound    = "NOT_FOUND"
)

// GoogleProvider implements the PlacesProvider using the Google Places web API.
type GoogleProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	observer   providers.RequestObserver
	logger     zerolog.Logger
}

// Options overrides GoogleProvider defaults. Zero fields keep the default.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Observer   providers.RequestObserver
}

// NewGoogleProvider creates a new Google places provider.
func NewGoogleProvider(apiKey string) *GoogleProvider {
	return NewGoogleProviderWithOptions(apiKey, Options{})
}

// NewGoogleProviderWithOptions allows overriding base URL, HTTP client and
// request observer (used for tests and metrics).
func NewGoogleProviderWithOptions(apiKey string, opts Options) *GoogleProvider {
	baseURL := strings.TrimSuffix(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	observer := opts.Observer
	if observer == nil {
		observer = providers.NopRequestObserver{}
	}
	return &GoogleProvider{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		observer:   observer,
		logger:     observability.ComponentLogger("google_places"),
	}
}

// Search runs a text search.
func (g *GoogleProvider) Search(ctx context.Context, query entities.Query) providers.Outcome[[]entities.SearchResult] {
	query = g.withKey(query)

	var payload textSearchResponse
	outcome := g.do(ctx, providers.RequestKindSearch, textSearchPath, BuildParams(query), &payload, &payload.envelope)
	if outcome.IsError() {
		return providers.Failure[[]entities.SearchResult](outcome.Err)
	}
	if outcome.IsEmpty() || len(payload.Results) == 0 {
		return providers.Empty[[]entities.SearchResult]()
	}

	results := make([]entities.SearchResult, 0, len(payload.Results))
	for _, entry := range payload.Results {
		results = append(results, ToSearchResult(entry))
	}
	return providers.Success(results)
}

// Autocomplete returns predictions for a partial query.
func (g *GoogleProvider) Autocomplete(ctx context.Context, query entities.Query) providers.Outcome[[]entities.PlaceSummary] {
	query = g.withKey(query)

	var payload autocompleteResponse
	outcome := g.do(ctx, providers.RequestKindAutocomplete, autocompletePath, BuildParams(query), &payload, &payload.envelope)
	if outcome.IsError() {
		return providers.Failure[[]entities.PlaceSummary](outcome.Err)
	}
	if outcome.IsEmpty() || len(payload.Predictions) == 0 {
		return providers.Empty[[]entities.PlaceSummary]()
	}

	summaries := make([]entities.PlaceSummary, 0, len(payload.Predictions))
	for _, prediction := range payload.Predictions {
		summaries = append(summaries, ToPlaceSummary(prediction))
	}
	return providers.Success(summaries)
}

// Details looks up a single place. A response missing result or
// formatted_address is an INVALID_DETAILS error.
func (g *GoogleProvider) Details(ctx context.Context, placeID, apiKey string) providers.Outcome[entities.PlaceDetails] {
	if strings.TrimSpace(placeID) == "" {
		return providers.Failure[entities.PlaceDetails](apperrors.NewValidationError("place id is required"))
	}
	if apiKey == "" {
		apiKey = g.apiKey
	}

	var payload DetailsResponse
	outcome := g.do(ctx, providers.RequestKindDetails, detailsPath, BuildDetailsParams(placeID, apiKey), &payload, &payload.envelope)
	if outcome.IsError() {
		return providers.Failure[entities.PlaceDetails](outcome.Err)
	}
	if outcome.IsEmpty() {
		return providers.Empty[entities.PlaceDetails]()
	}

	details, ok := ToPlaceDetails(payload)
	if !ok {
		err := apperrors.NewInvalidDetailsError(fmt.Sprintf("details for %s have no result or formatted_address", placeID))
		g.logger.Warn().Err(err).Str("place_id", placeID).Msg("invalid place details")
		return providers.Failure[entities.PlaceDetails](err)
	}
	return providers.Success(details)
}

func (g *GoogleProvider) withKey(q entities.Query) entities.Query {
	if q.APIKey == "" {
		q.APIKey = g.apiKey
	}
	return q
}

// do performs the GET and decodes into payload. The returned outcome carries
// no data: Success means status OK, Empty means ZERO_RESULTS (or NOT_FOUND).
func (g *GoogleProvider) do(ctx context.Context, kind providers.RequestKind, path string, params url.Values, payload any, env *envelope) (outcome providers.Outcome[struct{}]) {
	ctx, span := observability.StartSpan(ctx, "places."+string(kind))
	defer span.End()

	start := time.Now()
	g.observer.RequestStarted(ctx, kind)
	defer func() {
		g.observer.RequestFinished(ctx, kind, outcome.Kind, time.Since(start))
		observability.SetSpanAttributes(span,
			attribute.String("places.endpoint", string(kind)),
			attribute.String("places.outcome", string(outcome.Kind)),
		)
		if outcome.IsError() {
			observability.RecordError(span, outcome.Err)
			g.logger.Warn().Err(outcome.Err).Str("endpoint", string(kind)).Msg("places request failed")
		}
	}()

	if params.Get("key") == "" {
		return providers.Failure[struct{}](apperrors.NewValidationError("places api key is required"))
	}

	reqURL := g.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return providers.Failure[struct{}](apperrors.NewInternalError("failed to build places request", err))
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return providers.Failure[struct{}](apperrors.NewTransportError("places request failed", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return providers.Failure[struct{}](apperrors.NewHTTPStatusError("places request returned an error", resp.StatusCode))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(payload); err != nil {
		return providers.Failure[struct{}](apperrors.NewParseError("failed to decode places response", err))
	}

	switch env.Status {
	case statusOK:
		return providers.Success(struct{}{})
	case statusZeroResults:
		return providers.Empty[struct{}]()
	case statusNotFound:
		if kind == providers.RequestKindDetails {
			return providers.Empty[struct{}]()
		}
	}
	return providers.Failure[struct{}](apperrors.NewAPIStatusError("places request failed", env.Status, env.ErrorMessage))
}
