package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/placesearch/internal/domain/entities"
	"github.com/zatekoja/placesearch/internal/domain/providers"
	apperrors "github.com/zatekoja/placesearch/pkg/errors"
)

type recordingObserver struct {
	mu       sync.Mutex
	started  []providers.RequestKind
	finished []providers.OutcomeKind
}

func (o *recordingObserver) RequestStarted(_ context.Context, kind providers.RequestKind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, kind)
}

func (o *recordingObserver) RequestFinished(_ context.Context, _ providers.RequestKind, outcome providers.OutcomeKind, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, outcome)
}

type fakeAPI struct {
	t        *testing.T
	mu       sync.Mutex
	requests []*url.URL
	status   int
	body     string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.URL)
	status, body := f.status, f.body
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (f *fakeAPI) lastRequest() *url.URL {
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(f.t, f.requests)
	return f.requests[len(f.requests)-1]
}

func newTestProvider(t *testing.T, status int, body string) (*GoogleProvider, *fakeAPI, *recordingObserver) {
	t.Helper()
	api := &fakeAPI{t: t, status: status, body: body}
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	observer := &recordingObserver{}
	provider := NewGoogleProviderWithOptions("test-key", Options{
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Observer:   observer,
	})
	return provider, api, observer
}

const textSearchOK = `{
  "html_attributions": [],
  "next_page_token": "token",
  "status": "OK",
  "results": [
    {
      "name": "Times Square",
      "formatted_address": "Manhattan, NY 10036, USA",
      "geometry": {"location": {"lat": 40.758, "lng": -73.9855}}
    },
    {
      "name": "Times Square Church",
      "formatted_address": "237 W 51st St, New York, NY 10019, USA"
    }
  ]
}`

func TestGoogleProvider_Search(t *testing.T) {
	provider, api, observer := newTestProvider(t, http.StatusOK, textSearchOK)

	outcome := provider.Search(context.Background(), entities.Query{
		Text:     "times square",
		Language: "en",
		Location: entities.NewCoordinate(40.7, -74),
		Radius:   500,
	})
	require.True(t, outcome.IsSuccess(), "outcome: %+v", outcome)
	require.Len(t, outcome.Data, 2)

	assert.Equal(t, "Times Square", outcome.Data[0].MainAddress)
	assert.True(t, outcome.Data[0].Location.Valid)
	assert.Equal(t, "Times Square Church", outcome.Data[1].MainAddress)
	assert.False(t, outcome.Data[1].Coordinate.Valid)
	assert.False(t, outcome.Data[1].Location.Valid)

	req := api.lastRequest()
	assert.Equal(t, textSearchPath, req.Path)
	assert.Equal(t, "times square", req.Query().Get("query"))
	assert.Equal(t, "test-key", req.Query().Get("key"))
	assert.Equal(t, "en", req.Query().Get("language"))
	assert.Equal(t, "40.7,-74", req.Query().Get("location"))
	assert.Equal(t, "500", req.Query().Get("radius"))

	assert.Equal(t, []providers.RequestKind{providers.RequestKindSearch}, observer.started)
	assert.Equal(t, []providers.OutcomeKind{providers.OutcomeKindSuccess}, observer.finished)
}

func TestGoogleProvider_SearchZeroResultsIsEmpty(t *testing.T) {
	provider, _, observer := newTestProvider(t, http.StatusOK, `{"html_attributions": [], "results": [], "status": "ZERO_RESULTS"}`)

	outcome := provider.Search(context.Background(), entities.Query{Text: "nowhere"})
	assert.True(t, outcome.IsEmpty())
	assert.NoError(t, outcome.Err)
	assert.Equal(t, []providers.OutcomeKind{providers.OutcomeKindEmpty}, observer.finished)
}

func TestGoogleProvider_SearchOKWithoutResultsIsEmpty(t *testing.T) {
	provider, _, _ := newTestProvider(t, http.StatusOK, `{"results": [], "status": "OK"}`)

	outcome := provider.Search(context.Background(), entities.Query{Text: "nowhere"})
	assert.True(t, outcome.IsEmpty())
}

func TestGoogleProvider_Failures(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		wantType apperrors.ErrorType
	}{
		{"non-200 status", http.StatusInternalServerError, `{"status": "OK"}`, apperrors.ErrorTypeHTTPStatus},
		{"api status not OK", http.StatusOK, `{"status": "REQUEST_DENIED", "error_message": "The provided API key is invalid."}`, apperrors.ErrorTypeAPIStatus},
		{"missing status", http.StatusOK, `{"results": []}`, apperrors.ErrorTypeAPIStatus},
		{"malformed json", http.StatusOK, `{"status": "OK", "results": [`, apperrors.ErrorTypeParse},
		{"results of wrong type", http.StatusOK, `{"status": "OK", "results": {"name": "x"}}`, apperrors.ErrorTypeParse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider, _, observer := newTestProvider(t, tc.status, tc.body)

			outcome := provider.Search(context.Background(), entities.Query{Text: "times square"})
			require.True(t, outcome.IsError())
			assert.Equal(t, tc.wantType, apperrors.TypeOf(outcome.Err))
			assert.Nil(t, outcome.Data)
			assert.Equal(t, []providers.OutcomeKind{providers.OutcomeKindError}, observer.finished)
		})
	}
}

func TestGoogleProvider_SearchKeepsEntriesWithWrongTypedStrings(t *testing.T) {
	provider, _, _ := newTestProvider(t, http.StatusOK, `{
		"status": "OK",
		"results": [
			{"name": 123, "formatted_address": "Somewhere", "geometry": {"location": {"lat": 1, "lng": 2}}},
			{"name": "Times Square", "formatted_address": "Manhattan, NY 10036, USA"}
		]
	}`)

	outcome := provider.Search(context.Background(), entities.Query{Text: "x"})
	require.True(t, outcome.IsSuccess())
	require.Len(t, outcome.Data, 2)
	assert.Equal(t, "", outcome.Data[0].MainAddress)
	assert.Equal(t, "Somewhere", outcome.Data[0].SecondaryAddress)
	assert.Equal(t, "Times Square", outcome.Data[1].MainAddress)
}

func TestGoogleProvider_APIStatusCarriesStatus(t *testing.T) {
	provider, _, _ := newTestProvider(t, http.StatusOK, `{"status": "OVER_QUERY_LIMIT"}`)

	outcome := provider.Search(context.Background(), entities.Query{Text: "x"})
	require.True(t, outcome.IsError())

	var appErr *apperrors.AppError
	require.ErrorAs(t, outcome.Err, &appErr)
	assert.Equal(t, "OVER_QUERY_LIMIT", appErr.APIStatus)
}

func TestGoogleProvider_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	provider := NewGoogleProviderWithOptions("test-key", Options{BaseURL: baseURL})
	outcome := provider.Search(context.Background(), entities.Query{Text: "x"})
	require.True(t, outcome.IsError())
	assert.Equal(t, apperrors.ErrorTypeTransport, apperrors.TypeOf(outcome.Err))
}

func TestGoogleProvider_CancelledContext(t *testing.T) {
	provider, _, _ := newTestProvider(t, http.StatusOK, textSearchOK)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := provider.Search(ctx, entities.Query{Text: "x"})
	require.True(t, outcome.IsError())
	assert.ErrorIs(t, outcome.Err, context.Canceled)
}

func TestGoogleProvider_MissingAPIKey(t *testing.T) {
	provider := NewGoogleProviderWithOptions("", Options{BaseURL: "http://127.0.0.1:1"})

	outcome := provider.Search(context.Background(), entities.Query{Text: "x"})
	require.True(t, outcome.IsError())
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(outcome.Err))
}

func TestGoogleProvider_QueryKeyOverridesDefault(t *testing.T) {
	provider, api, _ := newTestProvider(t, http.StatusOK, textSearchOK)

	provider.Search(context.Background(), entities.Query{Text: "x", APIKey: "session-key"})
	assert.Equal(t, "session-key", api.lastRequest().Query().Get("key"))
}

func TestGoogleProvider_Autocomplete(t *testing.T) {
	provider, api, _ := newTestProvider(t, http.StatusOK, `{
	  "status": "OK",
	  "predictions": [
	    {"place_id": "p1", "structured_formatting": {"main_text": "Red Square", "secondary_text": "Moscow, Russia"}},
	    {"place_id": "p2"}
	  ]
	}`)

	outcome := provider.Autocomplete(context.Background(), entities.Query{Text: "red sq", PlaceType: entities.PlaceTypeEstablishment})
	require.True(t, outcome.IsSuccess())
	assert.Equal(t, []entities.PlaceSummary{
		{ID: "p1", MainAddress: "Red Square", SecondaryAddress: "Moscow, Russia"},
		{ID: "p2"},
	}, outcome.Data)

	req := api.lastRequest()
	assert.Equal(t, autocompletePath, req.Path)
	assert.Equal(t, "red sq", req.Query().Get("query"))
	assert.Equal(t, "establishment", req.Query().Get("types"))
}

func TestGoogleProvider_Details(t *testing.T) {
	provider, api, _ := newTestProvider(t, http.StatusOK, `{
	  "html_attributions": [],
	  "status": "OK",
	  "result": {
	    "formatted_address": "90 Main St",
	    "address_components": [{"types": ["street_number"], "short_name": "90", "long_name": "90"}],
	    "geometry": {"location": {"lat": 1.25, "lng": 2.5}}
	  }
	}`)

	outcome := provider.Details(context.Background(), "place-90", "")
	require.True(t, outcome.IsSuccess())
	assert.Equal(t, "90 Main St", outcome.Data.FormattedAddress)
	assert.Equal(t, "90", *outcome.Data.StreetNumber)
	assert.Equal(t, entities.NewCoordinate(1.25, 2.5), *outcome.Data.Coordinate)

	req := api.lastRequest()
	assert.Equal(t, detailsPath, req.Path)
	assert.Equal(t, "place-90", req.Query().Get("placeid"))
	assert.Equal(t, "test-key", req.Query().Get("key"))
}

func TestGoogleProvider_DetailsWithoutResult(t *testing.T) {
	provider, _, _ := newTestProvider(t, http.StatusOK, `{"status": "OK"}`)

	outcome := provider.Details(context.Background(), "place-1", "")
	require.True(t, outcome.IsError())
	assert.Equal(t, apperrors.ErrorTypeInvalidDetails, apperrors.TypeOf(outcome.Err))
}

func TestGoogleProvider_DetailsNotFoundIsEmpty(t *testing.T) {
	provider, _, _ := newTestProvider(t, http.StatusOK, `{"status": "NOT_FOUND"}`)

	outcome := provider.Details(context.Background(), "missing", "")
	assert.True(t, outcome.IsEmpty())
}

func TestGoogleProvider_DetailsRequiresID(t *testing.T) {
	provider, api, _ := newTestProvider(t, http.StatusOK, `{"status": "OK"}`)

	outcome := provider.Details(context.Background(), " ", "")
	require.True(t, outcome.IsError())
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(outcome.Err))
	assert.Empty(t, api.requests)
}
