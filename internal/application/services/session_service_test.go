package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/placesearch/internal/domain/entities"
	"github.com/zatekoja/placesearch/internal/domain/providers"
	apperrors "github.com/zatekoja/placesearch/pkg/errors"
)

// recordingEventBus records published selection events by channel
type recordingEventBus struct {
	mu        sync.Mutex
	published map[string][]*entities.SelectionEvent
}

func newRecordingEventBus() *recordingEventBus {
	return &recordingEventBus{published: make(map[string][]*entities.SelectionEvent)}
}

func (b *recordingEventBus) Publish(_ context.Context, channel string, event *entities.SelectionEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[channel] = append(b.published[channel], event)
	return nil
}

func (b *recordingEventBus) Subscribe(context.Context, string) (<-chan *entities.SelectionEvent, error) {
	return make(chan *entities.SelectionEvent), nil
}

func (b *recordingEventBus) LastSelection(_ context.Context, sessionID string) (*entities.SelectionEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := b.published[providers.GetSessionChannel(sessionID)]
	if len(events) == 0 {
		return nil, apperrors.NewNotFoundError("no selection recorded for session")
	}
	return events[len(events)-1], nil
}

func (b *recordingEventBus) Unsubscribe(context.Context, string) error { return nil }

func (b *recordingEventBus) Close() error { return nil }

func (b *recordingEventBus) on(channel string) []*entities.SelectionEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.published[channel]
}

func TestSessionService_CreateGetDelete(t *testing.T) {
	service := NewSessionService(newFakePlacesProvider(), SessionServiceOptions{Placeholder: "Enter Address"})

	session := service.Create(CreateSessionInput{})
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "Enter Address", session.Placeholder)
	assert.Equal(t, FlowStateIdle, session.State())
	assert.True(t, session.Active())
	assert.Equal(t, 1, service.Count())

	got, err := service.Get(session.ID)
	require.NoError(t, err)
	assert.Same(t, session, got)

	require.NoError(t, service.Delete(session.ID))
	assert.Equal(t, 0, service.Count())

	_, err = service.Get(session.ID)
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.TypeOf(err))
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.TypeOf(service.Delete(session.ID)))
}

func TestSessionService_CustomPlaceholder(t *testing.T) {
	service := NewSessionService(newFakePlacesProvider(), SessionServiceOptions{Placeholder: "Enter Address"})
	session := service.Create(CreateSessionInput{Placeholder: "Where to?"})
	assert.Equal(t, "Where to?", session.Placeholder)
}

func TestSessionService_UnknownSession(t *testing.T) {
	service := NewSessionService(newFakePlacesProvider(), SessionServiceOptions{})

	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.TypeOf(service.SetQuery("missing", "x")))
	_, err := service.Results("missing")
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.TypeOf(err))
	_, err = service.Select("missing", 0)
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.TypeOf(err))
	_, _, err = service.Subscribe("missing")
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.TypeOf(err))
}

func TestSessionService_QueryStreamsRowsWithDistance(t *testing.T) {
	provider := newFakePlacesProvider()
	provider.respond("times square", providers.Success([]entities.SearchResult{
		place("Times Square", 40.758, -73.9855),
		{MainAddress: "Nowhere"},
	}))

	service := NewSessionService(provider, SessionServiceOptions{Flow: FlowConfig{APIKey: "key"}})
	session := service.Create(CreateSessionInput{Origin: entities.NewCoordinate(40.7829, -73.9654)})

	events, unsubscribe, err := service.Subscribe(session.ID)
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, service.SetQuery(session.ID, "times square"))

	event := waitFor(t, events)
	require.Equal(t, SessionEventResults, event.Type)
	require.NotNil(t, event.Results)
	assert.Equal(t, session.ID, event.Results.SessionID)
	assert.Equal(t, "times square", event.Results.Query)
	require.Len(t, event.Results.Rows, 2)

	first := event.Results.Rows[0]
	require.NotNil(t, first.DistanceMiles)
	assert.InDelta(t, 2.0, *first.DistanceMiles, 0.1)
	assert.Equal(t, entities.FormatMiles(*first.DistanceMiles), first.DistanceLabel)

	second := event.Results.Rows[1]
	assert.Nil(t, second.DistanceMiles)
	assert.Empty(t, second.DistanceLabel)

	rows, err := service.Results(session.ID)
	require.NoError(t, err)
	assert.Equal(t, event.Results.Rows, rows)
	assert.Equal(t, "times square", session.Text())
}

func TestSessionService_ErrorEvent(t *testing.T) {
	provider := newFakePlacesProvider()
	provider.respond("boom", providers.Failure[[]entities.SearchResult](
		apperrors.NewAPIStatusError("places request failed", "REQUEST_DENIED", "invalid key")))

	service := NewSessionService(provider, SessionServiceOptions{})
	session := service.Create(CreateSessionInput{})
	events, unsubscribe, err := service.Subscribe(session.ID)
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, service.SetQuery(session.ID, "boom"))

	event := waitFor(t, events)
	assert.Equal(t, SessionEventError, event.Type)
	assert.Equal(t, "boom", event.Query)
	assert.Equal(t, string(apperrors.ErrorTypeAPIStatus), event.ErrorType)
	assert.Contains(t, event.Error, "REQUEST_DENIED")
}

func TestSessionService_RadiusUsesOriginAsBias(t *testing.T) {
	provider := newFakePlacesProvider()
	service := NewSessionService(provider, SessionServiceOptions{Flow: FlowConfig{Radius: 0}})

	origin := entities.NewCoordinate(23.0607, 72.5809)
	session := service.Create(CreateSessionInput{Origin: origin, Radius: 5000})
	require.NoError(t, service.SetQuery(session.ID, "ashram"))

	query := waitFor(t, provider.calls)
	assert.Equal(t, origin, query.Location)
	assert.Equal(t, float64(5000), query.Radius)
}

func TestSessionService_SelectPublishesOnce(t *testing.T) {
	provider := newFakePlacesProvider()
	results := []entities.SearchResult{place("Red Square", 55.7539, 37.6208), place("Kremlin", 55.752, 37.6175)}
	provider.respond("moscow", providers.Success(results))

	bus := newRecordingEventBus()
	service := NewSessionService(provider, SessionServiceOptions{EventBus: bus})
	session := service.Create(CreateSessionInput{})

	events, unsubscribe, err := service.Subscribe(session.ID)
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, service.SetQuery(session.ID, "moscow"))
	waitFor(t, events)

	selection, err := service.Select(session.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, results[1], selection.Result)
	assert.Equal(t, 1, selection.Index)
	assert.False(t, session.Active())

	event := waitFor(t, events)
	require.Equal(t, SessionEventSelected, event.Type)
	assert.Equal(t, results[1], event.Selection.Result)
	assert.Equal(t, 1, event.Selection.Index)

	_, err = service.Select(session.ID, 0)
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))

	service.Close()

	onSession := bus.on(providers.GetSessionChannel(session.ID))
	require.Len(t, onSession, 1)
	assert.Equal(t, results[1], onSession[0].Result)
	assert.Len(t, bus.on(providers.EventChannelSelections), 1)
}

func TestSessionService_LastSelection(t *testing.T) {
	provider := newFakePlacesProvider()
	provider.respond("moscow", providers.Success([]entities.SearchResult{place("Red Square", 55.7539, 37.6208)}))

	bus := newRecordingEventBus()
	service := NewSessionService(provider, SessionServiceOptions{EventBus: bus})
	defer service.Close()
	session := service.Create(CreateSessionInput{})

	_, err := service.LastSelection(context.Background(), session.ID)
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.TypeOf(err))

	events, unsubscribe, err := service.Subscribe(session.ID)
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, service.SetQuery(session.ID, "moscow"))
	waitFor(t, events)
	_, err = service.Select(session.ID, 0)
	require.NoError(t, err)
	waitFor(t, events)

	live, err := service.LastSelection(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, "Red Square", live.Result.MainAddress)

	require.Eventually(t, func() bool {
		return len(bus.on(providers.GetSessionChannel(session.ID))) == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, service.Delete(session.ID))

	stored, err := service.LastSelection(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, live.ID, stored.ID)

	_, err = NewSessionService(provider, SessionServiceOptions{}).LastSelection(context.Background(), "missing")
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.TypeOf(err))
}

func TestSessionService_QueuedSelectionKeepsItsIndex(t *testing.T) {
	provider := newFakePlacesProvider()
	results := []entities.SearchResult{place("Red Square", 55.7539, 37.6208), place("Kremlin", 55.752, 37.6175)}
	provider.respond("moscow", providers.Success(results))

	dispatcher := NewSerialDispatcher()
	defer dispatcher.Close()
	bus := newRecordingEventBus()
	service := NewSessionService(provider, SessionServiceOptions{EventBus: bus, Dispatcher: dispatcher})
	session := service.Create(CreateSessionInput{})

	events, unsubscribe, err := service.Subscribe(session.ID)
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, service.SetQuery(session.ID, "moscow"))
	waitFor(t, events)

	gate := make(chan struct{})
	dispatcher.Dispatch(func() { <-gate })

	_, err = service.Select(session.ID, 0)
	require.NoError(t, err)
	_, err = service.Select(session.ID, 1)
	require.Error(t, err)
	close(gate)

	event := waitFor(t, events)
	require.Equal(t, SessionEventSelected, event.Type)
	assert.Equal(t, 0, event.Selection.Index)
	assert.Equal(t, results[0], event.Selection.Result)

	last, err := service.LastSelection(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, last.Index)
	assert.Equal(t, "Red Square", last.Result.MainAddress)

	service.Close()
	published := bus.on(providers.EventChannelSelections)
	require.Len(t, published, 1)
	assert.Equal(t, 0, published[0].Index)
}

func TestSessionService_DeleteClosesSubscribers(t *testing.T) {
	service := NewSessionService(newFakePlacesProvider(), SessionServiceOptions{})
	session := service.Create(CreateSessionInput{})

	events, unsubscribe, err := service.Subscribe(session.ID)
	require.NoError(t, err)

	require.NoError(t, service.Delete(session.ID))
	_, open := <-events
	assert.False(t, open)
	assert.False(t, session.Active())

	unsubscribe()
}

func TestSessionService_Unsubscribe(t *testing.T) {
	service := NewSessionService(newFakePlacesProvider(), SessionServiceOptions{})
	session := service.Create(CreateSessionInput{})

	events, unsubscribe, err := service.Subscribe(session.ID)
	require.NoError(t, err)
	unsubscribe()
	unsubscribe()

	_, open := <-events
	assert.False(t, open)
}
