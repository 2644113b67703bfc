package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/zatekoja/placesearch/internal/domain/entities"
	"github.com/zatekoja/placesearch/internal/domain/providers"
	"github.com/zatekoja/placesearch/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/placesearch/pkg/errors"
)

// SessionEventType names an event streamed to a session's subscribers
type SessionEventType string

const (
	SessionEventResults  SessionEventType = "results"
	SessionEventError    SessionEventType = "error"
	SessionEventSelected SessionEventType = "selected"
)

// SessionEvent is delivered to every subscriber of a session
type SessionEvent struct {
	Type      SessionEventType         `json:"type"`
	Results   *entities.ResultsEvent   `json:"results,omitempty"`
	Selection *entities.SelectionEvent `json:"selection,omitempty"`
	Query     string                   `json:"query,omitempty"`
	ErrorType string                   `json:"error_type,omitempty"`
	Error     string                   `json:"error,omitempty"`
}

// CreateSessionInput describes a new search session
type CreateSessionInput struct {
	// Origin is the host's current location, used for distance labels and,
	// when Radius is set, as the location bias.
	Origin      entities.Coordinate
	Radius      float64
	Placeholder string
}

// SessionServiceOptions configures a SessionService
type SessionServiceOptions struct {
	// Flow holds the per-session query defaults.
	Flow        FlowConfig
	Placeholder string
	EventBus    providers.EventBus
	Dispatcher  Dispatcher
	Metrics     *observability.Metrics
	// PublishTimeout bounds each selection publish on the event bus.
	PublishTimeout time.Duration
}

// Session is one presented search surface and its flow
type Session struct {
	ID          string
	Placeholder string
	Origin      entities.Coordinate
	CreatedAt   time.Time

	flow    *SearchFlow
	service *SessionService

	mu            sync.Mutex
	subscribers   map[chan SessionEvent]struct{}
	lastSelection *entities.SelectionEvent
	closed        bool
}

// SessionService keeps the live search sessions
type SessionService struct {
	provider providers.PlacesProvider
	opts     SessionServiceOptions
	logger   zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	wg       sync.WaitGroup
}

// NewSessionService creates a session registry backed by provider
func NewSessionService(provider providers.PlacesProvider, opts SessionServiceOptions) *SessionService {
	if opts.Dispatcher == nil {
		opts.Dispatcher = ImmediateDispatcher{}
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 5 * time.Second
	}
	return &SessionService{
		provider: provider,
		opts:     opts,
		logger:   observability.ComponentLogger("session_service"),
		sessions: make(map[string]*Session),
	}
}

// Create starts a new active, idle session
func (s *SessionService) Create(input CreateSessionInput) *Session {
	cfg := s.opts.Flow
	if input.Radius > 0 && input.Origin.Valid {
		cfg.LocationBias = input.Origin
		cfg.Radius = input.Radius
	}

	placeholder := input.Placeholder
	if placeholder == "" {
		placeholder = s.opts.Placeholder
	}

	session := &Session{
		ID:          uuid.NewString(),
		Placeholder: placeholder,
		Origin:      input.Origin,
		CreatedAt:   time.Now().UTC(),
		service:     s,
		subscribers: make(map[chan SessionEvent]struct{}),
	}
	session.flow = NewSearchFlow(s.provider, cfg, FlowOptions{
		Dispatcher: s.opts.Dispatcher,
		Observer:   session,
		Listener:   session,
		Metrics:    s.opts.Metrics,
	})

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	s.logger.Info().Str("session_id", session.ID).Bool("origin", input.Origin.Valid).Msg("session created")
	return session
}

// Get returns the session with the given id
func (s *SessionService) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("session not found")
	}
	return session, nil
}

// Delete dismisses a session and disconnects its subscribers
func (s *SessionService) Delete(id string) error {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return apperrors.NewNotFoundError("session not found")
	}
	session.close()
	s.logger.Info().Str("session_id", id).Msg("session deleted")
	return nil
}

// Count returns the number of live sessions
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SetQuery forwards a text change to the session's flow
func (s *SessionService) SetQuery(id, text string) error {
	session, err := s.Get(id)
	if err != nil {
		return err
	}
	session.flow.SetText(text)
	return nil
}

// Results returns the session's current rows
func (s *SessionService) Results(id string) ([]entities.ResultRow, error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return session.Rows(), nil
}

// Select picks the result at index and returns the resulting event
func (s *SessionService) Select(id string, index int) (*entities.SelectionEvent, error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return session.Select(index)
}

// LastSelection returns the session's most recent selection. Sessions that
// were already dismissed are looked up on the event bus.
func (s *SessionService) LastSelection(ctx context.Context, id string) (*entities.SelectionEvent, error) {
	if session, err := s.Get(id); err == nil {
		if event := session.LastSelection(); event != nil {
			return event, nil
		}
		return nil, apperrors.NewNotFoundError("no selection made in session")
	}
	if s.opts.EventBus == nil {
		return nil, apperrors.NewNotFoundError("session not found")
	}
	return s.opts.EventBus.LastSelection(ctx, id)
}

// Subscribe registers for a session's events. The returned function
// unsubscribes; the channel is closed when the session goes away.
func (s *SessionService) Subscribe(id string) (<-chan SessionEvent, func(), error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Close dismisses every session and waits for pending selection publishes
func (s *SessionService) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, session := range sessions {
		session.close()
	}
	s.wg.Wait()
}

// Text returns the session's current query text
func (ss *Session) Text() string { return ss.flow.Text() }

// State returns the session's flow state
func (ss *Session) State() FlowState { return ss.flow.State() }

// Active reports whether the session is still presented
func (ss *Session) Active() bool { return ss.flow.Active() }

// LastSelection returns the latest selection made in the session, or nil
func (ss *Session) LastSelection() *entities.SelectionEvent {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.lastSelection
}

// Rows returns the current results with distances from the session origin
func (ss *Session) Rows() []entities.ResultRow {
	return ss.rowsFor(ss.flow.Results())
}

func (ss *Session) rowsFor(results []entities.SearchResult) []entities.ResultRow {
	rows := make([]entities.ResultRow, 0, len(results))
	for _, result := range results {
		rows = append(rows, entities.NewResultRow(result, ss.Origin))
	}
	return rows
}

// Select picks the result at index, deactivating the session's flow
func (ss *Session) Select(index int) (*entities.SelectionEvent, error) {
	result, err := ss.flow.Select(index)
	if err != nil {
		return nil, err
	}
	return entities.NewSelectionEvent(ss.ID, index, result), nil
}

// ResultsChanged implements ResultsObserver
func (ss *Session) ResultsChanged(update ResultsUpdate) {
	ss.broadcast(SessionEvent{
		Type: SessionEventResults,
		Results: &entities.ResultsEvent{
			SessionID: ss.ID,
			Sequence:  update.Sequence,
			Query:     update.Query,
			Rows:      ss.rowsFor(update.Results),
			Timestamp: time.Now().UTC(),
		},
	})
}

// SearchFailed implements ResultsObserver
func (ss *Session) SearchFailed(query string, err error) {
	ss.broadcast(SessionEvent{
		Type:      SessionEventError,
		Query:     query,
		ErrorType: string(apperrors.TypeOf(err)),
		Error:     err.Error(),
	})
}

// DidSelect implements SelectionListener
func (ss *Session) DidSelect(index int, result entities.SearchResult) {
	event := entities.NewSelectionEvent(ss.ID, index, result)
	ss.mu.Lock()
	ss.lastSelection = event
	ss.mu.Unlock()

	ss.broadcast(SessionEvent{Type: SessionEventSelected, Selection: event})
	ss.service.publishSelection(event)
}

func (s *SessionService) publishSelection(event *entities.SelectionEvent) {
	if s.opts.EventBus == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.opts.PublishTimeout)
		defer cancel()

		for _, channel := range []string{providers.GetSessionChannel(event.SessionID), providers.EventChannelSelections} {
			if err := s.opts.EventBus.Publish(ctx, channel, event); err != nil {
				s.logger.Error().Err(err).Str("channel", channel).Str("session_id", event.SessionID).
					Msg("failed to publish selection")
			}
		}
	}()
}

func (ss *Session) subscribe() (<-chan SessionEvent, func()) {
	ch := make(chan SessionEvent, 16)

	ss.mu.Lock()
	if ss.closed {
		ss.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	ss.subscribers[ch] = struct{}{}
	ss.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			ss.mu.Lock()
			defer ss.mu.Unlock()
			if _, ok := ss.subscribers[ch]; ok {
				delete(ss.subscribers, ch)
				close(ch)
			}
		})
	}
}

func (ss *Session) broadcast(event SessionEvent) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	for ch := range ss.subscribers {
		select {
		case ch <- event:
		default:
			ss.service.logger.Warn().Str("session_id", ss.ID).Str("event", string(event.Type)).
				Msg("subscriber buffer full, dropping event")
		}
	}
}

func (ss *Session) close() {
	ss.flow.Deactivate()

	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.closed {
		return
	}
	ss.closed = true
	for ch := range ss.subscribers {
		close(ch)
	}
	ss.subscribers = nil
}
