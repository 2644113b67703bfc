package services

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/zatekoja/placesearch/internal/domain/entities"
	"github.com/zatekoja/placesearch/internal/domain/providers"
	"github.com/zatekoja/placesearch/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/placesearch/pkg/errors"
)

// FlowState is the state of a SearchFlow.
type FlowState string

const (
	// FlowStateIdle means the query text is empty.
	FlowStateIdle FlowState = "idle"
	// FlowStateSearching means a request is in flight or its result is held.
	FlowStateSearching FlowState = "searching"
)

// FlowConfig holds the fixed query parameters of a flow.
type FlowConfig struct {
	APIKey       string
	Language     string
	PlaceType    entities.PlaceType
	LocationBias entities.Coordinate
	Radius       float64
	// Debounce delays each request; a newer text change within the window
	// supersedes it before it is sent.
	Debounce time.Duration
}

// ResultsUpdate is a published result list.
type ResultsUpdate struct {
	Sequence uint64
	Query    string
	Results  []entities.SearchResult
	Outcome  providers.OutcomeKind
}

// ResultsObserver receives every published result list and search failure.
type ResultsObserver interface {
	ResultsChanged(update ResultsUpdate)
	SearchFailed(query string, err error)
}

// SelectionListener receives the host-facing selection event with the index
// of the selected row.
type SelectionListener interface {
	DidSelect(index int, result entities.SearchResult)
}

// FlowOptions wires a SearchFlow to its collaborators. Nil fields are
// replaced with no-op implementations.
type FlowOptions struct {
	Dispatcher Dispatcher
	Observer   ResultsObserver
	Listener   SelectionListener
	Metrics    *observability.Metrics
}

// SearchFlow turns text changes into search requests and publishes results.
// Only the response to the most recent text change is applied; older in-flight
// requests are cancelled and their responses dropped.
type SearchFlow struct {
	provider   providers.PlacesProvider
	cfg        FlowConfig
	dispatcher Dispatcher
	observer   ResultsObserver
	listener   SelectionListener
	metrics    *observability.Metrics
	logger     zerolog.Logger

	// publishMu orders publications so observers never see a stale list
	// after a newer one.
	publishMu sync.Mutex

	mu       sync.Mutex
	text     string
	results  []entities.SearchResult
	sequence uint64
	cancel   context.CancelFunc
	active   bool
}

// NewSearchFlow creates an active, idle flow.
func NewSearchFlow(provider providers.PlacesProvider, cfg FlowConfig, opts FlowOptions) *SearchFlow {
	if opts.Dispatcher == nil {
		opts.Dispatcher = ImmediateDispatcher{}
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Listener == nil {
		opts.Listener = nopObserver{}
	}
	return &SearchFlow{
		provider:   provider,
		cfg:        cfg,
		dispatcher: opts.Dispatcher,
		observer:   opts.Observer,
		listener:   opts.Listener,
		metrics:    opts.Metrics,
		logger:     observability.ComponentLogger("search_flow"),
		active:     true,
	}
}

// SetText handles a text change. Empty text clears the list without a
// request; anything else issues a search for exactly that text.
func (f *SearchFlow) SetText(text string) {
	f.mu.Lock()
	f.active = true
	f.text = text
	f.sequence++
	seq := f.sequence
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}

	if text == "" {
		f.results = nil
		f.mu.Unlock()
		f.dispatcher.Dispatch(func() {
			f.publish(seq, func() ResultsUpdate {
				return ResultsUpdate{Sequence: seq, Outcome: providers.OutcomeKindEmpty}
			})
		})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	query := f.queryFor(text)
	f.mu.Unlock()

	go f.run(ctx, seq, query)
}

func (f *SearchFlow) queryFor(text string) entities.Query {
	return entities.Query{
		Text:      text,
		APIKey:    f.cfg.APIKey,
		Language:  f.cfg.Language,
		PlaceType: f.cfg.PlaceType,
		Location:  f.cfg.LocationBias,
		Radius:    f.cfg.Radius,
	}
}

func (f *SearchFlow) run(ctx context.Context, seq uint64, query entities.Query) {
	if f.cfg.Debounce > 0 {
		timer := time.NewTimer(f.cfg.Debounce)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	outcome := f.provider.Search(ctx, query)
	f.dispatcher.Dispatch(func() { f.complete(seq, query.Text, outcome) })
}

func (f *SearchFlow) complete(seq uint64, text string, outcome providers.Outcome[[]entities.SearchResult]) {
	if outcome.IsError() {
		f.publishMu.Lock()
		defer f.publishMu.Unlock()

		if !f.isLatest(seq) {
			f.dropStale(seq, text)
			return
		}
		f.logger.Warn().Err(outcome.Err).Str("query", text).
			Str("error_type", string(apperrors.TypeOf(outcome.Err))).
			Msg("search failed, keeping previous results")
		f.observer.SearchFailed(text, outcome.Err)
		return
	}

	applied := f.publish(seq, func() ResultsUpdate {
		f.results = outcome.Data
		return ResultsUpdate{
			Sequence: seq,
			Query:    text,
			Results:  slices.Clone(outcome.Data),
			Outcome:  outcome.Kind,
		}
	})
	if !applied {
		f.dropStale(seq, text)
	}
}

// publish applies and announces an update if seq is still the latest.
// apply runs under f.mu.
func (f *SearchFlow) publish(seq uint64, apply func() ResultsUpdate) bool {
	f.publishMu.Lock()
	defer f.publishMu.Unlock()

	f.mu.Lock()
	if seq != f.sequence {
		f.mu.Unlock()
		return false
	}
	update := apply()
	f.mu.Unlock()

	f.observer.ResultsChanged(update)
	return true
}

func (f *SearchFlow) isLatest(seq uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return seq == f.sequence
}

func (f *SearchFlow) dropStale(seq uint64, text string) {
	f.logger.Debug().Uint64("sequence", seq).Str("query", text).Msg("dropping superseded search response")
	if f.metrics != nil {
		f.metrics.StaleResponseCount.Add(context.Background(), 1)
	}
}

// Select emits DidSelect for the result at index in the published list and
// deactivates the flow.
func (f *SearchFlow) Select(index int) (entities.SearchResult, error) {
	f.mu.Lock()
	if !f.active {
		f.mu.Unlock()
		return entities.SearchResult{}, apperrors.NewValidationError("search is not active")
	}
	if index < 0 || index >= len(f.results) {
		f.mu.Unlock()
		return entities.SearchResult{}, apperrors.NewValidationError("selection index out of range")
	}
	result := f.results[index]
	f.deactivateLocked()
	f.mu.Unlock()

	if f.metrics != nil {
		f.metrics.SelectionCount.Add(context.Background(), 1)
	}
	f.dispatcher.Dispatch(func() { f.listener.DidSelect(index, result) })
	return result, nil
}

// Activate marks the flow as presented.
func (f *SearchFlow) Activate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = true
}

// Deactivate dismisses the flow and cancels any in-flight request. The held
// results stay readable.
func (f *SearchFlow) Deactivate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deactivateLocked()
}

func (f *SearchFlow) deactivateLocked() {
	f.active = false
	f.sequence++
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}

// Active reports whether the flow is presented.
func (f *SearchFlow) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

// State reports Idle for empty text and Searching otherwise.
func (f *SearchFlow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.text == "" {
		return FlowStateIdle
	}
	return FlowStateSearching
}

// Text returns the current query text.
func (f *SearchFlow) Text() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text
}

// Results returns a copy of the current result list.
func (f *SearchFlow) Results() []entities.SearchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.results)
}

type nopObserver struct{}

func (nopObserver) ResultsChanged(ResultsUpdate) {}

func (nopObserver) SearchFailed(string, error) {}

func (nopObserver) DidSelect(int, entities.SearchResult) {}
