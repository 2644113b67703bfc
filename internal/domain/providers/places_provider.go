package providers

import (
	"context"
	"time"

	"github.com/zatekoja/placesearch/internal/domain/entities"
)

// PlacesProvider defines the interface for the places web API
type PlacesProvider interface {
	// Search runs a text search for the query
	Search(ctx context.Context, query entities.Query) Outcome[[]entities.SearchResult]

	// Autocomplete returns predictions for a partially typed query
	Autocomplete(ctx context.Context, query entities.Query) Outcome[[]entities.PlaceSummary]

	// Details looks up the structured address of a single place
	Details(ctx context.Context, placeID, apiKey string) Outcome[entities.PlaceDetails]
}

// OutcomeKind distinguishes the three results of a places request
type OutcomeKind string

const (
	OutcomeKindSuccess OutcomeKind = "success"
	OutcomeKindEmpty   OutcomeKind = "empty"
	OutcomeKindError   OutcomeKind = "error"
)

// Outcome is the result of a places request: Success(data), Empty, or Error.
type Outcome[T any] struct {
	Kind OutcomeKind
	Data T
	Err  error
}

// Success wraps data in a successful outcome
func Success[T any](data T) Outcome[T] {
	return Outcome[T]{Kind: OutcomeKindSuccess, Data: data}
}

// Empty returns an outcome for a well-formed response with nothing in it
func Empty[T any]() Outcome[T] {
	return Outcome[T]{Kind: OutcomeKindEmpty}
}

// Failure wraps err in an error outcome
func Failure[T any](err error) Outcome[T] {
	return Outcome[T]{Kind: OutcomeKindError, Err: err}
}

// IsSuccess reports whether the outcome carries data
func (o Outcome[T]) IsSuccess() bool { return o.Kind == OutcomeKindSuccess }

// IsEmpty reports whether the request succeeded with no entries
func (o Outcome[T]) IsEmpty() bool { return o.Kind == OutcomeKindEmpty }

// IsError reports whether the request failed
func (o Outcome[T]) IsError() bool { return o.Kind == OutcomeKindError }

// RequestKind names the places endpoint a request targets
type RequestKind string

const (
	RequestKindSearch       RequestKind = "textsearch"
	RequestKindAutocomplete RequestKind = "autocomplete"
	RequestKindDetails      RequestKind = "details"
)

// RequestObserver is notified around every places API request
type RequestObserver interface {
	RequestStarted(ctx context.Context, kind RequestKind)
	RequestFinished(ctx context.Context, kind RequestKind, outcome OutcomeKind, elapsed time.Duration)
}

// NopRequestObserver ignores all notifications
type NopRequestObserver struct{}

func (NopRequestObserver) RequestStarted(context.Context, RequestKind) {}

func (NopRequestObserver) RequestFinished(context.Context, RequestKind, OutcomeKind, time.Duration) {}
