package providers

import (
	"context"

	"github.com/zatekoja/placesearch/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to selection events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.SelectionEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.SelectionEvent, error)

	// LastSelection returns the most recent selection published for a session
	LastSelection(ctx context.Context, sessionID string) (*entities.SelectionEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannel constants for selection events
const (
	// EventChannelSelections carries every selection across all sessions
	EventChannelSelections = "places:selections"

	// EventChannelSessionPrefix is the prefix for session-specific channels
	EventChannelSessionPrefix = "places:selections:"
)

// GetSessionChannel returns the channel name for a specific session
func GetSessionChannel(sessionID string) string {
	return EventChannelSessionPrefix + sessionID
}
