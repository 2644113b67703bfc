package entities

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// ResultRow is a search result prepared for display, with the distance from
// the host's current location when both coordinates are known.
type ResultRow struct {
	Result        SearchResult `json:"result"`
	DistanceMiles *float64     `json:"distance_miles,omitempty"`
	DistanceLabel string       `json:"distance_label,omitempty"`
}

// NewResultRow builds a row relative to origin.
func NewResultRow(result SearchResult, origin Coordinate) ResultRow {
	row := ResultRow{Result: result}
	if miles, ok := origin.DistanceMiles(result.Location); ok {
		rounded := math.Round(miles*10) / 10
		row.DistanceMiles = &rounded
		row.DistanceLabel = FormatMiles(rounded)
	}
	return row
}

// FormatMiles renders a distance with one decimal place, e.g. "3.2 m".
func FormatMiles(miles float64) string {
	return fmt.Sprintf("%.1f m", miles)
}

// ResultsEvent is published whenever a session's result list changes.
type ResultsEvent struct {
	SessionID string      `json:"session_id"`
	Sequence  uint64      `json:"sequence"`
	Query     string      `json:"query"`
	Rows      []ResultRow `json:"rows"`
	Timestamp time.Time   `json:"timestamp"`
}

// SelectionEvent is delivered to the host exactly once per user selection.
type SelectionEvent struct {
	ID        string       `json:"id"`
	SessionID string       `json:"session_id"`
	Index     int          `json:"index"`
	Result    SearchResult `json:"result"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewSelectionEvent creates a selection event with a fresh id.
func NewSelectionEvent(sessionID string, index int, result SearchResult) *SelectionEvent {
	return &SelectionEvent{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Index:     index,
		Result:    result,
		Timestamp: time.Now().UTC(),
	}
}
