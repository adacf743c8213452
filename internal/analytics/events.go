package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
	EventSuggest    EventType = "suggest"
	EventFeedback   EventType = "feedback"
	EventEvaluate   EventType = "evaluate"
)

// Event is one user-facing interaction published to the analytics topic.
// Fields that do not apply to the event type are left zero.
type Event struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query,omitempty"`
	Model     string    `json:"model,omitempty"`
	Field     string    `json:"field,omitempty"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs float64   `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	DocID     string    `json:"doc_id,omitempty"`
	Relevance string    `json:"relevance,omitempty"`
	F1        float64   `json:"f1,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Tracker receives events. Implementations must not block the caller.
type Tracker interface {
	Track(event Event)
}
