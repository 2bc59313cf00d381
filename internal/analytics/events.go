package analytics

import "time"

type EventType string

const (
	EventQuestion EventType = "question"
	EventRefresh  EventType = "refresh"
)

type QuestionEvent struct {
	Type            EventType `json:"type"`
	Question        string    `json:"question"`
	QuestionType    string    `json:"question_type"`
	Answer          string    `json:"answer"`
	Found           bool      `json:"found"`
	Candidates      int       `json:"candidates"`
	CacheHit        bool      `json:"cache_hit"`
	LatencyMs       int64     `json:"latency_ms"`
	SnapshotVersion uint64    `json:"snapshot_version"`
	Timestamp       time.Time `json:"timestamp"`
	RequestID       string    `json:"request_id"`
}

type RefreshEvent struct {
	Type       EventType `json:"type"`
	Documents  int       `json:"documents"`
	Version    uint64    `json:"version"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Tracker accepts events for asynchronous delivery. Implementations must
// never block the caller.
type Tracker interface {
	Track(event any)
}

// NopTracker drops all events. Used when analytics is disabled.
type NopTracker struct{}

func (NopTracker) Track(any) {}

// eventKey picks the Kafka message key for an event. Question events keyed
// by request ID spread evenly across partitions.
func eventKey(event any) string {
	switch e := event.(type) {
	case QuestionEvent:
		if e.RequestID != "" {
			return e.RequestID
		}
		return string(EventQuestion)
	case RefreshEvent:
		return string(EventRefresh)
	default:
		return "analytics"
	}
}
