package jobs

type EventType string

const (
	EventAdded     EventType = "added"
	EventStarted   EventType = "started"
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
	EventCancelled EventType = "cancelled"
)

// Event is one lifecycle transition, carrying a snapshot of the job at the
// moment of the transition.
type Event struct {
	Type EventType `json:"type"`
	Job  Job       `json:"job"`
}
