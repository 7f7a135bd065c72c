package domain

import "time"

// EventType identifies an escrow transition fact.
type EventType string

const (
	EventTaskPosted      EventType = "TaskPosted"
	EventTaskAssigned    EventType = "TaskAssigned"
	EventTaskCompleted   EventType = "TaskCompleted"
	EventPaymentReleased EventType = "PaymentReleased"
	EventTaskCancelled   EventType = "TaskCancelled"
)

// Event is an observable fact emitted after a committed transition.
// Seq is the position in the durable feed; collaborators replay from a
// known Seq to catch up. Events are append-only and never retracted.
type Event struct {
	ID          string    `json:"id"`
	Seq         int64     `json:"seq"`
	Type        EventType `json:"type"`
	TaskID      int64     `json:"task_id"`
	Poster      string    `json:"poster,omitempty"`
	Freelancer  string    `json:"freelancer,omitempty"`
	Amount      int64     `json:"amount,omitempty"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
