package domain

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// TaskReader is the synchronous read surface collaborators use to
// reconcile their mirrored view against ledger ground truth.
type TaskReader interface {
	GetTask(taskID int64) (*Task, error)
	TaskExists(taskID int64) bool
	TotalTasks() (int64, error)
}

// EventSink receives committed transition facts. Implementations must not
// block: the ledger publishes after commit and drops nothing.
type EventSink interface {
	Publish(ev Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(ev Event)

// Publish calls f(ev).
func (f EventSinkFunc) Publish(ev Event) { f(ev) }
