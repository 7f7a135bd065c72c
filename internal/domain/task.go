// Package domain holds the core taskbay types.
// A Task is a unit of paid work that flows through the escrow ledger:
// post → assign → complete+payout, with cancel as the only abort path.
package domain

import "time"

// EscrowStatus tracks task lifecycle.
type EscrowStatus string

const (
	StatusCreated   EscrowStatus = "CREATED"   // Posted, reward in custody, no freelancer yet
	StatusAssigned  EscrowStatus = "ASSIGNED"  // Freelancer locked in, reward still in custody
	StatusCompleted EscrowStatus = "COMPLETED" // Internal half-step: folds into PAID in the same transition
	StatusPaid      EscrowStatus = "PAID"      // Reward released to freelancer
	StatusCancelled EscrowStatus = "CANCELLED" // Reward refunded to poster
)

// Task is a posted unit of work with its reward held in escrow.
// ID, Poster, Reward, Title and Description are immutable after Post;
// Freelancer is set exactly once, at assignment.
type Task struct {
	ID          int64        `json:"id"`
	Poster      string       `json:"poster"`
	Freelancer  string       `json:"freelancer,omitempty"`
	Reward      int64        `json:"reward"`
	Status      EscrowStatus `json:"status"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	CreatedAt   time.Time    `json:"created_at"`
	AssignedAt  time.Time    `json:"assigned_at,omitempty"`
	CompletedAt time.Time    `json:"completed_at,omitempty"`
}

// IsTerminal returns true if no further transitions are permitted.
func (t *Task) IsTerminal() bool {
	return t.Status == StatusPaid || t.Status == StatusCancelled
}

// IsOpen returns true while the reward is still in ledger custody.
func (t *Task) IsOpen() bool {
	return t.Status == StatusCreated || t.Status == StatusAssigned
}
