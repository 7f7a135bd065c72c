// Package mirror implements the off-chain read model of the escrow ledger.
// It consumes the committed event feed and keeps an eventually-consistent
// view for search and listing. The mirror is advisory: it never gates a
// transition, and the ledger's synchronous reads remain ground truth.
package mirror

import (
	"sort"
	"sync"
	"time"

	"github.com/taskbay-network/taskbay/internal/domain"
)

// Listing is the mirrored view of one task.
type Listing struct {
	TaskID      int64               `json:"task_id"`
	Poster      string              `json:"poster"`
	Freelancer  string              `json:"freelancer,omitempty"`
	Reward      int64               `json:"reward"`
	Status      domain.EscrowStatus `json:"status"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	PostedAt    time.Time           `json:"posted_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// Stats holds aggregate mirrored data.
type Stats struct {
	TotalTasks     int   `json:"total_tasks"`
	OpenTasks      int   `json:"open_tasks"`
	PaidTasks      int   `json:"paid_tasks"`
	CancelledTasks int   `json:"cancelled_tasks"`
	CustodyTotal   int64 `json:"custody_total"` // Sum of open rewards
	PaidTotal      int64 `json:"paid_total"`    // Sum of released rewards
	LastSeq        int64 `json:"last_seq"`      // Newest applied event
}

// Store is the in-memory mirror of the task registry.
type Store struct {
	mu       sync.RWMutex
	listings map[int64]*Listing // taskID → listing
	lastSeq  int64
}

// NewStore creates an empty mirror store.
func NewStore() *Store {
	return &Store{listings: make(map[int64]*Listing)}
}

// Publish applies a committed event. Implements domain.EventSink, so the
// store can subscribe straight to the ledger. Events arriving out of feed
// order or replayed twice are ignored.
func (s *Store) Publish(ev domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.Seq <= s.lastSeq {
		return
	}
	s.lastSeq = ev.Seq

	switch ev.Type {
	case domain.EventTaskPosted:
		s.listings[ev.TaskID] = &Listing{
			TaskID:      ev.TaskID,
			Poster:      ev.Poster,
			Reward:      ev.Amount,
			Status:      domain.StatusCreated,
			Title:       ev.Title,
			Description: ev.Description,
			PostedAt:    ev.Timestamp,
			UpdatedAt:   ev.Timestamp,
		}
	case domain.EventTaskAssigned:
		if l, ok := s.listings[ev.TaskID]; ok {
			l.Freelancer = ev.Freelancer
			l.Status = domain.StatusAssigned
			l.UpdatedAt = ev.Timestamp
		}
	case domain.EventPaymentReleased:
		if l, ok := s.listings[ev.TaskID]; ok {
			l.Status = domain.StatusPaid
			l.UpdatedAt = ev.Timestamp
		}
	case domain.EventTaskCancelled:
		if l, ok := s.listings[ev.TaskID]; ok {
			l.Status = domain.StatusCancelled
			l.UpdatedAt = ev.Timestamp
		}
	}
	// EventTaskCompleted folds into the PaymentReleased update that
	// always follows it in the same commit.
}

// Replay applies a batch of durable feed events, oldest first.
// Used at startup to rebuild the mirror from the events table.
func (s *Store) Replay(events []domain.Event) {
	for _, ev := range events {
		s.Publish(ev)
	}
}

// Get returns the mirrored listing for a task.
func (s *Store) Get(taskID int64) (*Listing, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[taskID]
	if !ok {
		return nil, false
	}
	cp := *l
	return &cp, true
}

// Search finds listings matching status and/or text query, newest first.
func (s *Store) Search(status domain.EscrowStatus, query string) []Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []Listing
	for _, l := range s.listings {
		if status != "" && l.Status != status {
			continue
		}
		if query != "" && !containsIgnoreCase(l.Title, query) &&
			!containsIgnoreCase(l.Description, query) {
			continue
		}
		results = append(results, *l)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].TaskID > results[j].TaskID
	})
	return results
}

// ListByPoster returns all listings created by an address.
func (s *Store) ListByPoster(poster string) []Listing {
	return s.filter(func(l *Listing) bool { return l.Poster == poster })
}

// ListByFreelancer returns all listings assigned to an address.
func (s *Store) ListByFreelancer(freelancer string) []Listing {
	return s.filter(func(l *Listing) bool { return l.Freelancer == freelancer })
}

// Stats returns aggregate mirrored statistics.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{LastSeq: s.lastSeq}
	for _, l := range s.listings {
		stats.TotalTasks++
		switch {
		case l.Status == domain.StatusPaid:
			stats.PaidTasks++
			stats.PaidTotal += l.Reward
		case l.Status == domain.StatusCancelled:
			stats.CancelledTasks++
		default:
			stats.OpenTasks++
			stats.CustodyTotal += l.Reward
		}
	}
	return stats
}

// Reconcile compares the mirrored listing against ledger ground truth.
// Returns false when the mirror has drifted (or never saw the task).
func (s *Store) Reconcile(taskID int64, reader domain.TaskReader) bool {
	truth, err := reader.GetTask(taskID)
	if err != nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[taskID]
	if !ok {
		return false
	}
	return l.Status == truth.Status &&
		l.Poster == truth.Poster &&
		l.Freelancer == truth.Freelancer &&
		l.Reward == truth.Reward
}

func (s *Store) filter(keep func(*Listing) bool) []Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []Listing
	for _, l := range s.listings {
		if keep(l) {
			results = append(results, *l)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].TaskID > results[j].TaskID
	})
	return results
}

// containsIgnoreCase checks if s contains substr (case-insensitive).
func containsIgnoreCase(s, substr string) bool {
	sl := len(s)
	tl := len(substr)
	if tl > sl {
		return false
	}
	for i := 0; i <= sl-tl; i++ {
		match := true
		for j := 0; j < tl; j++ {
			sc := s[i+j]
			tc := substr[j]
			if sc >= 'A' && sc <= 'Z' {
				sc += 32
			}
			if tc >= 'A' && tc <= 'Z' {
				tc += 32
			}
			if sc != tc {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
