// Package escrow implements the task escrow ledger.
// A task's reward is locked into custody at post time and is released
// exactly once: to the freelancer on completion or back to the poster on
// cancellation. Status transitions are monotonic along
// CREATED → ASSIGNED → PAID, with CANCELLED reachable from either open
// state. Terminal rows are permanent historical records.
package escrow

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskbay-network/taskbay/internal/app/wallet"
	"github.com/taskbay-network/taskbay/internal/domain"
	"github.com/taskbay-network/taskbay/internal/infra/metrics"
	"github.com/taskbay-network/taskbay/internal/infra/sqlite"
)

// Ledger owns the authoritative task registry and enforces the lifecycle
// and value-custody rules atomically per transition.
//
// All mutations are serialized by a single mutex and each one runs its
// task update, wallet entries and event append in one transaction, so a
// concurrent complete/cancel on the same task observes the committed
// status and is rejected by the status precondition. Payout cannot
// re-enter the ledger: the wallet is rows in the same database, not a
// callback into caller code.
type Ledger struct {
	mu sync.Mutex // Serializes all mutating operations
	db *sqlite.DB

	sinkMu sync.RWMutex
	sinks  []domain.EventSink
}

// NewLedger creates an escrow ledger over the given database.
func NewLedger(db *sqlite.DB) *Ledger {
	return &Ledger{db: db}
}

// Subscribe registers a sink that receives every committed transition
// fact. Sinks are invoked after commit, in feed order.
func (l *Ledger) Subscribe(sink domain.EventSink) {
	l.sinkMu.Lock()
	defer l.sinkMu.Unlock()
	l.sinks = append(l.sinks, sink)
}

// ─── Mutations ──────────────────────────────────────────────────────────────

// Post creates a task and locks the reward into escrow custody.
// Returns the new task id. The deposit is taken from the caller's wallet;
// a short balance rejects the whole operation and no task is created.
func (l *Ledger) Post(caller, title, description string, reward int64) (int64, error) {
	if caller == "" {
		return 0, reject(domain.ErrNoCaller)
	}
	if title == "" {
		return 0, reject(domain.ErrEmptyTitle)
	}
	if description == "" {
		return 0, reject(domain.ErrEmptyDescription)
	}
	if reward <= 0 {
		return 0, reject(domain.ErrZeroReward)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	var id int64
	var ev domain.Event
	err := l.db.Transact(func(tx *sql.Tx) error {
		var err error
		id, err = sqlite.NextTaskID(tx)
		if err != nil {
			return err
		}

		task := domain.Task{
			ID:          id,
			Poster:      caller,
			Reward:      reward,
			Status:      domain.StatusCreated,
			Title:       title,
			Description: description,
			CreatedAt:   now,
		}
		if err := sqlite.InsertTask(tx, task); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}

		// Deposit moves into ledger custody
		if err := wallet.Transfer(tx, caller, domain.AccountCustody, reward,
			domain.TxEscrowLock, taskRef(id), "escrow deposit"); err != nil {
			return err
		}

		ev = newEvent(domain.EventTaskPosted, id, now)
		ev.Poster = caller
		ev.Amount = reward
		ev.Title = title
		ev.Description = description
		ev.Seq, err = sqlite.InsertEvent(tx, ev)
		return err
	})
	if err != nil {
		return 0, reject(err)
	}

	metrics.TasksPosted.Inc()
	l.observeCustody()
	l.publish(ev)
	return id, nil
}

// Assign locks in the freelancer for a CREATED task.
func (l *Ledger) Assign(caller string, taskID int64, freelancer string) error {
	if caller == "" {
		return reject(domain.ErrNoCaller)
	}
	if freelancer == "" {
		return reject(domain.ErrEmptyFreelancer)
	}
	if freelancer == caller {
		return reject(domain.ErrSelfAssign)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	var ev domain.Event
	err := l.db.Transact(func(tx *sql.Tx) error {
		task, err := l.authorize(caller, taskID)
		if err != nil {
			return err
		}
		if task.Status != domain.StatusCreated {
			return domain.ErrNotCreated
		}

		if err := sqlite.MarkAssigned(tx, taskID, freelancer, now); err != nil {
			return fmt.Errorf("mark assigned: %w", err)
		}

		ev = newEvent(domain.EventTaskAssigned, taskID, now)
		ev.Freelancer = freelancer
		ev.Seq, err = sqlite.InsertEvent(tx, ev)
		return err
	})
	if err != nil {
		return reject(err)
	}

	metrics.TasksAssigned.Inc()
	l.publish(ev)
	return nil
}

// Complete marks an ASSIGNED task completed and releases the reward to
// the freelancer in the same transaction. There is no observable window
// where the status reports PAID without the payout recorded, or the
// payout recorded without the status advanced: both land on commit or
// neither does.
func (l *Ledger) Complete(caller string, taskID int64) error {
	if caller == "" {
		return reject(domain.ErrNoCaller)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	var completed, paid domain.Event
	var reward int64
	err := l.db.Transact(func(tx *sql.Tx) error {
		task, err := l.authorize(caller, taskID)
		if err != nil {
			return err
		}
		if task.Status != domain.StatusAssigned {
			if task.IsTerminal() {
				return domain.ErrTerminal
			}
			return domain.ErrNotAssigned
		}
		reward = task.Reward

		// Effects before the value movement
		if err := sqlite.MarkPaid(tx, taskID, now); err != nil {
			return fmt.Errorf("mark paid: %w", err)
		}
		if err := wallet.Transfer(tx, domain.AccountCustody, task.Freelancer,
			task.Reward, domain.TxPayout, taskRef(taskID), "task payout"); err != nil {
			return err
		}

		completed = newEvent(domain.EventTaskCompleted, taskID, now)
		completed.Seq, err = sqlite.InsertEvent(tx, completed)
		if err != nil {
			return err
		}

		paid = newEvent(domain.EventPaymentReleased, taskID, now)
		paid.Freelancer = task.Freelancer
		paid.Amount = task.Reward
		paid.Seq, err = sqlite.InsertEvent(tx, paid)
		return err
	})
	if err != nil {
		return reject(err)
	}

	metrics.TasksPaid.Inc()
	metrics.RewardsReleased.Add(float64(reward))
	l.observeCustody()
	l.publish(completed, paid)
	return nil
}

// Cancel aborts a non-terminal task and refunds the reward to the poster.
func (l *Ledger) Cancel(caller string, taskID int64) error {
	if caller == "" {
		return reject(domain.ErrNoCaller)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	var ev domain.Event
	err := l.db.Transact(func(tx *sql.Tx) error {
		task, err := l.authorize(caller, taskID)
		if err != nil {
			return err
		}
		if task.IsTerminal() {
			return domain.ErrTerminal
		}

		if err := sqlite.MarkCancelled(tx, taskID); err != nil {
			return fmt.Errorf("mark cancelled: %w", err)
		}
		if err := wallet.Transfer(tx, domain.AccountCustody, task.Poster,
			task.Reward, domain.TxRefund, taskRef(taskID), "escrow refund"); err != nil {
			return err
		}

		ev = newEvent(domain.EventTaskCancelled, taskID, now)
		ev.Poster = task.Poster
		ev.Amount = task.Reward
		ev.Seq, err = sqlite.InsertEvent(tx, ev)
		return err
	})
	if err != nil {
		return reject(err)
	}

	metrics.TasksCancelled.Inc()
	l.observeCustody()
	l.publish(ev)
	return nil
}

// ─── Reads ──────────────────────────────────────────────────────────────────

// GetTask returns the task with the given id.
func (l *Ledger) GetTask(taskID int64) (*domain.Task, error) {
	task, err := l.db.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}
	return task, nil
}

// TaskExists reports whether the id has ever been allocated.
func (l *Ledger) TaskExists(taskID int64) bool {
	task, err := l.db.GetTask(taskID)
	return err == nil && task != nil
}

// TotalTasks returns the number of tasks ever posted.
func (l *Ledger) TotalTasks() (int64, error) {
	return l.db.TaskCount()
}

// ─── Internals ──────────────────────────────────────────────────────────────

// authorize loads the task and checks the caller owns it.
// Re-reads inside the mutation so a stale caller view cannot bypass the
// status preconditions.
func (l *Ledger) authorize(caller string, taskID int64) (*domain.Task, error) {
	task, err := l.db.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}
	if task.Poster != caller {
		return nil, domain.ErrNotPoster
	}
	return task, nil
}

// publish fans committed events out to subscribers, in feed order.
func (l *Ledger) publish(events ...domain.Event) {
	l.sinkMu.RLock()
	defer l.sinkMu.RUnlock()
	for _, ev := range events {
		for _, sink := range l.sinks {
			sink.Publish(ev)
		}
	}
}

func (l *Ledger) observeCustody() {
	if bal, err := sqlite.WalletBalance(l.db.Querier(), domain.AccountCustody); err == nil {
		metrics.EscrowCustody.Set(float64(bal))
	}
}

// reject counts the rejection kind and passes the error through.
func reject(err error) error {
	metrics.Rejections.WithLabelValues(rejectionKind(err)).Inc()
	return err
}

func rejectionKind(err error) string {
	switch {
	case domain.IsNotFound(err):
		return "not_found"
	case domain.IsUnauthorized(err):
		return "unauthorized"
	case domain.IsInvalidArgument(err):
		return "invalid_argument"
	case domain.IsInvalidState(err):
		return "invalid_state"
	case domain.IsTransferFailure(err):
		return "transfer_failure"
	default:
		return "internal"
	}
}

func newEvent(typ domain.EventType, taskID int64, ts time.Time) domain.Event {
	return domain.Event{
		ID:        uuid.New().String(),
		Type:      typ,
		TaskID:    taskID,
		Timestamp: ts,
	}
}

func taskRef(id int64) string {
	return fmt.Sprintf("task-%d", id)
}
