package escrow

import (
	"errors"
	"sync"
	"testing"

	"github.com/taskbay-network/taskbay/internal/app/wallet"
	"github.com/taskbay-network/taskbay/internal/domain"
	"github.com/taskbay-network/taskbay/internal/infra/sqlite"
)

func newTestLedger(t *testing.T) (*Ledger, *wallet.Service, *sqlite.DB) {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	w := wallet.NewService(db)
	return NewLedger(db), w, db
}

// fund deposits into an account, failing the test on error.
func fund(t *testing.T, w *wallet.Service, account string, amount int64) {
	t.Helper()
	if err := w.Deposit(account, amount); err != nil {
		t.Fatalf("Deposit(%s, %d): %v", account, amount, err)
	}
}

// recorder collects published events for assertions.
type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Publish(ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var types []domain.EventType
	for _, ev := range r.events {
		types = append(types, ev.Type)
	}
	return types
}

// checkCustody verifies the custody invariant: the escrow_custody balance
// equals the sum of rewards of all open tasks.
func checkCustody(t *testing.T, w *wallet.Service, db *sqlite.DB) {
	t.Helper()
	custody, err := w.CustodyBalance()
	if err != nil {
		t.Fatalf("CustodyBalance() error: %v", err)
	}
	open, err := db.OpenRewardTotal()
	if err != nil {
		t.Fatalf("OpenRewardTotal() error: %v", err)
	}
	if custody != open {
		t.Errorf("custody invariant broken: custody = %d, open rewards = %d", custody, open)
	}
}

// ─── Post ───────────────────────────────────────────────────────────────────

func TestLedger_Post(t *testing.T) {
	l, w, db := newTestLedger(t)
	fund(t, w, "alice", 500)

	rec := &recorder{}
	l.Subscribe(rec)

	id, err := l.Post("alice", "Build landing page", "Responsive, two sections", 100)
	if err != nil {
		t.Fatalf("Post() error: %v", err)
	}
	if id != 0 {
		t.Errorf("first task id = %d, want 0", id)
	}

	task, err := l.GetTask(0)
	if err != nil {
		t.Fatalf("GetTask() error: %v", err)
	}
	if task.Status != domain.StatusCreated {
		t.Errorf("status = %s, want CREATED", task.Status)
	}
	if task.Poster != "alice" || task.Reward != 100 {
		t.Errorf("task = %+v, want poster alice reward 100", task)
	}
	if task.Freelancer != "" {
		t.Errorf("freelancer = %q, want unset", task.Freelancer)
	}
	if task.CreatedAt.IsZero() {
		t.Error("created_at should be set")
	}
	if !task.AssignedAt.IsZero() || !task.CompletedAt.IsZero() {
		t.Error("assigned_at/completed_at should be unset before those transitions")
	}

	// Deposit moved into custody
	bal, _ := w.Balance("alice")
	if bal != 400 {
		t.Errorf("poster balance = %d, want 400", bal)
	}
	custody, _ := w.CustodyBalance()
	if custody != 100 {
		t.Errorf("custody = %d, want 100", custody)
	}

	// TaskPosted fact emitted with the full metadata
	types := rec.types()
	if len(types) != 1 || types[0] != domain.EventTaskPosted {
		t.Fatalf("events = %v, want [TaskPosted]", types)
	}
	ev := rec.events[0]
	if ev.TaskID != 0 || ev.Poster != "alice" || ev.Amount != 100 ||
		ev.Title != "Build landing page" || ev.Description != "Responsive, two sections" {
		t.Errorf("TaskPosted payload = %+v", ev)
	}
	if ev.Seq == 0 {
		t.Error("event seq should be assigned from the durable feed")
	}

	checkCustody(t, w, db)
}

func TestLedger_PostValidation(t *testing.T) {
	l, w, _ := newTestLedger(t)
	fund(t, w, "alice", 500)

	cases := []struct {
		name    string
		caller  string
		title   string
		desc    string
		reward  int64
		wantErr error
	}{
		{"empty title", "alice", "", "d", 10, domain.ErrEmptyTitle},
		{"empty description", "alice", "t", "", 10, domain.ErrEmptyDescription},
		{"zero reward", "alice", "t", "d", 0, domain.ErrZeroReward},
		{"negative reward", "alice", "t", "d", -5, domain.ErrZeroReward},
		{"no caller", "", "t", "d", 10, domain.ErrNoCaller},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.Post(tc.caller, tc.title, tc.desc, tc.reward)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Post() error = %v, want %v", err, tc.wantErr)
			}
		})
	}

	// No task created, no value taken
	if n, _ := l.TotalTasks(); n != 0 {
		t.Errorf("TotalTasks() = %d, want 0 after rejected posts", n)
	}
	if bal, _ := w.Balance("alice"); bal != 500 {
		t.Errorf("balance = %d, want untouched 500", bal)
	}
}

func TestLedger_PostInsufficientFunds(t *testing.T) {
	l, w, db := newTestLedger(t)
	fund(t, w, "alice", 50)

	rec := &recorder{}
	l.Subscribe(rec)

	_, err := l.Post("alice", "t", "d", 100)
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("Post() error = %v, want ErrInsufficientFunds", err)
	}

	// All-or-nothing: the failed transfer must roll back the task row
	if n, _ := l.TotalTasks(); n != 0 {
		t.Errorf("TotalTasks() = %d, want 0", n)
	}
	if l.TaskExists(0) {
		t.Error("task 0 should not exist after rolled-back post")
	}
	if got := rec.types(); got != nil {
		t.Errorf("events = %v, want none on rejection", got)
	}
	checkCustody(t, w, db)
}

func TestLedger_TaskIDsMonotonic(t *testing.T) {
	l, w, _ := newTestLedger(t)
	fund(t, w, "alice", 1000)

	for want := int64(0); want < 5; want++ {
		id, err := l.Post("alice", "t", "d", 10)
		if err != nil {
			t.Fatalf("Post() error: %v", err)
		}
		if id != want {
			t.Errorf("task id = %d, want %d", id, want)
		}
	}

	// Cancelling never frees an id for reuse
	if err := l.Cancel("alice", 4); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	id, err := l.Post("alice", "t", "d", 10)
	if err != nil {
		t.Fatalf("Post() error: %v", err)
	}
	if id != 5 {
		t.Errorf("task id after cancel = %d, want 5", id)
	}
}

// ─── Assign ─────────────────────────────────────────────────────────────────

func TestLedger_Assign(t *testing.T) {
	l, w, _ := newTestLedger(t)
	fund(t, w, "alice", 500)
	l.Post("alice", "t", "d", 100)

	rec := &recorder{}
	l.Subscribe(rec)

	if err := l.Assign("alice", 0, "frank"); err != nil {
		t.Fatalf("Assign() error: %v", err)
	}

	task, _ := l.GetTask(0)
	if task.Status != domain.StatusAssigned {
		t.Errorf("status = %s, want ASSIGNED", task.Status)
	}
	if task.Freelancer != "frank" {
		t.Errorf("freelancer = %s, want frank", task.Freelancer)
	}
	if task.AssignedAt.IsZero() {
		t.Error("assigned_at should be set")
	}

	types := rec.types()
	if len(types) != 1 || types[0] != domain.EventTaskAssigned {
		t.Fatalf("events = %v, want [TaskAssigned]", types)
	}
	if rec.events[0].Freelancer != "frank" {
		t.Errorf("TaskAssigned freelancer = %s", rec.events[0].Freelancer)
	}
}

func TestLedger_AssignRejections(t *testing.T) {
	l, w, _ := newTestLedger(t)
	fund(t, w, "alice", 500)
	l.Post("alice", "t", "d", 100)

	cases := []struct {
		name       string
		caller     string
		taskID     int64
		freelancer string
		wantErr    error
	}{
		{"missing task", "alice", 99, "frank", domain.ErrTaskNotFound},
		{"not poster", "mallory", 0, "frank", domain.ErrNotPoster},
		{"empty freelancer", "alice", 0, "", domain.ErrEmptyFreelancer},
		{"self assign", "alice", 0, "alice", domain.ErrSelfAssign},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := l.Assign(tc.caller, tc.taskID, tc.freelancer)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Assign() error = %v, want %v", err, tc.wantErr)
			}
		})
	}

	// Already assigned
	l.Assign("alice", 0, "frank")
	if err := l.Assign("alice", 0, "grace"); !errors.Is(err, domain.ErrNotCreated) {
		t.Errorf("reassign error = %v, want ErrNotCreated", err)
	}
	task, _ := l.GetTask(0)
	if task.Freelancer != "frank" {
		t.Errorf("freelancer overwritten: %s", task.Freelancer)
	}
}

// ─── Complete ───────────────────────────────────────────────────────────────

func TestLedger_Complete(t *testing.T) {
	l, w, db := newTestLedger(t)
	fund(t, w, "alice", 500)
	l.Post("alice", "t", "d", 100)
	l.Assign("alice", 0, "frank")

	rec := &recorder{}
	l.Subscribe(rec)

	if err := l.Complete("alice", 0); err != nil {
		t.Fatalf("Complete() error: %v", err)
	}

	task, _ := l.GetTask(0)
	if task.Status != domain.StatusPaid {
		t.Errorf("status = %s, want PAID", task.Status)
	}
	if task.CompletedAt.IsZero() {
		t.Error("completed_at should be set")
	}

	// Reward released to the freelancer, custody emptied
	bal, _ := w.Balance("frank")
	if bal != 100 {
		t.Errorf("freelancer balance = %d, want 100", bal)
	}
	custody, _ := w.CustodyBalance()
	if custody != 0 {
		t.Errorf("custody = %d, want 0", custody)
	}
	checkCustody(t, w, db)

	// TaskCompleted then PaymentReleased, in that order
	types := rec.types()
	if len(types) != 2 || types[0] != domain.EventTaskCompleted || types[1] != domain.EventPaymentReleased {
		t.Fatalf("events = %v, want [TaskCompleted PaymentReleased]", types)
	}
	paid := rec.events[1]
	if paid.Freelancer != "frank" || paid.Amount != 100 {
		t.Errorf("PaymentReleased payload = %+v", paid)
	}
}

func TestLedger_CompleteRejections(t *testing.T) {
	l, w, _ := newTestLedger(t)
	fund(t, w, "alice", 500)
	l.Post("alice", "t", "d", 100) // task 0: CREATED
	l.Post("alice", "t", "d", 100) // task 1: ASSIGNED
	l.Assign("alice", 1, "frank")

	if err := l.Complete("alice", 99); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("missing task error = %v, want ErrTaskNotFound", err)
	}
	if err := l.Complete("mallory", 1); !errors.Is(err, domain.ErrNotPoster) {
		t.Errorf("third-party complete error = %v, want ErrNotPoster", err)
	}
	if err := l.Complete("alice", 0); !errors.Is(err, domain.ErrNotAssigned) {
		t.Errorf("complete CREATED error = %v, want ErrNotAssigned", err)
	}

	// Rejections left everything unchanged
	task, _ := l.GetTask(1)
	if task.Status != domain.StatusAssigned {
		t.Errorf("status = %s, want ASSIGNED", task.Status)
	}
	if bal, _ := w.Balance("frank"); bal != 0 {
		t.Errorf("freelancer balance = %d, want 0", bal)
	}
}

func TestLedger_CompleteTwice(t *testing.T) {
	l, w, _ := newTestLedger(t)
	fund(t, w, "alice", 500)
	l.Post("alice", "t", "d", 100)
	l.Assign("alice", 0, "frank")

	if err := l.Complete("alice", 0); err != nil {
		t.Fatalf("first Complete() error: %v", err)
	}
	if err := l.Complete("alice", 0); !errors.Is(err, domain.ErrTerminal) {
		t.Errorf("second Complete() error = %v, want ErrTerminal", err)
	}

	// No double payout
	if bal, _ := w.Balance("frank"); bal != 100 {
		t.Errorf("freelancer balance = %d, want 100 (paid once)", bal)
	}
}

// ─── Cancel ─────────────────────────────────────────────────────────────────

func TestLedger_CancelCreated(t *testing.T) {
	l, w, db := newTestLedger(t)
	fund(t, w, "alice", 500)
	l.Post("alice", "t", "d", 50)

	rec := &recorder{}
	l.Subscribe(rec)

	if err := l.Cancel("alice", 0); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}

	task, _ := l.GetTask(0)
	if task.Status != domain.StatusCancelled {
		t.Errorf("status = %s, want CANCELLED", task.Status)
	}

	// Full refund
	if bal, _ := w.Balance("alice"); bal != 500 {
		t.Errorf("poster balance = %d, want 500", bal)
	}
	checkCustody(t, w, db)

	types := rec.types()
	if len(types) != 1 || types[0] != domain.EventTaskCancelled {
		t.Fatalf("events = %v, want [TaskCancelled]", types)
	}
	ev := rec.events[0]
	if ev.Poster != "alice" || ev.Amount != 50 {
		t.Errorf("TaskCancelled payload = %+v", ev)
	}
}

func TestLedger_CancelAssigned(t *testing.T) {
	l, w, _ := newTestLedger(t)
	fund(t, w, "alice", 500)
	l.Post("alice", "t", "d", 50)
	l.Assign("alice", 0, "frank")

	if err := l.Cancel("alice", 0); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	if bal, _ := w.Balance("alice"); bal != 500 {
		t.Errorf("poster balance = %d, want full refund 500", bal)
	}
	if bal, _ := w.Balance("frank"); bal != 0 {
		t.Errorf("freelancer balance = %d, want 0", bal)
	}
}

func TestLedger_CancelTwice(t *testing.T) {
	l, w, _ := newTestLedger(t)
	fund(t, w, "alice", 500)
	l.Post("alice", "t", "d", 50)

	if err := l.Cancel("alice", 0); err != nil {
		t.Fatalf("first Cancel() error: %v", err)
	}
	if err := l.Cancel("alice", 0); !errors.Is(err, domain.ErrTerminal) {
		t.Errorf("second Cancel() error = %v, want ErrTerminal", err)
	}

	// No double refund
	if bal, _ := w.Balance("alice"); bal != 500 {
		t.Errorf("poster balance = %d, want 500 (refunded once)", bal)
	}
}

func TestLedger_CancelAfterPaid(t *testing.T) {
	l, w, _ := newTestLedger(t)
	fund(t, w, "alice", 500)
	l.Post("alice", "t", "d", 100)
	l.Assign("alice", 0, "frank")
	l.Complete("alice", 0)

	if err := l.Cancel("alice", 0); !errors.Is(err, domain.ErrTerminal) {
		t.Errorf("cancel PAID error = %v, want ErrTerminal", err)
	}

	// Payout stands, no refund minted
	if bal, _ := w.Balance("alice"); bal != 400 {
		t.Errorf("poster balance = %d, want 400", bal)
	}
	if bal, _ := w.Balance("frank"); bal != 100 {
		t.Errorf("freelancer balance = %d, want 100", bal)
	}
}

func TestLedger_CancelUnauthorized(t *testing.T) {
	l, w, _ := newTestLedger(t)
	fund(t, w, "alice", 500)
	l.Post("alice", "t", "d", 50)

	if err := l.Cancel("mallory", 0); !errors.Is(err, domain.ErrNotPoster) {
		t.Errorf("Cancel() error = %v, want ErrNotPoster", err)
	}
	task, _ := l.GetTask(0)
	if task.Status != domain.StatusCreated {
		t.Errorf("status = %s, want CREATED", task.Status)
	}
}

// ─── Reads ──────────────────────────────────────────────────────────────────

func TestLedger_GetTaskNotFound(t *testing.T) {
	l, _, _ := newTestLedger(t)

	_, err := l.GetTask(0)
	if !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("GetTask() error = %v, want ErrTaskNotFound", err)
	}
	if l.TaskExists(0) {
		t.Error("TaskExists(0) = true, want false")
	}
}

func TestLedger_TotalTasks(t *testing.T) {
	l, w, _ := newTestLedger(t)
	fund(t, w, "alice", 500)

	l.Post("alice", "t", "d", 10)
	l.Post("alice", "t", "d", 10)
	l.Cancel("alice", 0)

	n, err := l.TotalTasks()
	if err != nil {
		t.Fatalf("TotalTasks() error: %v", err)
	}
	if n != 2 {
		t.Errorf("TotalTasks() = %d, want 2 (cancelled tasks still count)", n)
	}
}

// ─── Concurrency ────────────────────────────────────────────────────────────

// A racing complete and cancel on the same task must resolve to exactly
// one successful transition: the reward is released once, never twice.
func TestLedger_ConcurrentCompleteCancel(t *testing.T) {
	l, w, db := newTestLedger(t)
	fund(t, w, "alice", 1000)
	l.Post("alice", "t", "d", 100)
	l.Assign("alice", 0, "frank")

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts*2)

	for i := 0; i < attempts; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			results <- l.Complete("alice", 0)
		}()
		go func() {
			defer wg.Done()
			results <- l.Cancel("alice", 0)
		}()
	}
	wg.Wait()
	close(results)

	var successes int
	for err := range results {
		if err == nil {
			successes++
		} else if !errors.Is(err, domain.ErrTerminal) && !errors.Is(err, domain.ErrNotAssigned) {
			t.Errorf("unexpected rejection: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("successful transitions = %d, want exactly 1", successes)
	}

	// Whatever won, the value moved exactly once
	aliceBal, _ := w.Balance("alice")
	frankBal, _ := w.Balance("frank")
	if aliceBal+frankBal != 1000 {
		t.Errorf("alice %d + frank %d = %d, want 1000", aliceBal, frankBal, aliceBal+frankBal)
	}
	checkCustody(t, w, db)
}

// ─── End-to-End ─────────────────────────────────────────────────────────────

func TestLedger_FullLifecycle(t *testing.T) {
	l, w, db := newTestLedger(t)
	fund(t, w, "alice", 1000)

	rec := &recorder{}
	l.Subscribe(rec)

	// Post → assign → complete
	id, _ := l.Post("alice", "Translate docs", "EN to DE", 100)
	l.Assign("alice", id, "frank")
	l.Complete("alice", id)

	// Post → cancel
	id2, _ := l.Post("alice", "Logo sketch", "Three drafts", 50)
	l.Cancel("alice", id2)

	want := []domain.EventType{
		domain.EventTaskPosted,
		domain.EventTaskAssigned,
		domain.EventTaskCompleted,
		domain.EventPaymentReleased,
		domain.EventTaskPosted,
		domain.EventTaskCancelled,
	}
	got := rec.types()
	if len(got) != len(want) {
		t.Fatalf("event count = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	// Feed sequence is strictly increasing
	var last int64
	for _, ev := range rec.events {
		if ev.Seq <= last {
			t.Errorf("event seq %d not increasing after %d", ev.Seq, last)
		}
		last = ev.Seq
	}

	// Final balances: 1000 - 100 paid out, 50 refunded
	if bal, _ := w.Balance("alice"); bal != 900 {
		t.Errorf("alice balance = %d, want 900", bal)
	}
	if bal, _ := w.Balance("frank"); bal != 100 {
		t.Errorf("frank balance = %d, want 100", bal)
	}
	checkCustody(t, w, db)
}
