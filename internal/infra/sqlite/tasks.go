package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/taskbay-network/taskbay/internal/domain"
)

// ─── Task Registry ──────────────────────────────────────────────────────────

// NextTaskID returns the id the next posted task will receive.
// Ids are contiguous from 0; rows are never deleted, so MAX(id)+1 holds.
func NextTaskID(q querier) (int64, error) {
	var next int64
	err := q.QueryRow(`SELECT COALESCE(MAX(id)+1, 0) FROM tasks`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next task id: %w", err)
	}
	return next, nil
}

// InsertTask creates a new task row with an explicit id.
func InsertTask(q querier, task domain.Task) error {
	_, err := q.Exec(
		`INSERT INTO tasks (id, poster, freelancer, reward, status, title, description, created_at, assigned_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Poster, nullStr(task.Freelancer), task.Reward,
		string(task.Status), task.Title, task.Description,
		task.CreatedAt.Unix(), nullableUnix(task.AssignedAt), nullableUnix(task.CompletedAt),
	)
	return err
}

// MarkAssigned locks in the freelancer and advances status to ASSIGNED.
func MarkAssigned(q querier, id int64, freelancer string, at time.Time) error {
	_, err := q.Exec(
		`UPDATE tasks SET status = ?, freelancer = ?, assigned_at = ? WHERE id = ?`,
		string(domain.StatusAssigned), freelancer, at.Unix(), id,
	)
	return err
}

// MarkPaid advances status to PAID and records the completion time.
func MarkPaid(q querier, id int64, at time.Time) error {
	_, err := q.Exec(
		`UPDATE tasks SET status = ?, completed_at = ? WHERE id = ?`,
		string(domain.StatusPaid), at.Unix(), id,
	)
	return err
}

// MarkCancelled advances status to CANCELLED.
func MarkCancelled(q querier, id int64) error {
	_, err := q.Exec(
		`UPDATE tasks SET status = ? WHERE id = ?`,
		string(domain.StatusCancelled), id,
	)
	return err
}

// GetTask retrieves a task by id. Returns (nil, nil) when absent.
func (d *DB) GetTask(id int64) (*domain.Task, error) {
	row := d.db.QueryRow(
		`SELECT id, poster, freelancer, reward, status, title, description, created_at, assigned_at, completed_at
		 FROM tasks WHERE id = ?`, id,
	)
	return scanTask(row)
}

// TaskCount returns the number of tasks ever posted.
func (d *DB) TaskCount() (int64, error) {
	var n int64
	err := d.db.QueryRow(`SELECT COUNT(*) FROM tasks`).Scan(&n)
	return n, err
}

// ListTasks returns tasks, newest first, optionally filtered by status.
func (d *DB) ListTasks(status domain.EscrowStatus, limit int) ([]domain.Task, error) {
	var rows *sql.Rows
	var err error
	if status == "" {
		rows, err = d.db.Query(
			`SELECT id, poster, freelancer, reward, status, title, description, created_at, assigned_at, completed_at
			 FROM tasks ORDER BY id DESC LIMIT ?`, limit)
	} else {
		rows, err = d.db.Query(
			`SELECT id, poster, freelancer, reward, status, title, description, created_at, assigned_at, completed_at
			 FROM tasks WHERE status = ? ORDER BY id DESC LIMIT ?`, string(status), limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// OpenRewardTotal sums the rewards of CREATED and ASSIGNED tasks.
// By the custody invariant it must equal the escrow_custody balance.
func (d *DB) OpenRewardTotal() (int64, error) {
	var total sql.NullInt64
	err := d.db.QueryRow(
		`SELECT SUM(reward) FROM tasks WHERE status IN (?, ?)`,
		string(domain.StatusCreated), string(domain.StatusAssigned),
	).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}

func scanTask(s scanner) (*domain.Task, error) {
	var t domain.Task
	var freelancer sql.NullString
	var createdAt int64
	var assignedAt, completedAt sql.NullInt64

	err := s.Scan(&t.ID, &t.Poster, &freelancer, &t.Reward, &t.Status,
		&t.Title, &t.Description, &createdAt, &assignedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, nil // Not found, no error
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}

	if freelancer.Valid {
		t.Freelancer = freelancer.String
	}
	t.CreatedAt = time.Unix(createdAt, 0)
	if assignedAt.Valid {
		t.AssignedAt = time.Unix(assignedAt.Int64, 0)
	}
	if completedAt.Valid {
		t.CompletedAt = time.Unix(completedAt.Int64, 0)
	}
	return &t, nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func nullableUnix(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
