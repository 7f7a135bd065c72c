package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/taskbay-network/taskbay/internal/domain"
)

// ─── Event Feed ─────────────────────────────────────────────────────────────

// InsertEvent appends a transition fact to the durable feed and returns
// its sequence number. Called inside the transition's transaction so an
// event exists iff the transition committed.
func InsertEvent(q querier, ev domain.Event) (int64, error) {
	result, err := q.Exec(
		`INSERT INTO events (event_id, type, task_id, poster, freelancer, amount, title, description, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, string(ev.Type), ev.TaskID, nullStr(ev.Poster),
		nullStr(ev.Freelancer), ev.Amount, nullStr(ev.Title),
		nullStr(ev.Description), ev.Timestamp.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return result.LastInsertId()
}

// EventsSince returns events with seq > after, oldest first.
// Collaborators use this to replay the feed and catch up.
func (d *DB) EventsSince(after int64, limit int) ([]domain.Event, error) {
	rows, err := d.db.Query(
		`SELECT seq, event_id, type, task_id, poster, freelancer, amount, title, description, timestamp
		 FROM events WHERE seq > ? ORDER BY seq ASC LIMIT ?`,
		after, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var ev domain.Event
		var poster, freelancer, title, desc sql.NullString
		var ts int64
		err := rows.Scan(&ev.Seq, &ev.ID, &ev.Type, &ev.TaskID,
			&poster, &freelancer, &ev.Amount, &title, &desc, &ts)
		if err != nil {
			return nil, err
		}
		if poster.Valid {
			ev.Poster = poster.String
		}
		if freelancer.Valid {
			ev.Freelancer = freelancer.String
		}
		if title.Valid {
			ev.Title = title.String
		}
		if desc.Valid {
			ev.Description = desc.String
		}
		ev.Timestamp = time.Unix(ts, 0)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// LastEventSeq returns the sequence number of the newest event (0 if none).
func (d *DB) LastEventSeq() (int64, error) {
	var seq sql.NullInt64
	err := d.db.QueryRow(`SELECT MAX(seq) FROM events`).Scan(&seq)
	if err != nil {
		return 0, err
	}
	return seq.Int64, nil
}
