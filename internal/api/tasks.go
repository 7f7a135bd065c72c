package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/taskbay-network/taskbay/internal/domain"
)

// ─── Request / Response Types ───────────────────────────────────────────────

type postTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Reward      int64  `json:"reward"`
}

type postTaskResponse struct {
	TaskID int64 `json:"task_id"`
}

type assignRequest struct {
	Freelancer string `json:"freelancer"`
}

// ─── Handlers ───────────────────────────────────────────────────────────────

// handlePostTask creates a task and locks the reward into escrow.
func (s *Server) handlePostTask(w http.ResponseWriter, r *http.Request) {
	var req postTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	id, err := s.ledger.Post(caller(r), req.Title, req.Description, req.Reward)
	if err != nil {
		writeRejection(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, postTaskResponse{TaskID: id})
}

// handleListTasks serves the mirrored listing view.
// Query params: status (CREATED/ASSIGNED/PAID/CANCELLED), q (text search),
// poster, freelancer.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if poster := q.Get("poster"); poster != "" {
		writeJSON(w, http.StatusOK, s.mirror.ListByPoster(poster))
		return
	}
	if freelancer := q.Get("freelancer"); freelancer != "" {
		writeJSON(w, http.StatusOK, s.mirror.ListByFreelancer(freelancer))
		return
	}
	status := domain.EscrowStatus(q.Get("status"))
	writeJSON(w, http.StatusOK, s.mirror.Search(status, q.Get("q")))
}

// handleTaskCount reports the number of tasks ever posted (ground truth).
func (s *Server) handleTaskCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.ledger.TotalTasks()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"total": n})
}

// handleStats serves aggregate mirrored statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.mirror.Stats())
}

// handleGetTask reads a task from the ledger (ground truth, not mirror).
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	task, err := s.ledger.GetTask(id)
	if err != nil {
		writeRejection(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// handleAssign locks in a freelancer for a task.
func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.ledger.Assign(caller(r), id, req.Freelancer); err != nil {
		writeRejection(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "assigned"})
}

// handleComplete completes a task and releases the reward.
func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	if err := s.ledger.Complete(caller(r), id); err != nil {
		writeRejection(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "paid"})
}

// handleCancel cancels a task and refunds the poster.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	if err := s.ledger.Cancel(caller(r), id); err != nil {
		writeRejection(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// handleEventReplay serves the durable event feed from a sequence number.
func (s *Server) handleEventReplay(w http.ResponseWriter, r *http.Request) {
	from, _ := strconv.ParseInt(r.URL.Query().Get("from"), 10, 64)
	limit := 200
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	events, err := s.db.EventsSince(from, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// taskID parses the {id} route param, writing a rejection on failure.
func taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 0 {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return 0, false
	}
	return id, true
}
