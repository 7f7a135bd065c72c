package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type depositRequest struct {
	Amount int64 `json:"amount"`
}

// handleWalletBalance reports an account's current balance.
func (s *Server) handleWalletBalance(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "addr")
	bal, err := s.wallet.Balance(addr)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"address": addr,
		"balance": bal,
	})
}

// handleWalletHistory serves recent ledger entries for an account.
func (s *Server) handleWalletHistory(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "addr")
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	entries, err := s.wallet.History(addr, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleWalletDeposit funds a wallet from the system pool.
func (s *Server) handleWalletDeposit(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "addr")
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.wallet.Deposit(addr, req.Amount); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bal, _ := s.wallet.Balance(addr)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"address": addr,
		"balance": bal,
	})
}
