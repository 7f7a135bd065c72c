// Package api provides the HTTP server for taskbay.
// It exposes the escrow ledger to the web client and the mirror feed to
// collaborators. Every mutating route requires a caller identity.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taskbay-network/taskbay/internal/app/escrow"
	"github.com/taskbay-network/taskbay/internal/app/wallet"
	"github.com/taskbay-network/taskbay/internal/domain"
	"github.com/taskbay-network/taskbay/internal/infra/mirror"
	"github.com/taskbay-network/taskbay/internal/infra/sqlite"
)

// callerHeader carries the wallet address a request acts on behalf of.
// The ledger never authenticates it, only compares it against the stored
// poster; signature verification belongs to the gateway in front.
const callerHeader = "X-Wallet-Address"

// Server is the taskbay HTTP API server.
type Server struct {
	ledger         *escrow.Ledger
	wallet         *wallet.Service
	mirror         *mirror.Store
	db             *sqlite.DB
	feed           *FeedHub
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(ledger *escrow.Ledger, w *wallet.Service, m *mirror.Store, db *sqlite.DB) *Server {
	return &Server{ledger: ledger, wallet: w, mirror: m, db: db}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetFeedHub sets the live event SSE hub.
func (s *Server) SetFeedHub(h *FeedHub) { s.feed = h }

// FeedHub returns the live event hub (for subscribing it to the ledger).
func (s *Server) FeedHub() *FeedHub { return s.feed }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": "0.1.0",
		})
	})

	// Escrow ledger
	r.Route("/api/tasks", func(r chi.Router) {
		r.Get("/", s.handleListTasks)
		r.Post("/", s.handlePostTask)
		r.Get("/count", s.handleTaskCount)
		r.Get("/stats", s.handleStats)
		r.Get("/{id}", s.handleGetTask)
		r.Post("/{id}/assign", s.handleAssign)
		r.Post("/{id}/complete", s.handleComplete)
		r.Post("/{id}/cancel", s.handleCancel)
	})

	// Wallet
	r.Route("/api/wallet", func(r chi.Router) {
		r.Get("/{addr}", s.handleWalletBalance)
		r.Get("/{addr}/history", s.handleWalletHistory)
		r.Post("/{addr}/deposit", s.handleWalletDeposit)
	})

	// Event feed
	r.Get("/api/events", s.handleEventReplay)
	if s.feed != nil {
		r.Get("/api/events/live", s.feed.HandleSSE)
	}

	// Prometheus metrics endpoint
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// caller extracts the wallet address the request acts for.
func caller(r *http.Request) string {
	return r.Header.Get(callerHeader)
}

// resolveStatus maps a rejection to its HTTP status code.
func resolveStatus(err error) int {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoCaller):
		return http.StatusUnauthorized
	case domain.IsUnauthorized(err):
		return http.StatusForbidden
	case domain.IsInvalidArgument(err):
		return http.StatusBadRequest
	case domain.IsInvalidState(err):
		return http.StatusConflict
	case domain.IsTransferFailure(err):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeRejection maps a ledger rejection onto the wire.
func writeRejection(w http.ResponseWriter, err error) {
	writeError(w, resolveStatus(err), err.Error())
}

// corsMiddleware adds CORS headers for the web client.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+callerHeader)
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
