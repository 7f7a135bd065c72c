package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/taskbay-network/taskbay/internal/domain"
	"github.com/taskbay-network/taskbay/internal/infra/metrics"
)

// FeedHub broadcasts committed escrow events to SSE subscribers.
// Implements domain.EventSink so it can subscribe straight to the ledger.
type FeedHub struct {
	mu   sync.Mutex
	subs map[chan domain.Event]struct{}
}

// NewFeedHub creates an empty hub.
func NewFeedHub() *FeedHub {
	return &FeedHub{subs: make(map[chan domain.Event]struct{})}
}

// Publish fans an event out to all connected subscribers.
// Slow subscribers are skipped rather than blocking the ledger.
func (h *FeedHub) Publish(ev domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// subscribe registers a new subscriber channel.
func (h *FeedHub) subscribe() chan domain.Event {
	ch := make(chan domain.Event, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	metrics.EventSubscribers.Inc()
	return ch
}

// unsubscribe removes a subscriber channel.
func (h *FeedHub) unsubscribe(ch chan domain.Event) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
	metrics.EventSubscribers.Dec()
}

// HandleSSE streams live escrow events as server-sent events.
func (h *FeedHub) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	// Heartbeat keeps intermediaries from closing the idle stream
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case ev := <-ch:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}
