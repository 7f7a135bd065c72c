// Package metrics provides Prometheus metrics for taskbay.
// Counters and gauges for escrow transitions, rejections, custody and
// the event feed.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Escrow Transitions ─────────────────────────────────────────────────────

// TasksPosted tracks successfully posted tasks.
var TasksPosted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "taskbay",
	Name:      "tasks_posted_total",
	Help:      "Total tasks posted into escrow.",
})

// TasksAssigned tracks successful freelancer assignments.
var TasksAssigned = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "taskbay",
	Name:      "tasks_assigned_total",
	Help:      "Total tasks assigned to a freelancer.",
})

// TasksPaid tracks completed-and-paid tasks.
var TasksPaid = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "taskbay",
	Name:      "tasks_paid_total",
	Help:      "Total tasks completed with reward released.",
})

// TasksCancelled tracks cancelled-and-refunded tasks.
var TasksCancelled = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "taskbay",
	Name:      "tasks_cancelled_total",
	Help:      "Total tasks cancelled with reward refunded.",
})

// Rejections tracks rejected operations by kind.
var Rejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "taskbay",
	Name:      "rejections_total",
	Help:      "Total rejected escrow operations by rejection kind.",
}, []string{"kind"})

// ─── Value Custody ──────────────────────────────────────────────────────────

// EscrowCustody tracks the value currently held by the ledger.
var EscrowCustody = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "taskbay",
	Name:      "escrow_custody_balance",
	Help:      "Value currently held in escrow custody.",
})

// RewardsReleased tracks total value paid out to freelancers.
var RewardsReleased = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "taskbay",
	Name:      "rewards_released_total",
	Help:      "Total value released to freelancers.",
})

// ─── Event Feed ─────────────────────────────────────────────────────────────

// EventSubscribers tracks live SSE feed subscribers.
var EventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "taskbay",
	Name:      "event_subscribers",
	Help:      "Number of connected live event feed subscribers.",
})
