// Package metrics exposes the Prometheus collectors shared by the command
// pipeline and the account directory.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CommandsTotal counts processed utterances by intent and result status.
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payvo_commands_total",
			Help: "Voice commands processed, by intent and result status",
		},
		[]string{"intent", "status"},
	)

	// GuardDecisions counts transactions parked, confirmed or cancelled by the
	// confirmation guard.
	GuardDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payvo_guard_decisions_total",
			Help: "Large-transaction guard decisions",
		},
		[]string{"decision"},
	)

	// StoreFailures counts account store writes that failed. The in-memory
	// directory stays authoritative when this moves.
	StoreFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payvo_store_failures_total",
			Help: "Failed account store writes, by operation",
		},
		[]string{"operation"},
	)

	// IdempotentReplays counts responses served from the idempotency cache.
	IdempotentReplays = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payvo_idempotent_replays_total",
			Help: "Responses replayed for a repeated Idempotency-Key",
		},
	)
)

const (
	DecisionIntercepted = "intercepted"
	DecisionConfirmed   = "confirmed"
	DecisionCancelled   = "cancelled"
)
