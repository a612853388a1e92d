// Package metrics defines and registers all custom Prometheus metrics for the
// user directory API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "directory"

// Outcome label values shared by the counters below.
const (
	OutcomeOK       = "ok"
	OutcomeConflict = "conflict"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
	OutcomeTimeout  = "timeout"
	OutcomeError    = "error"
)

// UserOperationsTotal counts directory operations by result.
// Labels:
//   - operation: list, create, update, delete
//   - outcome: ok, conflict, not_found, invalid, timeout, error
var UserOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "user_operations_total",
		Help:      "Total number of user directory operations, by operation and outcome.",
	},
	[]string{"operation", "outcome"},
)

// StoreOperationDuration measures the latency of a single record store call.
var StoreOperationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "store_operation_duration_seconds",
		Help:      "Duration of record store calls.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// UsersCreatedTotal counts newly created users.
// Label:
//   - role: Admin, User, Manager, Developer
var UsersCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "users_created_total",
		Help:      "Total number of users created, by role.",
	},
	[]string{"role"},
)

// IdempotentReplaysTotal counts create requests answered from the idempotency cache.
var IdempotentReplaysTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "idempotent_replays_total",
		Help:      "Total number of create requests replayed from the idempotency cache.",
	},
)
