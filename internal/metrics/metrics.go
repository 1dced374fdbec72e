// Package metrics exposes Prometheus counters/gauges for the dispatcher,
// grounded on SAGE-X-project-sage's internal/metrics package
// (promauto-registered CounterVec/Gauge pairs per subsystem).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "u2fauthd"

// Registry is a dedicated registry rather than the global default, so
// cmd/u2fauthd can serve /metrics without picking up process/Go-runtime
// collectors it didn't ask for (same separation SAGE-X-project-sage's
// internal/metrics keeps).
var Registry = prometheus.NewRegistry()

var (
	// RequestsDispatched tracks every APDU the dispatcher has handled, by
	// command and resulting status word.
	RequestsDispatched = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "requests_total",
			Help:      "Total number of APDU requests dispatched, by command and status",
		},
		[]string{"ins", "status"},
	)

	// CounterValue mirrors the device's persisted monotonic counter, so it
	// can be watched for unexpected regressions from outside the process.
	CounterValue = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "authenticate",
			Name:      "counter_value",
			Help:      "Current value of the persisted monotonic signature counter",
		},
	)

	// PresenceDenied counts failed user-presence tests. Nothing in this
	// module increments it, so it stays at zero.
	PresenceDenied = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "presence",
			Name:      "denied_total",
			Help:      "Total number of user-presence tests that failed or timed out",
		},
	)
)

// ObserveStatus records one dispatched request's outcome.
func ObserveStatus(ins byte, status uint16) {
	RequestsDispatched.WithLabelValues(insLabel(ins), statusLabel(status)).Inc()
}

func insLabel(ins byte) string {
	switch ins {
	case 0x01:
		return "register"
	case 0x02:
		return "authenticate"
	case 0x03:
		return "version"
	default:
		return "other"
	}
}

func statusLabel(status uint16) string {
	switch status {
	case 0x9000:
		return "no_error"
	case 0x6985:
		return "conditions_not_satisfied"
	case 0x6A80:
		return "wrong_data"
	case 0x6700:
		return "wrong_length"
	case 0x6E00:
		return "class_not_supported"
	case 0x6D00:
		return "ins_not_supported"
	case 0x6A84:
		return "insufficient_memory"
	default:
		return "unknown"
	}
}
