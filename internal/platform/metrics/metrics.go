// Package metrics declares the gateway's Prometheus counters. promauto
// registers them on the default registry at init; promhttp serves them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Registrations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "facegate_registrations_total",
		Help: "Total number of identities enrolled",
	})

	LoginSuccesses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "facegate_login_successes_total",
		Help: "Total number of completed two-factor logins",
	})

	LoginFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "facegate_login_failures_total",
		Help: "Total number of rejected login attempts (face or MFA)",
	})

	FraudAlarms = promauto.NewCounter(prometheus.CounterOpts{
		Name: "facegate_fraud_alarms_total",
		Help: "Total number of identity mismatches raised during monitoring",
	})

	// The audit policy is fail-open: a failed ledger append does not abort
	// the primary operation, so this counter is the alerting path.
	AuditAppendFailure = promauto.NewCounter(prometheus.CounterOpts{
		Name: "facegate_audit_append_failures_total",
		Help: "Total number of audit ledger appends that failed",
	})
)
