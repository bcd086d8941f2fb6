// Package metrics exposes prometheus counters for the moderation pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Detections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modguard_detections_total",
		Help: "Violations detected, by violation kind.",
	}, []string{"kind"})

	Warnings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "modguard_warnings_total",
		Help: "Warnings appended to the ledger.",
	})

	Escalations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modguard_escalations_total",
		Help: "Escalation actions applied, by action.",
	}, []string{"action"})

	EnforcementFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modguard_enforcement_failures_total",
		Help: "Platform enforcement calls that failed, by action.",
	}, []string{"action"})
)
