package main

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nickyhof/DocQL/db"
	"github.com/nickyhof/DocQL/sql"
)

var (
	// StatementsTotal counts executed statements by kind and outcome.
	StatementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docql_statements_total",
			Help: "Total number of executed statements",
		},
		[]string{"kind", "status"},
	)
	StatementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docql_statement_duration_seconds",
			Help:    "Statement execution latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	RejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docql_rejected_requests_total",
			Help: "Requests rejected before execution",
		},
		[]string{"reason"},
	)
)

// observeStatement is installed as the engine's execution hook.
func observeStatement(kind sql.StatementType, elapsed time.Duration, err error) {
	StatementsTotal.WithLabelValues(kind.String(), statementStatus(err)).Inc()
	StatementDuration.WithLabelValues(kind.String()).Observe(elapsed.Seconds())
}

func statementStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, db.ErrAdapterFailure):
		return "adapter_failure"
	default:
		return "error"
	}
}
