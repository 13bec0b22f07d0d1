package solver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 调用结果标签
const (
	outcomeOK          = "ok"
	outcomeSolverError = "solver_error"
	outcomeStatusError = "status_error"
	outcomeDecodeError = "decode_error"
	outcomeUnavailable = "unavailable"
	outcomeCanceled    = "canceled"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "team_matching",
		Subsystem: "solver",
		Name:      "requests_total",
		Help:      "Solver calls by final outcome.",
	}, []string{"outcome"})

	attemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "team_matching",
		Subsystem: "solver",
		Name:      "attempts_total",
		Help:      "HTTP attempts made against the solver, retries included.",
	})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "team_matching",
		Subsystem: "solver",
		Name:      "request_duration_seconds",
		Help:      "Wall time of a solver call across all attempts.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
	})
)
