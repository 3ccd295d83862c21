package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	importSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hrm",
		Subsystem: "bulk_import",
		Name:      "sessions_total",
		Help:      "Total number of bulk import uploads broken down by outcome.",
	}, []string{"result"})

	importRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hrm",
		Subsystem: "bulk_import",
		Name:      "rows_total",
		Help:      "Total number of rows seen at submission broken down by fate.",
	}, []string{"fate"})

	importSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hrm",
		Subsystem: "bulk_import",
		Name:      "submissions_total",
		Help:      "Total number of bulk submissions broken down by outcome.",
	}, []string{"result"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "hrm",
		Subsystem: "bulk_import",
		Name:      "active_sessions",
		Help:      "Number of import sessions currently held in memory.",
	})
)

func recordLoad(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	importSessions.WithLabelValues(result).Inc()
}

func recordSubmission(result string, sent, skipped, succeeded int) {
	importSubmissions.WithLabelValues(result).Inc()
	if result != "ok" {
		return
	}
	importRows.WithLabelValues("sent").Add(float64(sent))
	importRows.WithLabelValues("skipped").Add(float64(skipped))
	importRows.WithLabelValues("succeeded").Add(float64(succeeded))
	importRows.WithLabelValues("failed").Add(float64(sent - succeeded))
}
