package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	DocumentsInserted = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "emulator", Name: "documents_inserted_total", Help: "Number of documents inserted by the workload."},
	)
	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "emulator", Name: "operation_duration_seconds", Help: "Latency of store operations by kind.", Buckets: prometheus.DefBuckets},
		[]string{"op"},
	)
	OperationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "emulator", Name: "operation_errors_total", Help: "Number of failed store operations by kind."},
		[]string{"op"},
	)
	QueryResults = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "emulator", Name: "query_results", Help: "Documents matched by the last query on a field."},
		[]string{"field"},
	)
	NotesRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "emulator", Name: "notes_requests_total", Help: "Notes API requests by route and status."},
		[]string{"route", "status"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(DocumentsInserted)
	reg.MustRegister(OperationDuration)
	reg.MustRegister(OperationErrors)
	reg.MustRegister(QueryResults)
	reg.MustRegister(NotesRequests)
}
