package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockinsight7000",
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Count of index store operations.",
	}, []string{"operation", "status"})
	storeRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockinsight7000",
		Subsystem: "store",
		Name:      "operation_duration_seconds",
		Help:      "Duration of index store operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})
)

// ObserveStore records a single store operation outcome and duration.
func ObserveStore(operation string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}

	storeRequestsTotal.WithLabelValues(operation, status).Inc()
	storeRequestDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}
