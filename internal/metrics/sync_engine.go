package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncBlocksAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockinsight7000",
		Subsystem: "sync_engine",
		Name:      "blocks_applied_total",
		Help:      "Count of block apply attempts.",
	}, []string{"network", "status"})
	syncApplyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockinsight7000",
		Subsystem: "sync_engine",
		Name:      "apply_duration_seconds",
		Help:      "Duration of applying one block to the index.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"network", "status"})

	syncBlocksRevokedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockinsight7000",
		Subsystem: "sync_engine",
		Name:      "blocks_revoked_total",
		Help:      "Count of block revoke attempts.",
	}, []string{"network", "status"})
	syncRevokeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockinsight7000",
		Subsystem: "sync_engine",
		Name:      "revoke_duration_seconds",
		Help:      "Duration of revoking one block from the index.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"network", "status"})

	syncReorgDepth = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockinsight7000",
		Subsystem: "sync_engine",
		Name:      "reorg_depth",
		Help:      "Number of local blocks abandoned per detected reorg.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
	}, []string{"network"})

	syncMempoolReconcileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockinsight7000",
		Subsystem: "sync_engine",
		Name:      "mempool_reconcile_total",
		Help:      "Count of mempool reconciliation rounds.",
	}, []string{"network", "status"})
	syncMempoolReconcileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockinsight7000",
		Subsystem: "sync_engine",
		Name:      "mempool_reconcile_duration_seconds",
		Help:      "Duration of one mempool reconciliation round.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"network", "status"})
	syncMempoolSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockinsight7000",
		Subsystem: "sync_engine",
		Name:      "mempool_size",
		Help:      "Unconfirmed transactions tracked after each reconciliation.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 16),
	}, []string{"network"})

	syncBestHeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "blockinsight7000",
		Subsystem: "sync_engine",
		Name:      "best_height",
		Help:      "Height of the local best block.",
	}, []string{"network"})
)

// SyncEngine tracks metrics for the chain sync pipeline.
type SyncEngine struct {
	network string
}

// NewSyncEngine constructs a metrics collector for the sync pipeline.
func NewSyncEngine(network string) *SyncEngine {
	if network == "" {
		network = "unknown"
	}
	return &SyncEngine{network: network}
}

// ObserveApply records one block apply outcome and duration.
func (m SyncEngine) ObserveApply(err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	syncBlocksAppliedTotal.WithLabelValues(m.network, status).Inc()
	syncApplyDuration.WithLabelValues(m.network, status).Observe(time.Since(started).Seconds())
}

// ObserveRevoke records one block revoke outcome and duration.
func (m SyncEngine) ObserveRevoke(err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	syncBlocksRevokedTotal.WithLabelValues(m.network, status).Inc()
	syncRevokeDuration.WithLabelValues(m.network, status).Observe(time.Since(started).Seconds())
}

// ObserveReorg records the depth of a detected reorg.
func (m SyncEngine) ObserveReorg(depth int) {
	syncReorgDepth.WithLabelValues(m.network).Observe(float64(depth))
}

// ObserveMempoolReconcile records one reconciliation round and the mempool
// size it left behind.
func (m SyncEngine) ObserveMempoolReconcile(err error, size int, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	syncMempoolReconcileTotal.WithLabelValues(m.network, status).Inc()
	syncMempoolReconcileDuration.WithLabelValues(m.network, status).Observe(time.Since(started).Seconds())
	if err == nil {
		syncMempoolSize.WithLabelValues(m.network).Observe(float64(size))
	}
}

// SetBestHeight publishes the local best block height.
func (m SyncEngine) SetBestHeight(height uint64) {
	syncBestHeight.WithLabelValues(m.network).Set(float64(height))
}
