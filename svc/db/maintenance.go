package db

import (
	"time"

	"github.com/GZTimeWalker/berry-pasty/metrics"
	"github.com/GZTimeWalker/berry-pasty/svc/util"
)

// StartMetricsSampler periodically exports engine metrics to prometheus
// until quit is closed. Compaction itself is the engine's business; this
// worker only keeps its state observable.
func StartMetricsSampler(kv *KV, interval time.Duration, quit chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sampleEngineMetrics(kv)
		case <-quit:
			sampleEngineMetrics(kv)
			return
		}
	}
}

func sampleEngineMetrics(kv *KV) {
	m := kv.db.Metrics()
	metrics.StoreDiskUsageBytes.Set(float64(m.DiskSpaceUsage()))
	metrics.StoreMemtableBytes.Set(float64(m.MemTable.Size))
	metrics.StoreCompactions.Set(float64(m.Compact.Count))
	metrics.StoreCompactionDebtBytes.Set(float64(m.Compact.EstimatedDebt))
	util.Debug().
		Uint64("disk_bytes", m.DiskSpaceUsage()).
		Uint64("memtable_bytes", m.MemTable.Size).
		Int64("compactions", m.Compact.Count).
		Int64("flushes", m.Flush.Count).
		Msg("store metrics sampled")
}
