package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PastyCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "berry_pasty_created_total",
		Help: "no. of pasties created",
	})
	PastyUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "berry_pasty_updated_total",
		Help: "no. of pasties updated in place",
	})
	PastyRetrieved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "berry_pasty_retrieved_total",
		Help: "no. of pasties retrieved",
	})
	PastyDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "berry_pasty_deleted_total",
		Help: "no. of pasties deleted",
	})
	PastyListed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "berry_pasty_listed_total",
		Help: "no. of full listings served",
	})
	ViewsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "berry_views_recorded_total",
		Help: "no. of view increments persisted",
	})
	ViewQueueDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "berry_view_queue_dropped_total",
		Help: "no. of view increments dropped on a full queue",
	})
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "berry_cache_hits_total",
		Help: "no. of cache hits",
	})
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "berry_cache_misses_total",
		Help: "no. of cache misses",
	})
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "berry_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "berry_rate_limit_hits_total",
			Help: "no. of rate limit violations",
		},
		[]string{"endpoint"},
	)
	RecentErrorRatePercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "berry_recent_error_rate_percent",
		Help: "5min rolling avg error rate percentage",
	})
	StoreDiskUsageBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "berry_store_disk_usage_bytes",
		Help: "bytes of disk used by the store",
	})
	StoreMemtableBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "berry_store_memtable_bytes",
		Help: "bytes held in store memtables",
	})
	StoreCompactions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "berry_store_compactions",
		Help: "cumulative store compaction count",
	})
	StoreCompactionDebtBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "berry_store_compaction_debt_bytes",
		Help: "estimated bytes pending compaction",
	})
)

func Init() {
}
