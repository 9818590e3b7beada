package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pool metrics
	PoolCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbengine_pool_count",
		Help: "Total number of tracked pools",
	})

	PoolUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbengine_pool_updates_total",
			Help: "Total number of pool account updates received",
		},
		[]string{"pool_type"},
	)

	PoolDecodeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbengine_pool_decode_failures_total",
			Help: "Total number of pool account payloads that failed to decode",
		},
		[]string{"pool_type"},
	)

	StaleUpdatesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_stale_updates_dropped_total",
		Help: "Total number of updates dropped because a newer slot was already cached",
	})

	// Vault metrics
	VaultCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbengine_vault_count",
		Help: "Total number of tracked vault accounts",
	})

	VaultUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_vault_updates_total",
		Help: "Total number of vault balance updates received",
	})

	VaultParseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_vault_parse_failures_total",
		Help: "Total number of vault account payloads that failed to parse",
	})

	EarlyVaultUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_early_vault_updates_total",
		Help: "Total number of vault balances retained before any pool registered the vault",
	})

	// Routing metrics
	UnroutedUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_unrouted_updates_total",
		Help: "Total number of account updates for ids known to neither the pool set nor the vault map",
	})

	// Trigger metrics
	ScanTriggers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbengine_scan_triggers_total",
			Help: "Total number of scan triggers by cause",
		},
		[]string{"cause"},
	)

	TriggersSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_triggers_suppressed_total",
		Help: "Total number of price updates below the trigger threshold",
	})

	// Consistency metrics
	ConsistencyScore = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbengine_consistency_score",
		Help: "Percentage of active pools with a slot within the freshness window",
	})

	DegradedScans = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_degraded_scans_total",
		Help: "Total number of scans run below the freshness threshold",
	})

	// Scan metrics
	ScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arbengine_scan_duration_seconds",
			Help:    "Full scan pass duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1},
		},
		[]string{"phase"},
	)

	OpportunitiesFound = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arbengine_opportunities_found",
		Help:    "Number of opportunities surviving merge and ROI filtering per scan",
		Buckets: []float64{0, 1, 2, 3, 5, 10, 20, 50},
	})

	BestROI = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbengine_best_roi_pct",
		Help: "ROI of the top-ranked opportunity from the last scan",
	})

	// Backfill metrics
	BackfillDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbengine_backfill_duration_seconds",
		Help: "Duration of the last vault backfill pass",
	})

	BackfillFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_backfill_failures_total",
		Help: "Total number of vault accounts that could not be backfilled",
	})

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbengine_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arbengine_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
