package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pool metrics
	PoolCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clmm_pool_count",
		Help: "Number of registered pools",
	})

	PositionCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clmm_position_count",
		Help: "Number of open positions",
	})

	PoolEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clmm_pool_events_total",
			Help: "Total number of pool events emitted",
		},
		[]string{"kind"},
	)

	// Swap metrics
	SwapRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clmm_swap_requests_total",
			Help: "Total number of swaps executed against pools",
		},
		[]string{"direction", "swap_mode", "status"},
	)

	SwapDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clmm_swap_duration_seconds",
			Help:    "Swap execution duration in seconds, including settlement",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		},
		[]string{"swap_mode"},
	)

	QuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clmm_quote_requests_total",
			Help: "Total number of swap quotes",
		},
		[]string{"swap_mode", "status"},
	)

	TicksCrossed = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "clmm_swap_ticks_crossed",
		Help:    "Initialized ticks crossed per swap",
		Buckets: []float64{0, 1, 2, 3, 5, 10, 20, 50},
	})

	SwapVolume = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clmm_swap_volume_total",
			Help: "Input amount swapped, in base units of the input coin",
		},
		[]string{"coin"},
	)

	// Liquidity metrics
	LiquidityOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clmm_liquidity_ops_total",
			Help: "Total number of position operations",
		},
		[]string{"op", "status"},
	)

	FeesCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clmm_fees_collected_total",
			Help: "Fees paid out, in base units",
		},
		[]string{"coin", "kind"},
	)

	FlashLoans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clmm_flash_loans_total",
			Help: "Total number of flash loans",
		},
		[]string{"status"},
	)

	// Persistence metrics
	PersistDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "clmm_persist_duration_seconds",
		Help:    "Duration of a persistence batch",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})

	PersistedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clmm_persisted_records_total",
			Help: "Records written to storage",
		},
		[]string{"bucket"},
	)

	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clmm_persist_failures_total",
		Help: "Failed persistence batches",
	})

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clmm_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clmm_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
