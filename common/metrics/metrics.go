package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Cache labels
const (
	CachePhoto     = "photo"
	CacheDirectory = "directory"

	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

var (
	// CacheRequests counts cache lookups by cache and outcome
	CacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "haystack_cache_requests_total",
			Help: "Cache lookups by cache and result",
		},
		[]string{"cache", "result"},
	)

	// StoreFaults counts store faults by kind
	StoreFaults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "haystack_store_faults_total",
			Help: "Store faults by kind",
		},
		[]string{"kind"},
	)

	// Inconsistencies counts identities missing from both cache and store
	Inconsistencies = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "haystack_inconsistencies_total",
			Help: "Lookups that missed both the cache and the store",
		},
	)

	// CacheRepairFailures counts failed write-backs after a store hit
	CacheRepairFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "haystack_cache_repair_failures_total",
			Help: "Cache write-backs that failed after a store hit",
		},
	)

	// StoreConnectAttempts counts partition dial attempts by result
	StoreConnectAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "haystack_store_connect_attempts_total",
			Help: "Store partition connection attempts by result",
		},
		[]string{"result"},
	)

	// StorePartitions reports partitions by state (available, fatal)
	StorePartitions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "haystack_store_partitions",
			Help: "Configured store partitions by state",
		},
		[]string{"state"},
	)

	// RateLimited counts requests rejected by a rate limit, by route
	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "haystack_rate_limited_total",
			Help: "Requests rejected by rate limiting",
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(CacheRequests)
	prometheus.MustRegister(StoreFaults)
	prometheus.MustRegister(Inconsistencies)
	prometheus.MustRegister(CacheRepairFailures)
	prometheus.MustRegister(StoreConnectAttempts)
	prometheus.MustRegister(StorePartitions)
	prometheus.MustRegister(RateLimited)
	prometheus.MustRegister(hostInfo)
}
