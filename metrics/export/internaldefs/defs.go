package internaldefs

import (
	goShop "github.com/MrEthical07/goShop"
)

// CounterDef maps a client counter to its exported name.
type CounterDef struct {
	ID   goShop.MetricID
	Name string
	Help string
}

// HistogramDef maps a client histogram to its exported name.
type HistogramDef struct {
	ID   goShop.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: goShop.MetricRequest, Name: "goshop_request_total", Help: "API calls issued, retries excluded."},
	{ID: goShop.MetricRequestFailure, Name: "goshop_request_failure_total", Help: "API calls that returned an error."},
	{ID: goShop.MetricTransportError, Name: "goshop_transport_error_total", Help: "Attempts that received no response."},
	{ID: goShop.MetricUnauthorized, Name: "goshop_unauthorized_total", Help: "401 responses received."},
	{ID: goShop.MetricRetry, Name: "goshop_retry_total", Help: "Requests resubmitted after a 401."},
	{ID: goShop.MetricRefreshSuccess, Name: "goshop_refresh_success_total", Help: "Token refreshes that produced an access token."},
	{ID: goShop.MetricRefreshFailure, Name: "goshop_refresh_failure_total", Help: "Token refreshes that failed."},
	{ID: goShop.MetricRefreshShared, Name: "goshop_refresh_shared_total", Help: "Calls that joined a refresh already in flight."},
	{ID: goShop.MetricSessionExpired, Name: "goshop_session_expired_total", Help: "Sessions ended after an unrecoverable 401."},
	{ID: goShop.MetricLoginSuccess, Name: "goshop_login_success_total", Help: "Successful logins and registrations."},
	{ID: goShop.MetricLoginFailure, Name: "goshop_login_failure_total", Help: "Failed logins and registrations."},
	{ID: goShop.MetricLogout, Name: "goshop_logout_total", Help: "Logout operations."},
	{ID: goShop.MetricCacheHit, Name: "goshop_cache_hit_total", Help: "Queries served from the cache."},
	{ID: goShop.MetricCacheMiss, Name: "goshop_cache_miss_total", Help: "Queries that missed the cache."},
	{ID: goShop.MetricCacheInvalidation, Name: "goshop_cache_invalidation_total", Help: "Query key invalidations."},
	{ID: goShop.MetricOrderCreated, Name: "goshop_order_created_total", Help: "Orders placed."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goShop.MetricRequestLatency, Name: "goshop_request_latency_seconds", Help: "API call latency including refresh and retry."},
}

// HistogramBounds are the upper bounds of the client's latency buckets in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix names each bound for backends that cannot carry labels.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, padding missing buckets with zero.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
