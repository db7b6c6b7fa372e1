package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cacheHitsTotal = promauto.With(prometheus.DefaultRegisterer).NewCounter(
	prometheus.CounterOpts{
		Name: "ec2keeper_cache_hits_total",
		Help: "Total number of state cache hits.",
	},
)

var cacheMissesTotal = promauto.With(prometheus.DefaultRegisterer).NewCounter(
	prometheus.CounterOpts{
		Name: "ec2keeper_cache_misses_total",
		Help: "Total number of state cache misses, including expired entries.",
	},
)

var cacheEvictionsTotal = promauto.With(prometheus.DefaultRegisterer).NewCounter(
	prometheus.CounterOpts{
		Name: "ec2keeper_cache_evictions_total",
		Help: "Total number of state cache entries evicted lazily or by sweep.",
	},
)

var controlCommandsTotal = promauto.With(prometheus.DefaultRegisterer).NewCounterVec(
	prometheus.CounterOpts{
		Name: "ec2keeper_control_commands_total",
		Help: "Total number of instance control commands, by command and outcome.",
	},
	[]string{"command", "outcome"},
)

var controlPlaneErrorsTotal = promauto.With(prometheus.DefaultRegisterer).NewCounterVec(
	prometheus.CounterOpts{
		Name: "ec2keeper_control_plane_errors_total",
		Help: "Total number of control plane API errors, by classification.",
	},
	[]string{"class"},
)

var alertFiringsTotal = promauto.With(prometheus.DefaultRegisterer).NewCounterVec(
	prometheus.CounterOpts{
		Name: "ec2keeper_alert_firings_total",
		Help: "Total number of uptime alert firings, by kind (initial or reminder).",
	},
	[]string{"kind"},
)

var alertDeliveryFailuresTotal = promauto.With(prometheus.DefaultRegisterer).NewCounter(
	prometheus.CounterOpts{
		Name: "ec2keeper_alert_delivery_failures_total",
		Help: "Total number of alert notifications that failed to deliver.",
	},
)

var alertCyclesTotal = promauto.With(prometheus.DefaultRegisterer).NewCounter(
	prometheus.CounterOpts{
		Name: "ec2keeper_alert_evaluation_cycles_total",
		Help: "Total number of completed alert evaluation cycles.",
	},
)

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() {
	cacheHitsTotal.Inc()
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() {
	cacheMissesTotal.Inc()
}

// RecordCacheEviction increments the cache eviction counter.
func RecordCacheEviction() {
	cacheEvictionsTotal.Inc()
}

// RecordControlCommand counts one control command with its outcome ("ok" or "error").
func RecordControlCommand(command string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}

	controlCommandsTotal.WithLabelValues(command, outcome).Inc()
}

// RecordControlPlaneError counts one classified control plane error
// ("throttled", "unavailable", "not_found" or "api").
func RecordControlPlaneError(class string) {
	controlPlaneErrorsTotal.WithLabelValues(class).Inc()
}

// RecordAlertFiring counts one alert firing ("initial" or "reminder").
func RecordAlertFiring(kind string) {
	alertFiringsTotal.WithLabelValues(kind).Inc()
}

// RecordAlertDeliveryFailure counts one failed notification delivery.
func RecordAlertDeliveryFailure() {
	alertDeliveryFailuresTotal.Inc()
}

// RecordAlertCycle counts one completed evaluation cycle.
func RecordAlertCycle() {
	alertCyclesTotal.Inc()
}
