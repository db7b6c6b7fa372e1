package config

import "time"

// Env key constants. All keeper configuration env vars use EC2KEEPER_ prefix;
// duration values support explicit units (e.g. 5m, 40s, 2h).

// AWS region to operate in. If unset, AWS_REGION is used as fallback and the
// SDK's default resolution chain decides.
const envKeyAWSRegion = "EC2KEEPER_AWS_REGION"

// Log level: debug, info, warn, error.
const envKeyLogLevel = "EC2KEEPER_LOG_LEVEL"

// Log format: json or text.
const envKeyLogFormat = "EC2KEEPER_LOG_FORMAT"

// Port for health/readiness and the instance API HTTP server.
const envKeyHTTPPort = "EC2KEEPER_HTTP_PORT"

// Port for Prometheus metrics (GET /metrics).
const envKeyMetricsPort = "EC2KEEPER_METRICS_PORT"

// Tag key and value selecting the managed fleet.
const (
	envKeyManagedTagKey   = "EC2KEEPER_MANAGED_TAG_KEY"
	envKeyManagedTagValue = "EC2KEEPER_MANAGED_TAG_VALUE"
)

// Path to the sqlite database file holding the uptime ledger.
const envKeyDBPath = "EC2KEEPER_DB_PATH"

// Default webhook URL for alert notifications. Alert configs may override
// it per alert.
const envKeyWebhookURL = "EC2KEEPER_WEBHOOK_URL"

// Optional YAML file with alert configs seeded at startup.
const envKeyAlertsFile = "EC2KEEPER_ALERTS_FILE"

// Alert evaluation interval. Units: s, m, h (e.g. 10m).
const (
	envKeyAlertInterval = "EC2KEEPER_ALERT_INTERVAL"
	envMinAlertInterval = time.Minute
)

// State cache entry TTL. Units: s, m (e.g. 30s).
const (
	envKeyCacheTTL = "EC2KEEPER_CACHE_TTL"
	envMinCacheTTL = time.Second
)

// Cron schedule for the cache sweep (standard 5-field expression, UTC).
const envKeySweepSchedule = "EC2KEEPER_SWEEP_SCHEDULE"

// Total attempts for control plane calls that fail transiently.
const envKeyMaxRetries = "EC2KEEPER_MAX_RETRIES"

// Standard AWS env key used as fallback when EC2KEEPER_AWS_REGION is unset.
const envKeyAWSRegionFallback = "AWS_REGION"
