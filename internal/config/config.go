package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AWSRegion       string
	ManagedTagKey   string
	ManagedTagValue string
	DBPath          string
	WebhookURL      string
	AlertsFile      string
	AlertInterval   time.Duration
	CacheTTL        time.Duration
	SweepSchedule   string
	MaxRetries      int
	LogLevel        string
	LogFormat       string
	HTTPPort        string
	MetricsPort     string
}

func Load() (*Config, error) {
	cfg := &Config{
		AWSRegion:       getEnvWithFallback(envKeyAWSRegion, envKeyAWSRegionFallback),
		ManagedTagKey:   getEnvOrDefault(envKeyManagedTagKey, "managed-by"),
		ManagedTagValue: getEnvOrDefault(envKeyManagedTagValue, "ec2keeper"),
		DBPath:          getEnvOrDefault(envKeyDBPath, "ec2keeper.db"),
		WebhookURL:      os.Getenv(envKeyWebhookURL),
		AlertsFile:      os.Getenv(envKeyAlertsFile),
		SweepSchedule:   getEnvOrDefault(envKeySweepSchedule, "*/5 * * * *"),
		LogLevel:        getEnvOrDefault(envKeyLogLevel, "info"),
		LogFormat:       getEnvOrDefault(envKeyLogFormat, "json"),
		HTTPPort:        getEnvOrDefault(envKeyHTTPPort, "8080"),
		MetricsPort:     getEnvOrDefault(envKeyMetricsPort, "9090"),
	}

	alertInterval, err := getEnvDuration(envKeyAlertInterval, 10*time.Minute, envMinAlertInterval)
	if err != nil {
		return nil, err
	}

	cfg.AlertInterval = alertInterval

	cacheTTL, err := getEnvDuration(envKeyCacheTTL, 30*time.Second, envMinCacheTTL)
	if err != nil {
		return nil, err
	}

	cfg.CacheTTL = cacheTTL

	maxRetries, err := getEnvInt(envKeyMaxRetries, 3)
	if err != nil {
		return nil, err
	}

	if maxRetries < 1 {
		return nil, fmt.Errorf("parse %s: must be at least 1, got %d", envKeyMaxRetries, maxRetries)
	}

	cfg.MaxRetries = maxRetries

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value
}

func getEnvWithFallback(key, fallbackKey string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return os.Getenv(fallbackKey)
}

func getEnvDuration(key string, defaultValue, minValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}

	if value < minValue {
		return 0, fmt.Errorf("parse %s: must be at least %s, got %s", key, minValue, value)
	}

	return value, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}

	return value, nil
}
