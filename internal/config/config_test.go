package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ec2keeper/ec2keeper/internal/config"
)

type loadCase struct {
	name    string
	giveEnv map[string]string
	wantErr bool
	wantCfg *config.Config
}

func assertConfigFields(t *testing.T, got, want *config.Config) {
	t.Helper()

	if want == nil {
		return
	}

	if want.AWSRegion != "" {
		require.Equal(t, want.AWSRegion, got.AWSRegion)
	}

	if want.ManagedTagKey != "" {
		require.Equal(t, want.ManagedTagKey, got.ManagedTagKey)
	}

	if want.ManagedTagValue != "" {
		require.Equal(t, want.ManagedTagValue, got.ManagedTagValue)
	}

	if want.DBPath != "" {
		require.Equal(t, want.DBPath, got.DBPath)
	}

	if want.AlertInterval != 0 {
		require.Equal(t, want.AlertInterval, got.AlertInterval)
	}

	if want.CacheTTL != 0 {
		require.Equal(t, want.CacheTTL, got.CacheTTL)
	}

	if want.SweepSchedule != "" {
		require.Equal(t, want.SweepSchedule, got.SweepSchedule)
	}

	if want.MaxRetries != 0 {
		require.Equal(t, want.MaxRetries, got.MaxRetries)
	}

	if want.LogLevel != "" {
		require.Equal(t, want.LogLevel, got.LogLevel)
	}

	if want.LogFormat != "" {
		require.Equal(t, want.LogFormat, got.LogFormat)
	}

	if want.HTTPPort != "" {
		require.Equal(t, want.HTTPPort, got.HTTPPort)
	}

	if want.MetricsPort != "" {
		require.Equal(t, want.MetricsPort, got.MetricsPort)
	}
}

func TestLoad(t *testing.T) {
	tests := []loadCase{
		{
			name: "all defaults",
			giveEnv: map[string]string{
				"AWS_REGION": "",
			},
			wantErr: false,
			wantCfg: &config.Config{
				ManagedTagKey:   "managed-by",
				ManagedTagValue: "ec2keeper",
				DBPath:          "ec2keeper.db",
				AlertInterval:   10 * time.Minute,
				CacheTTL:        30 * time.Second,
				SweepSchedule:   "*/5 * * * *",
				MaxRetries:      3,
				LogLevel:        "info",
				LogFormat:       "json",
				HTTPPort:        "8080",
				MetricsPort:     "9090",
			},
		},
		{
			name: "override ports and intervals",
			giveEnv: map[string]string{
				"EC2KEEPER_HTTP_PORT":      "8090",
				"EC2KEEPER_ALERT_INTERVAL": "5m",
				"EC2KEEPER_CACHE_TTL":      "45s",
			},
			wantErr: false,
			wantCfg: &config.Config{
				HTTPPort:      "8090",
				AlertInterval: 5 * time.Minute,
				CacheTTL:      45 * time.Second,
			},
		},
		{
			name: "region falls back to AWS_REGION",
			giveEnv: map[string]string{
				"AWS_REGION": "eu-central-1",
			},
			wantErr: false,
			wantCfg: &config.Config{
				AWSRegion: "eu-central-1",
			},
		},
		{
			name: "explicit region wins over fallback",
			giveEnv: map[string]string{
				"EC2KEEPER_AWS_REGION": "us-east-1",
				"AWS_REGION":           "eu-central-1",
			},
			wantErr: false,
			wantCfg: &config.Config{
				AWSRegion: "us-east-1",
			},
		},
		{
			name: "invalid EC2KEEPER_ALERT_INTERVAL",
			giveEnv: map[string]string{
				"EC2KEEPER_ALERT_INTERVAL": "x",
			},
			wantErr: true,
		},
		{
			name: "alert interval below minimum",
			giveEnv: map[string]string{
				"EC2KEEPER_ALERT_INTERVAL": "10s",
			},
			wantErr: true,
		},
		{
			name: "invalid EC2KEEPER_CACHE_TTL",
			giveEnv: map[string]string{
				"EC2KEEPER_CACHE_TTL": "not-a-duration",
			},
			wantErr: true,
		},
		{
			name: "invalid EC2KEEPER_MAX_RETRIES",
			giveEnv: map[string]string{
				"EC2KEEPER_MAX_RETRIES": "x",
			},
			wantErr: true,
		},
		{
			name: "zero EC2KEEPER_MAX_RETRIES",
			giveEnv: map[string]string{
				"EC2KEEPER_MAX_RETRIES": "0",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.giveEnv {
				t.Setenv(k, v)
			}

			got, err := config.Load()
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assertConfigFields(t, got, tt.wantCfg)
		})
	}
}

func TestLoadAlertSeeds(t *testing.T) {
	t.Parallel()

	t.Run("empty path returns no seeds", func(t *testing.T) {
		t.Parallel()

		seeds, err := config.LoadAlertSeeds("")
		require.NoError(t, err)
		require.Empty(t, seeds)
	})

	t.Run("parses a valid file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "alerts.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
alerts:
  - name: long-running
    threshold_hours: 4
    reminder_interval_hours: 2
  - name: forgotten
    threshold_hours: 24
    destination: https://hooks.example.com/oncall
`), 0o600))

		seeds, err := config.LoadAlertSeeds(path)
		require.NoError(t, err)
		require.Len(t, seeds, 2)

		require.Equal(t, "long-running", seeds[0].Name)
		require.Equal(t, 4, seeds[0].ThresholdHours)
		require.Equal(t, 2, seeds[0].ReminderIntervalHours)
		require.Nil(t, seeds[0].Enabled)

		require.Equal(t, "https://hooks.example.com/oncall", seeds[1].Destination)
	})

	t.Run("rejects a seed without a name", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "alerts.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
alerts:
  - threshold_hours: 4
`), 0o600))

		_, err := config.LoadAlertSeeds(path)
		require.Error(t, err)
	})

	t.Run("rejects a non-positive threshold", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "alerts.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
alerts:
  - name: broken
    threshold_hours: 0
`), 0o600))

		_, err := config.LoadAlertSeeds(path)
		require.Error(t, err)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		t.Parallel()

		_, err := config.LoadAlertSeeds(filepath.Join(t.TempDir(), "nonexistent.yaml"))
		require.Error(t, err)
	})
}
