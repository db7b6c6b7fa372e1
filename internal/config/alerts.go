package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AlertSeed is one alert definition from the seed file. Seeds are inserted
// by name only when missing, so operator edits made over the API survive
// restarts.
type AlertSeed struct {
	Name                  string `yaml:"name"`
	ThresholdHours        int    `yaml:"threshold_hours"`
	ReminderIntervalHours int    `yaml:"reminder_interval_hours"`
	Enabled               *bool  `yaml:"enabled"` // nil defaults to true
	Destination           string `yaml:"destination"`
}

type alertsFile struct {
	Alerts []AlertSeed `yaml:"alerts"`
}

// LoadAlertSeeds reads the alert seed file. An empty path returns no seeds.
func LoadAlertSeeds(path string) ([]AlertSeed, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alerts file: %w", err)
	}

	var parsed alertsFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse alerts file: %w", err)
	}

	for i, seed := range parsed.Alerts {
		if seed.Name == "" {
			return nil, fmt.Errorf("alerts file: alert %d has no name", i)
		}

		if seed.ThresholdHours <= 0 {
			return nil, fmt.Errorf("alerts file: alert %q: threshold_hours must be positive", seed.Name)
		}

		if seed.ReminderIntervalHours < 0 {
			return nil, fmt.Errorf("alerts file: alert %q: reminder_interval_hours must not be negative", seed.Name)
		}
	}

	return parsed.Alerts, nil
}
