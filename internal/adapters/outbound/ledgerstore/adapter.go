// Package ledgerstore adapts the uptime ledger to the alert engine's store
// port, converting between ledger rows and the engine's value types.
package ledgerstore

import (
	"context"
	"fmt"

	"github.com/ec2keeper/ec2keeper/internal/ledger"
	"github.com/ec2keeper/ec2keeper/internal/logic/alerting"
)

type adapter struct {
	ledger *ledger.Ledger
}

// New creates a new ledger-backed alert store.
func New(l *ledger.Ledger) alerting.Store {
	return &adapter{ledger: l}
}

var _ alerting.Store = (*adapter)(nil)

func (a *adapter) ConfigsQuery(ctx context.Context, enabledOnly bool) ([]alerting.AlertConfig, error) {
	rows, err := a.ledger.AlertConfigsQuery(ctx, enabledOnly)
	if err != nil {
		return nil, fmt.Errorf("query alert configs: %w", err)
	}

	configs := make([]alerting.AlertConfig, 0, len(rows))
	for _, row := range rows {
		configs = append(configs, alerting.AlertConfig{
			ID:                    row.ID,
			Name:                  row.Name,
			ThresholdHours:        row.ThresholdHours,
			ReminderIntervalHours: row.ReminderIntervalHours,
			Enabled:               row.Enabled,
			Destination:           row.Destination,
		})
	}

	return configs, nil
}

func (a *adapter) CreateConfigCommand(ctx context.Context, cfg alerting.AlertConfig) (int64, error) {
	id, err := a.ledger.CreateAlertConfigCommand(ctx, ledger.AlertConfig{
		Name:                  cfg.Name,
		ThresholdHours:        cfg.ThresholdHours,
		ReminderIntervalHours: cfg.ReminderIntervalHours,
		Enabled:               cfg.Enabled,
		Destination:           cfg.Destination,
	})
	if err != nil {
		return 0, fmt.Errorf("create alert config: %w", err)
	}

	return id, nil
}

func (a *adapter) UpdateConfigCommand(ctx context.Context, id int64, patch alerting.ConfigPatch) (bool, error) {
	updated, err := a.ledger.UpdateAlertConfigCommand(ctx, id, ledger.AlertConfigPatch{
		Enabled:               patch.Enabled,
		ThresholdHours:        patch.ThresholdHours,
		ReminderIntervalHours: patch.ReminderIntervalHours,
	})
	if err != nil {
		return false, fmt.Errorf("update alert config: %w", err)
	}

	return updated, nil
}

func (a *adapter) LastFiringQuery(ctx context.Context, instanceID string, configID int64) (*alerting.Firing, error) {
	row, err := a.ledger.LastFiringQuery(ctx, instanceID, configID)
	if err != nil {
		return nil, fmt.Errorf("query last firing: %w", err)
	}

	if row == nil {
		return nil, nil
	}

	return &alerting.Firing{
		InstanceID:  row.InstanceID,
		ConfigID:    row.ConfigID,
		TriggeredAt: row.TriggeredAt,
		UptimeHours: row.UptimeHours,
		Delivered:   row.Delivered,
	}, nil
}

func (a *adapter) RecordFiringCommand(ctx context.Context, firing alerting.Firing) error {
	_, err := a.ledger.RecordFiringCommand(ctx, ledger.AlertFiring{
		InstanceID:  firing.InstanceID,
		ConfigID:    firing.ConfigID,
		TriggeredAt: firing.TriggeredAt,
		UptimeHours: firing.UptimeHours,
		Delivered:   firing.Delivered,
	})
	if err != nil {
		return fmt.Errorf("record firing: %w", err)
	}

	return nil
}

func (a *adapter) SaveInstanceSnapshotCommand(ctx context.Context, inst alerting.Instance) error {
	err := a.ledger.SaveInstanceMetadataCommand(ctx, ledger.InstanceMetadata{
		InstanceID:   inst.ID,
		InstanceType: inst.Type,
		Region:       inst.Region,
		LaunchTime:   inst.LaunchTime,
		Tags:         inst.Tags,
	})
	if err != nil {
		return fmt.Errorf("save instance metadata: %w", err)
	}

	return nil
}
