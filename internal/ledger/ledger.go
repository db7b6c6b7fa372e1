package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Ledger owns the durable uptime sessions, alert configurations, alert
// firing history, instance metadata cache and command audit log.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a ledger over an open, migrated database handle.
func New(db *sql.DB) *Ledger {
	return &Ledger{
		db:  db,
		now: time.Now,
	}
}

// Name returns the name of the ledger component.
func (l *Ledger) Name() string {
	return "uptime-ledger"
}

// Ping reports whether the backing database is reachable.
func (l *Ledger) Ping(ctx context.Context) error {
	if err := l.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping ledger: %w", err)
	}

	return nil
}

// Shutdown closes the database handle.
func (l *Ledger) Shutdown(_ context.Context) error {
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("close ledger db: %w", err)
	}

	return nil
}

// StartSessionCommand opens an uptime session for the instance at now (UTC).
// When an open session already exists — e.g. orphaned by a process restart —
// it is resumed instead of opening a second one.
func (l *Ledger) StartSessionCommand(ctx context.Context, instanceID string) (int64, error) {
	open, err := l.openSession(ctx, instanceID)
	if err != nil {
		return 0, err
	}

	if open != nil {
		return open.ID, nil
	}

	now := l.now().UTC()
	date := now.Format(dateLayout)

	res, err := l.db.ExecContext(ctx, `INSERT INTO uptime_sessions (instance_id,date,start_time,created_at)
		VALUES (?,?,?,?)`,
		instanceID, date, now, now)
	if err != nil {
		return 0, fmt.Errorf("insert uptime session: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("uptime session id: %w", err)
	}

	return id, nil
}

// EndSessionCommand closes the most recent open session for the instance and
// returns its duration in whole seconds. Returns nil when no open session
// exists; that is not an error, the instance may have been started out of
// band. Calling it twice without an intervening start is a nil no-op.
func (l *Ledger) EndSessionCommand(ctx context.Context, instanceID string) (*int64, error) {
	open, err := l.openSession(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	if open == nil {
		return nil, nil
	}

	now := l.now().UTC()
	duration := int64(now.Sub(open.StartTime) / time.Second)

	_, err = l.db.ExecContext(ctx, `UPDATE uptime_sessions SET stop_time = ?, duration_seconds = ? WHERE id = ?`,
		now, duration, open.ID)
	if err != nil {
		return nil, fmt.Errorf("close uptime session: %w", err)
	}

	return &duration, nil
}

// HasOpenSessionQuery reports whether the instance currently has an open
// session.
func (l *Ledger) HasOpenSessionQuery(ctx context.Context, instanceID string) (bool, error) {
	open, err := l.openSession(ctx, instanceID)
	if err != nil {
		return false, err
	}

	return open != nil, nil
}

// OpenSessionQuery returns the instance's open session, or nil when none.
func (l *Ledger) OpenSessionQuery(ctx context.Context, instanceID string) (*Session, error) {
	return l.openSession(ctx, instanceID)
}

func (l *Ledger) openSession(ctx context.Context, instanceID string) (*Session, error) {
	var s Session

	err := l.db.QueryRowContext(ctx, `SELECT id,instance_id,date,start_time FROM uptime_sessions
		WHERE instance_id = ? AND stop_time IS NULL
		ORDER BY start_time DESC LIMIT 1`, instanceID).
		Scan(&s.ID, &s.InstanceID, &s.Date, &s.StartTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("query open session: %w", err)
	}

	return &s, nil
}

// DailyUptimeQuery sums closed-session durations for the instance on the
// given UTC calendar day (YYYY-MM-DD). Open sessions are excluded; callers
// needing live uptime add the running session's elapsed time from ground
// truth.
func (l *Ledger) DailyUptimeQuery(ctx context.Context, instanceID, date string) (int64, error) {
	var total sql.NullInt64

	err := l.db.QueryRowContext(ctx, `SELECT SUM(duration_seconds) FROM uptime_sessions
		WHERE instance_id = ? AND date = ? AND duration_seconds IS NOT NULL`,
		instanceID, date).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("query daily uptime: %w", err)
	}

	return total.Int64, nil
}

// MonthlyUptimeQuery sums closed-session durations over the half-open range
// [first-of-month, first-of-next-month).
func (l *Ledger) MonthlyUptimeQuery(ctx context.Context, instanceID string, year, month int) (int64, error) {
	start := fmt.Sprintf("%04d-%02d-01", year, month)

	end := fmt.Sprintf("%04d-%02d-01", year, month+1)
	if month == 12 {
		end = fmt.Sprintf("%04d-01-01", year+1)
	}

	var total sql.NullInt64

	err := l.db.QueryRowContext(ctx, `SELECT SUM(duration_seconds) FROM uptime_sessions
		WHERE instance_id = ? AND date >= ? AND date < ? AND duration_seconds IS NOT NULL`,
		instanceID, start, end).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("query monthly uptime: %w", err)
	}

	return total.Int64, nil
}

// CreateAlertConfigCommand inserts a new alert configuration.
func (l *Ledger) CreateAlertConfigCommand(ctx context.Context, cfg AlertConfig) (int64, error) {
	enabled := 0
	if cfg.Enabled {
		enabled = 1
	}

	res, err := l.db.ExecContext(ctx, `INSERT INTO alert_configs
		(name,threshold_hours,reminder_interval_hours,enabled,destination,created_at)
		VALUES (?,?,?,?,?,?)`,
		cfg.Name, cfg.ThresholdHours, cfg.ReminderIntervalHours, enabled, cfg.Destination, l.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("insert alert config: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("alert config id: %w", err)
	}

	return id, nil
}

// AlertConfigsQuery returns alert configurations ordered by ascending
// threshold, optionally restricted to enabled ones.
func (l *Ledger) AlertConfigsQuery(ctx context.Context, enabledOnly bool) ([]AlertConfig, error) {
	query := `SELECT id,name,threshold_hours,reminder_interval_hours,enabled,COALESCE(destination,''),created_at
		FROM alert_configs`
	if enabledOnly {
		query += ` WHERE enabled = 1`
	}

	query += ` ORDER BY threshold_hours ASC, id ASC`

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query alert configs: %w", err)
	}
	defer rows.Close()

	var out []AlertConfig

	for rows.Next() {
		var (
			cfg     AlertConfig
			enabled int
		)

		err := rows.Scan(&cfg.ID, &cfg.Name, &cfg.ThresholdHours, &cfg.ReminderIntervalHours,
			&enabled, &cfg.Destination, &cfg.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan alert config: %w", err)
		}

		cfg.Enabled = enabled == 1

		out = append(out, cfg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alert configs: %w", err)
	}

	return out, nil
}

// UpdateAlertConfigCommand applies the non-nil patch fields. Returns false
// when no config with the id exists.
func (l *Ledger) UpdateAlertConfigCommand(ctx context.Context, id int64, patch AlertConfigPatch) (bool, error) {
	var (
		sets []string
		args []any
	)

	if patch.Enabled != nil {
		enabled := 0
		if *patch.Enabled {
			enabled = 1
		}

		sets = append(sets, "enabled = ?")
		args = append(args, enabled)
	}

	if patch.ThresholdHours != nil {
		sets = append(sets, "threshold_hours = ?")
		args = append(args, *patch.ThresholdHours)
	}

	if patch.ReminderIntervalHours != nil {
		sets = append(sets, "reminder_interval_hours = ?")
		args = append(args, *patch.ReminderIntervalHours)
	}

	if len(sets) == 0 {
		return false, nil
	}

	args = append(args, id)

	res, err := l.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE alert_configs SET %s WHERE id = ?`, strings.Join(sets, ", ")), args...)
	if err != nil {
		return false, fmt.Errorf("update alert config: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update alert config affected: %w", err)
	}

	return affected > 0, nil
}

// SeedAlertConfigsCommand inserts configs that do not exist yet, matched by
// name. Existing rows are never modified.
func (l *Ledger) SeedAlertConfigsCommand(ctx context.Context, configs []AlertConfig) error {
	for _, cfg := range configs {
		enabled := 0
		if cfg.Enabled {
			enabled = 1
		}

		_, err := l.db.ExecContext(ctx, `INSERT INTO alert_configs
			(name,threshold_hours,reminder_interval_hours,enabled,destination,created_at)
			SELECT ?,?,?,?,?,? WHERE NOT EXISTS (SELECT 1 FROM alert_configs WHERE name = ?)`,
			cfg.Name, cfg.ThresholdHours, cfg.ReminderIntervalHours, enabled, cfg.Destination,
			l.now().UTC(), cfg.Name)
		if err != nil {
			return fmt.Errorf("seed alert config %q: %w", cfg.Name, err)
		}
	}

	return nil
}

// LastFiringQuery returns the most recent firing for (instance, config),
// or nil when the pair has never fired.
func (l *Ledger) LastFiringQuery(ctx context.Context, instanceID string, configID int64) (*AlertFiring, error) {
	var (
		f         AlertFiring
		delivered int
	)

	err := l.db.QueryRowContext(ctx, `SELECT id,instance_id,config_id,triggered_at,uptime_hours,delivered
		FROM alert_firings
		WHERE instance_id = ? AND config_id = ?
		ORDER BY triggered_at DESC, id DESC LIMIT 1`, instanceID, configID).
		Scan(&f.ID, &f.InstanceID, &f.ConfigID, &f.TriggeredAt, &f.UptimeHours, &delivered)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("query last firing: %w", err)
	}

	f.Delivered = delivered == 1

	return &f, nil
}

// RecordFiringCommand appends one firing row. Rows are never mutated after
// insertion.
func (l *Ledger) RecordFiringCommand(ctx context.Context, firing AlertFiring) (int64, error) {
	delivered := 0
	if firing.Delivered {
		delivered = 1
	}

	res, err := l.db.ExecContext(ctx, `INSERT INTO alert_firings
		(instance_id,config_id,triggered_at,uptime_hours,delivered)
		VALUES (?,?,?,?,?)`,
		firing.InstanceID, firing.ConfigID, firing.TriggeredAt.UTC(), firing.UptimeHours, delivered)
	if err != nil {
		return 0, fmt.Errorf("insert alert firing: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("alert firing id: %w", err)
	}

	return id, nil
}

// SaveInstanceMetadataCommand replaces the persisted descriptor snapshot.
func (l *Ledger) SaveInstanceMetadataCommand(ctx context.Context, meta InstanceMetadata) error {
	tagsJSON, err := json.Marshal(meta.Tags)
	if err != nil {
		return fmt.Errorf("marshal instance tags: %w", err)
	}

	var launch any
	if meta.LaunchTime != nil {
		launch = meta.LaunchTime.UTC()
	}

	_, err = l.db.ExecContext(ctx, `INSERT INTO instance_metadata
		(instance_id,instance_type,region,launch_time,tags_json,last_updated)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(instance_id) DO UPDATE SET
			instance_type=excluded.instance_type,
			region=excluded.region,
			launch_time=excluded.launch_time,
			tags_json=excluded.tags_json,
			last_updated=excluded.last_updated`,
		meta.InstanceID, meta.InstanceType, meta.Region, launch, string(tagsJSON), l.now().UTC())
	if err != nil {
		return fmt.Errorf("save instance metadata: %w", err)
	}

	return nil
}

// InstanceMetadataQuery returns the persisted snapshot, or nil when the
// instance was never seen.
func (l *Ledger) InstanceMetadataQuery(ctx context.Context, instanceID string) (*InstanceMetadata, error) {
	var (
		meta     InstanceMetadata
		launch   sql.NullTime
		tagsJSON string
	)

	err := l.db.QueryRowContext(ctx, `SELECT instance_id,instance_type,region,launch_time,tags_json,last_updated
		FROM instance_metadata WHERE instance_id = ?`, instanceID).
		Scan(&meta.InstanceID, &meta.InstanceType, &meta.Region, &launch, &tagsJSON, &meta.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("query instance metadata: %w", err)
	}

	if launch.Valid {
		t := launch.Time
		meta.LaunchTime = &t
	}

	if err := json.Unmarshal([]byte(tagsJSON), &meta.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal instance tags: %w", err)
	}

	return &meta, nil
}

// AuditCommand appends one command audit row. Audit failures are the
// caller's to log; they never veto the command itself.
func (l *Ledger) AuditCommand(ctx context.Context, actor, command, instanceID string, success bool, errMsg string) error {
	ok := 0
	if success {
		ok = 1
	}

	_, err := l.db.ExecContext(ctx, `INSERT INTO command_log
		(actor,command,instance_id,success,error_message,executed_at)
		VALUES (?,?,?,?,?,?)`,
		actor, command, instanceID, ok, errMsg, l.now().UTC())
	if err != nil {
		return fmt.Errorf("insert command log: %w", err)
	}

	return nil
}

const dateLayout = "2006-01-02"
