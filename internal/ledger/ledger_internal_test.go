package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) (*Ledger, *time.Time) {
	t.Helper()

	sqldb, err := Open(t.TempDir() + "/ledger.db")
	require.NoError(t, err)

	t.Cleanup(func() { _ = sqldb.Close() })

	require.NoError(t, Migrate(sqldb))

	now := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

	l := New(sqldb)
	l.now = func() time.Time { return now }

	return l, &now
}

func TestLedger_StartAndEndSession(t *testing.T) {
	t.Parallel()

	l, now := newTestLedger(t)
	ctx := context.Background()

	id, err := l.StartSessionCommand(ctx, "i-001")
	require.NoError(t, err)
	require.Positive(t, id)

	// Stop 90 minutes later.
	*now = now.Add(90 * time.Minute)

	duration, err := l.EndSessionCommand(ctx, "i-001")
	require.NoError(t, err)
	require.NotNil(t, duration)
	require.Equal(t, int64(5400), *duration)

	// Second immediate stop finds no open session.
	duration, err = l.EndSessionCommand(ctx, "i-001")
	require.NoError(t, err)
	require.Nil(t, duration)
}

func TestLedger_EndSessionWithoutStartIsNoop(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t)
	ctx := context.Background()

	duration, err := l.EndSessionCommand(ctx, "i-never-started")
	require.NoError(t, err)
	require.Nil(t, duration)

	total, err := l.DailyUptimeQuery(ctx, "i-never-started", "2026-08-24")
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestLedger_StartSessionResumesOrphanedSession(t *testing.T) {
	t.Parallel()

	l, now := newTestLedger(t)
	ctx := context.Background()

	first, err := l.StartSessionCommand(ctx, "i-001")
	require.NoError(t, err)

	// A restart would call start again while the session is still open;
	// the ledger must not double-open.
	*now = now.Add(10 * time.Minute)

	second, err := l.StartSessionCommand(ctx, "i-001")
	require.NoError(t, err)
	require.Equal(t, first, second)

	open, err := l.OpenSessionQuery(ctx, "i-001")
	require.NoError(t, err)
	require.NotNil(t, open)
	require.Equal(t, first, open.ID)
}

func TestLedger_DailyUptimeSumsClosedSessionsOnly(t *testing.T) {
	t.Parallel()

	l, now := newTestLedger(t)
	ctx := context.Background()

	// Two closed sessions on the same day.
	_, err := l.StartSessionCommand(ctx, "i-001")
	require.NoError(t, err)

	*now = now.Add(1 * time.Hour)

	_, err = l.EndSessionCommand(ctx, "i-001")
	require.NoError(t, err)

	*now = now.Add(30 * time.Minute)

	_, err = l.StartSessionCommand(ctx, "i-001")
	require.NoError(t, err)

	*now = now.Add(30 * time.Minute)

	_, err = l.EndSessionCommand(ctx, "i-001")
	require.NoError(t, err)

	// One still-open session must not count.
	_, err = l.StartSessionCommand(ctx, "i-001")
	require.NoError(t, err)

	// An unrelated instance must not leak into the sum.
	_, err = l.StartSessionCommand(ctx, "i-002")
	require.NoError(t, err)

	*now = now.Add(2 * time.Hour)

	_, err = l.EndSessionCommand(ctx, "i-002")
	require.NoError(t, err)

	total, err := l.DailyUptimeQuery(ctx, "i-001", "2026-08-24")
	require.NoError(t, err)
	require.Equal(t, int64(3600+1800), total)
}

func TestLedger_MonthlyUptimeHalfOpenRange(t *testing.T) {
	t.Parallel()

	l, now := newTestLedger(t)
	ctx := context.Background()

	// Session in August.
	_, err := l.StartSessionCommand(ctx, "i-001")
	require.NoError(t, err)

	*now = now.Add(2 * time.Hour)

	_, err = l.EndSessionCommand(ctx, "i-001")
	require.NoError(t, err)

	// Session starting September 1st lands in the next month.
	*now = time.Date(2026, 9, 1, 0, 30, 0, 0, time.UTC)

	_, err = l.StartSessionCommand(ctx, "i-001")
	require.NoError(t, err)

	*now = now.Add(1 * time.Hour)

	_, err = l.EndSessionCommand(ctx, "i-001")
	require.NoError(t, err)

	august, err := l.MonthlyUptimeQuery(ctx, "i-001", 2026, 8)
	require.NoError(t, err)
	require.Equal(t, int64(7200), august)

	september, err := l.MonthlyUptimeQuery(ctx, "i-001", 2026, 9)
	require.NoError(t, err)
	require.Equal(t, int64(3600), september)
}

func TestLedger_MonthlyUptimeDecemberRollsOver(t *testing.T) {
	t.Parallel()

	l, now := newTestLedger(t)
	ctx := context.Background()

	*now = time.Date(2026, 12, 31, 22, 0, 0, 0, time.UTC)

	_, err := l.StartSessionCommand(ctx, "i-001")
	require.NoError(t, err)

	*now = now.Add(1 * time.Hour)

	_, err = l.EndSessionCommand(ctx, "i-001")
	require.NoError(t, err)

	december, err := l.MonthlyUptimeQuery(ctx, "i-001", 2026, 12)
	require.NoError(t, err)
	require.Equal(t, int64(3600), december)

	january, err := l.MonthlyUptimeQuery(ctx, "i-001", 2027, 1)
	require.NoError(t, err)
	require.Zero(t, january)
}

func TestLedger_AlertConfigsOrderedByThreshold(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.CreateAlertConfigCommand(ctx, AlertConfig{Name: "8H", ThresholdHours: 8, Enabled: true})
	require.NoError(t, err)

	_, err = l.CreateAlertConfigCommand(ctx, AlertConfig{Name: "4H", ThresholdHours: 4, ReminderIntervalHours: 2, Enabled: true})
	require.NoError(t, err)

	_, err = l.CreateAlertConfigCommand(ctx, AlertConfig{Name: "off", ThresholdHours: 1, Enabled: false})
	require.NoError(t, err)

	enabled, err := l.AlertConfigsQuery(ctx, true)
	require.NoError(t, err)
	require.Len(t, enabled, 2)
	require.Equal(t, "4H", enabled[0].Name)
	require.Equal(t, "8H", enabled[1].Name)

	all, err := l.AlertConfigsQuery(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "off", all[0].Name)
}

func TestLedger_UpdateAlertConfig(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t)
	ctx := context.Background()

	id, err := l.CreateAlertConfigCommand(ctx, AlertConfig{Name: "4H", ThresholdHours: 4, Enabled: true})
	require.NoError(t, err)

	disabled := false
	threshold := 6

	updated, err := l.UpdateAlertConfigCommand(ctx, id, AlertConfigPatch{Enabled: &disabled, ThresholdHours: &threshold})
	require.NoError(t, err)
	require.True(t, updated)

	all, err := l.AlertConfigsQuery(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.False(t, all[0].Enabled)
	require.Equal(t, 6, all[0].ThresholdHours)

	updated, err = l.UpdateAlertConfigCommand(ctx, 9999, AlertConfigPatch{Enabled: &disabled})
	require.NoError(t, err)
	require.False(t, updated)

	// Empty patch is a no-op.
	updated, err = l.UpdateAlertConfigCommand(ctx, id, AlertConfigPatch{})
	require.NoError(t, err)
	require.False(t, updated)
}

func TestLedger_SeedAlertConfigsIsIdempotent(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t)
	ctx := context.Background()

	seed := []AlertConfig{
		{Name: "4H", ThresholdHours: 4, ReminderIntervalHours: 2, Enabled: true},
		{Name: "12H", ThresholdHours: 12, Enabled: true},
	}

	require.NoError(t, l.SeedAlertConfigsCommand(ctx, seed))
	require.NoError(t, l.SeedAlertConfigsCommand(ctx, seed))

	all, err := l.AlertConfigsQuery(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestLedger_FiringHistory(t *testing.T) {
	t.Parallel()

	l, now := newTestLedger(t)
	ctx := context.Background()

	configID, err := l.CreateAlertConfigCommand(ctx, AlertConfig{Name: "4H", ThresholdHours: 4, Enabled: true})
	require.NoError(t, err)

	last, err := l.LastFiringQuery(ctx, "i-001", configID)
	require.NoError(t, err)
	require.Nil(t, last)

	_, err = l.RecordFiringCommand(ctx, AlertFiring{
		InstanceID:  "i-001",
		ConfigID:    configID,
		TriggeredAt: *now,
		UptimeHours: 4.083,
		Delivered:   true,
	})
	require.NoError(t, err)

	_, err = l.RecordFiringCommand(ctx, AlertFiring{
		InstanceID:  "i-001",
		ConfigID:    configID,
		TriggeredAt: now.Add(2 * time.Hour),
		UptimeHours: 6.083,
		Delivered:   false,
	})
	require.NoError(t, err)

	last, err = l.LastFiringQuery(ctx, "i-001", configID)
	require.NoError(t, err)
	require.NotNil(t, last)
	require.InDelta(t, 6.083, last.UptimeHours, 1e-9)
	require.False(t, last.Delivered)
	require.Equal(t, now.Add(2*time.Hour), last.TriggeredAt.UTC())

	// History is keyed per (instance, config).
	last, err = l.LastFiringQuery(ctx, "i-002", configID)
	require.NoError(t, err)
	require.Nil(t, last)
}

func TestLedger_InstanceMetadataRoundtrip(t *testing.T) {
	t.Parallel()

	l, now := newTestLedger(t)
	ctx := context.Background()

	launch := now.Add(-4 * time.Hour)

	err := l.SaveInstanceMetadataCommand(ctx, InstanceMetadata{
		InstanceID:   "i-001",
		InstanceType: "t3.large",
		Region:       "eu-west-1",
		LaunchTime:   &launch,
		Tags:         map[string]string{"managed-by": "ec2keeper"},
	})
	require.NoError(t, err)

	// Second save overwrites wholesale.
	err = l.SaveInstanceMetadataCommand(ctx, InstanceMetadata{
		InstanceID:   "i-001",
		InstanceType: "t3.xlarge",
		Region:       "eu-west-1",
		LaunchTime:   &launch,
		Tags:         map[string]string{"managed-by": "ec2keeper"},
	})
	require.NoError(t, err)

	meta, err := l.InstanceMetadataQuery(ctx, "i-001")
	require.NoError(t, err)
	require.NotNil(t, meta)
	require.Equal(t, "t3.xlarge", meta.InstanceType)
	require.NotNil(t, meta.LaunchTime)
	require.Equal(t, launch, meta.LaunchTime.UTC())
	require.Equal(t, "ec2keeper", meta.Tags["managed-by"])

	meta, err = l.InstanceMetadataQuery(ctx, "i-absent")
	require.NoError(t, err)
	require.Nil(t, meta)
}

func TestLedger_AuditCommand(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.AuditCommand(ctx, "http", "stop", "i-001", true, ""))
	require.NoError(t, l.AuditCommand(ctx, "http", "start", "i-001", false, "exhausted retries"))
}
