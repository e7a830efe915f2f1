package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"uptimeworker/models"
)

// SQLiteStore keeps every timestamp as unix milliseconds.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func millisPtr(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}

func fromNullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

const sqliteSiteColumns = `id, user_id, COALESCE(NULLIF(name, ''), url), url, check_interval, is_active,
	last_status, last_latency, last_checked_at, status_changed_at, last_incident_at,
	incident_ack_at, next_run_at`

func scanSQLiteSite(row interface{ Scan(...any) error }) (models.Site, error) {
	var (
		s                               models.Site
		lastStatus, lastLatency         sql.NullInt64
		checked, changed, incident, ack sql.NullInt64
		nextRun                         int64
	)
	err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.URL, &s.CheckInterval, &s.IsActive,
		&lastStatus, &lastLatency, &checked, &changed, &incident, &ack, &nextRun)
	if err != nil {
		return s, err
	}
	s.LastStatus = fromNullInt(lastStatus)
	s.LastLatency = fromNullInt(lastLatency)
	s.LastCheckedAt = fromMillis(checked)
	s.StatusChangedAt = fromMillis(changed)
	s.LastIncidentAt = fromMillis(incident)
	s.IncidentAckAt = fromMillis(ack)
	s.NextRunAt = time.UnixMilli(nextRun).UTC()
	return s, nil
}

func (s *SQLiteStore) DueSites(ctx context.Context, now time.Time) ([]models.Site, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqliteSiteColumns+`
		FROM sites
		WHERE is_active = 1 AND next_run_at <= ?
		ORDER BY next_run_at
	`, millis(now))
	if err != nil {
		return nil, fmt.Errorf("query due sites: %w", err)
	}
	defer rows.Close()

	var sites []models.Site
	for rows.Next() {
		site, err := scanSQLiteSite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

func (s *SQLiteStore) GetSite(ctx context.Context, id string) (models.Site, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteSiteColumns+` FROM sites WHERE id = ?`, id)
	site, err := scanSQLiteSite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Site{}, ErrNotFound
	}
	if err != nil {
		return models.Site{}, fmt.Errorf("get site %s: %w", id, err)
	}
	return site, nil
}

func (s *SQLiteStore) SaveSiteState(ctx context.Context, st models.SiteState) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sites SET
			last_status = ?,
			last_latency = ?,
			last_checked_at = ?,
			status_changed_at = ?,
			last_incident_at = ?,
			next_run_at = ?
		WHERE id = ? AND next_run_at = ?
	`, st.LastStatus, st.LastLatency, millis(st.LastCheckedAt), millisPtr(st.StatusChangedAt),
		millisPtr(st.LastIncidentAt), millis(st.NextRunAt), st.SiteID, millis(st.PrevNextRunAt))
	if err != nil {
		return fmt.Errorf("update site %s: %w", st.SiteID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func (s *SQLiteStore) SettingsFor(ctx context.Context, userIDs []string) (map[string]models.AlertSettings, error) {
	out := make(map[string]models.AlertSettings, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(userIDs)), ",")
	args := make([]any, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, COALESCE(waf_secret, ''), COALESCE(notification_email, ''),
			COALESCE(alert_subject, ''), COALESCE(alert_body, ''),
			retention_ok_days, retention_error_days
		FROM settings
		WHERE user_id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var st models.AlertSettings
		if err := rows.Scan(&st.UserID, &st.WAFSecret, &st.NotificationEmail, &st.AlertSubject,
			&st.AlertBody, &st.RetentionOKDays, &st.RetentionErrorDays); err != nil {
			return nil, fmt.Errorf("scan settings: %w", err)
		}
		out[st.UserID] = st
	}
	return out, rows.Err()
}

func (s *SQLiteStore) InsertPingLog(ctx context.Context, entry models.PingLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ping_logs (site_id, status_code, latency_ms, created_at)
		VALUES (?, ?, ?, ?)
	`, entry.SiteID, entry.StatusCode, entry.LatencyMs, millis(entry.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert ping log: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecentErrors(ctx context.Context, siteID string, since time.Time, limit int) ([]models.PingLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, site_id, status_code, latency_ms, created_at
		FROM ping_logs
		WHERE site_id = ? AND created_at >= ?
		  AND (status_code < 200 OR status_code >= 300)
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, siteID, millis(since), limit)
	if err != nil {
		return nil, fmt.Errorf("query recent errors: %w", err)
	}
	defer rows.Close()

	var logs []models.PingLog
	for rows.Next() {
		var (
			l       models.PingLog
			created int64
		)
		if err := rows.Scan(&l.ID, &l.SiteID, &l.StatusCode, &l.LatencyMs, &created); err != nil {
			return nil, fmt.Errorf("scan ping log: %w", err)
		}
		l.CreatedAt = time.UnixMilli(created).UTC()
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (s *SQLiteStore) InsertSystemEvent(ctx context.Context, ev models.SystemEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO system_events (user_id, event_type, message, created_at)
		VALUES (?, ?, ?, ?)
	`, ev.UserID, ev.EventType, ev.Message, millis(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert system event: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteOldLogs(ctx context.Context, userID string, okCutoff, errorCutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM ping_logs
		WHERE site_id IN (SELECT id FROM sites WHERE user_id = ?)
		  AND (
			(status_code >= 200 AND status_code < 300 AND created_at < ?)
			OR ((status_code < 200 OR status_code >= 300) AND created_at < ?)
		  )
	`, userID, millis(okCutoff), millis(errorCutoff))
	if err != nil {
		return 0, fmt.Errorf("delete old logs for %s: %w", userID, err)
	}
	return res.RowsAffected()
}

// AddSite inserts a site, assigning an ID when empty. Used by the local
// driver's seeding and by tests; site CRUD lives outside this service.
func (s *SQLiteStore) AddSite(ctx context.Context, site models.Site) (models.Site, error) {
	if site.ID == "" {
		site.ID = uuid.NewString()
	}
	if site.CheckInterval <= 0 {
		site.CheckInterval = models.DefaultCheckInterval
	}
	var lastStatus sql.NullInt64
	if site.LastStatus != nil {
		lastStatus = sql.NullInt64{Int64: int64(*site.LastStatus), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sites (id, user_id, name, url, check_interval, is_active, last_status,
			last_checked_at, status_changed_at, next_run_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, site.ID, site.UserID, site.Name, site.URL, site.CheckInterval, site.IsActive, lastStatus,
		millisPtr(site.LastCheckedAt), millisPtr(site.StatusChangedAt), millis(site.NextRunAt))
	if err != nil {
		return models.Site{}, fmt.Errorf("insert site: %w", err)
	}
	return site, nil
}

func (s *SQLiteStore) PutSettings(ctx context.Context, st models.AlertSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (user_id, waf_secret, notification_email, alert_subject, alert_body,
			retention_ok_days, retention_error_days)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			waf_secret = excluded.waf_secret,
			notification_email = excluded.notification_email,
			alert_subject = excluded.alert_subject,
			alert_body = excluded.alert_body,
			retention_ok_days = excluded.retention_ok_days,
			retention_error_days = excluded.retention_error_days
	`, st.UserID, st.WAFSecret, st.NotificationEmail, st.AlertSubject, st.AlertBody,
		st.RetentionOKDays, st.RetentionErrorDays)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
