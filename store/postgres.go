package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"uptimeworker/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const siteColumns = `id, user_id, COALESCE(NULLIF(name, ''), url), url, check_interval, is_active,
	last_status, last_latency, last_checked_at, status_changed_at, last_incident_at,
	incident_ack_at, next_run_at`

func scanSite(row interface{ Scan(...any) error }) (models.Site, error) {
	var s models.Site
	err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.URL, &s.CheckInterval, &s.IsActive,
		&s.LastStatus, &s.LastLatency, &s.LastCheckedAt, &s.StatusChangedAt, &s.LastIncidentAt,
		&s.IncidentAckAt, &s.NextRunAt)
	return s, err
}

func (p *PostgresStore) DueSites(ctx context.Context, now time.Time) ([]models.Site, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+siteColumns+`
		FROM sites
		WHERE is_active = TRUE AND next_run_at <= $1
		ORDER BY next_run_at
	`, now)
	if err != nil {
		return nil, fmt.Errorf("query due sites: %w", err)
	}
	defer rows.Close()

	var sites []models.Site
	for rows.Next() {
		s, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		sites = append(sites, s)
	}
	return sites, rows.Err()
}

func (p *PostgresStore) GetSite(ctx context.Context, id string) (models.Site, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+siteColumns+` FROM sites WHERE id = $1`, id)
	s, err := scanSite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Site{}, ErrNotFound
	}
	if err != nil {
		return models.Site{}, fmt.Errorf("get site %s: %w", id, err)
	}
	return s, nil
}

func (p *PostgresStore) SaveSiteState(ctx context.Context, st models.SiteState) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE sites SET
			last_status = $1,
			last_latency = $2,
			last_checked_at = $3,
			status_changed_at = $4,
			last_incident_at = $5,
			next_run_at = $6
		WHERE id = $7 AND next_run_at = $8
	`, st.LastStatus, st.LastLatency, st.LastCheckedAt, st.StatusChangedAt, st.LastIncidentAt,
		st.NextRunAt, st.SiteID, st.PrevNextRunAt)
	if err != nil {
		return fmt.Errorf("update site %s: %w", st.SiteID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func (p *PostgresStore) SettingsFor(ctx context.Context, userIDs []string) (map[string]models.AlertSettings, error) {
	out := make(map[string]models.AlertSettings, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT user_id, COALESCE(waf_secret, ''), COALESCE(notification_email, ''),
			COALESCE(alert_subject, ''), COALESCE(alert_body, ''),
			retention_ok_days, retention_error_days
		FROM settings
		WHERE user_id = ANY($1)
	`, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.AlertSettings
		if err := rows.Scan(&s.UserID, &s.WAFSecret, &s.NotificationEmail, &s.AlertSubject,
			&s.AlertBody, &s.RetentionOKDays, &s.RetentionErrorDays); err != nil {
			return nil, fmt.Errorf("scan settings: %w", err)
		}
		out[s.UserID] = s
	}
	return out, rows.Err()
}

func (p *PostgresStore) InsertPingLog(ctx context.Context, entry models.PingLog) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO ping_logs (site_id, status_code, latency_ms, created_at)
		VALUES ($1, $2, $3, $4)
	`, entry.SiteID, entry.StatusCode, entry.LatencyMs, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert ping log: %w", err)
	}
	return nil
}

func (p *PostgresStore) RecentErrors(ctx context.Context, siteID string, since time.Time, limit int) ([]models.PingLog, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, site_id, status_code, latency_ms, created_at
		FROM ping_logs
		WHERE site_id = $1 AND created_at >= $2
		  AND (status_code < 200 OR status_code >= 300)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, siteID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent errors: %w", err)
	}
	defer rows.Close()

	var logs []models.PingLog
	for rows.Next() {
		var l models.PingLog
		if err := rows.Scan(&l.ID, &l.SiteID, &l.StatusCode, &l.LatencyMs, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ping log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (p *PostgresStore) InsertSystemEvent(ctx context.Context, ev models.SystemEvent) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO system_events (user_id, event_type, message, created_at)
		VALUES ($1, $2, $3, $4)
	`, ev.UserID, ev.EventType, ev.Message, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert system event: %w", err)
	}
	return nil
}

// DeleteOldLogs calls the delete_old_logs function so both classes go in one statement.
func (p *PostgresStore) DeleteOldLogs(ctx context.Context, userID string, okCutoff, errorCutoff time.Time) (int64, error) {
	var deleted int64
	err := p.db.QueryRowContext(ctx, `SELECT delete_old_logs($1, $2, $3)`, userID, okCutoff, errorCutoff).Scan(&deleted)
	if err != nil {
		return 0, fmt.Errorf("delete old logs for %s: %w", userID, err)
	}
	return deleted, nil
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}
