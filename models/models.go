package models

import (
	"time"
)

const DefaultCheckInterval = 60

type Site struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Name            string     `json:"name"`
	URL             string     `json:"url"`
	CheckInterval   int        `json:"check_interval"`
	IsActive        bool       `json:"is_active"`
	LastStatus      *int       `json:"last_status"` // nil = never checked
	LastLatency     *int       `json:"last_latency"`
	LastCheckedAt   *time.Time `json:"last_checked_at"`
	StatusChangedAt *time.Time `json:"status_changed_at"`
	LastIncidentAt  *time.Time `json:"last_incident_at"`
	IncidentAckAt   *time.Time `json:"incident_ack_at"`
	NextRunAt       time.Time  `json:"next_run_at"`
}

// Interval returns the check interval in seconds, falling back to the default.
func (s Site) Interval() int {
	if s.CheckInterval <= 0 {
		return DefaultCheckInterval
	}
	return s.CheckInterval
}

// SiteState is the set of derived fields written after every probe.
type SiteState struct {
	SiteID          string
	PrevNextRunAt   time.Time // optimistic check: the value read before probing
	LastStatus      int
	LastLatency     int
	LastCheckedAt   time.Time
	StatusChangedAt *time.Time
	LastIncidentAt  *time.Time
	NextRunAt       time.Time
}

type AlertSettings struct {
	UserID             string `json:"user_id"`
	WAFSecret          string `json:"waf_secret"`
	NotificationEmail  string `json:"notification_email"`
	AlertSubject       string `json:"alert_subject"`
	AlertBody          string `json:"alert_body"`
	RetentionOKDays    int    `json:"retention_ok_days"`
	RetentionErrorDays int    `json:"retention_error_days"`
}

type PingLog struct {
	ID         int64     `json:"id"`
	SiteID     string    `json:"site_id"`
	StatusCode int       `json:"status_code"`
	LatencyMs  int       `json:"latency_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

const EventSystemRecovery = "system_recovery"

type SystemEvent struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	EventType string    `json:"event_type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// IsUp is the single definition of availability.
func IsUp(status int) bool {
	return status >= 200 && status < 300
}
