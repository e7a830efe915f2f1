package store

import (
	"context"
	"errors"
	"time"

	"uptimeworker/models"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict means another run advanced the site between read and write.
	ErrConflict = errors.New("site was updated concurrently")
)

type Store interface {
	// Sites
	DueSites(ctx context.Context, now time.Time) ([]models.Site, error)
	GetSite(ctx context.Context, id string) (models.Site, error)
	SaveSiteState(ctx context.Context, st models.SiteState) error

	// Settings
	SettingsFor(ctx context.Context, userIDs []string) (map[string]models.AlertSettings, error)

	// History
	InsertPingLog(ctx context.Context, entry models.PingLog) error
	RecentErrors(ctx context.Context, siteID string, since time.Time, limit int) ([]models.PingLog, error)
	InsertSystemEvent(ctx context.Context, ev models.SystemEvent) error
	DeleteOldLogs(ctx context.Context, userID string, okCutoff, errorCutoff time.Time) (int64, error)

	Close() error
}
