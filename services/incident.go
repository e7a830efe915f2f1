package services

import (
	"context"
	"math"
	"time"

	"uptimeworker/models"
	"uptimeworker/store"
)

const recentErrorLimit = 5

// Incident summarises an outage that just ended.
type Incident struct {
	// DurationMinutes is valid only when HasDuration is set.
	DurationMinutes int
	HasDuration     bool
	RecentErrors    []models.PingLog
}

type Correlator struct {
	store store.Store
}

func NewCorrelator(st store.Store) *Correlator {
	return &Correlator{store: st}
}

// Correlate runs on a down->up transition. downSince is the status_changed_at
// recorded before the recovering probe overwrote it.
func (c *Correlator) Correlate(ctx context.Context, siteID string, downSince *time.Time, now time.Time) (Incident, error) {
	if downSince == nil {
		return Incident{}, nil
	}
	inc := Incident{
		DurationMinutes: int(math.Round(now.Sub(*downSince).Minutes())),
		HasDuration:     true,
	}
	logs, err := c.store.RecentErrors(ctx, siteID, *downSince, recentErrorLimit)
	if err != nil {
		return inc, err
	}
	inc.RecentErrors = logs
	return inc, nil
}
