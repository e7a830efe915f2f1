package services

import (
	"time"

	"uptimeworker/models"
)

const (
	scheduleBuffer  = 5 * time.Second
	minScheduleStep = 10 * time.Second
)

// Transition is the result of evaluating one probe against the recorded state.
type Transition struct {
	Changed bool
	Up      bool
	// DownSince is the site's status_changed_at as read before this probe;
	// on a recovery it marks the start of the outage.
	DownSince *time.Time
	State     models.SiteState
}

// NextRunDelay is max(10s, interval-5s).
func NextRunDelay(intervalSeconds int) time.Duration {
	d := time.Duration(intervalSeconds)*time.Second - scheduleBuffer
	if d < minScheduleStep {
		return minScheduleStep
	}
	return d
}

// Evaluate applies the up/down state machine. A site that has never been
// checked only transitions on a failure; the first success is not an event.
func Evaluate(site models.Site, probe ProbeResult, now time.Time) Transition {
	up := probe.Up()

	var changed bool
	if site.LastStatus == nil {
		changed = !up
	} else {
		changed = up != models.IsUp(*site.LastStatus)
	}

	changedAt := site.StatusChangedAt
	incidentAt := site.LastIncidentAt
	if changed {
		t := now
		changedAt = &t
		if !up {
			incidentAt = &t
		}
	} else if changedAt == nil {
		t := now
		changedAt = &t
	}

	next := now.Add(NextRunDelay(site.Interval()))
	if next.Before(site.NextRunAt) {
		next = site.NextRunAt
	}

	return Transition{
		Changed:   changed,
		Up:        up,
		DownSince: site.StatusChangedAt,
		State: models.SiteState{
			SiteID:          site.ID,
			PrevNextRunAt:   site.NextRunAt,
			LastStatus:      probe.Status,
			LastLatency:     probe.LatencyMs(),
			LastCheckedAt:   now,
			StatusChangedAt: changedAt,
			LastIncidentAt:  incidentAt,
			NextRunAt:       next,
		},
	}
}
