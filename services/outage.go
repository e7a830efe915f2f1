package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"uptimeworker/models"
	"uptimeworker/store"
)

const DefaultOutageThreshold = 15 * time.Minute

// Outage describes a detected gap in the scheduler's own execution.
type Outage struct {
	GapMinutes int      `json:"gap_minutes"`
	Message    string   `json:"message"`
	Users      []string `json:"users"`
}

// OutageDetector infers that the worker itself was down when even the most
// recently checked due site has not been probed for longer than threshold.
type OutageDetector struct {
	store     store.Store
	alerter   *Alerter
	threshold time.Duration
	log       zerolog.Logger
}

func NewOutageDetector(st store.Store, alerter *Alerter, threshold time.Duration, log zerolog.Logger) *OutageDetector {
	if threshold <= 0 {
		threshold = DefaultOutageThreshold
	}
	return &OutageDetector{
		store:     st,
		alerter:   alerter,
		threshold: threshold,
		log:       log.With().Str("component", "outage").Logger(),
	}
}

// MinGap returns the smallest now-last_checked_at over sites. ok is false when
// no site has been checked before.
func MinGap(sites []models.Site, now time.Time) (gap time.Duration, ok bool) {
	for _, s := range sites {
		if s.LastCheckedAt == nil {
			continue
		}
		g := now.Sub(*s.LastCheckedAt)
		if !ok || g < gap {
			gap, ok = g, true
		}
	}
	return gap, ok
}

// Detect records one system_recovery event per distinct user and emails those
// who can receive it. Store and send failures are logged, not returned.
func (d *OutageDetector) Detect(ctx context.Context, sites []models.Site, userIDs []string,
	settings map[string]models.AlertSettings, now time.Time) *Outage {
	gap, ok := MinGap(sites, now)
	if !ok || gap <= d.threshold {
		return nil
	}

	minutes := int(math.Round(gap.Minutes()))
	out := &Outage{
		GapMinutes: minutes,
		Message:    fmt.Sprintf("The monitoring system recovered after approx. %d minutes of global inactivity.", minutes),
	}
	d.log.Warn().Int("gap_minutes", minutes).Int("users", len(userIDs)).Msg("scheduler outage detected")
	d.alerter.SystemMirror(ctx, out.Message)

	seen := make(map[string]struct{}, len(userIDs))
	for _, uid := range userIDs {
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}
		out.Users = append(out.Users, uid)

		ev := models.SystemEvent{
			UserID:    uid,
			EventType: models.EventSystemRecovery,
			Message:   out.Message,
			CreatedAt: now,
		}
		if err := d.store.InsertSystemEvent(ctx, ev); err != nil {
			d.log.Error().Err(err).Str("user_id", uid).Msg("failed to record system event")
		}
		d.alerter.SystemRecovered(ctx, settings[uid], out.Message)
	}
	return out
}
