package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"uptimeworker/models"
	"uptimeworker/store"
)

const (
	DefaultRetentionOKDays    = 1
	DefaultRetentionErrorDays = 30
	day                       = 24 * time.Hour
)

// Cutoffs returns the creation-time bounds below which ok and error logs are
// deleted. Missing or non-positive windows fall back to the defaults.
func Cutoffs(settings models.AlertSettings, now time.Time) (okCutoff, errorCutoff time.Time) {
	okDays := settings.RetentionOKDays
	if okDays <= 0 {
		okDays = DefaultRetentionOKDays
	}
	errDays := settings.RetentionErrorDays
	if errDays <= 0 {
		errDays = DefaultRetentionErrorDays
	}
	return now.Add(-time.Duration(okDays) * day), now.Add(-time.Duration(errDays) * day)
}

type Sweeper struct {
	store       store.Store
	concurrency int
	log         zerolog.Logger
}

func NewSweeper(st store.Store, concurrency int, log zerolog.Logger) *Sweeper {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Sweeper{store: st, concurrency: concurrency, log: log.With().Str("component", "retention").Logger()}
}

// Sweep deletes expired logs for each user. Returns rows deleted; errors are
// logged per user.
func (s *Sweeper) Sweep(ctx context.Context, userIDs []string, settings map[string]models.AlertSettings, now time.Time) int64 {
	deleted := make([]int64, len(userIDs))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, uid := range userIDs {
		g.Go(func() error {
			okCutoff, errCutoff := Cutoffs(settings[uid], now)
			n, err := s.store.DeleteOldLogs(ctx, uid, okCutoff, errCutoff)
			if err != nil {
				s.log.Error().Err(err).Str("user_id", uid).Msg("log cleanup failed")
				return nil
			}
			deleted[i] = n
			return nil
		})
	}
	_ = g.Wait()

	var total int64
	for _, n := range deleted {
		total += n
	}
	if total > 0 {
		s.log.Debug().Int64("deleted", total).Int("users", len(userIDs)).Msg("expired logs removed")
	}
	return total
}
