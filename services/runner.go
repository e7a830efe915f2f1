package services

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"uptimeworker/config"
	"uptimeworker/models"
	"uptimeworker/store"
)

// SiteOutcome is the per-site entry of a batch summary.
type SiteOutcome struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Status  *int   `json:"status,omitempty"`
	Latency *int   `json:"latency,omitempty"`
	Manual  bool   `json:"manual"`
	Changed bool   `json:"changed"`
	Error   string `json:"error,omitempty"`
}

type BatchResult struct {
	BatchID   string        `json:"batch_id"`
	Message   string        `json:"message,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Processed int           `json:"processed"`
	Details   []SiteOutcome `json:"details"`
	Outage    *Outage       `json:"outage,omitempty"`
}

// Runner is the batch orchestrator behind both the scheduled and the
// on-demand trigger.
type Runner struct {
	store      store.Store
	prober     *Prober
	alerter    *Alerter
	correlator *Correlator
	detector   *OutageDetector
	sweeper    *Sweeper
	locks      *siteLocks
	limit      int
	now        func() time.Time
	log        zerolog.Logger
}

type RunnerOption func(*Runner)

// WithClock replaces time.Now; tests use it for deterministic schedules.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

func WithProber(p *Prober) RunnerOption {
	return func(r *Runner) { r.prober = p }
}

func NewRunner(cfg config.Config, st store.Store, alerter *Alerter, log zerolog.Logger, opts ...RunnerOption) *Runner {
	log = log.With().Str("component", "runner").Logger()
	r := &Runner{
		store:      st,
		prober:     NewProber(cfg.ProbeTimeout),
		alerter:    alerter,
		correlator: NewCorrelator(st),
		detector:   NewOutageDetector(st, alerter, cfg.OutageThreshold, log),
		sweeper:    NewSweeper(st, cfg.MaxConcurrency, log),
		locks:      newSiteLocks(),
		limit:      max(cfg.MaxConcurrency, 1),
		now:        time.Now,
		log:        log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Close() { r.prober.Close() }

// RunBatch probes every due site. Only a failure to load the due set or the
// owners' settings fails the whole batch.
func (r *Runner) RunBatch(ctx context.Context) (BatchResult, error) {
	now := r.now()
	res := BatchResult{BatchID: uuid.NewString(), Timestamp: now, Details: []SiteOutcome{}}
	log := r.log.With().Str("batch_id", res.BatchID).Logger()

	sites, err := r.store.DueSites(ctx, now)
	if err != nil {
		return res, fmt.Errorf("load due sites: %w", err)
	}
	if len(sites) == 0 {
		res.Message = "No sites due"
		log.Debug().Msg("no sites due")
		return res, nil
	}

	userIDs := distinctUsers(sites)
	settings, err := r.store.SettingsFor(ctx, userIDs)
	if err != nil {
		return res, fmt.Errorf("load settings: %w", err)
	}

	res.Outage = r.detector.Detect(ctx, sites, userIDs, settings, now)

	outcomes := make([]SiteOutcome, len(sites))
	var g errgroup.Group
	g.SetLimit(r.limit)
	for i, site := range sites {
		g.Go(func() error {
			outcomes[i] = r.runSite(ctx, log, site, settings[site.UserID], false)
			return nil
		})
	}
	_ = g.Wait()

	r.sweeper.Sweep(ctx, userIDs, settings, r.now())

	res.Processed = len(outcomes)
	res.Details = outcomes
	failed := 0
	for _, o := range outcomes {
		if o.Error != "" {
			failed++
		}
	}
	log.Info().Int("processed", res.Processed).Int("failed", failed).
		Int("users", len(userIDs)).Dur("took", time.Since(now)).Msg("batch complete")
	return res, nil
}

// RunSingle checks one site now, whatever its schedule. When ownerID is set
// the site must belong to that user.
func (r *Runner) RunSingle(ctx context.Context, siteID, ownerID string) (SiteOutcome, error) {
	site, err := r.store.GetSite(ctx, siteID)
	if errors.Is(err, store.ErrNotFound) {
		return SiteOutcome{}, ErrSiteNotFound
	}
	if err != nil {
		return SiteOutcome{}, err
	}
	if ownerID != "" && site.UserID != ownerID {
		return SiteOutcome{}, ErrSiteNotFound
	}

	settings, err := r.store.SettingsFor(ctx, []string{site.UserID})
	if err != nil {
		return SiteOutcome{}, fmt.Errorf("load settings: %w", err)
	}

	if !r.locks.tryLock(site.ID) {
		return SiteOutcome{}, ErrSiteBusy
	}
	defer r.locks.unlock(site.ID)

	log := r.log.With().Str("site_id", site.ID).Bool("manual", true).Logger()
	return r.checkSite(ctx, log, site, settings[site.UserID], true)
}

func (r *Runner) runSite(ctx context.Context, log zerolog.Logger, site models.Site, settings models.AlertSettings, manual bool) SiteOutcome {
	log = log.With().Str("site_id", site.ID).Logger()

	if !r.locks.tryLock(site.ID) {
		log.Warn().Msg("skipping site, check already in progress")
		return SiteOutcome{ID: site.ID, URL: site.URL, Manual: manual, Error: ErrSiteBusy.Error()}
	}
	defer r.locks.unlock(site.ID)

	res, err := r.checkSite(ctx, log, site, settings, manual)
	if err != nil {
		if errors.Is(err, ErrCheckAborted) {
			log.Warn().Msg("site check aborted")
		} else {
			log.Error().Err(err).Msg("site check failed")
		}
		res.Error = err.Error()
	}
	return res
}

// checkSite is processSite with panics turned into errors, so one site can
// never take down a batch or the CLI.
func (r *Runner) checkSite(ctx context.Context, log zerolog.Logger, site models.Site, settings models.AlertSettings, manual bool) (out SiteOutcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("stack", string(debug.Stack())).Msg("site check panicked")
			out = SiteOutcome{ID: site.ID, URL: site.URL, Manual: manual}
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return r.processSite(ctx, log, site, settings, manual)
}

// processSite runs probe, evaluate, persist, then notify. State is saved
// before any notification is attempted.
func (r *Runner) processSite(ctx context.Context, log zerolog.Logger, site models.Site, settings models.AlertSettings, manual bool) (SiteOutcome, error) {
	out := SiteOutcome{ID: site.ID, URL: site.URL, Manual: manual}

	probe := r.prober.Probe(ctx, site.URL, settings.WAFSecret)
	if probe.Aborted {
		return out, ErrCheckAborted
	}
	now := r.now()
	tr := Evaluate(site, probe, now)

	if err := r.store.SaveSiteState(ctx, tr.State); err != nil {
		return out, fmt.Errorf("save site state: %w", err)
	}
	status, latency := probe.Status, probe.LatencyMs()
	out.Status, out.Latency, out.Changed = &status, &latency, tr.Changed

	logErr := r.store.InsertPingLog(ctx, models.PingLog{
		SiteID:     site.ID,
		StatusCode: probe.Status,
		LatencyMs:  latency,
		CreatedAt:  now,
	})

	if tr.Changed {
		r.notify(ctx, log, site, settings, probe, tr, now)
	}

	if logErr != nil {
		return out, fmt.Errorf("record ping log: %w", logErr)
	}
	return out, nil
}

func (r *Runner) notify(ctx context.Context, log zerolog.Logger, site models.Site, settings models.AlertSettings, probe ProbeResult, tr Transition, now time.Time) {
	if !tr.Up {
		r.alerter.SiteDown(ctx, site, settings, probe, now)
		return
	}
	inc, err := r.correlator.Correlate(ctx, site.ID, tr.DownSince, now)
	if err != nil {
		log.Warn().Err(err).Msg("could not load recent errors")
	}
	r.alerter.SiteRecovered(ctx, site, settings, probe.Status, inc)
}

func distinctUsers(sites []models.Site) []string {
	seen := make(map[string]struct{}, len(sites))
	var ids []string
	for _, s := range sites {
		if _, ok := seen[s.UserID]; ok {
			continue
		}
		seen[s.UserID] = struct{}{}
		ids = append(ids, s.UserID)
	}
	return ids
}

// siteLocks keeps two overlapping triggers in this process from probing the
// same site at once.
type siteLocks struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func newSiteLocks() *siteLocks {
	return &siteLocks{busy: make(map[string]struct{})}
}

func (l *siteLocks) tryLock(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.busy[id]; ok {
		return false
	}
	l.busy[id] = struct{}{}
	return true
}

func (l *siteLocks) unlock(id string) {
	l.mu.Lock()
	delete(l.busy, id)
	l.mu.Unlock()
}
