package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"uptimeworker/models"
)

// MemoryStore is an in-process [Store]. It backs the "memory" driver for
// local dry runs and the service tests. Safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	sites    map[string]models.Site
	settings map[string]models.AlertSettings
	logs     []models.PingLog
	events   []models.SystemEvent
	nextID   int64

	// Fail, when set, is returned by the named operation (tests only).
	Fail map[string]error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sites:    make(map[string]models.Site),
		settings: make(map[string]models.AlertSettings),
		Fail:     make(map[string]error),
	}
}

func (m *MemoryStore) failure(op string) error {
	if m.Fail == nil {
		return nil
	}
	return m.Fail[op]
}

func (m *MemoryStore) AddSite(_ context.Context, site models.Site) (models.Site, error) {
	if site.ID == "" {
		site.ID = uuid.NewString()
	}
	if site.CheckInterval <= 0 {
		site.CheckInterval = models.DefaultCheckInterval
	}
	if site.Name == "" {
		site.Name = site.URL
	}
	m.mu.Lock()
	m.sites[site.ID] = site
	m.mu.Unlock()
	return site, nil
}

func (m *MemoryStore) PutSettings(_ context.Context, st models.AlertSettings) error {
	m.mu.Lock()
	m.settings[st.UserID] = st
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) DueSites(_ context.Context, now time.Time) ([]models.Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("DueSites"); err != nil {
		return nil, err
	}

	var due []models.Site
	for _, s := range m.sites {
		if s.IsActive && !s.NextRunAt.After(now) {
			due = append(due, s)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextRunAt.Before(due[j].NextRunAt) })
	return due, nil
}

func (m *MemoryStore) GetSite(_ context.Context, id string) (models.Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sites[id]
	if !ok {
		return models.Site{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) SaveSiteState(_ context.Context, st models.SiteState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("SaveSiteState:" + st.SiteID); err != nil {
		return err
	}
	s, ok := m.sites[st.SiteID]
	if !ok || !s.NextRunAt.Equal(st.PrevNextRunAt) {
		return ErrConflict
	}

	status, latency, checked := st.LastStatus, st.LastLatency, st.LastCheckedAt
	s.LastStatus = &status
	s.LastLatency = &latency
	s.LastCheckedAt = &checked
	s.StatusChangedAt = st.StatusChangedAt
	s.LastIncidentAt = st.LastIncidentAt
	s.NextRunAt = st.NextRunAt
	m.sites[s.ID] = s
	return nil
}

func (m *MemoryStore) SettingsFor(_ context.Context, userIDs []string) (map[string]models.AlertSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("SettingsFor"); err != nil {
		return nil, err
	}
	out := make(map[string]models.AlertSettings, len(userIDs))
	for _, id := range userIDs {
		if st, ok := m.settings[id]; ok {
			out[id] = st
		}
	}
	return out, nil
}

func (m *MemoryStore) InsertPingLog(_ context.Context, entry models.PingLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("InsertPingLog"); err != nil {
		return err
	}
	m.nextID++
	entry.ID = m.nextID
	m.logs = append(m.logs, entry)
	return nil
}

func (m *MemoryStore) RecentErrors(_ context.Context, siteID string, since time.Time, limit int) ([]models.PingLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("RecentErrors"); err != nil {
		return nil, err
	}

	var out []models.PingLog
	for _, l := range m.logs {
		if l.SiteID == siteID && !l.CreatedAt.Before(since) && !models.IsUp(l.StatusCode) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) InsertSystemEvent(_ context.Context, ev models.SystemEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	ev.ID = m.nextID
	m.events = append(m.events, ev)
	return nil
}

func (m *MemoryStore) DeleteOldLogs(_ context.Context, userID string, okCutoff, errorCutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.logs[:0]
	var deleted int64
	for _, l := range m.logs {
		site, ok := m.sites[l.SiteID]
		owned := ok && site.UserID == userID
		cutoff := errorCutoff
		if models.IsUp(l.StatusCode) {
			cutoff = okCutoff
		}
		if owned && l.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, l)
	}
	m.logs = kept
	return deleted, nil
}

// PingLogs returns a copy of the stored log entries.
func (m *MemoryStore) PingLogs() []models.PingLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.PingLog(nil), m.logs...)
}

// SystemEvents returns a copy of the stored system events.
func (m *MemoryStore) SystemEvents() []models.SystemEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.SystemEvent(nil), m.events...)
}

func (m *MemoryStore) Close() error { return nil }
