package services

import (
	"testing"
	"time"

	"uptimeworker/models"
)

func TestNextRunDelay(t *testing.T) {
	tests := []struct {
		interval int
		want     time.Duration
	}{
		{60, 55 * time.Second},
		{300, 295 * time.Second},
		{15, 10 * time.Second},
		{12, 10 * time.Second},
		{1, 10 * time.Second},
	}
	for _, tt := range tests {
		if got := NextRunDelay(tt.interval); got != tt.want {
			t.Errorf("NextRunDelay(%d) = %v, want %v", tt.interval, got, tt.want)
		}
	}
}

func TestEvaluate_Transitions(t *testing.T) {
	earlier := baseTime.Add(-time.Hour)
	up := ProbeResult{Status: 200, Latency: 120 * time.Millisecond}
	down := ProbeResult{Status: 503, Latency: 80 * time.Millisecond}
	unreachable := ProbeResult{Err: "dial tcp: connection refused"}

	tests := []struct {
		name        string
		last        *int
		probe       ProbeResult
		wantChanged bool
		wantUp      bool
	}{
		{"first check up is silent", nil, up, false, true},
		{"first check down alerts", nil, down, true, false},
		{"first check unreachable alerts", nil, unreachable, true, false},
		{"up stays up", intPtr(200), up, false, true},
		{"up goes down", intPtr(204), down, true, false},
		{"up goes unreachable", intPtr(200), unreachable, true, false},
		{"down recovers", intPtr(500), up, true, true},
		{"down stays down", intPtr(500), down, false, false},
		{"redirect counts as down", intPtr(200), ProbeResult{Status: 301}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := models.Site{ID: "s1", CheckInterval: 60, LastStatus: tt.last, StatusChangedAt: &earlier, NextRunAt: baseTime}
			tr := Evaluate(site, tt.probe, baseTime)
			if tr.Changed != tt.wantChanged {
				t.Errorf("Changed = %v, want %v", tr.Changed, tt.wantChanged)
			}
			if tr.Up != tt.wantUp {
				t.Errorf("Up = %v, want %v", tr.Up, tt.wantUp)
			}
			if tr.State.LastStatus != tt.probe.Status {
				t.Errorf("LastStatus = %d, want %d", tr.State.LastStatus, tt.probe.Status)
			}
			if !tr.State.LastCheckedAt.Equal(baseTime) {
				t.Errorf("LastCheckedAt = %v, want %v", tr.State.LastCheckedAt, baseTime)
			}
		})
	}
}

func TestEvaluate_StatusChangedAt(t *testing.T) {
	earlier := baseTime.Add(-time.Hour)

	t.Run("kept when state is unchanged", func(t *testing.T) {
		site := models.Site{LastStatus: intPtr(200), StatusChangedAt: &earlier}
		tr := Evaluate(site, ProbeResult{Status: 200}, baseTime)
		if tr.State.StatusChangedAt == nil || !tr.State.StatusChangedAt.Equal(earlier) {
			t.Errorf("StatusChangedAt = %v, want %v", tr.State.StatusChangedAt, earlier)
		}
	})

	t.Run("back-filled when missing", func(t *testing.T) {
		site := models.Site{LastStatus: intPtr(200)}
		tr := Evaluate(site, ProbeResult{Status: 200}, baseTime)
		if tr.State.StatusChangedAt == nil || !tr.State.StatusChangedAt.Equal(baseTime) {
			t.Errorf("StatusChangedAt = %v, want %v", tr.State.StatusChangedAt, baseTime)
		}
	})

	t.Run("set on change", func(t *testing.T) {
		site := models.Site{LastStatus: intPtr(200), StatusChangedAt: &earlier}
		tr := Evaluate(site, ProbeResult{Status: 500}, baseTime)
		if tr.State.StatusChangedAt == nil || !tr.State.StatusChangedAt.Equal(baseTime) {
			t.Errorf("StatusChangedAt = %v, want %v", tr.State.StatusChangedAt, baseTime)
		}
	})
}

func TestEvaluate_IncidentOnlyOnDown(t *testing.T) {
	earlier := baseTime.Add(-time.Hour)

	tr := Evaluate(models.Site{LastStatus: intPtr(200)}, ProbeResult{Status: 500}, baseTime)
	if tr.State.LastIncidentAt == nil || !tr.State.LastIncidentAt.Equal(baseTime) {
		t.Errorf("down: LastIncidentAt = %v, want %v", tr.State.LastIncidentAt, baseTime)
	}

	tr = Evaluate(models.Site{LastStatus: intPtr(500), LastIncidentAt: &earlier}, ProbeResult{Status: 200}, baseTime)
	if tr.State.LastIncidentAt == nil || !tr.State.LastIncidentAt.Equal(earlier) {
		t.Errorf("recovery: LastIncidentAt = %v, want unchanged %v", tr.State.LastIncidentAt, earlier)
	}
}

func TestEvaluate_RecoveryCarriesDownSince(t *testing.T) {
	wentDown := baseTime.Add(-42 * time.Minute)
	site := models.Site{LastStatus: intPtr(502), StatusChangedAt: &wentDown}

	tr := Evaluate(site, ProbeResult{Status: 200}, baseTime)
	if !tr.Changed || !tr.Up {
		t.Fatalf("expected a recovery, got %+v", tr)
	}
	if tr.DownSince == nil || !tr.DownSince.Equal(wentDown) {
		t.Errorf("DownSince = %v, want %v", tr.DownSince, wentDown)
	}
}

func TestEvaluate_NextRunAt(t *testing.T) {
	tests := []struct {
		name     string
		interval int
		prevNext time.Time
		want     time.Time
	}{
		{"interval minus buffer", 60, baseTime, baseTime.Add(55 * time.Second)},
		{"short interval floors at ten seconds", 5, baseTime, baseTime.Add(10 * time.Second)},
		{"unset interval uses default", 0, baseTime, baseTime.Add(55 * time.Second)},
		{"never moves backwards", 60, baseTime.Add(10 * time.Minute), baseTime.Add(10 * time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := models.Site{ID: "s1", CheckInterval: tt.interval, NextRunAt: tt.prevNext}
			tr := Evaluate(site, ProbeResult{Status: 200}, baseTime)
			if !tr.State.NextRunAt.Equal(tt.want) {
				t.Errorf("NextRunAt = %v, want %v", tr.State.NextRunAt, tt.want)
			}
			if !tr.State.PrevNextRunAt.Equal(tt.prevNext) {
				t.Errorf("PrevNextRunAt = %v, want %v", tr.State.PrevNextRunAt, tt.prevNext)
			}
		})
	}
}

func TestEvaluate_RepeatedUpIsQuiet(t *testing.T) {
	site := models.Site{ID: "s1", CheckInterval: 120, LastStatus: intPtr(200), NextRunAt: baseTime}
	now := baseTime
	for i := 0; i < 5; i++ {
		tr := Evaluate(site, ProbeResult{Status: 200}, now)
		if tr.Changed {
			t.Fatalf("call %d reported a change", i)
		}
		if want := now.Add(115 * time.Second); !tr.State.NextRunAt.Equal(want) {
			t.Fatalf("call %d: NextRunAt = %v, want %v", i, tr.State.NextRunAt, want)
		}
		if !tr.State.NextRunAt.After(site.NextRunAt) {
			t.Fatalf("call %d: NextRunAt did not advance", i)
		}

		site.LastStatus = &tr.State.LastStatus
		site.StatusChangedAt = tr.State.StatusChangedAt
		site.NextRunAt = tr.State.NextRunAt
		now = tr.State.NextRunAt
	}
}
