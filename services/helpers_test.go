package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"uptimeworker/config"
)

type sentMail struct {
	From, To, Subject, Body string
}

// recordingSender captures every send; err, when set, is returned instead.
type recordingSender struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (s *recordingSender) Send(_ context.Context, from, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMail{From: from, To: to, Subject: subject, Body: body})
	return nil
}

func (s *recordingSender) Sent() []sentMail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMail(nil), s.sent...)
}

var errSendFailed = errors.New("smtp unavailable")

func testConfig() config.Config {
	cfg := config.Default()
	cfg.DatabaseDriver = config.DriverMemory
	cfg.SenderEmail = "monitor@example.com"
	cfg.SendRatePerSec = 1000
	cfg.ProbeTimeout = 2 * time.Second
	cfg.MaxConcurrency = 4
	return cfg
}

func quietLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func newTestAlerter(sender Sender) *Alerter {
	return NewAlerter(testConfig(), sender, nil, quietLogger())
}

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

var baseTime = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
