package services

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"uptimeworker/config"
	"uptimeworker/models"
)

const (
	systemAlertSubject = "⚠️ Monitoring system notice"
	testEmailSubject   = "Configuration test - Uptime Monitor"
	footer             = `<p style="font-size: 12px; color: #6b7280; margin-top: 20px;">Monitored by Uptime Monitor</p>`
)

// Alerter renders notifications and hands them to the Sender. Delivery is
// best effort: failures are logged, never returned to the batch.
type Alerter struct {
	sender  Sender
	from    string
	slack   *SlackNotifier
	limiter *rate.Limiter
	timeout time.Duration
	log     zerolog.Logger
}

func NewAlerter(cfg config.Config, sender Sender, slack *SlackNotifier, log zerolog.Logger) *Alerter {
	limit := rate.Inf
	if cfg.SendRatePerSec > 0 {
		limit = rate.Limit(cfg.SendRatePerSec)
	}
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Alerter{
		sender:  sender,
		from:    cfg.SenderEmail,
		slack:   slack,
		limiter: rate.NewLimiter(limit, max(cfg.SendRatePerSec, 1)),
		timeout: timeout,
		log:     log.With().Str("component", "alerter").Logger(),
	}
}

// CanEmail reports whether the user can be emailed at all.
func (a *Alerter) CanEmail(settings models.AlertSettings) bool {
	return a.sender != nil && a.from != "" && strings.TrimSpace(settings.NotificationEmail) != ""
}

func alertVars(site models.Site, probe ProbeResult, now time.Time) map[string]string {
	return map[string]string{
		PhSiteName: site.Name,
		PhURL:      site.URL,
		PhStatus:   strconv.Itoa(probe.Status),
		PhLatency:  strconv.Itoa(probe.LatencyMs()),
		PhError:    probe.Err,
		PhTime:     now.UTC().Format(time.RFC3339),
	}
}

// DownAlert renders the user's templates, falling back to the defaults.
func DownAlert(site models.Site, settings models.AlertSettings, probe ProbeResult, now time.Time) (subject, body string) {
	subjectTpl := settings.AlertSubject
	if strings.TrimSpace(subjectTpl) == "" {
		subjectTpl = DefaultAlertSubject
	}
	bodyTpl := settings.AlertBody
	if strings.TrimSpace(bodyTpl) == "" {
		bodyTpl = DefaultAlertBody
	}

	vars := alertVars(site, probe, now)
	subject = Render(subjectTpl, vars)
	inner := Render(bodyTpl, escapeAll(vars))
	body = `<div style="font-family: sans-serif; padding: 20px; border: 1px solid #fee2e2; border-radius: 5px;">` +
		`<h2 style="color: #ef4444;">🚨 Downtime alert</h2>` + inner + footer + `</div>`
	return subject, body
}

// RecoveryAlert uses a fixed format.
func RecoveryAlert(site models.Site, status int, inc Incident) (subject, body string) {
	subject = fmt.Sprintf("✅ RECOVERED: %s is ONLINE", site.Name)

	duration := "Unknown"
	if inc.HasDuration {
		duration = fmt.Sprintf("%d minutes", inc.DurationMinutes)
	}

	var errorList strings.Builder
	if len(inc.RecentErrors) > 0 {
		errorList.WriteString("<h4>Latest recorded errors:</h4><ul>")
		for _, l := range inc.RecentErrors {
			fmt.Fprintf(&errorList, "<li>%s: Status %d</li>", l.CreatedAt.UTC().Format("15:04:05"), l.StatusCode)
		}
		errorList.WriteString("</ul>")
	}

	name, url := html.EscapeString(site.Name), html.EscapeString(site.URL)
	body = `<div style="font-family: sans-serif; padding: 20px; border: 1px solid #e0e0e0; border-radius: 5px;">` +
		`<h2 style="color: #10b981;">✅ Site recovered</h2>` +
		fmt.Sprintf(`<p>The site <strong>%s</strong> (<a href="%s">%s</a>) is operational again.</p>`, name, url, url) +
		`<div style="background: #f9fafb; padding: 15px; border-radius: 5px; margin: 20px 0;">` +
		fmt.Sprintf(`<p><strong>Downtime:</strong> %s</p><p><strong>Current status:</strong> %d (OK)</p>`, duration, status) +
		`</div>` + errorList.String() + footer + `</div>`
	return subject, body
}

func SystemAlert(message string) (subject, body string) {
	body = `<div style="font-family: sans-serif; padding: 20px; border: 1px solid #fcd34d; border-radius: 5px; background-color: #fffbeb;">` +
		`<h2 style="color: #b45309;">Infrastructure notice</h2>` +
		`<p>` + html.EscapeString(message) + `</p>` +
		`<p>The monitoring worker stopped running for a while and has just restarted automatically.</p></div>`
	return systemAlertSubject, body
}

func (a *Alerter) SiteDown(ctx context.Context, site models.Site, settings models.AlertSettings, probe ProbeResult, now time.Time) {
	a.mirror(ctx, fmt.Sprintf("🚨 %s is DOWN\nURL: %s\nStatus: %d\nError: %s", site.Name, site.URL, probe.Status, probe.Err))
	if !a.CanEmail(settings) {
		return
	}
	subject, body := DownAlert(site, settings, probe, now)
	a.deliver(ctx, settings.NotificationEmail, subject, body, site.ID)
}

func (a *Alerter) SiteRecovered(ctx context.Context, site models.Site, settings models.AlertSettings, status int, inc Incident) {
	msg := fmt.Sprintf("✅ %s is back ONLINE\nURL: %s\nStatus: %d", site.Name, site.URL, status)
	if inc.HasDuration {
		msg += fmt.Sprintf("\nDowntime: %d minutes", inc.DurationMinutes)
	}
	a.mirror(ctx, msg)
	if !a.CanEmail(settings) {
		return
	}
	subject, body := RecoveryAlert(site, status, inc)
	a.deliver(ctx, settings.NotificationEmail, subject, body, site.ID)
}

func (a *Alerter) SystemRecovered(ctx context.Context, settings models.AlertSettings, message string) {
	if !a.CanEmail(settings) {
		return
	}
	subject, body := SystemAlert(message)
	a.deliver(ctx, settings.NotificationEmail, subject, body, "")
}

// SystemMirror posts a system notice to the operator channel once.
func (a *Alerter) SystemMirror(ctx context.Context, message string) {
	a.mirror(ctx, "⚠️ "+message)
}

// TestEmail is the only send whose error reaches the caller.
func (a *Alerter) TestEmail(ctx context.Context, to string) error {
	if a.sender == nil || a.from == "" {
		return ErrNotifierUnconfigured
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.sender.Send(ctx, a.from, to, testEmailSubject, "<p>Configuration OK!</p>")
}

func (a *Alerter) deliver(ctx context.Context, to, subject, body, siteID string) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	log := a.log.With().Str("to", to).Str("subject", subject).Logger()
	if siteID != "" {
		log = log.With().Str("site_id", siteID).Logger()
	}
	if err := a.limiter.Wait(ctx); err != nil {
		log.Warn().Err(err).Msg("alert dropped by rate limiter")
		return
	}
	if err := a.sender.Send(ctx, a.from, to, subject, body); err != nil {
		log.Warn().Err(err).Msg("alert send failed")
		return
	}
	log.Info().Msg("alert sent")
}

func (a *Alerter) mirror(ctx context.Context, text string) {
	if a.slack == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	if err := a.slack.Post(ctx, text); err != nil {
		a.log.Warn().Err(err).Msg("slack mirror failed")
	}
}
