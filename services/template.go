package services

import (
	"html"
	"strings"
)

// Placeholders recognised in user alert templates.
const (
	PhSiteName = "site_name"
	PhURL      = "url"
	PhStatus   = "status"
	PhLatency  = "latency"
	PhError    = "error"
	PhTime     = "time"
)

const (
	DefaultAlertSubject = "ALERT: {{site_name}} is DOWN"
	DefaultAlertBody    = "<p>The site {{url}} responded with error {{status}}</p>"
)

// Render replaces every {{name}} whose name is in vars, in a single pass.
// Substituted values are not rescanned, so the result does not depend on map
// order. Unknown placeholders are left as written.
func Render(tpl string, vars map[string]string) string {
	var b strings.Builder
	b.Grow(len(tpl))
	for {
		start := strings.Index(tpl, "{{")
		if start < 0 {
			b.WriteString(tpl)
			return b.String()
		}
		end := strings.Index(tpl[start+2:], "}}")
		if end < 0 {
			b.WriteString(tpl)
			return b.String()
		}
		end += start + 2
		// a stray "{{" before the real opener is literal text
		start = strings.LastIndex(tpl[:end], "{{")
		name := tpl[start+2 : end]
		b.WriteString(tpl[:start])
		if v, ok := vars[name]; ok {
			b.WriteString(v)
		} else {
			b.WriteString(tpl[start : end+2])
		}
		tpl = tpl[end+2:]
	}
}

// escapeAll returns a copy of vars with HTML-escaped values, for bodies.
func escapeAll(vars map[string]string) map[string]string {
	out := make(map[string]string, len(vars))
	for k, v := range vars {
		out[k] = html.EscapeString(v)
	}
	return out
}
