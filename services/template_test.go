package services

import "testing"

func TestRender(t *testing.T) {
	vars := map[string]string{
		PhSiteName: "Shop",
		PhURL:      "https://shop.example.com",
		PhStatus:   "503",
	}
	tests := []struct {
		name string
		tpl  string
		want string
	}{
		{"single", "{{site_name}} is down", "Shop is down"},
		{"every occurrence", "{{status}} {{status}} {{status}}", "503 503 503"},
		{"unknown kept", "{{site_name}} {{nope}}", "Shop {{nope}}"},
		{"unterminated", "{{site_name}} {{url", "Shop {{url"},
		{"no placeholders", "plain text", "plain text"},
		{"empty", "", ""},
		{"adjacent", "{{site_name}}{{status}}", "Shop503"},
		{"stray opener before placeholder", "{{ {{site_name}} down", "{{ Shop down"},
		{"extra leading brace", "{{{site_name}}", "{Shop"},
		{"empty name", "{{}} {{status}}", "{{}} 503"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.tpl, vars); got != tt.want {
				t.Errorf("Render(%q) = %q, want %q", tt.tpl, got, tt.want)
			}
		})
	}
}

func TestRender_ValuesNotRescanned(t *testing.T) {
	vars := map[string]string{
		PhSiteName: "{{url}}",
		PhURL:      "https://example.com",
	}
	got := Render("{{site_name}} at {{url}}", vars)
	want := "{{url}} at https://example.com"
	if got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestEscapeAll(t *testing.T) {
	in := map[string]string{PhSiteName: `<b>"Shop" & co</b>`}
	out := escapeAll(in)
	if want := "&lt;b&gt;&#34;Shop&#34; &amp; co&lt;/b&gt;"; out[PhSiteName] != want {
		t.Errorf("escaped = %q, want %q", out[PhSiteName], want)
	}
	if in[PhSiteName] != `<b>"Shop" & co</b>` {
		t.Error("escapeAll modified its input")
	}
}
