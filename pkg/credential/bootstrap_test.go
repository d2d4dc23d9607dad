package credential

import "testing"

func TestExtractBootstrapConfig(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		wantOK   bool
		wantCSRF string
		wantUser string
		wantName string
	}{
		{
			name: "full config blob",
			html: `<!DOCTYPE html><html><body>
				<div id="app" data-conf='{"csrf_token":"tok-123","user_id":"u-1","username":"guest-42"}'></div>
			</body></html>`,
			wantOK:   true,
			wantCSRF: "tok-123",
			wantUser: "u-1",
			wantName: "guest-42",
		},
		{
			name: "csrf only",
			html: `<div data-conf='{"csrf_token":"tok-only"}'></div>`,
			wantOK:   true,
			wantCSRF: "tok-only",
		},
		{
			name: "extra fields ignored",
			html: `<div data-conf='{"csrf_token":"tok","user_id":"u","username":"n","feature_flags":{"x":true}}'></div>`,
			wantOK:   true,
			wantCSRF: "tok",
			wantUser: "u",
			wantName: "n",
		},
		{
			name:   "no data-conf attribute",
			html:   `<html><body><div id="app"></div></body></html>`,
			wantOK: false,
		},
		{
			name:   "malformed JSON",
			html:   `<div data-conf='{"csrf_token": broken'></div>`,
			wantOK: false,
		},
		{
			name:   "missing csrf token",
			html:   `<div data-conf='{"user_id":"u-1","username":"guest"}'></div>`,
			wantOK: false,
		},
		{
			name:   "empty document",
			html:   "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf, ok := extractBootstrapConfig(tt.html)
			if ok != tt.wantOK {
				t.Fatalf("extractBootstrapConfig ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if conf.CSRFToken != tt.wantCSRF {
				t.Errorf("csrf token = %q, want %q", conf.CSRFToken, tt.wantCSRF)
			}
			if conf.UserID != tt.wantUser {
				t.Errorf("user id = %q, want %q", conf.UserID, tt.wantUser)
			}
			if conf.Username != tt.wantName {
				t.Errorf("username = %q, want %q", conf.Username, tt.wantName)
			}
		})
	}
}
