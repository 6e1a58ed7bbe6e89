package fetch

import (
	"net/http"
	"testing"
)

func TestDetectChallenge(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		headers http.Header
		body    string
		want    string
	}{
		{
			name:    "cloudflare server header",
			status:  403,
			headers: http.Header{"Server": []string{"cloudflare"}},
			want:    "Cloudflare",
		},
		{
			name:   "cloudflare turnstile body",
			status: 503,
			body:   `<div class="cf-turnstile" data-sitekey="x"></div>`,
			want:   "Cloudflare",
		},
		{
			name:    "datadome header",
			status:  403,
			headers: http.Header{"X-Datadome": []string{"protected"}},
			want:    "DataDome",
		},
		{
			name:   "perimeterx captcha body",
			status: 403,
			body:   `<div id="px-captcha"></div>`,
			want:   "PerimeterX",
		},
		{
			name:    "akamai ghost",
			status:  403,
			headers: http.Header{"Server": []string{"AkamaiGHost"}},
			want:    "Akamai",
		},
		{
			name:   "plain 403 without signatures",
			status: 403,
			body:   "<html>forbidden</html>",
			want:   "",
		},
		{
			name:    "2xx is never a challenge",
			status:  200,
			headers: http.Header{"Server": []string{"cloudflare"}},
			want:    "",
		},
		{
			name:   "429 with datadome body",
			status: 429,
			body:   `{"vendor":"datadome"}`,
			want:   "DataDome",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := tt.headers
			if headers == nil {
				headers = http.Header{}
			}
			source, detected := DetectChallenge(tt.status, headers, []byte(tt.body))
			if tt.want == "" {
				if detected {
					t.Fatalf("expected no detection, got %q", source)
				}
				return
			}
			if !detected || source != tt.want {
				t.Errorf("expected %q, got %q (detected=%v)", tt.want, source, detected)
			}
		})
	}
}
