package fetch

import (
	"bytes"
	"net/http"
	"strings"
)

// DetectChallenge recognizes well-known bot-wall pages in a static fetch
// response. Detection is observational: the caller still reports the HTTP
// status it got, but logs and metrics record which protection vendor
// answered instead of the marketplace.
func DetectChallenge(status int, headers http.Header, body []byte) (source string, detected bool) {
	if status != http.StatusForbidden && status != http.StatusServiceUnavailable && status != http.StatusTooManyRequests {
		return "", false
	}

	server := strings.ToLower(headers.Get("Server"))
	switch {
	case strings.Contains(server, "cloudflare"),
		bytes.Contains(body, []byte("cf-browser-verification")),
		bytes.Contains(body, []byte("cf-turnstile")),
		bytes.Contains(body, []byte("Attention Required! | Cloudflare")):
		return "Cloudflare", true
	case headers.Get("X-DataDome") != "",
		bytes.Contains(body, []byte("datadome")):
		return "DataDome", true
	case bytes.Contains(body, []byte("_px-captcha")),
		bytes.Contains(body, []byte("px-captcha")):
		return "PerimeterX", true
	case strings.Contains(server, "akamaighost"):
		return "Akamai", true
	}
	return "", false
}
