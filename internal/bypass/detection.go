// Package bypass recognizes bot-protection challenge and block pages.
package bypass

import (
	"bytes"
	"net/http"
	"strings"
)

// Detector examines a response to decide whether a bot protection layer
// blocked or challenged the request.
type Detector func(status int, headers http.Header, body []byte) (detected bool, source string)

// DefaultDetectors returns the standard list of bot protection detectors.
func DefaultDetectors() []Detector {
	return []Detector{
		detectCloudflare,
		detectAkamai,
		detectDataDome,
		detectPerimeterX,
	}
}

// Detect runs the response through detectors in order and reports the first
// protection layer that matched. A nil detector list uses DefaultDetectors.
func Detect(status int, headers http.Header, body []byte, detectors []Detector) (bool, string) {
	if detectors == nil {
		detectors = DefaultDetectors()
	}
	for _, d := range detectors {
		if ok, source := d(status, headers, body); ok {
			return true, source
		}
	}
	return false, ""
}

func serverHeader(headers http.Header) string {
	return strings.ToLower(headers.Get("Server"))
}

func containsAny(body []byte, needles ...string) bool {
	for _, n := range needles {
		if bytes.Contains(body, []byte(n)) {
			return true
		}
	}
	return false
}

func detectCloudflare(status int, headers http.Header, body []byte) (bool, string) {
	if status != http.StatusForbidden && status != http.StatusServiceUnavailable {
		return false, ""
	}
	if strings.Contains(serverHeader(headers), "cloudflare") ||
		containsAny(body, "cf-browser-verification", "cloudflare-nginx", "cf-turnstile", "Attention Required! | Cloudflare") {
		return true, "Cloudflare"
	}
	return false, ""
}

func detectAkamai(status int, headers http.Header, body []byte) (bool, string) {
	if status != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(serverHeader(headers), "akamai") {
		return true, "Akamai"
	}
	// generic "Reference #" block page
	if containsAny(body, "Reference #") && containsAny(body, "Access Denied") {
		return true, "Akamai"
	}
	return false, ""
}

func detectDataDome(status int, headers http.Header, body []byte) (bool, string) {
	if status != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(serverHeader(headers), "datadome") ||
		headers.Get("X-DataDome") != "" || headers.Get("X-DataDome-Response") != "" ||
		containsAny(body, "geo.captcha-delivery.com", "datadome") {
		return true, "DataDome"
	}
	return false, ""
}

func detectPerimeterX(status int, headers http.Header, body []byte) (bool, string) {
	if status != http.StatusForbidden {
		return false, ""
	}
	if headers.Get("X-Px-Captcha") != "" ||
		containsAny(body, "client.perimeterx.net", "px-captcha", "_pxBlock") {
		return true, "PerimeterX"
	}
	return false, ""
}
