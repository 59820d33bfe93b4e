// Package audit captures the coarse client metadata recorded with each reveal.
package audit

import (
	"net"
	"strings"

	"github.com/mssola/useragent"

	"github.com/mmynk/secretsanta/internal/models"
)

// maxUserAgent bounds what is persisted from a client-supplied header.
const maxUserAgent = 512

// Viewer describes who performed a lookup. Every field is optional.
type Viewer struct {
	IPAddress string
	UserAgent string
}

// NewViewer builds a Viewer from request metadata. The first hop of a
// non-empty forwardedFor wins over the socket address; callers pass it only
// when a trusted proxy sets the header.
func NewViewer(remoteAddr, forwardedFor, userAgent string) Viewer {
	ip := ""
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		ip = normalizeIP(strings.TrimSpace(first))
	}
	if ip == "" {
		ip = normalizeIP(remoteAddr)
	}

	ua := strings.TrimSpace(userAgent)
	if len(ua) > maxUserAgent {
		ua = ua[:maxUserAgent]
	}

	return Viewer{IPAddress: ip, UserAgent: ua}
}

func normalizeIP(addr string) string {
	if addr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	if parsed := net.ParseIP(addr); parsed != nil {
		return parsed.String()
	}
	return ""
}

// Describe classifies a user agent. It returns nil for an empty string.
func Describe(userAgent string) *models.DeviceInfo {
	if userAgent == "" {
		return nil
	}

	ua := useragent.New(userAgent)

	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown"
	}

	return &models.DeviceInfo{
		Browser: browser,
		OS:      osFamily(ua),
		Device:  deviceClass(ua, userAgent),
	}
}

func osFamily(ua *useragent.UserAgent) string {
	os := ua.OS()
	platform := ua.Platform()

	switch {
	case strings.Contains(os, "Windows"):
		return "Windows"
	case strings.Contains(os, "Android"):
		return "Android"
	case platform == "iPhone" || platform == "iPad" || platform == "iPod" ||
		strings.Contains(os, "iPhone OS") || strings.Contains(os, "CPU OS"):
		return "iOS"
	case strings.Contains(os, "Mac OS"):
		return "macOS"
	case strings.Contains(os, "CrOS"):
		return "ChromeOS"
	case strings.Contains(os, "Linux") || platform == "X11" || platform == "Linux":
		return "Linux"
	default:
		return "Unknown"
	}
}

func deviceClass(ua *useragent.UserAgent, raw string) string {
	switch {
	case ua.Bot():
		return "Bot"
	case ua.Platform() == "iPad" || strings.Contains(raw, "Tablet"):
		return "Tablet"
	case strings.Contains(ua.OS(), "Android") && !ua.Mobile():
		return "Tablet"
	case ua.Mobile():
		return "Mobile"
	default:
		return "Desktop"
	}
}
