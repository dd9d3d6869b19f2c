package enrich

import (
	"fmt"
	"strings"
)

const unknownDevice = "Unknown device"

// DeviceLabel derives a short "<device> - <os>" description from a
// User-Agent header using string heuristics. A parse miss falls back
// to "Unknown device"; this never fails.
func DeviceLabel(userAgent string) string {
	ua := strings.TrimSpace(userAgent)
	if ua == "" {
		return unknownDevice
	}
	lower := strings.ToLower(ua)

	device := deviceFamily(lower)
	os := osFamily(lower)
	if os == "" {
		return device
	}
	return fmt.Sprintf("%s - %s", device, os)
}

func deviceFamily(ua string) string {
	switch {
	case strings.Contains(ua, "ipad"):
		return "iPad"
	case strings.Contains(ua, "iphone"):
		return "iPhone"
	case strings.Contains(ua, "android") && strings.Contains(ua, "mobile"):
		return "Android phone"
	case strings.Contains(ua, "android"):
		return "Android tablet"
	case strings.Contains(ua, "mobile"):
		return "Mobile"
	case strings.Contains(ua, "windows"), strings.Contains(ua, "macintosh"), strings.Contains(ua, "x11"), strings.Contains(ua, "linux"):
		return "Desktop"
	default:
		return unknownDevice
	}
}

func osFamily(ua string) string {
	switch {
	case strings.Contains(ua, "windows nt 10"):
		return "Windows 10"
	case strings.Contains(ua, "windows nt 6.3"):
		return "Windows 8.1"
	case strings.Contains(ua, "windows nt 6.1"):
		return "Windows 7"
	case strings.Contains(ua, "windows"):
		return "Windows"
	case strings.Contains(ua, "iphone os"), strings.Contains(ua, "cpu os"):
		return "iOS " + osVersion(ua, "os ")
	case strings.Contains(ua, "mac os x"):
		return "macOS"
	case strings.Contains(ua, "android"):
		return strings.TrimSpace("Android " + osVersion(ua, "android "))
	case strings.Contains(ua, "cros"):
		return "ChromeOS"
	case strings.Contains(ua, "linux"):
		return "Linux"
	default:
		return ""
	}
}

// osVersion extracts the version digits following a marker such as
// "android " or "os ", with underscores normalized to dots.
func osVersion(ua, marker string) string {
	idx := strings.Index(ua, marker)
	if idx < 0 {
		return ""
	}
	rest := ua[idx+len(marker):]
	var b strings.Builder
	for _, r := range rest {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == '_':
			b.WriteRune('.')
		default:
			return b.String()
		}
	}
	return b.String()
}
