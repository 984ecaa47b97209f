package storage

import (
	"net/url"
	"strings"
)

// HostSegment turns the host of rawURL into a filesystem-safe directory name.
// "https://api.example.com:8443/x" becomes "api.example.com_8443".
func HostSegment(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "unknown"
	}

	host := strings.ToLower(parsed.Host)
	var b strings.Builder
	for _, r := range host {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	seg := strings.Trim(b.String(), "._")
	if seg == "" {
		return "unknown"
	}
	return seg
}

// SessionName returns the short file name used for one archive session.
func SessionName(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
