package sanitizer

import (
	"net/url"
	"strings"
)

// NormalizeImageURL forces https, lowercases the host and strips utm_*
// parameters. Paths are case-sensitive on most object stores and are kept.
func NormalizeImageURL(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}

	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "https://"):
	case strings.HasPrefix(lower, "http://"):
		s = "https://" + s[len("http://"):]
	default:
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return ""
	}
	u.Scheme = "https"
	u.Host = strings.ToLower(u.Host)

	q := u.Query()
	for key := range q {
		if strings.HasPrefix(strings.ToLower(key), "utm_") {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""

	return u.String()
}
