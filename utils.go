package beanvault

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// IsValidHexColor reports whether s is a #RRGGBB color.
func IsValidHexColor(s string) bool {
	return hexColorPattern.MatchString(s)
}

// NormalizeShopURL trims the input and prepends https:// when no scheme is
// present, so shop links pasted without one still resolve.
func NormalizeShopURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty url")
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme")
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid url")
	}

	return u.String(), nil
}

// ExtractDomain returns the hostname of a shop URL, used for logo lookups.
func ExtractDomain(raw string) string {
	normalized, err := NormalizeShopURL(raw)
	if err != nil {
		return ""
	}
	u, _ := url.Parse(normalized)
	return u.Hostname()
}
