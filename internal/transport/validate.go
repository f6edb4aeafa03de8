package transport

import (
	"fmt"
	"net"
	"net/url"
)

// ValidateURL rejects anything that isn't a plain http/https URL, and
// (unless denyPrivateIPs is false, only ever used in tests) resolves the
// hostname and rejects loopback, private, and link-local addresses. Every
// URL this system fetches comes from a feed, API response, or HTML page it
// doesn't control, so every fetch goes through this first.
func ValidateURL(rawURL string, denyPrivateIPs bool) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url %q: scheme %q not allowed (only http/https)", rawURL, u.Scheme)
	}
	hostname := u.Hostname()
	if hostname == "" {
		return fmt.Errorf("invalid url %q: empty hostname", rawURL)
	}
	if !denyPrivateIPs {
		return nil
	}
	ips, err := net.LookupIP(hostname)
	if err != nil {
		return fmt.Errorf("invalid url %q: dns lookup failed for %s: %w", rawURL, hostname, err)
	}
	for _, ip := range ips {
		if isPrivateIP(ip) {
			return fmt.Errorf("invalid url %q: hostname %q resolves to private ip %s", rawURL, hostname, ip)
		}
	}
	return nil
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}
