package slugutil

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// NormalizeURL canonicalizes a URL for deduplication: lowercases scheme and
// host, strips a trailing slash from non-root paths, and sorts query
// parameters so equivalent URLs with reordered params compare equal.
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path != "/" {
		u.Path = strings.TrimRight(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}
	if u.RawQuery != "" {
		values := u.Query()
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for i, k := range keys {
			vs := values[k]
			sort.Strings(vs)
			for j, v := range vs {
				if i > 0 || j > 0 {
					b.WriteByte('&')
				}
				b.WriteString(url.QueryEscape(k))
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(v))
			}
		}
		u.RawQuery = b.String()
	}
	u.Fragment = ""
	return u.String()
}

// ItemID derives the stable identifier used for an item's storage directory:
// a slug of the title (falling back to the URL if the title is empty),
// capped at 80 characters, followed by the first 8 hex characters of the
// SHA1 of the item's raw (un-normalized) URL, so two differently-cased or
// differently-ordered-query URLs that normalize the same still hash the
// same way they did at fetch time.
func ItemID(title, rawURL string) string {
	base := title
	if strings.TrimSpace(base) == "" {
		base = rawURL
	}
	slug := Slugify(base, 80)
	sum := sha1.Sum([]byte(rawURL))
	return slug + "-" + hex.EncodeToString(sum[:])[:8]
}
