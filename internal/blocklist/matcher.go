// Package blocklist maps requested hostnames to blocked entries.
// Matching is pure: the category/domain configuration is built once at
// setup time and read-only afterwards.
package blocklist

import (
	"net/url"
	"sort"
	"strings"

	"github.com/eliteGoblin/sleepshield/internal/domain"
)

// Matcher implements domain.Matcher.
type Matcher struct{}

// NewMatcher creates a blocklist matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Normalize lower-cases a hostname and strips a leading "www.".
func Normalize(hostname string) string {
	hostname = strings.ToLower(strings.TrimSpace(hostname))
	return strings.TrimPrefix(hostname, "www.")
}

// HostnameFromURL extracts the normalized hostname from a raw URL.
// Returns "" for anything unparseable; a malformed URL never blocks.
func HostnameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return Normalize(u.Hostname())
}

// Match returns the blocked entry covering hostname, or nil.
// A hostname matches an entry d when it equals d or ends with "."+d,
// so "foo.reddit.com" matches "reddit.com" but "evilreddit.com" does
// not. Categories are walked in sorted name order so overlapping
// configurations resolve deterministically; the returned category
// always belongs to the returned domain.
func (m *Matcher) Match(hostname string, list domain.BlockList) *domain.Match {
	hostname = Normalize(hostname)
	if hostname == "" || len(list) == 0 {
		return nil
	}

	categories := make([]string, 0, len(list))
	for category := range list {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		for _, blocked := range list[category] {
			if hostname == blocked || strings.HasSuffix(hostname, "."+blocked) {
				return &domain.Match{Domain: blocked, Category: category}
			}
		}
	}
	return nil
}

// Ensure Matcher implements domain.Matcher.
var _ domain.Matcher = (*Matcher)(nil)
