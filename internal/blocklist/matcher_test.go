package blocklist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/sleepshield/internal/domain"
)

// TestMatch_ExactAndSubdomain verifies subdomain containment rules
func TestMatch_ExactAndSubdomain(t *testing.T) {
	m := NewMatcher()
	list := domain.BlockList{
		"Social Media": {"reddit.com", "twitter.com"},
	}

	got := m.Match("reddit.com", list)
	require.NotNil(t, got)
	assert.Equal(t, "reddit.com", got.Domain)
	assert.Equal(t, "Social Media", got.Category)

	got = m.Match("foo.reddit.com", list)
	require.NotNil(t, got)
	assert.Equal(t, "reddit.com", got.Domain)

	// Lookalike domains are not subdomains.
	assert.Nil(t, m.Match("evilreddit.com", list))
	assert.Nil(t, m.Match("evil-reddit.com", list))
}

// TestMatch_StripsWWW verifies hostname normalization
func TestMatch_StripsWWW(t *testing.T) {
	m := NewMatcher()
	list := domain.BlockList{"Entertainment": {"youtube.com"}}

	got := m.Match("www.youtube.com", list)
	require.NotNil(t, got)
	assert.Equal(t, "youtube.com", got.Domain)

	got = m.Match("WWW.YouTube.com", list)
	require.NotNil(t, got)
	assert.Equal(t, "youtube.com", got.Domain)
}

// TestMatch_CategoryBelongsToDomain verifies no cross-category mixups
// when entries overlap
func TestMatch_CategoryBelongsToDomain(t *testing.T) {
	m := NewMatcher()
	list := domain.BlockList{
		"B Category": {"docs.google.com"},
		"A Category": {"google.com"},
	}

	got := m.Match("docs.google.com", list)
	require.NotNil(t, got)
	// Either entry may win, but domain and category must come from the
	// same one. Sorted walk makes the winner deterministic.
	assert.Equal(t, "A Category", got.Category)
	assert.Equal(t, "google.com", got.Domain)
}

// TestMatch_EmptyInputs verifies graceful degradation
func TestMatch_EmptyInputs(t *testing.T) {
	m := NewMatcher()

	assert.Nil(t, m.Match("reddit.com", nil))
	assert.Nil(t, m.Match("reddit.com", domain.BlockList{}))
	assert.Nil(t, m.Match("", domain.BlockList{"c": {"reddit.com"}}))
}

// TestHostnameFromURL verifies URL hostname extraction
func TestHostnameFromURL(t *testing.T) {
	assert.Equal(t, "reddit.com", HostnameFromURL("https://www.reddit.com/r/golang"))
	assert.Equal(t, "foo.reddit.com", HostnameFromURL("http://foo.reddit.com"))
	assert.Equal(t, "", HostnameFromURL("not a url at all"))
	assert.Equal(t, "", HostnameFromURL("about:blank"))
	assert.Equal(t, "", HostnameFromURL(""))
}

// TestDefaultCatalog verifies the stock catalog shape
func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()

	require.Len(t, catalog, 7)
	assert.Contains(t, catalog[CategorySocial], "reddit.com")
	assert.Contains(t, catalog[CategoryAI], "claude.ai")

	m := NewMatcher()
	got := m.Match("old.reddit.com", catalog)
	require.NotNil(t, got)
	assert.Equal(t, CategorySocial, got.Category)
}

// TestCategories verifies sorted category names
func TestCategories(t *testing.T) {
	names := Categories(domain.BlockList{"b": nil, "a": nil, "c": nil})
	assert.Equal(t, []string{"a", "b", "c"}, names)
}
