// Package settings persists the redirect configuration: the ordered domain
// list and the homepage-skip toggle.
package settings

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
)

// Persisted keys. These two keys are the whole contract shared with every
// settings surface.
const (
	KeyDomains              = "domains"
	KeySkipHomepageRedirect = "skipHomepageRedirectEnabled"
)

var (
	ErrEmptyDomain     = errors.New("domain is empty")
	ErrDuplicateDomain = errors.New("domain already listed")
	ErrDomainNotFound  = errors.New("domain not listed")
)

// Settings is the redirect configuration read on every navigation check.
type Settings struct {
	Domains              []string `json:"domains"`
	SkipHomepageRedirect bool     `json:"skip_homepage_redirect"`
}

// Defaults returns the values seeded on first start.
func Defaults() Settings {
	return Settings{Domains: []string{}, SkipHomepageRedirect: true}
}

// Store is the persistent key/value settings backend.
type Store interface {
	Load(ctx context.Context) (Settings, error)
	SaveDomains(ctx context.Context, domains []string) error
	SaveSkipHomepage(ctx context.Context, enabled bool) error
	// SeedDefaults writes default values for keys that are absent and
	// returns the keys it wrote.
	SeedDefaults(ctx context.Context) ([]string, error)
	Close() error
}

var schemeAndWWW = regexp.MustCompile(`^(https?://)?(www\.)?`)

// NormalizeDomain turns user input such as "https://www.Example.com/path"
// into a bare hostname ("example.com"). It returns "" when nothing is left.
func NormalizeDomain(raw string) string {
	d := strings.ToLower(strings.TrimSpace(raw))
	d = schemeAndWWW.ReplaceAllString(d, "")
	if i := strings.IndexByte(d, '/'); i >= 0 {
		d = d[:i]
	}
	return d
}

// SortedDomains returns a sorted copy for display. Stored order is the match
// order and must not be changed.
func SortedDomains(domains []string) []string {
	out := append([]string(nil), domains...)
	sort.Strings(out)
	return out
}

func contains(list []string, v string) bool {
	for _, existing := range list {
		if existing == v {
			return true
		}
	}
	return false
}
