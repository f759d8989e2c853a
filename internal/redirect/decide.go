// Package redirect decides whether a navigation should be sent to its
// archive.is snapshot. Decisions are made from the URL string and the
// stored settings alone.
package redirect

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/dgnsrekt/archive_redirector/internal/settings"
)

// ArchivePrefix is prepended to origin+path to build the snapshot URL.
const ArchivePrefix = "https://archive.is/newest/"

// ErrInvalidURL is returned when the navigation URL cannot be parsed.
var ErrInvalidURL = errors.New("invalid url")

// archiveHosts are never redirected, whatever the domain list says.
var archiveHosts = []string{"archive.is", "archive.today"}

// Kind enumerates decision outcomes.
type Kind int

const (
	NoMatch Kind = iota
	SkipHomepage
	Redirect
)

func (k Kind) String() string {
	switch k {
	case SkipHomepage:
		return "skip_homepage"
	case Redirect:
		return "redirect"
	default:
		return "no_match"
	}
}

// Outcome is the result of Decide. Target is set only for Redirect.
type Outcome struct {
	Kind          Kind   `json:"-"`
	Target        string `json:"target,omitempty"`
	MatchedDomain string `json:"matched_domain,omitempty"`
}

// Decide evaluates rawURL against the settings. The first listed domain that
// matches the hostname decides the outcome; later entries are never
// consulted, even when one of them is more specific.
func Decide(rawURL string, s settings.Settings) (Outcome, error) {
	u, err := parse(rawURL)
	if err != nil {
		return Outcome{}, err
	}

	host := strings.ToLower(u.Hostname())
	for _, h := range archiveHosts {
		if strings.Contains(host, h) {
			return Outcome{Kind: NoMatch}, nil
		}
	}

	if len(s.Domains) == 0 {
		return Outcome{Kind: NoMatch}, nil
	}

	matched, ok := MatchDomain(host, s.Domains)
	if !ok {
		return Outcome{Kind: NoMatch}, nil
	}

	path := u.EscapedPath()
	if s.SkipHomepageRedirect && IsHomepage(path) {
		return Outcome{Kind: SkipHomepage, MatchedDomain: matched}, nil
	}
	if path == "" {
		path = "/"
	}

	return Outcome{
		Kind:          Redirect,
		Target:        ArchivePrefix + origin(u, host) + path,
		MatchedDomain: matched,
	}, nil
}

// MatchDomain returns the first entry of domains that host equals or is a
// subdomain of.
func MatchDomain(host string, domains []string) (string, bool) {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return d, true
		}
	}
	return "", false
}

// IsHomepage reports whether a URL path denotes the site root.
func IsHomepage(path string) bool {
	return path == "" || path == "/"
}

// Canonical re-parses and re-serialises rawURL so equivalent spellings of
// the same URL compare equal.
func Canonical(rawURL string) (string, error) {
	u, err := parse(rawURL)
	if err != nil {
		return "", err
	}
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" && u.Host != "" {
		u.Path = "/"
	}
	return u.String(), nil
}

func parse(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidURL, rawURL, err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("%w: %q: missing scheme", ErrInvalidURL, rawURL)
	}
	return u, nil
}

// origin renders scheme://host[:port], omitting the scheme's default port.
func origin(u *url.URL, host string) string {
	scheme := strings.ToLower(u.Scheme)
	port := u.Port()
	if port == defaultPort(scheme) {
		port = ""
	}
	if port != "" {
		return scheme + "://" + net.JoinHostPort(host, port)
	}
	if strings.Contains(host, ":") {
		return scheme + "://[" + host + "]"
	}
	return scheme + "://" + host
}

func defaultPort(scheme string) string {
	switch scheme {
	case "http", "ws":
		return "80"
	case "https", "wss":
		return "443"
	}
	return ""
}
