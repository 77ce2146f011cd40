package domain

import (
	"net/url"
	"strings"
)

// Route is the in-app navigational path segment displayed by the guest view.
// It is opaque to the protocol beyond being "/"-prefixed.
type Route string

// RootRoute is the route shown when no fragment (or an empty one) is present.
const RootRoute Route = "/"

// HashPrefix marks a fragment as carrying a route ("#!/foo").
const HashPrefix = "#!"

// ParseRoute normalizes a raw route token.
// Empty input maps to the root, a missing leading slash is added and
// trailing slashes are stripped (except for the root itself).
func ParseRoute(raw string) Route {
	s := strings.TrimSpace(raw)
	if s == "" {
		return RootRoute
	}
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	s = strings.TrimRight(s, "/")
	if s == "" {
		return RootRoute
	}
	return Route(s)
}

// IsRoot reports whether r is the root route.
func (r Route) IsRoot() bool {
	return ParseRoute(string(r)) == RootRoute
}

func (r Route) String() string {
	return string(r)
}

// ParseHash extracts the route from a URL fragment.
// The leading "#" is optional. A missing or empty fragment yields the root
// with ok=true. A fragment that does not start with "!" is malformed: the
// root is returned with ok=false so callers can log and carry on.
func ParseHash(fragment string) (Route, bool) {
	s := strings.TrimPrefix(strings.TrimSpace(fragment), "#")
	if s == "" {
		return RootRoute, true
	}
	if !strings.HasPrefix(s, "!") {
		return RootRoute, false
	}
	return ParseRoute(strings.TrimPrefix(s, "!")), true
}

// FormatHash renders a route as a URL fragment, including the leading "#".
func FormatHash(r Route) string {
	return HashPrefix + string(ParseRoute(string(r)))
}

// RouteFromURL extracts the route from the fragment of a full or relative URL.
// Unparseable URLs and malformed fragments fall back to the root.
func RouteFromURL(raw string) (Route, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return RootRoute, false
	}
	return ParseHash(u.Fragment)
}

// HashFromURL returns the normalized fragment of raw, or "" when it has none.
func HashFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Fragment == "" {
		return ""
	}
	return "#" + u.Fragment
}
