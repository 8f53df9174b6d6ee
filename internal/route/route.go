// Package route maps open queries to location paths of the form
// /query/<id>[/<slug>] and keeps the active query and the location in step.
package route

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Root is the location with no query.
const Root = "/"

const prefix = "query"

var (
	nonWord    = regexp.MustCompile(`[^\w\s-]`)
	separators = regexp.MustCompile(`[\s_-]+`)
)

// Route is a parsed location.
type Route struct {
	QueryID string
	Slug    string
}

// IsZero reports whether the route names no query.
func (r Route) IsZero() bool {
	return r.QueryID == ""
}

// String renders the route as a path.
func (r Route) String() string {
	if r.QueryID == "" {
		return Root
	}
	p := "/" + prefix + "/" + url.PathEscape(r.QueryID)
	if r.Slug != "" {
		p += "/" + r.Slug
	}
	return p
}

// Parse reads a location path. Anything that is not a query path yields the
// zero Route.
func Parse(path string) Route {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || parts[0] != prefix || parts[1] == "" {
		return Route{}
	}
	id, err := url.PathUnescape(parts[1])
	if err != nil {
		return Route{}
	}
	r := Route{QueryID: id}
	if len(parts) > 2 {
		r.Slug = parts[2]
	}
	return r
}

// Slugify turns a query name into a readable path segment. Accents are
// folded to their base letters before other non-word characters are
// dropped.
func Slugify(name string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, name)
	if err != nil {
		folded = name
	}
	s := strings.TrimSpace(strings.ToLower(folded))
	s = nonWord.ReplaceAllString(s, "")
	s = separators.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// QueryURL returns the location of a saved query.
func QueryURL(id, name string) string {
	return Route{QueryID: id, Slug: Slugify(name)}.String()
}
