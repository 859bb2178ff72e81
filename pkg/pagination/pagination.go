// Package pagination turns _count/_offset query parameters into a page
// window and renders the Bundle links around it.
package pagination

import (
	"fmt"
	"net/url"
	"strconv"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Params is a page window over a result set.
type Params struct {
	Limit  int
	Offset int
}

// firstInt returns the first key in q holding a positive integer.
func firstInt(q url.Values, keys ...string) int {
	for _, k := range keys {
		if n, err := strconv.Atoi(q.Get(k)); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

// FromQuery prefers the FHIR names and accepts limit/offset as aliases.
func FromQuery(q url.Values) Params {
	p := Params{
		Limit:  firstInt(q, "_count", "limit"),
		Offset: firstInt(q, "_offset", "offset"),
	}
	switch {
	case p.Limit == 0:
		p.Limit = DefaultLimit
	case p.Limit > MaxLimit:
		p.Limit = MaxLimit
	}
	return p
}

// Link is one entry of Bundle.link.
type Link struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

// Links returns self, plus next when the page came back full and previous
// when it does not start at zero.
func (p Params) Links(basePath string, returned int) []Link {
	at := func(rel string, offset int) Link {
		return Link{Relation: rel, URL: fmt.Sprintf("%s?_offset=%d&_count=%d", basePath, offset, p.Limit)}
	}

	links := []Link{at("self", p.Offset)}
	if returned >= p.Limit {
		links = append(links, at("next", p.Offset+p.Limit))
	}
	if p.Offset > 0 {
		links = append(links, at("previous", max(p.Offset-p.Limit, 0)))
	}
	return links
}
