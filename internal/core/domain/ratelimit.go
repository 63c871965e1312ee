package domain

import "time"

// Rate limit categories tracked independently by the API.
const (
	CategoryCore    = "core"
	CategorySearch  = "search"
	CategoryGraphQL = "graphql"
)

// Rate is the quota state of one category.
type Rate struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// Exhausted reports whether no requests remain.
func (r Rate) Exhausted() bool {
	return r.Remaining == 0
}

// RateLimits is the quota state across categories, queried lazily.
type RateLimits struct {
	Core    Rate
	Search  Rate
	GraphQL Rate
}

// Limiting returns the category that caused throttling: the first exhausted
// one of search and graphql, otherwise core.
func (l RateLimits) Limiting() (string, Rate) {
	switch {
	case l.Search.Exhausted():
		return CategorySearch, l.Search
	case l.GraphQL.Exhausted():
		return CategoryGraphQL, l.GraphQL
	default:
		return CategoryCore, l.Core
	}
}
