package reports

import (
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	DefaultRecentLimit = 3
	MaxRecentLimit     = 10

	MinYear = 2020
	MaxYear = 2100
)

// QuerySpec is a normalized history request. Pointer fields distinguish
// "parameter absent" from "parameter present but empty": a search parameter
// given as whitespace is a validation error, not a match-everything filter.
type QuerySpec struct {
	Year             *int
	Month            *int
	Search           *string
	InterventionType *string
	Page             int
	PageSize         int
}

// validate applies the fail-fast policy: any out-of-range value is rejected
// with the offending field named, never silently clamped.
func (s QuerySpec) validate() error {
	if s.Year != nil && (*s.Year < MinYear || *s.Year > MaxYear) {
		return invalidParam("year", "must be between %d and %d", MinYear, MaxYear)
	}
	if s.Month != nil {
		if s.Year == nil {
			return invalidParam("month", "month requires year")
		}
		if *s.Month < 1 || *s.Month > 12 {
			return invalidParam("month", "must be between 1 and 12")
		}
	}
	if s.Search != nil && strings.TrimSpace(*s.Search) == "" {
		return invalidParam("search", "must not be empty")
	}
	if s.Page < 1 {
		return invalidParam("page", "must be at least 1")
	}
	if s.PageSize < 1 || s.PageSize > MaxPageSize {
		return invalidParam("limit", "must be between 1 and %d", MaxPageSize)
	}
	return nil
}

// AppliedFilters echoes the effective history filters back to the caller.
// Unset filters serialize as JSON null rather than empty strings.
type AppliedFilters struct {
	Year             *int    `json:"year"`
	Month            *int    `json:"month"`
	Search           *string `json:"search"`
	InterventionType *string `json:"type"`
}
