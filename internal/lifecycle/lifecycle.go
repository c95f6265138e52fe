// Package lifecycle holds the soft-delete state shared by every record that
// is deactivated instead of deleted.
package lifecycle

import "time"

type State struct {
	Active        bool       `json:"active"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

// New returns an active state.
func New() State { return State{Active: true} }

// Deactivate marks the record inactive. Calling it on an inactive record keeps
// the original timestamp.
func (s *State) Deactivate(now time.Time) {
	if !s.Active {
		return
	}
	t := now.UTC()
	s.Active = false
	s.DeactivatedAt = &t
}

// Activate clears the deactivation timestamp.
func (s *State) Activate() {
	s.Active = true
	s.DeactivatedAt = nil
}

// Filter selects records by lifecycle state in list queries.
type Filter string

const (
	FilterActive   Filter = "active"
	FilterInactive Filter = "inactive"
	FilterAll      Filter = "all"
)

// ParseFilter defaults to FilterActive for empty or unknown input.
func ParseFilter(s string) Filter {
	switch Filter(s) {
	case FilterInactive, FilterAll:
		return Filter(s)
	}
	return FilterActive
}

// SQL returns a predicate on an "active" column, or "" when no filter applies.
func (f Filter) SQL(column string) string {
	switch f {
	case FilterActive:
		return column + " = true"
	case FilterInactive:
		return column + " = false"
	}
	return ""
}
