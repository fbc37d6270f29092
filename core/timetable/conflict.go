package timetable

import (
	"fmt"

	"github.com/pkg/errors"
)

// FindConflicts returns the entries of existing that the candidate would double-book, in existing's order.
//
// An existing entry conflicts when it is not the excluded one (excludeID 0 excludes nothing),
// falls on the candidate's day, shares at least one resource key with the candidate
// and its interval overlaps the candidate's. An empty result means the candidate is safe to persist.
// Only malformed entries make FindConflicts fail; it never modifies its arguments.
func FindConflicts(candidate Entry, existing []Entry, excludeID int64) ([]Entry, error) {
	if err := candidate.Validate(); err != nil {
		return nil, errors.Wrap(err, "candidate")
	}

	var conflicts []Entry
	for _, e := range existing {
		if err := e.Validate(); err != nil {
			return nil, errors.Wrapf(err, "entry %d", e.ID)
		}
		if excludeID != 0 && e.ID == excludeID {
			continue
		}
		if e.Day != candidate.Day {
			continue
		}
		if !candidate.Resources.Intersects(e.Resources) {
			continue
		}
		if candidate.Interval.Overlaps(e.Interval) {
			conflicts = append(conflicts, e)
		}
	}
	return conflicts, nil
}

// Conflict explains why an existing entry collides with a candidate.
type Conflict struct {
	Entry           Entry     `json:"entry"`
	SharedResources Resources `json:"shared_resources"`
	Overlap         Interval  `json:"overlap"`
	OverlapMinutes  int       `json:"overlap_minutes"`
	Message         string    `json:"message"`
}

// Describe builds a Conflict for every entry returned by FindConflicts.
func Describe(candidate Entry, conflicts []Entry) []Conflict {
	described := make([]Conflict, 0, len(conflicts))
	for _, e := range conflicts {
		shared := candidate.Resources.Shared(e.Resources)
		overlap, _ := candidate.Interval.Intersect(e.Interval)
		described = append(described, Conflict{
			Entry:           e,
			SharedResources: shared,
			Overlap:         overlap,
			OverlapMinutes:  overlap.Minutes(),
			Message: fmt.Sprintf(
				"%s busy on %s %s (%d min overlap)",
				shared, e.Day, e.Interval, overlap.Minutes(),
			),
		})
	}
	return described
}

// ConflictError rejects a write that would double-book a resource.
type ConflictError struct {
	Conflicts []Conflict
}

func (err *ConflictError) Error() string {
	if len(err.Conflicts) == 1 {
		return "schedule conflict: " + err.Conflicts[0].Message
	}
	return fmt.Sprintf("schedule conflict: %d overlapping entries", len(err.Conflicts))
}

// AsConflictError unwraps err into a *ConflictError.
func AsConflictError(err error) (*ConflictError, bool) {
	cErr, ok := errors.Cause(err).(*ConflictError)
	return cErr, ok
}
