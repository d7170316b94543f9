package challenge

import (
	"slices"
	"time"
)

// State is the position of a member on the two-strike ladder.
type State int

const (
	// Compliant members posted recently, or were just admitted.
	Compliant State = iota
	// Warned members missed one deadline.
	Warned
	// Removed members lost the tracked role and stay out until they opt in again.
	Removed
)

func (s State) String() string {
	switch s {
	case Compliant:
		return "compliant"
	case Warned:
		return "warned"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Record is the compliance bookkeeping kept for each member of the challenge.
// Records are never deleted; elimination is a flag so the history stays queryable.
type Record struct {
	UserID string

	// LastActivityAt is nil when no qualifying post has been observed since the member (re)joined.
	LastActivityAt *time.Time

	// WarningCount is always 0 or 1.
	WarningCount int

	StreakCount int

	// TotalImages never decreases.
	TotalImages int

	Eliminated bool

	// RevocationPending is set on elimination and cleared once the role is gone.
	// It survives a restart between the elimination and the revocation.
	RevocationPending bool

	LastWarningAt *time.Time

	CompletedModules []string
}

// NewRecord returns the zero-valued record of a member seen for the first time.
func NewRecord(userID string) *Record {
	return &Record{UserID: userID}
}

// State derives the ladder state from the bookkeeping fields.
func (r *Record) State() State {
	switch {
	case r.Eliminated:
		return Removed
	case r.WarningCount > 0:
		return Warned
	default:
		return Compliant
	}
}

// Clone returns a deep copy so callers can read a record without holding the service lock.
func (r *Record) Clone() *Record {
	c := *r
	c.LastActivityAt = cloneTime(r.LastActivityAt)
	c.LastWarningAt = cloneTime(r.LastWarningAt)
	c.CompletedModules = slices.Clone(r.CompletedModules)
	return &c
}

// AddModule marks the module as completed. It reports false when it was already recorded.
func (r *Record) AddModule(module string) bool {
	if slices.Contains(r.CompletedModules, module) {
		return false
	}
	r.CompletedModules = append(r.CompletedModules, module)
	slices.Sort(r.CompletedModules)
	return true
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
