package challenge

import "time"

// Action is the side effect a transition asks the caller to perform.
type Action int

const (
	// ActionNone means the record is unchanged.
	ActionNone Action = iota
	// ActionClearWarning means a warned member posted in time and is compliant again.
	ActionClearWarning
	// ActionStampWarning means a warning without a timestamp was stamped so the dwell time can run.
	ActionStampWarning
	// ActionWarn means the member must be sent the first-strike warning.
	ActionWarn
	// ActionRemove means the tracked role must be revoked and the member notified.
	ActionRemove
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionClearWarning:
		return "clear_warning"
	case ActionStampWarning:
		return "stamp_warning"
	case ActionWarn:
		return "warn"
	case ActionRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Changed tells if the record must be written back.
func (a Action) Changed() bool {
	return a != ActionNone
}

// Evaluate runs one polling tick of the two-strike ladder for a single record.
// It never performs I/O. The returned record is a new value and the given one is left untouched.
func Evaluate(now time.Time, record *Record, timeLimit time.Duration) (*Record, Action) {
	next := record.Clone()

	if next.Eliminated {
		return next, ActionNone
	}

	if next.LastActivityAt != nil && now.Sub(*next.LastActivityAt) <= timeLimit {
		if next.WarningCount == 0 {
			return next, ActionNone
		}
		next.WarningCount = 0
		return next, ActionClearWarning
	}

	if next.WarningCount == 0 {
		next.WarningCount = 1
		next.LastWarningAt = &now
		return next, ActionWarn
	}

	if next.LastWarningAt == nil {
		next.LastWarningAt = &now
		return next, ActionStampWarning
	}

	if now.Sub(*next.LastWarningAt) > timeLimit {
		next.StreakCount = 0
		next.Eliminated = true
		next.RevocationPending = true
		next.LastActivityAt = nil
		return next, ActionRemove
	}

	return next, ActionNone
}

// ApplyActivity records one qualifying post.
// An eliminated member still holding the role only adds to TotalImages until re-admitted.
func ApplyActivity(record *Record, at time.Time) {
	record.TotalImages++
	if record.Eliminated {
		return
	}
	record.StreakCount++
	record.WarningCount = 0
	record.LastActivityAt = &at
}

// ApplyOptIn puts the member back on the ladder as compliant with no observed activity,
// so the next tick warns unless a post arrives first.
func ApplyOptIn(record *Record) {
	record.WarningCount = 0
	record.LastActivityAt = nil
	record.LastWarningAt = nil
	record.Eliminated = false
	record.RevocationPending = false
}

// ApplyForceReset clears the ladder and the streak. TotalImages and CompletedModules are kept.
func ApplyForceReset(record *Record) {
	ApplyOptIn(record)
	record.StreakCount = 0
}
