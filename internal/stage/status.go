package stage

import "strings"

// Status represents the lifecycle of a single stage on a single video.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusRunning    Status = "running"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusNotStarted,
	StatusRunning,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the known stage statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether the status ends a stage attempt.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Eligible reports whether a stage may be dispatched: the stage itself is
// untouched this run and every declared dependency has completed. Evaluation
// always walks the full dependency list, so the remux fan-in gates on both
// download and synthesize no matter which finished first.
func Eligible(name Name, statuses map[Name]Status) bool {
	if statuses[name] != StatusNotStarted {
		return false
	}
	for _, dep := range dependencies[name] {
		if statuses[dep] != StatusCompleted {
			return false
		}
	}
	return true
}

// NextEligible lists, in canonical order, every stage Eligible accepts for the
// given status map.
func NextEligible(statuses map[Name]Status) []Name {
	var out []Name
	for _, name := range canonicalOrder {
		if Eligible(name, statuses) {
			out = append(out, name)
		}
	}
	return out
}
