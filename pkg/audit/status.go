package audit

import "fmt"

// LifecycleStatus is the retention lifecycle state of an Event.
type LifecycleStatus string

const (
	// StatusActive is the initial state of every event.
	StatusActive LifecycleStatus = "active"
	// StatusMarkedForDeletion is an advisory state set when an event is overdue.
	StatusMarkedForDeletion LifecycleStatus = "marked_for_deletion"
	// StatusDeleted is terminal. The row stays as a tombstone until purged.
	StatusDeleted LifecycleStatus = "deleted"
)

// lifecycleTransitions lists the legal target states for each state.
var lifecycleTransitions = map[LifecycleStatus][]LifecycleStatus{
	StatusActive:            {StatusMarkedForDeletion, StatusDeleted},
	StatusMarkedForDeletion: {StatusActive, StatusDeleted},
	StatusDeleted:           nil,
}

// ParseLifecycleStatus converts text into a LifecycleStatus.
func ParseLifecycleStatus(s string) (LifecycleStatus, error) {
	status := LifecycleStatus(s)
	if _, ok := lifecycleTransitions[status]; !ok {
		return "", fmt.Errorf("unknown lifecycle status %q", s)
	}
	return status, nil
}

// Valid reports whether s is a known lifecycle status.
func (s LifecycleStatus) Valid() bool {
	_, ok := lifecycleTransitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s LifecycleStatus) CanTransitionTo(next LifecycleStatus) bool {
	for _, allowed := range lifecycleTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AlertType identifies what a RetentionAlert is about.
type AlertType string

const (
	AlertRetentionWarning AlertType = "retention_warning"
	AlertExportReady      AlertType = "export_ready"
	AlertDeletionComplete AlertType = "deletion_complete"
)

// ParseAlertType converts text into an AlertType.
func ParseAlertType(s string) (AlertType, error) {
	switch t := AlertType(s); t {
	case AlertRetentionWarning, AlertExportReady, AlertDeletionComplete:
		return t, nil
	}
	return "", fmt.Errorf("unknown alert type %q", s)
}

// AlertStatus is the state of a RetentionAlert. Statuses only move forward.
type AlertStatus string

const (
	AlertPending      AlertStatus = "pending"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertExported     AlertStatus = "exported"
	AlertDeleted      AlertStatus = "deleted"
)

// alertRank orders alert statuses; a transition must strictly increase rank.
var alertRank = map[AlertStatus]int{
	AlertPending:      0,
	AlertAcknowledged: 1,
	AlertExported:     2,
	AlertDeleted:      3,
}

// ParseAlertStatus converts text into an AlertStatus.
func ParseAlertStatus(s string) (AlertStatus, error) {
	status := AlertStatus(s)
	if _, ok := alertRank[status]; !ok {
		return "", fmt.Errorf("unknown alert status %q", s)
	}
	return status, nil
}

// CanTransitionTo reports whether moving from s to next goes forward.
func (s AlertStatus) CanTransitionTo(next AlertStatus) bool {
	from, ok := alertRank[s]
	if !ok {
		return false
	}
	to, ok := alertRank[next]
	return ok && to > from
}

// Predecessors returns every status that may legally transition to s.
func (s AlertStatus) Predecessors() []AlertStatus {
	to, ok := alertRank[s]
	if !ok {
		return nil
	}
	var out []AlertStatus
	for _, candidate := range []AlertStatus{AlertPending, AlertAcknowledged, AlertExported} {
		if alertRank[candidate] < to {
			out = append(out, candidate)
		}
	}
	return out
}
