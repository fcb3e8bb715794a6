// Package domain holds the follow-up task state machine and related enums.
package domain

import "time"

// Status is a task's position in its lifecycle.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

var knownStatuses = map[Status]struct{}{
	StatusPending:    {},
	StatusInProgress: {},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

func (s Status) IsKnown() bool {
	_, ok := knownStatuses[s]
	return ok
}

// IsTerminal reports whether no further transitions are permitted from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsOpen reports whether the task still counts toward workload views.
func (s Status) IsOpen() bool {
	return s == StatusPending || s == StatusInProgress
}

// TransitionError explains why a requested status change is illegal.
type TransitionError string

const (
	ErrUnknownStatus TransitionError = "unknown status"
	ErrTaskClosed    TransitionError = "task already closed"
	ErrSameStatus    TransitionError = "task already in this status"
	// ErrNoReopen: closed tasks stay closed; work that resumes gets a
	// fresh task so history stays intact.
	ErrNoReopen TransitionError = "a task cannot move back to pending"
)

func (e TransitionError) Error() string { return string(e) }

// ValidationError names a creation rule violation. The leading identifier
// is stable so callers can match on it.
type ValidationError string

const (
	ErrMissingAssignee ValidationError = "MissingAssignee: an assignee is required"
	ErrMissingDueDate  ValidationError = "MissingDueDate: a due date is required"
)

func (e ValidationError) Error() string { return string(e) }

// ValidateTransition checks whether changing a task from current to target
// is legal. Tasks only move forward: PENDING may start or close, IN_PROGRESS
// may close, closed tasks are final.
func ValidateTransition(current, target Status) error {
	if !target.IsKnown() {
		return ErrUnknownStatus
	}
	if current.IsTerminal() {
		return ErrTaskClosed
	}
	if current == target {
		return ErrSameStatus
	}
	if target == StatusPending {
		return ErrNoReopen
	}
	return nil
}

// IsOverdue is the derived lateness predicate: an open task whose due date
// has passed. Never stored, always evaluated against the clock.
func IsOverdue(status Status, dueDate time.Time, now time.Time) bool {
	return status.IsOpen() && dueDate.Before(now)
}

// Type categorizes the follow-up work a task represents.
type Type string

const (
	TypeCall                Type = "CALL"
	TypeEmail               Type = "EMAIL"
	TypeSMS                 Type = "SMS"
	TypeFollowUp            Type = "FOLLOW_UP"
	TypeAppointmentReminder Type = "APPOINTMENT_REMINDER"
	TypeOther               Type = "OTHER"
)

// Priority ranks how urgently a task should be worked.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)
