// Package domain holds the lead pipeline state machine and related enums.
package domain

// Status is a lead's position in the acquisition pipeline.
type Status string

const (
	StatusNew                  Status = "NEW"
	StatusContacted            Status = "CONTACTED"
	StatusQualified            Status = "QUALIFIED"
	StatusAppointmentScheduled Status = "APPOINTMENT_SCHEDULED"
	StatusConsultationDone     Status = "CONSULTATION_DONE"
	StatusConverted            Status = "CONVERTED"
	StatusLost                 Status = "LOST"
)

var knownStatuses = map[Status]struct{}{
	StatusNew:                  {},
	StatusContacted:            {},
	StatusQualified:            {},
	StatusAppointmentScheduled: {},
	StatusConsultationDone:     {},
	StatusConverted:            {},
	StatusLost:                 {},
}

// PipelineOrder lists the forward pipeline stages, excluding LOST.
// Funnel analytics iterate this to compute per-stage percentages.
var PipelineOrder = []Status{
	StatusNew,
	StatusContacted,
	StatusQualified,
	StatusAppointmentScheduled,
	StatusConsultationDone,
	StatusConverted,
}

// IsKnown reports whether s is a member of the enumerated status set.
func (s Status) IsKnown() bool {
	_, ok := knownStatuses[s]
	return ok
}

// IsTerminal reports whether no further transitions are permitted from s.
func (s Status) IsTerminal() bool {
	return s == StatusConverted || s == StatusLost
}

// TransitionError explains why a requested status change is illegal.
type TransitionError string

const (
	// ErrUnknownStatus: the target is not a member of the status set.
	ErrUnknownStatus TransitionError = "unknown status"
	// ErrLeadClosed: the lead is in a terminal state.
	ErrLeadClosed TransitionError = "lead already closed"
	// ErrSameStatus: the target equals the current status.
	ErrSameStatus TransitionError = "lead already in this status"
	// ErrConvertViaOperation: CONVERTED is only reachable through the
	// convert operation, which records the created patient reference.
	ErrConvertViaOperation TransitionError = "conversion must use the convert operation"
	// ErrLostReasonRequired: a transition to LOST needs a reason.
	ErrLostReasonRequired TransitionError = "a reason is required when marking a lead as lost"
)

func (e TransitionError) Error() string { return string(e) }

// ValidateTransition checks whether changing a lead from current to target,
// with the given reason, is legal. Any move between distinct non-terminal
// statuses is allowed (staff may walk a lead backwards after a stalled
// appointment); CONVERTED and LOST are guarded.
func ValidateTransition(current, target Status, reason string) error {
	if !target.IsKnown() {
		return ErrUnknownStatus
	}
	if current.IsTerminal() {
		return ErrLeadClosed
	}
	if current == target {
		return ErrSameStatus
	}
	if target == StatusConverted {
		return ErrConvertViaOperation
	}
	if target == StatusLost && reason == "" {
		return ErrLostReasonRequired
	}
	return nil
}

// Priority ranks how urgently a lead should be worked.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Source is the acquisition channel a lead arrived through.
type Source string

const (
	SourceWebsite       Source = "WEBSITE"
	SourceReferral      Source = "REFERRAL"
	SourceWalkIn        Source = "WALK_IN"
	SourcePhone         Source = "PHONE"
	SourceSocialMedia   Source = "SOCIAL_MEDIA"
	SourceAdvertisement Source = "ADVERTISEMENT"
	SourceOther         Source = "OTHER"
)

// KnownSources lists every acquisition channel, in display order.
var KnownSources = []Source{
	SourceWebsite,
	SourceReferral,
	SourceWalkIn,
	SourcePhone,
	SourceSocialMedia,
	SourceAdvertisement,
	SourceOther,
}
