// Package domain holds the campaign lifecycle state machine and the
// delivery funnel model.
package domain

// Status is a campaign's position in its lifecycle.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusScheduled Status = "SCHEDULED"
	StatusRunning   Status = "RUNNING"
	StatusPaused    Status = "PAUSED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// IsTerminal reports whether no further transitions are permitted from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// TransitionError explains why a requested lifecycle change is illegal.
type TransitionError string

const (
	ErrCampaignClosed   TransitionError = "campaign already closed"
	ErrNotLaunchable    TransitionError = "only draft or scheduled campaigns can launch"
	ErrNotPausable      TransitionError = "only running campaigns can pause"
	ErrNotResumable     TransitionError = "only paused campaigns can resume"
	ErrAlreadyScheduled TransitionError = "only draft campaigns can be scheduled"
)

func (e TransitionError) Error() string { return string(e) }

// ValidateLaunch checks that a campaign may move to RUNNING via launch.
func ValidateLaunch(current Status) error {
	switch current {
	case StatusDraft, StatusScheduled:
		return nil
	case StatusCompleted, StatusCancelled:
		return ErrCampaignClosed
	default:
		return ErrNotLaunchable
	}
}

// ValidatePause checks that a campaign may move to PAUSED.
func ValidatePause(current Status) error {
	if current.IsTerminal() {
		return ErrCampaignClosed
	}
	if current != StatusRunning {
		return ErrNotPausable
	}
	return nil
}

// ValidateResume checks that a campaign may move back to RUNNING.
func ValidateResume(current Status) error {
	if current.IsTerminal() {
		return ErrCampaignClosed
	}
	if current != StatusPaused {
		return ErrNotResumable
	}
	return nil
}

// ValidateCancel checks that a campaign may move to CANCELLED.
func ValidateCancel(current Status) error {
	if current.IsTerminal() {
		return ErrCampaignClosed
	}
	return nil
}

// ValidateSchedule checks that a campaign may move to SCHEDULED.
func ValidateSchedule(current Status) error {
	if current.IsTerminal() {
		return ErrCampaignClosed
	}
	if current != StatusDraft {
		return ErrAlreadyScheduled
	}
	return nil
}

// Channel is the delivery medium a campaign sends over.
type Channel string

const (
	ChannelEmail    Channel = "EMAIL"
	ChannelSMS      Channel = "SMS"
	ChannelWhatsApp Channel = "WHATSAPP"
)
