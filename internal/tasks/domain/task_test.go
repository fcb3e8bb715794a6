package domain

import (
	"testing"
	"time"
)

func TestValidateTransition_ForwardMoves(t *testing.T) {
	legal := []struct{ from, to Status }{
		{StatusPending, StatusInProgress},
		{StatusPending, StatusCompleted},
		{StatusPending, StatusCancelled},
		{StatusInProgress, StatusCompleted},
		{StatusInProgress, StatusCancelled},
	}
	for _, tc := range legal {
		if err := ValidateTransition(tc.from, tc.to); err != nil {
			t.Errorf("ValidateTransition(%s, %s) = %v, want nil", tc.from, tc.to, err)
		}
	}
}

func TestValidateTransition_TerminalStatesAreFinal(t *testing.T) {
	for _, from := range []Status{StatusCompleted, StatusCancelled} {
		for _, to := range []Status{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled} {
			if err := ValidateTransition(from, to); err != ErrTaskClosed {
				t.Errorf("ValidateTransition(%s, %s) = %v, want ErrTaskClosed", from, to, err)
			}
		}
	}
}

func TestValidateTransition_NoReopen(t *testing.T) {
	if err := ValidateTransition(StatusInProgress, StatusPending); err != ErrNoReopen {
		t.Fatalf("ValidateTransition(IN_PROGRESS, PENDING) = %v, want ErrNoReopen", err)
	}
}

func TestValidateTransition_SameStatus(t *testing.T) {
	if err := ValidateTransition(StatusPending, StatusPending); err != ErrSameStatus {
		t.Fatalf("got %v, want ErrSameStatus", err)
	}
}

func TestValidateTransition_UnknownStatus(t *testing.T) {
	if err := ValidateTransition(StatusPending, Status("SNOOZED")); err != ErrUnknownStatus {
		t.Fatalf("got %v, want ErrUnknownStatus", err)
	}
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name   string
		status Status
		due    time.Time
		want   bool
	}{
		{"pending past due", StatusPending, past, true},
		{"in progress past due", StatusInProgress, past, true},
		{"pending not yet due", StatusPending, future, false},
		{"completed past due", StatusCompleted, past, false},
		{"cancelled past due", StatusCancelled, past, false},
		{"due exactly now", StatusPending, now, false},
	}
	for _, tc := range cases {
		if got := IsOverdue(tc.status, tc.due, now); got != tc.want {
			t.Errorf("%s: IsOverdue = %v, want %v", tc.name, got, tc.want)
		}
	}
}
