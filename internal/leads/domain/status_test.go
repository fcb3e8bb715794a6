package domain

import "testing"

func TestValidateTransition_ForwardMove(t *testing.T) {
	if err := ValidateTransition(StatusNew, StatusQualified, ""); err != nil {
		t.Fatalf("expected NEW -> QUALIFIED to be legal, got %v", err)
	}
}

func TestValidateTransition_BackwardMove(t *testing.T) {
	if err := ValidateTransition(StatusConsultationDone, StatusContacted, ""); err != nil {
		t.Fatalf("expected backward move to be legal, got %v", err)
	}
}

func TestValidateTransition_SameStatusRejected(t *testing.T) {
	if err := ValidateTransition(StatusContacted, StatusContacted, ""); err != ErrSameStatus {
		t.Fatalf("expected ErrSameStatus, got %v", err)
	}
}

func TestValidateTransition_TerminalStatesClosed(t *testing.T) {
	for _, current := range []Status{StatusConverted, StatusLost} {
		if err := ValidateTransition(current, StatusContacted, ""); err != ErrLeadClosed {
			t.Fatalf("expected ErrLeadClosed from %s, got %v", current, err)
		}
	}
}

func TestValidateTransition_LostRequiresReason(t *testing.T) {
	if err := ValidateTransition(StatusQualified, StatusLost, ""); err != ErrLostReasonRequired {
		t.Fatalf("expected ErrLostReasonRequired, got %v", err)
	}
	if err := ValidateTransition(StatusQualified, StatusLost, "chose another clinic"); err != nil {
		t.Fatalf("expected LOST with reason to be legal, got %v", err)
	}
}

func TestValidateTransition_ConvertedOnlyViaConvert(t *testing.T) {
	if err := ValidateTransition(StatusConsultationDone, StatusConverted, ""); err != ErrConvertViaOperation {
		t.Fatalf("expected ErrConvertViaOperation, got %v", err)
	}
}

func TestValidateTransition_UnknownStatus(t *testing.T) {
	if err := ValidateTransition(StatusNew, Status("ARCHIVED"), ""); err != ErrUnknownStatus {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestIsTerminal(t *testing.T) {
	if StatusNew.IsTerminal() || StatusConsultationDone.IsTerminal() {
		t.Fatal("open statuses must not be terminal")
	}
	if !StatusConverted.IsTerminal() || !StatusLost.IsTerminal() {
		t.Fatal("CONVERTED and LOST must be terminal")
	}
}
