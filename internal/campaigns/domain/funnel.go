package domain

// Stage is a recipient's position in the delivery funnel. Stages only
// move forward; a report for an earlier stage is a duplicate and ignored.
type Stage string

const (
	StagePending   Stage = "PENDING"
	StageSent      Stage = "SENT"
	StageDelivered Stage = "DELIVERED"
	StageOpened    Stage = "OPENED"
	StageClicked   Stage = "CLICKED"
	StageFailed    Stage = "FAILED"
)

var stageRank = map[Stage]int{
	StagePending:   0,
	StageSent:      1,
	StageDelivered: 2,
	StageOpened:    3,
	StageClicked:   4,
}

// funnelOrder lists the forward funnel stages after PENDING.
var funnelOrder = []Stage{StageSent, StageDelivered, StageOpened, StageClicked}

// Rank returns the stage's funnel depth. FAILED has no rank; it is
// terminal from PENDING or SENT.
func (s Stage) Rank() (int, bool) {
	r, ok := stageRank[s]
	return r, ok
}

// StagesNewlyReached returns the funnel stages a recipient passes through
// when a report moves it from current to reported. Collaborators report
// out of order: an OPENED report for a recipient still at SENT implies
// DELIVERED, so both stages count. A report at or behind current yields
// nothing, which is what makes ingestion idempotent.
func StagesNewlyReached(current, reported Stage) []Stage {
	curRank, ok := current.Rank()
	if !ok {
		return nil
	}
	repRank, ok := reported.Rank()
	if !ok || repRank <= curRank {
		return nil
	}
	return funnelOrder[curRank:repRank]
}

// Funnel is a campaign's counter set. Counters are monotonically
// non-decreasing and ordered clicked <= opened <= delivered <= sent <=
// totalRecipients; ingestion preserves the ordering by counting implied
// intermediate stages.
type Funnel struct {
	TotalRecipients int
	Sent            int
	Delivered       int
	Opened          int
	Clicked         int
	Responded       int
	Converted       int
	Failed          int
}

// Rates are the funnel's derived fractions, each in [0, 1]. Each rate
// guards its denominator: no sends means a 0 delivery rate, not a
// division error.
type Rates struct {
	DeliveryRate   float64 `json:"deliveryRate"`
	OpenRate       float64 `json:"openRate"`
	ClickRate      float64 `json:"clickRate"`
	ResponseRate   float64 `json:"responseRate"`
	ConversionRate float64 `json:"conversionRate"`
}

// ComputeRates derives fractions from the funnel counters. Conversion
// is measured against sends, not the full audience snapshot.
func ComputeRates(f Funnel) Rates {
	return Rates{
		DeliveryRate:   ratio(f.Delivered, f.Sent),
		OpenRate:       ratio(f.Opened, f.Delivered),
		ClickRate:      ratio(f.Clicked, f.Opened),
		ResponseRate:   ratio(f.Responded, f.Delivered),
		ConversionRate: ratio(f.Converted, f.Sent),
	}
}

func ratio(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}
