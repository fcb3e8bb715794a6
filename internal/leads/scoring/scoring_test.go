package scoring

import (
	"testing"
	"time"

	"hospital_crm_backend/internal/leads/domain"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func hoursAgo(h int) *time.Time {
	t := now.Add(-time.Duration(h) * time.Hour)
	return &t
}

func TestCompute_AlwaysWithinBounds(t *testing.T) {
	inputs := []Input{
		{}, // zero value: unknown source, no contact, no engagement
		{
			Source:             domain.SourceReferral,
			Priority:           domain.PriorityUrgent,
			LastContactedAt:    hoursAgo(1),
			ActivityCount:      100,
			CommunicationCount: 100,
			CompletedTaskCount: 100,
			SurveyAvgRating:    ptr(5.0),
		},
		{
			Source:          domain.SourceOther,
			Priority:        domain.PriorityLow,
			LastContactedAt: hoursAgo(24 * 90),
			SurveyAvgRating: ptr(1.0),
		},
	}

	for i, in := range inputs {
		score := Compute(in, now)
		if score < 0 || score > 100 {
			t.Fatalf("input %d: score %d out of [0, 100]", i, score)
		}
	}
}

func TestCompute_ReferralBeatsAdvertisement(t *testing.T) {
	base := Input{Priority: domain.PriorityMedium, LastContactedAt: hoursAgo(24)}

	referral := base
	referral.Source = domain.SourceReferral
	ad := base
	ad.Source = domain.SourceAdvertisement

	if Compute(referral, now) <= Compute(ad, now) {
		t.Fatal("referral lead should outscore advertisement lead")
	}
}

func TestCompute_EngagementContributionCapped(t *testing.T) {
	busy := Input{ActivityCount: 5, CommunicationCount: 5, CompletedTaskCount: 5}
	frantic := Input{ActivityCount: 500, CommunicationCount: 500, CompletedTaskCount: 500}

	if Compute(frantic, now) != Compute(busy, now) {
		t.Fatal("engagement volume beyond the cap must not raise the score")
	}
}

func TestCompute_ColdLeadPenalized(t *testing.T) {
	fresh := Input{Source: domain.SourceWebsite, LastContactedAt: hoursAgo(6)}
	cold := Input{Source: domain.SourceWebsite, LastContactedAt: hoursAgo(24 * 60)}

	if Compute(fresh, now) <= Compute(cold, now) {
		t.Fatal("recently contacted lead should outscore a cold one")
	}
}

func TestCompute_IsPure(t *testing.T) {
	in := Input{
		Source:             domain.SourceWalkIn,
		Priority:           domain.PriorityHigh,
		LastContactedAt:    hoursAgo(72),
		ActivityCount:      3,
		CommunicationCount: 2,
	}

	first := Compute(in, now)
	for i := 0; i < 10; i++ {
		if got := Compute(in, now); got != first {
			t.Fatalf("same input produced different scores: %d vs %d", first, got)
		}
	}
}

func TestBandFor(t *testing.T) {
	cases := []struct {
		score int
		want  Band
	}{
		{0, BandLow},
		{39, BandLow},
		{40, BandMedium},
		{69, BandMedium},
		{70, BandHigh},
		{100, BandHigh},
	}

	for _, tc := range cases {
		if got := BandFor(tc.score); got != tc.want {
			t.Fatalf("BandFor(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func ptr(f float64) *float64 { return &f }
