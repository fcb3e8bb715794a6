// Package scoring computes the 0-100 lead score used for prioritization.
// The score is a pure function of lead attributes and engagement counts,
// so it can always be re-derived from stored history.
package scoring

import (
	"time"

	"hospital_crm_backend/internal/leads/domain"
)

const (
	// scoreVersion tracks the scoring model for debugging and analysis.
	// Bump this when changing scoring logic significantly.
	scoreVersion = "2026-v1"

	// Leads start at a neutral base and factors add or subtract from it.
	baseScore = 35.0

	// Maximum contribution per factor category, keeping the total in 0-100.
	maxSourceContribution     = 15.0
	maxPriorityContribution   = 12.0
	maxRecencyContribution    = 15.0
	maxEngagementContribution = 25.0
	maxSurveyContribution     = 8.0
)

// Input carries everything the scoring model looks at. No field reads
// hidden state; callers assemble it from the lead row and count queries.
type Input struct {
	Source   domain.Source
	Priority domain.Priority

	// LastContactedAt is nil for leads that were never reached.
	LastContactedAt *time.Time

	ActivityCount      int
	CommunicationCount int
	CompletedTaskCount int

	// SurveyAvgRating is the mean 1-5 rating across the lead's survey
	// responses, nil when the lead never answered a survey.
	SurveyAvgRating *float64
}

// Band is the prioritization band derived from a score.
type Band string

const (
	BandLow    Band = "LOW"
	BandMedium Band = "MEDIUM"
	BandHigh   Band = "HIGH"
)

// Version returns the identifier of the current scoring model.
func Version() string { return scoreVersion }

// Compute returns the lead score, clamped to [0, 100].
func Compute(in Input, now time.Time) int {
	score := baseScore
	score += sourceFactor(in.Source)
	score += priorityFactor(in.Priority)
	score += recencyFactor(in.LastContactedAt, now)
	score += engagementFactor(in)
	score += surveyFactor(in.SurveyAvgRating)

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return int(score + 0.5)
}

// BandFor maps a score to its prioritization band:
// below 40 low, 40-69 medium, 70 and up high.
func BandFor(score int) Band {
	switch {
	case score >= 70:
		return BandHigh
	case score >= 40:
		return BandMedium
	default:
		return BandLow
	}
}

// sourceFactor rewards acquisition channels that historically convert.
// Referrals from treated patients are the strongest signal.
func sourceFactor(source domain.Source) float64 {
	switch source {
	case domain.SourceReferral:
		return maxSourceContribution
	case domain.SourceWalkIn:
		return 10
	case domain.SourceWebsite:
		return 8
	case domain.SourcePhone:
		return 6
	case domain.SourceSocialMedia:
		return 4
	case domain.SourceAdvertisement:
		return 3
	default:
		return 0
	}
}

func priorityFactor(priority domain.Priority) float64 {
	switch priority {
	case domain.PriorityUrgent:
		return maxPriorityContribution
	case domain.PriorityHigh:
		return 8
	case domain.PriorityMedium:
		return 4
	default:
		return 0
	}
}

// recencyFactor decays with time since last contact. A lead nobody has
// reached yet is mildly penalized; one gone cold for over a month more so.
func recencyFactor(lastContactedAt *time.Time, now time.Time) float64 {
	if lastContactedAt == nil {
		return -5
	}

	age := now.Sub(*lastContactedAt)
	switch {
	case age <= 48*time.Hour:
		return maxRecencyContribution
	case age <= 7*24*time.Hour:
		return 10
	case age <= 14*24*time.Hour:
		return 5
	case age <= 30*24*time.Hour:
		return 0
	default:
		return -10
	}
}

// engagementFactor counts interactions, each stream capped so a single
// noisy lead cannot max the score on volume alone.
func engagementFactor(in Input) float64 {
	contribution := capFloat(float64(in.ActivityCount)*2, 10)
	contribution += capFloat(float64(in.CommunicationCount)*2, 10)
	contribution += capFloat(float64(in.CompletedTaskCount), 5)
	return capFloat(contribution, maxEngagementContribution)
}

func surveyFactor(avgRating *float64) float64 {
	if avgRating == nil {
		return 0
	}
	switch {
	case *avgRating >= 4:
		return maxSurveyContribution
	case *avgRating <= 2:
		return -maxSurveyContribution
	default:
		return 2
	}
}

func capFloat(value, max float64) float64 {
	if value > max {
		return max
	}
	return value
}
