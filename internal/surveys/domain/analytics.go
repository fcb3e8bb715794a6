// Package domain implements survey response aggregation. Every function
// here is pure: the same responses always produce the same snapshot.
package domain

import "math"

// Sentiment buckets a response by satisfaction.
type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
	SentimentNegative Sentiment = "NEGATIVE"
)

// Response is the analytics view of one survey submission. Rating, NPS,
// and sentiment are optional per question; a skipped question is nil,
// never zero.
type Response struct {
	OverallRating    *int
	NPSScore         *int
	Sentiment        *Sentiment
	RequiresFollowUp bool
}

// SentimentFor buckets a 1-5 rating: 4-5 positive, 3 neutral, 1-2 negative.
func SentimentFor(rating int) Sentiment {
	switch {
	case rating >= 4:
		return SentimentPositive
	case rating == 3:
		return SentimentNeutral
	default:
		return SentimentNegative
	}
}

// EffectiveSentiment resolves a response's bucket: the stored sentiment
// wins, a rated response without one falls back to the rating-derived
// bucket, and a response with neither has no bucket.
func EffectiveSentiment(r Response) (Sentiment, bool) {
	if r.Sentiment != nil {
		return *r.Sentiment, true
	}
	if r.OverallRating != nil {
		return SentimentFor(*r.OverallRating), true
	}
	return "", false
}

// AverageRating returns the mean of the non-nil ratings, or nil when no
// response carries a rating. Skipped ratings are excluded from the
// denominator, not treated as zeros.
func AverageRating(responses []Response) *float64 {
	sum, n := 0, 0
	for _, r := range responses {
		if r.OverallRating != nil {
			sum += *r.OverallRating
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := float64(sum) / float64(n)
	return &avg
}

// NPS computes the net promoter score over the non-nil NPS answers:
// promoters (9-10) minus detractors (0-6) as a share of all answers,
// rounded to the nearest integer. Nil when no response answered the NPS
// question.
func NPS(responses []Response) *int {
	promoters, detractors, total := 0, 0, 0
	for _, r := range responses {
		if r.NPSScore == nil {
			continue
		}
		total++
		switch {
		case *r.NPSScore >= 9:
			promoters++
		case *r.NPSScore <= 6:
			detractors++
		}
	}
	if total == 0 {
		return nil
	}
	score := int(math.Round(float64(promoters-detractors) / float64(total) * 100))
	return &score
}

// SentimentCount is one sentiment bucket with its integer-rounded share.
type SentimentCount struct {
	Sentiment  Sentiment `json:"sentiment"`
	Count      int       `json:"count"`
	Percentage int       `json:"percentage"`
}

// SentimentDistribution buckets responses by their effective sentiment.
// Percentages are shares of all responses, not just the bucketed ones,
// so unclassified responses dilute every bucket. All three buckets are
// always present, zero-valued when empty.
func SentimentDistribution(responses []Response) []SentimentCount {
	counts := map[Sentiment]int{}
	for _, r := range responses {
		if s, ok := EffectiveSentiment(r); ok {
			counts[s]++
		}
	}

	total := len(responses)
	out := make([]SentimentCount, 0, 3)
	for _, s := range []Sentiment{SentimentPositive, SentimentNeutral, SentimentNegative} {
		sc := SentimentCount{Sentiment: s, Count: counts[s]}
		if total > 0 {
			sc.Percentage = int(math.Round(float64(counts[s]) / float64(total) * 100))
		}
		out = append(out, sc)
	}
	return out
}

// RatingHistogram counts responses per rating value. Buckets 1 through 5
// are always present so an unused rating reads as an explicit zero.
type RatingBucket struct {
	Rating int `json:"rating"`
	Count  int `json:"count"`
}

func RatingHistogram(responses []Response) []RatingBucket {
	buckets := make([]RatingBucket, 5)
	for i := range buckets {
		buckets[i].Rating = i + 1
	}
	for _, r := range responses {
		if r.OverallRating == nil {
			continue
		}
		if v := *r.OverallRating; v >= 1 && v <= 5 {
			buckets[v-1].Count++
		}
	}
	return buckets
}

// Snapshot is the full analytics view of one survey's responses.
type Snapshot struct {
	TotalResponses int              `json:"totalResponses"`
	AverageRating  *float64         `json:"averageRating"`
	NPS            *int             `json:"nps"`
	Sentiment      []SentimentCount `json:"sentiment"`
	Histogram      []RatingBucket   `json:"histogram"`
	FollowUpsDue   int              `json:"followUpsDue"`
}

// Aggregate computes the snapshot in one pass over the responses.
func Aggregate(responses []Response) Snapshot {
	followUps := 0
	for _, r := range responses {
		if r.RequiresFollowUp {
			followUps++
		}
	}
	return Snapshot{
		TotalResponses: len(responses),
		AverageRating:  AverageRating(responses),
		NPS:            NPS(responses),
		Sentiment:      SentimentDistribution(responses),
		Histogram:      RatingHistogram(responses),
		FollowUpsDue:   followUps,
	}
}
