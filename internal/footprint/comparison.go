package footprint

import (
	"fmt"
	"math"

	"example.com/footprint/internal/domain"
)

// Rating is the qualitative bucket for a percentile.
type Rating string

const (
	RatingExcellent    Rating = "excellent"
	RatingGood         Rating = "good"
	RatingAverage      Rating = "average"
	RatingAboveAverage Rating = "above_average"
	RatingHigh         Rating = "high"
)

const maxInsights = 5

// insightCategories are checked in this order.
var insightCategories = []string{domain.CategoryTransport, domain.CategoryEnergy, domain.CategoryFood}

// percentileSteps maps an upper bound on user/average to a percentile. Lower is better.
var percentileSteps = []struct {
	maxRatio   float64
	percentile int
}{
	{0.5, 10},
	{0.75, 25},
	{0.9, 40},
	{1.1, 50},
	{1.25, 60},
	{1.5, 75},
	{2.0, 90},
}

// CalculateDifference returns user-avg in kg and as a percentage of avg, both rounded to two
// decimals. The percentage is zero when avg is not positive.
func CalculateDifference(userValue, regionalAvg float64) (float64, float64) {
	diffKg := userValue - regionalAvg
	diffPct := 0.0
	if regionalAvg > 0 {
		diffPct = diffKg / regionalAvg * 100
	}
	return domain.Round(diffKg, 2), domain.Round(diffPct, 2)
}

// CalculatePercentile estimates where the user sits against the regional average using a
// fixed staircase over user/avg. It is not a statistical percentile.
func CalculatePercentile(userValue, regionalAvg float64) int {
	ratio := 1.0
	if regionalAvg > 0 {
		ratio = userValue / regionalAvg
	}
	for _, step := range percentileSteps {
		if ratio <= step.maxRatio {
			return step.percentile
		}
	}
	return 95
}

// GetRating maps a percentile to a rating.
func GetRating(percentile int) Rating {
	switch {
	case percentile <= 25:
		return RatingExcellent
	case percentile <= 50:
		return RatingGood
	case percentile <= 75:
		return RatingAverage
	case percentile <= 90:
		return RatingAboveAverage
	default:
		return RatingHigh
	}
}

// GenerateInsights compares the user's per-category totals against the regional breakdown
// and returns at most five messages, in transport, energy, food order.
func GenerateInsights(userBreakdown, regionalBreakdown map[string]float64) []string {
	insights := make([]string, 0, len(insightCategories))
	for _, category := range insightCategories {
		regional := regionalBreakdown[category]
		if regional <= 0 {
			continue
		}
		user := userBreakdown[category]
		pct := (user - regional) / regional * 100

		switch {
		case pct < -30:
			insights = append(insights, fmt.Sprintf("Your %s emissions are excellent - %.0f%% below average!", category, math.Abs(pct)))
		case pct < -10:
			insights = append(insights, fmt.Sprintf("Your %s emissions are below average. Great work!", category))
		case pct > 30:
			insights = append(insights, fmt.Sprintf("Your %s emissions are %.0f%% above average. Consider ways to reduce them.", category, pct))
		}
	}
	if len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}
	return insights
}
