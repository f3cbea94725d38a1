package footprint

import (
	"time"

	"example.com/footprint/internal/domain"
)

// Period names accepted by GetPeriodDates.
const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
	PeriodAll   = "all"
)

var (
	allTimeStart = domain.NewDate(2020, time.January, 1)
	allTimeEnd   = domain.NewDate(2030, time.December, 31)
)

// CategoryTotal is the summed CO2e of one category.
type CategoryTotal struct {
	Category string
	CO2eKg   float64
}

// CategoryTotals keeps categories in first-occurrence order.
type CategoryTotals []CategoryTotal

// Get returns the total for category, or zero.
func (c CategoryTotals) Get(category string) float64 {
	for _, item := range c {
		if item.Category == category {
			return item.CO2eKg
		}
	}
	return 0
}

// Map returns the totals keyed by category.
func (c CategoryTotals) Map() map[string]float64 {
	out := make(map[string]float64, len(c))
	for _, item := range c {
		out[item.Category] = item.CO2eKg
	}
	return out
}

// DailyPoint is one day of a trend.
type DailyPoint struct {
	Date   time.Time
	CO2eKg float64
	Count  int
}

// CalculateTotalCO2e sums the emissions of activities, rounded to two decimals.
func CalculateTotalCO2e(activities []domain.Activity) float64 {
	var total float64
	for _, a := range activities {
		total += a.CO2eKg
	}
	return domain.Round(total, 2)
}

// CalculateBreakdownByCategory sums emissions per category. Each total is rounded
// independently.
func CalculateBreakdownByCategory(activities []domain.Activity) CategoryTotals {
	index := make(map[string]int)
	out := make(CategoryTotals, 0)
	for _, a := range activities {
		i, ok := index[a.Category]
		if !ok {
			i = len(out)
			index[a.Category] = i
			out = append(out, CategoryTotal{Category: a.Category})
		}
		out[i].CO2eKg += a.CO2eKg
	}
	for i := range out {
		out[i].CO2eKg = domain.Round(out[i].CO2eKg, 2)
	}
	return out
}

// CountByCategory counts activities per category.
func CountByCategory(activities []domain.Activity) map[string]int {
	out := make(map[string]int)
	for _, a := range activities {
		out[a.Category]++
	}
	return out
}

// CalculateDailyTrend returns one point per calendar day in [start, end], zero-filled and
// sorted ascending. Activities outside the range are ignored. An inverted range yields no
// points.
func CalculateDailyTrend(activities []domain.Activity, start, end time.Time) []DailyPoint {
	start, end = domain.DateOf(start), domain.DateOf(end)
	if end.Before(start) {
		return []DailyPoint{}
	}

	points := make([]DailyPoint, 0, int(end.Sub(start).Hours()/24)+1)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		points = append(points, DailyPoint{Date: day})
	}

	for _, a := range activities {
		day := domain.DateOf(a.Date)
		if day.Before(start) || day.After(end) {
			continue
		}
		i := int(day.Sub(start).Hours() / 24)
		points[i].CO2eKg += a.CO2eKg
		points[i].Count++
	}
	for i := range points {
		points[i].CO2eKg = domain.Round(points[i].CO2eKg, 2)
	}
	return points
}

// GetPeriodDates resolves a named period around ref. Unknown names resolve like "all".
func GetPeriodDates(period string, ref time.Time) domain.Period {
	ref = domain.DateOf(ref)
	switch period {
	case PeriodDay:
		return domain.Period{Start: ref, End: ref}
	case PeriodWeek:
		// Monday-based week.
		offset := (int(ref.Weekday()) + 6) % 7
		start := ref.AddDate(0, 0, -offset)
		return domain.Period{Start: start, End: start.AddDate(0, 0, 6)}
	case PeriodMonth:
		start := domain.NewDate(ref.Year(), ref.Month(), 1)
		return domain.Period{Start: start, End: start.AddDate(0, 1, -1)}
	case PeriodYear:
		return domain.Period{
			Start: domain.NewDate(ref.Year(), time.January, 1),
			End:   domain.NewDate(ref.Year(), time.December, 31),
		}
	default:
		return domain.Period{Start: allTimeStart, End: allTimeEnd}
	}
}
