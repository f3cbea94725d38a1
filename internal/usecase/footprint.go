package usecase

import (
	"context"
	"fmt"
	"time"

	"example.com/footprint/internal/domain"
	"example.com/footprint/internal/footprint"
)

// Trend granularity labels.
const (
	GranularityDaily   = "daily"
	GranularityWeekly  = "weekly"
	GranularityMonthly = "monthly"
)

// SummaryResult is the headline view of a period.
type SummaryResult struct {
	Period               string
	StartDate            time.Time
	EndDate              time.Time
	TotalCO2eKg          float64
	ActivityCount        int
	PreviousPeriodCO2eKg float64
	ChangePercentage     float64
	AverageDailyCO2eKg   float64
}

// GetFootprintSummary totals a period and compares it with the preceding period of equal
// length.
type GetFootprintSummary struct {
	activities domain.ActivityRepository
	opts       options
}

// NewGetFootprintSummary constructs a GetFootprintSummary.
func NewGetFootprintSummary(activities domain.ActivityRepository, opts ...Option) *GetFootprintSummary {
	return &GetFootprintSummary{activities: activities, opts: buildOptions(opts)}
}

// Execute computes the summary.
func (uc *GetFootprintSummary) Execute(ctx context.Context, q FootprintQuery) (SummaryResult, error) {
	if err := q.Owner.Validate(); err != nil {
		return SummaryResult{}, err
	}
	period := q.resolve(uc.opts.now())

	current, err := uc.activities.ListByDateRange(ctx, q.Owner, period.Start, period.End)
	if err != nil {
		return SummaryResult{}, fmt.Errorf("list current period: %w", err)
	}
	total := footprint.CalculateTotalCO2e(current)

	prevPeriod := period.Previous()
	previous, err := uc.activities.ListByDateRange(ctx, q.Owner, prevPeriod.Start, prevPeriod.End)
	if err != nil {
		return SummaryResult{}, fmt.Errorf("list previous period: %w", err)
	}
	prevTotal := footprint.CalculateTotalCO2e(previous)

	var change float64
	switch {
	case prevTotal > 0:
		change = (total - prevTotal) / prevTotal * 100
	case total > 0:
		change = 100
	}

	days := period.Days()
	var avgDaily float64
	if days > 0 {
		avgDaily = total / float64(days)
	}

	return SummaryResult{
		Period:               q.Period,
		StartDate:            period.Start,
		EndDate:              period.End,
		TotalCO2eKg:          total,
		ActivityCount:        len(current),
		PreviousPeriodCO2eKg: prevTotal,
		ChangePercentage:     domain.Round(change, 2),
		AverageDailyCO2eKg:   domain.Round(avgDaily, 2),
	}, nil
}

// BreakdownItem is one category's share of a period.
type BreakdownItem struct {
	Category      string
	CO2eKg        float64
	Percentage    float64
	ActivityCount int
}

// BreakdownResult groups a period by category.
type BreakdownResult struct {
	Period      string
	StartDate   time.Time
	EndDate     time.Time
	Items       []BreakdownItem
	TotalCO2eKg float64
}

// GetFootprintBreakdown groups a period's emissions by category.
type GetFootprintBreakdown struct {
	activities domain.ActivityRepository
	opts       options
}

// NewGetFootprintBreakdown constructs a GetFootprintBreakdown.
func NewGetFootprintBreakdown(activities domain.ActivityRepository, opts ...Option) *GetFootprintBreakdown {
	return &GetFootprintBreakdown{activities: activities, opts: buildOptions(opts)}
}

// Execute computes per-category totals and their share of the period total.
func (uc *GetFootprintBreakdown) Execute(ctx context.Context, q FootprintQuery) (BreakdownResult, error) {
	if err := q.Owner.Validate(); err != nil {
		return BreakdownResult{}, err
	}
	period := q.resolve(uc.opts.now())

	acts, err := uc.activities.ListByDateRange(ctx, q.Owner, period.Start, period.End)
	if err != nil {
		return BreakdownResult{}, fmt.Errorf("list activities: %w", err)
	}

	totals := footprint.CalculateBreakdownByCategory(acts)
	counts := footprint.CountByCategory(acts)
	total := footprint.CalculateTotalCO2e(acts)

	items := make([]BreakdownItem, 0, len(totals))
	for _, t := range totals {
		var pct float64
		if total > 0 {
			pct = t.CO2eKg / total * 100
		}
		items = append(items, BreakdownItem{
			Category:      t.Category,
			CO2eKg:        t.CO2eKg,
			Percentage:    domain.Round(pct, 1),
			ActivityCount: counts[t.Category],
		})
	}

	return BreakdownResult{
		Period:      q.Period,
		StartDate:   period.Start,
		EndDate:     period.End,
		Items:       items,
		TotalCO2eKg: total,
	}, nil
}

// TrendInput adds an optional granularity label to a footprint query.
type TrendInput struct {
	FootprintQuery
	Granularity string
}

// TrendResult is a zero-filled daily series.
type TrendResult struct {
	Period        string
	Granularity   string
	StartDate     time.Time
	EndDate       time.Time
	DataPoints    []footprint.DailyPoint
	TotalCO2eKg   float64
	AverageCO2eKg float64
}

// GetFootprintTrend produces a per-day series over a period.
type GetFootprintTrend struct {
	activities domain.ActivityRepository
	opts       options
}

// NewGetFootprintTrend constructs a GetFootprintTrend.
func NewGetFootprintTrend(activities domain.ActivityRepository, opts ...Option) *GetFootprintTrend {
	return &GetFootprintTrend{activities: activities, opts: buildOptions(opts)}
}

// Execute builds the series. The granularity is reported as a label only; points are
// always bucketed per calendar day.
func (uc *GetFootprintTrend) Execute(ctx context.Context, in TrendInput) (TrendResult, error) {
	if err := in.Owner.Validate(); err != nil {
		return TrendResult{}, err
	}
	period := in.resolve(uc.opts.now())

	granularity := in.Granularity
	if granularity == "" {
		granularity = autoGranularity(in.Period)
	}

	acts, err := uc.activities.ListByDateRange(ctx, in.Owner, period.Start, period.End)
	if err != nil {
		return TrendResult{}, fmt.Errorf("list activities: %w", err)
	}

	points := footprint.CalculateDailyTrend(acts, period.Start, period.End)
	total := footprint.CalculateTotalCO2e(acts)
	var avg float64
	if len(points) > 0 {
		avg = total / float64(len(points))
	}

	return TrendResult{
		Period:        in.Period,
		Granularity:   granularity,
		StartDate:     period.Start,
		EndDate:       period.End,
		DataPoints:    points,
		TotalCO2eKg:   total,
		AverageCO2eKg: domain.Round(avg, 2),
	}, nil
}

func autoGranularity(period string) string {
	switch period {
	case footprint.PeriodDay, footprint.PeriodWeek, footprint.PeriodMonth:
		return GranularityDaily
	case footprint.PeriodYear:
		return GranularityWeekly
	default:
		return GranularityMonthly
	}
}
