package api

import (
	"time"

	"example.com/footprint/internal/domain"
	"example.com/footprint/internal/usecase"
)

// LogActivityRequest is the body of POST /activities. The activity type may be sent as
// activity_type or as type; activity_type wins when both are present.
type LogActivityRequest struct {
	Category     string         `json:"category" validate:"omitempty,max=50"`
	ActivityType string         `json:"activity_type" validate:"required_without=Type,max=100"`
	Type         string         `json:"type" validate:"max=100"`
	Value        float64        `json:"value" validate:"gt=0,lte=10000"`
	Date         string         `json:"date" validate:"required,datetime=2006-01-02"`
	Notes        string         `json:"notes" validate:"max=500"`
	Metadata     map[string]any `json:"metadata"`
}

// UpdateActivityRequest is the body of PUT /activities/{id}.
type UpdateActivityRequest struct {
	ActivityType string  `json:"activity_type" validate:"required_without=Type,max=100"`
	Type         string  `json:"type" validate:"max=100"`
	Value        float64 `json:"value" validate:"gt=0,lte=10000"`
	Date         string  `json:"date" validate:"required,datetime=2006-01-02"`
	Notes        string  `json:"notes" validate:"max=500"`
}

func (r LogActivityRequest) activityType() string { return firstNonEmpty(r.ActivityType, r.Type) }

func (r UpdateActivityRequest) activityType() string { return firstNonEmpty(r.ActivityType, r.Type) }

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// FlightRequest is the body of POST /flights/calculate.
type FlightRequest struct {
	OriginIATA      string `json:"origin_iata" validate:"required,len=3,alpha"`
	DestinationIATA string `json:"destination_iata" validate:"required,len=3,alpha"`
}

// MigrateRequest is the body of POST /users/me/migrate-activities.
type MigrateRequest struct {
	SessionID string `json:"session_id" validate:"required,max=100"`
}

type footprintParams struct {
	Period      string `query:"period" validate:"oneof=day week month year all"`
	StartDate   string `query:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate     string `query:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Granularity string `query:"granularity" validate:"omitempty,oneof=daily weekly monthly"`
}

type compareParams struct {
	RegionCode string `query:"region_code" validate:"required,max=10"`
	Period     string `query:"period" validate:"oneof=month year"`
}

// ActivityView is the wire form of an activity.
type ActivityView struct {
	ID           string         `json:"id"`
	Category     string         `json:"category"`
	ActivityType string         `json:"activity_type"`
	Value        float64        `json:"value"`
	CO2eKg       float64        `json:"co2e_kg"`
	Date         string         `json:"date"`
	Notes        *string        `json:"notes"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// ListActivitiesResponse pages activities.
type ListActivitiesResponse struct {
	Items  []ActivityView `json:"items"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// EmissionFactorView is the wire form of an emission factor.
type EmissionFactorView struct {
	ID           int     `json:"id"`
	Category     string  `json:"category"`
	ActivityType string  `json:"activity_type"`
	Factor       float64 `json:"factor"`
	Unit         string  `json:"unit"`
	Source       *string `json:"source"`
}

// AirportView is the wire form of an airport.
type AirportView struct {
	IATACode    string  `json:"iata_code"`
	Name        string  `json:"name"`
	City        string  `json:"city"`
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// AirportSearchResponse lists airports matching a query.
type AirportSearchResponse struct {
	Results []AirportView `json:"results"`
}

// FlightResponse describes the distance and classification of a flight.
type FlightResponse struct {
	OriginIATA      string  `json:"origin_iata"`
	DestinationIATA string  `json:"destination_iata"`
	DistanceKm      float64 `json:"distance_km"`
	FlightType      string  `json:"flight_type"`
	IsDomestic      bool    `json:"is_domestic"`
	HaulType        string  `json:"haul_type"`
}

// SummaryResponse is the footprint summary for a period.
type SummaryResponse struct {
	Period               string  `json:"period"`
	StartDate            string  `json:"start_date"`
	EndDate              string  `json:"end_date"`
	TotalCO2eKg          float64 `json:"total_co2e_kg"`
	ActivityCount        int     `json:"activity_count"`
	PreviousPeriodCO2eKg float64 `json:"previous_period_co2e_kg"`
	ChangePercentage     float64 `json:"change_percentage"`
	AverageDailyCO2eKg   float64 `json:"average_daily_co2e_kg"`
}

// BreakdownItemView is one category of a breakdown.
type BreakdownItemView struct {
	Category      string  `json:"category"`
	CO2eKg        float64 `json:"co2e_kg"`
	Percentage    float64 `json:"percentage"`
	ActivityCount int     `json:"activity_count"`
}

// BreakdownResponse splits a period total by category.
type BreakdownResponse struct {
	Period      string              `json:"period"`
	Breakdown   []BreakdownItemView `json:"breakdown"`
	TotalCO2eKg float64             `json:"total_co2e_kg"`
}

// TrendPointView is one day of a trend.
type TrendPointView struct {
	Date          string  `json:"date"`
	CO2eKg        float64 `json:"co2e_kg"`
	ActivityCount int     `json:"activity_count"`
}

// TrendResponse is the daily emission series for a period.
type TrendResponse struct {
	Period        string           `json:"period"`
	Granularity   string           `json:"granularity"`
	DataPoints    []TrendPointView `json:"data_points"`
	TotalCO2eKg   float64          `json:"total_co2e_kg"`
	AverageCO2eKg float64          `json:"average_co2e_kg"`
}

// RegionView is the wire form of a regional benchmark.
type RegionView struct {
	Code                string  `json:"code"`
	Name                string  `json:"name"`
	AverageAnnualCO2eKg float64 `json:"average_annual_co2e_kg"`
}

// RegionListResponse lists every regional benchmark.
type RegionListResponse struct {
	Regions []RegionView `json:"regions"`
}

// ComparisonResponse compares a caller with a regional benchmark.
type ComparisonResponse struct {
	UserFootprint struct {
		Period        string  `json:"period"`
		TotalCO2eKg   float64 `json:"total_co2e_kg"`
		StartDate     string  `json:"start_date"`
		EndDate       string  `json:"end_date"`
		ActivityCount int     `json:"activity_count"`
	} `json:"user_footprint"`
	RegionalAverage struct {
		RegionCode          string  `json:"region_code"`
		RegionName          string  `json:"region_name"`
		AverageAnnualCO2eKg float64 `json:"average_annual_co2e_kg"`
	} `json:"regional_average"`
	Comparison struct {
		DifferenceKg         float64  `json:"difference_kg"`
		DifferencePercentage float64  `json:"difference_percentage"`
		Percentile           int      `json:"percentile"`
		Rating               string   `json:"rating"`
		Insights             []string `json:"insights"`
	} `json:"comparison"`
	Breakdown struct {
		UserByCategory        map[string]float64 `json:"user_by_category"`
		RegionalAvgByCategory map[string]float64 `json:"regional_avg_by_category"`
	} `json:"breakdown"`
}

// UserView is the wire form of a user.
type UserView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// MigrateResponse reports how many session activities moved to the user.
type MigrateResponse struct {
	SessionID     string `json:"session_id"`
	MigratedCount int    `json:"migrated_count"`
}

func formatDate(t time.Time) string { return t.Format(domain.DateLayout) }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toActivityView(a domain.Activity) ActivityView {
	return ActivityView{
		ID:           a.ID,
		Category:     a.Category,
		ActivityType: a.Type,
		Value:        a.Value,
		CO2eKg:       a.CO2eKg,
		Date:         formatDate(a.Date),
		Notes:        optional(a.Notes),
		Metadata:     a.Metadata,
		CreatedAt:    a.CreatedAt,
	}
}

func toAirportView(a domain.Airport) AirportView {
	return AirportView{
		IATACode:    a.IATACode,
		Name:        a.Name,
		City:        a.City,
		Country:     a.Country,
		CountryCode: a.CountryCode,
		Latitude:    a.Latitude,
		Longitude:   a.Longitude,
	}
}

func toComparisonResponse(res usecase.CompareResult) ComparisonResponse {
	var out ComparisonResponse
	out.UserFootprint.Period = res.UserFootprint.Period
	out.UserFootprint.TotalCO2eKg = res.UserFootprint.TotalCO2eKg
	out.UserFootprint.StartDate = formatDate(res.UserFootprint.StartDate)
	out.UserFootprint.EndDate = formatDate(res.UserFootprint.EndDate)
	out.UserFootprint.ActivityCount = res.UserFootprint.ActivityCount

	out.RegionalAverage.RegionCode = res.RegionalAverage.Code
	out.RegionalAverage.RegionName = res.RegionalAverage.Name
	out.RegionalAverage.AverageAnnualCO2eKg = res.RegionalAverage.AverageAnnualCO2eKg

	out.Comparison.DifferenceKg = res.Comparison.DifferenceKg
	out.Comparison.DifferencePercentage = res.Comparison.DifferencePercentage
	out.Comparison.Percentile = res.Comparison.Percentile
	out.Comparison.Rating = string(res.Comparison.Rating)
	out.Comparison.Insights = res.Comparison.Insights
	if out.Comparison.Insights == nil {
		out.Comparison.Insights = []string{}
	}

	out.Breakdown.UserByCategory = res.Breakdown.UserByCategory.Map()
	out.Breakdown.RegionalAvgByCategory = res.Breakdown.RegionalAvgByCategory
	if out.Breakdown.RegionalAvgByCategory == nil {
		out.Breakdown.RegionalAvgByCategory = map[string]float64{}
	}
	return out
}
