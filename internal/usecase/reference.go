package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"example.com/footprint/internal/domain"
	"example.com/footprint/internal/footprint"
)

// CompareInput selects the region and period to compare against.
type CompareInput struct {
	Owner      domain.Owner
	RegionCode string
	Period     string
}

// UserFootprint is the caller's side of a comparison.
type UserFootprint struct {
	Period        string
	TotalCO2eKg   float64
	StartDate     time.Time
	EndDate       time.Time
	ActivityCount int
}

// RegionSummary is the benchmark side of a comparison.
type RegionSummary struct {
	Code                string
	Name                string
	AverageAnnualCO2eKg float64
}

// ComparisonMetrics are the derived comparison figures.
type ComparisonMetrics struct {
	DifferenceKg         float64
	DifferencePercentage float64
	Percentile           int
	Rating               footprint.Rating
	Insights             []string
}

// CategoryComparison pairs user and regional per-category totals.
type CategoryComparison struct {
	UserByCategory        footprint.CategoryTotals
	RegionalAvgByCategory map[string]float64
}

// CompareResult is the full regional comparison.
type CompareResult struct {
	UserFootprint   UserFootprint
	RegionalAverage RegionSummary
	Comparison      ComparisonMetrics
	Breakdown       CategoryComparison
}

// CompareToRegion benchmarks the caller's footprint against a regional average.
type CompareToRegion struct {
	activities domain.ActivityRepository
	regions    domain.RegionDataProvider
	opts       options
}

// NewCompareToRegion constructs a CompareToRegion.
func NewCompareToRegion(activities domain.ActivityRepository, regions domain.RegionDataProvider, opts ...Option) *CompareToRegion {
	return &CompareToRegion{activities: activities, regions: regions, opts: buildOptions(opts)}
}

// Execute resolves the region first; an unknown code is a validation error.
func (uc *CompareToRegion) Execute(ctx context.Context, in CompareInput) (CompareResult, error) {
	region, err := uc.regions.GetByCode(ctx, in.RegionCode)
	if err != nil {
		return CompareResult{}, fmt.Errorf("get region: %w", err)
	}
	if region == nil {
		return CompareResult{}, domain.NewValidationError("region_code", "invalid region code: %s", in.RegionCode)
	}
	if err := in.Owner.Validate(); err != nil {
		return CompareResult{}, err
	}

	periodName := in.Period
	if periodName == "" {
		periodName = footprint.PeriodYear
	}
	period := footprint.GetPeriodDates(periodName, uc.opts.now())

	acts, err := uc.activities.ListByDateRange(ctx, in.Owner, period.Start, period.End)
	if err != nil {
		return CompareResult{}, fmt.Errorf("list activities: %w", err)
	}

	total := footprint.CalculateTotalCO2e(acts)
	byCategory := footprint.CalculateBreakdownByCategory(acts)

	diffKg, diffPct := footprint.CalculateDifference(total, region.AverageAnnualCO2eKg)
	percentile := footprint.CalculatePercentile(total, region.AverageAnnualCO2eKg)

	return CompareResult{
		UserFootprint: UserFootprint{
			Period:        periodName,
			TotalCO2eKg:   total,
			StartDate:     period.Start,
			EndDate:       period.End,
			ActivityCount: len(acts),
		},
		RegionalAverage: RegionSummary{
			Code:                region.Code,
			Name:                region.Name,
			AverageAnnualCO2eKg: region.AverageAnnualCO2eKg,
		},
		Comparison: ComparisonMetrics{
			DifferenceKg:         diffKg,
			DifferencePercentage: diffPct,
			Percentile:           percentile,
			Rating:               footprint.GetRating(percentile),
			Insights:             footprint.GenerateInsights(byCategory.Map(), region.Breakdown),
		},
		Breakdown: CategoryComparison{
			UserByCategory:        byCategory,
			RegionalAvgByCategory: region.Breakdown,
		},
	}, nil
}

// CalculateFlightInput names two airports by IATA code.
type CalculateFlightInput struct {
	OriginIATA      string
	DestinationIATA string
}

// FlightResult classifies a flight between two airports.
type FlightResult struct {
	Origin      domain.Airport
	Destination domain.Airport
	DistanceKm  float64
	FlightType  string
	IsDomestic  bool
	HaulType    string
}

// CalculateFlight computes distance and classification for a flight.
type CalculateFlight struct {
	airports domain.AirportRepository
}

// NewCalculateFlight constructs a CalculateFlight.
func NewCalculateFlight(airports domain.AirportRepository) *CalculateFlight {
	return &CalculateFlight{airports: airports}
}

// Execute resolves origin before destination and classifies the route.
func (uc *CalculateFlight) Execute(ctx context.Context, in CalculateFlightInput) (FlightResult, error) {
	origin, err := uc.airport(ctx, in.OriginIATA)
	if err != nil {
		return FlightResult{}, err
	}
	destination, err := uc.airport(ctx, in.DestinationIATA)
	if err != nil {
		return FlightResult{}, err
	}

	distance := footprint.CalculateDistanceKm(origin, destination)
	flightType := footprint.DetermineFlightType(origin, destination, distance)

	return FlightResult{
		Origin:      origin,
		Destination: destination,
		DistanceKm:  distance,
		FlightType:  flightType,
		IsDomestic:  footprint.IsDomestic(flightType),
		HaulType:    footprint.ExtractHaulType(flightType),
	}, nil
}

func (uc *CalculateFlight) airport(ctx context.Context, code string) (domain.Airport, error) {
	code = normalizeIATA(code)
	airport, err := uc.airports.GetByIATA(ctx, code)
	if err != nil {
		return domain.Airport{}, fmt.Errorf("get airport: %w", err)
	}
	if airport == nil {
		return domain.Airport{}, domain.NewNotFoundError("airport", code)
	}
	return *airport, nil
}

// Airport search bounds.
const (
	MinAirportQueryLength = 2
	DefaultAirportLimit   = 10
	MaxAirportLimit       = 50
)

// SearchAirports finds airports by code, city or name.
type SearchAirports struct {
	airports domain.AirportRepository
}

// NewSearchAirports constructs a SearchAirports.
func NewSearchAirports(airports domain.AirportRepository) *SearchAirports {
	return &SearchAirports{airports: airports}
}

// Execute validates the query and limit before searching.
func (uc *SearchAirports) Execute(ctx context.Context, query string, limit int) ([]domain.Airport, error) {
	query = strings.TrimSpace(query)
	if len(query) < MinAirportQueryLength {
		return nil, domain.NewValidationError("q", "must be at least %d characters", MinAirportQueryLength)
	}
	if limit == 0 {
		limit = DefaultAirportLimit
	}
	if limit < 1 || limit > MaxAirportLimit {
		return nil, domain.NewValidationError("limit", "must be between 1 and %d", MaxAirportLimit)
	}
	return uc.airports.Search(ctx, query, limit)
}

// ListEmissionFactors returns emission factors, optionally filtered by category.
type ListEmissionFactors struct {
	factors domain.EmissionFactorRepository
}

// NewListEmissionFactors constructs a ListEmissionFactors.
func NewListEmissionFactors(factors domain.EmissionFactorRepository) *ListEmissionFactors {
	return &ListEmissionFactors{factors: factors}
}

// Execute lists all factors when category is empty.
func (uc *ListEmissionFactors) Execute(ctx context.Context, category string) ([]domain.EmissionFactor, error) {
	if strings.TrimSpace(category) == "" {
		return uc.factors.GetAll(ctx)
	}
	return uc.factors.ListByCategory(ctx, category)
}

// ListRegions returns every regional benchmark.
type ListRegions struct {
	regions domain.RegionDataProvider
}

// NewListRegions constructs a ListRegions.
func NewListRegions(regions domain.RegionDataProvider) *ListRegions {
	return &ListRegions{regions: regions}
}

// Execute lists the regions.
func (uc *ListRegions) Execute(ctx context.Context) ([]domain.RegionalAverage, error) {
	return uc.regions.ListAll(ctx)
}

// GetCurrentUserInput carries the identity extracted from a verified token.
type GetCurrentUserInput struct {
	UserID string
	Email  string
}

// GetCurrentUser returns the caller's profile, creating it on first sight.
type GetCurrentUser struct {
	users domain.UserRepository
	opts  options
}

// NewGetCurrentUser constructs a GetCurrentUser.
func NewGetCurrentUser(users domain.UserRepository, opts ...Option) *GetCurrentUser {
	return &GetCurrentUser{users: users, opts: buildOptions(opts)}
}

// Execute reads the profile, or stores a new one built from the token claims.
func (uc *GetCurrentUser) Execute(ctx context.Context, in GetCurrentUserInput) (domain.User, error) {
	existing, err := uc.users.GetByID(ctx, in.UserID)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	if existing != nil {
		return *existing, nil
	}

	user, err := domain.NewUser(domain.User{ID: in.UserID, Email: in.Email, CreatedAt: uc.opts.now()})
	if err != nil {
		return domain.User{}, err
	}
	stored, err := uc.users.Upsert(ctx, user)
	if err != nil {
		return domain.User{}, fmt.Errorf("store user: %w", err)
	}
	return stored, nil
}
