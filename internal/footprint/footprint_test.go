package footprint

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/footprint/internal/domain"
)

var (
	jfk = domain.Airport{IATACode: "JFK", ICAOCode: "KJFK", CountryCode: "US", Latitude: 40.6413, Longitude: -73.7781}
	lhr = domain.Airport{IATACode: "LHR", ICAOCode: "EGLL", CountryCode: "GB", Latitude: 51.4700, Longitude: -0.4543}
	lax = domain.Airport{IATACode: "LAX", ICAOCode: "KLAX", CountryCode: "US", Latitude: 33.9425, Longitude: -118.408}
	bos = domain.Airport{IATACode: "BOS", ICAOCode: "KBOS", CountryCode: "US", Latitude: 42.3656, Longitude: -71.0096}
)

func activity(t *testing.T, id, category string, co2e float64, date time.Time) domain.Activity {
	t.Helper()
	a, err := domain.NewActivity(domain.ActivityParams{
		ID:       id,
		Category: category,
		Type:     "test",
		Value:    1,
		CO2eKg:   co2e,
		Date:     date,
		Owner:    domain.Owner{SessionID: "sess"},
	})
	require.NoError(t, err)
	return a
}

func TestCalculateCO2e(t *testing.T) {
	bus := domain.EmissionFactor{Type: "bus", Category: domain.CategoryTransport, Factor: 0.089}

	got, err := CalculateCO2e(15, bus)
	require.NoError(t, err)
	require.Equal(t, 1.33, got)

	got, err = CalculateCO2e(0, bus)
	require.NoError(t, err)
	require.Equal(t, 0.0, got)

	_, err = CalculateCO2e(-1, bus)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestCalculateCO2eMatchesRoundedProduct(t *testing.T) {
	factors := []float64{0, 0.03594, 0.17099, 0.23, 2.0, 27.0}
	values := []float64{0, 0.5, 1, 12.5, 100, 9999.99}
	for _, f := range factors {
		for _, v := range values {
			got, err := CalculateCO2e(v, domain.EmissionFactor{Factor: f})
			require.NoError(t, err)
			require.Equal(t, domain.Round(v*f, 2), got, "value=%v factor=%v", v, f)
		}
	}
}

func TestCalculateTotalCO2e(t *testing.T) {
	require.Equal(t, 0.0, CalculateTotalCO2e(nil))

	day := domain.NewDate(2026, time.March, 1)
	acts := []domain.Activity{
		activity(t, "a", domain.CategoryTransport, 1.25, day),
		activity(t, "b", domain.CategoryFood, 2.5, day),
		activity(t, "c", domain.CategoryEnergy, 0.75, day),
	}
	reversed := []domain.Activity{acts[2], acts[1], acts[0]}
	require.Equal(t, 4.5, CalculateTotalCO2e(acts))
	require.Equal(t, CalculateTotalCO2e(acts), CalculateTotalCO2e(reversed))
}

func TestCalculateBreakdownByCategoryKeepsFirstOccurrenceOrder(t *testing.T) {
	day := domain.NewDate(2026, time.March, 1)
	acts := []domain.Activity{
		activity(t, "a", domain.CategoryFood, 1.111, day),
		activity(t, "b", domain.CategoryTransport, 2, day),
		activity(t, "c", domain.CategoryFood, 1.111, day),
	}

	breakdown := CalculateBreakdownByCategory(acts)
	require.Len(t, breakdown, 2)
	assert.Equal(t, domain.CategoryFood, breakdown[0].Category)
	assert.Equal(t, 2.22, breakdown[0].CO2eKg)
	assert.Equal(t, domain.CategoryTransport, breakdown[1].Category)
	assert.Equal(t, 2.0, breakdown.Get(domain.CategoryTransport))
	assert.Equal(t, 0.0, breakdown.Get(domain.CategoryEnergy))

	counts := CountByCategory(acts)
	assert.Equal(t, 2, counts[domain.CategoryFood])
	assert.Equal(t, 1, counts[domain.CategoryTransport])
}

func TestCalculateDailyTrend(t *testing.T) {
	start := domain.NewDate(2026, time.January, 30)
	end := domain.NewDate(2026, time.February, 3)
	acts := []domain.Activity{
		activity(t, "a", domain.CategoryFood, 1.5, domain.NewDate(2026, time.February, 1)),
		activity(t, "b", domain.CategoryFood, 2.25, domain.NewDate(2026, time.February, 1)),
		activity(t, "c", domain.CategoryFood, 9, domain.NewDate(2026, time.January, 29)),
		activity(t, "d", domain.CategoryFood, 9, domain.NewDate(2026, time.February, 4)),
		activity(t, "e", domain.CategoryEnergy, 0.4, end),
	}

	points := CalculateDailyTrend(acts, start, end)
	require.Len(t, points, 5)
	for i := 1; i < len(points); i++ {
		require.True(t, points[i].Date.After(points[i-1].Date))
	}
	require.Equal(t, start, points[0].Date)
	require.Equal(t, 0.0, points[0].CO2eKg)
	require.Equal(t, 3.75, points[2].CO2eKg)
	require.Equal(t, 2, points[2].Count)
	require.Equal(t, 0.4, points[4].CO2eKg)
	require.Equal(t, 1, points[4].Count)

	require.Empty(t, CalculateDailyTrend(acts, end, start))
	require.Len(t, CalculateDailyTrend(nil, start, start), 1)
}

func TestGetPeriodDates(t *testing.T) {
	cases := []struct {
		period string
		ref    time.Time
		start  time.Time
		end    time.Time
	}{
		{PeriodMonth, domain.NewDate(2026, time.February, 15), domain.NewDate(2026, time.February, 1), domain.NewDate(2026, time.February, 28)},
		{PeriodMonth, domain.NewDate(2026, time.December, 15), domain.NewDate(2026, time.December, 1), domain.NewDate(2026, time.December, 31)},
		{PeriodMonth, domain.NewDate(2028, time.February, 10), domain.NewDate(2028, time.February, 1), domain.NewDate(2028, time.February, 29)},
		{PeriodDay, domain.NewDate(2026, time.May, 5), domain.NewDate(2026, time.May, 5), domain.NewDate(2026, time.May, 5)},
		// 2026-05-07 is a Thursday.
		{PeriodWeek, domain.NewDate(2026, time.May, 7), domain.NewDate(2026, time.May, 4), domain.NewDate(2026, time.May, 10)},
		// Sunday belongs to the week that started the previous Monday.
		{PeriodWeek, domain.NewDate(2026, time.May, 10), domain.NewDate(2026, time.May, 4), domain.NewDate(2026, time.May, 10)},
		{PeriodYear, domain.NewDate(2026, time.July, 1), domain.NewDate(2026, time.January, 1), domain.NewDate(2026, time.December, 31)},
		{PeriodAll, domain.NewDate(2026, time.July, 1), domain.NewDate(2020, time.January, 1), domain.NewDate(2030, time.December, 31)},
		// Unrecognised names fall back to the all-time range.
		{"fortnight", domain.NewDate(2026, time.July, 1), domain.NewDate(2020, time.January, 1), domain.NewDate(2030, time.December, 31)},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s/%s", tc.period, tc.ref.Format(domain.DateLayout)), func(t *testing.T) {
			p := GetPeriodDates(tc.period, tc.ref)
			require.Equal(t, tc.start, p.Start)
			require.Equal(t, tc.end, p.End)
		})
	}
}

func TestCalculatePercentileAndRating(t *testing.T) {
	require.Equal(t, 10, CalculatePercentile(8000, 16000))
	require.Equal(t, 50, CalculatePercentile(16000, 16000))
	require.Equal(t, 95, CalculatePercentile(33000, 16000))
	require.Equal(t, 25, CalculatePercentile(12000, 16000))
	require.Equal(t, 90, CalculatePercentile(32000, 16000))
	require.Equal(t, 50, CalculatePercentile(500, 0))

	require.Equal(t, RatingExcellent, GetRating(10))
	require.Equal(t, RatingExcellent, GetRating(25))
	require.Equal(t, RatingGood, GetRating(50))
	require.Equal(t, RatingAverage, GetRating(75))
	require.Equal(t, RatingAboveAverage, GetRating(90))
	require.Equal(t, RatingHigh, GetRating(95))
}

func TestCalculateDifference(t *testing.T) {
	kg, pct := CalculateDifference(12000, 16000)
	require.Equal(t, -4000.0, kg)
	require.Equal(t, -25.0, pct)

	kg, pct = CalculateDifference(100, 0)
	require.Equal(t, 100.0, kg)
	require.Equal(t, 0.0, pct)

	_, pct = CalculateDifference(1, 3)
	require.Equal(t, -66.67, pct)
}

func TestGenerateInsights(t *testing.T) {
	regional := map[string]float64{
		domain.CategoryTransport: 9600,
		domain.CategoryEnergy:    4800,
		domain.CategoryFood:      1600,
	}

	excellent := GenerateInsights(map[string]float64{domain.CategoryTransport: 5000, domain.CategoryEnergy: 4800, domain.CategoryFood: 1600}, regional)
	require.Len(t, excellent, 1)
	require.Contains(t, excellent[0], "excellent")
	require.Contains(t, excellent[0], "48%")
	require.Equal(t, "Your transport emissions are excellent - 48% below average!", excellent[0])

	above := GenerateInsights(map[string]float64{domain.CategoryTransport: 13000, domain.CategoryEnergy: 4800, domain.CategoryFood: 1600}, regional)
	require.Len(t, above, 1)
	require.Contains(t, above[0], "above average")
	require.Contains(t, above[0], "35%")

	mixed := GenerateInsights(map[string]float64{
		domain.CategoryTransport: 8000,
		domain.CategoryEnergy:    4800,
		domain.CategoryFood:      0,
		"shopping":               900,
	}, regional)
	require.Equal(t, []string{
		"Your transport emissions are below average. Great work!",
		"Your food emissions are excellent - 100% below average!",
	}, mixed)

	require.Empty(t, GenerateInsights(map[string]float64{domain.CategoryTransport: 50}, map[string]float64{domain.CategoryTransport: 0}))
}

func TestCalculateDistanceKm(t *testing.T) {
	d := CalculateDistanceKm(jfk, lhr)
	require.InDelta(t, 5541, d, 60)
	require.Equal(t, d, CalculateDistanceKm(lhr, jfk))
	require.Equal(t, 0.0, CalculateDistanceKm(jfk, jfk))

	approx := CalculateDistanceKm(
		domain.Airport{Latitude: 40.64, Longitude: -73.78},
		domain.Airport{Latitude: 51.47, Longitude: -0.45},
	)
	require.InDelta(t, 5541, approx, 60)
}

func TestDetermineFlightType(t *testing.T) {
	short := DetermineFlightType(jfk, bos, CalculateDistanceKm(jfk, bos))
	require.Equal(t, "flight_domestic_short", short)

	medium := DetermineFlightType(jfk, lax, CalculateDistanceKm(jfk, lax))
	require.Equal(t, "flight_domestic_medium", medium)

	long := DetermineFlightType(jfk, lhr, CalculateDistanceKm(jfk, lhr))
	require.Equal(t, "flight_international_long", long)

	require.Equal(t, "flight_international_medium", DetermineFlightType(jfk, lhr, 4000))
	require.Equal(t, "flight_international_short", DetermineFlightType(jfk, lhr, 1499))

	require.Equal(t, "long", ExtractHaulType(long))
	require.Equal(t, "short", ExtractHaulType(short))
	require.True(t, IsDomestic(short))
	require.False(t, IsDomestic(long))
}
