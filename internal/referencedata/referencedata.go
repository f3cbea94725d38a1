// Package referencedata serves the static airport, regional benchmark and seed emission
// factor datasets embedded in the binary. Each dataset is decoded once on first use and
// never mutated afterwards, so readers share it without locking.
package referencedata

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"example.com/footprint/internal/domain"
)

//go:embed data/*.json
var files embed.FS

type airportRecord struct {
	IATACode    string  `json:"iata_code"`
	ICAOCode    string  `json:"icao_code"`
	Name        string  `json:"name"`
	City        string  `json:"city"`
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

type regionRecord struct {
	Code                string             `json:"code"`
	Name                string             `json:"name"`
	AverageAnnualCO2eKg float64            `json:"average_annual_co2e_kg"`
	Breakdown           map[string]float64 `json:"breakdown"`
	Source              string             `json:"source"`
}

type factorRecord struct {
	ID           int     `json:"id"`
	Category     string  `json:"category"`
	ActivityType string  `json:"activity_type"`
	Factor       float64 `json:"co2e_factor"`
	Unit         string  `json:"unit"`
	Source       string  `json:"source"`
	Notes        string  `json:"notes,omitempty"`
}

var (
	airportsOnce sync.Once
	airports     []domain.Airport
	airportIndex map[string]domain.Airport
	airportsErr  error

	regionsOnce sync.Once
	regions     []domain.RegionalAverage
	regionIndex map[string]domain.RegionalAverage
	regionsErr  error

	factorsOnce sync.Once
	factors     []domain.EmissionFactor
	factorsErr  error
)

func readJSON(name string, dst any) error {
	raw, err := files.ReadFile("data/" + name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func loadAirports() ([]domain.Airport, map[string]domain.Airport, error) {
	airportsOnce.Do(func() {
		var records []airportRecord
		if airportsErr = readJSON("airports.json", &records); airportsErr != nil {
			return
		}
		list := make([]domain.Airport, 0, len(records))
		index := make(map[string]domain.Airport, len(records))
		for _, rec := range records {
			a, err := domain.NewAirport(domain.Airport{
				IATACode:    strings.ToUpper(rec.IATACode),
				ICAOCode:    rec.ICAOCode,
				Name:        rec.Name,
				City:        rec.City,
				Country:     rec.Country,
				CountryCode: rec.CountryCode,
				Latitude:    rec.Latitude,
				Longitude:   rec.Longitude,
			})
			if err != nil {
				airportsErr = fmt.Errorf("airport %q: %w", rec.IATACode, err)
				return
			}
			list = append(list, a)
			index[a.IATACode] = a
		}
		airports, airportIndex = list, index
	})
	return airports, airportIndex, airportsErr
}

func loadRegions() ([]domain.RegionalAverage, map[string]domain.RegionalAverage, error) {
	regionsOnce.Do(func() {
		var records []regionRecord
		if regionsErr = readJSON("regions.json", &records); regionsErr != nil {
			return
		}
		list := make([]domain.RegionalAverage, 0, len(records))
		index := make(map[string]domain.RegionalAverage, len(records))
		for _, rec := range records {
			r := domain.RegionalAverage{
				Code:                rec.Code,
				Name:                rec.Name,
				AverageAnnualCO2eKg: rec.AverageAnnualCO2eKg,
				Breakdown:           rec.Breakdown,
				Source:              rec.Source,
			}
			list = append(list, r)
			index[strings.ToLower(r.Code)] = r
		}
		regions, regionIndex = list, index
	})
	return regions, regionIndex, regionsErr
}

// EmissionFactors returns the seed emission factor table, ordered by id.
func EmissionFactors() ([]domain.EmissionFactor, error) {
	factorsOnce.Do(func() {
		var records []factorRecord
		if factorsErr = readJSON("emission_factors.json", &records); factorsErr != nil {
			return
		}
		list := make([]domain.EmissionFactor, 0, len(records))
		for _, rec := range records {
			f, err := domain.NewEmissionFactor(domain.EmissionFactor{
				ID:       rec.ID,
				Category: rec.Category,
				Type:     rec.ActivityType,
				Factor:   rec.Factor,
				Unit:     rec.Unit,
				Source:   rec.Source,
				Notes:    rec.Notes,
			})
			if err != nil {
				factorsErr = fmt.Errorf("emission factor %q: %w", rec.ActivityType, err)
				return
			}
			list = append(list, f)
		}
		sort.SliceStable(list, func(i, j int) bool { return list[i].ID < list[j].ID })
		factors = list
	})
	return append([]domain.EmissionFactor(nil), factors...), factorsErr
}

// AirportStore implements domain.AirportRepository over the embedded dataset.
type AirportStore struct{}

// NewAirportStore decodes the dataset eagerly so malformed data fails at startup.
func NewAirportStore() (*AirportStore, error) {
	if _, _, err := loadAirports(); err != nil {
		return nil, err
	}
	return &AirportStore{}, nil
}

// Search matches the query case-insensitively as a substring of the IATA code, city or
// name, in dataset order.
func (s *AirportStore) Search(ctx context.Context, query string, limit int) ([]domain.Airport, error) {
	list, _, err := loadAirports()
	if err != nil {
		return nil, err
	}
	q := strings.ToUpper(strings.TrimSpace(query))
	results := make([]domain.Airport, 0, limit)
	for _, a := range list {
		if len(results) >= limit {
			break
		}
		if strings.Contains(a.IATACode, q) ||
			strings.Contains(strings.ToUpper(a.City), q) ||
			strings.Contains(strings.ToUpper(a.Name), q) {
			results = append(results, a)
		}
	}
	return results, nil
}

// GetByIATA returns nil when the code is unknown.
func (s *AirportStore) GetByIATA(ctx context.Context, code string) (*domain.Airport, error) {
	_, index, err := loadAirports()
	if err != nil {
		return nil, err
	}
	a, ok := index[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// RegionStore implements domain.RegionDataProvider over the embedded dataset.
type RegionStore struct{}

// NewRegionStore decodes the dataset eagerly so malformed data fails at startup.
func NewRegionStore() (*RegionStore, error) {
	if _, _, err := loadRegions(); err != nil {
		return nil, err
	}
	return &RegionStore{}, nil
}

// ListAll returns every region in dataset order.
func (s *RegionStore) ListAll(ctx context.Context) ([]domain.RegionalAverage, error) {
	list, _, err := loadRegions()
	if err != nil {
		return nil, err
	}
	return append([]domain.RegionalAverage(nil), list...), nil
}

// GetByCode matches case-insensitively and returns nil for unknown codes.
func (s *RegionStore) GetByCode(ctx context.Context, code string) (*domain.RegionalAverage, error) {
	_, index, err := loadRegions()
	if err != nil {
		return nil, err
	}
	r, ok := index[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return nil, nil
	}
	return &r, nil
}
